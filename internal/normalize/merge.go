package normalize

import (
	"sort"

	"github.com/vitaliisemenov/alert-router/internal/alert"
)

// entityLabels are the label keys that identify a single "entity"
// instance of an otherwise-identical alert; collapsing on these is
// what this package calls alert merging.
var entityLabels = []string{"pod", "instance", "service_name", "container", "host"}

// mergeEntities collapses alerts that share alertname and differ only in
// exactly one entity label into one canonical alert carrying
// MergedEntities, preserving first-seen ordering. Merging happens
// unconditionally, favoring a simple, total function over one that
// consults routing rules for label usage.
func mergeEntities(alerts []*alert.Alert) []*alert.Alert {
	type group struct {
		canonical *alert.Alert
		seen      map[string]bool
	}

	groups := make(map[string]*group)
	result := make([]*alert.Alert, 0, len(alerts))

	for _, a := range alerts {
		key, _, entityVal, mergeable := mergeKey(a)
		if !mergeable {
			result = append(result, a)
			continue
		}

		g, ok := groups[key]
		if !ok {
			g = &group{canonical: a, seen: map[string]bool{}}
			groups[key] = g
			result = append(result, a) // first-seen position reserved here
		}
		if entityVal != "" && !g.seen[entityVal] {
			g.seen[entityVal] = true
			g.canonical.MergedEntities = append(g.canonical.MergedEntities, entityVal)
		}
	}

	return result
}

// mergeKey returns a grouping key built from alertname plus every label
// except the single entity label present, the name of that entity
// label, its value, and whether the alert qualifies for merging at all
// (it must carry alertname and exactly one recognized entity label).
func mergeKey(a *alert.Alert) (key, entityKey, entityVal string, mergeable bool) {
	name := a.Labels["alertname"]
	if name == "" {
		return "", "", "", false
	}

	found := ""
	for _, candidate := range entityLabels {
		if _, ok := a.Labels[candidate]; ok {
			if found != "" {
				// More than one entity label present: merging semantics are
				// only defined for a single varying entity dimension.
				return "", "", "", false
			}
			found = candidate
		}
	}
	if found == "" {
		return "", "", "", false
	}

	keys := make([]string, 0, len(a.Labels))
	for k := range a.Labels {
		if k == found {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	key = string(a.Status) + "|" + name
	for _, k := range keys {
		key += "|" + k + "=" + a.Labels[k]
	}
	return key, found, a.Labels[found], true
}
