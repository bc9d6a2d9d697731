package template

import (
	"regexp"
	"sort"
	"time"

	"github.com/vitaliisemenov/alert-router/internal/alert"
)

// cstLocation is the Asia/Shanghai zone used for startsAt_cst/endsAt_cst
// template fields. time.LoadLocation caches the zoneinfo lookup; a
// failure (no tzdata available) falls back to a fixed +08:00 offset so
// rendering never errors out over a missing system timezone database.
var cstLocation = loadCST()

func loadCST() *time.Location {
	if loc, err := time.LoadLocation("Asia/Shanghai"); err == nil {
		return loc
	}
	return time.FixedZone("CST", 8*60*60)
}

// labelPair is one rendered (key, value) entry; used so templates can
// range over labels/annotations in a stable, deterministic order. Go's
// map[string]string carries no insertion order of its own, so this
// repo orders entries by key rather than claim an insertion order it
// cannot actually reconstruct from the decoded JSON (see DESIGN.md).
type labelPair struct {
	Key   string
	Value string
}

// Context is the data object handed to text/template for one (alert,
// channel) rendering pass.
type Context struct {
	Status      string
	StatusText  string
	Labels      map[string]string
	Annotations map[string]string
	LabelPairs  []labelPair
	AnnoPairs   []labelPair

	StartsAt    time.Time
	EndsAt      time.Time
	StartsAtCST string
	EndsAtCST   string

	GeneratorURL   string
	Fingerprint    string
	Values         map[string]float64
	ValueString    string
	MergedEntities []string

	HasImage bool
}

// NewContext builds a Context from a canonical alert.
func NewContext(a *alert.Alert, hasImage bool) *Context {
	statusText := "恢复"
	if a.Status == alert.StatusFiring {
		statusText = "告警"
	}

	return &Context{
		Status:         string(a.Status),
		StatusText:     statusText,
		Labels:         a.Labels,
		Annotations:    a.Annotations,
		LabelPairs:     sortedPairs(a.Labels),
		AnnoPairs:      sortedPairs(a.Annotations),
		StartsAt:       a.StartsAt,
		EndsAt:         a.EndsAt,
		StartsAtCST:    formatCST(a.StartsAt),
		EndsAtCST:      formatCST(a.EndsAt),
		GeneratorURL:   a.GeneratorURL,
		Fingerprint:    a.Fingerprint,
		Values:         a.Values,
		ValueString:    a.ValueString,
		MergedEntities: a.MergedEntities,
		HasImage:       hasImage,
	}
}

func sortedPairs(m map[string]string) []labelPair {
	pairs := make([]labelPair, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, labelPair{Key: k, Value: v})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return pairs
}

const cstLayout = "2006-01-02 15:04:05"

func formatCST(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(cstLocation).Format(cstLayout)
}

// isoTimestampPattern matches ISO-8601 timestamp shapes that get
// rewritten to CST form wherever they appear inside a rendered JSON
// payload (webhook channel bodies).
var isoTimestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?`)

// RewriteJSONTimestamps replaces every ISO-8601 timestamp substring in
// s with its CST-formatted equivalent, leaving substrings that fail to
// parse untouched.
func RewriteJSONTimestamps(s string) string {
	return isoTimestampPattern.ReplaceAllStringFunc(s, func(match string) string {
		t, err := time.Parse(time.RFC3339Nano, match)
		if err != nil {
			t, err = time.Parse(time.RFC3339, match)
			if err != nil {
				return match
			}
		}
		return formatCST(t)
	})
}
