package routing

import (
	"github.com/vitaliisemenov/alert-router/internal/alert"
)

// Router evaluates an alert against an ordered rule list and returns
// the union of matching rules' channel sets, preserving declaration
// order.
type Router struct {
	rules   []Rule
	cache   *PatternCache
}

// NewRouter builds a Router over rules, validating every non-default
// rule's patterns up front. An invalid pattern or a rule with an empty
// SendTo list is rejected.
func NewRouter(rules []Rule) (*Router, error) {
	cache := NewPatternCache()
	for i, r := range rules {
		if len(r.SendTo) == 0 {
			return nil, &InvalidRuleError{Index: i, Reason: "send_to must be non-empty"}
		}
		if r.Default {
			continue
		}
		for key, pattern := range r.Match {
			if err := cache.ValidatePattern(pattern); err != nil {
				return nil, &InvalidRuleError{Index: i, Reason: "label " + key + ": " + err.Error()}
			}
		}
	}
	return &Router{rules: rules, cache: cache}, nil
}

// InvalidRuleError reports a rule that failed load-time validation.
type InvalidRuleError struct {
	Index  int
	Reason string
}

func (e *InvalidRuleError) Error() string {
	return "invalid routing rule: " + e.Reason
}

// Route returns the ordered, deduplicated union of channel IDs from
// every rule in r.rules that matches a. An empty result means no rule
// matched ("unrouted").
func (r *Router) Route(a *alert.Alert) []string {
	seen := make(map[string]struct{})
	var out []string

	for _, rule := range r.rules {
		matched := rule.Default || r.matchesRule(rule, a)
		if !matched {
			continue
		}
		for _, ch := range rule.SendTo {
			if _, ok := seen[ch]; ok {
				continue
			}
			seen[ch] = struct{}{}
			out = append(out, ch)
		}
	}
	return out
}

// matchesRule reports whether every (key, pattern) entry in rule.Match
// matches a's labels (logical AND).
func (r *Router) matchesRule(rule Rule, a *alert.Alert) bool {
	for key, pattern := range rule.Match {
		value, exists := a.Labels[key]
		ok, err := r.cache.matchValue(pattern, value, exists)
		if err != nil {
			// A pattern that failed NewRouter's load-time validation
			// cannot reach here; treat a runtime compile error (should
			// be unreachable) as a non-match rather than panicking.
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}
