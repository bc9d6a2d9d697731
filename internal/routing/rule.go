// Package routing matches canonical alerts against an ordered rule set
// and produces the set of channel IDs each alert should be delivered
// to. The regex-vs-exact heuristic and caching strategy are adapted
// from Alertmanager's multi-operator matcher tree down to a flatter
// "match: map[label]pattern, all entries AND'd" rule shape.
package routing

// Rule is one ordered entry of the routing table.
type Rule struct {
	// Match maps a label key to a pattern. Every entry must match for
	// the rule to fire (logical AND). Ignored when Default is true.
	Match map[string]string `mapstructure:"match"`

	// Default, when true, matches unconditionally and acts as a
	// last-resort catch-all.
	Default bool `mapstructure:"default"`

	// SendTo is the non-empty list of channel IDs this rule routes to.
	SendTo []string `mapstructure:"send_to"`
}
