// Package sender delivers a rendered alert to one configured channel,
// either a chat bot (photo/message API with HTML-parse fallback) or a
// generic JSON webhook.
package sender

// Result is the outcome of one delivery attempt against one channel.
type Result struct {
	OK bool
	// Note records a non-default path that still succeeded, e.g.
	// "html-fallback" after a parse-entities retry. Empty on the
	// straight-line success path.
	Note string
	// Reason holds the platform's description text (or a synthesized
	// one) when OK is false.
	Reason string
}
