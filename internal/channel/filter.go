// Package channel applies the per-channel delivery policy: enabled,
// send_resolved, image capability. It holds no state of its own —
// config.Channel already carries everything the filter needs — so
// this package is a thin predicate over that type, kept separate so
// the orchestrator imports one clearly named decision function rather
// than re-deriving it inline.
package channel

import (
	"github.com/vitaliisemenov/alert-router/internal/alert"
	"github.com/vitaliisemenov/alert-router/internal/config"
)

// Decision records why a channel was kept or dropped for one alert.
type Decision struct {
	ChannelID string
	Deliver   bool
	Reason    string // populated only when Deliver is false
}

// Filter drops any channel ID in candidates whose config.Channel fails
// the delivery policy for a:
//   - C.enabled == false; OR
//   - A.status == "resolved" AND C.send_resolved == false.
//
// Text fallback is always allowed by this gateway, since no channel
// type here refuses it, so an image-required-but-absent case never
// drops a channel on its own.
func Filter(a *alert.Alert, candidates []string, channels map[string]config.Channel) []Decision {
	decisions := make([]Decision, 0, len(candidates))
	for _, id := range candidates {
		ch, ok := channels[id]
		if !ok {
			decisions = append(decisions, Decision{ChannelID: id, Deliver: false, Reason: "unknown channel"})
			continue
		}
		if !ch.ResolveEnabled() {
			decisions = append(decisions, Decision{ChannelID: id, Deliver: false, Reason: "channel disabled"})
			continue
		}
		if a.Status == alert.StatusResolved && !ch.ResolveSendResolved() {
			decisions = append(decisions, Decision{ChannelID: id, Deliver: false, Reason: "send_resolved=false"})
			continue
		}
		decisions = append(decisions, Decision{ChannelID: id, Deliver: true})
	}
	return decisions
}

// WantsImage reports whether the channel should receive the alert's
// image based on its channel-local activation conditions (image_enabled
// and image-capable type); the alert-local conditions (source has an
// enabled image config, generatorURL parses) are evaluated by the
// image pipeline itself.
func WantsImage(ch config.Channel) bool {
	return ch.ImageEnabled && ch.SupportsImages()
}
