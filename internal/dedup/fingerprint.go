package dedup

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/vitaliisemenov/alert-router/internal/alert"
)

// identifyingLabels are the label keys folded into the dedup
// fingerprint when the producer did not supply its own.
var identifyingLabels = []string{"alertname", "instance", "pod", "service_name", "container", "host", "job"}

// Fingerprint returns the deterministic dedup key for a, preferring the
// producer-supplied alert.Fingerprint (Grafana's native fingerprint)
// when present, and otherwise hashing the sorted set of identifying
// labels so the key is order-invariant over label serialization.
func Fingerprint(a *alert.Alert) string {
	if a.Fingerprint != "" {
		return a.Fingerprint
	}

	parts := make([]string, 0, len(identifyingLabels))
	for _, key := range identifyingLabels {
		if v, ok := a.Labels[key]; ok && v != "" {
			parts = append(parts, key+"="+v)
		}
	}
	sort.Strings(parts)

	h := sha1.New()
	h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))
}
