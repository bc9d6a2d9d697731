// Package normalize turns the two dissimilar producer envelopes
// (Prometheus-style Alertmanager webhooks and Grafana unified-alerting
// webhooks) into one list of canonical alert.Alert records.
// Identification first inspects a loosely-typed decode of the payload,
// then the matching parser re-decodes it into a concrete envelope
// struct — this repo never keeps the untyped form as its long-lived
// in-memory representation.
package normalize

import "encoding/json"

// Kind is the result of payload identification.
type Kind string

const (
	KindPrometheus Kind = "prometheus"
	KindGrafana    Kind = "grafana"
	KindSingle     Kind = "single"
	KindUnknown    Kind = "unknown"
)

// Identify inspects the top-level JSON payload and returns which
// producer shape it matches, applying an ordered set of discrimination
// rules.
func Identify(payload []byte) (Kind, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil {
		return KindUnknown, &ErrUnrecognizedPayload{Reason: "payload is not a JSON object: " + err.Error()}
	}

	// Rule 1: numeric orgId → grafana.
	if raw, ok := top["orgId"]; ok && isJSONNumber(raw) {
		return KindGrafana, nil
	}

	// Rule 2: version == "1" AND (state present OR title present) → grafana.
	if versionEquals(top, "1") && (has(top, "state") || has(top, "title")) {
		return KindGrafana, nil
	}

	// Rule 3: version present AND != "1" AND groupKey present AND alerts present → prometheus.
	if has(top, "version") && !versionEquals(top, "1") && has(top, "groupKey") && has(top, "alerts") {
		return KindPrometheus, nil
	}

	// Rule 4: alerts present → lenient prometheus-style.
	if has(top, "alerts") {
		return KindPrometheus, nil
	}

	// Rule 5: labels AND status at top level → single inline alert.
	if has(top, "labels") && has(top, "status") {
		return KindSingle, nil
	}

	return KindUnknown, &ErrUnrecognizedPayload{Reason: "payload matches no known producer shape"}
}

func has(top map[string]json.RawMessage, key string) bool {
	raw, ok := top[key]
	return ok && string(raw) != "null"
}

func versionEquals(top map[string]json.RawMessage, want string) bool {
	raw, ok := top["version"]
	if !ok {
		return false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == want
	}
	// version may be encoded as a bare JSON number in lenient payloads.
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String() == want
	}
	return false
}

func isJSONNumber(raw json.RawMessage) bool {
	var n json.Number
	return json.Unmarshal(raw, &n) == nil
}

// ErrUnrecognizedPayload is returned by Identify and Normalize when the
// envelope cannot be matched to any known producer.
type ErrUnrecognizedPayload struct {
	Reason string
}

func (e *ErrUnrecognizedPayload) Error() string {
	return "unrecognized payload: " + e.Reason
}
