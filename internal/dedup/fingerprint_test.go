package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vitaliisemenov/alert-router/internal/alert"
)

func TestFingerprint_PrefersProducerSupplied(t *testing.T) {
	a := &alert.Alert{Fingerprint: "abc123", Labels: map[string]string{"alertname": "X"}}
	assert.Equal(t, "abc123", Fingerprint(a))
}

func TestFingerprint_OrderInvariantOverLabelSerialization(t *testing.T) {
	a := &alert.Alert{Labels: map[string]string{"alertname": "X", "instance": "h1", "job": "build"}}
	b := &alert.Alert{Labels: map[string]string{"job": "build", "instance": "h1", "alertname": "X"}}
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_DiffersOnDifferentLabels(t *testing.T) {
	a := &alert.Alert{Labels: map[string]string{"alertname": "X", "instance": "h1"}}
	b := &alert.Alert{Labels: map[string]string{"alertname": "X", "instance": "h2"}}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_IsStableHexString(t *testing.T) {
	a := &alert.Alert{Labels: map[string]string{"alertname": "X"}}
	fp := Fingerprint(a)
	assert.Len(t, fp, 40, "sha1 hex digest is 40 characters")
}
