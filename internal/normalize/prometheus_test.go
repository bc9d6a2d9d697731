package normalize

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/alert-router/internal/alert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const prometheusPayload = `{
  "version": "4",
  "groupKey": "{}:{alertname=\"HighCPU\"}",
  "status": "firing",
  "receiver": "alert-router",
  "commonLabels": {"alertname": "HighCPU", "severity": "critical"},
  "commonAnnotations": {"summary": "CPU too high"},
  "alerts": [
    {
      "status": "firing",
      "labels": {"alertname": "HighCPU", "severity": "critical", "instance": "host-1"},
      "annotations": {"summary": "instance-specific override"},
      "startsAt": "2024-01-15T10:00:00Z",
      "endsAt": "0001-01-01T00:00:00Z",
      "generatorURL": "http://prom/graph?g0.expr=up"
    },
    {
      "status": "firing",
      "labels": {"alertname": "HighCPU", "severity": "critical", "instance": "host-2"},
      "startsAt": "2024-01-15T10:00:00Z",
      "endsAt": "0001-01-01T00:00:00Z"
    }
  ]
}`

func TestParsePrometheus_PromotesFieldsAndMergesCommon(t *testing.T) {
	alerts, err := parsePrometheus(testLogger(), []byte(prometheusPayload))
	require.NoError(t, err)
	require.Len(t, alerts, 1, "the two host-1/host-2 alerts should collapse via entity merge")

	a := alerts[0]
	assert.Equal(t, alert.StatusFiring, a.Status)
	assert.Equal(t, "alert-router", a.Receiver())
	assert.Equal(t, alert.SourcePrometheus, a.Source())
	assert.Equal(t, "instance-specific override", a.Annotations["summary"], "per-alert annotation must win over commonAnnotations")
	assert.ElementsMatch(t, []string{"host-1", "host-2"}, a.MergedEntities)
}

func TestParsePrometheus_SkipsMalformedEntryWithoutFailingEnvelope(t *testing.T) {
	payload := `{
  "alerts": [
    {"status": "not-a-real-status", "labels": {"alertname": "X"}},
    {"status": "firing", "labels": {"alertname": "Y"}, "startsAt": "2024-01-15T10:00:00Z"}
  ]
}`
	alerts, err := parsePrometheus(testLogger(), []byte(payload))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Y", alerts[0].Name())
}

func TestParsePrometheus_FailsWhenNoAlertsExtractable(t *testing.T) {
	payload := `{"alerts": [{"status": "bogus", "labels": {"alertname": "X"}}]}`
	_, err := parsePrometheus(testLogger(), []byte(payload))
	require.Error(t, err)
	assert.ErrorAs(t, err, new(*ErrUnrecognizedPayload))
}

func TestParsePrometheus_NoReceiverMeansNoReceiverLabel(t *testing.T) {
	payload := `{"alerts": [{"status": "firing", "labels": {"alertname": "X"}, "startsAt": "2024-01-15T10:00:00Z"}]}`
	alerts, err := parsePrometheus(testLogger(), []byte(payload))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "", alerts[0].Receiver())
}
