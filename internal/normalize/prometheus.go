package normalize

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/vitaliisemenov/alert-router/internal/alert"
)

// parsePrometheus decodes a Prometheus/Alertmanager envelope and
// promotes each entry into a canonical alert.Alert: per-alert fields
// win over envelope-level commonLabels/commonAnnotations, and a
// malformed entry is logged and skipped rather than failing the whole
// request.
func parsePrometheus(logger *slog.Logger, payload []byte) ([]*alert.Alert, error) {
	var env prometheusEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, &ErrUnrecognizedPayload{Reason: "invalid prometheus envelope: " + err.Error()}
	}

	alerts := make([]*alert.Alert, 0, len(env.Alerts))
	for i, ra := range env.Alerts {
		a, err := promote(ra, alert.SourcePrometheus, env.CommonLabels, env.CommonAnnotations)
		if err != nil {
			logger.Warn("skipping malformed prometheus alert entry", "index", i, "error", err)
			continue
		}
		if env.Receiver != "" {
			a.Labels[alert.LabelReceiver] = env.Receiver
		}
		alerts = append(alerts, a)
	}

	if len(alerts) == 0 && len(env.Alerts) > 0 {
		return nil, &ErrUnrecognizedPayload{Reason: "no alerts could be extracted from prometheus envelope"}
	}

	return mergeEntities(alerts), nil
}

// promote converts one wire-level rawAlert into a canonical alert.Alert,
// merging envelope-level common labels/annotations under the per-alert
// values (per-alert wins on conflict). Producer label keys beginning
// with "_" are dropped; those keys are reserved for the normalizer.
func promote(ra rawAlert, source alert.Source, commonLabels, commonAnnotations map[string]string) (*alert.Alert, error) {
	labels := make(map[string]string, len(commonLabels)+len(ra.Labels)+1)
	for k, v := range commonLabels {
		if strings.HasPrefix(k, "_") {
			continue
		}
		labels[k] = v
	}
	for k, v := range ra.Labels {
		if strings.HasPrefix(k, "_") {
			continue
		}
		labels[k] = v
	}
	labels[alert.LabelSource] = string(source)

	annotations := make(map[string]string, len(commonAnnotations)+len(ra.Annotations))
	for k, v := range commonAnnotations {
		annotations[k] = v
	}
	for k, v := range ra.Annotations {
		annotations[k] = v
	}

	a := &alert.Alert{
		Status:         alert.Status(ra.Status),
		Labels:         labels,
		Annotations:    annotations,
		StartsAt:       ra.StartsAt,
		EndsAt:         ra.EndsAt,
		GeneratorURL:   ra.GeneratorURL,
		Fingerprint:    ra.Fingerprint,
		Values:         ra.Values,
		ValueString:    ra.ValueString,
		MergedEntities: nil,
	}
	if err := a.Valid(); err != nil {
		return nil, err
	}
	return a, nil
}
