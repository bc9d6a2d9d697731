package normalize

import (
	"encoding/json"
	"log/slog"

	"github.com/vitaliisemenov/alert-router/internal/alert"
)

// parseGrafana decodes a Grafana unified-alerting envelope. Field
// promotion is identical to parsePrometheus. Of the Grafana-only
// per-alert fields, fingerprint, values and valueString are promoted onto
// alert.Alert; silenceURL, dashboardURL and panelURL are decoded into
// rawAlert but not carried onto alert.Alert, so templates cannot see them.
func parseGrafana(logger *slog.Logger, payload []byte) ([]*alert.Alert, error) {
	var env grafanaEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, &ErrUnrecognizedPayload{Reason: "invalid grafana envelope: " + err.Error()}
	}

	alerts := make([]*alert.Alert, 0, len(env.Alerts))
	for i, ra := range env.Alerts {
		a, err := promote(ra, alert.SourceGrafana, env.CommonLabels, env.CommonAnnotations)
		if err != nil {
			logger.Warn("skipping malformed grafana alert entry", "index", i, "error", err)
			continue
		}
		if env.Receiver != "" {
			a.Labels[alert.LabelReceiver] = env.Receiver
		}
		alerts = append(alerts, a)
	}

	if len(alerts) == 0 && len(env.Alerts) > 0 {
		return nil, &ErrUnrecognizedPayload{Reason: "no alerts could be extracted from grafana envelope"}
	}

	return mergeEntities(alerts), nil
}

// parseSingle handles the lenient "single inline alert" shape: the
// payload itself is one rawAlert rather than an envelope wrapping an
// alerts array.
func parseSingle(payload []byte) ([]*alert.Alert, error) {
	var ra rawAlert
	if err := json.Unmarshal(payload, &ra); err != nil {
		return nil, &ErrUnrecognizedPayload{Reason: "invalid single-alert payload: " + err.Error()}
	}
	a, err := promote(ra, alert.SourcePrometheus, nil, nil)
	if err != nil {
		return nil, err
	}
	return []*alert.Alert{a}, nil
}
