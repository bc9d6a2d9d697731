package normalize

import (
	"encoding/json"
	"time"
)

// rawAlert is the shape shared by Prometheus Alertmanager entries and
// Grafana unified-alerting entries; unused fields are simply left at
// their zero value by whichever parser decodes into it. Mirrors the
// teacher's prometheus_models.go convention of one permissive wire
// struct per producer rather than a polymorphic union type.
type rawAlert struct {
	Status       string            `json:"status"`
	Labels       map[string]string `json:"labels"`
	Annotations  map[string]string `json:"annotations"`
	StartsAt     time.Time         `json:"startsAt"`
	EndsAt       time.Time         `json:"endsAt"`
	GeneratorURL string            `json:"generatorURL"`
	Fingerprint  string            `json:"fingerprint"`

	// Grafana-only.
	SilenceURL   string             `json:"silenceURL"`
	DashboardURL string             `json:"dashboardURL"`
	PanelURL     string             `json:"panelURL"`
	ValueString  string             `json:"valueString"`
	Values       map[string]float64 `json:"values"`
}

// prometheusEnvelope is the Alertmanager webhook body.
type prometheusEnvelope struct {
	Version           string            `json:"version"`
	GroupKey          string            `json:"groupKey"`
	Status            string            `json:"status"`
	Receiver          string            `json:"receiver"`
	GroupLabels       map[string]string `json:"groupLabels"`
	CommonLabels      map[string]string `json:"commonLabels"`
	CommonAnnotations map[string]string `json:"commonAnnotations"`
	ExternalURL       string            `json:"externalURL"`
	Alerts            []rawAlert        `json:"alerts"`
}

// grafanaEnvelope is the Grafana unified-alerting webhook body. It
// reuses every Prometheus-shaped field (Grafana's webhook contact point
// is itself a superset of the Alertmanager shape) and adds the
// Grafana-only top-level fields.
type grafanaEnvelope struct {
	prometheusEnvelope
	OrgID   json.Number `json:"orgId"`
	State   string      `json:"state"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
}
