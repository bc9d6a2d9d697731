// Package metrics exposes Prometheus instrumentation for every pipeline
// stage (normalize, route, dedup, image, render, send), following a
// namespace/subsystem taxonomy:
// alert_router_<subsystem>_<name>_<unit>.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles every counter/histogram the gateway records. A
// single Registry is constructed at startup and threaded through the
// components that need it; it is safe for concurrent use because the
// underlying client_golang collectors are.
type Registry struct {
	AlertsNormalizedTotal *prometheus.CounterVec // source=prometheus|grafana
	AlertsUnrecognized    prometheus.Counter

	RoutedTotal   *prometheus.CounterVec // result=routed|unrouted
	DedupTotal    *prometheus.CounterVec // result=admitted|suppressed

	ImageAttemptsTotal *prometheus.CounterVec // result=ok|query_failed|empty_series|invalid|timeout|skipped|error
	ImageRenderSeconds prometheus.Histogram

	TemplateRenderTotal *prometheus.CounterVec // result=ok|error
	SendTotal           *prometheus.CounterVec // channel_type=chat|webhook, result=ok|failed
	SendSeconds         *prometheus.HistogramVec
}

// NewRegistry creates and registers all collectors under namespace
// (typically "alert_router") on reg. Passing prometheus.NewRegistry()
// keeps metrics isolated per test; the serve command also passes its
// own prometheus.NewRegistry(), which /metrics exposes via
// promhttp.HandlerFor.
func NewRegistry(namespace string, reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		AlertsNormalizedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalize",
			Name:      "alerts_total",
			Help:      "Total canonical alerts produced by the normalizer, by source.",
		}, []string{"source"}),

		AlertsUnrecognized: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalize",
			Name:      "unrecognized_payloads_total",
			Help:      "Total webhook payloads that could not be identified as any known producer.",
		}),

		RoutedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "decisions_total",
			Help:      "Routing decisions, by whether any rule matched.",
		}, []string{"result"}),

		DedupTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dedup",
			Name:      "decisions_total",
			Help:      "Dedup admission decisions for build-system alerts.",
		}, []string{"result"}),

		ImageAttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "image",
			Name:      "attempts_total",
			Help:      "Image pipeline invocations, by outcome.",
		}, []string{"result"}),

		ImageRenderSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "image",
			Name:      "render_seconds",
			Help:      "Time spent fetching the range query and rasterizing a chart.",
			Buckets:   prometheus.DefBuckets,
		}),

		TemplateRenderTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "template",
			Name:      "renders_total",
			Help:      "Template render attempts, by outcome.",
		}, []string{"result"}),

		SendTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sender",
			Name:      "sends_total",
			Help:      "Delivery attempts, by channel type and outcome.",
		}, []string{"channel_type", "result"}),

		SendSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sender",
			Name:      "send_seconds",
			Help:      "Delivery latency, by channel type.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel_type"}),
	}
}
