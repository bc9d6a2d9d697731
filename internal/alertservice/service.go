// Package alertservice orchestrates one webhook request end to end:
// normalize, per-alert dedup/route/filter/image/render/send, fan-out
// per channel, join before responding.
package alertservice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/vitaliisemenov/alert-router/internal/alert"
	"github.com/vitaliisemenov/alert-router/internal/channel"
	"github.com/vitaliisemenov/alert-router/internal/config"
	"github.com/vitaliisemenov/alert-router/internal/dedup"
	"github.com/vitaliisemenov/alert-router/internal/imagepipeline"
	"github.com/vitaliisemenov/alert-router/internal/metrics"
	"github.com/vitaliisemenov/alert-router/internal/normalize"
	"github.com/vitaliisemenov/alert-router/internal/routing"
	"github.com/vitaliisemenov/alert-router/internal/sender"
	"github.com/vitaliisemenov/alert-router/internal/template"
)

// Deps bundles every collaborator the orchestrator needs. All fields
// except Logger and Metrics are required; PrometheusImage/GrafanaImage
// may individually be nil when that producer's image pipeline is
// disabled in configuration.
type Deps struct {
	Logger   *slog.Logger
	Metrics  *metrics.Registry
	Dedup    *dedup.Cache
	Router   *routing.Router
	Channels map[string]config.Channel

	PrometheusImage *imagepipeline.Pipeline
	GrafanaImage    *imagepipeline.Pipeline

	Templates *template.Engine

	ChatSender    *sender.ChatSender
	WebhookSender *sender.WebhookSender

	ProxyEnabled bool
	Proxy        config.ProxyConfig
}

// Service is the alert-processing orchestrator for one configured
// gateway instance.
type Service struct {
	deps Deps
}

// New builds a Service from deps, defaulting a nil Logger to
// slog.Default().
func New(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// HandleWebhook normalizes payload and processes every resulting alert.
// A non-nil error means the envelope itself was unrecognized or
// otherwise unparseable; callers should map that to HTTP 400. Any other
// failure is local to one alert × one channel and is reported inside
// the returned outcomes, never as an error here.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte) ([]Outcome, error) {
	alerts, err := normalize.Normalize(s.deps.Logger, payload)
	if err != nil {
		var unrecognized *normalize.ErrUnrecognizedPayload
		if errors.As(err, &unrecognized) {
			s.count(s.deps.Metrics != nil, func() { s.deps.Metrics.AlertsUnrecognized.Inc() })
		}
		return nil, err
	}

	var outcomes []Outcome
	for _, a := range alerts {
		if s.deps.Metrics != nil {
			s.deps.Metrics.AlertsNormalizedTotal.WithLabelValues(string(a.Source())).Inc()
		}
		outcomes = append(outcomes, s.processAlert(ctx, a)...)
	}
	return outcomes, nil
}

// processAlert runs the dedup/route/filter/image/render/send pipeline
// for a single normalized alert.
func (s *Service) processAlert(ctx context.Context, a *alert.Alert) []Outcome {
	logger := s.deps.Logger.With("alertname", a.Name(), "status", string(a.Status))

	if s.deps.Dedup != nil && !s.deps.Dedup.Admit(a) {
		logger.Info("alert suppressed by dedup cache", "dedup_hit", true)
		s.count(s.deps.Metrics != nil, func() { s.deps.Metrics.DedupTotal.WithLabelValues("suppressed").Inc() })
		return nil
	}
	s.count(s.deps.Metrics != nil, func() { s.deps.Metrics.DedupTotal.WithLabelValues("admitted").Inc() })

	candidates := s.deps.Router.Route(a)
	if len(candidates) == 0 {
		logger.Info("alert unrouted")
		s.count(s.deps.Metrics != nil, func() { s.deps.Metrics.RoutedTotal.WithLabelValues("unrouted").Inc() })
		return nil
	}
	s.count(s.deps.Metrics != nil, func() { s.deps.Metrics.RoutedTotal.WithLabelValues("routed").Inc() })

	decisions := channel.Filter(a, candidates, s.deps.Channels)

	var kept []string
	outcomes := make([]Outcome, 0, len(decisions))
	for _, d := range decisions {
		if !d.Deliver {
			logger.Info("channel suppressed by channel policy", "channel", d.ChannelID, "reason", d.Reason)
			outcomes = append(outcomes, Outcome{Alert: a.Name(), Channel: d.ChannelID, OK: false, Reason: d.Reason})
			continue
		}
		kept = append(kept, d.ChannelID)
	}
	if len(kept) == 0 {
		return outcomes
	}

	s.ensureImage(ctx, a, kept)

	return append(outcomes, s.deliverAll(ctx, a, kept)...)
}

// ensureImage computes the alert's chart image at most once, only when
// at least one kept channel actually wants it and the producer-specific
// pipeline is configured.
func (s *Service) ensureImage(ctx context.Context, a *alert.Alert, channelIDs []string) {
	if a.ImageBytes != nil {
		return
	}

	wantsImage := false
	for _, id := range channelIDs {
		ch, ok := s.deps.Channels[id]
		if ok && channel.WantsImage(ch) {
			wantsImage = true
			break
		}
	}
	if !wantsImage {
		return
	}

	pipeline := s.pipelineFor(a)
	if pipeline == nil {
		return
	}

	start := time.Now()
	png, reason, err := pipeline.Render(ctx, a)
	s.count(s.deps.Metrics != nil, func() { s.deps.Metrics.ImageRenderSeconds.Observe(time.Since(start).Seconds()) })
	if err != nil {
		s.deps.Logger.Warn("image pipeline error", "alertname", a.Name(), "error", err)
		s.count(s.deps.Metrics != nil, func() { s.deps.Metrics.ImageAttemptsTotal.WithLabelValues("error").Inc() })
		return
	}
	if png == nil {
		outcome := "skipped"
		switch {
		case reason == "timeout":
			outcome = "timeout"
		case reason == "empty series":
			outcome = "empty_series"
		case reason == "invalid image":
			outcome = "invalid"
		case strings.HasPrefix(reason, "range query failed"):
			outcome = "query_failed"
		}
		s.count(s.deps.Metrics != nil, func() { s.deps.Metrics.ImageAttemptsTotal.WithLabelValues(outcome).Inc() })
		return
	}

	a.ImageBytes = png
	s.count(s.deps.Metrics != nil, func() { s.deps.Metrics.ImageAttemptsTotal.WithLabelValues("ok").Inc() })
}

func (s *Service) pipelineFor(a *alert.Alert) *imagepipeline.Pipeline {
	switch a.Source() {
	case alert.SourcePrometheus:
		return s.deps.PrometheusImage
	case alert.SourceGrafana:
		return s.deps.GrafanaImage
	default:
		return nil
	}
}

// deliverAll fans out to every kept channel in its own goroutine and
// joins before returning.
func (s *Service) deliverAll(ctx context.Context, a *alert.Alert, channelIDs []string) []Outcome {
	results := make(chan Outcome, len(channelIDs))
	for _, id := range channelIDs {
		go func(channelID string) {
			results <- s.deliver(ctx, a, channelID)
		}(id)
	}

	outcomes := make([]Outcome, 0, len(channelIDs))
	for range channelIDs {
		outcomes = append(outcomes, <-results)
	}
	return outcomes
}

func (s *Service) deliver(ctx context.Context, a *alert.Alert, channelID string) Outcome {
	ch, ok := s.deps.Channels[channelID]
	if !ok {
		return Outcome{Alert: a.Name(), Channel: channelID, OK: false, Reason: "unknown channel"}
	}

	hasImage := len(a.ImageBytes) > 0 && channel.WantsImage(ch)

	rendered, err := s.deps.Templates.Render(ch.Template, a, hasImage)
	if err != nil {
		s.deps.Logger.Error("template render failed", "alertname", a.Name(), "channel", channelID, "error", err)
		s.count(s.deps.Metrics != nil, func() { s.deps.Metrics.TemplateRenderTotal.WithLabelValues("error").Inc() })
		return Outcome{Alert: a.Name(), Channel: channelID, OK: false, Reason: "template render: " + err.Error()}
	}
	s.count(s.deps.Metrics != nil, func() { s.deps.Metrics.TemplateRenderTotal.WithLabelValues("ok").Inc() })

	var result sender.Result
	switch ch.Type {
	case config.ChannelTypeChat:
		var imageBytes []byte
		if hasImage {
			imageBytes = a.ImageBytes
		}
		result = s.deps.ChatSender.Send(ctx, channelID, ch, imageBytes, rendered, s.deps.ProxyEnabled, s.deps.Proxy)
	case config.ChannelTypeWebhook:
		result = s.deps.WebhookSender.Send(ctx, channelID, ch, template.RewriteJSONTimestamps(rendered), s.deps.ProxyEnabled, s.deps.Proxy)
	default:
		result = sender.Result{OK: false, Reason: "unsupported channel type " + string(ch.Type)}
	}

	if !result.OK {
		s.deps.Logger.Error("send failed", "alertname", a.Name(), "channel", channelID, "reason", result.Reason)
	}

	return Outcome{Alert: a.Name(), Channel: channelID, OK: result.OK, Reason: result.Reason, Note: result.Note}
}

// count runs fn only when guard holds; it exists so every call site
// above reads as a single line instead of a three-line nil check.
func (s *Service) count(guard bool, fn func()) {
	if guard {
		fn()
	}
}
