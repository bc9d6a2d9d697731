package sender

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vitaliisemenov/alert-router/internal/config"
	"github.com/vitaliisemenov/alert-router/internal/metrics"
)

const maxWebhookResponseBytes = 64 << 10

// WebhookSender POSTs the rendered template body, taken verbatim as the
// JSON request body, to the channel's configured URL. There is no
// retry: a single non-2xx response is a send failure.
type WebhookSender struct {
	clients *clientCache
	metrics *metrics.Registry
	logger  *slog.Logger
}

func NewWebhookSender(reg *metrics.Registry, logger *slog.Logger) *WebhookSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookSender{
		clients: newClientCache(),
		metrics: reg,
		logger:  logger.With("component", "webhook_sender"),
	}
}

func (s *WebhookSender) Send(ctx context.Context, channelID string, ch config.Channel, rendered string, globalProxyEnabled bool, globalProxy config.ProxyConfig) Result {
	start := time.Now()
	result := s.send(ctx, channelID, ch, rendered, globalProxyEnabled, globalProxy)
	s.record(result, time.Since(start))
	return result
}

func (s *WebhookSender) send(ctx context.Context, channelID string, ch config.Channel, rendered string, globalProxyEnabled bool, globalProxy config.ProxyConfig) Result {
	proxyURL := resolveProxyURL(ch, globalProxyEnabled, globalProxy)
	entry, err := s.clients.get(channelID, ch.TimeoutSeconds, proxyURL)
	if err != nil {
		return Result{OK: false, Reason: fmt.Sprintf("build http client: %v", err)}
	}

	reqCtx, cancel := context.WithTimeout(ctx, entry.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, ch.URL, strings.NewReader(rendered))
	if err != nil {
		return Result{OK: false, Reason: fmt.Sprintf("build webhook request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := entry.client.Do(req)
	if err != nil {
		return Result{OK: false, Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxWebhookResponseBytes))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Result{OK: true}
	}
	return Result{OK: false, Reason: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
}

func (s *WebhookSender) record(result Result, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if !result.OK {
		outcome = "failed"
	}
	s.metrics.SendTotal.WithLabelValues("webhook", outcome).Inc()
	s.metrics.SendSeconds.WithLabelValues("webhook").Observe(elapsed.Seconds())
}
