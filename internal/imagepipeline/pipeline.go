package imagepipeline

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/vitaliisemenov/alert-router/internal/alert"
)

// Config mirrors config.ImageConfig without importing the config
// package, keeping this package's dependency graph acyclic and
// independently testable.
type Config struct {
	Enabled         bool
	PrometheusURL   string
	LookbackMinutes int
	StepSeconds     int
	TimeoutSeconds  int
	MaxSeries       int
}

// Pipeline renders trend-graph PNGs for alerts. One Pipeline instance
// is constructed per producer (Prometheus, Grafana) since each carries
// its own metrics-backend URL and render tuning.
type Pipeline struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// New constructs a Pipeline. client is the shared pooled HTTP client
// from internal/httpclient.
func New(cfg Config, client *http.Client, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, client: client, logger: logger}
}

// Render produces PNG bytes for a, or (nil, reason, nil) when no image
// could be produced for any of the pipeline's defined, non-fatal reasons
// (disabled, no query, empty series, invalid image, query failed,
// timeout); reason is a short description of which one. The
// orchestrator proceeds with text-only delivery whenever Render returns
// a nil image.
func (p *Pipeline) Render(ctx context.Context, a *alert.Alert) ([]byte, string, error) {
	if !p.cfg.Enabled {
		return nil, "image pipeline disabled", nil
	}

	expr, authority, err := ExtractQuery(a)
	if err != nil {
		return nil, err.Error(), nil
	}

	baseURL := p.cfg.PrometheusURL
	if baseURL == "" {
		baseURL = authority
	}

	timeout := time.Duration(p.cfg.TimeoutSeconds) * time.Second
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	end := time.Now()
	start := end.Add(-time.Duration(p.cfg.LookbackMinutes) * time.Minute)

	allSeries, err := fetchRangeQuery(queryCtx, p.client, baseURL, expr, start.Unix(), end.Unix(), p.cfg.StepSeconds, p.cfg.MaxSeries)
	if err != nil {
		if queryCtx.Err() != nil {
			return nil, "timeout", nil
		}
		return nil, err.Error(), nil
	}
	if len(allSeries) == 0 {
		return nil, "empty series", nil
	}

	png, err := RasterizePNG(allSeries)
	if err != nil {
		return nil, "rasterize error: " + err.Error(), nil
	}
	if !ValidImage(png) {
		return nil, "invalid image", nil
	}

	return png, "", nil
}
