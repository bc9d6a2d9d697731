package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vitaliisemenov/alert-router/internal/alertservice"
	"github.com/vitaliisemenov/alert-router/internal/config"
	"github.com/vitaliisemenov/alert-router/internal/dedup"
	"github.com/vitaliisemenov/alert-router/internal/httpapi"
	"github.com/vitaliisemenov/alert-router/internal/httpclient"
	"github.com/vitaliisemenov/alert-router/internal/imagepipeline"
	"github.com/vitaliisemenov/alert-router/internal/logging"
	"github.com/vitaliisemenov/alert-router/internal/metrics"
	"github.com/vitaliisemenov/alert-router/internal/routing"
	"github.com/vitaliisemenov/alert-router/internal/sender"
	"github.com/vitaliisemenov/alert-router/internal/template"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(config.ConfigFilePath(configFile, os.LookupEnv))
	},
}

func runServe(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	metricsRegistry := metrics.NewRegistry("alert_router", reg)

	router, err := routing.NewRouter(cfg.Routing)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	dedupCache, err := dedup.New(dedup.Config{
		Enabled:          cfg.JenkinsDedup.Enabled,
		TTL:              time.Duration(cfg.JenkinsDedup.TTLSeconds) * time.Second,
		ClearOnResolved:  cfg.JenkinsDedup.ClearOnResolved,
		ReceiverContains: cfg.JenkinsDedup.ReceiverContains,
		AlertnamePattern: cfg.JenkinsDedup.AlertnamePattern,
	}, logger)
	if err != nil {
		return fmt.Errorf("build dedup cache: %w", err)
	}
	dedupCache.Start(context.Background(), time.Minute)
	defer dedupCache.Stop()

	promImageClient, err := httpclient.New(time.Duration(cfg.PrometheusImage.TimeoutSeconds)*time.Second, resolveProxy(cfg))
	if err != nil {
		return fmt.Errorf("build prometheus image client: %w", err)
	}
	grafanaImageClient, err := httpclient.New(time.Duration(cfg.GrafanaImage.TimeoutSeconds)*time.Second, resolveProxy(cfg))
	if err != nil {
		return fmt.Errorf("build grafana image client: %w", err)
	}

	promImage := imagepipeline.New(imagepipeline.Config{
		Enabled:         cfg.PrometheusImage.Enabled,
		PrometheusURL:   cfg.PrometheusImage.PrometheusURL,
		LookbackMinutes: cfg.PrometheusImage.LookbackMinutes,
		StepSeconds:     cfg.PrometheusImage.StepSeconds,
		TimeoutSeconds:  cfg.PrometheusImage.TimeoutSeconds,
		MaxSeries:       cfg.PrometheusImage.MaxSeries,
	}, promImageClient, logger)

	grafanaImage := imagepipeline.New(imagepipeline.Config{
		Enabled:         cfg.GrafanaImage.Enabled,
		PrometheusURL:   cfg.GrafanaImage.PrometheusURL,
		LookbackMinutes: cfg.GrafanaImage.LookbackMinutes,
		StepSeconds:     cfg.GrafanaImage.StepSeconds,
		TimeoutSeconds:  cfg.GrafanaImage.TimeoutSeconds,
		MaxSeries:       cfg.GrafanaImage.MaxSeries,
	}, grafanaImageClient, logger)

	templates, err := template.NewEngine(cfg.TemplatesDir, cfg.TemplateCacheSize)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	svc := alertservice.New(alertservice.Deps{
		Logger:          logger,
		Metrics:         metricsRegistry,
		Dedup:           dedupCache,
		Router:          router,
		Channels:        cfg.Channels,
		PrometheusImage: promImage,
		GrafanaImage:    grafanaImage,
		Templates:       templates,
		ChatSender:      sender.NewChatSender(metricsRegistry, logger),
		WebhookSender:   sender.NewWebhookSender(metricsRegistry, logger),
		ProxyEnabled:    cfg.ProxyEnabled,
		Proxy:           cfg.Proxy,
	})

	handler := httpapi.NewRouter(svc, reg, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("http server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

func resolveProxy(cfg *config.Config) string {
	if !cfg.ProxyEnabled {
		return ""
	}
	switch {
	case cfg.Proxy.SOCKS5 != "":
		return cfg.Proxy.SOCKS5
	case cfg.Proxy.HTTPS != "":
		return cfg.Proxy.HTTPS
	default:
		return cfg.Proxy.HTTP
	}
}
