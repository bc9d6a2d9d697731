package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vitaliisemenov/alert-router/internal/alertservice"
)

// NewRouter builds the gateway's complete HTTP surface: POST /webhook,
// GET /healthz and GET /metrics, wrapped in recovery/request-id/logging
// middleware applied around the whole mux.
func NewRouter(svc *alertservice.Service, reg prometheus.Gatherer, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := mux.NewRouter()
	r.Handle("/webhook", NewWebhookHandler(svc, logger)).Methods(http.MethodPost)
	r.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet)

	if gatherer, ok := reg.(*prometheus.Registry); ok {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	} else {
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	return chain(r, recoveryMiddleware(logger), requestIDMiddleware(), loggingMiddleware(logger))
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
