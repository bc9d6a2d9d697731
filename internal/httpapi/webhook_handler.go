package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/vitaliisemenov/alert-router/internal/alertservice"
)

// maxWebhookRequestBytes caps the inbound request body this handler
// will read, guarding against a misbehaving or malicious producer.
const maxWebhookRequestBytes = 5 << 20

// WebhookHandler adapts alertservice.Service to net/http for
// `POST /webhook`.
type WebhookHandler struct {
	svc    *alertservice.Service
	logger *slog.Logger
}

// NewWebhookHandler builds a WebhookHandler over svc.
func NewWebhookHandler(svc *alertservice.Service, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{svc: svc, logger: logger}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookRequestBytes+1))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "ReadFailed")
		return
	}
	if len(body) > maxWebhookRequestBytes {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "PayloadTooLarge")
		return
	}

	outcomes, err := h.svc.HandleWebhook(r.Context(), body)
	if err != nil {
		h.logger.Warn("unrecognized webhook payload", "request_id", GetRequestID(r.Context()), "error", err)
		writeJSONError(w, http.StatusBadRequest, "UnrecognizedPayload")
		return
	}

	if outcomes == nil {
		outcomes = []alertservice.Outcome{}
	}
	writeJSON(w, http.StatusOK, outcomes)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
