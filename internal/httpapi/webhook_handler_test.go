package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/alert-router/internal/alertservice"
	"github.com/vitaliisemenov/alert-router/internal/config"
	"github.com/vitaliisemenov/alert-router/internal/dedup"
	"github.com/vitaliisemenov/alert-router/internal/metrics"
	"github.com/vitaliisemenov/alert-router/internal/routing"
	"github.com/vitaliisemenov/alert-router/internal/sender"
	"github.com/vitaliisemenov/alert-router/internal/template"
)

func newTestService(t *testing.T) *alertservice.Service {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat_default.tmpl"), []byte("[{{.Status}}] {{.Labels.alertname}}"), 0o644))
	engine, err := template.NewEngine(dir, 8)
	require.NoError(t, err)

	router, err := routing.NewRouter([]routing.Rule{{Default: true, SendTo: []string{"ops"}}})
	require.NoError(t, err)

	d, err := dedup.New(dedup.Config{Enabled: false}, nil)
	require.NoError(t, err)

	reg := metrics.NewRegistry("alert_router_test_"+t.Name(), prometheus.NewRegistry())

	return alertservice.New(alertservice.Deps{
		Metrics:   reg,
		Dedup:     d,
		Router:    router,
		Templates: engine,
		Channels: map[string]config.Channel{
			"ops": {Type: config.ChannelTypeWebhook, URL: "http://127.0.0.1:0/unreachable", Template: "chat_default"},
		},
		ChatSender:    sender.NewChatSender(reg, nil),
		WebhookSender: sender.NewWebhookSender(reg, nil),
	})
}

func TestWebhookHandler_ValidPayloadReturns200WithOutcomes(t *testing.T) {
	svc := newTestService(t)
	h := NewWebhookHandler(svc, nil)

	payload := `{"status":"firing","alerts":[{"status":"firing","labels":{"alertname":"X"},"startsAt":"2024-01-15T10:00:00Z"}]}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload)).WithContext(context.Background())
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var outcomes []alertservice.Outcome
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &outcomes))
	require.Len(t, outcomes, 1)
	assert.Equal(t, "ops", outcomes[0].Channel)
}

func TestWebhookHandler_UnrecognizedPayloadReturns400(t *testing.T) {
	svc := newTestService(t)
	h := NewWebhookHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"hello":"world"}`))
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "UnrecognizedPayload", body["error"])
}

func TestWebhookHandler_OversizedPayloadReturns413(t *testing.T) {
	svc := newTestService(t)
	h := NewWebhookHandler(svc, nil)

	huge := make([]byte, maxWebhookRequestBytes+1024)
	for i := range huge {
		huge[i] = 'a'
	}
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(huge))
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}
