package alertservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/alert-router/internal/config"
	"github.com/vitaliisemenov/alert-router/internal/dedup"
	"github.com/vitaliisemenov/alert-router/internal/imagepipeline"
	"github.com/vitaliisemenov/alert-router/internal/metrics"
	"github.com/vitaliisemenov/alert-router/internal/routing"
	"github.com/vitaliisemenov/alert-router/internal/sender"
	"github.com/vitaliisemenov/alert-router/internal/template"
)

func newTestEngine(t *testing.T) *template.Engine {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat_default.tmpl"), []byte("[{{.Status}}] {{.Labels.alertname}}"), 0o644))
	engine, err := template.NewEngine(dir, 8)
	require.NoError(t, err)
	return engine
}

func newTestRouter(t *testing.T, sendTo ...string) *routing.Router {
	t.Helper()
	r, err := routing.NewRouter([]routing.Rule{{Default: true, SendTo: sendTo}})
	require.NoError(t, err)
	return r
}

func noopDedup(t *testing.T) *dedup.Cache {
	t.Helper()
	c, err := dedup.New(dedup.Config{Enabled: false}, nil)
	require.NoError(t, err)
	return c
}

func baseDeps(t *testing.T, router *routing.Router, d *dedup.Cache, channels map[string]config.Channel) Deps {
	t.Helper()
	reg := metrics.NewRegistry("alert_router_test_"+t.Name(), prometheus.NewRegistry())
	return Deps{
		Metrics:       reg,
		Dedup:         d,
		Router:        router,
		Channels:      channels,
		Templates:     newTestEngine(t),
		ChatSender:    sender.NewChatSender(reg, nil),
		WebhookSender: sender.NewWebhookSender(reg, nil),
	}
}

func prometheusPayload(generatorURL string) []byte {
	body := map[string]any{
		"version": "4",
		"status":  "firing",
		"alerts": []map[string]any{
			{
				"status":       "firing",
				"labels":       map[string]string{"alertname": "HighCPU"},
				"startsAt":     "2024-01-15T10:00:00Z",
				"endsAt":       "0001-01-01T00:00:00Z",
				"generatorURL": generatorURL,
			},
		},
	}
	b, _ := json.Marshal(body)
	return b
}

func grafanaResolvedPayload() []byte {
	body := map[string]any{
		"orgId":   1,
		"version": "1",
		"alerts": []map[string]any{
			{
				"status":   "resolved",
				"labels":   map[string]string{"alertname": "DiskFull"},
				"startsAt": "2024-01-15T10:00:00Z",
				"endsAt":   "2024-01-15T11:00:00Z",
			},
		},
	}
	b, _ := json.Marshal(body)
	return b
}

// S1: a Prometheus firing alert whose kept channel wants an image gets
// exactly one successful sendPhoto call.
func TestHandleWebhook_FiringAlertWithImage_SendsPhoto(t *testing.T) {
	var photoCalls, messageCalls int
	chatSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/sendPhoto":
			photoCalls++
			require.NoError(t, r.ParseMultipartForm(1<<20))
			file, _, err := r.FormFile("photo")
			require.NoError(t, err)
			defer file.Close()
			buf := make([]byte, 8)
			_, _ = file.Read(buf)
			assert.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, buf)
		case "/botTOKEN/sendMessage":
			messageCalls++
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer chatSrv.Close()

	metricsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":{"result":[
			{"metric":{"instance":"h1"},"values":[[1,"1"],[2,"5"]]}
		]}}`))
	}))
	defer metricsSrv.Close()

	channels := map[string]config.Channel{
		"ops": {
			Type:         config.ChannelTypeChat,
			BotToken:     "TOKEN",
			ChatID:       "123",
			BaseURL:      chatSrv.URL,
			Template:     "chat_default",
			ImageEnabled: true,
		},
	}
	deps := baseDeps(t, newTestRouter(t, "ops"), noopDedup(t), channels)
	deps.PrometheusImage = imagepipeline.New(imagepipeline.Config{
		Enabled: true, PrometheusURL: metricsSrv.URL, TimeoutSeconds: 5, LookbackMinutes: 60, StepSeconds: 60, MaxSeries: 5,
	}, metricsSrv.Client(), nil)

	svc := New(deps)
	outcomes, err := svc.HandleWebhook(context.Background(), prometheusPayload("http://ignored/graph?g0.expr=up"))
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].OK)
	assert.Equal(t, "ops", outcomes[0].Channel)
	assert.Equal(t, 1, photoCalls)
	assert.Equal(t, 0, messageCalls)
}

// S2: a resolved Grafana alert routed to a channel with
// send_resolved=false never reaches the chat API and is reported with
// ok:false, reason:"send_resolved=false".
func TestHandleWebhook_ResolvedAlertDroppedByChannelPolicy(t *testing.T) {
	var calls int
	chatSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer chatSrv.Close()

	sendResolved := false
	channels := map[string]config.Channel{
		"ops": {
			Type:         config.ChannelTypeChat,
			BotToken:     "TOKEN",
			ChatID:       "123",
			BaseURL:      chatSrv.URL,
			Template:     "chat_default",
			SendResolved: &sendResolved,
		},
	}
	deps := baseDeps(t, newTestRouter(t, "ops"), noopDedup(t), channels)
	svc := New(deps)

	outcomes, err := svc.HandleWebhook(context.Background(), grafanaResolvedPayload())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].OK)
	assert.Equal(t, "send_resolved=false", outcomes[0].Reason)
	assert.Equal(t, 0, calls, "no outbound call should have been made")
}

// S3: a sendMessage HTML-parse failure triggers exactly one fallback
// retry with parse_mode omitted.
func TestHandleWebhook_ParseEntitiesFallback_RetriesOnce(t *testing.T) {
	var calls int
	chatSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: can't parse entities"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer chatSrv.Close()

	channels := map[string]config.Channel{
		"ops": {
			Type:     config.ChannelTypeChat,
			BotToken: "TOKEN",
			ChatID:   "123",
			BaseURL:  chatSrv.URL,
			Template: "chat_default",
		},
	}
	deps := baseDeps(t, newTestRouter(t, "ops"), noopDedup(t), channels)
	svc := New(deps)

	outcomes, err := svc.HandleWebhook(context.Background(), prometheusPayload(""))
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].OK)
	assert.Equal(t, "html-fallback", outcomes[0].Note)
	assert.Equal(t, 2, calls)
}

// S5: a metrics backend that answers with an HTML page instead of a
// range-query result yields no image, so delivery falls back to
// sendMessage; no sendPhoto call is ever attempted.
func TestHandleWebhook_InvalidImage_FallsBackToSendMessage(t *testing.T) {
	var photoCalls, messageCalls int
	chatSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/sendPhoto":
			photoCalls++
		case "/botTOKEN/sendMessage":
			messageCalls++
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer chatSrv.Close()

	metricsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>error</html>`))
	}))
	defer metricsSrv.Close()

	channels := map[string]config.Channel{
		"ops": {
			Type:         config.ChannelTypeChat,
			BotToken:     "TOKEN",
			ChatID:       "123",
			BaseURL:      chatSrv.URL,
			Template:     "chat_default",
			ImageEnabled: true,
		},
	}
	deps := baseDeps(t, newTestRouter(t, "ops"), noopDedup(t), channels)
	deps.PrometheusImage = imagepipeline.New(imagepipeline.Config{
		Enabled: true, PrometheusURL: metricsSrv.URL, TimeoutSeconds: 5, LookbackMinutes: 60, StepSeconds: 60, MaxSeries: 5,
	}, metricsSrv.Client(), nil)

	svc := New(deps)
	outcomes, err := svc.HandleWebhook(context.Background(), prometheusPayload("http://ignored/graph?g0.expr=up"))
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].OK)
	assert.Equal(t, 0, photoCalls)
	assert.Equal(t, 1, messageCalls)
}

// A build-system alert admitted once and suppressed on its second
// occurrence within the dedup window produces an outcome tuple only
// for the first delivery.
func TestHandleWebhook_DedupSuppressesSecondOccurrence(t *testing.T) {
	var calls int
	chatSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer chatSrv.Close()

	channels := map[string]config.Channel{
		"ops": {
			Type:     config.ChannelTypeChat,
			BotToken: "TOKEN",
			ChatID:   "123",
			BaseURL:  chatSrv.URL,
			Template: "chat_default",
		},
	}
	d, err := dedup.New(dedup.Config{Enabled: true, TTL: time.Hour, ReceiverContains: []string{"jenkins"}}, nil)
	require.NoError(t, err)

	deps := baseDeps(t, newTestRouter(t, "ops"), d, channels)
	svc := New(deps)

	body := map[string]any{
		"version": "4",
		"status":  "firing",
		"receiver": "jenkins-ci",
		"alerts": []map[string]any{
			{
				"status":   "firing",
				"labels":   map[string]string{"alertname": "BuildFailed"},
				"startsAt": "2024-01-15T10:00:00Z",
				"endsAt":   "0001-01-01T00:00:00Z",
			},
		},
	}
	payload, _ := json.Marshal(body)

	first, err := svc.HandleWebhook(context.Background(), payload)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, first[0].OK)

	second, err := svc.HandleWebhook(context.Background(), payload)
	require.NoError(t, err)
	assert.Len(t, second, 0, "suppressed alerts produce no outcome tuple")
	assert.Equal(t, 1, calls)
}

// S6: an envelope that matches no known producer shape is reported as
// an error, for the HTTP layer to map to 400.
func TestHandleWebhook_UnrecognizedPayload_ReturnsError(t *testing.T) {
	deps := baseDeps(t, newTestRouter(t, "ops"), noopDedup(t), map[string]config.Channel{})
	svc := New(deps)

	outcomes, err := svc.HandleWebhook(context.Background(), []byte(`{"hello":"world"}`))
	assert.Error(t, err)
	assert.Nil(t, outcomes)
}

// An alert that matches no routing rule produces no outcome tuples.
func TestHandleWebhook_UnroutedAlert_ProducesNoOutcomes(t *testing.T) {
	router, err := routing.NewRouter([]routing.Rule{{Match: map[string]string{"alertname": "SomethingElse"}, SendTo: []string{"ops"}}})
	require.NoError(t, err)

	deps := baseDeps(t, router, noopDedup(t), map[string]config.Channel{
		"ops": {Type: config.ChannelTypeChat, BotToken: "x", ChatID: "y", Template: "chat_default"},
	})
	svc := New(deps)

	outcomes, err := svc.HandleWebhook(context.Background(), prometheusPayload(""))
	require.NoError(t, err)
	assert.Len(t, outcomes, 0)
}
