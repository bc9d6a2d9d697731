package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vitaliisemenov/alert-router/internal/config"
	"github.com/vitaliisemenov/alert-router/internal/metrics"
)

const (
	defaultChatBaseURL = "https://api.telegram.org"

	maxMessageChars = 4096
	maxCaptionChars = 1024
	truncationMark  = "…"

	maxChatResponseBytes = 1 << 20
)

// ChatSender delivers a rendered alert to a Telegram-shaped bot API:
// sendPhoto when an image is attached, sendMessage otherwise, with
// parse-entities and photo-validity fallback retries.
type ChatSender struct {
	clients  *clientCache
	limiters *limiterCache
	metrics  *metrics.Registry
	logger   *slog.Logger
}

// NewChatSender builds a ChatSender. reg may be nil in tests that don't
// assert on metrics.
func NewChatSender(reg *metrics.Registry, logger *slog.Logger) *ChatSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatSender{
		clients:  newClientCache(),
		limiters: newLimiterCache(),
		metrics:  reg,
		logger:   logger.With("component", "chat_sender"),
	}
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send delivers rendered to channelID per ch's settings. imageBytes is
// the image to attach, already validated by the image pipeline; pass
// nil to force a sendMessage even when the alert carries an image the
// caller decided this channel shouldn't receive.
func (s *ChatSender) Send(ctx context.Context, channelID string, ch config.Channel, imageBytes []byte, rendered string, globalProxyEnabled bool, globalProxy config.ProxyConfig) Result {
	start := time.Now()
	result := s.send(ctx, channelID, ch, imageBytes, rendered, globalProxyEnabled, globalProxy)
	s.record(ch, result, time.Since(start))
	return result
}

func (s *ChatSender) send(ctx context.Context, channelID string, ch config.Channel, imageBytes []byte, rendered string, globalProxyEnabled bool, globalProxy config.ProxyConfig) Result {
	proxyURL := resolveProxyURL(ch, globalProxyEnabled, globalProxy)
	entry, err := s.clients.get(channelID, ch.TimeoutSeconds, proxyURL)
	if err != nil {
		return Result{OK: false, Reason: fmt.Sprintf("build http client: %v", err)}
	}

	limiter := s.limiters.get(channelID)
	if err := limiter.Wait(ctx); err != nil {
		return Result{OK: false, Reason: fmt.Sprintf("rate limiter: %v", err)}
	}

	baseURL := ch.BaseURL
	if baseURL == "" {
		baseURL = defaultChatBaseURL
	}

	reqCtx, cancel := context.WithTimeout(ctx, entry.timeout)
	defer cancel()

	sentPhoto := len(imageBytes) > 0

	var status int
	var resp apiResponse
	if sentPhoto {
		caption := truncate(rendered, maxCaptionChars)
		status, resp, err = s.sendPhoto(reqCtx, entry.client, baseURL, ch, caption, imageBytes, true)
	} else {
		text := truncate(rendered, maxMessageChars)
		status, resp, err = s.sendMessage(reqCtx, entry.client, baseURL, ch, text, true)
	}
	if err != nil {
		return Result{OK: false, Reason: err.Error()}
	}
	if success(status) {
		return Result{OK: true}
	}

	if status == http.StatusBadRequest {
		if isParseEntitiesError(resp.Description) {
			text := truncate(rendered, maxMessageChars)
			status2, resp2, err2 := s.sendMessage(reqCtx, entry.client, baseURL, ch, text, false)
			return finalize(status2, resp2, err2, "html-fallback")
		}
		if sentPhoto && isPhotoError(resp.Description) {
			text := truncate(rendered, maxMessageChars)
			status2, resp2, err2 := s.sendMessage(reqCtx, entry.client, baseURL, ch, text, true)
			return finalize(status2, resp2, err2, "photo-fallback")
		}
	}
	return Result{OK: false, Reason: describeFailure(status, resp)}
}

func finalize(status int, resp apiResponse, err error, note string) Result {
	if err != nil {
		return Result{OK: false, Reason: err.Error()}
	}
	if success(status) {
		return Result{OK: true, Note: note}
	}
	return Result{OK: false, Reason: describeFailure(status, resp)}
}

func success(status int) bool {
	return status >= 200 && status < 300
}

func describeFailure(status int, resp apiResponse) string {
	if resp.Description != "" {
		return resp.Description
	}
	return fmt.Sprintf("HTTP %d", status)
}

func (s *ChatSender) sendPhoto(ctx context.Context, client *http.Client, baseURL string, ch config.Channel, caption string, photo []byte, parseMode bool) (int, apiResponse, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("chat_id", ch.ChatID); err != nil {
		return 0, apiResponse{}, fmt.Errorf("write chat_id field: %w", err)
	}
	if err := w.WriteField("caption", caption); err != nil {
		return 0, apiResponse{}, fmt.Errorf("write caption field: %w", err)
	}
	if parseMode {
		if err := w.WriteField("parse_mode", "HTML"); err != nil {
			return 0, apiResponse{}, fmt.Errorf("write parse_mode field: %w", err)
		}
	}
	part, err := w.CreateFormFile("photo", "chart.png")
	if err != nil {
		return 0, apiResponse{}, fmt.Errorf("create photo part: %w", err)
	}
	if _, err := part.Write(photo); err != nil {
		return 0, apiResponse{}, fmt.Errorf("write photo bytes: %w", err)
	}
	if err := w.Close(); err != nil {
		return 0, apiResponse{}, fmt.Errorf("close multipart writer: %w", err)
	}

	url := baseURL + "/bot" + ch.BotToken + "/sendPhoto"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return 0, apiResponse{}, fmt.Errorf("build sendPhoto request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return doAPICall(client, req)
}

func (s *ChatSender) sendMessage(ctx context.Context, client *http.Client, baseURL string, ch config.Channel, text string, parseMode bool) (int, apiResponse, error) {
	payload := map[string]string{
		"chat_id": ch.ChatID,
		"text":    text,
	}
	if parseMode {
		payload["parse_mode"] = "HTML"
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0, apiResponse{}, fmt.Errorf("marshal sendMessage payload: %w", err)
	}

	url := baseURL + "/bot" + ch.BotToken + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return 0, apiResponse{}, fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return doAPICall(client, req)
}

func doAPICall(client *http.Client, req *http.Request) (int, apiResponse, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, apiResponse{}, fmt.Errorf("chat api request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxChatResponseBytes))
	if err != nil {
		return resp.StatusCode, apiResponse{}, fmt.Errorf("read chat api response: %w", err)
	}

	var parsed apiResponse
	_ = json.Unmarshal(body, &parsed) // non-JSON body leaves parsed.Description empty, not fatal
	return resp.StatusCode, parsed, nil
}

func isParseEntitiesError(description string) bool {
	d := strings.ToLower(description)
	return strings.Contains(d, "can't parse entities") || strings.Contains(d, "can't find end of") || strings.Contains(d, "unsupported start tag")
}

func isPhotoError(description string) bool {
	d := strings.ToLower(description)
	return strings.Contains(d, "photo") || strings.Contains(d, "wrong file identifier") || strings.Contains(d, "failed to get http url content")
}

// truncate caps s at maxChars runes, replacing the final rune with the
// ellipsis marker when it overflows, per the 4096/1024-byte chat API
// limits in the resource-bounds section.
func truncate(s string, maxChars int) string {
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxChars-1]) + truncationMark
}

func (s *ChatSender) record(ch config.Channel, result Result, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if !result.OK {
		outcome = "failed"
	}
	s.metrics.SendTotal.WithLabelValues("chat", outcome).Inc()
	s.metrics.SendSeconds.WithLabelValues("chat").Observe(elapsed.Seconds())
}
