package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/crontab/internal/executor"
)

const maxResponseLog = 512

// HTTPRequestPayload represents the payload for HTTP request jobs
type HTTPRequestPayload struct {
	URL        string            `json:"url"`
	Method     string            `json:"method"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
	TimeoutSec int64             `json:"timeout_sec"`
}

// HTTPRequestHandler calls a URL and fails on a 4xx or 5xx response
type HTTPRequestHandler struct {
	logger     *zap.Logger
	httpClient *http.Client
}

// NewHTTPRequestHandler creates a new HTTP request handler
func NewHTTPRequestHandler(logger *zap.Logger) *HTTPRequestHandler {
	return &HTTPRequestHandler{
		logger: logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fire performs the HTTP request
func (h *HTTPRequestHandler) Fire(ctx context.Context, p executor.Payload) error {
	var payload HTTPRequestPayload
	if err := p.Decode(&payload); err != nil {
		return err
	}
	if payload.URL == "" {
		return fmt.Errorf("url is required")
	}
	if payload.Method == "" {
		payload.Method = http.MethodGet
	}

	if d := timeout(payload.TimeoutSec); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	var body io.Reader
	if payload.Body != "" {
		body = strings.NewReader(payload.Body)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(payload.Method), payload.URL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range payload.Headers {
		req.Header.Add(key, value)
	}

	h.logger.Info("Executing HTTP request",
		zap.String("method", req.Method),
		zap.String("url", payload.URL))

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseLog))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	h.logger.Debug("HTTP request finished",
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", data))
	return nil
}
