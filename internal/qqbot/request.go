package qqbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	apperror "qqbot-service/internal/error"
	"qqbot-service/internal/logging"
	"qqbot-service/internal/metrics"

	"go.uber.org/zap"
)

// DefaultBaseURL is the platform API endpoint.
const DefaultBaseURL = "https://api.sgroup.qq.com"

// Executor issues single authenticated calls to the platform API.
type Executor struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewExecutor creates an executor for baseURL
func NewExecutor(baseURL string, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Executor {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Executor{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logging.OrNop(logger),
		metrics: m,
	}
}

type platformError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Execute sends one request and returns the JSON response body. Failures are a TransportError,
// a DecodeError or an ApiError; nothing is retried.
func (e *Executor) Execute(ctx context.Context, token, method, path string, body any) (json.RawMessage, error) {
	start := time.Now()
	endpoint := endpointLabel(path)

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, apperror.NewTransportError("failed to marshal request", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, bodyReader)
	if err != nil {
		return nil, apperror.NewTransportError("failed to create request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("QQBot %s", token))

	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.metrics.ObserveAPI(method, endpoint, "transport_error", time.Since(start))
		e.logger.Warn("Platform request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, apperror.NewTransportError(fmt.Sprintf("request to %s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		e.metrics.ObserveAPI(method, endpoint, "transport_error", time.Since(start))
		return nil, apperror.NewTransportError("failed to read response body", err)
	}

	status := strconv.Itoa(resp.StatusCode)
	e.metrics.ObserveAPI(method, endpoint, status, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(resp, bodyBytes)
		e.logger.Warn("Platform returned error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("trace_id", apiErr.Upstream.TraceID),
			zap.String("message", apiErr.Message),
		)
		return nil, apiErr
	}

	if len(bytes.TrimSpace(bodyBytes)) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(bodyBytes) {
		return nil, apperror.NewDecodeError(
			fmt.Sprintf("response from %s %s is not JSON: %s", method, path, truncate(string(bodyBytes), 256)),
			nil,
		)
	}

	e.logger.Debug("Platform request succeeded",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	return json.RawMessage(bodyBytes), nil
}

// ------------------------------------------------------------------------------------------------------
// newAPIError builds an ApiError from a non-2xx response. A body that is not JSON still
// yields an ApiError carrying the raw text.
func newAPIError(resp *http.Response, bodyBytes []byte) *apperror.AppError {
	traceID := resp.Header.Get("X-Tps-trace-ID")

	var pe platformError
	if err := json.Unmarshal(bodyBytes, &pe); err != nil {
		msg := strings.TrimSpace(string(bodyBytes))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return apperror.NewAPIError(truncate(msg, 256), resp.StatusCode, 0, traceID)
	}

	msg := pe.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return apperror.NewAPIError(msg, resp.StatusCode, pe.Code, traceID)
}

// ------------------------------------------------------------------------------------------------------
// endpointLabel replaces target identifiers in path so metric labels stay bounded
func endpointLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		switch parts[i-1] {
		case "users", "groups", "channels", "dms":
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
