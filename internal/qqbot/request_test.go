package qqbot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	apperror "qqbot-service/internal/error"
	"qqbot-service/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExecutor_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "QQBot tok-1" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		if r.URL.Path != "/v2/users/u1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		if body["content"] != "hi" {
			t.Errorf("unexpected body %v", body)
		}
		_, _ = w.Write([]byte(`{"id":"m-100","timestamp":"2024-01-01T00:00:00+08:00"}`))
	}))
	defer server.Close()

	m := metrics.New(nil)
	exec := NewExecutor(server.URL+"/", 5*time.Second, nil, m)

	raw, err := exec.Execute(context.Background(), "tok-1", http.MethodPost, "/v2/users/u1/messages", map[string]string{"content": "hi"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var resp MessageResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if resp.ID != "m-100" {
		t.Errorf("ID = %q", resp.ID)
	}

	if got := testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("POST", "/v2/users/{id}/messages", "200")); got != 1 {
		t.Errorf("Expected 1 observed call, got %v", got)
	}
}

func TestExecutor_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantType    apperror.ErrorType
		wantMessage string
		wantCode    int
	}{
		{name: "api error with message", status: 400, body: `{"message":"invalid param","code":11255}`, wantType: apperror.ErrorTypeAPI, wantMessage: "invalid param", wantCode: 11255},
		{name: "api error without message", status: 500, body: `{}`, wantType: apperror.ErrorTypeAPI, wantMessage: "Internal Server Error"},
		{name: "api error with text body", status: 502, body: `bad gateway`, wantType: apperror.ErrorTypeAPI, wantMessage: "bad gateway"},
		{name: "success with html body", status: 200, body: `<html></html>`, wantType: apperror.ErrorTypeDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Tps-trace-ID", "trace-abc")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			exec := NewExecutor(server.URL, 5*time.Second, nil, nil)
			_, err := exec.Execute(context.Background(), "tok", http.MethodPost, "/v2/groups/g1/messages", map[string]string{})

			var appErr *apperror.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("Expected AppError, got %v", err)
			}
			if appErr.Type != tt.wantType {
				t.Fatalf("Type = %s, want %s", appErr.Type, tt.wantType)
			}
			if tt.wantType != apperror.ErrorTypeAPI {
				return
			}
			if appErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", appErr.Message, tt.wantMessage)
			}
			if appErr.Upstream.Status != tt.status || appErr.Upstream.Code != tt.wantCode {
				t.Errorf("Upstream = %+v", appErr.Upstream)
			}
			if appErr.Upstream.TraceID != "trace-abc" {
				t.Errorf("TraceID = %q", appErr.Upstream.TraceID)
			}
		})
	}
}

func TestExecutor_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	exec := NewExecutor(url, time.Second, nil, nil)
	_, err := exec.Execute(context.Background(), "tok", http.MethodGet, "/gateway", nil)
	if !apperror.IsType(err, apperror.ErrorTypeTransport) {
		t.Fatalf("Expected transport error, got %v", err)
	}
}

func TestExecutor_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	exec := NewExecutor(server.URL, time.Second, nil, nil)
	raw, err := exec.Execute(context.Background(), "tok", http.MethodDelete, "/channels/c1/messages/m1", nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if string(raw) != "{}" {
		t.Errorf("raw = %s, want {}", raw)
	}
}

func TestEndpointLabel(t *testing.T) {
	tests := map[string]string{
		"/v2/users/abc/messages": "/v2/users/{id}/messages",
		"/v2/groups/g1/files":    "/v2/groups/{id}/files",
		"/channels/123/messages": "/channels/{id}/messages",
		"/dms/9/messages":        "/dms/{id}/messages",
		"/gateway":               "/gateway",
		"/gateway/bot?shard=1":   "/gateway/bot",
	}
	for in, want := range tests {
		if got := endpointLabel(in); got != want {
			t.Errorf("endpointLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short", in: "abc", n: 5, want: "abc"},
		{name: "ascii", in: "abcdef", n: 3, want: "abc..."},
		{name: "inside multibyte rune", in: "参数错误", n: 4, want: "参..."},
		{name: "on rune boundary", in: "参数错误", n: 6, want: "参数..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.n)
			}
		})
	}
}

func TestExecutor_LongNonJSONErrorKeepsValidUTF8(t *testing.T) {
	body := strings.Repeat("错", 100) // 300 bytes, 256 falls inside a rune
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	exec := NewExecutor(server.URL, time.Second, nil, nil)
	_, err := exec.Execute(context.Background(), "tok", http.MethodPost, "/v2/users/u1/messages", map[string]string{})

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Type != apperror.ErrorTypeAPI {
		t.Fatalf("Expected api error, got %v", err)
	}
	if !utf8.ValidString(appErr.Message) {
		t.Errorf("Message is not valid UTF-8: %q", appErr.Message)
	}
	if want := strings.Repeat("错", 85) + "..."; appErr.Message != want {
		t.Errorf("Message = %q, want 85 runes and an ellipsis", appErr.Message)
	}
}
