package qqbot

import (
	"context"
	"encoding/json"
	"net/http"

	apperror "qqbot-service/internal/error"
	"qqbot-service/internal/logging"
	"qqbot-service/internal/metrics"
	"qqbot-service/internal/storage"

	"go.uber.org/zap"
)

// TokenSource hands out access tokens
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
	Clear()
}

// SequenceSource issues per-message sequence numbers
type SequenceSource interface {
	Next(key string) int64
}

// Requester performs one platform call
type Requester interface {
	Execute(ctx context.Context, token, method, path string, body any) (json.RawMessage, error)
}

// Client exposes the platform send and upload operations
type Client struct {
	tokens     TokenSource
	seq        SequenceSource
	requester  Requester
	mediaCache storage.MediaCache // Can be nil
	markdown   bool
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// Options customise a Client
type Options struct {
	// Markdown sends text as msg_type 2 markdown instead of plain text.
	Markdown   bool
	MediaCache storage.MediaCache
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// NewClient creates a new platform client with injected dependencies
func NewClient(tokens TokenSource, seq SequenceSource, requester Requester, opts Options) *Client {
	return &Client{
		tokens:     tokens,
		seq:        seq,
		requester:  requester,
		mediaCache: opts.MediaCache,
		markdown:   opts.Markdown,
		logger:     logging.OrNop(opts.Logger),
		metrics:    opts.Metrics,
	}
}

// ------------------------------------------------------------------------------------------------------
// ClearToken drops the cached access token
func (c *Client) ClearToken() {
	c.tokens.Clear()
}

// ------------------------------------------------------------------------------------------------------
// GetGatewayURL returns the WebSocket URL for receiving events
func (c *Client) GetGatewayURL(ctx context.Context) (string, error) {
	var resp gatewayResponse
	if err := c.call(ctx, http.MethodGet, "/gateway", nil, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", apperror.NewDecodeError("gateway response has no url", nil)
	}
	return resp.URL, nil
}

// ------------------------------------------------------------------------------------------------------
// nextSeq numbers a reply by the message it answers; proactive sends always use 1
func (c *Client) nextSeq(msgID string) int64 {
	if msgID == "" {
		return 1
	}
	return c.seq.Next(msgID)
}

// ------------------------------------------------------------------------------------------------------
// call obtains a token, executes the request and decodes the result into out. An
// unauthorized answer clears the cached token so the next call fetches a fresh one.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return err
	}

	raw, err := c.requester.Execute(ctx, token, method, path, body)
	if err != nil {
		if apperror.UpstreamStatus(err) == http.StatusUnauthorized {
			c.logger.Warn("Platform rejected access token, clearing cache", zap.String("path", path))
			c.tokens.Clear()
		}
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperror.NewDecodeError("failed to decode response from "+path, err)
	}
	return nil
}
