package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	apperror "qqbot-service/internal/error"
	"qqbot-service/internal/logging"
	"qqbot-service/internal/metrics"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// URLSource resolves the WebSocket endpoint
type URLSource interface {
	GetGatewayURL(ctx context.Context) (string, error)
}

// TokenSource hands out access tokens
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
	Clear()
}

// Handler receives inbound messages
type Handler interface {
	HandleEvent(ctx context.Context, ev Event)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, ev Event)

func (f HandlerFunc) HandleEvent(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// Options customise a Gateway
type Options struct {
	Intents int
	Dialer  *websocket.Dialer
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Gateway keeps one event connection to the platform. Session state survives between Run
// calls so a later Run resumes instead of identifying again.
type Gateway struct {
	urls    URLSource
	tokens  TokenSource
	handler Handler
	intents int
	dialer  *websocket.Dialer
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	sessionID string
	lastSeq   atomic.Int64
}

// ------------------------------------------------------------------------------------------------------
func New(urls URLSource, tokens TokenSource, handler Handler, opts Options) *Gateway {
	intents := opts.Intents
	if intents == 0 {
		intents = DefaultIntents
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			HandshakeTimeout: 15 * time.Second,
		}
	}
	return &Gateway{
		urls:    urls,
		tokens:  tokens,
		handler: handler,
		intents: intents,
		dialer:  dialer,
		logger:  logging.OrNop(opts.Logger),
		metrics: opts.Metrics,
	}
}

// ------------------------------------------------------------------------------------------------------
func (g *Gateway) SessionID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessionID
}

// ------------------------------------------------------------------------------------------------------
// Run connects, authenticates and dispatches events until the connection ends or ctx is done.
// It never reconnects by itself.
func (g *Gateway) Run(ctx context.Context) error {
	url, err := g.urls.GetGatewayURL(ctx)
	if err != nil {
		return err
	}
	token, err := g.tokens.GetToken(ctx)
	if err != nil {
		return err
	}

	conn, _, err := g.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return apperror.NewTransportError("failed to dial gateway", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	w := &writer{conn: conn}

	var hello payload
	if err := conn.ReadJSON(&hello); err != nil {
		return g.readError(ctx, err)
	}
	if hello.Op != OpHello {
		return apperror.NewDecodeError(fmt.Sprintf("expected hello, got op %d", hello.Op), nil)
	}
	var hd helloData
	if err := json.Unmarshal(hello.D, &hd); err != nil || hd.HeartbeatInterval <= 0 {
		return apperror.NewDecodeError("invalid hello payload", err)
	}

	if err := g.authenticate(w, token); err != nil {
		return err
	}

	go g.heartbeat(w, time.Duration(hd.HeartbeatInterval)*time.Millisecond, stop)

	g.logger.Info("Gateway connected",
		zap.String("url", url),
		zap.Int64("heartbeat_interval_ms", hd.HeartbeatInterval),
	)

	for {
		var p payload
		if err := conn.ReadJSON(&p); err != nil {
			return g.readError(ctx, err)
		}

		switch p.Op {
		case OpDispatch:
			if p.S != nil {
				g.lastSeq.Store(*p.S)
			}
			g.dispatch(ctx, p)
		case OpHeartbeat:
			if err := w.send(payload{Op: OpHeartbeat, D: g.seqData()}); err != nil {
				return apperror.NewTransportError("failed to send heartbeat", err)
			}
		case OpHeartbeatACK:
			g.logger.Debug("Gateway heartbeat acknowledged")
		case OpReconnect:
			g.logger.Info("Gateway requested reconnect")
			return apperror.ErrReconnectRequested
		case OpInvalidSession:
			g.logger.Warn("Gateway session invalidated")
			g.resetSession()
			g.tokens.Clear()
			return apperror.ErrInvalidSession
		default:
			g.logger.Debug("Ignoring gateway payload", zap.Int("op", p.Op))
		}
	}
}

// ------------------------------------------------------------------------------------------------------
// authenticate resumes a known session and identifies otherwise
func (g *Gateway) authenticate(w *writer, token string) error {
	sessionID := g.SessionID()

	var (
		p   payload
		err error
	)
	if sessionID != "" {
		p.Op = OpResume
		p.D, err = json.Marshal(resumeData{
			Token:     "QQBot " + token,
			SessionID: sessionID,
			Seq:       g.lastSeq.Load(),
		})
	} else {
		p.Op = OpIdentify
		p.D, err = json.Marshal(identifyData{
			Token:   "QQBot " + token,
			Intents: g.intents,
			Shard:   [2]int{0, 1},
		})
	}
	if err != nil {
		return apperror.NewInternalError("failed to encode gateway auth", err)
	}

	if err := w.send(p); err != nil {
		return apperror.NewTransportError("failed to send gateway auth", err)
	}
	return nil
}

// ------------------------------------------------------------------------------------------------------
func (g *Gateway) heartbeat(w *writer, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := w.send(payload{Op: OpHeartbeat, D: g.seqData()}); err != nil {
				g.logger.Warn("Failed to send heartbeat", zap.Error(err))
				return
			}
		}
	}
}

// ------------------------------------------------------------------------------------------------------
func (g *Gateway) dispatch(ctx context.Context, p payload) {
	g.metrics.GatewayEvent(p.T)

	switch p.T {
	case EventReady:
		var rd readyData
		if err := json.Unmarshal(p.D, &rd); err != nil {
			g.logger.Warn("Failed to decode READY", zap.Error(err))
			return
		}
		g.mu.Lock()
		g.sessionID = rd.SessionID
		g.mu.Unlock()
		g.logger.Info("Gateway ready",
			zap.String("session_id", rd.SessionID),
			zap.String("bot", rd.User.Username),
		)
		return
	case EventResumed:
		g.logger.Info("Gateway session resumed")
		return
	}

	ev, ok, err := parseEvent(p.T, p.D)
	if err != nil {
		g.logger.Warn("Failed to decode gateway event", zap.String("type", p.T), zap.Error(err))
		return
	}
	if !ok {
		g.logger.Debug("Ignoring gateway event", zap.String("type", p.T))
		return
	}

	g.handler.HandleEvent(ctx, ev)
}

// ------------------------------------------------------------------------------------------------------
func (g *Gateway) seqData() json.RawMessage {
	seq := g.lastSeq.Load()
	if seq == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(fmt.Sprintf("%d", seq))
}

// ------------------------------------------------------------------------------------------------------
func (g *Gateway) resetSession() {
	g.mu.Lock()
	g.sessionID = ""
	g.mu.Unlock()
	g.lastSeq.Store(0)
}

// ------------------------------------------------------------------------------------------------------
func (g *Gateway) readError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %v", apperror.ErrGatewayClosed, err)
}

// writer serializes writes; a websocket connection allows one concurrent writer.
type writer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *writer) send(p payload) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.conn.WriteJSON(p)
}
