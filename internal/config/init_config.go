package config

import (
	"fmt"
	"net/http"
	"time"

	"qqbot-service/internal/api"
	"qqbot-service/internal/api/handlers"
	"qqbot-service/internal/gateway"
	"qqbot-service/internal/logging"
	"qqbot-service/internal/metrics"
	"qqbot-service/internal/qqbot"
	"qqbot-service/internal/sequence"
	"qqbot-service/internal/service"
	"qqbot-service/internal/storage"
	"qqbot-service/internal/token"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// ------------------------------------------------------------------------------------------------------
func (c *Config) NewLogger() (*zap.Logger, error) {
	if err := logging.Init(c.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logging.Logger, nil
}

// ------------------------------------------------------------------------------------------------------
// NewMetrics registers the application collectors on a fresh registry
func (c *Config) NewMetrics() (*metrics.Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.New(reg), reg
}

// ------------------------------------------------------------------------------------------------------
func (c *Config) NewTokenCache(logger *zap.Logger, m *metrics.Metrics) *token.Cache {
	creds := token.Credentials{AppID: c.AppID, ClientSecret: c.ClientSecret}
	fetcher := token.NewHTTPFetcher(c.TokenURL, c.HTTPTimeout)
	return token.NewCache(creds, fetcher, token.Options{Logger: logger, Metrics: m})
}

// ------------------------------------------------------------------------------------------------------
func (c *Config) NewSequenceGenerator(m *metrics.Metrics) *sequence.Generator {
	gen := sequence.NewFromTime(time.Now())
	gen.OnEvict(m.SequenceEvicted)
	return gen
}

// ------------------------------------------------------------------------------------------------------
// NewMediaCache prefers Redis when configured and reachable, and falls back to process memory
func (c *Config) NewMediaCache(logger *zap.Logger) storage.MediaCache {
	if c.RedisAddr != "" {
		redisStore, err := storage.NewRedisStore(c.RedisAddr, c.RedisPassword)
		if err == nil {
			logger.Info("Connected to Redis", zap.String("addr", c.RedisAddr))
			return redisStore
		}
		logger.Warn("Failed to connect to Redis, using in-memory media cache",
			zap.Error(err),
		)
	}
	return storage.NewMemoryStore(c.MediaCacheSize)
}

// ------------------------------------------------------------------------------------------------------
func (c *Config) NewBotClient(
	tokens *token.Cache,
	seq *sequence.Generator,
	mediaCache storage.MediaCache,
	logger *zap.Logger,
	m *metrics.Metrics,
) *qqbot.Client {
	executor := qqbot.NewExecutor(c.APIBaseURL, c.HTTPTimeout, logger, m)
	return qqbot.NewClient(tokens, seq, executor, qqbot.Options{
		Markdown:   c.Markdown,
		MediaCache: mediaCache,
		Logger:     logger,
		Metrics:    m,
	})
}

// ------------------------------------------------------------------------------------------------------
func (c *Config) NewSendService(client *qqbot.Client, logger *zap.Logger, m *metrics.Metrics) service.SendService {
	return service.NewSendService(client, c.AutoReply, logger, m)
}

// ------------------------------------------------------------------------------------------------------
func (c *Config) NewGateway(client *qqbot.Client, tokens *token.Cache, handler gateway.Handler, logger *zap.Logger, m *metrics.Metrics) *gateway.Gateway {
	return gateway.New(client, tokens, handler, gateway.Options{
		Intents: c.Intents,
		Logger:  logger,
		Metrics: m,
	})
}

// ------------------------------------------------------------------------------------------------------
func (c *Config) NewHandler(sendService service.SendService, tokens handlers.TokenStore, logger *zap.Logger) *handlers.Handler {
	return handlers.NewHandler(sendService, tokens, logger)
}

// ------------------------------------------------------------------------------------------------------
func (c *Config) NewRouter(handler *handlers.Handler, logger *zap.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer) *mux.Router {
	return api.SetupRouter(handler, logger, m, gatherer)
}

// ------------------------------------------------------------------------------------------------------
func (c *Config) NewHTTPServer(router *mux.Router) *http.Server {
	return &http.Server{
		Addr:         ":" + c.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
