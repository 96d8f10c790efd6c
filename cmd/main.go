package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qqbot-service/internal/config"
	apperror "qqbot-service/internal/error"
	"qqbot-service/internal/gateway"
	"qqbot-service/internal/logging"

	"go.uber.org/zap"
)

// reconnectDelay is the fixed pause between gateway sessions
const reconnectDelay = 5 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	logger.Info("Starting QQ Bot Service",
		zap.String("port", cfg.Port),
		zap.String("app_id", cfg.AppID),
		zap.String("api_base_url", cfg.APIBaseURL),
		zap.Bool("gateway_enabled", cfg.GatewayEnabled),
	)

	m, registry := cfg.NewMetrics()

	tokens := cfg.NewTokenCache(logger, m)
	seq := cfg.NewSequenceGenerator(m)

	mediaCache := cfg.NewMediaCache(logger)
	defer mediaCache.Close()

	client := cfg.NewBotClient(tokens, seq, mediaCache, logger, m)
	sendService := cfg.NewSendService(client, logger, m)

	handler := cfg.NewHandler(sendService, tokens, logger)
	router := cfg.NewRouter(handler, logger, m, registry)
	srv := cfg.NewHTTPServer(router)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gatewayDone := make(chan struct{})
	if cfg.GatewayEnabled {
		gw := cfg.NewGateway(client, tokens, sendService, logger, m)
		go func() {
			defer close(gatewayDone)
			runGateway(ctx, gw, logger)
		}()
	} else {
		close(gatewayDone)
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	select {
	case <-gatewayDone:
	case <-shutdownCtx.Done():
		logger.Warn("Gateway did not stop in time")
	}

	logger.Info("Server stopped")
}

// runGateway keeps a gateway session open until ctx is cancelled
func runGateway(ctx context.Context, gw *gateway.Gateway, logger *zap.Logger) {
	for {
		err := gw.Run(ctx)
		if ctx.Err() != nil {
			return
		}

		switch {
		case errors.Is(err, apperror.ErrReconnectRequested):
			logger.Info("Reconnecting gateway on request")
		case errors.Is(err, apperror.ErrInvalidSession):
			logger.Warn("Gateway session invalid, identifying again")
		default:
			logger.Error("Gateway connection ended", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}
