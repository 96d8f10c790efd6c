package api

import (
	"net/http"

	"qqbot-service/internal/api/handlers"
	"qqbot-service/internal/logging"
	"qqbot-service/internal/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRouter configures HTTP routes. gatherer backs /metrics and should be the registry m was
// registered on.
func SetupRouter(handler *handlers.Handler, logger *zap.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer) *mux.Router {
	logger = logging.OrNop(logger)
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router := mux.NewRouter()

	// Apply logging middleware
	router.Use(func(next http.Handler) http.Handler {
		return LoggingMiddleware(logger, m, next)
	})

	// Health check
	router.HandleFunc("/health", handler.HealthHandler).Methods("GET")

	// Outbound messaging
	router.HandleFunc("/messages", handler.SendMessageHandler).Methods("POST")
	router.HandleFunc("/media", handler.UploadMediaHandler).Methods("POST")

	// Credential cache
	router.HandleFunc("/token", handler.ClearTokenHandler).Methods("DELETE")

	// Metrics endpoint
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	return router
}
