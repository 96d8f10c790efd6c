package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	apperror "qqbot-service/internal/error"
	"qqbot-service/internal/logging"
	"qqbot-service/internal/service"
	"qqbot-service/internal/token"

	"go.uber.org/zap"
)

// TokenStore exposes the credential cache to the operator endpoints
type TokenStore interface {
	Peek() (token.CachedCredential, bool)
	Clear()
}

type Handler struct {
	sendService service.SendService
	tokens      TokenStore
	logger      *zap.Logger
}

// HealthResponse reports liveness and the state of the credential cache
type HealthResponse struct {
	Status      string     `json:"status"`
	TokenCached bool       `json:"token_cached"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ------------------------------------------------------------------------------------------------------
func NewHandler(sendService service.SendService, tokens TokenStore, logger *zap.Logger) *Handler {
	return &Handler{
		sendService: sendService,
		tokens:      tokens,
		logger:      logging.OrNop(logger),
	}
}

// ------------------------------------------------------------------------------------------------------
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{Status: "OK"}
	if cred, ok := h.tokens.Peek(); ok {
		response.TokenCached = true
		response.ExpiresAt = &cred.ExpiresAt
	}

	h.writeJSON(w, http.StatusOK, response)
}

// ------------------------------------------------------------------------------------------------------
func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// ------------------------------------------------------------------------------------------------------
func (h *Handler) sendErrorResponse(w http.ResponseWriter, err error) {
	statusCode := apperror.GetHTTPStatusCode(err)
	errorResponse := apperror.NewErrorResponse(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if encodeErr := json.NewEncoder(w).Encode(errorResponse); encodeErr != nil {
		h.logger.Error("Failed to encode error response",
			zap.Error(encodeErr),
			zap.Error(err),
		)
	}
}
