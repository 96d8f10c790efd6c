package handlers

import (
	"encoding/json"
	"net/http"

	apperror "qqbot-service/internal/error"
	"qqbot-service/internal/service"

	"go.uber.org/zap"
)

// ----------------------------------------------------------------------------------------------------------------
func (h *Handler) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req service.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request", zap.Error(err))
		h.sendErrorResponse(w, apperror.NewValidationError("Invalid JSON in request body", err))
		return
	}

	response, err := h.sendService.Send(r.Context(), &req)
	if err != nil {
		h.logger.Error("Send failed", zap.Error(err))
		h.sendErrorResponse(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"id":        response.ID,
		"timestamp": response.Timestamp.String(),
	})
}

// ----------------------------------------------------------------------------------------------------------------
func (h *Handler) UploadMediaHandler(w http.ResponseWriter, r *http.Request) {
	var req service.UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request", zap.Error(err))
		h.sendErrorResponse(w, apperror.NewValidationError("Invalid JSON in request body", err))
		return
	}

	result, err := h.sendService.Upload(r.Context(), &req)
	if err != nil {
		h.logger.Error("Upload failed", zap.Error(err))
		h.sendErrorResponse(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// ----------------------------------------------------------------------------------------------------------------
func (h *Handler) ClearTokenHandler(w http.ResponseWriter, r *http.Request) {
	h.tokens.Clear()
	w.WriteHeader(http.StatusNoContent)
}
