package handlers

import (
	"net/http"

	"github.com/upb/rag-gateway/middleware"
	"github.com/upb/rag-gateway/models"
	"github.com/upb/rag-gateway/utils"
	"go.uber.org/zap"
)

// HistoryService defines the interface for the session history log
type HistoryService interface {
	// Recent returns the most recent exchanges in chronological order
	Recent(sessionID string) []models.Exchange

	// Count returns the total number of exchanges recorded for the session
	Count(sessionID string) int

	// Clear removes the session's history
	Clear(sessionID string)
}

// HistoryHandler handles conversation history HTTP requests
type HistoryHandler struct {
	service HistoryService
	logger  *zap.Logger
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(service HistoryService, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		service: service,
		logger:  logger,
	}
}

// HandleGetHistory handles GET /api/history
func (h *HistoryHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionIDFromContext(r.Context())

	history := h.service.Recent(sessionID)
	if history == nil {
		history = []models.Exchange{}
	}

	response := map[string]interface{}{
		"success": true,
		"history": history,
		"count":   h.service.Count(sessionID),
	}

	if err := utils.WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("failed to write history response", zap.Error(err))
	}
}

// HandleClearHistory handles POST /api/clear-history
func (h *HistoryHandler) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionIDFromContext(r.Context())

	h.service.Clear(sessionID)

	response := map[string]interface{}{
		"success": true,
		"message": "History cleared",
	}

	if err := utils.WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("failed to write clear history response", zap.Error(err))
	}
}
