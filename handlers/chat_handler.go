package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/upb/rag-gateway/middleware"
	"github.com/upb/rag-gateway/models"
	"github.com/upb/rag-gateway/services/chat"
	"github.com/upb/rag-gateway/utils"
	"go.uber.org/zap"
)

// ChatRequest represents a chat request payload. The question may arrive under
// either key; "question" wins when both are set.
type ChatRequest struct {
	Question string `json:"question"`
	Query    string `json:"query"`
	TopK     int    `json:"top_k" validate:"gte=0,lte=50"`
}

// ChatResponse represents a successful chat response
type ChatResponse struct {
	Status       string               `json:"status"`
	Answer       string               `json:"answer"`
	Sources      []models.RankedMatch `json:"sources"`
	ResponseTime float64              `json:"response_time"`
	SourcesCount int                  `json:"sources_count"`
}

// ChatService defines the interface for the question answering pipeline
type ChatService interface {
	// Ask answers a question grounded in the stored fragments
	Ask(ctx context.Context, sessionID, question string, topK int) (*chat.Answer, error)
}

// ChatHandler handles chat HTTP requests
type ChatHandler struct {
	service ChatService
	logger  *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(service ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger,
	}
}

// HandleChat handles POST /api/chat
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := middleware.GetSessionIDFromContext(ctx)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	question := req.Question
	if question == "" {
		question = req.Query
	}

	answer, err := h.service.Ask(ctx, sessionID, question, req.TopK)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	response := ChatResponse{
		Status:       "success",
		Answer:       answer.Answer,
		Sources:      answer.Sources,
		ResponseTime: answer.ResponseTime,
		SourcesCount: answer.SourcesCount,
	}

	if err := utils.WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("failed to write chat response", zap.Error(err))
	}
}
