package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/upb/rag-gateway/models"
	"github.com/upb/rag-gateway/utils"
	"go.uber.org/zap"
)

// defaultKeywordLimit applies when a keyword search request omits limit.
const defaultKeywordLimit = 10

// SearchRequest represents a keyword search payload. The keyword may arrive
// under either key; "query" wins when both are set.
type SearchRequest struct {
	Query   string `json:"query"`
	Keyword string `json:"keyword"`
	Limit   int    `json:"limit" validate:"gte=0,lte=100"`
}

// SemanticSearchRequest represents a semantic search payload
type SemanticSearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k" validate:"gte=0,lte=50"`
}

// SearchResult is one keyword search hit
type SearchResult struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	Date string `json:"date"`
}

// KeywordSearcher retrieves fragments matching a keyword
type KeywordSearcher interface {
	SearchKeyword(ctx context.Context, keyword string, limit int) ([]models.Fragment, error)
}

// SemanticSearcher ranks fragments against a query without generating an answer
type SemanticSearcher interface {
	SemanticSearch(ctx context.Context, query string, topK int) ([]models.RankedMatch, error)
}

// SearchHandler handles keyword and semantic search HTTP requests
type SearchHandler struct {
	keyword  KeywordSearcher
	semantic SemanticSearcher
	logger   *zap.Logger
}

// NewSearchHandler creates a new SearchHandler
func NewSearchHandler(keyword KeywordSearcher, semantic SemanticSearcher, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		keyword:  keyword,
		semantic: semantic,
		logger:   logger,
	}
}

// HandleSearch handles POST /api/search
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	keyword := req.Query
	if keyword == "" {
		keyword = req.Keyword
	}
	if keyword == "" {
		_ = utils.WriteBadRequest(w, "Query is required", nil)
		return
	}

	limit := req.Limit
	if limit < 1 {
		limit = defaultKeywordLimit
	}

	fragments, err := h.keyword.SearchKeyword(ctx, keyword, limit)
	if err != nil {
		h.logger.Error("keyword search failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "An internal error occurred")
		return
	}

	results := make([]SearchResult, len(fragments))
	for i, fragment := range fragments {
		results[i] = SearchResult{
			ID:   fragment.ID,
			Text: fragment.Text,
			Date: fragment.CreatedAt.Format(time.RFC3339),
		}
	}

	response := map[string]interface{}{
		"success": true,
		"results": results,
		"count":   len(results),
	}

	if err := utils.WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("failed to write search response", zap.Error(err))
	}
}

// HandleSemanticSearch handles POST /api/semantic-search
func (h *SearchHandler) HandleSemanticSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SemanticSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	matches, err := h.semantic.SemanticSearch(ctx, req.Query, req.TopK)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if matches == nil {
		matches = []models.RankedMatch{}
	}

	response := map[string]interface{}{
		"success": true,
		"results": matches,
	}

	if err := utils.WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("failed to write semantic search response", zap.Error(err))
	}
}
