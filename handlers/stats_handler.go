package handlers

import (
	"context"
	"net/http"

	"github.com/upb/rag-gateway/models"
	"github.com/upb/rag-gateway/utils"
	"go.uber.org/zap"
)

// StatsProvider summarizes the fragment store
type StatsProvider interface {
	Stats(ctx context.Context) (*models.StoreStats, error)
}

// StatsHandler handles store statistics HTTP requests
type StatsHandler struct {
	provider StatsProvider
	logger   *zap.Logger
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(provider StatsProvider, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{
		provider: provider,
		logger:   logger,
	}
}

// HandleStats handles GET /api/stats
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.provider.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to collect store stats", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "An internal error occurred")
		return
	}

	response := map[string]interface{}{
		"status": "success",
		"stats":  stats,
	}

	if err := utils.WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("failed to write stats response", zap.Error(err))
	}
}
