package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/rag-gateway/models"
	"go.uber.org/zap"
)

type mockStatsProvider struct {
	mock.Mock
}

func (m *mockStatsProvider) Stats(ctx context.Context) (*models.StoreStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StoreStats), args.Error(1)
}

func TestHandleStats(t *testing.T) {
	logger := zap.NewNop()

	t.Run("returns store statistics", func(t *testing.T) {
		provider := new(mockStatsProvider)
		provider.On("Stats", mock.Anything).Return(&models.StoreStats{
			TotalRecords:       120,
			UniqueSources:      3,
			AvgLength:          412.5,
			LengthDistribution: map[string]int{"200_to_499": 90, "500_and_over": 30},
		}, nil)

		handler := NewStatsHandler(provider, logger)
		w := httptest.NewRecorder()

		handler.HandleStats(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "success", response["status"])

		stats := response["stats"].(map[string]interface{})
		assert.Equal(t, float64(120), stats["total_records"])
		assert.Equal(t, float64(3), stats["unique_files"])
		assert.Equal(t, 412.5, stats["avg_length"])

		dist := stats["length_distribution"].(map[string]interface{})
		assert.Equal(t, float64(90), dist["200_to_499"])
	})

	t.Run("store failure maps to 500", func(t *testing.T) {
		provider := new(mockStatsProvider)
		provider.On("Stats", mock.Anything).Return(nil, assert.AnError)

		handler := NewStatsHandler(provider, logger)
		w := httptest.NewRecorder()

		handler.HandleStats(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
