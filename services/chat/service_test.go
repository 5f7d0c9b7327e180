package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/rag-gateway/config"
	"github.com/upb/rag-gateway/models"
	"github.com/upb/rag-gateway/services"
	"github.com/upb/rag-gateway/services/generator"
	"go.uber.org/zap"
)

type mockFragmentRepo struct {
	mock.Mock
}

func (m *mockFragmentRepo) FetchAll(ctx context.Context) ([]models.Fragment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Fragment), args.Error(1)
}

func (m *mockFragmentRepo) Insert(ctx context.Context, text string, vector []float64, sourceName, sourceType string) error {
	args := m.Called(ctx, text, vector, sourceName, sourceType)
	return args.Error(0)
}

func (m *mockFragmentRepo) SearchKeyword(ctx context.Context, keyword string, limit int) ([]models.Fragment, error) {
	args := m.Called(ctx, keyword, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Fragment), args.Error(1)
}

func (m *mockFragmentRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockFragmentRepo) Stats(ctx context.Context) (*models.StoreStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StoreStats), args.Error(1)
}

type mockEncoder struct {
	mock.Mock
}

func (m *mockEncoder) Encode(ctx context.Context, text string) ([]float64, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

type mockRanker struct {
	mock.Mock
}

func (m *mockRanker) Rank(query []float64, candidates []models.Fragment, topK int) []models.RankedMatch {
	args := m.Called(query, candidates, topK)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]models.RankedMatch)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, question string, contextFragments []string) generator.Result {
	args := m.Called(ctx, question, contextFragments)
	return args.Get(0).(generator.Result)
}

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) Append(sessionID, question, answer string) {
	m.Called(sessionID, question, answer)
}

func testRetrievalConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		TopK:          5,
		MaxTopK:       20,
		ExcerptLength: 200,
		HistoryLimit:  10,
	}
}

func newTestService(repo *mockFragmentRepo, enc *mockEncoder, rank *mockRanker, gen *mockGenerator, hist *mockHistory, cfg config.RetrievalConfig) *Service {
	return NewService(repo, enc, rank, gen, hist, cfg, zap.NewNop())
}

func TestService_Ask(t *testing.T) {
	ctx := context.Background()

	t.Run("answers with truncated sources and records history", func(t *testing.T) {
		repo := new(mockFragmentRepo)
		enc := new(mockEncoder)
		rank := new(mockRanker)
		gen := new(mockGenerator)
		hist := new(mockHistory)

		cfg := testRetrievalConfig()
		cfg.ExcerptLength = 10

		vector := []float64{0.1, 0.2}
		fragments := []models.Fragment{{ID: 1, Text: "enrollment deadline is in March"}}
		matches := []models.RankedMatch{
			{FragmentID: 1, Text: "enrollment deadline is in March", Similarity: 0.9, Relevance: 90.0},
		}

		enc.On("Encode", ctx, "when is enrollment?").Return(vector, nil)
		repo.On("FetchAll", ctx).Return(fragments, nil)
		rank.On("Rank", vector, fragments, 5).Return(matches)
		gen.On("Generate", ctx, "when is enrollment?", []string{"enrollment deadline is in March"}).
			Return(generator.Result{Success: true, Answer: "In March.", ElapsedSeconds: 1.23})
		hist.On("Append", "session-1", "when is enrollment?", "In March.").Return()

		svc := newTestService(repo, enc, rank, gen, hist, cfg)
		answer, err := svc.Ask(ctx, "session-1", "when is enrollment?", 0)
		require.NoError(t, err)

		assert.Equal(t, "In March.", answer.Answer)
		assert.Equal(t, 1.23, answer.ResponseTime)
		assert.Equal(t, 1, answer.SourcesCount)
		require.Len(t, answer.Sources, 1)
		assert.Equal(t, "enrollment...", answer.Sources[0].Text)
		assert.Equal(t, 90.0, answer.Sources[0].Relevance)

		hist.AssertExpectations(t)
		gen.AssertExpectations(t)
	})

	t.Run("rejects empty question before any retrieval work", func(t *testing.T) {
		repo := new(mockFragmentRepo)
		enc := new(mockEncoder)
		rank := new(mockRanker)
		gen := new(mockGenerator)
		hist := new(mockHistory)

		svc := newTestService(repo, enc, rank, gen, hist, testRetrievalConfig())
		answer, err := svc.Ask(ctx, "session-1", "   ", 5)

		assert.Nil(t, answer)
		assert.ErrorIs(t, err, services.ErrEmptyQuestion)
		assert.True(t, services.IsValidationError(err))
		enc.AssertNotCalled(t, "Encode", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "FetchAll", mock.Anything)
	})

	t.Run("generation failure surfaces as external error without history entry", func(t *testing.T) {
		repo := new(mockFragmentRepo)
		enc := new(mockEncoder)
		rank := new(mockRanker)
		gen := new(mockGenerator)
		hist := new(mockHistory)

		enc.On("Encode", ctx, "question").Return([]float64{1}, nil)
		repo.On("FetchAll", ctx).Return([]models.Fragment{}, nil)
		rank.On("Rank", []float64{1}, []models.Fragment{}, 5).Return([]models.RankedMatch{})
		gen.On("Generate", ctx, "question", []string{}).
			Return(generator.Result{Success: false, Error: "HTTP Error: 429"})

		svc := newTestService(repo, enc, rank, gen, hist, testRetrievalConfig())
		answer, err := svc.Ask(ctx, "session-1", "question", 0)

		assert.Nil(t, answer)
		require.Error(t, err)
		assert.True(t, services.IsExternalError(err))
		assert.Contains(t, err.Error(), "HTTP Error: 429")
		hist.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("encoder failure surfaces as external error", func(t *testing.T) {
		repo := new(mockFragmentRepo)
		enc := new(mockEncoder)
		rank := new(mockRanker)
		gen := new(mockGenerator)
		hist := new(mockHistory)

		enc.On("Encode", ctx, "question").Return(nil, errors.New("connection refused"))

		svc := newTestService(repo, enc, rank, gen, hist, testRetrievalConfig())
		answer, err := svc.Ask(ctx, "session-1", "question", 0)

		assert.Nil(t, answer)
		assert.True(t, services.IsExternalError(err))
		repo.AssertNotCalled(t, "FetchAll", mock.Anything)
	})

	t.Run("store failure surfaces as internal error", func(t *testing.T) {
		repo := new(mockFragmentRepo)
		enc := new(mockEncoder)
		rank := new(mockRanker)
		gen := new(mockGenerator)
		hist := new(mockHistory)

		enc.On("Encode", ctx, "question").Return([]float64{1}, nil)
		repo.On("FetchAll", ctx).Return(nil, errors.New("connection reset"))

		svc := newTestService(repo, enc, rank, gen, hist, testRetrievalConfig())
		answer, err := svc.Ask(ctx, "session-1", "question", 0)

		assert.Nil(t, answer)
		assert.True(t, services.IsInternalError(err))
		gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("caps top_k at the configured maximum", func(t *testing.T) {
		repo := new(mockFragmentRepo)
		enc := new(mockEncoder)
		rank := new(mockRanker)
		gen := new(mockGenerator)
		hist := new(mockHistory)

		enc.On("Encode", ctx, "question").Return([]float64{1}, nil)
		repo.On("FetchAll", ctx).Return([]models.Fragment{}, nil)
		rank.On("Rank", []float64{1}, []models.Fragment{}, 20).Return([]models.RankedMatch{})
		gen.On("Generate", ctx, "question", []string{}).
			Return(generator.Result{Success: true, Answer: "nothing found"})
		hist.On("Append", "s", "question", "nothing found").Return()

		svc := newTestService(repo, enc, rank, gen, hist, testRetrievalConfig())
		_, err := svc.Ask(ctx, "s", "question", 500)
		require.NoError(t, err)
		rank.AssertExpectations(t)
	})
}

func TestService_SemanticSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("ranks without generating and keeps full text", func(t *testing.T) {
		repo := new(mockFragmentRepo)
		enc := new(mockEncoder)
		rank := new(mockRanker)
		gen := new(mockGenerator)
		hist := new(mockHistory)

		longText := "a fragment that is much longer than any excerpt limit would normally allow through"
		vector := []float64{0.5}
		fragments := []models.Fragment{{ID: 3, Text: longText}}
		matches := []models.RankedMatch{{FragmentID: 3, Text: longText, Similarity: 0.7, Relevance: 70.0}}

		enc.On("Encode", ctx, "deadlines").Return(vector, nil)
		repo.On("FetchAll", ctx).Return(fragments, nil)
		rank.On("Rank", vector, fragments, 10).Return(matches)

		cfg := testRetrievalConfig()
		cfg.ExcerptLength = 10

		svc := newTestService(repo, enc, rank, gen, hist, cfg)
		results, err := svc.SemanticSearch(ctx, "deadlines", 0)
		require.NoError(t, err)

		require.Len(t, results, 1)
		assert.Equal(t, longText, results[0].Text)
		gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects empty query", func(t *testing.T) {
		svc := newTestService(new(mockFragmentRepo), new(mockEncoder), new(mockRanker), new(mockGenerator), new(mockHistory), testRetrievalConfig())

		results, err := svc.SemanticSearch(ctx, "", 5)
		assert.Nil(t, results)
		assert.ErrorIs(t, err, services.ErrEmptyQuery)
	})
}
