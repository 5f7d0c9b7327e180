// Package chat orchestrates the retrieval pipeline: embed the question, rank
// stored fragments by similarity, and ask the generation service for an answer
// grounded in the top matches.
package chat

import (
	"context"
	"strings"

	"github.com/upb/rag-gateway/config"
	"github.com/upb/rag-gateway/models"
	"github.com/upb/rag-gateway/repositories"
	"github.com/upb/rag-gateway/services"
	"github.com/upb/rag-gateway/services/generator"
	"go.uber.org/zap"
)

// defaultSemanticTopK applies when a semantic search request omits top_k.
const defaultSemanticTopK = 10

// Encoder turns text into an embedding vector.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float64, error)
}

// Ranker orders candidate fragments by similarity to a query vector.
type Ranker interface {
	Rank(query []float64, candidates []models.Fragment, topK int) []models.RankedMatch
}

// Generator produces a grounded answer from the question and context fragments.
type Generator interface {
	Generate(ctx context.Context, question string, contextFragments []string) generator.Result
}

// History records completed exchanges per session.
type History interface {
	Append(sessionID, question, answer string)
}

// Answer is the assembled result of one chat request.
type Answer struct {
	Answer       string               `json:"answer"`
	Sources      []models.RankedMatch `json:"sources"`
	ResponseTime float64              `json:"response_time"`
	SourcesCount int                  `json:"sources_count"`
}

// Service runs the question answering pipeline
type Service struct {
	fragments repositories.FragmentRepository
	encoder   Encoder
	ranker    Ranker
	generator Generator
	history   History
	cfg       config.RetrievalConfig
	logger    *zap.Logger
}

// NewService creates a new chat service
func NewService(
	fragments repositories.FragmentRepository,
	encoder Encoder,
	ranker Ranker,
	gen Generator,
	history History,
	cfg config.RetrievalConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		fragments: fragments,
		encoder:   encoder,
		ranker:    ranker,
		generator: gen,
		history:   history,
		cfg:       cfg,
		logger:    logger,
	}
}

// Ask answers a question grounded in the most similar stored fragments.
// The exchange is appended to the session history only when generation
// succeeds.
func (s *Service) Ask(ctx context.Context, sessionID, question string, topK int) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, services.ErrEmptyQuestion
	}

	topK = s.normalizeTopK(topK, s.cfg.TopK)

	matches, err := s.retrieve(ctx, question, topK)
	if err != nil {
		return nil, err
	}

	contextTexts := make([]string, len(matches))
	for i, match := range matches {
		contextTexts[i] = match.Text
	}

	result := s.generator.Generate(ctx, question, contextTexts)
	if !result.Success {
		s.logger.Warn("generation failed",
			zap.String("session_id", sessionID),
			zap.String("error", result.Error))
		return nil, services.WrapError(services.ErrorTypeExternal, result.Error, nil)
	}

	s.history.Append(sessionID, question, result.Answer)

	sources := make([]models.RankedMatch, len(matches))
	for i, match := range matches {
		match.Text = match.Excerpt(s.cfg.ExcerptLength)
		sources[i] = match
	}

	s.logger.Info("chat request answered",
		zap.String("session_id", sessionID),
		zap.Int("sources", len(sources)),
		zap.Float64("response_time", result.ElapsedSeconds))

	return &Answer{
		Answer:       result.Answer,
		Sources:      sources,
		ResponseTime: result.ElapsedSeconds,
		SourcesCount: len(sources),
	}, nil
}

// SemanticSearch ranks stored fragments against the query without generating
// an answer. Match texts are returned in full.
func (s *Service) SemanticSearch(ctx context.Context, query string, topK int) ([]models.RankedMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.ErrEmptyQuery
	}

	topK = s.normalizeTopK(topK, defaultSemanticTopK)

	return s.retrieve(ctx, query, topK)
}

func (s *Service) retrieve(ctx context.Context, query string, topK int) ([]models.RankedMatch, error) {
	vector, err := s.encoder.Encode(ctx, query)
	if err != nil {
		return nil, services.WrapExternal("embedding model unavailable", err)
	}

	candidates, err := s.fragments.FetchAll(ctx)
	if err != nil {
		return nil, services.WrapInternal("fragment store unavailable", err)
	}

	matches := s.ranker.Rank(vector, candidates, topK)

	s.logger.Debug("retrieval complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", len(matches)))

	return matches, nil
}

func (s *Service) normalizeTopK(topK, fallback int) int {
	if topK < 1 {
		return fallback
	}
	if s.cfg.MaxTopK > 0 && topK > s.cfg.MaxTopK {
		return s.cfg.MaxTopK
	}
	return topK
}
