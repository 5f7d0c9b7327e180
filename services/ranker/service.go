// Package ranker scores stored fragments against a query embedding.
package ranker

import (
	"math"
	"sort"

	"github.com/upb/rag-gateway/models"
	"go.uber.org/zap"
)

// Service ranks fragments by cosine similarity against a query vector.
// The store is scored exhaustively: a brute-force O(n) scan per query. At this
// system's data scale correctness and simplicity beat an approximate index;
// result order and tie-breaking are deterministic for a fixed candidate sequence.
type Service struct {
	logger *zap.Logger
}

// NewService creates a new ranker service
func NewService(logger *zap.Logger) *Service {
	return &Service{logger: logger}
}

// Rank scores every candidate against the query vector and returns the top
// matches in descending similarity order. Ties keep the original candidate
// order (stable sort). Candidates whose stored vector does not match the query
// dimension are skipped with a warning; one bad record never fails the request.
// Returns at most topK matches; an empty candidate set yields an empty result.
func (s *Service) Rank(query []float64, candidates []models.Fragment, topK int) []models.RankedMatch {
	if topK < 1 {
		return []models.RankedMatch{}
	}

	matches := make([]models.RankedMatch, 0, len(candidates))
	for _, fragment := range candidates {
		if len(fragment.Vector) != len(query) {
			s.logger.Warn("skipping fragment with malformed vector",
				zap.Int64("fragment_id", fragment.ID),
				zap.Int("vector_dimension", len(fragment.Vector)),
				zap.Int("expected_dimension", len(query)))
			continue
		}

		sim := CosineSimilarity(query, fragment.Vector)
		matches = append(matches, models.RankedMatch{
			FragmentID: fragment.ID,
			Text:       fragment.Text,
			Similarity: sim,
			Relevance:  relevancePercent(sim),
		})
	}

	// Ordering uses the raw similarity; the stable sort preserves retrieval
	// order on ties so results are deterministic.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1].
// A zero-norm vector yields 0 (maximal distance) rather than dividing by zero.
func CosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// relevancePercent scales a raw similarity to a 0-100 display score rounded to
// one decimal. Negative similarities clamp to 0; the ranking itself is
// unaffected by this scaling.
func relevancePercent(sim float64) float64 {
	if sim < 0 {
		sim = 0
	}
	return math.Round(sim*1000) / 10
}
