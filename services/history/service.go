// Package history keeps the per-session conversation log.
package history

import (
	"sync"
	"time"

	"github.com/upb/rag-gateway/models"
	"go.uber.org/zap"
)

// DefaultLimit is the number of exchanges exposed per session.
const DefaultLimit = 10

// Service is an in-memory, session-keyed append-only log of exchanges. It is
// the only mutable shared state in the pipeline: appends are serialized so
// concurrent queries against the same session never lose or corrupt an entry.
// Sessions are reclaimed by process restart; nothing is persisted.
type Service struct {
	mu       sync.Mutex
	sessions map[string][]models.Exchange
	limit    int
	logger   *zap.Logger
}

// NewService creates a new history service. limit caps how many recent
// exchanges Recent returns; values below 1 fall back to DefaultLimit.
func NewService(limit int, logger *zap.Logger) *Service {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Service{
		sessions: make(map[string][]models.Exchange),
		limit:    limit,
		logger:   logger,
	}
}

// Append records one completed exchange for the session with the current
// timestamp. It never fails under normal operation.
func (s *Service) Append(sessionID, question, answer string) {
	exchange := models.Exchange{
		Question:  question,
		Answer:    answer,
		Timestamp: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[sessionID] = append(s.sessions[sessionID], exchange)
	size := len(s.sessions[sessionID])
	s.mu.Unlock()

	s.logger.Debug("exchange recorded",
		zap.String("session_id", sessionID),
		zap.Int("history_size", size))
}

// Recent returns up to the configured limit of most recent exchanges for the
// session in chronological order (most recent last). A session with no
// recorded exchanges yields an empty slice.
func (s *Service) Recent(sessionID string) []models.Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.sessions[sessionID]
	if len(log) > s.limit {
		log = log[len(log)-s.limit:]
	}
	out := make([]models.Exchange, len(log))
	copy(out, log)
	return out
}

// Count returns the total number of exchanges recorded for the session,
// including entries older than the Recent window.
func (s *Service) Count(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions[sessionID])
}

// Clear resets the session's log to empty. Idempotent.
func (s *Service) Clear(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	s.logger.Debug("history cleared", zap.String("session_id", sessionID))
}
