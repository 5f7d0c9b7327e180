package models

import (
	"time"
)

// Fragment is a stored unit of retrievable text with its precomputed embedding.
// Fragments are created in bulk at ingestion time and are read-only for the
// retrieval pipeline; they are never mutated or deleted by the serving path.
type Fragment struct {
	ID         int64     `json:"id" db:"id"`
	Text       string    `json:"text" db:"corpus"`
	Vector     []float64 `json:"-" db:"embedding"`
	SourceName string    `json:"source_name" db:"file_name"`
	SourceType string    `json:"source_type" db:"file_type"` // txt or pdf
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// RankedMatch is produced per query by the similarity ranker. It exists only
// for the duration of one request and is never persisted.
type RankedMatch struct {
	FragmentID int64   `json:"id"`
	Text       string  `json:"text"`
	Similarity float64 `json:"-"`         // raw cosine similarity in [-1, 1], used for ordering
	Relevance  float64 `json:"relevance"` // display score, similarity scaled to 0-100
}

// Excerpt returns the match text truncated to maxLen characters with an
// ellipsis, matching the source excerpts shown to API callers.
func (m RankedMatch) Excerpt(maxLen int) string {
	return TruncateText(m.Text, maxLen)
}

// TruncateText shortens s to maxLen runes, appending "..." when truncated.
func TruncateText(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// StoreStats summarizes the fragment store for the stats endpoint.
type StoreStats struct {
	TotalRecords       int            `json:"total_records"`
	UniqueSources      int            `json:"unique_files"`
	AvgLength          float64        `json:"avg_length"`
	LengthDistribution map[string]int `json:"length_distribution"`
}
