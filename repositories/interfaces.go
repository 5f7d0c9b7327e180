// Package repositories defines the data-access contracts implemented by the
// postgres package.
package repositories

import (
	"context"

	"github.com/upb/rag-gateway/models"
)

// FragmentRepository provides access to the fragment store. The retrieval
// pipeline treats the store as read-only; Insert exists for the ingestion CLI.
type FragmentRepository interface {
	// FetchAll returns every stored fragment in stable id order. The
	// retrieval pipeline scores this full scan per request.
	FetchAll(ctx context.Context) ([]models.Fragment, error)

	// Insert stores one fragment with its precomputed embedding.
	Insert(ctx context.Context, text string, vector []float64, sourceName, sourceType string) error

	// SearchKeyword returns fragments whose text matches the keyword,
	// case-insensitively, up to limit results.
	SearchKeyword(ctx context.Context, keyword string, limit int) ([]models.Fragment, error)

	// Count returns the total number of stored fragments.
	Count(ctx context.Context) (int, error)

	// Stats summarizes the store for the stats endpoint.
	Stats(ctx context.Context) (*models.StoreStats, error)
}
