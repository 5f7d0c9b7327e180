package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/upb/rag-gateway/models"
	"github.com/upb/rag-gateway/repositories"
	"go.uber.org/zap"
)

// FragmentRepository implements the repositories.FragmentRepository interface
type FragmentRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewFragmentRepository creates a new fragment repository
func NewFragmentRepository(db *DB, logger *zap.Logger) repositories.FragmentRepository {
	return &FragmentRepository{
		db:     db,
		logger: logger,
	}
}

// FetchAll retrieves every stored fragment in id order. Rows whose embedding
// cannot be parsed are skipped with a warning rather than failing the scan.
func (r *FragmentRepository) FetchAll(ctx context.Context) ([]models.Fragment, error) {
	query := `
		SELECT id, corpus, embedding, file_name, file_type, created_at
		FROM embeddings
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query fragments: %w", err)
	}
	defer rows.Close()

	var fragments []models.Fragment
	for rows.Next() {
		var (
			fragment models.Fragment
			raw      string
			name     sql.NullString
			kind     sql.NullString
		)
		if err := rows.Scan(&fragment.ID, &fragment.Text, &raw, &name, &kind, &fragment.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fragment: %w", err)
		}

		vector, err := parseVector(raw)
		if err != nil {
			r.logger.Warn("skipping fragment with malformed embedding",
				zap.Int64("id", fragment.ID),
				zap.Error(err))
			continue
		}

		fragment.Vector = vector
		fragment.SourceName = name.String
		fragment.SourceType = kind.String
		fragments = append(fragments, fragment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fragment rows: %w", err)
	}

	return fragments, nil
}

// Insert stores a fragment with its embedding
func (r *FragmentRepository) Insert(ctx context.Context, text string, vector []float64, sourceName, sourceType string) error {
	query := `
		INSERT INTO embeddings (corpus, embedding, file_name, file_type)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query, text, encodeVector(vector), sourceName, sourceType)
	if err != nil {
		return fmt.Errorf("failed to insert fragment: %w", err)
	}

	r.logger.Debug("fragment inserted",
		zap.String("source", sourceName),
		zap.Int("text_length", len(text)))
	return nil
}

// SearchKeyword retrieves fragments whose text contains the keyword, case-insensitively
func (r *FragmentRepository) SearchKeyword(ctx context.Context, keyword string, limit int) ([]models.Fragment, error) {
	query := `
		SELECT id, corpus, file_name, file_type, created_at
		FROM embeddings
		WHERE corpus ILIKE $1
		ORDER BY id
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, "%"+keyword+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search fragments: %w", err)
	}
	defer rows.Close()

	var fragments []models.Fragment
	for rows.Next() {
		var (
			fragment models.Fragment
			name     sql.NullString
			kind     sql.NullString
		)
		if err := rows.Scan(&fragment.ID, &fragment.Text, &name, &kind, &fragment.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fragment: %w", err)
		}
		fragment.SourceName = name.String
		fragment.SourceType = kind.String
		fragments = append(fragments, fragment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fragment rows: %w", err)
	}

	return fragments, nil
}

// Count returns the total number of stored fragments
func (r *FragmentRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count fragments: %w", err)
	}
	return count, nil
}

// Stats summarizes the fragment store
func (r *FragmentRepository) Stats(ctx context.Context) (*models.StoreStats, error) {
	stats := &models.StoreStats{}

	query := `
		SELECT COUNT(*),
		       COUNT(DISTINCT file_name),
		       COALESCE(AVG(LENGTH(corpus)), 0)
		FROM embeddings
	`
	if err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalRecords,
		&stats.UniqueSources,
		&stats.AvgLength,
	); err != nil {
		return nil, fmt.Errorf("failed to query store stats: %w", err)
	}

	bucketQuery := `
		SELECT CASE
		           WHEN LENGTH(corpus) < 50 THEN 'under_50'
		           WHEN LENGTH(corpus) < 100 THEN '50_to_99'
		           WHEN LENGTH(corpus) < 200 THEN '100_to_199'
		           WHEN LENGTH(corpus) < 500 THEN '200_to_499'
		           ELSE '500_and_over'
		       END AS bucket,
		       COUNT(*)
		FROM embeddings
		GROUP BY bucket
	`

	rows, err := r.db.QueryContext(ctx, bucketQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query length distribution: %w", err)
	}
	defer rows.Close()

	stats.LengthDistribution = make(map[string]int)
	for rows.Next() {
		var bucket string
		var count int
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, fmt.Errorf("failed to scan length bucket: %w", err)
		}
		stats.LengthDistribution[bucket] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating length buckets: %w", err)
	}

	return stats, nil
}

// encodeVector renders a vector in the canonical bracketed form, e.g. [0.1,0.2]
func encodeVector(vector []float64) string {
	parts := make([]string, len(vector))
	for i, v := range vector {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// parseVector decodes the canonical bracketed form. Anything else, including
// the brace-delimited array form, is rejected as malformed.
func parseVector(raw string) ([]float64, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < 2 || trimmed[0] != '[' || trimmed[len(trimmed)-1] != ']' {
		return nil, fmt.Errorf("embedding is not a bracketed vector")
	}

	body := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if body == "" {
		return nil, fmt.Errorf("embedding vector is empty")
	}

	parts := strings.Split(body, ",")
	vector := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component at index %d: %w", i, err)
		}
		vector[i] = v
	}

	return vector, nil
}
