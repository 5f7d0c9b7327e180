package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRepo(t *testing.T) (*FragmentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db := &DB{DB: mockDB, logger: zap.NewNop()}
	repo := &FragmentRepository{db: db, logger: zap.NewNop()}

	return repo, mock, func() { mockDB.Close() }
}

func TestFragmentRepository_FetchAll(t *testing.T) {
	columns := []string{"id", "corpus", "embedding", "file_name", "file_type", "created_at"}
	now := time.Now()

	t.Run("returns fragments with parsed vectors", func(t *testing.T) {
		repo, mock, cleanup := newTestRepo(t)
		defer cleanup()

		rows := sqlmock.NewRows(columns).
			AddRow(1, "first chunk", "[0.1,0.2,0.3]", "notes.txt", "txt", now).
			AddRow(2, "second chunk", "[0.4,0.5,0.6]", "paper.pdf", "pdf", now)

		mock.ExpectQuery("SELECT id, corpus, embedding").WillReturnRows(rows)

		fragments, err := repo.FetchAll(context.Background())
		require.NoError(t, err)
		require.Len(t, fragments, 2)

		assert.Equal(t, int64(1), fragments[0].ID)
		assert.Equal(t, "first chunk", fragments[0].Text)
		assert.Equal(t, []float64{0.1, 0.2, 0.3}, fragments[0].Vector)
		assert.Equal(t, "notes.txt", fragments[0].SourceName)
		assert.Equal(t, "txt", fragments[0].SourceType)

		assert.Equal(t, []float64{0.4, 0.5, 0.6}, fragments[1].Vector)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips rows with malformed embeddings", func(t *testing.T) {
		repo, mock, cleanup := newTestRepo(t)
		defer cleanup()

		rows := sqlmock.NewRows(columns).
			AddRow(1, "good", "[1,0]", "a.txt", "txt", now).
			AddRow(2, "brace form", "{1,0}", "a.txt", "txt", now).
			AddRow(3, "not numbers", "[1,oops]", "a.txt", "txt", now).
			AddRow(4, "empty", "[]", "a.txt", "txt", now).
			AddRow(5, "also good", "[0,1]", "a.txt", "txt", now)

		mock.ExpectQuery("SELECT id, corpus, embedding").WillReturnRows(rows)

		fragments, err := repo.FetchAll(context.Background())
		require.NoError(t, err)
		require.Len(t, fragments, 2)
		assert.Equal(t, int64(1), fragments[0].ID)
		assert.Equal(t, int64(5), fragments[1].ID)
	})

	t.Run("handles null source columns", func(t *testing.T) {
		repo, mock, cleanup := newTestRepo(t)
		defer cleanup()

		rows := sqlmock.NewRows(columns).
			AddRow(1, "orphan chunk", "[1]", nil, nil, now)

		mock.ExpectQuery("SELECT id, corpus, embedding").WillReturnRows(rows)

		fragments, err := repo.FetchAll(context.Background())
		require.NoError(t, err)
		require.Len(t, fragments, 1)
		assert.Empty(t, fragments[0].SourceName)
		assert.Empty(t, fragments[0].SourceType)
	})

	t.Run("propagates query errors", func(t *testing.T) {
		repo, mock, cleanup := newTestRepo(t)
		defer cleanup()

		mock.ExpectQuery("SELECT id, corpus, embedding").WillReturnError(sql.ErrConnDone)

		fragments, err := repo.FetchAll(context.Background())
		assert.Error(t, err)
		assert.Nil(t, fragments)
	})
}

func TestFragmentRepository_Insert(t *testing.T) {
	repo, mock, cleanup := newTestRepo(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO embeddings")).
		WithArgs("chunk text", "[0.5,-0.25]", "doc.txt", "txt").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Insert(context.Background(), "chunk text", []float64{0.5, -0.25}, "doc.txt", "txt")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFragmentRepository_SearchKeyword(t *testing.T) {
	columns := []string{"id", "corpus", "file_name", "file_type", "created_at"}
	now := time.Now()

	t.Run("matches case-insensitively with limit", func(t *testing.T) {
		repo, mock, cleanup := newTestRepo(t)
		defer cleanup()

		rows := sqlmock.NewRows(columns).
			AddRow(7, "The Go runtime schedules goroutines", "go.txt", "txt", now)

		mock.ExpectQuery("WHERE corpus ILIKE").
			WithArgs("%goroutine%", 10).
			WillReturnRows(rows)

		fragments, err := repo.SearchKeyword(context.Background(), "goroutine", 10)
		require.NoError(t, err)
		require.Len(t, fragments, 1)
		assert.Equal(t, int64(7), fragments[0].ID)
		assert.Nil(t, fragments[0].Vector)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns empty result set without error", func(t *testing.T) {
		repo, mock, cleanup := newTestRepo(t)
		defer cleanup()

		mock.ExpectQuery("WHERE corpus ILIKE").
			WithArgs("%nothing%", 5).
			WillReturnRows(sqlmock.NewRows(columns))

		fragments, err := repo.SearchKeyword(context.Background(), "nothing", 5)
		require.NoError(t, err)
		assert.Empty(t, fragments)
	})
}

func TestFragmentRepository_Count(t *testing.T) {
	repo, mock, cleanup := newTestRepo(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM embeddings")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}

func TestFragmentRepository_Stats(t *testing.T) {
	repo, mock, cleanup := newTestRepo(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(DISTINCT file_name)")).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sources", "avg"}).AddRow(120, 3, 412.5))

	mock.ExpectQuery("GROUP BY bucket").
		WillReturnRows(sqlmock.NewRows([]string{"bucket", "count"}).
			AddRow("200_to_499", 90).
			AddRow("500_and_over", 30))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 120, stats.TotalRecords)
	assert.Equal(t, 3, stats.UniqueSources)
	assert.InDelta(t, 412.5, stats.AvgLength, 0.001)
	assert.Equal(t, map[string]int{"200_to_499": 90, "500_and_over": 30}, stats.LengthDistribution)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVectorEncoding(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		vector := []float64{0.125, -3, 0.000001}
		parsed, err := parseVector(encodeVector(vector))
		require.NoError(t, err)
		assert.Equal(t, vector, parsed)
	})

	t.Run("accepts whitespace between components", func(t *testing.T) {
		parsed, err := parseVector("[ 0.1, 0.2 , 0.3 ]")
		require.NoError(t, err)
		assert.Equal(t, []float64{0.1, 0.2, 0.3}, parsed)
	})

	t.Run("rejects non-bracketed forms", func(t *testing.T) {
		for _, raw := range []string{"", "0.1,0.2", "{0.1,0.2}", "[0.1,0.2", "0.1,0.2]", "[]"} {
			_, err := parseVector(raw)
			assert.Error(t, err, "raw=%q", raw)
		}
	})
}
