package surveilans

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewConsolidator(t *testing.T) {
	_, err := NewConsolidator(nil)
	assert.ErrorIs(t, err, errMissingStore)

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	_, err = NewConsolidator(store, WithReadConcurrency(0))
	assert.ErrorIs(t, err, errInvalidAttempts)
}

func TestConsolidatorMerge(t *testing.T) {
	jan := Month{2025, time.January}
	feb := Month{2025, time.February}
	mar := Month{2025, time.March}

	t.Run("Skips missing months and keeps month order", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewStore(dir)
		require.NoError(t, err)
		ctx := context.Background()

		janRecords := sampleRecords()
		marRecords := sampleRecords()[:1]
		marRecords[0].Date = time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC)
		_, err = store.WriteMonth(ctx, "DBD", jan, janRecords)
		require.NoError(t, err)
		_, err = store.WriteMonth(ctx, "DBD", mar, marRecords)
		require.NoError(t, err)

		logger := newMockLogger(t)
		c, err := NewConsolidator(store, WithConsolidatorLogger(logger), WithReadConcurrency(1))
		require.NoError(t, err)

		report, err := c.Merge(ctx, "DBD", jan, mar)

		require.NoError(t, err)
		assert.Equal(t, []Month{jan, mar}, report.Found)
		assert.Equal(t, []Month{feb}, report.Missing)
		assert.Equal(t, 3, report.Rows)
		assert.Equal(t, filepath.Join(dir, "MERGED_jakarta_health_data_DBD_2025-01_to_2025-03.csv"), report.Output)
		logger.AssertCalled(t, "Warn", "Monthly extract not found, skipping", mock.Anything)

		body, err := os.ReadFile(report.Output)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(body)), "\n")
		require.Len(t, lines, 4, "one header and three rows")
		assert.Equal(t, strings.Join(ExtractHeader, ","), lines[0])
		assert.Contains(t, lines[1], "2025-01-03")
		assert.Contains(t, lines[2], "2025-01-17")
		assert.Contains(t, lines[3], "2025-03-09")
	})

	t.Run("No files at all writes nothing", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewStore(dir)
		require.NoError(t, err)
		logger := newMockLogger(t)
		c, err := NewConsolidator(store, WithConsolidatorLogger(logger))
		require.NoError(t, err)

		report, err := c.Merge(context.Background(), "DBD", jan, mar)

		assert.ErrorIs(t, err, ErrNothingToMerge)
		assert.Len(t, report.Missing, 3)
		assert.Empty(t, report.Output)
		logger.AssertCalled(t, "Error", "Merge cancelled: no monthly extracts found", mock.Anything)
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("A corrupt extract fails the merge", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewStore(dir)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(store.Path(ExtractFileName("DBD", jan)), []byte("x,y\n1,2\n"), 0644))
		c, err := NewConsolidator(store)
		require.NoError(t, err)

		_, err = c.Merge(context.Background(), "DBD", jan, jan)

		assert.Error(t, err)
		_, statErr := os.Stat(store.Path(MergedFileName("DBD", jan, jan)))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("Reversed range", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)
		c, err := NewConsolidator(store)
		require.NoError(t, err)

		_, err = c.Merge(context.Background(), "DBD", mar, jan)

		assert.ErrorIs(t, err, errInvalidRange)
	})
}
