package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	ctx := context.Background()

	report := sampleReport("report-1", time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))
	require.NoError(t, store.Save(ctx, report))

	got, err := store.Get(ctx, "report-1")
	require.NoError(t, err)
	require.Equal(t, report, got)

	_, err = store.Get(ctx, "nope")
	require.ErrorIs(t, err, ErrReportNotFound)
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, sampleReport("old", base)))
	require.NoError(t, store.Save(ctx, sampleReport("new", base.Add(time.Minute))))

	rows, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "new", rows[0].ID)
	require.Equal(t, "old", rows[1].ID)
}
