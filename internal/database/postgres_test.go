package database

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestPostgresSaveInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPostgresStoreWithPool(mock, "analyses")
	require.NoError(t, err)

	report := sampleReport("report-1", time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))
	row := report.Row()

	mock.ExpectExec("INSERT INTO analyses").
		WithArgs(
			row.ID,
			row.URL,
			row.CrawlDelaySeconds,
			row.Allowed,
			row.Title,
			row.Description,
			row.LinkCount,
			row.IsJSHeavy,
			row.HasAPI,
			row.FeedCount,
			string(row.Recommendation),
			row.GeneratedAt.UTC(),
			pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Save(context.Background(), report))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetUnmarshalsReport(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPostgresStoreWithPool(mock, "analyses")
	require.NoError(t, err)

	report := sampleReport("report-1", time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))
	payload, err := json.Marshal(report)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT report FROM analyses").
		WithArgs("report-1").
		WillReturnRows(pgxmock.NewRows([]string{"report"}).AddRow(payload))

	got, err := store.Get(context.Background(), "report-1")
	require.NoError(t, err)
	require.Equal(t, report, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetMissing(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPostgresStoreWithPool(mock, "analyses")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT report FROM analyses").
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{"report"}))

	_, err = store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrReportNotFound)
}

func TestPostgresStoreRejectsBadTableName(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPostgresStoreWithPool(mock, "analyses; DROP TABLE users")
	require.Error(t, err)
}
