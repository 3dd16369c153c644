package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/ocean-news/internal/news"
)

func newMockStore(t *testing.T) (*AttemptStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	s, err := NewWithPool(mock, "")
	require.NoError(t, err)
	return s, mock
}

func TestNewWithPoolValidates(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(nil, "")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = NewWithPool(mock, "attempts; DROP TABLE x")
	require.Error(t, err)
}

func TestNewRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}

func TestRecordAttemptInsertsRow(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	attempt := news.FetchAttempt{
		ID:           "0195-attempt",
		AttemptedAt:  at,
		Day:          "2025-03-14",
		Source:       news.SourceSecondary,
		Success:      true,
		ArticleCount: 27,
	}

	mock.ExpectExec("INSERT INTO news_fetch_attempts").
		WithArgs("0195-attempt", at, "2025-03-14", "secondary", true, 27, (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.RecordAttempt(context.Background(), attempt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAttemptStoresErrorText(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	msg := "primary status 500"

	mock.ExpectExec("INSERT INTO news_fetch_attempts").
		WithArgs("id-2", at, "2025-03-14", "primary", false, 0, &msg).
		WillReturnError(errors.New("connection refused"))

	err := s.RecordAttempt(context.Background(), news.FetchAttempt{
		ID: "id-2", AttemptedAt: at, Day: "2025-03-14", Source: news.SourcePrimary, ErrorText: msg,
	})
	require.ErrorContains(t, err, "connection refused")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAttemptRequiresID(t *testing.T) {
	t.Parallel()

	s, _ := newMockStore(t)
	require.Error(t, s.RecordAttempt(context.Background(), news.FetchAttempt{}))
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS news_fetch_attempts").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentScansRows(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"id", "attempted_at", "day", "source", "success", "article_count", "error_text"}).
		AddRow("id-2", at.Add(time.Hour), "2025-03-14", "primary", false, 0, "primary status 500").
		AddRow("id-1", at, "2025-03-14", "primary", true, 31, "")

	mock.ExpectQuery("SELECT id, attempted_at").
		WithArgs("2025-03-14", 5).
		WillReturnRows(rows)

	got, err := s.Recent(context.Background(), "2025-03-14", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "id-2", got[0].ID)
	require.Equal(t, news.SourcePrimary, got[0].Source)
	require.Equal(t, "primary status 500", got[0].ErrorText)
	require.True(t, got[1].Success)
	require.Equal(t, 31, got[1].ArticleCount)
	require.NoError(t, mock.ExpectationsWereMet())
}
