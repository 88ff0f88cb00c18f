package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandtrack-backend/internal/stats"
)

func TestUpsertDaily(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pg := NewWithDB(db)

	d := stats.Daily{
		Date:         time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		Site:         "mercari",
		Keyword:      "Supreme",
		Count:        3,
		AveragePrice: 2333.33,
		MinPrice:     1000,
		MaxPrice:     4000,
	}

	mock.ExpectExec("INSERT INTO daily_stats").
		WithArgs(d.Date, "mercari", "Supreme", 3, 2333.33, 1000, 4000).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, pg.UpsertDaily(context.Background(), d))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertDaily_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pg := NewWithDB(db)

	mock.ExpectExec("INSERT INTO daily_stats").
		WillReturnError(errors.New("connection reset"))

	err = pg.UpsertDaily(context.Background(), stats.Daily{Site: "mercari", Keyword: "Supreme"})
	assert.Error(t, err)
}
