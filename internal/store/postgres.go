// Package store mirrors daily stats into Postgres for ad-hoc querying. The
// CSV files under version control stay the source of truth; the mirror is
// optional and enabled by DATABASE_URL.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"brandtrack-backend/internal/stats"
)

type Postgres struct {
	db *sql.DB
}

func Open(connStr string) (*Postgres, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewWithDB wraps an existing connection; used by tests.
func NewWithDB(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// UpsertDaily inserts a daily row, replacing a previous row for the same
// date/site/keyword the same way the CSV store does.
func (p *Postgres) UpsertDaily(ctx context.Context, d stats.Daily) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO daily_stats (date, site, keyword, count, average_price, min_price, max_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (date, site, keyword) DO UPDATE SET
			count = EXCLUDED.count,
			average_price = EXCLUDED.average_price,
			min_price = EXCLUDED.min_price,
			max_price = EXCLUDED.max_price
	`, d.Date, d.Site, d.Keyword, d.Count, d.AveragePrice, d.MinPrice, d.MaxPrice)
	if err != nil {
		return fmt.Errorf("upsert daily stats: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
