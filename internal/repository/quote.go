package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/trahn-wallet/internal/models"
)

const quoteColumns = `id, timestamp, symbol, ticker, price::text, source, created_at`

type QuoteRepo struct {
	pool *pgxpool.Pool
}

func NewQuoteRepo(pool *pgxpool.Pool) *QuoteRepo {
	return &QuoteRepo{pool: pool}
}

func (r *QuoteRepo) Record(ctx context.Context, q *models.PriceQuote) (*models.PriceQuote, error) {
	ts := q.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO price_quotes (timestamp, symbol, ticker, price, source)
		 VALUES ($1, $2, $3, $4::numeric, $5) RETURNING `+quoteColumns,
		ts, q.Symbol, q.Ticker, q.Price, q.Source,
	)
	return scanQuote(row)
}

// GetLatest returns the most recent quote for ticker, or nil if none exists.
func (r *QuoteRepo) GetLatest(ctx context.Context, ticker string) (*models.PriceQuote, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+quoteColumns+` FROM price_quotes WHERE ticker = $1 ORDER BY timestamp DESC LIMIT 1`,
		ticker,
	)
	q, err := scanQuote(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return q, err
}

func scanQuote(row scannable) (*models.PriceQuote, error) {
	var q models.PriceQuote
	err := row.Scan(&q.ID, &q.Timestamp, &q.Symbol, &q.Ticker, &q.Price, &q.Source, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}
