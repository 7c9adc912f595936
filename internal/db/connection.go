package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

//go:embed schema.sql
var schema string

// Connect opens a small pool; the wallet writes a handful of rows per command.
// Connections are made lazily, so callers check reachability with TestConnection.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	cfg.MaxConns = 4
	cfg.MinConns = 0
	cfg.MaxConnIdleTime = 30 * time.Second
	cfg.MaxConnLifetime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return p, nil
}

// EnsureSchema creates the journal tables if they do not exist.
func EnsureSchema(ctx context.Context, p *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := p.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	log.Debug().Msg("Journal schema ready")
	return nil
}

func TestConnection(ctx context.Context, p *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var now time.Time
	err := p.QueryRow(ctx, "SELECT NOW()").Scan(&now)
	if err != nil {
		return fmt.Errorf("test query: %w", err)
	}
	log.Debug().Time("serverTime", now).Msg("Database connection successful")
	return nil
}
