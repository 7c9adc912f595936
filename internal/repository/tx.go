package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/trahn-wallet/internal/models"
)

const txColumns = `id, timestamp, chain, kind, label, tx_hash, from_address, to_address,
	value::text, nonce, gas, gas_price::text, status, block_number, error, created_at`

// TxRepo journals submitted transactions. Rows are an audit trail and are
// never read back to drive wallet behavior.
type TxRepo struct {
	pool *pgxpool.Pool
}

func NewTxRepo(pool *pgxpool.Pool) *TxRepo {
	return &TxRepo{pool: pool}
}

func (r *TxRepo) RecordSubmission(ctx context.Context, s *models.Submission) (*models.Submission, error) {
	ts := s.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO wallet_transactions
		 (timestamp, chain, kind, label, tx_hash, from_address, to_address,
		  value, nonce, gas, gas_price, status, block_number, error)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8::numeric,$9,$10,$11::numeric,$12,$13,$14)
		 RETURNING `+txColumns,
		ts, s.Chain, s.Kind, s.Label, s.TxHash, s.FromAddress, s.ToAddress,
		s.Value, int64(s.Nonce), int64(s.Gas), s.GasPrice, s.Status, s.BlockNumber, s.Error,
	)
	return scanSubmission(row)
}

// GetByHash returns every journal row for hash, oldest first.
func (r *TxRepo) GetByHash(ctx context.Context, hash string) ([]models.Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+txColumns+` FROM wallet_transactions WHERE tx_hash = $1 ORDER BY timestamp ASC`,
		hash,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubmissions(rows)
}

// Recent returns the latest submissions sent from address.
func (r *TxRepo) Recent(ctx context.Context, from string, limit int) ([]models.Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+txColumns+` FROM wallet_transactions
		 WHERE from_address = $1 ORDER BY timestamp DESC LIMIT $2`,
		from, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubmissions(rows)
}

// --- scan helpers ---

func scanSubmission(row scannable) (*models.Submission, error) {
	var s models.Submission
	var nonce, gas int64
	err := row.Scan(
		&s.ID, &s.Timestamp, &s.Chain, &s.Kind, &s.Label, &s.TxHash, &s.FromAddress, &s.ToAddress,
		&s.Value, &nonce, &gas, &s.GasPrice, &s.Status, &s.BlockNumber, &s.Error, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Nonce = uint64(nonce)
	s.Gas = uint64(gas)
	return &s, nil
}

func collectSubmissions(rows rowsIter) ([]models.Submission, error) {
	var out []models.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}
