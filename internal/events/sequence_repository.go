package events

import (
	"context"
	"database/sql"
	"fmt"
)

// Thin seams over database/sql so NextSequence is testable without a live
// postgres.

type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (seqTx, error)
}

type seqTx interface {
	QueryRowContext(ctx context.Context, query string, args ...any) seqRow
	Commit() error
	Rollback() error
}

type seqRow interface {
	Scan(dest ...any) error
}

type sequenceRepository struct {
	db txBeginner
}

func NewSequenceRepository(db *sql.DB) SequenceRepository {
	return &sequenceRepository{db: dbTxBeginner{db: db}}
}

// NextSequence advances and returns the per-partition counter in one upsert,
// so concurrent publishers for different orders never contend.
func (r *sequenceRepository) NextSequence(ctx context.Context, partitionKey string) (int64, error) {
	if partitionKey == "" {
		return 0, fmt.Errorf("sequence: empty partition key")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin sequence tx: %w", err)
	}

	const upsert = `
INSERT INTO event_sequences (partition_key, last_sequence, updated_at)
VALUES ($1, 1, NOW())
ON CONFLICT (partition_key) DO UPDATE
SET last_sequence = event_sequences.last_sequence + 1,
    updated_at = NOW()
RETURNING last_sequence
`

	var next int64
	if err := tx.QueryRowContext(ctx, upsert, partitionKey).Scan(&next); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("advance sequence for %q: %w", partitionKey, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit sequence: %w", err)
	}

	return next, nil
}

type dbTxBeginner struct {
	db *sql.DB
}

func (b dbTxBeginner) BeginTx(ctx context.Context, opts *sql.TxOptions) (seqTx, error) {
	tx, err := b.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return dbTx{tx: tx}, nil
}

type dbTx struct {
	tx *sql.Tx
}

func (d dbTx) QueryRowContext(ctx context.Context, query string, args ...any) seqRow {
	return d.tx.QueryRowContext(ctx, query, args...)
}

func (d dbTx) Commit() error {
	return d.tx.Commit()
}

func (d dbTx) Rollback() error {
	return d.tx.Rollback()
}
