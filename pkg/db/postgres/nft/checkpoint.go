package nft

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (db *DB) initCheckpoint(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			chain_id BIGINT PRIMARY KEY,
			sequence_number BIGINT NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
	`, db.SchemaTable("check_point"))

	return db.Exec(ctx, query)
}

// Cursor returns the last committed checkpoint. ok is false when nothing has
// been committed for this chain yet.
func (db *DB) Cursor(ctx context.Context) (seq uint64, ok bool, err error) {
	query := fmt.Sprintf(`SELECT sequence_number FROM %s WHERE chain_id = $1`, db.SchemaTable("check_point"))

	var v int64
	err = db.QueryRow(ctx, query, db.ChainID).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query cursor: %w", err)
	}
	return uint64(v), true, nil
}

// LockCursor reads the cursor row and holds its lock until the transaction ends.
func (t *Tx) LockCursor(ctx context.Context) (seq uint64, ok bool, err error) {
	query := fmt.Sprintf(`SELECT sequence_number FROM %s WHERE chain_id = $1 FOR UPDATE`, t.table("check_point"))

	var v int64
	err = t.tx.QueryRow(ctx, query, t.chainID).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lock cursor: %w", err)
	}
	return uint64(v), true, nil
}

// AdvanceCursor records seq as the last committed checkpoint.
func (t *Tx) AdvanceCursor(ctx context.Context, seq uint64) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (chain_id, sequence_number, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (chain_id) DO UPDATE SET
			sequence_number = EXCLUDED.sequence_number,
			updated_at = NOW()
	`, t.table("check_point"))

	if _, err := t.tx.Exec(ctx, query, t.chainID, int64(seq)); err != nil {
		return fmt.Errorf("advance cursor: %w", err)
	}
	return nil
}
