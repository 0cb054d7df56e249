package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// UnitOfWork bundles several statements into a single database transaction,
// ensuring atomicity (all succeed or all fail).
type UnitOfWork struct {
	tx *sqlx.Tx
}

// NewUnitOfWork creates a new unit of work with an active transaction.
func (db *DB) NewUnitOfWork(ctx context.Context) (*UnitOfWork, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &UnitOfWork{tx: tx}, nil
}

// Commit commits the transaction.
func (u *UnitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("transaction already completed")
	}
	err := u.tx.Commit()
	u.tx = nil
	return err
}

// Rollback rolls back the transaction. Safe to call multiple times.
func (u *UnitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Already committed or rolled back
	}
	err := u.tx.Rollback()
	u.tx = nil
	return err
}

// DeleteCorrectionsBefore removes corrections whose error record is older
// than threshold.
func (u *UnitOfWork) DeleteCorrectionsBefore(ctx context.Context, threshold time.Time) (int64, error) {
	query := `
		DELETE FROM correction_records
		WHERE error_id IN (SELECT id FROM error_records WHERE created_at < $1)
	`
	res, err := u.tx.ExecContext(ctx, query, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to delete correction records: %w", err)
	}
	return res.RowsAffected()
}

// DeleteErrorsBefore removes error records older than threshold.
func (u *UnitOfWork) DeleteErrorsBefore(ctx context.Context, threshold time.Time) (int64, error) {
	res, err := u.tx.ExecContext(ctx, `DELETE FROM error_records WHERE created_at < $1`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to delete error records: %w", err)
	}
	return res.RowsAffected()
}
