package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/remediator/internal/core/domain"
	"github.com/vietddude/remediator/internal/infra/storage"
)

// ErrorRepo implements storage.ErrorRepository using PostgreSQL.
type ErrorRepo struct {
	db *DB
}

// NewErrorRepo creates a new PostgreSQL error record repository.
func NewErrorRepo(db *DB) *ErrorRepo {
	return &ErrorRepo{db: db}
}

type errorRow struct {
	ID            string         `db:"id"`
	Kind          string         `db:"kind"`
	Location      sql.NullString `db:"location"`
	Category      string         `db:"category"`
	Message       string         `db:"message"`
	Status        string         `db:"status"`
	StatusMessage sql.NullString `db:"status_message"`
	Code          sql.NullString `db:"code"`
	StackTrace    sql.NullString `db:"stack_trace"`
	Extra         []byte         `db:"extra"`
	CreatedAt     time.Time      `db:"created_at"`
}

const errorColumns = `id, kind, location, category, message, status, status_message, code, stack_trace, extra, created_at`

func (row *errorRow) toDomain() (*domain.ErrorRecord, error) {
	rec := &domain.ErrorRecord{
		ID:            row.ID,
		Kind:          domain.FailureKind(row.Kind),
		Location:      ptrFromNull(row.Location),
		Category:      domain.Category(row.Category),
		Message:       row.Message,
		Status:        domain.ErrorStatus(row.Status),
		StatusMessage: row.StatusMessage.String,
		Code:          ptrFromNull(row.Code),
		StackTrace:    ptrFromNull(row.StackTrace),
		CreatedAt:     row.CreatedAt,
	}
	if len(row.Extra) > 0 {
		if err := json.Unmarshal(row.Extra, &rec.Extra); err != nil {
			return nil, fmt.Errorf("failed to decode extra for error record %s: %w", row.ID, err)
		}
	}
	return rec, nil
}

// Save inserts a new error record.
func (r *ErrorRepo) Save(ctx context.Context, rec *domain.ErrorRecord) error {
	extra, err := marshalJSON(rec.Extra, "{}")
	if err != nil {
		return fmt.Errorf("failed to encode extra: %w", err)
	}
	status := rec.Status
	if status == "" {
		status = domain.ErrorStatusPending
	}

	query := `
		INSERT INTO error_records (id, kind, location, category, message, status, status_message, code, stack_trace, extra, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.db.ExecContext(
		ctx,
		query,
		rec.ID,
		string(rec.Kind),
		nullFromPtr(rec.Location),
		string(rec.Category),
		rec.Message,
		string(status),
		nullFromString(rec.StatusMessage),
		nullFromPtr(rec.Code),
		nullFromPtr(rec.StackTrace),
		extra,
		rec.CreatedAt,
	)
	if err != nil {
		if sqlState(err) == codeUniqueViolation {
			return storage.ErrDuplicateErrorRecord
		}
		return fmt.Errorf("failed to save error record: %w", err)
	}
	return nil
}

// UpdateStatus moves a pending record to its correction outcome.
func (r *ErrorRepo) UpdateStatus(ctx context.Context, id string, status domain.ErrorStatus, message string) error {
	if err := storage.ValidateOutcome(status); err != nil {
		return err
	}

	query := `
		UPDATE error_records
		SET status = $2, status_message = $3
		WHERE id = $1 AND status = 'pending'
	`
	res, err := r.db.ExecContext(ctx, query, id, string(status), nullFromString(message))
	if err != nil {
		return fmt.Errorf("failed to update error status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var current string
	err = r.db.GetContext(ctx, &current, `SELECT status FROM error_records WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrErrorRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check error status: %w", err)
	}
	return storage.ErrStatusFinalized
}

// GetByID retrieves an error record, nil if it does not exist.
func (r *ErrorRepo) GetByID(ctx context.Context, id string) (*domain.ErrorRecord, error) {
	var row errorRow
	err := r.db.GetContext(ctx, &row, `SELECT `+errorColumns+` FROM error_records WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get error record: %w", err)
	}
	return row.toDomain()
}

// List returns up to limit records, most recent first.
func (r *ErrorRepo) List(ctx context.Context, limit int) ([]*domain.ErrorRecord, error) {
	if limit <= 0 {
		return []*domain.ErrorRecord{}, nil
	}

	query := `SELECT ` + errorColumns + `
		FROM error_records
		ORDER BY created_at DESC, seq DESC
		LIMIT $1`

	var rows []errorRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list error records: %w", err)
	}

	out := make([]*domain.ErrorRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Count returns the number of records with the given status; "" counts all.
func (r *ErrorRepo) Count(ctx context.Context, status domain.ErrorStatus) (int, error) {
	var (
		count int
		err   error
	)
	if status == "" {
		err = r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM error_records`)
	} else {
		err = r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM error_records WHERE status = $1`, string(status))
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count error records: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes records created before threshold together with
// their corrections in a single transaction.
func (r *ErrorRepo) DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	uow, err := r.db.NewUnitOfWork(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = uow.Rollback() }()

	if _, err := uow.DeleteCorrectionsBefore(ctx, threshold); err != nil {
		return 0, err
	}
	deleted, err := uow.DeleteErrorsBefore(ctx, threshold)
	if err != nil {
		return 0, err
	}
	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit retention cleanup: %w", err)
	}
	return deleted, nil
}

func marshalJSON(v any, empty string) (string, error) {
	if v == nil {
		return empty, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

func nullFromPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFromString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func ptrFromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
