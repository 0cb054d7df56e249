package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/remediator/internal/core/domain"
)

// CorrectionRepo implements storage.CorrectionRepository using PostgreSQL.
type CorrectionRepo struct {
	db *DB
}

// NewCorrectionRepo creates a new PostgreSQL correction record repository.
func NewCorrectionRepo(db *DB) *CorrectionRepo {
	return &CorrectionRepo{db: db}
}

type correctionRow struct {
	ID              string    `db:"id"`
	ErrorID         string    `db:"error_id"`
	Success         bool      `db:"success"`
	Action          string    `db:"action"`
	AppliedFixes    []byte    `db:"applied_fixes"`
	RemainingIssues []byte    `db:"remaining_issues"`
	Verification    []byte    `db:"verification_result"`
	CreatedAt       time.Time `db:"created_at"`
}

const correctionColumns = `id, error_id, success, action, applied_fixes, remaining_issues, verification_result, created_at`

func (row *correctionRow) toDomain() (*domain.CorrectionRecord, error) {
	rec := &domain.CorrectionRecord{
		ID:        row.ID,
		ErrorID:   row.ErrorID,
		Success:   row.Success,
		Action:    row.Action,
		CreatedAt: row.CreatedAt,
	}
	if err := unmarshalColumn(row.AppliedFixes, &rec.AppliedFixes); err != nil {
		return nil, fmt.Errorf("failed to decode applied fixes for %s: %w", row.ID, err)
	}
	if err := unmarshalColumn(row.RemainingIssues, &rec.RemainingIssues); err != nil {
		return nil, fmt.Errorf("failed to decode remaining issues for %s: %w", row.ID, err)
	}
	if err := unmarshalColumn(row.Verification, &rec.Verification); err != nil {
		return nil, fmt.Errorf("failed to decode verification for %s: %w", row.ID, err)
	}
	return rec, nil
}

// Save inserts a correction record. Foreign key and uniqueness violations are
// reported as storage sentinels.
func (r *CorrectionRepo) Save(ctx context.Context, rec *domain.CorrectionRecord) error {
	fixes, err := marshalJSON(rec.AppliedFixes, "[]")
	if err != nil {
		return fmt.Errorf("failed to encode applied fixes: %w", err)
	}
	issues, err := marshalJSON(rec.RemainingIssues, "[]")
	if err != nil {
		return fmt.Errorf("failed to encode remaining issues: %w", err)
	}
	verification, err := marshalJSON(rec.Verification, "{}")
	if err != nil {
		return fmt.Errorf("failed to encode verification: %w", err)
	}

	query := `
		INSERT INTO correction_records (id, error_id, success, action, applied_fixes, remaining_issues, verification_result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(
		ctx,
		query,
		rec.ID,
		rec.ErrorID,
		rec.Success,
		rec.Action,
		fixes,
		issues,
		verification,
		rec.CreatedAt,
	)
	if err != nil {
		if mapped := mapConstraintError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to save correction record: %w", err)
	}
	return nil
}

// GetByErrorID retrieves the correction for an error record, nil if none.
func (r *CorrectionRepo) GetByErrorID(ctx context.Context, errorID string) (*domain.CorrectionRecord, error) {
	var row correctionRow
	err := r.db.GetContext(ctx, &row, `SELECT `+correctionColumns+` FROM correction_records WHERE error_id = $1`, errorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get correction record: %w", err)
	}
	return row.toDomain()
}

// List returns up to limit records, most recent first.
func (r *CorrectionRepo) List(ctx context.Context, limit int) ([]*domain.CorrectionRecord, error) {
	if limit <= 0 {
		return []*domain.CorrectionRecord{}, nil
	}

	query := `SELECT ` + correctionColumns + `
		FROM correction_records
		ORDER BY created_at DESC, seq DESC
		LIMIT $1`

	var rows []correctionRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list correction records: %w", err)
	}

	out := make([]*domain.CorrectionRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func unmarshalColumn(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}
