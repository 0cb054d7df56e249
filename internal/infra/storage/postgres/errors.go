package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/vietddude/remediator/internal/infra/storage"
)

const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
)

// sqlState extracts the SQLSTATE code from either driver's error type.
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// mapConstraintError turns constraint violations on correction_records into
// storage sentinels.
func mapConstraintError(err error) error {
	switch sqlState(err) {
	case codeForeignKeyViolation:
		return storage.ErrErrorRecordNotFound
	case codeUniqueViolation:
		return storage.ErrDuplicateCorrection
	}
	return nil
}
