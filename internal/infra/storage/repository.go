package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/remediator/internal/core/domain"
)

var (
	// ErrErrorRecordNotFound is returned when an error record doesn't exist
	ErrErrorRecordNotFound = errors.New("error record not found")

	// ErrDuplicateErrorRecord is returned when an error record id is already taken
	ErrDuplicateErrorRecord = errors.New("error record already exists")

	// ErrStatusFinalized is returned when an error record already carries a correction outcome
	ErrStatusFinalized = errors.New("error record status already finalized")

	// ErrDuplicateCorrection is returned when an error record already has a correction record
	ErrDuplicateCorrection = errors.New("correction already recorded for error")

	// ErrInvalidStatus is returned for status updates that are not a correction outcome
	ErrInvalidStatus = errors.New("invalid correction status")
)

// ErrorRepository handles error record storage
type ErrorRepository interface {
	// Save inserts a new error record
	Save(ctx context.Context, record *domain.ErrorRecord) error

	// UpdateStatus moves a pending record to completed or failed (atomic operation)
	UpdateStatus(ctx context.Context, id string, status domain.ErrorStatus, message string) error

	// GetByID retrieves an error record
	GetByID(ctx context.Context, id string) (*domain.ErrorRecord, error)

	// List returns up to limit records, most recent first
	List(ctx context.Context, limit int) ([]*domain.ErrorRecord, error)

	// Count returns the number of records with the given status ("" counts all)
	Count(ctx context.Context, status domain.ErrorStatus) (int, error)

	// DeleteOlderThan removes records created before threshold together with
	// their correction records
	DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error)
}

// CorrectionRepository handles correction record storage
type CorrectionRepository interface {
	// Save inserts a correction record; its error record must exist and have no
	// correction yet
	Save(ctx context.Context, record *domain.CorrectionRecord) error

	// GetByErrorID retrieves the correction for an error record, nil if none
	GetByErrorID(ctx context.Context, errorID string) (*domain.CorrectionRecord, error)

	// List returns up to limit records, most recent first
	List(ctx context.Context, limit int) ([]*domain.CorrectionRecord, error)
}

// Pinger is implemented by backends that can report reachability
type Pinger interface {
	Health(ctx context.Context) error
}

// ValidateOutcome checks that status is a correction outcome.
func ValidateOutcome(status domain.ErrorStatus) error {
	if !status.Final() {
		return ErrInvalidStatus
	}
	return nil
}
