// Package audit is the durable log of failures and correction attempts.
// Writes never fail the caller: errors are logged, counted and swallowed.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/remediator/internal/core/domain"
	"github.com/vietddude/remediator/internal/infra/storage"
	"github.com/vietddude/remediator/internal/remediation/metrics"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// Stats summarizes error records by status.
type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// FailureRatio is the share of finalized records whose correction failed.
func (s Stats) FailureRatio() float64 {
	finalized := s.Completed + s.Failed
	if finalized == 0 {
		return 0
	}
	return float64(s.Failed) / float64(finalized)
}

// Config configures a Store.
type Config struct {
	HistoryLimit int
	Logger       *slog.Logger
}

// Store fronts the error and correction repositories.
type Store struct {
	errors       storage.ErrorRepository
	corrections  storage.CorrectionRepository
	pinger       storage.Pinger
	historyLimit int
	log          *slog.Logger
}

// NewStore creates an audit store. pinger may be nil for backends without a
// reachability check.
func NewStore(
	errs storage.ErrorRepository,
	corrections storage.CorrectionRepository,
	pinger storage.Pinger,
	cfg Config,
) *Store {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.HistoryLimit > MaxHistoryLimit {
		cfg.HistoryLimit = MaxHistoryLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{
		errors:       errs,
		corrections:  corrections,
		pinger:       pinger,
		historyLimit: cfg.HistoryLimit,
		log:          cfg.Logger,
	}
}

// RecordError inserts a pending error record. It reports whether the write
// succeeded.
func (s *Store) RecordError(ctx context.Context, rec *domain.ErrorRecord) bool {
	if rec.Status == "" {
		rec.Status = domain.ErrorStatusPending
	}
	if err := s.errors.Save(ctx, rec); err != nil {
		s.writeFailed("record_error", err, "error_id", rec.ID)
		return false
	}
	return true
}

// RecordCorrection inserts a correction record.
func (s *Store) RecordCorrection(ctx context.Context, rec *domain.CorrectionRecord) bool {
	if err := s.corrections.Save(ctx, rec); err != nil {
		s.writeFailed("record_correction", err, "error_id", rec.ErrorID, "correction_id", rec.ID)
		return false
	}
	return true
}

// UpdateCorrectionStatus sets the outcome of a pending error record.
func (s *Store) UpdateCorrectionStatus(ctx context.Context, errorID string, status domain.ErrorStatus, message string) bool {
	if err := s.errors.UpdateStatus(ctx, errorID, status, message); err != nil {
		s.writeFailed("update_status", err, "error_id", errorID, "status", status)
		return false
	}
	return true
}

func (s *Store) writeFailed(op string, err error, args ...any) {
	metrics.AuditWriteErrors.WithLabelValues(op).Inc()
	s.log.Error("Audit write failed", append([]any{"op", op, "error", err}, args...)...)
}

// DefaultLimit is the history size used when a caller does not ask for one.
func (s *Store) DefaultLimit() int {
	return s.historyLimit
}

// Limit caps a requested history size at MaxHistoryLimit. Non-positive
// requests yield an empty page.
func (s *Store) Limit(limit int) int {
	if limit <= 0 {
		return 0
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

// GetErrorHistory returns the most recent error records, newest first.
func (s *Store) GetErrorHistory(ctx context.Context, limit int) ([]*domain.ErrorRecord, error) {
	records, err := s.errors.List(ctx, s.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get error history: %w", err)
	}
	return records, nil
}

// GetCorrectionHistory returns the most recent correction records, newest first.
func (s *Store) GetCorrectionHistory(ctx context.Context, limit int) ([]*domain.CorrectionRecord, error) {
	records, err := s.corrections.List(ctx, s.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get correction history: %w", err)
	}
	return records, nil
}

// GetError returns one error record, nil if it does not exist.
func (s *Store) GetError(ctx context.Context, id string) (*domain.ErrorRecord, error) {
	rec, err := s.errors.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get error record: %w", err)
	}
	return rec, nil
}

// GetCorrection returns the correction recorded for an error, nil if none.
func (s *Store) GetCorrection(ctx context.Context, errorID string) (*domain.CorrectionRecord, error) {
	rec, err := s.corrections.GetByErrorID(ctx, errorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get correction: %w", err)
	}
	return rec, nil
}

// Stats counts error records by status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	counts := []struct {
		status domain.ErrorStatus
		dst    *int
	}{
		{"", &st.Total},
		{domain.ErrorStatusPending, &st.Pending},
		{domain.ErrorStatusCompleted, &st.Completed},
		{domain.ErrorStatusFailed, &st.Failed},
	}
	for _, c := range counts {
		n, err := s.errors.Count(ctx, c.status)
		if err != nil {
			return Stats{}, fmt.Errorf("failed to count error records: %w", err)
		}
		*c.dst = n
	}
	return st, nil
}

// Prune deletes records older than the retention period.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	deleted, err := s.errors.DeleteOlderThan(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit records: %w", err)
	}
	return deleted, nil
}

// Health reports whether the backing store is reachable.
func (s *Store) Health(ctx context.Context) error {
	if s.pinger == nil {
		return nil
	}
	return s.pinger.Health(ctx)
}
