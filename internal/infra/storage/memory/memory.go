package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/remediator/internal/core/domain"
	"github.com/vietddude/remediator/internal/infra/storage"
)

type errorEntry struct {
	seq    uint64
	record domain.ErrorRecord
}

type correctionEntry struct {
	seq    uint64
	record domain.CorrectionRecord
}

// MemoryStorage keeps the audit log in process. Every operation holds the
// lock for its whole duration, so each write is atomic.
type MemoryStorage struct {
	errors      map[string]*errorEntry
	corrections map[string]*correctionEntry
	byError     map[string]string
	seq         uint64
	mu          sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		errors:      make(map[string]*errorEntry),
		corrections: make(map[string]*correctionEntry),
		byError:     make(map[string]string),
	}
}

func (s *MemoryStorage) Health(ctx context.Context) error { return nil }

func (s *MemoryStorage) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// -----------------------------------------------------------------------------
// Error Repository
// -----------------------------------------------------------------------------

type ErrorRepo struct {
	store *MemoryStorage
}

func NewErrorRepo(store *MemoryStorage) *ErrorRepo {
	return &ErrorRepo{store: store}
}

func (r *ErrorRepo) Save(ctx context.Context, rec *domain.ErrorRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.errors[rec.ID]; ok {
		return storage.ErrDuplicateErrorRecord
	}
	r.store.errors[rec.ID] = &errorEntry{seq: r.store.nextSeq(), record: cloneError(rec)}
	return nil
}

func (r *ErrorRepo) UpdateStatus(ctx context.Context, id string, status domain.ErrorStatus, msg string) error {
	if err := storage.ValidateOutcome(status); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.errors[id]
	if !ok {
		return storage.ErrErrorRecordNotFound
	}
	if e.record.Status != domain.ErrorStatusPending {
		return storage.ErrStatusFinalized
	}
	e.record.Status = status
	e.record.StatusMessage = msg
	return nil
}

func (r *ErrorRepo) GetByID(ctx context.Context, id string) (*domain.ErrorRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	e, ok := r.store.errors[id]
	if !ok {
		return nil, nil
	}
	rec := cloneError(&e.record)
	return &rec, nil
}

func (r *ErrorRepo) List(ctx context.Context, limit int) ([]*domain.ErrorRecord, error) {
	if limit <= 0 {
		return []*domain.ErrorRecord{}, nil
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	entries := make([]*errorEntry, 0, len(r.store.errors))
	for _, e := range r.store.errors {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return newer(entries[i].record.CreatedAt, entries[i].seq, entries[j].record.CreatedAt, entries[j].seq)
	})

	out := make([]*domain.ErrorRecord, 0, min(limit, len(entries)))
	for _, e := range entries {
		if len(out) >= limit {
			break
		}
		rec := cloneError(&e.record)
		out = append(out, &rec)
	}
	return out, nil
}

func (r *ErrorRepo) Count(ctx context.Context, status domain.ErrorStatus) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if status == "" {
		return len(r.store.errors), nil
	}
	count := 0
	for _, e := range r.store.errors {
		if e.record.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *ErrorRepo) DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var deleted int64
	for id, e := range r.store.errors {
		if !e.record.CreatedAt.Before(threshold) {
			continue
		}
		if cid, ok := r.store.byError[id]; ok {
			delete(r.store.corrections, cid)
			delete(r.store.byError, id)
		}
		delete(r.store.errors, id)
		deleted++
	}
	return deleted, nil
}

// -----------------------------------------------------------------------------
// Correction Repository
// -----------------------------------------------------------------------------

type CorrectionRepo struct {
	store *MemoryStorage
}

func NewCorrectionRepo(store *MemoryStorage) *CorrectionRepo {
	return &CorrectionRepo{store: store}
}

func (r *CorrectionRepo) Save(ctx context.Context, rec *domain.CorrectionRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.errors[rec.ErrorID]; !ok {
		return storage.ErrErrorRecordNotFound
	}
	if _, ok := r.store.byError[rec.ErrorID]; ok {
		return storage.ErrDuplicateCorrection
	}
	r.store.corrections[rec.ID] = &correctionEntry{seq: r.store.nextSeq(), record: cloneCorrection(rec)}
	r.store.byError[rec.ErrorID] = rec.ID
	return nil
}

func (r *CorrectionRepo) GetByErrorID(ctx context.Context, errorID string) (*domain.CorrectionRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	cid, ok := r.store.byError[errorID]
	if !ok {
		return nil, nil
	}
	rec := cloneCorrection(&r.store.corrections[cid].record)
	return &rec, nil
}

func (r *CorrectionRepo) List(ctx context.Context, limit int) ([]*domain.CorrectionRecord, error) {
	if limit <= 0 {
		return []*domain.CorrectionRecord{}, nil
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	entries := make([]*correctionEntry, 0, len(r.store.corrections))
	for _, e := range r.store.corrections {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return newer(entries[i].record.CreatedAt, entries[i].seq, entries[j].record.CreatedAt, entries[j].seq)
	})

	out := make([]*domain.CorrectionRecord, 0, min(limit, len(entries)))
	for _, e := range entries {
		if len(out) >= limit {
			break
		}
		rec := cloneCorrection(&e.record)
		out = append(out, &rec)
	}
	return out, nil
}

// newer orders by creation time, falling back to insertion order for ties.
func newer(a time.Time, aSeq uint64, b time.Time, bSeq uint64) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aSeq > bSeq
}

func cloneError(rec *domain.ErrorRecord) domain.ErrorRecord {
	out := *rec
	if rec.Extra != nil {
		out.Extra = make(map[string]any, len(rec.Extra))
		for k, v := range rec.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

func cloneCorrection(rec *domain.CorrectionRecord) domain.CorrectionRecord {
	out := *rec
	out.AppliedFixes = append([]domain.AppliedFix(nil), rec.AppliedFixes...)
	out.RemainingIssues = append([]domain.Issue(nil), rec.RemainingIssues...)
	out.Verification.Details = append([]domain.Issue(nil), rec.Verification.Details...)
	return out
}
