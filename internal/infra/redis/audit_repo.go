package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/remediator/internal/core/domain"
	"github.com/vietddude/remediator/internal/infra/storage"
)

// optimistic transactions are retried this many times on WATCH conflicts
const maxTxRetries = 5

// ErrorRepo implements storage.ErrorRepository using Redis. Records are JSON
// values indexed by a sorted set scored by creation time.
type ErrorRepo struct {
	rdb *redis.Client
}

// NewErrorRepo creates a new Redis-backed error record repository.
func NewErrorRepo(client *Client) *ErrorRepo {
	return &ErrorRepo{rdb: client.rdb}
}

// Save stores the record and indexes it in one MULTI/EXEC. An existing id is
// rejected under WATCH.
func (r *ErrorRepo) Save(ctx context.Context, rec *domain.ErrorRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal error record: %w", err)
	}
	seq, err := nextSeq(ctx, r.rdb)
	if err != nil {
		return err
	}

	key := errorKey(rec.ID)
	save := func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("exists failed: %w", err)
		}
		if exists > 0 {
			return storage.ErrDuplicateErrorRecord
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, errorsIndexKey, redis.Z{Score: score(rec.CreatedAt, seq), Member: rec.ID})
			return nil
		})
		return err
	}

	if err := watchWithRetry(ctx, r.rdb, save, key); err != nil {
		if errors.Is(err, storage.ErrDuplicateErrorRecord) {
			return err
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

	key := errorKey(id)
	update := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return storage.ErrErrorRecordNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get error record: %w", err)
		}

		var rec domain.ErrorRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal error record: %w", err)
		}
		if rec.Status != domain.ErrorStatusPending {
			return storage.ErrStatusFinalized
		}
		rec.Status = status
		rec.StatusMessage = message

		newData, err := json.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("failed to marshal error record: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newData, 0)
			return nil
		})
		return err
	}

	return watchWithRetry(ctx, r.rdb, update, key)
}

// GetByID retrieves an error record, nil if it does not exist.
func (r *ErrorRepo) GetByID(ctx context.Context, id string) (*domain.ErrorRecord, error) {
	data, err := r.rdb.Get(ctx, errorKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get error record: %w", err)
	}

	var rec domain.ErrorRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal error record: %w", err)
	}
	return &rec, nil
}

// List returns up to limit records, most recent first.
func (r *ErrorRepo) List(ctx context.Context, limit int) ([]*domain.ErrorRecord, error) {
	if limit <= 0 {
		return []*domain.ErrorRecord{}, nil
	}
	ids, err := r.rdb.ZRevRange(ctx, errorsIndexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange failed: %w", err)
	}
	return loadAll[domain.ErrorRecord](ctx, r.rdb, ids, errorKey)
}

// Count returns the number of records with the given status; "" counts all.
func (r *ErrorRepo) Count(ctx context.Context, status domain.ErrorStatus) (int, error) {
	if status == "" {
		count, err := r.rdb.ZCard(ctx, errorsIndexKey).Result()
		if err != nil {
			return 0, fmt.Errorf("zcard failed: %w", err)
		}
		return int(count), nil
	}

	ids, err := r.rdb.ZRange(ctx, errorsIndexKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("zrange failed: %w", err)
	}
	records, err := loadAll[domain.ErrorRecord](ctx, r.rdb, ids, errorKey)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, rec := range records {
		if rec.Status == status {
			count++
		}
	}
	return count, nil
}

// DeleteOlderThan removes records created before threshold together with
// their corrections in one MULTI/EXEC.
func (r *ErrorRepo) DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	ids, err := r.rdb.ZRangeByScore(ctx, errorsIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatFloat(score(threshold, 0), 'f', -1, 64),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("zrangebyscore failed: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	byErrorKeys := make([]string, len(ids))
	for i, id := range ids {
		byErrorKeys[i] = correctionByErrorKey(id)
	}
	correctionIDs, err := r.rdb.MGet(ctx, byErrorKeys...).Result()
	if err != nil {
		return 0, fmt.Errorf("mget failed: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			if cid, ok := correctionIDs[i].(string); ok {
				pipe.Del(ctx, correctionKey(cid), byErrorKeys[i])
				pipe.ZRem(ctx, correctionsIndexKey, cid)
			}
			pipe.Del(ctx, errorKey(id))
			pipe.ZRem(ctx, errorsIndexKey, id)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete error records: %w", err)
	}
	return int64(len(ids)), nil
}

// CorrectionRepo implements storage.CorrectionRepository using Redis.
type CorrectionRepo struct {
	rdb *redis.Client
}

// NewCorrectionRepo creates a new Redis-backed correction record repository.
func NewCorrectionRepo(client *Client) *CorrectionRepo {
	return &CorrectionRepo{rdb: client.rdb}
}

// Save stores a correction. The error record must exist and have no
// correction yet; both are checked under WATCH.
func (r *CorrectionRepo) Save(ctx context.Context, rec *domain.CorrectionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal correction record: %w", err)
	}

	seq, err := nextSeq(ctx, r.rdb)
	if err != nil {
		return err
	}

	eKey := errorKey(rec.ErrorID)
	bKey := correctionByErrorKey(rec.ErrorID)
	save := func(tx *redis.Tx) error {
		hasError, err := tx.Exists(ctx, eKey).Result()
		if err != nil {
			return fmt.Errorf("exists failed: %w", err)
		}
		if hasError == 0 {
			return storage.ErrErrorRecordNotFound
		}
		hasCorrection, err := tx.Exists(ctx, bKey).Result()
		if err != nil {
			return fmt.Errorf("exists failed: %w", err)
		}
		if hasCorrection > 0 {
			return storage.ErrDuplicateCorrection
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, correctionKey(rec.ID), data, 0)
			pipe.Set(ctx, bKey, rec.ID, 0)
			pipe.ZAdd(ctx, correctionsIndexKey, redis.Z{Score: score(rec.CreatedAt, seq), Member: rec.ID})
			return nil
		})
		return err
	}

	return watchWithRetry(ctx, r.rdb, save, eKey, bKey)
}

// GetByErrorID retrieves the correction for an error record, nil if none.
func (r *CorrectionRepo) GetByErrorID(ctx context.Context, errorID string) (*domain.CorrectionRecord, error) {
	cid, err := r.rdb.Get(ctx, correctionByErrorKey(errorID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get correction index: %w", err)
	}

	records, err := loadAll[domain.CorrectionRecord](ctx, r.rdb, []string{cid}, correctionKey)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}

// List returns up to limit records, most recent first.
func (r *CorrectionRepo) List(ctx context.Context, limit int) ([]*domain.CorrectionRecord, error) {
	if limit <= 0 {
		return []*domain.CorrectionRecord{}, nil
	}
	ids, err := r.rdb.ZRevRange(ctx, correctionsIndexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange failed: %w", err)
	}
	return loadAll[domain.CorrectionRecord](ctx, r.rdb, ids, correctionKey)
}

// loadAll fetches JSON values for ids in order, skipping keys that vanished
// between the index read and the fetch.
func loadAll[T any](ctx context.Context, rdb *redis.Client, ids []string, key func(string) string) ([]*T, error) {
	out := make([]*T, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(id)
	}
	values, err := rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget failed: %w", err)
	}

	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var rec T
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		out = append(out, &rec)
	}
	return out, nil
}

// nextSeq hands out the insertion counter used to break same-millisecond ties.
func nextSeq(ctx context.Context, rdb *redis.Client) (int64, error) {
	seq, err := rdb.Incr(ctx, sequenceKey).Result()
	if err != nil {
		return 0, fmt.Errorf("incr failed: %w", err)
	}
	return seq, nil
}

func watchWithRetry(ctx context.Context, rdb *redis.Client, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := rdb.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("transaction aborted after %d retries: %w", maxTxRetries, redis.TxFailedErr)
}
