package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"magasin/internal/core/apperror"
	appctx "magasin/internal/core/context"
	"magasin/internal/core/idempotency"
)

// Status is the lifecycle of an idempotency key.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// staleAfter is how long a pending key may stay unfinished before another
// request is allowed to reclaim it.
const staleAfter = time.Minute

// record is the JSON value stored under an idempotency key.
type record struct {
	UserID      string          `json:"userId"`
	Operation   string          `json:"operation"`
	RequestHash string          `json:"requestHash"`
	Status      Status          `json:"status"`
	StatusCode  int             `json:"statusCode,omitempty"`
	ContentType string          `json:"contentType,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// IdempotencyStore keeps idempotency records in Redis with a TTL.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a store whose keys expire after ttl.
func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// AcquireKey claims key with SET NX, or inspects the record already there.
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*idempotency.Replay, error) {
	redisKey := s.redisKey(ctx, key)
	pending := record{
		UserID:      userID,
		Operation:   operation,
		RequestHash: requestHash,
		Status:      StatusPending,
		UpdatedAt:   s.now(),
	}
	value, err := json.Marshal(pending)
	if err != nil {
		return nil, fmt.Errorf("marshal idempotency record: %w", err)
	}

	acquired, err := s.rdb.SetNX(ctx, redisKey, value, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if acquired {
		return nil, nil
	}

	raw, err := s.rdb.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET.
		return s.AcquireKey(ctx, key, userID, operation, requestHash)
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}

	var existing record
	if err := json.Unmarshal(raw, &existing); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}

	replay, reclaim, err := decide(existing, pending, key, s.now())
	if err != nil || !reclaim {
		return replay, err
	}
	if err := s.rdb.Set(ctx, redisKey, value, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("reclaim stale key: %w", err)
	}
	return nil, nil
}

// CompleteKey stores a successful response for replay.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, StatusSuccess, statusCode, contentType, response)
}

// FailKey stores an error response for replay.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, StatusFailed, statusCode, contentType, response)
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, status Status, statusCode int, contentType string, response any) error {
	redisKey := s.redisKey(ctx, key)
	raw, err := s.rdb.Get(ctx, redisKey).Bytes()
	if err != nil {
		return fmt.Errorf("read idempotency key: %w", err)
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return fmt.Errorf("decode idempotency record: %w", err)
	}

	rec.Status = status
	rec.StatusCode = statusCode
	rec.ContentType = contentType
	rec.UpdatedAt = s.now()
	rec.Response = nil
	if response != nil {
		body, err := json.Marshal(response)
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}
		rec.Response = body
	}

	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal idempotency record: %w", err)
	}
	return s.rdb.Set(ctx, redisKey, value, redis.KeepTTL).Err()
}

// redisKey scopes key to the tenant and namespace.
func (s *IdempotencyStore) redisKey(ctx context.Context, key string) string {
	return keyPrefix + "idem:" + appctx.GetTenantID(ctx) + ":" + key
}

// decide compares a stored record with the incoming request.
// reclaim means the stored record is a stale pending claim the caller may overwrite.
func decide(existing, incoming record, key string, now time.Time) (replay *idempotency.Replay, reclaim bool, err error) {
	if existing.UserID != incoming.UserID ||
		existing.Operation != incoming.Operation ||
		existing.RequestHash != incoming.RequestHash {
		return nil, false, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", existing.Operation).
			WithDetail("request_operation", incoming.Operation)
	}

	switch existing.Status {
	case StatusSuccess, StatusFailed:
		return &idempotency.Replay{
			StatusCode:  replayStatus(existing.StatusCode),
			ContentType: replayContentType(existing.ContentType),
			Body:        existing.Response,
		}, false, nil
	default:
		if now.Sub(existing.UpdatedAt) > staleAfter {
			return nil, true, nil
		}
		return nil, false, apperror.NewIdempotencyConflict(key)
	}
}

func replayStatus(status int) int {
	if status == 0 {
		return 200
	}
	return status
}

func replayContentType(ct string) string {
	if ct == "" {
		return "application/json"
	}
	return ct
}
