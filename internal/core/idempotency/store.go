// Package idempotency defines the contract between the HTTP layer and the
// store that remembers responses of retried mutating requests.
package idempotency

import (
	"context"
)

// Replay is a stored HTTP response.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Store tracks idempotency keys.
//
// AcquireKey returns (nil, nil) when the caller owns the key, a Replay when the
// operation already finished, or an error when the key is in flight or was
// reused for a different request.
type Store interface {
	AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*Replay, error)
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error
	FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error
}
