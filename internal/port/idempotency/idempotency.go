package idempotency

import "context"

// Store remembers the response of a processed mutating request keyed by the client's
// Idempotency-Key header.
type Store interface {
	Check(ctx context.Context, key string) (result []byte, found bool, err error)
	Store(ctx context.Context, key, operation string, result []byte) error
}
