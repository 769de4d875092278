package locker

import "context"

//go:generate mockgen -destination=../../mocks/locker.go -package=mocks . AdvisoryLocker

// AdvisoryLocker serialises critical sections across coordinators.
// WithLock ensures lock and unlock occur on the same DB connection, which is required
// for session-level pg_advisory_lock semantics.
type AdvisoryLocker interface {
	WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error
}
