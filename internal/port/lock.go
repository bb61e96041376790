package port

import (
	"context"
	"errors"
	"time"
)

// ErrLockUnavailable means the wait window elapsed without acquiring the
// lock. It is a retryable condition, distinct from validation failures.
var ErrLockUnavailable = errors.New("lock unavailable")

// Lock is a held distributed lock. The lease expires on its own, so a
// failed Release leaves no permanent lockout.
type Lock interface {
	// Release is idempotent and best-effort; callers log failures
	// instead of propagating them.
	Release(ctx context.Context) error
}

type Locker interface {
	// Acquire blocks up to wait for an exclusive lock on key. The lease
	// bounds how long the lock survives if the holder crashes before
	// releasing it.
	Acquire(ctx context.Context, key string, wait, lease time.Duration) (Lock, error)
}
