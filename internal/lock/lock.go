// Package lock provides keyed mutual exclusion for the seat and
// materialization critical sections.
package lock

import (
	"context"
	"errors"
)

var ErrNotAcquired = errors.New("lock not acquired")

// Locker serialises work on a key. The returned release func must be called
// exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}
