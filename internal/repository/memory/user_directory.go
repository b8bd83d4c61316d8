package memory

import (
	"context"
	"sync"

	"ridepool-backend/internal/repository"
)

// UserDirectory is a fixed set of known user ids.
type UserDirectory struct {
	mu    sync.RWMutex
	known map[int32]bool
}

func NewUserDirectory(ids ...int32) *UserDirectory {
	d := &UserDirectory{known: make(map[int32]bool, len(ids))}
	d.Add(ids...)
	return d
}

func (d *UserDirectory) Add(ids ...int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range ids {
		d.known[id] = true
	}
}

func (d *UserDirectory) Missing(_ context.Context, ids []int32) ([]int32, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var missing []int32
	for _, id := range ids {
		if !d.known[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

type allowAll struct{}

// AllowAll treats every id as a known user.
func AllowAll() repository.UserDirectory {
	return allowAll{}
}

func (allowAll) Missing(context.Context, []int32) ([]int32, error) {
	return nil, nil
}
