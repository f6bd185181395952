package eventlog

import (
	"context"
	"sync"
)

// MemoryRepo keeps the newest max events in process. It is the default store when no
// redis is configured.
type MemoryRepo struct {
	mu     sync.Mutex
	max    int
	events []Event
}

func NewMemoryRepo(max int) *MemoryRepo {
	if max <= 0 {
		max = MaxRecentLimit
	}
	return &MemoryRepo{max: max}
}

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	if over := len(r.events) - r.max; over > 0 {
		r.events = append([]Event(nil), r.events[over:]...)
	}
	return nil
}

func (r *MemoryRepo) Recent(ctx context.Context, limit int) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > len(r.events) {
		limit = len(r.events)
	}
	out := make([]Event, 0, limit)
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.events[i])
	}
	return out, nil
}
