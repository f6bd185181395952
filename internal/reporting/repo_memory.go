package reporting

import (
	"context"
	"sync"
	"time"

	"headset-bridge/internal/calls"
	"headset-bridge/internal/eventlog"
)

// MemoryRepo is a simple in-memory reporting repository for tests.
type MemoryRepo struct {
	mu sync.Mutex

	Calls  []calls.Record
	Events []eventlog.Event // newest first
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListCalls(ctx context.Context, from, to time.Time) ([]calls.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]calls.Record, 0)
	for _, c := range r.Calls {
		if c.EndedAt.Before(from) || !c.EndedAt.Before(to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *MemoryRepo) RecentEvents(ctx context.Context, limit int) ([]eventlog.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > len(r.Events) {
		limit = len(r.Events)
	}
	return append([]eventlog.Event(nil), r.Events[:limit]...), nil
}
