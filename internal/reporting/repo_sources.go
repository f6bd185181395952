package reporting

import (
	"context"
	"errors"
	"time"

	"headset-bridge/internal/calls"
	"headset-bridge/internal/eventlog"
)

// Sources reads from the live call history and diagnostics services, whichever backend
// (memory, postgres, redis) they were opened with.
type Sources struct {
	History *calls.History
	Events  *eventlog.Service
}

func (s Sources) ListCalls(ctx context.Context, from, to time.Time) ([]calls.Record, error) {
	if s.History == nil {
		return nil, errors.New("reporting: call history not configured")
	}
	return s.History.Between(ctx, from, to)
}

func (s Sources) RecentEvents(ctx context.Context, limit int) ([]eventlog.Event, error) {
	if s.Events == nil {
		return nil, errors.New("reporting: diagnostics not configured")
	}
	return s.Events.Recent(ctx, limit)
}
