package vendors

import (
	"context"

	"headset-bridge/internal/eventlog"
)

// EventLogAdapter bridges an implementation's diagnostics hook to eventlog.Service.
type EventLogAdapter struct {
	Log *eventlog.Service
}

func (a EventLogAdapter) RecordVendorEvent(ctx context.Context, e VendorEvent) error {
	if a.Log == nil {
		return nil
	}
	return a.Log.Append(ctx, eventlog.Event{
		Vendor:     string(e.Vendor),
		Name:       e.Name,
		Code:       e.Code,
		Handler:    e.Handler.String(),
		Recognized: e.Handler != HandlerEventLog,
		CallID:     e.CallID,
		CreatedAt:  e.At,
	})
}
