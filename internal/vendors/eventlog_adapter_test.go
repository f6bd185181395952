package vendors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headset-bridge/internal/eventlog"
)

func TestEventLogAdapter_RecordsRawName(t *testing.T) {
	repo := eventlog.NewMemoryRepo(10)
	a := EventLogAdapter{Log: eventlog.NewService(repo)}
	at := time.Unix(1700000000, 0).UTC()

	err := a.RecordVendorEvent(context.Background(), VendorEvent{Vendor: VendorPlantronics, Name: "Doff", Code: 17, Handler: HandlerEventLog, At: at})
	require.NoError(t, err)
	err = a.RecordVendorEvent(context.Background(), VendorEvent{Vendor: VendorPlantronics, Name: "Mute", Code: 11, Handler: HandlerMute, CallID: "x", At: at})
	require.NoError(t, err)

	evs, err := repo.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, "Mute", evs[0].Name)
	assert.True(t, evs[0].Recognized)
	assert.Equal(t, "mute_changed", evs[0].Handler)
	assert.Equal(t, "Doff", evs[1].Name)
	assert.False(t, evs[1].Recognized)
	assert.Equal(t, at, evs[1].CreatedAt)
}

func TestEventLogAdapter_NilServiceIsNoop(t *testing.T) {
	assert.NoError(t, EventLogAdapter{}.RecordVendorEvent(context.Background(), VendorEvent{}))
}
