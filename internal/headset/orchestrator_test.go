package headset

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headset-bridge/internal/calls"
	"headset-bridge/internal/devices"
	"headset-bridge/internal/vendors"
)

// vendorFake is a loopback stand-in for a vendor's local service.
type vendorFake struct {
	mu      sync.Mutex
	replies map[string]string
	events  []string
	hits    map[string]int
	total   int
}

func newVendorFake() *vendorFake {
	return &vendorFake{replies: map[string]string{}, hits: map[string]int{}}
}

func (f *vendorFake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[r.URL.Path]++
	f.total++

	if r.URL.Path == "/CallServices/CallEvents" && len(f.events) > 0 {
		body := f.events[0]
		f.events = f.events[1:]
		_, _ = w.Write([]byte(`{"Description":"Call Events","Result":` + body + `,"Type_Name":"CallStateArray","isError":false}`))
		return
	}
	_, _ = w.Write([]byte(f.replies[r.URL.Path]))
}

func (f *vendorFake) set(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[path] = body
}

func (f *vendorFake) pushEvents(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, body)
}

func (f *vendorFake) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *vendorFake) requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

const (
	blackwireInfo = `{"Description":"Active Device Info","Result":{"ProductName":"Plantronics Blackwire 5220 Series","VendorId":1151,"ProductId":49344,"IsAttached":true},"Type_Name":"DeviceInfo","isError":false}`
	oneActiveCall = `{"Result":{"Calls":[{"CallId":{"Id":"conv-1"}}]},"Type_Name":"CallManagerState","isError":false}`
	noActiveCalls = `{"Result":{"Calls":[]},"Type_Name":"CallManagerState","isError":false}`
)

type harness struct {
	orch    *Orchestrator
	sched   *vendors.ManualScheduler
	spokes  *vendorFake
	jabra   *vendorFake
	history *calls.MemoryRepo
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sched := vendors.NewManualScheduler(time.Unix(1700000000, 0))

	spokes := newVendorFake()
	spokes.set("/DeviceServices/Info", blackwireInfo)
	spokesSrv := httptest.NewServer(spokes)
	t.Cleanup(spokesSrv.Close)

	jabra := newVendorFake()
	jabraSrv := httptest.NewServer(jabra)
	t.Cleanup(jabraSrv.Close)

	opts := vendors.Options{Scheduler: sched}
	plt := vendors.New(vendors.NewPlantronics(vendors.NewClient(vendors.VendorPlantronics, spokesSrv.URL, vendors.ClientOptions{HTTPClient: spokesSrv.Client()}), ""), opts)
	jab := vendors.New(vendors.NewJabra(vendors.NewClient(vendors.VendorJabra, jabraSrv.URL, vendors.ClientOptions{HTTPClient: jabraSrv.Client()}), ""), opts)

	repo := calls.NewMemoryRepo()
	orch := New(devices.NewMatcher(nil), []Implementation{plt, jab}, Options{History: calls.NewHistory(repo)})
	t.Cleanup(func() { orch.Close(context.Background()) })

	return &harness{orch: orch, sched: sched, spokes: spokes, jabra: jabra, history: repo}
}

func (h *harness) selectPlantronics(t *testing.T) {
	t.Helper()
	v, ok, err := h.orch.SelectMicrophone(context.Background(), devices.MediaDevice{Label: "Plantronics Blackwire 5220 Series"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, vendors.VendorPlantronics, v)
	h.sched.Advance(0)
}

func drain(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestSelectMicrophone_BlackwireConnects(t *testing.T) {
	h := newHarness(t)
	events, cancel := h.orch.Subscribe(8)
	defer cancel()

	h.selectPlantronics(t)

	st := h.orch.Status()
	assert.Equal(t, vendors.VendorPlantronics, st.Vendor)
	require.NotNil(t, st.Implementation)
	assert.Equal(t, vendors.StateConnectedIdle, st.Implementation.State)
	assert.Equal(t, "Plantronics Blackwire 5220 Series", st.Implementation.DeviceName)
	assert.Equal(t, 1, h.spokes.count("/SessionManager/Register"))

	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, vendors.ActionImplementationChanged, got[0].Action.Kind)
}

func TestSelectMicrophone_NoMatchKeepsCurrent(t *testing.T) {
	h := newHarness(t)
	h.selectPlantronics(t)

	v, ok, err := h.orch.SelectMicrophone(context.Background(), devices.MediaDevice{Label: "Built-in Microphone"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
	assert.Equal(t, vendors.VendorPlantronics, h.orch.Status().Vendor)
}

func TestChangeImplementation_SameVendorIsNoop(t *testing.T) {
	h := newHarness(t)
	h.selectPlantronics(t)

	require.NoError(t, h.orch.ChangeImplementation(context.Background(), vendors.VendorPlantronics))
	h.sched.Advance(0)
	assert.Equal(t, 1, h.spokes.count("/SessionManager/Register"))
	assert.Equal(t, 0, h.spokes.count("/SessionManager/UnRegister"))
}

func TestChangeImplementation_Unknown(t *testing.T) {
	h := newHarness(t)
	err := h.orch.ChangeImplementation(context.Background(), vendors.VendorSennheiser)
	assert.ErrorIs(t, err, ErrUnknownVendor)
}

func TestDeviceAcceptAndTerminate(t *testing.T) {
	h := newHarness(t)
	h.selectPlantronics(t)
	events, cancel := h.orch.Subscribe(16)
	defer cancel()

	s, err := h.orch.IncomingCall(context.Background(), vendors.CallInfo{ConversationID: "conv-1", ContactName: "Ada"})
	require.NoError(t, err)
	assert.True(t, s.Ringing)
	assert.Equal(t, 1, h.spokes.count("/CallServices/IncomingCall"))

	h.spokes.set("/CallServices/CallManagerState", oneActiveCall)
	h.spokes.pushEvents(`[{"Action":1,"CallId":{"Id":"conv-1"}}]`)
	h.sched.Advance(2 * time.Second)

	s, ok := h.orch.Session()
	require.True(t, ok)
	assert.True(t, s.Connected)
	assert.False(t, s.Ringing)
	assert.Equal(t, 1, h.spokes.count("/CallServices/AnswerCall"))

	h.spokes.set("/CallServices/CallManagerState", noActiveCalls)
	h.spokes.pushEvents(`[{"Action":2,"CallId":{"Id":"conv-1"}}]`)
	h.sched.Advance(2 * time.Second)

	_, ok = h.orch.Session()
	assert.False(t, ok)
	assert.Equal(t, 1, h.spokes.count("/CallServices/TerminateCall"))
	assert.Equal(t, vendors.StateConnectedIdle, h.orch.Status().Implementation.State)

	recs, err := h.history.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, calls.EndReasonDevice, recs[0].EndReason)
	assert.True(t, recs[0].Answered)
	assert.Equal(t, "plantronics", recs[0].Vendor)

	var kinds []vendors.ActionKind
	for _, ev := range drain(events) {
		if ev.Type == EventDeviceAction {
			kinds = append(kinds, ev.Action.Kind)
		}
	}
	assert.Equal(t, []vendors.ActionKind{vendors.ActionAnsweredCall, vendors.ActionEndedCall}, kinds)
}

func TestDeviceMuteConfirmedBeforeApplied(t *testing.T) {
	h := newHarness(t)
	h.selectPlantronics(t)

	_, err := h.orch.OutgoingCall(context.Background(), vendors.CallInfo{ConversationID: "conv-1"})
	require.NoError(t, err)

	h.spokes.set("/CallServices/CallManagerState", oneActiveCall)
	h.spokes.pushEvents(`[{"Action":11,"CallId":{"Id":"conv-1"}}]`)
	h.sched.Advance(2 * time.Second)

	s, _ := h.orch.Session()
	assert.True(t, s.Muted)
	assert.Equal(t, 1, h.spokes.count("/CallServices/MuteCall"))

	// a repeated mute event does not re-confirm
	h.spokes.pushEvents(`[{"Action":11,"CallId":{"Id":"conv-1"}}]`)
	h.sched.Advance(2 * time.Second)
	assert.Equal(t, 1, h.spokes.count("/CallServices/MuteCall"))
}

func TestToggleMute_RejectedLeavesSession(t *testing.T) {
	h := newHarness(t)
	h.selectPlantronics(t)
	_, err := h.orch.OutgoingCall(context.Background(), vendors.CallInfo{ConversationID: "conv-1"})
	require.NoError(t, err)

	h.spokes.set("/CallServices/MuteCall", `{"Description":"Mute failed","isError":true}`)
	_, err = h.orch.ToggleMute(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, vendors.ErrVendorRejected))

	s, _ := h.orch.Session()
	assert.False(t, s.Muted)
}

func TestUnrecognizedEventPublishedWithoutStateChange(t *testing.T) {
	h := newHarness(t)
	h.selectPlantronics(t)
	_, err := h.orch.OutgoingCall(context.Background(), vendors.CallInfo{ConversationID: "conv-1"})
	require.NoError(t, err)
	events, cancel := h.orch.Subscribe(8)
	defer cancel()

	h.spokes.set("/CallServices/CallManagerState", oneActiveCall)
	h.spokes.pushEvents(`[{"Action":17,"CallId":{"Id":"conv-1"}}]`)
	h.sched.Advance(2 * time.Second)

	got := drain(events)
	require.Len(t, got, 1)
	assert.Equal(t, vendors.ActionUnrecognized, got[0].Action.Kind)
	assert.Equal(t, "Doff", got[0].Action.Name)
	s, _ := h.orch.Session()
	assert.True(t, s.Connected)
	assert.False(t, s.Muted)
}

func TestVendorSwitchCancelsPreviousTimers(t *testing.T) {
	h := newHarness(t)
	h.selectPlantronics(t)

	v, ok, err := h.orch.SelectMicrophone(context.Background(), devices.MediaDevice{Label: "Jabra Evolve2 65"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, vendors.VendorJabra, v)
	assert.Equal(t, 1, h.spokes.count("/SessionManager/UnRegister"))

	// only the new implementation's two loops remain
	assert.Equal(t, 2, h.sched.Pending())

	before := h.spokes.requests()
	h.sched.Advance(time.Minute)
	assert.Equal(t, before, h.spokes.requests())
	assert.Greater(t, h.jabra.count("/Session/Connect"), 0)
	assert.Equal(t, vendors.VendorJabra, h.orch.Status().Vendor)
}

func TestStaleGenerationDropped(t *testing.T) {
	h := newHarness(t)
	h.selectPlantronics(t)
	_, err := h.orch.OutgoingCall(context.Background(), vendors.CallInfo{ConversationID: "conv-1"})
	require.NoError(t, err)

	h.orch.mu.Lock()
	stale := h.orch.gen - 1
	h.orch.mu.Unlock()

	h.orch.handleAction(stale, vendors.DeviceAction{Kind: vendors.ActionEndedCall, Vendor: vendors.VendorPlantronics})
	_, ok := h.orch.Session()
	assert.True(t, ok)
	assert.Equal(t, 0, h.spokes.count("/CallServices/TerminateCall"))
}

func TestCommandsWithoutImplementation(t *testing.T) {
	orch := New(nil, nil, Options{})

	s, err := orch.IncomingCall(context.Background(), vendors.CallInfo{ConversationID: "c"})
	require.NoError(t, err)
	assert.True(t, s.Ringing)

	_, err = orch.ToggleMute(context.Background())
	assert.ErrorIs(t, err, ErrCallNotConnected)

	_, err = orch.IncomingCall(context.Background(), vendors.CallInfo{ConversationID: "d"})
	assert.ErrorIs(t, err, ErrCallInProgress)

	s, err = orch.Answer(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Connected)

	s, err = orch.ToggleHold(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Held)

	require.NoError(t, orch.End(context.Background()))
	assert.ErrorIs(t, orch.End(context.Background()), ErrNoCall)

	_, err = orch.IncomingCall(context.Background(), vendors.CallInfo{})
	assert.ErrorIs(t, err, ErrInvalidCall)
}

func TestEndAllClearsSession(t *testing.T) {
	h := newHarness(t)
	h.selectPlantronics(t)
	_, err := h.orch.OutgoingCall(context.Background(), vendors.CallInfo{ConversationID: "conv-1"})
	require.NoError(t, err)
	h.spokes.set("/CallServices/CallManagerState", oneActiveCall)

	require.NoError(t, h.orch.EndAll(context.Background()))
	_, ok := h.orch.Session()
	assert.False(t, ok)
	assert.Equal(t, 1, h.spokes.count("/CallServices/TerminateCall"))

	recs, _ := h.history.List(context.Background(), 10)
	require.Len(t, recs, 1)
	assert.Equal(t, calls.EndReasonEndAll, recs[0].EndReason)
}

func TestSubscribe_SlowSubscriberDoesNotBlock(t *testing.T) {
	orch := New(nil, nil, Options{})
	_, cancel := orch.Subscribe(0)
	defer cancel()

	done := make(chan struct{})
	go func() {
		_, _ = orch.IncomingCall(context.Background(), vendors.CallInfo{ConversationID: "c"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on a full subscriber")
	}
}

func TestClose_ClosesSubscriptions(t *testing.T) {
	orch := New(nil, nil, Options{})
	ch, _ := orch.Subscribe(1)
	orch.Close(context.Background())

	_, ok := <-ch
	assert.False(t, ok)
	assert.ErrorIs(t, orch.ChangeImplementation(context.Background(), vendors.VendorJabra), ErrOrchestratorClosed)
}

func TestCommandsUseDefaultAudioWhileVendorUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	sched := vendors.NewManualScheduler(time.Unix(1700000000, 0))
	plt := vendors.New(vendors.NewPlantronics(vendors.NewClient(vendors.VendorPlantronics, base, vendors.ClientOptions{}), ""), vendors.Options{Scheduler: sched})
	repo := calls.NewMemoryRepo()
	orch := New(devices.NewMatcher(nil), []Implementation{plt}, Options{History: calls.NewHistory(repo)})
	t.Cleanup(func() { orch.Close(context.Background()) })

	_, ok, err := orch.SelectMicrophone(context.Background(), devices.MediaDevice{Label: "Plantronics Blackwire 5220"})
	require.NoError(t, err)
	require.True(t, ok)
	sched.Advance(0)
	require.Equal(t, vendors.StateConnecting, orch.Status().Implementation.State)

	s, err := orch.IncomingCall(context.Background(), vendors.CallInfo{ConversationID: "c1"})
	require.NoError(t, err)
	assert.True(t, s.Ringing)

	s, err = orch.Answer(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Connected)

	s, err = orch.ToggleMute(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Muted)

	require.NoError(t, orch.End(context.Background()))
	_, ok = orch.Session()
	assert.False(t, ok)

	recs, err := repo.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, calls.EndReasonApp, recs[0].EndReason)
}

func TestVendorLostMidCall(t *testing.T) {
	h := newHarness(t)
	h.selectPlantronics(t)
	_, err := h.orch.OutgoingCall(context.Background(), vendors.CallInfo{ConversationID: "conv-1"})
	require.NoError(t, err)

	h.spokes.set("/CallServices/TerminateCall", "not json")
	h.spokes.set("/CallServices/CallManagerState", "not json")

	err = h.orch.End(context.Background())
	assert.ErrorIs(t, err, vendors.ErrTransport)
	_, ok := h.orch.Session()
	require.True(t, ok, "a failed end on a connected headset keeps the call")

	err = h.orch.EndAll(context.Background())
	assert.ErrorIs(t, err, vendors.ErrTransport)
	_, ok = h.orch.Session()
	assert.False(t, ok, "end all clears the session even when the vendor fails")

	recs, _ := h.history.List(context.Background(), 10)
	require.Len(t, recs, 1)
	assert.Equal(t, calls.EndReasonEndAll, recs[0].EndReason)

	// once the status loop notices the device is gone, commands stop reaching the vendor
	h.spokes.set("/DeviceServices/Info", "not json")
	h.sched.Advance(6 * time.Second)
	require.Equal(t, vendors.StateConnecting, h.orch.Status().Implementation.State)

	before := h.spokes.count("/CallServices/IncomingCall")
	_, err = h.orch.IncomingCall(context.Background(), vendors.CallInfo{ConversationID: "conv-2"})
	require.NoError(t, err)
	require.NoError(t, h.orch.End(context.Background()))
	assert.Equal(t, before, h.spokes.count("/CallServices/IncomingCall"))
}
