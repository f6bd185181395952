package headset

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"headset-bridge/internal/calls"
	"headset-bridge/internal/devices"
	"headset-bridge/internal/vendors"
)

// Implementation is the vendor surface the orchestrator drives. *vendors.Implementation
// satisfies it.
type Implementation interface {
	Vendor() vendors.VendorID
	Activate(sink func(vendors.DeviceAction))
	Deactivate(ctx context.Context)
	Status() vendors.Status
	SetEventPolling(enabled bool)

	IncomingCall(ctx context.Context, info vendors.CallInfo) error
	OutgoingCall(ctx context.Context, info vendors.CallInfo) error
	AnswerCall(ctx context.Context, callID string) error
	EndCall(ctx context.Context, callID string) error
	SetMute(ctx context.Context, muted bool) error
	SetHold(ctx context.Context, callID string, held bool) error
	EndAllCalls(ctx context.Context) error
}

// CallRecorder receives finished calls. *calls.History satisfies it.
type CallRecorder interface {
	Record(ctx context.Context, r calls.Record) error
}

type EventType string

const (
	// EventDeviceAction carries an action that came from the headset or an implementation switch.
	EventDeviceAction EventType = "device_action"
	// EventSessionChanged follows an application command that changed the session.
	EventSessionChanged EventType = "session_changed"
)

// Event is what subscribers receive. Session is the state after the change; nil when
// there is no current call.
type Event struct {
	Type    EventType             `json:"type"`
	Action  *vendors.DeviceAction `json:"action,omitempty"`
	Command string                `json:"command,omitempty"`
	Session *CallSession          `json:"session"`
}

// Status is the orchestrator snapshot for callers.
type Status struct {
	Vendor         vendors.VendorID `json:"vendor,omitempty"`
	Implementation *vendors.Status  `json:"implementation,omitempty"`
	Session        *CallSession     `json:"session"`
}

type Options struct {
	Logger  *slog.Logger
	History CallRecorder
	Now     func() time.Time
}

// Orchestrator owns the current call session and the active vendor implementation.
//
// Rules:
//   - At most one implementation is active. Switching fully deactivates the previous one
//     before the next is activated.
//   - Actions are bound to the generation that activated their implementation; actions
//     from an older generation are dropped.
//   - While the headset is connected, the session changes only after the vendor confirmed
//     the matching command. Without a connected headset commands apply to the session
//     directly and calls run on default audio.
//
// Lock order is orchestrator then implementation.
type Orchestrator struct {
	matcher *devices.Matcher
	impls   map[vendors.VendorID]Implementation
	log     *slog.Logger
	history CallRecorder
	now     func() time.Time

	mu      sync.Mutex
	closed  bool
	active  Implementation
	gen     uint64
	session *CallSession
	subs    map[uint64]chan Event
	nextSub uint64
}

func New(matcher *devices.Matcher, impls []Implementation, opts Options) *Orchestrator {
	if matcher == nil {
		matcher = devices.NewMatcher(nil)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	byVendor := make(map[vendors.VendorID]Implementation, len(impls))
	for _, impl := range impls {
		byVendor[impl.Vendor()] = impl
	}
	return &Orchestrator{
		matcher: matcher,
		impls:   byVendor,
		log:     log.With("component", "headset"),
		history: opts.History,
		now:     now,
		subs:    make(map[uint64]chan Event),
	}
}

// SelectMicrophone routes to the vendor matching the chosen input device. Without a match
// the current implementation stays as it is.
func (o *Orchestrator) SelectMicrophone(ctx context.Context, d devices.MediaDevice) (vendors.VendorID, bool, error) {
	v, ok := o.matcher.MatchDevice(d)
	if !ok {
		o.log.Info("no device integration", "label", d.Label)
		return "", false, nil
	}
	if err := o.ChangeImplementation(ctx, v); err != nil {
		return v, true, err
	}
	return v, true, nil
}

// MatchDevice reports which vendor a device would route to without switching.
func (o *Orchestrator) MatchDevice(d devices.MediaDevice) (vendors.VendorID, bool) {
	return o.matcher.MatchDevice(d)
}

// ChangeImplementation makes vendor the active implementation. Selecting the active vendor
// again is a no-op.
func (o *Orchestrator) ChangeImplementation(ctx context.Context, vendor vendors.VendorID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrOrchestratorClosed
	}
	next, ok := o.impls[vendor]
	if !ok {
		return ErrUnknownVendor
	}
	if o.active != nil && o.active.Vendor() == vendor {
		return nil
	}

	if o.active != nil {
		o.log.Info("deactivating implementation", "vendor", string(o.active.Vendor()))
		o.active.Deactivate(ctx)
	}
	o.gen++
	gen := o.gen
	o.active = next
	next.Activate(func(a vendors.DeviceAction) { o.handleAction(gen, a) })
	o.log.Info("implementation changed", "vendor", string(vendor))

	o.publishLocked(Event{
		Type:    EventDeviceAction,
		Action:  &vendors.DeviceAction{Kind: vendors.ActionImplementationChanged, Vendor: vendor, At: o.now().UTC()},
		Session: o.session.snapshot(),
	})
	return nil
}

// Subscribe returns a stream of events and its cancel func. Events are dropped for a
// subscriber whose buffer is full.
func (o *Orchestrator) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Event, buffer)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		close(ch)
		return ch, func() {}
	}
	o.nextSub++
	id := o.nextSub
	o.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if c, ok := o.subs[id]; ok {
				delete(o.subs, id)
				close(c)
			}
		})
	}
}

func (o *Orchestrator) publishLocked(ev Event) {
	for id, ch := range o.subs {
		select {
		case ch <- ev:
		default:
			o.log.Warn("subscriber slow, event dropped", "subscriber", id, "type", string(ev.Type))
		}
	}
}

// Session returns a copy of the current call.
func (o *Orchestrator) Session() (CallSession, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return CallSession{}, false
	}
	return *o.session, true
}

func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := Status{Session: o.session.snapshot()}
	if o.active != nil {
		is := o.active.Status()
		st.Vendor = o.active.Vendor()
		st.Implementation = &is
	}
	return st
}

// SetEventPolling toggles call-event polling on the active implementation.
func (o *Orchestrator) SetEventPolling(enabled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != nil {
		o.active.SetEventPolling(enabled)
	}
}

// Close deactivates the active implementation and closes all subscriptions.
func (o *Orchestrator) Close(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	if o.active != nil {
		o.active.Deactivate(ctx)
		o.active = nil
	}
	o.gen++
	for id, ch := range o.subs {
		delete(o.subs, id)
		close(ch)
	}
}

// --- application commands ---

func (o *Orchestrator) IncomingCall(ctx context.Context, info vendors.CallInfo) (CallSession, error) {
	return o.startCall(ctx, info, false)
}

func (o *Orchestrator) OutgoingCall(ctx context.Context, info vendors.CallInfo) (CallSession, error) {
	return o.startCall(ctx, info, true)
}

func (o *Orchestrator) startCall(ctx context.Context, info vendors.CallInfo, outgoing bool) (CallSession, error) {
	if info.ConversationID == "" {
		return CallSession{}, ErrInvalidCall
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session != nil {
		return CallSession{}, ErrCallInProgress
	}

	command := "incoming_call"
	if outgoing {
		command = "outgoing_call"
	}
	if dev := o.deviceLocked(); dev != nil {
		place := dev.IncomingCall
		if outgoing {
			place = dev.OutgoingCall
		}
		if err := place(ctx, info); err != nil {
			return CallSession{}, err
		}
	}

	o.session = &CallSession{
		ConversationID: info.ConversationID,
		ContactName:    info.ContactName,
		Ringing:        !outgoing,
		Connected:      outgoing,
		StartedAt:      o.now().UTC(),
	}
	o.publishCommandLocked(command)
	return *o.session, nil
}

func (o *Orchestrator) Answer(ctx context.Context) (CallSession, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return CallSession{}, ErrNoCall
	}
	if o.session.Connected {
		return CallSession{}, ErrCallInProgress
	}
	if dev := o.deviceLocked(); dev != nil {
		if err := dev.AnswerCall(ctx, o.session.ConversationID); err != nil {
			return CallSession{}, err
		}
	}
	o.session.Ringing = false
	o.session.Connected = true
	o.publishCommandLocked("answer")
	return *o.session, nil
}

func (o *Orchestrator) End(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return ErrNoCall
	}
	if dev := o.deviceLocked(); dev != nil {
		if err := dev.EndCall(ctx, o.session.ConversationID); err != nil {
			return err
		}
	}
	o.finishLocked(ctx, calls.EndReasonApp)
	o.publishCommandLocked("end")
	return nil
}

func (o *Orchestrator) ToggleMute(ctx context.Context) (CallSession, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireConnectedLocked(); err != nil {
		return CallSession{}, err
	}
	target := !o.session.Muted
	if dev := o.deviceLocked(); dev != nil {
		if err := dev.SetMute(ctx, target); err != nil {
			return CallSession{}, err
		}
	}
	o.session.Muted = target
	o.publishCommandLocked("mute")
	return *o.session, nil
}

func (o *Orchestrator) ToggleHold(ctx context.Context) (CallSession, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireConnectedLocked(); err != nil {
		return CallSession{}, err
	}
	target := !o.session.Held
	if dev := o.deviceLocked(); dev != nil {
		if err := dev.SetHold(ctx, o.session.ConversationID, target); err != nil {
			return CallSession{}, err
		}
	}
	o.session.Held = target
	o.publishCommandLocked("hold")
	return *o.session, nil
}

// EndAll ends every call the connected headset knows about and clears the session. The
// session is cleared even when the vendor fails; that failure is still returned.
func (o *Orchestrator) EndAll(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	var vendorErr error
	if dev := o.deviceLocked(); dev != nil {
		if err := dev.EndAllCalls(ctx); err != nil {
			o.log.Warn("end all calls failed on headset, clearing session anyway", "err", err)
			vendorErr = err
		}
	}
	if o.session != nil {
		o.finishLocked(ctx, calls.EndReasonEndAll)
	}
	o.publishCommandLocked("end_all")
	return vendorErr
}

// deviceLocked returns the active implementation while its headset is connected, nil
// otherwise.
func (o *Orchestrator) deviceLocked() Implementation {
	if o.active == nil {
		return nil
	}
	switch o.active.Status().State {
	case vendors.StateConnectedIdle, vendors.StateConnectedActive:
		return o.active
	default:
		return nil
	}
}

func (o *Orchestrator) requireConnectedLocked() error {
	if o.session == nil {
		return ErrNoCall
	}
	if !o.session.Connected {
		return ErrCallNotConnected
	}
	return nil
}

func (o *Orchestrator) publishCommandLocked(command string) {
	o.publishLocked(Event{Type: EventSessionChanged, Command: command, Session: o.session.snapshot()})
}

// finishLocked clears the session and appends it to call history.
func (o *Orchestrator) finishLocked(ctx context.Context, reason calls.EndReason) {
	s := o.session
	o.session = nil
	if s == nil || o.history == nil {
		return
	}
	rec := calls.Record{
		ConversationID: s.ConversationID,
		ContactName:    s.ContactName,
		Answered:       s.Connected,
		Muted:          s.Muted,
		EndReason:      reason,
		StartedAt:      s.StartedAt,
		EndedAt:        o.now().UTC(),
	}
	if o.active != nil {
		rec.Vendor = string(o.active.Vendor())
	}
	if err := o.history.Record(ctx, rec); err != nil {
		o.log.Warn("call history write failed", "conversation_id", s.ConversationID, "err", err)
	}
}

// --- hardware actions ---

// handleAction applies an action from the implementation activated under gen. Each state
// change is confirmed with the vendor first; the action is published either way.
func (o *Orchestrator) handleAction(gen uint64, a vendors.DeviceAction) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || gen != o.gen || o.active == nil {
		o.log.Debug("stale device action dropped", "kind", string(a.Kind), "vendor", string(a.Vendor))
		return
	}
	ctx := context.Background()

	switch a.Kind {
	case vendors.ActionAnsweredCall:
		o.deviceAnsweredLocked(ctx)
	case vendors.ActionEndedCall:
		o.deviceEndedLocked(ctx)
	case vendors.ActionMuteChanged:
		o.deviceMuteLocked(ctx, a.Flag)
	case vendors.ActionHoldChanged:
		o.deviceHoldLocked(ctx, a.Flag)
	default:
		o.log.Debug("unrecognized device event", "vendor", string(a.Vendor), "name", a.Name)
	}

	act := a
	o.publishLocked(Event{Type: EventDeviceAction, Action: &act, Session: o.session.snapshot()})
}

func (o *Orchestrator) deviceAnsweredLocked(ctx context.Context) {
	if o.session == nil || o.session.Connected {
		return
	}
	if err := o.active.AnswerCall(ctx, o.session.ConversationID); err != nil {
		o.log.Warn("answer confirmation failed", "err", err)
		return
	}
	o.session.Ringing = false
	o.session.Connected = true
}

func (o *Orchestrator) deviceEndedLocked(ctx context.Context) {
	if o.session == nil {
		return
	}
	if err := o.active.EndCall(ctx, o.session.ConversationID); err != nil {
		o.log.Warn("end confirmation failed", "err", err)
		return
	}
	o.finishLocked(ctx, calls.EndReasonDevice)
}

func (o *Orchestrator) deviceMuteLocked(ctx context.Context, muted bool) {
	if o.session == nil || o.session.Muted == muted {
		return
	}
	if err := o.active.SetMute(ctx, muted); err != nil {
		o.log.Warn("mute confirmation failed", "err", err)
		return
	}
	o.session.Muted = muted
}

func (o *Orchestrator) deviceHoldLocked(ctx context.Context, held bool) {
	if o.session == nil || o.session.Held == held {
		return
	}
	if err := o.active.SetHold(ctx, o.session.ConversationID, held); err != nil {
		o.log.Warn("hold confirmation failed", "err", err)
		return
	}
	o.session.Held = held
}
