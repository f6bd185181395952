package vendors

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Protocol is one vendor's variant of the local control surface.
//
// Rules:
//   - Protocols are stateless translators between calls and vendor endpoints.
//   - Polling, connection state and event dispatch live in Implementation.
type Protocol interface {
	Vendor() VendorID
	Translator() Translator

	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	DeviceStatus(ctx context.Context) (DeviceInfo, error)
	CallEvents(ctx context.Context) ([]CallEvent, error)
	ActiveCalls(ctx context.Context) ([]CallEvent, error)

	IncomingCall(ctx context.Context, info CallInfo) error
	OutgoingCall(ctx context.Context, info CallInfo) error
	AnswerCall(ctx context.Context, callID string) error
	EndCall(ctx context.Context, callID string) error
	SetMute(ctx context.Context, muted bool) error
	SetHold(ctx context.Context, callID string, held bool) error
}

// Diagnostics receives every raw event an implementation polls.
type Diagnostics interface {
	RecordVendorEvent(ctx context.Context, e VendorEvent) error
}

// VendorEvent is the diagnostic view of one raw vendor event.
type VendorEvent struct {
	Vendor  VendorID
	Name    string
	Code    int
	Handler Handler
	CallID  string
	At      time.Time
}

type State string

const (
	StateDisconnected    State = "disconnected"
	StateConnecting      State = "connecting"
	StateConnectedIdle   State = "connected_idle"
	StateConnectedActive State = "connected_active"
)

// PollingState is the mutable connection/activity record of one implementation.
type PollingState struct {
	IsConnected         bool          `json:"isConnected"`
	IsConnecting        bool          `json:"isConnecting"`
	IsActive            bool          `json:"isActive"`
	DisableEventPolling bool          `json:"disableEventPolling"`
	Registered          bool          `json:"registered"`
	DeviceInterval      time.Duration `json:"deviceInterval"`
}

// Status is a point-in-time snapshot for callers outside the package.
type Status struct {
	Vendor     VendorID     `json:"vendor"`
	State      State        `json:"state"`
	DeviceName string       `json:"deviceName,omitempty"`
	Device     *DeviceInfo  `json:"device,omitempty"`
	Polling    PollingState `json:"polling"`
}

// Options tunes polling. Zero values take defaults.
type Options struct {
	ActivePollingInterval      time.Duration
	ConnectedDeviceInterval    time.Duration
	DisconnectedDeviceInterval time.Duration
	// MaxRetryInterval caps the backoff applied while the device cannot be reached.
	MaxRetryInterval time.Duration

	Scheduler   Scheduler
	Diagnostics Diagnostics
	Logger      *slog.Logger
}

func (o Options) withDefaults() Options {
	out := o
	if out.ActivePollingInterval <= 0 {
		out.ActivePollingInterval = 2 * time.Second
	}
	if out.ConnectedDeviceInterval <= 0 {
		out.ConnectedDeviceInterval = 6 * time.Second
	}
	if out.DisconnectedDeviceInterval <= 0 {
		out.DisconnectedDeviceInterval = 2 * time.Second
	}
	if out.MaxRetryInterval < out.DisconnectedDeviceInterval {
		out.MaxRetryInterval = 30 * time.Second
		if out.MaxRetryInterval < out.DisconnectedDeviceInterval {
			out.MaxRetryInterval = out.DisconnectedDeviceInterval
		}
	}
	if out.Scheduler == nil {
		out.Scheduler = RealScheduler{}
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// Implementation runs the device-status and call-events polling loops for one vendor
// and exposes its command surface.
//
// Concurrency:
//   - mu guards all state and is never held across a vendor call or the sink.
//   - Every activation gets a new epoch; work started under an older epoch is discarded.
type Implementation struct {
	proto      Protocol
	translator Translator
	opts       Options
	log        *slog.Logger
	retry      *backoff.ExponentialBackOff

	mu          sync.Mutex
	activated   bool
	epoch       uint64
	ctx         context.Context
	cancel      context.CancelFunc
	sink        func(DeviceAction)
	state       PollingState
	device      *DeviceInfo
	statusTimer Timer
	eventsTimer Timer
}

func New(p Protocol, opts Options) *Implementation {
	opts = opts.withDefaults()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = opts.DisconnectedDeviceInterval
	bo.MaxInterval = opts.MaxRetryInterval
	bo.Multiplier = 1.5
	bo.RandomizationFactor = 0
	bo.Reset()

	return &Implementation{
		proto:      p,
		translator: p.Translator(),
		opts:       opts,
		log:        opts.Logger.With("component", "vendor", "vendor", string(p.Vendor())),
		retry:      bo,
		ctx:        context.Background(),
		state:      PollingState{DeviceInterval: opts.DisconnectedDeviceInterval},
	}
}

func (i *Implementation) Vendor() VendorID { return i.proto.Vendor() }

// Activate moves the implementation from Disconnected to Connecting and starts both
// polling loops. Actions are delivered to sink until Deactivate.
func (i *Implementation) Activate(sink func(DeviceAction)) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.activated {
		i.sink = sink
		return
	}
	i.activated = true
	i.epoch++
	i.ctx, i.cancel = context.WithCancel(context.Background())
	i.sink = sink
	i.state = PollingState{DeviceInterval: i.opts.DisconnectedDeviceInterval}
	i.device = nil
	i.retry.Reset()

	epoch := i.epoch
	i.scheduleStatusLocked(epoch, 0)
	i.scheduleEventsLocked(epoch)
	i.log.Info("vendor implementation activated")
}

// Deactivate cancels both timers and any in-flight request, returns to Disconnected and
// unregisters from the vendor software. No tick fires afterwards.
func (i *Implementation) Deactivate(ctx context.Context) {
	i.mu.Lock()
	if !i.activated {
		i.mu.Unlock()
		return
	}
	i.activated = false
	i.epoch++
	if i.statusTimer != nil {
		i.statusTimer.Stop()
		i.statusTimer = nil
	}
	if i.eventsTimer != nil {
		i.eventsTimer.Stop()
		i.eventsTimer = nil
	}
	if i.cancel != nil {
		i.cancel()
	}
	registered := i.state.Registered
	i.state = PollingState{DeviceInterval: i.opts.DisconnectedDeviceInterval}
	i.device = nil
	i.sink = nil
	i.mu.Unlock()

	i.log.Info("vendor implementation deactivated")
	if registered {
		if err := i.proto.Disconnect(ctx); err != nil {
			i.log.Warn("vendor unregister failed", "err", err)
		}
	}
}

// SetEventPolling enables or disables the call-events loop without stopping its timer.
func (i *Implementation) SetEventPolling(enabled bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state.DisableEventPolling = !enabled
}

// Status returns a snapshot of the implementation.
func (i *Implementation) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()

	st := Status{Vendor: i.proto.Vendor(), State: i.stateLocked(), Polling: i.state}
	if i.device != nil {
		d := *i.device
		st.Device = &d
		st.DeviceName = d.ProductName
	}
	return st
}

func (i *Implementation) stateLocked() State {
	switch {
	case !i.activated:
		return StateDisconnected
	case !i.state.IsConnected:
		return StateConnecting
	case i.state.IsActive:
		return StateConnectedActive
	default:
		return StateConnectedIdle
	}
}

func (i *Implementation) current(epoch uint64) bool {
	return i.activated && i.epoch == epoch
}

func (i *Implementation) scheduleStatusLocked(epoch uint64, d time.Duration) {
	i.statusTimer = i.opts.Scheduler.AfterFunc(d, func() { i.pollForDeviceStatus(epoch) })
}

func (i *Implementation) scheduleEventsLocked(epoch uint64) {
	i.eventsTimer = i.opts.Scheduler.AfterFunc(i.opts.ActivePollingInterval, func() { i.pollForCallEvents(epoch) })
}

// pollForDeviceStatus is one tick of the device-status loop. It always reschedules
// itself while the epoch is current.
func (i *Implementation) pollForDeviceStatus(epoch uint64) {
	i.mu.Lock()
	if !i.current(epoch) {
		i.mu.Unlock()
		return
	}
	// The loop never overlaps itself. A tick arriving while a registration handshake is
	// in flight does nothing; the handshake's tick owns the next schedule.
	if i.state.IsConnecting {
		i.mu.Unlock()
		return
	}
	ctx := i.ctx
	register := !i.state.Registered
	if register {
		i.state.IsConnecting = true
	}
	wasConnected := i.state.IsConnected
	i.mu.Unlock()

	var connectErr, err error
	var info DeviceInfo
	if register {
		connectErr = i.proto.Connect(ctx)
		err = connectErr
	}
	if err == nil {
		info, err = i.proto.DeviceStatus(ctx)
	}

	i.mu.Lock()
	if !i.current(epoch) {
		i.mu.Unlock()
		return
	}
	if register {
		i.state.IsConnecting = false
		i.state.Registered = connectErr == nil
	}
	if errors.Is(err, ErrTransport) {
		// The vendor software went away; register again once it is back.
		i.state.Registered = false
	}

	attached := err == nil && info.IsAttached && !info.Empty()
	if attached {
		snapshot := info
		i.device = &snapshot
		i.state.IsConnected = true
		i.state.DeviceInterval = i.opts.ConnectedDeviceInterval
		i.retry.Reset()
	} else {
		i.device = nil
		i.state.IsConnected = false
		i.state.IsActive = false
		i.state.DeviceInterval = i.retry.NextBackOff()
		if err != nil {
			i.log.Debug("device status poll failed", "err", err, "retry_in", i.state.DeviceInterval)
		} else {
			i.log.Debug("device not attached", "retry_in", i.state.DeviceInterval)
		}
	}
	if wasConnected && !attached {
		i.log.Info("device disconnected")
	}
	next := i.state.DeviceInterval
	i.mu.Unlock()

	if attached && !wasConnected {
		i.log.Info("device connected", "product", info.ProductName)
		_ = i.checkIsActive(ctx, epoch)
	}

	i.mu.Lock()
	if i.current(epoch) {
		i.scheduleStatusLocked(epoch, next)
	}
	i.mu.Unlock()
}

// pollForCallEvents is one tick of the call-events loop. It only reaches the vendor when
// connected, active and not disabled, but always reschedules itself.
func (i *Implementation) pollForCallEvents(epoch uint64) {
	i.mu.Lock()
	if !i.current(epoch) {
		i.mu.Unlock()
		return
	}
	poll := i.state.IsConnected && i.state.IsActive && !i.state.DisableEventPolling
	ctx := i.ctx
	i.mu.Unlock()

	if poll {
		events, err := i.proto.CallEvents(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			i.log.Warn("call events poll failed", "err", err)
		default:
			for _, ev := range events {
				i.callCorrespondingFunction(ctx, epoch, ev)
			}
		}
	}

	i.mu.Lock()
	if i.current(epoch) {
		i.scheduleEventsLocked(epoch)
	}
	i.mu.Unlock()
}

// callCorrespondingFunction records ev and dispatches it on its raw vendor name. Emitted
// actions come from the translator.
func (i *Implementation) callCorrespondingFunction(ctx context.Context, epoch uint64, ev CallEvent) {
	name := i.translator.Name(ev)
	d := i.translator.Lookup(name)
	i.record(ctx, ev, name, d.Handler)

	if d.Handler == HandlerCheckActive {
		_ = i.checkIsActive(ctx, epoch)
		return
	}
	a, ok := i.translator.Translate(ev)
	if !ok {
		return
	}

	switch d.Handler {
	case HandlerAnswered:
		i.deviceAnsweredCall(epoch, a)
	case HandlerEnded:
		i.deviceEndedCall(epoch, a)
	case HandlerMute:
		i.deviceMuteChanged(epoch, a)
	case HandlerHold:
		i.deviceHoldStatusChanged(epoch, a)
	default:
		i.deviceEventLogs(epoch, a, ev)
	}
}

func (i *Implementation) deviceAnsweredCall(epoch uint64, a DeviceAction) {
	i.emit(epoch, a)
}

func (i *Implementation) deviceEndedCall(epoch uint64, a DeviceAction) {
	i.emit(epoch, a)
}

func (i *Implementation) deviceMuteChanged(epoch uint64, a DeviceAction) {
	i.log.Debug("headset mute changed", "muted", a.Flag)
	i.emit(epoch, a)
}

func (i *Implementation) deviceHoldStatusChanged(epoch uint64, a DeviceAction) {
	i.log.Debug("headset hold changed", "held", a.Flag)
	i.emit(epoch, a)
}

func (i *Implementation) deviceEventLogs(epoch uint64, a DeviceAction, ev CallEvent) {
	i.log.Debug("unrecognized vendor event", "name", a.Name, "code", ev.Action)
	i.emit(epoch, a)
}

// checkIsActive sets IsActive to whether the vendor reports any active call. It never
// reuses a previous answer.
func (i *Implementation) checkIsActive(ctx context.Context, epoch uint64) error {
	calls, err := i.proto.ActiveCalls(ctx)

	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.current(epoch) {
		return nil
	}
	if err != nil {
		i.log.Warn("active calls lookup failed", "err", err)
		return err
	}
	i.state.IsActive = len(calls) > 0
	return nil
}

func (i *Implementation) emit(epoch uint64, a DeviceAction) {
	i.mu.Lock()
	if !i.current(epoch) || i.sink == nil {
		i.mu.Unlock()
		return
	}
	sink := i.sink
	i.mu.Unlock()
	sink(a)
}

func (i *Implementation) record(ctx context.Context, ev CallEvent, name string, h Handler) {
	if i.opts.Diagnostics == nil {
		return
	}
	err := i.opts.Diagnostics.RecordVendorEvent(ctx, VendorEvent{
		Vendor:  i.proto.Vendor(),
		Name:    name,
		Code:    ev.Action,
		Handler: h,
		CallID:  string(ev.CallRef.ID),
		At:      time.Now().UTC(),
	})
	if err != nil {
		i.log.Debug("diagnostic record failed", "err", err)
	}
}

func (i *Implementation) begin() (uint64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.activated {
		return 0, ErrNotActive
	}
	return i.epoch, nil
}

func (i *Implementation) markActive(epoch uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.current(epoch) {
		i.state.IsActive = true
	}
}

// --- commands ---

func (i *Implementation) IncomingCall(ctx context.Context, info CallInfo) error {
	epoch, err := i.begin()
	if err != nil {
		return err
	}
	if err := i.proto.IncomingCall(ctx, info); err != nil {
		return err
	}
	i.markActive(epoch)
	return nil
}

func (i *Implementation) OutgoingCall(ctx context.Context, info CallInfo) error {
	epoch, err := i.begin()
	if err != nil {
		return err
	}
	if err := i.proto.OutgoingCall(ctx, info); err != nil {
		return err
	}
	i.markActive(epoch)
	return nil
}

func (i *Implementation) AnswerCall(ctx context.Context, callID string) error {
	epoch, err := i.begin()
	if err != nil {
		return err
	}
	if err := i.proto.AnswerCall(ctx, callID); err != nil {
		return err
	}
	i.markActive(epoch)
	return nil
}

func (i *Implementation) EndCall(ctx context.Context, callID string) error {
	epoch, err := i.begin()
	if err != nil {
		return err
	}
	if err := i.proto.EndCall(ctx, callID); err != nil {
		return err
	}
	_ = i.checkIsActive(ctx, epoch)
	return nil
}

func (i *Implementation) SetMute(ctx context.Context, muted bool) error {
	if _, err := i.begin(); err != nil {
		return err
	}
	return i.proto.SetMute(ctx, muted)
}

func (i *Implementation) SetHold(ctx context.Context, callID string, held bool) error {
	if _, err := i.begin(); err != nil {
		return err
	}
	return i.proto.SetHold(ctx, callID, held)
}

// EndAllCalls terminates every call the vendor reports as active.
func (i *Implementation) EndAllCalls(ctx context.Context) error {
	epoch, err := i.begin()
	if err != nil {
		return err
	}
	calls, err := i.proto.ActiveCalls(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, c := range calls {
		if err := i.proto.EndCall(ctx, string(c.CallRef.ID)); err != nil {
			errs = append(errs, err)
		}
	}
	_ = i.checkIsActive(ctx, epoch)
	return errors.Join(errs...)
}
