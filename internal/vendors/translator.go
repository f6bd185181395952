package vendors

import (
	"strconv"
	"time"
)

// Handler is the closed set of reactions a raw vendor event can trigger.
type Handler int

const (
	// HandlerEventLog is the catch-all diagnostic sink for names without a mapping.
	HandlerEventLog Handler = iota
	HandlerAnswered
	HandlerEnded
	// HandlerCheckActive recomputes IsActive from the active-call list instead of
	// emitting an action.
	HandlerCheckActive
	HandlerMute
	HandlerHold
)

func (h Handler) String() string {
	switch h {
	case HandlerAnswered:
		return "answered"
	case HandlerEnded:
		return "ended"
	case HandlerCheckActive:
		return "check_active"
	case HandlerMute:
		return "mute_changed"
	case HandlerHold:
		return "hold_changed"
	default:
		return "event_log"
	}
}

// Dispatch is the handler variant for one raw event name.
type Dispatch struct {
	Handler Handler
	Flag    bool
}

// Translator maps one vendor's event vocabulary onto canonical actions.
type Translator struct {
	vendor VendorID
	codes  map[int]string
	vocab  map[string]Dispatch
}

func NewTranslator(vendor VendorID, codes map[int]string, vocab map[string]Dispatch) Translator {
	return Translator{vendor: vendor, codes: codes, vocab: vocab}
}

// Name resolves the raw event name: the Event string when present, otherwise the
// vendor's code table, otherwise the decimal code.
func (t Translator) Name(ev CallEvent) string {
	if ev.Event != "" {
		return ev.Event
	}
	if n, ok := t.codes[ev.Action]; ok {
		return n
	}
	return strconv.Itoa(ev.Action)
}

// Lookup returns the handler variant for a raw name. Unmapped names land on HandlerEventLog.
func (t Translator) Lookup(name string) Dispatch {
	if d, ok := t.vocab[name]; ok {
		return d
	}
	return Dispatch{Handler: HandlerEventLog}
}

// Translate converts a raw event into a DeviceAction. It returns false for events that
// only trigger a side-channel recomputation (HandlerCheckActive).
func (t Translator) Translate(ev CallEvent) (DeviceAction, bool) {
	name := t.Name(ev)
	d := t.Lookup(name)
	a := DeviceAction{Vendor: t.vendor, Name: name, CallID: string(ev.CallRef.ID), At: time.Now().UTC()}

	switch d.Handler {
	case HandlerAnswered:
		a.Kind = ActionAnsweredCall
	case HandlerEnded:
		a.Kind = ActionEndedCall
	case HandlerMute:
		a.Kind, a.Flag = ActionMuteChanged, d.Flag
	case HandlerHold:
		a.Kind, a.Flag = ActionHoldChanged, d.Flag
	case HandlerCheckActive:
		return DeviceAction{}, false
	default:
		a.Kind = ActionUnrecognized
	}
	return a, true
}
