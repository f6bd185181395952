package vendors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlantronicsTranslator(t *testing.T) {
	tr := NewPlantronics(nil, "").Translator()

	cases := []struct {
		code int
		kind ActionKind
		flag bool
	}{
		{1, ActionAnsweredCall, false},
		{2, ActionEndedCall, false},
		{23, ActionEndedCall, false},
		{11, ActionMuteChanged, true},
		{12, ActionMuteChanged, false},
		{3, ActionHoldChanged, true},
		{4, ActionHoldChanged, false},
		{17, ActionUnrecognized, false},
	}
	for _, tc := range cases {
		a, ok := tr.Translate(CallEvent{Action: tc.code, CallRef: CallRef{ID: "7"}})
		assert.True(t, ok, "code %d", tc.code)
		assert.Equal(t, tc.kind, a.Kind, "code %d", tc.code)
		assert.Equal(t, tc.flag, a.Flag, "code %d", tc.code)
		assert.Equal(t, "7", a.CallID)
		assert.Equal(t, VendorPlantronics, a.Vendor)
	}
}

func TestTranslator_CallEndedOnlyRecomputes(t *testing.T) {
	tr := NewPlantronics(nil, "").Translator()

	_, ok := tr.Translate(CallEvent{Action: 8})
	assert.False(t, ok)
	assert.Equal(t, HandlerCheckActive, tr.Lookup("CallEnded").Handler)
}

func TestTranslator_UnknownCodeKeepsRawName(t *testing.T) {
	tr := NewPlantronics(nil, "").Translator()

	a, ok := tr.Translate(CallEvent{Action: 99})
	assert.True(t, ok)
	assert.Equal(t, ActionUnrecognized, a.Kind)
	assert.Equal(t, "99", a.Name)

	assert.Equal(t, "Doff", tr.Name(CallEvent{Action: 17}))
}

func TestJabraTranslator(t *testing.T) {
	tr := NewJabra(nil, "").Translator()

	a, _ := tr.Translate(CallEvent{Event: "acceptcall"})
	assert.Equal(t, ActionAnsweredCall, a.Kind)
	a, _ = tr.Translate(CallEvent{Event: "reject"})
	assert.Equal(t, ActionEndedCall, a.Kind)
	a, _ = tr.Translate(CallEvent{Event: "unmute"})
	assert.Equal(t, ActionMuteChanged, a.Kind)
	assert.False(t, a.Flag)
	a, _ = tr.Translate(CallEvent{Event: "hold"})
	assert.Equal(t, ActionHoldChanged, a.Kind)
	assert.True(t, a.Flag)

	_, ok := tr.Translate(CallEvent{Event: "onhook"})
	assert.False(t, ok)

	a, _ = tr.Translate(CallEvent{Event: "flash"})
	assert.Equal(t, ActionUnrecognized, a.Kind)
	assert.Equal(t, "flash", a.Name)
}

func TestSennheiserTranslator(t *testing.T) {
	tr := NewSennheiser(nil, "").Translator()

	a, _ := tr.Translate(CallEvent{Event: "IncomingCallAccepted"})
	assert.Equal(t, ActionAnsweredCall, a.Kind)
	a, _ = tr.Translate(CallEvent{Event: "CallEndedFromHeadset"})
	assert.Equal(t, ActionEndedCall, a.Kind)
	a, _ = tr.Translate(CallEvent{Event: "MuteFromHeadset"})
	assert.Equal(t, ActionMuteChanged, a.Kind)
	assert.True(t, a.Flag)
	a, _ = tr.Translate(CallEvent{Event: "ResumeFromHeadset"})
	assert.Equal(t, ActionHoldChanged, a.Kind)
	assert.False(t, a.Flag)

	_, ok := tr.Translate(CallEvent{Event: "CallIdle"})
	assert.False(t, ok)
}
