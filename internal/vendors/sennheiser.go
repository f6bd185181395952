package vendors

import (
	"context"
	"net/url"
	"strconv"
)

var sennheiserVocab = map[string]Dispatch{
	"IncomingCallAccepted": {Handler: HandlerAnswered},
	"CallEndedFromHeadset": {Handler: HandlerEnded},
	"IncomingCallRejected": {Handler: HandlerEnded},
	"CallIdle":             {Handler: HandlerCheckActive},
	"MuteFromHeadset":      {Handler: HandlerMute, Flag: true},
	"UnmuteFromHeadset":    {Handler: HandlerMute, Flag: false},
	"HoldFromHeadset":      {Handler: HandlerHold, Flag: true},
	"ResumeFromHeadset":    {Handler: HandlerHold, Flag: false},
}

// Sennheiser speaks the Sennheiser/EPOS SDK service.
//
// The SDK talks to its host over native messaging. This type assumes a loopback
// service that relays it with the Spokes-style envelope at SennheiserBaseURL; the
// endpoint paths are that assumed surface. The event names are the SDK's.
type Sennheiser struct {
	client  *Client
	appName string
}

func NewSennheiser(client *Client, appName string) *Sennheiser {
	if appName == "" {
		appName = DefaultPluginName
	}
	return &Sennheiser{client: client, appName: appName}
}

func (s *Sennheiser) Vendor() VendorID { return VendorSennheiser }

func (s *Sennheiser) Translator() Translator {
	return NewTranslator(VendorSennheiser, nil, sennheiserVocab)
}

func (s *Sennheiser) app() url.Values {
	return url.Values{"application": {s.appName}}
}

func (s *Sennheiser) call(callID string) url.Values {
	q := s.app()
	q.Set("callId", callID)
	return q
}

func (s *Sennheiser) Connect(ctx context.Context) error {
	return s.client.Command(ctx, "/Session/Register", s.app())
}

func (s *Sennheiser) Disconnect(ctx context.Context) error {
	return s.client.Command(ctx, "/Session/Unregister", s.app())
}

func (s *Sennheiser) DeviceStatus(ctx context.Context) (DeviceInfo, error) {
	return s.client.DeviceInfo(ctx, "/Device/Info", s.app())
}

func (s *Sennheiser) CallEvents(ctx context.Context) ([]CallEvent, error) {
	return s.client.CallEvents(ctx, "/Call/Events", s.app())
}

func (s *Sennheiser) ActiveCalls(ctx context.Context) ([]CallEvent, error) {
	return s.client.CallEvents(ctx, "/Call/Active", s.app())
}

func (s *Sennheiser) IncomingCall(ctx context.Context, info CallInfo) error {
	q := s.call(info.ConversationID)
	q.Set("contact", info.ContactName)
	return s.client.Command(ctx, "/Call/Incoming", q)
}

func (s *Sennheiser) OutgoingCall(ctx context.Context, info CallInfo) error {
	q := s.call(info.ConversationID)
	q.Set("contact", info.ContactName)
	return s.client.Command(ctx, "/Call/Outgoing", q)
}

func (s *Sennheiser) AnswerCall(ctx context.Context, callID string) error {
	return s.client.Command(ctx, "/Call/Accept", s.call(callID))
}

func (s *Sennheiser) EndCall(ctx context.Context, callID string) error {
	return s.client.Command(ctx, "/Call/End", s.call(callID))
}

func (s *Sennheiser) SetMute(ctx context.Context, muted bool) error {
	q := s.app()
	q.Set("muted", strconv.FormatBool(muted))
	return s.client.Command(ctx, "/Call/Mute", q)
}

func (s *Sennheiser) SetHold(ctx context.Context, callID string, held bool) error {
	q := s.call(callID)
	q.Set("hold", strconv.FormatBool(held))
	return s.client.Command(ctx, "/Call/Hold", q)
}
