package vendors

import (
	"context"
	"net/url"
	"strconv"
)

var jabraVocab = map[string]Dispatch{
	"acceptcall": {Handler: HandlerAnswered},
	"endcall":    {Handler: HandlerEnded},
	"reject":     {Handler: HandlerEnded},
	"onhook":     {Handler: HandlerCheckActive},
	"mute":       {Handler: HandlerMute, Flag: true},
	"unmute":     {Handler: HandlerMute, Flag: false},
	"hold":       {Handler: HandlerHold, Flag: true},
	"resume":     {Handler: HandlerHold, Flag: false},
}

// Jabra speaks the Jabra bridge service. Events arrive by name, never by code.
//
// Jabra ships its integration as a browser-extension bridge, not a loopback HTTP API.
// This type assumes a loopback bridge that exposes the same envelope as Plantronics
// Spokes at JabraBaseURL; the endpoint paths are that assumed surface. The event names
// are the ones the Jabra bridge emits.
type Jabra struct {
	client  *Client
	appName string
}

func NewJabra(client *Client, appName string) *Jabra {
	if appName == "" {
		appName = DefaultPluginName
	}
	return &Jabra{client: client, appName: appName}
}

func (j *Jabra) Vendor() VendorID { return VendorJabra }

func (j *Jabra) Translator() Translator {
	return NewTranslator(VendorJabra, nil, jabraVocab)
}

func (j *Jabra) app() url.Values {
	return url.Values{"app": {j.appName}}
}

func (j *Jabra) call(callID string) url.Values {
	q := j.app()
	q.Set("callId", callID)
	return q
}

func (j *Jabra) Connect(ctx context.Context) error {
	return j.client.Command(ctx, "/Session/Connect", j.app())
}

func (j *Jabra) Disconnect(ctx context.Context) error {
	return j.client.Command(ctx, "/Session/Disconnect", j.app())
}

func (j *Jabra) DeviceStatus(ctx context.Context) (DeviceInfo, error) {
	return j.client.DeviceInfo(ctx, "/Device/Status", j.app())
}

func (j *Jabra) CallEvents(ctx context.Context) ([]CallEvent, error) {
	return j.client.CallEvents(ctx, "/Call/Events", j.app())
}

func (j *Jabra) ActiveCalls(ctx context.Context) ([]CallEvent, error) {
	return j.client.CallEvents(ctx, "/Call/Active", j.app())
}

func (j *Jabra) IncomingCall(ctx context.Context, info CallInfo) error {
	q := j.call(info.ConversationID)
	q.Set("contact", info.ContactName)
	return j.client.Command(ctx, "/Call/Ring", q)
}

func (j *Jabra) OutgoingCall(ctx context.Context, info CallInfo) error {
	q := j.call(info.ConversationID)
	q.Set("contact", info.ContactName)
	return j.client.Command(ctx, "/Call/Offhook", q)
}

func (j *Jabra) AnswerCall(ctx context.Context, callID string) error {
	return j.client.Command(ctx, "/Call/Answer", j.call(callID))
}

func (j *Jabra) EndCall(ctx context.Context, callID string) error {
	return j.client.Command(ctx, "/Call/End", j.call(callID))
}

func (j *Jabra) SetMute(ctx context.Context, muted bool) error {
	q := j.app()
	q.Set("state", strconv.FormatBool(muted))
	return j.client.Command(ctx, "/Call/Mute", q)
}

func (j *Jabra) SetHold(ctx context.Context, callID string, held bool) error {
	q := j.call(callID)
	q.Set("state", strconv.FormatBool(held))
	return j.client.Command(ctx, "/Call/Hold", q)
}
