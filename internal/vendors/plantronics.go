package vendors

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
)

// DefaultPluginName is the name this application registers with vendor software.
const DefaultPluginName = "genesys-cloud-headset-library"

var plantronicsCodes = map[int]string{
	1:  "AcceptCall",
	2:  "TerminateCall",
	3:  "HoldCall",
	4:  "ResumeCall",
	5:  "Flash",
	6:  "CallInProgress",
	7:  "CallRinging",
	8:  "CallEnded",
	9:  "TransferToHeadSet",
	10: "TransferToSpeaker",
	11: "Mute",
	12: "Unmute",
	13: "MobileCallRinging",
	14: "MobileCallInProgress",
	15: "MobileCallEnded",
	16: "Don",
	17: "Doff",
	18: "CallIdle",
	19: "Play",
	20: "Pause",
	21: "Stop",
	22: "DTMFKey",
	23: "RejectCall",
}

var plantronicsVocab = map[string]Dispatch{
	"AcceptCall":    {Handler: HandlerAnswered},
	"TerminateCall": {Handler: HandlerEnded},
	"RejectCall":    {Handler: HandlerEnded},
	"CallEnded":     {Handler: HandlerCheckActive},
	"Mute":          {Handler: HandlerMute, Flag: true},
	"Unmute":        {Handler: HandlerMute, Flag: false},
	"HoldCall":      {Handler: HandlerHold, Flag: true},
	"ResumeCall":    {Handler: HandlerHold, Flag: false},
}

// Plantronics speaks the Spokes local REST API.
type Plantronics struct {
	client     *Client
	pluginName string
}

func NewPlantronics(client *Client, pluginName string) *Plantronics {
	if pluginName == "" {
		pluginName = DefaultPluginName
	}
	return &Plantronics{client: client, pluginName: pluginName}
}

func (p *Plantronics) Vendor() VendorID { return VendorPlantronics }

func (p *Plantronics) Translator() Translator {
	return NewTranslator(VendorPlantronics, plantronicsCodes, plantronicsVocab)
}

func (p *Plantronics) named() url.Values {
	return url.Values{"name": {p.pluginName}}
}

// Connect registers the plugin, marks its session active and makes it the default softphone.
func (p *Plantronics) Connect(ctx context.Context) error {
	if err := p.client.Command(ctx, "/SessionManager/Register", p.named()); err != nil {
		// Spokes rejects a second registration of the same plugin name.
		if !errors.Is(err, ErrVendorRejected) {
			return err
		}
	}

	q := p.named()
	q.Set("active", "true")
	if err := p.client.Command(ctx, "/SessionManager/IsActive", q); err != nil {
		return err
	}
	return p.client.Command(ctx, "/UserPreference/SetDefaultSoftPhone", p.named())
}

func (p *Plantronics) Disconnect(ctx context.Context) error {
	return p.client.Command(ctx, "/SessionManager/UnRegister", p.named())
}

func (p *Plantronics) DeviceStatus(ctx context.Context) (DeviceInfo, error) {
	return p.client.DeviceInfo(ctx, "/DeviceServices/Info", nil)
}

func (p *Plantronics) CallEvents(ctx context.Context) ([]CallEvent, error) {
	return p.client.CallEvents(ctx, "/CallServices/CallEvents", p.named())
}

func (p *Plantronics) ActiveCalls(ctx context.Context) ([]CallEvent, error) {
	return p.client.CallEvents(ctx, "/CallServices/CallManagerState", nil)
}

func (p *Plantronics) IncomingCall(ctx context.Context, info CallInfo) error {
	q, err := p.callParams(info.ConversationID)
	if err != nil {
		return err
	}
	contact, err := json.Marshal(struct {
		Name string `json:"Name"`
	}{Name: info.ContactName})
	if err != nil {
		return err
	}
	q.Set("contact", string(contact))
	q.Set("tones", "Unknown")
	q.Set("route", "ToHeadset")
	return p.client.Command(ctx, "/CallServices/IncomingCall", q)
}

func (p *Plantronics) OutgoingCall(ctx context.Context, info CallInfo) error {
	q, err := p.callParams(info.ConversationID)
	if err != nil {
		return err
	}
	contact, err := json.Marshal(struct {
		Name string `json:"Name"`
	}{Name: info.ContactName})
	if err != nil {
		return err
	}
	q.Set("contact", string(contact))
	return p.client.Command(ctx, "/CallServices/OutgoingCall", q)
}

func (p *Plantronics) AnswerCall(ctx context.Context, callID string) error {
	q, err := p.callParams(callID)
	if err != nil {
		return err
	}
	return p.client.Command(ctx, "/CallServices/AnswerCall", q)
}

func (p *Plantronics) EndCall(ctx context.Context, callID string) error {
	q, err := p.callParams(callID)
	if err != nil {
		return err
	}
	return p.client.Command(ctx, "/CallServices/TerminateCall", q)
}

func (p *Plantronics) SetMute(ctx context.Context, muted bool) error {
	q := p.named()
	q.Set("muted", strconv.FormatBool(muted))
	return p.client.Command(ctx, "/CallServices/MuteCall", q)
}

func (p *Plantronics) SetHold(ctx context.Context, callID string, held bool) error {
	q, err := p.callParams(callID)
	if err != nil {
		return err
	}
	endpoint := "/CallServices/ResumeCall"
	if held {
		endpoint = "/CallServices/HoldCall"
	}
	return p.client.Command(ctx, endpoint, q)
}

// callParams encodes the call reference the way Spokes expects it: callID={"Id":"..."}.
func (p *Plantronics) callParams(callID string) (url.Values, error) {
	ref, err := json.Marshal(struct {
		ID string `json:"Id"`
	}{ID: callID})
	if err != nil {
		return nil, err
	}
	q := p.named()
	q.Set("callID", string(ref))
	return q, nil
}
