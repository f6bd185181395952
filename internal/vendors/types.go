package vendors

import (
	"bytes"
	"encoding/json"
	"time"
)

// VendorID identifies a headset manufacturer with its own local control software.
type VendorID string

const (
	VendorPlantronics VendorID = "plantronics"
	VendorJabra       VendorID = "jabra"
	VendorSennheiser  VendorID = "sennheiser"
)

func (v VendorID) String() string { return string(v) }

// DeviceInfo is the vendor-reported hardware descriptor.
// It is an immutable snapshot; each status poll replaces it wholesale.
type DeviceInfo struct {
	ProductName              string `json:"ProductName"`
	InternalName             string `json:"InternalName,omitempty"`
	ManufacturerName         string `json:"ManufacturerName,omitempty"`
	SerialNumber             string `json:"SerialNumber,omitempty"`
	BaseSerialNumber         string `json:"BaseSerialNumber,omitempty"`
	HeadsetSerialNumber      string `json:"HeadsetSerialNumber,omitempty"`
	BaseFirmwareVersion      string `json:"BaseFirmwareVersion,omitempty"`
	BluetoothFirmwareVersion string `json:"BluetoothFirmwareVersion,omitempty"`
	RemoteFirmwareVersion    string `json:"RemoteFirmwareVersion,omitempty"`
	USBVersionNumber         string `json:"USBVersionNumber,omitempty"`
	DevicePath               string `json:"DevicePath,omitempty"`
	Uid                      string `json:"Uid,omitempty"`
	VendorId                 int    `json:"VendorId,omitempty"`
	ProductId                int    `json:"ProductId,omitempty"`
	IsAttached               bool   `json:"IsAttached"`
}

// Empty reports whether the vendor returned no usable descriptor.
func (d DeviceInfo) Empty() bool {
	return d.ProductName == "" && d.Uid == "" && d.SerialNumber == "" && d.VendorId == 0 && d.ProductId == 0
}

// CallID is a vendor call identifier. Vendors send it either as a number or a string.
type CallID string

func (c *CallID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = CallID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = CallID(n.String())
	return nil
}

// CallRef is the call reference attached to vendor call records.
type CallRef struct {
	ID           CallID `json:"Id"`
	ConferenceID int    `json:"ConferenceId,omitempty"`
	InConference bool   `json:"InConference,omitempty"`
}

// CallEvent is one record of a CallStateArray result.
//
// Code-based vendors (Plantronics) fill Action; name-based vendors fill Event.
type CallEvent struct {
	Action      int     `json:"Action,omitempty"`
	Event       string  `json:"Event,omitempty"`
	CallRef     CallRef `json:"CallId"`
	CallSource  string  `json:"CallSource,omitempty"`
	DeviceEvent int     `json:"DeviceEvent,omitempty"`
	DialedKey   int     `json:"DialedKey,omitempty"`
}

// CallInfo describes a call the application hands to the headset.
type CallInfo struct {
	ConversationID string `json:"conversationId"`
	ContactName    string `json:"contactName,omitempty"`
}

// ActionKind is the closed set of canonical, vendor-independent actions.
type ActionKind string

const (
	ActionAnsweredCall          ActionKind = "answered_call"
	ActionEndedCall             ActionKind = "ended_call"
	ActionMuteChanged           ActionKind = "mute_changed"
	ActionHoldChanged           ActionKind = "hold_changed"
	ActionImplementationChanged ActionKind = "implementation_changed"
	ActionUnrecognized          ActionKind = "unrecognized"
)

// DeviceAction is a canonical action derived from a raw vendor event.
//
// Flag is meaningful for MuteChanged and HoldChanged only.
// Name is the raw vendor event name (the raw value of Unrecognized).
type DeviceAction struct {
	Kind   ActionKind `json:"kind"`
	Flag   bool       `json:"flag,omitempty"`
	Vendor VendorID   `json:"vendor"`
	Name   string     `json:"name,omitempty"`
	CallID string     `json:"callId,omitempty"`
	At     time.Time  `json:"at"`
}
