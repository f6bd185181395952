package vendors

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Result type names used by the vendor envelope.
const (
	TypeNameDeviceInfo       = "DeviceInfo"
	TypeNameCallStateArray   = "CallStateArray"
	TypeNameCallManagerState = "CallManagerState"
	TypeNameBool             = "Bool"
)

// Envelope is the uniform response wrapper of a vendor local API.
//
// Result is kept raw; it is a DeviceInfo record, an array of call records or a
// boolean depending on TypeName.
type Envelope struct {
	Description string          `json:"Description"`
	Result      json.RawMessage `json:"Result,omitempty"`
	Type        int             `json:"Type"`
	TypeName    string          `json:"Type_Name"`
	IsError     bool            `json:"isError"`
}

// DeviceInfo decodes a DeviceInfo result.
func (e Envelope) DeviceInfo() (DeviceInfo, error) {
	if e.TypeName != "" && e.TypeName != TypeNameDeviceInfo {
		return DeviceInfo{}, fmt.Errorf("%w: want %s, got %s", ErrUnexpectedResult, TypeNameDeviceInfo, e.TypeName)
	}
	var d DeviceInfo
	if isBlankResult(e.Result) {
		return d, nil
	}
	if err := json.Unmarshal(e.Result, &d); err != nil {
		return DeviceInfo{}, err
	}
	return d, nil
}

// CallEvents decodes a CallStateArray result. Vendors send an empty string when there
// are no events. A CallManagerState result yields its Calls.
func (e Envelope) CallEvents() ([]CallEvent, error) {
	if isBlankResult(e.Result) {
		return nil, nil
	}
	switch e.TypeName {
	case TypeNameCallManagerState:
		var st struct {
			Calls []CallEvent `json:"Calls"`
		}
		if err := json.Unmarshal(e.Result, &st); err != nil {
			return nil, err
		}
		return st.Calls, nil
	case TypeNameCallStateArray, "":
		var out []CallEvent
		if err := json.Unmarshal(e.Result, &out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: want %s, got %s", ErrUnexpectedResult, TypeNameCallStateArray, e.TypeName)
	}
}

// Bool decodes a Bool result. A missing result counts as true; the request succeeded.
func (e Envelope) Bool() (bool, error) {
	if isBlankResult(e.Result) {
		return true, nil
	}
	var b bool
	if err := json.Unmarshal(e.Result, &b); err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnexpectedResult, err)
	}
	return b, nil
}

func isBlankResult(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte(`""`))
}
