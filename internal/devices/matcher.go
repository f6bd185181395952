package devices

import (
	"strings"

	"headset-bridge/internal/vendors"
)

// MediaDevice is the subset of a browser media device the matcher looks at.
type MediaDevice struct {
	DeviceID string `json:"deviceId"`
	Label    string `json:"label"`
	Kind     string `json:"kind,omitempty"`
}

// Rule maps a vendor to fingerprints. Fingerprints are lower-case substrings, including
// USB vendor-id tokens such as "(047f:" that browsers append to labels.
type Rule struct {
	Vendor       vendors.VendorID
	Fingerprints []string
}

// DefaultRules is the fixed priority order used by the daemon.
var DefaultRules = []Rule{
	{Vendor: vendors.VendorPlantronics, Fingerprints: []string{"plantronics", "plt", "(047f:"}},
	{Vendor: vendors.VendorJabra, Fingerprints: []string{"jabra", "(0b0e:"}},
	{Vendor: vendors.VendorSennheiser, Fingerprints: []string{"sennheiser", "senn", "epos", "(1395:"}},
}

// Matcher picks the vendor whose fingerprint appears in a device label.
type Matcher struct {
	rules []Rule
}

// NewMatcher copies rules; nil means DefaultRules.
func NewMatcher(rules []Rule) *Matcher {
	if rules == nil {
		rules = DefaultRules
	}
	cp := make([]Rule, 0, len(rules))
	for _, r := range rules {
		fps := make([]string, 0, len(r.Fingerprints))
		for _, f := range r.Fingerprints {
			if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
				fps = append(fps, f)
			}
		}
		cp = append(cp, Rule{Vendor: r.Vendor, Fingerprints: fps})
	}
	return &Matcher{rules: cp}
}

// Match returns the first rule, in priority order, with any fingerprint in label.
func (m *Matcher) Match(label string) (vendors.VendorID, bool) {
	l := strings.ToLower(label)
	if l == "" {
		return "", false
	}
	for _, r := range m.rules {
		for _, f := range r.Fingerprints {
			if strings.Contains(l, f) {
				return r.Vendor, true
			}
		}
	}
	return "", false
}

// MatchDevice tries the label first and falls back to the device id.
func (m *Matcher) MatchDevice(d MediaDevice) (vendors.VendorID, bool) {
	if v, ok := m.Match(d.Label); ok {
		return v, true
	}
	return m.Match(d.DeviceID)
}
