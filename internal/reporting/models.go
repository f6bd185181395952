package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call metrics over finished calls.
// Vendor narrows the summary to calls handled through one headset integration.
type CallsSummaryRequest struct {
	Range  TimeRange `json:"range"`
	Vendor string    `json:"vendor,omitempty"`
}

type CallsSummary struct {
	Range  TimeRange `json:"range"`
	Vendor string    `json:"vendor,omitempty"`

	TotalCalls    int `json:"total_calls"`
	AnsweredCalls int `json:"answered_calls"`
	MissedCalls   int `json:"missed_calls"`
	MutedCalls    int `json:"muted_calls"`

	// EndedBy counts calls per end reason (app, device, end_all).
	EndedBy map[string]int `json:"ended_by"`
	// ByVendor counts calls per headset vendor; "" is a call without an active integration.
	ByVendor map[string]int `json:"by_vendor"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	AnswerRate float64 `json:"answer_rate"`
}

// VendorEventsRequest summarizes the most recent raw vendor events.
type VendorEventsRequest struct {
	Limit  int    `json:"limit"`
	Vendor string `json:"vendor,omitempty"`
}

type VendorEventsSummary struct {
	Vendor string `json:"vendor,omitempty"`

	TotalEvents        int `json:"total_events"`
	RecognizedEvents   int `json:"recognized_events"`
	UnrecognizedEvents int `json:"unrecognized_events"`

	// ByHandler counts events per dispatch handler name.
	ByHandler map[string]int `json:"by_handler"`
	// Unrecognized counts raw names the vendor vocabulary does not map, for vocabulary work.
	Unrecognized map[string]int `json:"unrecognized"`
}
