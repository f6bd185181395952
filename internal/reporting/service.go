package reporting

import (
	"context"
	"errors"
	"time"

	"headset-bridge/internal/calls"
	"headset-bridge/internal/eventlog"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting. Both sources are append-only.
type Repository interface {
	ListCalls(ctx context.Context, from, to time.Time) ([]calls.Record, error)
	RecentEvents(ctx context.Context, limit int) ([]eventlog.Event, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListCalls(ctx, req.Range.From, req.Range.To)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{
		Range:    req.Range,
		Vendor:   req.Vendor,
		EndedBy:  map[string]int{},
		ByVendor: map[string]int{},
	}
	var answeredSeconds int
	for _, c := range rows {
		if req.Vendor != "" && c.Vendor != req.Vendor {
			continue
		}
		out.TotalCalls++
		out.EndedBy[string(c.EndReason)]++
		out.ByVendor[c.Vendor]++
		if c.Muted {
			out.MutedCalls++
		}
		secs := int(c.Duration() / time.Second)
		out.TotalDurationSeconds += secs
		if c.Answered {
			out.AnsweredCalls++
			answeredSeconds += secs
		} else {
			out.MissedCalls++
		}
	}
	// Average covers answered calls only.
	if out.AnsweredCalls > 0 {
		out.AverageDurationSeconds = answeredSeconds / out.AnsweredCalls
	}
	if out.TotalCalls > 0 {
		out.AnswerRate = float64(out.AnsweredCalls) / float64(out.TotalCalls)
	}
	return out, nil
}

func (s *Service) VendorEvents(ctx context.Context, req VendorEventsRequest) (VendorEventsSummary, error) {
	if req.Limit < 0 {
		return VendorEventsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return VendorEventsSummary{}, errors.New("reporting: repository not configured")
	}
	limit := req.Limit
	if limit == 0 || limit > eventlog.MaxRecentLimit {
		limit = eventlog.MaxRecentLimit
	}

	events, err := s.repo.RecentEvents(ctx, limit)
	if err != nil {
		return VendorEventsSummary{}, err
	}

	out := VendorEventsSummary{
		Vendor:       req.Vendor,
		ByHandler:    map[string]int{},
		Unrecognized: map[string]int{},
	}
	for _, e := range events {
		if req.Vendor != "" && e.Vendor != req.Vendor {
			continue
		}
		out.TotalEvents++
		out.ByHandler[e.Handler]++
		if e.Recognized {
			out.RecognizedEvents++
		} else {
			out.UnrecognizedEvents++
			out.Unrecognized[e.Name]++
		}
	}
	return out, nil
}
