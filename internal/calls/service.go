package calls

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for call history. It is append-only.
type Repository interface {
	Insert(ctx context.Context, r Record) error
	// List returns up to limit records, most recently ended first.
	List(ctx context.Context, limit int) ([]Record, error)
	// Between returns records that ended in [from, to), oldest first.
	Between(ctx context.Context, from, to time.Time) ([]Record, error)
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

var (
	ErrInvalidRecord = errors.New("calls: invalid record")
	ErrInvalidRange  = errors.New("calls: invalid time range")
)

// History records finished calls.
type History struct {
	repo  Repository
	clock func() time.Time
}

func NewHistory(repo Repository) *History {
	return &History{repo: repo, clock: time.Now}
}

func (h *History) Record(ctx context.Context, r Record) error {
	if h.repo == nil {
		return errors.New("calls: repository not configured")
	}
	if r.ConversationID == "" || !r.EndReason.Valid() {
		return ErrInvalidRecord
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.EndedAt.IsZero() {
		r.EndedAt = h.clock().UTC()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = r.EndedAt
	}
	return h.repo.Insert(ctx, r)
}

func (h *History) List(ctx context.Context, limit int) ([]Record, error) {
	if h.repo == nil {
		return nil, errors.New("calls: repository not configured")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return h.repo.List(ctx, limit)
}

func (h *History) Between(ctx context.Context, from, to time.Time) ([]Record, error) {
	if h.repo == nil {
		return nil, errors.New("calls: repository not configured")
	}
	if from.IsZero() || to.IsZero() || !to.After(from) {
		return nil, ErrInvalidRange
	}
	return h.repo.Between(ctx, from, to)
}
