package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"headset-bridge/pkg/utils"
)

const DefaultRedisKey = "headsetd:vendor_events"

// RedisRepo stores events as JSON in a capped redis list, newest first.
type RedisRepo struct {
	rdb *redis.Client
	key string
	max int
	ttl time.Duration
}

func NewRedisRepo(rdb *redis.Client, key string, max int, ttl time.Duration) *RedisRepo {
	if key == "" {
		key = DefaultRedisKey
	}
	if max <= 0 {
		max = MaxRecentLimit
	}
	return &RedisRepo{rdb: rdb, key: key, max: max, ttl: ttl}
}

func (r *RedisRepo) Append(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := utils.AppendCapped(ctx, r.rdb, r.key, string(b), r.max, r.ttl); err != nil {
		return fmt.Errorf("eventlog: redis append: %w", err)
	}
	return nil
}

func (r *RedisRepo) Recent(ctx context.Context, limit int) ([]Event, error) {
	raw, err := utils.RecentEntries(ctx, r.rdb, r.key, limit)
	if err != nil {
		return nil, fmt.Errorf("eventlog: redis range: %w", err)
	}
	return decodeEntries(raw), nil
}

// decodeEntries skips entries that do not parse; the list may hold records from an
// older daemon version.
func decodeEntries(raw []string) []Event {
	out := make([]Event, 0, len(raw))
	for _, s := range raw {
		var e Event
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out
}
