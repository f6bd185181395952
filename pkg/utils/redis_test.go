package utils

import (
	"context"
	"testing"
	"time"
)

func TestCappedAppendScriptCompiles(t *testing.T) {
	if cappedAppendScript == nil {
		t.Fatalf("expected script to be initialized")
	}
	if cappedAppendScript.Hash() == "" {
		t.Fatalf("expected script hash")
	}
}

func TestAppendCapped_ValidatesArgs(t *testing.T) {
	if _, err := AppendCapped(context.Background(), nil, "k", "v", 10, time.Minute); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := RecentEntries(context.Background(), nil, "k", 10); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestRedisConfigDefaults(t *testing.T) {
	c := RedisConfig{}.withDefaults()
	if c.PoolSize != 4 || c.PingTimeout != 2*time.Second {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}
