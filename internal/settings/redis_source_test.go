package settings

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisSource(t *testing.T) *RedisSource {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})
	return NewRedisSource(cache)
}

func TestRedisSourceDefaultsWhenEmpty(t *testing.T) {
	src := newRedisSource(t)

	got, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != Defaults() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestRedisSourceRoundTrip(t *testing.T) {
	src := newRedisSource(t)
	ctx := context.Background()

	want := Defaults()
	want.ConversionRate = 0.75
	want.MinWithdrawal = 300
	want.EarningEnabled = false

	if err := src.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := src.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestRedisSourceRejectsInvalid(t *testing.T) {
	src := newRedisSource(t)

	bad := Defaults()
	bad.ConversionRate = 0
	if err := src.Save(context.Background(), bad); err == nil {
		t.Fatalf("expected validation failure")
	}
}

func TestMemorySourceRoundTrip(t *testing.T) {
	src := NewMemorySource()
	ctx := context.Background()

	want := Defaults()
	want.WithdrawalFeePercent = 5
	if err := src.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := src.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}
