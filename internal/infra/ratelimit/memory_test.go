package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterCountsWithinWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(func() time.Time { return now }, 0)

	for i := 0; i < 3; i++ {
		decision, err := limiter.Allow(context.Background(), "k", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !decision.Allowed {
			t.Fatalf("request %d denied below limit", i)
		}
		if decision.Remaining != 3-i-1 {
			t.Fatalf("remaining = %d after %d hits", decision.Remaining, i+1)
		}
	}

	decision, err := limiter.Allow(context.Background(), "k", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow over limit: %v", err)
	}
	if decision.Allowed {
		t.Fatal("request above limit allowed")
	}
	if !decision.ResetAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("reset at = %v", decision.ResetAt)
	}
}

func TestMemoryLimiterResetsAfterWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(func() time.Time { return now }, 0)

	for i := 0; i < 2; i++ {
		if _, err := limiter.Allow(context.Background(), "k", 2, time.Minute); err != nil {
			t.Fatalf("allow: %v", err)
		}
	}
	if decision, _ := limiter.Allow(context.Background(), "k", 2, time.Minute); decision.Allowed {
		t.Fatal("request above limit allowed")
	}

	now = now.Add(2 * time.Minute)
	decision, err := limiter.Allow(context.Background(), "k", 2, time.Minute)
	if err != nil {
		t.Fatalf("allow after window: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("request denied in fresh window")
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter(nil, 0)
	if _, err := limiter.Allow(context.Background(), "a", 1, time.Minute); err != nil {
		t.Fatalf("allow a: %v", err)
	}
	decision, err := limiter.Allow(context.Background(), "b", 1, time.Minute)
	if err != nil {
		t.Fatalf("allow b: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("separate key shared the window")
	}
}

func TestMemoryLimiterZeroLimitDisables(t *testing.T) {
	limiter := NewMemoryLimiter(nil, 0)
	for i := 0; i < 5; i++ {
		decision, err := limiter.Allow(context.Background(), "k", 0, time.Minute)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !decision.Allowed {
			t.Fatal("zero limit should disable limiting")
		}
	}
}
