package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"quorumd/internal/domain"
)

const defaultMaxKeys = 10000

type window struct {
	hits    int
	resetAt time.Time
}

// MemoryLimiter is a fixed-window counter for single-instance deployments.
type MemoryLimiter struct {
	mu      sync.Mutex
	clock   func() time.Time
	windows map[string]*window
	maxKeys int
}

func NewMemoryLimiter(clock func() time.Time, maxKeys int) *MemoryLimiter {
	if clock == nil {
		clock = time.Now
	}
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}
	return &MemoryLimiter{
		clock:   clock,
		windows: make(map[string]*window),
		maxKeys: maxKeys,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, span time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	now := m.clock()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if ok && now.After(w.resetAt) {
		delete(m.windows, key)
		ok = false
	}
	if !ok {
		if len(m.windows) >= m.maxKeys {
			m.evictExpired(now)
		}
		if len(m.windows) >= m.maxKeys {
			return domain.RateLimitDecision{}, errors.New("rate limiter key capacity exceeded")
		}
		w = &window{resetAt: now.Add(span)}
		m.windows[key] = w
	}

	if w.hits >= limit {
		return domain.RateLimitDecision{Limit: limit, ResetAt: w.resetAt}, nil
	}
	w.hits++
	return domain.RateLimitDecision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - w.hits,
		ResetAt:   w.resetAt,
	}, nil
}

func (m *MemoryLimiter) evictExpired(now time.Time) {
	for key, w := range m.windows {
		if now.After(w.resetAt) {
			delete(m.windows, key)
		}
	}
}
