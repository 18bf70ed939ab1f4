package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrLimited     = errors.New("rate limited")
	ErrUnavailable = errors.New("rate limiter unavailable")
)

// Limiter enforces a fixed window of at most N hits per key.
type Limiter interface {
	// Allow records a hit for key and returns ErrLimited once the window is full.
	Allow(ctx context.Context, key string) error
}

// MemoryLimiter is a process-local Limiter for single instance deployments and tests.
type MemoryLimiter struct {
	max     int
	window  time.Duration
	nowTime func() time.Time
	buckets map[string]*bucket
	mu      sync.Mutex
}

type bucket struct {
	count   int
	resetAt time.Time
}

type MemoryOption func(*MemoryLimiter)

func WithNowTime(nowTime func() time.Time) MemoryOption {
	return func(l *MemoryLimiter) {
		l.nowTime = nowTime
	}
}

func NewMemoryLimiter(max int, window time.Duration, options ...MemoryOption) *MemoryLimiter {
	l := &MemoryLimiter{
		max:     max,
		window:  window,
		nowTime: time.Now,
		buckets: make(map[string]*bucket),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowTime()
	b, ok := l.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{resetAt: now.Add(l.window)}
		l.buckets[key] = b
	}
	b.count++
	if b.count > l.max {
		return ErrLimited
	}
	return nil
}

// Prune drops windows that have already closed.
func (l *MemoryLimiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowTime()
	for key, b := range l.buckets {
		if !now.Before(b.resetAt) {
			delete(l.buckets, key)
		}
	}
}
