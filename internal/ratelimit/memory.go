package ratelimit

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter keeps per-process fixed window counters in go-cache. It is
// used when Redis is not reachable at startup.
type MemoryLimiter struct {
	c      *gocache.Cache
	max    int64
	window time.Duration
	now    func() time.Time
}

// NewMemoryLimiter builds an in-process limiter.
func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		c:      gocache.New(window, time.Minute),
		max:    int64(max),
		window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now().UTC()
	winStart := now.Truncate(l.window)
	cacheKey := fmt.Sprintf("%s:%d", key, winStart.Unix())

	// Add only succeeds for the first hit of the window.
	_ = l.c.Add(cacheKey, int64(0), l.window)
	hits, err := l.c.IncrementInt64(cacheKey, 1)
	if err != nil {
		return Result{}, err
	}

	return evaluate(hits, l.max, winStart.Add(l.window).Sub(now), l.window), nil
}
