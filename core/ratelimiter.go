package core

import (
	"sync"
	"time"
)

// RateLimiter throttles repeated actions independently per key, so
// one flooding error message cannot silence the others. The key set
// is expected to be small (log messages are static strings).
type RateLimiter struct {
	interval time.Duration
	lastTime map[string]time.Time
	mu       sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{
		interval: interval,
		lastTime: make(map[string]time.Time),
	}
}

// Allow returns true if an action for the given key is allowed now
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.Sub(r.lastTime[key]) >= r.interval {
		r.lastTime[key] = now
		return true
	}
	return false
}
