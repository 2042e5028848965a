package telegram

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures per-user message throttling.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	MessagesPerMinute int  `yaml:"messages_per_minute"`
	BurstSize         int  `yaml:"burst_size"`
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		Enabled:           true,
		MessagesPerMinute: 20,
		BurstSize:         5,
	}
}

type userBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a token bucket per user.
type RateLimiter struct {
	config  RateLimitConfig
	mu      sync.Mutex
	buckets map[int64]*userBucket
}

// NewRateLimiter creates a RateLimiter. A nil config uses the defaults.
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	return &RateLimiter{
		config:  *config,
		buckets: make(map[int64]*userBucket),
	}
}

// AllowMessage reports whether userID may send another message now.
func (r *RateLimiter) AllowMessage(userID int64) bool {
	if !r.config.Enabled {
		return true
	}
	return r.bucket(userID).limiter.Allow()
}

// Cleanup drops buckets idle for longer than maxAge.
func (r *RateLimiter) Cleanup(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, b := range r.buckets {
		if !b.lastSeen.After(cutoff) {
			delete(r.buckets, id)
			removed++
		}
	}
	return removed
}

func (r *RateLimiter) bucket(userID int64) *userBucket {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[userID]
	if !ok {
		perSecond := rate.Limit(float64(r.config.MessagesPerMinute) / 60)
		b = &userBucket{limiter: rate.NewLimiter(perSecond, max(r.config.BurstSize, 1))}
		r.buckets[userID] = b
	}
	b.lastSeen = time.Now()
	return b
}
