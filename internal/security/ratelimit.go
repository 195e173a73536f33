package security

import (
	"errors"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a sender exceeds the message rate limit.
var ErrRateLimited = errors.New("security: rate limit exceeded")

// RateLimitConfig holds the per-owner message limits.
type RateLimitConfig struct {
	// MessagesPerMinute is the sustained rate allowed per owner.
	// A value <= 0 disables limiting.
	MessagesPerMinute int `yaml:"messages_per_minute"`

	// Burst is the number of messages accepted at once before the rate
	// applies. Defaults to MessagesPerMinute.
	Burst int `yaml:"burst"`

	// IdleExpiry drops an owner's bucket after this much inactivity.
	// Defaults to 10 minutes.
	IdleExpiry time.Duration `yaml:"idle_expiry"`
}

// RateLimiter applies a token bucket per owner. Buckets live in an
// expiring cache so idle owners do not accumulate.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	buckets *cache.Cache
	now     func() time.Time
}

// NewRateLimiter creates a rate limiter. It returns nil when cfg disables
// limiting; a nil *RateLimiter allows everything.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.MessagesPerMinute <= 0 {
		return nil
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.MessagesPerMinute
	}
	if cfg.IdleExpiry <= 0 {
		cfg.IdleExpiry = 10 * time.Minute
	}
	return &RateLimiter{
		limit:   rate.Limit(float64(cfg.MessagesPerMinute) / 60),
		burst:   cfg.Burst,
		buckets: cache.New(cfg.IdleExpiry, cfg.IdleExpiry),
		now:     time.Now,
	}
}

// Allow consumes one message from the owner's bucket. It returns
// ErrRateLimited when the bucket is empty.
func (rl *RateLimiter) Allow(ownerID int64) error {
	if rl == nil {
		return nil
	}
	if !rl.bucket(ownerID).AllowN(rl.now(), 1) {
		return ErrRateLimited
	}
	return nil
}

// bucket returns the owner's limiter, creating it on first use and
// refreshing its expiry.
func (rl *RateLimiter) bucket(ownerID int64) *rate.Limiter {
	key := strconv.FormatInt(ownerID, 10)
	if v, ok := rl.buckets.Get(key); ok {
		lim := v.(*rate.Limiter)
		rl.buckets.SetDefault(key, lim)
		return lim
	}
	lim := rate.NewLimiter(rl.limit, rl.burst)
	// Add fails when another goroutine created the bucket first.
	if err := rl.buckets.Add(key, lim, cache.DefaultExpiration); err != nil {
		if v, ok := rl.buckets.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}
