package security

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRateLimiter_Disabled(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{})
	if rl != nil {
		t.Fatal("expected nil limiter when disabled")
	}
	for range 100 {
		if err := rl.Allow(1); err != nil {
			t.Fatalf("nil limiter Allow() = %v", err)
		}
	}
}

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(RateLimitConfig{MessagesPerMinute: 6, Burst: 2})
	rl.now = clock.Now

	for i := range 2 {
		if err := rl.Allow(1); err != nil {
			t.Fatalf("message %d: Allow() = %v", i, err)
		}
	}
	if err := rl.Allow(1); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("third message: Allow() = %v, want ErrRateLimited", err)
	}

	// Other owners have their own bucket.
	if err := rl.Allow(2); err != nil {
		t.Fatalf("other owner: Allow() = %v", err)
	}

	// 6/min refills one token every 10 seconds.
	clock.Advance(10 * time.Second)
	if err := rl.Allow(1); err != nil {
		t.Fatalf("after refill: Allow() = %v", err)
	}
}

func TestRateLimiter_ConcurrentOwners(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{MessagesPerMinute: 1000})
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				_ = rl.Allow(int64(i % 4))
			}
		}()
	}
	wg.Wait()
}
