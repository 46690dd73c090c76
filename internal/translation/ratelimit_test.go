package translation

import (
	"errors"
	"sync"
	"testing"
	"time"

	"horse.fit/lisan/internal/clock"
	"horse.fit/lisan/internal/config"
)

func TestRateLimiterDayWindow(t *testing.T) {
	t.Parallel()

	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	limiter := NewRateLimiter(map[string]config.RateLimit{
		"libre": {RequestsPerMinute: 0, RequestsPerDay: 3},
	}, fake)

	for range 3 {
		if err := limiter.Check("libre"); err != nil {
			t.Fatalf("unexpected limit: %v", err)
		}
		if err := limiter.Reserve("libre"); err != nil {
			t.Fatalf("reserve: %v", err)
		}
		fake.Advance(time.Hour)
	}

	err := limiter.Check("libre")
	var limitErr *RateLimitError
	if !errors.As(err, &limitErr) || limitErr.Window != "day" {
		t.Fatalf("expected day limit, got %v", err)
	}

	// The first attempt leaves the trailing day 24h after it was recorded.
	fake.Set(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	if !limiter.Allow("libre") {
		t.Fatalf("expected oldest attempt to fall out of the day window")
	}
	if usage := limiter.Usage("libre"); usage.LastDay != 2 || usage.LastMinute != 0 {
		t.Fatalf("usage = %+v", usage)
	}
}

func TestRateLimiterAlwaysAllowsDictionaryAndUnknown(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(map[string]config.RateLimit{
		"dictionary": {RequestsPerMinute: 1, RequestsPerDay: 1},
	}, clock.NewFake(time.Now()))

	for range 5 {
		if err := limiter.Reserve("dictionary"); err != nil {
			t.Fatalf("reserve dictionary: %v", err)
		}
		if err := limiter.Reserve("somewhere"); err != nil {
			t.Fatalf("reserve unconfigured: %v", err)
		}
	}
	if !limiter.Allow("dictionary") || !limiter.Allow("somewhere") {
		t.Fatalf("dictionary and unconfigured providers must never be limited")
	}
	if _, ok := limiter.Limit("somewhere"); ok {
		t.Fatalf("unexpected limit for unconfigured provider")
	}
}

func TestRateLimiterNormalizesNames(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(map[string]config.RateLimit{" Claude ": {RequestsPerMinute: 1}}, clock.NewFake(time.Now()))
	if err := limiter.Reserve("CLAUDE"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if limiter.Allow("claude") {
		t.Fatalf("expected claude to be limited after one attempt")
	}
}

func TestRateLimiterCheckDoesNotReserve(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(map[string]config.RateLimit{"google": {RequestsPerMinute: 1}}, clock.NewFake(time.Now()))
	for range 3 {
		if err := limiter.Check("google"); err != nil {
			t.Fatalf("check consumed a slot: %v", err)
		}
	}
	if err := limiter.Reserve("google"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	var limitErr *RateLimitError
	if err := limiter.Reserve("google"); !errors.As(err, &limitErr) || limitErr.Window != "minute" {
		t.Fatalf("expected minute limit, got %v", err)
	}
	if usage := limiter.Usage("google"); usage.LastMinute != 1 {
		t.Fatalf("usage = %+v", usage)
	}
}

func TestRateLimiterReserveIsAtomic(t *testing.T) {
	t.Parallel()

	const limit = 4
	limiter := NewRateLimiter(map[string]config.RateLimit{"claude": {RequestsPerMinute: limit}}, clock.NewFake(time.Now()))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Reserve("claude") == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != limit {
		t.Fatalf("granted %d reservations, want %d", granted, limit)
	}
}
