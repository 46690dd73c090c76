package translation

import (
	"sync"
	"time"

	"horse.fit/lisan/internal/clock"
	"horse.fit/lisan/internal/config"
)

const (
	rateLimitMinute = time.Minute
	rateLimitDay    = 24 * time.Hour
)

// WindowUsage is the number of recorded attempts inside each sliding window.
type WindowUsage struct {
	LastMinute int `json:"last_minute"`
	LastDay    int `json:"last_day"`
}

// RateLimiter keeps per-provider sliding windows of attempt timestamps.
// Providers without configured limits, and the dictionary, are always allowed.
type RateLimiter struct {
	mu      sync.Mutex
	clock   clock.Clock
	limits  map[string]config.RateLimit
	windows map[string][]time.Time
}

func NewRateLimiter(limits map[string]config.RateLimit, clk clock.Clock) *RateLimiter {
	normalized := make(map[string]config.RateLimit, len(limits))
	for id, limit := range limits {
		normalized[normalizeProviderName(id)] = limit
	}
	return &RateLimiter{
		clock:   clock.OrSystem(clk),
		limits:  normalized,
		windows: make(map[string][]time.Time, len(normalized)),
	}
}

// Allow reports whether provider may be called now. It does not reserve a slot.
func (r *RateLimiter) Allow(provider string) bool {
	return r.Check(provider) == nil
}

// Check is Allow with the exhausted window reported as a *RateLimitError.
func (r *RateLimiter) Check(provider string) error {
	return r.admit(provider, false)
}

// Reserve checks the windows and, when allowed, records the attempt at the
// current time under the same lock. Concurrent callers cannot overshoot a limit.
func (r *RateLimiter) Reserve(provider string) error {
	return r.admit(provider, true)
}

func (r *RateLimiter) admit(provider string, record bool) error {
	if r == nil {
		return nil
	}
	id := normalizeProviderName(provider)
	if id == config.ProviderDictionary {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	limit, ok := r.limits[id]
	if !ok {
		return nil
	}

	now := r.clock.Now()
	window := r.pruneLocked(id, now)

	if limit.RequestsPerMinute > 0 && countSince(window, now, rateLimitMinute) >= limit.RequestsPerMinute {
		return &RateLimitError{Provider: id, Window: "minute"}
	}
	if limit.RequestsPerDay > 0 && len(window) >= limit.RequestsPerDay {
		return &RateLimitError{Provider: id, Window: "day"}
	}
	if record {
		r.windows[id] = append(window, now)
	}
	return nil
}

func (r *RateLimiter) Usage(provider string) WindowUsage {
	if r == nil {
		return WindowUsage{}
	}
	id := normalizeProviderName(provider)

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	window := r.pruneLocked(id, now)
	return WindowUsage{
		LastMinute: countSince(window, now, rateLimitMinute),
		LastDay:    len(window),
	}
}

func (r *RateLimiter) Limit(provider string) (config.RateLimit, bool) {
	if r == nil {
		return config.RateLimit{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	limit, ok := r.limits[normalizeProviderName(provider)]
	return limit, ok
}

// pruneLocked drops timestamps outside the trailing day. Timestamps are appended
// in order so the retained slice stays sorted.
func (r *RateLimiter) pruneLocked(id string, now time.Time) []time.Time {
	window := r.windows[id]
	cut := 0
	for cut < len(window) && now.Sub(window[cut]) >= rateLimitDay {
		cut++
	}
	if cut > 0 {
		window = append(window[:0:0], window[cut:]...)
		r.windows[id] = window
	}
	return window
}

func countSince(window []time.Time, now time.Time, span time.Duration) int {
	count := 0
	for i := len(window) - 1; i >= 0; i-- {
		if now.Sub(window[i]) >= span {
			break
		}
		count++
	}
	return count
}
