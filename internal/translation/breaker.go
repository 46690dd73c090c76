package translation

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const (
	breakerTripAfter   = 5
	breakerOpenTimeout = 30 * time.Second
)

// callerAbort wraps a failure that happened because the caller's context ended
// mid-call, not because the per-attempt timeout or the provider gave up.
type callerAbort struct {
	err error
}

func (e *callerAbort) Error() string { return e.err.Error() }

func (e *callerAbort) Unwrap() error { return e.err }

// breakers holds one circuit breaker per network provider.
type breakers struct {
	mu        sync.Mutex
	byName    map[string]*gobreaker.CircuitBreaker
	timeout   time.Duration
	metrics   *Metrics
	logger    zerolog.Logger
	tripAfter uint32
}

func newBreakers(metrics *Metrics, logger zerolog.Logger) *breakers {
	return &breakers{
		byName:    make(map[string]*gobreaker.CircuitBreaker),
		timeout:   breakerOpenTimeout,
		metrics:   metrics,
		logger:    logger,
		tripAfter: breakerTripAfter,
	}
}

func (b *breakers) get(provider string) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.byName[provider]; ok {
		return cb
	}
	tripAfter := b.tripAfter
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        provider,
		MaxRequests: 1,
		Timeout:     b.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation and the chain deadline say nothing about provider health.
			var aborted *callerAbort
			return err == nil || errors.Is(err, context.Canceled) || errors.As(err, &aborted)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.metrics.setBreakerState(name, breakerStateValue(to))
			b.logger.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("translation provider circuit breaker changed state")
		},
	})
	b.byName[provider] = cb
	return cb
}

// execute runs call inside the provider's breaker. An open breaker fails fast with 503.
func (b *breakers) execute(provider string, call func() (*Result, error)) (*Result, error) {
	out, err := b.get(provider).Execute(func() (interface{}, error) {
		return call()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, newProviderError(provider, http.StatusServiceUnavailable, "circuit breaker is open")
		}
		return nil, err
	}
	result, _ := out.(*Result)
	if result == nil {
		return nil, newProviderError(provider, 0, "empty result")
	}
	return result, nil
}

func (b *breakers) state(provider string) string {
	b.mu.Lock()
	cb, ok := b.byName[provider]
	b.mu.Unlock()
	if !ok {
		return gobreaker.StateClosed.String()
	}
	return cb.State().String()
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
