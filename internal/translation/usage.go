package translation

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const (
	counterTotalRequests = "requests:total"
	counterCacheHits     = "cache:hits"
	counterCacheMisses   = "cache:misses"
	counterRequestPrefix = "requests:"
	counterCostPrefix    = "cost:"
)

// LedgerSink persists usage counters across restarts.
type LedgerSink interface {
	IncrementCounter(ctx context.Context, key string, delta float64) error
	LoadCounters(ctx context.Context) (map[string]float64, error)
	ResetCounters(ctx context.Context) error
}

// UsageStats is a point-in-time copy of the ledger aggregates.
type UsageStats struct {
	TotalRequests      int64              `json:"total_requests"`
	RequestsByProvider map[string]int64   `json:"requests_by_provider"`
	EstimatedCosts     map[string]float64 `json:"estimated_costs"`
	CacheHits          int64              `json:"cache_hits"`
	CacheMisses        int64              `json:"cache_misses"`
}

// UsageReport is the reporting view consumed by the UI.
type UsageReport struct {
	Total        int64              `json:"total"`
	ByProvider   map[string]int64   `json:"byProvider"`
	Costs        map[string]float64 `json:"costs"`
	TotalCost    float64            `json:"totalCost"`
	CacheHitRate string             `json:"cacheHitRate"`
}

// Ledger aggregates request counts, estimated costs and cache traffic.
// Counters are safe for concurrent use; sink failures are logged and ignored.
type Ledger struct {
	totalRequests atomic.Int64
	cacheHits     atomic.Int64
	cacheMisses   atomic.Int64

	mu         sync.RWMutex
	byProvider map[string]int64
	costs      map[string]float64

	sink    LedgerSink
	metrics *Metrics
	logger  zerolog.Logger
}

func NewLedger(sink LedgerSink, metrics *Metrics, logger zerolog.Logger) *Ledger {
	return &Ledger{
		byProvider: make(map[string]int64),
		costs:      make(map[string]float64),
		sink:       sink,
		metrics:    metrics,
		logger:     logger,
	}
}

// Load seeds the in-process aggregates from the sink.
func (l *Ledger) Load(ctx context.Context) error {
	if l == nil || l.sink == nil {
		return nil
	}
	counters, err := l.sink.LoadCounters(ctx)
	if err != nil {
		return fmt.Errorf("%w: load usage counters: %w", ErrStorage, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.byProvider = make(map[string]int64)
	l.costs = make(map[string]float64)
	for key, value := range counters {
		switch {
		case key == counterTotalRequests:
			l.totalRequests.Store(int64(value))
		case key == counterCacheHits:
			l.cacheHits.Store(int64(value))
		case key == counterCacheMisses:
			l.cacheMisses.Store(int64(value))
		case strings.HasPrefix(key, counterRequestPrefix):
			l.byProvider[strings.TrimPrefix(key, counterRequestPrefix)] = int64(value)
		case strings.HasPrefix(key, counterCostPrefix):
			l.costs[strings.TrimPrefix(key, counterCostPrefix)] = value
		}
	}
	return nil
}

// RecordRequest counts one successful provider call and its estimated cost.
func (l *Ledger) RecordRequest(ctx context.Context, provider string, cost float64) {
	if l == nil {
		return
	}
	l.totalRequests.Add(1)

	l.mu.Lock()
	l.byProvider[provider]++
	l.costs[provider] += cost
	l.mu.Unlock()

	l.metrics.observeCost(provider, cost)
	l.persist(ctx, counterTotalRequests, 1)
	l.persist(ctx, counterRequestPrefix+provider, 1)
	if cost != 0 {
		l.persist(ctx, counterCostPrefix+provider, cost)
	}
}

func (l *Ledger) RecordCacheHit(ctx context.Context) {
	if l == nil {
		return
	}
	l.cacheHits.Add(1)
	l.metrics.observeCache("hit")
	l.persist(ctx, counterCacheHits, 1)
}

func (l *Ledger) RecordCacheMiss(ctx context.Context) {
	if l == nil {
		return
	}
	l.cacheMisses.Add(1)
	l.metrics.observeCache("miss")
	l.persist(ctx, counterCacheMisses, 1)
}

// Reset clears the aggregates and the sink.
func (l *Ledger) Reset(ctx context.Context) error {
	if l == nil {
		return nil
	}
	l.totalRequests.Store(0)
	l.cacheHits.Store(0)
	l.cacheMisses.Store(0)

	l.mu.Lock()
	l.byProvider = make(map[string]int64)
	l.costs = make(map[string]float64)
	l.mu.Unlock()

	if l.sink == nil {
		return nil
	}
	if err := l.sink.ResetCounters(ctx); err != nil {
		return fmt.Errorf("%w: reset usage counters: %w", ErrStorage, err)
	}
	return nil
}

func (l *Ledger) Snapshot() UsageStats {
	if l == nil {
		return UsageStats{RequestsByProvider: map[string]int64{}, EstimatedCosts: map[string]float64{}}
	}

	l.mu.RLock()
	byProvider := maps.Clone(l.byProvider)
	costs := maps.Clone(l.costs)
	l.mu.RUnlock()

	return UsageStats{
		TotalRequests:      l.totalRequests.Load(),
		RequestsByProvider: byProvider,
		EstimatedCosts:     costs,
		CacheHits:          l.cacheHits.Load(),
		CacheMisses:        l.cacheMisses.Load(),
	}
}

func (l *Ledger) Report() UsageReport {
	stats := l.Snapshot()

	totalCost := 0.0
	for _, cost := range stats.EstimatedCosts {
		totalCost += cost
	}

	return UsageReport{
		Total:        stats.TotalRequests,
		ByProvider:   stats.RequestsByProvider,
		Costs:        stats.EstimatedCosts,
		TotalCost:    totalCost,
		CacheHitRate: cacheHitRate(stats.CacheHits, stats.CacheMisses),
	}
}

func cacheHitRate(hits, misses int64) string {
	if hits+misses == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", float64(hits)/float64(hits+misses)*100)
}

func (l *Ledger) persist(ctx context.Context, key string, delta float64) {
	if l.sink == nil {
		return
	}
	if err := l.sink.IncrementCounter(ctx, key, delta); err != nil {
		l.logger.Warn().Err(fmt.Errorf("%w: %w", ErrStorage, err)).Str("counter", key).Msg("usage counter write failed")
	}
}
