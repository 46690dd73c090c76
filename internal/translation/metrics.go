package translation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics mirrors the usage ledger and fallback chain as Prometheus series.
// A nil *Metrics records nothing.
type Metrics struct {
	attempts     *prometheus.CounterVec   // Provider attempts by outcome
	latency      *prometheus.HistogramVec // Provider call latency
	cacheEvents  *prometheus.CounterVec   // Cache hits and resolved misses
	cost         *prometheus.CounterVec   // Estimated spend by provider
	breakerState *prometheus.GaugeVec     // 0=closed, 1=half-open, 2=open
	quotaDenied  prometheus.Counter
}

// NewMetrics creates and registers translation metrics with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lisan",
			Subsystem: "translation",
			Name:      "provider_attempts_total",
			Help:      "Translation provider attempts by outcome",
		}, []string{"provider", "outcome"}),

		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lisan",
			Subsystem: "translation",
			Name:      "provider_latency_seconds",
			Help:      "Latency of translation provider calls",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"provider"}),

		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lisan",
			Subsystem: "translation",
			Name:      "cache_events_total",
			Help:      "Translation cache hits and misses",
		}, []string{"result"}),

		cost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lisan",
			Subsystem: "translation",
			Name:      "estimated_cost_usd_total",
			Help:      "Estimated translation spend by provider",
		}, []string{"provider"}),

		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "lisan",
			Subsystem: "translation",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"provider"}),

		quotaDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lisan",
			Subsystem: "translation",
			Name:      "quota_denied_total",
			Help:      "Requests denied by the per-user free tier quota",
		}),
	}

	for _, collector := range []prometheus.Collector{
		m.attempts,
		m.latency,
		m.cacheEvents,
		m.cost,
		m.breakerState,
		m.quotaDenied,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeAttempt(provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(provider, outcome).Inc()
	if elapsed > 0 {
		m.latency.WithLabelValues(provider).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) observeCache(result string) {
	if m == nil {
		return
	}
	m.cacheEvents.WithLabelValues(result).Inc()
}

func (m *Metrics) observeCost(provider string, cost float64) {
	if m == nil || cost <= 0 {
		return
	}
	m.cost.WithLabelValues(provider).Add(cost)
}

func (m *Metrics) setBreakerState(provider string, state float64) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(provider).Set(state)
}

func (m *Metrics) observeQuotaDenied() {
	if m == nil {
		return
	}
	m.quotaDenied.Inc()
}
