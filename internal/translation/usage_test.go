package translation

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerReport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := NewLedger(nil, nil, zerolog.Nop())
	assert.Equal(t, "0%", ledger.Report().CacheHitRate)

	ledger.RecordRequest(ctx, "claude", 0.25)
	ledger.RecordRequest(ctx, "claude", 0.25)
	ledger.RecordRequest(ctx, "google", 0.1)
	ledger.RecordCacheHit(ctx)
	ledger.RecordCacheHit(ctx)
	ledger.RecordCacheMiss(ctx)

	report := ledger.Report()
	assert.Equal(t, int64(3), report.Total)
	assert.Equal(t, map[string]int64{"claude": 2, "google": 1}, report.ByProvider)
	assert.InDelta(t, 0.5, report.Costs["claude"], 1e-9)
	assert.InDelta(t, 0.6, report.TotalCost, 1e-9)
	assert.Equal(t, "66.67%", report.CacheHitRate)
}

func TestLedgerLoadAndReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sink := NewMemoryLedgerSink()

	first := NewLedger(sink, nil, zerolog.Nop())
	first.RecordRequest(ctx, "openai", 0.002)
	first.RecordCacheMiss(ctx)

	second := NewLedger(sink, nil, zerolog.Nop())
	require.NoError(t, second.Load(ctx))
	stats := second.Snapshot()
	assert.Equal(t, int64(1), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.RequestsByProvider["openai"])
	assert.InDelta(t, 0.002, stats.EstimatedCosts["openai"], 1e-12)
	assert.Equal(t, int64(1), stats.CacheMisses)

	require.NoError(t, second.Reset(ctx))
	assert.Equal(t, int64(0), second.Snapshot().TotalRequests)

	third := NewLedger(sink, nil, zerolog.Nop())
	require.NoError(t, third.Load(ctx))
	assert.Empty(t, third.Snapshot().RequestsByProvider)
}

func TestNilLedgerIsSafe(t *testing.T) {
	t.Parallel()

	var ledger *Ledger
	ledger.RecordRequest(context.Background(), "claude", 1)
	ledger.RecordCacheHit(context.Background())
	assert.Equal(t, "0%", ledger.Report().CacheHitRate)
}
