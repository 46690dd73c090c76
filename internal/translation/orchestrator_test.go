package translation

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"horse.fit/lisan/internal/clock"
	"horse.fit/lisan/internal/config"
	"horse.fit/lisan/internal/language"
	"horse.fit/lisan/internal/phrasebook"
)

type stubProvider struct {
	name string
	err  error
	// translate overrides the fixed translation when set.
	translate func(Request) (string, error)
	block     bool

	mu       sync.Mutex
	calls    int
	requests []Request
	history  [][]Message
}

func (p *stubProvider) Name() string {
	return p.name
}

func (p *stubProvider) Translate(ctx context.Context, req Request) (*Result, error) {
	p.mu.Lock()
	p.calls++
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.err != nil {
		return nil, p.err
	}
	translation := p.name + ":" + req.Text
	if p.translate != nil {
		var err error
		translation, err = p.translate(req)
		if err != nil {
			return nil, err
		}
	}
	return &Result{
		Translation: translation,
		Provider:    p.name,
		Confidence:  0.9,
		Metadata:    map[string]any{"model": "stub"},
	}, nil
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type stubHistoryProvider struct {
	stubProvider
}

func (p *stubHistoryProvider) TranslateWithHistory(ctx context.Context, req Request, history []Message) (*Result, error) {
	p.mu.Lock()
	p.history = append(p.history, history)
	p.mu.Unlock()
	return p.Translate(ctx, req)
}

// stubTable configures ids as ready, credentialed providers in the given priority.
func stubTable(limit config.RateLimit, ids ...string) config.ProviderTable {
	table := config.ProviderTable{
		Priority:  append([]string(nil), ids...),
		Providers: map[string]config.ProviderConfig{},
	}
	for _, id := range ids {
		table.Providers[id] = config.ProviderConfig{
			ID:                  id,
			Enabled:             true,
			RequiresCredentials: true,
			Credential:          "test-key",
			RateLimit:           limit,
		}
	}
	table.Providers[config.ProviderDictionary] = config.ProviderConfig{ID: config.ProviderDictionary, Enabled: true}
	return table
}

type harness struct {
	orchestrator *Orchestrator
	clock        *clock.Fake
	ledger       *Ledger
	cache        *Cache
}

func newHarness(t *testing.T, table config.ProviderTable, opts Options, providers ...Provider) harness {
	t.Helper()

	book, err := phrasebook.Default()
	require.NoError(t, err)

	registry := NewRegistry(table)
	for _, provider := range providers {
		require.NoError(t, registry.Register(provider))
	}
	require.NoError(t, registry.Register(NewDictionary(book)))

	fake := clock.NewFake(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	ledger := NewLedger(NewMemoryLedgerSink(), nil, zerolog.Nop())
	cache := NewCache(NewMemoryCacheBackend(), ledger, CacheOptions{
		TTL:        time.Hour,
		MaxEntries: 100,
		Clock:      fake,
		Logger:     zerolog.Nop(),
	})

	opts.Clock = fake
	opts.Logger = zerolog.Nop()
	orchestrator := NewOrchestrator(registry, cache, NewRateLimiter(registry.RateLimits(), fake), ledger, opts)
	return harness{orchestrator: orchestrator, clock: fake, ledger: ledger, cache: cache}
}

func TestTranslateWithAPIServesRepeatsFromCache(t *testing.T) {
	t.Parallel()

	claude := &stubProvider{name: config.ProviderClaude}
	h := newHarness(t, stubTable(config.RateLimit{}, config.ProviderClaude), Options{}, claude)
	ctx := context.Background()

	first, err := h.orchestrator.TranslateWithAPI(ctx, "claude", "Good morning", language.English, language.Arabic)
	require.NoError(t, err)
	second, err := h.orchestrator.TranslateWithAPI(ctx, "Claude", "  good MORNING ", language.English, language.Arabic)
	require.NoError(t, err)

	assert.Equal(t, 1, claude.callCount())
	assert.Equal(t, first, second)
	assert.Equal(t, "claude:Good morning", second.Translation)
	assert.Contains(t, second.Metadata, "latency_ms")

	stats := h.ledger.Snapshot()
	assert.Equal(t, int64(1), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.CacheMisses)
	assert.Equal(t, "50.00%", h.ledger.Report().CacheHitRate)
}

func TestTranslateWithAPIReturnsIndependentCopies(t *testing.T) {
	t.Parallel()

	claude := &stubProvider{name: config.ProviderClaude}
	h := newHarness(t, stubTable(config.RateLimit{}, config.ProviderClaude), Options{}, claude)
	ctx := context.Background()

	first, err := h.orchestrator.TranslateWithAPI(ctx, "claude", "book", language.English, language.Arabic)
	require.NoError(t, err)
	first.Metadata["model"] = "mutated"
	first.Translation = "mutated"

	second, err := h.orchestrator.TranslateWithAPI(ctx, "claude", "book", language.English, language.Arabic)
	require.NoError(t, err)
	assert.Equal(t, "claude:book", second.Translation)
	assert.Equal(t, "stub", second.Metadata["model"])
}

func TestTranslateWithAPIRefetchesAfterTTL(t *testing.T) {
	t.Parallel()

	claude := &stubProvider{name: config.ProviderClaude}
	h := newHarness(t, stubTable(config.RateLimit{}, config.ProviderClaude), Options{}, claude)
	ctx := context.Background()

	_, err := h.orchestrator.TranslateWithAPI(ctx, "claude", "water", language.English, language.Arabic)
	require.NoError(t, err)

	h.clock.Advance(h.cache.TTL())
	_, err = h.orchestrator.TranslateWithAPI(ctx, "claude", "water", language.English, language.Arabic)
	require.NoError(t, err)
	assert.Equal(t, 1, claude.callCount(), "entry aged exactly TTL is still fresh")

	h.clock.Advance(time.Second)
	_, err = h.orchestrator.TranslateWithAPI(ctx, "claude", "water", language.English, language.Arabic)
	require.NoError(t, err)
	assert.Equal(t, 2, claude.callCount())
}

func TestTranslateWithAPIEnforcesRateLimit(t *testing.T) {
	t.Parallel()

	google := &stubProvider{name: config.ProviderGoogle}
	h := newHarness(t, stubTable(config.RateLimit{RequestsPerMinute: 2}, config.ProviderGoogle), Options{}, google)
	ctx := context.Background()

	for _, text := range []string{"one", "two"} {
		_, err := h.orchestrator.TranslateWithAPI(ctx, "google", text, language.English, language.Arabic)
		require.NoError(t, err)
	}

	_, err := h.orchestrator.TranslateWithAPI(ctx, "google", "three", language.English, language.Arabic)
	require.ErrorIs(t, err, ErrRateLimitExceeded)
	var limitErr *RateLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, "minute", limitErr.Window)
	assert.Equal(t, 2, google.callCount())

	// Cached text is still served while the window is exhausted.
	cached, err := h.orchestrator.TranslateWithAPI(ctx, "google", "one", language.English, language.Arabic)
	require.NoError(t, err)
	assert.Equal(t, "google:one", cached.Translation)

	h.clock.Advance(time.Minute)
	_, err = h.orchestrator.TranslateWithAPI(ctx, "google", "three", language.English, language.Arabic)
	require.NoError(t, err)
	assert.Equal(t, 3, google.callCount())
}

func TestTranslateWithAPIFailureRecordsAttemptOnly(t *testing.T) {
	t.Parallel()

	deepl := &stubProvider{name: config.ProviderDeepL, err: errors.New("boom")}
	h := newHarness(t, stubTable(config.RateLimit{RequestsPerMinute: 10}, config.ProviderDeepL), Options{}, deepl)
	ctx := context.Background()

	_, err := h.orchestrator.TranslateWithAPI(ctx, "deepl", "tree", language.English, language.Arabic)
	require.ErrorIs(t, err, ErrProviderFailed)
	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "deepl", providerErr.Provider)

	assert.Equal(t, 1, h.orchestrator.RateLimiter().Usage("deepl").LastMinute)
	assert.Equal(t, int64(0), h.ledger.Snapshot().TotalRequests)
	size, err := h.cache.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestTranslateWithAPIRejectsBadRequests(t *testing.T) {
	t.Parallel()

	h := newHarness(t, stubTable(config.RateLimit{}, config.ProviderClaude), Options{}, &stubProvider{name: config.ProviderClaude})
	ctx := context.Background()

	_, err := h.orchestrator.TranslateWithAPI(ctx, "claude", "   ", language.English, language.Arabic)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = h.orchestrator.TranslateWithAPI(ctx, "claude", "hi", language.English, language.English)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = h.orchestrator.TranslateWithAPI(ctx, "klingon", "hi", language.English, language.Arabic)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestTranslateWithAPIDisabledProviderMakesNoCall(t *testing.T) {
	t.Parallel()

	claude := &stubProvider{name: config.ProviderClaude}
	table := config.DefaultProviders()
	h := newHarness(t, table, Options{}, claude)

	_, err := h.orchestrator.TranslateWithAPI(context.Background(), "claude", "hello", language.English, language.Arabic)
	require.ErrorIs(t, err, ErrProviderNotReady)
	assert.Zero(t, claude.callCount())
}

func TestSmartTranslateFallsBackInPriorityOrder(t *testing.T) {
	t.Parallel()

	claude := &stubProvider{name: config.ProviderClaude, err: errors.New("overloaded")}
	google := &stubProvider{name: config.ProviderGoogle}
	deepl := &stubProvider{name: config.ProviderDeepL}
	table := stubTable(config.RateLimit{}, config.ProviderClaude, config.ProviderGoogle, config.ProviderDeepL)
	h := newHarness(t, table, Options{}, claude, google, deepl)

	result, err := h.orchestrator.SmartTranslate(context.Background(), "the river", language.English, language.Arabic)
	require.NoError(t, err)

	assert.Equal(t, "google", result.Provider)
	assert.Equal(t, 1, claude.callCount())
	assert.Equal(t, 1, google.callCount())
	assert.Zero(t, deepl.callCount())
}

func TestSmartTranslateSkipsRateLimitedProvider(t *testing.T) {
	t.Parallel()

	claude := &stubProvider{name: config.ProviderClaude}
	google := &stubProvider{name: config.ProviderGoogle}
	table := stubTable(config.RateLimit{RequestsPerMinute: 1}, config.ProviderClaude, config.ProviderGoogle)
	h := newHarness(t, table, Options{}, claude, google)
	ctx := context.Background()

	first, err := h.orchestrator.SmartTranslate(ctx, "first", language.English, language.Arabic)
	require.NoError(t, err)
	assert.Equal(t, "claude", first.Provider)

	second, err := h.orchestrator.SmartTranslate(ctx, "second", language.English, language.Arabic)
	require.NoError(t, err)
	assert.Equal(t, "google", second.Provider)
	assert.Equal(t, 1, claude.callCount())
}

func TestSmartTranslateAllProvidersFail(t *testing.T) {
	t.Parallel()

	claude := &stubProvider{name: config.ProviderClaude, err: errors.New("down")}
	google := &stubProvider{name: config.ProviderGoogle, err: errors.New("down")}
	table := stubTable(config.RateLimit{}, config.ProviderClaude, config.ProviderGoogle)
	h := newHarness(t, table, Options{}, claude, google)

	_, err := h.orchestrator.SmartTranslate(context.Background(), "an unlisted sentence", language.English, language.Arabic)
	require.ErrorIs(t, err, ErrAllProvidersFailed)

	var allErr *AllProvidersFailedError
	require.ErrorAs(t, err, &allErr)
	require.Len(t, allErr.Attempts, 3)
	assert.Equal(t, "claude", allErr.Attempts[0].Provider)
	assert.Equal(t, "google", allErr.Attempts[1].Provider)
	assert.Equal(t, "dictionary", allErr.Attempts[2].Provider)
	assert.ErrorIs(t, allErr.Attempts[2].Err, ErrNotFound)
}

func TestSmartTranslateUsesDictionaryWhenNothingElseIsReady(t *testing.T) {
	t.Parallel()

	h := newHarness(t, config.DefaultProviders(), Options{})

	result, err := h.orchestrator.SmartTranslate(context.Background(), "مرحبا", language.Arabic, language.English)
	require.NoError(t, err)

	assert.Equal(t, "Hello", result.Translation)
	assert.Equal(t, "dictionary", result.Provider)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Equal(t, "Marhaba", result.Pronunciation)
	assert.Equal(t, []string{"dictionary"}, h.orchestrator.AvailableProviders())
	assert.Equal(t, "dictionary", h.orchestrator.ActiveProvider())
	assert.Equal(t, int64(0), h.ledger.Snapshot().TotalRequests)
}

func TestSmartTranslateStopsAtChainDeadline(t *testing.T) {
	t.Parallel()

	claude := &stubProvider{name: config.ProviderClaude, block: true}
	google := &stubProvider{name: config.ProviderGoogle}
	table := stubTable(config.RateLimit{}, config.ProviderClaude, config.ProviderGoogle)
	h := newHarness(t, table, Options{ChainTimeout: 50 * time.Millisecond, ProviderTimeout: 5 * time.Second}, claude, google)

	_, err := h.orchestrator.SmartTranslate(context.Background(), "slow", language.English, language.Arabic)
	require.ErrorIs(t, err, ErrAllProvidersFailed)

	var allErr *AllProvidersFailedError
	require.ErrorAs(t, err, &allErr)
	require.Len(t, allErr.Attempts, 1)
	var providerErr *ProviderError
	require.ErrorAs(t, allErr.Attempts[0].Err, &providerErr)
	assert.Equal(t, http.StatusGatewayTimeout, providerErr.StatusCode)
	assert.Zero(t, google.callCount())
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	azure := &stubProvider{name: config.ProviderAzure, err: errors.New("bad gateway")}
	h := newHarness(t, stubTable(config.RateLimit{}, config.ProviderAzure), Options{}, azure)
	ctx := context.Background()

	for range breakerTripAfter {
		_, err := h.orchestrator.TranslateWithAPI(ctx, "azure", "sun", language.English, language.Arabic)
		require.Error(t, err)
	}
	assert.Equal(t, breakerTripAfter, azure.callCount())

	_, err := h.orchestrator.TranslateWithAPI(ctx, "azure", "sun", language.English, language.Arabic)
	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, http.StatusServiceUnavailable, providerErr.StatusCode)
	assert.Equal(t, breakerTripAfter, azure.callCount())

	statuses := h.orchestrator.ProviderStatuses()
	require.NotEmpty(t, statuses)
	assert.Equal(t, "azure", statuses[0].ID)
	assert.Equal(t, "open", statuses[0].Breaker)
}

func TestTranslateWithAPIConcurrentCallsRespectRateLimit(t *testing.T) {
	t.Parallel()

	const limit = 2
	google := &stubProvider{
		name: config.ProviderGoogle,
		translate: func(req Request) (string, error) {
			time.Sleep(20 * time.Millisecond)
			return "google:" + req.Text, nil
		},
	}
	h := newHarness(t, stubTable(config.RateLimit{RequestsPerMinute: limit}, config.ProviderGoogle), Options{}, google)

	const callers = 10
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for idx := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[idx] = h.orchestrator.TranslateWithAPI(context.Background(), "google", "word "+strings.Repeat("x", idx+1), language.English, language.Arabic)
		}()
	}
	wg.Wait()

	limited := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, ErrRateLimitExceeded)
			limited++
		}
	}
	assert.Equal(t, limit, google.callCount())
	assert.Equal(t, callers-limit, limited)
	assert.Equal(t, limit, h.orchestrator.RateLimiter().Usage("google").LastMinute)
}

func TestChainDeadlineDoesNotTripBreaker(t *testing.T) {
	t.Parallel()

	claude := &stubProvider{name: config.ProviderClaude, block: true}
	table := stubTable(config.RateLimit{}, config.ProviderClaude)
	h := newHarness(t, table, Options{ChainTimeout: 15 * time.Millisecond, ProviderTimeout: 5 * time.Second}, claude)

	for range breakerTripAfter + 1 {
		_, err := h.orchestrator.SmartTranslate(context.Background(), "slow", language.English, language.Arabic)
		require.ErrorIs(t, err, ErrAllProvidersFailed)
	}

	assert.Equal(t, breakerTripAfter+1, claude.callCount())
	statuses := h.orchestrator.ProviderStatuses()
	require.NotEmpty(t, statuses)
	assert.Equal(t, "claude", statuses[0].ID)
	assert.Equal(t, "closed", statuses[0].Breaker)
}

func TestProviderTimeoutTripsBreaker(t *testing.T) {
	t.Parallel()

	claude := &stubProvider{name: config.ProviderClaude, block: true}
	table := stubTable(config.RateLimit{}, config.ProviderClaude)
	h := newHarness(t, table, Options{ProviderTimeout: 10 * time.Millisecond}, claude)
	ctx := context.Background()

	for range breakerTripAfter {
		_, err := h.orchestrator.TranslateWithAPI(ctx, "claude", "slow", language.English, language.Arabic)
		var providerErr *ProviderError
		require.ErrorAs(t, err, &providerErr)
		assert.Equal(t, http.StatusGatewayTimeout, providerErr.StatusCode)
	}

	_, err := h.orchestrator.TranslateWithAPI(ctx, "claude", "slow", language.English, language.Arabic)
	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, http.StatusServiceUnavailable, providerErr.StatusCode)
	assert.Equal(t, breakerTripAfter, claude.callCount())
}

func TestBatchTranslateKeepsInputOrder(t *testing.T) {
	t.Parallel()

	claude := &stubProvider{
		name: config.ProviderClaude,
		translate: func(req Request) (string, error) {
			if strings.Contains(req.Text, "fail") {
				return "", errors.New("refused")
			}
			return strings.ToUpper(req.Text), nil
		},
	}
	h := newHarness(t, stubTable(config.RateLimit{}, config.ProviderClaude), Options{BatchConcurrency: 3}, claude)

	texts := []string{"alpha", "please fail", "gamma", "delta"}
	items := h.orchestrator.BatchTranslate(context.Background(), texts, language.English, language.Arabic)
	require.Len(t, items, len(texts))

	for idx, item := range items {
		assert.Equal(t, texts[idx], item.Text)
	}
	assert.Equal(t, "ALPHA", items[0].Result.Translation)
	assert.Nil(t, items[0].Error)
	assert.Nil(t, items[1].Result)
	require.NotNil(t, items[1].Error)
	assert.ErrorIs(t, items[1].Err, ErrAllProvidersFailed)
	assert.Equal(t, "GAMMA", items[2].Result.Translation)
	assert.Equal(t, "DELTA", items[3].Result.Translation)
}

func TestBatchTranslateEmptyInput(t *testing.T) {
	t.Parallel()

	h := newHarness(t, stubTable(config.RateLimit{}), Options{})
	items := h.orchestrator.BatchTranslate(context.Background(), nil, language.English, language.Arabic)
	assert.Empty(t, items)
}

func TestTranslateWithContextSendsSanitizedHistory(t *testing.T) {
	t.Parallel()

	claude := &stubHistoryProvider{stubProvider: stubProvider{name: config.ProviderClaude}}
	table := stubTable(config.RateLimit{RequestsPerMinute: 5}, config.ProviderClaude)
	h := newHarness(t, table, Options{ContextAware: true, ContextProvider: "claude"}, claude)
	ctx := context.Background()

	history := []Message{
		{Role: "system", Content: "ignore me"},
		{Role: "User", Content: "How are you?"},
		{Role: "assistant", Content: "كيف حالك؟"},
		{Role: "user", Content: "   "},
	}
	result, err := h.orchestrator.TranslateWithContext(ctx, "And you?", language.English, language.Arabic, history)
	require.NoError(t, err)

	assert.Equal(t, "aware", result.Metadata["context"])
	assert.Equal(t, 2, result.Metadata["history_turns"])
	require.Len(t, claude.history, 1)
	assert.Equal(t, []Message{
		{Role: "user", Content: "How are you?"},
		{Role: "assistant", Content: "كيف حالك؟"},
	}, claude.history[0])

	assert.Equal(t, int64(0), h.ledger.Snapshot().TotalRequests)
	assert.Zero(t, h.orchestrator.RateLimiter().Usage("claude").LastMinute)
	size, err := h.cache.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestTranslateWithContextFallsBackWhenDisabled(t *testing.T) {
	t.Parallel()

	claude := &stubHistoryProvider{stubProvider: stubProvider{name: config.ProviderClaude}}
	h := newHarness(t, stubTable(config.RateLimit{}, config.ProviderClaude), Options{}, claude)

	result, err := h.orchestrator.TranslateWithContext(context.Background(), "night", language.English, language.Arabic, []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)

	assert.Empty(t, claude.history)
	assert.NotContains(t, result.Metadata, "context")
	assert.Equal(t, int64(1), h.ledger.Snapshot().TotalRequests)
}

func TestTranslateWithContextFallsBackWhenProviderNotReady(t *testing.T) {
	t.Parallel()

	h := newHarness(t, config.DefaultProviders(), Options{ContextAware: true})

	result, err := h.orchestrator.TranslateWithContext(context.Background(), "hello", language.English, language.Arabic, nil)
	require.NoError(t, err)
	assert.Equal(t, "dictionary", result.Provider)
	assert.Equal(t, "مرحبا", result.Translation)
}

func TestTestProvider(t *testing.T) {
	t.Parallel()

	google := &stubProvider{name: config.ProviderGoogle}
	table := stubTable(config.RateLimit{}, config.ProviderGoogle)
	table.Providers[config.ProviderClaude] = config.ProviderConfig{ID: config.ProviderClaude, Enabled: true, RequiresCredentials: true}
	h := newHarness(t, table, Options{}, google)
	ctx := context.Background()

	dictionary := h.orchestrator.TestProvider(ctx, "dictionary")
	assert.True(t, dictionary.Success)

	claude := h.orchestrator.TestProvider(ctx, "claude")
	assert.False(t, claude.Success)
	assert.Equal(t, "API key not configured", claude.Message)

	unknown := h.orchestrator.TestProvider(ctx, "babelfish")
	assert.False(t, unknown.Success)

	ok := h.orchestrator.TestProvider(ctx, "google")
	require.True(t, ok.Success, ok.Error)
	require.NotNil(t, ok.Result)
	assert.Equal(t, "google:hello", ok.Result.Translation)
	require.Len(t, google.requests, 1)
	assert.Equal(t, language.English, google.requests[0].SourceLang)
	assert.Equal(t, language.Arabic, google.requests[0].TargetLang)
}
