package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/lisan/internal/clock"
	"horse.fit/lisan/internal/config"
	"horse.fit/lisan/internal/language"
)

const (
	DefaultProviderTimeout = 15 * time.Second
	DefaultChainTimeout    = 45 * time.Second
)

type Options struct {
	Clock   clock.Clock
	Logger  zerolog.Logger
	Metrics *Metrics

	// ProviderTimeout bounds one adapter call. ChainTimeout bounds a whole
	// SmartTranslate walk; zero disables the chain deadline.
	ProviderTimeout time.Duration
	ChainTimeout    time.Duration

	ContextAware    bool
	ContextProvider string

	// BatchConcurrency is the number of batch items translated at once.
	BatchConcurrency int
}

// Orchestrator runs the cache, rate limiter, adapters and usage ledger as one
// fallback chain.
type Orchestrator struct {
	registry *Registry
	cache    *Cache
	limiter  *RateLimiter
	ledger   *Ledger
	breakers *breakers
	metrics  *Metrics
	clock    clock.Clock
	logger   zerolog.Logger

	providerTimeout  time.Duration
	chainTimeout     time.Duration
	contextAware     bool
	contextProvider  string
	batchConcurrency int
}

// NewOrchestrator wires the collaborators. cache may be nil to disable caching.
func NewOrchestrator(registry *Registry, cache *Cache, limiter *RateLimiter, ledger *Ledger, opts Options) *Orchestrator {
	providerTimeout := opts.ProviderTimeout
	if providerTimeout <= 0 {
		providerTimeout = DefaultProviderTimeout
	}
	contextProvider := normalizeProviderName(opts.ContextProvider)
	if contextProvider == "" {
		contextProvider = config.ProviderClaude
	}
	if limiter == nil {
		limiter = NewRateLimiter(registry.RateLimits(), opts.Clock)
	}

	return &Orchestrator{
		registry:         registry,
		cache:            cache,
		limiter:          limiter,
		ledger:           ledger,
		breakers:         newBreakers(opts.Metrics, opts.Logger),
		metrics:          opts.Metrics,
		clock:            clock.OrSystem(opts.Clock),
		logger:           opts.Logger,
		providerTimeout:  providerTimeout,
		chainTimeout:     opts.ChainTimeout,
		contextAware:     opts.ContextAware,
		contextProvider:  contextProvider,
		batchConcurrency: max(1, opts.BatchConcurrency),
	}
}

func (o *Orchestrator) Registry() *Registry { return o.registry }

func (o *Orchestrator) Cache() *Cache { return o.cache }

func (o *Orchestrator) Ledger() *Ledger { return o.ledger }

func (o *Orchestrator) RateLimiter() *RateLimiter { return o.limiter }

// TranslateWithAPI translates with exactly one provider. Errors are returned
// unchanged; there is no fallback at this level.
func (o *Orchestrator) TranslateWithAPI(ctx context.Context, providerID, text string, source, target language.Lang) (*Result, error) {
	req, err := Request{Text: text, SourceLang: source, TargetLang: target}.Validate()
	if err != nil {
		return nil, err
	}
	return o.translateDirect(ctx, normalizeProviderName(providerID), req)
}

// SmartTranslate walks the ready providers in priority order and returns the
// first success.
func (o *Orchestrator) SmartTranslate(ctx context.Context, text string, source, target language.Lang) (*Result, error) {
	req, err := Request{Text: text, SourceLang: source, TargetLang: target}.Validate()
	if err != nil {
		return nil, err
	}
	return o.smartTranslate(ctx, req)
}

func (o *Orchestrator) smartTranslate(ctx context.Context, req Request) (*Result, error) {
	if o.chainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.chainTimeout)
		defer cancel()
	}

	providers := o.registry.AvailableProviders()
	attempts := make([]Attempt, 0, len(providers))

	for idx, id := range providers {
		if err := ctx.Err(); err != nil {
			o.logger.Warn().
				Err(err).
				Int("attempts", len(attempts)).
				Msg("translation chain stopped before exhausting providers")
			break
		}

		started := o.clock.Now()
		result, err := o.translateDirect(ctx, id, req)
		if err == nil {
			o.logger.Debug().
				Str("provider", id).
				Int("attempt", idx+1).
				Msg("translation succeeded")
			return result, nil
		}

		attempts = append(attempts, Attempt{
			Provider: id,
			Error:    err.Error(),
			Duration: o.clock.Now().Sub(started),
			Err:      err,
		})
		o.logger.Warn().
			Err(err).
			Str("provider", id).
			Int("attempt", idx+1).
			Msg("translation provider failed; trying next")
	}

	return nil, &AllProvidersFailedError{Attempts: attempts}
}

// translateDirect runs cache lookup, rate limit reservation, adapter call, usage
// recording and cache write for one provider. The dictionary skips everything
// but the adapter call.
func (o *Orchestrator) translateDirect(ctx context.Context, id string, req Request) (*Result, error) {
	provider, err := o.registry.Provider(id)
	if err != nil {
		return nil, err
	}

	if id == config.ProviderDictionary {
		result, err := provider.Translate(ctx, req)
		if err != nil {
			o.metrics.observeAttempt(id, "miss", 0)
			return nil, err
		}
		o.metrics.observeAttempt(id, "success", 0)
		return result, nil
	}

	key := Fingerprint(id, req.SourceLang, req.TargetLang, req.Text)
	if cached, ok := o.cache.Get(ctx, key); ok {
		o.metrics.observeAttempt(id, "cache_hit", 0)
		markServedFromCache(ctx)
		return cached, nil
	}

	// The slot is taken before the call, so failed attempts count too.
	if err := o.limiter.Reserve(id); err != nil {
		o.metrics.observeAttempt(id, "rate_limited", 0)
		o.logger.Warn().Str("provider", id).Err(err).Msg("translation provider rate limited")
		return nil, err
	}

	started := o.clock.Now()
	result, err := o.callProvider(ctx, id, func(callCtx context.Context) (*Result, error) {
		return provider.Translate(callCtx, req)
	})
	elapsed := o.clock.Now().Sub(started)

	if err != nil {
		o.metrics.observeAttempt(id, "error", elapsed)
		return nil, err
	}
	o.metrics.observeAttempt(id, "success", elapsed)

	if result.Metadata == nil {
		result.Metadata = map[string]any{}
	}
	result.Metadata["latency_ms"] = elapsed.Milliseconds()

	o.ledger.RecordRequest(ctx, id, EstimateCost(o.registry.Config(id), req.Text))
	o.cache.Put(ctx, key, req, result)
	return result.Clone(), nil
}

// callProvider bounds one adapter call with the provider timeout and the
// provider's circuit breaker, and normalizes every failure to *ProviderError.
func (o *Orchestrator) callProvider(ctx context.Context, id string, call func(context.Context) (*Result, error)) (*Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.providerTimeout)
	defer cancel()

	result, err := o.breakers.execute(id, func() (*Result, error) {
		result, err := call(callCtx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &callerAbort{err: asProviderError(id, err)}
			}
			return nil, asProviderError(id, err)
		}
		if result == nil || strings.TrimSpace(result.Translation) == "" {
			return nil, newProviderError(id, 0, "translation response was empty")
		}
		return result, nil
	})
	if err != nil {
		return nil, asProviderError(id, err)
	}

	result.Translation = strings.TrimSpace(result.Translation)
	if result.Provider == "" {
		result.Provider = id
	}
	result.Confidence = clampConfidence(result.Confidence)
	return result, nil
}

// ProviderStatus is the introspection view of one configured provider.
type ProviderStatus struct {
	ID                 string           `json:"id"`
	Priority           int              `json:"priority"`
	Enabled            bool             `json:"enabled"`
	CredentialsPresent bool             `json:"credentials_present"`
	Ready              bool             `json:"ready"`
	Model              string           `json:"model,omitempty"`
	RateLimit          config.RateLimit `json:"rate_limit"`
	Usage              WindowUsage      `json:"usage"`
	Breaker            string           `json:"breaker"`
}

// ProviderStatuses lists every provider in priority order, ready or not.
func (o *Orchestrator) ProviderStatuses() []ProviderStatus {
	priority := o.registry.Priority()
	statuses := make([]ProviderStatus, 0, len(priority))
	for idx, id := range priority {
		cfg := o.registry.Config(id)
		statuses = append(statuses, ProviderStatus{
			ID:                 id,
			Priority:           idx + 1,
			Enabled:            cfg.Enabled,
			CredentialsPresent: cfg.CredentialsPresent(),
			Ready:              o.registry.IsReady(id),
			Model:              cfg.Model,
			RateLimit:          cfg.RateLimit,
			Usage:              o.limiter.Usage(id),
			Breaker:            o.breakers.state(id),
		})
	}
	return statuses
}

func (o *Orchestrator) AvailableProviders() []string {
	return o.registry.AvailableProviders()
}

func (o *Orchestrator) ActiveProvider() string {
	return o.registry.ActiveProvider()
}

// ProviderTestResult reports a connectivity check of one provider.
type ProviderTestResult struct {
	Provider string  `json:"provider"`
	Success  bool    `json:"success"`
	Message  string  `json:"message"`
	Result   *Result `json:"result,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// TestProvider translates "hello" from English to Arabic with one provider.
func (o *Orchestrator) TestProvider(ctx context.Context, providerID string) ProviderTestResult {
	id := normalizeProviderName(providerID)
	if id == config.ProviderDictionary {
		return ProviderTestResult{Provider: id, Success: true, Message: "Dictionary always available"}
	}

	if _, err := o.registry.Provider(id); err != nil {
		if errors.Is(err, ErrUnknownProvider) {
			return ProviderTestResult{Provider: id, Success: false, Message: "unknown provider", Error: err.Error()}
		}
		return ProviderTestResult{Provider: id, Success: false, Message: "API key not configured", Error: err.Error()}
	}

	result, err := o.TranslateWithAPI(ctx, id, "hello", language.English, language.Arabic)
	if err != nil {
		return ProviderTestResult{
			Provider: id,
			Success:  false,
			Message:  fmt.Sprintf("%s API test failed: %v", id, err),
			Error:    err.Error(),
		}
	}
	return ProviderTestResult{
		Provider: id,
		Success:  true,
		Message:  fmt.Sprintf("%s API connected successfully", id),
		Result:   result,
	}
}
