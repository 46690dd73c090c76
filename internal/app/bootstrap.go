package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"horse.fit/lisan/internal/cli"
	"horse.fit/lisan/internal/config"
	"horse.fit/lisan/internal/db"
	"horse.fit/lisan/internal/logging"
	"horse.fit/lisan/internal/translation"
)

// runtime is the wired translation stack shared by every subcommand.
type runtime struct {
	cfg          *config.Config
	logger       zerolog.Logger
	pool         *db.Pool
	registry     *prometheus.Registry
	orchestrator *translation.Orchestrator
	quotas       *translation.Quotas
}

// bootstrap loads configuration and builds the orchestrator on postgres stores
// when DATABASE_URL is set, in-memory stores otherwise. tune may adjust the
// loaded config before anything is built.
func bootstrap(ctx context.Context, envLoader *cli.EnvLoader, tune func(*config.Config)) (*runtime, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if tune != nil {
		tune(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	table, err := config.LoadProviders(cfg)
	if err != nil {
		return nil, fmt.Errorf("load providers: %w", err)
	}
	providers, err := translation.BuildRegistry(ctx, table, nil, nil, logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := translation.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: logger, registry: registry}

	var (
		cacheBackend translation.CacheBackend = translation.NewMemoryCacheBackend()
		ledgerSink   translation.LedgerSink   = translation.NewMemoryLedgerSink()
		quotaStore   translation.QuotaStore   = translation.NewMemoryQuotaStore()
	)
	if cfg.UsesDatabase() {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		rt.pool = pool
		store := translation.NewPostgresStore(pool)
		cacheBackend = store
		ledgerSink = store
		quotaStore = translation.NewPostgresQuotaStore(pool)
	}

	ledger := translation.NewLedger(ledgerSink, metrics, logger)
	if err := ledger.Load(ctx); err != nil {
		logger.Warn().Err(err).Msg("usage counters not loaded; starting from zero")
	}

	var cache *translation.Cache
	if cfg.CacheEnabled {
		cache = translation.NewCache(cacheBackend, ledger, translation.CacheOptions{
			TTL:        cfg.CacheTTL,
			MaxEntries: cfg.CacheMaxEntries,
			Logger:     logger,
		})
	}

	rt.orchestrator = translation.NewOrchestrator(providers, cache, nil, ledger, translation.Options{
		Logger:           logger,
		Metrics:          metrics,
		ProviderTimeout:  cfg.ProviderTimeout,
		ChainTimeout:     cfg.ChainTimeout,
		ContextAware:     cfg.ContextAware,
		ContextProvider:  cfg.ContextProvider,
		BatchConcurrency: cfg.BatchConcurrency,
	})
	rt.quotas = translation.NewQuotas(quotaStore, cfg.FreeDailyLimit, nil)
	return rt, nil
}

func (r *runtime) Close() {
	if r == nil || r.pool == nil {
		return
	}
	if err := r.pool.Close(); err != nil {
		r.logger.Warn().Err(err).Msg("close database pool")
	}
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(value)
}
