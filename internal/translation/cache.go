package translation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/lisan/internal/clock"
	"horse.fit/lisan/internal/language"
)

const (
	DefaultCacheTTL        = 7 * 24 * time.Hour
	DefaultCacheMaxEntries = 1000
)

// CacheEntry is one stored translation. Entries are never mutated; a re-translation
// overwrites the key with a new entry.
type CacheEntry struct {
	Key        string
	Text       string
	SourceLang language.Lang
	TargetLang language.Lang
	Provider   string
	Result     Result
	CreatedAt  time.Time
}

// CacheBackend stores cache entries. Get returns nil, nil when the key is absent.
type CacheBackend interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Put(ctx context.Context, entry CacheEntry) error
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Trim(ctx context.Context, keep int) (int64, error)
	Len(ctx context.Context) (int64, error)
}

type CacheOptions struct {
	TTL        time.Duration
	MaxEntries int
	Clock      clock.Clock
	Logger     zerolog.Logger
}

// Cache is the TTL cache in front of provider calls. A nil *Cache behaves as a
// disabled cache that always misses.
type Cache struct {
	backend    CacheBackend
	ledger     *Ledger
	ttl        time.Duration
	maxEntries int
	clock      clock.Clock
	logger     zerolog.Logger
}

func NewCache(backend CacheBackend, ledger *Ledger, opts CacheOptions) *Cache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if backend == nil {
		backend = NewMemoryCacheBackend()
	}
	return &Cache{
		backend:    backend,
		ledger:     ledger,
		ttl:        ttl,
		maxEntries: opts.MaxEntries,
		clock:      clock.OrSystem(opts.Clock),
		logger:     opts.Logger,
	}
}

func (c *Cache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}

// Get returns a copy of the cached result, or false on miss, expiry or storage error.
func (c *Cache) Get(ctx context.Context, key string) (*Result, bool) {
	if c == nil {
		return nil, false
	}

	entry, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(fmt.Errorf("%w: %w", ErrStorage, err)).Str("cache_key", key).Msg("cache read failed; treating as miss")
		return nil, false
	}
	if entry == nil {
		return nil, false
	}
	if c.expired(entry.CreatedAt) {
		return nil, false
	}

	c.ledger.RecordCacheHit(ctx)
	return entry.Result.Clone(), true
}

// Put stores result under key and counts the resolved miss.
func (c *Cache) Put(ctx context.Context, key string, req Request, result *Result) {
	if c == nil || result == nil {
		return
	}

	c.ledger.RecordCacheMiss(ctx)

	entry := CacheEntry{
		Key:        key,
		Text:       req.Text,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
		Provider:   result.Provider,
		Result:     *result.Clone(),
		CreatedAt:  c.clock.Now(),
	}
	if err := c.backend.Put(ctx, entry); err != nil {
		c.logger.Warn().Err(fmt.Errorf("%w: %w", ErrStorage, err)).Str("cache_key", key).Msg("cache write failed")
		return
	}

	if c.maxEntries <= 0 {
		return
	}
	size, err := c.backend.Len(ctx)
	if err != nil {
		c.logger.Warn().Err(fmt.Errorf("%w: %w", ErrStorage, err)).Msg("cache size check failed")
		return
	}
	if size <= int64(c.maxEntries) {
		return
	}
	if removed, err := c.backend.Trim(ctx, c.maxEntries); err != nil {
		c.logger.Warn().Err(fmt.Errorf("%w: %w", ErrStorage, err)).Msg("cache trim failed")
	} else if removed > 0 {
		c.logger.Debug().Int64("removed", removed).Int("max_entries", c.maxEntries).Msg("trimmed translation cache")
	}
}

// EvictExpired removes every entry older than the TTL.
func (c *Cache) EvictExpired(ctx context.Context) (int64, error) {
	if c == nil {
		return 0, nil
	}
	removed, err := c.backend.DeleteBefore(ctx, c.clock.Now().Add(-c.ttl))
	if err != nil {
		return 0, fmt.Errorf("%w: evict expired: %w", ErrStorage, err)
	}
	return removed, nil
}

func (c *Cache) Len(ctx context.Context) (int64, error) {
	if c == nil {
		return 0, nil
	}
	return c.backend.Len(ctx)
}

// RunSweeper calls EvictExpired every interval until ctx is done.
func (c *Cache) RunSweeper(ctx context.Context, interval time.Duration) {
	if c == nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := c.EvictExpired(ctx)
			if err != nil {
				c.logger.Warn().Err(err).Msg("cache sweep failed")
				continue
			}
			if removed > 0 {
				c.logger.Info().Int64("removed", removed).Msg("evicted expired translations")
			}
		}
	}
}

func (c *Cache) expired(createdAt time.Time) bool {
	return c.clock.Now().Sub(createdAt) > c.ttl
}
