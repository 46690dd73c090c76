package translation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"horse.fit/lisan/internal/clock"
	"horse.fit/lisan/internal/language"
)

type failingCacheBackend struct {
	*MemoryCacheBackend
}

func (failingCacheBackend) Get(context.Context, string) (*CacheEntry, error) {
	return nil, errors.New("connection reset")
}

func newTestCache(t *testing.T, maxEntries int) (*Cache, *clock.Fake, *Ledger) {
	t.Helper()
	fake := clock.NewFake(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	ledger := NewLedger(nil, nil, zerolog.Nop())
	cache := NewCache(NewMemoryCacheBackend(), ledger, CacheOptions{
		TTL:        10 * time.Minute,
		MaxEntries: maxEntries,
		Clock:      fake,
		Logger:     zerolog.Nop(),
	})
	return cache, fake, ledger
}

func TestCacheTrimsOldestEntries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache, fake, _ := newTestCache(t, 3)

	keys := make([]string, 0, 5)
	for idx := range 5 {
		text := fmt.Sprintf("word %d", idx)
		key := Fingerprint("google", language.English, language.Arabic, text)
		keys = append(keys, key)
		cache.Put(ctx, key, enToAr(text), &Result{Translation: "كلمة", Provider: "google"})
		fake.Advance(time.Second)
	}

	size, err := cache.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), size)

	_, ok := cache.Get(ctx, keys[0])
	assert.False(t, ok, "oldest entry should be trimmed")
	_, ok = cache.Get(ctx, keys[4])
	assert.True(t, ok)
}

func TestCacheEvictExpired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache, fake, _ := newTestCache(t, 0)

	cache.Put(ctx, "old", enToAr("old"), &Result{Translation: "قديم", Provider: "claude"})
	fake.Advance(11 * time.Minute)
	cache.Put(ctx, "new", enToAr("new"), &Result{Translation: "جديد", Provider: "claude"})

	removed, err := cache.EvictExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	size, err := cache.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)
}

func TestCacheStorageErrorIsAMiss(t *testing.T) {
	t.Parallel()

	ledger := NewLedger(nil, nil, zerolog.Nop())
	cache := NewCache(failingCacheBackend{MemoryCacheBackend: NewMemoryCacheBackend()}, ledger, CacheOptions{Logger: zerolog.Nop()})

	_, ok := cache.Get(context.Background(), "any")
	assert.False(t, ok)
	assert.Equal(t, int64(0), ledger.Snapshot().CacheHits)
}

func TestNilCacheAlwaysMisses(t *testing.T) {
	t.Parallel()

	var cache *Cache
	cache.Put(context.Background(), "k", enToAr("x"), &Result{Translation: "y"})
	_, ok := cache.Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestFingerprintNormalizesText(t *testing.T) {
	t.Parallel()

	a := Fingerprint("Claude", language.English, language.Arabic, "  Hello World ")
	b := Fingerprint("claude", language.English, language.Arabic, "hello world")
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, Fingerprint("google", language.English, language.Arabic, "hello world"))
	assert.NotEqual(t, a, Fingerprint("claude", language.Arabic, language.English, "hello world"))
	assert.Len(t, a, 64)
}
