package translation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryCacheBackend keeps cache entries in process memory.
type MemoryCacheBackend struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
}

func NewMemoryCacheBackend() *MemoryCacheBackend {
	return &MemoryCacheBackend{entries: make(map[string]CacheEntry)}
}

func (m *MemoryCacheBackend) Get(_ context.Context, key string) (*CacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	entry.Result = *entry.Result.Clone()
	return &entry, nil
}

func (m *MemoryCacheBackend) Put(_ context.Context, entry CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.Result = *entry.Result.Clone()
	m.entries[entry.Key] = entry
	return nil
}

func (m *MemoryCacheBackend) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for key, entry := range m.entries {
		if entry.CreatedAt.Before(cutoff) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryCacheBackend) Trim(_ context.Context, keep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	if len(m.entries) <= keep {
		return 0, nil
	}

	ordered := make([]CacheEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		ordered = append(ordered, entry)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].Key > ordered[j].Key
		}
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})

	var removed int64
	for _, entry := range ordered[keep:] {
		delete(m.entries, entry.Key)
		removed++
	}
	return removed, nil
}

func (m *MemoryCacheBackend) Len(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.entries)), nil
}

// MemoryLedgerSink keeps usage counters in process memory.
type MemoryLedgerSink struct {
	mu       sync.Mutex
	counters map[string]float64
}

func NewMemoryLedgerSink() *MemoryLedgerSink {
	return &MemoryLedgerSink{counters: make(map[string]float64)}
}

func (m *MemoryLedgerSink) IncrementCounter(_ context.Context, key string, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key] += delta
	return nil
}

func (m *MemoryLedgerSink) LoadCounters(context.Context) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]float64, len(m.counters))
	for key, value := range m.counters {
		out[key] = value
	}
	return out, nil
}

func (m *MemoryLedgerSink) ResetCounters(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = make(map[string]float64)
	return nil
}

// MemoryQuotaStore keeps per-user quota records in process memory.
type MemoryQuotaStore struct {
	mu      sync.Mutex
	records map[string]QuotaRecord
}

func NewMemoryQuotaStore() *MemoryQuotaStore {
	return &MemoryQuotaStore{records: make(map[string]QuotaRecord)}
}

func (m *MemoryQuotaStore) Get(_ context.Context, userID string) (*QuotaRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[userID]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (m *MemoryQuotaStore) Reserve(_ context.Context, userID, day string, limit int, _ time.Time) (QuotaRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[userID]
	if !ok {
		record = QuotaRecord{UserID: userID, Tier: TierFree}
	}
	if record.Day != day {
		record.Day = day
		record.Count = 0
	}
	if record.Tier != TierPremium && record.Count >= limit {
		return record, false, nil
	}
	record.Count++
	m.records[userID] = record
	return record, true, nil
}

func (m *MemoryQuotaStore) Release(_ context.Context, userID, day string) (QuotaRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[userID]
	if !ok {
		return QuotaRecord{UserID: userID, Tier: TierFree}, nil
	}
	if record.Day == day && record.Count > 0 {
		record.Count--
		m.records[userID] = record
	}
	return record, nil
}

func (m *MemoryQuotaStore) SetTier(_ context.Context, userID string, tier Tier, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[userID]
	if !ok {
		record = QuotaRecord{UserID: userID}
	}
	record.Tier = tier
	m.records[userID] = record
	return nil
}
