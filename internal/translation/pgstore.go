package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"horse.fit/lisan/internal/db"
	"horse.fit/lisan/internal/language"
)

// PostgresStore backs the cache, the usage ledger and the quotas with the
// lisan schema.
type PostgresStore struct {
	pool *db.Pool
}

func NewPostgresStore(pool *db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*CacheEntry, error) {
	row, err := s.pool.GetCacheEntry(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if row == nil {
		return nil, nil
	}

	var result Result
	if err := json.Unmarshal(row.Result, &result); err != nil {
		return nil, fmt.Errorf("%w: decode cached result %s: %v", ErrStorage, key, err)
	}
	return &CacheEntry{
		Key:        row.CacheKey,
		Text:       row.Text,
		SourceLang: language.Lang(row.SourceLang),
		TargetLang: language.Lang(row.TargetLang),
		Provider:   row.Provider,
		Result:     result,
		CreatedAt:  row.CreatedAt,
	}, nil
}

func (s *PostgresStore) Put(ctx context.Context, entry CacheEntry) error {
	encoded, err := json.Marshal(entry.Result)
	if err != nil {
		return fmt.Errorf("%w: encode result %s: %v", ErrStorage, entry.Key, err)
	}
	if err := s.pool.UpsertCacheEntry(ctx, db.CacheEntryRow{
		CacheKey:   entry.Key,
		Text:       entry.Text,
		SourceLang: string(entry.SourceLang),
		TargetLang: string(entry.TargetLang),
		Provider:   entry.Provider,
		Result:     encoded,
		CreatedAt:  entry.CreatedAt,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

func (s *PostgresStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	removed, err := s.pool.DeleteCacheEntriesBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return removed, nil
}

func (s *PostgresStore) Trim(ctx context.Context, keep int) (int64, error) {
	removed, err := s.pool.TrimCacheEntries(ctx, keep)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return removed, nil
}

func (s *PostgresStore) Len(ctx context.Context) (int64, error) {
	count, err := s.pool.CountCacheEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return count, nil
}

func (s *PostgresStore) IncrementCounter(ctx context.Context, key string, delta float64) error {
	if err := s.pool.IncrementUsageCounter(ctx, key, delta); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

func (s *PostgresStore) LoadCounters(ctx context.Context) (map[string]float64, error) {
	counters, err := s.pool.ListUsageCounters(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return counters, nil
}

func (s *PostgresStore) ResetCounters(ctx context.Context) error {
	if err := s.pool.ResetUsageCounters(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// PostgresQuotaStore adapts the user_quotas table to QuotaStore. Its Get
// collides with the cache backend's Get, hence the separate type.
type PostgresQuotaStore struct {
	pool *db.Pool
}

func NewPostgresQuotaStore(pool *db.Pool) *PostgresQuotaStore {
	return &PostgresQuotaStore{pool: pool}
}

func (s *PostgresQuotaStore) Get(ctx context.Context, userID string) (*QuotaRecord, error) {
	row, err := s.pool.GetUserQuota(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if row == nil {
		return nil, nil
	}
	record := quotaRecordFromRow(*row)
	return &record, nil
}

func (s *PostgresQuotaStore) Reserve(ctx context.Context, userID, day string, limit int, at time.Time) (QuotaRecord, bool, error) {
	row, granted, err := s.pool.ReserveUserQuota(ctx, userID, day, limit, at)
	if err != nil {
		return QuotaRecord{}, false, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return quotaRecordFromRow(row), granted, nil
}

func (s *PostgresQuotaStore) Release(ctx context.Context, userID, day string) (QuotaRecord, error) {
	row, err := s.pool.ReleaseUserQuota(ctx, userID, day)
	if err != nil {
		return QuotaRecord{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return quotaRecordFromRow(row), nil
}

func (s *PostgresQuotaStore) SetTier(ctx context.Context, userID string, tier Tier, at time.Time) error {
	if err := s.pool.SetUserTier(ctx, userID, string(tier), at); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

func quotaRecordFromRow(row db.UserQuotaRow) QuotaRecord {
	return QuotaRecord{UserID: row.UserID, Day: row.Day, Count: row.Count, Tier: Tier(row.Tier)}
}
