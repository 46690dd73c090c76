package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CacheEntryRow is one cached translation keyed by fingerprint.
type CacheEntryRow struct {
	CacheKey   string
	Text       string
	SourceLang string
	TargetLang string
	Provider   string
	Result     json.RawMessage
	CreatedAt  time.Time
}

// GetCacheEntry returns nil, nil when the key is absent.
func (p *Pool) GetCacheEntry(ctx context.Context, cacheKey string) (*CacheEntryRow, error) {
	const q = `
SELECT
	cache_key,
	text,
	source_lang,
	target_lang,
	provider,
	result::text,
	created_at
FROM lisan.translation_cache
WHERE cache_key = $1
LIMIT 1
`

	var (
		row    CacheEntryRow
		result string
	)
	err := p.QueryRow(ctx, q, strings.TrimSpace(cacheKey)).Scan(
		&row.CacheKey,
		&row.Text,
		&row.SourceLang,
		&row.TargetLang,
		&row.Provider,
		&result,
		&row.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query cache entry: %w", err)
	}
	row.Result = json.RawMessage(result)
	return &row, nil
}

func (p *Pool) UpsertCacheEntry(ctx context.Context, row CacheEntryRow) error {
	const q = `
INSERT INTO lisan.translation_cache (
	cache_key,
	text,
	source_lang,
	target_lang,
	provider,
	result,
	created_at
)
VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
ON CONFLICT (cache_key)
DO UPDATE SET
	text = EXCLUDED.text,
	source_lang = EXCLUDED.source_lang,
	target_lang = EXCLUDED.target_lang,
	provider = EXCLUDED.provider,
	result = EXCLUDED.result,
	created_at = EXCLUDED.created_at
`

	if _, err := p.Exec(
		ctx,
		q,
		row.CacheKey,
		row.Text,
		row.SourceLang,
		row.TargetLang,
		row.Provider,
		string(row.Result),
		row.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

// DeleteCacheEntriesBefore removes entries created strictly before cutoff.
func (p *Pool) DeleteCacheEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM lisan.translation_cache WHERE created_at < $1`

	tag, err := p.Exec(ctx, q, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired cache entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

// TrimCacheEntries keeps the newest keep rows and deletes the rest.
func (p *Pool) TrimCacheEntries(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	const q = `
DELETE FROM lisan.translation_cache
WHERE cache_key IN (
	SELECT cache_key
	FROM lisan.translation_cache
	ORDER BY created_at DESC, cache_key DESC
	OFFSET $1
)
`

	tag, err := p.Exec(ctx, q, keep)
	if err != nil {
		return 0, fmt.Errorf("trim cache entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Pool) CountCacheEntries(ctx context.Context) (int64, error) {
	const q = `SELECT COUNT(*) FROM lisan.translation_cache`

	var count int64
	if err := p.QueryRow(ctx, q).Scan(&count); err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return count, nil
}
