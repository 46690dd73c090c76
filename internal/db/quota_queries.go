package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// UserQuotaRow is the per-user daily translation counter.
type UserQuotaRow struct {
	UserID            string
	Day               string
	Count             int
	Tier              string
	PremiumSince      *time.Time
	LastTranslationAt *time.Time
}

// GetUserQuota returns nil, nil for users that never translated.
func (p *Pool) GetUserQuota(ctx context.Context, userID string) (*UserQuotaRow, error) {
	const q = `
SELECT
	user_id,
	day,
	count,
	tier,
	premium_since,
	last_translation_at
FROM lisan.user_quotas
WHERE user_id = $1
LIMIT 1
`

	var row UserQuotaRow
	err := p.QueryRow(ctx, q, strings.TrimSpace(userID)).Scan(
		&row.UserID,
		&row.Day,
		&row.Count,
		&row.Tier,
		&row.PremiumSince,
		&row.LastTranslationAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user quota: %w", err)
	}
	return &row, nil
}

// ReserveUserQuota counts one translation on day when the user is premium or
// below limit for that day. The UPDATE re-checks its predicate after waiting on
// the row lock, so concurrent reservations cannot overshoot limit.
func (p *Pool) ReserveUserQuota(ctx context.Context, userID, day string, limit int, at time.Time) (UserQuotaRow, bool, error) {
	const ensure = `
INSERT INTO lisan.user_quotas (user_id, day, count, tier, created_at, updated_at)
VALUES ($1, $2, 0, 'free', now(), now())
ON CONFLICT (user_id) DO NOTHING
`
	const reserve = `
UPDATE lisan.user_quotas
SET
	count = CASE WHEN day = $2 THEN count + 1 ELSE 1 END,
	day = $2,
	last_translation_at = $4,
	updated_at = now()
WHERE user_id = $1
	AND (tier = 'premium' OR (CASE WHEN day = $2 THEN count ELSE 0 END) < $3)
RETURNING user_id, day, count, tier, premium_since, last_translation_at
`

	id := strings.TrimSpace(userID)
	if _, err := p.Exec(ctx, ensure, id, day); err != nil {
		return UserQuotaRow{}, false, fmt.Errorf("ensure user quota: %w", err)
	}

	row, err := scanUserQuota(p.QueryRow(ctx, reserve, id, day, limit, at.UTC()))
	if err == nil {
		return row, true, nil
	}
	if !IsNoRows(err) {
		return UserQuotaRow{}, false, fmt.Errorf("reserve user quota: %w", err)
	}

	current, err := p.GetUserQuota(ctx, id)
	if err != nil {
		return UserQuotaRow{}, false, err
	}
	if current == nil {
		return UserQuotaRow{UserID: id, Day: day, Tier: "free"}, false, nil
	}
	return *current, false, nil
}

// ReleaseUserQuota gives back one reservation made on day.
func (p *Pool) ReleaseUserQuota(ctx context.Context, userID, day string) (UserQuotaRow, error) {
	const q = `
UPDATE lisan.user_quotas
SET
	count = count - 1,
	updated_at = now()
WHERE user_id = $1
	AND day = $2
	AND count > 0
RETURNING user_id, day, count, tier, premium_since, last_translation_at
`

	id := strings.TrimSpace(userID)
	row, err := scanUserQuota(p.QueryRow(ctx, q, id, day))
	if err == nil {
		return row, nil
	}
	if !IsNoRows(err) {
		return UserQuotaRow{}, fmt.Errorf("release user quota: %w", err)
	}

	current, err := p.GetUserQuota(ctx, id)
	if err != nil {
		return UserQuotaRow{}, err
	}
	if current == nil {
		return UserQuotaRow{UserID: id, Tier: "free"}, nil
	}
	return *current, nil
}

func scanUserQuota(row *Row) (UserQuotaRow, error) {
	var out UserQuotaRow
	err := row.Scan(
		&out.UserID,
		&out.Day,
		&out.Count,
		&out.Tier,
		&out.PremiumSince,
		&out.LastTranslationAt,
	)
	return out, err
}

func (p *Pool) SetUserTier(ctx context.Context, userID, tier string, at time.Time) error {
	const q = `
INSERT INTO lisan.user_quotas (user_id, day, count, tier, premium_since, created_at, updated_at)
VALUES ($1, '', 0, $2, CASE WHEN $2 = 'premium' THEN $3::timestamptz ELSE NULL END, now(), now())
ON CONFLICT (user_id)
DO UPDATE SET
	tier = EXCLUDED.tier,
	premium_since = COALESCE(lisan.user_quotas.premium_since, EXCLUDED.premium_since),
	updated_at = now()
`

	if _, err := p.Exec(ctx, q, strings.TrimSpace(userID), tier, at.UTC()); err != nil {
		return fmt.Errorf("set user tier: %w", err)
	}
	return nil
}
