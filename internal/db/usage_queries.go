package db

import (
	"context"
	"fmt"
	"strings"
)

func (p *Pool) IncrementUsageCounter(ctx context.Context, counterKey string, delta float64) error {
	const q = `
INSERT INTO lisan.usage_counters (counter_key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (counter_key)
DO UPDATE SET
	value = lisan.usage_counters.value + EXCLUDED.value,
	updated_at = now()
`

	key := strings.TrimSpace(counterKey)
	if key == "" {
		return fmt.Errorf("counter key is required")
	}
	if _, err := p.Exec(ctx, q, key, delta); err != nil {
		return fmt.Errorf("increment usage counter %s: %w", key, err)
	}
	return nil
}

func (p *Pool) ListUsageCounters(ctx context.Context) (map[string]float64, error) {
	const q = `SELECT counter_key, value FROM lisan.usage_counters ORDER BY counter_key`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query usage counters: %w", err)
	}
	defer rows.Close()

	counters := make(map[string]float64, 16)
	for rows.Next() {
		var (
			key   string
			value float64
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan usage counter row: %w", err)
		}
		counters[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage counter rows: %w", err)
	}
	return counters, nil
}

func (p *Pool) ResetUsageCounters(ctx context.Context) error {
	if _, err := p.Exec(ctx, `DELETE FROM lisan.usage_counters`); err != nil {
		return fmt.Errorf("reset usage counters: %w", err)
	}
	return nil
}
