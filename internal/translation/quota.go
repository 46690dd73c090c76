package translation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"horse.fit/lisan/internal/clock"
)

type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"

	DefaultFreeDailyLimit = 5
)

const quotaDayLayout = "2006-01-02"

// QuotaRecord is the stored per-user counter for one calendar day.
type QuotaRecord struct {
	UserID string
	Day    string
	Count  int
	Tier   Tier
}

// QuotaStore persists quota records. Get returns nil, nil for unknown users.
type QuotaStore interface {
	Get(ctx context.Context, userID string) (*QuotaRecord, error)
	// Reserve counts one translation on day when the user is premium or has
	// fewer than limit on that day, as a single atomic step. granted is false
	// and the record unchanged otherwise.
	Reserve(ctx context.Context, userID, day string, limit int, at time.Time) (record QuotaRecord, granted bool, err error)
	// Release gives back one reservation made on day. Other days are untouched.
	Release(ctx context.Context, userID, day string) (QuotaRecord, error)
	SetTier(ctx context.Context, userID string, tier Tier, at time.Time) error
}

// QuotaStatus is what a user sees about their free-tier allowance.
// Remaining and Limit are -1 for premium users.
type QuotaStatus struct {
	UserID    string    `json:"user_id"`
	Allowed   bool      `json:"allowed"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	ResetAt   time.Time `json:"reset_at"`
	Tier      Tier      `json:"tier"`
}

// Quotas enforces the daily free translation allowance per anonymous user.
type Quotas struct {
	store      QuotaStore
	dailyLimit int
	clock      clock.Clock
}

func NewQuotas(store QuotaStore, dailyLimit int, clk clock.Clock) *Quotas {
	if store == nil {
		store = NewMemoryQuotaStore()
	}
	if dailyLimit < 0 {
		dailyLimit = DefaultFreeDailyLimit
	}
	return &Quotas{store: store, dailyLimit: dailyLimit, clock: clock.OrSystem(clk)}
}

func (q *Quotas) Check(ctx context.Context, userID string) (QuotaStatus, error) {
	id := strings.TrimSpace(userID)
	if id == "" {
		return QuotaStatus{}, invalidRequest("user id is required")
	}

	record, err := q.store.Get(ctx, id)
	if err != nil {
		return QuotaStatus{}, fmt.Errorf("%w: load quota: %w", ErrStorage, err)
	}
	return q.status(id, record), nil
}

// QuotaReservation is one unit of a user's allowance taken ahead of a
// translation. Release it when the translation turns out to be free or fails.
type QuotaReservation struct {
	Status  QuotaStatus
	Granted bool

	userID string
	day    string
}

// Reserve takes one unit of userID's allowance. A user with nothing left gets
// Granted false and the current status; that is not an error.
func (q *Quotas) Reserve(ctx context.Context, userID string) (QuotaReservation, error) {
	id := strings.TrimSpace(userID)
	if id == "" {
		return QuotaReservation{}, invalidRequest("user id is required")
	}

	now := q.clock.Now()
	day := now.Format(quotaDayLayout)
	record, granted, err := q.store.Reserve(ctx, id, day, q.dailyLimit, now)
	if err != nil {
		return QuotaReservation{}, fmt.Errorf("%w: reserve quota: %w", ErrStorage, err)
	}

	status := q.status(id, &record)
	if !granted {
		status.Allowed = false
	}
	return QuotaReservation{Status: status, Granted: granted, userID: id, day: day}, nil
}

// Release returns a granted reservation. Releasing an ungranted one is a no-op.
func (q *Quotas) Release(ctx context.Context, reservation QuotaReservation) (QuotaStatus, error) {
	if !reservation.Granted {
		return reservation.Status, nil
	}
	record, err := q.store.Release(ctx, reservation.userID, reservation.day)
	if err != nil {
		return reservation.Status, fmt.Errorf("%w: release quota: %w", ErrStorage, err)
	}
	return q.status(reservation.userID, &record), nil
}

// Upgrade moves userID to the premium tier.
func (q *Quotas) Upgrade(ctx context.Context, userID string) (QuotaStatus, error) {
	id := strings.TrimSpace(userID)
	if id == "" {
		return QuotaStatus{}, invalidRequest("user id is required")
	}
	if err := q.store.SetTier(ctx, id, TierPremium, q.clock.Now()); err != nil {
		return QuotaStatus{}, fmt.Errorf("%w: upgrade user: %w", ErrStorage, err)
	}
	return q.Check(ctx, id)
}

func (q *Quotas) status(userID string, record *QuotaRecord) QuotaStatus {
	now := q.clock.Now()
	status := QuotaStatus{
		UserID:  userID,
		Tier:    TierFree,
		ResetAt: nextMidnight(now),
	}

	used := 0
	if record != nil {
		if record.Tier != "" {
			status.Tier = record.Tier
		}
		if record.Day == now.Format(quotaDayLayout) {
			used = record.Count
		}
	}
	status.Used = used

	if status.Tier == TierPremium {
		status.Allowed = true
		status.Remaining = -1
		status.Limit = -1
		return status
	}

	status.Limit = q.dailyLimit
	status.Remaining = max(0, q.dailyLimit-used)
	status.Allowed = used < q.dailyLimit
	return status
}

func nextMidnight(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
}
