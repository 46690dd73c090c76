package translation

import (
	"context"
	"fmt"

	"horse.fit/lisan/internal/config"
	"horse.fit/lisan/internal/language"
)

type servedFromCacheKey struct{}

// markServedFromCache flags ctx's trace, if any, as answered by the cache.
func markServedFromCache(ctx context.Context) {
	if flag, ok := ctx.Value(servedFromCacheKey{}).(*bool); ok {
		*flag = true
	}
}

// MeteredResult is a translation answered on behalf of a quota-bound user.
type MeteredResult struct {
	Result *Result
	Quota  QuotaStatus
}

// TranslateForUser runs a translation against userID's free-tier allowance.
// An empty providerID selects the fallback chain. Users over their allowance are
// still answered from the dictionary; anything else fails with ErrQuotaExceeded.
// Dictionary answers and cache hits do not count against the allowance.
func (o *Orchestrator) TranslateForUser(ctx context.Context, quotas *Quotas, userID, providerID, text string, source, target language.Lang) (MeteredResult, error) {
	reservation, err := quotas.Reserve(ctx, userID)
	if err != nil {
		return MeteredResult{}, err
	}
	status := reservation.Status

	if !reservation.Granted {
		result, err := o.TranslateWithAPI(ctx, config.ProviderDictionary, text, source, target)
		if err == nil {
			return MeteredResult{Result: result, Quota: status}, nil
		}
		o.metrics.observeQuotaDenied()
		return MeteredResult{Quota: status}, fmt.Errorf("%w: %d of %d used, resets at %s",
			ErrQuotaExceeded, status.Used, status.Limit, status.ResetAt.Format("15:04 MST"))
	}

	fromCache := false
	traced := context.WithValue(ctx, servedFromCacheKey{}, &fromCache)

	var result *Result
	if providerID == "" {
		result, err = o.SmartTranslate(traced, text, source, target)
	} else {
		result, err = o.TranslateWithAPI(traced, providerID, text, source, target)
	}

	if err == nil && !fromCache && result.Provider != config.ProviderDictionary {
		return MeteredResult{Result: result, Quota: status}, nil
	}

	released, releaseErr := quotas.Release(context.WithoutCancel(ctx), reservation)
	if releaseErr != nil {
		o.logger.Warn().Err(releaseErr).Str("user_id", userID).Msg("quota release failed")
	} else {
		status = released
	}
	if err != nil {
		return MeteredResult{Quota: status}, err
	}
	return MeteredResult{Result: result, Quota: status}, nil
}
