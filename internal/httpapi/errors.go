package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"horse.fit/lisan/internal/translation"
)

// writeTranslationError maps the translation error taxonomy onto HTTP responses.
func (s *Server) writeTranslationError(c echo.Context, err error, quota *translation.QuotaStatus) error {
	var limitErr *translation.RateLimitError
	var providerErr *translation.ProviderError
	var allErr *translation.AllProvidersFailedError

	switch {
	case errors.Is(err, translation.ErrInvalidRequest):
		return failValidation(c, map[string]string{"request": err.Error()})
	case errors.Is(err, translation.ErrUnknownProvider), errors.Is(err, translation.ErrProviderNotReady):
		return failNotFound(c, err.Error())
	case errors.Is(err, translation.ErrNotFound):
		return failNotFound(c, "Translation not found in dictionary")
	case errors.Is(err, translation.ErrQuotaExceeded):
		return fail(c, http.StatusTooManyRequests, err.Error(), map[string]any{"quota": quota})
	case errors.As(err, &limitErr):
		return fail(c, http.StatusTooManyRequests, err.Error(), map[string]any{
			"provider": limitErr.Provider,
			"window":   limitErr.Window,
		})
	case errors.As(err, &allErr):
		s.logger.Warn().Err(err).Int("attempts", len(allErr.Attempts)).Msg("translation unavailable")
		return errorWithStatus(c, http.StatusServiceUnavailable, "Translation unavailable", map[string]any{
			"attempts": allErr.Attempts,
		})
	case errors.As(err, &providerErr):
		return errorWithStatus(c, http.StatusBadGateway, providerErr.Error(), map[string]any{
			"provider":    providerErr.Provider,
			"status_code": providerErr.StatusCode,
		})
	default:
		s.logger.Error().Err(err).Msg("translation failed")
		return internalError(c, "Translation failed")
	}
}
