package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"horse.fit/lisan/internal/auth"
	"horse.fit/lisan/internal/config"
	"horse.fit/lisan/internal/langdetect"
	"horse.fit/lisan/internal/language"
	"horse.fit/lisan/internal/translation"
)

const maxTextRunes = 5000

type translateRequest struct {
	Text     string `json:"text"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Provider string `json:"provider"`
}

type batchRequest struct {
	Texts  []string `json:"texts"`
	Source string   `json:"source"`
	Target string   `json:"target"`
}

type contextRequest struct {
	Text    string                `json:"text"`
	Source  string                `json:"source"`
	Target  string                `json:"target"`
	History []translation.Message `json:"history"`
}

type translateResponse struct {
	*translation.Result
	SourceLang language.Lang           `json:"source_lang"`
	TargetLang language.Lang           `json:"target_lang"`
	Detected   bool                    `json:"detected,omitempty"`
	Quota      translation.QuotaStatus `json:"quota"`
}

type batchResponse struct {
	Items      []translation.BatchItem `json:"items"`
	Succeeded  int                     `json:"succeeded"`
	Failed     int                     `json:"failed"`
	SourceLang language.Lang           `json:"source_lang"`
	TargetLang language.Lang           `json:"target_lang"`
	Quota      translation.QuotaStatus `json:"quota"`
}

type languagePair struct {
	source   language.Lang
	target   language.Lang
	detected bool
}

// resolveLanguages parses the requested pair. An empty or "auto" source is
// detected from sample; an empty target is the other side of the pair.
func resolveLanguages(sample, rawSource, rawTarget string) (languagePair, map[string]string) {
	fieldErrors := map[string]string{}
	pair := languagePair{}

	source := language.Auto
	if strings.TrimSpace(rawSource) != "" {
		parsed, err := language.Parse(rawSource)
		if err != nil {
			fieldErrors["source"] = err.Error()
		}
		source = parsed
	}
	if source == language.Auto {
		source = langdetect.DetectArEn(sample)
		pair.detected = true
		if source == "" {
			fieldErrors["source"] = "could not detect the source language"
		}
	}
	pair.source = source

	if strings.TrimSpace(rawTarget) == "" {
		pair.target = source.Other()
	} else {
		parsed, err := language.Parse(rawTarget)
		switch {
		case err != nil:
			fieldErrors["target"] = err.Error()
		case parsed == language.Auto:
			fieldErrors["target"] = "target language cannot be auto"
		}
		pair.target = parsed
	}

	if len(fieldErrors) == 0 && pair.source == pair.target {
		fieldErrors["target"] = "source and target language must differ"
	}
	if len(fieldErrors) > 0 {
		return languagePair{}, fieldErrors
	}
	return pair, nil
}

func validateText(text string) string {
	trimmed := strings.TrimSpace(text)
	switch {
	case trimmed == "":
		return "text is required"
	case utf8.RuneCountInString(trimmed) > maxTextRunes:
		return "text is too long"
	default:
		return ""
	}
}

func (s *Server) handleTranslate(c echo.Context) error {
	var req translateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	if msg := validateText(req.Text); msg != "" {
		return failValidation(c, map[string]string{"text": msg})
	}
	pair, fieldErrors := resolveLanguages(req.Text, req.Source, req.Target)
	if fieldErrors != nil {
		return failValidation(c, fieldErrors)
	}

	metered, err := s.orchestrator.TranslateForUser(
		c.Request().Context(),
		s.quotas,
		currentUser(c),
		strings.TrimSpace(req.Provider),
		req.Text,
		pair.source,
		pair.target,
	)
	if err != nil {
		return s.writeTranslationError(c, err, &metered.Quota)
	}

	return success(c, translateResponse{
		Result:     metered.Result,
		SourceLang: pair.source,
		TargetLang: pair.target,
		Detected:   pair.detected,
		Quota:      metered.Quota,
	})
}

func (s *Server) handleBatchTranslate(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	switch {
	case len(req.Texts) == 0:
		return failValidation(c, map[string]string{"texts": "at least one text is required"})
	case len(req.Texts) > s.opts.MaxBatchSize:
		return failValidation(c, map[string]string{"texts": "too many texts in one batch"})
	}
	fieldErrors := map[string]string{}
	for idx, text := range req.Texts {
		if msg := validateText(text); msg != "" {
			fieldErrors[fmt.Sprintf("texts[%d]", idx)] = msg
		}
	}
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}
	pair, fieldErrors := resolveLanguages(strings.Join(req.Texts, "\n"), req.Source, req.Target)
	if fieldErrors != nil {
		return failValidation(c, fieldErrors)
	}

	ctx := c.Request().Context()
	reservation, err := s.quotas.Reserve(ctx, currentUser(c))
	if err != nil {
		return s.writeTranslationError(c, err, nil)
	}
	if !reservation.Granted {
		return s.writeTranslationError(c, translation.ErrQuotaExceeded, &reservation.Status)
	}

	items := s.orchestrator.BatchTranslate(ctx, req.Texts, pair.source, pair.target)
	resp := batchResponse{Items: items, SourceLang: pair.source, TargetLang: pair.target, Quota: reservation.Status}
	for _, item := range items {
		if item.Err != nil {
			resp.Failed++
			continue
		}
		resp.Succeeded++
	}
	if resp.Succeeded == 0 {
		resp.Quota = s.releaseQuota(c, reservation)
	}
	return success(c, resp)
}

func (s *Server) handleContextTranslate(c echo.Context) error {
	var req contextRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	if msg := validateText(req.Text); msg != "" {
		return failValidation(c, map[string]string{"text": msg})
	}
	pair, fieldErrors := resolveLanguages(req.Text, req.Source, req.Target)
	if fieldErrors != nil {
		return failValidation(c, fieldErrors)
	}

	ctx := c.Request().Context()
	reservation, err := s.quotas.Reserve(ctx, currentUser(c))
	if err != nil {
		return s.writeTranslationError(c, err, nil)
	}
	if !reservation.Granted {
		return s.writeTranslationError(c, translation.ErrQuotaExceeded, &reservation.Status)
	}

	quota := reservation.Status
	result, err := s.orchestrator.TranslateWithContext(ctx, req.Text, pair.source, pair.target, req.History)
	if err != nil {
		quota = s.releaseQuota(c, reservation)
		return s.writeTranslationError(c, err, &quota)
	}
	if result.Provider == config.ProviderDictionary {
		quota = s.releaseQuota(c, reservation)
	}
	return success(c, translateResponse{
		Result:     result,
		SourceLang: pair.source,
		TargetLang: pair.target,
		Detected:   pair.detected,
		Quota:      quota,
	})
}

// releaseQuota hands back a reservation that ended up free of charge.
func (s *Server) releaseQuota(c echo.Context, reservation translation.QuotaReservation) translation.QuotaStatus {
	status, err := s.quotas.Release(context.WithoutCancel(c.Request().Context()), reservation)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", currentUser(c)).Msg("quota release failed")
	}
	return status
}

func (s *Server) handleQuota(c echo.Context) error {
	status, err := s.quotas.Check(c.Request().Context(), currentUser(c))
	if err != nil {
		s.logger.Error().Err(err).Msg("quota lookup failed")
		return internalError(c, "Failed to load quota")
	}
	return success(c, status)
}

func (s *Server) handleProviders(c echo.Context) error {
	return success(c, map[string]any{
		"active":    s.orchestrator.ActiveProvider(),
		"available": s.orchestrator.AvailableProviders(),
		"items":     s.orchestrator.ProviderStatuses(),
	})
}

func (s *Server) handleTestProvider(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return failValidation(c, map[string]string{"id": "provider id is required"})
	}
	return success(c, s.orchestrator.TestProvider(c.Request().Context(), id))
}

func (s *Server) handleUsage(c echo.Context) error {
	return success(c, s.orchestrator.Ledger().Report())
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx := c.Request().Context()
	storage := "memory"
	if s.pinger != nil {
		storage = "postgres"
		if err := s.pinger.Ping(ctx); err != nil {
			s.logger.Error().Err(err).Msg("database ping failed")
			return errorWithStatus(c, http.StatusServiceUnavailable, "Database unavailable", map[string]any{
				"storage": storage,
			})
		}
	}

	cacheEntries, err := s.orchestrator.Cache().Len(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache size lookup failed")
	}

	return success(c, map[string]any{
		"service":         "lisan",
		"time":            s.clock.Now().UTC(),
		"storage":         storage,
		"active_provider": s.orchestrator.ActiveProvider(),
		"available":       s.orchestrator.AvailableProviders(),
		"cache_entries":   cacheEntries,
	})
}

func (s *Server) handleEvictCache(c echo.Context) error {
	removed, err := s.orchestrator.Cache().EvictExpired(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("cache eviction failed")
		return internalError(c, "Failed to evict cache")
	}
	s.logger.Info().Int64("removed", removed).Msg("evicted expired translations")
	return success(c, map[string]any{"removed": removed})
}

func (s *Server) handleResetUsage(c echo.Context) error {
	if err := s.orchestrator.Ledger().Reset(c.Request().Context()); err != nil {
		s.logger.Error().Err(err).Msg("usage reset failed")
		return internalError(c, "Failed to reset usage")
	}
	return success(c, s.orchestrator.Ledger().Report())
}

func (s *Server) handleUpgradeUser(c echo.Context) error {
	userID := auth.NormalizeUserID(c.Param("id"))
	if !userIDPattern.MatchString(userID) {
		return failValidation(c, map[string]string{"id": "invalid user id"})
	}
	status, err := s.quotas.Upgrade(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, translation.ErrInvalidRequest) {
			return failValidation(c, map[string]string{"id": err.Error()})
		}
		s.logger.Error().Err(err).Str("user_id", userID).Msg("user upgrade failed")
		return internalError(c, "Failed to upgrade user")
	}
	return success(c, status)
}
