package translation

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"horse.fit/lisan/internal/config"
	"horse.fit/lisan/internal/phrasebook"
)

// BuildRegistry registers an adapter for every configured provider plus the
// dictionary. Providers without credentials still get a registry entry so their
// status can be reported; they simply never become ready.
func BuildRegistry(ctx context.Context, table config.ProviderTable, book *phrasebook.Book, httpClient *http.Client, logger zerolog.Logger) (*Registry, error) {
	if book == nil {
		var err error
		book, err = phrasebook.Default()
		if err != nil {
			return nil, fmt.Errorf("load phrasebook: %w", err)
		}
	}
	if httpClient == nil {
		httpClient = newHTTPClient()
	}

	registry := NewRegistry(table)
	for _, warning := range config.CredentialWarnings(table) {
		logger.Warn().Str("warning", warning).Msg("provider credential looks malformed")
	}

	for id, cfg := range table.Providers {
		provider, err := newAdapter(ctx, id, cfg, httpClient)
		if err != nil {
			logger.Warn().Err(err).Str("provider", id).Msg("provider adapter unavailable")
			continue
		}
		if provider == nil {
			continue
		}
		if err := registry.Register(provider); err != nil {
			return nil, fmt.Errorf("register %s: %w", id, err)
		}
	}
	if err := registry.Register(NewDictionary(book)); err != nil {
		return nil, fmt.Errorf("register dictionary: %w", err)
	}

	logger.Info().
		Strs("priority", registry.Priority()).
		Strs("available", registry.AvailableProviders()).
		Msg("translation providers configured")
	return registry, nil
}

func newAdapter(ctx context.Context, id string, cfg config.ProviderConfig, httpClient *http.Client) (Provider, error) {
	switch id {
	case config.ProviderClaude:
		return NewClaudeProvider(cfg, httpClient), nil
	case config.ProviderGoogle:
		return NewGoogleProvider(cfg, httpClient), nil
	case config.ProviderAzure:
		return NewAzureProvider(cfg, httpClient), nil
	case config.ProviderDeepL:
		return NewDeepLProvider(cfg, httpClient), nil
	case config.ProviderLibre:
		return NewLibreProvider(cfg, httpClient), nil
	case config.ProviderMyMemory:
		return NewMyMemoryProvider(cfg, httpClient), nil
	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg, httpClient), nil
	case config.ProviderGemini:
		// The genai client refuses to build without a key.
		if !cfg.CredentialsPresent() {
			return nil, nil
		}
		return NewGeminiProvider(ctx, cfg, httpClient)
	case config.ProviderDictionary:
		return nil, nil
	default:
		return nil, fmt.Errorf("no adapter for provider %q", id)
	}
}
