package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// DatabaseURL is optional. When empty the cache, usage counters and
	// quotas live in process memory.
	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
	DBMinConns  int32  `envconfig:"NP_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"NP_DB_MAX_CONNS" default:"8"`

	ProvidersFile    string `envconfig:"LISAN_PROVIDERS_FILE" default:""`
	ProviderPriority string `envconfig:"LISAN_PROVIDER_PRIORITY" default:""`

	CacheEnabled       bool          `envconfig:"LISAN_CACHE_ENABLED" default:"true"`
	CacheTTL           time.Duration `envconfig:"LISAN_CACHE_TTL" default:"168h"`
	CacheMaxEntries    int           `envconfig:"LISAN_CACHE_MAX_ENTRIES" default:"1000"`
	CacheSweepInterval time.Duration `envconfig:"LISAN_CACHE_SWEEP_INTERVAL" default:"1h"`

	ProviderTimeout time.Duration `envconfig:"LISAN_PROVIDER_TIMEOUT" default:"15s"`
	ChainTimeout    time.Duration `envconfig:"LISAN_CHAIN_TIMEOUT" default:"45s"`

	BatchConcurrency int `envconfig:"LISAN_BATCH_CONCURRENCY" default:"1"`

	ContextAware    bool   `envconfig:"LISAN_CONTEXT_AWARE" default:"false"`
	ContextProvider string `envconfig:"LISAN_CONTEXT_PROVIDER" default:"claude"`

	FreeDailyLimit int    `envconfig:"LISAN_FREE_DAILY_LIMIT" default:"5"`
	AdminTokenHash string `envconfig:"LISAN_ADMIN_TOKEN_HASH" default:""`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`

	AnthropicAPIKey       string `envconfig:"ANTHROPIC_API_KEY" default:""`
	GoogleTranslateAPIKey string `envconfig:"GOOGLE_TRANSLATE_API_KEY" default:""`
	AzureTranslatorKey    string `envconfig:"AZURE_TRANSLATOR_KEY" default:""`
	AzureTranslatorRegion string `envconfig:"AZURE_TRANSLATOR_REGION" default:""`
	DeepLAPIKey           string `envconfig:"DEEPL_API_KEY" default:""`
	LibreTranslateAPIKey  string `envconfig:"LIBRETRANSLATE_API_KEY" default:""`
	MyMemoryEmail         string `envconfig:"MYMEMORY_EMAIL" default:""`
	OpenAIAPIKey          string `envconfig:"OPENAI_API_KEY" default:""`
	GeminiAPIKey          string `envconfig:"GEMINI_API_KEY" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBMinConns < 0 {
		return fmt.Errorf("NP_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("NP_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("NP_DB_MIN_CONNS (%d) cannot exceed NP_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("LISAN_CACHE_TTL must be > 0")
	}
	if c.CacheMaxEntries < 0 {
		return fmt.Errorf("LISAN_CACHE_MAX_ENTRIES must be >= 0")
	}
	if c.CacheSweepInterval < 0 {
		return fmt.Errorf("LISAN_CACHE_SWEEP_INTERVAL must be >= 0")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("LISAN_PROVIDER_TIMEOUT must be > 0")
	}
	if c.ChainTimeout < 0 {
		return fmt.Errorf("LISAN_CHAIN_TIMEOUT must be >= 0")
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("LISAN_BATCH_CONCURRENCY must be >= 1")
	}
	if c.FreeDailyLimit < 0 {
		return fmt.Errorf("LISAN_FREE_DAILY_LIMIT must be >= 0")
	}
	if c.ContextAware && strings.TrimSpace(c.ContextProvider) == "" {
		return fmt.Errorf("LISAN_CONTEXT_PROVIDER is required when LISAN_CONTEXT_AWARE is set")
	}
	return nil
}

// UsesDatabase reports whether durable postgres stores should be used.
func (c *Config) UsesDatabase() bool {
	return c != nil && strings.TrimSpace(c.DatabaseURL) != ""
}

// PriorityList parses LISAN_PROVIDER_PRIORITY. Nil means "use the provider file or defaults".
func (c *Config) PriorityList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.ProviderPriority, true)
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.CORSAllowedOrigins, false)
}

// Credential returns the secret configured for one provider id.
func (c *Config) Credential(providerID string) string {
	if c == nil {
		return ""
	}
	var value string
	switch providerID {
	case ProviderClaude:
		value = c.AnthropicAPIKey
	case ProviderGoogle:
		value = c.GoogleTranslateAPIKey
	case ProviderAzure:
		value = c.AzureTranslatorKey
	case ProviderDeepL:
		value = c.DeepLAPIKey
	case ProviderLibre:
		value = c.LibreTranslateAPIKey
	case ProviderMyMemory:
		value = c.MyMemoryEmail
	case ProviderOpenAI:
		value = c.OpenAIAPIKey
	case ProviderGemini:
		value = c.GeminiAPIKey
	}
	return strings.TrimSpace(value)
}

func splitList(raw string, lower bool) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if lower {
			value = strings.ToLower(value)
		}
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}
	if len(values) == 0 {
		return nil
	}
	return values
}
