package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const (
	ProviderClaude     = "claude"
	ProviderGoogle     = "google"
	ProviderAzure      = "azure"
	ProviderDeepL      = "deepl"
	ProviderLibre      = "libre"
	ProviderMyMemory   = "mymemory"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderDictionary = "dictionary"
)

//go:embed providers.schema.json
var providersSchemaJSON string

// RateLimit holds the sliding-window ceilings. Zero disables a ceiling.
type RateLimit struct {
	RequestsPerMinute int `json:"requests_per_minute"`
	RequestsPerDay    int `json:"requests_per_day"`
}

// Pricing is either token priced (InputPer1K/OutputPer1K) or character priced (Per1MChars).
type Pricing struct {
	InputPer1K  float64 `json:"input_per_1k,omitempty"`
	OutputPer1K float64 `json:"output_per_1k,omitempty"`
	Per1MChars  float64 `json:"per_1m_chars,omitempty"`
}

type ProviderConfig struct {
	ID                  string
	Enabled             bool
	RequiresCredentials bool
	Credential          string
	Endpoint            string
	Model               string
	APIVersion          string
	Region              string
	MaxTokens           int
	Temperature         float64
	RateLimit           RateLimit
	Pricing             *Pricing
}

// CredentialsPresent is true when the provider has the secret it needs, or needs none.
func (p ProviderConfig) CredentialsPresent() bool {
	if p.ID == ProviderDictionary {
		return true
	}
	return !p.RequiresCredentials || strings.TrimSpace(p.Credential) != ""
}

func (p ProviderConfig) Ready() bool {
	return p.Enabled && p.CredentialsPresent()
}

// ProviderTable is the read-only provider configuration handed to the translation core.
type ProviderTable struct {
	Priority  []string
	Providers map[string]ProviderConfig
}

func (t ProviderTable) Get(id string) (ProviderConfig, bool) {
	cfg, ok := t.Providers[strings.ToLower(strings.TrimSpace(id))]
	return cfg, ok
}

// DefaultProviders returns the built-in provider table.
func DefaultProviders() ProviderTable {
	providers := map[string]ProviderConfig{
		ProviderClaude: {
			ID:                  ProviderClaude,
			Enabled:             true,
			RequiresCredentials: true,
			Endpoint:            "https://api.anthropic.com/v1/messages",
			Model:               "claude-sonnet-4-20250514",
			APIVersion:          "2023-06-01",
			MaxTokens:           1000,
			Temperature:         0.3,
			RateLimit:           RateLimit{RequestsPerMinute: 50, RequestsPerDay: 1000},
			Pricing:             &Pricing{InputPer1K: 0.003, OutputPer1K: 0.015},
		},
		ProviderGoogle: {
			ID:                  ProviderGoogle,
			Enabled:             true,
			RequiresCredentials: true,
			Endpoint:            "https://translation.googleapis.com/language/translate/v2",
			RateLimit:           RateLimit{RequestsPerMinute: 100, RequestsPerDay: 10000},
			Pricing:             &Pricing{Per1MChars: 20},
		},
		ProviderAzure: {
			ID:                  ProviderAzure,
			Enabled:             true,
			RequiresCredentials: true,
			Endpoint:            "https://api.cognitive.microsofttranslator.com/translate",
			APIVersion:          "3.0",
			Region:              "global",
			RateLimit:           RateLimit{RequestsPerMinute: 100, RequestsPerDay: 20000},
		},
		ProviderDeepL: {
			ID:                  ProviderDeepL,
			Enabled:             true,
			RequiresCredentials: true,
			Endpoint:            "https://api-free.deepl.com/v2/translate",
			RateLimit:           RateLimit{RequestsPerMinute: 10, RequestsPerDay: 500000},
		},
		ProviderLibre: {
			ID:                  ProviderLibre,
			Enabled:             true,
			RequiresCredentials: true,
			Endpoint:            "https://libretranslate.com/translate",
			RateLimit:           RateLimit{RequestsPerMinute: 5, RequestsPerDay: 1000},
		},
		ProviderMyMemory: {
			ID:        ProviderMyMemory,
			Enabled:   true,
			Endpoint:  "https://api.mymemory.translated.net/get",
			RateLimit: RateLimit{RequestsPerMinute: 30, RequestsPerDay: 5000},
		},
		ProviderOpenAI: {
			ID:                  ProviderOpenAI,
			Enabled:             true,
			RequiresCredentials: true,
			Endpoint:            "https://api.openai.com/v1",
			Model:               "gpt-4o-mini",
			MaxTokens:           1000,
			Temperature:         0.3,
			RateLimit:           RateLimit{RequestsPerMinute: 60, RequestsPerDay: 5000},
			Pricing:             &Pricing{InputPer1K: 0.00015, OutputPer1K: 0.0006},
		},
		ProviderGemini: {
			ID:                  ProviderGemini,
			Enabled:             true,
			RequiresCredentials: true,
			Model:               "gemini-2.0-flash",
			MaxTokens:           1000,
			Temperature:         0.3,
			RateLimit:           RateLimit{RequestsPerMinute: 15, RequestsPerDay: 1500},
			Pricing:             &Pricing{InputPer1K: 0.0001, OutputPer1K: 0.0004},
		},
		ProviderDictionary: {
			ID:      ProviderDictionary,
			Enabled: true,
		},
	}

	return ProviderTable{
		Priority: []string{
			ProviderClaude,
			ProviderGoogle,
			ProviderDeepL,
			ProviderAzure,
			ProviderLibre,
			ProviderMyMemory,
			ProviderOpenAI,
			ProviderGemini,
			ProviderDictionary,
		},
		Providers: providers,
	}
}

// LoadProviders builds the provider table: built-in defaults, then the optional
// LISAN_PROVIDERS_FILE overlay, then LISAN_PROVIDER_PRIORITY and env credentials.
func LoadProviders(cfg *Config) (ProviderTable, error) {
	table := DefaultProviders()

	if cfg != nil && strings.TrimSpace(cfg.ProvidersFile) != "" {
		raw, err := os.ReadFile(strings.TrimSpace(cfg.ProvidersFile))
		if err != nil {
			return ProviderTable{}, fmt.Errorf("read providers file: %w", err)
		}
		overlay, err := ParseProvidersYAML(raw)
		if err != nil {
			return ProviderTable{}, fmt.Errorf("parse providers file %s: %w", cfg.ProvidersFile, err)
		}
		table = overlay.apply(table)
	}

	if priority := cfg.PriorityList(); len(priority) > 0 {
		table.Priority = priority
	}

	for id, provider := range table.Providers {
		provider.Credential = cfg.Credential(id)
		if id == ProviderAzure && cfg != nil && strings.TrimSpace(cfg.AzureTranslatorRegion) != "" {
			provider.Region = strings.TrimSpace(cfg.AzureTranslatorRegion)
		}
		table.Providers[id] = provider
	}

	if !slices.Contains(table.Priority, ProviderDictionary) {
		table.Priority = append(table.Priority, ProviderDictionary)
	}
	if _, exists := table.Providers[ProviderDictionary]; !exists {
		table.Providers[ProviderDictionary] = ProviderConfig{ID: ProviderDictionary, Enabled: true}
	}

	return table, nil
}

// CredentialWarnings reports credentials whose format looks wrong for their provider.
// A warning never disables a provider.
func CredentialWarnings(table ProviderTable) []string {
	warnings := make([]string, 0)
	for _, id := range table.Priority {
		provider, ok := table.Providers[id]
		if !ok || strings.TrimSpace(provider.Credential) == "" {
			continue
		}
		if msg := validateCredential(id, strings.TrimSpace(provider.Credential)); msg != "" {
			warnings = append(warnings, fmt.Sprintf("%s: %s", id, msg))
		}
	}
	return warnings
}

func validateCredential(id, key string) string {
	switch id {
	case ProviderClaude:
		if !strings.HasPrefix(key, "sk-ant-") {
			return "api key should start with sk-ant-"
		}
	case ProviderGoogle:
		if len(key) < 30 {
			return "api key looks too short"
		}
	case ProviderAzure:
		if len(key) != 32 {
			return "api key should be 32 characters"
		}
	case ProviderDeepL:
		if !strings.HasSuffix(key, ":fx") {
			return "api key does not end with :fx (free tier endpoint expects a free key)"
		}
	}
	return ""
}

type ProviderOverlay struct {
	Priority  []string                    `json:"priority"`
	Providers map[string]ProviderOverride `json:"providers"`
}

type ProviderOverride struct {
	Enabled             *bool      `json:"enabled"`
	RequiresCredentials *bool      `json:"requires_credentials"`
	Endpoint            *string    `json:"endpoint"`
	Model               *string    `json:"model"`
	APIVersion          *string    `json:"api_version"`
	Region              *string    `json:"region"`
	MaxTokens           *int       `json:"max_tokens"`
	Temperature         *float64   `json:"temperature"`
	RateLimit           *RateLimit `json:"rate_limit"`
	Pricing             *Pricing   `json:"pricing"`
}

// ParseProvidersYAML decodes and schema-validates a provider overlay document.
func ParseProvidersYAML(raw []byte) (*ProviderOverlay, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return &ProviderOverlay{}, nil
	}

	var document any
	if err := yaml.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if document == nil {
		return &ProviderOverlay{}, nil
	}

	// yaml.v3 numbers are Go ints and floats; round-trip through JSON so the
	// validator sees json.Number values.
	encoded, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("normalize yaml: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("normalize yaml: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("providers document contains trailing content")
	}

	schema, err := loadProvidersSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var file ProviderOverlay
	if err := json.Unmarshal(encoded, &file); err != nil {
		return nil, fmt.Errorf("unmarshal providers document: %w", err)
	}
	return &file, nil
}

func (f *ProviderOverlay) apply(table ProviderTable) ProviderTable {
	if f == nil {
		return table
	}
	if len(f.Priority) > 0 {
		table.Priority = slices.Clone(f.Priority)
	}
	for id, override := range f.Providers {
		provider, exists := table.Providers[id]
		if !exists {
			provider = ProviderConfig{ID: id, RequiresCredentials: true}
		}
		if override.Enabled != nil {
			provider.Enabled = *override.Enabled
		}
		if override.RequiresCredentials != nil {
			provider.RequiresCredentials = *override.RequiresCredentials
		}
		if override.Endpoint != nil {
			provider.Endpoint = strings.TrimSpace(*override.Endpoint)
		}
		if override.Model != nil {
			provider.Model = strings.TrimSpace(*override.Model)
		}
		if override.APIVersion != nil {
			provider.APIVersion = strings.TrimSpace(*override.APIVersion)
		}
		if override.Region != nil {
			provider.Region = strings.TrimSpace(*override.Region)
		}
		if override.MaxTokens != nil {
			provider.MaxTokens = *override.MaxTokens
		}
		if override.Temperature != nil {
			provider.Temperature = *override.Temperature
		}
		if override.RateLimit != nil {
			provider.RateLimit = *override.RateLimit
		}
		if override.Pricing != nil {
			pricing := *override.Pricing
			provider.Pricing = &pricing
		}
		table.Providers[id] = provider
	}
	return table
}

var (
	schemaOnce        sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

func loadProvidersSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("providers.schema.json", strings.NewReader(providersSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile("providers.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}
