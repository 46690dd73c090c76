package translation

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"horse.fit/lisan/internal/config"
)

// Registry maps provider ids to adapters and their read-only configuration.
type Registry struct {
	providers map[string]Provider
	configs   map[string]config.ProviderConfig
	priority  []string
}

func NewRegistry(table config.ProviderTable) *Registry {
	configs := make(map[string]config.ProviderConfig, len(table.Providers))
	for id, cfg := range table.Providers {
		configs[normalizeProviderName(id)] = cfg
	}

	priority := make([]string, 0, len(table.Priority)+1)
	for _, id := range table.Priority {
		name := normalizeProviderName(id)
		if name == "" || slices.Contains(priority, name) {
			continue
		}
		priority = append(priority, name)
	}
	if !slices.Contains(priority, config.ProviderDictionary) {
		priority = append(priority, config.ProviderDictionary)
	}

	return &Registry{
		providers: make(map[string]Provider),
		configs:   configs,
		priority:  priority,
	}
}

// Register adds one adapter, replacing any previous adapter with the same name.
func (r *Registry) Register(provider Provider) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	if provider == nil {
		return fmt.Errorf("provider is nil")
	}
	name := normalizeProviderName(provider.Name())
	if name == "" {
		return fmt.Errorf("provider name is required")
	}
	r.providers[name] = provider
	return nil
}

// Provider resolves a ready adapter by id.
func (r *Registry) Provider(id string) (Provider, error) {
	if r == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	name := normalizeProviderName(id)
	provider, registered := r.providers[name]
	cfg, configured := r.configs[name]

	switch {
	case !registered && !configured:
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownProvider, name, strings.Join(r.ProviderNames(), ", "))
	case configured && !cfg.Enabled:
		return nil, fmt.Errorf("%w: %s is disabled", ErrProviderNotReady, name)
	case configured && !cfg.CredentialsPresent():
		return nil, fmt.Errorf("%w: %s has no credentials", ErrProviderNotReady, name)
	case !registered:
		return nil, fmt.Errorf("%w: %s has no adapter", ErrProviderNotReady, name)
	}
	return provider, nil
}

// Config returns the provider configuration. Adapters registered without
// configuration report an enabled, keyless config without rate limits.
func (r *Registry) Config(id string) config.ProviderConfig {
	name := normalizeProviderName(id)
	if r != nil {
		if cfg, ok := r.configs[name]; ok {
			return cfg
		}
	}
	return config.ProviderConfig{ID: name, Enabled: true}
}

func (r *Registry) IsReady(id string) bool {
	_, err := r.Provider(id)
	return err == nil
}

// Priority returns the configured fallback order, dictionary included.
func (r *Registry) Priority() []string {
	if r == nil {
		return nil
	}
	return slices.Clone(r.priority)
}

// AvailableProviders returns the ready providers in priority order.
func (r *Registry) AvailableProviders() []string {
	if r == nil {
		return nil
	}
	available := make([]string, 0, len(r.priority))
	for _, id := range r.priority {
		if r.IsReady(id) {
			available = append(available, id)
		}
	}
	return available
}

// ActiveProvider is the first ready provider, falling back to the dictionary.
func (r *Registry) ActiveProvider() string {
	if available := r.AvailableProviders(); len(available) > 0 {
		return available[0]
	}
	return config.ProviderDictionary
}

// RateLimits collects the per-provider ceilings for the rate limiter.
func (r *Registry) RateLimits() map[string]config.RateLimit {
	limits := make(map[string]config.RateLimit)
	if r == nil {
		return limits
	}
	for id, cfg := range r.configs {
		if id == config.ProviderDictionary {
			continue
		}
		limits[id] = cfg.RateLimit
	}
	return limits
}

func (r *Registry) ProviderNames() []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(r.providers)+len(r.configs))
	for name := range r.providers {
		seen[name] = struct{}{}
	}
	for name := range r.configs {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
