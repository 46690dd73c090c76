package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Environment:      "test",
		LogLevel:         "info",
		DBMinConns:       1,
		DBMaxConns:       4,
		CacheTTL:         168 * time.Hour,
		CacheMaxEntries:  1000,
		ProviderTimeout:  15 * time.Second,
		ChainTimeout:     45 * time.Second,
		FreeDailyLimit:   5,
		ContextProvider:  "claude",
		BatchConcurrency: 1,
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 168*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 1000, cfg.CacheMaxEntries)
	assert.Equal(t, 15*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 45*time.Second, cfg.ChainTimeout)
	assert.Equal(t, 5, cfg.FreeDailyLimit)
	assert.Equal(t, 1, cfg.BatchConcurrency)
	assert.True(t, cfg.CacheEnabled)
	assert.False(t, cfg.ContextAware)
	assert.False(t, cfg.UsesDatabase())
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*Config){
		"min conns above max": func(c *Config) { c.DBMinConns = 9 },
		"zero ttl":            func(c *Config) { c.CacheTTL = 0 },
		"zero timeout":        func(c *Config) { c.ProviderTimeout = 0 },
		"negative limit":      func(c *Config) { c.FreeDailyLimit = -1 },
		"zero concurrency":    func(c *Config) { c.BatchConcurrency = 0 },
		"context without id": func(c *Config) {
			c.ContextAware = true
			c.ContextProvider = " "
		},
	}

	for name, mutate := range cases {
		cfg := validConfig()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}

	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestPriorityListAndOrigins(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.ProviderPriority = " Google, claude,,google ,dictionary"
	cfg.CORSAllowedOrigins = "http://a.test, http://b.test,http://a.test"

	assert.Equal(t, []string{"google", "claude", "dictionary"}, cfg.PriorityList())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOriginsList())

	cfg.ProviderPriority = " "
	assert.Nil(t, cfg.PriorityList())
}
