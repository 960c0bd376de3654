package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NETWORTH_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	abs, _ := filepath.Abs(dir)
	assert.Equal(t, abs, cfg.DataDir)
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "USD", cfg.BaseCurrency)
	assert.Equal(t, 0.02, cfg.RiskFreeRate)
	assert.Equal(t, 0.0, cfg.PeriodsPerYear)
	assert.Equal(t, 256, cfg.CacheSize)
	assert.Equal(t, time.Minute, cfg.CacheStaleness)
	assert.Equal(t, 10, cfg.MinCorrelationOverlap)
	assert.Equal(t, 20, cfg.VaRMinObservations)
	assert.Equal(t, "@every 6h", cfg.FXRefreshSchedule)
	assert.Equal(t, 10*time.Second, cfg.FXTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("NETWORTH_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9100")
	t.Setenv("BASE_CURRENCY", "eur")
	t.Setenv("RISK_FREE_RATE", "0.035")
	t.Setenv("PERIODS_PER_YEAR", "52")
	t.Setenv("CACHE_STALENESS_SECONDS", "5")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "EUR", cfg.BaseCurrency)
	assert.Equal(t, 0.035, cfg.RiskFreeRate)
	assert.Equal(t, 52.0, cfg.PeriodsPerYear)
	assert.Equal(t, 5*time.Second, cfg.CacheStaleness)
	assert.True(t, cfg.DevMode)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:                  8001,
			BaseCurrency:          "USD",
			CacheSize:             1,
			CacheStaleness:        time.Second,
			MinCorrelationOverlap: 10,
			VaRMinObservations:    20,
			FXTimeout:             time.Second,
		}
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(*Config){
		"base currency":    func(c *Config) { c.BaseCurrency = "DOLLARS" },
		"port":             func(c *Config) { c.Port = 0 },
		"periods per year": func(c *Config) { c.PeriodsPerYear = -1 },
		"cache size":       func(c *Config) { c.CacheSize = 0 },
		"staleness":        func(c *Config) { c.CacheStaleness = 0 },
		"overlap":          func(c *Config) { c.MinCorrelationOverlap = 1 },
		"var":              func(c *Config) { c.VaRMinObservations = 0 },
		"fx timeout":       func(c *Config) { c.FXTimeout = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
