// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aristath/networth/internal/domain"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the databases (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	// BaseCurrency is the process-wide currency every value is normalized into.
	BaseCurrency string
	RiskFreeRate float64
	// PeriodsPerYear annualizes returns; 0 infers it from the observed cadence.
	PeriodsPerYear        float64
	MinCorrelationOverlap int
	VaRMinObservations    int

	CacheSize      int
	CacheStaleness time.Duration

	FXAPIURL          string
	FXRefreshSchedule string
	FXTimeout         time.Duration
	FXRefreshCooldown time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("NETWORTH_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BaseCurrency:          strings.ToUpper(getEnv("BASE_CURRENCY", "USD")),
		RiskFreeRate:          getEnvAsFloat("RISK_FREE_RATE", 0.02),
		PeriodsPerYear:        getEnvAsFloat("PERIODS_PER_YEAR", 0),
		MinCorrelationOverlap: getEnvAsInt("MIN_CORRELATION_OVERLAP", 10),
		VaRMinObservations:    getEnvAsInt("VAR_MIN_OBSERVATIONS", 20),

		CacheSize:      getEnvAsInt("CACHE_SIZE", 256),
		CacheStaleness: time.Duration(getEnvAsInt("CACHE_STALENESS_SECONDS", 60)) * time.Second,

		FXAPIURL:          getEnv("FX_API_URL", "https://api.exchangerate-api.com/v4/latest"),
		FXRefreshSchedule: getEnv("FX_REFRESH_SCHEDULE", "@every 6h"),
		FXTimeout:         time.Duration(getEnvAsInt("FX_TIMEOUT_SECONDS", 10)) * time.Second,
		FXRefreshCooldown: time.Duration(getEnvAsInt("FX_REFRESH_COOLDOWN_SECONDS", 300)) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run with
func (c *Config) Validate() error {
	if err := domain.ValidateCurrency(c.BaseCurrency); err != nil {
		return fmt.Errorf("BASE_CURRENCY: %w", err)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.PeriodsPerYear < 0 {
		return fmt.Errorf("PERIODS_PER_YEAR must not be negative")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("CACHE_SIZE must be positive")
	}
	if c.CacheStaleness <= 0 {
		return fmt.Errorf("CACHE_STALENESS_SECONDS must be positive")
	}
	if c.MinCorrelationOverlap < 2 {
		return fmt.Errorf("MIN_CORRELATION_OVERLAP must be at least 2")
	}
	if c.VaRMinObservations < 1 {
		return fmt.Errorf("VAR_MIN_OBSERVATIONS must be positive")
	}
	if c.FXTimeout <= 0 {
		return fmt.Errorf("FX_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
