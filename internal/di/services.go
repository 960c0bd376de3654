package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/clients/exchangerate"
	"github.com/aristath/networth/internal/config"
	"github.com/aristath/networth/internal/modules/analytics"
	"github.com/aristath/networth/internal/modules/correlation"
	"github.com/aristath/networth/internal/modules/currency"
	"github.com/aristath/networth/internal/modules/risk"
)

// InitializeServices creates the FX normalizer and the analytics pipeline
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.ExchangeRateClient = exchangerate.NewClient(cfg.FXAPIURL, container.ClientDataRepo, log)
	container.Normalizer = currency.NewNormalizer(
		container.RateRepo,
		container.ExchangeRateClient,
		container.EventManager,
		currency.Config{
			BaseCurrency:    cfg.BaseCurrency,
			RefreshTimeout:  cfg.FXTimeout,
			RefreshCooldown: cfg.FXRefreshCooldown,
		},
		log,
	)

	container.RiskCalculator = risk.NewCalculator(risk.Config{
		RiskFreeRate:       cfg.RiskFreeRate,
		PeriodsPerYear:     cfg.PeriodsPerYear,
		MinVaRObservations: cfg.VaRMinObservations,
	}, log)
	container.CorrelationAnalyzer = correlation.NewAnalyzer(cfg.MinCorrelationOverlap, log)

	container.AnalyticsService = analytics.NewService(
		container.SnapshotRepo,
		container.AccountRepo,
		container.FlowRepo,
		container.BenchmarkRepo,
		container.Normalizer,
		container.RiskCalculator,
		container.CorrelationAnalyzer,
		container.EventBus,
		container.EventManager,
		analytics.Config{
			CacheSize: cfg.CacheSize,
			Staleness: cfg.CacheStaleness,
		},
		log,
	)

	log.Info().
		Str("base_currency", container.Normalizer.Base()).
		Int("cache_size", cfg.CacheSize).
		Dur("cache_staleness", cfg.CacheStaleness).
		Msg("Services initialized")
	return nil
}
