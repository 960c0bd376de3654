// Package di wires the databases, repositories, services and jobs of the
// analytics engine into a single Container.
package di

import (
	"errors"

	"github.com/aristath/networth/internal/clientdata"
	"github.com/aristath/networth/internal/clients/exchangerate"
	"github.com/aristath/networth/internal/database"
	"github.com/aristath/networth/internal/events"
	"github.com/aristath/networth/internal/modules/accounts"
	"github.com/aristath/networth/internal/modules/analytics"
	"github.com/aristath/networth/internal/modules/benchmarks"
	"github.com/aristath/networth/internal/modules/cash_flows"
	"github.com/aristath/networth/internal/modules/correlation"
	"github.com/aristath/networth/internal/modules/currency"
	"github.com/aristath/networth/internal/modules/risk"
	"github.com/aristath/networth/internal/modules/snapshots"
	"github.com/aristath/networth/internal/scheduler"
)

// Container holds every long-lived dependency of the process.
type Container struct {
	// Databases
	NetworthDB   *database.DB // Snapshots, accounts, flows, benchmarks, FX rates
	ClientDataDB *database.DB // Cached upstream API responses

	// Repositories
	AccountRepo    *accounts.Repository
	SnapshotRepo   *snapshots.Repository
	FlowRepo       *cash_flows.Repository
	BenchmarkRepo  *benchmarks.Repository
	RateRepo       *currency.Repository
	ClientDataRepo *clientdata.Repository

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Services
	ExchangeRateClient  *exchangerate.Client
	Normalizer          *currency.Normalizer
	RiskCalculator      *risk.Calculator
	CorrelationAnalyzer *correlation.Analyzer
	AnalyticsService    *analytics.Service

	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered jobs for manual triggering
type JobInstances struct {
	FXRefresh         *scheduler.FXRefreshJob
	WALCheckpoints    *scheduler.CheckWALCheckpointsJob
	CheckDatabases    *scheduler.CheckDatabasesJob
	ClientDataCleanup *clientdata.CleanupJob
}

// Databases returns the open databases keyed by name.
func (c *Container) Databases() map[string]*database.DB {
	dbs := make(map[string]*database.DB, 2)
	if c.NetworthDB != nil {
		dbs[database.NameNetworth] = c.NetworthDB
	}
	if c.ClientDataDB != nil {
		dbs[database.NameClientData] = c.ClientDataDB
	}
	return dbs
}

// Close stops the analytics subscriptions and closes the databases. The
// scheduler is stopped by its owner.
func (c *Container) Close() error {
	if c.AnalyticsService != nil {
		c.AnalyticsService.Close()
	}

	var errs []error
	for _, db := range c.Databases() {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
