package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/clientdata"
	"github.com/aristath/networth/internal/events"
	"github.com/aristath/networth/internal/modules/accounts"
	"github.com/aristath/networth/internal/modules/benchmarks"
	"github.com/aristath/networth/internal/modules/cash_flows"
	"github.com/aristath/networth/internal/modules/currency"
	"github.com/aristath/networth/internal/modules/snapshots"
)

// InitializeRepositories creates the event bus and every repository. Mutating
// repositories announce their changes through the event manager.
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	conn := container.NetworthDB.Conn()
	container.AccountRepo = accounts.NewRepository(conn, container.EventManager, log)
	container.SnapshotRepo = snapshots.NewRepository(conn, container.EventManager, log)
	container.FlowRepo = cash_flows.NewRepository(conn, container.EventManager, log)
	container.BenchmarkRepo = benchmarks.NewRepository(conn, container.EventManager, log)
	container.RateRepo = currency.NewRepository(conn, log)

	container.ClientDataRepo = clientdata.NewRepository(container.ClientDataDB.Conn())

	log.Info().Msg("Repositories initialized")
	return nil
}
