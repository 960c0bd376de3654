package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/config"
	"github.com/aristath/networth/internal/database"
)

// InitializeDatabases opens both databases and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// networth.db - the store of record, maximum durability
	networthDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "networth.db"),
		Profile: database.ProfileLedger,
		Name:    database.NameNetworth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize networth database: %w", err)
	}
	container.NetworthDB = networthDB

	// client_data.db - upstream response cache, safe to lose
	clientDataDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "client_data.db"),
		Profile: database.ProfileCache,
		Name:    database.NameClientData,
	})
	if err != nil {
		networthDB.Close()
		return nil, fmt.Errorf("failed to initialize client_data database: %w", err)
	}
	container.ClientDataDB = clientDataDB

	for _, db := range []*database.DB{networthDB, clientDataDB} {
		if err := db.Migrate(); err != nil {
			networthDB.Close()
			clientDataDB.Close()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
		}
	}

	log.Info().Str("data_dir", cfg.DataDir).Msg("Databases initialized and schemas applied")
	return container, nil
}
