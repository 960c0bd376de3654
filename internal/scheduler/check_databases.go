package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/database"
)

// CheckDatabasesJob verifies the integrity of the SQLite databases
type CheckDatabasesJob struct {
	log       zerolog.Logger
	databases map[string]*database.DB
}

// NewCheckDatabasesJob creates a new CheckDatabasesJob
func NewCheckDatabasesJob(databases map[string]*database.DB, log zerolog.Logger) *CheckDatabasesJob {
	return &CheckDatabasesJob{
		log:       log.With().Str("job", "check_databases").Logger(),
		databases: databases,
	}
}

// Name returns the job name
func (j *CheckDatabasesJob) Name() string {
	return "check_databases"
}

// Run executes PRAGMA integrity_check on every database
func (j *CheckDatabasesJob) Run() error {
	for _, name := range sortedNames(j.databases) {
		db := j.databases[name]
		if db == nil {
			j.log.Warn().Str("database", name).Msg("Database not initialized, skipping")
			continue
		}

		var result string
		if err := db.Conn().QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
			return fmt.Errorf("integrity check of %s failed: %w", name, err)
		}
		if result != "ok" {
			j.log.Error().
				Str("database", name).
				Str("result", result).
				Msg("Database integrity check failed")
			return fmt.Errorf("database %s is corrupted: %s", name, result)
		}

		j.log.Debug().Str("database", name).Msg("Database integrity OK")
	}

	j.log.Info().Msg("Database integrity check passed")
	return nil
}
