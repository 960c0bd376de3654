package scheduler

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/aristath/networth/internal/database"
	testingpkg "github.com/aristath/networth/internal/testing"
)

func TestCheckDatabasesJob_Run(t *testing.T) {
	networth, cleanupNetworth := testingpkg.NewTestDB(t, "networth")
	defer cleanupNetworth()
	clientData, cleanupClientData := testingpkg.NewTestDB(t, "client_data")
	defer cleanupClientData()

	job := NewCheckDatabasesJob(map[string]*database.DB{
		"networth":    networth,
		"client_data": clientData,
		"missing":     nil,
	}, zerolog.Nop())

	assert.Equal(t, "check_databases", job.Name())
	assert.NoError(t, job.Run())
}

func TestCheckDatabasesJob_ClosedDatabaseFails(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, "networth")
	cleanup()

	job := NewCheckDatabasesJob(map[string]*database.DB{"networth": db}, zerolog.Nop())
	assert.Error(t, job.Run())
}
