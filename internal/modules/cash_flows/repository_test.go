package cash_flows

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/networth/internal/domain"
	"github.com/aristath/networth/internal/events"
	testingpkg "github.com/aristath/networth/internal/testing"
)

func setupRepo(t *testing.T) (*Repository, *int) {
	db, cleanup := testingpkg.NewTestDB(t, "networth")
	t.Cleanup(cleanup)

	log := zerolog.Nop()
	bus := events.NewBus(log)
	changes := 0
	bus.Subscribe(events.FlowsChanged, func(*events.Event) { changes++ })

	return NewRepository(db.Conn(), events.NewManager(bus, log), log), &changes
}

func TestRecordAndList(t *testing.T) {
	repo, changes := setupRepo(t)
	ctx := context.Background()

	saved, err := repo.Record(ctx, testingpkg.Flow("broker", 15, domain.FlowContribution, "300.00"))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	_, err = repo.Record(ctx, testingpkg.Flow("savings", 20, domain.FlowWithdrawal, "104.16"))
	require.NoError(t, err)
	_, err = repo.Record(ctx, testingpkg.Flow("broker", 40, domain.FlowContribution, "1"))
	require.NoError(t, err)
	assert.Equal(t, 3, *changes)

	all, err := repo.List(ctx, nil, domain.DateRange{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, saved.ID, all[0].ID)
	assert.True(t, all[0].Amount.Equal(testingpkg.Dec("300")))
	assert.Equal(t, testingpkg.Day(15), all[0].Date)

	inRange, err := repo.List(ctx, []string{"broker"}, domain.DateRange{From: testingpkg.Day(1), To: testingpkg.Day(31)})
	require.NoError(t, err)
	require.Len(t, inRange, 1)
	assert.Equal(t, domain.FlowContribution, inRange[0].Kind)
}

func TestRecordRejectsInvalid(t *testing.T) {
	repo, changes := setupRepo(t)
	ctx := context.Background()

	_, err := repo.Record(ctx, testingpkg.Flow("broker", 1, domain.FlowContribution, "0"))
	assert.True(t, domain.IsValidationError(err))

	_, err = repo.Record(ctx, testingpkg.Flow("", 1, domain.FlowContribution, "10"))
	assert.True(t, domain.IsValidationError(err))

	_, err = repo.Record(ctx, testingpkg.Flow("broker", 1, domain.FlowKind("dividend"), "10"))
	assert.True(t, domain.IsValidationError(err))

	all, err := repo.List(ctx, nil, domain.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Zero(t, *changes)
}

func TestDelete(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	saved, err := repo.Record(ctx, testingpkg.Flow("broker", 2, domain.FlowWithdrawal, "5"))
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
