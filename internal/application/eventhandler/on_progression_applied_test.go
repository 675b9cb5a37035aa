package eventhandler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netquest-hub/netquest-hub/internal/domain/leaderboard"
	"github.com/netquest-hub/netquest-hub/internal/domain/progression"
	"github.com/netquest-hub/netquest-hub/internal/domain/shared"
	"github.com/netquest-hub/netquest-hub/internal/infrastructure/messaging"
	"github.com/netquest-hub/netquest-hub/internal/infrastructure/persistence/memory"
)

type fakeUpdater struct {
	updates []leaderboard.Metrics
	err     error
}

func (u *fakeUpdater) UpdateMetrics(_ context.Context, m leaderboard.Metrics) error {
	if u.err != nil {
		return u.err
	}
	u.updates = append(u.updates, m)
	return nil
}

func seedUser(t *testing.T, store *memory.ProgressionStore, userID string, xp int) {
	t.Helper()
	ctx := context.Background()
	state, version, err := store.Get(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, state.AddXP(xp))
	_, err = store.Put(ctx, state, version)
	require.NoError(t, err)
}

func TestOnProgressionApplied_PushesLiveMetrics(t *testing.T) {
	store := memory.NewProgressionStore()
	seedUser(t, store, "user-1", 70)
	updater := &fakeUpdater{}

	handler := NewOnProgressionAppliedHandler(store, progression.DefaultCurve(), updater, nil)

	event := shared.NewXPGainedEvent("user-1", 70, 70, "game_result", "port_match")
	require.NoError(t, handler.Handle(event))

	require.Len(t, updater.updates, 1)
	assert.Equal(t, "user-1", updater.updates[0].UserID)
	assert.Equal(t, 70, updater.updates[0].XP)
	// Level is derived from XP, not read from a stored field.
	assert.Equal(t, 2, updater.updates[0].Level)
}

func TestOnProgressionApplied_UpdaterFailureIsSwallowed(t *testing.T) {
	store := memory.NewProgressionStore()
	seedUser(t, store, "user-1", 10)
	updater := &fakeUpdater{err: assert.AnError}

	handler := NewOnProgressionAppliedHandler(store, progression.DefaultCurve(), updater, nil)

	// Cache degradation must not propagate: the snapshot rebuild catches up.
	event := shared.NewStreakUpdatedEvent("user-1", 1, 1)
	assert.NoError(t, handler.Handle(event))
}

func TestOnProgressionApplied_NilUpdaterIsNoOp(t *testing.T) {
	handler := NewOnProgressionAppliedHandler(memory.NewProgressionStore(), progression.DefaultCurve(), nil, nil)

	event := shared.NewStreakUpdatedEvent("user-1", 1, 1)
	assert.NoError(t, handler.Handle(event))
}

func TestOnProgressionApplied_RegisterSubscribesAllTypes(t *testing.T) {
	store := memory.NewProgressionStore()
	seedUser(t, store, "user-1", 40)
	updater := &fakeUpdater{}

	cfg := messaging.DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = false
	bus := messaging.NewInMemoryEventBus(cfg)
	defer bus.Close()

	handler := NewOnProgressionAppliedHandler(store, progression.DefaultCurve(), updater, nil)
	require.NoError(t, handler.Register(bus))

	require.NoError(t, bus.Publish(shared.NewGameResultAppliedEvent("user-1", "port_match", 30, 40, 40, false)))
	require.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent("user-1", 1, 1)))
	require.NoError(t, bus.Publish(shared.NewAchievementUnlockedEvent("user-1", "first_port_match", 10)))

	assert.Len(t, updater.updates, 3)
}
