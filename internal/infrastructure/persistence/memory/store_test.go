package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netquest-hub/netquest-hub/internal/domain/leaderboard"
	"github.com/netquest-hub/netquest-hub/internal/domain/progression"
	"github.com/netquest-hub/netquest-hub/internal/domain/shared"
)

func TestProgressionStore_GetUnknownUser(t *testing.T) {
	store := NewProgressionStore()

	state, version, err := store.Get(context.Background(), "newcomer")
	require.NoError(t, err)

	assert.Equal(t, progression.Version(0), version)
	assert.Equal(t, "newcomer", state.UserID)
	assert.Equal(t, 0, state.TotalXP)
	assert.Equal(t, 0, store.Len())
}

func TestProgressionStore_PutThenGet(t *testing.T) {
	store := NewProgressionStore()
	ctx := context.Background()

	state, version, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, state.AddXP(40))

	next, err := store.Put(ctx, state, version)
	require.NoError(t, err)
	assert.Equal(t, progression.Version(1), next)

	loaded, version, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, progression.Version(1), version)
	assert.Equal(t, 40, loaded.TotalXP)
}

func TestProgressionStore_VersionConflict(t *testing.T) {
	store := NewProgressionStore()
	ctx := context.Background()

	state, version, err := store.Get(ctx, "user-1")
	require.NoError(t, err)

	// Two writers read version 0; the second Put must fail.
	_, err = store.Put(ctx, state, version)
	require.NoError(t, err)

	_, err = store.Put(ctx, state, version)
	assert.ErrorIs(t, err, shared.ErrVersionConflict)
	assert.True(t, shared.IsConflict(err))
}

func TestProgressionStore_CloneAtBoundary(t *testing.T) {
	store := NewProgressionStore()
	ctx := context.Background()

	state, version, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, state.AddXP(10))
	_, err = store.Put(ctx, state, version)
	require.NoError(t, err)

	// Mutating the returned state must not leak into the store.
	loaded, _, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	loaded.TotalXP = 9999

	fresh, _, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 10, fresh.TotalXP)
}

func TestProgressionStore_AllMetricsSortedByUserID(t *testing.T) {
	store := NewProgressionStore()
	ctx := context.Background()

	for _, userID := range []string{"zeta", "alpha", "mid"} {
		state, version, err := store.Get(ctx, userID)
		require.NoError(t, err)
		require.NoError(t, state.AddXP(60))
		state.SetCounter(progression.CounterLevel, 2)
		_, err = store.Put(ctx, state, version)
		require.NoError(t, err)
	}

	metrics, err := store.AllMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, metrics, 3)

	assert.Equal(t, "alpha", metrics[0].UserID)
	assert.Equal(t, "mid", metrics[1].UserID)
	assert.Equal(t, "zeta", metrics[2].UserID)
	assert.Equal(t, 2, metrics[0].Level)
}

func TestSnapshotRepository_MissingSnapshot(t *testing.T) {
	repo := NewSnapshotRepository(0)
	ctx := context.Background()

	_, err := repo.GetSnapshot(ctx, leaderboard.SortByXP)
	assert.ErrorIs(t, err, shared.ErrSnapshotNotFound)

	// Missing previous ranks are not an error: deltas just stay zero.
	ranks, err := repo.PreviousRanks(ctx, leaderboard.SortByXP)
	assert.NoError(t, err)
	assert.Empty(t, ranks)
}

func TestSnapshotRepository_SaveAndGet(t *testing.T) {
	repo := NewSnapshotRepository(0)
	ctx := context.Background()

	snapshot := leaderboard.NewSnapshot(leaderboard.SortByXP, []leaderboard.Entry{
		{UserID: "alice", XP: 100, Rank: 1},
		{UserID: "bob", XP: 50, Rank: 2},
	})
	require.NoError(t, repo.SaveSnapshot(ctx, snapshot))

	loaded, err := repo.GetSnapshot(ctx, leaderboard.SortByXP)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.UserCount)

	ranks, err := repo.PreviousRanks(ctx, leaderboard.SortByXP)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"alice": 1, "bob": 2}, ranks)
}

func TestSnapshotRepository_TTLExpiry(t *testing.T) {
	repo := NewSnapshotRepository(10 * time.Millisecond)
	ctx := context.Background()

	snapshot := leaderboard.NewSnapshot(leaderboard.SortByXP, nil)
	snapshot.BuiltAt = time.Now().Add(-time.Minute)
	require.NoError(t, repo.SaveSnapshot(ctx, snapshot))

	_, err := repo.GetSnapshot(ctx, leaderboard.SortByXP)
	assert.ErrorIs(t, err, shared.ErrSnapshotNotFound)
}
