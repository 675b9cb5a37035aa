package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netquest-hub/netquest-hub/internal/domain/leaderboard"
	"github.com/netquest-hub/netquest-hub/internal/domain/progression"
	"github.com/netquest-hub/netquest-hub/internal/domain/shared"
	"github.com/netquest-hub/netquest-hub/internal/infrastructure/persistence/memory"
)

// seedStore writes users with the given XP amounts directly into a memory store.
func seedStore(t *testing.T, users map[string]int) *memory.ProgressionStore {
	t.Helper()
	store := memory.NewProgressionStore()
	ctx := context.Background()

	for userID, xp := range users {
		state, version, err := store.Get(ctx, userID)
		require.NoError(t, err)
		require.NoError(t, state.AddXP(xp))
		_, err = store.Put(ctx, state, version)
		require.NoError(t, err)
	}
	return store
}

func TestGetLeaderboard_DefaultSortAndPaging(t *testing.T) {
	store := seedStore(t, map[string]int{"alice": 300, "bob": 500, "carol": 100})
	handler := NewGetLeaderboardHandler(store, memory.NewSnapshotRepository(0), nil, 20, 100)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)

	require.Len(t, result.Page.Entries, 3)
	assert.Equal(t, leaderboard.SortByXP, result.Page.SortKey)
	assert.Equal(t, "bob", result.Page.Entries[0].UserID)
	assert.Equal(t, 1, result.Page.Entries[0].Rank)
	assert.Equal(t, 3, result.Page.TotalUsers)
	assert.Equal(t, 1, result.Page.TotalPages)
	assert.Equal(t, 500, result.Meta.TopXP)
}

func TestGetLeaderboard_PageSizeClamped(t *testing.T) {
	store := seedStore(t, map[string]int{"alice": 300, "bob": 500, "carol": 100})
	handler := NewGetLeaderboardHandler(store, memory.NewSnapshotRepository(0), nil, 2, 2)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{Limit: 50})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Page.Limit)
	assert.Len(t, result.Page.Entries, 2)
	assert.Equal(t, 2, result.Page.TotalPages)
}

func TestGetLeaderboard_DeltasFromSnapshot(t *testing.T) {
	store := seedStore(t, map[string]int{"alice": 300, "bob": 500})
	snapshots := memory.NewSnapshotRepository(0)
	handler := NewGetLeaderboardHandler(store, snapshots, nil, 20, 100)
	ctx := context.Background()

	// Previous snapshot had the opposite order.
	previous := leaderboard.NewSnapshot(leaderboard.SortByXP, []leaderboard.Entry{
		{UserID: "alice", Rank: 1},
		{UserID: "bob", Rank: 2},
	})
	require.NoError(t, snapshots.SaveSnapshot(ctx, previous))

	result, err := handler.Handle(ctx, GetLeaderboardQuery{})
	require.NoError(t, err)

	assert.True(t, result.DeltasAvailable)
	assert.Equal(t, "bob", result.Page.Entries[0].UserID)
	assert.Equal(t, 1, result.Page.Entries[0].RankDelta)
	assert.Equal(t, -1, result.Page.Entries[1].RankDelta)
}

func TestGetLeaderboard_NoSnapshotMeansNoDeltas(t *testing.T) {
	store := seedStore(t, map[string]int{"alice": 300})
	handler := NewGetLeaderboardHandler(store, memory.NewSnapshotRepository(0), nil, 20, 100)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)

	// The memory repository reports "no previous ranks" without an error,
	// so deltas are formally available but every entry is new.
	assert.True(t, result.DeltasAvailable)
	assert.True(t, result.Page.Entries[0].IsNew)
}

func TestGetLeaderboard_InvalidSortKey(t *testing.T) {
	store := seedStore(t, map[string]int{"alice": 300})
	handler := NewGetLeaderboardHandler(store, memory.NewSnapshotRepository(0), nil, 20, 100)

	_, err := handler.Handle(context.Background(), GetLeaderboardQuery{SortKey: "elo"})
	assert.ErrorIs(t, err, shared.ErrInvalidSortKey)
}

func TestGetLeaderboard_NegativePageRejected(t *testing.T) {
	store := seedStore(t, map[string]int{"alice": 300})
	handler := NewGetLeaderboardHandler(store, memory.NewSnapshotRepository(0), nil, 20, 100)

	_, err := handler.Handle(context.Background(), GetLeaderboardQuery{Page: -1})
	assert.ErrorIs(t, err, shared.ErrInvalidPagination)
}

func TestGetNeighbors_WindowAroundUser(t *testing.T) {
	store := seedStore(t, map[string]int{
		"u1": 500, "u2": 400, "u3": 300, "u4": 200, "u5": 100,
	})
	handler := NewGetNeighborsHandler(store, memory.NewSnapshotRepository(0), 2)

	result, err := handler.Handle(context.Background(), GetNeighborsQuery{
		UserID: "u3",
		Radius: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Rank)
	require.Len(t, result.Entries, 3)
	assert.Equal(t, "u2", result.Entries[0].UserID)
	assert.Equal(t, "u3", result.Entries[1].UserID)
	assert.Equal(t, "u4", result.Entries[2].UserID)
	assert.Equal(t, 5, result.TotalUsers)
}

func TestGetNeighbors_UnknownUser(t *testing.T) {
	store := seedStore(t, map[string]int{"u1": 100})
	handler := NewGetNeighborsHandler(store, memory.NewSnapshotRepository(0), 2)

	_, err := handler.Handle(context.Background(), GetNeighborsQuery{UserID: "ghost"})
	assert.True(t, shared.IsNotFound(err))
}

func TestGetProgress_UnknownUserGetsZeroState(t *testing.T) {
	store := memory.NewProgressionStore()
	handler := NewGetProgressHandler(store, progression.DefaultCurve(),
		progression.NewEvaluator(progression.DefaultCatalog()))

	result, err := handler.Handle(context.Background(), GetProgressQuery{UserID: "newcomer"})
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalXP)
	assert.Equal(t, 1, result.Level)
	assert.Equal(t, 50, result.XPForNextLevel)
	assert.Nil(t, result.LastActivityDate)
	assert.Empty(t, result.Achievements)
}

func TestGetProgress_EnrichesAchievementsFromCatalog(t *testing.T) {
	store := memory.NewProgressionStore()
	ctx := context.Background()

	state, version, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, state.AddXP(70))
	state.UnlockAchievement("first_port_match", time.Now())
	_, err = store.Put(ctx, state, version)
	require.NoError(t, err)

	handler := NewGetProgressHandler(store, progression.DefaultCurve(),
		progression.NewEvaluator(progression.DefaultCatalog()))

	result, err := handler.Handle(ctx, GetProgressQuery{UserID: "user-1"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Level)
	require.Len(t, result.Achievements, 1)
	assert.Equal(t, "first_port_match", result.Achievements[0].ID)
	assert.NotEmpty(t, result.Achievements[0].Title)
	assert.Equal(t, 10, result.Achievements[0].XPBonus)
}

func TestGetProgress_HistoryLimit(t *testing.T) {
	store := memory.NewProgressionStore()
	ctx := context.Background()

	state, version, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		state.AppendHistory(progression.GameResult{
			GameType:    progression.GamePortMatch,
			Score:       i,
			CompletedAt: time.Now(),
		}, i)
	}
	_, err = store.Put(ctx, state, version)
	require.NoError(t, err)

	handler := NewGetProgressHandler(store, progression.DefaultCurve(),
		progression.NewEvaluator(progression.DefaultCatalog()))

	result, err := handler.Handle(ctx, GetProgressQuery{UserID: "user-1", HistoryLimit: 3})
	require.NoError(t, err)

	require.Len(t, result.History, 3)
	// The newest entries are kept.
	assert.Equal(t, 9, result.History[2].Score)
}

func TestGetProgress_BlankUserIDRejected(t *testing.T) {
	handler := NewGetProgressHandler(memory.NewProgressionStore(), progression.DefaultCurve(),
		progression.NewEvaluator(progression.DefaultCatalog()))

	_, err := handler.Handle(context.Background(), GetProgressQuery{UserID: " "})
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)
}
