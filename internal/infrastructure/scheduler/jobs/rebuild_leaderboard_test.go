package jobs

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

type capturingPublisher struct {
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

func seedUsers(t *testing.T, store *memory.ProgressionStore, xp map[string]int) {
	t.Helper()
	ctx := context.Background()
	for userID, amount := range xp {
		state, version, err := store.Get(ctx, userID)
		require.NoError(t, err)
		require.NoError(t, state.AddXP(amount))
		state.SetCounter(progression.CounterLevel, 1)
		_, err = store.Put(ctx, state, version)
		require.NoError(t, err)
	}
}

func TestRebuildLeaderboardJob_BuildsSnapshotsForAllKeys(t *testing.T) {
	store := memory.NewProgressionStore()
	seedUsers(t, store, map[string]int{"alice": 300, "bob": 500})
	snapshots := memory.NewSnapshotRepository(0)
	publisher := &capturingPublisher{}

	job := NewRebuildLeaderboardJob(store, snapshots, publisher, nil, time.Minute)
	require.NoError(t, job.Run(context.Background()))

	ctx := context.Background()
	for _, key := range leaderboard.AllSortKeys() {
		snapshot, err := snapshots.GetSnapshot(ctx, key)
		require.NoError(t, err, "sort key %s", key)
		assert.Equal(t, 2, snapshot.UserCount)
	}

	// One rebuilt event per sort key; nobody had a previous rank,
	// so no rank-changed events are published.
	rebuilt := 0
	for _, e := range publisher.events {
		switch e.EventType() {
		case shared.EventLeaderboardRebuilt:
			rebuilt++
		case shared.EventRankChanged:
			t.Fatalf("unexpected rank changed event for new users")
		}
	}
	assert.Equal(t, len(leaderboard.AllSortKeys()), rebuilt)
}

func TestRebuildLeaderboardJob_PublishesRankChanges(t *testing.T) {
	store := memory.NewProgressionStore()
	seedUsers(t, store, map[string]int{"alice": 300, "bob": 500})
	snapshots := memory.NewSnapshotRepository(0)

	// First rebuild establishes the baseline.
	job := NewRebuildLeaderboardJob(store, snapshots, nil, nil, time.Minute)
	require.NoError(t, job.Run(context.Background()))

	// alice overtakes bob.
	ctx := context.Background()
	state, version, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, state.AddXP(400))
	_, err = store.Put(ctx, state, version)
	require.NoError(t, err)

	publisher := &capturingPublisher{}
	job = NewRebuildLeaderboardJob(store, snapshots, publisher, nil, time.Minute)
	require.NoError(t, job.Run(ctx))

	var changed []shared.Event
	for _, e := range publisher.events {
		if e.EventType() == shared.EventRankChanged {
			changed = append(changed, e)
		}
	}
	// On the XP board both alice and bob swapped places.
	assert.NotEmpty(t, changed)

	snapshot, err := snapshots.GetSnapshot(ctx, leaderboard.SortByXP)
	require.NoError(t, err)
	assert.Equal(t, "alice", snapshot.Entries[0].UserID)
	assert.Equal(t, 1, snapshot.Entries[0].RankDelta)
}

func TestRebuildLeaderboardJob_EmptyStore(t *testing.T) {
	job := NewRebuildLeaderboardJob(
		memory.NewProgressionStore(),
		memory.NewSnapshotRepository(0),
		nil, nil, time.Minute)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "rebuild_leaderboard", job.Name())
}
