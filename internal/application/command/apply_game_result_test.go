package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netquest-hub/netquest-hub/internal/domain/progression"
	"github.com/netquest-hub/netquest-hub/internal/domain/shared"
	"github.com/netquest-hub/netquest-hub/internal/infrastructure/persistence/memory"
	"github.com/netquest-hub/netquest-hub/pkg/timeutil"
)

func newApplyHandler(store progression.Store) *ApplyGameResultHandler {
	return NewApplyGameResultHandler(
		store,
		progression.DefaultCurve(),
		progression.NewEvaluator(progression.DefaultCatalog()),
		timeutil.NewClock("UTC"),
		nil, // no event bus in unit tests
		nil,
		3,
	)
}

func portMatchResult(score int, completedAt time.Time) progression.GameResult {
	return progression.GameResult{
		GameType:    progression.GamePortMatch,
		Score:       score,
		TimeSpent:   90 * time.Second,
		Accuracy:    0.8,
		CompletedAt: completedAt,
	}
}

func TestApplyGameResult_FirstGame(t *testing.T) {
	store := memory.NewProgressionStore()
	handler := newApplyHandler(store)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	result, err := handler.Handle(context.Background(), ApplyGameResultCommand{
		UserID:    "user-1",
		Result:    portMatchResult(30, now),
		Timestamp: now,
	})
	require.NoError(t, err)

	// 30 score + 10 bonus for the first port_match achievement.
	assert.Equal(t, 40, result.XPGained)
	assert.Equal(t, 40, result.TotalXP)
	assert.False(t, result.LeveledUp)
	assert.Equal(t, 1, result.NewLevel)

	require.Len(t, result.NewAchievements, 1)
	assert.Equal(t, progression.AchievementID("first_port_match"), result.NewAchievements[0].ID)

	// Game play starts the streak.
	assert.True(t, result.StreakChanged)
	assert.Equal(t, 1, result.CurrentStreak)

	// Persisted state matches the returned diff.
	state, version, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, progression.Version(1), version)
	assert.Equal(t, 40, state.TotalXP)
	assert.Equal(t, 1, state.Counters[string(progression.GamePortMatch)])
	assert.Equal(t, 1, state.Counters[progression.CounterGamesTotal])
	assert.Len(t, state.History, 1)
}

func TestApplyGameResult_LevelUp(t *testing.T) {
	store := memory.NewProgressionStore()
	handler := newApplyHandler(store)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	// 60 score + 10 first-game bonus = 70 XP, past the 50 XP boundary.
	result, err := handler.Handle(context.Background(), ApplyGameResultCommand{
		UserID:    "user-1",
		Result:    portMatchResult(60, now),
		Timestamp: now,
	})
	require.NoError(t, err)

	assert.True(t, result.LeveledUp)
	assert.Equal(t, 1, result.OldLevel)
	assert.Equal(t, 2, result.NewLevel)
	assert.Equal(t, 70, result.TotalXP)

	// Emitted events include the level-up.
	var types []shared.EventType
	for _, e := range result.Events {
		types = append(types, e.EventType())
	}
	assert.Contains(t, types, shared.EventGameResultApplied)
	assert.Contains(t, types, shared.EventXPGained)
	assert.Contains(t, types, shared.EventLevelUp)
	assert.Contains(t, types, shared.EventAchievementUnlocked)
}

func TestApplyGameResult_StreakAcrossDays(t *testing.T) {
	store := memory.NewProgressionStore()
	handler := newApplyHandler(store)
	day1 := time.Date(2026, 4, 1, 20, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	_, err := handler.Handle(context.Background(), ApplyGameResultCommand{
		UserID: "user-1", Result: portMatchResult(10, day1), Timestamp: day1,
	})
	require.NoError(t, err)

	result, err := handler.Handle(context.Background(), ApplyGameResultCommand{
		UserID: "user-1", Result: portMatchResult(10, day2), Timestamp: day2,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.CurrentStreak)
	assert.Equal(t, 2, result.BestStreak)
}

func TestApplyGameResult_UnknownGameTypeRejected(t *testing.T) {
	store := memory.NewProgressionStore()
	handler := newApplyHandler(store)

	_, err := handler.Handle(context.Background(), ApplyGameResultCommand{
		UserID: "user-1",
		Result: progression.GameResult{GameType: "chess", Score: 10},
	})
	assert.ErrorIs(t, err, shared.ErrUnknownGameType)

	// Validation failures never touch the store.
	assert.Equal(t, 0, store.Len())
}

func TestApplyGameResult_NegativeScoreRejected(t *testing.T) {
	store := memory.NewProgressionStore()
	handler := newApplyHandler(store)

	_, err := handler.Handle(context.Background(), ApplyGameResultCommand{
		UserID: "user-1",
		Result: progression.GameResult{GameType: progression.GamePortMatch, Score: -1},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidScore)
	assert.Equal(t, 0, store.Len())
}

func TestApplyGameResult_BlankUserIDRejected(t *testing.T) {
	handler := newApplyHandler(memory.NewProgressionStore())

	_, err := handler.Handle(context.Background(), ApplyGameResultCommand{
		UserID: "  ",
		Result: portMatchResult(10, time.Now()),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)
}

// conflictingStore fails the first N Puts with a version conflict, then
// delegates to the wrapped store.
type conflictingStore struct {
	progression.Store
	failures int
}

func (s *conflictingStore) Put(ctx context.Context, state *progression.ProgressionState, expected progression.Version) (progression.Version, error) {
	if s.failures > 0 {
		s.failures--
		return 0, shared.ErrVersionConflict
	}
	return s.Store.Put(ctx, state, expected)
}

func TestApplyGameResult_RetriesOnVersionConflict(t *testing.T) {
	store := &conflictingStore{Store: memory.NewProgressionStore(), failures: 2}
	handler := newApplyHandler(store)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	result, err := handler.Handle(context.Background(), ApplyGameResultCommand{
		UserID: "user-1", Result: portMatchResult(30, now), Timestamp: now,
	})
	require.NoError(t, err)

	// Two conflicts within a budget of three attempts still succeed, and
	// the recomputation did not double-apply anything.
	assert.Equal(t, 40, result.TotalXP)
}

func TestApplyGameResult_RetryBudgetExhausted(t *testing.T) {
	store := &conflictingStore{Store: memory.NewProgressionStore(), failures: 100}
	handler := newApplyHandler(store)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	_, err := handler.Handle(context.Background(), ApplyGameResultCommand{
		UserID: "user-1", Result: portMatchResult(30, now), Timestamp: now,
	})
	require.Error(t, err)
	assert.True(t, shared.IsConflict(err))
}

func TestApplyGameResult_ConcurrentAppliesAllLand(t *testing.T) {
	store := memory.NewProgressionStore()
	handler := newApplyHandler(store)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	const writers = 5
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func() {
			_, err := handler.Handle(context.Background(), ApplyGameResultCommand{
				UserID: "user-1", Result: portMatchResult(10, now), Timestamp: now,
			})
			errs <- err
		}()
	}

	succeeded := 0
	for i := 0; i < writers; i++ {
		if err := <-errs; err == nil {
			succeeded++
		}
	}
	require.Positive(t, succeeded)

	// Every successful apply landed exactly once.
	state, _, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, succeeded, state.Counters[progression.CounterGamesTotal])
}
