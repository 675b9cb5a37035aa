package progression

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netquest-hub/netquest-hub/internal/domain/shared"
)

func newState(t *testing.T) *ProgressionState {
	t.Helper()
	state, err := NewProgressionState("user-1")
	require.NoError(t, err)
	return state
}

func TestNewProgressionState_RejectsBlankUserID(t *testing.T) {
	_, err := NewProgressionState("   ")
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)
}

func TestProgressionState_AddXP_RejectsNegativeDelta(t *testing.T) {
	state := newState(t)

	assert.ErrorIs(t, state.AddXP(-5), shared.ErrInvalidXPDelta)
	assert.Equal(t, 0, state.TotalXP)

	assert.NoError(t, state.AddXP(30))
	assert.Equal(t, 30, state.TotalXP)
}

func TestProgressionState_SetCounter_IsMonotonic(t *testing.T) {
	state := newState(t)

	state.SetCounter(CounterStreakDays, 5)
	assert.Equal(t, 5, state.Counters[CounterStreakDays])

	// Lowering is ignored: achievement thresholds stay crossed forever.
	state.SetCounter(CounterStreakDays, 2)
	assert.Equal(t, 5, state.Counters[CounterStreakDays])
}

func TestProgressionState_UnlockAchievement_OnlyOnce(t *testing.T) {
	state := newState(t)
	at := time.Now()

	assert.True(t, state.UnlockAchievement("first_game", at))
	assert.False(t, state.UnlockAchievement("first_game", at))
	assert.Len(t, state.Achievements, 1)
	assert.True(t, state.HasAchievement("first_game"))
}

func TestProgressionState_AppendHistory_Truncates(t *testing.T) {
	state := newState(t)

	for i := 0; i < HistoryRetention+20; i++ {
		state.AppendHistory(GameResult{
			GameType:    GamePortMatch,
			Score:       i,
			CompletedAt: time.Now(),
		}, i)
	}

	assert.Len(t, state.History, HistoryRetention)
	// The oldest entries were dropped, the newest kept.
	assert.Equal(t, HistoryRetention+19, state.History[len(state.History)-1].Score)
}

func TestProgressionState_RecordActivity_SyncsStreakCounter(t *testing.T) {
	state := newState(t)

	state.RecordActivity(day(0))
	state.RecordActivity(day(1))

	assert.Equal(t, 2, state.Streak.Current)
	assert.Equal(t, 2, state.Counters[CounterStreakDays])
}

func TestProgressionState_Clone_IsIndependent(t *testing.T) {
	state := newState(t)
	require.NoError(t, state.AddXP(10))
	state.IncrementCounter(string(GamePortMatch))
	state.UnlockAchievement("first_game", time.Now())
	state.AppendHistory(GameResult{GameType: GamePortMatch, Score: 10}, 10)

	clone := state.Clone()
	clone.TotalXP = 999
	clone.Counters[string(GamePortMatch)] = 999
	clone.Achievements[0].ID = "tampered"
	clone.History[0].Score = 999

	assert.Equal(t, 10, state.TotalXP)
	assert.Equal(t, 1, state.Counters[string(GamePortMatch)])
	assert.Equal(t, AchievementID("first_game"), state.Achievements[0].ID)
	assert.Equal(t, 10, state.History[0].Score)
}

func TestGameResult_Validate(t *testing.T) {
	valid := GameResult{GameType: GameSubnetting, Score: 10, Accuracy: 0.9}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		result GameResult
		want   error
	}{
		{GameResult{GameType: "chess", Score: 1}, shared.ErrUnknownGameType},
		{GameResult{GameType: GameSubnetting, Score: -1}, shared.ErrInvalidScore},
		{GameResult{GameType: GameSubnetting, Score: 1, Accuracy: 1.5}, shared.ErrInvalidAccuracy},
	}
	for i, tc := range cases {
		assert.ErrorIs(t, tc.result.Validate(), tc.want, fmt.Sprintf("case %d", i))
	}

	// Negative accuracy means "not reported" and is accepted.
	unreported := GameResult{GameType: GameSubnetting, Score: 10, Accuracy: -1}
	assert.NoError(t, unreported.Validate())
}
