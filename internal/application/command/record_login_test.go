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

func newLoginHandler(store progression.Store) *RecordLoginHandler {
	return NewRecordLoginHandler(
		store,
		progression.DefaultCurve(),
		progression.NewEvaluator(progression.DefaultCatalog()),
		timeutil.NewClock("UTC"),
		nil,
		nil,
		3,
	)
}

func loginAt(t *testing.T, handler *RecordLoginHandler, userID string, at time.Time) *RecordLoginResult {
	t.Helper()
	result, err := handler.Handle(context.Background(), RecordLoginCommand{
		UserID:    userID,
		Timestamp: at,
	})
	require.NoError(t, err)
	return result
}

func TestRecordLogin_FirstLogin(t *testing.T) {
	handler := newLoginHandler(memory.NewProgressionStore())
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	result := loginAt(t, handler, "user-1", now)

	assert.True(t, result.StreakChanged)
	assert.Equal(t, 1, result.CurrentStreak)
	assert.Equal(t, 1, result.BestStreak)

	// A plain login awards no XP.
	assert.Equal(t, 0, result.XPGained)
	assert.Equal(t, 0, result.TotalXP)
	assert.Empty(t, result.NewAchievements)
}

func TestRecordLogin_SameDayIsNoOp(t *testing.T) {
	handler := newLoginHandler(memory.NewProgressionStore())
	morning := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	evening := morning.Add(10 * time.Hour)

	loginAt(t, handler, "user-1", morning)
	result := loginAt(t, handler, "user-1", evening)

	assert.False(t, result.StreakChanged)
	assert.Equal(t, 1, result.CurrentStreak)
}

func TestRecordLogin_StreakMilestoneAwardsBonus(t *testing.T) {
	handler := newLoginHandler(memory.NewProgressionStore())
	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	var result *RecordLoginResult
	for i := 0; i < 3; i++ {
		result = loginAt(t, handler, "user-1", start.AddDate(0, 0, i))
	}

	assert.Equal(t, 3, result.CurrentStreak)

	// The 3-day milestone unlocks and pays its bonus.
	require.Len(t, result.NewAchievements, 1)
	assert.Equal(t, progression.AchievementID("streak_3"), result.NewAchievements[0].ID)
	assert.Equal(t, 15, result.XPGained)
	assert.Equal(t, 15, result.TotalXP)

	var types []shared.EventType
	for _, e := range result.Events {
		types = append(types, e.EventType())
	}
	assert.Contains(t, types, shared.EventStreakUpdated)
	assert.Contains(t, types, shared.EventAchievementUnlocked)
	assert.Contains(t, types, shared.EventXPGained)
}

func TestRecordLogin_GapBreaksStreak(t *testing.T) {
	handler := newLoginHandler(memory.NewProgressionStore())
	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	loginAt(t, handler, "user-1", start)
	loginAt(t, handler, "user-1", start.AddDate(0, 0, 1))

	// Two days missed.
	result := loginAt(t, handler, "user-1", start.AddDate(0, 0, 4))

	assert.True(t, result.StreakBroken)
	assert.Equal(t, 1, result.CurrentStreak)
	assert.Equal(t, 2, result.BestStreak)

	var types []shared.EventType
	for _, e := range result.Events {
		types = append(types, e.EventType())
	}
	assert.Contains(t, types, shared.EventStreakBroken)
}

func TestRecordLogin_BlankUserIDRejected(t *testing.T) {
	handler := newLoginHandler(memory.NewProgressionStore())

	_, err := handler.Handle(context.Background(), RecordLoginCommand{UserID: ""})
	assert.ErrorIs(t, err, shared.ErrInvalidUserID)
}

func TestRecordLogin_MilestoneUnlocksOnlyOnce(t *testing.T) {
	store := memory.NewProgressionStore()
	handler := newLoginHandler(store)
	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		loginAt(t, handler, "user-1", start.AddDate(0, 0, i))
	}

	// Day 4 continues the streak but the milestone is already unlocked.
	result := loginAt(t, handler, "user-1", start.AddDate(0, 0, 3))

	assert.Equal(t, 4, result.CurrentStreak)
	assert.Empty(t, result.NewAchievements)
	assert.Equal(t, 0, result.XPGained)
	assert.Equal(t, 15, result.TotalXP)
}
