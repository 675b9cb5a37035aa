package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testCatalog() []Definition {
	return []Definition{
		{ID: "first_game", Counter: CounterGamesTotal, Threshold: 1, XPBonus: 10},
		{ID: "ten_games", Counter: CounterGamesTotal, Threshold: 10, XPBonus: 25},
		{ID: "streak_3", Counter: CounterStreakDays, Threshold: 3, XPBonus: 15},
	}
}

func TestEvaluator_Evaluate_ReturnsMetThresholds(t *testing.T) {
	ev := NewEvaluator(testCatalog())

	newly := ev.Evaluate(map[string]int{CounterGamesTotal: 1}, nil)

	assert.Len(t, newly, 1)
	assert.Equal(t, AchievementID("first_game"), newly[0].ID)
}

func TestEvaluator_Evaluate_SkipsAlreadyUnlocked(t *testing.T) {
	ev := NewEvaluator(testCatalog())
	counters := map[string]int{CounterGamesTotal: 12, CounterStreakDays: 3}

	newly := ev.Evaluate(counters, map[AchievementID]bool{"first_game": true})

	assert.Len(t, newly, 2)
	assert.Equal(t, AchievementID("ten_games"), newly[0].ID)
	assert.Equal(t, AchievementID("streak_3"), newly[1].ID)
}

func TestEvaluator_Evaluate_Idempotent(t *testing.T) {
	ev := NewEvaluator(testCatalog())
	counters := map[string]int{CounterGamesTotal: 12}

	unlocked := make(map[AchievementID]bool)
	for _, def := range ev.Evaluate(counters, unlocked) {
		unlocked[def.ID] = true
	}

	// Second pass over the same counters unlocks nothing.
	assert.Empty(t, ev.Evaluate(counters, unlocked))
}

func TestEvaluator_Evaluate_CatalogOrderPreserved(t *testing.T) {
	ev := NewEvaluator(testCatalog())
	counters := map[string]int{CounterGamesTotal: 100, CounterStreakDays: 100}

	newly := ev.Evaluate(counters, nil)

	ids := make([]AchievementID, len(newly))
	for i, def := range newly {
		ids[i] = def.ID
	}
	assert.Equal(t, []AchievementID{"first_game", "ten_games", "streak_3"}, ids)
}

func TestEvaluator_Definition(t *testing.T) {
	ev := NewEvaluator(testCatalog())

	def, ok := ev.Definition("ten_games")
	assert.True(t, ok)
	assert.Equal(t, 25, def.XPBonus)

	_, ok = ev.Definition("unknown")
	assert.False(t, ok)
}

func TestDefaultCatalog_UniqueIDsAndValidCounters(t *testing.T) {
	seen := make(map[AchievementID]bool)
	reserved := map[string]bool{
		CounterStreakDays: true,
		CounterLevel:      true,
		CounterGamesTotal: true,
	}

	for _, def := range DefaultCatalog() {
		assert.False(t, seen[def.ID], "duplicate achievement id %q", def.ID)
		seen[def.ID] = true

		assert.Positive(t, def.Threshold, "achievement %q", def.ID)

		// Every counter is either a known game type or a reserved name.
		if !reserved[def.Counter] {
			assert.True(t, GameType(def.Counter).IsValid(), "achievement %q counter %q", def.ID, def.Counter)
		}
	}
}
