package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComboMultiplier_Tiers(t *testing.T) {
	cases := map[int]float64{
		0:  1.0,
		2:  1.0,
		3:  1.5,
		5:  1.5,
		6:  2.0,
		8:  2.0,
		9:  2.5,
		42: 2.5,
	}
	for combo, want := range cases {
		assert.Equal(t, want, ComboMultiplier(combo), "combo=%d", combo)
	}
}

func TestSpeedBonus_LinearDecay(t *testing.T) {
	cfg := DefaultSpeedBonusConfig() // max 10, full <= 2s, none >= 10s

	assert.Equal(t, 10, cfg.SpeedBonus(0))
	assert.Equal(t, 10, cfg.SpeedBonus(2*time.Second))
	assert.Equal(t, 5, cfg.SpeedBonus(6*time.Second))
	assert.Equal(t, 0, cfg.SpeedBonus(10*time.Second))
	assert.Equal(t, 0, cfg.SpeedBonus(time.Minute))
}

func TestSpeedBonus_DisabledConfig(t *testing.T) {
	cfg := SpeedBonusConfig{MaxBonus: 0}
	assert.Equal(t, 0, cfg.SpeedBonus(time.Second))
}

func TestComboScorer_AccumulatesWithMultiplier(t *testing.T) {
	// No speed bonus so the combo math is visible in isolation.
	scorer := NewComboScorer(SpeedBonusConfig{})

	slow := time.Minute

	// Answers 1 and 2: x1.0.
	assert.Equal(t, 10, scorer.OnCorrect(10, 1.0, slow))
	assert.Equal(t, 10, scorer.OnCorrect(10, 1.0, slow))

	// Answer 3 hits the first tier: x1.5.
	assert.Equal(t, 15, scorer.OnCorrect(10, 1.0, slow))
	assert.Equal(t, 1.5, scorer.Multiplier())

	assert.Equal(t, 35, scorer.TotalScore())
	assert.Equal(t, 3, scorer.Combo())
}

func TestComboScorer_DifficultyMultiplier(t *testing.T) {
	scorer := NewComboScorer(SpeedBonusConfig{})

	assert.Equal(t, 20, scorer.OnCorrect(10, 2.0, time.Minute))

	// Non-positive difficulty falls back to x1.0.
	assert.Equal(t, 10, scorer.OnCorrect(10, 0, time.Minute))
}

func TestComboScorer_SpeedBonusAdded(t *testing.T) {
	scorer := NewComboScorer(DefaultSpeedBonusConfig())

	// 10 base + 10 full speed bonus.
	assert.Equal(t, 20, scorer.OnCorrect(10, 1.0, time.Second))
}

func TestComboScorer_IncorrectResetsComboKeepsScore(t *testing.T) {
	scorer := NewComboScorer(SpeedBonusConfig{})
	scorer.OnCorrect(10, 1.0, time.Minute)
	scorer.OnCorrect(10, 1.0, time.Minute)
	scorer.OnCorrect(10, 1.0, time.Minute)

	total := scorer.TotalScore()
	scorer.OnIncorrect()

	assert.Equal(t, 0, scorer.Combo())
	assert.Equal(t, 1.0, scorer.Multiplier())
	assert.Equal(t, total, scorer.TotalScore())

	// The next correct answer restarts the ladder from x1.0.
	assert.Equal(t, 10, scorer.OnCorrect(10, 1.0, time.Minute))
}
