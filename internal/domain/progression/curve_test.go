package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurve_LevelOf_Boundaries(t *testing.T) {
	curve := DefaultCurve()

	// Level 1 costs 50 XP to leave.
	info := curve.LevelOf(0)
	assert.Equal(t, 1, info.Level)
	assert.Equal(t, 0, info.XPIntoLevel)
	assert.Equal(t, 50, info.XPForNextLevel)

	info = curve.LevelOf(49)
	assert.Equal(t, 1, info.Level)
	assert.Equal(t, 49, info.XPIntoLevel)

	// Exactly at the boundary the next level starts.
	info = curve.LevelOf(50)
	assert.Equal(t, 2, info.Level)
	assert.Equal(t, 0, info.XPIntoLevel)
	assert.Equal(t, 62, info.XPForNextLevel) // int(50 * 1.25)

	// 50 + 62 = 112 opens level 3.
	info = curve.LevelOf(112)
	assert.Equal(t, 3, info.Level)
	assert.Equal(t, 0, info.XPIntoLevel)
	assert.Equal(t, 77, info.XPForNextLevel) // int(62 * 1.25)
}

func TestCurve_LevelOf_NegativeXPTreatedAsZero(t *testing.T) {
	curve := DefaultCurve()

	info := curve.LevelOf(-100)
	assert.Equal(t, 1, info.Level)
	assert.Equal(t, 0, info.XPIntoLevel)
}

func TestCurve_LevelOf_Monotonic(t *testing.T) {
	curve := DefaultCurve()

	prev := 0
	for xp := 0; xp <= 5000; xp += 7 {
		level := curve.LevelOf(xp).Level
		assert.GreaterOrEqual(t, level, prev, "level dropped at xp=%d", xp)
		prev = level
	}
}

func TestCurve_XPForLevel_RoundTrip(t *testing.T) {
	curve := DefaultCurve()

	assert.Equal(t, 0, curve.XPForLevel(1))
	assert.Equal(t, 50, curve.XPForLevel(2))
	assert.Equal(t, 112, curve.XPForLevel(3))

	for level := 1; level <= 15; level++ {
		threshold := curve.XPForLevel(level)
		info := curve.LevelOf(threshold)
		assert.Equal(t, level, info.Level, "threshold xp=%d", threshold)
		assert.Equal(t, 0, info.XPIntoLevel)

		// One XP short of the threshold stays on the previous level.
		if level > 1 {
			assert.Equal(t, level-1, curve.LevelOf(threshold-1).Level)
		}
	}
}

func TestNewCurve_InvalidParamsFallBackToCanonical(t *testing.T) {
	curve := NewCurve(-10, 0.5)

	assert.Equal(t, DefaultCurve().LevelOf(200), curve.LevelOf(200))
}

func TestLevelInfo_Progress(t *testing.T) {
	curve := DefaultCurve()

	info := curve.LevelOf(25)
	assert.InDelta(t, 0.5, info.Progress(), 0.001)

	assert.Equal(t, 0.0, LevelInfo{}.Progress())
}
