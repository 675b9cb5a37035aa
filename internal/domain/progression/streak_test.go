package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(offset int) time.Time {
	return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestStreak_FirstActivity(t *testing.T) {
	var s Streak

	tr := s.RecordActivity(day(0))

	assert.True(t, tr.Changed)
	assert.False(t, tr.Broken)
	assert.Equal(t, 1, s.Current)
	assert.Equal(t, 1, s.Best)
}

func TestStreak_SameDayIsIdempotent(t *testing.T) {
	var s Streak
	s.RecordActivity(day(0))

	// A second login later the same day changes nothing.
	tr := s.RecordActivity(day(0).Add(13 * time.Hour))

	assert.False(t, tr.Changed)
	assert.Equal(t, 1, s.Current)
}

func TestStreak_NextDayExtends(t *testing.T) {
	var s Streak
	s.RecordActivity(day(0))

	tr := s.RecordActivity(day(1))

	assert.True(t, tr.Changed)
	assert.True(t, tr.Extended)
	assert.Equal(t, 2, s.Current)
	assert.Equal(t, 2, s.Best)
}

func TestStreak_MissedDaysReset(t *testing.T) {
	var s Streak
	s.RecordActivity(day(0))
	s.RecordActivity(day(1))
	s.RecordActivity(day(2))

	// Two days missed: streak restarts at 1, best is preserved.
	tr := s.RecordActivity(day(5))

	assert.True(t, tr.Changed)
	assert.True(t, tr.Broken)
	assert.Equal(t, 3, tr.Previous)
	assert.Equal(t, 2, tr.DaysMissed)
	assert.Equal(t, 1, s.Current)
	assert.Equal(t, 3, s.Best)
}

func TestStreak_PastDateResets(t *testing.T) {
	var s Streak
	s.RecordActivity(day(3))
	s.RecordActivity(day(4))

	// Clock moved backwards (device timezone shift): treated as a reset.
	tr := s.RecordActivity(day(1))

	assert.True(t, tr.Broken)
	assert.Equal(t, 1, s.Current)
	assert.Equal(t, 0, tr.DaysMissed)
}

func TestStreak_ResetFromOneIsNotBroken(t *testing.T) {
	var s Streak
	s.RecordActivity(day(0))

	// Streak of 1 cannot "break": nothing meaningful was lost.
	tr := s.RecordActivity(day(4))

	assert.False(t, tr.Broken)
	assert.False(t, tr.Changed)
	assert.Equal(t, 1, s.Current)
}

func TestStreak_IsBroken(t *testing.T) {
	var s Streak
	assert.False(t, s.IsBroken(day(0)))

	s.RecordActivity(day(0))
	assert.False(t, s.IsBroken(day(0)))
	assert.False(t, s.IsBroken(day(1)))
	assert.True(t, s.IsBroken(day(2)))
}

func TestDateOnly_StripsTimeToUTC(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Almaty")
	assert.NoError(t, err)

	ts := time.Date(2026, 3, 10, 23, 45, 0, 0, loc)
	got := DateOnly(ts)

	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), got)
}
