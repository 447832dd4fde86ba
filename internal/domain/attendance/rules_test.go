package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	got, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour+30*time.Minute, got)

	_, err = ParseClock("930")
	assert.Error(t, err)
}

func TestRules_IsLate(t *testing.T) {
	rules := DefaultRules()
	loc := rules.Location
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, loc)

	assert.False(t, rules.IsLate(day, time.Date(2024, 6, 10, 9, 30, 0, 0, loc)), "09:30 is the last on-time minute")
	assert.True(t, rules.IsLate(day, time.Date(2024, 6, 10, 9, 30, 1, 0, loc)))
	assert.True(t, rules.IsLate(day, time.Date(2024, 6, 10, 9, 45, 0, 0, loc)))
	// 04:40 UTC is 09:40 at UTC+5
	assert.True(t, rules.IsLate(day, time.Date(2024, 6, 10, 4, 40, 0, 0, time.UTC)))
}

func TestRules_GraceViolationIsIndependent(t *testing.T) {
	rules := DefaultRules()
	loc := rules.Location
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, loc)
	checkIn := time.Date(2024, 6, 10, 9, 45, 0, 0, loc)

	// Same threshold as grace: both predicates agree
	assert.Equal(t, rules.IsLate(day, checkIn), rules.IsGraceViolation(day, checkIn))

	rules.GraceViolationThreshold = time.Hour
	assert.True(t, rules.IsLate(day, checkIn))
	assert.False(t, rules.IsGraceViolation(day, checkIn))
}

func TestRules_IsEarlyDeparture(t *testing.T) {
	rules := DefaultRules()
	loc := rules.Location
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, loc)

	assert.True(t, rules.IsEarlyDeparture(day, time.Date(2024, 6, 10, 17, 30, 0, 0, loc)))
	assert.False(t, rules.IsEarlyDeparture(day, time.Date(2024, 6, 10, 18, 0, 0, 0, loc)))
	assert.False(t, rules.IsEarlyDeparture(day, time.Date(2024, 6, 11, 1, 0, 0, 0, loc)), "overnight check-out is not early")
}

func TestRules_DayOf(t *testing.T) {
	rules := DefaultRules()
	got := rules.DayOf(time.Date(2024, 6, 10, 20, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 6, 11, 0, 0, 0, 0, rules.Location), got)
}
