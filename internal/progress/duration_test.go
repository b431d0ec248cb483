package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"activityTrackerAPI/internal/challenge"
)

func TestEndDateWeekExact(t *testing.T) {
	start := time.Date(2025, 4, 28, 0, 0, 0, 0, time.UTC)
	end := EndDate(start, challenge.DurationWeek)
	assert.Equal(t, time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC), end)
}

func TestEndDateFixedArithmetic(t *testing.T) {
	start := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, start.Add(24*time.Hour), EndDate(start, challenge.DurationDay))
	assert.Equal(t, start.Add(7*24*time.Hour), EndDate(start, challenge.DurationWeek))
	// A month is a fixed 30 days, not a calendar month.
	assert.Equal(t, start.Add(30*24*time.Hour), EndDate(start, challenge.DurationMonth))
	assert.Equal(t, start.Add(365*24*time.Hour), EndDate(start, challenge.DurationYear))
}

func TestParseDuration(t *testing.T) {
	for _, s := range []string{"day", "week", "month", "year"} {
		d, err := ParseDuration(s)
		assert.NoError(t, err)
		assert.Equal(t, challenge.Duration(s), d)
	}

	_, err := ParseDuration("fortnight")
	assert.Error(t, err)
}
