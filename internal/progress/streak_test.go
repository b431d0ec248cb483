package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"activityTrackerAPI/internal/activity"
	"activityTrackerAPI/internal/stats"
)

var streakBase = time.Date(2025, 6, 15, 10, 30, 0, 0, time.Local)

// completedOn builds a completed entry created daysAgo days before streakBase.
func completedOn(daysAgo int) activity.Entry {
	return activity.Entry{
		ID:        uuid.New(),
		Kind:      "Running",
		Completed: true,
		CreatedAt: streakBase.AddDate(0, 0, -daysAgo),
	}
}

// consecutiveDays builds n completed entries on n consecutive distinct days,
// most recent first.
func consecutiveDays(n int) []activity.Entry {
	entries := make([]activity.Entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, completedOn(i))
	}
	return entries
}

func TestComputeStreakEmpty(t *testing.T) {
	result := ComputeStreak(nil)
	assert.Equal(t, 0, result.Streak)
	assert.Equal(t, stats.RankBeginner, result.Rank)
}

func TestComputeStreakIgnoresIncomplete(t *testing.T) {
	entries := []activity.Entry{
		{Kind: "Running", Completed: false, CreatedAt: streakBase},
		{Kind: "Cycling", Completed: false, CreatedAt: streakBase.AddDate(0, 0, -1)},
	}

	result := ComputeStreak(entries)
	assert.Equal(t, 0, result.Streak)
	assert.Equal(t, stats.RankBeginner, result.Rank)
}

func TestComputeStreakConsecutiveDays(t *testing.T) {
	cases := []struct {
		days int
		rank stats.Rank
	}{
		{1, stats.RankBeginner},
		{6, stats.RankBeginner},
		{7, stats.RankAdvanced},
		{13, stats.RankAdvanced},
		{14, stats.RankPro},
		{29, stats.RankPro},
		{30, stats.RankElite},
		{45, stats.RankElite},
	}

	for _, tc := range cases {
		result := ComputeStreak(consecutiveDays(tc.days))
		assert.Equal(t, tc.days, result.Streak, "streak for %d days", tc.days)
		assert.Equal(t, tc.rank, result.Rank, "rank for %d days", tc.days)
	}
}

func TestComputeStreakGapTruncates(t *testing.T) {
	// Completions on daysAgo 0, 1, then a jump to 4 and 5: the streak stops
	// at the gap.
	entries := []activity.Entry{
		completedOn(0),
		completedOn(1),
		completedOn(4),
		completedOn(5),
	}

	result := ComputeStreak(entries)
	assert.Equal(t, 2, result.Streak)
	assert.Equal(t, stats.RankBeginner, result.Rank)
}

func TestComputeStreakDuplicateDayAbsorbed(t *testing.T) {
	// Two completions logged on the same calendar day neither advance nor
	// break the scan.
	entries := []activity.Entry{
		completedOn(0),
		completedOn(0),
		completedOn(1),
		completedOn(2),
	}

	result := ComputeStreak(entries)
	assert.Equal(t, 3, result.Streak)
}

func TestComputeStreakUnsortedInput(t *testing.T) {
	entries := []activity.Entry{
		completedOn(2),
		completedOn(0),
		completedOn(1),
	}

	result := ComputeStreak(entries)
	assert.Equal(t, 3, result.Streak)
}

func TestComputeStreakSingleEntryStartsAtOne(t *testing.T) {
	result := ComputeStreak([]activity.Entry{completedOn(9)})
	assert.Equal(t, 1, result.Streak)
	assert.Equal(t, stats.RankBeginner, result.Rank)
}

func TestRankForStreakBoundaries(t *testing.T) {
	assert.Equal(t, stats.RankBeginner, RankForStreak(0))
	assert.Equal(t, stats.RankBeginner, RankForStreak(6))
	assert.Equal(t, stats.RankAdvanced, RankForStreak(7))
	assert.Equal(t, stats.RankAdvanced, RankForStreak(13))
	assert.Equal(t, stats.RankPro, RankForStreak(14))
	assert.Equal(t, stats.RankPro, RankForStreak(29))
	assert.Equal(t, stats.RankElite, RankForStreak(30))
}
