package progress

import (
	"math"
	"sort"
	"time"

	"activityTrackerAPI/internal/activity"
	"activityTrackerAPI/internal/stats"
)

// ComputeStreak walks a user's activity history backward from the most
// recent completed entry and counts consecutive calendar days with at least
// one completion. Multiple completions on the same day neither advance nor
// break the streak; the first gap larger than one day ends the scan.
func ComputeStreak(entries []activity.Entry) stats.StreakResult {
	completed := make([]activity.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Completed {
			completed = append(completed, e)
		}
	}

	if len(completed) == 0 {
		return stats.StreakResult{Streak: 0, Rank: stats.RankBeginner}
	}

	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].CreatedAt.After(completed[j].CreatedAt)
	})

	lastDate := midnight(completed[0].CreatedAt)
	streak := 1

	for _, e := range completed[1:] {
		day := midnight(e.CreatedAt)
		diff := wholeDays(lastDate, day)

		if diff == 1 {
			streak++
			lastDate = day
		} else if diff > 1 {
			break
		}
		// diff == 0: a second completion on the same day, skipped
	}

	return stats.StreakResult{Streak: streak, Rank: RankForStreak(streak)}
}

// RankForStreak maps a streak length onto its categorical label.
func RankForStreak(streak int) stats.Rank {
	switch {
	case streak >= 30:
		return stats.RankElite
	case streak >= 14:
		return stats.RankPro
	case streak >= 7:
		return stats.RankAdvanced
	default:
		return stats.RankBeginner
	}
}

// midnight truncates a timestamp to the start of its local calendar day.
func midnight(t time.Time) time.Time {
	local := t.Local()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.Local)
}

// wholeDays rounds so that DST transitions (23h/25h days) still count as
// one day.
func wholeDays(later, earlier time.Time) int {
	return int(math.Round(later.Sub(earlier).Hours() / 24))
}
