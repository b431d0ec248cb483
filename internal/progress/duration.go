package progress

import (
	"fmt"
	"time"

	"activityTrackerAPI/internal/challenge"
)

// EndDate computes the canonical end of a lifecycle window from its start
// and a duration classifier. The arithmetic is fixed day counts (a month is
// always 30 days, a year always 365), not calendar-aware.
func EndDate(start time.Time, d challenge.Duration) time.Time {
	switch d {
	case challenge.DurationDay:
		return start.Add(24 * time.Hour)
	case challenge.DurationWeek:
		return start.Add(7 * 24 * time.Hour)
	case challenge.DurationMonth:
		return start.Add(30 * 24 * time.Hour)
	case challenge.DurationYear:
		return start.Add(365 * 24 * time.Hour)
	default:
		return start.Add(24 * time.Hour)
	}
}

// ParseDuration validates a client-supplied duration classifier.
func ParseDuration(s string) (challenge.Duration, error) {
	switch challenge.Duration(s) {
	case challenge.DurationDay, challenge.DurationWeek, challenge.DurationMonth, challenge.DurationYear:
		return challenge.Duration(s), nil
	default:
		return "", fmt.Errorf("unknown duration %q", s)
	}
}
