package stats

// Rank is the categorical label derived from the current streak length.
type Rank string

const (
	RankBeginner Rank = "Beginner"
	RankAdvanced Rank = "Advanced"
	RankPro      Rank = "Pro"
	RankElite    Rank = "Elite"
)

// StreakResult is the streak/rank tuple the profile screen renders.
type StreakResult struct {
	Streak int  `json:"streak"`
	Rank   Rank `json:"rank"`
}

type UserStats struct {
	CurrentStreak    int     `json:"current_streak"`
	Rank             Rank    `json:"rank"`
	TotalActivities  int     `json:"total_activities"`
	CompletedCount   int     `json:"completed_count"`
	TotalDistanceKM  float64 `json:"total_distance_km"`
	ActiveChallenges int     `json:"active_challenges"`
}
