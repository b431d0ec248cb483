package activity

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one loggable exercise goal ("run 5km this week"). Entries are
// never deleted, only flagged completed or stopped.
type Entry struct {
	ID         uuid.UUID `json:"id" db:"id"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	Kind       string    `json:"kind" db:"kind"` // free-form label, e.g. "Running"
	DistanceKM float64   `json:"distance_km" db:"distance_km"`
	Completed  bool      `json:"completed" db:"completed"`
	Stopped    bool      `json:"stopped" db:"stopped"`
	StartDate  time.Time `json:"start_date" db:"start_date"`
	EndDate    time.Time `json:"end_date" db:"end_date"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

type CreateEntryRequest struct {
	Kind       string  `json:"kind"`
	DistanceKM float64 `json:"distance_km"`
	Duration   string  `json:"duration"` // day | week | month | year
}
