package challenge

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// Duration classifies the challenge window. End dates are derived with fixed
// day arithmetic (30-day months, 365-day years), never calendar months.
type Duration string

const (
	DurationDay   Duration = "day"
	DurationWeek  Duration = "week"
	DurationMonth Duration = "month"
	DurationYear  Duration = "year"
)

type ResponseStatus string

const (
	ResponsePending  ResponseStatus = "pending"
	ResponseActive   ResponseStatus = "active"
	ResponseRejected ResponseStatus = "rejected"
	ResponseSkipped  ResponseStatus = "skipped"
)

// Challenge is a task one user assigns to one or more others, with agreed
// rules and a reward. The top-level status is owned by the challenge service;
// assignees own their own participant sub-records.
type Challenge struct {
	ID            uuid.UUID `json:"id" db:"id"`
	CreatorID     uuid.UUID `json:"creator_id" db:"creator_id"`
	ActivityID    uuid.UUID `json:"activity_id" db:"activity_id"`
	Title         string    `json:"title" db:"title"`
	Rules         []string  `json:"rules" db:"rules"`
	Exceptions    []string  `json:"exceptions" db:"exceptions"`
	Reward        int       `json:"reward" db:"reward"`
	Status        Status    `json:"status" db:"status"`
	RejectionNote *string   `json:"rejection_note,omitempty" db:"rejection_note"`
	Duration      Duration  `json:"duration" db:"duration"`
	StartDate     time.Time `json:"start_date" db:"start_date"`
	EndDate       time.Time `json:"end_date" db:"end_date"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// DailyProgress is one logged progress record of a participant.
type DailyProgress struct {
	Date       time.Time `json:"date" db:"date"`
	DistanceKM float64   `json:"distance_km" db:"distance_km"`
	URL        *string   `json:"url,omitempty" db:"url"`
	ImageURL   *string   `json:"image_url,omitempty" db:"image_url"`
}

// Participant is the per-(challenge, user) record: response state plus the
// ordered list of daily progress entries. One is created per assignee when
// the challenge is created, with status pending.
type Participant struct {
	ChallengeID    uuid.UUID       `json:"challenge_id" db:"challenge_id"`
	UserID         uuid.UUID       `json:"user_id" db:"user_id"`
	Status         ResponseStatus  `json:"status" db:"status"`
	ResponseReason *string         `json:"response_reason,omitempty" db:"response_reason"`
	Progress       []DailyProgress `json:"progress"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// TotalDistance is the participant's cumulative logged distance.
func (p *Participant) TotalDistance() float64 {
	var total float64
	for _, d := range p.Progress {
		total += d.DistanceKM
	}
	return total
}

type CreateChallengeRequest struct {
	Title       string   `json:"title"`
	ActivityID  string   `json:"activity_id"`
	AssigneeIDs []string `json:"assignee_ids"`
	Rules       []string `json:"rules"`
	Exceptions  []string `json:"exceptions"`
	Reward      int      `json:"reward"`
	Duration    string   `json:"duration"`
}

type RespondRequest struct {
	Response string `json:"response"` // agree | reject | skip
	Reason   string `json:"reason,omitempty"`
}

type SubmitProgressRequest struct {
	DistanceKM float64 `json:"distance_km"`
	Date       string  `json:"date"` // YYYY-MM-DD, defaults to today
	URL        *string `json:"url,omitempty"`
	ImageURL   *string `json:"image_url,omitempty"`
}

type SelectOpponentsRequest struct {
	AssigneeIDs []string `json:"assignee_ids"`
}

// Detail is the full view a client renders for one challenge.
type Detail struct {
	Challenge    *Challenge     `json:"challenge"`
	Participants []*Participant `json:"participants"`
}
