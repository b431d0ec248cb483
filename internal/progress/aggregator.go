package progress

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"activityTrackerAPI/internal/activity"
	"activityTrackerAPI/internal/challenge"
)

// Store is the persistence collaborator for challenge participation. Reads
// return snapshots; SaveParticipant is all-or-nothing for a single record.
type Store interface {
	GetChallenge(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error)
	GetActivity(ctx context.Context, id uuid.UUID) (*activity.Entry, error)
	GetParticipant(ctx context.Context, challengeID, userID uuid.UUID) (*challenge.Participant, error)
	SaveParticipant(ctx context.Context, p *challenge.Participant) error
	ListParticipants(ctx context.Context, challengeID uuid.UUID) ([]*challenge.Participant, error)
}

// Hooks is the challenge-management collaborator. The aggregator reports
// facts through it and never mutates Challenge.Status itself. Hooks fire
// after the participant mutation has been persisted and are best effort:
// a hook error is logged, never surfaced to the caller.
type Hooks interface {
	// ChallengeActivated fires when the first assignee agrees.
	ChallengeActivated(ctx context.Context, challengeID uuid.UUID) error
	// CompletionEligible fires when a participant's cumulative distance
	// meets or exceeds the referenced activity's target.
	CompletionEligible(ctx context.Context, challengeID, userID uuid.UUID, totalKM float64) error
}

type Response string

const (
	ResponseAgree  Response = "agree"
	ResponseReject Response = "reject"
	ResponseSkip   Response = "skip"
)

// Aggregator maintains per-participant challenge progress and answers the
// participant status and winner queries.
type Aggregator struct {
	store Store
	hooks Hooks
	now   func() time.Time
}

func NewAggregator(store Store, hooks Hooks) *Aggregator {
	return &Aggregator{
		store: store,
		hooks: hooks,
		now:   time.Now,
	}
}

// Respond resolves the calling participant's pending invitation. Each
// participant resolves exactly once: a second call fails with
// ErrInvalidTransition regardless of the response kind.
func (a *Aggregator) Respond(ctx context.Context, challengeID, userID uuid.UUID, response Response, reason string) (*challenge.Participant, error) {
	p, err := a.store.GetParticipant(ctx, challengeID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	if p.Status != challenge.ResponsePending {
		return nil, ErrInvalidTransition
	}

	switch response {
	case ResponseAgree:
		p.Status = challenge.ResponseActive
	case ResponseReject:
		p.Status = challenge.ResponseRejected
		if reason != "" {
			p.ResponseReason = &reason
		}
	case ResponseSkip:
		p.Status = challenge.ResponseSkipped
	default:
		return nil, fmt.Errorf("unknown response %q", response)
	}

	p.UpdatedAt = a.now()
	if err := a.store.SaveParticipant(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save participant: %w", err)
	}

	if response == ResponseAgree && a.hooks != nil {
		first, err := a.isFirstActive(ctx, challengeID, userID)
		if err != nil {
			log.Printf("Respond: could not check activation for challenge %s: %v", challengeID, err)
		} else if first {
			if err := a.hooks.ChallengeActivated(ctx, challengeID); err != nil {
				log.Printf("Respond: activation hook failed for challenge %s: %v", challengeID, err)
			}
		}
	}

	return p, nil
}

func (a *Aggregator) isFirstActive(ctx context.Context, challengeID, userID uuid.UUID) (bool, error) {
	participants, err := a.store.ListParticipants(ctx, challengeID)
	if err != nil {
		return false, fmt.Errorf("failed to list participants: %w", err)
	}
	for _, other := range participants {
		if other.UserID != userID && other.Status == challenge.ResponseActive {
			return false, nil
		}
	}
	return true, nil
}

// SubmitProgress appends one daily progress record to the calling
// participant's list and reports completion eligibility when the cumulative
// distance reaches the referenced activity's target.
func (a *Aggregator) SubmitProgress(ctx context.Context, challengeID, userID uuid.UUID, distanceKM float64, date time.Time, url, imageURL *string) (*challenge.Participant, error) {
	p, err := a.store.GetParticipant(ctx, challengeID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	if p.Status != challenge.ResponseActive {
		return nil, ErrNotActiveParticipant
	}

	if distanceKM <= 0 || math.IsNaN(distanceKM) || math.IsInf(distanceKM, 0) {
		return nil, ErrInvalidDistance
	}

	p.Progress = append(p.Progress, challenge.DailyProgress{
		Date:       date,
		DistanceKM: distanceKM,
		URL:        url,
		ImageURL:   imageURL,
	})
	p.UpdatedAt = a.now()

	if err := a.store.SaveParticipant(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save participant: %w", err)
	}

	if a.hooks != nil {
		a.reportCompletion(ctx, challengeID, userID, p)
	}

	return p, nil
}

func (a *Aggregator) reportCompletion(ctx context.Context, challengeID, userID uuid.UUID, p *challenge.Participant) {
	ch, err := a.store.GetChallenge(ctx, challengeID)
	if err != nil {
		log.Printf("SubmitProgress: could not load challenge %s: %v", challengeID, err)
		return
	}
	target, err := a.store.GetActivity(ctx, ch.ActivityID)
	if err != nil {
		log.Printf("SubmitProgress: could not load target activity for challenge %s: %v", challengeID, err)
		return
	}
	if total := p.TotalDistance(); total >= target.DistanceKM {
		if err := a.hooks.CompletionEligible(ctx, challengeID, userID, total); err != nil {
			log.Printf("SubmitProgress: completion hook failed for challenge %s: %v", challengeID, err)
		}
	}
}

// Winner returns the participant with the greatest cumulative distance once
// the challenge's end date has been reached. Ties break toward the lexically
// smallest participant identifier. ErrNoWinner is returned before the end
// date and when nobody has logged progress.
func (a *Aggregator) Winner(ctx context.Context, challengeID uuid.UUID) (uuid.UUID, error) {
	ch, err := a.store.GetChallenge(ctx, challengeID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	if a.now().Before(ch.EndDate) {
		return uuid.Nil, ErrNoWinner
	}

	participants, err := a.store.ListParticipants(ctx, challengeID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to list participants: %w", err)
	}

	var (
		best      uuid.UUID
		bestTotal float64
	)
	for _, p := range participants {
		total := p.TotalDistance()
		if total <= 0 {
			continue
		}
		switch {
		case best == uuid.Nil, total > bestTotal:
			best, bestTotal = p.UserID, total
		case total == bestTotal && p.UserID.String() < best.String():
			best = p.UserID
		}
	}

	if best == uuid.Nil {
		return uuid.Nil, ErrNoWinner
	}
	return best, nil
}
