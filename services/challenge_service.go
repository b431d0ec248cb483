package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"activityTrackerAPI/internal/challenge"
	"activityTrackerAPI/internal/notification"
	"activityTrackerAPI/internal/progress"
)

type ChallengeService struct {
	db           *pgxpool.Pool
	notifService *NotificationService
	aggregator   *progress.Aggregator
}

func NewChallengeService(db *pgxpool.Pool, notifService *NotificationService) *ChallengeService {
	s := &ChallengeService{
		db:           db,
		notifService: notifService,
	}
	s.aggregator = progress.NewAggregator(&challengeStore{db: db}, s)
	return s
}

func (s *ChallengeService) resolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("user not found: %w", err)
	}
	return userID, nil
}

// CreateChallenge inserts the challenge and one pending participant per
// assignee in a single transaction, then notifies the assignees.
func (s *ChallengeService) CreateChallenge(ctx context.Context, clerkID string, req *challenge.CreateChallengeRequest) (*challenge.Challenge, error) {
	creatorID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}

	activityID, err := uuid.Parse(req.ActivityID)
	if err != nil {
		return nil, fmt.Errorf("invalid activity id")
	}

	duration, err := progress.ParseDuration(req.Duration)
	if err != nil {
		return nil, err
	}

	assigneeIDs, err := parseAssignees(req.AssigneeIDs, creatorID)
	if err != nil {
		return nil, err
	}

	// The referenced activity must exist and belong to the creator.
	var owner uuid.UUID
	err = s.db.QueryRow(ctx, `SELECT user_id FROM activity_entries WHERE id = $1`, activityID).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("activity not found")
		}
		return nil, fmt.Errorf("failed to look up activity: %w", err)
	}
	if owner != creatorID {
		return nil, fmt.Errorf("activity does not belong to you")
	}

	start := time.Now()
	end := progress.EndDate(start, duration)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertChallenge := `
	INSERT INTO challenges (id, creator_id, activity_id, title, rules, exceptions, reward, status, duration, start_date, end_date, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8, $9, $10, NOW())
	RETURNING id, creator_id, activity_id, title, rules, exceptions, reward, status, rejection_note, duration, start_date, end_date, created_at
	`

	ch := &challenge.Challenge{}
	err = tx.QueryRow(
		ctx, insertChallenge,
		uuid.New(), creatorID, activityID, req.Title, req.Rules, req.Exceptions, req.Reward, duration, start, end,
	).Scan(
		&ch.ID,
		&ch.CreatorID,
		&ch.ActivityID,
		&ch.Title,
		&ch.Rules,
		&ch.Exceptions,
		&ch.Reward,
		&ch.Status,
		&ch.RejectionNote,
		&ch.Duration,
		&ch.StartDate,
		&ch.EndDate,
		&ch.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	insertParticipant := `
	INSERT INTO challenge_participants (challenge_id, user_id, status, created_at, updated_at)
	VALUES ($1, $2, 'pending', NOW(), NOW())
	`
	for _, assigneeID := range assigneeIDs {
		if _, err := tx.Exec(ctx, insertParticipant, ch.ID, assigneeID); err != nil {
			return nil, fmt.Errorf("failed to add participant %s: %w", assigneeID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit challenge: %w", err)
	}

	s.notifyAssignees(ctx, ch, assigneeIDs)

	return ch, nil
}

func parseAssignees(raw []string, creatorID uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid assignee id %q", s)
		}
		if id == creatorID {
			return nil, fmt.Errorf("cannot challenge yourself")
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

func (s *ChallengeService) notifyAssignees(ctx context.Context, ch *challenge.Challenge, assigneeIDs []uuid.UUID) {
	if s.notifService == nil {
		return
	}
	for _, assigneeID := range assigneeIDs {
		_, err := s.notifService.CreateNotification(ctx, &notification.CreateNotificationRequest{
			UserID:  assigneeID,
			Type:    notification.NotificationChallengeInvite,
			Title:   "New challenge",
			Message: fmt.Sprintf("You have been challenged: %s", ch.Title),
			Data:    map[string]any{"challenge_id": ch.ID.String()},
		})
		if err != nil {
			log.Printf("CreateChallenge: failed to notify assignee %s: %v", assigneeID, err)
		}
	}
}

// SelectOpponents assigns participants to a challenge created without any.
// Permitted exactly once, by the creator, while no participants exist yet.
func (s *ChallengeService) SelectOpponents(ctx context.Context, clerkID string, challengeID uuid.UUID, rawAssignees []string) error {
	creatorID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	ch, err := s.getChallengeRow(ctx, challengeID)
	if err != nil {
		return err
	}
	if ch.CreatorID != creatorID {
		return fmt.Errorf("only the creator can select opponents")
	}

	assigneeIDs, err := parseAssignees(rawAssignees, creatorID)
	if err != nil {
		return err
	}
	if len(assigneeIDs) == 0 {
		return fmt.Errorf("at least one assignee is required")
	}

	var existing int
	err = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM challenge_participants WHERE challenge_id = $1`, challengeID).Scan(&existing)
	if err != nil {
		return fmt.Errorf("failed to count participants: %w", err)
	}
	if existing > 0 {
		return fmt.Errorf("opponents already selected")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertParticipant := `
	INSERT INTO challenge_participants (challenge_id, user_id, status, created_at, updated_at)
	VALUES ($1, $2, 'pending', NOW(), NOW())
	`
	for _, assigneeID := range assigneeIDs {
		if _, err := tx.Exec(ctx, insertParticipant, challengeID, assigneeID); err != nil {
			return fmt.Errorf("failed to add participant %s: %w", assigneeID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit participants: %w", err)
	}

	s.notifyAssignees(ctx, ch, assigneeIDs)
	return nil
}

func (s *ChallengeService) getChallengeRow(ctx context.Context, challengeID uuid.UUID) (*challenge.Challenge, error) {
	store := &challengeStore{db: s.db}
	ch, err := store.GetChallenge(ctx, challengeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("challenge not found")
		}
		return nil, err
	}
	return ch, nil
}

// GetChallenge returns the challenge with every participant and their
// progress lists.
func (s *ChallengeService) GetChallenge(ctx context.Context, challengeID uuid.UUID) (*challenge.Detail, error) {
	ch, err := s.getChallengeRow(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	store := &challengeStore{db: s.db}
	participants, err := store.ListParticipants(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	return &challenge.Detail{
		Challenge:    ch,
		Participants: participants,
	}, nil
}

// ListChallenges returns challenges the user created or was assigned to,
// newest first.
func (s *ChallengeService) ListChallenges(ctx context.Context, clerkID string) ([]*challenge.Challenge, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT DISTINCT c.id, c.creator_id, c.activity_id, c.title, c.rules, c.exceptions, c.reward, c.status, c.rejection_note, c.duration, c.start_date, c.end_date, c.created_at
	FROM challenges c
	LEFT JOIN challenge_participants cp ON cp.challenge_id = c.id
	WHERE c.creator_id = $1 OR cp.user_id = $1
	ORDER BY c.created_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch challenges: %w", err)
	}
	defer rows.Close()

	challenges := []*challenge.Challenge{}
	for rows.Next() {
		ch := &challenge.Challenge{}
		err := rows.Scan(
			&ch.ID,
			&ch.CreatorID,
			&ch.ActivityID,
			&ch.Title,
			&ch.Rules,
			&ch.Exceptions,
			&ch.Reward,
			&ch.Status,
			&ch.RejectionNote,
			&ch.Duration,
			&ch.StartDate,
			&ch.EndDate,
			&ch.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, ch)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating challenges: %w", err)
	}

	return challenges, nil
}

// Respond records the calling assignee's answer to a pending invitation and
// notifies the creator.
func (s *ChallengeService) Respond(ctx context.Context, clerkID string, challengeID uuid.UUID, response progress.Response, reason string) (*challenge.Participant, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	p, err := s.aggregator.Respond(ctx, challengeID, userID, response, reason)
	if err != nil {
		return nil, err
	}

	if s.notifService != nil {
		if ch, chErr := s.getChallengeRow(ctx, challengeID); chErr == nil {
			_, nErr := s.notifService.CreateNotification(ctx, &notification.CreateNotificationRequest{
				UserID:  ch.CreatorID,
				Type:    notification.NotificationChallengeResponse,
				Title:   "Challenge response",
				Message: fmt.Sprintf("An opponent responded %q to %s", response, ch.Title),
				Data:    map[string]any{"challenge_id": challengeID.String(), "response": string(response)},
			})
			if nErr != nil {
				log.Printf("Respond: failed to notify creator: %v", nErr)
			}
		}
	}

	return p, nil
}

// SubmitProgress appends one daily progress record for the calling
// participant.
func (s *ChallengeService) SubmitProgress(ctx context.Context, clerkID string, challengeID uuid.UUID, distanceKM float64, date time.Time, url, imageURL *string) (*challenge.Participant, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	return s.aggregator.SubmitProgress(ctx, challengeID, userID, distanceKM, date, url, imageURL)
}

// Winner answers the winner query once the challenge window has closed.
func (s *ChallengeService) Winner(ctx context.Context, challengeID uuid.UUID) (uuid.UUID, error) {
	return s.aggregator.Winner(ctx, challengeID)
}

// ChallengeActivated implements progress.Hooks: the first agreeing assignee
// moves the challenge from pending to active.
func (s *ChallengeService) ChallengeActivated(ctx context.Context, challengeID uuid.UUID) error {
	query := `
	UPDATE challenges
	SET status = 'active'
	WHERE id = $1 AND status = 'pending'
	`
	if _, err := s.db.Exec(ctx, query, challengeID); err != nil {
		return fmt.Errorf("failed to activate challenge: %w", err)
	}
	return nil
}

// CompletionEligible implements progress.Hooks: once a participant reaches
// the target distance the challenge is closed out and the creator notified.
func (s *ChallengeService) CompletionEligible(ctx context.Context, challengeID, userID uuid.UUID, totalKM float64) error {
	query := `
	UPDATE challenges
	SET status = 'completed'
	WHERE id = $1 AND status = 'active'
	`
	if _, err := s.db.Exec(ctx, query, challengeID); err != nil {
		return fmt.Errorf("failed to complete challenge: %w", err)
	}

	if s.notifService != nil {
		ch, err := s.getChallengeRow(ctx, challengeID)
		if err != nil {
			return err
		}
		_, err = s.notifService.CreateNotification(ctx, &notification.CreateNotificationRequest{
			UserID:  ch.CreatorID,
			Type:    notification.NotificationChallengeComplete,
			Title:   "Challenge target reached",
			Message: fmt.Sprintf("A participant logged %.1f km and reached the target of %s", totalKM, ch.Title),
			Data:    map[string]any{"challenge_id": challengeID.String(), "user_id": userID.String(), "total_km": totalKM},
		})
		if err != nil {
			log.Printf("CompletionEligible: failed to notify creator: %v", err)
		}
	}

	return nil
}
