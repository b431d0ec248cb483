package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"activityTrackerAPI/internal/activity"
	"activityTrackerAPI/internal/challenge"
)

// challengeStore is the postgres-backed progress.Store. Participant saves
// run in a transaction so the status update and new progress rows land
// together.
type challengeStore struct {
	db *pgxpool.Pool
}

func (st *challengeStore) GetChallenge(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error) {
	query := `
	SELECT id, creator_id, activity_id, title, rules, exceptions, reward, status, rejection_note, duration, start_date, end_date, created_at
	FROM challenges
	WHERE id = $1
	`

	ch := &challenge.Challenge{}
	err := st.db.QueryRow(ctx, query, id).Scan(
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
		return nil, err
	}
	return ch, nil
}

func (st *challengeStore) GetActivity(ctx context.Context, id uuid.UUID) (*activity.Entry, error) {
	query := `
	SELECT id, user_id, kind, distance_km, completed, stopped, start_date, end_date, created_at, updated_at
	FROM activity_entries
	WHERE id = $1
	`

	e := &activity.Entry{}
	err := st.db.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.UserID,
		&e.Kind,
		&e.DistanceKM,
		&e.Completed,
		&e.Stopped,
		&e.StartDate,
		&e.EndDate,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (st *challengeStore) GetParticipant(ctx context.Context, challengeID, userID uuid.UUID) (*challenge.Participant, error) {
	query := `
	SELECT challenge_id, user_id, status, response_reason, created_at, updated_at
	FROM challenge_participants
	WHERE challenge_id = $1 AND user_id = $2
	`

	p := &challenge.Participant{}
	err := st.db.QueryRow(ctx, query, challengeID, userID).Scan(
		&p.ChallengeID,
		&p.UserID,
		&p.Status,
		&p.ResponseReason,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Progress, err = st.loadProgress(ctx, challengeID, userID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (st *challengeStore) loadProgress(ctx context.Context, challengeID, userID uuid.UUID) ([]challenge.DailyProgress, error) {
	query := `
	SELECT date, distance_km, url, image_url
	FROM challenge_progress
	WHERE challenge_id = $1 AND user_id = $2
	ORDER BY created_at
	`

	rows, err := st.db.Query(ctx, query, challengeID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch progress: %w", err)
	}
	defer rows.Close()

	var progress []challenge.DailyProgress
	for rows.Next() {
		var d challenge.DailyProgress
		if err := rows.Scan(&d.Date, &d.DistanceKM, &d.URL, &d.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		progress = append(progress, d)
	}
	return progress, rows.Err()
}

func (st *challengeStore) SaveParticipant(ctx context.Context, p *challenge.Participant) error {
	tx, err := st.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	update := `
	UPDATE challenge_participants
	SET status = $3, response_reason = $4, updated_at = $5
	WHERE challenge_id = $1 AND user_id = $2
	`
	result, err := tx.Exec(ctx, update, p.ChallengeID, p.UserID, p.Status, p.ResponseReason, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("participant not found")
	}

	// The progress list is append-only: persist the rows beyond what is
	// already stored.
	var stored int
	err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM challenge_progress WHERE challenge_id = $1 AND user_id = $2`, p.ChallengeID, p.UserID).Scan(&stored)
	if err != nil {
		return fmt.Errorf("failed to count progress rows: %w", err)
	}

	insert := `
	INSERT INTO challenge_progress (id, challenge_id, user_id, date, distance_km, url, image_url, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	for _, d := range p.Progress[min(stored, len(p.Progress)):] {
		if _, err := tx.Exec(ctx, insert, uuid.New(), p.ChallengeID, p.UserID, d.Date, d.DistanceKM, d.URL, d.ImageURL); err != nil {
			return fmt.Errorf("failed to insert progress: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (st *challengeStore) ListParticipants(ctx context.Context, challengeID uuid.UUID) ([]*challenge.Participant, error) {
	query := `
	SELECT challenge_id, user_id, status, response_reason, created_at, updated_at
	FROM challenge_participants
	WHERE challenge_id = $1
	ORDER BY created_at
	`

	rows, err := st.db.Query(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch participants: %w", err)
	}
	defer rows.Close()

	var participants []*challenge.Participant
	for rows.Next() {
		p := &challenge.Participant{}
		err := rows.Scan(
			&p.ChallengeID,
			&p.UserID,
			&p.Status,
			&p.ResponseReason,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}

	for _, p := range participants {
		p.Progress, err = st.loadProgress(ctx, challengeID, p.UserID)
		if err != nil {
			return nil, err
		}
	}

	return participants, nil
}
