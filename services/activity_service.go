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

	"activityTrackerAPI/internal/activity"
	"activityTrackerAPI/internal/calendar"
	"activityTrackerAPI/internal/notification"
	"activityTrackerAPI/internal/progress"
	"activityTrackerAPI/internal/stats"
)

type ActivityService struct {
	db           *pgxpool.Pool
	notifService *NotificationService
}

func NewActivityService(db *pgxpool.Pool, notifService *NotificationService) *ActivityService {
	return &ActivityService{
		db:           db,
		notifService: notifService,
	}
}

const activityColumns = `id, user_id, kind, distance_km, completed, stopped, start_date, end_date, created_at, updated_at`

func scanEntry(row pgx.Row) (*activity.Entry, error) {
	e := &activity.Entry{}
	err := row.Scan(
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

func (s *ActivityService) CreateEntry(ctx context.Context, clerkID string, req *activity.CreateEntryRequest) (*activity.Entry, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	if req.Kind == "" {
		return nil, fmt.Errorf("kind is required")
	}
	if req.DistanceKM < 0 {
		return nil, fmt.Errorf("distance must not be negative")
	}

	duration, err := progress.ParseDuration(req.Duration)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	end := progress.EndDate(start, duration)

	query := `
	INSERT INTO activity_entries (id, user_id, kind, distance_km, completed, stopped, start_date, end_date, created_at, updated_at)
	VALUES ($1, $2, $3, $4, false, false, $5, $6, NOW(), NOW())
	RETURNING ` + activityColumns

	entry, err := scanEntry(s.db.QueryRow(ctx, query, uuid.New(), userID, req.Kind, req.DistanceKM, start, end))
	if err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}
	return entry, nil
}

// GetActiveEntries lists the user's entries that have not been stopped,
// newest first. Stopped entries stay in the historical record only.
func (s *ActivityService) GetActiveEntries(ctx context.Context, clerkID string) ([]*activity.Entry, error) {
	query := `
	SELECT ` + activityColumns + `
	FROM activity_entries a
	WHERE a.user_id = (SELECT id FROM users WHERE clerk_id = $1)
		AND a.stopped = false
	ORDER BY a.created_at DESC
	`
	return s.queryEntries(ctx, query, clerkID)
}

// GetHistory lists every entry the user ever created, stopped ones included.
func (s *ActivityService) GetHistory(ctx context.Context, clerkID string) ([]*activity.Entry, error) {
	query := `
	SELECT ` + activityColumns + `
	FROM activity_entries a
	WHERE a.user_id = (SELECT id FROM users WHERE clerk_id = $1)
	ORDER BY a.created_at DESC
	`
	return s.queryEntries(ctx, query, clerkID)
}

func (s *ActivityService) queryEntries(ctx context.Context, query string, args ...any) ([]*activity.Entry, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activities: %w", err)
	}
	defer rows.Close()

	entries := []*activity.Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}
	return entries, nil
}

// CompleteEntry flags an entry completed. Only the owning user can mutate it.
func (s *ActivityService) CompleteEntry(ctx context.Context, clerkID string, entryID uuid.UUID) (*activity.Entry, error) {
	query := `
	UPDATE activity_entries a
	SET completed = true, updated_at = NOW()
	FROM users u
	WHERE a.id = $1 AND a.user_id = u.id AND u.clerk_id = $2 AND a.stopped = false
	RETURNING a.id, a.user_id, a.kind, a.distance_km, a.completed, a.stopped, a.start_date, a.end_date, a.created_at, a.updated_at
	`

	entry, err := scanEntry(s.db.QueryRow(ctx, query, entryID, clerkID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("activity not found")
		}
		return nil, fmt.Errorf("failed to complete activity: %w", err)
	}

	s.notifyStreakMilestone(ctx, clerkID, entry.UserID)

	return entry, nil
}

// StopEntry flags an entry stopped. The record is kept, never deleted.
func (s *ActivityService) StopEntry(ctx context.Context, clerkID string, entryID uuid.UUID) (*activity.Entry, error) {
	query := `
	UPDATE activity_entries a
	SET stopped = true, updated_at = NOW()
	FROM users u
	WHERE a.id = $1 AND a.user_id = u.id AND u.clerk_id = $2
	RETURNING a.id, a.user_id, a.kind, a.distance_km, a.completed, a.stopped, a.start_date, a.end_date, a.created_at, a.updated_at
	`

	entry, err := scanEntry(s.db.QueryRow(ctx, query, entryID, clerkID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("activity not found")
		}
		return nil, fmt.Errorf("failed to stop activity: %w", err)
	}
	return entry, nil
}

// GetUserStats loads the user's full activity history and computes the
// streak/rank tuple in memory, plus the profile totals.
func (s *ActivityService) GetUserStats(ctx context.Context, clerkID string) (*stats.UserStats, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	entries, err := s.GetHistory(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	result := progress.ComputeStreak(dereference(entries))

	userStats := &stats.UserStats{
		CurrentStreak:   result.Streak,
		Rank:            result.Rank,
		TotalActivities: len(entries),
	}
	for _, e := range entries {
		if e.Completed {
			userStats.CompletedCount++
			userStats.TotalDistanceKM += e.DistanceKM
		}
	}

	query := `
	SELECT COUNT(*)
	FROM challenge_participants cp
	JOIN challenges c ON c.id = cp.challenge_id
	WHERE cp.user_id = $1 AND cp.status = 'active' AND c.status = 'active'
	`
	if err := s.db.QueryRow(ctx, query, userID).Scan(&userStats.ActiveChallenges); err != nil {
		return nil, fmt.Errorf("failed to count active challenges: %w", err)
	}

	return userStats, nil
}

func dereference(entries []*activity.Entry) []activity.Entry {
	out := make([]activity.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, *e)
	}
	return out
}

// GetCalendar marks each day of a month on which the user completed at
// least one entry.
func (s *ActivityService) GetCalendar(ctx context.Context, clerkID string, year int, month int) (*calendar.CalendarResponse, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	startDate := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	endDate := startDate.AddDate(0, 1, -1)

	query := `
	SELECT created_at
	FROM activity_entries
	WHERE user_id = $1
		AND completed = true
		AND created_at >= $2
		AND created_at < $3 + INTERVAL '1 day'
	ORDER BY created_at
	`

	rows, err := s.db.Query(ctx, query, userID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calendar: %w", err)
	}
	defer rows.Close()

	dayMap := make(map[string]bool)
	for rows.Next() {
		var createdAt time.Time
		if err := rows.Scan(&createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		dayMap[createdAt.Format("2006-01-02")] = true
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	var days []*calendar.CalendarDay
	today := time.Now().Format("2006-01-02")

	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		dateStr := d.Format("2006-01-02")
		days = append(days, &calendar.CalendarDay{
			Date:      d,
			Completed: dayMap[dateStr],
			IsToday:   dateStr == today,
		})
	}

	return &calendar.CalendarResponse{
		Year:  year,
		Month: month,
		Days:  days,
	}, nil
}

// Streak milestones worth celebrating. Push only on exact thresholds so a
// user is congratulated once per level.
var streakMilestones = map[int]bool{7: true, 14: true, 30: true}

func (s *ActivityService) notifyStreakMilestone(ctx context.Context, clerkID string, userID uuid.UUID) {
	if s.notifService == nil {
		return
	}

	userStats, err := s.GetUserStats(ctx, clerkID)
	if err != nil || !streakMilestones[userStats.CurrentStreak] {
		return
	}

	_, err = s.notifService.CreateNotification(ctx, &notification.CreateNotificationRequest{
		UserID:  userID,
		Type:    notification.NotificationStreakMilestone,
		Title:   fmt.Sprintf("%d day streak!", userStats.CurrentStreak),
		Message: fmt.Sprintf("You reached rank %s. Keep it going!", userStats.Rank),
		Data:    map[string]any{"streak": userStats.CurrentStreak, "rank": string(userStats.Rank)},
	})
	if err != nil {
		// A missed congratulation is not worth failing the completion.
		log.Printf("streak milestone notification failed: %v", err)
	}
}
