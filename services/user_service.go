package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"activityTrackerAPI/internal/leaderboard"
	"activityTrackerAPI/internal/user"
)

type UserService struct {
	db *pgxpool.Pool
}

func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	provider := req.AuthProvider
	if provider == "" {
		provider = "clerk"
	}

	u := &user.User{
		ID:           uuid.New().String(),
		ClerkID:      req.ClerkID,
		Email:        req.Email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		ImageURL:     req.ImageURL,
		AuthProvider: provider,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	query := `
	INSERT INTO users (id, clerk_id, email, username, first_name, last_name, image_url, auth_provider, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING id, clerk_id, email, username, first_name, last_name, image_url, auth_provider, created_at, updated_at
	`

	err := s.db.QueryRow(
		ctx, query,
		u.ID, u.ClerkID, u.Email, u.Username, u.FirstName, u.LastName, u.ImageURL, u.AuthProvider, u.CreatedAt, u.UpdatedAt,
	).Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.AuthProvider,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	query := `
	SELECT id, clerk_id, email, username, first_name, last_name, image_url, auth_provider, created_at, updated_at
	FROM users
	WHERE clerk_id = $1
	`

	u := &user.User{}
	err := s.db.QueryRow(ctx, query, clerkID).Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.AuthProvider,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

func (s *UserService) UpdateProfileByClerkID(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error) {
	query := `
	UPDATE users
	SET
		username = COALESCE(NULLIF($2, ''), username),
		first_name = COALESCE(NULLIF($3, ''), first_name),
		last_name = COALESCE(NULLIF($4, ''), last_name),
		image_url = COALESCE(NULLIF($5, ''), image_url),
		updated_at = NOW()
	WHERE clerk_id = $1
	RETURNING id, clerk_id, email, username, first_name, last_name, image_url, auth_provider, created_at, updated_at
	`

	u := &user.User{}
	err := s.db.QueryRow(
		ctx, query,
		clerkID, req.Username, req.FirstName, req.LastName, req.ImageURL,
	).Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.AuthProvider,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return u, nil
}

func (s *UserService) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	result, err := s.db.Exec(ctx, `DELETE FROM users WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

// SearchUsers scores matches so exact username hits sort before prefix and
// substring hits.
func (s *UserService) SearchUsers(ctx context.Context, clerkID string, query string) ([]*user.User, error) {
	cleanQuery := strings.TrimSpace(query)
	searchPattern := "%" + cleanQuery + "%"
	startsWithPattern := cleanQuery + "%"

	sqlQuery := `
	SELECT id, clerk_id, email, username, first_name, last_name, image_url, auth_provider, created_at, updated_at
	FROM (
		SELECT
			id, clerk_id, email, username, first_name, last_name, image_url, auth_provider, created_at, updated_at,
			GREATEST(
				CASE
					WHEN LOWER(username) = LOWER($2) THEN 100
					WHEN LOWER(email) = LOWER($2) THEN 100
					WHEN LOWER(first_name) = LOWER($2) THEN 95
					WHEN LOWER(last_name) = LOWER($2) THEN 95
					ELSE 0
				END,
				CASE
					WHEN LOWER(username) LIKE LOWER($3) THEN 90
					WHEN LOWER(first_name) LIKE LOWER($3) THEN 85
					WHEN LOWER(last_name) LIKE LOWER($3) THEN 85
					ELSE 0
				END,
				CASE
					WHEN LOWER(username) LIKE LOWER($1) THEN 70
					WHEN LOWER(first_name) LIKE LOWER($1) THEN 60
					WHEN LOWER(last_name) LIKE LOWER($1) THEN 60
					WHEN LOWER(email) LIKE LOWER($1) THEN 50
					ELSE 0
				END
			) AS similarity_score
		FROM users
		WHERE
			(
				username ILIKE $1 OR
				email ILIKE $1 OR
				first_name ILIKE $1 OR
				last_name ILIKE $1
			)
			AND clerk_id != $4
	) AS scored_users
	WHERE similarity_score >= 30
	ORDER BY similarity_score DESC, username
	LIMIT 50
	`

	rows, err := s.db.Query(ctx, sqlQuery, searchPattern, cleanQuery, startsWithPattern, clerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	users := []*user.User{}
	for rows.Next() {
		u := &user.User{}
		err := rows.Scan(
			&u.ID,
			&u.ClerkID,
			&u.Email,
			&u.Username,
			&u.FirstName,
			&u.LastName,
			&u.ImageURL,
			&u.AuthProvider,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

// GetGlobalLeaderboard ranks everyone by total completed distance, completed
// entry count as tie-break.
func (s *UserService) GetGlobalLeaderboard(ctx context.Context, clerkID string) (*leaderboard.Leaderboard, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	query := `
	SELECT
		u.id AS user_id,
		u.username,
		u.image_url,
		COALESCE(SUM(a.distance_km) FILTER (WHERE a.completed = true), 0) AS total_distance_km,
		COALESCE(COUNT(a.id) FILTER (WHERE a.completed = true), 0) AS completed_count,
		RANK() OVER (
			ORDER BY
				COALESCE(SUM(a.distance_km) FILTER (WHERE a.completed = true), 0) DESC,
				COALESCE(COUNT(a.id) FILTER (WHERE a.completed = true), 0) DESC
		) AS rank
	FROM users u
	LEFT JOIN activity_entries a ON a.user_id = u.id
	GROUP BY u.id, u.username, u.image_url
	ORDER BY rank
	LIMIT 50
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*leaderboard.LeaderboardEntry
	var userPosition *leaderboard.LeaderboardEntry

	for rows.Next() {
		entry := &leaderboard.LeaderboardEntry{}
		err := rows.Scan(
			&entry.UserID,
			&entry.Username,
			&entry.ImageURL,
			&entry.TotalDistanceKM,
			&entry.CompletedCount,
			&entry.Rank,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		entries = append(entries, entry)

		if entry.UserID == userID {
			userPosition = entry
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &leaderboard.Leaderboard{
		Entries:      entries,
		UserPosition: userPosition,
		TotalUsers:   len(entries),
	}, nil
}
