package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"activityTrackerAPI/internal/notification"
)

// PushProvider delivers a notification to a user's registered devices. FCM
// in production, nil or a mock in tests.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

type NotificationService struct {
	db           *pgxpool.Pool
	pushProvider PushProvider
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) SetPushProvider(provider PushProvider) {
	s.pushProvider = provider
}

// CreateNotification stores an in-app notification and pushes it to the
// user's devices in the background.
func (s *NotificationService) CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error) {
	dataJSON, err := json.Marshal(req.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification data: %w", err)
	}

	query := `
	INSERT INTO notifications (id, user_id, type, title, message, is_read, data, created_at)
	VALUES ($1, $2, $3, $4, $5, false, $6, NOW())
	RETURNING id, user_id, type, title, message, is_read, created_at
	`

	notif := &notification.Notification{Data: req.Data}
	err = s.db.QueryRow(
		ctx, query,
		uuid.New(), req.UserID, req.Type, req.Title, req.Message, dataJSON,
	).Scan(
		&notif.ID,
		&notif.UserID,
		&notif.Type,
		&notif.Title,
		&notif.Message,
		&notif.IsRead,
		&notif.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if s.pushProvider != nil {
		go s.pushToDevices(notif)
	}

	return notif, nil
}

func (s *NotificationService) pushToDevices(notif *notification.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tokens, err := s.getDeviceTokens(ctx, notif.UserID)
	if err != nil {
		log.Printf("Push: failed to load device tokens for %s: %v", notif.UserID, err)
		return
	}

	if err := s.pushProvider.SendPush(ctx, tokens, notif.Title, notif.Message, notif.Data); err != nil {
		log.Printf("Push: delivery failed for notification %s: %v", notif.ID, err)
	}
}

func (s *NotificationService) getDeviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `SELECT token, platform FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *NotificationService) GetNotifications(ctx context.Context, clerkID string, unreadOnly bool) (*notification.NotificationListResponse, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	query := `
	SELECT id, user_id, type, title, message, is_read, data, created_at
	FROM notifications
	WHERE user_id = $1
	`
	if unreadOnly {
		query += " AND is_read = false"
	}
	query += " ORDER BY created_at DESC LIMIT 100"

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*notification.Notification{}
	for rows.Next() {
		notif := &notification.Notification{}
		var dataJSON []byte
		err := rows.Scan(
			&notif.ID,
			&notif.UserID,
			&notif.Type,
			&notif.Title,
			&notif.Message,
			&notif.IsRead,
			&dataJSON,
			&notif.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, &notif.Data); err != nil {
				log.Printf("Notification %s: bad data payload: %v", notif.ID, err)
			}
		}
		notifications = append(notifications, notif)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	unread, err := s.GetUnreadCount(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	return &notification.NotificationListResponse{
		Notifications: notifications,
		UnreadCount:   unread,
	}, nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, clerkID string) (int, error) {
	query := `
	SELECT COUNT(*)
	FROM notifications n
	JOIN users u ON u.id = n.user_id
	WHERE u.clerk_id = $1 AND n.is_read = false
	`

	var count int
	if err := s.db.QueryRow(ctx, query, clerkID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID uuid.UUID, clerkID string) error {
	query := `
	UPDATE notifications n
	SET is_read = true
	FROM users u
	WHERE n.id = $1 AND n.user_id = u.id AND u.clerk_id = $2
	`

	result, err := s.db.Exec(ctx, query, notificationID, clerkID)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, clerkID string) error {
	query := `
	UPDATE notifications n
	SET is_read = true
	FROM users u
	WHERE n.user_id = u.id AND u.clerk_id = $1 AND n.is_read = false
	`

	if _, err := s.db.Exec(ctx, query, clerkID); err != nil {
		return fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return nil
}

func (s *NotificationService) DeleteNotification(ctx context.Context, notificationID uuid.UUID, clerkID string) error {
	query := `
	DELETE FROM notifications n
	USING users u
	WHERE n.id = $1 AND n.user_id = u.id AND u.clerk_id = $2
	`

	result, err := s.db.Exec(ctx, query, notificationID, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req *notification.RegisterDeviceRequest) error {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("user not found")
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	query := `
	INSERT INTO device_tokens (user_id, token, platform, created_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (token)
	DO UPDATE SET user_id = $1, platform = $3
	`

	if _, err := s.db.Exec(ctx, query, userID, req.Token, req.Platform); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}
