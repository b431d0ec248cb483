package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activityTrackerAPI/handlers"
	"activityTrackerAPI/internal/activity"
	"activityTrackerAPI/internal/stats"
	modelUser "activityTrackerAPI/internal/user"
	"activityTrackerAPI/middleware"
	"activityTrackerAPI/services"
	"activityTrackerAPI/tests/helpers"
)

// TestFullSignUpAndActivityFlow walks a user from Clerk signup through
// logging an activity and reading their stats back.
func TestFullSignUpAndActivityFlow(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	userService := services.NewUserService(pool)
	activityService := services.NewActivityService(pool, notificationService)

	userHandler := handlers.NewUserHandler(userService)
	activityHandler := handlers.NewActivityHandler(activityService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	os.Setenv("CLERK_WEBHOOK_SECRET", "")
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	clerkID := "user_test_" + time.Now().Format("20060102150405")

	// Step 1: user signs up via Clerk webhook
	t.Log("Step 1: User signs up via webhook")

	createPayload := helpers.MockClerkWebhookPayload("user.created", clerkID)
	req1 := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(createPayload))
	rr1 := httptest.NewRecorder()

	webhookHandler.HandleClerkWebhook(rr1, req1)
	assert.Equal(t, http.StatusOK, rr1.Code, "Webhook should succeed")

	// Step 2: user exists in the database
	t.Log("Step 2: Verify user in database")

	ctx := context.Background()
	u, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, "test.user@example.com", u.Email)
	assert.Equal(t, "google", u.AuthProvider)

	// Step 3: user fetches their profile
	t.Log("Step 3: User gets profile")

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
	req2 = req2.WithContext(context.WithValue(req2.Context(), middleware.ClerkIDKey, clerkID))
	rr2 := httptest.NewRecorder()

	userHandler.GetProfile(rr2, req2)
	assert.Equal(t, http.StatusOK, rr2.Code)

	var profile modelUser.User
	require.NoError(t, json.Unmarshal(rr2.Body.Bytes(), &profile))
	assert.Equal(t, u.Email, profile.Email)

	// Step 4: user starts a running activity
	t.Log("Step 4: User creates an activity")

	activityData := `{"kind": "running", "distance_km": 5, "duration": "week"}`
	req3 := httptest.NewRequest(http.MethodPost, "/api/v1/activities", strings.NewReader(activityData))
	req3.Header.Set("Content-Type", "application/json")
	req3 = req3.WithContext(context.WithValue(req3.Context(), middleware.ClerkIDKey, clerkID))
	rr3 := httptest.NewRecorder()

	activityHandler.CreateActivity(rr3, req3)
	require.Equal(t, http.StatusCreated, rr3.Code)

	var created activity.Entry
	require.NoError(t, json.Unmarshal(rr3.Body.Bytes(), &created))
	assert.False(t, created.Completed)
	assert.Equal(t, created.StartDate.Add(7*24*time.Hour), created.EndDate)

	// Step 5: user completes it
	t.Log("Step 5: User completes the activity")

	entry, err := activityService.CompleteEntry(ctx, clerkID, created.ID)
	require.NoError(t, err)
	assert.True(t, entry.Completed)

	// Step 6: stats reflect the completed activity
	t.Log("Step 6: Stats show a one day streak")

	req4 := httptest.NewRequest(http.MethodGet, "/api/v1/user/stats", nil)
	req4 = req4.WithContext(context.WithValue(req4.Context(), middleware.ClerkIDKey, clerkID))
	rr4 := httptest.NewRecorder()

	activityHandler.GetUserStats(rr4, req4)
	assert.Equal(t, http.StatusOK, rr4.Code)

	var userStats stats.UserStats
	require.NoError(t, json.Unmarshal(rr4.Body.Bytes(), &userStats))
	assert.Equal(t, 1, userStats.CurrentStreak)
	assert.Equal(t, stats.RankBeginner, userStats.Rank)
	assert.Equal(t, 1, userStats.CompletedCount)

	// Step 7: user deletes their account
	t.Log("Step 7: User deletes account")

	deletePayload := helpers.MockClerkWebhookPayload("user.deleted", clerkID)
	req5 := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(deletePayload))
	rr5 := httptest.NewRecorder()

	webhookHandler.HandleClerkWebhook(rr5, req5)
	assert.Equal(t, http.StatusOK, rr5.Code)

	_, err = userService.GetUserByClerkID(ctx, clerkID)
	assert.Error(t, err, "user should be gone after deletion")
}
