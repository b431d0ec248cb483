package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activityTrackerAPI/handlers"
	"activityTrackerAPI/internal/activity"
	modelUser "activityTrackerAPI/internal/user"
	"activityTrackerAPI/middleware"
	"activityTrackerAPI/services"
	"activityTrackerAPI/tests/helpers"
)

// TestStoppedEntriesLeaveActiveListing covers the stop flow: a stopped entry
// drops out of the active listing, stays in history, and can no longer be
// completed.
func TestStoppedEntriesLeaveActiveListing(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	userService := services.NewUserService(pool)
	activityService := services.NewActivityService(pool, notificationService)
	activityHandler := handlers.NewActivityHandler(activityService)

	ctx := context.Background()
	clerkID := "user_test_stop_" + time.Now().Format("20060102150405")

	_, err := userService.CreateUser(ctx, &modelUser.CreateUserRequest{
		ClerkID:  clerkID,
		Email:    "test.stop@example.com",
		Username: "stopuser",
	})
	require.NoError(t, err)

	kept, err := activityService.CreateEntry(ctx, clerkID, &activity.CreateEntryRequest{
		Kind:       "running",
		DistanceKM: 5,
		Duration:   "week",
	})
	require.NoError(t, err)

	abandoned, err := activityService.CreateEntry(ctx, clerkID, &activity.CreateEntryRequest{
		Kind:       "cycling",
		DistanceKM: 20,
		Duration:   "month",
	})
	require.NoError(t, err)

	stopped, err := activityService.StopEntry(ctx, clerkID, abandoned.ID)
	require.NoError(t, err)
	assert.True(t, stopped.Stopped)

	// Active listing only shows the kept entry.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/activities", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.ClerkIDKey, clerkID))
	rr := httptest.NewRecorder()

	activityHandler.GetActivities(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var active []activity.Entry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &active))
	require.Len(t, active, 1)
	assert.Equal(t, kept.ID, active[0].ID)

	// History still shows both.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/activities/history", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.ClerkIDKey, clerkID))
	rr = httptest.NewRecorder()

	activityHandler.GetHistory(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var history []activity.Entry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &history))
	assert.Len(t, history, 2)

	// A stopped entry cannot be completed.
	_, err = activityService.CompleteEntry(ctx, clerkID, abandoned.ID)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not found"))

	// The kept entry still completes normally.
	completed, err := activityService.CompleteEntry(ctx, clerkID, kept.ID)
	require.NoError(t, err)
	assert.True(t, completed.Completed)
}
