package progress

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activityTrackerAPI/internal/activity"
	"activityTrackerAPI/internal/challenge"
)

type participantKey struct {
	challengeID uuid.UUID
	userID      uuid.UUID
}

type memStore struct {
	challenges   map[uuid.UUID]*challenge.Challenge
	activities   map[uuid.UUID]*activity.Entry
	participants map[participantKey]*challenge.Participant
}

func newMemStore() *memStore {
	return &memStore{
		challenges:   make(map[uuid.UUID]*challenge.Challenge),
		activities:   make(map[uuid.UUID]*activity.Entry),
		participants: make(map[participantKey]*challenge.Participant),
	}
}

func (m *memStore) GetChallenge(_ context.Context, id uuid.UUID) (*challenge.Challenge, error) {
	ch, ok := m.challenges[id]
	if !ok {
		return nil, fmt.Errorf("challenge %s not found", id)
	}
	return ch, nil
}

func (m *memStore) GetActivity(_ context.Context, id uuid.UUID) (*activity.Entry, error) {
	entry, ok := m.activities[id]
	if !ok {
		return nil, fmt.Errorf("activity %s not found", id)
	}
	return entry, nil
}

func (m *memStore) GetParticipant(_ context.Context, challengeID, userID uuid.UUID) (*challenge.Participant, error) {
	p, ok := m.participants[participantKey{challengeID, userID}]
	if !ok {
		return nil, fmt.Errorf("participant %s not found", userID)
	}
	copied := *p
	copied.Progress = append([]challenge.DailyProgress(nil), p.Progress...)
	return &copied, nil
}

func (m *memStore) SaveParticipant(_ context.Context, p *challenge.Participant) error {
	copied := *p
	copied.Progress = append([]challenge.DailyProgress(nil), p.Progress...)
	m.participants[participantKey{p.ChallengeID, p.UserID}] = &copied
	return nil
}

func (m *memStore) ListParticipants(_ context.Context, challengeID uuid.UUID) ([]*challenge.Participant, error) {
	var out []*challenge.Participant
	for key, p := range m.participants {
		if key.challengeID == challengeID {
			out = append(out, p)
		}
	}
	return out, nil
}

type hookRecorder struct {
	activated []uuid.UUID
	eligible  []uuid.UUID
	err       error
}

func (h *hookRecorder) ChallengeActivated(_ context.Context, challengeID uuid.UUID) error {
	h.activated = append(h.activated, challengeID)
	return h.err
}

func (h *hookRecorder) CompletionEligible(_ context.Context, _, userID uuid.UUID, _ float64) error {
	h.eligible = append(h.eligible, userID)
	return h.err
}

// fixture seeds one challenge with a 10km target activity and two pending
// assignees.
type fixture struct {
	store       *memStore
	hooks       *hookRecorder
	agg         *Aggregator
	challengeID uuid.UUID
	userA       uuid.UUID
	userB       uuid.UUID
}

func newFixture(t *testing.T, ended bool) *fixture {
	t.Helper()

	store := newMemStore()
	hooks := &hookRecorder{}
	agg := NewAggregator(store, hooks)

	now := time.Date(2025, 4, 28, 0, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return now }

	end := EndDate(now, challenge.DurationWeek)
	if ended {
		end = now.Add(-time.Hour)
	}

	activityID := uuid.New()
	store.activities[activityID] = &activity.Entry{
		ID:         activityID,
		Kind:       "Running",
		DistanceKM: 10,
	}

	challengeID := uuid.New()
	store.challenges[challengeID] = &challenge.Challenge{
		ID:         challengeID,
		ActivityID: activityID,
		Title:      "Run 10km",
		Status:     challenge.StatusPending,
		Duration:   challenge.DurationWeek,
		StartDate:  now,
		EndDate:    end,
	}

	userA := uuid.New()
	userB := uuid.New()
	for _, id := range []uuid.UUID{userA, userB} {
		require.NoError(t, store.SaveParticipant(context.Background(), &challenge.Participant{
			ChallengeID: challengeID,
			UserID:      id,
			Status:      challenge.ResponsePending,
		}))
	}

	return &fixture{store: store, hooks: hooks, agg: agg, challengeID: challengeID, userA: userA, userB: userB}
}

func TestRespondAgreeActivatesParticipant(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	p, err := f.agg.Respond(ctx, f.challengeID, f.userA, ResponseAgree, "")
	require.NoError(t, err)
	assert.Equal(t, challenge.ResponseActive, p.Status)
	assert.Equal(t, []uuid.UUID{f.challengeID}, f.hooks.activated)
}

func TestRespondSecondCallFails(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.agg.Respond(ctx, f.challengeID, f.userA, ResponseAgree, "")
	require.NoError(t, err)

	_, err = f.agg.Respond(ctx, f.challengeID, f.userA, ResponseAgree, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.agg.Respond(ctx, f.challengeID, f.userA, ResponseReject, "changed my mind")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRespondRejectKeepsReason(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	p, err := f.agg.Respond(ctx, f.challengeID, f.userA, ResponseReject, "knee injury")
	require.NoError(t, err)
	assert.Equal(t, challenge.ResponseRejected, p.Status)
	require.NotNil(t, p.ResponseReason)
	assert.Equal(t, "knee injury", *p.ResponseReason)
	assert.Empty(t, f.hooks.activated)
}

func TestRespondActivationFiresOnce(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.agg.Respond(ctx, f.challengeID, f.userA, ResponseAgree, "")
	require.NoError(t, err)
	_, err = f.agg.Respond(ctx, f.challengeID, f.userB, ResponseAgree, "")
	require.NoError(t, err)

	assert.Len(t, f.hooks.activated, 1)
}

func TestSubmitProgressRequiresActive(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.agg.SubmitProgress(ctx, f.challengeID, f.userA, 3, f.agg.now(), nil, nil)
	assert.ErrorIs(t, err, ErrNotActiveParticipant)

	_, err = f.agg.Respond(ctx, f.challengeID, f.userA, ResponseSkip, "")
	require.NoError(t, err)

	_, err = f.agg.SubmitProgress(ctx, f.challengeID, f.userA, 3, f.agg.now(), nil, nil)
	assert.ErrorIs(t, err, ErrNotActiveParticipant)
}

func TestSubmitProgressRejectsBadDistance(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.agg.Respond(ctx, f.challengeID, f.userA, ResponseAgree, "")
	require.NoError(t, err)

	for _, d := range []float64{0, -2.5, math.NaN(), math.Inf(1)} {
		_, err = f.agg.SubmitProgress(ctx, f.challengeID, f.userA, d, f.agg.now(), nil, nil)
		assert.ErrorIs(t, err, ErrInvalidDistance, "distance %v", d)
	}
}

func TestSubmitProgressAccumulatesAndSignalsCompletion(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.agg.Respond(ctx, f.challengeID, f.userA, ResponseAgree, "")
	require.NoError(t, err)

	p, err := f.agg.SubmitProgress(ctx, f.challengeID, f.userA, 4, f.agg.now(), nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, 4, p.TotalDistance(), 1e-9)
	assert.Empty(t, f.hooks.eligible, "below the 10km target")

	p, err = f.agg.SubmitProgress(ctx, f.challengeID, f.userA, 6, f.agg.now(), nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, 10, p.TotalDistance(), 1e-9)
	assert.Equal(t, []uuid.UUID{f.userA}, f.hooks.eligible)
}

func TestHookFailuresDoNotSurface(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.hooks.err = errors.New("push service down")

	p, err := f.agg.Respond(ctx, f.challengeID, f.userA, ResponseAgree, "")
	require.NoError(t, err)
	assert.Equal(t, challenge.ResponseActive, p.Status)

	stored, err := f.store.GetParticipant(ctx, f.challengeID, f.userA)
	require.NoError(t, err)
	assert.Equal(t, challenge.ResponseActive, stored.Status)

	p, err = f.agg.SubmitProgress(ctx, f.challengeID, f.userA, 12, f.agg.now(), nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, 12, p.TotalDistance(), 1e-9)
	assert.Equal(t, []uuid.UUID{f.userA}, f.hooks.eligible)

	stored, err = f.store.GetParticipant(ctx, f.challengeID, f.userA)
	require.NoError(t, err)
	assert.InDelta(t, 12, stored.TotalDistance(), 1e-9)
}

func TestWinnerBeforeEnd(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.agg.Winner(ctx, f.challengeID)
	assert.ErrorIs(t, err, ErrNoWinner)
}

func TestWinnerNoProgress(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.agg.Winner(ctx, f.challengeID)
	assert.ErrorIs(t, err, ErrNoWinner)
}

func (f *fixture) seedProgress(t *testing.T, userID uuid.UUID, distances ...float64) {
	t.Helper()
	ctx := context.Background()
	p, err := f.store.GetParticipant(ctx, f.challengeID, userID)
	require.NoError(t, err)
	p.Status = challenge.ResponseActive
	for _, d := range distances {
		p.Progress = append(p.Progress, challenge.DailyProgress{Date: f.agg.now(), DistanceKM: d})
	}
	require.NoError(t, f.store.SaveParticipant(ctx, p))
}

func TestWinnerGreatestDistance(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	f.seedProgress(t, f.userA, 5, 3)
	f.seedProgress(t, f.userB, 6)

	winner, err := f.agg.Winner(ctx, f.challengeID)
	require.NoError(t, err)
	assert.Equal(t, f.userA, winner)
}

func TestWinnerTieBreaksLexically(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	f.seedProgress(t, f.userA, 6)
	f.seedProgress(t, f.userB, 2, 4)

	expected := f.userA
	if f.userB.String() < f.userA.String() {
		expected = f.userB
	}

	winner, err := f.agg.Winner(ctx, f.challengeID)
	require.NoError(t, err)
	assert.Equal(t, expected, winner)
}
