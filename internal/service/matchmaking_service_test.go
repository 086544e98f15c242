package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/songifi/lyricsflip-matchmaker/internal/matchmaking"
	"github.com/songifi/lyricsflip-matchmaker/internal/models"
	"github.com/songifi/lyricsflip-matchmaker/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type serviceFixture struct {
	svc       *MatchmakingService
	queue     *matchmaking.Queue
	scheduler *matchmaking.Scheduler
	store     *repository.MemoryGameSessionRepository
	now       time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	f := &serviceFixture{now: baseTime}
	clock := func() time.Time { return f.now }

	f.queue = matchmaking.NewQueue(nil)
	f.store = repository.NewMemoryGameSessionRepository()
	f.scheduler = matchmaking.NewScheduler(
		f.queue,
		matchmaking.NewSessionFactory(f.store, "general", models.DifficultyMedium),
		matchmaking.DefaultPolicy(),
		time.Second,
		matchmaking.WithClock(clock),
	)
	f.svc = NewMatchmakingService(f.queue, f.scheduler, f.store, matchmaking.DefaultPolicy(), nil)
	f.svc.now = clock

	t.Cleanup(f.svc.Stop)
	return f
}

func request(playerID string, skill models.SkillLevel) models.CreateMatchmakingRequest {
	return models.CreateMatchmakingRequest{PlayerID: playerID, SkillLevel: skill}
}

func TestRequestMatch_Queued(t *testing.T) {
	f := newServiceFixture(t)

	resp, err := f.svc.RequestMatch(context.Background(), request("p1", "intermediate"))
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, MessageQueued, resp.Message)
	require.NotNil(t, resp.EstimatedWaitTime)
	assert.Equal(t, 60, *resp.EstimatedWaitTime)
	assert.Nil(t, resp.GameSession)

	snap := f.queue.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, models.SkillIntermediate, snap[0].SkillLevel)
	assert.Equal(t, baseTime, snap[0].RequestedAt)
}

func TestRequestMatch_EstimateShrinksWithSimilarPlayers(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	want := []int{60, 45, 30, 15, 15}
	for i, w := range want {
		resp, err := f.svc.RequestMatch(ctx, request(fmt.Sprintf("p%d", i), models.SkillAdvanced))
		require.NoError(t, err)
		assert.Equal(t, w, *resp.EstimatedWaitTime, "player %d", i)
	}
}

func TestRequestMatch_Duplicate(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestMatch(ctx, request("p1", models.SkillBeginner))
	require.NoError(t, err)

	resp, err := f.svc.RequestMatch(ctx, request("p1", models.SkillExpert))
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, strings.ToLower(resp.Message), "already in matchmaking queue")
	assert.Nil(t, resp.EstimatedWaitTime)

	snap := f.queue.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, models.SkillBeginner, snap[0].SkillLevel)
}

func TestRequestMatch_Normalizes(t *testing.T) {
	f := newServiceFixture(t)
	tooLong := 5000

	req := models.CreateMatchmakingRequest{
		PlayerID:   "  p1 ",
		SkillLevel: "Expert",
		Preferences: models.MatchmakingPreferences{
			Categories:     []string{" Pop", "pop", "ROCK"},
			Difficulty:     "hard",
			FriendIDs:      []string{"p2", " p2 ", "p3"},
			MaxWaitSeconds: &tooLong,
		},
	}
	_, err := f.svc.RequestMatch(context.Background(), req)
	require.NoError(t, err)

	snap := f.queue.Snapshot()
	require.Len(t, snap, 1)
	r := snap[0]
	assert.Equal(t, "p1", r.PlayerID)
	assert.Equal(t, models.SkillExpert, r.SkillLevel)
	assert.Equal(t, []string{"pop", "rock"}, r.Preferences.Categories)
	assert.Equal(t, models.DifficultyHard, r.Preferences.Difficulty)
	assert.Equal(t, []string{"p2", "p3"}, r.Preferences.FriendIDs)
	require.NotNil(t, r.Preferences.MaxWaitSeconds)
	assert.Equal(t, models.MaxMaxWaitSeconds, *r.Preferences.MaxWaitSeconds)
}

func TestRequestMatch_Invalid(t *testing.T) {
	tests := []struct {
		name string
		req  models.CreateMatchmakingRequest
	}{
		{"empty player", request("   ", models.SkillBeginner)},
		{"unknown skill", request("p1", "GRANDMASTER")},
		{"empty category", models.CreateMatchmakingRequest{PlayerID: "p1", SkillLevel: models.SkillBeginner,
			Preferences: models.MatchmakingPreferences{Categories: []string{" "}}}},
		{"long category", models.CreateMatchmakingRequest{PlayerID: "p1", SkillLevel: models.SkillBeginner,
			Preferences: models.MatchmakingPreferences{Categories: []string{strings.Repeat("x", 65)}}}},
		{"unknown difficulty", models.CreateMatchmakingRequest{PlayerID: "p1", SkillLevel: models.SkillBeginner,
			Preferences: models.MatchmakingPreferences{Difficulty: "NIGHTMARE"}}},
		{"self as friend", models.CreateMatchmakingRequest{PlayerID: "p1", SkillLevel: models.SkillBeginner,
			Preferences: models.MatchmakingPreferences{FriendIDs: []string{"p1"}}}},
		{"empty friend", models.CreateMatchmakingRequest{PlayerID: "p1", SkillLevel: models.SkillBeginner,
			Preferences: models.MatchmakingPreferences{FriendIDs: []string{""}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)
			_, err := f.svc.RequestMatch(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Equal(t, 0, f.queue.Len())
		})
	}
}

func TestCancelMatch(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestMatch(ctx, request("p1", models.SkillBeginner))
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelMatch(ctx, "p1"))
	assert.ErrorIs(t, f.svc.CancelMatch(ctx, "p1"), ErrNotQueued)
	assert.Equal(t, 0, f.queue.Len())
}

func TestGetStatus(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	status := f.svc.GetStatus()
	assert.Equal(t, 0, status.QueueLength)
	assert.Equal(t, 0.0, status.AverageWaitTime)
	assert.Len(t, status.QueueBySkillLevel, 4)

	_, err := f.svc.RequestMatch(ctx, request("p1", models.SkillBeginner))
	require.NoError(t, err)
	f.now = f.now.Add(20 * time.Second)
	_, err = f.svc.RequestMatch(ctx, request("p2", models.SkillExpert))
	require.NoError(t, err)
	f.now = f.now.Add(10 * time.Second)

	status = f.svc.GetStatus()
	assert.Equal(t, 2, status.QueueLength)
	assert.Equal(t, 1, status.QueueBySkillLevel[models.SkillBeginner])
	assert.Equal(t, 0, status.QueueBySkillLevel[models.SkillIntermediate])
	assert.Equal(t, 1, status.QueueBySkillLevel[models.SkillExpert])
	assert.InDelta(t, 20.0, status.AverageWaitTime, 0.001)
}

func TestGetQueueEntry(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	maxWait := 30

	_, err := f.svc.RequestMatch(ctx, request("p1", models.SkillBeginner))
	require.NoError(t, err)
	_, err = f.svc.RequestMatch(ctx, models.CreateMatchmakingRequest{
		PlayerID:    "p2",
		SkillLevel:  models.SkillIntermediate,
		Preferences: models.MatchmakingPreferences{MaxWaitSeconds: &maxWait},
	})
	require.NoError(t, err)
	f.now = f.now.Add(45 * time.Second)

	entry, err := f.svc.GetQueueEntry("p2")
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Position)
	assert.InDelta(t, 45.0, entry.WaitedSeconds, 0.001)
	assert.Equal(t, 45, entry.EstimatedWaitTime)
	assert.True(t, entry.Relaxed)

	entry, err = f.svc.GetQueueEntry("p1")
	require.NoError(t, err)
	assert.False(t, entry.Relaxed)

	_, err = f.svc.GetQueueEntry("nobody")
	assert.ErrorIs(t, err, ErrNotQueued)
}

func TestSessions_AfterTick(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		_, err := f.svc.RequestMatch(ctx, request(fmt.Sprintf("p%d", i), models.SkillIntermediate))
		require.NoError(t, err)
	}

	result, err := f.scheduler.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, result.Sessions, 1)
	id := result.Sessions[0].ID

	session, err := f.svc.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.GameSessionPending, session.Status)
	assert.Len(t, session.Players, 4)

	sessions, err := f.svc.GetSessionsByPlayer(ctx, "p3")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, id, sessions[0].ID)

	none, err := f.svc.GetSessionsByPlayer(ctx, "stranger")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	updated, err := f.svc.UpdateSessionStatus(ctx, id, "active")
	require.NoError(t, err)
	assert.Equal(t, models.GameSessionActive, updated.Status)

	_, err = f.svc.UpdateSessionStatus(ctx, id, "FINISHED")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestSessions_NotFound(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetSession(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.svc.GetSession(ctx, "3f1d2c8e-1c3a-4f0e-9d7a-3b2a1c0d9e8f")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.svc.UpdateSessionStatus(ctx, "3f1d2c8e-1c3a-4f0e-9d7a-3b2a1c0d9e8f", models.GameSessionCanceled)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
