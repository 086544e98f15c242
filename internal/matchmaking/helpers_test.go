package matchmaking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/songifi/lyricsflip-matchmaker/internal/models"
)

var baseTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type requestOption func(*models.MatchRequest)

func newRequest(id string, skill models.SkillLevel, offset time.Duration, opts ...requestOption) models.MatchRequest {
	r := models.MatchRequest{
		PlayerID:    id,
		SkillLevel:  skill,
		RequestedAt: baseTime.Add(offset),
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func withCategories(categories ...string) requestOption {
	return func(r *models.MatchRequest) {
		r.Preferences.Categories = categories
	}
}

func withDifficulty(d models.Difficulty) requestOption {
	return func(r *models.MatchRequest) {
		r.Preferences.Difficulty = d
	}
}

func withFriends(ids ...string) requestOption {
	return func(r *models.MatchRequest) {
		r.Preferences.FriendIDs = ids
	}
}

func withMaxWait(seconds int) requestOption {
	return func(r *models.MatchRequest) {
		r.Preferences.MaxWaitSeconds = &seconds
	}
}

func groupIDs(groups []Group) [][]string {
	out := make([][]string, len(groups))
	for i, g := range groups {
		out[i] = g.PlayerIDs()
	}
	return out
}

// fakeSessionStore 세션 생성 기록 및 실패 주입
type fakeSessionStore struct {
	mu       sync.Mutex
	sessions []*models.GameSession
	failFor  map[string]bool // 이 플레이어가 포함되면 실패
	stallFor map[string]bool // 이 플레이어가 포함되면 ctx 가 끝날 때까지 대기
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{failFor: make(map[string]bool), stallFor: make(map[string]bool)}
}

func (f *fakeSessionStore) CreateSession(ctx context.Context, players []string, category string, difficulty models.Difficulty) (*models.GameSession, error) {
	if f.stalls(players) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range players {
		if f.failFor[p] {
			return nil, errors.New("session store unavailable")
		}
	}

	s := &models.GameSession{
		ID:         uuid.New().String(),
		Players:    append([]string(nil), players...),
		Category:   category,
		Difficulty: difficulty,
		Status:     models.GameSessionPending,
		CreatedAt:  baseTime,
		UpdatedAt:  baseTime,
	}
	f.sessions = append(f.sessions, s)
	return s, nil
}

func (f *fakeSessionStore) stalls(players []string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range players {
		if f.stallFor[p] {
			return true
		}
	}
	return false
}

func (f *fakeSessionStore) created() []*models.GameSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.GameSession(nil), f.sessions...)
}

type recordingNotifier struct {
	mu       sync.Mutex
	sessions []*models.GameSession
}

func (n *recordingNotifier) SessionCreated(_ context.Context, s *models.GameSession) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sessions = append(n.sessions, s)
}

// manualClock 테스트에서 시간을 직접 전진
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
