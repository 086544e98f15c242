package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/songifi/lyricsflip-matchmaker/internal/models"
)

// MemoryGameSessionRepository 단일 프로세스용 인메모리 세션 저장소
type MemoryGameSessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*models.GameSession
	byPlayer map[string][]string // playerId -> sessionIds (생성 순)
}

func NewMemoryGameSessionRepository() *MemoryGameSessionRepository {
	return &MemoryGameSessionRepository{
		sessions: make(map[string]*models.GameSession),
		byPlayer: make(map[string][]string),
	}
}

func (r *MemoryGameSessionRepository) CreateSession(ctx context.Context, players []string, category string, difficulty models.Difficulty) (*models.GameSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	session := newPendingSession(players, category, difficulty, time.Now().UTC())

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = session
	for _, p := range session.Players {
		r.byPlayer[p] = append(r.byPlayer[p], session.ID)
	}
	return copySession(session), nil
}

func (r *MemoryGameSessionRepository) GetSession(_ context.Context, id string) (*models.GameSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	return copySession(s), nil
}

// GetSessionsByPlayer 최신 세션부터
func (r *MemoryGameSessionRepository) GetSessionsByPlayer(_ context.Context, playerID string) ([]models.GameSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byPlayer[playerID]
	out := make([]models.GameSession, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, *copySession(r.sessions[ids[i]]))
	}
	return out, nil
}

func (r *MemoryGameSessionRepository) UpdateStatus(_ context.Context, id string, status models.GameSessionStatus) (*models.GameSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.Status = status
	s.UpdatedAt = time.Now().UTC()
	return copySession(s), nil
}

func copySession(s *models.GameSession) *models.GameSession {
	c := *s
	c.Players = slices.Clone(s.Players)
	return &c
}
