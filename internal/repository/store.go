package repository

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/songifi/lyricsflip-matchmaker/internal/models"
)

var ErrSessionNotFound = errors.New("game session not found")

// GameSessionStore 게임 세션 저장소.
// 조회 결과가 없으면 nil, nil 을 반환한다 (UpdateStatus 는 ErrSessionNotFound).
type GameSessionStore interface {
	CreateSession(ctx context.Context, players []string, category string, difficulty models.Difficulty) (*models.GameSession, error)
	GetSession(ctx context.Context, id string) (*models.GameSession, error)
	GetSessionsByPlayer(ctx context.Context, playerID string) ([]models.GameSession, error)
	UpdateStatus(ctx context.Context, id string, status models.GameSessionStatus) (*models.GameSession, error)
}

// newPendingSession 새 id 와 PENDING 상태로 세션 생성
func newPendingSession(players []string, category string, difficulty models.Difficulty, now time.Time) *models.GameSession {
	return &models.GameSession{
		ID:         uuid.New().String(),
		Players:    slices.Clone(players),
		Category:   category,
		Difficulty: difficulty,
		Status:     models.GameSessionPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
