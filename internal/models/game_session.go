package models

import "time"

type GameSessionStatus string

const (
	GameSessionPending   GameSessionStatus = "PENDING"
	GameSessionActive    GameSessionStatus = "ACTIVE"
	GameSessionCompleted GameSessionStatus = "COMPLETED"
	GameSessionCanceled  GameSessionStatus = "CANCELED"
)

func (s GameSessionStatus) Valid() bool {
	switch s {
	case GameSessionPending, GameSessionActive, GameSessionCompleted, GameSessionCanceled:
		return true
	}
	return false
}

type GameSession struct {
	ID         string            `json:"id" db:"id"`
	Players    []string          `json:"players" db:"players"`
	Category   string            `json:"category" db:"category"`
	Difficulty Difficulty        `json:"difficulty" db:"difficulty"`
	Status     GameSessionStatus `json:"status" db:"status"`
	CreatedAt  time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time         `json:"updatedAt" db:"updated_at"`
}

// HasPlayer 세션 참가 여부
func (s *GameSession) HasPlayer(playerID string) bool {
	for _, p := range s.Players {
		if p == playerID {
			return true
		}
	}
	return false
}

type UpdateSessionStatusRequest struct {
	Status GameSessionStatus `json:"status" binding:"required"`
}
