package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/songifi/lyricsflip-matchmaker/internal/models"
	"github.com/songifi/lyricsflip-matchmaker/pkg/database"
)

const gameSessionSchema = `
	CREATE TABLE IF NOT EXISTS game_sessions (
		id          UUID PRIMARY KEY,
		players     TEXT[] NOT NULL,
		category    VARCHAR(64) NOT NULL,
		difficulty  VARCHAR(16) NOT NULL,
		status      VARCHAR(16) NOT NULL DEFAULT 'PENDING',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_game_sessions_players ON game_sessions USING GIN (players);
`

const gameSessionColumns = `id, players, category, difficulty, status, created_at, updated_at`

// GameSessionRepository PostgreSQL 세션 저장소
type GameSessionRepository struct {
	db *database.DB
}

func NewGameSessionRepository(db *database.DB) *GameSessionRepository {
	return &GameSessionRepository{db: db}
}

// Migrate game_sessions 테이블 생성
func (r *GameSessionRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, gameSessionSchema); err != nil {
		return fmt.Errorf("failed to migrate game_sessions: %w", err)
	}
	return nil
}

// CreateSession 새 세션 생성
func (r *GameSessionRepository) CreateSession(ctx context.Context, players []string, category string, difficulty models.Difficulty) (*models.GameSession, error) {
	s := newPendingSession(players, category, difficulty, time.Now().UTC())

	query := `
		INSERT INTO game_sessions (id, players, category, difficulty, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + gameSessionColumns

	session, err := scanSession(r.db.QueryRowContext(ctx, query,
		s.ID,
		pq.Array(s.Players),
		s.Category,
		s.Difficulty,
		s.Status,
		s.CreatedAt,
		s.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create game session: %w", err)
	}
	return session, nil
}

// GetSession ID로 세션 조회
func (r *GameSessionRepository) GetSession(ctx context.Context, id string) (*models.GameSession, error) {
	query := `SELECT ` + gameSessionColumns + ` FROM game_sessions WHERE id = $1`

	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game session: %w", err)
	}
	return session, nil
}

// GetSessionsByPlayer 플레이어가 참가한 세션 목록 (최신순)
func (r *GameSessionRepository) GetSessionsByPlayer(ctx context.Context, playerID string) ([]models.GameSession, error) {
	query := `
		SELECT ` + gameSessionColumns + `
		FROM game_sessions
		WHERE $1 = ANY(players)
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.GameSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// UpdateStatus 세션 상태 변경
func (r *GameSessionRepository) UpdateStatus(ctx context.Context, id string, status models.GameSessionStatus) (*models.GameSession, error) {
	query := `
		UPDATE game_sessions
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + gameSessionColumns

	session, err := scanSession(r.db.QueryRowContext(ctx, query, id, status))
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update game session status: %w", err)
	}
	return session, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.GameSession, error) {
	s := &models.GameSession{}
	var players pq.StringArray
	err := row.Scan(
		&s.ID,
		&players,
		&s.Category,
		&s.Difficulty,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Players = []string(players)
	return s, nil
}
