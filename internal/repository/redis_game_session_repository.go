package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/songifi/lyricsflip-matchmaker/internal/models"
	"github.com/songifi/lyricsflip-matchmaker/pkg/distributed"
)

// RedisGameSessionRepository Redis 세션 저장소. 여러 인스턴스가 공유할 수 있다.
//
//	session:{id}               세션 JSON
//	player:{playerId}:sessions 세션 id Sorted Set (score = 생성 시각)
type RedisGameSessionRepository struct {
	client *redis.Client
	prefix string
	locker *distributed.Locker
}

func NewRedisGameSessionRepository(client *redis.Client, prefix string) *RedisGameSessionRepository {
	return &RedisGameSessionRepository{
		client: client,
		prefix: prefix,
		locker: distributed.NewLocker(client, prefix+"lock:session:"),
	}
}

func (r *RedisGameSessionRepository) sessionKey(id string) string {
	return fmt.Sprintf("%ssession:%s", r.prefix, id)
}

func (r *RedisGameSessionRepository) playerKey(playerID string) string {
	return fmt.Sprintf("%splayer:%s:sessions", r.prefix, playerID)
}

// CreateSession 세션과 플레이어 인덱스를 하나의 트랜잭션으로 기록
func (r *RedisGameSessionRepository) CreateSession(ctx context.Context, players []string, category string, difficulty models.Difficulty) (*models.GameSession, error) {
	session := newPendingSession(players, category, difficulty, time.Now().UTC())

	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal game session: %w", err)
	}

	score := float64(session.CreatedAt.UnixNano())
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.sessionKey(session.ID), data, 0)
		for _, p := range session.Players {
			pipe.ZAdd(ctx, r.playerKey(p), redis.Z{Score: score, Member: session.ID})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create game session: %w", err)
	}
	return session, nil
}

func (r *RedisGameSessionRepository) GetSession(ctx context.Context, id string) (*models.GameSession, error) {
	data, err := r.client.Get(ctx, r.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game session: %w", err)
	}

	var session models.GameSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game session: %w", err)
	}
	return &session, nil
}

// GetSessionsByPlayer 최신 세션부터
func (r *RedisGameSessionRepository) GetSessionsByPlayer(ctx context.Context, playerID string) ([]models.GameSession, error) {
	ids, err := r.client.ZRevRange(ctx, r.playerKey(playerID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get player sessions: %w", err)
	}

	sessions := []models.GameSession{}
	if len(ids) == 0 {
		return sessions, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.sessionKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get game sessions: %w", err)
	}

	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var s models.GameSession
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal game session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// UpdateStatus 세션 락을 잡고 읽은 뒤 덮어쓴다
func (r *RedisGameSessionRepository) UpdateStatus(ctx context.Context, id string, status models.GameSessionStatus) (*models.GameSession, error) {
	var updated *models.GameSession
	err := r.locker.WithLock(ctx, id, func() error {
		session, err := r.GetSession(ctx, id)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrSessionNotFound
		}

		session.Status = status
		session.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to marshal game session: %w", err)
		}
		if err := r.client.Set(ctx, r.sessionKey(id), data, 0).Err(); err != nil {
			return fmt.Errorf("failed to update game session status: %w", err)
		}
		updated = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
