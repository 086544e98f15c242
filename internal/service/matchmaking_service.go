package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/songifi/lyricsflip-matchmaker/internal/matchmaking"
	"github.com/songifi/lyricsflip-matchmaker/internal/models"
	"github.com/songifi/lyricsflip-matchmaker/internal/repository"
	"go.uber.org/zap"
)

const (
	MessageQueued        = "Added to matchmaking queue"
	MessageAlreadyQueued = "Player is already in matchmaking queue"
	MessageCancelled     = "Matchmaking request cancelled"
)

// MatchmakingService HTTP 핸들러와 매칭 코어 사이의 진입점.
// 요청 검증, 큐 조회, 세션 저장소 위임을 담당하고 매칭 자체는 Scheduler 가 한다.
type MatchmakingService struct {
	queue     *matchmaking.Queue
	scheduler *matchmaking.Scheduler
	store     repository.GameSessionStore
	policy    matchmaking.Policy
	logger    *zap.Logger
	now       func() time.Time
}

func NewMatchmakingService(
	queue *matchmaking.Queue,
	scheduler *matchmaking.Scheduler,
	store repository.GameSessionStore,
	policy matchmaking.Policy,
	logger *zap.Logger,
) *MatchmakingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchmakingService{
		queue:     queue,
		scheduler: scheduler,
		store:     store,
		policy:    policy,
		logger:    logger,
		now:       time.Now,
	}
}

// Start 매칭 스케줄러 시작
func (s *MatchmakingService) Start() {
	s.scheduler.Start()
}

// Stop 진행 중인 틱이 끝난 뒤 스케줄러와 큐를 종료
func (s *MatchmakingService) Stop() {
	s.scheduler.Stop()
	s.queue.Close()
}

// RequestMatch 매칭 큐에 등록.
// 이미 대기 중이면 에러 대신 success=false 응답을 반환한다.
func (s *MatchmakingService) RequestMatch(ctx context.Context, req models.CreateMatchmakingRequest) (*models.MatchmakingResponse, error) {
	request, err := normalizeRequest(req)
	if err != nil {
		return nil, err
	}
	request.RequestedAt = s.now().UTC()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var estimate int
	var enqueueErr error
	err = s.queue.Exec(ctx, func(tx *matchmaking.QueueTxn) {
		if enqueueErr = tx.Enqueue(request); enqueueErr != nil {
			return
		}
		estimate = matchmaking.EstimateWait(request, tx.Snapshot(), s.policy.MaxSkillDifference)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue match request: %w", err)
	}

	if errors.Is(enqueueErr, matchmaking.ErrDuplicateRequest) {
		s.logger.Debug("Duplicate matchmaking request", zap.String("playerId", request.PlayerID))
		return &models.MatchmakingResponse{
			Success: false,
			Message: MessageAlreadyQueued,
		}, nil
	}
	if enqueueErr != nil {
		return nil, fmt.Errorf("failed to enqueue match request: %w", enqueueErr)
	}

	s.logger.Info("Player queued for matchmaking",
		zap.String("playerId", request.PlayerID),
		zap.String("skillLevel", string(request.SkillLevel)),
		zap.Strings("categories", request.Preferences.Categories),
		zap.Int("friends", len(request.Preferences.FriendIDs)),
		zap.Int("estimatedWaitTime", estimate))

	return &models.MatchmakingResponse{
		Success:           true,
		Message:           MessageQueued,
		EstimatedWaitTime: &estimate,
	}, nil
}

// CancelMatch 대기 중인 요청 제거. 없으면 ErrNotQueued.
func (s *MatchmakingService) CancelMatch(_ context.Context, playerID string) error {
	if !s.queue.Cancel(playerID) {
		return fmt.Errorf("%w: %s", ErrNotQueued, playerID)
	}

	s.logger.Info("Matchmaking request cancelled", zap.String("playerId", playerID))
	return nil
}

// GetStatus 큐 길이, 스킬별 인원, 평균 대기 시간
func (s *MatchmakingService) GetStatus() models.QueueStatus {
	snapshot := s.queue.Snapshot()

	bySkill := make(map[models.SkillLevel]int, len(models.SkillLevels))
	for _, level := range models.SkillLevels {
		bySkill[level] = 0
	}
	for _, r := range snapshot {
		bySkill[r.SkillLevel]++
	}

	return models.QueueStatus{
		QueueLength:       len(snapshot),
		QueueBySkillLevel: bySkill,
		AverageWaitTime:   matchmaking.AverageWait(snapshot, s.now()),
	}
}

// GetQueueEntry 플레이어의 대기 순번과 예상 시간
func (s *MatchmakingService) GetQueueEntry(playerID string) (*models.QueueEntry, error) {
	snapshot := s.queue.Snapshot()
	now := s.now()

	for i, r := range snapshot {
		if r.PlayerID != playerID {
			continue
		}
		return &models.QueueEntry{
			Request:           r,
			Position:          i + 1,
			WaitedSeconds:     now.Sub(r.RequestedAt).Seconds(),
			EstimatedWaitTime: matchmaking.EstimateWait(r, snapshot, s.policy.MaxSkillDifference),
			Relaxed:           r.Relaxed(now),
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotQueued, playerID)
}

// GetSession 세션 조회
func (s *MatchmakingService) GetSession(ctx context.Context, sessionID string) (*models.GameSession, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, ErrSessionNotFound
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// GetSessionsByPlayer 플레이어가 참가한 세션 목록
func (s *MatchmakingService) GetSessionsByPlayer(ctx context.Context, playerID string) ([]models.GameSession, error) {
	sessions, err := s.store.GetSessionsByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game sessions: %w", err)
	}
	if sessions == nil {
		sessions = []models.GameSession{}
	}
	return sessions, nil
}

// UpdateSessionStatus 세션 상태 변경 (외부 세션 수명주기 관리용)
func (s *MatchmakingService) UpdateSessionStatus(ctx context.Context, sessionID string, raw models.GameSessionStatus) (*models.GameSession, error) {
	status, err := parseStatus(raw)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, ErrSessionNotFound
	}

	session, err := s.store.UpdateStatus(ctx, sessionID, status)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update game session status: %w", err)
	}

	s.logger.Info("Game session status updated",
		zap.String("sessionId", sessionID),
		zap.String("status", string(status)))
	return session, nil
}

// QueueLength 헬스 체크용
func (s *MatchmakingService) QueueLength() int {
	return s.queue.Len()
}

// SchedulerPhase 헬스 체크용
func (s *MatchmakingService) SchedulerPhase() string {
	return s.scheduler.Phase().String()
}
