package matchmaking

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/songifi/lyricsflip-matchmaker/internal/models"
	"go.uber.org/zap"
)

const DefaultInterval = 5 * time.Second

type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseSnapshotting
	PhaseFriendGroups
	PhaseSkillGroups
	PhaseTimeouts
	PhaseCommitting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSnapshotting:
		return "snapshotting"
	case PhaseFriendGroups:
		return "resolving_friend_groups"
	case PhaseSkillGroups:
		return "resolving_skill_groups"
	case PhaseTimeouts:
		return "resolving_timeouts"
	case PhaseCommitting:
		return "committing"
	}
	return "unknown"
}

// SessionNotifier 세션 생성 이벤트 수신자 (웹소켓 허브, Redis pub/sub 등)
type SessionNotifier interface {
	SessionCreated(ctx context.Context, session *models.GameSession)
}

// TickResult 한 틱의 결과
type TickResult struct {
	Examined int
	Groups   []Group
	Sessions []*models.GameSession
	Failed   int
}

// Scheduler 주기적으로 친구 그룹 → 스킬 그룹 → 타임아웃 순서로 매칭하고
// 결과를 큐 owner 안에서 한 번에 커밋한다.
type Scheduler struct {
	queue    *Queue
	factory  *SessionFactory
	policy   Policy
	interval time.Duration
	// 커밋 한 건이 큐 owner 를 붙잡을 수 있는 최대 시간
	commitTimeout time.Duration
	now           func() time.Time
	notifiers     []SessionNotifier
	logger        *zap.Logger

	phase atomic.Int32

	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

type SchedulerOption func(*Scheduler)

// WithClock 테스트용 시계 주입
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithCommitTimeout 세션 저장 한 건의 제한 시간. 기본값은 interval 의 절반.
func WithCommitTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.commitTimeout = d
		}
	}
}

func WithNotifiers(notifiers ...SessionNotifier) SchedulerOption {
	return func(s *Scheduler) {
		s.notifiers = append(s.notifiers, notifiers...)
	}
}

func WithLogger(logger *zap.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewScheduler(queue *Queue, factory *SessionFactory, policy Policy, interval time.Duration, opts ...SchedulerOption) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s := &Scheduler{
		queue:         queue,
		factory:       factory,
		policy:        policy,
		interval:      interval,
		commitTimeout: interval / 2,
		now:           time.Now,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start 매칭 루프 시작. Stop 이후 다시 Start 할 수 있다.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})

	s.logger.Info("Starting matchmaking scheduler", zap.Duration("interval", s.interval))

	s.wg.Add(1)
	go s.loop(s.stopChan)
}

// Stop 진행 중인 틱이 끝날 때까지 기다린 후 종료
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false

	s.logger.Info("Stopping matchmaking scheduler")
	close(s.stopChan)
	s.wg.Wait()
	s.logger.Info("Matchmaking scheduler stopped")
}

func (s *Scheduler) loop(stop <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			if _, err := s.Tick(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("Matchmaking tick failed", zap.Error(err))
			}
			if elapsed := time.Since(start); elapsed > s.interval {
				s.logger.Warn("Matchmaking tick exceeded interval",
					zap.Duration("elapsed", elapsed),
					zap.Duration("interval", s.interval))
			}
		case <-stop:
			return
		}
	}
}

// Phase 현재 틱 단계
func (s *Scheduler) Phase() Phase {
	return Phase(s.phase.Load())
}

func (s *Scheduler) setPhase(p Phase) {
	s.phase.Store(int32(p))
}

// Tick 매칭 한 번 실행. 스냅샷부터 커밋까지 큐 owner 안에서 실행되므로
// 동시에 들어온 Enqueue/Cancel 은 틱 전이나 후에만 반영된다.
func (s *Scheduler) Tick(ctx context.Context) (TickResult, error) {
	var result TickResult
	defer s.setPhase(PhaseIdle)

	err := s.queue.Exec(ctx, func(tx *QueueTxn) {
		s.setPhase(PhaseSnapshotting)
		snapshot := tx.Snapshot()
		result.Examined = len(snapshot)
		if len(snapshot) < s.policy.MinGroupSize {
			return
		}

		now := s.now()
		result.Groups = s.plan(snapshot, now)
		if len(result.Groups) == 0 {
			return
		}

		s.setPhase(PhaseCommitting)
		for _, g := range result.Groups {
			session, err := s.commit(ctx, tx, g)
			if err != nil {
				result.Failed++
				s.logger.Error("Failed to commit match group, players stay queued",
					zap.String("kind", string(g.Kind)),
					zap.Strings("players", g.PlayerIDs()),
					zap.Error(err))
				continue
			}
			result.Sessions = append(result.Sessions, session)
			s.logger.Info("Game session created",
				zap.String("sessionId", session.ID),
				zap.String("kind", string(g.Kind)),
				zap.Strings("players", session.Players),
				zap.String("category", session.Category),
				zap.String("difficulty", string(session.Difficulty)))
		}
	})
	if err != nil {
		return result, err
	}

	// 알림은 큐 owner 밖에서
	for _, session := range result.Sessions {
		for _, n := range s.notifiers {
			n.SessionCreated(ctx, session)
		}
	}

	if len(result.Sessions) > 0 || result.Failed > 0 {
		s.logger.Info("Matchmaking tick completed",
			zap.Int("examined", result.Examined),
			zap.Int("sessions", len(result.Sessions)),
			zap.Int("failed", result.Failed))
	}

	return result, nil
}

func (s *Scheduler) plan(snapshot []models.MatchRequest, now time.Time) []Group {
	s.setPhase(PhaseFriendGroups)
	friendGroups, residual := ResolveFriendGroups(snapshot, s.policy)

	s.setPhase(PhaseSkillGroups)
	skillGroups, remaining := MatchBySkill(residual, s.policy)

	s.setPhase(PhaseTimeouts)
	relaxedGroups, _ := ReapTimeouts(remaining, now, s.policy)

	groups := make([]Group, 0, len(friendGroups)+len(skillGroups)+len(relaxedGroups))
	groups = append(groups, friendGroups...)
	groups = append(groups, skillGroups...)
	groups = append(groups, relaxedGroups...)
	return groups
}

func (s *Scheduler) commit(ctx context.Context, tx *QueueTxn, g Group) (*models.GameSession, error) {
	if err := s.validate(tx, g); err != nil {
		return nil, err
	}

	commitCtx, cancel := context.WithTimeout(ctx, s.commitTimeout)
	defer cancel()

	session, err := s.factory.Commit(commitCtx, g.Members)
	if err != nil {
		return nil, err
	}

	if err := tx.RemoveAll(g.PlayerIDs()); err != nil {
		// validate 직후라 일어나면 안 된다
		s.logger.Error("Queue inconsistency after session commit",
			zap.String("sessionId", session.ID),
			zap.Error(err))
		return session, nil
	}
	return session, nil
}

func (s *Scheduler) validate(tx *QueueTxn, g Group) error {
	if g.Size() < s.policy.MinGroupSize || g.Size() > s.policy.PlayersPerSession {
		return ErrInvalidGroup
	}
	seen := make(map[string]struct{}, g.Size())
	for _, id := range g.PlayerIDs() {
		if _, dup := seen[id]; dup {
			return ErrInvalidGroup
		}
		if !tx.Has(id) {
			return ErrNotQueued
		}
		seen[id] = struct{}{}
	}
	return nil
}
