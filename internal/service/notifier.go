package service

import (
	"context"

	"github.com/songifi/lyricsflip-matchmaker/internal/matchmaking"
	"github.com/songifi/lyricsflip-matchmaker/internal/models"
	"github.com/songifi/lyricsflip-matchmaker/pkg/distributed"
	"go.uber.org/zap"
)

const EventSessionCreated = "session_created"

// SessionEventPublisher 세션 생성 이벤트를 Redis 로 발행한다.
// 플레이어가 어느 인스턴스에 웹소켓으로 붙어 있든 알림을 받을 수 있다.
type SessionEventPublisher struct {
	bus    *distributed.EventBus
	logger *zap.Logger
}

func NewSessionEventPublisher(bus *distributed.EventBus, logger *zap.Logger) *SessionEventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionEventPublisher{bus: bus, logger: logger}
}

func (p *SessionEventPublisher) SessionCreated(ctx context.Context, session *models.GameSession) {
	if err := p.bus.Publish(ctx, EventSessionCreated, session); err != nil {
		p.logger.Error("Failed to publish session event",
			zap.String("sessionId", session.ID),
			zap.Error(err))
	}
}

// RelaySessionEvents 구독한 세션 생성 이벤트를 로컬 수신자(웹소켓 허브)로 전달
func RelaySessionEvents(ctx context.Context, bus *distributed.EventBus, ready chan<- struct{}, target matchmaking.SessionNotifier, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	return bus.Subscribe(ctx, ready, func(e distributed.Event) {
		if e.Type != EventSessionCreated {
			return
		}

		var session models.GameSession
		if err := e.Decode(&session); err != nil {
			logger.Error("Failed to decode session event", zap.Error(err))
			return
		}
		target.SessionCreated(ctx, &session)
	})
}
