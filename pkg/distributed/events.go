package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultEventChannel = "matchmaker:events"

// Event 인스턴스 간에 전달되는 이벤트
type Event struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	InstanceID string          `json:"instanceId"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Decode Payload 를 v 로 역직렬화
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// EventBus Redis Pub/Sub 기반 이벤트 버스.
// 세션 생성 이벤트를 모든 인스턴스(자기 자신 포함)로 전파한다.
type EventBus struct {
	client     *redis.Client
	channel    string
	instanceID string
	logger     *zap.Logger
}

func NewEventBus(client *redis.Client, channel string, logger *zap.Logger) *EventBus {
	if channel == "" {
		channel = DefaultEventChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBus{
		client:     client,
		channel:    channel,
		instanceID: uuid.New().String(),
		logger:     logger,
	}
}

func (b *EventBus) InstanceID() string {
	return b.instanceID
}

// Publish payload 를 JSON 으로 감싸서 발행
func (b *EventBus) Publish(ctx context.Context, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	data, err := json.Marshal(Event{
		Type:       eventType,
		Payload:    raw,
		InstanceID: b.instanceID,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Published event",
		zap.String("type", eventType),
		zap.String("channel", b.channel))
	return nil
}

// Subscribe ctx 가 끝날 때까지 이벤트를 handler 로 전달한다.
// 구독이 확인된 뒤 ready 가 닫힌다 (nil 이면 무시).
func (b *EventBus) Subscribe(ctx context.Context, ready chan<- struct{}, handler func(Event)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	b.logger.Info("Event bus subscribed",
		zap.String("instanceId", b.instanceID),
		zap.String("channel", b.channel))
	if ready != nil {
		close(ready)
	}

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Error("Failed to unmarshal event", zap.Error(err))
				continue
			}
			handler(event)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
