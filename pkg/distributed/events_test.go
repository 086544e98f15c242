package distributed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionPayload struct {
	ID      string   `json:"id"`
	Players []string `json:"players"`
}

func TestEventBus_PublishSubscribe(t *testing.T) {
	_, client := newTestClient(t)
	publisher := NewEventBus(client, "test:events", nil)
	subscriber := NewEventBus(client, "test:events", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan struct{})
	received := make(chan Event, 1)
	done := make(chan error, 1)
	go func() {
		done <- subscriber.Subscribe(ctx, ready, func(e Event) {
			received <- e
		})
	}()

	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("subscription not ready")
	}

	require.NoError(t, publisher.Publish(ctx, "session_created", sessionPayload{ID: "s1", Players: []string{"a", "b"}}))

	select {
	case e := <-received:
		assert.Equal(t, "session_created", e.Type)
		assert.Equal(t, publisher.InstanceID(), e.InstanceID)
		assert.NotEqual(t, publisher.InstanceID(), subscriber.InstanceID())

		var payload sessionPayload
		require.NoError(t, e.Decode(&payload))
		assert.Equal(t, "s1", payload.ID)
		assert.Equal(t, []string{"a", "b"}, payload.Players)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not stop")
	}
}
