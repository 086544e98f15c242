package websocket

import (
	"context"
	"net/http"
	"slices"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/songifi/lyricsflip-matchmaker/internal/models"
	"go.uber.org/zap"
)

const MessageSessionCreated = "session_created"

// Hub WebSocket 연결 관리 및 플레이어별 전송
type Hub struct {
	// 플레이어별 연결 (playerID -> *Client)
	clients map[string]*Client
	mu      sync.RWMutex

	outbound   chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// Message WebSocket 메시지
type Message struct {
	PlayerID string      `json:"-"`
	Type     string      `json:"type"`
	Payload  interface{} `json:"payload"`
}

// NewHub allowedOrigins 가 비어 있거나 "*" 를 포함하면 모든 origin 허용
func NewHub(logger *zap.Logger, allowedOrigins []string) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		clients:    make(map[string]*Client),
		outbound:   make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 || slices.Contains(allowed, "*") {
			return true
		}
		return slices.Contains(allowed, origin)
	}
}

// Run ctx 가 끝날 때까지 Hub 실행. 종료 시 모든 연결을 닫는다.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.outbound:
			h.deliver(message)

		case <-ctx.Done():
			return
		}
	}
}

// registerClient 같은 플레이어의 기존 연결은 교체
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, exists := h.clients[client.playerID]; exists {
		close(old.send)
		h.logger.Info("Replaced existing WebSocket connection",
			zap.String("playerId", client.playerID))
	}

	h.clients[client.playerID] = client
	h.logger.Info("WebSocket client registered",
		zap.String("playerId", client.playerID),
		zap.Int("totalClients", len(h.clients)))
}

// unregisterClient 교체된 연결이 늦게 해제 요청을 보내도 새 연결은 유지
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, exists := h.clients[client.playerID]; exists && current == client {
		delete(h.clients, client.playerID)
		close(client.send)
		h.logger.Info("WebSocket client unregistered",
			zap.String("playerId", client.playerID),
			zap.Int("totalClients", len(h.clients)))
	}
}

func (h *Hub) deliver(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, exists := h.clients[message.PlayerID]
	if !exists {
		return
	}
	select {
	case client.send <- message:
	default:
		h.logger.Warn("Client send channel full, dropping message",
			zap.String("playerId", message.PlayerID),
			zap.String("type", message.Type))
	}
}

func (h *Hub) closeAll() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
}

// SendToPlayer 특정 플레이어에게 메시지 전송. Hub 가 밀려 있으면 버린다.
func (h *Hub) SendToPlayer(playerID, msgType string, payload interface{}) {
	select {
	case h.outbound <- &Message{PlayerID: playerID, Type: msgType, Payload: payload}:
	case <-h.done:
	default:
		h.logger.Warn("Hub outbound channel full, dropping message",
			zap.String("playerId", playerID),
			zap.String("type", msgType))
	}
}

// SessionCreated 세션의 모든 플레이어에게 알림
func (h *Hub) SessionCreated(_ context.Context, session *models.GameSession) {
	for _, p := range session.Players {
		h.SendToPlayer(p, MessageSessionCreated, session)
	}
}

// ClientCount 연결된 플레이어 수
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
