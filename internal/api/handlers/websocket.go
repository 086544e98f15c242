package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/songifi/lyricsflip-matchmaker/internal/websocket"
)

// WebSocketHandler WebSocket 연결 처리
type WebSocketHandler struct {
	hub *websocket.Hub
}

func NewWebSocketHandler(hub *websocket.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// HandleWebSocket 세션 생성 알림 구독. playerId 는 이미 검증된 값으로 본다.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	playerID := strings.TrimSpace(c.Query("playerId"))
	if playerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "playerId is required"})
		return
	}

	h.hub.ServeWs(c.Writer, c.Request, playerID)
}
