package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/songifi/lyricsflip-matchmaker/internal/models"
	"github.com/songifi/lyricsflip-matchmaker/internal/service"
	"go.uber.org/zap"
)

type MatchmakingHandler struct {
	matchmakingService *service.MatchmakingService
	logger             *zap.Logger
}

func NewMatchmakingHandler(matchmakingService *service.MatchmakingService, logger *zap.Logger) *MatchmakingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchmakingHandler{
		matchmakingService: matchmakingService,
		logger:             logger,
	}
}

// RequestMatch 매칭 큐 등록
func (h *MatchmakingHandler) RequestMatch(c *gin.Context) {
	var req models.CreateMatchmakingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	resp, err := h.matchmakingService.RequestMatch(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		}

		h.logger.Error("Failed to request matchmaking", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to request matchmaking",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CancelMatch 매칭 취소
func (h *MatchmakingHandler) CancelMatch(c *gin.Context) {
	playerID := c.Param("playerId")

	if err := h.matchmakingService.CancelMatch(c.Request.Context(), playerID); err != nil {
		if errors.Is(err, service.ErrNotQueued) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Player is not in matchmaking queue",
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to cancel matchmaking",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": service.MessageCancelled,
	})
}

// GetStatus 큐 상태
func (h *MatchmakingHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.matchmakingService.GetStatus())
}

// GetQueueEntry 플레이어 대기 정보
func (h *MatchmakingHandler) GetQueueEntry(c *gin.Context) {
	entry, err := h.matchmakingService.GetQueueEntry(c.Param("playerId"))
	if err != nil {
		if errors.Is(err, service.ErrNotQueued) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Player is not in matchmaking queue",
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get queue entry",
		})
		return
	}

	c.JSON(http.StatusOK, entry)
}

// GetSessionsByPlayer 플레이어 세션 목록
func (h *MatchmakingHandler) GetSessionsByPlayer(c *gin.Context) {
	sessions, err := h.matchmakingService.GetSessionsByPlayer(c.Request.Context(), c.Param("playerId"))
	if err != nil {
		h.logger.Error("Failed to get game sessions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get game sessions",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
	})
}

// GetSession 세션 조회
func (h *MatchmakingHandler) GetSession(c *gin.Context) {
	session, err := h.matchmakingService.GetSession(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Game session not found",
			})
			return
		}

		h.logger.Error("Failed to get game session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get game session",
		})
		return
	}

	c.JSON(http.StatusOK, session)
}

// UpdateSessionStatus 세션 상태 변경
func (h *MatchmakingHandler) UpdateSessionStatus(c *gin.Context) {
	var req models.UpdateSessionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	session, err := h.matchmakingService.UpdateSessionStatus(c.Request.Context(), c.Param("sessionId"), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
		case errors.Is(err, service.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Game session not found",
			})
		default:
			h.logger.Error("Failed to update game session status", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update game session status",
			})
		}
		return
	}

	c.JSON(http.StatusOK, session)
}
