package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/songifi/lyricsflip-matchmaker/internal/service"
)

// HealthChecker 세션 저장소 등 외부 의존성 확인
type HealthChecker func(ctx context.Context) error

type HealthHandler struct {
	matchmaking *service.MatchmakingService
	checks      map[string]HealthChecker
}

func NewHealthHandler(matchmaking *service.MatchmakingService, checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{matchmaking: matchmaking, checks: checks}
}

// HealthCheck 서버 및 의존성 상태
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			deps[name] = err.Error()
			continue
		}
		deps[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"status":         overall,
		"service":        "lyricsflip-matchmaker",
		"queueLength":    h.matchmaking.QueueLength(),
		"schedulerPhase": h.matchmaking.SchedulerPhase(),
		"dependencies":   deps,
	})
}
