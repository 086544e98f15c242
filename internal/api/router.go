package api

import (
	"github.com/gin-gonic/gin"
	"github.com/songifi/lyricsflip-matchmaker/internal/api/handlers"
	"github.com/songifi/lyricsflip-matchmaker/internal/api/middleware"
	"github.com/songifi/lyricsflip-matchmaker/internal/config"
	"github.com/songifi/lyricsflip-matchmaker/internal/service"
	"github.com/songifi/lyricsflip-matchmaker/internal/websocket"
	"github.com/songifi/lyricsflip-matchmaker/pkg/ratelimit"
	"go.uber.org/zap"
)

// Dependencies main 에서 조립한 구성 요소
type Dependencies struct {
	Matchmaking  *service.MatchmakingService
	Hub          *websocket.Hub
	RateLimiter  ratelimit.Limiter
	HealthChecks map[string]handlers.HealthChecker
	Logger       *zap.Logger
}

// SetupRouter API 라우터 설정
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()

	// 전역 미들웨어
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(log.Named("http")))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	matchmakingHandler := handlers.NewMatchmakingHandler(deps.Matchmaking, log.Named("matchmaking"))
	healthHandler := handlers.NewHealthHandler(deps.Matchmaking, deps.HealthChecks)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub)

	// Health check
	router.GET("/health", healthHandler.HealthCheck)

	// WebSocket (세션 생성 푸시)
	router.GET("/ws", wsHandler.HandleWebSocket)

	mm := router.Group("/matchmaking")
	{
		request := []gin.HandlerFunc{}
		if deps.RateLimiter != nil {
			request = append(request, middleware.RateLimit(middleware.RateLimitConfig{
				Limiter: deps.RateLimiter,
				KeyFunc: middleware.IPKeyFunc,
				Logger:  log.Named("ratelimit"),
			}))
		}
		request = append(request, matchmakingHandler.RequestMatch)

		mm.POST("/request", request...)
		mm.DELETE("/cancel/:playerId", matchmakingHandler.CancelMatch)
		mm.GET("/status", matchmakingHandler.GetStatus)
		mm.GET("/queue/:playerId", matchmakingHandler.GetQueueEntry)
		mm.GET("/sessions/:playerId", matchmakingHandler.GetSessionsByPlayer)
		mm.GET("/session/:sessionId", matchmakingHandler.GetSession)
		mm.PATCH("/session/:sessionId/status", matchmakingHandler.UpdateSessionStatus)
	}

	return router
}
