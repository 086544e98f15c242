package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/songifi/lyricsflip-matchmaker/internal/api"
	"github.com/songifi/lyricsflip-matchmaker/internal/api/handlers"
	"github.com/songifi/lyricsflip-matchmaker/internal/config"
	"github.com/songifi/lyricsflip-matchmaker/internal/matchmaking"
	"github.com/songifi/lyricsflip-matchmaker/internal/models"
	"github.com/songifi/lyricsflip-matchmaker/internal/repository"
	"github.com/songifi/lyricsflip-matchmaker/internal/service"
	"github.com/songifi/lyricsflip-matchmaker/internal/websocket"
	"github.com/songifi/lyricsflip-matchmaker/pkg/database"
	"github.com/songifi/lyricsflip-matchmaker/pkg/distributed"
	"github.com/songifi/lyricsflip-matchmaker/pkg/logger"
	"github.com/songifi/lyricsflip-matchmaker/pkg/ratelimit"
	"go.uber.org/zap"
)

const redisKeyPrefix = "matchmaker:"

func main() {
	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 로거 초기화
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting matchmaker",
		"port", cfg.Port,
		"env", cfg.Env,
		"sessionStore", cfg.SessionStore,
	)

	if err := run(cfg); err != nil {
		// os.Exit 는 defer 를 실행하지 않는다
		logger.Error("Server stopped with error", "error", err)
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("Server exited")
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthChecks := map[string]handlers.HealthChecker{}

	// 세션 저장소
	var store repository.GameSessionStore
	var redisClient *redis.Client
	switch cfg.SessionStore {
	case config.SessionStorePostgres:
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		repo := repository.NewGameSessionRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate game_sessions: %w", err)
		}
		store = repo
		healthChecks["postgres"] = db.HealthCheck
		logger.Info("Database connection established")

	case config.SessionStoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}

		store = repository.NewRedisGameSessionRepository(redisClient, redisKeyPrefix)
		healthChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
		logger.Info("Redis connection established")

	default:
		store = repository.NewMemoryGameSessionRepository()
		logger.Warn("Using in-memory session store, sessions are lost on restart")
	}

	policy := matchmaking.Policy{
		PlayersPerSession:  cfg.PlayersPerSession,
		MinGroupSize:       cfg.MinGroupSize,
		MaxSkillDifference: cfg.MaxSkillDifference,
	}
	if err := policy.Validate(); err != nil {
		return err
	}

	// WebSocket Hub
	hub := websocket.NewHub(logger.Named("websocket"), cfg.CORSAllowedOrigins)
	go hub.Run(ctx)

	// 세션 생성 알림: Redis 가 있으면 pub/sub 을 거쳐 모든 인스턴스의 허브로
	var notifier matchmaking.SessionNotifier = hub
	var limiter ratelimit.Limiter
	if redisClient != nil {
		bus := distributed.NewEventBus(redisClient, distributed.DefaultEventChannel, logger.Named("events"))
		notifier = service.NewSessionEventPublisher(bus, logger.Named("events"))

		ready := make(chan struct{})
		go func() {
			err := service.RelaySessionEvents(ctx, bus, ready, hub, logger.Named("events"))
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Session event relay stopped", "error", err)
			}
		}()
		select {
		case <-ready:
		case <-time.After(5 * time.Second):
			return errors.New("timed out subscribing to session events")
		}

		limiter = ratelimit.NewRedisRateLimiter(redisClient, redisKeyPrefix+"ratelimit:", cfg.RateLimitCapacity, cfg.RateLimitRefill)
	} else {
		memLimiter := ratelimit.NewRateLimiter(cfg.RateLimitCapacity, cfg.RateLimitRefill)
		defer memLimiter.Stop()
		limiter = memLimiter
	}

	// 매칭 코어
	queue := matchmaking.NewQueue(logger.Named("queue"))
	factory := matchmaking.NewSessionFactory(store, cfg.DefaultCategory, models.Difficulty(cfg.DefaultDifficulty))
	scheduler := matchmaking.NewScheduler(queue, factory, policy, cfg.MatchmakingInterval,
		matchmaking.WithNotifiers(notifier),
		matchmaking.WithLogger(logger.Named("scheduler")),
	)
	matchmakingService := service.NewMatchmakingService(queue, scheduler, store, policy, logger.Named("matchmaking"))
	matchmakingService.Start()

	router := api.SetupRouter(cfg, api.Dependencies{
		Matchmaking:  matchmakingService,
		Hub:          hub,
		RateLimiter:  limiter,
		HealthChecks: healthChecks,
		Logger:       logger.L(),
	})

	// 서버 설정
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown 대기
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("Shutting down server...", "signal", sig.String())
	case err := <-serverErr:
		matchmakingService.Stop()
		return fmt.Errorf("failed to start server: %w", err)
	}

	// 진행 중인 틱을 끝낸 뒤 큐를 닫는다
	matchmakingService.Stop()

	// 10초 타임아웃으로 종료
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L().Error("Server forced to shutdown", zap.Error(err))
	}
	return nil
}
