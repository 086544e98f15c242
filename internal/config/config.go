package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SessionStoreMemory   = "memory"
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Session store
	SessionStore string
	DatabaseURL  string
	RedisURL     string

	// CORS
	CORSAllowedOrigins []string

	// Rate limit (POST /matchmaking/request)
	RateLimitCapacity int
	RateLimitRefill   time.Duration

	// Matchmaking
	MatchmakingInterval time.Duration
	PlayersPerSession   int
	MinGroupSize        int
	MaxSkillDifference  int
	DefaultCategory     string
	DefaultDifficulty   string
}

func Load() (*Config, error) {
	// .env 파일 로드 (있는 경우)
	_ = godotenv.Load()

	interval, err := parseDuration("MATCHMAKING_INTERVAL", "5s")
	if err != nil {
		return nil, err
	}
	refill, err := parseDuration("RATE_LIMIT_REFILL", "1s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		SessionStore:        strings.ToLower(getEnv("SESSION_STORE", SessionStoreMemory)),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379"),
		CORSAllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		RateLimitRefill:     refill,
		MatchmakingInterval: interval,
		DefaultCategory:     strings.ToLower(getEnv("DEFAULT_CATEGORY", "general")),
		DefaultDifficulty:   strings.ToUpper(getEnv("DEFAULT_DIFFICULTY", "MEDIUM")),
	}

	ints := []struct {
		key  string
		def  int
		dest *int
	}{
		{"RATE_LIMIT_CAPACITY", 10, &cfg.RateLimitCapacity},
		{"PLAYERS_PER_SESSION", 4, &cfg.PlayersPerSession},
		{"MIN_GROUP_SIZE", 2, &cfg.MinGroupSize},
		{"MAX_SKILL_DIFFERENCE", 1, &cfg.MaxSkillDifference},
	}
	for _, v := range ints {
		if *v.dest, err = getEnvInt(v.key, v.def); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 값 사이의 일관성 검사
func (c *Config) Validate() error {
	switch c.SessionStore {
	case SessionStoreMemory:
	case SessionStorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when SESSION_STORE=%s", c.SessionStore)
		}
	case SessionStoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when SESSION_STORE=%s", c.SessionStore)
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}

	if c.MatchmakingInterval <= 0 {
		return fmt.Errorf("MATCHMAKING_INTERVAL must be positive")
	}
	if c.MinGroupSize < 2 {
		return fmt.Errorf("MIN_GROUP_SIZE must be at least 2")
	}
	if c.PlayersPerSession < c.MinGroupSize {
		return fmt.Errorf("PLAYERS_PER_SESSION must be >= MIN_GROUP_SIZE")
	}
	if c.MaxSkillDifference < 0 {
		return fmt.Errorf("MAX_SKILL_DIFFERENCE must not be negative")
	}
	if c.RateLimitCapacity <= 0 || c.RateLimitRefill <= 0 {
		return fmt.Errorf("RATE_LIMIT_CAPACITY and RATE_LIMIT_REFILL must be positive")
	}
	switch c.DefaultDifficulty {
	case "EASY", "MEDIUM", "HARD":
	default:
		return fmt.Errorf("DEFAULT_DIFFICULTY must be EASY, MEDIUM or HARD")
	}
	if c.DefaultCategory == "" {
		return fmt.Errorf("DEFAULT_CATEGORY must not be empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// getEnvList 콤마로 구분된 목록
func getEnvList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDuration(key, defaultValue string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
