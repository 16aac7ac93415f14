package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MaxBatchSize is the most ids the Graph API accepts in one ?ids= lookup.
const MaxBatchSize = 50

type Config struct {
	Server    ServerConfig
	Graph     GraphConfig
	Breaker   BreakerConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

type GraphConfig struct {
	BaseURL          string
	RequestTimeout   time.Duration
	SearchLimit      int
	BatchSize        int
	FetchConcurrency int
}

type BreakerConfig struct {
	MaxRequests  int
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  int
	FailureRatio float64
}

type RateLimitConfig struct {
	Backend           string
	RequestsPerMinute int
	BurstSize         int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getEnvAsDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
			RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 60*time.Second),
		},
		Graph: GraphConfig{
			BaseURL:          strings.TrimRight(getEnv("GRAPH_BASE_URL", "https://graph.facebook.com/v2.5"), "/"),
			RequestTimeout:   getEnvAsDuration("GRAPH_REQUEST_TIMEOUT", 5*time.Second),
			SearchLimit:      getEnvAsInt("GRAPH_SEARCH_LIMIT", 1000),
			BatchSize:        getEnvAsInt("GRAPH_BATCH_SIZE", MaxBatchSize),
			FetchConcurrency: getEnvAsInt("GRAPH_FETCH_CONCURRENCY", 0),
		},
		Breaker: BreakerConfig{
			MaxRequests:  getEnvAsInt("BREAKER_MAX_REQUESTS", 3),
			Interval:     getEnvAsDuration("BREAKER_INTERVAL", time.Minute),
			Timeout:      getEnvAsDuration("BREAKER_TIMEOUT", 30*time.Second),
			MinRequests:  getEnvAsInt("BREAKER_MIN_REQUESTS", 10),
			FailureRatio: getEnvAsFloat("BREAKER_FAILURE_RATIO", 0.6),
		},
		RateLimit: RateLimitConfig{
			Backend:           strings.ToLower(getEnv("RATE_LIMIT_BACKEND", "memory")),
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 60),
			BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Graph.BatchSize < 1 || c.Graph.BatchSize > MaxBatchSize {
		return fmt.Errorf("GRAPH_BATCH_SIZE must be between 1 and %d, got %d", MaxBatchSize, c.Graph.BatchSize)
	}
	if c.Graph.SearchLimit < 1 {
		return fmt.Errorf("GRAPH_SEARCH_LIMIT must be positive, got %d", c.Graph.SearchLimit)
	}
	if c.Graph.FetchConcurrency < 0 {
		return fmt.Errorf("GRAPH_FETCH_CONCURRENCY must not be negative, got %d", c.Graph.FetchConcurrency)
	}
	if c.Graph.RequestTimeout <= 0 {
		return fmt.Errorf("GRAPH_REQUEST_TIMEOUT must be positive")
	}
	if c.Breaker.MaxRequests < 1 || int64(c.Breaker.MaxRequests) > math.MaxUint32 {
		return fmt.Errorf("BREAKER_MAX_REQUESTS must be between 1 and %d, got %d", uint32(math.MaxUint32), c.Breaker.MaxRequests)
	}
	if c.Breaker.MinRequests < 0 || int64(c.Breaker.MinRequests) > math.MaxUint32 {
		return fmt.Errorf("BREAKER_MIN_REQUESTS must be between 0 and %d, got %d", uint32(math.MaxUint32), c.Breaker.MinRequests)
	}
	if c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1 {
		return fmt.Errorf("BREAKER_FAILURE_RATIO must be in (0, 1], got %g", c.Breaker.FailureRatio)
	}
	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("RATE_LIMIT_BACKEND must be memory or redis, got %q", c.RateLimit.Backend)
	}
	if c.RateLimit.RequestsPerMinute < 1 || c.RateLimit.BurstSize < 1 {
		return fmt.Errorf("RATE_LIMIT_RPM and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
