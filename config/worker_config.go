package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"purchase_worker/pkg/apperr"
)

// generateWorkerID creates a unique worker ID using hostname and PID
func generateWorkerID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "worker"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	BodyLimitMB int

	// Storage
	DatabaseURL string
	RedisURL    string

	// LLM
	LLMProvider          string
	AnthropicAPIKey      string
	AnthropicBaseURL     string
	OpenAIAPIKey         string
	LLMModel             string
	LLMMaxTokens         int
	LLMTemperature       float64
	LLMTimeoutSec        int
	LLMRatePerMin        int
	LLMBurst             int
	LLMFallbackThreshold float64
	LLMEnabled           bool

	// Circuit breaker
	BreakerMaxFailures int
	BreakerOpenSec     int

	// Cache
	CacheTTLMin int

	// Stream (Redis Streams)
	StreamInbound string
	StreamParsed  string
	StreamGroup   string
	WorkerID      string
	StreamBatch   int
	StreamBlockMS int
	DedupTTLHours int

	// HTTP
	AllowedOrigins []string
	APIRatePerMin  int
	APIBurst       int
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		BodyLimitMB: getEnvInt("BODY_LIMIT_MB", 10),

		// Storage
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		// LLM
		LLMProvider:          strings.ToLower(getEnv("LLM_PROVIDER", "anthropic")),
		AnthropicAPIKey:      getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicBaseURL:     getEnv("ANTHROPIC_BASE_URL", ""),
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		LLMModel:             getEnv("LLM_MODEL", ""),
		LLMMaxTokens:         getEnvInt("LLM_MAX_TOKENS", 4096),
		LLMTemperature:       getEnvFloat("LLM_TEMPERATURE", 0),
		LLMTimeoutSec:        getEnvInt("LLM_TIMEOUT_SEC", 60),
		LLMRatePerMin:        getEnvInt("LLM_RATE_PER_MIN", 30),
		LLMBurst:             getEnvInt("LLM_BURST", 3),
		LLMFallbackThreshold: getEnvFloat("LLM_FALLBACK_THRESHOLD", 0.5),

		// Circuit breaker
		BreakerMaxFailures: getEnvInt("BREAKER_MAX_FAILURES", 5),
		BreakerOpenSec:     getEnvInt("BREAKER_OPEN_SEC", 30),

		// Cache
		CacheTTLMin: getEnvInt("CACHE_TTL_MIN", 60),

		// Stream
		StreamInbound: getEnv("STREAM_INBOUND", "mail:inbound"),
		StreamParsed:  getEnv("STREAM_PARSED", "mail:parsed"),
		StreamGroup:   getEnv("STREAM_GROUP", "extractors"),
		WorkerID:      getEnv("WORKER_ID", generateWorkerID()),
		StreamBatch:   getEnvInt("STREAM_BATCH", 10),
		StreamBlockMS: getEnvInt("STREAM_BLOCK_MS", 5000),
		DedupTTLHours: getEnvInt("DEDUP_TTL_HOURS", 72),

		// HTTP
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"*"}),
		APIRatePerMin:  getEnvInt("API_RATE_PER_MIN", 120),
		APIBurst:       getEnvInt("API_BURST", 20),
	}

	// 키가 있을 때만 기본 활성화
	cfg.LLMEnabled = getEnvBool("LLM_ENABLED", cfg.activeAPIKey() != "")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.LLMFallbackThreshold < 0 || c.LLMFallbackThreshold > 1 {
		return apperr.ConfigError(fmt.Sprintf("LLM_FALLBACK_THRESHOLD must be within [0,1], got %v", c.LLMFallbackThreshold))
	}
	switch c.LLMProvider {
	case "anthropic", "openai":
	default:
		return apperr.ConfigError(fmt.Sprintf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}
	if c.LLMEnabled && c.activeAPIKey() == "" {
		return apperr.ConfigError(fmt.Sprintf("LLM_ENABLED is set but no API key is configured for %s", c.LLMProvider))
	}
	if c.StreamBatch <= 0 {
		return apperr.ConfigError(fmt.Sprintf("STREAM_BATCH must be positive, got %d", c.StreamBatch))
	}
	return nil
}

func (c *Config) activeAPIKey() string {
	if c.LLMProvider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.AnthropicAPIKey
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSec) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMin) * time.Minute
}

func (c *Config) DedupTTL() time.Duration {
	return time.Duration(c.DedupTTLHours) * time.Hour
}

func (c *Config) BreakerOpenTimeout() time.Duration {
	return time.Duration(c.BreakerOpenSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
