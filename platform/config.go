package platform

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig 应用配置, loaded from the environment (after godotenv has read .env).
type AppConfig struct {
	Port       string
	CORSOrigin string

	DB DBConfig

	LLM LLMConfig

	EnableEmbeddings bool
	SerializeReplies bool
	ReplyTimeout     time.Duration
	TaskTTL          time.Duration
	TaskPruneCron    string

	AccessSecret string
	TokenTTL     time.Duration
	RequireAuth  bool

	LogPath  string
	LogLevel string
}

// LLMConfig configures the reply/embedding provider.
type LLMConfig struct {
	Mode           string // "openai" or "mock"
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
	Timeout        time.Duration
	MaxTokens      int64
	SystemPrompt   string
	RPS            float64
	Burst          int
}

func LoadConfig() *AppConfig {
	return &AppConfig{
		Port:       getEnv("PORT", "8080"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost"),
		DB: DBConfig{
			Driver:   getEnv("DB_DRIVER", "mysql"),
			DSN:      os.Getenv("DB_DSN"),
			Host:     getEnv("SQL_HOST", "127.0.0.1"),
			Port:     getEnv("SQL_PORT", "3306"),
			User:     os.Getenv("SQL_USER"),
			Password: os.Getenv("SQL_PASSWORD"),
			DBName:   getEnv("SQL_DBNAME", "ctachat"),
		},
		LLM: LLMConfig{
			Mode:           strings.ToLower(getEnv("LLM_MODE", "openai")),
			BaseURL:        os.Getenv("LLM_BASE_URL"),
			APIKey:         os.Getenv("LLM_API_KEY"),
			Model:          getEnv("LLM_MODEL", "gpt-4o"),
			EmbeddingModel: getEnv("LLM_EMBEDDING_MODEL", "text-embedding-3-small"),
			Timeout:        getEnvDuration("LLM_TIMEOUT", 60*time.Second),
			MaxTokens:      int64(getEnvInt("LLM_MAX_TOKENS", 1000)),
			SystemPrompt:   os.Getenv("LLM_SYSTEM_PROMPT"),
			RPS:            getEnvFloat("LLM_RPS", 5),
			Burst:          getEnvInt("LLM_BURST", 10),
		},
		EnableEmbeddings: getEnvBool("ENABLE_EMBEDDINGS", true),
		SerializeReplies: getEnvBool("SERIALIZE_REPLIES", false),
		ReplyTimeout:     getEnvDuration("REPLY_TIMEOUT", 2*time.Minute),
		TaskTTL:          getEnvDuration("TASK_TTL", time.Hour),
		TaskPruneCron:    getEnv("TASK_PRUNE_CRON", "@every 10m"),
		AccessSecret:     os.Getenv("ACCESS_SECRET"),
		TokenTTL:         getEnvDuration("TOKEN_TTL", 7*24*time.Hour),
		RequireAuth:      getEnvBool("REQUIRE_AUTH", false),
		LogPath:          getEnv("LOG_PATH", "./log"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}
}

var ErrMissingAccessSecret = errors.New("ACCESS_SECRET must be set when REQUIRE_AUTH is enabled")

// Validate rejects configurations the server must not start with.
func (c *AppConfig) Validate() error {
	if c.RequireAuth && c.AccessSecret == "" {
		return ErrMissingAccessSecret
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getEnvDuration accepts Go durations ("30s") or plain milliseconds ("30000").
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
