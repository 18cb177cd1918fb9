package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration values.
type Config struct {
	Environment       string
	HTTPPort          string
	DatabaseURL       string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	ServiceName       string
	RateLimitRPM      int
	TelemetryEndpoint string
	TelemetryInsecure bool

	// Threads app credentials. All three are required; the platform rejects
	// callbacks whose redirect URI differs from the registered value.
	ThreadsAppID       string
	ThreadsAppSecret   string
	ThreadsRedirectURI string
	ThreadsTimeout     time.Duration

	// Token lifecycle policy.
	TokenRefreshLookahead time.Duration
	ShortLivedTokenTTL    time.Duration
	LongLivedTokenTTL     time.Duration

	SessionSecret string
	SessionTTL    time.Duration

	CronSecret   string
	SyncInterval time.Duration

	AIEndpoint string
	AIModel    string
	AIAPIKey   string

	DefaultReturnPath string
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	appID := strings.TrimSpace(os.Getenv("THREADS_APP_ID"))
	if appID == "" {
		return Config{}, fmt.Errorf("THREADS_APP_ID is required")
	}
	appSecret := strings.TrimSpace(os.Getenv("THREADS_APP_SECRET"))
	if appSecret == "" {
		return Config{}, fmt.Errorf("THREADS_APP_SECRET is required")
	}
	redirectURI := strings.TrimSpace(os.Getenv("THREADS_REDIRECT_URI"))
	if redirectURI == "" {
		return Config{}, fmt.Errorf("THREADS_REDIRECT_URI is required")
	}
	sessionSecret := strings.TrimSpace(os.Getenv("SESSION_SECRET"))
	if sessionSecret == "" {
		return Config{}, fmt.Errorf("SESSION_SECRET is required")
	}

	cfg := Config{
		Environment:       getEnv("APP_ENV", "development"),
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisAddr:         getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getInt("REDIS_DB", 0),
		ServiceName:       getEnv("SERVICE_NAME", "threadcast"),
		RateLimitRPM:      getInt("RATE_LIMIT_RPM", 600),
		TelemetryEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure: getBool("OTEL_EXPORTER_OTLP_INSECURE", true),

		ThreadsAppID:       appID,
		ThreadsAppSecret:   appSecret,
		ThreadsRedirectURI: redirectURI,
		ThreadsTimeout:     getDuration("THREADS_HTTP_TIMEOUT", 15*time.Second),

		TokenRefreshLookahead: getDuration("TOKEN_REFRESH_LOOKAHEAD", 7*24*time.Hour),
		ShortLivedTokenTTL:    getDuration("SHORT_LIVED_TOKEN_TTL", time.Hour),
		LongLivedTokenTTL:     getDuration("LONG_LIVED_TOKEN_TTL", 60*24*time.Hour),

		SessionSecret: sessionSecret,
		SessionTTL:    getDuration("SESSION_TTL", 24*time.Hour),

		CronSecret:   os.Getenv("CRON_SECRET"),
		SyncInterval: getDuration("SYNC_INTERVAL", 0),

		AIEndpoint: getEnv("AI_API_ENDPOINT", "https://api.anthropic.com/v1/messages"),
		AIModel:    getEnv("AI_MODEL", "claude-3-5-haiku-latest"),
		AIAPIKey:   os.Getenv("AI_API_KEY"),

		DefaultReturnPath: getEnv("DEFAULT_RETURN_PATH", "/dashboard"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}
