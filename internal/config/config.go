package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	ValidatorsFile string

	ProposalTTLHours   int
	SessionTTLMinutes  int
	ExecTimeoutSeconds int

	ExecutorURL   string
	ExecutorToken string

	AuditBackend    string // "db", "memory" or "translog"
	TranslogURL     string
	TranslogToken   string
	TranslogTimeout int // seconds

	PolicyBundlePath string

	AdminAPIKey string

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ShutdownGraceSeconds int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:               addr,
		PostgresDSN:            os.Getenv("POSTGRES_DSN"),
		LogLevel:               envDefault("LOG_LEVEL", "info"),
		ValidatorsFile:         os.Getenv("VALIDATORS_FILE"),
		ProposalTTLHours:       envIntDefault("PROPOSAL_TTL_HOURS", 24),
		SessionTTLMinutes:      envIntDefault("SESSION_TTL_MINUTES", 60),
		ExecTimeoutSeconds:     envIntDefault("EXECUTOR_TIMEOUT_SECONDS", 10),
		ExecutorURL:            os.Getenv("EXECUTOR_URL"),
		ExecutorToken:          os.Getenv("EXECUTOR_TOKEN"),
		AuditBackend:           envDefault("AUDIT_BACKEND", "memory"),
		TranslogURL:            os.Getenv("TRANSLOG_URL"),
		TranslogToken:          os.Getenv("TRANSLOG_TOKEN"),
		TranslogTimeout:        envIntDefault("TRANSLOG_TIMEOUT_SECONDS", 5),
		PolicyBundlePath:       os.Getenv("POLICY_BUNDLE_PATH"),
		AdminAPIKey:            os.Getenv("ADMIN_API_KEY"),
		RateLimitRequests:      envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds: envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitFailClosed:    envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:       envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                envIntDefault("REDIS_DB", 0),
		ShutdownGraceSeconds:   envIntDefault("SHUTDOWN_GRACE_SECONDS", 15),
	}
}

func (c Config) ProposalTTL() time.Duration {
	return time.Duration(c.ProposalTTLHours) * time.Hour
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func (c Config) ExecutorTimeout() time.Duration {
	return time.Duration(c.ExecTimeoutSeconds) * time.Second
}

func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func (c Config) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceSeconds) * time.Second
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}
