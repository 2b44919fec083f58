package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Queue semantics
	ServiceTimeMinutes int // expected minutes of service per position
	GetReadyThreshold  int // positions from the front that trigger a get-ready notice

	// Staff sessions
	SessionTTL time.Duration

	// SMS provider
	ProviderBaseURL string
	ProviderTimeout time.Duration

	// Notification delivery
	NotifyWorkers    int
	NotifyMaxRetries int // additional attempts after the first
	BackoffBase      time.Duration
	BackoffMax       time.Duration
	SMSRateLimit     int // sends per second per intent kind

	// Background workers
	QueueRefreshInterval time.Duration
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		ServiceTimeMinutes: getInt("SERVICE_TIME_MINUTES", 15),
		GetReadyThreshold:  getInt("GET_READY_THRESHOLD", 3),

		SessionTTL: getDuration("SESSION_TTL", 12*time.Hour),

		ProviderBaseURL: getEnv("PROVIDER_BASE_URL", "http://localhost:9090/sms"),
		ProviderTimeout: getDuration("PROVIDER_TIMEOUT", 10*time.Second),

		NotifyWorkers:    getInt("NOTIFY_WORKERS", 5),
		NotifyMaxRetries: getInt("NOTIFY_MAX_RETRIES", 3),
		BackoffBase:      getDuration("NOTIFY_BACKOFF_BASE", 2*time.Second),
		BackoffMax:       getDuration("NOTIFY_BACKOFF_MAX", 60*time.Second),
		SMSRateLimit:     getInt("SMS_RATE_LIMIT", 10),

		QueueRefreshInterval: getDuration("QUEUE_REFRESH_INTERVAL", 30*time.Second),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
