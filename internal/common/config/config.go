package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

var (
	ErrMissingRequiredEnv = errors.New("missing required environment variable")
	ErrInvalidJWTSecret   = errors.New("JWT_SECRET must be at least 32 bytes")
)

type Config struct {
	HTTPPort    string
	DatabaseURL string
	JWTSecret   string

	AccessTokenTTL time.Duration
	RequestTimeout time.Duration
	SearchTimeout  time.Duration
	ActivityWindow time.Duration

	WebSocketWriteWait   time.Duration
	WebSocketPongWait    time.Duration
	WebSocketPingPeriod  time.Duration
	WebSocketMaxMsgSize  int64
	WebSocketSendBufSize int
	WebSocketSendTimeout time.Duration

	LogDir   string
	LogLevel string
}

func Load() (Config, error) {
	jwtSecret, err := mustEnv("JWT_SECRET")
	if err != nil {
		return Config{}, err
	}
	if len(jwtSecret) < 32 {
		return Config{}, fmt.Errorf("%w: got %d bytes", ErrInvalidJWTSecret, len(jwtSecret))
	}

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return Config{}, err
	}

	return Config{
		HTTPPort:    getEnv("HTTP_PORT", "5000"),
		DatabaseURL: databaseURL,
		JWTSecret:   jwtSecret,

		AccessTokenTTL: getDurationEnv("ACCESS_TOKEN_TTL", 24*time.Hour),
		RequestTimeout: getDurationEnv("REQUEST_TIMEOUT", 5*time.Second),
		SearchTimeout:  getDurationEnv("SEARCH_TIMEOUT", 10*time.Second),
		ActivityWindow: getDurationEnv("ADMIN_ACTIVITY_WINDOW", 30*24*time.Hour),

		WebSocketWriteWait:   getDurationEnv("WS_WRITE_WAIT", 10*time.Second),
		WebSocketPongWait:    getDurationEnv("WS_PONG_WAIT", 60*time.Second),
		WebSocketPingPeriod:  getDurationEnv("WS_PING_PERIOD", 54*time.Second),
		WebSocketMaxMsgSize:  getInt64Env("WS_MAX_MSG_SIZE", 64*1024),
		WebSocketSendBufSize: getIntEnv("WS_SEND_BUF_SIZE", 256),
		WebSocketSendTimeout: getDurationEnv("WS_SEND_TIMEOUT", 5*time.Second),

		LogDir:   os.Getenv("LOG_DIR"),
		LogLevel: os.Getenv("LOG_LEVEL"),
	}, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingRequiredEnv, key)
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getIntEnv(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64Env(key string, fallback int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}
