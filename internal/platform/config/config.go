package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures all runtime configuration for the attendance server.
type Server struct {
	Addr string

	// ReaderURL is the base URL of the URA4 reader's HTTP API.
	ReaderURL    string
	PollInterval time.Duration
	PollBackoff  time.Duration
	PollTimeout  time.Duration

	DatabaseURL string

	Redis RedisConfig

	DebounceWindow        time.Duration
	DebounceSweepInterval time.Duration
	MinDwell              time.Duration

	NotifyInterval time.Duration
	FonnteToken    string
	WhatsAppPhone  string

	// BroadcastUnknownTags controls whether scans of unregistered tags are
	// visible to subscribers. Default is full suppression.
	BroadcastUnknownTags bool
}

// RedisConfig holds connection settings for the optional Redis-backed
// debounce store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:      envString("HTTP_ADDR", ":8766"),
		ReaderURL: envString("READER_URL", "http://192.168.1.100:8080"),

		PollInterval: envDuration("POLL_INTERVAL", 100*time.Millisecond),
		PollBackoff:  envDuration("POLL_BACKOFF", time.Second),
		PollTimeout:  envDuration("POLL_TIMEOUT", time.Second),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},

		DebounceWindow:        time.Duration(envInt("DEBOUNCE_SECONDS", 5)) * time.Second,
		DebounceSweepInterval: envDuration("DEBOUNCE_SWEEP_INTERVAL", 10*time.Minute),
		MinDwell:              time.Duration(envInt("MIN_DWELL_SECONDS", 10)) * time.Second,

		NotifyInterval: envDuration("NOTIFY_INTERVAL", 2*time.Second),
		FonnteToken:    os.Getenv("FONNTE_TOKEN"),
		WhatsAppPhone:  os.Getenv("WHATSAPP_PHONE"),

		BroadcastUnknownTags: os.Getenv("BROADCAST_UNKNOWN_TAGS") == "true",
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
