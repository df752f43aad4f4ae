package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Pipe tuning
	RingCapacity  int
	BatchSize     int
	ProducerDelay time.Duration
	// ConsumerTimeout bounds each consumer wait; zero waits indefinitely.
	ConsumerTimeout time.Duration
	Alphabet        string

	// Infrastructure
	MetricsAddr string
	TapAddr     string

	// Optional Redis diagnostics relay (disabled when RedisAddr is empty)
	RedisAddr     string
	RedisPassword string
	RelayChannel  string

	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		RingCapacity:    getEnvInt("RING_CAPACITY", 32),
		BatchSize:       getEnvInt("BATCH_SIZE", 3),
		ProducerDelay:   time.Duration(getEnvInt("PRODUCER_DELAY_MS", 10)) * time.Millisecond,
		ConsumerTimeout: time.Duration(getEnvInt("CONSUMER_TIMEOUT_MS", 0)) * time.Millisecond,
		Alphabet:        getEnv("ALPHABET", "abcdefghijklmnopqrstuvwxyz"),

		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		TapAddr:     getEnv("TAP_ADDR", ":9100"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RelayChannel:  getEnv("RELAY_CHANNEL", "pub:pipe:drain"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
