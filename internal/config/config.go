// Package config loads process configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// ConnString builds the lib/pq connection string
func (c DatabaseConfig) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port pair for the Redis client
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheConfig controls the versioned cache-aside layer
type CacheConfig struct {
	Version  string
	TTL      time.Duration
	MaxBytes int
}

// FeedConfig controls the price ingestion loop
type FeedConfig struct {
	BaseURL       string
	APIKey        string
	FetchInterval time.Duration
	FetchTimeout  time.Duration
	Coins         []string
}

// SMTPConfig holds email delivery settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// TelegramConfig holds Telegram Bot API settings
type TelegramConfig struct {
	BotToken string
	Timeout  time.Duration
}

// BusConfig controls the in-process event bus
type BusConfig struct {
	Partitions int
	BufferSize int
}

// ChannelsConfig toggles notification delivery channels process-wide
type ChannelsConfig struct {
	EmailEnabled    bool
	TelegramEnabled bool
}

// Config is the full process configuration
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Feed     FeedConfig
	SMTP     SMTPConfig
	Telegram TelegramConfig
	Bus      BusConfig
	Channels ChannelsConfig
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables win over file values.
func Load() (*Config, error) {
	// Missing .env is the normal case in containers.
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "coinpulse"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Version:  getEnv("CACHE_VERSION", "v1"),
			TTL:      getEnvDuration("CACHE_TTL", time.Hour),
			MaxBytes: getEnvInt("CACHE_MAX_BYTES", 50*1024*1024),
		},
		Feed: FeedConfig{
			BaseURL:       getEnv("COINGECKO_BASE_URL", ""),
			APIKey:        getEnv("COINGECKO_API_KEY", ""),
			FetchInterval: getEnvDuration("FETCH_INTERVAL", time.Minute),
			FetchTimeout:  getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
			Coins:         getEnvList("COINS", []string{"bitcoin", "ethereum"}),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvInt("SMTP_PORT", 1025),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@coinpulse.io"),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			Timeout:  getEnvDuration("TELEGRAM_TIMEOUT", 30*time.Second),
		},
		Bus: BusConfig{
			Partitions: getEnvInt("BUS_PARTITIONS", 8),
			BufferSize: getEnvInt("BUS_BUFFER_SIZE", 256),
		},
		Channels: ChannelsConfig{
			EmailEnabled:    getEnvBool("EMAIL_NOTIFICATIONS_ENABLED", true),
			TelegramEnabled: getEnvBool("TELEGRAM_NOTIFICATIONS_ENABLED", false),
		},
	}

	if cfg.Channels.TelegramEnabled && cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("telegram notifications enabled but TELEGRAM_BOT_TOKEN is empty")
	}
	if cfg.Cache.MaxBytes <= 0 {
		return nil, fmt.Errorf("CACHE_MAX_BYTES must be positive")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
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

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
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

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
