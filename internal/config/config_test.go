package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_DefaultsApplyWhenEnvIsEmpty(t *testing.T) {
	cfg, err := Load()

	assert.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "v1", cfg.Cache.Version)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 50*1024*1024, cfg.Cache.MaxBytes)
	assert.Equal(t, []string{"bitcoin", "ethereum"}, cfg.Feed.Coins)
	assert.True(t, cfg.Channels.EmailEnabled)
	assert.False(t, cfg.Channels.TelegramEnabled)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("CACHE_VERSION", "v7")
	t.Setenv("CACHE_TTL", "15m")
	t.Setenv("COINS", "bitcoin, solana ,cardano")

	cfg, err := Load()

	assert.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "v7", cfg.Cache.Version)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"bitcoin", "solana", "cardano"}, cfg.Feed.Coins)
}

func TestLoad_TelegramEnabledRequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_NOTIFICATIONS_ENABLED", "true")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MalformedNumbersFallBack(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("FETCH_INTERVAL", "sometimes")

	cfg, err := Load()

	assert.NoError(t, err)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, time.Minute, cfg.Feed.FetchInterval)
}

func TestConnString_FormatsForLibPQ(t *testing.T) {
	c := DatabaseConfig{Host: "h", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5433 user=u password=p dbname=n sslmode=disable", c.ConnString())
}
