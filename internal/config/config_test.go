package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"DATABASE_URL": "postgres://localhost/library",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, 10, cfg.Database.MaxIdleConns)
	assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 24*time.Hour, cfg.Session.Lifetime)
	assert.False(t, cfg.Session.Secure)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, "10", cfg.FinePerDay.String())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestFromLookup_Overrides(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"DATABASE_URL":     "file:library.db",
		"DB_DRIVER":        "SQLite",
		"APP_ENV":          "production",
		"SESSION_LIFETIME": "2h",
		"FINE_PER_DAY":     "2.50",
		"LOG_LEVEL":        "debug",
		"LOG_FORMAT":       "text",
	}))
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.True(t, cfg.Session.Secure)
	assert.Equal(t, 2*time.Hour, cfg.Session.Lifetime)
	assert.Equal(t, "2.5", cfg.FinePerDay.String())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestFromLookup_Errors(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{
		"DB_DRIVER":         "mysql",
		"DB_MAX_OPEN_CONNS": "many",
		"FINE_PER_DAY":      "-1",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
	assert.Contains(t, err.Error(), "unsupported driver")
	assert.Contains(t, err.Error(), "DB_MAX_OPEN_CONNS")
	assert.Contains(t, err.Error(), "FINE_PER_DAY")
}
