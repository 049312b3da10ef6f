// Package config loads the service configuration from the environment, optionally
// seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type App struct {
	ServerAddr string
	Env        string
	StaticDir  string

	Database Database
	Session  Session

	BcryptCost int
	FinePerDay decimal.Decimal

	LogLevel  slog.Level
	LogFormat string
}

type Database struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type Session struct {
	CookieName string
	Lifetime   time.Duration
	Secure     bool
}

func (a App) IsProduction() bool {
	return a.Env == "production"
}

// Load reads .env (when present) and then the process environment.
func Load() (App, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return App{}, fmt.Errorf("load .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds the configuration from an arbitrary key lookup.
func FromLookup(lookup func(string) (string, bool)) (App, error) {
	e := env{lookup: lookup}

	cfg := App{
		ServerAddr: e.str("SERVER_ADDR", ":8080"),
		Env:        e.str("APP_ENV", "dev"),
		StaticDir:  e.str("STATIC_DIR", ""),
		Database: Database{
			Driver:          strings.ToLower(e.str("DB_DRIVER", DriverPostgres)),
			URL:             e.str("DATABASE_URL", ""),
			MaxOpenConns:    e.int("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    e.int("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: e.duration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Session: Session{
			CookieName: e.str("SESSION_COOKIE_NAME", "library_session"),
			Lifetime:   e.duration("SESSION_LIFETIME", 24*time.Hour),
		},
		BcryptCost: e.int("BCRYPT_COST", 10),
		FinePerDay: e.decimal("FINE_PER_DAY", decimal.NewFromInt(10)),
		LogFormat:  strings.ToLower(e.str("LOG_FORMAT", "json")),
	}
	cfg.Session.Secure = cfg.IsProduction()

	if err := cfg.LogLevel.UnmarshalText([]byte(e.str("LOG_LEVEL", "info"))); err != nil {
		e.errs = append(e.errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	if cfg.Database.URL == "" {
		e.errs = append(e.errs, errors.New("DATABASE_URL is required"))
	}
	switch cfg.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		e.errs = append(e.errs, fmt.Errorf("DB_DRIVER: unsupported driver %q", cfg.Database.Driver))
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		e.errs = append(e.errs, fmt.Errorf("LOG_FORMAT: want json or text, got %q", cfg.LogFormat))
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		e.errs = append(e.errs, fmt.Errorf("BCRYPT_COST: %d out of range 4..31", cfg.BcryptCost))
	}
	if cfg.FinePerDay.IsNegative() {
		e.errs = append(e.errs, errors.New("FINE_PER_DAY must not be negative"))
	}

	if len(e.errs) > 0 {
		return App{}, errors.Join(e.errs...)
	}
	return cfg, nil
}

type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *env) str(key, def string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *env) int(key string, def int) int {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (e *env) decimal(key string, def decimal.Decimal) decimal.Decimal {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
