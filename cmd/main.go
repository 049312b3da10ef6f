package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/postgresstore"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"saiblibrary/internal/config"
	"saiblibrary/internal/database"
	"saiblibrary/internal/handlers"
	"saiblibrary/internal/repositories"
	"saiblibrary/internal/services"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "library",
		Short:        "Library management service",
		SilenceUsage: true,
		RunE:         func(cmd *cobra.Command, _ []string) error { return serve(cmd.Context()) },
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE:  func(cmd *cobra.Command, _ []string) error { return serve(cmd.Context()) },
		},
		migrateCmd(),
		reconcileCmd(),
		hashPasswordCmd(),
		createSuperAdminCmd(),
	)
	return root
}

// app holds what every subcommand needs after startup.
type app struct {
	cfg  config.App
	log  *slog.Logger
	db   *gorm.DB
	opts services.Options
}

// bootstrap loads configuration, builds the logger and opens and migrates the database.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg)

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		log.Error("migration failed", "err", err)
		closeDB(db)
		return nil, err
	}
	return &app{
		cfg: cfg,
		log: log,
		db:  db,
		opts: services.Options{
			Logger:     log,
			FinePerDay: cfg.FinePerDay,
			BcryptCost: cfg.BcryptCost,
		},
	}, nil
}

func newLogger(cfg config.App) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, hopts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, hopts))
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func serve(ctx context.Context) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer closeDB(a.db)

	repos := repositories.New(a.db)
	borrowings := services.NewBorrowingService(a.db, repos, a.opts)
	members := services.NewMemberService(a.db, repos, borrowings, a.opts)

	sessions, err := newSessionManager(a)
	if err != nil {
		return err
	}

	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.Deps{
		Borrowings: borrowings,
		Catalog:    services.NewCatalogService(a.db, repos, a.opts),
		Members:    members,
		Auth:       services.NewAuthService(a.db, repos, members, a.opts),
		Admins:     services.NewAdminService(a.db, repos, a.opts),
		Sessions:   sessions,
		Logger:     a.log,
		Ping:       func(ctx context.Context) error { return database.Ping(ctx, a.db) },
		StaticDir:  a.cfg.StaticDir,
	})

	srv := &http.Server{
		Addr:         a.cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting server", "addr", a.cfg.ServerAddr, "env", a.cfg.Env, "driver", a.cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.log.Error("server error", "err", err)
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newSessionManager keeps sessions in Postgres when it is the backing store and
// in memory otherwise.
func newSessionManager(a *app) (*scs.SessionManager, error) {
	sessions := scs.New()
	sessions.Lifetime = a.cfg.Session.Lifetime
	sessions.Cookie.Name = a.cfg.Session.CookieName
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.Secure = a.cfg.Session.Secure
	sessions.Cookie.SameSite = http.SameSiteLaxMode

	if a.cfg.Database.Driver == config.DriverPostgres {
		sqlDB, err := a.db.DB()
		if err != nil {
			return nil, fmt.Errorf("get generic DB: %w", err)
		}
		sessions.Store = postgresstore.New(sqlDB)
	} else {
		sessions.Store = memstore.New()
	}
	return sessions, nil
}
