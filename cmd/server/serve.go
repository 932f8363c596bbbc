package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soaringjerry/mindbridge/internal/api"
	"github.com/soaringjerry/mindbridge/internal/catalog"
	"github.com/soaringjerry/mindbridge/internal/config"
	"github.com/soaringjerry/mindbridge/internal/db"
	"github.com/soaringjerry/mindbridge/internal/firestore"
	"github.com/soaringjerry/mindbridge/internal/middleware"
	"github.com/soaringjerry/mindbridge/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openStore returns the configured backend, running schema migrations for sqlite.
func openStore(ctx context.Context, cfg *config.Config) (api.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		sqlDB, err := db.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		applied, err := db.RunMigrations(ctx, sqlDB, cfg.Storage.MigrationsDir)
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		if len(applied) > 0 {
			observability.Logger().Info("applied migrations", "files", applied)
		}
		store, err := db.NewStore(sqlDB)
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return store, nil
	case config.BackendFirestore:
		store, err := firestore.NewStore(ctx, cfg.Storage.FirestoreProject)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		observability.Logger().Warn("using in-memory store; data is lost on restart")
		return api.NewMemoryStore(), nil
	}
}

func buildHandler(cfg *config.Config, router *api.Router) http.Handler {
	mux := http.NewServeMux()
	router.Register(mux)
	if cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	}
	var h http.Handler = mux
	h = middleware.CORS(cfg.CORSOrigins)(h)
	h = middleware.NoStore(h)
	h = middleware.SecureHeaders(h)
	return middleware.RequestLogger(h)
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := observability.Init(os.Stdout, cfg.LogLevel)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			log.Warn("close store", "error", cerr)
		}
	}()

	limiter := middleware.NewRateLimiter(cfg.Auth.RateLimit, cfg.Auth.RateBurst)
	router := api.NewRouter(api.Deps{
		Store:       store,
		Auth:        middleware.NewAuthenticator(cfg.Auth.JWTSecret),
		Catalog:     catalog.MustDefault(),
		AuthLimiter: limiter,
		TokenTTL:    cfg.Auth.TokenTTL,
		SessionTTL:  cfg.Session.TTL,
		Build:       api.BuildInfo{Commit: cfg.Commit, BuildTime: cfg.BuildTime},
	})

	go router.Assessments().RunSweeper(ctx, cfg.Session.SweepInterval)
	go cleanupLimiter(ctx, limiter, cfg.Session.SweepInterval)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           buildHandler(cfg, router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("mindbridge listening", "addr", cfg.Addr, "storage", cfg.Storage.Backend, "commit", cfg.Commit)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func cleanupLimiter(ctx context.Context, rl *middleware.RateLimiter, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := rl.Cleanup(); n > 0 {
				observability.Logger().Debug("rate limiter cleanup", "evicted", n)
			}
		}
	}
}
