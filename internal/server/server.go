// Package server provides the main server initialization and run logic.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/brainwash-news/newsdesk/internal/api"
	"github.com/brainwash-news/newsdesk/internal/api/handlers"
	"github.com/brainwash-news/newsdesk/internal/config"
	"github.com/brainwash-news/newsdesk/internal/db"
	"github.com/brainwash-news/newsdesk/internal/ingest"
	"github.com/brainwash-news/newsdesk/internal/logger"
	"github.com/brainwash-news/newsdesk/internal/media"
	"github.com/brainwash-news/newsdesk/internal/queue"
	"github.com/brainwash-news/newsdesk/internal/rbac"
	"github.com/brainwash-news/newsdesk/internal/service"
	"github.com/brainwash-news/newsdesk/internal/worker"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Config holds the server configuration options.
type Config struct {
	Port    int    // Port to run the server on (0 = use config default)
	Mode    string // Run mode: server, worker, or both
	Version string // Version string to report
}

// Runtime is the set of components shared by every run mode.
type Runtime struct {
	Config *config.Config
	DB     *gorm.DB
	Media  media.Store
}

// Setup loads configuration, initializes logging and opens the database with
// migrations applied. The CLI's one-shot commands reuse it.
func Setup(ctx context.Context) (*Runtime, error) {
	appCfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Init(appCfg.Log.Format, appCfg.Log.Level, logger.Options{
		File:       appCfg.Log.File,
		MaxSizeMB:  appCfg.Log.MaxSizeMB,
		MaxBackups: appCfg.Log.MaxBackups,
		MaxAgeDays: appCfg.Log.MaxAgeDays,
	})

	// Propagate app log level to database if not explicitly set
	if appCfg.Database.LogLevel == "" {
		appCfg.Database.LogLevel = appCfg.Log.Level
	}

	database, err := db.New(appCfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("Database initialized", "driver", appCfg.Database.Driver)

	if err := db.Migrate(database); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database migrations completed")

	if err := rbac.InitEnforcer(database, slog.Default()); err != nil {
		return nil, fmt.Errorf("failed to initialize RBAC: %w", err)
	}

	store, err := media.New(ctx, appCfg.Media)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media store: %w", err)
	}
	slog.Info("Media store initialized", "driver", appCfg.Media.Driver)

	return &Runtime{Config: appCfg, DB: database, Media: store}, nil
}

// Run starts the server with the given configuration and blocks until the context is canceled.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Version != "" {
		handlers.Version = cfg.Version
	}

	mode := cfg.Mode
	if mode == "" {
		mode = "both"
	}
	runServer := mode == "server" || mode == "both"
	runWorker := mode == "worker" || mode == "both"
	if !runServer && !runWorker {
		return fmt.Errorf("invalid mode %q: valid modes are server, worker, both", mode)
	}

	rt, err := Setup(ctx)
	if err != nil {
		return err
	}
	appCfg := rt.Config

	// Override port from CLI flag if provided
	if cfg.Port != 0 {
		appCfg.Server.Port = cfg.Port
	}

	slog.Info("Starting newsdesk", "version", handlers.Version, "mode", mode)

	if err := db.CreateDefaultAdmin(rt.DB); err != nil {
		return fmt.Errorf("failed to create default admin user: %w", err)
	}

	jobQueue, err := queue.New(appCfg.Queue, rt.DB)
	if err != nil {
		return fmt.Errorf("failed to initialize job queue: %w", err)
	}
	defer jobQueue.Close()
	slog.Info("Job queue initialized", "type", appCfg.Queue.Type)

	g, gctx := errgroup.WithContext(ctx)

	if runWorker {
		articles := service.NewArticleService(rt.DB, service.NewGroupService(rt.DB), rt.Media)
		w := worker.New(rt.DB, jobQueue, articles, slog.Default())
		g.Go(func() error {
			slog.Info("Worker started")
			if err := w.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("worker: %w", err)
			}
			slog.Info("Worker stopped")
			return nil
		})

		scanner := ingest.NewScanner(rt.DB, jobQueue, appCfg.Ingest, slog.Default())
		g.Go(func() error {
			return scanner.Start(gctx)
		})
	}

	if runServer {
		router := api.NewRouter(appCfg, rt.DB, rt.Media)
		addr := fmt.Sprintf(":%d", appCfg.Server.Port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			slog.Info("Server listening", "address", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}
			slog.Info("Server stopped")
			return nil
		})
	}

	err = g.Wait()
	slog.Info("newsdesk exited")
	return err
}

// RunWithSignalHandling starts the server and handles OS signals for graceful shutdown.
func RunWithSignalHandling(cfg Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Run(ctx, cfg)
}
