package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/campus-scheduler/analytics"
	"github.com/warp/campus-scheduler/api"
	"github.com/warp/campus-scheduler/campus"
	"github.com/warp/campus-scheduler/campus/store"
	"github.com/warp/campus-scheduler/config"
	"github.com/warp/campus-scheduler/store/postgres"
	"github.com/warp/campus-scheduler/store/sqlite"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Port int
	DSN  string
}

func newServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the campus event manager API.

The storage backend is chosen from the DSN: "memory" for in-process
stores, a postgres:// or postgresql:// URL for PostgreSQL, anything else
is a SQLite database path.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = opts.Port
			}
			if cmd.Flags().Changed("db") {
				cfg.Storage.DSN = opts.DSN
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 8080, "HTTP server port (overrides config)")
	cmd.Flags().StringVar(&opts.DSN, "db", "", `storage DSN: "memory", a SQLite path, or a postgres:// URL (overrides config)`)

	return cmd
}

// backend is what every storage implementation provides.
type backend interface {
	Events() campus.EventStore
	Registrations() campus.RegistrationStore
	campus.AuditLog
	campus.Resetter
	Close() error
}

type memoryBackend struct{ *store.Memory }

func (memoryBackend) Close() error { return nil }

func openBackend(ctx context.Context, dsn string) (backend, error) {
	switch {
	case dsn == "memory":
		return memoryBackend{store.NewMemory()}, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		pg, err := postgres.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		if err := ensureDataDir(dsn); err != nil {
			return nil, err
		}
		db, err := sqlite.New(dsn)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}

// ensureDataDir creates the parent directory of a SQLite file path.
func ensureDataDir(dsn string) error {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	allocations, err := cfg.Allocations()
	if err != nil {
		return err
	}

	// Initialize store
	db, err := openBackend(ctx, cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer db.Close()

	// Services
	sched := campus.NewSchedulingService(db.Events(), logger)
	sched.TimeSlots = cfg.Catalog.TimeSlots
	regs := campus.NewRegistrationService(db.Events(), db.Registrations(), logger)
	engine := analytics.NewEngine(cfg.Catalog.Venues, cfg.Catalog.TimeSlots, allocations, nil)

	handler := api.NewHandler(sched, regs, engine, db, logger)

	audit := api.NewAuditScheduler(db, sched, regs, engine, logger)
	audit.CheckInterval = cfg.Audit.Interval
	audit.Enabled = cfg.Audit.Enabled
	handler.Audit = audit

	router := api.NewRouter(handler, api.RouterOptions{
		Users:          api.NewJWTAuth(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		AllowedOrigins: cfg.Server.CORSOrigins,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	audit.Start()
	defer audit.Stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("addr", server.Addr),
			slog.String("storage", storageKind(cfg.Storage.DSN)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// storageKind names the backend without leaking credentials from a URL.
func storageKind(dsn string) string {
	switch {
	case dsn == "memory":
		return "memory"
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres"
	default:
		return "sqlite:" + dsn
	}
}
