package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hcm/internal/domain/attendance"
	"hcm/internal/domain/audit"
	"hcm/internal/domain/auth"
	"hcm/internal/domain/core"
	"hcm/internal/domain/leave"
	"hcm/internal/domain/notifications"
	"hcm/internal/domain/reports"
	"hcm/internal/platform/config"
	"hcm/internal/platform/db"
	"hcm/internal/platform/email"
	"hcm/internal/platform/jobs"
	"hcm/internal/platform/metrics"
	attendancehandler "hcm/internal/transport/http/handlers/attendance"
	audithandler "hcm/internal/transport/http/handlers/audit"
	authhandler "hcm/internal/transport/http/handlers/auth"
	corehandler "hcm/internal/transport/http/handlers/core"
	leavehandler "hcm/internal/transport/http/handlers/leave"
	notificationshandler "hcm/internal/transport/http/handlers/notifications"
	reportshandler "hcm/internal/transport/http/handlers/reports"
	"hcm/internal/transport/http/middleware"
)

type App struct {
	Config config.Config
	Pool   *pgxpool.Pool
	Router http.Handler
	Jobs   *jobs.Service
}

// New connects, migrates, seeds and wires the full HTTP surface. The
// returned App owns the pool; call Close when done.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, db.FindMigrationsDir()); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	// Domain services.
	authStore := auth.NewStore(pool)
	authService := auth.NewService(authStore, cfg.JWTSecret)
	coreService := core.NewService(core.NewStore(pool))
	auditService := audit.New(pool)
	notifyService := notifications.New(notifications.NewStore(pool), email.New(cfg), cfg.EmailFrom)
	leaveService := leave.NewService(leave.NewStore(pool), coreService)

	cutoff, err := config.ParseClockTime(cfg.LateCutoff)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("late cutoff: %w", err)
	}
	attendanceService := attendance.NewService(attendance.NewStore(pool), cutoff)

	reportsService := reports.NewService(reports.NewStore(pool))
	jobsService := jobs.New(pool, cfg, leaveService)
	idemStore := middleware.NewIdempotencyStore(pool)

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Logger(collector))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authService, authStore).RegisterRoutes(r)
		corehandler.NewHandler(coreService, authStore, auditService).RegisterRoutes(r)
		leavehandler.NewHandler(leaveService, coreService, authStore, notifyService, auditService, jobsService, idemStore).RegisterRoutes(r)
		attendancehandler.NewHandler(attendanceService, coreService, authStore, auditService).RegisterRoutes(r)
		reportshandler.NewHandler(reportsService, authStore, jobsService, collector).RegisterRoutes(r)
		notificationshandler.NewHandler(notifyService).RegisterRoutes(r)
		audithandler.NewHandler(auditService, authStore).RegisterRoutes(r)
	})

	return &App{Config: cfg, Pool: pool, Router: router, Jobs: jobsService}, nil
}

// Run starts the background job worker and serves until the listener
// fails or the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.Jobs.Start(ctx)

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown", "err", err)
		}
	}()

	slog.Info("server listening", "addr", a.Config.Addr, "env", a.Config.Environment)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) Close() {
	a.Pool.Close()
}
