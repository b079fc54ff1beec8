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

	"access-platform/internal/access"
	"access-platform/internal/attendance"
	"access-platform/internal/auth"
	"access-platform/internal/authz"
	"access-platform/internal/biometric"
	"access-platform/internal/config"
	"access-platform/internal/credential"
	"access-platform/internal/hardware"
	"access-platform/internal/identity"
	"access-platform/internal/ledger"
	"access-platform/internal/notify"
	"access-platform/internal/schedule"
	"access-platform/internal/toggle"
	"access-platform/pkg/logger"
	"access-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Stores
	identities := identity.NewPostgresStore(db)
	schedules := schedule.NewPostgresStore(db)
	ledgerStore := ledger.NewPostgresStore(db)
	panels := hardware.NewPostgresPanelStore(db)

	// Outbound notifications: new presence events are published to Redis so
	// receptionist dashboards refresh without polling.
	queue := notify.NewQueue(
		notify.NewRedisPublisher(rdb, cfg.Access.NotifyChannel),
		cfg.Access.NotifyBuffer,
		log,
	)
	queue.Start()
	defer queue.Close(5 * time.Second)

	events := ledger.NewService(ledgerStore, queue, log)

	gate := authz.NewGate(schedules, identities, authz.Config{
		EntryTolerance:            cfg.Access.EntryTolerance,
		ExitTolerance:             cfg.Access.ExitTolerance,
		CancelLapse:               cfg.Access.CancelLapse,
		ValidateSchedule:          cfg.Access.ValidateSchedule,
		RequireCheckAuthorization: cfg.Access.RequireCheckAuthorization,
	})
	resolver := credential.NewResolver(identities, identities, identities, cfg.Access.VisitorCodeOffset)
	engine := toggle.NewEngine(events)

	// The matcher runs out of process; until one is provisioned the timeout
	// wrapper guards an always-unavailable stand-in so face validation
	// degrades to a recorded denial instead of an outage.
	matcher := biometric.NewTimeoutMatcher(biometric.UnavailableMatcher{}, cfg.Access.BiometricTimeout)

	accessSvc := access.NewService(
		resolver,
		gate,
		engine,
		events,
		identities,
		identities,
		matcher,
		cfg.Access.BiometricMinSimilarity,
		log,
	)

	reconciler := hardware.NewReconciler(events, identities, identities, panels, cfg.Access.VisitorCodeOffset, log).
		WithClaimGuard(
			func(ctx context.Context, key string) (bool, error) {
				return utils.ClaimOnce(ctx, rdb, fmt.Sprintf("hw:push:%s", key), 24*time.Hour)
			},
			func(ctx context.Context, key string) error {
				return utils.ReleaseClaim(ctx, rdb, fmt.Sprintf("hw:push:%s", key))
			},
		)

	reporter := attendance.NewReporter(events, time.Local)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, authManager, accessSvc, reconciler, reporter)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
