// Package main is the entry point for the suibets betting API server. It
// wires together the repositories, the chain gateway, the event registry,
// the lifecycle services, the WebSocket hub, and the background scheduler.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // postgres driver
	"github.com/wurlus/suibets/internal/api"
	"github.com/wurlus/suibets/internal/config"
	"github.com/wurlus/suibets/internal/registry"
	"github.com/wurlus/suibets/internal/repository"
	"github.com/wurlus/suibets/internal/scheduler"
	"github.com/wurlus/suibets/internal/service"
	"github.com/wurlus/suibets/internal/sports"
	"github.com/wurlus/suibets/internal/ws"

	suichain "github.com/wurlus/suibets/internal/chain"
)

func main() {
	// ── 1. Config + logger ────────────────────────────────────────────────────
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting suibets server",
		"env", cfg.Server.Env, "port", cfg.Server.Port, "network", cfg.Chain.Network)

	// ── 2. Database ───────────────────────────────────────────────────────────
	db, err := sqlx.Connect("postgres", cfg.DB.DSN)
	if err != nil {
		logger.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	if err = db.Ping(); err != nil {
		logger.Error("database ping failed", "err", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// ── 3. Migrations ─────────────────────────────────────────────────────────
	if err = runMigrations(db, "migrations"); err != nil {
		logger.Error("migrations failed", "err", err)
		os.Exit(1)
	}
	logger.Info("migrations applied")

	// ── 4. Repositories ───────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	betRepo := repository.NewBetRepository(db)
	eventRepo := repository.NewEventRepository(db)
	socialRepo := repository.NewSocialRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	stakingRepo := repository.NewStakingRepository(db)
	revenueRepo := repository.NewRevenueRepository(db)

	// ── 5. External gateways ──────────────────────────────────────────────────
	gateway := suichain.NewSuiGateway(cfg, logger)
	football := sports.NewFootballClient(cfg, logger)
	free := sports.NewFreeSportsClient(cfg.Sports.FreeSportsURL, logger)
	events := registry.New(football, free, cfg, logger)

	// ── 6. Services ───────────────────────────────────────────────────────────
	admissionSvc := service.NewAdmissionService(betRepo, userRepo, events, cfg, logger)
	settlementSvc := service.NewSettlementService(betRepo, eventRepo, userRepo, football, gateway, cfg, logger)
	socialSvc := service.NewSocialService(socialRepo, gateway, cfg, logger)
	challengeSvc := service.NewChallengeService(challengeRepo, gateway, cfg, logger)
	revenueSvc := service.NewRevenueService(betRepo, revenueRepo, userRepo, gateway, cfg, logger)
	stakingSvc := service.NewStakingService(stakingRepo, userRepo, gateway, cfg, logger)
	userSvc := service.NewUserService(userRepo, gateway, cfg, logger)
	sessions := service.NewAdminSessions(cfg)

	// ── 7. WebSocket hub ──────────────────────────────────────────────────────
	var allowedOrigins []string
	if ori := os.Getenv("WS_ALLOWED_ORIGINS"); ori != "" {
		for _, o := range strings.Split(ori, ",") {
			allowedOrigins = append(allowedOrigins, strings.TrimSpace(o))
		}
	}
	hub := ws.NewHub(allowedOrigins, logger)

	// ── 8. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go hub.Run()
	logger.Info("websocket hub started")

	// ── 9. Scheduler ──────────────────────────────────────────────────────────
	sched := scheduler.New(settlementSvc, socialSvc, challengeSvc, stakingSvc,
		sessions, events, hub, cfg, logger)
	sched.Start(ctx)

	// ── 10. HTTP router ───────────────────────────────────────────────────────
	router := api.SetupRouter(api.RouterDeps{
		Admission:  admissionSvc,
		Settlement: settlementSvc,
		Social:     socialSvc,
		Challenges: challengeSvc,
		Revenue:    revenueSvc,
		Staking:    stakingSvc,
		Users:      userSvc,
		Sessions:   sessions,
		Bets:       betRepo,
		Settled:    eventRepo,
		Events:     events,
		Hub:        hub,
		Cfg:        cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── 11. Start server ──────────────────────────────────────────────────────
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop() // trigger graceful shutdown
		}
	}()

	// ── 12. Graceful shutdown ─────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received, draining connections…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "err", err)
	}

	db.Close()
	logger.Info("server stopped cleanly")
}

// runMigrations reads all *.sql files from dir, sorted by name, and executes
// them sequentially. Idempotent: SQL files use IF NOT EXISTS / ON CONFLICT.
func runMigrations(db *sqlx.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("runMigrations: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("runMigrations: read %q: %w", f, err)
		}
		if _, err = db.Exec(string(data)); err != nil {
			return fmt.Errorf("runMigrations: exec %q: %w", f, err)
		}
		slog.Info("migration applied", "file", filepath.Base(f))
	}
	return nil
}
