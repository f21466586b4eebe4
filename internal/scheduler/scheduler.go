// Package scheduler runs the background workers of the bet lifecycle engine:
// settlement, social resolvers, staking accrual, registry refreshes, and the
// live-score broadcast. Each worker is an independent goroutine with its own
// tick interval and panic recovery; crashing a loop restarts it without
// carrying over any in-memory state.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/wurlus/suibets/internal/config"
	"github.com/wurlus/suibets/internal/registry"
	"github.com/wurlus/suibets/internal/service"
	"github.com/wurlus/suibets/internal/sports"
	"github.com/wurlus/suibets/internal/ws"
)

// ScoreBroadcaster is the slice of the WS hub the scheduler needs.
type ScoreBroadcaster interface {
	BroadcastScores(events []sports.RawEvent)
}

// Scheduler owns the worker goroutines. Call Start(ctx) once from main();
// cancel the context to shut everything down.
type Scheduler struct {
	settlement *service.SettlementService
	social     *service.SocialService
	challenges *service.ChallengeService
	staking    *service.StakingService
	sessions   *service.AdminSessions
	events     *registry.Registry
	hub        ScoreBroadcaster
	cfg        *config.Config
	logger     *slog.Logger
}

// New creates a Scheduler.
func New(
	settlement *service.SettlementService,
	social *service.SocialService,
	challenges *service.ChallengeService,
	staking *service.StakingService,
	sessions *service.AdminSessions,
	events *registry.Registry,
	hub ScoreBroadcaster,
	cfg *config.Config,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		settlement: settlement,
		social:     social,
		challenges: challenges,
		staking:    staking,
		sessions:   sessions,
		events:     events,
		hub:        hub,
		cfg:        cfg,
		logger:     logger,
	}
}

// Start launches every worker loop. Returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	go s.supervise(ctx, "settlement", time.Minute, func(c context.Context) {
		if err := s.settlement.RunCycle(c); err != nil {
			s.logger.Error("settlement cycle", "err", err)
		}
	})
	go s.supervise(ctx, "prediction-resolver", 2*time.Minute, func(c context.Context) {
		if err := s.social.ResolveExpired(c); err != nil {
			s.logger.Error("prediction resolver", "err", err)
		}
	})
	go s.supervise(ctx, "challenge-refund", 2*time.Minute, func(c context.Context) {
		if err := s.challenges.RefundExpired(c); err != nil {
			s.logger.Error("challenge refund", "err", err)
		}
	})
	go s.supervise(ctx, "staking-accrual", time.Hour, func(c context.Context) {
		if err := s.staking.AccrueAll(c); err != nil {
			s.logger.Error("staking accrual", "err", err)
		}
	})
	go s.supervise(ctx, "live-refresh", time.Minute, s.refreshLive)
	go s.supervise(ctx, "upcoming-refresh", 10*time.Minute, func(c context.Context) {
		s.events.GetUpcoming(c, nil)
	})
	go s.supervise(ctx, "odds-prefetch", s.cfg.Sports.OddsPrefetch, s.events.PrefetchOdds)
	go s.sessions.RunSweeper(ctx)

	s.logger.Info("scheduler started")
}

// supervise runs fn on every tick, restarting the loop after a panic. The
// first run fires immediately so a restart doesn't wait a full interval.
func (s *Scheduler) supervise(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) {
	for {
		if done := s.runLoop(ctx, name, interval, fn); done {
			return
		}
		// The loop panicked; log already happened in recoverAndLog. Back off
		// briefly so a hot panic cannot spin.
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
		s.logger.Warn("worker loop restarting", "loop", name)
	}
}

// runLoop is one life of a worker loop. Returns true on clean shutdown.
func (s *Scheduler) runLoop(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) (done bool) {
	defer s.recoverAndLog(name)

	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("worker loop shutting down", "loop", name)
			return true
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// refreshLive refreshes the live cache and pushes a score update to WS
// subscribers.
func (s *Scheduler) refreshLive(ctx context.Context) {
	live := s.events.GetLive(ctx, nil)
	if s.hub != nil && len(live) > 0 {
		s.hub.BroadcastScores(live)
	}
}

// recoverAndLog is deferred inside each loop life to catch unexpected panics
// and let the supervisor restart the loop.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in worker loop", "loop", loop, "panic", r)
	}
}

// Interface check: the ws hub satisfies ScoreBroadcaster.
var _ ScoreBroadcaster = (*ws.Hub)(nil)
