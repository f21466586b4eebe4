package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/chain"
	"github.com/wurlus/suibets/internal/config"
	"github.com/wurlus/suibets/internal/domain"
	"github.com/wurlus/suibets/internal/guard"
)

// SocialService runs the peer prediction markets: creation, side bets, the
// periodic auto-resolver, and the manual resolve endpoint. The resolver and
// the endpoint share one single-flight guard per prediction id.
type SocialService struct {
	store   SocialStore
	gateway chain.Gateway
	cfg     *config.Config
	logger  *slog.Logger

	resolving *guard.KeySet[string]
}

// NewSocialService creates a SocialService.
func NewSocialService(store SocialStore, gateway chain.Gateway, cfg *config.Config, logger *slog.Logger) *SocialService {
	return &SocialService{
		store:     store,
		gateway:   gateway,
		cfg:       cfg,
		logger:    logger,
		resolving: guard.NewKeySet[string](),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Creation and betting
// ──────────────────────────────────────────────────────────────────────────────

// CreatePrediction opens a new yes/no market.
func (s *SocialService) CreatePrediction(ctx context.Context, creator, title, description, category string, endDate time.Time) (*domain.Prediction, error) {
	if title == "" || endDate.Before(time.Now()) {
		return nil, fmt.Errorf("social.CreatePrediction: title required and end date must be in the future")
	}
	p := &domain.Prediction{
		ID:            uuid.NewString(),
		CreatorWallet: domain.NormalizeWallet(creator),
		Title:         title,
		Description:   description,
		Category:      category,
		EndDate:       endDate.UTC(),
		Status:        domain.PredictionActive,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.CreatePrediction(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// PlaceBet admits one side bet. The tx id unique index makes retries
// idempotent; the pool bump is conditional on the prediction staying active.
func (s *SocialService) PlaceBet(ctx context.Context, predictionID, wallet string, side domain.PredictionSide, amount int64, txID string) (*domain.PredictionBet, error) {
	if !side.IsValid() {
		return nil, fmt.Errorf("social.PlaceBet: side must be yes or no")
	}
	if amount <= 0 {
		return nil, fmt.Errorf("social.PlaceBet: amount must be positive")
	}
	if txID == "" {
		return nil, fmt.Errorf("social.PlaceBet: tx id required")
	}

	p, err := s.store.GetPrediction(ctx, predictionID)
	if err != nil {
		return nil, err
	}
	if !p.Status.IsActive() {
		return nil, domain.ErrPredictionNotActive
	}
	if time.Now().After(p.EndDate) {
		return nil, domain.ErrPredictionNotActive
	}

	bet := &domain.PredictionBet{
		ID:           uuid.NewString(),
		PredictionID: predictionID,
		Wallet:       domain.NormalizeWallet(wallet),
		Side:         side,
		Amount:       amount,
		TxID:         txID,
		PlacedAt:     time.Now().UTC(),
	}
	if err = s.store.InsertBet(ctx, bet); err != nil {
		return nil, err
	}
	return bet, nil
}

// List returns predictions, optionally filtered by status.
func (s *SocialService) List(ctx context.Context, status domain.PredictionStatus) ([]*domain.Prediction, error) {
	return s.store.ListPredictions(ctx, status)
}

// Get returns one prediction.
func (s *SocialService) Get(ctx context.Context, id string) (*domain.Prediction, error) {
	return s.store.GetPrediction(ctx, id)
}

// ──────────────────────────────────────────────────────────────────────────────
// Auto-resolver
// ──────────────────────────────────────────────────────────────────────────────

// ResolveExpired resolves every active prediction past its end date. Called
// by the scheduler every 2 minutes; a failing prediction does not abort the
// others.
func (s *SocialService) ResolveExpired(ctx context.Context) error {
	expired, err := s.store.ExpiredActive(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("social.ResolveExpired: fetch: %w", err)
	}
	for _, p := range expired {
		if err := s.Resolve(ctx, p.ID); err != nil {
			s.logger.Error("prediction auto-resolve failed", "prediction", p.ID, "err", err)
		}
	}
	return nil
}

// Resolve settles one prediction to its majority side and fans out the
// winner payouts. Shared by the auto-resolver and the manual endpoint; the
// per-id guard makes a second concurrent call return immediately.
func (s *SocialService) Resolve(ctx context.Context, predictionID string) error {
	if !s.resolving.TryAcquire(predictionID) {
		return domain.ErrGuardHeld
	}
	defer s.resolving.Release(predictionID)

	// Reload within the guard; abort if no longer active.
	p, err := s.store.GetPrediction(ctx, predictionID)
	if err != nil {
		return err
	}
	if !p.Status.IsActive() {
		return domain.ErrPredictionNotActive
	}

	side := p.WinningSide()
	totalPool := p.TotalPool()

	winnersTotal := p.TotalYesAmount
	if side == domain.SideNo {
		winnersTotal = p.TotalNoAmount
	}

	// Empty pool or no winners: close with no payouts.
	if totalPool == 0 || winnersTotal == 0 {
		status := domain.PredictionExpired
		if totalPool > 0 {
			status = domain.ResolvedStatus(side, true, false)
		}
		if _, err = s.store.FinishPrediction(ctx, predictionID, status, string(side)); err != nil {
			return err
		}
		s.logger.Info("prediction closed without payouts", "prediction", predictionID, "status", status)
		return nil
	}

	bets, err := s.store.BetsFor(ctx, predictionID)
	if err != nil {
		return fmt.Errorf("social.Resolve %s: bets: %w", predictionID, err)
	}

	// Sequential payouts with pacing for the shared signing key.
	paid, failed := 0, 0
	for _, b := range bets {
		if b.Side != side {
			continue
		}
		share := domain.WinnerShare(b.Amount, winnersTotal, totalPool)
		if share <= 0 {
			continue
		}
		_, terr := s.gateway.Transfer(ctx, b.Wallet, decimal.NewFromInt(share), domain.CurrencySBETS)
		if terr != nil {
			s.logger.Error("prediction payout failed",
				"prediction", predictionID, "wallet", b.Wallet, "share", share, "err", terr)
			failed++
		} else {
			paid++
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.Chain.PayoutGap):
		}
	}

	status := domain.ResolvedStatus(side, failed == 0, paid > 0)
	if _, err = s.store.FinishPrediction(ctx, predictionID, status, string(side)); err != nil {
		return err
	}
	s.logger.Info("prediction resolved",
		"prediction", predictionID, "side", side, "paid", paid, "failed", failed)
	return nil
}
