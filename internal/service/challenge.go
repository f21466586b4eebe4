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

// ChallengeService runs peer challenges: creation, joining, creator
// settlement, and the periodic auto-refund of expired challenges. The
// refunder and the manual settle endpoint share one guard per challenge id.
type ChallengeService struct {
	store   ChallengeStore
	gateway chain.Gateway
	cfg     *config.Config
	logger  *slog.Logger

	settling *guard.KeySet[string]
}

// NewChallengeService creates a ChallengeService.
func NewChallengeService(store ChallengeStore, gateway chain.Gateway, cfg *config.Config, logger *slog.Logger) *ChallengeService {
	return &ChallengeService{
		store:    store,
		gateway:  gateway,
		cfg:      cfg,
		logger:   logger,
		settling: guard.NewKeySet[string](),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Creation and joining
// ──────────────────────────────────────────────────────────────────────────────

// Create opens a new challenge staked by its creator.
func (s *ChallengeService) Create(ctx context.Context, creator, title, description string, stake int64, maxParticipants int, side domain.PredictionSide, txHash string, expiresAt time.Time) (*domain.Challenge, error) {
	if stake <= 0 || maxParticipants < 1 {
		return nil, fmt.Errorf("challenge.Create: stake and participant cap must be positive")
	}
	if txHash == "" {
		return nil, fmt.Errorf("challenge.Create: tx hash required")
	}
	if expiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("challenge.Create: expiry must be in the future")
	}
	c := &domain.Challenge{
		ID:              uuid.NewString(),
		CreatorWallet:   domain.NormalizeWallet(creator),
		Title:           title,
		Description:     description,
		StakeAmount:     stake,
		MaxParticipants: maxParticipants,
		CreatorSide:     side,
		Status:          domain.ChallengeOpen,
		TxHash:          txHash,
		ExpiresAt:       expiresAt.UTC(),
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Join adds a wallet to an open challenge at the fixed stake. The creator
// cannot join their own challenge; the join tx is unique; the participant
// cap is enforced by the store's conditional bump.
func (s *ChallengeService) Join(ctx context.Context, challengeID, wallet string, side domain.PredictionSide, txHash string) (*domain.ChallengeParticipant, error) {
	wallet = domain.NormalizeWallet(wallet)
	if txHash == "" {
		return nil, fmt.Errorf("challenge.Join: tx hash required")
	}

	c, err := s.store.Get(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if c.Status.IsTerminal() {
		return nil, domain.ErrChallengeNotOpen
	}
	if c.CreatorWallet == wallet {
		return nil, domain.ErrSelfJoin
	}

	p := &domain.ChallengeParticipant{
		ID:          uuid.NewString(),
		ChallengeID: challengeID,
		Wallet:      wallet,
		Side:        side,
		TxHash:      txHash,
		JoinedAt:    time.Now().UTC(),
	}
	if err = s.store.AddParticipant(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns challenges, optionally filtered by status.
func (s *ChallengeService) List(ctx context.Context, status domain.ChallengeStatus) ([]*domain.Challenge, error) {
	return s.store.List(ctx, status)
}

// Get returns one challenge.
func (s *ChallengeService) Get(ctx context.Context, id string) (*domain.Challenge, error) {
	return s.store.Get(ctx, id)
}

// ──────────────────────────────────────────────────────────────────────────────
// Auto-refund
// ──────────────────────────────────────────────────────────────────────────────

// RefundExpired refunds every open challenge past its expiry. Called by the
// scheduler every 2 minutes.
func (s *ChallengeService) RefundExpired(ctx context.Context) error {
	expired, err := s.store.ExpiredOpen(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("challenge.RefundExpired: fetch: %w", err)
	}
	for _, c := range expired {
		if err := s.refund(ctx, c.ID); err != nil {
			s.logger.Error("challenge auto-refund failed", "challenge", c.ID, "err", err)
		}
	}
	return nil
}

// refund returns every stake (creator plus participants) for one expired
// challenge under its single-flight guard.
func (s *ChallengeService) refund(ctx context.Context, challengeID string) error {
	if !s.settling.TryAcquire(challengeID) {
		return domain.ErrGuardHeld
	}
	defer s.settling.Release(challengeID)

	c, err := s.store.Get(ctx, challengeID)
	if err != nil {
		return err
	}
	if c.Status.IsTerminal() {
		return domain.ErrChallengeNotOpen
	}

	participants, err := s.store.Participants(ctx, challengeID)
	if err != nil {
		return fmt.Errorf("challenge.refund %s: participants: %w", challengeID, err)
	}

	recipients := make([]string, 0, len(participants)+1)
	recipients = append(recipients, c.CreatorWallet)
	for _, p := range participants {
		recipients = append(recipients, p.Wallet)
	}

	paid, failed := s.fanOut(ctx, recipients, c.StakeAmount)
	status := domain.RefundedChallengeStatus(failed == 0, paid > 0)
	if _, err = s.store.Finish(ctx, challengeID, status); err != nil {
		return err
	}
	s.logger.Info("challenge refunded",
		"challenge", challengeID, "paid", paid, "failed", failed)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Manual settle
// ──────────────────────────────────────────────────────────────────────────────

// Settle lets the creator settle an open challenge for the chosen winning
// side. Winners split the full pot equally.
func (s *ChallengeService) Settle(ctx context.Context, challengeID, caller string, winningSide domain.PredictionSide) error {
	if !s.settling.TryAcquire(challengeID) {
		return domain.ErrGuardHeld
	}
	defer s.settling.Release(challengeID)

	c, err := s.store.Get(ctx, challengeID)
	if err != nil {
		return err
	}
	if c.Status.IsTerminal() {
		return domain.ErrChallengeNotOpen
	}
	if c.CreatorWallet != domain.NormalizeWallet(caller) {
		return domain.ErrForbidden
	}

	participants, err := s.store.Participants(ctx, challengeID)
	if err != nil {
		return fmt.Errorf("challenge.Settle %s: participants: %w", challengeID, err)
	}

	var winners []string
	if c.CreatorSide == winningSide {
		winners = append(winners, c.CreatorWallet)
	}
	for _, p := range participants {
		if p.Side == winningSide {
			winners = append(winners, p.Wallet)
		}
	}

	totalPot := c.StakeAmount * int64(len(participants)+1)
	if len(winners) == 0 {
		// Nobody picked the winning side: refund everyone instead.
		recipients := append([]string{c.CreatorWallet}, walletsOf(participants)...)
		paid, failed := s.fanOut(ctx, recipients, c.StakeAmount)
		status := domain.RefundedChallengeStatus(failed == 0, paid > 0)
		_, ferr := s.store.Finish(ctx, challengeID, status)
		return ferr
	}

	share := totalPot / int64(len(winners))
	paid, failed := s.fanOut(ctx, winners, share)
	status := domain.SettledChallengeStatus(failed == 0, paid > 0)
	if _, err = s.store.Finish(ctx, challengeID, status); err != nil {
		return err
	}
	s.logger.Info("challenge settled",
		"challenge", challengeID, "side", winningSide, "winners", len(winners),
		"paid", paid, "failed", failed)
	return nil
}

// fanOut sends amount SBETS to each recipient sequentially with the
// configured gap, returning success and failure counts.
func (s *ChallengeService) fanOut(ctx context.Context, recipients []string, amount int64) (paid, failed int) {
	amt := decimal.NewFromInt(amount)
	for _, wallet := range recipients {
		_, err := s.gateway.Transfer(ctx, wallet, amt, domain.CurrencySBETS)
		if err != nil {
			s.logger.Error("challenge transfer failed", "wallet", wallet, "amount", amount, "err", err)
			failed++
		} else {
			paid++
		}
		select {
		case <-ctx.Done():
			return paid, failed
		case <-time.After(s.cfg.Chain.PayoutGap):
		}
	}
	return paid, failed
}

func walletsOf(ps []*domain.ChallengeParticipant) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Wallet
	}
	return out
}
