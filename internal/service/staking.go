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

// StakingService manages SBETS stakes: the hourly accrual compounder,
// unstaking after the lock, and claim-without-unstake. Unstake is serialized
// per (wallet, stake); claims per wallet.
type StakingService struct {
	stakes  StakeStore
	users   UserStore
	gateway chain.Gateway
	cfg     *config.Config
	logger  *slog.Logger

	unstaking *guard.KeySet[string]
	claiming  *guard.KeySet[string]
}

// NewStakingService creates a StakingService.
func NewStakingService(stakes StakeStore, users UserStore, gateway chain.Gateway, cfg *config.Config, logger *slog.Logger) *StakingService {
	return &StakingService{
		stakes:    stakes,
		users:     users,
		gateway:   gateway,
		cfg:       cfg,
		logger:    logger,
		unstaking: guard.NewKeySet[string](),
		claiming:  guard.NewKeySet[string](),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Stake / info
// ──────────────────────────────────────────────────────────────────────────────

// Stake opens a new position funded by the given on-chain transaction.
func (s *StakingService) Stake(ctx context.Context, wallet string, amount int64, txHash string) (*domain.Stake, error) {
	if amount < domain.MinStakeSBETS {
		return nil, fmt.Errorf("staking.Stake: minimum stake is %d SBETS", domain.MinStakeSBETS)
	}
	if txHash == "" {
		return nil, fmt.Errorf("staking.Stake: tx hash required")
	}

	now := time.Now().UTC()
	stake := &domain.Stake{
		ID:          uuid.NewString(),
		Wallet:      domain.NormalizeWallet(wallet),
		Amount:      amount,
		TxHash:      txHash,
		Active:      true,
		StakedAt:    now,
		LockedUntil: now.Add(domain.StakeLockPeriod),
	}
	if err := s.stakes.Create(ctx, stake); err != nil {
		return nil, err
	}
	return stake, nil
}

// Info returns a wallet's stakes with live reward targets computed from the
// base fields, so readers never depend on the cached snapshot's freshness.
func (s *StakingService) Info(ctx context.Context, wallet string) ([]*domain.Stake, error) {
	stakes, err := s.stakes.ByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	for _, st := range stakes {
		if st.Active {
			if live := st.TargetReward(now); live > st.AccumulatedReward {
				st.AccumulatedReward = live
			}
		}
	}
	return stakes, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Hourly accrual compounder
// ──────────────────────────────────────────────────────────────────────────────

// AccrueAll advances every active stake's cached reward to its capped target.
// The store only ever moves the cached value upward, so a stale worker can
// never regress a fresher snapshot.
func (s *StakingService) AccrueAll(ctx context.Context) error {
	stakes, err := s.stakes.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("staking.AccrueAll: list: %w", err)
	}

	now := time.Now().UTC()
	advanced := 0
	for _, st := range stakes {
		target := st.TargetReward(now)
		if target <= st.AccumulatedReward {
			continue
		}
		if err := s.stakes.AdvanceReward(ctx, st.ID, target); err != nil {
			s.logger.Error("reward advance failed", "stake", st.ID, "err", err)
			continue
		}
		advanced++
	}
	if advanced > 0 {
		s.logger.Info("staking accrual advanced", "stakes", advanced)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Unstake
// ──────────────────────────────────────────────────────────────────────────────

// Unstake withdraws a stake after its lock: the conditional deactivation
// freezes the final reward, then principal plus reward is paid through the
// two-step on-chain path with the platform balance as a fallback.
func (s *StakingService) Unstake(ctx context.Context, wallet, stakeID string) (int64, error) {
	wallet = domain.NormalizeWallet(wallet)
	key := wallet + "|" + stakeID
	if !s.unstaking.TryAcquire(key) {
		return 0, domain.ErrGuardHeld
	}
	defer s.unstaking.Release(key)

	stake, err := s.stakes.Get(ctx, stakeID)
	if err != nil {
		return 0, err
	}
	if stake.Wallet != wallet {
		return 0, domain.ErrForbidden
	}
	now := time.Now().UTC()
	if stake.Locked(now) {
		return 0, domain.ErrStakeLocked
	}

	finalReward := stake.TargetReward(now)
	changed, err := s.stakes.Deactivate(ctx, stakeID, finalReward, now)
	if err != nil {
		return 0, err
	}
	if !changed {
		return 0, domain.ErrStakeInactive
	}

	total := stake.Amount + finalReward
	s.payOut(ctx, wallet, total)
	return total, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Claim rewards
// ──────────────────────────────────────────────────────────────────────────────

// ClaimRewards pays out the accrued rewards of every active stake without
// unstaking. Each stake's reward resets atomically only while active; the
// accrual clock restarts at now.
func (s *StakingService) ClaimRewards(ctx context.Context, wallet string) (int64, error) {
	wallet = domain.NormalizeWallet(wallet)
	if !s.claiming.TryAcquire(wallet) {
		return 0, domain.ErrGuardHeld
	}
	defer s.claiming.Release(wallet)

	stakes, err := s.stakes.ByWallet(ctx, wallet)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	var total int64
	for _, st := range stakes {
		if !st.Active {
			continue
		}
		reward := st.TargetReward(now)
		if reward <= 0 {
			continue
		}
		changed, rerr := s.stakes.ResetReward(ctx, st.ID, now)
		if rerr != nil {
			s.logger.Error("reward reset failed", "stake", st.ID, "err", rerr)
			continue
		}
		if changed {
			total += reward
		}
	}

	if total <= 0 {
		return 0, nil
	}
	s.payOut(ctx, wallet, total)
	return total, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Two-step payout
// ──────────────────────────────────────────────────────────────────────────────

// payOut runs the two-step on-chain path: withdraw from the treasury
// contract, wait for the effects to settle, then send from the admin wallet.
// Any step failure credits the amount to the user's platform balance instead,
// so the value is never lost.
func (s *StakingService) payOut(ctx context.Context, wallet string, amount int64) {
	amt := decimal.NewFromInt(amount)

	if _, err := s.gateway.WithdrawTreasury(ctx, amt); err != nil {
		s.logger.Error("treasury withdraw failed; crediting platform balance",
			"wallet", wallet, "amount", amount, "err", err)
		s.creditFallback(ctx, wallet, amt)
		return
	}

	select {
	case <-ctx.Done():
		s.creditFallback(ctx, wallet, amt)
		return
	case <-time.After(s.cfg.Chain.SettleDelay):
	}

	if _, err := s.gateway.Transfer(ctx, wallet, amt, domain.CurrencySBETS); err != nil {
		s.logger.Error("staking payout send failed; crediting platform balance",
			"wallet", wallet, "amount", amount, "err", err)
		s.creditFallback(ctx, wallet, amt)
	}
}

func (s *StakingService) creditFallback(ctx context.Context, wallet string, amount decimal.Decimal) {
	// Detach from a possibly-cancelled request context: the user is owed the
	// funds regardless.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.users.CreditBalance(cctx, wallet, amount, domain.CurrencySBETS); err != nil {
		s.logger.Error("CRITICAL: staking fallback credit failed",
			"wallet", wallet, "amount", amount.String(), "err", err)
	}
}
