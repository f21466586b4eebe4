package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/chain"
	"github.com/wurlus/suibets/internal/config"
	"github.com/wurlus/suibets/internal/domain"
)

// RevenueService computes weekly per-holder claims over the settled-bet fee
// accrual, split 30/40/30 between holders, treasury, and profit.
type RevenueService struct {
	bets    BetStore
	claims  ClaimStore
	users   UserStore
	gateway chain.Gateway
	cfg     *config.Config
	logger  *slog.Logger

	holdersMu   sync.Mutex
	holders     []domain.Holder
	circulating decimal.Decimal
	holdersAt   time.Time
}

// NewRevenueService creates a RevenueService.
func NewRevenueService(bets BetStore, claims ClaimStore, users UserStore, gateway chain.Gateway, cfg *config.Config, logger *slog.Logger) *RevenueService {
	return &RevenueService{
		bets:    bets,
		claims:  claims,
		users:   users,
		gateway: gateway,
		cfg:     cfg,
		logger:  logger,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Weekly revenue
// ──────────────────────────────────────────────────────────────────────────────

// WeeklyRevenue sums each bet's revenue contribution per currency over the
// ISO week containing at.
func (s *RevenueService) WeeklyRevenue(ctx context.Context, at time.Time) (map[domain.Currency]decimal.Decimal, error) {
	from := domain.WeekStart(at)
	to := domain.WeekEnd(at)
	bets, err := s.bets.SelectSettledInWindow(ctx, s.cfg.Revenue.DeploymentCutoff, from, to)
	if err != nil {
		return nil, fmt.Errorf("revenue.WeeklyRevenue: %w", err)
	}

	totals := map[domain.Currency]decimal.Decimal{
		domain.CurrencySUI:   decimal.Zero,
		domain.CurrencySBETS: decimal.Zero,
	}
	for _, b := range bets {
		totals[b.Currency] = totals[b.Currency].Add(domain.BetRevenue(b))
	}
	return totals, nil
}

// HoldersPools returns 30 % of the weekly revenue per currency.
func (s *RevenueService) HoldersPools(ctx context.Context, at time.Time) (map[domain.Currency]decimal.Decimal, error) {
	totals, err := s.WeeklyRevenue(ctx, at)
	if err != nil {
		return nil, err
	}
	pools := make(map[domain.Currency]decimal.Decimal, len(totals))
	for c, t := range totals {
		pools[c] = t.Mul(domain.RevenueShareHolders)
	}
	return pools, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Holders snapshot
// ──────────────────────────────────────────────────────────────────────────────

// holdersSnapshot returns the cached holders list, refreshing it when older
// than the configured TTL. Primary source is the paged holders API; the
// fallback enumerates known wallets and reads balances on chain.
func (s *RevenueService) holdersSnapshot(ctx context.Context) ([]domain.Holder, decimal.Decimal, error) {
	s.holdersMu.Lock()
	defer s.holdersMu.Unlock()

	if !s.holdersAt.IsZero() && time.Since(s.holdersAt) < s.cfg.Revenue.HoldersCacheTTL {
		return s.holders, s.circulating, nil
	}

	holders, circulating, err := s.fetchHolders(ctx)
	if err != nil {
		s.logger.Warn("holders API failed, using repository fallback", "err", err)
		holders, circulating, err = s.fallbackHolders(ctx)
		if err != nil {
			// Serve the stale snapshot if one exists.
			if len(s.holders) > 0 {
				return s.holders, s.circulating, nil
			}
			return nil, decimal.Zero, fmt.Errorf("revenue.holdersSnapshot: %w", err)
		}
	}

	s.holders = holders
	s.circulating = circulating
	s.holdersAt = time.Now()
	return holders, circulating, nil
}

// fetchHolders pages the upstream holders API until exhaustion or the page
// cap, excluding the platform wallets and pacing between pages.
func (s *RevenueService) fetchHolders(ctx context.Context) ([]domain.Holder, decimal.Decimal, error) {
	excluded := make(map[string]struct{}, len(s.cfg.Chain.PlatformWallets))
	for _, w := range s.cfg.Chain.PlatformWallets {
		excluded[w] = struct{}{}
	}

	var holders []domain.Holder
	var supply decimal.Decimal
	for page := 0; page < s.cfg.Revenue.HoldersMaxPages; page++ {
		hp, err := s.gateway.Holders(ctx, page)
		if err != nil {
			return nil, decimal.Zero, err
		}
		supply = hp.TotalSupply
		for _, h := range hp.Holders {
			if _, skip := excluded[h.Wallet]; skip {
				continue
			}
			holders = append(holders, h)
			if len(holders) >= s.cfg.Revenue.HoldersCap {
				return holders, supply, nil
			}
		}
		if !hp.HasMore {
			break
		}
		// Upstream rate limit.
		select {
		case <-ctx.Done():
			return nil, decimal.Zero, ctx.Err()
		case <-time.After(s.cfg.Revenue.HoldersPageDelay):
		}
	}
	if len(holders) == 0 {
		return nil, decimal.Zero, fmt.Errorf("holders API returned no holders")
	}
	return holders, supply, nil
}

// fallbackHolders enumerates known wallets and reads each balance on chain.
func (s *RevenueService) fallbackHolders(ctx context.Context) ([]domain.Holder, decimal.Decimal, error) {
	wallets, err := s.users.KnownWallets(ctx)
	if err != nil {
		return nil, decimal.Zero, err
	}

	var holders []domain.Holder
	total := decimal.Zero
	for _, w := range wallets {
		bal, berr := s.gateway.Balance(ctx, w, domain.CurrencySBETS)
		if berr != nil || !bal.IsPositive() {
			continue
		}
		holders = append(holders, domain.Holder{Wallet: w, Balance: bal})
		total = total.Add(bal)
		if len(holders) >= s.cfg.Revenue.HoldersCap {
			break
		}
	}
	if total.IsZero() {
		return nil, decimal.Zero, fmt.Errorf("fallback found no holder balances")
	}
	hundred := decimal.NewFromInt(100)
	for i := range holders {
		holders[i].Percentage = holders[i].Balance.Div(total).Mul(hundred)
	}
	return holders, total, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Claims
// ──────────────────────────────────────────────────────────────────────────────

// Claimable is the per-wallet claim preview.
type Claimable struct {
	WeekStart   time.Time       `json:"week_start"`
	Balance     decimal.Decimal `json:"balance"`
	ShareRatio  decimal.Decimal `json:"share_ratio"`
	AmountSUI   decimal.Decimal `json:"amount_sui"`
	AmountSBETS decimal.Decimal `json:"amount_sbets"`
	Claimed     bool            `json:"claimed"`
}

// ClaimableFor computes the wallet's share of this week's holders pools.
func (s *RevenueService) ClaimableFor(ctx context.Context, wallet string) (*Claimable, error) {
	wallet = domain.NormalizeWallet(wallet)
	now := time.Now().UTC()
	weekStart := domain.WeekStart(now)

	existing, err := s.claims.GetClaim(ctx, wallet, weekStart)
	if err != nil {
		return nil, err
	}

	pools, err := s.HoldersPools(ctx, now)
	if err != nil {
		return nil, err
	}
	holders, circulating, err := s.holdersSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	balance := decimal.Zero
	for _, h := range holders {
		if h.Wallet == wallet {
			balance = h.Balance
			break
		}
	}

	ratio := decimal.Zero
	if circulating.IsPositive() {
		ratio = balance.Div(circulating)
		if ratio.GreaterThan(decimal.NewFromInt(1)) {
			ratio = decimal.NewFromInt(1)
		}
	}

	return &Claimable{
		WeekStart:   weekStart,
		Balance:     balance,
		ShareRatio:  ratio,
		AmountSUI:   pools[domain.CurrencySUI].Mul(ratio),
		AmountSBETS: pools[domain.CurrencySBETS].Mul(ratio).Floor(),
		Claimed:     existing != nil,
	}, nil
}

// Claim executes the wallet's weekly claim: inserts the (wallet, week) row
// first so a second attempt conflicts, then issues up to two independent
// payouts, recording whichever tx hashes succeeded.
func (s *RevenueService) Claim(ctx context.Context, wallet string) (*domain.RevenueClaim, error) {
	wallet = domain.NormalizeWallet(wallet)
	now := time.Now().UTC()
	weekStart := domain.WeekStart(now)

	claimable, err := s.ClaimableFor(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if claimable.AmountSUI.LessThan(domain.MinClaimSUI) &&
		claimable.AmountSBETS.LessThan(domain.MinClaimSBETS) {
		return nil, domain.ErrClaimTooSmall
	}

	claim := &domain.RevenueClaim{
		ID:            uuid.NewString(),
		WalletAddress: wallet,
		WeekStart:     weekStart,
		HolderBalance: claimable.Balance,
		SharePercent:  claimable.ShareRatio.Mul(decimal.NewFromInt(100)),
		AmountSUI:     claimable.AmountSUI,
		AmountSBETS:   claimable.AmountSBETS,
		ClaimedAt:     now,
	}
	if err = s.claims.InsertClaim(ctx, claim); err != nil {
		if errors.Is(err, domain.ErrAlreadyClaimed) {
			// Idempotent retry: return the stored claim with its hashes.
			stored, gerr := s.claims.GetClaim(ctx, wallet, weekStart)
			if gerr != nil {
				return nil, gerr
			}
			return stored, domain.ErrAlreadyClaimed
		}
		return nil, err
	}

	// Two independent payouts; partial success is recorded as-is.
	var txSUI, txSBETS *string
	if claim.AmountSUI.GreaterThanOrEqual(domain.MinClaimSUI) {
		if hash, terr := s.gateway.Transfer(ctx, wallet, claim.AmountSUI, domain.CurrencySUI); terr != nil {
			s.logger.Error("SUI claim payout failed", "wallet", wallet, "err", terr)
		} else {
			txSUI = &hash
		}
		select {
		case <-ctx.Done():
		case <-time.After(s.cfg.Chain.PayoutGap):
		}
	}
	if claim.AmountSBETS.GreaterThanOrEqual(domain.MinClaimSBETS) {
		if hash, terr := s.gateway.Transfer(ctx, wallet, claim.AmountSBETS, domain.CurrencySBETS); terr != nil {
			s.logger.Error("SBETS claim payout failed", "wallet", wallet, "err", terr)
		} else {
			txSBETS = &hash
		}
	}

	if err = s.claims.UpdateClaimHashes(ctx, claim.ID, txSUI, txSBETS); err != nil {
		s.logger.Error("claim hash record failed", "claim", claim.ID, "err", err)
	}
	claim.TxHashSUI = txSUI
	claim.TxHashSBETS = txSBETS
	return claim, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Stats
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the public revenue overview for the current week.
type Stats struct {
	WeekStart    time.Time       `json:"week_start"`
	RevenueSUI   decimal.Decimal `json:"revenue_sui"`
	RevenueSBETS decimal.Decimal `json:"revenue_sbets"`
	HoldersSUI   decimal.Decimal `json:"holders_pool_sui"`
	HoldersSBETS decimal.Decimal `json:"holders_pool_sbets"`
	TreasurySUI  decimal.Decimal `json:"treasury_share_sui"`
	ProfitSUI    decimal.Decimal `json:"profit_share_sui"`
	ClaimsMade   int             `json:"claims_made"`
	HolderCount  int             `json:"holder_count"`
}

// WeekStats summarizes the current week's revenue split and claims.
func (s *RevenueService) WeekStats(ctx context.Context) (*Stats, error) {
	now := time.Now().UTC()
	totals, err := s.WeeklyRevenue(ctx, now)
	if err != nil {
		return nil, err
	}
	weekStart := domain.WeekStart(now)
	claims, err := s.claims.ClaimsForWeek(ctx, weekStart)
	if err != nil {
		return nil, err
	}
	holders, _, herr := s.holdersSnapshot(ctx)
	if herr != nil {
		s.logger.Warn("holders snapshot unavailable for stats", "err", herr)
	}

	sui := totals[domain.CurrencySUI]
	sbets := totals[domain.CurrencySBETS]
	return &Stats{
		WeekStart:    weekStart,
		RevenueSUI:   sui,
		RevenueSBETS: sbets,
		HoldersSUI:   sui.Mul(domain.RevenueShareHolders),
		HoldersSBETS: sbets.Mul(domain.RevenueShareHolders),
		TreasurySUI:  sui.Mul(domain.RevenueShareTreasury),
		ProfitSUI:    sui.Mul(domain.RevenueShareProfit),
		ClaimsMade:   len(claims),
		HolderCount:  len(holders),
	}, nil
}
