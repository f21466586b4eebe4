package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/config"
	"github.com/wurlus/suibets/internal/domain"
	"github.com/wurlus/suibets/internal/registry"
)

// ──────────────────────────────────────────────────────────────────────────────
// AdmissionService
// ──────────────────────────────────────────────────────────────────────────────

// AdmissionService is the sole authority accepting or rejecting new bets and
// parlays. Checks are ordered so free rejections come before event lookup,
// and event lookup before persistence — the chain has often already moved
// money by the time a request arrives, so the later a rejection the more it
// costs everyone.
type AdmissionService struct {
	bets   BetStore
	users  UserStore
	events EventLookup
	cfg    *config.Config
	logger *slog.Logger

	blockMu   sync.RWMutex
	blocklist map[string]struct{}
}

// NewAdmissionService creates an AdmissionService.
func NewAdmissionService(bets BetStore, users UserStore, events EventLookup, cfg *config.Config, logger *slog.Logger) *AdmissionService {
	return &AdmissionService{
		bets:      bets,
		users:     users,
		events:    events,
		cfg:       cfg,
		logger:    logger,
		blocklist: make(map[string]struct{}),
	}
}

// BlockWallet adds a wallet to the admission blocklist.
func (s *AdmissionService) BlockWallet(wallet string) {
	s.blockMu.Lock()
	defer s.blockMu.Unlock()
	s.blocklist[domain.NormalizeWallet(wallet)] = struct{}{}
}

// UnblockWallet removes a wallet from the blocklist.
func (s *AdmissionService) UnblockWallet(wallet string) {
	s.blockMu.Lock()
	defer s.blockMu.Unlock()
	delete(s.blocklist, domain.NormalizeWallet(wallet))
}

func (s *AdmissionService) blocked(wallet string) bool {
	s.blockMu.RLock()
	defer s.blockMu.RUnlock()
	_, ok := s.blocklist[wallet]
	return ok
}

// ──────────────────────────────────────────────────────────────────────────────
// PlaceBetInput
// ──────────────────────────────────────────────────────────────────────────────

// PlaceBetInput carries one proposed single bet through the pipeline.
type PlaceBetInput struct {
	Wallet       string
	EventID      string
	EventName    string
	HomeTeam     string
	AwayTeam     string
	MarketID     string
	OutcomeID    string
	Prediction   string
	Odds         decimal.Decimal
	Stake        decimal.Decimal
	Currency     domain.Currency
	IsLive       bool
	MatchMinute  *int
	TxHash       *string
	OnChainBetID *string
	UseBonus     bool
	UseFreeBet   bool
}

// ──────────────────────────────────────────────────────────────────────────────
// PlaceBet — the admission pipeline
// ──────────────────────────────────────────────────────────────────────────────

// PlaceBet runs the full admission pipeline and persists the bet on success.
// Every rejection is a *domain.Rejection with a stable code.
func (s *AdmissionService) PlaceBet(ctx context.Context, in PlaceBetInput) (*domain.Bet, error) {
	in.Wallet = domain.NormalizeWallet(in.Wallet)
	now := time.Now().UTC()

	// ── 1. Policy gates (all O(1)) ───────────────────────────────────────────
	if err := s.policyGates(&in); err != nil {
		return nil, err
	}

	// ── 2. Rate / cooldown / event-limit gates (durable, fail-open) ──────────
	if err := s.rateGates(ctx, &in, now); err != nil {
		return nil, err
	}

	// ── 3. Duplicate detection ───────────────────────────────────────────────
	dup, err := s.bets.HasOpenDuplicate(ctx, in.Wallet, in.EventID, in.MarketID, in.OutcomeID)
	if err != nil {
		s.logger.Warn("duplicate check failed open", "wallet", in.Wallet, "err", err)
	} else if dup {
		return nil, domain.Reject(domain.CodeDuplicateBet, http.StatusBadRequest,
			"an identical open bet already exists")
	}

	// ── 4–6. Event registry gates (fail-closed) + market rules + anti-cheat ──
	lookup, err := s.eventGates(&in)
	if err != nil {
		return nil, err
	}

	// ── 7. Limits & promotion ────────────────────────────────────────────────
	usd := s.usdValue(in.Stake, in.Currency)
	paymentMethod, err := s.limitGates(ctx, &in, usd, now)
	if err != nil {
		return nil, err
	}

	// ── 8. Persist ───────────────────────────────────────────────────────────
	bet := s.buildBet(&in, lookup, paymentMethod, now)
	if err := s.bets.Create(ctx, bet); err != nil {
		return nil, err
	}

	// ── 9. Side effects (best-effort) ────────────────────────────────────────
	s.postAdmission(bet, usd)

	return bet, nil
}

// policyGates runs the constant-time checks: blocklist, pause flag, stake
// caps, event identity, team names.
func (s *AdmissionService) policyGates(in *PlaceBetInput) error {
	if s.blocked(in.Wallet) {
		return domain.Reject(domain.CodeWalletBlocked, http.StatusForbidden, "wallet is blocked")
	}
	if in.Currency == domain.CurrencySUI && s.cfg.SuiBettingPaused() {
		return domain.Reject(domain.CodeSuiBettingPaused, http.StatusBadRequest,
			"SUI betting is temporarily paused; SBETS bets remain open")
	}
	if !in.Currency.IsValid() || !in.Stake.IsPositive() || in.Odds.LessThanOrEqual(decimal.NewFromInt(1)) {
		return domain.Reject(domain.CodeInvalidEvent, http.StatusBadRequest,
			"stake must be positive and odds greater than 1.0")
	}

	maxStake := decimal.NewFromFloat(s.cfg.Betting.MaxStakeSUI)
	if in.Currency == domain.CurrencySBETS {
		maxStake = decimal.NewFromFloat(s.cfg.Betting.MaxStakeSBETS)
	}
	if in.Stake.GreaterThan(maxStake) {
		return domain.Reject(domain.CodeMaxStakeExceeded, http.StatusBadRequest,
			"stake exceeds the per-currency maximum")
	}

	if strings.TrimSpace(in.EventID) == "" {
		return domain.Reject(domain.CodeMissingEventID, http.StatusBadRequest, "event id is required")
	}
	if name := strings.TrimSpace(in.EventName); name == "" || strings.EqualFold(name, "unknown") {
		return domain.Reject(domain.CodeInvalidEvent, http.StatusBadRequest, "event name is missing")
	}

	if in.HomeTeam == "" || in.AwayTeam == "" {
		// Attempt enrichment from the registry before rejecting.
		if l := s.events.Lookup(in.EventID); l.Found && l.HomeTeam != "" && l.AwayTeam != "" {
			in.HomeTeam, in.AwayTeam = l.HomeTeam, l.AwayTeam
		} else if in.TxHash != nil && *in.TxHash != "" {
			// The contract already holds the stake; synthesize names rather
			// than strand the user's funds on a metadata gap.
			in.HomeTeam, in.AwayTeam = synthesizeTeams(in.EventName)
			s.logger.Warn("team names synthesized for on-chain bet",
				"event", in.EventID, "tx", *in.TxHash)
		} else {
			return domain.Reject(domain.CodeInvalidTeams, http.StatusBadRequest,
				"team names could not be resolved")
		}
	}
	return nil
}

// rateGates enforces the durable per-wallet rate, cooldown, and per-event
// limits. A repository failure fails open: these gates exist for abuse
// control, and blocking all live betting on a database blip costs more than
// one extra bet.
func (s *AdmissionService) rateGates(ctx context.Context, in *PlaceBetInput, now time.Time) error {
	count, err := s.bets.CountWalletBetsSince(ctx, in.Wallet, now.Add(-24*time.Hour))
	if err != nil {
		s.logger.Warn("rate gate failed open", "wallet", in.Wallet, "err", err)
	} else if count >= s.cfg.Betting.MaxBetsPerDay {
		return domain.Reject(domain.CodeRateLimitExceeded, http.StatusTooManyRequests,
			"daily bet limit reached")
	}

	last, err := s.bets.LastBetAt(ctx, in.Wallet)
	if err != nil {
		s.logger.Warn("cooldown gate failed open", "wallet", in.Wallet, "err", err)
	} else if !last.IsZero() && now.Sub(last) < s.cfg.Betting.BetCooldown {
		return domain.Reject(domain.CodeBetCooldown, http.StatusTooManyRequests,
			"please wait before placing another bet")
	}

	eventCount, err := s.bets.CountWalletEventBets(ctx, in.Wallet, in.EventID)
	if err != nil {
		s.logger.Warn("event-limit gate failed open", "wallet", in.Wallet, "err", err)
	} else if eventCount >= s.cfg.Betting.MaxBetsPerEvent {
		return domain.Reject(domain.CodeEventBetLimit, http.StatusBadRequest,
			"bet limit for this event reached")
	}
	return nil
}

// eventGates runs the fail-closed registry lookup, the live market-time
// rules, and the anti-cheat odds check. Returns the lookup for persistence
// enrichment.
func (s *AdmissionService) eventGates(in *PlaceBetInput) (registry.LookupResult, error) {
	l := s.events.Lookup(in.EventID)

	if !l.Found {
		return l, domain.Reject(domain.CodeEventNotFound, http.StatusBadRequest,
			"event not found in any cache")
	}

	switch l.Source {
	case registry.SourceLive:
		if !s.events.LiveFresh(l.CacheAge) {
			return l, domain.Reject(domain.CodeStaleEventData, http.StatusBadRequest,
				"live event data is stale")
		}
		// The first-half cutoff binds live wagers; a pre-match slip that
		// resolved to the live cache falls through to the anti-cheat check.
		if in.IsLive {
			if l.Minute == nil {
				return l, domain.Reject(domain.CodeUnverifiableTime, http.StatusBadRequest,
					"match minute unavailable")
			}
			if *l.Minute >= s.cfg.Betting.LiveCutoffMinute {
				return l, domain.Reject(domain.CodeMatchCutoff, http.StatusBadRequest,
					"live betting closes after the first half")
			}
		}
	case registry.SourceUpcoming:
		if !s.events.UpcomingFresh(l.CacheAge) {
			return l, domain.Reject(domain.CodeStaleEventData, http.StatusBadRequest,
				"upcoming event data is stale")
		}
		if l.ShouldBeLive {
			return l, domain.Reject(domain.CodeEventStatusUncertain, http.StatusBadRequest,
				"event should have started; state uncertain")
		}
	case registry.SourceFree:
		if !s.events.UpcomingFresh(l.CacheAge) {
			return l, domain.Reject(domain.CodeStaleEventData, http.StatusBadRequest,
				"event data is stale")
		}
		if l.ShouldBeLive {
			return l, domain.Reject(domain.CodeMatchStarted, http.StatusBadRequest,
				"match already started")
		}
	default:
		return l, domain.Reject(domain.CodeEventNotFound, http.StatusBadRequest,
			"event not found in any cache")
	}

	// ── Market-time rules (live only) ────────────────────────────────────────
	if in.IsLive {
		if !domain.IsMatchWinnerMarket(in.MarketID) {
			return l, domain.Reject(domain.CodeMarketClosedLive, http.StatusBadRequest,
				"only match-winner markets accept live bets")
		}
		if domain.IsFirstHalfMarket(in.MarketID) && l.Minute != nil && *l.Minute > s.cfg.Betting.LiveCutoffMinute {
			return l, domain.Reject(domain.CodeMarketClosedHalf, http.StatusBadRequest,
				"first-half market is closed")
		}
	}

	// ── Anti-cheat: odds vs score ────────────────────────────────────────────
	if err := s.antiCheat(in, l); err != nil {
		return l, err
	}

	// Enrich team names from the registry when the caller did not supply them.
	if in.HomeTeam == "" && l.HomeTeam != "" {
		in.HomeTeam, in.AwayTeam = l.HomeTeam, l.AwayTeam
	}
	return l, nil
}

// antiCheat rejects bets on a clearly winning team at stale favourable odds.
// Only applies to match-winner markets with verified scores; bets on the
// losing team are never rejected here.
func (s *AdmissionService) antiCheat(in *PlaceBetInput, l registry.LookupResult) error {
	if !domain.IsMatchWinnerMarket(in.MarketID) {
		return nil
	}
	if l.HomeScore == nil || l.AwayScore == nil || l.Minute == nil {
		return nil
	}

	diff := *l.HomeScore - *l.AwayScore
	if diff < 0 {
		diff = -diff
	}
	if diff < 2 || *l.Minute < 45 {
		return nil
	}

	leading := "home"
	if *l.AwayScore > *l.HomeScore {
		leading = "away"
	}
	side := predictedSide(in.OutcomeID, in.Prediction, l.HomeTeam, l.AwayTeam)
	if side != leading {
		return nil
	}

	threshold := decimal.NewFromFloat(1.8)
	if *l.Minute >= 60 {
		threshold = decimal.NewFromFloat(1.5)
	}
	if in.Odds.GreaterThan(threshold) {
		return domain.Reject(domain.CodeSuspiciousOdds, http.StatusBadRequest,
			"odds inconsistent with the current score")
	}
	return nil
}

// limitGates applies self-exclusion, windowed USD caps, and the free-bet and
// bonus promotions. Returns the payment method to persist.
func (s *AdmissionService) limitGates(ctx context.Context, in *PlaceBetInput, usd decimal.Decimal, now time.Time) (domain.PaymentMethod, error) {
	limits, err := s.users.GetLimits(ctx, in.Wallet)
	if err != nil {
		s.logger.Warn("limits read failed open", "wallet", in.Wallet, "err", err)
	} else {
		if limits.ApplyLazyResets(now) {
			if uerr := s.users.UpsertLimits(ctx, limits); uerr != nil {
				s.logger.Warn("limits reset write failed", "wallet", in.Wallet, "err", uerr)
			}
		}
		if limits.SelfExcluded(now) {
			return "", domain.Reject(domain.CodeSelfExcluded, http.StatusForbidden,
				"self-exclusion is active")
		}
		switch limits.ExceededWindow(usd) {
		case "daily":
			return "", domain.Reject(domain.CodeDailyLimit, http.StatusForbidden, "daily spend limit exceeded")
		case "weekly":
			return "", domain.Reject(domain.CodeWeeklyLimit, http.StatusForbidden, "weekly spend limit exceeded")
		case "monthly":
			return "", domain.Reject(domain.CodeMonthlyLimit, http.StatusForbidden, "monthly spend limit exceeded")
		}
	}

	paymentMethod := domain.PaymentWallet
	if in.UseFreeBet && in.Currency == domain.CurrencySBETS {
		used, ferr := s.bets.HasUsedFreeBet(ctx, in.Wallet)
		if ferr != nil {
			return "", ferr
		}
		if used {
			return "", domain.Reject(domain.CodeFreeBetAlreadyUsed, http.StatusBadRequest,
				"free bet already used")
		}
		if ferr = s.users.ConsumeFreeBet(ctx, in.Wallet, in.Stake.IntPart()); ferr != nil {
			return "", ferr
		}
		paymentMethod = domain.PaymentFreeBet
	} else if in.UseBonus {
		consumed, berr := s.users.ConsumeBonus(ctx, in.Wallet, usd)
		if berr != nil {
			return "", berr
		}
		if consumed.IsPositive() {
			paymentMethod = domain.PaymentBonus
		}
	}
	return paymentMethod, nil
}

// buildBet assembles the persisted row. The 1 % platform fee is waived on the
// wallet-signed on-chain path where the contract already took it.
func (s *AdmissionService) buildBet(in *PlaceBetInput, l registry.LookupResult, pm domain.PaymentMethod, now time.Time) *domain.Bet {
	id := uuid.NewString()
	if in.OnChainBetID != nil && *in.OnChainBetID != "" {
		id = *in.OnChainBetID
	}

	status := domain.BetStatusPending
	fee := in.Stake.Mul(decimal.NewFromFloat(s.cfg.Betting.FeeRate)).Round(2)
	if in.TxHash != nil && *in.TxHash != "" {
		status = domain.BetStatusConfirmed
		fee = decimal.Zero
	}

	minute := in.MatchMinute
	if minute == nil && l.Minute != nil {
		minute = l.Minute
	}

	return &domain.Bet{
		ID:              id,
		WalletAddress:   in.Wallet,
		EventID:         in.EventID,
		EventName:       in.EventName,
		HomeTeam:        in.HomeTeam,
		AwayTeam:        in.AwayTeam,
		MarketID:        in.MarketID,
		OutcomeID:       in.OutcomeID,
		Prediction:      in.Prediction,
		Odds:            in.Odds,
		Stake:           in.Stake,
		Currency:        in.Currency,
		PotentialPayout: domain.PotentialPayoutFor(in.Stake, in.Odds),
		PlatformFee:     fee,
		PaymentMethod:   pm,
		Status:          status,
		IsLive:          in.IsLive,
		MatchMinute:     minute,
		TxHash:          in.TxHash,
		OnChainBetID:    in.OnChainBetID,
		PlacedAt:        now,
	}
}

// postAdmission runs the best-effort side effects; their failures never fail
// the bet.
func (s *AdmissionService) postAdmission(bet *domain.Bet, usd decimal.Decimal) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Windowed spend counters.
	if limits, err := s.users.GetLimits(ctx, bet.WalletAddress); err == nil {
		limits.DailySpent = limits.DailySpent.Add(usd)
		limits.WeeklySpent = limits.WeeklySpent.Add(usd)
		limits.MonthlySpent = limits.MonthlySpent.Add(usd)
		if err = s.users.UpsertLimits(ctx, limits); err != nil {
			s.logger.Warn("spend counter bump failed", "wallet", bet.WalletAddress, "err", err)
		}
	}

	// Loyalty points: floor of the USD value.
	points := usd.Floor()
	if err := s.users.AddLoyaltyAndVolume(ctx, bet.WalletAddress, points, usd); err != nil {
		s.logger.Warn("loyalty credit failed", "wallet", bet.WalletAddress, "err", err)
	}

	// Referral: first bet rewards the referrer once.
	s.rewardReferrer(ctx, bet.WalletAddress)
}

// rewardReferrer marks a pending referral rewarded and credits the referrer
// 1 000 SBETS to their platform balance. The conditional status flip makes a
// concurrent first bet credit exactly once.
func (s *AdmissionService) rewardReferrer(ctx context.Context, wallet string) {
	ref, err := s.users.PendingReferralFor(ctx, wallet)
	if err != nil || ref == nil {
		return
	}
	won, err := s.users.MarkReferralRewarded(ctx, ref.ID)
	if err != nil || !won {
		return
	}
	bonus := decimal.NewFromInt(domain.ReferralBonusSBETS)
	if err = s.users.CreditBalance(ctx, ref.ReferrerWallet, bonus, domain.CurrencySBETS); err != nil {
		s.logger.Error("referral bonus credit failed",
			"referrer", ref.ReferrerWallet, "referral", ref.ID, "err", err)
	}
}

// usdValue converts a stake to USD using the configured token prices.
func (s *AdmissionService) usdValue(stake decimal.Decimal, currency domain.Currency) decimal.Decimal {
	price := decimal.NewFromFloat(s.cfg.Betting.SuiPriceUSD)
	if currency == domain.CurrencySBETS {
		price = decimal.NewFromFloat(s.cfg.Betting.SbetsPriceUSD)
	}
	return stake.Mul(price)
}

// ──────────────────────────────────────────────────────────────────────────────
// ValidateBet — the pre-flight endpoint
// ──────────────────────────────────────────────────────────────────────────────

// ValidateResult is the pre-flight response for POST /api/bets/validate.
type ValidateResult struct {
	Valid       bool            `json:"valid"`
	EventID     string          `json:"eventId"`
	MatchMinute *int            `json:"matchMinute,omitempty"`
	Source      registry.Source `json:"source"`
}

// ValidateBet runs only the event freshness gates, letting clients check an
// event before signing anything on chain.
func (s *AdmissionService) ValidateBet(eventID string, isLive bool) (*ValidateResult, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, domain.Reject(domain.CodeMissingEventID, http.StatusBadRequest, "event id is required")
	}
	in := PlaceBetInput{EventID: eventID, IsLive: isLive, MarketID: "match_winner"}
	l, err := s.eventGates(&in)
	if err != nil {
		return nil, err
	}
	return &ValidateResult{Valid: true, EventID: eventID, MatchMinute: l.Minute, Source: l.Source}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Parlay admission
// ──────────────────────────────────────────────────────────────────────────────

// PlaceParlayInput carries a proposed parlay through the pipeline.
type PlaceParlayInput struct {
	Wallet       string
	Selections   []domain.ParlaySelection
	Stake        decimal.Decimal
	Currency     domain.Currency
	TxHash       *string
	OnChainBetID *string
}

// PlaceParlay admits a parlay: the policy and event gates apply per leg, no
// two legs may share an event, and the combined odds must be positive. The
// rate gates and the limits run once for the parlay as a whole; the
// duplicate-bet check is not applied to parlay legs.
func (s *AdmissionService) PlaceParlay(ctx context.Context, in PlaceParlayInput) (*domain.Parlay, error) {
	in.Wallet = domain.NormalizeWallet(in.Wallet)
	now := time.Now().UTC()

	if len(in.Selections) < 2 {
		return nil, domain.Reject(domain.CodeInvalidParlayEvent, http.StatusBadRequest,
			"a parlay needs at least two selections")
	}

	seen := make(map[string]struct{}, len(in.Selections))
	for _, sel := range in.Selections {
		if strings.TrimSpace(sel.EventID) == "" {
			return nil, domain.Reject(domain.CodeInvalidParlayEvent, http.StatusBadRequest,
				"parlay selection missing event id")
		}
		if _, dup := seen[sel.EventID]; dup {
			return nil, domain.Reject(domain.CodeDuplicateEventParlay, http.StatusBadRequest,
				"cannot combine multiple selections on the same match")
		}
		seen[sel.EventID] = struct{}{}
	}

	combined := domain.CombinedOdds(in.Selections)
	if !combined.IsPositive() {
		return nil, domain.Reject(domain.CodeInvalidParlayEvent, http.StatusBadRequest,
			"combined odds must be positive")
	}

	// Per-leg gates: the policy gates (step 1) and the event gates (steps
	// 4–6) for each leg.
	legInputs := make([]PlaceBetInput, 0, len(in.Selections))
	for _, sel := range in.Selections {
		legIn := PlaceBetInput{
			Wallet:     in.Wallet,
			EventID:    sel.EventID,
			EventName:  sel.EventName,
			MarketID:   sel.MarketID,
			OutcomeID:  sel.OutcomeID,
			Prediction: sel.Prediction,
			Odds:       sel.Odds,
			Stake:      in.Stake,
			Currency:   in.Currency,
			IsLive:     sel.IsLive,
			TxHash:     in.TxHash,
		}
		if err := s.policyGates(&legIn); err != nil {
			return nil, err
		}
		if _, err := s.eventGates(&legIn); err != nil {
			return nil, err
		}
		legInputs = append(legInputs, legIn)
	}

	// Wallet-level gates run once for the whole parlay.
	if err := s.rateGates(ctx, &legInputs[0], now); err != nil {
		return nil, err
	}
	usd := s.usdValue(in.Stake, in.Currency)
	paymentMethod, err := s.limitGates(ctx, &PlaceBetInput{
		Wallet: in.Wallet, Stake: in.Stake, Currency: in.Currency,
	}, usd, now)
	if err != nil {
		return nil, err
	}

	// ── Persist ──────────────────────────────────────────────────────────────
	parlayID := uuid.NewString()
	if in.OnChainBetID != nil && *in.OnChainBetID != "" {
		parlayID = *in.OnChainBetID
	}
	status := domain.BetStatusPending
	if in.TxHash != nil && *in.TxHash != "" {
		status = domain.BetStatusConfirmed
	}
	parlay := &domain.Parlay{
		ID:            parlayID,
		WalletAddress: in.Wallet,
		CombinedOdds:  combined,
		Stake:         in.Stake,
		Currency:      in.Currency,
		PotentialWin:  domain.PotentialPayoutFor(in.Stake, combined),
		Status:        status,
		TxHash:        in.TxHash,
		OnChainBetID:  in.OnChainBetID,
		PlacedAt:      now,
	}

	legs := make([]*domain.Bet, 0, len(legInputs))
	for i := range legInputs {
		leg := s.buildBet(&legInputs[i], registry.LookupResult{}, paymentMethod, now)
		leg.ID = uuid.NewString()
		leg.ParlayID = &parlay.ID
		leg.Status = status
		leg.PlatformFee = decimal.Zero // the parlay row carries the fee
		legs = append(legs, leg)
	}

	if err := s.bets.CreateParlay(ctx, parlay, legs); err != nil {
		return nil, err
	}

	s.postAdmission(legs[0], usd)
	return parlay, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

// predictedSide decides which team a bet backs, combining outcome-id patterns
// with a prediction-text match against the team names.
func predictedSide(outcomeID, prediction, homeTeam, awayTeam string) string {
	switch strings.ToLower(strings.TrimSpace(outcomeID)) {
	case "home", "h", "1", "home_win", "team1":
		return "home"
	case "away", "a", "2", "away_win", "team2":
		return "away"
	case "draw", "x", "tie":
		return "draw"
	}

	pred := strings.ToLower(prediction)
	if home := strings.ToLower(homeTeam); home != "" && strings.Contains(pred, home) {
		return "home"
	}
	if away := strings.ToLower(awayTeam); away != "" && strings.Contains(pred, away) {
		return "away"
	}
	return ""
}

// synthesizeTeams splits "A vs B" into team names, with generic fallbacks.
func synthesizeTeams(eventName string) (string, string) {
	for _, sep := range []string{" vs ", " vs. ", " - "} {
		if parts := strings.SplitN(eventName, sep, 2); len(parts) == 2 {
			return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		}
	}
	return "Home", "Away"
}
