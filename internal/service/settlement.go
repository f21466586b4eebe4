package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/chain"
	"github.com/wurlus/suibets/internal/config"
	"github.com/wurlus/suibets/internal/domain"
	"github.com/wurlus/suibets/internal/guard"
	"github.com/wurlus/suibets/internal/sports"
)

// SettlementService moves bets from their provisional status to a terminal
// one exactly once, credits platform accounting, and drives on-chain payouts.
// Correctness rests on the repository's conditional transitions; the event
// guard only deduplicates work inside this process.
type SettlementService struct {
	bets    BetStore
	events  EventStore
	users   UserStore
	results ResultsProvider
	gateway chain.Gateway
	cfg     *config.Config
	logger  *slog.Logger

	settling *guard.KeySet[string]

	// revenue is the legacy accumulated-revenue view, derived state only; the
	// weekly windows over settled bets are authoritative.
	revenueMu sync.Mutex
	revenue   map[domain.Currency]decimal.Decimal
}

// NewSettlementService creates a SettlementService.
func NewSettlementService(
	bets BetStore,
	events EventStore,
	users UserStore,
	results ResultsProvider,
	gateway chain.Gateway,
	cfg *config.Config,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		bets:     bets,
		events:   events,
		users:    users,
		results:  results,
		gateway:  gateway,
		cfg:      cfg,
		logger:   logger,
		settling: guard.NewKeySet[string](),
		revenue:  make(map[domain.Currency]decimal.Decimal),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// RunCycle — one settlement pass, called by the scheduler and on demand
// ──────────────────────────────────────────────────────────────────────────────

// RunCycle snapshots the resolvable bets, groups them by event, and settles
// each finished event. A failing event does not abort the others.
func (s *SettlementService) RunCycle(ctx context.Context) error {
	open, err := s.bets.SelectOpenBets(ctx)
	if err != nil {
		return fmt.Errorf("settlement.RunCycle: select open bets: %w", err)
	}
	if len(open) == 0 {
		return nil
	}

	byEvent := make(map[string][]*domain.Bet)
	for _, b := range open {
		byEvent[b.EventID] = append(byEvent[b.EventID], b)
	}

	finished := s.finishedResults(ctx, byEvent)

	for eventID, result := range finished {
		if err := s.settleEvent(ctx, eventID, result); err != nil {
			s.logger.Error("event settlement failed", "event", eventID, "err", err)
		}
	}
	return nil
}

// finishedResults resolves which of the open events have finished from the
// provider's results feed for today and yesterday. The settled_events table
// is checked later, in settleEvent.
func (s *SettlementService) finishedResults(ctx context.Context, byEvent map[string][]*domain.Bet) map[string]*domain.EventResult {
	resultsByID := make(map[string]*domain.EventResult)

	now := time.Now().UTC()
	for _, day := range []time.Time{now, now.AddDate(0, 0, -1)} {
		raw, err := s.results.Results(ctx, day)
		if err != nil {
			s.logger.Warn("results fetch elided", "day", day.Format("2006-01-02"), "err", err)
			continue
		}
		for _, e := range raw {
			if e.HomeScore == nil || e.AwayScore == nil {
				continue
			}
			resultsByID[e.ID] = resultFromRaw(e)
		}
	}

	finished := make(map[string]*domain.EventResult)
	for eventID := range byEvent {
		if r, ok := resultsByID[eventID]; ok {
			finished[eventID] = r
		}
	}
	return finished
}

// settleEvent settles every open bet of one finished event under the
// event-level single-flight guard, then writes the settled-event row.
func (s *SettlementService) settleEvent(ctx context.Context, eventID string, result *domain.EventResult) error {
	if !s.settling.TryAcquire(eventID) {
		return nil // another task is already on it
	}
	defer s.settling.Release(eventID)

	// The settled-event row means a previous run completed this event.
	done, err := s.events.Exists(ctx, eventID)
	if err != nil {
		return fmt.Errorf("settleEvent %s: exists: %w", eventID, err)
	}
	if done {
		return nil
	}

	// Refetch within the guard: the snapshot outside may be stale.
	bets, err := s.bets.SelectOpenBetsByEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("settleEvent %s: refetch: %w", eventID, err)
	}

	settled, failed := 0, 0
	for _, bet := range bets {
		if err := s.settleBet(ctx, bet, result); err != nil {
			s.logger.Error("bet settlement failed", "bet", bet.ID, "err", err)
			failed++
			continue
		}
		settled++
	}

	// The settled-event row is the re-processing barrier; a reverted bet must
	// stay reachable, so the row waits until every bet went through.
	if failed > 0 {
		s.logger.Warn("event left open for retry",
			"event", eventID, "settled", settled, "failed", failed)
		return nil
	}

	if _, err = s.events.Insert(ctx, &domain.SettledEvent{
		EventID:     eventID,
		HomeTeam:    result.HomeTeam,
		AwayTeam:    result.AwayTeam,
		HomeScore:   result.HomeScore,
		AwayScore:   result.AwayScore,
		Winner:      result.WinnerLabel(),
		BetsSettled: settled,
		SettledAt:   time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("settleEvent %s: insert settled event: %w", eventID, err)
	}

	s.logger.Info("event settled",
		"event", eventID,
		"score", fmt.Sprintf("%d-%d", result.HomeScore, result.AwayScore),
		"bets", settled)
	return nil
}

// settleBet applies the market rules and the atomic transition for one bet,
// then runs the credit and payout steps.
func (s *SettlementService) settleBet(ctx context.Context, bet *domain.Bet, result *domain.EventResult) error {
	outcome := SettleOne(bet, result)
	return s.applySettlement(ctx, bet, outcome)
}

// applySettlement performs the conditional transition and all money movement
// for an already-decided outcome. Shared by the worker and the admin
// endpoint.
func (s *SettlementService) applySettlement(ctx context.Context, bet *domain.Bet, outcome SettleOutcome) error {
	priorStatus := bet.Status
	openStates := []domain.BetStatus{domain.BetStatusPending, domain.BetStatusConfirmed}

	var payout *decimal.Decimal
	if outcome.Status == domain.BetStatusWon {
		p := outcome.PayoutGross
		payout = &p
	}

	changed, err := s.bets.UpdateStatusIf(ctx, bet.ID, openStates, outcome.Status, payout)
	if err != nil {
		return fmt.Errorf("applySettlement %s: transition: %w", bet.ID, err)
	}
	if !changed {
		// Another settler got here first; no side effects.
		return nil
	}

	switch outcome.Status {
	case domain.BetStatusWon:
		return s.creditWinner(ctx, bet, outcome.PayoutGross, priorStatus)
	case domain.BetStatusLost, domain.BetStatusVoid:
		// The stake stays with the treasury: lost by definition; void because
		// the contract already holds the funds on the SBETS path.
		s.addRevenue(bet.Currency, bet.Stake)
	}
	return nil
}

// creditWinner credits the net payout to the user's platform balance and
// attempts the on-chain payout. A failed credit reverts the bet so a later
// run retries; a failed on-chain transfer keeps the bet won for manual retry
// and never double-pays.
func (s *SettlementService) creditWinner(ctx context.Context, bet *domain.Bet, gross decimal.Decimal, prior domain.BetStatus) error {
	profit := gross.Sub(bet.Stake)
	if profit.IsNegative() {
		profit = decimal.Zero
	}
	fee := profit.Mul(domain.SettlementFeeRate)
	net := gross.Sub(fee)

	if err := s.users.CreditBalance(ctx, bet.WalletAddress, net, bet.Currency); err != nil {
		if rerr := s.bets.RevertStatus(ctx, bet.ID, domain.BetStatusWon, prior); rerr != nil {
			s.logger.Error("CRITICAL: credit failed and revert failed",
				"bet", bet.ID, "credit_err", err, "revert_err", rerr)
			return rerr
		}
		return fmt.Errorf("creditWinner %s: %w: %v", bet.ID, domain.ErrSettlementReverted, err)
	}
	s.addRevenue(bet.Currency, fee)

	// On-chain payout path.
	if s.gateway == nil {
		return nil
	}
	txHash, err := s.gateway.Transfer(ctx, bet.WalletAddress, net, bet.Currency)
	if err != nil {
		s.logger.Warn("on-chain payout failed; bet stays won for retry",
			"bet", bet.ID, "err", err)
		return nil
	}
	if _, err = s.bets.MarkPaidOut(ctx, bet.ID, txHash); err != nil {
		s.logger.Error("paid_out flip failed after transfer; manual check needed",
			"bet", bet.ID, "tx", txHash, "err", err)
	}

	// Pace sequential transfers for the shared signing key.
	select {
	case <-ctx.Done():
	case <-time.After(s.cfg.Chain.PayoutGap):
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Admin settlement
// ──────────────────────────────────────────────────────────────────────────────

// AdminSettle forces one bet to the given terminal outcome, with the same
// atomicity and reversion semantics as the worker.
func (s *SettlementService) AdminSettle(ctx context.Context, betID string, to domain.BetStatus) (*domain.Bet, error) {
	bet, err := s.bets.GetByID(ctx, betID)
	if err != nil {
		return nil, err
	}
	if bet.Status.IsTerminal() || bet.Status == domain.BetStatusWon {
		return nil, domain.ErrBetAlreadySettled
	}
	if !domain.CanTransition(bet.Status, to) {
		return nil, fmt.Errorf("settlement.AdminSettle: illegal transition %s → %s", bet.Status, to)
	}

	outcome := SettleOutcome{Status: to}
	if to == domain.BetStatusWon {
		outcome.PayoutGross = bet.PotentialPayout
	}
	if err = s.applySettlement(ctx, bet, outcome); err != nil {
		return nil, err
	}
	return s.bets.GetByID(ctx, betID)
}

// ──────────────────────────────────────────────────────────────────────────────
// Cash-out
// ──────────────────────────────────────────────────────────────────────────────

// CashOut partially settles a pending bet at its current cash-out value minus
// the 1 % fee. Only the owner may cash out; only pending bets qualify (the
// on-chain confirmed path settles through the contract).
func (s *SettlementService) CashOut(ctx context.Context, betID, wallet string, currentOdds, pctWinning decimal.Decimal) (*domain.Bet, error) {
	bet, err := s.bets.GetByID(ctx, betID)
	if err != nil {
		return nil, err
	}
	if bet.WalletAddress != domain.NormalizeWallet(wallet) {
		return nil, domain.ErrForbidden
	}
	if bet.Status != domain.BetStatusPending {
		return nil, domain.ErrBetAlreadySettled
	}
	if !currentOdds.IsPositive() || pctWinning.IsNegative() {
		return nil, fmt.Errorf("settlement.CashOut: invalid cash-out parameters")
	}

	gross := bet.Stake.Mul(currentOdds).Mul(pctWinning)
	fee := gross.Mul(domain.SettlementFeeRate)
	value := gross.Sub(fee).Round(2)

	changed, err := s.bets.UpdateStatusIf(ctx, bet.ID,
		[]domain.BetStatus{domain.BetStatusPending}, domain.BetStatusCashedOut, &value)
	if err != nil {
		return nil, fmt.Errorf("settlement.CashOut: transition: %w", err)
	}
	if !changed {
		return nil, domain.ErrBetAlreadySettled
	}

	if err = s.users.CreditBalance(ctx, bet.WalletAddress, value, bet.Currency); err != nil {
		if rerr := s.bets.RevertStatus(ctx, bet.ID, domain.BetStatusCashedOut, domain.BetStatusPending); rerr != nil {
			s.logger.Error("CRITICAL: cash-out credit failed and revert failed",
				"bet", bet.ID, "credit_err", err, "revert_err", rerr)
			return nil, rerr
		}
		return nil, fmt.Errorf("settlement.CashOut %s: %w: %v", bet.ID, domain.ErrSettlementReverted, err)
	}
	s.addRevenue(bet.Currency, fee)

	return s.bets.GetByID(ctx, betID)
}

// ──────────────────────────────────────────────────────────────────────────────
// Reconciliation
// ──────────────────────────────────────────────────────────────────────────────

// ReconcileReport compares on-chain liabilities against the open-bet book.
type ReconcileReport struct {
	ChainSUI    decimal.Decimal `json:"chain_sui"`
	ChainSBETS  decimal.Decimal `json:"chain_sbets"`
	BookSUI     decimal.Decimal `json:"book_sui"`
	BookSBETS   decimal.Decimal `json:"book_sbets"`
	DeltaSUI    decimal.Decimal `json:"delta_sui"`
	DeltaSBETS  decimal.Decimal `json:"delta_sbets"`
	Mismatch    bool            `json:"mismatch"`
}

// Reconcile reports any divergence between the contract's liability counters
// and the sum of open potential payouts. Reported, never auto-corrected.
func (s *SettlementService) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	state, err := s.gateway.State(ctx)
	if err != nil {
		return nil, fmt.Errorf("settlement.Reconcile: chain state: %w", err)
	}
	book, err := s.bets.SumOpenPayoutByCurrency(ctx)
	if err != nil {
		return nil, fmt.Errorf("settlement.Reconcile: book: %w", err)
	}

	report := &ReconcileReport{
		ChainSUI:   state.LiabilitySUI,
		ChainSBETS: state.LiabilitySBETS,
		BookSUI:    book[domain.CurrencySUI],
		BookSBETS:  book[domain.CurrencySBETS],
	}
	report.DeltaSUI = report.ChainSUI.Sub(report.BookSUI).Abs()
	report.DeltaSBETS = report.ChainSBETS.Sub(report.BookSBETS).Abs()

	epsilonSUI := decimal.NewFromFloat(0.001)
	epsilonSBETS := decimal.NewFromInt(1)
	report.Mismatch = report.DeltaSUI.GreaterThan(epsilonSUI) ||
		report.DeltaSBETS.GreaterThan(epsilonSBETS)

	if report.Mismatch {
		s.logger.Warn("liability mismatch",
			"delta_sui", report.DeltaSUI.String(),
			"delta_sbets", report.DeltaSBETS.String())
	}
	return report, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Revenue tally (derived view)
// ──────────────────────────────────────────────────────────────────────────────

func (s *SettlementService) addRevenue(currency domain.Currency, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	s.revenueMu.Lock()
	defer s.revenueMu.Unlock()
	s.revenue[currency] = s.revenue[currency].Add(amount)
}

// RevenueSinceBoot returns the in-process revenue tally. Display only; the
// windowed computation over settled bets is authoritative.
func (s *SettlementService) RevenueSinceBoot() map[domain.Currency]decimal.Decimal {
	s.revenueMu.Lock()
	defer s.revenueMu.Unlock()
	out := make(map[domain.Currency]decimal.Decimal, len(s.revenue))
	for c, v := range s.revenue {
		out[c] = v
	}
	return out
}

// resultFromRaw converts a provider result row into the settlement view.
func resultFromRaw(e sports.RawEvent) *domain.EventResult {
	r := &domain.EventResult{
		EventID:  e.ID,
		HomeTeam: e.HomeTeam,
		AwayTeam: e.AwayTeam,
	}
	if e.HomeScore != nil {
		r.HomeScore = *e.HomeScore
	}
	if e.AwayScore != nil {
		r.AwayScore = *e.AwayScore
	}
	return r
}
