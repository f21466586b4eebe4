package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/chain"
	"github.com/wurlus/suibets/internal/domain"
	"github.com/wurlus/suibets/internal/service"
	"github.com/wurlus/suibets/internal/sports"
)

type settlementHarness struct {
	svc     *service.SettlementService
	bets    *fakeBets
	events  *fakeEvents
	users   *fakeUsers
	results *fakeResults
	gateway *chain.NopGateway
}

func newSettlementHarness() *settlementHarness {
	cfg := testConfig()
	h := &settlementHarness{
		bets:    newFakeBets(),
		events:  newFakeEvents(),
		users:   newFakeUsers(),
		results: &fakeResults{},
		gateway: chain.NewNopGateway(),
	}
	h.svc = service.NewSettlementService(
		h.bets, h.events, h.users, h.results, h.gateway, cfg, discardLogger())
	return h
}

func (h *settlementHarness) seedOpenBet(id, eventID, outcome string, stake, odds float64) {
	st := decimal.NewFromFloat(stake)
	o := decimal.NewFromFloat(odds)
	h.bets.bets[id] = &domain.Bet{
		ID:              id,
		WalletAddress:   "0xwinner",
		EventID:         eventID,
		MarketID:        "match_winner",
		OutcomeID:       outcome,
		Odds:            o,
		Stake:           st,
		Currency:        domain.CurrencySBETS,
		PotentialPayout: domain.PotentialPayoutFor(st, o),
		Status:          domain.BetStatusPending,
		PlacedAt:        time.Now().Add(-time.Hour),
	}
}

func (h *settlementHarness) finishEvent(eventID string, home, away int) {
	h.results.events = append(h.results.events, sports.RawEvent{
		ID:        eventID,
		SportID:   sports.SportFootball,
		HomeTeam:  "Arsenal",
		AwayTeam:  "Chelsea",
		HomeScore: intPtr(home),
		AwayScore: intPtr(away),
		Finished:  true,
	})
}

// ── Scenario: home win at 2.0 on a 2-1 final ──────────────────────────────────

func TestRunCycle_SettlesWinningBet(t *testing.T) {
	h := newSettlementHarness()
	h.seedOpenBet("b1", "fb-2000", "home", 100, 2.0)
	h.finishEvent("fb-2000", 2, 1)

	if err := h.svc.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	// gross 200, profit 100, fee 1, net 199 — and the on-chain transfer
	// succeeded so the bet reaches paid_out.
	bet, _ := h.bets.GetByID(context.Background(), "b1")
	if bet.Status != domain.BetStatusPaidOut {
		t.Errorf("status = %s, want paid_out", bet.Status)
	}
	u, err := h.users.GetByWallet(context.Background(), "0xwinner")
	if err != nil {
		t.Fatalf("winner user missing: %v", err)
	}
	wantNet := decimal.NewFromInt(199)
	if !u.BalanceSBETS.Equal(wantNet) {
		t.Errorf("credited = %s, want %s", u.BalanceSBETS, wantNet)
	}

	// Fee lands in the revenue tally.
	if rev := h.svc.RevenueSinceBoot()[domain.CurrencySBETS]; !rev.Equal(decimal.NewFromInt(1)) {
		t.Errorf("revenue = %s, want 1", rev)
	}

	// Settled-event row written once with the final score.
	se := h.events.settled["fb-2000"]
	if se == nil || se.HomeScore != 2 || se.AwayScore != 1 || se.BetsSettled != 1 {
		t.Errorf("settled event row wrong: %+v", se)
	}
}

func TestRunCycle_SecondCycleIsNoOp(t *testing.T) {
	h := newSettlementHarness()
	h.seedOpenBet("b1", "fb-2000", "home", 100, 2.0)
	h.finishEvent("fb-2000", 2, 1)

	if err := h.svc.RunCycle(context.Background()); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	creditsAfterFirst := len(h.users.credits)
	transfersAfterFirst := len(h.gateway.Transfers)

	if err := h.svc.RunCycle(context.Background()); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if len(h.users.credits) != creditsAfterFirst {
		t.Errorf("second cycle credited again: %d → %d credits",
			creditsAfterFirst, len(h.users.credits))
	}
	if len(h.gateway.Transfers) != transfersAfterFirst {
		t.Errorf("second cycle paid again: %d → %d transfers",
			transfersAfterFirst, len(h.gateway.Transfers))
	}
}

func TestRunCycle_LostAndVoid(t *testing.T) {
	h := newSettlementHarness()
	h.seedOpenBet("lost", "fb-2000", "away", 50, 3.0)
	h.seedOpenBet("void", "fb-2000", "weird", 25, 3.0) // unmappable outcome → void
	h.finishEvent("fb-2000", 2, 1)

	if err := h.svc.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	lost, _ := h.bets.GetByID(context.Background(), "lost")
	if lost.Status != domain.BetStatusLost {
		t.Errorf("lost bet status = %s", lost.Status)
	}
	void, _ := h.bets.GetByID(context.Background(), "void")
	if void.Status != domain.BetStatusVoid {
		t.Errorf("void bet status = %s", void.Status)
	}

	// Both stakes land in revenue: 50 + 25.
	rev := h.svc.RevenueSinceBoot()[domain.CurrencySBETS]
	if !rev.Equal(decimal.NewFromInt(75)) {
		t.Errorf("revenue = %s, want 75", rev)
	}
}

// ── Credit failure revert ─────────────────────────────────────────────────────

func TestSettlement_CreditFailureRevertsBet(t *testing.T) {
	h := newSettlementHarness()
	h.seedOpenBet("b1", "fb-2000", "home", 100, 2.0)
	h.finishEvent("fb-2000", 2, 1)
	h.users.failCredits = true

	_ = h.svc.RunCycle(context.Background())

	bet, _ := h.bets.GetByID(context.Background(), "b1")
	if bet.Status != domain.BetStatusPending {
		t.Errorf("bet should revert to pending after a failed credit, got %s", bet.Status)
	}
	if len(h.gateway.Transfers) != 0 {
		t.Error("no on-chain payout may happen when the credit failed")
	}
}

// ── On-chain payout failure keeps won ─────────────────────────────────────────

func TestSettlement_TransferFailureKeepsWon(t *testing.T) {
	h := newSettlementHarness()
	h.seedOpenBet("b1", "fb-2000", "home", 100, 2.0)
	h.finishEvent("fb-2000", 2, 1)
	h.gateway.FailTransfers = true

	if err := h.svc.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	bet, _ := h.bets.GetByID(context.Background(), "b1")
	if bet.Status != domain.BetStatusWon {
		t.Errorf("bet should stay won for manual retry, got %s", bet.Status)
	}
	// The platform credit still happened exactly once.
	u, _ := h.users.GetByWallet(context.Background(), "0xwinner")
	if !u.BalanceSBETS.Equal(decimal.NewFromInt(199)) {
		t.Errorf("credited = %s, want 199", u.BalanceSBETS)
	}
}

// ── Property: N concurrent settlers, one credit ───────────────────────────────

func TestSettlement_ConcurrentSettlersCreditOnce(t *testing.T) {
	h := newSettlementHarness()
	h.seedOpenBet("b1", "fb-2000", "home", 100, 2.0)
	h.finishEvent("fb-2000", 2, 1)

	const settlers = 10
	var wg sync.WaitGroup
	for i := 0; i < settlers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.svc.RunCycle(context.Background())
		}()
	}
	wg.Wait()

	if n := len(h.users.credits); n != 1 {
		t.Errorf("%d concurrent settlers produced %d credits, want exactly 1", settlers, n)
	}
}

// ── Admin settle ──────────────────────────────────────────────────────────────

func TestAdminSettle_FirstWinsSecondRefused(t *testing.T) {
	h := newSettlementHarness()
	h.seedOpenBet("b1", "fb-2000", "home", 100, 2.0)

	bet, err := h.svc.AdminSettle(context.Background(), "b1", domain.BetStatusLost)
	if err != nil {
		t.Fatalf("first AdminSettle: %v", err)
	}
	if bet.Status != domain.BetStatusLost {
		t.Errorf("status = %s, want lost", bet.Status)
	}

	_, err = h.svc.AdminSettle(context.Background(), "b1", domain.BetStatusWon)
	if err != domain.ErrBetAlreadySettled {
		t.Errorf("second AdminSettle err = %v, want ErrBetAlreadySettled", err)
	}
}

// ── Cash-out ──────────────────────────────────────────────────────────────────

func TestCashOut(t *testing.T) {
	h := newSettlementHarness()
	h.seedOpenBet("b1", "fb-2000", "home", 100, 2.0)

	// value = 100 × 1.5 × 0.8 = 120 gross, fee 1.2, net 118.8
	bet, err := h.svc.CashOut(context.Background(), "b1", "0xwinner",
		decimal.NewFromFloat(1.5), decimal.NewFromFloat(0.8))
	if err != nil {
		t.Fatalf("CashOut: %v", err)
	}
	if bet.Status != domain.BetStatusCashedOut {
		t.Errorf("status = %s, want cashed_out", bet.Status)
	}
	u, _ := h.users.GetByWallet(context.Background(), "0xwinner")
	if !u.BalanceSBETS.Equal(decimal.NewFromFloat(118.8)) {
		t.Errorf("credited = %s, want 118.8", u.BalanceSBETS)
	}

	// Idempotent: a second cash-out is refused.
	_, err = h.svc.CashOut(context.Background(), "b1", "0xwinner",
		decimal.NewFromFloat(1.5), decimal.NewFromFloat(0.8))
	if err != domain.ErrBetAlreadySettled {
		t.Errorf("second cash-out err = %v, want ErrBetAlreadySettled", err)
	}
}

func TestCashOut_OwnerOnly(t *testing.T) {
	h := newSettlementHarness()
	h.seedOpenBet("b1", "fb-2000", "home", 100, 2.0)

	_, err := h.svc.CashOut(context.Background(), "b1", "0xsomeoneelse",
		decimal.NewFromFloat(1.5), decimal.NewFromFloat(0.8))
	if err != domain.ErrForbidden {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}
