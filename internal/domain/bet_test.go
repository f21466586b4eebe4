package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/domain"
)

// ── Status machine ────────────────────────────────────────────────────────────

func TestBetStatus_Transitions(t *testing.T) {
	cases := []struct {
		from, to domain.BetStatus
		ok       bool
	}{
		{domain.BetStatusPending, domain.BetStatusWon, true},
		{domain.BetStatusPending, domain.BetStatusLost, true},
		{domain.BetStatusPending, domain.BetStatusVoid, true},
		{domain.BetStatusPending, domain.BetStatusCashedOut, true},
		{domain.BetStatusConfirmed, domain.BetStatusWon, true},
		{domain.BetStatusConfirmed, domain.BetStatusCashedOut, false},
		{domain.BetStatusWon, domain.BetStatusPaidOut, true},
		{domain.BetStatusWon, domain.BetStatusLost, false},
		{domain.BetStatusPaidOut, domain.BetStatusWon, false},
		{domain.BetStatusLost, domain.BetStatusWon, false},
		{domain.BetStatusVoid, domain.BetStatusPending, false},
	}
	for _, tc := range cases {
		if got := domain.CanTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestBetStatus_IsTerminal(t *testing.T) {
	terminal := []domain.BetStatus{
		domain.BetStatusPaidOut, domain.BetStatusLost,
		domain.BetStatusVoid, domain.BetStatusCashedOut,
	}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	open := []domain.BetStatus{
		domain.BetStatusPending, domain.BetStatusConfirmed, domain.BetStatusWon,
	}
	for _, s := range open {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

// ── Payout math ───────────────────────────────────────────────────────────────

func TestPotentialPayoutFor(t *testing.T) {
	stake := decimal.NewFromInt(50)
	odds := decimal.NewFromFloat(2.00)
	want := decimal.NewFromInt(100)
	if got := domain.PotentialPayoutFor(stake, odds); !got.Equal(want) {
		t.Errorf("PotentialPayoutFor(50, 2.00) = %s, want %s", got, want)
	}

	// Rounding to 2 decimals at placement time.
	odds = decimal.NewFromFloat(1.333)
	got := domain.PotentialPayoutFor(decimal.NewFromInt(10), odds)
	want = decimal.NewFromFloat(13.33)
	if !got.Equal(want) {
		t.Errorf("PotentialPayoutFor(10, 1.333) = %s, want %s", got, want)
	}
}

func TestBet_SettlementProfit(t *testing.T) {
	b := &domain.Bet{
		Stake:           decimal.NewFromInt(100),
		PotentialPayout: decimal.NewFromInt(200),
	}
	if !b.SettlementProfit().Equal(decimal.NewFromInt(100)) {
		t.Errorf("profit = %s, want 100", b.SettlementProfit())
	}

	// Never negative.
	b.PotentialPayout = decimal.NewFromInt(50)
	if !b.SettlementProfit().IsZero() {
		t.Errorf("profit should floor at zero, got %s", b.SettlementProfit())
	}
}

// ── Parlay ────────────────────────────────────────────────────────────────────

func TestCombinedOdds(t *testing.T) {
	sels := []domain.ParlaySelection{
		{Odds: decimal.NewFromFloat(2.0)},
		{Odds: decimal.NewFromFloat(1.5)},
		{Odds: decimal.NewFromFloat(3.0)},
	}
	want := decimal.NewFromFloat(9.0)
	if got := domain.CombinedOdds(sels); !got.Equal(want) {
		t.Errorf("CombinedOdds = %s, want %s", got, want)
	}
}

// ── Market families ───────────────────────────────────────────────────────────

func TestIsMatchWinnerMarket(t *testing.T) {
	yes := []string{"match_winner", "MATCH_RESULT", "ft_1x2", "moneyline_us", "winner"}
	for _, m := range yes {
		if !domain.IsMatchWinnerMarket(m) {
			t.Errorf("%q should be a match-winner market", m)
		}
	}
	no := []string{"over_under_2.5", "both_teams_score", "handicap_-1.5"}
	for _, m := range no {
		if domain.IsMatchWinnerMarket(m) {
			t.Errorf("%q should not be a match-winner market", m)
		}
	}
}

func TestIsFirstHalfMarket(t *testing.T) {
	if !domain.IsFirstHalfMarket("first_half_winner") {
		t.Error("first_half_winner should be a first-half market")
	}
	if domain.IsFirstHalfMarket("match_winner") {
		t.Error("match_winner should not be a first-half market")
	}
}
