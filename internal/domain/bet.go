// Package domain defines the core business entities for the suibets
// on-chain sports-betting platform.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// Currency identifies the token a stake or payout is denominated in.
type Currency string

const (
	CurrencySUI   Currency = "SUI"
	CurrencySBETS Currency = "SBETS"
)

// IsValid returns true if the currency is one of the two platform tokens.
func (c Currency) IsValid() bool {
	return c == CurrencySUI || c == CurrencySBETS
}

// BetStatus represents the current state of a user's bet.
type BetStatus string

const (
	BetStatusPending   BetStatus = "pending"    // off-chain path, awaiting settlement
	BetStatusConfirmed BetStatus = "confirmed"  // wallet-signed on-chain path
	BetStatusWon       BetStatus = "won"        // settled in user's favour, payout owed
	BetStatusLost      BetStatus = "lost"       // settled against user
	BetStatusVoid      BetStatus = "void"       // market unresolvable; stake retained by treasury
	BetStatusPaidOut   BetStatus = "paid_out"   // winning payout delivered on-chain
	BetStatusCashedOut BetStatus = "cashed_out" // user exited early
)

// IsTerminal returns true when no further transitions are legal.
func (s BetStatus) IsTerminal() bool {
	switch s {
	case BetStatusPaidOut, BetStatusLost, BetStatusVoid, BetStatusCashedOut:
		return true
	}
	return false
}

// betTransitions is the bet status machine. Every write path goes through a
// conditional repository update guarded by the current status, so a map lookup
// here is advisory; the database compare-and-set is the ground truth.
var betTransitions = map[BetStatus][]BetStatus{
	BetStatusPending:   {BetStatusWon, BetStatusLost, BetStatusVoid, BetStatusCashedOut},
	BetStatusConfirmed: {BetStatusWon, BetStatusLost, BetStatusVoid},
	BetStatusWon:       {BetStatusPaidOut},
}

// CanTransition reports whether from → to is a legal bet status transition.
func CanTransition(from, to BetStatus) bool {
	for _, t := range betTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// PaymentMethod records how a bet's stake was funded. Inspected when deciding
// whether a wallet has ever consumed its one free bet.
type PaymentMethod string

const (
	PaymentWallet  PaymentMethod = "wallet"
	PaymentFreeBet PaymentMethod = "free_bet"
	PaymentBonus   PaymentMethod = "bonus"
)

// ──────────────────────────────────────────────────────────────────────────────
// Bet
// ──────────────────────────────────────────────────────────────────────────────

// Bet represents a single wager on a sporting event outcome.
// ID is the on-chain bet object id when the bet was placed through the wallet
// flow, otherwise a synthetic UUID string.
type Bet struct {
	ID              string           `json:"id"               db:"id"`
	WalletAddress   string           `json:"wallet_address"   db:"wallet_address"`
	EventID         string           `json:"event_id"         db:"event_id"`
	EventName       string           `json:"event_name"       db:"event_name"`
	HomeTeam        string           `json:"home_team"        db:"home_team"`
	AwayTeam        string           `json:"away_team"        db:"away_team"`
	MarketID        string           `json:"market_id"        db:"market_id"`
	OutcomeID       string           `json:"outcome_id"       db:"outcome_id"`
	Prediction      string           `json:"prediction"       db:"prediction"`
	Odds            decimal.Decimal  `json:"odds"             db:"odds"`
	Stake           decimal.Decimal  `json:"stake"            db:"stake"`
	Currency        Currency         `json:"currency"         db:"currency"`
	PotentialPayout decimal.Decimal  `json:"potential_payout" db:"potential_payout"`
	PlatformFee     decimal.Decimal  `json:"platform_fee"     db:"platform_fee"`
	PaymentMethod   PaymentMethod    `json:"payment_method"   db:"payment_method"`
	Status          BetStatus        `json:"status"           db:"status"`
	IsLive          bool             `json:"is_live"          db:"is_live"`
	MatchMinute     *int             `json:"match_minute"     db:"match_minute"`
	TxHash          *string          `json:"tx_hash"          db:"tx_hash"`
	OnChainBetID    *string          `json:"on_chain_bet_id"  db:"on_chain_bet_id"`
	SettlementTx    *string          `json:"settlement_tx"    db:"settlement_tx"`
	ParlayID        *string          `json:"parlay_id"        db:"parlay_id"`
	PlacedAt        time.Time        `json:"placed_at"        db:"placed_at"`
	SettledAt       *time.Time       `json:"settled_at"       db:"settled_at"`
	ActualPayout    *decimal.Decimal `json:"actual_payout"    db:"actual_payout"`
}

// IsOnChain returns true when the bet carries wallet-signed chain identifiers,
// meaning the contract already holds the stake and took its fee.
func (b *Bet) IsOnChain() bool {
	return b.TxHash != nil && *b.TxHash != ""
}

// IsOpen returns true while the bet awaits settlement.
func (b *Bet) IsOpen() bool {
	return b.Status == BetStatusPending || b.Status == BetStatusConfirmed
}

// PotentialPayoutFor computes stake × odds rounded to 2 decimals, the value
// displayed and persisted at placement time.
func PotentialPayoutFor(stake, odds decimal.Decimal) decimal.Decimal {
	return stake.Mul(odds).Round(2)
}

// SettlementProfit returns the winner's profit over stake; zero floor so a
// rounding artefact can never produce a negative fee base.
func (b *Bet) SettlementProfit() decimal.Decimal {
	profit := b.PotentialPayout.Sub(b.Stake)
	if profit.IsNegative() {
		return decimal.Zero
	}
	return profit
}

// ──────────────────────────────────────────────────────────────────────────────
// Parlay
// ──────────────────────────────────────────────────────────────────────────────

// Parlay is an ordered selection of bet legs settled as one wager.
// Combined odds are the product of leg odds; a single on-chain bet object
// binds the whole parlay.
type Parlay struct {
	ID            string          `json:"id"              db:"id"`
	WalletAddress string          `json:"wallet_address"  db:"wallet_address"`
	CombinedOdds  decimal.Decimal `json:"combined_odds"   db:"combined_odds"`
	Stake         decimal.Decimal `json:"stake"           db:"stake"`
	Currency      Currency        `json:"currency"        db:"currency"`
	PotentialWin  decimal.Decimal `json:"potential_win"   db:"potential_win"`
	Status        BetStatus       `json:"status"          db:"status"`
	TxHash        *string         `json:"tx_hash"         db:"tx_hash"`
	OnChainBetID  *string         `json:"on_chain_bet_id" db:"on_chain_bet_id"`
	PlacedAt      time.Time       `json:"placed_at"       db:"placed_at"`
	SettledAt     *time.Time      `json:"settled_at"      db:"settled_at"`
}

// ParlaySelection is one leg of a parlay placement request.
type ParlaySelection struct {
	EventID    string          `json:"event_id"`
	EventName  string          `json:"event_name"`
	MarketID   string          `json:"market_id"`
	OutcomeID  string          `json:"outcome_id"`
	Prediction string          `json:"prediction"`
	Odds       decimal.Decimal `json:"odds"`
	IsLive     bool            `json:"is_live"`
}

// CombinedOdds multiplies all leg odds together.
func CombinedOdds(selections []ParlaySelection) decimal.Decimal {
	combined := decimal.NewFromInt(1)
	for _, sel := range selections {
		combined = combined.Mul(sel.Odds)
	}
	return combined
}

// ──────────────────────────────────────────────────────────────────────────────
// Market families
// ──────────────────────────────────────────────────────────────────────────────

// matchWinnerPatterns identifies the "match winner" market family; the only
// family admissible for live bets.
var matchWinnerPatterns = []string{"match_winner", "match_result", "1x2", "moneyline", "winner"}

// IsMatchWinnerMarket reports whether the market id belongs to the match-winner
// family (substring match, case-insensitive).
func IsMatchWinnerMarket(marketID string) bool {
	id := strings.ToLower(marketID)
	for _, p := range matchWinnerPatterns {
		if strings.Contains(id, p) {
			return true
		}
	}
	return false
}

// IsFirstHalfMarket reports whether the market settles on first-half state only.
func IsFirstHalfMarket(marketID string) bool {
	return strings.Contains(strings.ToLower(marketID), "first_half")
}
