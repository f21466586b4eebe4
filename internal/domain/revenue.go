package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Revenue split
// ──────────────────────────────────────────────────────────────────────────────

// Weekly platform revenue is split 30 % to token holders, 40 % to the
// treasury, 30 % to profit.
var (
	RevenueShareHolders  = decimal.NewFromFloat(0.30)
	RevenueShareTreasury = decimal.NewFromFloat(0.40)
	RevenueShareProfit   = decimal.NewFromFloat(0.30)

	// SettlementFeeRate is the platform's cut of a winner's profit.
	SettlementFeeRate = decimal.NewFromFloat(0.01)
)

// WeekStart truncates t to the ISO week boundary: Monday 00:00 UTC.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 { // Sunday belongs to the week that started 6 days earlier
		weekday = 7
	}
	day := t.Truncate(24 * time.Hour)
	return day.AddDate(0, 0, -(weekday - 1))
}

// WeekEnd returns the exclusive end of the ISO week containing t: the
// following Monday 00:00 UTC (WeekStart + 7 days).
func WeekEnd(t time.Time) time.Time {
	return WeekStart(t).AddDate(0, 0, 7)
}

// BetRevenue returns the platform revenue a settled bet contributed in its own
// currency: the full stake for a loss, 1 % of profit for a win, zero otherwise.
func BetRevenue(b *Bet) decimal.Decimal {
	switch b.Status {
	case BetStatusLost:
		return b.Stake
	case BetStatusWon, BetStatusPaidOut:
		return b.SettlementProfit().Mul(SettlementFeeRate)
	default:
		return decimal.Zero
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Holders
// ──────────────────────────────────────────────────────────────────────────────

// Holder is one SBETS token holder from the supply snapshot.
type Holder struct {
	Wallet     string          `json:"wallet"`
	Balance    decimal.Decimal `json:"balance"`
	Percentage decimal.Decimal `json:"percentage"` // balance / totalSupply × 100
}

// ──────────────────────────────────────────────────────────────────────────────
// RevenueClaim
// ──────────────────────────────────────────────────────────────────────────────

// RevenueClaim records one wallet's weekly holder distribution.
// At most one row exists per (wallet, week_start).
type RevenueClaim struct {
	ID            string          `json:"id"             db:"id"`
	WalletAddress string          `json:"wallet_address" db:"wallet_address"`
	WeekStart     time.Time       `json:"week_start"     db:"week_start"`
	HolderBalance decimal.Decimal `json:"holder_balance" db:"holder_balance"`
	SharePercent  decimal.Decimal `json:"share_percent"  db:"share_percent"`
	AmountSUI     decimal.Decimal `json:"amount_sui"     db:"amount_sui"`
	AmountSBETS   decimal.Decimal `json:"amount_sbets"   db:"amount_sbets"`
	TxHashSUI     *string         `json:"tx_hash_sui"    db:"tx_hash_sui"`
	TxHashSBETS   *string         `json:"tx_hash_sbets"  db:"tx_hash_sbets"`
	ClaimedAt     time.Time       `json:"claimed_at"     db:"claimed_at"`
}

// Minimum claim thresholds; a claim below both is rejected as too small.
var (
	MinClaimSUI   = decimal.NewFromFloat(0.001)
	MinClaimSBETS = decimal.NewFromInt(1)
)
