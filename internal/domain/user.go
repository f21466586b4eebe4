package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// User
// ──────────────────────────────────────────────────────────────────────────────

// User is a wallet-keyed account, created on first wallet connect and never
// destroyed. The wallet address is stored lowercased.
type User struct {
	WalletAddress  string          `json:"wallet_address"  db:"wallet_address"`
	DisplayName    string          `json:"display_name"    db:"display_name"`
	FreeBetBalance int64           `json:"free_bet_balance" db:"free_bet_balance"` // SBETS
	WelcomeClaimed bool            `json:"welcome_claimed" db:"welcome_claimed"`
	LoyaltyPoints  decimal.Decimal `json:"loyalty_points"  db:"loyalty_points"`
	TotalVolumeUSD decimal.Decimal `json:"total_volume_usd" db:"total_volume_usd"`
	BalanceSUI     decimal.Decimal `json:"balance_sui"     db:"balance_sui"`   // platform balance
	BalanceSBETS   decimal.Decimal `json:"balance_sbets"   db:"balance_sbets"` // platform balance
	BonusBalance   decimal.Decimal `json:"bonus_balance"   db:"bonus_balance"` // promotion USD credit
	CreatedAt      time.Time       `json:"created_at"      db:"created_at"`
}

// NormalizeWallet lowercases and trims a wallet address; every wallet key in
// the system passes through here.
func NormalizeWallet(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// ──────────────────────────────────────────────────────────────────────────────
// Referral
// ──────────────────────────────────────────────────────────────────────────────

// ReferralStatus tracks whether the referrer bonus has been paid.
type ReferralStatus string

const (
	ReferralPending  ReferralStatus = "pending"
	ReferralRewarded ReferralStatus = "rewarded"
)

// ReferralBonusSBETS is credited to the referrer's platform balance when the
// referred wallet places its first bet.
const ReferralBonusSBETS int64 = 1_000

// Referral bonds a referred wallet to its referrer.
type Referral struct {
	ID             string         `json:"id"              db:"id"`
	ReferrerWallet string         `json:"referrer_wallet" db:"referrer_wallet"`
	ReferredWallet string         `json:"referred_wallet" db:"referred_wallet"`
	Status         ReferralStatus `json:"status"          db:"status"`
	CreatedAt      time.Time      `json:"created_at"      db:"created_at"`
	RewardedAt     *time.Time     `json:"rewarded_at"     db:"rewarded_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// UserLimits
// ──────────────────────────────────────────────────────────────────────────────

// UserLimits holds windowed USD spend counters with lazy resets, optional
// caps, and self-exclusion. Zero cap means no cap.
type UserLimits struct {
	WalletAddress      string          `json:"wallet_address"       db:"wallet_address"`
	DailySpent         decimal.Decimal `json:"daily_spent"          db:"daily_spent"`
	WeeklySpent        decimal.Decimal `json:"weekly_spent"         db:"weekly_spent"`
	MonthlySpent       decimal.Decimal `json:"monthly_spent"        db:"monthly_spent"`
	DailyCap           decimal.Decimal `json:"daily_cap"            db:"daily_cap"`
	WeeklyCap          decimal.Decimal `json:"weekly_cap"           db:"weekly_cap"`
	MonthlyCap         decimal.Decimal `json:"monthly_cap"          db:"monthly_cap"`
	LastResetDaily     time.Time       `json:"last_reset_daily"     db:"last_reset_daily"`
	LastResetWeekly    time.Time       `json:"last_reset_weekly"    db:"last_reset_weekly"`
	LastResetMonthly   time.Time       `json:"last_reset_monthly"   db:"last_reset_monthly"`
	SelfExclusionUntil *time.Time      `json:"self_exclusion_until" db:"self_exclusion_until"`
}

// ApplyLazyResets zeroes any window whose reset boundary has passed. Returns
// true when something changed and the row should be written back.
func (l *UserLimits) ApplyLazyResets(now time.Time) bool {
	changed := false
	if now.Sub(l.LastResetDaily) >= 24*time.Hour {
		l.DailySpent = decimal.Zero
		l.LastResetDaily = now
		changed = true
	}
	if now.Sub(l.LastResetWeekly) >= 7*24*time.Hour {
		l.WeeklySpent = decimal.Zero
		l.LastResetWeekly = now
		changed = true
	}
	if now.Sub(l.LastResetMonthly) >= 30*24*time.Hour {
		l.MonthlySpent = decimal.Zero
		l.LastResetMonthly = now
		changed = true
	}
	return changed
}

// SelfExcluded returns true while a self-exclusion window is active.
func (l *UserLimits) SelfExcluded(now time.Time) bool {
	return l.SelfExclusionUntil != nil && now.Before(*l.SelfExclusionUntil)
}

// ExceededWindow returns the name of the first window whose cap would be
// breached by spending usd more, or "" when all windows allow it.
func (l *UserLimits) ExceededWindow(usd decimal.Decimal) string {
	if l.DailyCap.IsPositive() && l.DailySpent.Add(usd).GreaterThan(l.DailyCap) {
		return "daily"
	}
	if l.WeeklyCap.IsPositive() && l.WeeklySpent.Add(usd).GreaterThan(l.WeeklyCap) {
		return "weekly"
	}
	if l.MonthlyCap.IsPositive() && l.MonthlySpent.Add(usd).GreaterThan(l.MonthlyCap) {
		return "monthly"
	}
	return ""
}

// ──────────────────────────────────────────────────────────────────────────────
// zkLogin
// ──────────────────────────────────────────────────────────────────────────────

// ZkLoginSalt maps an OAuth subject to its deterministic zkLogin salt.
type ZkLoginSalt struct {
	ID        string    `json:"id"         db:"id"`
	Issuer    string    `json:"issuer"     db:"issuer"`
	Audience  string    `json:"audience"   db:"audience"`
	Subject   string    `json:"subject"    db:"subject"`
	Salt      string    `json:"salt"       db:"salt"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
