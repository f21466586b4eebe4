package domain

import (
	"math"
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Staking constants
// ──────────────────────────────────────────────────────────────────────────────

const (
	// StakingAPY caps a stake's lifetime reward at 5 % of its amount.
	StakingAPY = 0.05

	// StakingDailyRate is the linear accrual rate per day.
	StakingDailyRate = StakingAPY / 365

	// MinStakeSBETS is the smallest stake accepted.
	MinStakeSBETS int64 = 100_000

	// StakeLockPeriod is how long a stake cannot be withdrawn.
	StakeLockPeriod = 7 * 24 * time.Hour
)

// ──────────────────────────────────────────────────────────────────────────────
// Stake
// ──────────────────────────────────────────────────────────────────────────────

// Stake is one wallet's locked SBETS position. AccumulatedReward is a cached
// monotone snapshot of TargetReward; readers may always recompute the live
// value from the base fields.
type Stake struct {
	ID                string     `json:"id"                 db:"id"`
	Wallet            string     `json:"wallet"             db:"wallet"`
	Amount            int64      `json:"amount"             db:"amount"`
	AccumulatedReward int64      `json:"accumulated_reward" db:"accumulated_reward"`
	TxHash            string     `json:"tx_hash"            db:"tx_hash"`
	Active            bool       `json:"active"             db:"active"`
	StakedAt          time.Time  `json:"staked_at"          db:"staked_at"`
	LockedUntil       time.Time  `json:"locked_until"       db:"locked_until"`
	UnstakingAt       *time.Time `json:"unstaking_at"       db:"unstaking_at"`
}

// TargetReward computes the capped linear reward accrued by now, floored to
// whole SBETS: min(amount × dailyRate × days, amount × APY).
func (s *Stake) TargetReward(now time.Time) int64 {
	days := now.Sub(s.StakedAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	live := float64(s.Amount) * StakingDailyRate * days
	cap := float64(s.Amount) * StakingAPY
	if live > cap {
		live = cap
	}
	return int64(math.Floor(live))
}

// Locked returns true while the stake cannot be withdrawn.
func (s *Stake) Locked(now time.Time) bool {
	return now.Before(s.LockedUntil)
}
