package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/domain"
)

// ── Accrual target ────────────────────────────────────────────────────────────

func TestStake_TargetReward(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := &domain.Stake{
		Amount:   1_000_000,
		StakedAt: now.AddDate(0, 0, -10), // 10 days ago
	}

	// 1_000_000 × (0.05/365) × 10 ≈ 1369.86 → floored to 1369.
	got := s.TargetReward(now)
	if got != 1369 {
		t.Errorf("TargetReward after 10 days = %d, want 1369", got)
	}
}

func TestStake_TargetReward_Cap(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := &domain.Stake{
		Amount:   1_000_000,
		StakedAt: now.AddDate(-2, 0, 0), // two years ago
	}
	// Capped at amount × APY = 50 000 regardless of elapsed time.
	if got := s.TargetReward(now); got != 50_000 {
		t.Errorf("TargetReward beyond a year = %d, want 50000 (cap)", got)
	}
}

func TestStake_TargetReward_Monotone(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := &domain.Stake{Amount: 500_000, StakedAt: base}

	prev := int64(-1)
	for day := 0; day <= 400; day += 7 {
		got := s.TargetReward(base.AddDate(0, 0, day))
		if got < prev {
			t.Fatalf("TargetReward regressed at day %d: %d < %d", day, got, prev)
		}
		prev = got
	}
	if cap := int64(float64(s.Amount) * domain.StakingAPY); prev != cap {
		t.Errorf("final reward = %d, want cap %d", prev, cap)
	}
}

func TestStake_Locked(t *testing.T) {
	now := time.Now()
	s := &domain.Stake{LockedUntil: now.Add(time.Hour)}
	if !s.Locked(now) {
		t.Error("stake should be locked before lockedUntil")
	}
	if s.Locked(now.Add(2 * time.Hour)) {
		t.Error("stake should unlock after lockedUntil")
	}
}

// ── Windowed limits ───────────────────────────────────────────────────────────

func TestUserLimits_ApplyLazyResets(t *testing.T) {
	now := time.Now().UTC()
	l := &domain.UserLimits{
		DailySpent:       decimal.NewFromInt(50),
		WeeklySpent:      decimal.NewFromInt(200),
		MonthlySpent:     decimal.NewFromInt(900),
		LastResetDaily:   now.Add(-25 * time.Hour),
		LastResetWeekly:  now.Add(-6 * 24 * time.Hour),
		LastResetMonthly: now.Add(-10 * 24 * time.Hour),
	}

	changed := l.ApplyLazyResets(now)
	if !changed {
		t.Fatal("expected a reset to occur")
	}
	if !l.DailySpent.IsZero() {
		t.Errorf("daily should reset, got %s", l.DailySpent)
	}
	if l.WeeklySpent.IsZero() {
		t.Error("weekly should not reset after only 6 days")
	}
	if l.MonthlySpent.IsZero() {
		t.Error("monthly should not reset after only 10 days")
	}
}

func TestUserLimits_ExceededWindow(t *testing.T) {
	l := &domain.UserLimits{
		DailySpent: decimal.NewFromInt(95),
		DailyCap:   decimal.NewFromInt(100),
	}
	if w := l.ExceededWindow(decimal.NewFromInt(10)); w != "daily" {
		t.Errorf("ExceededWindow = %q, want daily", w)
	}
	// Exactly hitting the cap is allowed; the check is strictly greater.
	if w := l.ExceededWindow(decimal.NewFromInt(5)); w != "" {
		t.Errorf("spending to the cap exactly should pass, got %q", w)
	}
	// Zero cap means no cap.
	l.DailyCap = decimal.Zero
	if w := l.ExceededWindow(decimal.NewFromInt(1_000_000)); w != "" {
		t.Errorf("zero cap should never trip, got %q", w)
	}
}

func TestUserLimits_SelfExcluded(t *testing.T) {
	now := time.Now()
	until := now.Add(24 * time.Hour)
	l := &domain.UserLimits{SelfExclusionUntil: &until}
	if !l.SelfExcluded(now) {
		t.Error("should be self-excluded while the window is active")
	}
	if l.SelfExcluded(now.Add(48 * time.Hour)) {
		t.Error("self-exclusion should lapse")
	}
}
