package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/domain"
)

// UserRepository handles users, platform balances, referrals, the deposit
// tx-hash ledger, and zkLogin salts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByWallet fetches a user by lowercased wallet address.
func (r *UserRepository) GetByWallet(ctx context.Context, wallet string) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u,
		`SELECT * FROM users WHERE wallet_address = $1`, domain.NormalizeWallet(wallet))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("user_repo.GetByWallet: %w", err)
	}
	return &u, nil
}

// EnsureUser creates the user row on first wallet connect. The one-time
// welcome free-bet bonus is granted atomically with the insert; a concurrent
// connect loses the insert race and grants nothing.
func (r *UserRepository) EnsureUser(ctx context.Context, wallet string, welcomeBonus int64) (*domain.User, bool, error) {
	wallet = domain.NormalizeWallet(wallet)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users
			(wallet_address, display_name, free_bet_balance, welcome_claimed, created_at)
		VALUES ($1, '', $2, $2 > 0, now())
		ON CONFLICT (wallet_address) DO NOTHING`,
		wallet, welcomeBonus)
	if err != nil {
		return nil, false, fmt.Errorf("user_repo.EnsureUser: %w", err)
	}
	created := false
	if n, _ := res.RowsAffected(); n > 0 {
		created = true
	}
	u, err := r.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, false, err
	}
	return u, created, nil
}

// CreditBalance adds amount to the user's platform balance in the given
// currency.
func (r *UserRepository) CreditBalance(ctx context.Context, wallet string, amount decimal.Decimal, currency domain.Currency) error {
	column := "balance_sui"
	if currency == domain.CurrencySBETS {
		column = "balance_sbets"
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET `+column+` = `+column+` + $1 WHERE wallet_address = $2`,
		amount, domain.NormalizeWallet(wallet))
	if err != nil {
		return fmt.Errorf("user_repo.CreditBalance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// DebitBalance subtracts amount, refusing to go negative.
func (r *UserRepository) DebitBalance(ctx context.Context, wallet string, amount decimal.Decimal, currency domain.Currency) error {
	column := "balance_sui"
	if currency == domain.CurrencySBETS {
		column = "balance_sbets"
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET `+column+` = `+column+` - $1
		 WHERE wallet_address = $2 AND `+column+` >= $1`,
		amount, domain.NormalizeWallet(wallet))
	if err != nil {
		return fmt.Errorf("user_repo.DebitBalance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrInsufficientBalance
	}
	return nil
}

// ConsumeFreeBet decrements the free-bet balance by stake if sufficient.
func (r *UserRepository) ConsumeFreeBet(ctx context.Context, wallet string, stake int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET free_bet_balance = free_bet_balance - $1
		WHERE wallet_address = $2 AND free_bet_balance >= $1`,
		stake, domain.NormalizeWallet(wallet))
	if err != nil {
		return fmt.Errorf("user_repo.ConsumeFreeBet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrInsufficientBalance
	}
	return nil
}

// ConsumeBonus deducts up to amount from the promotion bonus and returns what
// was actually consumed.
func (r *UserRepository) ConsumeBonus(ctx context.Context, wallet string, amount decimal.Decimal) (decimal.Decimal, error) {
	var consumed decimal.Decimal
	err := r.db.GetContext(ctx, &consumed, `
		WITH old AS (
			SELECT bonus_balance FROM users WHERE wallet_address = $2
		)
		UPDATE users u
		SET bonus_balance = u.bonus_balance - LEAST(u.bonus_balance, $1)
		FROM old
		WHERE u.wallet_address = $2
		RETURNING LEAST(old.bonus_balance, $1)`,
		amount, domain.NormalizeWallet(wallet))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, domain.ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("user_repo.ConsumeBonus: %w", err)
	}
	return consumed, nil
}

// AddLoyaltyAndVolume bumps loyalty points and the lifetime USD volume.
func (r *UserRepository) AddLoyaltyAndVolume(ctx context.Context, wallet string, points, usd decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET loyalty_points = loyalty_points + $1,
		    total_volume_usd = total_volume_usd + $2
		WHERE wallet_address = $3`,
		points, usd, domain.NormalizeWallet(wallet))
	if err != nil {
		return fmt.Errorf("user_repo.AddLoyaltyAndVolume: %w", err)
	}
	return nil
}

// KnownWallets lists every user wallet, used as the holders fallback.
func (r *UserRepository) KnownWallets(ctx context.Context) ([]string, error) {
	var wallets []string
	if err := r.db.SelectContext(ctx, &wallets, `SELECT wallet_address FROM users`); err != nil {
		return nil, fmt.Errorf("user_repo.KnownWallets: %w", err)
	}
	return wallets, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Deposit tx-hash ledger
// ──────────────────────────────────────────────────────────────────────────────

// ConsumeTxHash records a deposit transaction hash; ErrDuplicateTx when it was
// already consumed. The table's primary key is the only dedup check; there is
// no in-memory set in front of it.
func (r *UserRepository) ConsumeTxHash(ctx context.Context, txHash, purpose string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO used_tx_hashes (tx_hash, purpose, consumed_at) VALUES ($1, $2, now())`,
		txHash, purpose)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateTx
		}
		return fmt.Errorf("user_repo.ConsumeTxHash: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Referrals
// ──────────────────────────────────────────────────────────────────────────────

// CreateReferral bonds a referred wallet to its referrer.
func (r *UserRepository) CreateReferral(ctx context.Context, referrer, referred string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO referrals (id, referrer_wallet, referred_wallet, status, created_at)
		VALUES ($1, $2, $3, 'pending', now())
		ON CONFLICT (referred_wallet) DO NOTHING`,
		uuid.NewString(), domain.NormalizeWallet(referrer), domain.NormalizeWallet(referred))
	if err != nil {
		return fmt.Errorf("user_repo.CreateReferral: %w", err)
	}
	return nil
}

// PendingReferralFor returns the pending referral bonding this wallet, if any.
func (r *UserRepository) PendingReferralFor(ctx context.Context, referred string) (*domain.Referral, error) {
	var ref domain.Referral
	err := r.db.GetContext(ctx, &ref, `
		SELECT * FROM referrals
		WHERE referred_wallet = $1 AND status = 'pending'`,
		domain.NormalizeWallet(referred))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("user_repo.PendingReferralFor: %w", err)
	}
	return &ref, nil
}

// MarkReferralRewarded flips pending → rewarded; false when another caller
// already rewarded it.
func (r *UserRepository) MarkReferralRewarded(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE referrals SET status = 'rewarded', rewarded_at = now()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, fmt.Errorf("user_repo.MarkReferralRewarded: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// zkLogin salts
// ──────────────────────────────────────────────────────────────────────────────

// GetOrCreateSalt returns the salt for (issuer, audience, subject), creating
// it on first sight. Deterministic per subject: a concurrent create loses the
// insert race and reads the winner's salt.
func (r *UserRepository) GetOrCreateSalt(ctx context.Context, issuer, audience, subject, newSalt string) (string, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO zklogin_salts (id, issuer, audience, subject, salt, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (issuer, audience, subject) DO NOTHING`,
		uuid.NewString(), issuer, audience, subject, newSalt)
	if err != nil {
		return "", fmt.Errorf("user_repo.GetOrCreateSalt: %w", err)
	}
	var salt string
	err = r.db.GetContext(ctx, &salt, `
		SELECT salt FROM zklogin_salts
		WHERE issuer = $1 AND audience = $2 AND subject = $3`,
		issuer, audience, subject)
	if err != nil {
		return "", fmt.Errorf("user_repo.GetOrCreateSalt read: %w", err)
	}
	return salt, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// User limits
// ──────────────────────────────────────────────────────────────────────────────

// GetLimits fetches the limits row, returning a zero-value row when none
// exists yet.
func (r *UserRepository) GetLimits(ctx context.Context, wallet string) (*domain.UserLimits, error) {
	var l domain.UserLimits
	err := r.db.GetContext(ctx, &l,
		`SELECT * FROM user_limits WHERE wallet_address = $1`, domain.NormalizeWallet(wallet))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			now := time.Now().UTC()
			return &domain.UserLimits{
				WalletAddress:    domain.NormalizeWallet(wallet),
				DailySpent:       decimal.Zero,
				WeeklySpent:      decimal.Zero,
				MonthlySpent:     decimal.Zero,
				DailyCap:         decimal.Zero,
				WeeklyCap:        decimal.Zero,
				MonthlyCap:       decimal.Zero,
				LastResetDaily:   now,
				LastResetWeekly:  now,
				LastResetMonthly: now,
			}, nil
		}
		return nil, fmt.Errorf("user_repo.GetLimits: %w", err)
	}
	return &l, nil
}

// UpsertLimits writes the limits row back after lazy resets or counter bumps.
func (r *UserRepository) UpsertLimits(ctx context.Context, l *domain.UserLimits) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO user_limits
			(wallet_address, daily_spent, weekly_spent, monthly_spent,
			 daily_cap, weekly_cap, monthly_cap,
			 last_reset_daily, last_reset_weekly, last_reset_monthly,
			 self_exclusion_until)
		VALUES
			(:wallet_address, :daily_spent, :weekly_spent, :monthly_spent,
			 :daily_cap, :weekly_cap, :monthly_cap,
			 :last_reset_daily, :last_reset_weekly, :last_reset_monthly,
			 :self_exclusion_until)
		ON CONFLICT (wallet_address) DO UPDATE SET
			daily_spent = EXCLUDED.daily_spent,
			weekly_spent = EXCLUDED.weekly_spent,
			monthly_spent = EXCLUDED.monthly_spent,
			daily_cap = EXCLUDED.daily_cap,
			weekly_cap = EXCLUDED.weekly_cap,
			monthly_cap = EXCLUDED.monthly_cap,
			last_reset_daily = EXCLUDED.last_reset_daily,
			last_reset_weekly = EXCLUDED.last_reset_weekly,
			last_reset_monthly = EXCLUDED.last_reset_monthly,
			self_exclusion_until = EXCLUDED.self_exclusion_until`, l)
	if err != nil {
		return fmt.Errorf("user_repo.UpsertLimits: %w", err)
	}
	return nil
}
