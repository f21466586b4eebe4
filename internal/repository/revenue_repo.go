package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/wurlus/suibets/internal/domain"
)

// RevenueRepository handles weekly revenue claims.
type RevenueRepository struct {
	db *sqlx.DB
}

// NewRevenueRepository creates a RevenueRepository.
func NewRevenueRepository(db *sqlx.DB) *RevenueRepository {
	return &RevenueRepository{db: db}
}

// InsertClaim records a weekly claim. ErrAlreadyClaimed when a row exists for
// (wallet, week_start); the caller then reads the stored row for its hashes.
func (r *RevenueRepository) InsertClaim(ctx context.Context, c *domain.RevenueClaim) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO revenue_claims
			(id, wallet_address, week_start, holder_balance, share_percent,
			 amount_sui, amount_sbets, tx_hash_sui, tx_hash_sbets, claimed_at)
		VALUES
			(:id, :wallet_address, :week_start, :holder_balance, :share_percent,
			 :amount_sui, :amount_sbets, :tx_hash_sui, :tx_hash_sbets, :claimed_at)`, c)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyClaimed
		}
		return fmt.Errorf("revenue_repo.InsertClaim: %w", err)
	}
	return nil
}

// UpdateClaimHashes records the payout tx hashes on an existing claim.
// Partial success leaves the failed side NULL for a later manual retry.
func (r *RevenueRepository) UpdateClaimHashes(ctx context.Context, id string, txSUI, txSBETS *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE revenue_claims SET tx_hash_sui = $1, tx_hash_sbets = $2 WHERE id = $3`,
		txSUI, txSBETS, id)
	if err != nil {
		return fmt.Errorf("revenue_repo.UpdateClaimHashes: %w", err)
	}
	return nil
}

// GetClaim fetches the claim for one wallet and week, nil when absent.
func (r *RevenueRepository) GetClaim(ctx context.Context, wallet string, weekStart time.Time) (*domain.RevenueClaim, error) {
	var c domain.RevenueClaim
	err := r.db.GetContext(ctx, &c, `
		SELECT * FROM revenue_claims
		WHERE wallet_address = $1 AND week_start = $2`,
		domain.NormalizeWallet(wallet), weekStart)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("revenue_repo.GetClaim: %w", err)
	}
	return &c, nil
}

// ClaimsForWeek returns every claim in a week, for the stats view.
func (r *RevenueRepository) ClaimsForWeek(ctx context.Context, weekStart time.Time) ([]*domain.RevenueClaim, error) {
	var cs []*domain.RevenueClaim
	err := r.db.SelectContext(ctx, &cs, `
		SELECT * FROM revenue_claims WHERE week_start = $1 ORDER BY claimed_at ASC`,
		weekStart)
	if err != nil {
		return nil, fmt.Errorf("revenue_repo.ClaimsForWeek: %w", err)
	}
	return cs, nil
}
