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

// StakingRepository handles the wurlus_staking table.
type StakingRepository struct {
	db *sqlx.DB
}

// NewStakingRepository creates a StakingRepository.
func NewStakingRepository(db *sqlx.DB) *StakingRepository {
	return &StakingRepository{db: db}
}

// Create inserts a new active stake. ErrDuplicateTx when the funding tx hash
// was already consumed.
func (r *StakingRepository) Create(ctx context.Context, s *domain.Stake) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO wurlus_staking
			(id, wallet, amount, accumulated_reward, tx_hash, active,
			 staked_at, locked_until)
		VALUES
			(:id, :wallet, :amount, :accumulated_reward, :tx_hash, :active,
			 :staked_at, :locked_until)`, s)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateTx
		}
		return fmt.Errorf("staking_repo.Create: %w", err)
	}
	return nil
}

// Get fetches a stake by id.
func (r *StakingRepository) Get(ctx context.Context, id string) (*domain.Stake, error) {
	var s domain.Stake
	err := r.db.GetContext(ctx, &s, `SELECT * FROM wurlus_staking WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrStakeNotFound
		}
		return nil, fmt.Errorf("staking_repo.Get: %w", err)
	}
	return &s, nil
}

// ByWallet returns all of a wallet's stakes, newest first.
func (r *StakingRepository) ByWallet(ctx context.Context, wallet string) ([]*domain.Stake, error) {
	var stakes []*domain.Stake
	err := r.db.SelectContext(ctx, &stakes, `
		SELECT * FROM wurlus_staking
		WHERE wallet = $1 ORDER BY staked_at DESC`,
		domain.NormalizeWallet(wallet))
	if err != nil {
		return nil, fmt.Errorf("staking_repo.ByWallet: %w", err)
	}
	return stakes, nil
}

// ListActive returns every active stake; the hourly compounder's work list.
func (r *StakingRepository) ListActive(ctx context.Context) ([]*domain.Stake, error) {
	var stakes []*domain.Stake
	err := r.db.SelectContext(ctx, &stakes,
		`SELECT * FROM wurlus_staking WHERE active = true ORDER BY staked_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("staking_repo.ListActive: %w", err)
	}
	return stakes, nil
}

// AdvanceReward raises the cached accumulated reward to target, only while
// active and only upward; the cached value is a monotone snapshot.
func (r *StakingRepository) AdvanceReward(ctx context.Context, id string, target int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE wurlus_staking
		SET accumulated_reward = $1
		WHERE id = $2 AND active = true AND accumulated_reward < $1`,
		target, id)
	if err != nil {
		return fmt.Errorf("staking_repo.AdvanceReward: %w", err)
	}
	return nil
}

// Deactivate performs the conditional unstake transition, freezing the final
// reward. False when the stake was already withdrawn.
func (r *StakingRepository) Deactivate(ctx context.Context, id string, finalReward int64, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE wurlus_staking
		SET active = false, unstaking_at = $1, accumulated_reward = $2
		WHERE id = $3 AND active = true`,
		now, finalReward, id)
	if err != nil {
		return false, fmt.Errorf("staking_repo.Deactivate: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ResetReward zeroes the accumulated reward and restarts accrual from now,
// only while active; used by claim-without-unstake. False when inactive.
func (r *StakingRepository) ResetReward(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE wurlus_staking
		SET accumulated_reward = 0, staked_at = $1
		WHERE id = $2 AND active = true`,
		now, id)
	if err != nil {
		return false, fmt.Errorf("staking_repo.ResetReward: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
