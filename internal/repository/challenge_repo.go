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

// ChallengeRepository handles peer challenges and their participants.
type ChallengeRepository struct {
	db *sqlx.DB
}

// NewChallengeRepository creates a ChallengeRepository.
func NewChallengeRepository(db *sqlx.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// Create inserts a new open challenge.
func (r *ChallengeRepository) Create(ctx context.Context, c *domain.Challenge) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO social_challenges
			(id, creator_wallet, title, description, stake_amount,
			 max_participants, current_participants, creator_side, status,
			 tx_hash, expires_at, created_at)
		VALUES
			(:id, :creator_wallet, :title, :description, :stake_amount,
			 :max_participants, :current_participants, :creator_side, :status,
			 :tx_hash, :expires_at, :created_at)`, c)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateTx
		}
		return fmt.Errorf("challenge_repo.Create: %w", err)
	}
	return nil
}

// Get fetches a challenge by id.
func (r *ChallengeRepository) Get(ctx context.Context, id string) (*domain.Challenge, error) {
	var c domain.Challenge
	err := r.db.GetContext(ctx, &c, `SELECT * FROM social_challenges WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("challenge_repo.Get: %w", err)
	}
	return &c, nil
}

// List returns challenges, optionally filtered by status, newest first.
func (r *ChallengeRepository) List(ctx context.Context, status domain.ChallengeStatus) ([]*domain.Challenge, error) {
	var cs []*domain.Challenge
	var err error
	if status != "" {
		err = r.db.SelectContext(ctx, &cs, `
			SELECT * FROM social_challenges WHERE status = $1 ORDER BY created_at DESC`,
			string(status))
	} else {
		err = r.db.SelectContext(ctx, &cs,
			`SELECT * FROM social_challenges ORDER BY created_at DESC`)
	}
	if err != nil {
		return nil, fmt.Errorf("challenge_repo.List: %w", err)
	}
	return cs, nil
}

// ExpiredOpen returns open challenges past their expiry; the auto-refunder's
// work list.
func (r *ChallengeRepository) ExpiredOpen(ctx context.Context, now time.Time) ([]*domain.Challenge, error) {
	var cs []*domain.Challenge
	err := r.db.SelectContext(ctx, &cs, `
		SELECT * FROM social_challenges
		WHERE status = 'open' AND expires_at < $1
		ORDER BY expires_at ASC`, now)
	if err != nil {
		return nil, fmt.Errorf("challenge_repo.ExpiredOpen: %w", err)
	}
	return cs, nil
}

// AddParticipant records a join and bumps the participant count while
// enforcing the cap and open status in one conditional statement.
func (r *ChallengeRepository) AddParticipant(ctx context.Context, p *domain.ChallengeParticipant) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("challenge_repo.AddParticipant: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var res sql.Result
	res, err = tx.ExecContext(ctx, `
		UPDATE social_challenges
		SET current_participants = current_participants + 1
		WHERE id = $1 AND status = 'open'
		  AND current_participants < max_participants`,
		p.ChallengeID)
	if err != nil {
		err = fmt.Errorf("challenge_repo.AddParticipant: bump count: %w", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = domain.ErrChallengeFull
		return err
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO social_challenge_participants
			(id, challenge_id, wallet, side, tx_hash, joined_at)
		VALUES
			(:id, :challenge_id, :wallet, :side, :tx_hash, :joined_at)`, p)
	if err != nil {
		if isUniqueViolation(err) {
			err = domain.ErrDuplicateTx
			return err
		}
		err = fmt.Errorf("challenge_repo.AddParticipant: insert: %w", err)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("challenge_repo.AddParticipant: commit: %w", err)
	}
	return nil
}

// Participants returns all participants of a challenge.
func (r *ChallengeRepository) Participants(ctx context.Context, challengeID string) ([]*domain.ChallengeParticipant, error) {
	var ps []*domain.ChallengeParticipant
	err := r.db.SelectContext(ctx, &ps, `
		SELECT * FROM social_challenge_participants
		WHERE challenge_id = $1 ORDER BY joined_at ASC`, challengeID)
	if err != nil {
		return nil, fmt.Errorf("challenge_repo.Participants: %w", err)
	}
	return ps, nil
}

// Finish moves open → terminal. False when the challenge already left open.
func (r *ChallengeRepository) Finish(ctx context.Context, id string, status domain.ChallengeStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE social_challenges
		SET status = $1, settled_at = now()
		WHERE id = $2 AND status = 'open'`,
		string(status), id)
	if err != nil {
		return false, fmt.Errorf("challenge_repo.Finish: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
