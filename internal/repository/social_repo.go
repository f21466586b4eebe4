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

// SocialRepository handles social predictions and their bets.
type SocialRepository struct {
	db *sqlx.DB
}

// NewSocialRepository creates a SocialRepository.
func NewSocialRepository(db *sqlx.DB) *SocialRepository {
	return &SocialRepository{db: db}
}

// CreatePrediction inserts a new prediction in active status.
func (r *SocialRepository) CreatePrediction(ctx context.Context, p *domain.Prediction) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO social_predictions
			(id, creator_wallet, title, description, category, end_date,
			 total_yes_amount, total_no_amount, participants, status, created_at)
		VALUES
			(:id, :creator_wallet, :title, :description, :category, :end_date,
			 :total_yes_amount, :total_no_amount, :participants, :status, :created_at)`, p)
	if err != nil {
		return fmt.Errorf("social_repo.CreatePrediction: %w", err)
	}
	return nil
}

// GetPrediction fetches a prediction by id.
func (r *SocialRepository) GetPrediction(ctx context.Context, id string) (*domain.Prediction, error) {
	var p domain.Prediction
	err := r.db.GetContext(ctx, &p, `SELECT * FROM social_predictions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPredictionNotFound
		}
		return nil, fmt.Errorf("social_repo.GetPrediction: %w", err)
	}
	return &p, nil
}

// ListPredictions returns predictions, optionally filtered by status, newest
// first.
func (r *SocialRepository) ListPredictions(ctx context.Context, status domain.PredictionStatus) ([]*domain.Prediction, error) {
	var ps []*domain.Prediction
	var err error
	if status != "" {
		err = r.db.SelectContext(ctx, &ps, `
			SELECT * FROM social_predictions WHERE status = $1 ORDER BY created_at DESC`,
			string(status))
	} else {
		err = r.db.SelectContext(ctx, &ps,
			`SELECT * FROM social_predictions ORDER BY created_at DESC`)
	}
	if err != nil {
		return nil, fmt.Errorf("social_repo.ListPredictions: %w", err)
	}
	return ps, nil
}

// ExpiredActive returns active predictions whose end date has passed; the
// auto-resolver's work list.
func (r *SocialRepository) ExpiredActive(ctx context.Context, now time.Time) ([]*domain.Prediction, error) {
	var ps []*domain.Prediction
	err := r.db.SelectContext(ctx, &ps, `
		SELECT * FROM social_predictions
		WHERE status = 'active' AND end_date < $1
		ORDER BY end_date ASC`, now)
	if err != nil {
		return nil, fmt.Errorf("social_repo.ExpiredActive: %w", err)
	}
	return ps, nil
}

// InsertBet records a side bet and bumps the pool totals atomically.
// ErrDuplicateTx when the on-chain tx id was already consumed.
func (r *SocialRepository) InsertBet(ctx context.Context, b *domain.PredictionBet) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("social_repo.InsertBet: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO social_prediction_bets
			(id, prediction_id, wallet, side, amount, tx_id, placed_at)
		VALUES
			(:id, :prediction_id, :wallet, :side, :amount, :tx_id, :placed_at)`, b)
	if err != nil {
		if isUniqueViolation(err) {
			err = domain.ErrDuplicateTx
			return err
		}
		err = fmt.Errorf("social_repo.InsertBet: insert: %w", err)
		return err
	}

	column := "total_yes_amount"
	if b.Side == domain.SideNo {
		column = "total_no_amount"
	}
	var res sql.Result
	res, err = tx.ExecContext(ctx, `
		UPDATE social_predictions
		SET `+column+` = `+column+` + $1,
		    participants = participants + 1
		WHERE id = $2 AND status = 'active'`,
		b.Amount, b.PredictionID)
	if err != nil {
		err = fmt.Errorf("social_repo.InsertBet: bump totals: %w", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = domain.ErrPredictionNotActive
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("social_repo.InsertBet: commit: %w", err)
	}
	return nil
}

// BetsFor returns all bets on a prediction.
func (r *SocialRepository) BetsFor(ctx context.Context, predictionID string) ([]*domain.PredictionBet, error) {
	var bets []*domain.PredictionBet
	err := r.db.SelectContext(ctx, &bets, `
		SELECT * FROM social_prediction_bets
		WHERE prediction_id = $1 ORDER BY placed_at ASC`, predictionID)
	if err != nil {
		return nil, fmt.Errorf("social_repo.BetsFor: %w", err)
	}
	return bets, nil
}

// FinishPrediction moves active → terminal, recording the outcome. False when
// the prediction already left active.
func (r *SocialRepository) FinishPrediction(ctx context.Context, id string, status domain.PredictionStatus, outcome string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE social_predictions
		SET status = $1, resolved_outcome = $2, resolved_at = now()
		WHERE id = $3 AND status = 'active'`,
		string(status), outcome, id)
	if err != nil {
		return false, fmt.Errorf("social_repo.FinishPrediction: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
