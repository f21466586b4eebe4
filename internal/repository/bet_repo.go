package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/domain"
)

// BetRepository handles bets and parlays.
type BetRepository struct {
	db *sqlx.DB
}

// NewBetRepository creates a BetRepository.
func NewBetRepository(db *sqlx.DB) *BetRepository {
	return &BetRepository{db: db}
}

// Create inserts a new bet.
func (r *BetRepository) Create(ctx context.Context, b *domain.Bet) error {
	query := `
		INSERT INTO bets
			(id, wallet_address, event_id, event_name, home_team, away_team,
			 market_id, outcome_id, prediction, odds, stake, currency,
			 potential_payout, platform_fee, payment_method, status, is_live,
			 match_minute, tx_hash, on_chain_bet_id, parlay_id, placed_at)
		VALUES
			(:id, :wallet_address, :event_id, :event_name, :home_team, :away_team,
			 :market_id, :outcome_id, :prediction, :odds, :stake, :currency,
			 :potential_payout, :platform_fee, :payment_method, :status, :is_live,
			 :match_minute, :tx_hash, :on_chain_bet_id, :parlay_id, :placed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, b); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateTx
		}
		return fmt.Errorf("bet_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a bet by its primary key.
func (r *BetRepository) GetByID(ctx context.Context, id string) (*domain.Bet, error) {
	var b domain.Bet
	err := r.db.GetContext(ctx, &b, `SELECT * FROM bets WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBetNotFound
		}
		return nil, fmt.Errorf("bet_repo.GetByID: %w", err)
	}
	return &b, nil
}

// GetByWallet returns a wallet's bets, optionally filtered by status, newest
// first.
func (r *BetRepository) GetByWallet(ctx context.Context, wallet string, status domain.BetStatus) ([]*domain.Bet, error) {
	var bets []*domain.Bet
	var err error
	if status != "" {
		err = r.db.SelectContext(ctx, &bets, `
			SELECT * FROM bets
			WHERE wallet_address = $1 AND status = $2
			ORDER BY placed_at DESC`,
			domain.NormalizeWallet(wallet), string(status))
	} else {
		err = r.db.SelectContext(ctx, &bets, `
			SELECT * FROM bets
			WHERE wallet_address = $1
			ORDER BY placed_at DESC`,
			domain.NormalizeWallet(wallet))
	}
	if err != nil {
		return nil, fmt.Errorf("bet_repo.GetByWallet: %w", err)
	}
	return bets, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Admission gates — durable counters derived from committed rows
// ──────────────────────────────────────────────────────────────────────────────

// CountWalletBetsSince counts a wallet's non-void bets placed after since.
func (r *BetRepository) CountWalletBetsSince(ctx context.Context, wallet string, since time.Time) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM bets
		WHERE wallet_address = $1 AND placed_at >= $2 AND status <> 'void'`,
		domain.NormalizeWallet(wallet), since)
	if err != nil {
		return 0, fmt.Errorf("bet_repo.CountWalletBetsSince: %w", err)
	}
	return n, nil
}

// LastBetAt returns the wallet's most recent bet placement time, zero when
// the wallet has never bet.
func (r *BetRepository) LastBetAt(ctx context.Context, wallet string) (time.Time, error) {
	var last sql.NullTime
	err := r.db.GetContext(ctx, &last,
		`SELECT MAX(placed_at) FROM bets WHERE wallet_address = $1`,
		domain.NormalizeWallet(wallet))
	if err != nil {
		return time.Time{}, fmt.Errorf("bet_repo.LastBetAt: %w", err)
	}
	if !last.Valid {
		return time.Time{}, nil
	}
	return last.Time, nil
}

// CountWalletEventBets counts a wallet's non-void bets on one event.
func (r *BetRepository) CountWalletEventBets(ctx context.Context, wallet, eventID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM bets
		WHERE wallet_address = $1 AND event_id = $2 AND status <> 'void'`,
		domain.NormalizeWallet(wallet), eventID)
	if err != nil {
		return 0, fmt.Errorf("bet_repo.CountWalletEventBets: %w", err)
	}
	return n, nil
}

// HasOpenDuplicate reports an open bet with the same wallet, event, market
// and outcome.
func (r *BetRepository) HasOpenDuplicate(ctx context.Context, wallet, eventID, marketID, outcomeID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM bets
		WHERE wallet_address = $1 AND event_id = $2 AND market_id = $3
		  AND outcome_id = $4 AND status IN ('pending', 'confirmed')`,
		domain.NormalizeWallet(wallet), eventID, marketID, outcomeID)
	if err != nil {
		return false, fmt.Errorf("bet_repo.HasOpenDuplicate: %w", err)
	}
	return n > 0, nil
}

// HasUsedFreeBet scans the wallet's history for a free-bet payment method.
func (r *BetRepository) HasUsedFreeBet(ctx context.Context, wallet string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM bets
		WHERE wallet_address = $1 AND payment_method = 'free_bet'`,
		domain.NormalizeWallet(wallet))
	if err != nil {
		return false, fmt.Errorf("bet_repo.HasUsedFreeBet: %w", err)
	}
	return n > 0, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Settlement
// ──────────────────────────────────────────────────────────────────────────────

// SelectOpenBets returns every pending or confirmed bet.
func (r *BetRepository) SelectOpenBets(ctx context.Context) ([]*domain.Bet, error) {
	var bets []*domain.Bet
	err := r.db.SelectContext(ctx, &bets,
		`SELECT * FROM bets WHERE status IN ('pending', 'confirmed') ORDER BY placed_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("bet_repo.SelectOpenBets: %w", err)
	}
	return bets, nil
}

// SelectOpenBetsByEvent returns open bets for one event.
func (r *BetRepository) SelectOpenBetsByEvent(ctx context.Context, eventID string) ([]*domain.Bet, error) {
	var bets []*domain.Bet
	err := r.db.SelectContext(ctx, &bets, `
		SELECT * FROM bets
		WHERE event_id = $1 AND status IN ('pending', 'confirmed')
		ORDER BY placed_at ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("bet_repo.SelectOpenBetsByEvent: %w", err)
	}
	return bets, nil
}

// UpdateStatusIf performs the conditional transition from any of the given
// statuses to the new one, recording the payout. Returns true when a row
// changed; false means the bet already left its open state and the caller
// must skip all side effects.
func (r *BetRepository) UpdateStatusIf(ctx context.Context, id string, from []domain.BetStatus, to domain.BetStatus, payout *decimal.Decimal) (bool, error) {
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}
	query, args, err := sqlx.In(`
		UPDATE bets
		SET status = ?, actual_payout = ?, settled_at = now()
		WHERE id = ? AND status IN (?)`,
		string(to), payout, id, fromStrs)
	if err != nil {
		return false, fmt.Errorf("bet_repo.UpdateStatusIf: build: %w", err)
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return false, fmt.Errorf("bet_repo.UpdateStatusIf: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// MarkPaidOut flips won → paid_out and records the settlement tx hash.
func (r *BetRepository) MarkPaidOut(ctx context.Context, id, settlementTx string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bets SET status = 'paid_out', settlement_tx = $1
		WHERE id = $2 AND status = 'won'`,
		settlementTx, id)
	if err != nil {
		return false, fmt.Errorf("bet_repo.MarkPaidOut: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RevertStatus restores a bet to its prior status after a failed credit.
// Clears the payout and settled_at so the next cycle reprocesses it cleanly.
func (r *BetRepository) RevertStatus(ctx context.Context, id string, from, to domain.BetStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bets SET status = $1, actual_payout = NULL, settled_at = NULL
		WHERE id = $2 AND status = $3`,
		string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("bet_repo.RevertStatus: %w", err)
	}
	return nil
}

// SumOpenPayoutByCurrency groups the open-bet liability by currency, used by
// the reconciliation endpoint.
func (r *BetRepository) SumOpenPayoutByCurrency(ctx context.Context) (map[domain.Currency]decimal.Decimal, error) {
	rows := []struct {
		Currency domain.Currency `db:"currency"`
		Total    decimal.Decimal `db:"total"`
	}{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT currency, COALESCE(SUM(potential_payout), 0) AS total
		FROM bets
		WHERE status IN ('pending', 'confirmed')
		GROUP BY currency`)
	if err != nil {
		return nil, fmt.Errorf("bet_repo.SumOpenPayoutByCurrency: %w", err)
	}
	out := make(map[domain.Currency]decimal.Decimal, len(rows))
	for _, row := range rows {
		out[row.Currency] = row.Total
	}
	return out, nil
}

// SelectSettledInWindow returns bets settled inside [from, to) and at or
// after the deployment cutoff — the revenue engine's input.
func (r *BetRepository) SelectSettledInWindow(ctx context.Context, cutoff, from, to time.Time) ([]*domain.Bet, error) {
	var bets []*domain.Bet
	err := r.db.SelectContext(ctx, &bets, `
		SELECT * FROM bets
		WHERE settled_at IS NOT NULL
		  AND settled_at >= $1 AND settled_at >= $2 AND settled_at < $3
		  AND status IN ('won', 'lost', 'paid_out', 'void')`,
		cutoff, from, to)
	if err != nil {
		return nil, fmt.Errorf("bet_repo.SelectSettledInWindow: %w", err)
	}
	return bets, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Parlays
// ──────────────────────────────────────────────────────────────────────────────

// CreateParlay inserts the parlay row and its legs.
func (r *BetRepository) CreateParlay(ctx context.Context, p *domain.Parlay, legs []*domain.Bet) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("bet_repo.CreateParlay: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO parlays
			(id, wallet_address, combined_odds, stake, currency, potential_win,
			 status, tx_hash, on_chain_bet_id, placed_at)
		VALUES
			(:id, :wallet_address, :combined_odds, :stake, :currency, :potential_win,
			 :status, :tx_hash, :on_chain_bet_id, :placed_at)`, p)
	if err != nil {
		if isUniqueViolation(err) {
			err = domain.ErrDuplicateTx
			return err
		}
		err = fmt.Errorf("bet_repo.CreateParlay: insert parlay: %w", err)
		return err
	}

	for _, leg := range legs {
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO bets
				(id, wallet_address, event_id, event_name, home_team, away_team,
				 market_id, outcome_id, prediction, odds, stake, currency,
				 potential_payout, platform_fee, payment_method, status, is_live,
				 match_minute, tx_hash, on_chain_bet_id, parlay_id, placed_at)
			VALUES
				(:id, :wallet_address, :event_id, :event_name, :home_team, :away_team,
				 :market_id, :outcome_id, :prediction, :odds, :stake, :currency,
				 :potential_payout, :platform_fee, :payment_method, :status, :is_live,
				 :match_minute, :tx_hash, :on_chain_bet_id, :parlay_id, :placed_at)`, leg)
		if err != nil {
			err = fmt.Errorf("bet_repo.CreateParlay: insert leg: %w", err)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("bet_repo.CreateParlay: commit: %w", err)
	}
	return nil
}

// GetParlay fetches a parlay by id.
func (r *BetRepository) GetParlay(ctx context.Context, id string) (*domain.Parlay, error) {
	var p domain.Parlay
	err := r.db.GetContext(ctx, &p, `SELECT * FROM parlays WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBetNotFound
		}
		return nil, fmt.Errorf("bet_repo.GetParlay: %w", err)
	}
	return &p, nil
}
