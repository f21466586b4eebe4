package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/wurlus/suibets/internal/domain"
)

// EventRepository handles the immutable settled_events table.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates an EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert writes the settled-event row. Exactly-once: a second insert for the
// same event id is a silent no-op, reported via the returned bool.
func (r *EventRepository) Insert(ctx context.Context, e *domain.SettledEvent) (bool, error) {
	res, err := r.db.NamedExecContext(ctx, `
		INSERT INTO settled_events
			(event_id, home_team, away_team, home_score, away_score, winner,
			 bets_settled, settled_at)
		VALUES
			(:event_id, :home_team, :away_team, :home_score, :away_score, :winner,
			 :bets_settled, :settled_at)
		ON CONFLICT (event_id) DO NOTHING`, e)
	if err != nil {
		return false, fmt.Errorf("event_repo.Insert: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Exists reports whether the event was already settled.
func (r *EventRepository) Exists(ctx context.Context, eventID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM settled_events WHERE event_id = $1`, eventID)
	if err != nil {
		return false, fmt.Errorf("event_repo.Exists: %w", err)
	}
	return n > 0, nil
}

// ListSince returns settled events newer than since, newest first.
func (r *EventRepository) ListSince(ctx context.Context, since time.Time) ([]*domain.SettledEvent, error) {
	var events []*domain.SettledEvent
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM settled_events
		WHERE settled_at >= $1
		ORDER BY settled_at DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("event_repo.ListSince: %w", err)
	}
	return events, nil
}
