package domain

import (
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// SettledEvent
// ──────────────────────────────────────────────────────────────────────────────

// SettledEvent is the immutable record written once per finished event by the
// settlement worker. Its existence prevents the event from being re-processed.
type SettledEvent struct {
	EventID     string    `json:"event_id"     db:"event_id"`
	HomeTeam    string    `json:"home_team"    db:"home_team"`
	AwayTeam    string    `json:"away_team"    db:"away_team"`
	HomeScore   int       `json:"home_score"   db:"home_score"`
	AwayScore   int       `json:"away_score"   db:"away_score"`
	Winner      string    `json:"winner"       db:"winner"` // "home" | "away" | "draw"
	BetsSettled int       `json:"bets_settled" db:"bets_settled"`
	SettledAt   time.Time `json:"settled_at"   db:"settled_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// EventResult
// ──────────────────────────────────────────────────────────────────────────────

// EventResult carries the final state of a finished match as consumed by the
// settlement rules.
type EventResult struct {
	EventID        string
	HomeTeam       string
	AwayTeam       string
	HomeScore      int
	AwayScore      int
	FirstHalfHome  int
	FirstHalfAway  int
	HasFirstHalf   bool // first-half scores reported by the provider
}

// WinnerLabel returns "home", "away", or "draw" from the final score.
func (r *EventResult) WinnerLabel() string {
	switch {
	case r.HomeScore > r.AwayScore:
		return "home"
	case r.AwayScore > r.HomeScore:
		return "away"
	default:
		return "draw"
	}
}

// TotalGoals returns the sum of both final scores.
func (r *EventResult) TotalGoals() int {
	return r.HomeScore + r.AwayScore
}

// BothScored returns true when both teams scored at least once.
func (r *EventResult) BothScored() bool {
	return r.HomeScore > 0 && r.AwayScore > 0
}
