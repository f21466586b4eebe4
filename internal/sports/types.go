// Package sports contains the upstream sports-data provider clients. The
// premium football provider serves live and upcoming fixtures with odds; the
// free-tier provider serves a daily batch for the other sports.
package sports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Sport ids used across the platform. Football is the premium sport; the rest
// come from the free-tier daily batch.
const (
	SportFootball   = 1
	SportBasketball = 2
	SportTennis     = 3
	SportHockey     = 4
	SportBaseball   = 5
)

// SportNames maps sport ids to display tags.
var SportNames = map[int]string{
	SportFootball:   "football",
	SportBasketball: "basketball",
	SportTennis:     "tennis",
	SportHockey:     "hockey",
	SportBaseball:   "baseball",
}

// RawEvent is the provider-neutral view of one sporting event. Minute and
// score fields are nil until a provider reports them.
type RawEvent struct {
	ID        string          `json:"id"`
	SportID   int             `json:"sport_id"`
	League    string          `json:"league"`
	HomeTeam  string          `json:"home_team"`
	AwayTeam  string          `json:"away_team"`
	StartTime time.Time       `json:"start_time"`
	Minute    *int            `json:"minute"`
	HomeScore *int            `json:"home_score"`
	AwayScore *int            `json:"away_score"`
	Finished  bool            `json:"finished"`
	// Odds maps outcome id → decimal odds for the match-winner market.
	Odds map[string]decimal.Decimal `json:"odds,omitempty"`
}

// Name renders "Home vs Away" for display and validation.
func (e *RawEvent) Name() string {
	if e.HomeTeam == "" || e.AwayTeam == "" {
		return ""
	}
	return e.HomeTeam + " vs " + e.AwayTeam
}

// FootballProvider is the premium upstream: live fixtures with minute/score,
// upcoming fixtures, per-event odds, and finished results.
type FootballProvider interface {
	Live(ctx context.Context) ([]RawEvent, error)
	Upcoming(ctx context.Context) ([]RawEvent, error)
	Odds(ctx context.Context, eventID string) (map[string]decimal.Decimal, error)
	Results(ctx context.Context, day time.Time) ([]RawEvent, error)
}

// FreeProvider is the free-tier upstream: one daily batch per sport, served
// through a local cache so it never blocks the request path.
type FreeProvider interface {
	Daily(ctx context.Context, sportID int) ([]RawEvent, error)
}
