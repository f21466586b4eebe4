package sports

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/config"
)

// FootballClient fetches fixtures and odds from the premium football API.
// Each call has its own budget; callers never see partial parses — a fixture
// that fails to parse is skipped and logged.
type FootballClient struct {
	baseURL string
	apiKey  string
	cfg     *config.SportsConfig
	client  *http.Client
	logger  *slog.Logger
}

// NewFootballClient builds a FootballClient from config.
func NewFootballClient(cfg *config.Config, logger *slog.Logger) *FootballClient {
	return &FootballClient{
		baseURL: cfg.Sports.FootballURL,
		apiKey:  cfg.Sports.FootballAPIKey,
		cfg:     &cfg.Sports,
		client:  &http.Client{},
		logger:  logger,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Fixture payloads
// ──────────────────────────────────────────────────────────────────────────────

type fixtureResponse struct {
	Response []struct {
		Fixture struct {
			ID     int64 `json:"id"`
			Date   string `json:"date"`
			Status struct {
				Short   string `json:"short"`
				Elapsed *int   `json:"elapsed"`
			} `json:"status"`
		} `json:"fixture"`
		League struct {
			Name string `json:"name"`
		} `json:"league"`
		Teams struct {
			Home struct {
				Name string `json:"name"`
			} `json:"home"`
			Away struct {
				Name string `json:"name"`
			} `json:"away"`
		} `json:"teams"`
		Goals struct {
			Home *int `json:"home"`
			Away *int `json:"away"`
		} `json:"goals"`
		Score struct {
			Halftime struct {
				Home *int `json:"home"`
				Away *int `json:"away"`
			} `json:"halftime"`
		} `json:"score"`
	} `json:"response"`
}

// finishedStatuses are the short codes the provider uses for completed
// fixtures.
var finishedStatuses = map[string]bool{"FT": true, "AET": true, "PEN": true}

// Live fetches all in-play fixtures.
func (c *FootballClient) Live(ctx context.Context) ([]RawEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.LiveTimeout)
	defer cancel()
	return c.fixtures(ctx, "/fixtures?live=all")
}

// Upcoming fetches fixtures for the next 3 days.
func (c *FootballClient) Upcoming(ctx context.Context) ([]RawEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.UpcomingTimeout)
	defer cancel()
	from := time.Now().UTC()
	to := from.AddDate(0, 0, 3)
	path := fmt.Sprintf("/fixtures?from=%s&to=%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	return c.fixtures(ctx, path)
}

// Results fetches fixtures for one day and keeps only finished ones.
func (c *FootballClient) Results(ctx context.Context, day time.Time) ([]RawEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ResultsTimeout)
	defer cancel()
	events, err := c.fixtures(ctx, "/fixtures?date="+day.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	finished := events[:0]
	for _, e := range events {
		if e.Finished {
			finished = append(finished, e)
		}
	}
	return finished, nil
}

// fixtures fetches and parses one fixture listing.
func (c *FootballClient) fixtures(ctx context.Context, path string) ([]RawEvent, error) {
	body, err := c.doGet(ctx, c.baseURL+path)
	if err != nil {
		return nil, fmt.Errorf("football.fixtures %s: %w", path, err)
	}

	var resp fixtureResponse
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("football.fixtures parse: %w", err)
	}

	events := make([]RawEvent, 0, len(resp.Response))
	for _, f := range resp.Response {
		start, perr := time.Parse(time.RFC3339, f.Fixture.Date)
		if perr != nil {
			c.logger.Warn("football fixture with bad date skipped",
				"fixture", f.Fixture.ID, "date", f.Fixture.Date)
			continue
		}
		events = append(events, RawEvent{
			ID:        "fb-" + strconv.FormatInt(f.Fixture.ID, 10),
			SportID:   SportFootball,
			League:    f.League.Name,
			HomeTeam:  f.Teams.Home.Name,
			AwayTeam:  f.Teams.Away.Name,
			StartTime: start,
			Minute:    f.Fixture.Status.Elapsed,
			HomeScore: f.Goals.Home,
			AwayScore: f.Goals.Away,
			Finished:  finishedStatuses[f.Fixture.Status.Short],
		})
	}
	return events, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Odds
// ──────────────────────────────────────────────────────────────────────────────

type oddsResponse struct {
	Response []struct {
		Bookmakers []struct {
			Bets []struct {
				Name   string `json:"name"`
				Values []struct {
					Value string `json:"value"`
					Odd   string `json:"odd"`
				} `json:"values"`
			} `json:"bets"`
		} `json:"bookmakers"`
	} `json:"response"`
}

// Odds fetches match-winner odds for a single fixture and maps the provider's
// Home/Draw/Away labels onto outcome ids.
func (c *FootballClient) Odds(ctx context.Context, eventID string) (map[string]decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.UpcomingTimeout)
	defer cancel()

	fixtureID, ok := stripPrefix(eventID)
	if !ok {
		return nil, fmt.Errorf("football.Odds: not a football event id %q", eventID)
	}
	body, err := c.doGet(ctx, c.baseURL+"/odds?fixture="+fixtureID)
	if err != nil {
		return nil, fmt.Errorf("football.Odds %s: %w", eventID, err)
	}

	var resp oddsResponse
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("football.Odds parse: %w", err)
	}

	outcomeFor := map[string]string{"Home": "home", "Draw": "draw", "Away": "away"}
	odds := make(map[string]decimal.Decimal)
	for _, r := range resp.Response {
		for _, bm := range r.Bookmakers {
			for _, bet := range bm.Bets {
				if bet.Name != "Match Winner" {
					continue
				}
				for _, v := range bet.Values {
					outcome, known := outcomeFor[v.Value]
					if !known {
						continue
					}
					if _, seen := odds[outcome]; seen {
						continue // first bookmaker wins
					}
					d, derr := decimal.NewFromString(v.Odd)
					if derr == nil && d.GreaterThan(decimal.NewFromInt(1)) {
						odds[outcome] = d
					}
				}
			}
		}
	}
	return odds, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// HTTP helper
// ──────────────────────────────────────────────────────────────────────────────

// doGet performs an authenticated GET and returns the body bytes, or an error
// for any non-200 status.
func (c *FootballClient) doGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-apisports-key", c.apiKey)
	req.Header.Set("User-Agent", "suibets/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// stripPrefix extracts the numeric fixture id from a "fb-123" event id.
func stripPrefix(eventID string) (string, bool) {
	const prefix = "fb-"
	if len(eventID) <= len(prefix) || eventID[:len(prefix)] != prefix {
		return "", false
	}
	return eventID[len(prefix):], true
}
