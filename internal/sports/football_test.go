package sports_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/config"
	"github.com/wurlus/suibets/internal/sports"
)

func testClient(t *testing.T, handler http.Handler) (*sports.FootballClient, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	cfg := &config.Config{}
	cfg.Sports = config.SportsConfig{
		FootballURL:     srv.URL,
		FootballAPIKey:  "test-key",
		LiveTimeout:     3 * time.Second,
		UpcomingTimeout: 3 * time.Second,
		ResultsTimeout:  3 * time.Second,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return sports.NewFootballClient(cfg, logger), srv.Close
}

// fixturePayload mirrors the provider's fixture listing shape.
func fixturePayload(id int64, status string, elapsed *int, home, away *int, date time.Time) map[string]interface{} {
	fixture := map[string]interface{}{
		"id":   id,
		"date": date.Format(time.RFC3339),
		"status": map[string]interface{}{
			"short":   status,
			"elapsed": elapsed,
		},
	}
	return map[string]interface{}{
		"fixture": fixture,
		"league":  map[string]interface{}{"name": "Premier League"},
		"teams": map[string]interface{}{
			"home": map[string]interface{}{"name": "Arsenal"},
			"away": map[string]interface{}{"name": "Chelsea"},
		},
		"goals": map[string]interface{}{"home": home, "away": away},
		"score": map[string]interface{}{
			"halftime": map[string]interface{}{"home": nil, "away": nil},
		},
	}
}

func respond(t *testing.T, w http.ResponseWriter, rows ...map[string]interface{}) {
	t.Helper()
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"response": rows}); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func intPtr(v int) *int { return &v }

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestFootball_Live(t *testing.T) {
	start := time.Now().UTC().Add(-30 * time.Minute).Truncate(time.Second)
	client, done := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-apisports-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		respond(t, w, fixturePayload(1001, "1H", intPtr(31), intPtr(1), intPtr(0), start))
	}))
	defer done()

	events, err := client.Live(context.Background())
	if err != nil {
		t.Fatalf("Live: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	e := events[0]
	if e.ID != "fb-1001" {
		t.Errorf("id = %q, want fb-1001", e.ID)
	}
	if e.Minute == nil || *e.Minute != 31 {
		t.Error("minute should be 31")
	}
	if e.HomeScore == nil || *e.HomeScore != 1 || e.AwayScore == nil || *e.AwayScore != 0 {
		t.Error("score should be 1-0")
	}
	if e.Finished {
		t.Error("in-play fixture should not be finished")
	}
	if e.HomeTeam != "Arsenal" || e.AwayTeam != "Chelsea" {
		t.Errorf("teams = %q vs %q", e.HomeTeam, e.AwayTeam)
	}
}

func TestFootball_ResultsKeepsOnlyFinished(t *testing.T) {
	day := time.Now().UTC()
	client, done := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(t, w,
			fixturePayload(1, "FT", nil, intPtr(2), intPtr(1), day.Add(-3*time.Hour)),
			fixturePayload(2, "1H", intPtr(20), intPtr(0), intPtr(0), day.Add(-time.Hour)),
			fixturePayload(3, "NS", nil, nil, nil, day.Add(2*time.Hour)),
		)
	}))
	defer done()

	results, err := client.Results(context.Background(), day)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(results) != 1 || results[0].ID != "fb-1" {
		t.Errorf("results = %+v, want only the FT fixture", results)
	}
}

func TestFootball_BadDateSkipped(t *testing.T) {
	client, done := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		row := fixturePayload(9, "NS", nil, nil, nil, time.Now())
		row["fixture"].(map[string]interface{})["date"] = "not-a-date"
		respond(t, w, row)
	}))
	defer done()

	events, err := client.Upcoming(context.Background())
	if err != nil {
		t.Fatalf("Upcoming: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("unparseable fixture should be skipped, got %d", len(events))
	}
}

func TestFootball_Odds(t *testing.T) {
	client, done := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]interface{}{
			"response": []map[string]interface{}{{
				"bookmakers": []map[string]interface{}{{
					"bets": []map[string]interface{}{{
						"name": "Match Winner",
						"values": []map[string]string{
							{"value": "Home", "odd": "1.85"},
							{"value": "Draw", "odd": "3.40"},
							{"value": "Away", "odd": "4.20"},
						},
					}},
				}},
			}},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer done()

	odds, err := client.Odds(context.Background(), "fb-1001")
	if err != nil {
		t.Fatalf("Odds: %v", err)
	}
	if !odds["home"].Equal(decimal.NewFromFloat(1.85)) {
		t.Errorf("home odds = %s, want 1.85", odds["home"])
	}
	if !odds["draw"].Equal(decimal.NewFromFloat(3.40)) {
		t.Errorf("draw odds = %s, want 3.40", odds["draw"])
	}
	if !odds["away"].Equal(decimal.NewFromFloat(4.20)) {
		t.Errorf("away odds = %s, want 4.20", odds["away"])
	}
}

func TestFootball_OddsRejectsForeignEventID(t *testing.T) {
	client, done := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no HTTP call expected for a non-football event id")
	}))
	defer done()

	if _, err := client.Odds(context.Background(), "free-2-99"); err == nil {
		t.Error("expected an error for a non-football event id")
	}
}

func TestFootball_UpstreamErrorPropagates(t *testing.T) {
	client, done := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer done()

	if _, err := client.Live(context.Background()); err == nil {
		t.Error("expected an error on a 503 upstream")
	}
}
