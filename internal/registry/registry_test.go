package registry_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/config"
	"github.com/wurlus/suibets/internal/registry"
	"github.com/wurlus/suibets/internal/sports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Betting = config.BettingConfig{
		LiveCacheMaxAge:  90 * time.Second,
		UpcomingMaxAge:   15 * time.Minute,
		SnapshotMaxAge:   10 * time.Minute,
		LiveCutoffMinute: 45,
	}
	return cfg
}

// ── Provider stubs ────────────────────────────────────────────────────────────

type stubFootball struct {
	mu        sync.Mutex
	live      []sports.RawEvent
	upcoming  []sports.RawEvent
	failLive  bool
	failUp    bool
	upCalls   int
}

func (s *stubFootball) Live(context.Context) ([]sports.RawEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLive {
		return nil, fmt.Errorf("upstream down")
	}
	return s.live, nil
}

func (s *stubFootball) Upcoming(context.Context) ([]sports.RawEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upCalls++
	if s.failUp {
		return nil, fmt.Errorf("upstream down")
	}
	return s.upcoming, nil
}

func (s *stubFootball) Odds(context.Context, string) (map[string]decimal.Decimal, error) {
	return map[string]decimal.Decimal{"home": decimal.NewFromFloat(2.0)}, nil
}

func (s *stubFootball) Results(context.Context, time.Time) ([]sports.RawEvent, error) {
	return nil, nil
}

type stubFree struct{}

func (stubFree) Daily(context.Context, int) ([]sports.RawEvent, error) { return nil, nil }

func event(id string, sportID int, startIn time.Duration) sports.RawEvent {
	return sports.RawEvent{
		ID:        id,
		SportID:   sportID,
		HomeTeam:  "Home " + id,
		AwayTeam:  "Away " + id,
		StartTime: time.Now().Add(startIn),
	}
}

// ── Merge ─────────────────────────────────────────────────────────────────────

func TestMerge_DedupKeepsFirstOccurrence(t *testing.T) {
	first := event("e1", 1, time.Hour)
	first.HomeTeam = "First"
	dup := event("e1", 1, 2*time.Hour)
	dup.HomeTeam = "Second"

	merged := registry.Merge([]sports.RawEvent{first, dup, event("e2", 1, 30*time.Minute)})
	if len(merged) != 2 {
		t.Fatalf("merged length = %d, want 2", len(merged))
	}
	for _, e := range merged {
		if e.ID == "e1" && e.HomeTeam != "First" {
			t.Error("dedup should keep the first occurrence")
		}
	}
}

func TestMerge_SortsByStartTimeMissingLast(t *testing.T) {
	noTime := sports.RawEvent{ID: "none", SportID: 1}
	late := event("late", 1, 3*time.Hour)
	early := event("early", 1, time.Hour)

	merged := registry.Merge([]sports.RawEvent{noTime, late, early})
	if merged[0].ID != "early" || merged[1].ID != "late" || merged[2].ID != "none" {
		t.Errorf("order = %s,%s,%s; want early,late,none",
			merged[0].ID, merged[1].ID, merged[2].ID)
	}
}

// ── Lookup ────────────────────────────────────────────────────────────────────

func TestLookup_LiveBeatsUpcoming(t *testing.T) {
	r := registry.New(&stubFootball{}, stubFree{}, testConfig(), discardLogger())

	liveEv := event("e1", sports.SportFootball, -20*time.Minute)
	minute := 30
	liveEv.Minute = &minute
	r.SaveLive([]sports.RawEvent{liveEv})
	r.SaveUpcoming([]sports.RawEvent{event("e1", sports.SportFootball, time.Hour)})

	l := r.Lookup("e1")
	if !l.Found || l.Source != registry.SourceLive {
		t.Errorf("lookup = %+v, want live source", l)
	}
	if l.Minute == nil || *l.Minute != 30 {
		t.Error("live lookup should carry the minute")
	}
}

func TestLookup_UpcomingShouldBeLive(t *testing.T) {
	r := registry.New(&stubFootball{}, stubFree{}, testConfig(), discardLogger())
	r.SaveUpcoming([]sports.RawEvent{event("e1", sports.SportFootball, -time.Second)})

	l := r.Lookup("e1")
	if l.Source != registry.SourceUpcoming || !l.ShouldBeLive {
		t.Errorf("lookup = %+v, want upcoming+shouldBeLive", l)
	}
}

func TestLookup_FreeSource(t *testing.T) {
	r := registry.New(&stubFootball{}, stubFree{}, testConfig(), discardLogger())
	r.SaveUpcoming([]sports.RawEvent{event("free-2-9", sports.SportBasketball, time.Hour)})

	if l := r.Lookup("free-2-9"); l.Source != registry.SourceFree {
		t.Errorf("source = %s, want free", l.Source)
	}
}

func TestLookup_Miss(t *testing.T) {
	r := registry.New(&stubFootball{}, stubFree{}, testConfig(), discardLogger())
	if l := r.Lookup("nope"); l.Found || l.Source != registry.SourceNone {
		t.Errorf("lookup miss = %+v", l)
	}
}

// ── Snapshot fallback ─────────────────────────────────────────────────────────

func TestGetUpcoming_ServesFreshSnapshotWithoutUpstreamCall(t *testing.T) {
	fb := &stubFootball{}
	r := registry.New(fb, stubFree{}, testConfig(), discardLogger())
	r.SaveUpcoming([]sports.RawEvent{event("e1", sports.SportFootball, time.Hour)})

	got := r.GetUpcoming(context.Background(), nil)
	if len(got) != 1 || got[0].ID != "e1" {
		t.Fatalf("got %d events, want the snapshot event", len(got))
	}
	if fb.upCalls != 0 {
		t.Errorf("fresh snapshot must not trigger an upstream call, got %d", fb.upCalls)
	}
}

func TestGetUpcoming_FallsBackToSnapshotOnFailure(t *testing.T) {
	fb := &stubFootball{failUp: true}
	cfg := testConfig()
	cfg.Betting.SnapshotMaxAge = 0 // force a refresh attempt
	r := registry.New(fb, stubFree{}, cfg, discardLogger())
	r.SaveUpcoming([]sports.RawEvent{event("e1", sports.SportFootball, time.Hour)})

	got := r.GetUpcoming(context.Background(), nil)
	if len(got) != 1 {
		t.Errorf("upstream failure should serve the snapshot, got %d events", len(got))
	}
}

func TestGetUpcoming_FiltersStartedEvents(t *testing.T) {
	r := registry.New(&stubFootball{}, stubFree{}, testConfig(), discardLogger())
	r.SaveUpcoming([]sports.RawEvent{
		event("started", sports.SportFootball, -time.Minute),
		event("future", sports.SportFootball, time.Hour),
	})

	got := r.GetUpcoming(context.Background(), nil)
	if len(got) != 1 || got[0].ID != "future" {
		t.Errorf("started events should be filtered from the listing: %+v", got)
	}
}

func TestGetLive_FailureServesCache(t *testing.T) {
	fb := &stubFootball{}
	r := registry.New(fb, stubFree{}, testConfig(), discardLogger())
	r.SaveLive([]sports.RawEvent{event("e1", sports.SportFootball, -10*time.Minute)})
	fb.failLive = true

	got := r.GetLive(context.Background(), nil)
	if len(got) != 1 {
		t.Errorf("live failure should serve the cached listing, got %d", len(got))
	}
}

func TestGetLive_SportFilter(t *testing.T) {
	fb := &stubFootball{live: []sports.RawEvent{event("e1", sports.SportFootball, -time.Minute)}}
	r := registry.New(fb, stubFree{}, testConfig(), discardLogger())

	if got := r.GetLive(context.Background(), []int{sports.SportBasketball}); len(got) != 0 {
		t.Errorf("basketball has no live feed, got %d events", len(got))
	}
	if got := r.GetLive(context.Background(), []int{sports.SportFootball}); len(got) != 1 {
		t.Errorf("football live = %d events, want 1", len(got))
	}
}

// ── Odds cache ────────────────────────────────────────────────────────────────

func TestPrefetchOdds_WarmsCache(t *testing.T) {
	fb := &stubFootball{}
	r := registry.New(fb, stubFree{}, testConfig(), discardLogger())
	r.SaveUpcoming([]sports.RawEvent{event("fb-1", sports.SportFootball, time.Hour)})

	r.PrefetchOdds(context.Background())

	odds, ok := r.CachedOdds("fb-1")
	if !ok {
		t.Fatal("odds should be cached after prefetch")
	}
	if !odds["home"].Equal(decimal.NewFromFloat(2.0)) {
		t.Errorf("cached odds = %v", odds)
	}
}
