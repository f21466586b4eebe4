// Package registry maintains the merged, freshness-tracked view of every
// event the platform may accept bets on. Lookups never block on the network;
// listing reads share in-flight upstream calls and fall back to snapshots.
package registry

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/config"
	"github.com/wurlus/suibets/internal/sports"
	"golang.org/x/sync/singleflight"
)

// Source identifies which cache satisfied a lookup.
type Source string

const (
	SourceLive     Source = "live"
	SourceUpcoming Source = "upcoming"
	SourceFree     Source = "free"
	SourceNone     Source = "none"
)

// LookupResult is the admission pipeline's view of one event.
type LookupResult struct {
	Found        bool
	Source       Source
	StartTime    time.Time
	Minute       *int
	HomeScore    *int
	AwayScore    *int
	HomeTeam     string
	AwayTeam     string
	ShouldBeLive bool
	CacheAge     time.Duration
}

// snapshot is an immutable (events, timestamp) pair; readers always see a
// consistent pair because the pointer is swapped atomically.
type snapshot struct {
	events    []sports.RawEvent
	timestamp time.Time
}

// cacheState is one keyed cache (live or upcoming) with its fill time.
type cacheState struct {
	byID     map[string]sports.RawEvent
	filledAt time.Time
}

// Registry implements the event registry. All methods are safe for concurrent
// use.
type Registry struct {
	football sports.FootballProvider
	free     sports.FreeProvider
	cfg      *config.BettingConfig
	logger   *slog.Logger

	mu       sync.RWMutex
	live     cacheState
	upcoming cacheState

	liveSnap     atomic.Pointer[snapshot]
	upcomingSnap atomic.Pointer[snapshot]

	sf singleflight.Group

	oddsMu sync.RWMutex
	odds   map[string]map[string]decimal.Decimal
}

// New builds a Registry.
func New(football sports.FootballProvider, free sports.FreeProvider, cfg *config.Config, logger *slog.Logger) *Registry {
	return &Registry{
		football: football,
		free:     free,
		cfg:      &cfg.Betting,
		logger:   logger,
		live:     cacheState{byID: make(map[string]sports.RawEvent)},
		upcoming: cacheState{byID: make(map[string]sports.RawEvent)},
		odds:     make(map[string]map[string]decimal.Decimal),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Lookup — synchronous, never touches the network
// ──────────────────────────────────────────────────────────────────────────────

// Lookup resolves an event id against the live cache, then the upcoming
// cache. ShouldBeLive flags an upcoming event whose start time has passed —
// an uncertain state the admission pipeline rejects.
func (r *Registry) Lookup(eventID string) LookupResult {
	now := time.Now()

	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.live.byID[eventID]; ok {
		return LookupResult{
			Found:     true,
			Source:    SourceLive,
			StartTime: e.StartTime,
			Minute:    e.Minute,
			HomeScore: e.HomeScore,
			AwayScore: e.AwayScore,
			HomeTeam:  e.HomeTeam,
			AwayTeam:  e.AwayTeam,
			CacheAge:  now.Sub(r.live.filledAt),
		}
	}

	if e, ok := r.upcoming.byID[eventID]; ok {
		source := SourceUpcoming
		if e.SportID != sports.SportFootball {
			source = SourceFree
		}
		return LookupResult{
			Found:        true,
			Source:       source,
			StartTime:    e.StartTime,
			HomeTeam:     e.HomeTeam,
			AwayTeam:     e.AwayTeam,
			ShouldBeLive: now.After(e.StartTime),
			CacheAge:     now.Sub(r.upcoming.filledAt),
		}
	}

	return LookupResult{Found: false, Source: SourceNone}
}

// LiveFresh reports whether the live cache is within its freshness threshold.
// Staleness is strict: age exactly at the threshold is still fresh.
func (r *Registry) LiveFresh(age time.Duration) bool {
	return age <= r.cfg.LiveCacheMaxAge
}

// UpcomingFresh reports whether the upcoming cache is within its threshold.
func (r *Registry) UpcomingFresh(age time.Duration) bool {
	return age <= r.cfg.UpcomingMaxAge
}

// ──────────────────────────────────────────────────────────────────────────────
// Listing reads — may refresh upstream under a single-flight guard
// ──────────────────────────────────────────────────────────────────────────────

// GetLive returns in-play events for the requested sports. Only football has
// a live feed; concurrent callers share one upstream request. Upstream
// failure returns the current cache, never an error.
func (r *Registry) GetLive(ctx context.Context, sportIDs []int) []sports.RawEvent {
	wantFootball := len(sportIDs) == 0
	for _, id := range sportIDs {
		if id == sports.SportFootball {
			wantFootball = true
		}
	}
	if !wantFootball {
		return nil
	}

	v, err, _ := r.sf.Do("live", func() (interface{}, error) {
		events, ferr := r.football.Live(ctx)
		if ferr != nil {
			return nil, ferr
		}
		r.SaveLive(events)
		return events, nil
	})
	if err != nil {
		r.logger.Warn("live refresh failed, serving cache", "err", err)
		return r.cachedLive()
	}
	return v.([]sports.RawEvent)
}

// GetUpcoming returns upcoming events merged across providers. The snapshot
// is served while younger than SnapshotMaxAge and non-empty; otherwise a
// refresh is attempted, falling back to the snapshot on any upstream failure.
// Events whose start time has passed are filtered out of the listing.
func (r *Registry) GetUpcoming(ctx context.Context, sportIDs []int) []sports.RawEvent {
	if snap := r.upcomingSnap.Load(); snap != nil &&
		time.Since(snap.timestamp) < r.cfg.SnapshotMaxAge && len(snap.events) > 0 {
		return filterSports(notStarted(snap.events), sportIDs)
	}

	v, err, _ := r.sf.Do("upcoming", func() (interface{}, error) {
		return r.refreshUpcoming(ctx)
	})
	if err != nil {
		r.logger.Warn("upcoming refresh failed, serving snapshot", "err", err)
		if snap := r.upcomingSnap.Load(); snap != nil {
			return filterSports(notStarted(snap.events), sportIDs)
		}
		return nil
	}
	return filterSports(notStarted(v.([]sports.RawEvent)), sportIDs)
}

// refreshUpcoming pulls the premium and free upstreams, merges, and updates
// the cache and snapshot. A free-provider failure is elided; a premium
// failure fails the refresh so the caller falls back to the snapshot.
func (r *Registry) refreshUpcoming(ctx context.Context) ([]sports.RawEvent, error) {
	premium, err := r.football.Upcoming(ctx)
	if err != nil {
		return nil, err
	}

	merged := premium
	for sportID := range sports.SportNames {
		if sportID == sports.SportFootball {
			continue
		}
		batch, ferr := r.free.Daily(ctx, sportID)
		if ferr != nil {
			r.logger.Warn("free provider elided", "sport", sportID, "err", ferr)
			continue
		}
		merged = append(merged, batch...)
	}

	merged = Merge(merged)
	r.applyOdds(merged)
	r.SaveUpcoming(merged)
	return merged, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Snapshot primitives
// ──────────────────────────────────────────────────────────────────────────────

// SaveLive replaces the live cache and snapshot with the given events.
func (r *Registry) SaveLive(events []sports.RawEvent) {
	now := time.Now()
	byID := make(map[string]sports.RawEvent, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}

	r.mu.Lock()
	r.live = cacheState{byID: byID, filledAt: now}
	r.mu.Unlock()

	r.liveSnap.Store(&snapshot{events: events, timestamp: now})
}

// SaveUpcoming replaces the upcoming cache and snapshot with the given events.
func (r *Registry) SaveUpcoming(events []sports.RawEvent) {
	now := time.Now()
	byID := make(map[string]sports.RawEvent, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}

	r.mu.Lock()
	r.upcoming = cacheState{byID: byID, filledAt: now}
	r.mu.Unlock()

	r.upcomingSnap.Store(&snapshot{events: events, timestamp: now})
}

// LiveSnapshot returns the last successful live listing and its fill time.
func (r *Registry) LiveSnapshot() ([]sports.RawEvent, time.Time) {
	snap := r.liveSnap.Load()
	if snap == nil {
		return nil, time.Time{}
	}
	return snap.events, snap.timestamp
}

// UpcomingSnapshot returns the last successful upcoming listing and its fill
// time.
func (r *Registry) UpcomingSnapshot() ([]sports.RawEvent, time.Time) {
	snap := r.upcomingSnap.Load()
	if snap == nil {
		return nil, time.Time{}
	}
	return snap.events, snap.timestamp
}

func (r *Registry) cachedLive() []sports.RawEvent {
	snap := r.liveSnap.Load()
	if snap == nil {
		return nil
	}
	return snap.events
}

// ──────────────────────────────────────────────────────────────────────────────
// Odds warm cache
// ──────────────────────────────────────────────────────────────────────────────

// PrefetchOdds warms the odds cache for every upcoming football event.
// Called from the scheduler; provider failures are logged and elided.
func (r *Registry) PrefetchOdds(ctx context.Context) {
	snap := r.upcomingSnap.Load()
	if snap == nil {
		return
	}
	for _, e := range snap.events {
		if e.SportID != sports.SportFootball {
			continue
		}
		odds, err := r.football.Odds(ctx, e.ID)
		if err != nil {
			r.logger.Debug("odds prefetch elided", "event", e.ID, "err", err)
			continue
		}
		if len(odds) == 0 {
			continue
		}
		r.oddsMu.Lock()
		r.odds[e.ID] = odds
		r.oddsMu.Unlock()
	}
}

// CachedOdds returns the warmed odds for an event, if any.
func (r *Registry) CachedOdds(eventID string) (map[string]decimal.Decimal, bool) {
	r.oddsMu.RLock()
	defer r.oddsMu.RUnlock()
	odds, ok := r.odds[eventID]
	return odds, ok
}

// applyOdds decorates events with warmed odds. Cache-only: the public
// upcoming path never fetches odds inline.
func (r *Registry) applyOdds(events []sports.RawEvent) {
	r.oddsMu.RLock()
	defer r.oddsMu.RUnlock()
	for i := range events {
		if odds, ok := r.odds[events[i].ID]; ok {
			events[i].Odds = odds
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Merge
// ──────────────────────────────────────────────────────────────────────────────

// Merge deduplicates a concatenated batch, keeping the first occurrence of
// each event id, and sorts by start time ascending with zero times last.
func Merge(events []sports.RawEvent) []sports.RawEvent {
	seen := make(map[string]struct{}, len(events))
	out := make([]sports.RawEvent, 0, len(events))
	for _, e := range events {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].StartTime, out[j].StartTime
		if ti.IsZero() {
			return false
		}
		if tj.IsZero() {
			return true
		}
		return ti.Before(tj)
	})
	return out
}

func notStarted(events []sports.RawEvent) []sports.RawEvent {
	now := time.Now()
	out := make([]sports.RawEvent, 0, len(events))
	for _, e := range events {
		if e.StartTime.IsZero() || now.Before(e.StartTime) {
			out = append(out, e)
		}
	}
	return out
}

func filterSports(events []sports.RawEvent, sportIDs []int) []sports.RawEvent {
	if len(sportIDs) == 0 {
		return events
	}
	want := make(map[int]struct{}, len(sportIDs))
	for _, id := range sportIDs {
		want[id] = struct{}{}
	}
	out := make([]sports.RawEvent, 0, len(events))
	for _, e := range events {
		if _, ok := want[e.SportID]; ok {
			out = append(out, e)
		}
	}
	return out
}
