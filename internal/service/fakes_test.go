package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/config"
	"github.com/wurlus/suibets/internal/domain"
	"github.com/wurlus/suibets/internal/registry"
	"github.com/wurlus/suibets/internal/sports"
)

// In-memory fakes for the store interfaces. The database's conditional
// updates are modelled with a mutex so the idempotence semantics match.

// ── Config helper ─────────────────────────────────────────────────────────────

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Betting = config.BettingConfig{
		MaxStakeSUI:      100,
		MaxStakeSBETS:    10_000,
		MaxBetsPerDay:    7,
		MaxBetsPerEvent:  2,
		BetCooldown:      30 * time.Second,
		FeeRate:          0.01,
		SuiPriceUSD:      1.50,
		SbetsPriceUSD:    0.000001,
		LiveCacheMaxAge:  90 * time.Second,
		UpcomingMaxAge:   15 * time.Minute,
		SnapshotMaxAge:   10 * time.Minute,
		LiveCutoffMinute: 45,
		WelcomeBonus:     500,
	}
	cfg.Chain = config.ChainConfig{
		PayoutGap:   time.Millisecond,
		SettleDelay: time.Millisecond,
	}
	cfg.Revenue = config.RevenueConfig{
		DeploymentCutoff: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		HoldersCacheTTL:  time.Minute,
		HoldersPageDelay: time.Millisecond,
		HoldersMaxPages:  20,
		HoldersCap:       1000,
	}
	cfg.Admin = config.AdminConfig{
		Password:   "hunter2",
		SessionTTL: time.Hour,
		SweepEvery: time.Minute,
	}
	return cfg
}

// ── fakeBets ──────────────────────────────────────────────────────────────────

type fakeBets struct {
	mu      sync.Mutex
	bets    map[string]*domain.Bet
	parlays map[string]*domain.Parlay
	failAll bool
}

func newFakeBets() *fakeBets {
	return &fakeBets{
		bets:    make(map[string]*domain.Bet),
		parlays: make(map[string]*domain.Parlay),
	}
}

var errFakeDown = fmt.Errorf("fake store unavailable")

func (f *fakeBets) Create(_ context.Context, b *domain.Bet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errFakeDown
	}
	copied := *b
	f.bets[b.ID] = &copied
	return nil
}

func (f *fakeBets) GetByID(_ context.Context, id string) (*domain.Bet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bets[id]
	if !ok {
		return nil, domain.ErrBetNotFound
	}
	copied := *b
	return &copied, nil
}

func (f *fakeBets) GetByWallet(_ context.Context, wallet string, status domain.BetStatus) ([]*domain.Bet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Bet
	for _, b := range f.bets {
		if b.WalletAddress == wallet && (status == "" || b.Status == status) {
			copied := *b
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeBets) CountWalletBetsSince(_ context.Context, wallet string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return 0, errFakeDown
	}
	n := 0
	for _, b := range f.bets {
		if b.WalletAddress == wallet && !b.PlacedAt.Before(since) && b.Status != domain.BetStatusVoid {
			n++
		}
	}
	return n, nil
}

func (f *fakeBets) LastBetAt(_ context.Context, wallet string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return time.Time{}, errFakeDown
	}
	var last time.Time
	for _, b := range f.bets {
		if b.WalletAddress == wallet && b.PlacedAt.After(last) {
			last = b.PlacedAt
		}
	}
	return last, nil
}

func (f *fakeBets) CountWalletEventBets(_ context.Context, wallet, eventID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return 0, errFakeDown
	}
	n := 0
	for _, b := range f.bets {
		if b.WalletAddress == wallet && b.EventID == eventID && b.Status != domain.BetStatusVoid {
			n++
		}
	}
	return n, nil
}

func (f *fakeBets) HasOpenDuplicate(_ context.Context, wallet, eventID, marketID, outcomeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return false, errFakeDown
	}
	for _, b := range f.bets {
		if b.WalletAddress == wallet && b.EventID == eventID &&
			b.MarketID == marketID && b.OutcomeID == outcomeID && b.IsOpen() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBets) HasUsedFreeBet(_ context.Context, wallet string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bets {
		if b.WalletAddress == wallet && b.PaymentMethod == domain.PaymentFreeBet {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBets) SelectOpenBets(_ context.Context) ([]*domain.Bet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Bet
	for _, b := range f.bets {
		if b.IsOpen() {
			copied := *b
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeBets) SelectOpenBetsByEvent(_ context.Context, eventID string) ([]*domain.Bet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Bet
	for _, b := range f.bets {
		if b.EventID == eventID && b.IsOpen() {
			copied := *b
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeBets) UpdateStatusIf(_ context.Context, id string, from []domain.BetStatus, to domain.BetStatus, payout *decimal.Decimal) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bets[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if b.Status == s {
			b.Status = to
			b.ActualPayout = payout
			now := time.Now().UTC()
			b.SettledAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBets) MarkPaidOut(_ context.Context, id, settlementTx string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bets[id]
	if !ok || b.Status != domain.BetStatusWon {
		return false, nil
	}
	b.Status = domain.BetStatusPaidOut
	b.SettlementTx = &settlementTx
	return true, nil
}

func (f *fakeBets) RevertStatus(_ context.Context, id string, from, to domain.BetStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.bets[id]; ok && b.Status == from {
		b.Status = to
		b.ActualPayout = nil
		b.SettledAt = nil
	}
	return nil
}

func (f *fakeBets) SumOpenPayoutByCurrency(_ context.Context) (map[domain.Currency]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[domain.Currency]decimal.Decimal)
	for _, b := range f.bets {
		if b.IsOpen() {
			out[b.Currency] = out[b.Currency].Add(b.PotentialPayout)
		}
	}
	return out, nil
}

func (f *fakeBets) SelectSettledInWindow(_ context.Context, cutoff, from, to time.Time) ([]*domain.Bet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Bet
	for _, b := range f.bets {
		if b.SettledAt == nil {
			continue
		}
		at := *b.SettledAt
		if at.Before(cutoff) || at.Before(from) || !at.Before(to) {
			continue
		}
		copied := *b
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeBets) CreateParlay(_ context.Context, p *domain.Parlay, legs []*domain.Bet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *p
	f.parlays[p.ID] = &copied
	for _, leg := range legs {
		legCopy := *leg
		f.bets[leg.ID] = &legCopy
	}
	return nil
}

func (f *fakeBets) GetParlay(_ context.Context, id string) (*domain.Parlay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.parlays[id]
	if !ok {
		return nil, domain.ErrBetNotFound
	}
	copied := *p
	return &copied, nil
}

// ── fakeUsers ─────────────────────────────────────────────────────────────────

type credit struct {
	wallet   string
	amount   decimal.Decimal
	currency domain.Currency
}

type fakeUsers struct {
	mu          sync.Mutex
	users       map[string]*domain.User
	limits      map[string]*domain.UserLimits
	referrals   map[string]*domain.Referral // by referred wallet
	salts       map[string]string
	usedHashes  map[string]struct{}
	credits     []credit
	failCredits bool
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		users:      make(map[string]*domain.User),
		limits:     make(map[string]*domain.UserLimits),
		referrals:  make(map[string]*domain.Referral),
		salts:      make(map[string]string),
		usedHashes: make(map[string]struct{}),
	}
}

func (f *fakeUsers) ensure(wallet string) *domain.User {
	wallet = domain.NormalizeWallet(wallet)
	u, ok := f.users[wallet]
	if !ok {
		u = &domain.User{WalletAddress: wallet, CreatedAt: time.Now()}
		f.users[wallet] = u
	}
	return u
}

func (f *fakeUsers) GetByWallet(_ context.Context, wallet string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[domain.NormalizeWallet(wallet)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) EnsureUser(_ context.Context, wallet string, welcomeBonus int64) (*domain.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := domain.NormalizeWallet(wallet)
	if u, ok := f.users[key]; ok {
		copied := *u
		return &copied, false, nil
	}
	u := &domain.User{
		WalletAddress:  key,
		FreeBetBalance: welcomeBonus,
		WelcomeClaimed: welcomeBonus > 0,
		CreatedAt:      time.Now(),
	}
	f.users[key] = u
	copied := *u
	return &copied, true, nil
}

func (f *fakeUsers) CreditBalance(_ context.Context, wallet string, amount decimal.Decimal, currency domain.Currency) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCredits {
		return errFakeDown
	}
	u := f.ensure(wallet)
	if currency == domain.CurrencySBETS {
		u.BalanceSBETS = u.BalanceSBETS.Add(amount)
	} else {
		u.BalanceSUI = u.BalanceSUI.Add(amount)
	}
	f.credits = append(f.credits, credit{domain.NormalizeWallet(wallet), amount, currency})
	return nil
}

func (f *fakeUsers) DebitBalance(_ context.Context, wallet string, amount decimal.Decimal, currency domain.Currency) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.ensure(wallet)
	if currency == domain.CurrencySBETS {
		if u.BalanceSBETS.LessThan(amount) {
			return domain.ErrInsufficientBalance
		}
		u.BalanceSBETS = u.BalanceSBETS.Sub(amount)
	} else {
		if u.BalanceSUI.LessThan(amount) {
			return domain.ErrInsufficientBalance
		}
		u.BalanceSUI = u.BalanceSUI.Sub(amount)
	}
	return nil
}

func (f *fakeUsers) ConsumeFreeBet(_ context.Context, wallet string, stake int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.ensure(wallet)
	if u.FreeBetBalance < stake {
		return domain.ErrInsufficientBalance
	}
	u.FreeBetBalance -= stake
	return nil
}

func (f *fakeUsers) ConsumeBonus(_ context.Context, wallet string, amount decimal.Decimal) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.ensure(wallet)
	consumed := decimal.Min(u.BonusBalance, amount)
	u.BonusBalance = u.BonusBalance.Sub(consumed)
	return consumed, nil
}

func (f *fakeUsers) AddLoyaltyAndVolume(_ context.Context, wallet string, points, usd decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.ensure(wallet)
	u.LoyaltyPoints = u.LoyaltyPoints.Add(points)
	u.TotalVolumeUSD = u.TotalVolumeUSD.Add(usd)
	return nil
}

func (f *fakeUsers) KnownWallets(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for w := range f.users {
		out = append(out, w)
	}
	return out, nil
}

func (f *fakeUsers) ConsumeTxHash(_ context.Context, txHash, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, used := f.usedHashes[txHash]; used {
		return domain.ErrDuplicateTx
	}
	f.usedHashes[txHash] = struct{}{}
	return nil
}

func (f *fakeUsers) CreateReferral(_ context.Context, referrer, referred string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := domain.NormalizeWallet(referred)
	if _, ok := f.referrals[key]; ok {
		return nil
	}
	f.referrals[key] = &domain.Referral{
		ID:             "ref-" + key,
		ReferrerWallet: domain.NormalizeWallet(referrer),
		ReferredWallet: key,
		Status:         domain.ReferralPending,
		CreatedAt:      time.Now(),
	}
	return nil
}

func (f *fakeUsers) PendingReferralFor(_ context.Context, referred string) (*domain.Referral, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref, ok := f.referrals[domain.NormalizeWallet(referred)]
	if !ok || ref.Status != domain.ReferralPending {
		return nil, nil
	}
	copied := *ref
	return &copied, nil
}

func (f *fakeUsers) MarkReferralRewarded(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ref := range f.referrals {
		if ref.ID == id && ref.Status == domain.ReferralPending {
			ref.Status = domain.ReferralRewarded
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) GetOrCreateSalt(_ context.Context, issuer, audience, subject, newSalt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := issuer + "|" + audience + "|" + subject
	if salt, ok := f.salts[key]; ok {
		return salt, nil
	}
	f.salts[key] = newSalt
	return newSalt, nil
}

func (f *fakeUsers) GetLimits(_ context.Context, wallet string) (*domain.UserLimits, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := domain.NormalizeWallet(wallet)
	if l, ok := f.limits[key]; ok {
		copied := *l
		return &copied, nil
	}
	now := time.Now().UTC()
	return &domain.UserLimits{
		WalletAddress:    key,
		DailySpent:       decimal.Zero,
		WeeklySpent:      decimal.Zero,
		MonthlySpent:     decimal.Zero,
		LastResetDaily:   now,
		LastResetWeekly:  now,
		LastResetMonthly: now,
	}, nil
}

func (f *fakeUsers) UpsertLimits(_ context.Context, l *domain.UserLimits) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *l
	f.limits[l.WalletAddress] = &copied
	return nil
}

// ── fakeLookup ────────────────────────────────────────────────────────────────

type fakeLookup struct {
	mu      sync.Mutex
	results map[string]registry.LookupResult
	cfg     *config.BettingConfig
}

func newFakeLookup(cfg *config.Config) *fakeLookup {
	return &fakeLookup{
		results: make(map[string]registry.LookupResult),
		cfg:     &cfg.Betting,
	}
}

func (f *fakeLookup) set(eventID string, r registry.LookupResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.Found = true
	f.results[eventID] = r
}

func (f *fakeLookup) Lookup(eventID string) registry.LookupResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.results[eventID]; ok {
		return r
	}
	return registry.LookupResult{Found: false, Source: registry.SourceNone}
}

func (f *fakeLookup) LiveFresh(age time.Duration) bool     { return age <= f.cfg.LiveCacheMaxAge }
func (f *fakeLookup) UpcomingFresh(age time.Duration) bool { return age <= f.cfg.UpcomingMaxAge }

// ── fakeEvents (EventStore) ───────────────────────────────────────────────────

type fakeEvents struct {
	mu      sync.Mutex
	settled map[string]*domain.SettledEvent
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{settled: make(map[string]*domain.SettledEvent)}
}

func (f *fakeEvents) Insert(_ context.Context, e *domain.SettledEvent) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.settled[e.EventID]; ok {
		return false, nil
	}
	copied := *e
	f.settled[e.EventID] = &copied
	return true, nil
}

func (f *fakeEvents) Exists(_ context.Context, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.settled[eventID]
	return ok, nil
}

func (f *fakeEvents) ListSince(_ context.Context, since time.Time) ([]*domain.SettledEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.SettledEvent
	for _, e := range f.settled {
		if !e.SettledAt.Before(since) {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

// ── fakeResults (ResultsProvider) ─────────────────────────────────────────────

type fakeResults struct {
	mu     sync.Mutex
	events []sports.RawEvent
}

func (f *fakeResults) Results(context.Context, time.Time) ([]sports.RawEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events, nil
}

func intPtr(v int) *int { return &v }
