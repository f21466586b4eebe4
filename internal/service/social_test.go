package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wurlus/suibets/internal/chain"
	"github.com/wurlus/suibets/internal/domain"
	"github.com/wurlus/suibets/internal/service"
)

// ── fakeSocial (SocialStore) ──────────────────────────────────────────────────

type fakeSocial struct {
	mu          sync.Mutex
	predictions map[string]*domain.Prediction
	bets        map[string][]*domain.PredictionBet
	usedTx      map[string]struct{}
}

func newFakeSocial() *fakeSocial {
	return &fakeSocial{
		predictions: make(map[string]*domain.Prediction),
		bets:        make(map[string][]*domain.PredictionBet),
		usedTx:      make(map[string]struct{}),
	}
}

func (f *fakeSocial) CreatePrediction(_ context.Context, p *domain.Prediction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *p
	f.predictions[p.ID] = &copied
	return nil
}

func (f *fakeSocial) GetPrediction(_ context.Context, id string) (*domain.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.predictions[id]
	if !ok {
		return nil, domain.ErrPredictionNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeSocial) ListPredictions(_ context.Context, status domain.PredictionStatus) ([]*domain.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Prediction
	for _, p := range f.predictions {
		if status == "" || p.Status == status {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeSocial) ExpiredActive(_ context.Context, now time.Time) ([]*domain.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Prediction
	for _, p := range f.predictions {
		if p.Status == domain.PredictionActive && p.EndDate.Before(now) {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeSocial) InsertBet(_ context.Context, b *domain.PredictionBet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, used := f.usedTx[b.TxID]; used {
		return domain.ErrDuplicateTx
	}
	p, ok := f.predictions[b.PredictionID]
	if !ok || p.Status != domain.PredictionActive {
		return domain.ErrPredictionNotActive
	}
	f.usedTx[b.TxID] = struct{}{}
	copied := *b
	f.bets[b.PredictionID] = append(f.bets[b.PredictionID], &copied)
	if b.Side == domain.SideYes {
		p.TotalYesAmount += b.Amount
	} else {
		p.TotalNoAmount += b.Amount
	}
	p.Participants++
	return nil
}

func (f *fakeSocial) BetsFor(_ context.Context, predictionID string) ([]*domain.PredictionBet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.PredictionBet
	for _, b := range f.bets[predictionID] {
		copied := *b
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeSocial) FinishPrediction(_ context.Context, id string, status domain.PredictionStatus, outcome string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.predictions[id]
	if !ok || p.Status != domain.PredictionActive {
		return false, nil
	}
	p.Status = status
	p.ResolvedOutcome = &outcome
	now := time.Now().UTC()
	p.ResolvedAt = &now
	return true, nil
}

// ── Harness ───────────────────────────────────────────────────────────────────

type socialHarness struct {
	svc     *service.SocialService
	store   *fakeSocial
	gateway *chain.NopGateway
}

func newSocialHarness() *socialHarness {
	cfg := testConfig()
	h := &socialHarness{
		store:   newFakeSocial(),
		gateway: chain.NewNopGateway(),
	}
	h.svc = service.NewSocialService(h.store, h.gateway, cfg, discardLogger())
	return h
}

func (h *socialHarness) seedPrediction(id string, yes, no int64, endAgo time.Duration) {
	h.store.predictions[id] = &domain.Prediction{
		ID:             id,
		CreatorWallet:  "0xcreator",
		Title:          "Will it rain?",
		EndDate:        time.Now().UTC().Add(-endAgo),
		TotalYesAmount: yes,
		TotalNoAmount:  no,
		Status:         domain.PredictionActive,
		CreatedAt:      time.Now().UTC().Add(-24 * time.Hour),
	}
}

func (h *socialHarness) seedBet(predictionID, wallet string, side domain.PredictionSide, amount int64) {
	h.store.bets[predictionID] = append(h.store.bets[predictionID], &domain.PredictionBet{
		ID:           wallet + "-bet",
		PredictionID: predictionID,
		Wallet:       wallet,
		Side:         side,
		Amount:       amount,
		TxID:         "tx-" + wallet,
	})
}

// ── Tests ─────────────────────────────────────────────────────────────────────

// Scenario from the payout contract: 1 000 yes vs 400 no, expired. Winner is
// yes; each winner receives (bet/1000) × 1400.
func TestResolve_MajorityYesPaysProRata(t *testing.T) {
	h := newSocialHarness()
	h.seedPrediction("p1", 1000, 400, time.Minute)
	h.seedBet("p1", "0xalice", domain.SideYes, 600)
	h.seedBet("p1", "0xbob", domain.SideYes, 400)
	h.seedBet("p1", "0xcarol", domain.SideNo, 400)

	if err := h.svc.ResolveExpired(context.Background()); err != nil {
		t.Fatalf("ResolveExpired: %v", err)
	}

	p, _ := h.store.GetPrediction(context.Background(), "p1")
	if p.Status != domain.PredictionResolvedYes {
		t.Errorf("status = %s, want resolved_yes", p.Status)
	}
	if p.ResolvedOutcome == nil || *p.ResolvedOutcome != "yes" {
		t.Error("resolved outcome should be yes")
	}

	// alice: 600/1000 × 1400 = 840; bob: 400/1000 × 1400 = 560; carol nothing.
	if len(h.gateway.Transfers) != 2 {
		t.Fatalf("transfers = %d, want 2", len(h.gateway.Transfers))
	}
	paid := make(map[string]int64)
	for _, tr := range h.gateway.Transfers {
		paid[tr.To] = tr.Amount.IntPart()
	}
	if paid["0xalice"] != 840 {
		t.Errorf("alice share = %d, want 840", paid["0xalice"])
	}
	if paid["0xbob"] != 560 {
		t.Errorf("bob share = %d, want 560", paid["0xbob"])
	}
}

func TestResolve_TiesGoToYes(t *testing.T) {
	h := newSocialHarness()
	h.seedPrediction("p1", 500, 500, time.Minute)
	h.seedBet("p1", "0xalice", domain.SideYes, 500)
	h.seedBet("p1", "0xbob", domain.SideNo, 500)

	if err := h.svc.Resolve(context.Background(), "p1"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	p, _ := h.store.GetPrediction(context.Background(), "p1")
	if p.Status != domain.PredictionResolvedYes {
		t.Errorf("tie status = %s, want resolved_yes", p.Status)
	}
}

func TestResolve_EmptyPoolExpires(t *testing.T) {
	h := newSocialHarness()
	h.seedPrediction("p1", 0, 0, time.Minute)

	if err := h.svc.Resolve(context.Background(), "p1"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	p, _ := h.store.GetPrediction(context.Background(), "p1")
	if p.Status != domain.PredictionExpired {
		t.Errorf("status = %s, want expired", p.Status)
	}
	if len(h.gateway.Transfers) != 0 {
		t.Error("empty pool must not pay anyone")
	}
}

func TestResolve_SecondCallNoSecondFanOut(t *testing.T) {
	h := newSocialHarness()
	h.seedPrediction("p1", 1000, 400, time.Minute)
	h.seedBet("p1", "0xalice", domain.SideYes, 1000)

	if err := h.svc.Resolve(context.Background(), "p1"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	transfers := len(h.gateway.Transfers)

	err := h.svc.Resolve(context.Background(), "p1")
	if !errors.Is(err, domain.ErrPredictionNotActive) {
		t.Errorf("second resolve err = %v, want ErrPredictionNotActive", err)
	}
	if len(h.gateway.Transfers) != transfers {
		t.Error("second resolve fanned out payouts again")
	}
}

func TestResolve_PartialFailureStatus(t *testing.T) {
	h := newSocialHarness()
	h.seedPrediction("p1", 1000, 400, time.Minute)
	h.seedBet("p1", "0xalice", domain.SideYes, 1000)
	h.gateway.FailTransfers = true

	if err := h.svc.Resolve(context.Background(), "p1"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	p, _ := h.store.GetPrediction(context.Background(), "p1")
	if p.Status != domain.PredictionResolvedYesFailed {
		t.Errorf("status = %s, want resolved_yes_failed", p.Status)
	}
}

func TestPlaceBet_DuplicateTxRejected(t *testing.T) {
	h := newSocialHarness()
	h.store.predictions["p1"] = &domain.Prediction{
		ID:      "p1",
		EndDate: time.Now().Add(time.Hour),
		Status:  domain.PredictionActive,
	}

	if _, err := h.svc.PlaceBet(context.Background(), "p1", "0xalice", domain.SideYes, 100, "tx-1"); err != nil {
		t.Fatalf("first bet: %v", err)
	}
	_, err := h.svc.PlaceBet(context.Background(), "p1", "0xbob", domain.SideNo, 100, "tx-1")
	if !errors.Is(err, domain.ErrDuplicateTx) {
		t.Errorf("err = %v, want ErrDuplicateTx", err)
	}
}

func TestPlaceBet_ClosedPredictionRejected(t *testing.T) {
	h := newSocialHarness()
	h.store.predictions["p1"] = &domain.Prediction{
		ID:      "p1",
		EndDate: time.Now().Add(time.Hour),
		Status:  domain.PredictionResolvedYes,
	}
	_, err := h.svc.PlaceBet(context.Background(), "p1", "0xalice", domain.SideYes, 100, "tx-9")
	if !errors.Is(err, domain.ErrPredictionNotActive) {
		t.Errorf("err = %v, want ErrPredictionNotActive", err)
	}
}

// ── Challenges ────────────────────────────────────────────────────────────────

type challengeHarness struct {
	svc     *service.ChallengeService
	store   *fakeChallenges
	gateway *chain.NopGateway
}

type fakeChallenges struct {
	mu           sync.Mutex
	challenges   map[string]*domain.Challenge
	participants map[string][]*domain.ChallengeParticipant
	usedTx       map[string]struct{}
}

func newFakeChallenges() *fakeChallenges {
	return &fakeChallenges{
		challenges:   make(map[string]*domain.Challenge),
		participants: make(map[string][]*domain.ChallengeParticipant),
		usedTx:       make(map[string]struct{}),
	}
}

func (f *fakeChallenges) Create(_ context.Context, c *domain.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, used := f.usedTx[c.TxHash]; used {
		return domain.ErrDuplicateTx
	}
	f.usedTx[c.TxHash] = struct{}{}
	copied := *c
	f.challenges[c.ID] = &copied
	return nil
}

func (f *fakeChallenges) Get(_ context.Context, id string) (*domain.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.challenges[id]
	if !ok {
		return nil, domain.ErrChallengeNotFound
	}
	copied := *c
	return &copied, nil
}

func (f *fakeChallenges) List(_ context.Context, status domain.ChallengeStatus) ([]*domain.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Challenge
	for _, c := range f.challenges {
		if status == "" || c.Status == status {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeChallenges) ExpiredOpen(_ context.Context, now time.Time) ([]*domain.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Challenge
	for _, c := range f.challenges {
		if c.Status == domain.ChallengeOpen && c.ExpiresAt.Before(now) {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeChallenges) AddParticipant(_ context.Context, p *domain.ChallengeParticipant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.challenges[p.ChallengeID]
	if !ok || c.Status != domain.ChallengeOpen || c.CurrentParticipants >= c.MaxParticipants {
		return domain.ErrChallengeFull
	}
	if _, used := f.usedTx[p.TxHash]; used {
		return domain.ErrDuplicateTx
	}
	f.usedTx[p.TxHash] = struct{}{}
	c.CurrentParticipants++
	copied := *p
	f.participants[p.ChallengeID] = append(f.participants[p.ChallengeID], &copied)
	return nil
}

func (f *fakeChallenges) Participants(_ context.Context, id string) ([]*domain.ChallengeParticipant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.ChallengeParticipant
	for _, p := range f.participants[id] {
		copied := *p
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeChallenges) Finish(_ context.Context, id string, status domain.ChallengeStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.challenges[id]
	if !ok || c.Status != domain.ChallengeOpen {
		return false, nil
	}
	c.Status = status
	now := time.Now().UTC()
	c.SettledAt = &now
	return true, nil
}

func newChallengeHarness() *challengeHarness {
	cfg := testConfig()
	h := &challengeHarness{
		store:   newFakeChallenges(),
		gateway: chain.NewNopGateway(),
	}
	h.svc = service.NewChallengeService(h.store, h.gateway, cfg, discardLogger())
	return h
}

func (h *challengeHarness) seedChallenge(id string, stake int64, maxParticipants int, expiredAgo time.Duration) {
	h.store.challenges[id] = &domain.Challenge{
		ID:              id,
		CreatorWallet:   "0xcreator",
		StakeAmount:     stake,
		MaxParticipants: maxParticipants,
		CreatorSide:     domain.SideYes,
		Status:          domain.ChallengeOpen,
		TxHash:          "ctx-" + id,
		ExpiresAt:       time.Now().UTC().Add(-expiredAgo),
		CreatedAt:       time.Now().UTC().Add(-24 * time.Hour),
	}
}

func TestChallenge_CreatorCannotJoin(t *testing.T) {
	h := newChallengeHarness()
	h.seedChallenge("c1", 100, 4, -time.Hour) // not yet expired

	_, err := h.svc.Join(context.Background(), "c1", "0xCreator", domain.SideNo, "jtx-1")
	if !errors.Is(err, domain.ErrSelfJoin) {
		t.Errorf("err = %v, want ErrSelfJoin", err)
	}
}

func TestChallenge_ParticipantCap(t *testing.T) {
	h := newChallengeHarness()
	h.seedChallenge("c1", 100, 1, -time.Hour)

	if _, err := h.svc.Join(context.Background(), "c1", "0xalice", domain.SideNo, "jtx-1"); err != nil {
		t.Fatalf("first join: %v", err)
	}
	_, err := h.svc.Join(context.Background(), "c1", "0xbob", domain.SideNo, "jtx-2")
	if !errors.Is(err, domain.ErrChallengeFull) {
		t.Errorf("err = %v, want ErrChallengeFull", err)
	}
}

func TestChallenge_AutoRefundExpired(t *testing.T) {
	h := newChallengeHarness()
	h.seedChallenge("c1", 100, 4, time.Minute) // already expired
	_, _ = h.svc.Join(context.Background(), "c1", "0xalice", domain.SideNo, "jtx-1")
	// Joining an expired-but-open challenge still works until the refunder
	// runs; the refund then covers creator + participant.

	if err := h.svc.RefundExpired(context.Background()); err != nil {
		t.Fatalf("RefundExpired: %v", err)
	}

	c, _ := h.store.Get(context.Background(), "c1")
	if c.Status != domain.ChallengeExpiredRefunded {
		t.Errorf("status = %s, want expired_refunded", c.Status)
	}
	if len(h.gateway.Transfers) != 2 {
		t.Errorf("transfers = %d, want 2 (creator + 1 participant)", len(h.gateway.Transfers))
	}
	for _, tr := range h.gateway.Transfers {
		if tr.Amount.IntPart() != 100 {
			t.Errorf("refund amount = %s, want 100", tr.Amount)
		}
	}
}

func TestChallenge_SettleSplitsPot(t *testing.T) {
	h := newChallengeHarness()
	h.seedChallenge("c1", 100, 4, -time.Hour)
	_, _ = h.svc.Join(context.Background(), "c1", "0xalice", domain.SideYes, "jtx-1")
	_, _ = h.svc.Join(context.Background(), "c1", "0xbob", domain.SideNo, "jtx-2")

	// Pot = 3 × 100. Winners on yes: creator + alice → 150 each.
	if err := h.svc.Settle(context.Background(), "c1", "0xcreator", domain.SideYes); err != nil {
		t.Fatalf("Settle: %v", err)
	}

	c, _ := h.store.Get(context.Background(), "c1")
	if c.Status != domain.ChallengeSettled {
		t.Errorf("status = %s, want settled", c.Status)
	}
	if len(h.gateway.Transfers) != 2 {
		t.Fatalf("transfers = %d, want 2", len(h.gateway.Transfers))
	}
	for _, tr := range h.gateway.Transfers {
		if tr.Amount.IntPart() != 150 {
			t.Errorf("winner share = %s, want 150", tr.Amount)
		}
	}
}

func TestChallenge_OnlyCreatorSettles(t *testing.T) {
	h := newChallengeHarness()
	h.seedChallenge("c1", 100, 4, -time.Hour)

	err := h.svc.Settle(context.Background(), "c1", "0xalice", domain.SideYes)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}
