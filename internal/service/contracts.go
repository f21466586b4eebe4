// Package service implements the bet lifecycle engine: admission, settlement,
// social resolvers, revenue distribution, staking accrual, and user flows.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/domain"
	"github.com/wurlus/suibets/internal/registry"
	"github.com/wurlus/suibets/internal/sports"
)

// The services depend on narrow store interfaces rather than the concrete
// repositories, so the engine can be exercised against in-memory fakes. The
// repository package implements all of them.

// BetStore is the bet persistence the admission pipeline and settlement
// worker need. UpdateStatusIf is the idempotence primitive: it reports
// whether a row actually changed.
type BetStore interface {
	Create(ctx context.Context, b *domain.Bet) error
	GetByID(ctx context.Context, id string) (*domain.Bet, error)
	GetByWallet(ctx context.Context, wallet string, status domain.BetStatus) ([]*domain.Bet, error)
	CountWalletBetsSince(ctx context.Context, wallet string, since time.Time) (int, error)
	LastBetAt(ctx context.Context, wallet string) (time.Time, error)
	CountWalletEventBets(ctx context.Context, wallet, eventID string) (int, error)
	HasOpenDuplicate(ctx context.Context, wallet, eventID, marketID, outcomeID string) (bool, error)
	HasUsedFreeBet(ctx context.Context, wallet string) (bool, error)
	SelectOpenBets(ctx context.Context) ([]*domain.Bet, error)
	SelectOpenBetsByEvent(ctx context.Context, eventID string) ([]*domain.Bet, error)
	UpdateStatusIf(ctx context.Context, id string, from []domain.BetStatus, to domain.BetStatus, payout *decimal.Decimal) (bool, error)
	MarkPaidOut(ctx context.Context, id, settlementTx string) (bool, error)
	RevertStatus(ctx context.Context, id string, from, to domain.BetStatus) error
	SumOpenPayoutByCurrency(ctx context.Context) (map[domain.Currency]decimal.Decimal, error)
	SelectSettledInWindow(ctx context.Context, cutoff, from, to time.Time) ([]*domain.Bet, error)
	CreateParlay(ctx context.Context, p *domain.Parlay, legs []*domain.Bet) error
	GetParlay(ctx context.Context, id string) (*domain.Parlay, error)
}

// UserStore is the user/limits/referral persistence the pipeline needs.
type UserStore interface {
	GetByWallet(ctx context.Context, wallet string) (*domain.User, error)
	EnsureUser(ctx context.Context, wallet string, welcomeBonus int64) (*domain.User, bool, error)
	CreditBalance(ctx context.Context, wallet string, amount decimal.Decimal, currency domain.Currency) error
	DebitBalance(ctx context.Context, wallet string, amount decimal.Decimal, currency domain.Currency) error
	ConsumeFreeBet(ctx context.Context, wallet string, stake int64) error
	ConsumeBonus(ctx context.Context, wallet string, amount decimal.Decimal) (decimal.Decimal, error)
	AddLoyaltyAndVolume(ctx context.Context, wallet string, points, usd decimal.Decimal) error
	KnownWallets(ctx context.Context) ([]string, error)
	ConsumeTxHash(ctx context.Context, txHash, purpose string) error
	CreateReferral(ctx context.Context, referrer, referred string) error
	PendingReferralFor(ctx context.Context, referred string) (*domain.Referral, error)
	MarkReferralRewarded(ctx context.Context, id string) (bool, error)
	GetOrCreateSalt(ctx context.Context, issuer, audience, subject, newSalt string) (string, error)
	GetLimits(ctx context.Context, wallet string) (*domain.UserLimits, error)
	UpsertLimits(ctx context.Context, l *domain.UserLimits) error
}

// EventStore is the settled-event persistence.
type EventStore interface {
	Insert(ctx context.Context, e *domain.SettledEvent) (bool, error)
	Exists(ctx context.Context, eventID string) (bool, error)
	ListSince(ctx context.Context, since time.Time) ([]*domain.SettledEvent, error)
}

// SocialStore is the prediction persistence.
type SocialStore interface {
	CreatePrediction(ctx context.Context, p *domain.Prediction) error
	GetPrediction(ctx context.Context, id string) (*domain.Prediction, error)
	ListPredictions(ctx context.Context, status domain.PredictionStatus) ([]*domain.Prediction, error)
	ExpiredActive(ctx context.Context, now time.Time) ([]*domain.Prediction, error)
	InsertBet(ctx context.Context, b *domain.PredictionBet) error
	BetsFor(ctx context.Context, predictionID string) ([]*domain.PredictionBet, error)
	FinishPrediction(ctx context.Context, id string, status domain.PredictionStatus, outcome string) (bool, error)
}

// ChallengeStore is the challenge persistence.
type ChallengeStore interface {
	Create(ctx context.Context, c *domain.Challenge) error
	Get(ctx context.Context, id string) (*domain.Challenge, error)
	List(ctx context.Context, status domain.ChallengeStatus) ([]*domain.Challenge, error)
	ExpiredOpen(ctx context.Context, now time.Time) ([]*domain.Challenge, error)
	AddParticipant(ctx context.Context, p *domain.ChallengeParticipant) error
	Participants(ctx context.Context, challengeID string) ([]*domain.ChallengeParticipant, error)
	Finish(ctx context.Context, id string, status domain.ChallengeStatus) (bool, error)
}

// StakeStore is the staking persistence.
type StakeStore interface {
	Create(ctx context.Context, s *domain.Stake) error
	Get(ctx context.Context, id string) (*domain.Stake, error)
	ByWallet(ctx context.Context, wallet string) ([]*domain.Stake, error)
	ListActive(ctx context.Context) ([]*domain.Stake, error)
	AdvanceReward(ctx context.Context, id string, target int64) error
	Deactivate(ctx context.Context, id string, finalReward int64, now time.Time) (bool, error)
	ResetReward(ctx context.Context, id string, now time.Time) (bool, error)
}

// ClaimStore is the revenue-claim persistence.
type ClaimStore interface {
	InsertClaim(ctx context.Context, c *domain.RevenueClaim) error
	UpdateClaimHashes(ctx context.Context, id string, txSUI, txSBETS *string) error
	GetClaim(ctx context.Context, wallet string, weekStart time.Time) (*domain.RevenueClaim, error)
	ClaimsForWeek(ctx context.Context, weekStart time.Time) ([]*domain.RevenueClaim, error)
}

// EventLookup is the slice of the registry the admission pipeline consumes.
type EventLookup interface {
	Lookup(eventID string) registry.LookupResult
	LiveFresh(age time.Duration) bool
	UpcomingFresh(age time.Duration) bool
}

// ResultsProvider is the slice of the premium provider the settlement worker
// consumes.
type ResultsProvider interface {
	Results(ctx context.Context, day time.Time) ([]sports.RawEvent, error)
}
