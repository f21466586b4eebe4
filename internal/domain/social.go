package domain

import (
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Social predictions
// ──────────────────────────────────────────────────────────────────────────────

// PredictionStatus is the lifecycle state of a peer prediction market.
type PredictionStatus string

const (
	PredictionActive PredictionStatus = "active"

	PredictionResolvedYes        PredictionStatus = "resolved_yes"
	PredictionResolvedNo         PredictionStatus = "resolved_no"
	PredictionResolvedYesPartial PredictionStatus = "resolved_yes_partial"
	PredictionResolvedNoPartial  PredictionStatus = "resolved_no_partial"
	PredictionResolvedYesFailed  PredictionStatus = "resolved_yes_failed"
	PredictionResolvedNoFailed   PredictionStatus = "resolved_no_failed"

	PredictionExpired              PredictionStatus = "expired"
	PredictionExpiredRefunded      PredictionStatus = "expired_refunded"
	PredictionExpiredPartialRefund PredictionStatus = "expired_partial_refund"
	PredictionExpiredRefundFailed  PredictionStatus = "expired_refund_failed"

	PredictionCancelled PredictionStatus = "cancelled"
)

// IsActive returns true while the prediction accepts new bets.
func (s PredictionStatus) IsActive() bool { return s == PredictionActive }

// ResolvedStatus maps a winning side and a payout outcome to the final status.
// ok = every payout succeeded, partial = some succeeded, neither = all failed.
func ResolvedStatus(side PredictionSide, ok, partial bool) PredictionStatus {
	switch {
	case ok && side == SideYes:
		return PredictionResolvedYes
	case ok:
		return PredictionResolvedNo
	case partial && side == SideYes:
		return PredictionResolvedYesPartial
	case partial:
		return PredictionResolvedNoPartial
	case side == SideYes:
		return PredictionResolvedYesFailed
	default:
		return PredictionResolvedNoFailed
	}
}

// RefundedStatus maps a refund outcome to the final expired status.
func RefundedStatus(ok, partial bool) PredictionStatus {
	switch {
	case ok:
		return PredictionExpiredRefunded
	case partial:
		return PredictionExpiredPartialRefund
	default:
		return PredictionExpiredRefundFailed
	}
}

// PredictionSide is a yes/no position.
type PredictionSide string

const (
	SideYes PredictionSide = "yes"
	SideNo  PredictionSide = "no"
)

// IsValid returns true for the two recognised sides.
func (s PredictionSide) IsValid() bool { return s == SideYes || s == SideNo }

// Prediction is a creator-defined yes/no market with an SBETS pool per side.
// Pool totals are monotone-increasing while the prediction is active.
type Prediction struct {
	ID              string           `json:"id"                db:"id"`
	CreatorWallet   string           `json:"creator_wallet"    db:"creator_wallet"`
	Title           string           `json:"title"             db:"title"`
	Description     string           `json:"description"       db:"description"`
	Category        string           `json:"category"          db:"category"`
	EndDate         time.Time        `json:"end_date"          db:"end_date"`
	TotalYesAmount  int64            `json:"total_yes_amount"  db:"total_yes_amount"`
	TotalNoAmount   int64            `json:"total_no_amount"   db:"total_no_amount"`
	Participants    int              `json:"participants"      db:"participants"`
	Status          PredictionStatus `json:"status"            db:"status"`
	ResolvedOutcome *string          `json:"resolved_outcome"  db:"resolved_outcome"`
	ResolvedAt      *time.Time       `json:"resolved_at"       db:"resolved_at"`
	CreatedAt       time.Time        `json:"created_at"        db:"created_at"`
}

// TotalPool returns the combined yes+no pool.
func (p *Prediction) TotalPool() int64 {
	return p.TotalYesAmount + p.TotalNoAmount
}

// WinningSide returns the majority side; yes wins ties.
func (p *Prediction) WinningSide() PredictionSide {
	if p.TotalYesAmount >= p.TotalNoAmount {
		return SideYes
	}
	return SideNo
}

// PredictionBet is one wallet's stake on one side of a prediction.
// TxID is the on-chain transfer; a tx id is admitted at most once system-wide.
type PredictionBet struct {
	ID           string         `json:"id"            db:"id"`
	PredictionID string         `json:"prediction_id" db:"prediction_id"`
	Wallet       string         `json:"wallet"        db:"wallet"`
	Side         PredictionSide `json:"side"          db:"side"`
	Amount       int64          `json:"amount"        db:"amount"`
	TxID         string         `json:"tx_id"         db:"tx_id"`
	PlacedAt     time.Time      `json:"placed_at"     db:"placed_at"`
}

// WinnerShare computes a winner's payout: (amount / winnersTotal) × totalPool,
// floored to whole SBETS.
func WinnerShare(amount, winnersTotal, totalPool int64) int64 {
	if winnersTotal <= 0 {
		return 0
	}
	return amount * totalPool / winnersTotal
}

// ──────────────────────────────────────────────────────────────────────────────
// Challenges
// ──────────────────────────────────────────────────────────────────────────────

// ChallengeStatus is the lifecycle state of a peer challenge.
type ChallengeStatus string

const (
	ChallengeOpen ChallengeStatus = "open"

	ChallengeSettled        ChallengeStatus = "settled"
	ChallengeSettledPartial ChallengeStatus = "settled_partial"
	ChallengeSettledFailed  ChallengeStatus = "settled_failed"

	ChallengeExpiredRefunded      ChallengeStatus = "expired_refunded"
	ChallengeExpiredPartialRefund ChallengeStatus = "expired_partial_refund"
	ChallengeExpiredRefundFailed  ChallengeStatus = "expired_refund_failed"
)

// IsTerminal returns true once the challenge may no longer be written.
func (s ChallengeStatus) IsTerminal() bool { return s != ChallengeOpen }

// SettledChallengeStatus maps a payout outcome to the terminal settled status.
func SettledChallengeStatus(ok, partial bool) ChallengeStatus {
	switch {
	case ok:
		return ChallengeSettled
	case partial:
		return ChallengeSettledPartial
	default:
		return ChallengeSettledFailed
	}
}

// RefundedChallengeStatus maps a refund outcome to the terminal expired status.
func RefundedChallengeStatus(ok, partial bool) ChallengeStatus {
	switch {
	case ok:
		return ChallengeExpiredRefunded
	case partial:
		return ChallengeExpiredPartialRefund
	default:
		return ChallengeExpiredRefundFailed
	}
}

// Challenge is a creator-staked wager other wallets join at the same stake.
type Challenge struct {
	ID                  string          `json:"id"                   db:"id"`
	CreatorWallet       string          `json:"creator_wallet"       db:"creator_wallet"`
	Title               string          `json:"title"                db:"title"`
	Description         string          `json:"description"          db:"description"`
	StakeAmount         int64           `json:"stake_amount"         db:"stake_amount"`
	MaxParticipants     int             `json:"max_participants"     db:"max_participants"`
	CurrentParticipants int             `json:"current_participants" db:"current_participants"`
	CreatorSide         PredictionSide  `json:"creator_side"         db:"creator_side"`
	Status              ChallengeStatus `json:"status"               db:"status"`
	TxHash              string          `json:"tx_hash"              db:"tx_hash"`
	ExpiresAt           time.Time       `json:"expires_at"           db:"expires_at"`
	SettledAt           *time.Time      `json:"settled_at"           db:"settled_at"`
	CreatedAt           time.Time       `json:"created_at"           db:"created_at"`
}

// ChallengeParticipant is one wallet joined to a challenge.
// TxHash is unique system-wide.
type ChallengeParticipant struct {
	ID          string         `json:"id"           db:"id"`
	ChallengeID string         `json:"challenge_id" db:"challenge_id"`
	Wallet      string         `json:"wallet"       db:"wallet"`
	Side        PredictionSide `json:"side"         db:"side"`
	TxHash      string         `json:"tx_hash"      db:"tx_hash"`
	JoinedAt    time.Time      `json:"joined_at"    db:"joined_at"`
}
