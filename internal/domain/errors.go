package domain

import (
	"errors"
	"fmt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

var (
	// ErrUserNotFound is returned when no user matches the given wallet.
	ErrUserNotFound = errors.New("user not found")

	// ErrBetNotFound is returned when no bet matches the given id.
	ErrBetNotFound = errors.New("bet not found")

	// ErrBetAlreadySettled is returned when a conditional status update
	// affected zero rows because the bet had already left its open state.
	ErrBetAlreadySettled = errors.New("bet is already settled")

	// ErrPredictionNotFound is returned when no prediction matches the id.
	ErrPredictionNotFound = errors.New("prediction not found")

	// ErrPredictionNotActive is returned when a bet or resolution targets a
	// prediction that already reached a terminal status.
	ErrPredictionNotActive = errors.New("prediction is not active")

	// ErrChallengeNotFound is returned when no challenge matches the id.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrChallengeNotOpen is returned for writes against a terminal challenge.
	ErrChallengeNotOpen = errors.New("challenge is not open")

	// ErrChallengeFull is returned when the participant cap is reached.
	ErrChallengeFull = errors.New("challenge is full")

	// ErrSelfJoin is returned when a creator tries to join their own challenge.
	ErrSelfJoin = errors.New("creator cannot join own challenge")

	// ErrStakeNotFound is returned when no stake matches the given id.
	ErrStakeNotFound = errors.New("stake not found")

	// ErrStakeLocked is returned for an unstake before the lock expires.
	ErrStakeLocked = errors.New("stake is still locked")

	// ErrStakeInactive is returned when a conditional unstake affected zero
	// rows because the stake was already withdrawn.
	ErrStakeInactive = errors.New("stake is no longer active")

	// ErrDuplicateTx is returned when an on-chain tx hash was already consumed
	// anywhere in the system (deposits, social bets, stakes, challenge joins).
	ErrDuplicateTx = errors.New("transaction hash already used")

	// ErrTxUnconfirmed is returned when chain verification cannot confirm a
	// deposit transaction.
	ErrTxUnconfirmed = errors.New("transaction not confirmed on chain")

	// ErrClaimTooSmall is returned when a revenue claim is below both minimum
	// thresholds.
	ErrClaimTooSmall = errors.New("claim amount too small")

	// ErrAlreadyClaimed is returned for a second revenue claim in the same
	// ISO week; the stored claim carries the original tx hashes.
	ErrAlreadyClaimed = errors.New("revenue already claimed this week")

	// ErrInsufficientBalance is returned when a platform balance cannot cover
	// a withdrawal or bet.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUnauthorized is returned when admin credentials are missing or wrong.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller may not act on the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrSettlementReverted is returned when crediting a winner failed and the
	// bet was restored to its prior status for a later retry.
	ErrSettlementReverted = errors.New("settlement reverted")

	// ErrGuardHeld is returned when another task currently holds the
	// single-flight guard for the same key.
	ErrGuardHeld = errors.New("operation already in progress")
)

// notFoundErrors collects every "entity not found" sentinel so IsNotFound can
// stay in sync automatically.
var notFoundErrors = []error{
	ErrUserNotFound,
	ErrBetNotFound,
	ErrPredictionNotFound,
	ErrChallengeNotFound,
	ErrStakeNotFound,
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors. Used to translate domain errors to HTTP 404.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict returns true for errors representing a state conflict that an
// idempotent retry should treat as success-with-no-effect.
func IsConflict(err error) bool {
	conflictErrors := []error{
		ErrBetAlreadySettled,
		ErrDuplicateTx,
		ErrAlreadyClaimed,
		ErrStakeInactive,
		ErrPredictionNotActive,
		ErrChallengeNotOpen,
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ──────────────────────────────────────────────────────────────────────────────
// Rejection — admission pipeline errors with stable codes
// ──────────────────────────────────────────────────────────────────────────────

// Rejection is the error the bet admission pipeline returns. Code is one of
// the stable strings from codes.go; Status is the HTTP status the API layer
// surfaces it with.
type Rejection struct {
	Code    string
	Status  int
	Message string
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

// Reject builds a Rejection.
func Reject(code string, status int, message string) *Rejection {
	return &Rejection{Code: code, Status: status, Message: message}
}

// AsRejection unwraps err to a *Rejection if it carries one.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
