package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wurlus/suibets/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Standard response helpers
// ──────────────────────────────────────────────────────────────────────────────

// respondSuccess writes {"success": true, "data": data} with the given status.
func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes {"success": false, "error": msg, "code": code}.
func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

// respondDomainError maps domain errors onto the status-code policy: pipeline
// rejections with their own status and stable code, 404 for missing
// entities, 409 for a reused tx hash or an operation already in progress,
// 400 for other state conflicts, 500 otherwise.
func respondDomainError(c *gin.Context, err error) {
	if rej, ok := domain.AsRejection(err); ok {
		respondError(c, rej.Status, rej.Code, rej.Message)
		return
	}
	switch {
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrDuplicateTx):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"success":   false,
			"duplicate": true,
			"error":     err.Error(),
		})
	case domain.IsConflict(err):
		respondError(c, http.StatusBadRequest, "CONFLICT", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		respondError(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		respondError(c, http.StatusBadRequest, "INSUFFICIENT_BALANCE", err.Error())
	case errors.Is(err, domain.ErrStakeLocked):
		respondError(c, http.StatusBadRequest, "STAKE_LOCKED", err.Error())
	case errors.Is(err, domain.ErrClaimTooSmall):
		respondError(c, http.StatusBadRequest, "CLAIM_TOO_SMALL", "amount too small")
	case errors.Is(err, domain.ErrTxUnconfirmed):
		respondError(c, http.StatusBadRequest, "TX_UNCONFIRMED", err.Error())
	case errors.Is(err, domain.ErrGuardHeld):
		respondError(c, http.StatusConflict, "IN_PROGRESS", err.Error())
	case errors.Is(err, domain.ErrSelfJoin):
		respondError(c, http.StatusBadRequest, "SELF_JOIN", err.Error())
	case errors.Is(err, domain.ErrChallengeFull):
		respondError(c, http.StatusBadRequest, "CHALLENGE_FULL", err.Error())
	case errors.Is(err, domain.ErrSettlementReverted):
		respondError(c, http.StatusInternalServerError, "SETTLEMENT_REVERTED", "settlement reverted")
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL", "unexpected error")
	}
}
