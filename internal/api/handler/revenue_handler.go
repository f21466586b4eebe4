package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wurlus/suibets/internal/domain"
	"github.com/wurlus/suibets/internal/service"
)

// RevenueHandler serves the holder revenue-share endpoints.
type RevenueHandler struct {
	revenue *service.RevenueService
}

// NewRevenueHandler creates a RevenueHandler.
func NewRevenueHandler(revenue *service.RevenueService) *RevenueHandler {
	return &RevenueHandler{revenue: revenue}
}

// Stats godoc
// GET /api/revenue/stats
func (h *RevenueHandler) Stats(c *gin.Context) {
	stats, err := h.revenue.WeekStats(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, stats)
}

// Claimable godoc
// GET /api/revenue/claimable/:wallet
func (h *RevenueHandler) Claimable(c *gin.Context) {
	claimable, err := h.revenue.ClaimableFor(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, claimable)
}

// Claim godoc
// POST /api/revenue/claim
// Body: {"wallet":"0x…"}
// A repeat claim in the same week returns the stored claim with its original
// transaction hashes.
func (h *RevenueHandler) Claim(c *gin.Context) {
	var body struct {
		Wallet string `json:"wallet" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	claim, err := h.revenue.Claim(c.Request.Context(), body.Wallet)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyClaimed) && claim != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"code":    "ALREADY_CLAIMED",
				"error":   err.Error(),
				"claim":   claim,
			})
			return
		}
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, claim)
}
