package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wurlus/suibets/internal/service"
)

// StakingHandler serves the SBETS staking endpoints.
type StakingHandler struct {
	staking *service.StakingService
}

// NewStakingHandler creates a StakingHandler.
func NewStakingHandler(staking *service.StakingService) *StakingHandler {
	return &StakingHandler{staking: staking}
}

// Info godoc
// GET /api/staking/info?wallet=0x…
func (h *StakingHandler) Info(c *gin.Context) {
	wallet := c.Query("wallet")
	if wallet == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION", "wallet is required")
		return
	}
	stakes, err := h.staking.Info(c.Request.Context(), wallet)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, stakes)
}

// Stake godoc
// POST /api/staking/stake
// Body: {"wallet":"0x…","amount":150000,"txHash":"0x…"}
func (h *StakingHandler) Stake(c *gin.Context) {
	var body struct {
		Wallet string `json:"wallet" binding:"required"`
		Amount int64  `json:"amount" binding:"required"`
		TxHash string `json:"txHash" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	stake, err := h.staking.Stake(c.Request.Context(), body.Wallet, body.Amount, body.TxHash)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, stake)
}

// Unstake godoc
// POST /api/staking/unstake
// Body: {"wallet":"0x…","stakeId":"…"}
func (h *StakingHandler) Unstake(c *gin.Context) {
	var body struct {
		Wallet  string `json:"wallet" binding:"required"`
		StakeID string `json:"stakeId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	total, err := h.staking.Unstake(c.Request.Context(), body.Wallet, body.StakeID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"paidOut": total})
}

// ClaimRewards godoc
// POST /api/staking/claim-rewards
// Body: {"wallet":"0x…"}
func (h *StakingHandler) ClaimRewards(c *gin.Context) {
	var body struct {
		Wallet string `json:"wallet" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	total, err := h.staking.ClaimRewards(c.Request.Context(), body.Wallet)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"claimed": total})
}
