package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/domain"
	"github.com/wurlus/suibets/internal/service"
)

// BetHandler serves bet validation, placement, listing, settlement, and
// cash-out endpoints.
type BetHandler struct {
	admission  *service.AdmissionService
	settlement *service.SettlementService
	bets       service.BetStore
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(admission *service.AdmissionService, settlement *service.SettlementService, bets service.BetStore) *BetHandler {
	return &BetHandler{admission: admission, settlement: settlement, bets: bets}
}

// Validate godoc
// POST /api/bets/validate
// Body: {"eventId":"fb-1001","isLive":true}
func (h *BetHandler) Validate(c *gin.Context) {
	var body struct {
		EventID string `json:"eventId" binding:"required"`
		IsLive  bool   `json:"isLive"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, domain.CodeMissingEventID, err.Error())
		return
	}
	result, err := h.admission.ValidateBet(body.EventID, body.IsLive)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// placeBetBody is the wire form of a single-bet placement.
type placeBetBody struct {
	Wallet       string  `json:"wallet" binding:"required"`
	EventID      string  `json:"eventId" binding:"required"`
	EventName    string  `json:"eventName"`
	HomeTeam     string  `json:"homeTeam"`
	AwayTeam     string  `json:"awayTeam"`
	MarketID     string  `json:"marketId" binding:"required"`
	OutcomeID    string  `json:"outcomeId" binding:"required"`
	Prediction   string  `json:"prediction"`
	Odds         string  `json:"odds" binding:"required"`
	Stake        string  `json:"stake" binding:"required"`
	Currency     string  `json:"currency" binding:"required"`
	IsLive       bool    `json:"isLive"`
	MatchMinute  *int    `json:"matchMinute"`
	TxHash       *string `json:"txHash"`
	OnChainBetID *string `json:"onChainBetId"`
	UseBonus     bool    `json:"useBonus"`
	UseFreeBet   bool    `json:"useFreeBet"`
}

// Place godoc
// POST /api/bets
func (h *BetHandler) Place(c *gin.Context) {
	var body placeBetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	odds, err := decimal.NewFromString(body.Odds)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", "odds must be a decimal string")
		return
	}
	stake, err := decimal.NewFromString(body.Stake)
	if err != nil || !stake.IsPositive() {
		respondError(c, http.StatusBadRequest, "VALIDATION", "stake must be a positive decimal string")
		return
	}

	bet, err := h.admission.PlaceBet(c.Request.Context(), service.PlaceBetInput{
		Wallet:       body.Wallet,
		EventID:      body.EventID,
		EventName:    body.EventName,
		HomeTeam:     body.HomeTeam,
		AwayTeam:     body.AwayTeam,
		MarketID:     body.MarketID,
		OutcomeID:    body.OutcomeID,
		Prediction:   body.Prediction,
		Odds:         odds,
		Stake:        stake,
		Currency:     domain.Currency(body.Currency),
		IsLive:       body.IsLive,
		MatchMinute:  body.MatchMinute,
		TxHash:       body.TxHash,
		OnChainBetID: body.OnChainBetID,
		UseBonus:     body.UseBonus,
		UseFreeBet:   body.UseFreeBet,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, bet)
}

// parlayBody is the wire form of a parlay placement, shared by the off-chain
// and on-chain endpoints.
type parlayBody struct {
	Wallet       string                   `json:"userId" binding:"required"`
	Selections   []domain.ParlaySelection `json:"selections" binding:"required"`
	BetAmount    string                   `json:"betAmount" binding:"required"`
	FeeCurrency  string                   `json:"feeCurrency" binding:"required"`
	TxHash       *string                  `json:"txHash"`
	OnChainBetID *string                  `json:"onChainBetId"`
}

// PlaceParlay godoc
// POST /api/bets/parlay and POST /api/parlays
func (h *BetHandler) PlaceParlay(c *gin.Context) {
	var body parlayBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	stake, err := decimal.NewFromString(body.BetAmount)
	if err != nil || !stake.IsPositive() {
		respondError(c, http.StatusBadRequest, "VALIDATION", "betAmount must be a positive decimal string")
		return
	}

	parlay, err := h.admission.PlaceParlay(c.Request.Context(), service.PlaceParlayInput{
		Wallet:       body.Wallet,
		Selections:   body.Selections,
		Stake:        stake,
		Currency:     domain.Currency(body.FeeCurrency),
		TxHash:       body.TxHash,
		OnChainBetID: body.OnChainBetID,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, parlay)
}

// List godoc
// GET /api/bets?wallet=0x…&status=pending
func (h *BetHandler) List(c *gin.Context) {
	wallet := c.Query("wallet")
	if wallet == "" {
		wallet = c.Query("userId")
	}
	if wallet == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION", "wallet is required")
		return
	}
	bets, err := h.bets.GetByWallet(c.Request.Context(), wallet, domain.BetStatus(c.Query("status")))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, bets)
}

// Settle godoc
// POST /api/bets/:id/settle [admin]
// Body: {"outcome":"won"}
func (h *BetHandler) Settle(c *gin.Context) {
	var body struct {
		Outcome string `json:"outcome" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	bet, err := h.settlement.AdminSettle(c.Request.Context(), c.Param("id"), domain.BetStatus(body.Outcome))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, bet)
}

// CashOut godoc
// POST /api/bets/:id/cash-out
// Body: {"wallet":"0x…","currentOdds":"1.65","percentageWinning":"0.8"}
func (h *BetHandler) CashOut(c *gin.Context) {
	var body struct {
		Wallet            string `json:"wallet" binding:"required"`
		CurrentOdds       string `json:"currentOdds" binding:"required"`
		PercentageWinning string `json:"percentageWinning" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	odds, err := decimal.NewFromString(body.CurrentOdds)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", "currentOdds must be a decimal string")
		return
	}
	pct, err := decimal.NewFromString(body.PercentageWinning)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", "percentageWinning must be a decimal string")
		return
	}

	bet, err := h.settlement.CashOut(c.Request.Context(), c.Param("id"), body.Wallet, odds, pct)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, bet)
}
