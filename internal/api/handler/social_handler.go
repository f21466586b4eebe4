package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wurlus/suibets/internal/domain"
	"github.com/wurlus/suibets/internal/service"
)

// SocialHandler serves the peer prediction-market and challenge endpoints.
type SocialHandler struct {
	social     *service.SocialService
	challenges *service.ChallengeService
}

// NewSocialHandler creates a SocialHandler.
func NewSocialHandler(social *service.SocialService, challenges *service.ChallengeService) *SocialHandler {
	return &SocialHandler{social: social, challenges: challenges}
}

// ──────────────────────────────────────────────────────────────────────────────
// Predictions
// ──────────────────────────────────────────────────────────────────────────────

// ListPredictions godoc
// GET /api/social/predictions?status=active
func (h *SocialHandler) ListPredictions(c *gin.Context) {
	ps, err := h.social.List(c.Request.Context(), domain.PredictionStatus(c.Query("status")))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, ps)
}

// CreatePrediction godoc
// POST /api/social/predictions
func (h *SocialHandler) CreatePrediction(c *gin.Context) {
	var body struct {
		Wallet      string    `json:"wallet" binding:"required"`
		Title       string    `json:"title" binding:"required"`
		Description string    `json:"description"`
		Category    string    `json:"category"`
		EndDate     time.Time `json:"endDate" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	p, err := h.social.CreatePrediction(c.Request.Context(),
		body.Wallet, body.Title, body.Description, body.Category, body.EndDate)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, p)
}

// BetOnPrediction godoc
// POST /api/social/predictions/:id/bet
func (h *SocialHandler) BetOnPrediction(c *gin.Context) {
	var body struct {
		Wallet string `json:"wallet" binding:"required"`
		Side   string `json:"side" binding:"required"`
		Amount int64  `json:"amount" binding:"required"`
		TxID   string `json:"txId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	bet, err := h.social.PlaceBet(c.Request.Context(), c.Param("id"),
		body.Wallet, domain.PredictionSide(body.Side), body.Amount, body.TxID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, bet)
}

// ResolvePrediction godoc
// POST /api/social/predictions/:id/resolve [admin]
func (h *SocialHandler) ResolvePrediction(c *gin.Context) {
	if err := h.social.Resolve(c.Request.Context(), c.Param("id")); err != nil {
		respondDomainError(c, err)
		return
	}
	p, err := h.social.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, p)
}

// ──────────────────────────────────────────────────────────────────────────────
// Challenges
// ──────────────────────────────────────────────────────────────────────────────

// ListChallenges godoc
// GET /api/social/challenges?status=open
func (h *SocialHandler) ListChallenges(c *gin.Context) {
	cs, err := h.challenges.List(c.Request.Context(), domain.ChallengeStatus(c.Query("status")))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, cs)
}

// CreateChallenge godoc
// POST /api/social/challenges
func (h *SocialHandler) CreateChallenge(c *gin.Context) {
	var body struct {
		Wallet          string    `json:"wallet" binding:"required"`
		Title           string    `json:"title" binding:"required"`
		Description     string    `json:"description"`
		StakeAmount     int64     `json:"stakeAmount" binding:"required"`
		MaxParticipants int       `json:"maxParticipants" binding:"required"`
		Side            string    `json:"side" binding:"required"`
		TxHash          string    `json:"txHash" binding:"required"`
		ExpiresAt       time.Time `json:"expiresAt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	ch, err := h.challenges.Create(c.Request.Context(), body.Wallet, body.Title,
		body.Description, body.StakeAmount, body.MaxParticipants,
		domain.PredictionSide(body.Side), body.TxHash, body.ExpiresAt)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, ch)
}

// JoinChallenge godoc
// POST /api/social/challenges/:id/join
func (h *SocialHandler) JoinChallenge(c *gin.Context) {
	var body struct {
		Wallet string `json:"wallet" binding:"required"`
		Side   string `json:"side" binding:"required"`
		TxHash string `json:"txHash" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	p, err := h.challenges.Join(c.Request.Context(), c.Param("id"),
		body.Wallet, domain.PredictionSide(body.Side), body.TxHash)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, p)
}

// SettleChallenge godoc
// POST /api/social/challenges/:id/settle
// Only the creator may settle; the service enforces it.
func (h *SocialHandler) SettleChallenge(c *gin.Context) {
	var body struct {
		Wallet      string `json:"wallet" binding:"required"`
		WinningSide string `json:"winningSide" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	err := h.challenges.Settle(c.Request.Context(), c.Param("id"),
		body.Wallet, domain.PredictionSide(body.WinningSide))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	ch, err := h.challenges.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, ch)
}
