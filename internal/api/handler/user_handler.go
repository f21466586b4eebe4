package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/domain"
	"github.com/wurlus/suibets/internal/service"
)

// UserHandler serves wallet connect, balance, deposit, withdrawal, and
// zkLogin salt endpoints.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Connect godoc
// POST /api/user/connect
// Body: {"wallet":"0x…","referrer":"0x…"}
func (h *UserHandler) Connect(c *gin.Context) {
	var body struct {
		Wallet   string `json:"wallet" binding:"required"`
		Referrer string `json:"referrer"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	u, err := h.users.Connect(c.Request.Context(), body.Wallet, body.Referrer)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, u)
}

// Balance godoc
// GET /api/user/balance?userId=0x…
func (h *UserHandler) Balance(c *gin.Context) {
	wallet := c.Query("userId")
	if wallet == "" {
		wallet = c.Query("wallet")
	}
	if wallet == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION", "userId is required")
		return
	}
	balance, err := h.users.GetBalance(c.Request.Context(), wallet)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, balance)
}

// Deposit godoc
// POST /api/user/deposit
// Body: {"userId":"0x…","amount":"10.5","txHash":"0x…","currency":"SUI"}
func (h *UserHandler) Deposit(c *gin.Context) {
	var body struct {
		Wallet           string `json:"userId" binding:"required"`
		Amount           string `json:"amount" binding:"required"`
		TxHash           string `json:"txHash" binding:"required"`
		Currency         string `json:"currency" binding:"required"`
		SkipVerification bool   `json:"skipVerification"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", "amount must be a decimal string")
		return
	}
	err = h.users.Deposit(c.Request.Context(), body.Wallet, amount,
		body.TxHash, domain.Currency(body.Currency), body.SkipVerification)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"credited": true})
}

// Withdraw godoc
// POST /api/user/withdraw
// Body: {"userId":"0x…","amount":"5","currency":"SUI","executeOnChain":true}
func (h *UserHandler) Withdraw(c *gin.Context) {
	var body struct {
		Wallet         string `json:"userId" binding:"required"`
		Amount         string `json:"amount" binding:"required"`
		Currency       string `json:"currency" binding:"required"`
		ExecuteOnChain bool   `json:"executeOnChain"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", "amount must be a decimal string")
		return
	}
	result, err := h.users.Withdraw(c.Request.Context(), body.Wallet, amount,
		domain.Currency(body.Currency), body.ExecuteOnChain)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, result)
}

// ZkLoginSalt godoc
// POST /api/zklogin/salt
// Body: {"jwt":"eyJ…"}
func (h *UserHandler) ZkLoginSalt(c *gin.Context) {
	var body struct {
		JWT string `json:"jwt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	salt, err := h.users.ZkLoginSalt(c.Request.Context(), body.JWT)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_JWT", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"salt": salt})
}
