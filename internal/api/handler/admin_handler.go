package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wurlus/suibets/internal/config"
	"github.com/wurlus/suibets/internal/service"
)

// AdminHandler serves the operator surface: login, the runtime pause flag,
// on-demand settlement, reconciliation, and the wallet blocklist.
type AdminHandler struct {
	sessions   *service.AdminSessions
	settlement *service.SettlementService
	admission  *service.AdmissionService
	cfg        *config.Config
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(sessions *service.AdminSessions, settlement *service.SettlementService, admission *service.AdmissionService, cfg *config.Config) *AdminHandler {
	return &AdminHandler{sessions: sessions, settlement: settlement, admission: admission, cfg: cfg}
}

// Login godoc
// POST /api/admin/login
// Body: {"password":"…"}
func (h *AdminHandler) Login(c *gin.Context) {
	var body struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	token, err := h.sessions.Login(body.Password)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid password")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"token": token})
}

// SetPause godoc
// POST /api/admin/pause [admin]
// Body: {"paused":true} — blocks SUI bet admission; SBETS stays open.
func (h *AdminHandler) SetPause(c *gin.Context) {
	var body struct {
		Paused bool `json:"paused"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	h.cfg.SetSuiBettingPaused(body.Paused)
	respondSuccess(c, http.StatusOK, gin.H{"suiBettingPaused": h.cfg.SuiBettingPaused()})
}

// RunSettlement godoc
// POST /api/admin/settlement/run [admin] — one on-demand settlement cycle.
func (h *AdminHandler) RunSettlement(c *gin.Context) {
	if err := h.settlement.RunCycle(c.Request.Context()); err != nil {
		respondError(c, http.StatusServiceUnavailable, "UPSTREAM", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"ran": true})
}

// Reconcile godoc
// GET /api/admin/reconcile [admin]
func (h *AdminHandler) Reconcile(c *gin.Context) {
	report, err := h.settlement.Reconcile(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "UPSTREAM", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, report)
}

// Revenue godoc
// GET /api/admin/revenue [admin] — in-process accumulated revenue view.
func (h *AdminHandler) Revenue(c *gin.Context) {
	respondSuccess(c, http.StatusOK, h.settlement.RevenueSinceBoot())
}

// BlockWallet godoc
// POST /api/admin/block [admin]
// Body: {"wallet":"0x…","blocked":true}
func (h *AdminHandler) BlockWallet(c *gin.Context) {
	var body struct {
		Wallet  string `json:"wallet" binding:"required"`
		Blocked bool   `json:"blocked"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}
	if body.Blocked {
		h.admission.BlockWallet(body.Wallet)
	} else {
		h.admission.UnblockWallet(body.Wallet)
	}
	respondSuccess(c, http.StatusOK, gin.H{"wallet": body.Wallet, "blocked": body.Blocked})
}
