// Package api wires the HTTP surface: routes, CORS, rate limits, and the
// admin guard.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wurlus/suibets/internal/api/handler"
	"github.com/wurlus/suibets/internal/api/middleware"
	"github.com/wurlus/suibets/internal/config"
	"github.com/wurlus/suibets/internal/registry"
	"github.com/wurlus/suibets/internal/service"
	"github.com/wurlus/suibets/internal/ws"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	Admission  *service.AdmissionService
	Settlement *service.SettlementService
	Social     *service.SocialService
	Challenges *service.ChallengeService
	Revenue    *service.RevenueService
	Staking    *service.StakingService
	Users      *service.UserService
	Sessions   *service.AdminSessions
	Bets       service.BetStore
	Settled    service.EventStore
	Events     *registry.Registry
	Hub        *ws.Hub
	Cfg        *config.Config
}

// SetupRouter creates and configures the Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	betH := handler.NewBetHandler(deps.Admission, deps.Settlement, deps.Bets)
	eventH := handler.NewEventHandler(deps.Events, deps.Settled)
	userH := handler.NewUserHandler(deps.Users)
	socialH := handler.NewSocialHandler(deps.Social, deps.Challenges)
	stakingH := handler.NewStakingHandler(deps.Staking)
	revenueH := handler.NewRevenueHandler(deps.Revenue)
	adminH := handler.NewAdminHandler(deps.Sessions, deps.Settlement, deps.Admission, deps.Cfg)

	adminMW := middleware.Admin(deps.Sessions)
	betRL := middleware.RateLimit(30)
	authRL := middleware.RateLimit(10)

	api := r.Group("/api")
	{
		// ── Listings (public) ─────────────────────────────────────────────────
		api.GET("/sports", eventH.Sports)
		api.GET("/events", eventH.Events)
		api.GET("/events/results", eventH.Results)

		// ── Bets ──────────────────────────────────────────────────────────────
		bets := api.Group("/bets")
		bets.Use(betRL)
		{
			bets.POST("/validate", betH.Validate)
			bets.POST("", betH.Place)
			bets.POST("/parlay", betH.PlaceParlay)
			bets.GET("", betH.List)
			bets.POST("/:id/settle", adminMW, betH.Settle)
			bets.POST("/:id/cash-out", betH.CashOut)
		}
		api.POST("/parlays", betRL, betH.PlaceParlay)

		// ── User ──────────────────────────────────────────────────────────────
		user := api.Group("/user")
		{
			user.POST("/connect", authRL, userH.Connect)
			user.GET("/balance", userH.Balance)
			user.POST("/deposit", userH.Deposit)
			user.POST("/withdraw", userH.Withdraw)
		}
		api.POST("/zklogin/salt", authRL, userH.ZkLoginSalt)

		// ── Revenue ───────────────────────────────────────────────────────────
		revenue := api.Group("/revenue")
		{
			revenue.GET("/stats", revenueH.Stats)
			revenue.GET("/claimable/:wallet", revenueH.Claimable)
			revenue.POST("/claim", revenueH.Claim)
		}

		// ── Staking ───────────────────────────────────────────────────────────
		staking := api.Group("/staking")
		{
			staking.GET("/info", stakingH.Info)
			staking.POST("/stake", stakingH.Stake)
			staking.POST("/unstake", stakingH.Unstake)
			staking.POST("/claim-rewards", stakingH.ClaimRewards)
		}

		// ── Social ────────────────────────────────────────────────────────────
		social := api.Group("/social")
		{
			social.GET("/predictions", socialH.ListPredictions)
			social.POST("/predictions", socialH.CreatePrediction)
			social.POST("/predictions/:id/bet", socialH.BetOnPrediction)
			social.POST("/predictions/:id/resolve", adminMW, socialH.ResolvePrediction)

			social.GET("/challenges", socialH.ListChallenges)
			social.POST("/challenges", socialH.CreateChallenge)
			social.POST("/challenges/:id/join", socialH.JoinChallenge)
			social.POST("/challenges/:id/settle", socialH.SettleChallenge)
		}

		// ── Admin ─────────────────────────────────────────────────────────────
		admin := api.Group("/admin")
		{
			admin.POST("/login", authRL, adminH.Login)
			admin.POST("/pause", adminMW, adminH.SetPause)
			admin.POST("/settlement/run", adminMW, adminH.RunSettlement)
			admin.GET("/reconcile", adminMW, adminH.Reconcile)
			admin.GET("/revenue", adminMW, adminH.Revenue)
			admin.POST("/block", adminMW, adminH.BlockWallet)
		}
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware sets the CORS headers. In development all origins are
// allowed; in production only the platform origins.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			allowed := map[string]bool{
				"https://suibets.com":     true,
				"https://www.suibets.com": true,
			}
			if allowed[origin] {
				c.Header("Access-Control-Allow-Origin", origin)
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Admin-Password, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
