package domain

// Stable error codes surfaced in API responses. Clients switch on these; the
// strings never change.
const (
	// Input validation
	CodeMissingEventID        = "MISSING_EVENT_ID"
	CodeInvalidEvent          = "INVALID_EVENT"
	CodeInvalidTeams          = "INVALID_TEAMS"
	CodeInvalidParlayEvent    = "INVALID_PARLAY_EVENT"
	CodeDuplicateEventParlay  = "DUPLICATE_EVENT_IN_PARLAY"
	CodeMaxStakeExceeded      = "MAX_STAKE_EXCEEDED"
	CodeSuiBettingPaused      = "SUI_BETTING_PAUSED"
	CodeFreeBetAlreadyUsed    = "FREE_BET_ALREADY_USED"

	// Policy / anti-exploit
	CodeWalletBlocked      = "WALLET_BLOCKED"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeBetCooldown        = "BET_COOLDOWN"
	CodeEventBetLimit      = "EVENT_BET_LIMIT"
	CodeDuplicateBet       = "DUPLICATE_BET"
	CodeSuspiciousOdds     = "SUSPICIOUS_ODDS_DETECTED"

	// Event freshness
	CodeEventNotFound        = "EVENT_NOT_FOUND"
	CodeStaleEventData       = "STALE_EVENT_DATA"
	CodeEventStatusUncertain = "EVENT_STATUS_UNCERTAIN"
	CodeUnverifiableTime     = "UNVERIFIABLE_MATCH_TIME"
	CodeMatchCutoff          = "MATCH_CUTOFF"
	CodeMatchStarted         = "MATCH_STARTED"
	CodeMarketClosedLive     = "MARKET_CLOSED_LIVE"
	CodeMarketClosedHalf     = "MARKET_CLOSED_HALF_TIME"

	// Limits
	CodeSelfExcluded   = "SELF_EXCLUDED"
	CodeDailyLimit     = "DAILY_LIMIT_EXCEEDED"
	CodeWeeklyLimit    = "WEEKLY_LIMIT_EXCEEDED"
	CodeMonthlyLimit   = "MONTHLY_LIMIT_EXCEEDED"
)
