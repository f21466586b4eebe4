package service

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wurlus/suibets/internal/domain"
)

// SettleOutcome is the result of applying the market rules to one bet.
type SettleOutcome struct {
	Status      domain.BetStatus
	PayoutGross decimal.Decimal // stake × odds for a win, zero otherwise
}

// SettleOne applies the market-specific settlement rules to a bet against a
// finished event. Pure function: no I/O, no clock. Ambiguous or unknown
// markets void the bet so the stake is never silently lost to a rules gap.
func SettleOne(bet *domain.Bet, result *domain.EventResult) SettleOutcome {
	won, decided := decideMarket(bet, result)
	if !decided {
		return SettleOutcome{Status: domain.BetStatusVoid, PayoutGross: decimal.Zero}
	}
	if won {
		return SettleOutcome{Status: domain.BetStatusWon, PayoutGross: bet.PotentialPayout}
	}
	return SettleOutcome{Status: domain.BetStatusLost, PayoutGross: decimal.Zero}
}

// decideMarket returns (won, decided). decided=false voids the bet.
func decideMarket(bet *domain.Bet, result *domain.EventResult) (bool, bool) {
	market := strings.ToLower(bet.MarketID)

	switch {
	case strings.HasPrefix(market, "first_half"):
		return decideFirstHalf(bet, result, market)

	case domain.IsMatchWinnerMarket(market):
		side := predictedSide(bet.OutcomeID, bet.Prediction, result.HomeTeam, result.AwayTeam)
		if side == "" {
			return false, false
		}
		return side == result.WinnerLabel(), true

	case strings.Contains(market, "over_under") || strings.Contains(market, "total"):
		return decideOverUnder(bet.OutcomeID, bet.MarketID, result.TotalGoals())

	case strings.Contains(market, "both_teams_score") || strings.Contains(market, "btts"):
		outcome := strings.ToLower(bet.OutcomeID)
		if outcome != "yes" && outcome != "no" {
			return false, false
		}
		return (outcome == "yes") == result.BothScored(), true

	case strings.Contains(market, "double_chance"):
		return decideDoubleChance(bet.OutcomeID, result.WinnerLabel())

	case strings.Contains(market, "handicap"):
		return decideHandicap(bet.OutcomeID, result)
	}

	return false, false
}

// decideFirstHalf settles first_half_winner style markets on the half-time
// score. Voids when the provider never reported first-half scores.
func decideFirstHalf(bet *domain.Bet, result *domain.EventResult, market string) (bool, bool) {
	if !result.HasFirstHalf {
		return false, false
	}
	half := &domain.EventResult{
		HomeTeam:  result.HomeTeam,
		AwayTeam:  result.AwayTeam,
		HomeScore: result.FirstHalfHome,
		AwayScore: result.FirstHalfAway,
	}
	switch {
	case strings.Contains(market, "winner") || strings.Contains(market, "result"):
		side := predictedSide(bet.OutcomeID, bet.Prediction, half.HomeTeam, half.AwayTeam)
		if side == "" {
			return false, false
		}
		return side == half.WinnerLabel(), true
	case strings.Contains(market, "over_under") || strings.Contains(market, "total"):
		return decideOverUnder(bet.OutcomeID, bet.MarketID, half.TotalGoals())
	}
	return false, false
}

// decideOverUnder compares total goals against the line parsed from the
// outcome or market id. A total exactly on an integral line pushes → void.
func decideOverUnder(outcomeID, marketID string, total int) (bool, bool) {
	line, ok := parseLine(outcomeID)
	if !ok {
		line, ok = parseLine(marketID)
	}
	if !ok {
		return false, false
	}

	totalD := decimal.NewFromInt(int64(total))
	if totalD.Equal(line) {
		return false, false // push
	}

	outcome := strings.ToLower(outcomeID)
	over := strings.Contains(outcome, "over")
	under := strings.Contains(outcome, "under")
	if !over && !under {
		return false, false
	}
	return over == totalD.GreaterThan(line), true
}

// decideDoubleChance settles 1X / 12 / X2 outcomes.
func decideDoubleChance(outcomeID, winner string) (bool, bool) {
	var covered []string
	switch strings.ToLower(strings.TrimSpace(outcomeID)) {
	case "1x", "home_draw", "home_or_draw":
		covered = []string{"home", "draw"}
	case "12", "home_away", "home_or_away":
		covered = []string{"home", "away"}
	case "x2", "draw_away", "draw_or_away":
		covered = []string{"draw", "away"}
	default:
		return false, false
	}
	for _, c := range covered {
		if c == winner {
			return true, true
		}
	}
	return false, true
}

// decideHandicap applies a goal handicap like "home_-1.5" or "away_+2" to the
// final score. An adjusted draw pushes → void.
func decideHandicap(outcomeID string, result *domain.EventResult) (bool, bool) {
	outcome := strings.ToLower(strings.TrimSpace(outcomeID))
	var side string
	switch {
	case strings.HasPrefix(outcome, "home"):
		side = "home"
	case strings.HasPrefix(outcome, "away"):
		side = "away"
	default:
		return false, false
	}

	handicap, ok := parseLine(outcome)
	if !ok {
		return false, false
	}
	if strings.Contains(outcome, "-") {
		handicap = handicap.Neg()
	}

	home := decimal.NewFromInt(int64(result.HomeScore))
	away := decimal.NewFromInt(int64(result.AwayScore))
	if side == "home" {
		home = home.Add(handicap)
	} else {
		away = away.Add(handicap)
	}

	switch home.Cmp(away) {
	case 0:
		return false, false // push
	case 1:
		return side == "home", true
	default:
		return side == "away", true
	}
}

// parseLine extracts the last numeric token from an id like
// "over_under_2.5" or "home_-1.5".
func parseLine(id string) (decimal.Decimal, bool) {
	tokens := strings.FieldsFunc(strings.ToLower(id), func(r rune) bool {
		return r == '_' || r == ' '
	})
	for i := len(tokens) - 1; i >= 0; i-- {
		tok := strings.TrimPrefix(strings.TrimPrefix(tokens[i], "+"), "-")
		if tok == "" {
			continue
		}
		if _, err := strconv.ParseFloat(tok, 64); err == nil {
			d, derr := decimal.NewFromString(tok)
			if derr != nil {
				return decimal.Zero, false
			}
			return d, true
		}
	}
	return decimal.Zero, false
}
