package services

import "duel-reward-system/models"

// Point values per duel outcome and the referral bonus (tunable in one place).
const (
	WinPoints  = 10
	LosePoints = -5
	DrawPoints = 0

	// ReferralBonusPoints is paid to an inviter once per invited user.
	ReferralBonusPoints = 10

	// DailyPlayQuota caps completed duels per account per day.
	DailyPlayQuota = 10
)

// ResolveDuel compares the player's roll against the bot's and returns the
// outcome with its point delta. Pure and deterministic: no state, no clock,
// no randomness.
func ResolveDuel(playerRoll, botRoll int) (models.DuelOutcome, int) {
	switch {
	case playerRoll > botRoll:
		return models.OutcomeWin, WinPoints
	case playerRoll < botRoll:
		return models.OutcomeLose, LosePoints
	default:
		return models.OutcomeDraw, DrawPoints
	}
}
