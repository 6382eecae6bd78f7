package storage

import (
	"errors"
	"time"

	"duel-reward-system/models"
)

var (
	// ErrAccountNotFound is returned when an operation targets a user id
	// with no account row.
	ErrAccountNotFound = errors.New("account not found")

	// ErrGrantExists is returned by CreateGrant when a row for the
	// (inviter, invitee) pair already exists. Callers treat it as "someone
	// else is handling this grant" and re-read, never as a failure.
	ErrGrantExists = errors.New("invite reward grant already exists")

	// ErrQuotaExhausted is returned by ApplyPlayResult when the conditional
	// update finds the play counter already at the daily cap.
	ErrQuotaExhausted = errors.New("daily play quota exhausted")
)

// AccountStats is the aggregate view shown on the dashboard.
type AccountStats struct {
	TotalUsers      int64 `json:"total_users"`
	AuthorizedUsers int64 `json:"authorized_users"`
	BlockedUsers    int64 `json:"blocked_users"`
	TotalPoints     int64 `json:"total_points"`
}

// Store is the durable-state boundary shared by the game services and the
// dashboard. Implementations: storage/postgres (production) and
// storage/memory (dev backend and test substrate).
type Store interface {
	// Account operations
	Account(userID int64) (*models.Account, error)
	// CreateAccountIfAbsent inserts the account unless one already exists.
	// A self-referencing inviter is silently stored as nil.
	CreateAccountIfAbsent(acc *models.Account) error
	// SetPhoneToken authorizes the account. ErrAccountNotFound if missing.
	SetPhoneToken(userID int64, phone string) error
	// ApplyPlayResult is the single atomic play commit: points += delta,
	// plays += 1, last_play = playedAt, guarded by plays < maxPlays, and
	// returns the resulting point total from the same statement. Callers
	// must never re-read and recompute around it.
	ApplyPlayResult(userID int64, delta int, maxPlays int, playedAt time.Time) (int64, error)
	// ResetAllPlays zeroes every play counter. Idempotent; never touches points.
	ResetAllPlays() error
	// AddPoints adjusts points in place without touching play counters.
	AddPoints(userID int64, delta int64) error
	// SetAccountFields is the dashboard mutator: direct field assignment.
	SetAccountFields(userID int64, points int64, plays int, blocked bool) error
	DeleteAccount(userID int64) error
	// ListAccounts pages accounts, optionally filtered by a keyword matched
	// against username and phone.
	ListAccounts(keyword string, page, perPage int) ([]models.Account, int64, error)
	Stats() (*AccountStats, error)

	// Invite reward grant operations

	// Grant returns the pair's row, or (nil, nil) when none exists yet.
	Grant(inviterID, inviteeID int64) (*models.InviteRewardGrant, error)
	// CreateGrant inserts an ungranted row; ErrGrantExists on a duplicate pair.
	CreateGrant(g *models.InviteRewardGrant) error
	// ClaimGrant flips the pair's row from ungranted to granted, guarded on
	// granted = false. Returns true only for the single caller that wins
	// the flip; every other concurrent or repeated caller gets false.
	ClaimGrant(inviterID, inviteeID int64, at time.Time) (bool, error)

	// Game history operations
	AppendHistory(e *models.GameHistoryEntry) error
	ListHistory(userID *int64, page, perPage int) ([]models.GameHistoryEntry, int64, error)
	// HistoryBetween returns entries with playedAt in [start, end), oldest first.
	HistoryBetween(start, end time.Time) ([]models.GameHistoryEntry, error)

	// Leaderboard views
	TopByPointsAllTime(limit int) ([]models.Account, error)
	// TopByPointsBetween ranks accounts whose last play falls in [start, end).
	TopByPointsBetween(start, end time.Time, limit int) ([]models.Account, error)
}
