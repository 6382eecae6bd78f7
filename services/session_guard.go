package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"duel-reward-system/models"
	"duel-reward-system/storage"
)

// RejectionReason identifies which eligibility check refused a play attempt.
type RejectionReason string

const (
	RejectNotRegistered  RejectionReason = "not_registered"
	RejectBlocked        RejectionReason = "blocked"
	RejectUnauthorized   RejectionReason = "unauthorized"
	RejectQuotaExhausted RejectionReason = "quota_exhausted"
)

// Rejection is an expected refusal of a play attempt. It is carried as an
// error for plumbing convenience but is not a failure: no state was mutated
// and callers surface it as a normal user message, never as an error log.
type Rejection struct {
	Reason RejectionReason
}

func (r *Rejection) Error() string {
	return "play rejected: " + string(r.Reason)
}

// AsRejection unwraps an eligibility rejection from a Play error.
func AsRejection(err error) (RejectionReason, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

// PlayResult is the outcome of one completed duel, ready for presentation.
type PlayResult struct {
	PlayerRoll  int
	BotRoll     int
	Outcome     models.DuelOutcome
	PointDelta  int
	TotalPoints int64
}

// SessionGuard orchestrates one play attempt: eligibility checks, dice
// rolls, the single atomic account mutation, the history append and the
// downstream referral evaluation.
type SessionGuard struct {
	store     storage.Store
	ledger    *InviteRewardLedger
	messenger Messenger
	rollDelay time.Duration
}

// NewSessionGuard wires the play path. rollDelay paces the two dice sends
// to let the platform animation finish; it has no correctness role and is
// applied only after eligibility has passed.
func NewSessionGuard(store storage.Store, ledger *InviteRewardLedger, messenger Messenger, rollDelay time.Duration) *SessionGuard {
	return &SessionGuard{
		store:     store,
		ledger:    ledger,
		messenger: messenger,
		rollDelay: rollDelay,
	}
}

// Play runs one duel for userID in chatID. When the player threw their own
// dice the platform value arrives in playerRoll; otherwise the guard rolls
// on their behalf. Rejections come back as *Rejection; anything else is a
// real failure. Only the happy path mutates state, with exactly one account
// write.
func (g *SessionGuard) Play(userID, chatID int64, playerRoll *int) (*PlayResult, error) {
	acc, err := g.store.Account(userID)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return nil, &Rejection{Reason: RejectNotRegistered}
	}
	if err != nil {
		return nil, err
	}
	if acc.Blocked {
		return nil, &Rejection{Reason: RejectBlocked}
	}
	if !acc.Authorized() {
		return nil, &Rejection{Reason: RejectUnauthorized}
	}
	if acc.Plays >= DailyPlayQuota {
		return nil, &Rejection{Reason: RejectQuotaExhausted}
	}

	var pRoll int
	if playerRoll != nil {
		pRoll = *playerRoll
	} else {
		pRoll, err = g.messenger.SendDice(chatID)
		if err != nil {
			return nil, fmt.Errorf("failed to roll player dice: %w", err)
		}
		g.pace()
	}

	bRoll, err := g.messenger.SendDice(chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to roll bot dice: %w", err)
	}
	g.pace()

	outcome, delta := ResolveDuel(pRoll, bRoll)

	now := time.Now()
	total, err := g.store.ApplyPlayResult(userID, delta, DailyPlayQuota, now)
	if errors.Is(err, storage.ErrQuotaExhausted) {
		// Lost a race against another play by the same user.
		return nil, &Rejection{Reason: RejectQuotaExhausted}
	}
	if errors.Is(err, storage.ErrAccountNotFound) {
		return nil, &Rejection{Reason: RejectNotRegistered}
	}
	if err != nil {
		return nil, err
	}

	// The play is committed. Neither the audit append nor the referral
	// evaluation may unwind it.
	entry := &models.GameHistoryEntry{
		UserID:     userID,
		PlayerRoll: pRoll,
		BotRoll:    bRoll,
		Outcome:    outcome,
		PointDelta: delta,
		PlayedAt:   now,
	}
	if err := g.store.AppendHistory(entry); err != nil {
		log.Printf("failed to append game history for user %d: %v", userID, err)
	}

	if g.ledger != nil {
		if _, err := g.ledger.Evaluate(userID); err != nil {
			log.Printf("invite reward evaluation failed for user %d: %v", userID, err)
		}
	}

	return &PlayResult{
		PlayerRoll:  pRoll,
		BotRoll:     bRoll,
		Outcome:     outcome,
		PointDelta:  delta,
		TotalPoints: total,
	}, nil
}

func (g *SessionGuard) pace() {
	if g.rollDelay > 0 {
		time.Sleep(g.rollDelay)
	}
}
