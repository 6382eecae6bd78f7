package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"duel-reward-system/models"
	"duel-reward-system/storage"
)

// GrantStatus is the outcome of one referral-bonus evaluation.
type GrantStatus string

const (
	// GrantAwarded: this evaluation credited the inviter.
	GrantAwarded GrantStatus = "awarded"
	// GrantAlreadyGranted: the pair's bonus was paid earlier (or by a
	// concurrent evaluation that won the claim).
	GrantAlreadyGranted GrantStatus = "already_granted"
	// GrantNotEligible: no inviter, invitee unauthorized, or no play yet.
	GrantNotEligible GrantStatus = "not_eligible"
)

// InviteRewardLedger pays the one-time referral bonus. Evaluate is invoked
// after every completed play and after phone authorization, so it must be
// safe to call redundantly and concurrently: the grant row's unique pair
// constraint plus the conditional claim guarantee at most one credit per
// (inviter, invitee).
type InviteRewardLedger struct {
	store     storage.Store
	messenger Messenger
}

func NewInviteRewardLedger(store storage.Store, messenger Messenger) *InviteRewardLedger {
	return &InviteRewardLedger{store: store, messenger: messenger}
}

// Evaluate checks whether inviteeID's inviter is owed the referral bonus
// and pays it exactly once. Grant-creation conflicts mean another
// evaluation is handling the pair and are not errors.
func (l *InviteRewardLedger) Evaluate(inviteeID int64) (GrantStatus, error) {
	invitee, err := l.store.Account(inviteeID)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return GrantNotEligible, nil
	}
	if err != nil {
		return "", err
	}
	if invitee.InvitedBy == nil || !invitee.Authorized() || invitee.Plays < 1 {
		return GrantNotEligible, nil
	}
	inviterID := *invitee.InvitedBy

	grant, err := l.store.Grant(inviterID, inviteeID)
	if err != nil {
		return "", err
	}
	if grant != nil && grant.Granted {
		return GrantAlreadyGranted, nil
	}

	if grant == nil {
		err := l.store.CreateGrant(&models.InviteRewardGrant{
			InviterID: inviterID,
			InviteeID: inviteeID,
		})
		if err != nil && !errors.Is(err, storage.ErrGrantExists) {
			return "", err
		}
	}

	claimed, err := l.store.ClaimGrant(inviterID, inviteeID, time.Now())
	if err != nil {
		return "", err
	}
	if !claimed {
		return GrantAlreadyGranted, nil
	}

	if err := l.store.AddPoints(inviterID, ReferralBonusPoints); err != nil {
		return "", err
	}

	if l.messenger != nil {
		// Private chat ids equal user ids on the platform.
		err := l.messenger.SendText(inviterID, fmt.Sprintf(
			"🏆 A user you invited has joined the game. +%d points!", ReferralBonusPoints))
		if err != nil {
			log.Printf("failed to notify inviter %d: %v", inviterID, err)
		}
	}

	return GrantAwarded, nil
}
