package models

import "time"

// InviteRewardGrant records the one-time referral bonus for an
// (inviter, invitee) pair. The composite unique index is the authority
// preventing duplicate grants: concurrent evaluators racing to create the
// row get a uniqueness conflict, not a second row.
type InviteRewardGrant struct {
	ID        string     `gorm:"primaryKey;type:uuid" json:"id"`
	InviterID int64      `gorm:"not null;uniqueIndex:idx_grant_pair" json:"inviter_id"`
	InviteeID int64      `gorm:"not null;uniqueIndex:idx_grant_pair" json:"invitee_id"`
	Granted   bool       `gorm:"not null;default:false" json:"granted"`
	GrantedAt *time.Time `json:"granted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
}
