package models

import "time"

// Account is the per-player record keyed by the chat platform user id.
// Phone presence doubles as the authorization flag: a player may not duel
// until they have shared a phone number.
type Account struct {
	UserID    int64      `gorm:"primaryKey" json:"user_id"`
	FirstName *string    `json:"first_name,omitempty"`
	LastName  *string    `json:"last_name,omitempty"`
	Username  *string    `gorm:"index" json:"username,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	Points    int64      `gorm:"not null;default:0" json:"points"`
	Plays     int        `gorm:"not null;default:0" json:"plays"`
	Blocked   bool       `gorm:"not null;default:false" json:"blocked"`
	InvitedBy *int64     `gorm:"index" json:"invited_by,omitempty"` // set once at creation, never reassigned
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
	LastPlay  *time.Time `gorm:"index" json:"last_play,omitempty"`
}

// Authorized reports whether the player has completed the phone step.
func (a *Account) Authorized() bool {
	return a.Phone != nil && *a.Phone != ""
}

// DisplayName picks the best available handle for user-facing text.
func (a *Account) DisplayName() string {
	if a.Username != nil && *a.Username != "" {
		return *a.Username
	}
	if a.FirstName != nil && *a.FirstName != "" {
		return *a.FirstName
	}
	return "anonymous"
}
