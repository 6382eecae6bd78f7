package models

import "time"

// DuelOutcome labels the result of one duel from the player's perspective.
type DuelOutcome string

const (
	OutcomeWin  DuelOutcome = "win"
	OutcomeLose DuelOutcome = "lose"
	OutcomeDraw DuelOutcome = "draw"
)

// GameHistoryEntry is an append-only audit record of one completed duel.
// Rows are never updated or deleted.
type GameHistoryEntry struct {
	ID         string      `gorm:"primaryKey;type:uuid" json:"id"`
	UserID     int64       `gorm:"index;not null" json:"user_id"`
	PlayerRoll int         `gorm:"not null" json:"player_roll"`
	BotRoll    int         `gorm:"not null" json:"bot_roll"`
	Outcome    DuelOutcome `gorm:"type:varchar(8);not null" json:"outcome"`
	PointDelta int         `gorm:"not null" json:"point_delta"`
	PlayedAt   time.Time   `gorm:"index;not null" json:"played_at"`
}
