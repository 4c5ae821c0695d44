package model

import "time"

// BotAdmin is one entry of the bot-level admin allow-list.
// The root identity is never stored here; it is implicit.
type BotAdmin struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	CreatedAt  time.Time
}
