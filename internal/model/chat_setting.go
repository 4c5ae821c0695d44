package model

import "time"

// ChatSetting keeps per-chat configuration; survives restarts.
type ChatSetting struct {
	ID           uint  `gorm:"primaryKey"`
	ChatID       int64 `gorm:"uniqueIndex"`
	GuardEnabled bool  `gorm:"default:false"`
	UpdatedAt    time.Time
}
