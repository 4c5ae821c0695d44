package model

import "time"

// AdminActionLog is an append-only record of a moderation action.
type AdminActionLog struct {
	ID               uint `gorm:"primaryKey"`
	Action           string
	AdminTelegramID  int64
	AdminUsername    string
	TargetTelegramID *int64
	TargetUsername   string
	ChatID           *int64
	CreatedAt        time.Time
}
