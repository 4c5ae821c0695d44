package model

import "time"

// User stores one platform identity and its registration data.
// Registration fields are pointers: they stay NULL until the user passes
// the corresponding form step, and a fresh join clears them again.
type User struct {
	ID           uint  `gorm:"primaryKey"`
	TelegramID   int64 `gorm:"uniqueIndex"`
	Username     string
	FullName     *string
	GroupNumber  *string
	Faculty      *string
	MobileNumber *string
	StudNumber   *string
	FormEduc     *string
	Scholarship  bool   `gorm:"default:false"`
	IsVerified   bool   `gorm:"default:false"`
	HomeChatID   *int64 `gorm:"column:home_chat_id"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegistrationComplete reports whether every required field is filled.
func (u *User) RegistrationComplete() bool {
	return u.FullName != nil && u.GroupNumber != nil && u.Faculty != nil &&
		u.MobileNumber != nil && u.StudNumber != nil && u.FormEduc != nil
}
