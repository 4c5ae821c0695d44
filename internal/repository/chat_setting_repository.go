package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"group-gatekeeper/internal/model"
)

// ChatSettingRepository holds per-chat configuration such as guard mode.
type ChatSettingRepository struct {
	db *gorm.DB
}

func NewChatSettingRepository(db *gorm.DB) *ChatSettingRepository {
	return &ChatSettingRepository{db: db}
}

func (r *ChatSettingRepository) SetGuard(ctx context.Context, chatID int64, enabled bool) error {
	var setting model.ChatSetting
	db := r.db.WithContext(ctx)
	err := db.Where("chat_id = ?", chatID).First(&setting).Error
	switch {
	case err == nil:
		if err := db.Model(&setting).Update("guard_enabled", enabled).Error; err != nil {
			return fmt.Errorf("update chat setting: %w", err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		setting = model.ChatSetting{ChatID: chatID, GuardEnabled: enabled}
		if err := db.Create(&setting).Error; err != nil {
			return fmt.Errorf("create chat setting: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("find chat setting: %w", err)
	}
}

// GuardEnabled reports the guard flag; chats without a row default to off.
func (r *ChatSettingRepository) GuardEnabled(ctx context.Context, chatID int64) (bool, error) {
	var setting model.ChatSetting
	err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find chat setting: %w", err)
	}
	return setting.GuardEnabled, nil
}
