package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"group-gatekeeper/internal/model"
)

// AdminRepository manages the bot-level admin allow-list.
type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// Add inserts a telegram id into the allow-list; adding twice is a no-op.
func (r *AdminRepository) Add(ctx context.Context, telegramID int64) error {
	var existing model.BotAdmin
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&existing).Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := db.Create(&model.BotAdmin{TelegramID: telegramID}).Error; err != nil {
			return fmt.Errorf("add admin: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("find admin: %w", err)
	}
}

func (r *AdminRepository) Remove(ctx context.Context, telegramID int64) error {
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).
		Delete(&model.BotAdmin{}).Error; err != nil {
		return fmt.Errorf("remove admin: %w", err)
	}
	return nil
}

func (r *AdminRepository) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.BotAdmin{}).
		Where("telegram_id = ?", telegramID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	return count > 0, nil
}
