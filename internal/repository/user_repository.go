package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"group-gatekeeper/internal/model"
)

// RegistrationFields is the full field set written at commit time.
type RegistrationFields struct {
	FullName     string
	GroupNumber  string
	Faculty      string
	MobileNumber string
	StudNumber   string
	FormEduc     string
	Scholarship  bool
}

// UserRepository handles persistence for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertContact finds or creates a user on first private contact and
// refreshes the last-seen username. Registration data is left untouched.
func (r *UserRepository) UpsertContact(ctx context.Context, telegramID int64, username string) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&user).Error
	switch {
	case err == nil:
		if err := db.Model(&user).Update("username", username).Error; err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{TelegramID: telegramID, Username: username}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

// UpsertOnJoin records a group join and starts a fresh registration cycle:
// collected fields are cleared and is_verified is re-armed to false.
// home_chat_id is only filled when it was never set before.
func (r *UserRepository) UpsertOnJoin(ctx context.Context, telegramID int64, username string, chatID int64) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&user).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"username":      username,
			"is_verified":   false,
			"full_name":     nil,
			"group_number":  nil,
			"faculty":       nil,
			"mobile_number": nil,
			"stud_number":   nil,
			"form_educ":     nil,
			"scholarship":   false,
			"home_chat_id":  gorm.Expr("COALESCE(home_chat_id, ?)", chatID),
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("reset user on join: %w", err)
		}
		return r.FindByTelegramID(ctx, telegramID)
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{TelegramID: telegramID, Username: username, HomeChatID: &chatID}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user on join: %w", err)
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername resolves a bare @handle (without the leading @).
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// IsVerified reports the verification flag; unknown users count as unverified.
func (r *UserRepository) IsVerified(ctx context.Context, telegramID int64) (bool, error) {
	user, err := r.FindByTelegramID(ctx, telegramID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.IsVerified, nil
}

// SaveRegistration upserts the full registration field set. The row may
// predate this call (join-time bootstrap) or not exist at all (user only
// ever messaged the bot privately). home_chat_id and is_verified are never
// touched here.
func (r *UserRepository) SaveRegistration(ctx context.Context, telegramID int64, fields RegistrationFields) error {
	db := r.db.WithContext(ctx)

	var user model.User
	err := db.Where("telegram_id = ?", telegramID).First(&user).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"full_name":     fields.FullName,
			"group_number":  fields.GroupNumber,
			"faculty":       fields.Faculty,
			"mobile_number": fields.MobileNumber,
			"stud_number":   fields.StudNumber,
			"form_educ":     fields.FormEduc,
			"scholarship":   fields.Scholarship,
			"updated_at":    time.Now(),
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return fmt.Errorf("save registration: %w", err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{
			TelegramID:   telegramID,
			FullName:     &fields.FullName,
			GroupNumber:  &fields.GroupNumber,
			Faculty:      &fields.Faculty,
			MobileNumber: &fields.MobileNumber,
			StudNumber:   &fields.StudNumber,
			FormEduc:     &fields.FormEduc,
			Scholarship:  fields.Scholarship,
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("create user at commit: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("find user: %w", err)
	}
}

// TryVerify flips is_verified in a single conditional UPDATE that re-checks
// required-field completeness server-side. Returns false when the row is
// missing, incomplete, or already verified.
func (r *UserRepository) TryVerify(ctx context.Context, telegramID int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("telegram_id = ? AND is_verified = ?", telegramID, false).
		Where("full_name IS NOT NULL AND group_number IS NOT NULL AND faculty IS NOT NULL").
		Where("mobile_number IS NOT NULL AND stud_number IS NOT NULL AND form_educ IS NOT NULL").
		Update("is_verified", true)
	if res.Error != nil {
		return false, fmt.Errorf("try verify: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ForceVerify marks a user verified regardless of form completeness (/up).
// Reply-to targets may have no row yet; a bare verified row is created so
// guard mode sees the grant.
func (r *UserRepository) ForceVerify(ctx context.Context, telegramID int64) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("telegram_id = ?", telegramID).
		Update("is_verified", true)
	if res.Error != nil {
		return fmt.Errorf("force verify: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		user := model.User{TelegramID: telegramID, IsVerified: true}
		if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
			return fmt.Errorf("force verify: create: %w", err)
		}
	}
	return nil
}
