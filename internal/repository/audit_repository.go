package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"group-gatekeeper/internal/model"
)

// AuditRepository appends moderation action records. Entries are never
// updated or deleted here.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry *model.AdminActionLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}
