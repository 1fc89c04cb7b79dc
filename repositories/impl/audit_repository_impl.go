package impl

import (
	"PinguinGuard/models"
	"PinguinGuard/repositories"
	"context"

	"gorm.io/gorm"
)

type AuditRepositoryImpl struct {
	DB *gorm.DB
}

func NewAuditRepository(db *gorm.DB) repositories.AuditRepository {
	return &AuditRepositoryImpl{DB: db}
}

func (r *AuditRepositoryImpl) Append(ctx context.Context, event *models.AuditEvent) error {
	if err := r.DB.WithContext(ctx).Create(event).Error; err != nil {
		return wrap("append audit event", err)
	}
	return nil
}

func (r *AuditRepositoryImpl) AppendBlockedAttempt(ctx context.Context, record *models.BlockedAttemptRecord) error {
	if err := r.DB.WithContext(ctx).Create(record).Error; err != nil {
		return wrap("append blocked attempt", err)
	}
	return nil
}

func (r *AuditRepositoryImpl) ListByChild(ctx context.Context, childID string, limit int) ([]models.AuditEvent, error) {
	var events []models.AuditEvent
	query := r.DB.WithContext(ctx).Where("child_id = ?", childID).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&events).Error
	return events, err
}
