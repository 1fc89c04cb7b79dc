package repositories

import (
	"PinguinGuard/models"
	"context"
)

// AuditRepository ведет журнал, в который только добавляют.
type AuditRepository interface {
	Append(ctx context.Context, event *models.AuditEvent) error
	AppendBlockedAttempt(ctx context.Context, record *models.BlockedAttemptRecord) error
	ListByChild(ctx context.Context, childID string, limit int) ([]models.AuditEvent, error)
}
