package mocks

import (
	"PinguinGuard/models"
	"context"

	"github.com/stretchr/testify/mock"
)

type AuditRepository struct {
	mock.Mock
}

func (m *AuditRepository) Append(ctx context.Context, event *models.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *AuditRepository) AppendBlockedAttempt(ctx context.Context, record *models.BlockedAttemptRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *AuditRepository) ListByChild(ctx context.Context, childID string, limit int) ([]models.AuditEvent, error) {
	args := m.Called(ctx, childID, limit)
	return args.Get(0).([]models.AuditEvent), args.Error(1)
}
