package mocks

import (
	"PinguinGuard/models"
	"context"

	"github.com/stretchr/testify/mock"
)

type ChildDirectory struct {
	mock.Mock
}

func (m *ChildDirectory) GetChild(ctx context.Context, childID string) (models.ChildRecord, error) {
	args := m.Called(ctx, childID)
	return args.Get(0).(models.ChildRecord), args.Error(1)
}

func (m *ChildDirectory) UpdateGuardianPermission(ctx context.Context, childID, guardianUID string, permission models.Permission) error {
	args := m.Called(ctx, childID, guardianUID, permission)
	return args.Error(0)
}
