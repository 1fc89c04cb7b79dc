package repositories

import (
	"PinguinGuard/models"
	"context"
)

// ChildDirectory справочник детей: семья, опекуны с правами и декларация опеки.
type ChildDirectory interface {
	GetChild(ctx context.Context, childID string) (models.ChildRecord, error)
	UpdateGuardianPermission(ctx context.Context, childID, guardianUID string, permission models.Permission) error
}
