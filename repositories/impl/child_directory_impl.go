package impl

import (
	"PinguinGuard/models"
	"PinguinGuard/repositories"
	"context"

	"gorm.io/gorm"
)

// ChildDirectoryImpl собирает ChildRecord из таблиц children и guardianships.
type ChildDirectoryImpl struct {
	DB *gorm.DB
}

func NewChildDirectory(db *gorm.DB) repositories.ChildDirectory {
	return &ChildDirectoryImpl{DB: db}
}

func (d *ChildDirectoryImpl) GetChild(ctx context.Context, childID string) (models.ChildRecord, error) {
	var child models.Child
	if err := d.DB.WithContext(ctx).Where("firebase_uid = ?", childID).First(&child).Error; err != nil {
		return models.ChildRecord{}, translateError(err)
	}

	var links []models.Guardianship
	if err := d.DB.WithContext(ctx).Where("child_uid = ?", childID).Order("id ASC").Find(&links).Error; err != nil {
		return models.ChildRecord{}, wrap("load guardians", err)
	}

	record := models.ChildRecord{
		ChildID:     child.FirebaseUID,
		FamilyID:    child.FamilyID,
		CustodyType: child.CustodyType,
	}
	if record.CustodyType == "" {
		record.CustodyType = models.CustodyNone
	}
	for _, link := range links {
		record.Guardians = append(record.Guardians, models.GuardianRef{
			UID:         link.GuardianUID,
			Permissions: link.Permissions,
		})
	}
	return record, nil
}

func (d *ChildDirectoryImpl) UpdateGuardianPermission(ctx context.Context, childID, guardianUID string, permission models.Permission) error {
	result := d.DB.WithContext(ctx).
		Model(&models.Guardianship{}).
		Where("child_uid = ? AND guardian_uid = ?", childID, guardianUID).
		Update("permissions", permission)
	if result.Error != nil {
		return wrap("update guardian permission", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
