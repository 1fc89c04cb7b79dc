package impl

import (
	"PinguinGuard/models"
	"PinguinGuard/repositories"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsRepositoryImpl struct {
	DB *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) repositories.SettingsRepository {
	return &SettingsRepositoryImpl{DB: db}
}

func (r *SettingsRepositoryImpl) Get(ctx context.Context, childUID string) (models.ChildSettings, error) {
	var settings models.ChildSettings
	err := r.DB.WithContext(ctx).Where("child_uid = ?", childUID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultChildSettings(childUID), nil
	}
	if err != nil {
		return models.ChildSettings{}, wrap("get settings", err)
	}
	return settings, nil
}

func (r *SettingsRepositoryImpl) GetForUpdate(ctx context.Context, childUID string) (models.ChildSettings, error) {
	db := r.DB.WithContext(ctx)
	defaults := models.DefaultChildSettings(childUID)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error; err != nil {
		return models.ChildSettings{}, wrap("init settings", err)
	}

	query := db
	if r.DB.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var settings models.ChildSettings
	if err := query.Where("child_uid = ?", childUID).First(&settings).Error; err != nil {
		return models.ChildSettings{}, wrap("lock settings", err)
	}
	return settings, nil
}

func (r *SettingsRepositoryImpl) Save(ctx context.Context, settings *models.ChildSettings) error {
	if err := r.DB.WithContext(ctx).Save(settings).Error; err != nil {
		return wrap("save settings", err)
	}
	return nil
}
