package repositories

import (
	"PinguinGuard/models"
	"context"
)

type SettingsRepository interface {
	// Get возвращает настройки ребенка или значения по умолчанию, если их еще нет.
	Get(ctx context.Context, childUID string) (models.ChildSettings, error)
	// GetForUpdate читает настройки под блокировкой строки до конца транзакции.
	// Отсутствующая строка сначала создается со значениями по умолчанию.
	GetForUpdate(ctx context.Context, childUID string) (models.ChildSettings, error)
	Save(ctx context.Context, settings *models.ChildSettings) error
}
