package services

import (
	"PinguinGuard/models"
	"PinguinGuard/repositories"
	"context"
	"fmt"
	"log"
	"time"
)

// SettingsApplier записывает значение настройки. Вызывается ровно один раз,
// в той же транзакции, что и переход предложения в active.
type SettingsApplier struct{}

func (SettingsApplier) ApplyChange(ctx context.Context, repo repositories.SettingsRepository, childID string, value models.ChangeValue, now time.Time) (models.ChildSettings, error) {
	settings, err := repo.GetForUpdate(ctx, childID)
	if err != nil {
		return models.ChildSettings{}, fmt.Errorf("load settings: %w", err)
	}
	if err := settings.Apply(value, now); err != nil {
		return models.ChildSettings{}, err
	}
	if err := repo.Save(ctx, &settings); err != nil {
		return models.ChildSettings{}, fmt.Errorf("save settings: %w", err)
	}
	log.Printf("[SETTINGS] child=%s %s updated", childID, value.Type)
	return settings, nil
}
