package impl

import (
	"PinguinGuard/repositories"
	"context"

	"gorm.io/gorm"
)

// GormStore реализует repositories.Store поверх gorm.
type GormStore struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) Proposals() repositories.ProposalRepository {
	return &ProposalRepositoryImpl{DB: s.DB}
}

func (s *GormStore) Settings() repositories.SettingsRepository {
	return &SettingsRepositoryImpl{DB: s.DB}
}

func (s *GormStore) Audit() repositories.AuditRepository {
	return &AuditRepositoryImpl{DB: s.DB}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx repositories.Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{DB: tx})
	})
}
