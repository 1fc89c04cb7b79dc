package impl

import (
	"PinguinGuard/models"
	"PinguinGuard/repositories"

	"gorm.io/gorm"
)

type ParentRepositoryImpl struct {
	DB *gorm.DB
}

func NewParentRepository(db *gorm.DB) repositories.ParentRepository {
	return &ParentRepositoryImpl{DB: db}
}

func (r *ParentRepositoryImpl) FindByFirebaseUID(firebaseUID string) (models.Parent, error) {
	var parent models.Parent
	if err := r.DB.Where("firebase_uid = ?", firebaseUID).First(&parent).Error; err != nil {
		return models.Parent{}, translateError(err)
	}
	return parent, nil
}

func (r *ParentRepositoryImpl) FindByEmail(email string) (models.Parent, error) {
	var parent models.Parent
	if err := r.DB.Where("email = ?", email).First(&parent).Error; err != nil {
		return models.Parent{}, translateError(err)
	}
	return parent, nil
}

func (r *ParentRepositoryImpl) Save(parent models.Parent) error {
	return r.DB.Save(&parent).Error
}
