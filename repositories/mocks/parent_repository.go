package mocks

import (
	"PinguinGuard/models"

	"github.com/stretchr/testify/mock"
)

type ParentRepository struct {
	mock.Mock
}

func (m *ParentRepository) FindByFirebaseUID(firebaseUID string) (models.Parent, error) {
	args := m.Called(firebaseUID)
	return args.Get(0).(models.Parent), args.Error(1)
}

func (m *ParentRepository) FindByEmail(email string) (models.Parent, error) {
	args := m.Called(email)
	return args.Get(0).(models.Parent), args.Error(1)
}

func (m *ParentRepository) Save(parent models.Parent) error {
	args := m.Called(parent)
	return args.Error(0)
}
