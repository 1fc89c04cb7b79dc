package mocks

import (
	"PinguinGuard/models"

	"github.com/stretchr/testify/mock"
)

type ChildRepository struct {
	mock.Mock
}

func (m *ChildRepository) FindByFirebaseUID(firebaseUID string) (models.Child, error) {
	args := m.Called(firebaseUID)
	return args.Get(0).(models.Child), args.Error(1)
}

func (m *ChildRepository) FindByCode(code string) (models.Child, error) {
	args := m.Called(code)
	return args.Get(0).(models.Child), args.Error(1)
}

func (m *ChildRepository) Save(child models.Child) error {
	args := m.Called(child)
	return args.Error(0)
}
