package repositories

import "PinguinGuard/models"

type ChildRepository interface {
	FindByFirebaseUID(firebaseUID string) (models.Child, error)
	FindByCode(code string) (models.Child, error)
	Save(child models.Child) error
}
