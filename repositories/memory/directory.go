package memory

import (
	"PinguinGuard/models"
	"PinguinGuard/repositories"
	"context"
	"sync"
)

// Directory справочник детей в памяти.
type Directory struct {
	mu       sync.RWMutex
	children map[string]models.ChildRecord
}

func NewDirectory(records ...models.ChildRecord) *Directory {
	d := &Directory{children: make(map[string]models.ChildRecord)}
	for _, r := range records {
		d.Put(r)
	}
	return d
}

func (d *Directory) Put(record models.ChildRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	record.Guardians = append([]models.GuardianRef(nil), record.Guardians...)
	d.children[record.ChildID] = record
}

func (d *Directory) GetChild(_ context.Context, childID string) (models.ChildRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	record, ok := d.children[childID]
	if !ok {
		return models.ChildRecord{}, repositories.ErrNotFound
	}
	record.Guardians = append([]models.GuardianRef(nil), record.Guardians...)
	return record, nil
}

func (d *Directory) UpdateGuardianPermission(_ context.Context, childID, guardianUID string, permission models.Permission) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	record, ok := d.children[childID]
	if !ok {
		return repositories.ErrNotFound
	}
	for i := range record.Guardians {
		if record.Guardians[i].UID == guardianUID {
			record.Guardians[i].Permissions = permission
			d.children[childID] = record
			return nil
		}
	}
	return repositories.ErrNotFound
}
