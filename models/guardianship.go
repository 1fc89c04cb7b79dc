package models

// Permission уровень прав опекуна в отношении ребенка.
type Permission string

const (
	PermissionFull     Permission = "full"
	PermissionReadonly Permission = "readonly"
)

func (p Permission) IsValid() bool {
	return p == PermissionFull || p == PermissionReadonly
}

// Guardianship связывает опекуна с ребенком внутри семьи.
type Guardianship struct {
	ID          uint       `json:"id" gorm:"primary_key"`
	FamilyID    string     `json:"family_id" gorm:"index;size:64"`
	ChildUID    string     `json:"child_uid" gorm:"uniqueIndex:idx_guardianship;size:128"`
	GuardianUID string     `json:"guardian_uid" gorm:"uniqueIndex:idx_guardianship;size:128"`
	Permissions Permission `json:"permissions" gorm:"size:16"`
}

// GuardianRef опекун в том виде, в каком его видит ядро.
type GuardianRef struct {
	UID         string     `json:"uid"`
	Permissions Permission `json:"permissions"`
}

// ChildRecord ответ справочника детей: семья, опекуны и декларация опеки.
type ChildRecord struct {
	ChildID     string        `json:"child_id"`
	FamilyID    string        `json:"family_id"`
	Guardians   []GuardianRef `json:"guardians"`
	CustodyType CustodyType   `json:"custody_type"`
}

func (r ChildRecord) Guardian(uid string) (GuardianRef, bool) {
	for _, g := range r.Guardians {
		if g.UID == uid {
			return g, true
		}
	}
	return GuardianRef{}, false
}

func (r ChildRecord) IsGuardian(uid string) bool {
	_, ok := r.Guardian(uid)
	return ok
}

// OtherGuardians возвращает всех опекунов, кроме uid.
func (r ChildRecord) OtherGuardians(uid string) []GuardianRef {
	var others []GuardianRef
	for _, g := range r.Guardians {
		if g.UID != uid {
			others = append(others, g)
		}
	}
	return others
}
