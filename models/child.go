package models

// CustodyType заявленный режим опеки ребенка (вводится извне).
type CustodyType string

const (
	CustodyNone    CustodyType = "none"
	CustodyShared  CustodyType = "shared"
	CustodyComplex CustodyType = "complex"
)

type Child struct {
	ID          uint        `json:"id" gorm:"primary_key"`
	FirebaseUID string      `json:"firebase_uid" gorm:"uniqueIndex;size:128"`
	FamilyID    string      `json:"family_id" gorm:"index;size:64"`
	Lang        string      `json:"lang"`
	Name        string      `json:"name"`
	Code        string      `json:"code" gorm:"size:4"`
	DeviceToken string      `json:"-"`
	Age         int         `json:"age"`
	CustodyType CustodyType `json:"custody_type" gorm:"size:16"`
}
