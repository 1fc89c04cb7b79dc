package models

// Parent учетная запись опекуна (родителя или другого взрослого).
type Parent struct {
	ID          uint   `json:"id" gorm:"primary_key"`
	FirebaseUID string `json:"firebase_uid" gorm:"uniqueIndex;size:128"`
	Lang        string `json:"lang"`
	Name        string `json:"name"`
	Email       string `json:"email" gorm:"index"`
	Password    string `json:"-"`
	Role        string `json:"role"`
	DeviceToken string `json:"-"`
}
