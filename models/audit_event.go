package models

import (
	"time"
)

// AuditEventType тип записи в журнале аудита.
type AuditEventType string

const (
	AuditProposalCreated    AuditEventType = "proposal_created"
	AuditProposalTransition AuditEventType = "proposal_transition"
	AuditSignatureRecorded  AuditEventType = "signature_recorded"
	AuditProposalDisputed   AuditEventType = "proposal_disputed"
	AuditDisputeResolved    AuditEventType = "dispute_resolved"
	AuditEmergencyApplied   AuditEventType = "emergency_applied"
	AuditSettingApplied     AuditEventType = "setting_applied"
	AuditPermissionBlocked  AuditEventType = "permission_downgrade_blocked"
	AuditPermissionChanged  AuditEventType = "permission_changed"
)

// AuditEvent описывает запись журнала. Записи не изменяются и не удаляются.
type AuditEvent struct {
	ID         uint           `json:"id" gorm:"primary_key"`
	Type       AuditEventType `json:"type" gorm:"index;size:64"`
	ActorID    string         `json:"actor_id" gorm:"size:128"`
	ChildID    string         `json:"child_id" gorm:"index;size:128"`
	FamilyID   string         `json:"family_id" gorm:"size:64"`
	ProposalID string         `json:"proposal_id,omitempty" gorm:"index;size:36"`
	ChangeType ChangeType     `json:"change_type,omitempty" gorm:"size:64"`
	FromStatus ProposalStatus `json:"from_status,omitempty" gorm:"size:32"`
	ToStatus   ProposalStatus `json:"to_status,omitempty" gorm:"size:32"`
	Details    string         `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`

	BlockedAttempt *BlockedAttemptRecord `json:"blocked_attempt,omitempty" gorm:"-"`
}

// BlockedAttemptRecord хранит сигнал о возможном злоупотреблении: попытку
// понизить права другого опекуна во время спора об опеке.
type BlockedAttemptRecord struct {
	ID                   uint        `json:"id" gorm:"primary_key"`
	AttemptedBy          string      `json:"attempted_by" gorm:"index;size:128"`
	TargetGuardian       string      `json:"target_guardian" gorm:"size:128"`
	ChildID              string      `json:"child_id" gorm:"index;size:128"`
	FamilyID             string      `json:"family_id" gorm:"size:64"`
	CustodyType          CustodyType `json:"custody_type" gorm:"size:16"`
	RequestedPermissions Permission  `json:"requested_permissions" gorm:"size:16"`
	CurrentPermissions   Permission  `json:"current_permissions" gorm:"size:16"`
	Timestamp            time.Time   `json:"timestamp"`
}
