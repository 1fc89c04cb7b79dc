package models

import (
	"errors"
	"fmt"
	"time"
)

// ProposalStatus состояние предложения об изменении.
type ProposalStatus string

const (
	StatusPending            ProposalStatus = "pending"
	StatusApproved           ProposalStatus = "approved"
	StatusDeclined           ProposalStatus = "declined"
	StatusExpired            ProposalStatus = "expired"
	StatusCoolingInProgress  ProposalStatus = "cooling_in_progress"
	StatusCoolingCancelled   ProposalStatus = "cooling_cancelled"
	StatusAwaitingSignatures ProposalStatus = "awaiting_signatures"
	StatusActive             ProposalStatus = "active"
)

// Временные окна жизненного цикла
const (
	ProposalTTL         = 72 * time.Hour
	CoolingPeriodLength = 48 * time.Hour
	SignatureWindow     = 30 * 24 * time.Hour
	ReproposalCooldown  = 7 * 24 * time.Hour
)

var ErrInvalidTransition = errors.New("invalid status transition")

// Переходы только вперед. Терминальные состояния не имеют исходящих переходов.
var allowedTransitions = map[ProposalStatus][]ProposalStatus{
	StatusPending:            {StatusApproved, StatusDeclined, StatusExpired},
	StatusApproved:           {StatusCoolingInProgress, StatusAwaitingSignatures},
	StatusCoolingInProgress:  {StatusActive, StatusCoolingCancelled},
	StatusAwaitingSignatures: {StatusActive, StatusExpired},
}

func (s ProposalStatus) IsTerminal() bool {
	switch s {
	case StatusDeclined, StatusExpired, StatusCoolingCancelled, StatusActive:
		return true
	}
	return false
}

func (s ProposalStatus) CanTransitionTo(next ProposalStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type SignerType string

const (
	SignerParent SignerType = "parent"
	SignerChild  SignerType = "child"
)

type SignatureStatus string

const (
	SignaturePending SignatureStatus = "pending"
	SignatureSigned  SignatureStatus = "signed"
)

// Signature слот подписи. Набор слотов фиксируется при создании предложения.
type Signature struct {
	SignerID   string          `json:"signer_id"`
	SignerType SignerType      `json:"signer_type"`
	Status     SignatureStatus `json:"status"`
	SignedAt   *time.Time      `json:"signed_at,omitempty"`
}

type CoolingPeriod struct {
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      time.Time  `json:"ends_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy string     `json:"cancelled_by,omitempty"`
}

type Dispute struct {
	DisputedAt time.Time  `json:"disputed_at"`
	DisputedBy string     `json:"disputed_by"`
	Reason     string     `json:"reason,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
}

func (d *Dispute) IsOpen() bool {
	return d != nil && d.ResolvedAt == nil
}

// ChangeProposal предложение одного опекуна изменить настройку безопасности
// или условие семейного соглашения. Никогда не удаляется.
type ChangeProposal struct {
	ID                string         `json:"id" gorm:"primaryKey;size:36"`
	ChildID           string         `json:"child_id" gorm:"index;not null"`
	FamilyID          string         `json:"family_id" gorm:"index"`
	ProposedBy        string         `json:"proposed_by"`
	ChangeType        ChangeType     `json:"change_type" gorm:"index;size:64"`
	OriginalValue     ChangeValue    `json:"original_value" gorm:"serializer:json"`
	ProposedValue     ChangeValue    `json:"proposed_value" gorm:"serializer:json"`
	Justification     string         `json:"justification,omitempty"`
	Status            ProposalStatus `json:"status" gorm:"index;size:32"`
	CreatedAt         time.Time      `json:"created_at"`
	ExpiresAt         time.Time      `json:"expires_at"`
	RespondedBy       string         `json:"responded_by,omitempty"`
	RespondedAt       *time.Time     `json:"responded_at,omitempty"`
	DeclineMessage    string         `json:"decline_message,omitempty"`
	ApprovedAt        *time.Time     `json:"approved_at,omitempty"`
	CoolingPeriod     *CoolingPeriod `json:"cooling_period,omitempty" gorm:"serializer:json"`
	Dispute           *Dispute       `json:"dispute,omitempty" gorm:"serializer:json"`
	Signatures        []Signature    `json:"signatures" gorm:"serializer:json"`
	SignatureDeadline *time.Time     `json:"signature_deadline,omitempty"`
	ActiveAt          *time.Time     `json:"active_at,omitempty"`
	ClosedAt          *time.Time     `json:"closed_at,omitempty"`

	// OpenKey заполнен, пока предложение не в терминальном состоянии;
	// уникальный индекс не дает открыть второе предложение того же типа.
	OpenKey *string `json:"-" gorm:"uniqueIndex;size:128"`
	// DueAt: ближайший дедлайн, после которого нужно ленивое продвижение.
	DueAt *time.Time `json:"-" gorm:"index"`
	// Version увеличивается при каждой записи (compare-and-swap).
	Version int `json:"-"`
}

func OpenKeyFor(childID string, changeType ChangeType) string {
	return childID + "|" + string(changeType)
}

// NewSignatureSlots строит упорядоченный набор слотов: сначала родители, затем ребенок.
func NewSignatureSlots(proposerID, coGuardianID, childID string, includeChild bool) []Signature {
	slots := []Signature{
		{SignerID: proposerID, SignerType: SignerParent, Status: SignaturePending},
		{SignerID: coGuardianID, SignerType: SignerParent, Status: SignaturePending},
	}
	if includeChild {
		slots = append(slots, Signature{SignerID: childID, SignerType: SignerChild, Status: SignaturePending})
	}
	return slots
}

func (p *ChangeProposal) transition(next ProposalStatus, now time.Time) error {
	if !p.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, next)
	}
	p.Status = next
	if next.IsTerminal() {
		closed := now
		p.ClosedAt = &closed
		p.OpenKey = nil
	}
	p.RefreshDueAt()
	return nil
}

// RefreshDueAt пересчитывает DueAt по текущему статусу.
func (p *ChangeProposal) RefreshDueAt() {
	var due *time.Time
	switch p.Status {
	case StatusPending:
		at := p.ExpiresAt
		due = &at
	case StatusCoolingInProgress:
		if p.CoolingPeriod != nil {
			at := p.CoolingPeriod.EndsAt
			due = &at
		}
	case StatusAwaitingSignatures:
		if p.SignatureDeadline != nil {
			at := *p.SignatureDeadline
			due = &at
		}
	}
	p.DueAt = due
}

// Approve фиксирует согласие второго опекуна и сразу переводит предложение
// на защищенный путь для его типа.
func (p *ChangeProposal) Approve(responderID string, now time.Time) error {
	if err := p.transition(StatusApproved, now); err != nil {
		return err
	}
	at := now
	p.RespondedBy = responderID
	p.RespondedAt = &at
	p.ApprovedAt = &at

	switch p.ChangeType.Flow() {
	case FlowSignatures:
		deadline := now.Add(SignatureWindow)
		p.SignatureDeadline = &deadline
		return p.transition(StatusAwaitingSignatures, now)
	default:
		p.CoolingPeriod = &CoolingPeriod{StartsAt: now, EndsAt: now.Add(CoolingPeriodLength)}
		return p.transition(StatusCoolingInProgress, now)
	}
}

func (p *ChangeProposal) Decline(responderID, message string, now time.Time) error {
	if err := p.transition(StatusDeclined, now); err != nil {
		return err
	}
	at := now
	p.RespondedBy = responderID
	p.RespondedAt = &at
	p.DeclineMessage = message
	return nil
}

func (p *ChangeProposal) Expire(now time.Time) error {
	return p.transition(StatusExpired, now)
}

// CancelCooling отменяет период охлаждения. Значение настройки не трогается:
// за время охлаждения оно никогда не записывается.
func (p *ChangeProposal) CancelCooling(by string, now time.Time) error {
	if p.CoolingPeriod == nil {
		return fmt.Errorf("%w: no cooling period", ErrInvalidTransition)
	}
	if err := p.transition(StatusCoolingCancelled, now); err != nil {
		return err
	}
	at := now
	p.CoolingPeriod.CancelledAt = &at
	p.CoolingPeriod.CancelledBy = by
	return nil
}

// Activate переводит предложение в active. Запись настройки выполняет вызывающий
// в той же транзакции.
func (p *ChangeProposal) Activate(now time.Time) error {
	if err := p.transition(StatusActive, now); err != nil {
		return err
	}
	at := now
	p.ActiveAt = &at
	return nil
}

// SlotIndex возвращает индекс слота подписанта или -1.
func (p *ChangeProposal) SlotIndex(signerID string, signerType SignerType) int {
	for i, slot := range p.Signatures {
		if slot.SignerID == signerID && slot.SignerType == signerType {
			return i
		}
	}
	return -1
}

// PendingParentSignatures возвращает число родительских слотов, еще не подписанных.
func (p *ChangeProposal) PendingParentSignatures() int {
	pending := 0
	for _, slot := range p.Signatures {
		if slot.SignerType == SignerParent && slot.Status != SignatureSigned {
			pending++
		}
	}
	return pending
}

func (p *ChangeProposal) HasChildSlot() bool {
	for _, slot := range p.Signatures {
		if slot.SignerType == SignerChild {
			return true
		}
	}
	return false
}

// AllSigned сообщает, что все слоты подписаны.
func (p *ChangeProposal) AllSigned() bool {
	if len(p.Signatures) == 0 {
		return false
	}
	for _, slot := range p.Signatures {
		if slot.Status != SignatureSigned {
			return false
		}
	}
	return true
}

// Sign отмечает слот подписанным. Порядок (ребенок после родителей) проверяет вызывающий.
func (p *ChangeProposal) Sign(index int, now time.Time) error {
	if p.Status != StatusAwaitingSignatures {
		return fmt.Errorf("%w: cannot sign in status %s", ErrInvalidTransition, p.Status)
	}
	if index < 0 || index >= len(p.Signatures) {
		return fmt.Errorf("%w: no such signature slot", ErrInvalidTransition)
	}
	if p.Signatures[index].Status == SignatureSigned {
		return fmt.Errorf("%w: slot already signed", ErrInvalidTransition)
	}
	at := now
	p.Signatures[index].Status = SignatureSigned
	p.Signatures[index].SignedAt = &at
	return nil
}

// Promote выполняет переходы, срок которых наступил к now. Возвращает true,
// если статус изменился. Если предложение стало active, вызывающий обязан
// записать настройку в той же транзакции.
// Просроченные переходы датируются дедлайном, а не моментом обращения:
// от ClosedAt отсчитывается пауза перед повторным предложением.
func (p *ChangeProposal) Promote(now time.Time) (bool, error) {
	switch p.Status {
	case StatusPending:
		if !now.Before(p.ExpiresAt) {
			return true, p.Expire(p.ExpiresAt)
		}
	case StatusCoolingInProgress:
		if p.CoolingPeriod != nil && !now.Before(p.CoolingPeriod.EndsAt) {
			return true, p.Activate(p.CoolingPeriod.EndsAt)
		}
	case StatusAwaitingSignatures:
		if p.AllSigned() {
			return true, p.Activate(now)
		}
		if p.SignatureDeadline != nil && !now.Before(*p.SignatureDeadline) {
			return true, p.Expire(*p.SignatureDeadline)
		}
	}
	return false, nil
}
