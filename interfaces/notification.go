package interfaces

import (
	"context"
	"time"
)

// Типы событий для push и WebSocket
const (
	EventProposalCreated   = "proposal_created"
	EventProposalUpdated   = "proposal_updated"
	EventProposalDisputed  = "proposal_disputed"
	EventEmergencyApplied  = "emergency_applied"
	EventPermissionBlocked = "permission_downgrade_blocked"
)

// ProposalEvent описывает изменение, о котором нужно сообщить семье после коммита.
type ProposalEvent struct {
	Type       string    `json:"type"`
	ProposalID string    `json:"proposal_id,omitempty"`
	ChildID    string    `json:"child_id"`
	FamilyID   string    `json:"family_id"`
	ChangeType string    `json:"change_type,omitempty"`
	Status     string    `json:"status,omitempty"`
	ActorID    string    `json:"actor_id"`
	Recipients []string  `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
}

// ProposalNotifier доставляет события семье. Доставка best-effort:
// ошибки логируются реализацией и не возвращаются.
type ProposalNotifier interface {
	NotifyProposal(ctx context.Context, event ProposalEvent)
}

// WebSocketMessage определяет структуру сообщения для WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"`
	FamilyID  string      `json:"family_id"`
	SenderID  string      `json:"sender_id,omitempty"`
	Message   interface{} `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
