package services

import (
	"PinguinGuard/clock"
	"PinguinGuard/models"
	"PinguinGuard/repositories"
	"context"
	"fmt"
	"log"
)

// AuditEmitter пишет события жизненного цикла и сигналы злоупотреблений.
// Репозиторий передается явно, чтобы запись шла в транзакции вызывающего.
type AuditEmitter struct {
	Clock clock.Clock
}

func NewAuditEmitter(c clock.Clock) *AuditEmitter {
	return &AuditEmitter{Clock: c}
}

func (a *AuditEmitter) Record(ctx context.Context, repo repositories.AuditRepository, event models.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = a.Clock.Now()
	}
	if err := repo.Append(ctx, &event); err != nil {
		return fmt.Errorf("append audit event %s: %w", event.Type, err)
	}
	log.Printf("[AUDIT] %s child=%s proposal=%s actor=%s %s->%s",
		event.Type, event.ChildID, event.ProposalID, event.ActorID, event.FromStatus, event.ToStatus)
	return nil
}

func (a *AuditEmitter) RecordTransition(ctx context.Context, repo repositories.AuditRepository, proposal models.ChangeProposal, from models.ProposalStatus, actorID string) error {
	return a.Record(ctx, repo, models.AuditEvent{
		Type:       models.AuditProposalTransition,
		ActorID:    actorID,
		ChildID:    proposal.ChildID,
		FamilyID:   proposal.FamilyID,
		ProposalID: proposal.ID,
		ChangeType: proposal.ChangeType,
		FromStatus: from,
		ToStatus:   proposal.Status,
	})
}

// RecordBlockedAttempt сохраняет запись о заблокированной попытке и событие аудита к ней.
func (a *AuditEmitter) RecordBlockedAttempt(ctx context.Context, repo repositories.AuditRepository, record models.BlockedAttemptRecord) error {
	if record.Timestamp.IsZero() {
		record.Timestamp = a.Clock.Now()
	}
	if err := repo.AppendBlockedAttempt(ctx, &record); err != nil {
		return fmt.Errorf("append blocked attempt: %w", err)
	}
	return a.Record(ctx, repo, models.AuditEvent{
		Type:      models.AuditPermissionBlocked,
		ActorID:   record.AttemptedBy,
		ChildID:   record.ChildID,
		FamilyID:  record.FamilyID,
		Details:   fmt.Sprintf("target=%s %s->%s custody=%s", record.TargetGuardian, record.CurrentPermissions, record.RequestedPermissions, record.CustodyType),
		CreatedAt: record.Timestamp,
	})
}
