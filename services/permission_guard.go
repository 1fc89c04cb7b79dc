package services

import (
	"PinguinGuard/clock"
	"PinguinGuard/interfaces"
	"PinguinGuard/metrics"
	"PinguinGuard/models"
	"PinguinGuard/repositories"
	"context"
	"errors"
	"log"
)

const (
	ReasonPermissionDowngrade = "permission_downgrade"

	downgradeGuidance = "Permissions cannot be reduced while custody is shared. Use a change proposal or contact family mediation."
)

// PermissionDecision результат проверки. Отказ не является ошибкой.
type PermissionDecision struct {
	Allowed  bool   `json:"allowed"`
	Reason   string `json:"reason,omitempty"`
	Guidance string `json:"guidance,omitempty"`
}

// RequiresRemovalProtection сообщает, что при совместной или сложной опеке права опекуна
// нельзя понизить в одностороннем порядке.
func RequiresRemovalProtection(custody models.CustodyType) bool {
	return custody == models.CustodyShared || custody == models.CustodyComplex
}

// IsPermissionDowngrade: понижением считается только full -> readonly.
func IsPermissionDowngrade(current, proposed models.Permission) bool {
	return current == models.PermissionFull && proposed == models.PermissionReadonly
}

// PermissionChangeGuard не хранит состояния и не создает предложений.
type PermissionChangeGuard struct {
	Directory repositories.ChildDirectory
	Audit     repositories.AuditRepository
	Emitter   *AuditEmitter
	Clock     clock.Clock
	Metrics   *metrics.Metrics
	Notifiers []interfaces.ProposalNotifier
}

func NewPermissionChangeGuard(directory repositories.ChildDirectory, audit repositories.AuditRepository, c clock.Clock) *PermissionChangeGuard {
	return &PermissionChangeGuard{
		Directory: directory,
		Audit:     audit,
		Emitter:   NewAuditEmitter(c),
		Clock:     c,
	}
}

func (g *PermissionChangeGuard) CheckPermissionChange(ctx context.Context, callerID, childID, targetGuardian string, requested models.Permission) (PermissionDecision, error) {
	decision, _, err := g.check(ctx, callerID, childID, targetGuardian, requested)
	return decision, err
}

// UpdateGuardianPermission проверяет изменение и, если оно разрешено, записывает его.
func (g *PermissionChangeGuard) UpdateGuardianPermission(ctx context.Context, callerID, childID, targetGuardian string, requested models.Permission) (PermissionDecision, error) {
	decision, current, err := g.check(ctx, callerID, childID, targetGuardian, requested)
	if err != nil || !decision.Allowed {
		return decision, err
	}
	if current.Permissions == requested {
		return decision, nil
	}

	if err := g.Directory.UpdateGuardianPermission(ctx, childID, targetGuardian, requested); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return PermissionDecision{}, NewError(CodeNotFound, "guardian not found")
		}
		return PermissionDecision{}, WrapInternal("update guardian permission", err)
	}
	if err := g.Emitter.Record(ctx, g.Audit, models.AuditEvent{
		Type:    models.AuditPermissionChanged,
		ActorID: callerID,
		ChildID: childID,
		Details: string(current.Permissions) + "->" + string(requested) + " target=" + targetGuardian,
	}); err != nil {
		log.Printf("[PERMISSION] Ошибка записи аудита изменения прав: %v", err)
	}
	return decision, nil
}

func (g *PermissionChangeGuard) check(ctx context.Context, callerID, childID, targetGuardian string, requested models.Permission) (PermissionDecision, models.GuardianRef, error) {
	if !requested.IsValid() {
		return PermissionDecision{}, models.GuardianRef{}, NewError(CodeInvalidArgument, "unknown permission %q", requested)
	}
	if targetGuardian == "" {
		return PermissionDecision{}, models.GuardianRef{}, NewError(CodeInvalidArgument, "target guardian is required")
	}

	record, err := NewEligibilityGuard(g.Directory).CanPropose(ctx, callerID, childID)
	if err != nil {
		return PermissionDecision{}, models.GuardianRef{}, err
	}
	target, ok := record.Guardian(targetGuardian)
	if !ok {
		return PermissionDecision{}, models.GuardianRef{}, NewError(CodeNotFound, "target guardian not found")
	}

	if !RequiresRemovalProtection(record.CustodyType) || !IsPermissionDowngrade(target.Permissions, requested) {
		return PermissionDecision{Allowed: true}, target, nil
	}

	attempt := models.BlockedAttemptRecord{
		AttemptedBy:          callerID,
		TargetGuardian:       targetGuardian,
		ChildID:              childID,
		FamilyID:             record.FamilyID,
		CustodyType:          record.CustodyType,
		RequestedPermissions: requested,
		CurrentPermissions:   target.Permissions,
		Timestamp:            g.Clock.Now(),
	}
	// Запись сигнала обязательна до ответа: без нее отказ не возвращается.
	if err := g.Emitter.RecordBlockedAttempt(ctx, g.Audit, attempt); err != nil {
		return PermissionDecision{}, models.GuardianRef{}, WrapInternal("record blocked attempt", err)
	}
	g.Metrics.DowngradeBlocked()
	log.Printf("[PERMISSION] Заблокировано понижение прав: caller=%s target=%s child=%s custody=%s",
		callerID, targetGuardian, childID, record.CustodyType)

	notify(ctx, g.Notifiers, interfaces.ProposalEvent{
		Type:       interfaces.EventPermissionBlocked,
		ChildID:    childID,
		FamilyID:   record.FamilyID,
		ActorID:    callerID,
		Recipients: []string{targetGuardian},
		Timestamp:  attempt.Timestamp,
	})

	return PermissionDecision{
		Allowed:  false,
		Reason:   ReasonPermissionDowngrade,
		Guidance: downgradeGuidance,
	}, target, nil
}
