package services

import (
	"PinguinGuard/clock"
	"PinguinGuard/interfaces"
	"PinguinGuard/metrics"
	"PinguinGuard/models"
	"PinguinGuard/repositories"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Decision ответ второго опекуна на предложение.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDecline Decision = "decline"
)

const (
	systemActor         = "system"
	supersededMessage   = "superseded by an emergency safety change"
	maxJustificationLen = 1000
	maxMessageLen       = 500
	maxSignAttempts     = 3
)

type CreateProposalRequest struct {
	ChildID       string            `json:"child_id"`
	ChangeType    models.ChangeType `json:"change_type"`
	Value         json.RawMessage   `json:"value"`
	Justification string            `json:"justification"`
	// CoGuardianID обязателен для соглашений, если у ребенка больше двух опекунов.
	CoGuardianID string `json:"co_guardian_id"`
	// IncludeChild по умолчанию true: ребенок подписывает соглашение последним.
	IncludeChild *bool `json:"include_child"`
}

type CreateProposalResult struct {
	// Applied: изменение защитное и записано сразу, предложение не создавалось.
	Applied  bool                   `json:"applied"`
	Proposal *models.ChangeProposal `json:"proposal,omitempty"`
	Settings *models.ChildSettings  `json:"settings,omitempty"`
}

// ProposalService операции над предложениями. Каждая операция выполняется
// в одной транзакции: сначала просроченные переходы, затем действие вызывающего.
type ProposalService struct {
	Store       repositories.Store
	Eligibility *EligibilityGuard
	Cooling     *CoolingPeriodScheduler
	Signatures  *SignatureCollector
	Applier     SettingsApplier
	Audit       *AuditEmitter
	Clock       clock.Clock
	Metrics     *metrics.Metrics
	Notifiers   []interfaces.ProposalNotifier
	NewID       func() string
}

func NewProposalService(store repositories.Store, directory repositories.ChildDirectory, c clock.Clock) *ProposalService {
	return &ProposalService{
		Store:       store,
		Eligibility: NewEligibilityGuard(directory),
		Cooling:     NewCoolingPeriodScheduler(c),
		Signatures:  NewSignatureCollector(c),
		Audit:       NewAuditEmitter(c),
		Clock:       c,
		NewID:       uuid.NewString,
	}
}

// effects собирает то, что делается только после коммита.
type effects struct {
	transitions []models.ProposalStatus
	emergency   []models.ChangeType
	events      []interfaces.ProposalEvent
}

func (fx *effects) event(p models.ChangeProposal, eventType, actorID string, recipients []string, now time.Time) {
	fx.events = append(fx.events, interfaces.ProposalEvent{
		Type:       eventType,
		ProposalID: p.ID,
		ChildID:    p.ChildID,
		FamilyID:   p.FamilyID,
		ChangeType: string(p.ChangeType),
		Status:     string(p.Status),
		ActorID:    actorID,
		Recipients: recipients,
		Timestamp:  now,
	})
}

// rejection означает отказ, при котором уже выполненные ленивые переходы все равно фиксируются.
type rejection struct{ err error }

func (r rejection) Error() string { return r.err.Error() }

func reject(err error) error { return rejection{err: err} }

func (s *ProposalService) inTx(ctx context.Context, fn func(tx repositories.Store, fx *effects) error) error {
	var fx *effects
	var rejected error
	err := s.Store.Transaction(ctx, func(tx repositories.Store) error {
		fx = &effects{}
		rejected = nil
		err := fn(tx, fx)
		var r rejection
		if errors.As(err, &r) {
			rejected = r.err
			return nil
		}
		return err
	})
	if err != nil {
		return WrapInternal("transaction", err)
	}
	s.flush(ctx, fx)
	return rejected
}

func (s *ProposalService) flush(ctx context.Context, fx *effects) {
	if fx == nil {
		return
	}
	for _, to := range fx.transitions {
		s.Metrics.Transition(to)
	}
	for _, changeType := range fx.emergency {
		s.Metrics.EmergencyApplied(changeType)
	}
	for _, event := range fx.events {
		notify(ctx, s.Notifiers, event)
	}
}

func notify(ctx context.Context, notifiers []interfaces.ProposalNotifier, event interfaces.ProposalEvent) {
	for _, n := range notifiers {
		if n != nil {
			n.NotifyProposal(ctx, event)
		}
	}
}

func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, repositories.ErrConflict):
		return &ServiceError{Code: CodeFailedPrecondition, Message: "proposal was modified concurrently", Err: err}
	case errors.Is(err, repositories.ErrOpenProposalExists):
		return &ServiceError{Code: CodeFailedPrecondition, Message: "an open proposal for this setting already exists", Err: err}
	case errors.Is(err, repositories.ErrNotFound):
		return &ServiceError{Code: CodeNotFound, Message: "proposal not found", Err: err}
	}
	return WrapInternal(op, err)
}

func familyRecipients(record models.ChildRecord, actorID string, includeChild bool) []string {
	var out []string
	for _, g := range record.OtherGuardians(actorID) {
		out = append(out, g.UID)
	}
	if includeChild && record.ChildID != actorID {
		out = append(out, record.ChildID)
	}
	return out
}

func describeChange(from, to models.ChangeValue) string {
	oldJSON, _ := json.Marshal(from.Payload())
	newJSON, _ := json.Marshal(to.Payload())
	return fmt.Sprintf("%s -> %s", oldJSON, newJSON)
}

func (s *ProposalService) load(ctx context.Context, tx repositories.Store, id string) (models.ChangeProposal, error) {
	if id == "" {
		return models.ChangeProposal{}, NewError(CodeInvalidArgument, "proposal id is required")
	}
	p, err := tx.Proposals().FindByIDForUpdate(ctx, id)
	if err != nil {
		return models.ChangeProposal{}, storeErr("load proposal", err)
	}
	return p, nil
}

func (s *ProposalService) save(ctx context.Context, tx repositories.Store, p *models.ChangeProposal) error {
	if err := tx.Proposals().Update(ctx, p); err != nil {
		return storeErr("save proposal", err)
	}
	return nil
}

// activate записывает настройку и сохраняет переход в active в транзакции tx.
func (s *ProposalService) activate(ctx context.Context, tx repositories.Store, p *models.ChangeProposal, actorID string) error {
	at := s.Clock.Now()
	if p.ActiveAt != nil {
		at = *p.ActiveAt
	}
	if _, err := s.Applier.ApplyChange(ctx, tx.Settings(), p.ChildID, p.ProposedValue, at); err != nil {
		return WrapInternal("apply setting", err)
	}
	return s.Audit.Record(ctx, tx.Audit(), models.AuditEvent{
		Type:       models.AuditSettingApplied,
		ActorID:    actorID,
		ChildID:    p.ChildID,
		FamilyID:   p.FamilyID,
		ProposalID: p.ID,
		ChangeType: p.ChangeType,
		Details:    describeChange(p.OriginalValue, p.ProposedValue),
		CreatedAt:  at,
	})
}

// promote выполняет переходы, срок которых наступил. Любой путь, который
// читает или меняет предложение, вызывает его до действия вызывающего.
func (s *ProposalService) promote(ctx context.Context, tx repositories.Store, p *models.ChangeProposal, now time.Time, fx *effects) error {
	from := p.Status
	changed, err := p.Promote(now)
	if err != nil {
		return WrapInternal("promote proposal", err)
	}
	if !changed {
		return nil
	}
	if err := s.save(ctx, tx, p); err != nil {
		return err
	}
	if p.Status == models.StatusActive {
		if err := s.activate(ctx, tx, p, systemActor); err != nil {
			return err
		}
	}
	if err := s.Audit.RecordTransition(ctx, tx.Audit(), *p, from, systemActor); err != nil {
		return WrapInternal("audit transition", err)
	}
	log.Printf("[PROPOSAL] %s: %s -> %s", p.ID, from, p.Status)
	fx.transitions = append(fx.transitions, p.Status)
	fx.event(*p, interfaces.EventProposalUpdated, systemActor, nil, now)
	return nil
}

// supersede закрывает открытое предложение, вытесненное экстренным изменением.
func (s *ProposalService) supersede(ctx context.Context, tx repositories.Store, p *models.ChangeProposal, now time.Time, fx *effects) error {
	from := p.Status
	var err error
	switch p.Status {
	case models.StatusPending:
		err = p.Decline(systemActor, supersededMessage, now)
	case models.StatusCoolingInProgress:
		err = p.CancelCooling(systemActor, now)
	default:
		return nil
	}
	if err != nil {
		return WrapInternal("supersede proposal", err)
	}
	if err := s.save(ctx, tx, p); err != nil {
		return err
	}
	if err := s.Audit.RecordTransition(ctx, tx.Audit(), *p, from, systemActor); err != nil {
		return WrapInternal("audit transition", err)
	}
	log.Printf("[PROPOSAL] %s: %s -> %s (вытеснено экстренным изменением)", p.ID, from, p.Status)
	fx.transitions = append(fx.transitions, p.Status)
	fx.event(*p, interfaces.EventProposalUpdated, systemActor, nil, now)
	return nil
}

// CreateProposal открывает предложение или, для строго защитного изменения
// настройки безопасности, сразу применяет его.
func (s *ProposalService) CreateProposal(ctx context.Context, callerID string, req CreateProposalRequest) (CreateProposalResult, error) {
	if !req.ChangeType.IsValid() {
		return CreateProposalResult{}, NewError(CodeInvalidArgument, "unknown change type %q", req.ChangeType)
	}
	value, err := models.ParseChangeValue(req.ChangeType, req.Value)
	if err != nil {
		return CreateProposalResult{}, &ServiceError{Code: CodeInvalidArgument, Message: "invalid value", Err: err}
	}
	if len(req.Justification) > maxJustificationLen {
		return CreateProposalResult{}, NewError(CodeInvalidArgument, "justification is too long")
	}

	record, err := s.Eligibility.CanPropose(ctx, callerID, req.ChildID)
	if err != nil {
		return CreateProposalResult{}, err
	}

	var result CreateProposalResult
	err = s.inTx(ctx, func(tx repositories.Store, fx *effects) error {
		now := s.Clock.Now()

		var open models.ChangeProposal
		openExists := false
		if found, err := tx.Proposals().FindOpen(ctx, req.ChildID, req.ChangeType); err == nil {
			open = found
			if err := s.promote(ctx, tx, &open, now, fx); err != nil {
				return err
			}
			openExists = !open.Status.IsTerminal()
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return WrapInternal("find open proposal", err)
		}

		settings, err := tx.Settings().GetForUpdate(ctx, req.ChildID)
		if err != nil {
			return WrapInternal("load settings", err)
		}
		current, err := settings.Current(value)
		if err != nil {
			return NewError(CodeInvalidArgument, "%v", err)
		}
		if current.Equal(value) {
			return reject(NewError(CodeInvalidArgument, "proposed value equals the current value"))
		}

		if req.ChangeType.IsSafetySetting() && IsEmergencySafetyIncrease(req.ChangeType, current, value) {
			updated, err := s.Applier.ApplyChange(ctx, tx.Settings(), req.ChildID, value, now)
			if err != nil {
				return WrapInternal("apply emergency change", err)
			}
			if err := s.Audit.Record(ctx, tx.Audit(), models.AuditEvent{
				Type:       models.AuditEmergencyApplied,
				ActorID:    callerID,
				ChildID:    req.ChildID,
				FamilyID:   record.FamilyID,
				ChangeType: req.ChangeType,
				Details:    describeChange(current, value),
				CreatedAt:  now,
			}); err != nil {
				return WrapInternal("audit emergency change", err)
			}
			// Открытое предложение с более мягким значением после активации
			// отменило бы ужесточение, поэтому оно закрывается.
			if openExists && open.ProposedValue.App == value.App {
				if err := s.supersede(ctx, tx, &open, now, fx); err != nil {
					return err
				}
			}
			log.Printf("[PROPOSAL] Экстренное ужесточение %s для ребенка %s применено сразу (опекун %s)",
				req.ChangeType, req.ChildID, callerID)
			result = CreateProposalResult{Applied: true, Settings: &updated}
			fx.emergency = append(fx.emergency, req.ChangeType)
			fx.events = append(fx.events, interfaces.ProposalEvent{
				Type:       interfaces.EventEmergencyApplied,
				ChildID:    req.ChildID,
				FamilyID:   record.FamilyID,
				ChangeType: string(req.ChangeType),
				ActorID:    callerID,
				Recipients: familyRecipients(record, callerID, false),
				Timestamp:  now,
			})
			return nil
		}

		// Экстренное ужесточение выше не блокируется открытым предложением.
		if openExists {
			return reject(NewError(CodeFailedPrecondition, "an open proposal for this setting already exists"))
		}
		others := record.OtherGuardians(callerID)
		if len(others) == 0 {
			return reject(NewError(CodeFailedPrecondition, "a second guardian is required to approve this change"))
		}

		if last, err := tx.Proposals().LatestClosed(ctx, req.ChildID, req.ChangeType); err == nil {
			if last.ClosedAt != nil {
				if retryAt := last.ClosedAt.Add(models.ReproposalCooldown); now.Before(retryAt) {
					return reject(NewError(CodeFailedPrecondition,
						"this setting was proposed recently; try again after %s", retryAt.Format(time.RFC3339)))
				}
			}
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return WrapInternal("find latest closed proposal", err)
		}

		proposal := models.ChangeProposal{
			ID:            s.NewID(),
			ChildID:       req.ChildID,
			FamilyID:      record.FamilyID,
			ProposedBy:    callerID,
			ChangeType:    req.ChangeType,
			OriginalValue: current,
			ProposedValue: value,
			Justification: req.Justification,
			Status:        models.StatusPending,
			CreatedAt:     now,
			ExpiresAt:     now.Add(models.ProposalTTL),
			Signatures:    []models.Signature{},
		}
		if req.ChangeType.IsAgreement() {
			coGuardian, err := pickCoGuardian(others, req.CoGuardianID)
			if err != nil {
				return err
			}
			includeChild := req.IncludeChild == nil || *req.IncludeChild
			proposal.Signatures = models.NewSignatureSlots(callerID, coGuardian, req.ChildID, includeChild)
		}
		openKey := models.OpenKeyFor(req.ChildID, req.ChangeType)
		proposal.OpenKey = &openKey
		proposal.RefreshDueAt()

		if err := tx.Proposals().Create(ctx, &proposal); err != nil {
			return storeErr("create proposal", err)
		}
		if err := s.Audit.Record(ctx, tx.Audit(), models.AuditEvent{
			Type:       models.AuditProposalCreated,
			ActorID:    callerID,
			ChildID:    proposal.ChildID,
			FamilyID:   proposal.FamilyID,
			ProposalID: proposal.ID,
			ChangeType: proposal.ChangeType,
			ToStatus:   proposal.Status,
			Details:    describeChange(current, value),
			CreatedAt:  now,
		}); err != nil {
			return WrapInternal("audit proposal created", err)
		}
		log.Printf("[PROPOSAL] Создано предложение %s (%s) для ребенка %s опекуном %s",
			proposal.ID, proposal.ChangeType, proposal.ChildID, callerID)

		result = CreateProposalResult{Proposal: &proposal}
		fx.transitions = append(fx.transitions, models.StatusPending)
		fx.event(proposal, interfaces.EventProposalCreated, callerID, familyRecipients(record, callerID, false), now)
		return nil
	})
	if err != nil {
		return CreateProposalResult{}, err
	}
	return result, nil
}

func pickCoGuardian(others []models.GuardianRef, requested string) (string, error) {
	if requested == "" {
		if len(others) == 1 {
			return others[0].UID, nil
		}
		return "", NewError(CodeInvalidArgument, "co_guardian_id is required when the child has more than two guardians")
	}
	for _, g := range others {
		if g.UID == requested {
			return requested, nil
		}
	}
	return "", NewError(CodeInvalidArgument, "co_guardian_id is not another guardian of this child")
}

// RespondToProposal фиксирует одобрение или отклонение предложения вторым опекуном.
// Одобренное предложение сразу уходит в охлаждение или на сбор подписей.
func (s *ProposalService) RespondToProposal(ctx context.Context, callerID, proposalID string, decision Decision, message string) (models.ChangeProposal, error) {
	if decision != DecisionApprove && decision != DecisionDecline {
		return models.ChangeProposal{}, NewError(CodeInvalidArgument, "decision must be approve or decline")
	}
	if len(message) > maxMessageLen {
		return models.ChangeProposal{}, NewError(CodeInvalidArgument, "message is too long")
	}

	var result models.ChangeProposal
	err := s.inTx(ctx, func(tx repositories.Store, fx *effects) error {
		now := s.Clock.Now()
		p, err := s.load(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		record, err := s.Eligibility.CanRespond(ctx, callerID, p)
		if err != nil {
			return err
		}
		if err := s.promote(ctx, tx, &p, now, fx); err != nil {
			return err
		}
		if p.Status != models.StatusPending {
			if p.Status == models.StatusExpired {
				return reject(NewError(CodeFailedPrecondition, "proposal has expired"))
			}
			return reject(NewError(CodeFailedPrecondition, "proposal is %s, not pending", p.Status))
		}

		from := p.Status
		switch decision {
		case DecisionApprove:
			err = p.Approve(callerID, now)
		default:
			err = p.Decline(callerID, message, now)
		}
		if err != nil {
			return reject(NewError(CodeFailedPrecondition, "%v", err))
		}
		if err := s.save(ctx, tx, &p); err != nil {
			return err
		}
		if err := s.Audit.Record(ctx, tx.Audit(), models.AuditEvent{
			Type:       models.AuditProposalTransition,
			ActorID:    callerID,
			ChildID:    p.ChildID,
			FamilyID:   p.FamilyID,
			ProposalID: p.ID,
			ChangeType: p.ChangeType,
			FromStatus: from,
			ToStatus:   p.Status,
			Details:    string(decision),
			CreatedAt:  now,
		}); err != nil {
			return WrapInternal("audit response", err)
		}
		log.Printf("[PROPOSAL] %s: %s опекуном %s, статус %s", p.ID, decision, callerID, p.Status)

		if decision == DecisionApprove {
			fx.transitions = append(fx.transitions, models.StatusApproved)
		}
		fx.transitions = append(fx.transitions, p.Status)
		fx.event(p, interfaces.EventProposalUpdated, callerID, familyRecipients(record, callerID, p.HasChildSlot()), now)
		result = p
		return nil
	})
	if err != nil {
		return models.ChangeProposal{}, err
	}
	return result, nil
}

// CancelCoolingPeriod отменяет изменение в окне охлаждения. Доступно любому опекуну.
// Настройку откатывать не нужно: в окне она не записывалась.
func (s *ProposalService) CancelCoolingPeriod(ctx context.Context, callerID, proposalID string) (models.ChangeProposal, error) {
	var result models.ChangeProposal
	err := s.inTx(ctx, func(tx repositories.Store, fx *effects) error {
		now := s.Clock.Now()
		p, err := s.load(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		record, err := s.Eligibility.CanCancel(ctx, callerID, p)
		if err != nil {
			return err
		}
		if err := s.promote(ctx, tx, &p, now, fx); err != nil {
			return err
		}
		if !s.Cooling.CanCancelAt(p, now) {
			return reject(NewError(CodeFailedPrecondition, "cooling period cannot be cancelled: proposal is %s", p.Status))
		}

		from := p.Status
		if err := p.CancelCooling(callerID, now); err != nil {
			return reject(NewError(CodeFailedPrecondition, "%v", err))
		}
		if p.Dispute.IsOpen() {
			resolved := now
			p.Dispute.ResolvedAt = &resolved
			p.Dispute.ResolvedBy = callerID
		}
		if err := s.save(ctx, tx, &p); err != nil {
			return err
		}
		if err := s.Audit.RecordTransition(ctx, tx.Audit(), p, from, callerID); err != nil {
			return WrapInternal("audit cancellation", err)
		}
		log.Printf("[COOLING] %s: охлаждение отменено опекуном %s", p.ID, callerID)

		fx.transitions = append(fx.transitions, p.Status)
		fx.event(p, interfaces.EventProposalUpdated, callerID, familyRecipients(record, callerID, false), now)
		result = p
		return nil
	})
	if err != nil {
		return models.ChangeProposal{}, err
	}
	return result, nil
}

// SignProposal записывает подпись. Последняя подпись переводит предложение
// в active и записывает условие соглашения в той же транзакции.
func (s *ProposalService) SignProposal(ctx context.Context, callerID string, signerType models.SignerType, proposalID, confirmation string) (models.ChangeProposal, error) {
	if !s.Signatures.ConfirmationMatches(confirmation) {
		return models.ChangeProposal{}, NewError(CodeInvalidArgument, "confirmation text must be exactly %q", ConfirmationPhrase)
	}

	var result models.ChangeProposal
	var err error
	// Подписи разных участников независимы: проигравший CAS перечитывает свежий снимок.
	for attempt := 0; attempt < maxSignAttempts; attempt++ {
		result, err = s.signOnce(ctx, callerID, signerType, proposalID, confirmation)
		if err == nil || !errors.Is(err, repositories.ErrConflict) {
			break
		}
		log.Printf("[SIGNATURE] %s: конфликт записи, повтор %d", proposalID, attempt+1)
	}
	return result, err
}

func (s *ProposalService) signOnce(ctx context.Context, callerID string, signerType models.SignerType, proposalID, confirmation string) (models.ChangeProposal, error) {
	var result models.ChangeProposal
	err := s.inTx(ctx, func(tx repositories.Store, fx *effects) error {
		now := s.Clock.Now()
		p, err := s.load(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		if err := s.Eligibility.CanSign(ctx, callerID, signerType, p); err != nil {
			return err
		}
		if err := s.promote(ctx, tx, &p, now, fx); err != nil {
			return err
		}

		completed, err := s.Signatures.Sign(&p, callerID, signerType, confirmation, now)
		if err != nil {
			return reject(err)
		}
		from := p.Status
		if completed {
			if err := p.Activate(now); err != nil {
				return reject(NewError(CodeFailedPrecondition, "%v", err))
			}
		}
		if err := s.save(ctx, tx, &p); err != nil {
			return err
		}
		if err := s.Audit.Record(ctx, tx.Audit(), models.AuditEvent{
			Type:       models.AuditSignatureRecorded,
			ActorID:    callerID,
			ChildID:    p.ChildID,
			FamilyID:   p.FamilyID,
			ProposalID: p.ID,
			ChangeType: p.ChangeType,
			Details:    string(signerType),
			CreatedAt:  now,
		}); err != nil {
			return WrapInternal("audit signature", err)
		}
		log.Printf("[SIGNATURE] %s: подпись %s (%s) записана", p.ID, callerID, signerType)

		if completed {
			if err := s.activate(ctx, tx, &p, callerID); err != nil {
				return err
			}
			if err := s.Audit.RecordTransition(ctx, tx.Audit(), p, from, callerID); err != nil {
				return WrapInternal("audit activation", err)
			}
			log.Printf("[SIGNATURE] %s: все подписи собраны, соглашение вступило в силу", p.ID)
			fx.transitions = append(fx.transitions, p.Status)
		}
		fx.event(p, interfaces.EventProposalUpdated, callerID, nil, now)
		result = p
		return nil
	})
	if err != nil {
		return models.ChangeProposal{}, err
	}
	return result, nil
}

// DisputeProposal фиксирует спор в окне охлаждения. Статус и таймер не меняются.
func (s *ProposalService) DisputeProposal(ctx context.Context, callerID, proposalID, reason string) (models.ChangeProposal, error) {
	if len(reason) > maxMessageLen {
		return models.ChangeProposal{}, NewError(CodeInvalidArgument, "reason is too long")
	}
	var result models.ChangeProposal
	err := s.inTx(ctx, func(tx repositories.Store, fx *effects) error {
		now := s.Clock.Now()
		p, err := s.load(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		record, err := s.Eligibility.CanCancel(ctx, callerID, p)
		if err != nil {
			return err
		}
		if err := s.promote(ctx, tx, &p, now, fx); err != nil {
			return err
		}
		if !s.Cooling.CanCancelAt(p, now) {
			return reject(NewError(CodeFailedPrecondition, "only a proposal in its cooling period can be disputed"))
		}
		if p.Dispute.IsOpen() {
			return reject(NewError(CodeFailedPrecondition, "proposal is already disputed"))
		}

		p.Dispute = &models.Dispute{DisputedAt: now, DisputedBy: callerID, Reason: reason}
		if err := s.save(ctx, tx, &p); err != nil {
			return err
		}
		if err := s.Audit.Record(ctx, tx.Audit(), models.AuditEvent{
			Type:       models.AuditProposalDisputed,
			ActorID:    callerID,
			ChildID:    p.ChildID,
			FamilyID:   p.FamilyID,
			ProposalID: p.ID,
			ChangeType: p.ChangeType,
			Details:    reason,
			CreatedAt:  now,
		}); err != nil {
			return WrapInternal("audit dispute", err)
		}
		log.Printf("[COOLING] %s: спор открыт опекуном %s", p.ID, callerID)

		fx.event(p, interfaces.EventProposalDisputed, callerID, familyRecipients(record, callerID, false), now)
		result = p
		return nil
	})
	if err != nil {
		return models.ChangeProposal{}, err
	}
	return result, nil
}

func (s *ProposalService) ResolveDispute(ctx context.Context, callerID, proposalID string) (models.ChangeProposal, error) {
	var result models.ChangeProposal
	err := s.inTx(ctx, func(tx repositories.Store, fx *effects) error {
		now := s.Clock.Now()
		p, err := s.load(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		record, err := s.Eligibility.CanCancel(ctx, callerID, p)
		if err != nil {
			return err
		}
		if err := s.promote(ctx, tx, &p, now, fx); err != nil {
			return err
		}
		if !p.Dispute.IsOpen() {
			return reject(NewError(CodeFailedPrecondition, "proposal has no open dispute"))
		}

		resolved := now
		p.Dispute.ResolvedAt = &resolved
		p.Dispute.ResolvedBy = callerID
		if err := s.save(ctx, tx, &p); err != nil {
			return err
		}
		if err := s.Audit.Record(ctx, tx.Audit(), models.AuditEvent{
			Type:       models.AuditDisputeResolved,
			ActorID:    callerID,
			ChildID:    p.ChildID,
			FamilyID:   p.FamilyID,
			ProposalID: p.ID,
			ChangeType: p.ChangeType,
			CreatedAt:  now,
		}); err != nil {
			return WrapInternal("audit dispute resolution", err)
		}

		fx.event(p, interfaces.EventProposalUpdated, callerID, familyRecipients(record, callerID, false), now)
		result = p
		return nil
	})
	if err != nil {
		return models.ChangeProposal{}, err
	}
	return result, nil
}

// GetProposal возвращает предложение после ленивого продвижения.
func (s *ProposalService) GetProposal(ctx context.Context, callerID, proposalID string) (models.ChangeProposal, error) {
	var result models.ChangeProposal
	err := s.inTx(ctx, func(tx repositories.Store, fx *effects) error {
		p, err := s.load(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		if _, err := s.Eligibility.CanView(ctx, callerID, p.ChildID); err != nil {
			return err
		}
		if err := s.promote(ctx, tx, &p, s.Clock.Now(), fx); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return models.ChangeProposal{}, err
	}
	return result, nil
}

func (s *ProposalService) ListProposals(ctx context.Context, callerID, childID string) ([]models.ChangeProposal, error) {
	if _, err := s.Eligibility.CanView(ctx, callerID, childID); err != nil {
		return nil, err
	}
	var result []models.ChangeProposal
	err := s.inTx(ctx, func(tx repositories.Store, fx *effects) error {
		list, err := s.promoteChild(ctx, tx, childID, s.Clock.Now(), fx)
		if err != nil {
			return err
		}
		result = list
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = []models.ChangeProposal{}
	}
	return result, nil
}

// GetSettings возвращает текущие настройки ребенка. Сначала продвигаются
// предложения ребенка, чтобы истекшее охлаждение уже было применено.
func (s *ProposalService) GetSettings(ctx context.Context, callerID, childID string) (models.ChildSettings, error) {
	if _, err := s.Eligibility.CanView(ctx, callerID, childID); err != nil {
		return models.ChildSettings{}, err
	}
	var result models.ChildSettings
	err := s.inTx(ctx, func(tx repositories.Store, fx *effects) error {
		if _, err := s.promoteChild(ctx, tx, childID, s.Clock.Now(), fx); err != nil {
			return err
		}
		settings, err := tx.Settings().Get(ctx, childID)
		if err != nil {
			return WrapInternal("load settings", err)
		}
		result = settings
		return nil
	})
	if err != nil {
		return models.ChildSettings{}, err
	}
	return result, nil
}

func (s *ProposalService) promoteChild(ctx context.Context, tx repositories.Store, childID string, now time.Time, fx *effects) ([]models.ChangeProposal, error) {
	list, err := tx.Proposals().ListByChild(ctx, childID)
	if err != nil {
		return nil, WrapInternal("list proposals", err)
	}
	for i := range list {
		if list[i].Status.IsTerminal() {
			continue
		}
		if err := s.promote(ctx, tx, &list[i], now, fx); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// PromoteDue продвигает предложения с наступившим сроком. Используется
// фоновым обходом; корректность от него не зависит.
func (s *ProposalService) PromoteDue(ctx context.Context, limit int) (int, error) {
	ids, err := s.Store.Proposals().ListDue(ctx, s.Clock.Now(), limit)
	if err != nil {
		return 0, WrapInternal("list due proposals", err)
	}
	promoted := 0
	for _, id := range ids {
		changed := false
		err := s.inTx(ctx, func(tx repositories.Store, fx *effects) error {
			p, err := s.load(ctx, tx, id)
			if err != nil {
				return err
			}
			before := p.Status
			if err := s.promote(ctx, tx, &p, s.Clock.Now(), fx); err != nil {
				return err
			}
			changed = p.Status != before
			return nil
		})
		if err != nil {
			log.Printf("[SWEEP] Ошибка продвижения предложения %s: %v", id, err)
			continue
		}
		if changed {
			promoted++
		}
	}
	return promoted, nil
}
