package services

import (
	"PinguinGuard/models"
	"PinguinGuard/repositories"
	"context"
	"errors"
)

// EligibilityGuard проверяет, может ли вызывающий действовать в отношении ребенка.
type EligibilityGuard struct {
	Directory repositories.ChildDirectory
}

func NewEligibilityGuard(directory repositories.ChildDirectory) *EligibilityGuard {
	return &EligibilityGuard{Directory: directory}
}

func (g *EligibilityGuard) child(ctx context.Context, childID string) (models.ChildRecord, error) {
	if childID == "" {
		return models.ChildRecord{}, NewError(CodeInvalidArgument, "child_id is required")
	}
	record, err := g.Directory.GetChild(ctx, childID)
	if errors.Is(err, repositories.ErrNotFound) {
		return models.ChildRecord{}, NewError(CodeNotFound, "child not found")
	}
	if err != nil {
		return models.ChildRecord{}, WrapInternal("load child", err)
	}
	return record, nil
}

// CanPropose: вызывающий должен быть опекуном ребенка.
func (g *EligibilityGuard) CanPropose(ctx context.Context, callerID, childID string) (models.ChildRecord, error) {
	record, err := g.child(ctx, childID)
	if err != nil {
		return models.ChildRecord{}, err
	}
	if !record.IsGuardian(callerID) {
		return models.ChildRecord{}, NewError(CodePermissionDenied, "caller is not a guardian of this child")
	}
	return record, nil
}

// CanView: опекун семьи или сам ребенок.
func (g *EligibilityGuard) CanView(ctx context.Context, callerID, childID string) (models.ChildRecord, error) {
	record, err := g.child(ctx, childID)
	if err != nil {
		return models.ChildRecord{}, err
	}
	if callerID != record.ChildID && !record.IsGuardian(callerID) {
		return models.ChildRecord{}, NewError(CodePermissionDenied, "caller is not a member of this family")
	}
	return record, nil
}

// CanRespond: ответить может только другой опекун, не автор предложения.
func (g *EligibilityGuard) CanRespond(ctx context.Context, callerID string, proposal models.ChangeProposal) (models.ChildRecord, error) {
	record, err := g.CanPropose(ctx, callerID, proposal.ChildID)
	if err != nil {
		return models.ChildRecord{}, err
	}
	if callerID == proposal.ProposedBy {
		return models.ChildRecord{}, NewError(CodePermissionDenied, "proposer cannot respond to own proposal")
	}
	return record, nil
}

// CanCancel: отменить охлаждение или открыть спор может любой из опекунов.
func (g *EligibilityGuard) CanCancel(ctx context.Context, callerID string, proposal models.ChangeProposal) (models.ChildRecord, error) {
	return g.CanPropose(ctx, callerID, proposal.ChildID)
}

// CanSign: ребенок подписывает только за себя, идентификатор должен совпадать точно.
func (g *EligibilityGuard) CanSign(ctx context.Context, callerID string, signerType models.SignerType, proposal models.ChangeProposal) error {
	switch signerType {
	case models.SignerChild:
		if callerID == "" || callerID != proposal.ChildID {
			return NewError(CodePermissionDenied, "only the child may sign as child")
		}
		return nil
	case models.SignerParent:
		_, err := g.CanPropose(ctx, callerID, proposal.ChildID)
		return err
	}
	return NewError(CodeInvalidArgument, "unknown signer type %q", signerType)
}
