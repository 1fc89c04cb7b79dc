package services

import (
	"PinguinGuard/clock"
	"PinguinGuard/models"
	"crypto/subtle"
	"fmt"
	"time"
)

// ConfirmationPhrase должна совпасть побайтно.
const ConfirmationPhrase = "I agree to this change"

const (
	ReasonNotAwaitingSignatures = "proposal is not awaiting signatures"
	ReasonNoSignatureSlot       = "caller has no signature slot on this proposal"
	ReasonAlreadySigned         = "signature already recorded"
	ReasonSignatureDeadline     = "signature deadline has passed"
)

type SignCheck struct {
	CanSign bool   `json:"can_sign"`
	Reason  string `json:"reason,omitempty"`
}

// SignatureCollector ведет сбор подписей: сначала оба родителя, затем ребенок.
type SignatureCollector struct {
	Clock clock.Clock
}

func NewSignatureCollector(c clock.Clock) *SignatureCollector {
	return &SignatureCollector{Clock: c}
}

func (c *SignatureCollector) CanSignAgreementChange(proposal models.ChangeProposal, callerID string, signerType models.SignerType) SignCheck {
	return c.canSignAt(proposal, callerID, signerType, c.Clock.Now())
}

func (c *SignatureCollector) canSignAt(proposal models.ChangeProposal, callerID string, signerType models.SignerType, now time.Time) SignCheck {
	if proposal.Status != models.StatusAwaitingSignatures {
		return SignCheck{Reason: ReasonNotAwaitingSignatures}
	}
	if proposal.SignatureDeadline != nil && !now.Before(*proposal.SignatureDeadline) {
		return SignCheck{Reason: ReasonSignatureDeadline}
	}
	idx := proposal.SlotIndex(callerID, signerType)
	if idx < 0 {
		return SignCheck{Reason: ReasonNoSignatureSlot}
	}
	if proposal.Signatures[idx].Status == models.SignatureSigned {
		return SignCheck{Reason: ReasonAlreadySigned}
	}
	if signerType == models.SignerChild {
		if pending := proposal.PendingParentSignatures(); pending > 0 {
			return SignCheck{Reason: fmt.Sprintf("waiting for %d pending parent signatures", pending)}
		}
	}
	return SignCheck{CanSign: true}
}

func (c *SignatureCollector) AllSignaturesCollected(proposal models.ChangeProposal) bool {
	return proposal.AllSigned()
}

func (c *SignatureCollector) ConfirmationMatches(confirmation string) bool {
	return subtle.ConstantTimeCompare([]byte(confirmation), []byte(ConfirmationPhrase)) == 1
}

// Sign записывает подпись в слот. Возвращает true, если эта подпись была последней.
func (c *SignatureCollector) Sign(proposal *models.ChangeProposal, callerID string, signerType models.SignerType, confirmation string, now time.Time) (bool, error) {
	if !c.ConfirmationMatches(confirmation) {
		return false, NewError(CodeInvalidArgument, "confirmation text must be exactly %q", ConfirmationPhrase)
	}
	check := c.canSignAt(*proposal, callerID, signerType, now)
	if !check.CanSign {
		return false, NewError(CodeFailedPrecondition, "%s", check.Reason)
	}
	if err := proposal.Sign(proposal.SlotIndex(callerID, signerType), now); err != nil {
		return false, NewError(CodeFailedPrecondition, "%v", err)
	}
	return proposal.AllSigned(), nil
}
