package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)

func pendingProposal(changeType ChangeType) *ChangeProposal {
	key := OpenKeyFor("child-1", changeType)
	return &ChangeProposal{
		ID:         "p-1",
		ChildID:    "child-1",
		ProposedBy: "mom",
		ChangeType: changeType,
		Status:     StatusPending,
		CreatedAt:  testNow,
		ExpiresAt:  testNow.Add(ProposalTTL),
		OpenKey:    &key,
	}
}

func TestApproveSafetySettingStartsCooling(t *testing.T) {
	p := pendingProposal(ChangeMonitoringInterval)

	require.NoError(t, p.Approve("dad", testNow))

	assert.Equal(t, StatusCoolingInProgress, p.Status)
	require.NotNil(t, p.CoolingPeriod)
	assert.Equal(t, testNow.Add(48*time.Hour), p.CoolingPeriod.EndsAt)
	assert.Equal(t, "dad", p.RespondedBy)
	assert.NotNil(t, p.OpenKey)
}

func TestApproveAgreementAwaitsSignatures(t *testing.T) {
	p := pendingProposal(ChangeAgreementCurfew)
	p.Signatures = NewSignatureSlots("mom", "dad", "child-1", true)

	require.NoError(t, p.Approve("dad", testNow))

	assert.Equal(t, StatusAwaitingSignatures, p.Status)
	assert.Nil(t, p.CoolingPeriod)
	require.NotNil(t, p.SignatureDeadline)
	assert.Equal(t, testNow.Add(30*24*time.Hour), *p.SignatureDeadline)
	assert.Len(t, p.Signatures, 3)
}

func TestTerminalTransitionClearsOpenKey(t *testing.T) {
	p := pendingProposal(ChangeBedtimeStart)

	require.NoError(t, p.Decline("dad", "no", testNow))

	assert.Equal(t, StatusDeclined, p.Status)
	assert.Nil(t, p.OpenKey)
	require.NotNil(t, p.ClosedAt)
	assert.Equal(t, "no", p.DeclineMessage)
}

func TestTransitionsNeverGoBackward(t *testing.T) {
	p := pendingProposal(ChangeMonitoringInterval)
	require.NoError(t, p.Approve("dad", testNow))
	require.NoError(t, p.CancelCooling("mom", testNow.Add(time.Hour)))

	assert.ErrorIs(t, p.Approve("dad", testNow), ErrInvalidTransition)
	assert.ErrorIs(t, p.Activate(testNow), ErrInvalidTransition)
	assert.ErrorIs(t, p.CancelCooling("dad", testNow), ErrInvalidTransition)
	assert.Equal(t, StatusCoolingCancelled, p.Status)
}

func TestPendingCannotActivateDirectly(t *testing.T) {
	for _, changeType := range AllChangeTypes {
		p := pendingProposal(changeType)
		assert.ErrorIs(t, p.Activate(testNow), ErrInvalidTransition, changeType)
	}
}

func TestPendingParentSignatures(t *testing.T) {
	p := pendingProposal(ChangeAgreementBedtime)
	p.Signatures = NewSignatureSlots("mom", "dad", "child-1", true)
	assert.Equal(t, 2, p.PendingParentSignatures())
	assert.True(t, p.HasChildSlot())

	p.Signatures[0].Status = SignatureSigned
	assert.Equal(t, 1, p.PendingParentSignatures())
	assert.Equal(t, 2, p.SlotIndex("child-1", SignerChild))
	assert.Equal(t, -1, p.SlotIndex("child-1", SignerParent))
}

func TestPromotePendingExpiresAtTTL(t *testing.T) {
	p := pendingProposal(ChangeBedtimeStart)

	changed, err := p.Promote(testNow.Add(ProposalTTL - time.Second))
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = p.Promote(testNow.Add(ProposalTTL))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusExpired, p.Status)
	assert.Nil(t, p.OpenKey)
	assert.Nil(t, p.DueAt)
}

func TestLateExpiryIsDatedAtDeadline(t *testing.T) {
	p := pendingProposal(ChangeBedtimeStart)

	changed, err := p.Promote(testNow.Add(30 * 24 * time.Hour))

	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, p.ClosedAt)
	assert.Equal(t, p.ExpiresAt, *p.ClosedAt)
}

func TestPromoteCoolingActivatesAtWindowEnd(t *testing.T) {
	p := pendingProposal(ChangeRetentionPeriod)
	require.NoError(t, p.Approve("dad", testNow))

	changed, err := p.Promote(testNow.Add(100 * time.Hour))

	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusActive, p.Status)
	assert.Equal(t, testNow.Add(CoolingPeriodLength), *p.ActiveAt)
}

func TestSignAndPromoteAgreement(t *testing.T) {
	p := pendingProposal(ChangeAgreementScreenTime)
	p.Signatures = NewSignatureSlots("mom", "dad", "child-1", false)
	require.NoError(t, p.Approve("dad", testNow))
	assert.False(t, p.AllSigned())

	require.NoError(t, p.Sign(0, testNow))
	assert.ErrorIs(t, p.Sign(0, testNow), ErrInvalidTransition)
	assert.ErrorIs(t, p.Sign(5, testNow), ErrInvalidTransition)
	require.NoError(t, p.Sign(1, testNow.Add(time.Hour)))
	assert.True(t, p.AllSigned())

	changed, err := p.Promote(testNow.Add(2 * time.Hour))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusActive, p.Status)
	assert.ErrorIs(t, p.Sign(1, testNow), ErrInvalidTransition)
}

func TestPromoteAgreementExpiresAtSignatureDeadline(t *testing.T) {
	p := pendingProposal(ChangeAgreementCurfew)
	p.Signatures = NewSignatureSlots("mom", "dad", "child-1", true)
	require.NoError(t, p.Approve("dad", testNow))

	changed, err := p.Promote(testNow.Add(SignatureWindow + 10*24*time.Hour))

	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusExpired, p.Status)
	require.NotNil(t, p.ClosedAt)
	assert.Equal(t, testNow.Add(SignatureWindow), *p.ClosedAt)
}

func TestAllSignedRequiresSlots(t *testing.T) {
	assert.False(t, (&ChangeProposal{}).AllSigned())
}
