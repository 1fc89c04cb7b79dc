package services

import (
	"PinguinGuard/clock"
	"PinguinGuard/interfaces"
	"PinguinGuard/models"
	"PinguinGuard/repositories/memory"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

const (
	momUID   = "mom-uid"
	dadUID   = "dad-uid"
	auntUID  = "aunt-uid"
	childUID = "child-uid"
	familyID = "family-1"
)

var testNow = time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []interfaces.ProposalEvent
}

func (n *recordingNotifier) NotifyProposal(_ context.Context, event interfaces.ProposalEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	clock     *clock.FakeClock
	store     *memory.Store
	directory *memory.Directory
	notifier  *recordingNotifier
	svc       *ProposalService
}

func twoGuardianFamily(custody models.CustodyType) models.ChildRecord {
	return models.ChildRecord{
		ChildID:  childUID,
		FamilyID: familyID,
		Guardians: []models.GuardianRef{
			{UID: momUID, Permissions: models.PermissionFull},
			{UID: dadUID, Permissions: models.PermissionFull},
		},
		CustodyType: custody,
	}
}

func newFixture(t *testing.T, records ...models.ChildRecord) *fixture {
	t.Helper()
	if len(records) == 0 {
		records = []models.ChildRecord{twoGuardianFamily(models.CustodyShared)}
	}
	f := &fixture{
		clock:     clock.Fake(testNow),
		store:     memory.NewStore(),
		directory: memory.NewDirectory(records...),
		notifier:  &recordingNotifier{},
	}
	f.svc = NewProposalService(f.store, f.directory, f.clock)
	f.svc.Notifiers = []interfaces.ProposalNotifier{f.notifier}
	seq := 0
	f.svc.NewID = func() string {
		seq++
		return fmt.Sprintf("proposal-%d", seq)
	}
	return f
}

func rawValue(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func (f *fixture) propose(t *testing.T, caller string, changeType models.ChangeType, value interface{}) models.ChangeProposal {
	t.Helper()
	result, err := f.svc.CreateProposal(context.Background(), caller, CreateProposalRequest{
		ChildID:    childUID,
		ChangeType: changeType,
		Value:      rawValue(t, value),
	})
	require.NoError(t, err)
	require.False(t, result.Applied)
	require.NotNil(t, result.Proposal)
	return *result.Proposal
}

func (f *fixture) settings(t *testing.T) models.ChildSettings {
	t.Helper()
	settings, err := f.store.Settings().Get(context.Background(), childUID)
	require.NoError(t, err)
	return settings
}

func (f *fixture) stored(t *testing.T, id string) models.ChangeProposal {
	t.Helper()
	p, err := f.store.Proposals().FindByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (f *fixture) countEvents(eventType models.AuditEventType) int {
	n := 0
	for _, e := range f.store.Events() {
		if e.Type == eventType {
			n++
		}
	}
	return n
}
