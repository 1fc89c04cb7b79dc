// Package memory хранилище в памяти для тестов и локального запуска.
// Транзакции сериализуются одним мьютексом и работают на копии данных,
// которая подменяет исходные данные только при успешном завершении.
package memory

import (
	"PinguinGuard/models"
	"PinguinGuard/repositories"
	"context"
	"sort"
	"sync"
	"time"
)

type data struct {
	proposals       map[string]models.ChangeProposal
	settings        map[string]models.ChildSettings
	events          []models.AuditEvent
	blockedAttempts []models.BlockedAttemptRecord
}

func newData() *data {
	return &data{
		proposals: make(map[string]models.ChangeProposal),
		settings:  make(map[string]models.ChildSettings),
	}
}

func (d *data) clone() *data {
	out := newData()
	for id, p := range d.proposals {
		out.proposals[id] = cloneProposal(p)
	}
	for id, s := range d.settings {
		out.settings[id] = cloneSettings(s)
	}
	out.events = append(out.events, d.events...)
	out.blockedAttempts = append(out.blockedAttempts, d.blockedAttempts...)
	return out
}

type Store struct {
	mu   *sync.Mutex
	data *data
	inTx bool

	failures *failures
}

type failures struct {
	settingsSave error
	auditAppend  error
}

func NewStore() *Store {
	return &Store{mu: &sync.Mutex{}, data: newData(), failures: &failures{}}
}

// FailSettingsSave заставляет все последующие записи настроек возвращать err.
func (s *Store) FailSettingsSave(err error) {
	s.mu.Lock()
	s.failures.settingsSave = err
	s.mu.Unlock()
}

// FailAuditAppend заставляет все последующие записи аудита возвращать err.
func (s *Store) FailAuditAppend(err error) {
	s.mu.Lock()
	s.failures.auditAppend = err
	s.mu.Unlock()
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Proposals() repositories.ProposalRepository { return &proposalRepo{s} }
func (s *Store) Settings() repositories.SettingsRepository  { return &settingsRepo{s} }
func (s *Store) Audit() repositories.AuditRepository        { return &auditRepo{s} }

func (s *Store) Transaction(ctx context.Context, fn func(tx repositories.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{mu: s.mu, data: s.data.clone(), inTx: true, failures: s.failures}
	if err := fn(tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

// Events возвращает копию журнала аудита.
func (s *Store) Events() []models.AuditEvent {
	defer s.lock()()
	return append([]models.AuditEvent(nil), s.data.events...)
}

func (s *Store) BlockedAttempts() []models.BlockedAttemptRecord {
	defer s.lock()()
	return append([]models.BlockedAttemptRecord(nil), s.data.blockedAttempts...)
}

type proposalRepo struct{ s *Store }

func (r *proposalRepo) Create(_ context.Context, proposal *models.ChangeProposal) error {
	defer r.s.lock()()
	if proposal.OpenKey != nil {
		for _, existing := range r.s.data.proposals {
			if existing.OpenKey != nil && *existing.OpenKey == *proposal.OpenKey {
				return repositories.ErrOpenProposalExists
			}
		}
	}
	r.s.data.proposals[proposal.ID] = cloneProposal(*proposal)
	return nil
}

func (r *proposalRepo) FindByID(_ context.Context, id string) (models.ChangeProposal, error) {
	defer r.s.lock()()
	p, ok := r.s.data.proposals[id]
	if !ok {
		return models.ChangeProposal{}, repositories.ErrNotFound
	}
	return cloneProposal(p), nil
}

func (r *proposalRepo) FindByIDForUpdate(ctx context.Context, id string) (models.ChangeProposal, error) {
	return r.FindByID(ctx, id)
}

func (r *proposalRepo) FindOpen(_ context.Context, childID string, changeType models.ChangeType) (models.ChangeProposal, error) {
	defer r.s.lock()()
	key := models.OpenKeyFor(childID, changeType)
	for _, p := range r.s.data.proposals {
		if p.OpenKey != nil && *p.OpenKey == key {
			return cloneProposal(p), nil
		}
	}
	return models.ChangeProposal{}, repositories.ErrNotFound
}

func (r *proposalRepo) LatestClosed(_ context.Context, childID string, changeType models.ChangeType) (models.ChangeProposal, error) {
	defer r.s.lock()()
	var latest *models.ChangeProposal
	for _, p := range r.s.data.proposals {
		if p.ChildID != childID || p.ChangeType != changeType || p.ClosedAt == nil {
			continue
		}
		if latest == nil || p.ClosedAt.After(*latest.ClosedAt) {
			candidate := p
			latest = &candidate
		}
	}
	if latest == nil {
		return models.ChangeProposal{}, repositories.ErrNotFound
	}
	return cloneProposal(*latest), nil
}

func (r *proposalRepo) ListByChild(_ context.Context, childID string) ([]models.ChangeProposal, error) {
	defer r.s.lock()()
	var out []models.ChangeProposal
	for _, p := range r.s.data.proposals {
		if p.ChildID == childID {
			out = append(out, cloneProposal(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *proposalRepo) ListDue(_ context.Context, now time.Time, limit int) ([]string, error) {
	defer r.s.lock()()
	var due []models.ChangeProposal
	for _, p := range r.s.data.proposals {
		if p.DueAt != nil && !p.DueAt.After(now) {
			due = append(due, p)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].DueAt.Before(*due[j].DueAt) })
	var ids []string
	for _, p := range due {
		if limit > 0 && len(ids) >= limit {
			break
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (r *proposalRepo) Update(_ context.Context, proposal *models.ChangeProposal) error {
	defer r.s.lock()()
	current, ok := r.s.data.proposals[proposal.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if current.Version != proposal.Version {
		return repositories.ErrConflict
	}
	proposal.Version++
	r.s.data.proposals[proposal.ID] = cloneProposal(*proposal)
	return nil
}

type settingsRepo struct{ s *Store }

func (r *settingsRepo) Get(_ context.Context, childUID string) (models.ChildSettings, error) {
	defer r.s.lock()()
	if settings, ok := r.s.data.settings[childUID]; ok {
		return cloneSettings(settings), nil
	}
	return models.DefaultChildSettings(childUID), nil
}

// GetForUpdate: транзакции памяти и так сериализованы мьютексом хранилища.
func (r *settingsRepo) GetForUpdate(ctx context.Context, childUID string) (models.ChildSettings, error) {
	return r.Get(ctx, childUID)
}

func (r *settingsRepo) Save(_ context.Context, settings *models.ChildSettings) error {
	defer r.s.lock()()
	if r.s.failures.settingsSave != nil {
		return r.s.failures.settingsSave
	}
	r.s.data.settings[settings.ChildUID] = cloneSettings(*settings)
	return nil
}

type auditRepo struct{ s *Store }

func (r *auditRepo) Append(_ context.Context, event *models.AuditEvent) error {
	defer r.s.lock()()
	if r.s.failures.auditAppend != nil {
		return r.s.failures.auditAppend
	}
	event.ID = uint(len(r.s.data.events) + 1)
	r.s.data.events = append(r.s.data.events, *event)
	return nil
}

func (r *auditRepo) AppendBlockedAttempt(_ context.Context, record *models.BlockedAttemptRecord) error {
	defer r.s.lock()()
	if r.s.failures.auditAppend != nil {
		return r.s.failures.auditAppend
	}
	record.ID = uint(len(r.s.data.blockedAttempts) + 1)
	r.s.data.blockedAttempts = append(r.s.data.blockedAttempts, *record)
	return nil
}

func (r *auditRepo) ListByChild(_ context.Context, childID string, limit int) ([]models.AuditEvent, error) {
	defer r.s.lock()()
	var out []models.AuditEvent
	for i := len(r.s.data.events) - 1; i >= 0; i-- {
		if r.s.data.events[i].ChildID == childID {
			out = append(out, r.s.data.events[i])
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func cloneProposal(p models.ChangeProposal) models.ChangeProposal {
	out := p
	out.Signatures = append([]models.Signature(nil), p.Signatures...)
	if p.CoolingPeriod != nil {
		cooling := *p.CoolingPeriod
		out.CoolingPeriod = &cooling
	}
	if p.Dispute != nil {
		dispute := *p.Dispute
		out.Dispute = &dispute
	}
	if p.OpenKey != nil {
		key := *p.OpenKey
		out.OpenKey = &key
	}
	return out
}

func cloneSettings(s models.ChildSettings) models.ChildSettings {
	out := s
	out.PerAppLimits = make(map[string]int, len(s.PerAppLimits))
	for app, minutes := range s.PerAppLimits {
		out.PerAppLimits[app] = minutes
	}
	out.AgreementAppLimits = make(map[string]int, len(s.AgreementAppLimits))
	for app, minutes := range s.AgreementAppLimits {
		out.AgreementAppLimits[app] = minutes
	}
	out.CrisisAllowlist = append([]string{}, s.CrisisAllowlist...)
	return out
}
