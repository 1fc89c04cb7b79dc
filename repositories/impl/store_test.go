package impl

import (
	"PinguinGuard/models"
	"PinguinGuard/repositories"
	"PinguinGuard/services"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// одна база в памяти на соединение
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.Parent{},
		&models.Child{},
		&models.Guardianship{},
		&models.ChangeProposal{},
		&models.ChildSettings{},
		&models.AuditEvent{},
		&models.BlockedAttemptRecord{},
	))
	return db
}

func openProposal(id string, changeType models.ChangeType, createdAt time.Time) *models.ChangeProposal {
	value, _ := models.ParseChangeValue(models.ChangeMonitoringInterval, []byte("60"))
	original, _ := models.ParseChangeValue(models.ChangeMonitoringInterval, []byte("30"))
	p := &models.ChangeProposal{
		ID:            id,
		ChildID:       "child-1",
		FamilyID:      "family-1",
		ProposedBy:    "mom",
		ChangeType:    changeType,
		OriginalValue: original,
		ProposedValue: value,
		Status:        models.StatusPending,
		CreatedAt:     createdAt,
		ExpiresAt:     createdAt.Add(models.ProposalTTL),
		Signatures:    []models.Signature{},
	}
	key := models.OpenKeyFor(p.ChildID, changeType)
	p.OpenKey = &key
	p.RefreshDueAt()
	return p
}

func TestProposalRoundTrip(t *testing.T) {
	repo := NewProposalRepository(newTestDB(t))
	ctx := context.Background()
	p := openProposal("p-1", models.ChangeMonitoringInterval, testNow)

	require.NoError(t, repo.Create(ctx, p))
	got, err := repo.FindByID(ctx, "p-1")

	require.NoError(t, err)
	assert.Equal(t, 60, got.ProposedValue.Number)
	assert.Equal(t, models.ChangeMonitoringInterval, got.ProposedValue.Type)
	assert.Equal(t, 30, got.OriginalValue.Number)
	assert.Equal(t, models.StatusPending, got.Status)
	require.NotNil(t, got.OpenKey)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestOpenKeyIsUnique(t *testing.T) {
	repo := NewProposalRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, openProposal("p-1", models.ChangeMonitoringInterval, testNow)))

	err := repo.Create(ctx, openProposal("p-2", models.ChangeMonitoringInterval, testNow))
	assert.ErrorIs(t, err, repositories.ErrOpenProposalExists)

	require.NoError(t, repo.Create(ctx, openProposal("p-3", models.ChangeBedtimeStart, testNow)))
}

func TestUpdateIsCompareAndSwap(t *testing.T) {
	repo := NewProposalRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, openProposal("p-1", models.ChangeMonitoringInterval, testNow)))

	first, err := repo.FindByID(ctx, "p-1")
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, "p-1")
	require.NoError(t, err)

	require.NoError(t, first.Approve("dad", testNow))
	require.NoError(t, repo.Update(ctx, &first))
	assert.Equal(t, 1, first.Version)

	require.NoError(t, second.Decline("aunt", "", testNow))
	err = repo.Update(ctx, &second)
	assert.ErrorIs(t, err, repositories.ErrConflict)
	assert.Equal(t, 0, second.Version)

	stored, err := repo.FindByID(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCoolingInProgress, stored.Status)
	require.NotNil(t, stored.CoolingPeriod)
	assert.True(t, stored.CoolingPeriod.EndsAt.Equal(testNow.Add(models.CoolingPeriodLength)))
}

func TestTerminalUpdateFreesOpenKey(t *testing.T) {
	repo := NewProposalRepository(newTestDB(t))
	ctx := context.Background()
	p := openProposal("p-1", models.ChangeMonitoringInterval, testNow)
	require.NoError(t, repo.Create(ctx, p))

	require.NoError(t, p.Decline("dad", "no", testNow.Add(time.Hour)))
	require.NoError(t, repo.Update(ctx, p))

	_, err := repo.FindOpen(ctx, "child-1", models.ChangeMonitoringInterval)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	last, err := repo.LatestClosed(ctx, "child-1", models.ChangeMonitoringInterval)
	require.NoError(t, err)
	assert.Equal(t, "p-1", last.ID)

	require.NoError(t, repo.Create(ctx, openProposal("p-2", models.ChangeMonitoringInterval, testNow.Add(8*24*time.Hour))))
	open, err := repo.FindOpen(ctx, "child-1", models.ChangeMonitoringInterval)
	require.NoError(t, err)
	assert.Equal(t, "p-2", open.ID)
}

func TestListDueOrdersByDeadline(t *testing.T) {
	repo := NewProposalRepository(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, openProposal("late", models.ChangeBedtimeStart, testNow.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, openProposal("early", models.ChangeBedtimeEnd, testNow)))

	ids, err := repo.ListDue(ctx, testNow.Add(models.ProposalTTL-time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = repo.ListDue(ctx, testNow.Add(models.ProposalTTL+time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "late"}, ids)

	ids, err = repo.ListDue(ctx, testNow.Add(models.ProposalTTL+time.Hour), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"early"}, ids)

	list, err := repo.ListByChild(ctx, "child-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "late", list[0].ID)
}

func TestSettingsDefaultsAndSave(t *testing.T) {
	repo := NewSettingsRepository(newTestDB(t))
	ctx := context.Background()

	settings, err := repo.Get(ctx, "child-1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultChildSettings("child-1").MonitoringIntervalMinutes, settings.MonitoringIntervalMinutes)

	settings.PerAppLimits["com.game"] = 30
	settings.CrisisAllowlist = []string{"112"}
	require.NoError(t, repo.Save(ctx, &settings))
	settings.MonitoringIntervalMinutes = 15
	require.NoError(t, repo.Save(ctx, &settings))

	got, err := repo.Get(ctx, "child-1")
	require.NoError(t, err)
	assert.Equal(t, 15, got.MonitoringIntervalMinutes)
	assert.Equal(t, map[string]int{"com.game": 30}, got.PerAppLimits)
	assert.Equal(t, []string{"112"}, got.CrisisAllowlist)
}

func TestGetForUpdateCreatesDefaultRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewSettingsRepository(db)
	ctx := context.Background()

	settings, err := repo.GetForUpdate(ctx, "child-1")
	require.NoError(t, err)
	assert.Equal(t, "child-1", settings.ChildUID)
	assert.Equal(t, models.DefaultChildSettings("child-1").BedtimeStart, settings.BedtimeStart)

	var count int64
	require.NoError(t, db.Model(&models.ChildSettings{}).Where("child_uid = ?", "child-1").Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// повторный вызов не трогает сохраненные значения
	settings.MonitoringIntervalMinutes = 10
	require.NoError(t, repo.Save(ctx, &settings))
	again, err := repo.GetForUpdate(ctx, "child-1")
	require.NoError(t, err)
	assert.Equal(t, 10, again.MonitoringIntervalMinutes)
}

func TestAppliesToDifferentFieldsBothSurvive(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()
	applier := services.SettingsApplier{}

	changes := []models.ChangeValue{
		{Type: models.ChangeMonitoringInterval, Number: 15},
		{Type: models.ChangeBedtimeStart, Clock: "20:30"},
		{Type: models.ChangeScreenTimePerApp, App: "com.game", Number: 30},
		{Type: models.ChangeScreenTimePerApp, App: "com.video", Number: 45},
	}
	for _, change := range changes {
		err := store.Transaction(ctx, func(tx repositories.Store) error {
			_, err := applier.ApplyChange(ctx, tx.Settings(), "child-1", change, testNow)
			return err
		})
		require.NoError(t, err)
	}

	got, err := store.Settings().Get(ctx, "child-1")
	require.NoError(t, err)
	assert.Equal(t, 15, got.MonitoringIntervalMinutes)
	assert.Equal(t, "20:30", got.BedtimeStart)
	assert.Equal(t, map[string]int{"com.game": 30, "com.video": 45}, got.PerAppLimits)
}

func TestTransactionRollsBack(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Transaction(ctx, func(tx repositories.Store) error {
		settings, err := tx.Settings().Get(ctx, "child-1")
		require.NoError(t, err)
		settings.MonitoringIntervalMinutes = 5
		require.NoError(t, tx.Settings().Save(ctx, &settings))
		require.NoError(t, tx.Audit().Append(ctx, &models.AuditEvent{Type: models.AuditSettingApplied, ChildID: "child-1", CreatedAt: testNow}))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	settings, err := store.Settings().Get(ctx, "child-1")
	require.NoError(t, err)
	assert.Equal(t, 30, settings.MonitoringIntervalMinutes)
	events, err := store.Audit().ListByChild(ctx, "child-1", 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAuditAppendOnly(t *testing.T) {
	repo := NewAuditRepository(newTestDB(t))
	ctx := context.Background()

	for _, typ := range []models.AuditEventType{models.AuditProposalCreated, models.AuditProposalTransition} {
		require.NoError(t, repo.Append(ctx, &models.AuditEvent{Type: typ, ChildID: "child-1", CreatedAt: testNow}))
	}
	record := &models.BlockedAttemptRecord{AttemptedBy: "dad", TargetGuardian: "mom", ChildID: "child-1", Timestamp: testNow}
	require.NoError(t, repo.AppendBlockedAttempt(ctx, record))
	assert.NotZero(t, record.ID)

	events, err := repo.ListByChild(ctx, "child-1", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.AuditProposalTransition, events[0].Type)
}

func TestChildDirectory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&models.Child{FirebaseUID: "child-1", FamilyID: "family-1", CustodyType: models.CustodyShared}).Error)
	require.NoError(t, db.Create(&models.Guardianship{FamilyID: "family-1", ChildUID: "child-1", GuardianUID: "mom", Permissions: models.PermissionFull}).Error)
	require.NoError(t, db.Create(&models.Guardianship{FamilyID: "family-1", ChildUID: "child-1", GuardianUID: "dad", Permissions: models.PermissionReadonly}).Error)
	directory := NewChildDirectory(db)

	record, err := directory.GetChild(ctx, "child-1")
	require.NoError(t, err)
	assert.Equal(t, models.CustodyShared, record.CustodyType)
	assert.Equal(t, []models.GuardianRef{
		{UID: "mom", Permissions: models.PermissionFull},
		{UID: "dad", Permissions: models.PermissionReadonly},
	}, record.Guardians)

	require.NoError(t, directory.UpdateGuardianPermission(ctx, "child-1", "dad", models.PermissionFull))
	record, err = directory.GetChild(ctx, "child-1")
	require.NoError(t, err)
	assert.Equal(t, models.PermissionFull, record.Guardians[1].Permissions)

	assert.ErrorIs(t, directory.UpdateGuardianPermission(ctx, "child-1", "aunt", models.PermissionFull), repositories.ErrNotFound)
	_, err = directory.GetChild(ctx, "ghost")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestParentAndChildRepositories(t *testing.T) {
	db := newTestDB(t)
	parents := NewParentRepository(db)
	children := NewChildRepository(db)

	require.NoError(t, parents.Save(models.Parent{FirebaseUID: "mom", Email: "mom@example.com"}))
	require.NoError(t, children.Save(models.Child{FirebaseUID: "child-1", Code: "4821"}))

	parent, err := parents.FindByEmail("mom@example.com")
	require.NoError(t, err)
	assert.Equal(t, "mom", parent.FirebaseUID)

	child, err := children.FindByCode("4821")
	require.NoError(t, err)
	assert.Equal(t, "child-1", child.FirebaseUID)

	_, err = parents.FindByFirebaseUID("ghost")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}
