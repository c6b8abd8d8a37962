package milestone

import (
	"path/filepath"
	"testing"
	"time"

	"santiye-backend/internal/apperr"
	"santiye-backend/internal/auth"
	"santiye-backend/internal/database"
	"santiye-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	adminActor    = auth.Actor{ID: 1, Name: "Yönetici", Role: models.RoleAdmin}
	employeeActor = auth.Actor{ID: 2, Name: "Personel", Role: models.RoleEmployee}
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	return db
}

func seedSite(t *testing.T, db *gorm.DB) *models.Site {
	t.Helper()
	site := models.Site{Name: "Kuzey Konutları", Status: models.SiteStatusActive}
	require.NoError(t, db.Create(&site).Error)
	return &site
}

// etaba total görev açar, bunların completed kadarını tamamlanmış işaretler
func seedPhaseWithTasks(t *testing.T, db *gorm.DB, siteID, milestoneID uint, total, completed int) *models.Phase {
	t.Helper()
	phase := models.Phase{SiteID: siteID, MilestoneID: &milestoneID, Name: "Etap", OrderNum: 1, Status: models.PhaseInProgress}
	require.NoError(t, db.Create(&phase).Error)

	for i := 0; i < total; i++ {
		status := models.TaskInProgress
		if i < completed {
			status = models.TaskCompleted
		}
		task := models.Task{PhaseID: phase.ID, SiteID: siteID, Name: "Görev", Status: status}
		require.NoError(t, db.Create(&task).Error)
	}
	return &phase
}

func TestComputeProgress(t *testing.T) {
	assert.Equal(t, 0, ComputeProgress(0, 0))
	assert.Equal(t, 50, ComputeProgress(10, 5))
	assert.Equal(t, 33, ComputeProgress(3, 1))
	assert.Equal(t, 67, ComputeProgress(3, 2))
	assert.Equal(t, 100, ComputeProgress(4, 4))
}

func TestProgressAggregatesAcrossPhases(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	site := seedSite(t, db)

	m, err := svc.Create(adminActor, CreateInput{SiteID: site.ID, Name: "Kaba inşaat bitişi"})
	require.NoError(t, err)
	assert.Equal(t, models.MilestoneNotStarted, m.Status)

	seedPhaseWithTasks(t, db, site.ID, m.ID, 4, 2)
	seedPhaseWithTasks(t, db, site.ID, m.ID, 6, 3)

	got, err := svc.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.Progress)

	// İlerleme satıra önbellek olarak geri yazılmış olmalı
	var raw models.Milestone
	require.NoError(t, db.First(&raw, m.ID).Error)
	assert.Equal(t, 50, raw.Progress)
}

func TestProgressWithoutTasksIsZero(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	site := seedSite(t, db)

	m, err := svc.Create(adminActor, CreateInput{SiteID: site.ID, Name: "Ruhsat"})
	require.NoError(t, err)

	got, err := svc.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Progress)
}

func TestCreateRules(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	site := seedSite(t, db)

	_, err := svc.Create(employeeActor, CreateInput{SiteID: site.ID, Name: "X"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Create(adminActor, CreateInput{SiteID: site.ID})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Create(adminActor, CreateInput{SiteID: 9999, Name: "X"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestIsDelayedDerivedOnRead(t *testing.T) {
	past := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	m := &models.Milestone{Status: models.MilestoneInProgress, PlannedEnd: &past}
	assert.True(t, IsDelayed(m, now))

	// Tamamlanan kilometre taşı gecikmiş sayılmaz
	m.Status = models.MilestoneCompleted
	assert.False(t, IsDelayed(m, now))

	m = &models.Milestone{Status: models.MilestoneInProgress}
	assert.False(t, IsDelayed(m, now))
}

func TestDeleteUnlinksPhases(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	site := seedSite(t, db)

	m, err := svc.Create(adminActor, CreateInput{SiteID: site.ID, Name: "Kaba inşaat bitişi"})
	require.NoError(t, err)
	phase := seedPhaseWithTasks(t, db, site.ID, m.ID, 2, 0)

	require.NoError(t, svc.Delete(adminActor, m.ID))

	// Etap silinmez, yalnızca bağı çözülür
	var fresh models.Phase
	require.NoError(t, db.First(&fresh, phase.ID).Error)
	assert.Nil(t, fresh.MilestoneID)

	_, err = svc.Get(m.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
