package workflow

import (
	"path/filepath"
	"testing"

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

func seedTask(t *testing.T, db *gorm.DB, status models.TaskStatus) *models.Task {
	t.Helper()

	site := models.Site{Name: "Kuzey Konutları", Status: models.SiteStatusActive}
	require.NoError(t, db.Create(&site).Error)

	phase := models.Phase{SiteID: site.ID, Name: "Temel", OrderNum: 1, Status: models.PhaseInProgress}
	require.NoError(t, db.Create(&phase).Error)

	task := models.Task{PhaseID: phase.ID, SiteID: site.ID, Name: "Kalıp kurulumu", Status: status}
	require.NoError(t, db.Create(&task).Error)
	return &task
}

func TestTaskLifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	task := seedTask(t, db, models.TaskNotStarted)

	got, err := svc.StartTask(employeeActor, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskInProgress, got.Status)

	got, err = svc.CompleteTask(employeeActor, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskWaitingApproval, got.Status)

	got, err = svc.ApproveTask(adminActor, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
}

func TestEmployeeCannotApprove(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	task := seedTask(t, db, models.TaskWaitingApproval)

	_, err := svc.ApproveTask(employeeActor, task.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	// Durum değişmemiş olmalı
	var fresh models.Task
	require.NoError(t, db.First(&fresh, task.ID).Error)
	assert.Equal(t, models.TaskWaitingApproval, fresh.Status)
}

func TestApproveTwiceFails(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	task := seedTask(t, db, models.TaskWaitingApproval)

	_, err := svc.ApproveTask(adminActor, task.ID)
	require.NoError(t, err)

	_, err = svc.ApproveTask(adminActor, task.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestCompleteFromNotStartedFails(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	task := seedTask(t, db, models.TaskNotStarted)

	_, err := svc.CompleteTask(employeeActor, task.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestRejectReturnsTaskWithReason(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	task := seedTask(t, db, models.TaskWaitingApproval)

	_, err := svc.RejectTask(adminActor, task.ID, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err := svc.RejectTask(adminActor, task.ID, "Beton raporu eksik")
	require.NoError(t, err)
	assert.Equal(t, models.TaskInProgress, got.Status)
	assert.Equal(t, "Beton raporu eksik", got.RejectionReason)
}

func TestApproveAfterRejectClearsReason(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	task := seedTask(t, db, models.TaskWaitingApproval)

	_, err := svc.RejectTask(adminActor, task.ID, "Beton raporu eksik")
	require.NoError(t, err)

	_, err = svc.CompleteTask(employeeActor, task.ID)
	require.NoError(t, err)

	got, err := svc.ApproveTask(adminActor, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, got.Status)
	assert.Empty(t, got.RejectionReason)
}

func TestConcurrentApproveConflicts(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	task := seedTask(t, db, models.TaskWaitingApproval)

	// Yükleme ile korumalı UPDATE arasında durumu değiştiren ikinci
	// isteği taklit et: korumalı UPDATE 0 satır etkiler ve geçiş
	// Conflict ile reddedilir.
	flipped := false
	err := db.Callback().Update().Before("gorm:update").Register("araya_giren_istek", func(tx *gorm.DB) {
		if flipped {
			return
		}
		flipped = true
		tx.Session(&gorm.Session{NewDB: true}).Exec(
			"UPDATE tasks SET status = ? WHERE id = ?", models.TaskInProgress, task.ID)
	})
	require.NoError(t, err)
	defer db.Callback().Update().Remove("araya_giren_istek")

	_, err = svc.ApproveTask(adminActor, task.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// Transaction geri alındığı için satır ilk halinde kalır
	var fresh models.Task
	require.NoError(t, db.First(&fresh, task.ID).Error)
	assert.Equal(t, models.TaskWaitingApproval, fresh.Status)
}

func TestTransitionOnMissingTask(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	_, err := svc.StartTask(employeeActor, 9999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAssignTaskToggle(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	task := seedTask(t, db, models.TaskInProgress)

	emp := models.User{Name: "Ali Usta", Email: "ali@santiye.dev", PasswordHash: "x", Role: models.RoleEmployee}
	require.NoError(t, db.Create(&emp).Error)

	got, assigned, err := svc.AssignTask(adminActor, task.ID, emp.ID)
	require.NoError(t, err)
	assert.True(t, assigned)
	require.Len(t, got.Employees, 1)
	assert.Equal(t, emp.ID, got.Employees[0].ID)

	// İkinci çağrı atamayı geri alır
	got, assigned, err = svc.AssignTask(adminActor, task.ID, emp.ID)
	require.NoError(t, err)
	assert.False(t, assigned)
	assert.Empty(t, got.Employees)
}

func TestAssignRules(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	emp := models.User{Name: "Ali Usta", Email: "ali@santiye.dev", PasswordHash: "x", Role: models.RoleEmployee}
	require.NoError(t, db.Create(&emp).Error)

	done := seedTask(t, db, models.TaskCompleted)
	_, _, err := svc.AssignTask(adminActor, done.ID, emp.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	open := seedTask(t, db, models.TaskInProgress)

	_, _, err = svc.AssignTask(employeeActor, open.ID, emp.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	// Yönetici hesabı göreve atanamaz
	boss := models.User{Name: "Patron", Email: "patron@santiye.dev", PasswordHash: "x", Role: models.RoleAdmin}
	require.NoError(t, db.Create(&boss).Error)
	_, _, err = svc.AssignTask(adminActor, open.ID, boss.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateTaskFieldScope(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	task := seedTask(t, db, models.TaskInProgress)

	newName := "Kalıp sökümü"
	desc := "3. blok için"

	// Personel yalnızca açıklama değiştirebilir
	_, err := svc.UpdateTask(employeeActor, task.ID, UpdateTaskInput{Name: &newName})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	got, err := svc.UpdateTask(employeeActor, task.ID, UpdateTaskInput{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, desc, got.Description)

	got, err = svc.UpdateTask(adminActor, task.ID, UpdateTaskInput{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, newName, got.Name)

	// Tamamlanan görev düzenlenemez
	done := seedTask(t, db, models.TaskCompleted)
	_, err = svc.UpdateTask(adminActor, done.ID, UpdateTaskInput{Description: &desc})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestPhaseLifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	site := models.Site{Name: "Kuzey Konutları", Status: models.SiteStatusActive}
	require.NoError(t, db.Create(&site).Error)
	phase := models.Phase{SiteID: site.ID, Name: "Kaba inşaat", OrderNum: 2, Status: models.PhaseNotStarted}
	require.NoError(t, db.Create(&phase).Error)

	got, err := svc.StartPhase(employeeActor, phase.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseInProgress, got.Status)

	got, err = svc.CompletePhase(employeeActor, phase.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseWaitingApproval, got.Status)

	_, err = svc.ApprovePhase(employeeActor, phase.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	got, err = svc.RejectPhase(adminActor, phase.ID, "Statik onay bekleniyor")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseInProgress, got.Status)
	assert.Equal(t, "Statik onay bekleniyor", got.RejectionReason)

	_, err = svc.CompletePhase(employeeActor, phase.ID)
	require.NoError(t, err)
	got, err = svc.ApprovePhase(adminActor, phase.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseCompleted, got.Status)
	assert.Empty(t, got.RejectionReason)
}
