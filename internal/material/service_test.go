package material

import (
	"path/filepath"
	"testing"

	"santiye-backend/internal/apperr"
	"santiye-backend/internal/auth"
	"santiye-backend/internal/database"
	"santiye-backend/internal/models"
	"santiye-backend/internal/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	return db
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	admin    auth.Actor
	employee auth.Actor
	site     models.Site
	task     models.Task
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	adminUser := models.User{Name: "Yönetici", Email: "admin@santiye.dev", PasswordHash: "x", Role: models.RoleAdmin}
	require.NoError(t, db.Create(&adminUser).Error)
	empUser := models.User{Name: "Ali Usta", Email: "ali@santiye.dev", PasswordHash: "x", Role: models.RoleEmployee}
	require.NoError(t, db.Create(&empUser).Error)

	site := models.Site{Name: "Kuzey Konutları", Status: models.SiteStatusActive}
	require.NoError(t, db.Create(&site).Error)
	phase := models.Phase{SiteID: site.ID, Name: "Temel", OrderNum: 1, Status: models.PhaseInProgress}
	require.NoError(t, db.Create(&phase).Error)
	task := models.Task{PhaseID: phase.ID, SiteID: site.ID, Name: "Kalıp kurulumu", Status: models.TaskInProgress}
	require.NoError(t, db.Create(&task).Error)

	return &fixture{
		db:       db,
		svc:      NewService(db),
		admin:    auth.Actor{ID: adminUser.ID, Name: adminUser.Name, Role: adminUser.Role},
		employee: auth.Actor{ID: empUser.ID, Name: empUser.Name, Role: empUser.Role},
		site:     site,
		task:     task,
	}
}

func (f *fixture) createRequest(t *testing.T) *models.MaterialRequest {
	t.Helper()
	req, err := f.svc.Create(f.employee, CreateInput{
		SiteID:       f.site.ID,
		TaskID:       f.task.ID,
		MaterialName: "C30 beton",
		Quantity:     12,
	})
	require.NoError(t, err)
	return req
}

func notificationsFor(t *testing.T, db *gorm.DB, userID uint, typ string) []models.Notification {
	t.Helper()
	var rows []models.Notification
	require.NoError(t, db.Where("employee_id = ? AND type = ?", userID, typ).Find(&rows).Error)
	return rows
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)

	cases := []struct {
		name string
		in   CreateInput
	}{
		{"site eksik", CreateInput{TaskID: f.task.ID, MaterialName: "çimento", Quantity: 1}},
		{"görev eksik", CreateInput{SiteID: f.site.ID, MaterialName: "çimento", Quantity: 1}},
		{"malzeme adı eksik", CreateInput{SiteID: f.site.ID, TaskID: f.task.ID, Quantity: 1}},
		{"miktar sıfır", CreateInput{SiteID: f.site.ID, TaskID: f.task.ID, MaterialName: "çimento"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(f.employee, tc.in)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	// Geçersiz istek hiçbir satır bırakmamalı
	var count int64
	require.NoError(t, f.db.Model(&models.MaterialRequest{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateNotifiesAdmins(t *testing.T) {
	f := setup(t)

	req := f.createRequest(t)
	assert.Equal(t, models.MaterialPending, req.Status)
	assert.Equal(t, f.employee.ID, req.EmployeeID)

	rows := notificationsFor(t, f.db, f.admin.ID, notification.TypeMaterialRequestCreated)
	require.Len(t, rows, 1)
	assert.Equal(t, f.site.ID, rows[0].SiteID)
}

func TestCreateTaskMustBelongToSite(t *testing.T) {
	f := setup(t)

	other := models.Site{Name: "Güney Ofisleri", Status: models.SiteStatusActive}
	require.NoError(t, f.db.Create(&other).Error)

	_, err := f.svc.Create(f.employee, CreateInput{
		SiteID:       other.ID,
		TaskID:       f.task.ID,
		MaterialName: "çimento",
		Quantity:     1,
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestApproveNotifiesRequester(t *testing.T) {
	f := setup(t)
	req := f.createRequest(t)

	got, err := f.svc.SetStatus(f.admin, req.ID, models.MaterialApproved, "Pazartesi sevk edilir")
	require.NoError(t, err)
	assert.Equal(t, models.MaterialApproved, got.Status)
	assert.Equal(t, "Pazartesi sevk edilir", got.AdminNotes)

	rows := notificationsFor(t, f.db, f.employee.ID, notification.TypeMaterialRequestStatus)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].Message, "onaylandı")
}

func TestSetStatusRules(t *testing.T) {
	f := setup(t)
	req := f.createRequest(t)

	_, err := f.svc.SetStatus(f.employee, req.ID, models.MaterialApproved, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.SetStatus(f.admin, req.ID, models.MaterialReceived, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.SetStatus(f.admin, req.ID, models.MaterialRejected, "Stok var")
	require.NoError(t, err)

	// Sonuçlanan talep tekrar sonuçlandırılamaz
	_, err = f.svc.SetStatus(f.admin, req.ID, models.MaterialApproved, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestMarkReceived(t *testing.T) {
	f := setup(t)
	req := f.createRequest(t)

	// Onaylanmadan teslim alınamaz
	_, err := f.svc.MarkReceived(f.employee, req.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = f.svc.SetStatus(f.admin, req.ID, models.MaterialApproved, "")
	require.NoError(t, err)

	// Yalnızca talep sahibi (veya yönetici) teslim alabilir
	other := models.User{Name: "Veli Usta", Email: "veli@santiye.dev", PasswordHash: "x", Role: models.RoleEmployee}
	require.NoError(t, f.db.Create(&other).Error)
	_, err = f.svc.MarkReceived(auth.Actor{ID: other.ID, Name: other.Name, Role: other.Role}, req.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	got, err := f.svc.MarkReceived(f.employee, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MaterialReceived, got.Status)

	rows := notificationsFor(t, f.db, f.admin.ID, notification.TypeMaterialReceived)
	require.Len(t, rows, 1)

	// received terminal durumdur
	_, err = f.svc.MarkReceived(f.employee, req.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestListScopedByRole(t *testing.T) {
	f := setup(t)
	f.createRequest(t)

	other := models.User{Name: "Veli Usta", Email: "veli@santiye.dev", PasswordHash: "x", Role: models.RoleEmployee}
	require.NoError(t, f.db.Create(&other).Error)
	otherActor := auth.Actor{ID: other.ID, Name: other.Name, Role: other.Role}
	_, err := f.svc.Create(otherActor, CreateInput{
		SiteID:       f.site.ID,
		TaskID:       f.task.ID,
		MaterialName: "demir 12mm",
		Quantity:     300,
	})
	require.NoError(t, err)

	// Personel yalnızca kendi taleplerini görür
	rows, err := f.svc.List(f.employee, f.site.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, f.employee.ID, rows[0].EmployeeID)

	// Yönetici hepsini görür
	rows, err = f.svc.List(f.admin, f.site.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
