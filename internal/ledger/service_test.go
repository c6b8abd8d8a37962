package ledger

import (
	"path/filepath"
	"sync"
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

func seedSitePhase(t *testing.T, db *gorm.DB, budget float64) (*models.Site, *models.Phase) {
	t.Helper()
	site := models.Site{Name: "Kuzey Konutları", Status: models.SiteStatusActive}
	require.NoError(t, db.Create(&site).Error)
	phase := models.Phase{SiteID: site.ID, Name: "Temel", OrderNum: 1, Budget: budget, Status: models.PhaseInProgress}
	require.NoError(t, db.Create(&phase).Error)
	return &site, &phase
}

func out(siteID uint, phaseID *uint, amount float64) CreateInput {
	return CreateInput{
		SiteID:        siteID,
		PhaseID:       phaseID,
		Type:          models.TransactionOut,
		Amount:        amount,
		Date:          time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		PaymentMethod: models.PaymentMethodTransfer,
	}
}

func in(siteID uint, amount float64) CreateInput {
	return CreateInput{
		SiteID:        siteID,
		Type:          models.TransactionIn,
		Amount:        amount,
		Date:          time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		PaymentMethod: models.PaymentMethodTransfer,
	}
}

func TestRecordValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	site, phase := seedSitePhase(t, db, 0)

	_, _, err := svc.Record(adminActor, out(site.ID, &phase.ID, 0), "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	bad := out(site.ID, &phase.ID, 100)
	bad.Date = time.Time{}
	_, _, err = svc.Record(adminActor, bad, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// OUT için phase_id zorunlu
	_, _, err = svc.Record(adminActor, out(site.ID, nil, 100), "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// OUT yalnızca yönetici
	_, _, err = svc.Record(employeeActor, out(site.ID, &phase.ID, 100), "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, _, err = svc.Record(adminActor, out(site.ID, &phase.ID, 100), "maybe")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSiteTotals(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	site, phase := seedSitePhase(t, db, 100000)

	_, _, err := svc.Record(employeeActor, in(site.ID, 50000), "")
	require.NoError(t, err)
	_, _, err = svc.Record(adminActor, in(site.ID, 20000), "")
	require.NoError(t, err)
	_, _, err = svc.Record(adminActor, out(site.ID, &phase.ID, 30000), "")
	require.NoError(t, err)

	totals, err := svc.SiteTotals(site.ID)
	require.NoError(t, err)
	assert.Equal(t, 70000.0, totals.TotalIn)
	assert.Equal(t, 30000.0, totals.TotalOut)
	assert.Equal(t, 40000.0, totals.Balance)
}

func TestBudgetWarnAllowsOverrun(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	site, phase := seedSitePhase(t, db, 10000)

	_, _, err := svc.Record(adminActor, out(site.ID, &phase.ID, 8000), "")
	require.NoError(t, err)

	// Varsayılan policy warn: kayıt girer, aşım bilgisi döner
	txn, usage, err := svc.Record(adminActor, out(site.ID, &phase.ID, 3000), "")
	require.NoError(t, err)
	require.NotNil(t, txn)
	require.NotNil(t, usage)
	assert.Equal(t, 11000.0, usage.Used)
	assert.Equal(t, -1000.0, usage.Remaining)
	assert.True(t, usage.OverBudget)

	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestBudgetBlockRejectsOverrun(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	site, phase := seedSitePhase(t, db, 10000)

	_, _, err := svc.Record(adminActor, out(site.ID, &phase.ID, 8000), PolicyBlock)
	require.NoError(t, err)

	_, _, err = svc.Record(adminActor, out(site.ID, &phase.ID, 3000), PolicyBlock)
	assert.ErrorIs(t, err, apperr.ErrBudgetExceeded)

	// Reddedilen kayıt deftere girmemiş olmalı
	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	usage, err := svc.PhaseUsage(phase.ID)
	require.NoError(t, err)
	assert.Equal(t, 8000.0, usage.Used)
	assert.False(t, usage.OverBudget)
}

func TestBudgetBlockHoldsUnderConcurrentInserts(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	site, phase := seedSitePhase(t, db, 10000)

	// Bütçe tek bir 8000'lik kayda yeter; eşzamanlı denemelerden en
	// fazla biri girebilmeli. Toplama ile ekleme aynı transaction'da,
	// etap satırı kilitli yürüdüğü için kayıtlar sıralanır ve bütçe
	// hiçbir şekilde sessizce aşılamaz. Kilit beklerken hata alan
	// denemeler sorun değil; değişmez olan, kalıcılaşan toplamdır.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = svc.Record(adminActor, out(site.ID, &phase.ID, 8000), PolicyBlock)
		}()
	}
	wg.Wait()

	usage, err := svc.PhaseUsage(phase.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, usage.Used, 10000.0)
	assert.False(t, usage.OverBudget)

	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Count(&count).Error)
	assert.LessOrEqual(t, count, int64(1))
}

func TestPhaseScopedUsage(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	site, phase := seedSitePhase(t, db, 5000)

	other := models.Phase{SiteID: site.ID, Name: "Çatı", OrderNum: 2, Budget: 5000, Status: models.PhaseInProgress}
	require.NoError(t, db.Create(&other).Error)

	_, _, err := svc.Record(adminActor, out(site.ID, &phase.ID, 2000), "")
	require.NoError(t, err)
	_, _, err = svc.Record(adminActor, out(site.ID, &other.ID, 4500), "")
	require.NoError(t, err)

	usage, err := svc.PhaseUsage(phase.ID)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, usage.Used)
	assert.Equal(t, 3000.0, usage.Remaining)
}

func TestPhaseMustBelongToSite(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	_, phase := seedSitePhase(t, db, 5000)

	otherSite := models.Site{Name: "Güney Ofisleri", Status: models.SiteStatusActive}
	require.NoError(t, db.Create(&otherSite).Error)

	_, _, err := svc.Record(adminActor, out(otherSite.ID, &phase.ID, 100), "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSetPhaseBudget(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	site, phase := seedSitePhase(t, db, 10000)

	_, _, err := svc.Record(adminActor, out(site.ID, &phase.ID, 8000), "")
	require.NoError(t, err)

	_, _, err = svc.SetPhaseBudget(employeeActor, phase.ID, 5000)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, _, err = svc.SetPhaseBudget(adminActor, phase.ID, -1)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// Bütçe düşürülünce etap aşıma girebilir; geriye dönük doğrulama yok
	updated, usage, err := svc.SetPhaseBudget(adminActor, phase.ID, 5000)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, updated.Budget)
	assert.Equal(t, -3000.0, usage.Remaining)
	assert.True(t, usage.OverBudget)
}

func TestListByDateRange(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	site, _ := seedSitePhase(t, db, 0)

	for _, day := range []int{1, 15, 28} {
		rec := in(site.ID, 100)
		rec.Date = time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC)
		_, _, err := svc.Record(adminActor, rec, "")
		require.NoError(t, err)
	}

	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	rows, err := svc.List(site.ID, &from, &to)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 15, rows[0].Date.Day())
}
