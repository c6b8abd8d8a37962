package ledger

import (
	"time"

	"santiye-backend/internal/apperr"
	"santiye-backend/internal/auth"
	"santiye-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BudgetPolicy bütçe aşımında ekleme yolunun davranışını belirler.
// Varsayılan warn: kayıt eklenir, aşım bilgisi cevapla birlikte döner.
type BudgetPolicy string

const (
	PolicyBlock BudgetPolicy = "block"
	PolicyWarn  BudgetPolicy = "warn"
	PolicyAllow BudgetPolicy = "allow"
)

// Usage bir etabın bütçe kullanımı. Remaining negatif olabilir;
// değerlendirici sıfıra kırpmaz.
type Usage struct {
	PhaseID    uint    `json:"phase_id"`
	Budget     float64 `json:"budget"`
	Used       float64 `json:"used"`
	Remaining  float64 `json:"remaining"`
	OverBudget bool    `json:"over_budget"`
}

type Totals struct {
	TotalIn  float64 `json:"total_in"`
	TotalOut float64 `json:"total_out"`
	Balance  float64 `json:"balance"`
}

type CreateInput struct {
	SiteID        uint
	PhaseID       *uint
	Type          models.TransactionType
	Amount        float64
	Date          time.Time
	Description   string
	PaymentMethod models.PaymentMethod
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Record defter kaydını ekler. Defter salt-ekleme çalışır: güncelleme
// ve silme yolu yoktur, düzeltmeler ters yönlü yeni kayıtlardır.
// OUT kayıtlarında bütçe, ekleme ile aynı veritabanı transaction'ı
// içinde değerlendirilir; policy block ise aşım ekleme yapılmadan
// reddedilir.
func (s *Service) Record(actor auth.Actor, in CreateInput, policy BudgetPolicy) (*models.Transaction, *Usage, error) {
	if in.Amount <= 0 {
		return nil, nil, apperr.Validationf("amount 0'dan büyük olmalı")
	}
	if in.Date.IsZero() {
		return nil, nil, apperr.Validationf("date zorunlu")
	}

	switch in.Type {
	case models.TransactionIn, models.TransactionOut:
	default:
		return nil, nil, apperr.Validationf("type 'in' veya 'out' olmalı")
	}

	if in.Type == models.TransactionOut {
		if err := auth.RequireAdmin(actor); err != nil {
			return nil, nil, err
		}
		if in.PhaseID == nil {
			return nil, nil, apperr.Validationf("OUT kayıtları için phase_id zorunlu")
		}
	}

	switch policy {
	case "":
		policy = PolicyWarn
	case PolicyBlock, PolicyWarn, PolicyAllow:
	default:
		return nil, nil, apperr.Validationf("budget_policy 'block', 'warn' veya 'allow' olmalı")
	}

	var txn models.Transaction
	var usage *Usage

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var site models.Site
		if err := tx.First(&site, "id = ?", in.SiteID).Error; err != nil {
			return apperr.NotFoundf("şantiye bulunamadı")
		}

		if in.PhaseID != nil {
			var phase models.Phase
			phaseQ := tx
			if in.Type == models.TransactionOut {
				// Toplama ile ekleme arasına başka bir OUT kaydı
				// giremesin diye etap satırı kilitlenir; aynı etaba
				// eşzamanlı OUT kayıtları burada sıralanır.
				phaseQ = tx.Clauses(clause.Locking{Strength: "UPDATE"})
			}
			if err := phaseQ.First(&phase, "id = ?", *in.PhaseID).Error; err != nil {
				return apperr.NotFoundf("etap bulunamadı")
			}
			if phase.SiteID != in.SiteID {
				return apperr.Validationf("etap bu şantiyeye ait değil")
			}

			if in.Type == models.TransactionOut {
				used, err := phaseOutTotal(tx, phase.ID)
				if err != nil {
					return err
				}
				u := buildUsage(&phase, used+in.Amount)
				usage = &u

				if policy == PolicyBlock && u.OverBudget {
					usage = nil
					return apperr.BudgetExceededf("etap bütçesi aşılıyor (bütçe %.2f, kullanılan %.2f, istenen %.2f)",
						phase.Budget, used, in.Amount)
				}
			}
		}

		txn = models.Transaction{
			SiteID:        in.SiteID,
			PhaseID:       in.PhaseID,
			Type:          in.Type,
			Amount:        in.Amount,
			Date:          in.Date,
			Description:   in.Description,
			PaymentMethod: in.PaymentMethod,
			CreatedBy:     actor.ID,
		}
		return tx.Create(&txn).Error
	})
	if err != nil {
		return nil, nil, err
	}

	return &txn, usage, nil
}

// PhaseUsage etabın güncel bütçe kullanımını döndürür.
func (s *Service) PhaseUsage(phaseID uint) (*Usage, error) {
	var phase models.Phase
	if err := s.db.First(&phase, "id = ?", phaseID).Error; err != nil {
		return nil, apperr.NotFoundf("etap bulunamadı")
	}

	used, err := phaseOutTotal(s.db, phase.ID)
	if err != nil {
		return nil, err
	}

	u := buildUsage(&phase, used)
	return &u, nil
}

// SiteTotals şantiye toplamlarını defterin tamamını tarayarak hesaplar.
// Koşan sayaç tutulmaz; salt-ekleme defterde tam tarama her sıralamada
// aynı sonucu verir.
func (s *Service) SiteTotals(siteID uint) (*Totals, error) {
	totalIn, err := siteTotalByType(s.db, siteID, models.TransactionIn)
	if err != nil {
		return nil, err
	}
	totalOut, err := siteTotalByType(s.db, siteID, models.TransactionOut)
	if err != nil {
		return nil, err
	}

	return &Totals{
		TotalIn:  totalIn,
		TotalOut: totalOut,
		Balance:  totalIn - totalOut,
	}, nil
}

// List şantiyenin defter kayıtlarını tarih sırasıyla döndürür.
func (s *Service) List(siteID uint, from, to *time.Time) ([]models.Transaction, error) {
	dbq := s.db.Model(&models.Transaction{}).Where("site_id = ?", siteID)
	if from != nil {
		dbq = dbq.Where("date >= ?", *from)
	}
	if to != nil {
		dbq = dbq.Where("date <= ?", *to)
	}

	var rows []models.Transaction
	if err := dbq.Order("date asc, id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SetPhaseBudget etap bütçesini günceller. Mevcut kayıtlar geriye dönük
// doğrulanmaz; bütçe düşürülerek etap aşıma girebilir, buna izin verilir.
func (s *Service) SetPhaseBudget(actor auth.Actor, phaseID uint, budget float64) (*models.Phase, *Usage, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, nil, err
	}
	if budget < 0 {
		return nil, nil, apperr.Validationf("budget negatif olamaz")
	}

	var phase models.Phase
	if err := s.db.First(&phase, "id = ?", phaseID).Error; err != nil {
		return nil, nil, apperr.NotFoundf("etap bulunamadı")
	}

	if err := s.db.Model(&phase).Update("budget", budget).Error; err != nil {
		return nil, nil, err
	}
	phase.Budget = budget

	used, err := phaseOutTotal(s.db, phase.ID)
	if err != nil {
		return nil, nil, err
	}
	u := buildUsage(&phase, used)

	return &phase, &u, nil
}

func buildUsage(phase *models.Phase, used float64) Usage {
	return Usage{
		PhaseID:    phase.ID,
		Budget:     phase.Budget,
		Used:       used,
		Remaining:  phase.Budget - used,
		OverBudget: phase.Budget-used < 0,
	}
}

func phaseOutTotal(tx *gorm.DB, phaseID uint) (float64, error) {
	var total float64
	err := tx.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("phase_id = ? AND type = ?", phaseID, models.TransactionOut).
		Scan(&total).Error
	return total, err
}

func siteTotalByType(tx *gorm.DB, siteID uint, typ models.TransactionType) (float64, error) {
	var total float64
	err := tx.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("site_id = ? AND type = ?", siteID, typ).
		Scan(&total).Error
	return total, err
}
