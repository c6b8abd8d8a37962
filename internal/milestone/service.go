package milestone

import (
	"math"
	"time"

	"santiye-backend/internal/apperr"
	"santiye-backend/internal/auth"
	"santiye-backend/internal/models"

	"gorm.io/gorm"
)

// Service kilometre taşı CRUD'u ve ilerleme türetimini yönetir.
// İlerleme, bağlı etaplardaki görev sayımlarının saf bir fonksiyonudur;
// her okumada yeniden hesaplanır ve değiştiyse satıra önbellek olarak
// geri yazılır. Böylece özet ekranları yeniden hesaplamadan önbelleği
// okuyabilir.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

type CreateInput struct {
	SiteID       uint
	Name         string
	PlannedStart *time.Time
	PlannedEnd   *time.Time
}

type UpdateInput struct {
	Name         *string
	PlannedStart *time.Time
	PlannedEnd   *time.Time
	Status       *models.MilestoneStatus
}

// ComputeProgress görev sayımlarından yüzde hesabı. Görev yoksa 0.
func ComputeProgress(total, completed int64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// IsDelayed okuma anında türetilen gecikme bayrağı; status'a yazılmaz,
// delayed durumuna geçiş yönetici kararıdır.
func IsDelayed(m *models.Milestone, now time.Time) bool {
	if m.PlannedEnd == nil || m.Status == models.MilestoneCompleted {
		return false
	}
	return m.PlannedEnd.Before(now)
}

func (s *Service) Create(actor auth.Actor, in CreateInput) (*models.Milestone, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if in.SiteID == 0 {
		return nil, apperr.Validationf("site_id zorunlu")
	}
	if in.Name == "" {
		return nil, apperr.Validationf("name zorunlu")
	}

	var site models.Site
	if err := s.db.First(&site, "id = ?", in.SiteID).Error; err != nil {
		return nil, apperr.NotFoundf("şantiye bulunamadı")
	}

	m := models.Milestone{
		SiteID:       in.SiteID,
		Name:         in.Name,
		PlannedStart: in.PlannedStart,
		PlannedEnd:   in.PlannedEnd,
		Status:       models.MilestoneNotStarted,
	}
	if err := s.db.Create(&m).Error; err != nil {
		return nil, err
	}

	return &m, nil
}

// Get kilometre taşını güncel ilerlemeyle döndürür.
func (s *Service) Get(id uint) (*models.Milestone, error) {
	var m models.Milestone
	if err := s.db.First(&m, "id = ?", id).Error; err != nil {
		return nil, apperr.NotFoundf("kilometre taşı bulunamadı")
	}

	if err := s.refreshProgress(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListBySite şantiyenin kilometre taşlarını güncel ilerlemeyle döndürür.
func (s *Service) ListBySite(siteID uint) ([]models.Milestone, error) {
	var rows []models.Milestone
	if err := s.db.Where("site_id = ?", siteID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}

	for i := range rows {
		if err := s.refreshProgress(&rows[i]); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (s *Service) Update(actor auth.Actor, id uint, in UpdateInput) (*models.Milestone, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}

	var m models.Milestone
	if err := s.db.First(&m, "id = ?", id).Error; err != nil {
		return nil, apperr.NotFoundf("kilometre taşı bulunamadı")
	}

	updates := map[string]any{}
	if in.Name != nil {
		if *in.Name == "" {
			return nil, apperr.Validationf("name boş olamaz")
		}
		updates["name"] = *in.Name
	}
	if in.PlannedStart != nil {
		updates["planned_start"] = *in.PlannedStart
	}
	if in.PlannedEnd != nil {
		updates["planned_end"] = *in.PlannedEnd
	}
	if in.Status != nil {
		switch *in.Status {
		case models.MilestoneNotStarted, models.MilestoneInProgress,
			models.MilestoneCompleted, models.MilestoneDelayed:
		default:
			return nil, apperr.Validationf("status geçersiz")
		}
		updates["status"] = *in.Status
	}

	if len(updates) > 0 {
		if err := s.db.Model(&m).Updates(updates).Error; err != nil {
			return nil, err
		}
		if err := s.db.First(&m, "id = ?", id).Error; err != nil {
			return nil, err
		}
	}

	if err := s.refreshProgress(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Delete kilometre taşını kaldırmadan önce bağlı etapların bağını
// çözer; etaplar hiçbir zaman yan etki olarak silinmez.
func (s *Service) Delete(actor auth.Actor, id uint) error {
	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var m models.Milestone
		if err := tx.First(&m, "id = ?", id).Error; err != nil {
			return apperr.NotFoundf("kilometre taşı bulunamadı")
		}

		if err := tx.Model(&models.Phase{}).
			Where("milestone_id = ?", m.ID).
			Update("milestone_id", nil).Error; err != nil {
			return err
		}

		return tx.Delete(&m).Error
	})
}

// refreshProgress ilerlemeyi yeniden hesaplar ve değiştiyse satıra
// geri yazar (fırsatçı önbellek yazımı).
func (s *Service) refreshProgress(m *models.Milestone) error {
	var phaseIDs []uint
	if err := s.db.Model(&models.Phase{}).
		Where("milestone_id = ?", m.ID).
		Pluck("id", &phaseIDs).Error; err != nil {
		return err
	}

	var total, completed int64
	if len(phaseIDs) > 0 {
		if err := s.db.Model(&models.Task{}).
			Where("phase_id IN ?", phaseIDs).
			Count(&total).Error; err != nil {
			return err
		}
		if err := s.db.Model(&models.Task{}).
			Where("phase_id IN ? AND status = ?", phaseIDs, models.TaskCompleted).
			Count(&completed).Error; err != nil {
			return err
		}
	}

	progress := ComputeProgress(total, completed)
	if progress != m.Progress {
		if err := s.db.Model(m).Update("progress", progress).Error; err != nil {
			return err
		}
		m.Progress = progress
	}
	return nil
}
