package workflow

import (
	"time"

	"santiye-backend/internal/apperr"
	"santiye-backend/internal/auth"
	"santiye-backend/internal/models"

	"gorm.io/gorm"
)

// Service görev ve etap yaşam döngüsünü yönetir. Geçiş kuralları:
//
//	not_started -> in_progress          (start)
//	in_progress -> waiting_approval     (complete, personel)
//	waiting_approval -> completed       (approve, yalnızca yönetici)
//	waiting_approval -> in_progress     (reject, yalnızca yönetici, gerekçeli)
//
// Personel kendi işini onaylayamaz; completed'a giden tek yol yönetici
// onayıdır. Her geçiş, durum korumalı tek UPDATE ile tek transaction
// içinde uygulanır: koşul tutmazsa satır etkilenmez ve eşzamanlı
// ikinci istek Conflict alır, ara bozuk durum oluşmaz.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// ---------------------------------
// Görev geçişleri
// ---------------------------------

func (s *Service) StartTask(actor auth.Actor, taskID uint) (*models.Task, error) {
	return s.taskTransition(taskID, models.TaskNotStarted, models.TaskInProgress, map[string]any{})
}

func (s *Service) CompleteTask(actor auth.Actor, taskID uint) (*models.Task, error) {
	// Tamamlama doğrudan completed yapmaz; yönetici onayı bekler
	return s.taskTransition(taskID, models.TaskInProgress, models.TaskWaitingApproval, map[string]any{})
}

func (s *Service) ApproveTask(actor auth.Actor, taskID uint) (*models.Task, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	// Önceki bir reddin gerekçesi onaylanan kayıtta kalmasın
	return s.taskTransition(taskID, models.TaskWaitingApproval, models.TaskCompleted, map[string]any{
		"completed_at":     time.Now(),
		"rejection_reason": "",
	})
}

func (s *Service) RejectTask(actor auth.Actor, taskID uint, reason string) (*models.Task, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, apperr.Validationf("reddetme gerekçesi zorunlu")
	}
	// Reddedilen iş personele geri döner; gerekçe kayıtta kalır
	return s.taskTransition(taskID, models.TaskWaitingApproval, models.TaskInProgress, map[string]any{
		"rejection_reason": reason,
	})
}

// AssignTask personelin görev üyeliğini açıp kapatır. Tamamlanmış
// göreve atama yapılamaz; başka yan etkisi yoktur.
func (s *Service) AssignTask(actor auth.Actor, taskID, employeeID uint) (*models.Task, bool, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, false, err
	}

	var task models.Task
	var assigned bool

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Employees").First(&task, "id = ?", taskID).Error; err != nil {
			return apperr.NotFoundf("görev bulunamadı")
		}
		if task.Status == models.TaskCompleted {
			return apperr.InvalidStatef("tamamlanmış göreve atama değiştirilemez")
		}

		var emp models.User
		if err := tx.First(&emp, "id = ?", employeeID).Error; err != nil {
			return apperr.NotFoundf("personel bulunamadı")
		}
		if emp.Role != models.RoleEmployee {
			return apperr.Validationf("yalnızca personel hesapları göreve atanabilir")
		}

		already := false
		for _, e := range task.Employees {
			if e.ID == emp.ID {
				already = true
				break
			}
		}

		assoc := tx.Model(&task).Association("Employees")
		if already {
			if err := assoc.Delete(&emp); err != nil {
				return err
			}
			assigned = false
		} else {
			if err := assoc.Append(&emp); err != nil {
				return err
			}
			assigned = true
		}

		return tx.Preload("Employees").First(&task, "id = ?", taskID).Error
	})
	if err != nil {
		return nil, false, err
	}

	return &task, assigned, nil
}

type UpdateTaskInput struct {
	Name        *string
	Description *string
	DueDate     *time.Time
	Amount      *float64
}

// UpdateTask serbest alan düzenlemesi. Tamamlanmamış her durumda
// yapılabilir; yönetici tüm alanları, personel yalnızca açıklamayı
// değiştirebilir.
func (s *Service) UpdateTask(actor auth.Actor, taskID uint, in UpdateTaskInput) (*models.Task, error) {
	var task models.Task
	if err := s.db.Preload("Employees").First(&task, "id = ?", taskID).Error; err != nil {
		return nil, apperr.NotFoundf("görev bulunamadı")
	}
	if task.Status == models.TaskCompleted {
		return nil, apperr.InvalidStatef("tamamlanmış görev düzenlenemez")
	}

	if !actor.IsAdmin() && (in.Name != nil || in.DueDate != nil || in.Amount != nil) {
		return nil, apperr.Forbiddenf("personel yalnızca açıklama alanını düzenleyebilir")
	}

	updates := map[string]any{}
	if in.Name != nil {
		if *in.Name == "" {
			return nil, apperr.Validationf("görev adı boş olamaz")
		}
		updates["name"] = *in.Name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.DueDate != nil {
		updates["due_date"] = *in.DueDate
	}
	if in.Amount != nil {
		updates["amount"] = *in.Amount
	}

	if len(updates) > 0 {
		if err := s.db.Model(&task).Updates(updates).Error; err != nil {
			return nil, err
		}
		if err := s.db.Preload("Employees").First(&task, "id = ?", taskID).Error; err != nil {
			return nil, err
		}
	}

	return &task, nil
}

func (s *Service) taskTransition(taskID uint, from models.TaskStatus, to models.TaskStatus, updates map[string]any) (*models.Task, error) {
	var task models.Task

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&task, "id = ?", taskID).Error; err != nil {
			return apperr.NotFoundf("görev bulunamadı")
		}
		if task.Status != from {
			return apperr.InvalidTransitionf("görev '%s' durumunda; bu işlem '%s' durumunu gerektirir", task.Status, from)
		}

		updates["status"] = to
		res := tx.Model(&models.Task{}).
			Where("id = ? AND status = ?", taskID, from).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflictf("görev eşzamanlı başka bir istekle değişti")
		}

		return tx.Preload("Employees").First(&task, "id = ?", taskID).Error
	})
	if err != nil {
		return nil, err
	}

	return &task, nil
}

// ---------------------------------
// Etap geçişleri (görev geçişlerinin bir üst seviyedeki karşılığı)
// ---------------------------------

func (s *Service) StartPhase(actor auth.Actor, phaseID uint) (*models.Phase, error) {
	return s.phaseTransition(phaseID, models.PhaseNotStarted, models.PhaseInProgress, map[string]any{})
}

func (s *Service) CompletePhase(actor auth.Actor, phaseID uint) (*models.Phase, error) {
	return s.phaseTransition(phaseID, models.PhaseInProgress, models.PhaseWaitingApproval, map[string]any{})
}

func (s *Service) ApprovePhase(actor auth.Actor, phaseID uint) (*models.Phase, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.phaseTransition(phaseID, models.PhaseWaitingApproval, models.PhaseCompleted, map[string]any{
		"rejection_reason": "",
	})
}

func (s *Service) RejectPhase(actor auth.Actor, phaseID uint, reason string) (*models.Phase, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, apperr.Validationf("reddetme gerekçesi zorunlu")
	}
	return s.phaseTransition(phaseID, models.PhaseWaitingApproval, models.PhaseInProgress, map[string]any{
		"rejection_reason": reason,
	})
}

func (s *Service) phaseTransition(phaseID uint, from models.PhaseStatus, to models.PhaseStatus, updates map[string]any) (*models.Phase, error) {
	var phase models.Phase

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&phase, "id = ?", phaseID).Error; err != nil {
			return apperr.NotFoundf("etap bulunamadı")
		}
		if phase.Status != from {
			return apperr.InvalidTransitionf("etap '%s' durumunda; bu işlem '%s' durumunu gerektirir", phase.Status, from)
		}

		updates["status"] = to
		res := tx.Model(&models.Phase{}).
			Where("id = ? AND status = ?", phaseID, from).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflictf("etap eşzamanlı başka bir istekle değişti")
		}

		return tx.First(&phase, "id = ?", phaseID).Error
	})
	if err != nil {
		return nil, err
	}

	return &phase, nil
}

// PhaseIsDelayed okuma anında türetilen gecikme bayrağı. Saklanan
// status'a yazılmaz; delayed durumuna geçiş yönetici kararıdır.
func PhaseIsDelayed(p *models.Phase, now time.Time) bool {
	if p.EndDate == nil || p.Status == models.PhaseCompleted {
		return false
	}
	return p.EndDate.Before(now)
}
