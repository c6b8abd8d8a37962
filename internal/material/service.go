package material

import (
	"fmt"

	"santiye-backend/internal/apperr"
	"santiye-backend/internal/auth"
	"santiye-backend/internal/models"
	"santiye-backend/internal/notification"

	"gorm.io/gorm"
)

// Service malzeme talebi iş akışını yönetir:
//
//	pending -> approved | rejected   (yönetici)
//	approved -> received             (talep sahibi)
//
// rejected ve received terminal durumlardır. Her geçiş, ürettiği
// bildirimle birlikte tek veritabanı transaction'ı içinde yazılır.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

type CreateInput struct {
	SiteID       uint
	TaskID       uint
	MaterialName string
	Quantity     float64
	Notes        string
}

// Create yeni talebi pending olarak açar ve tüm yöneticilere bildirim
// üretir.
func (s *Service) Create(actor auth.Actor, in CreateInput) (*models.MaterialRequest, error) {
	if in.SiteID == 0 {
		return nil, apperr.Validationf("site_id zorunlu")
	}
	if in.TaskID == 0 {
		return nil, apperr.Validationf("task_id zorunlu")
	}
	if in.MaterialName == "" {
		return nil, apperr.Validationf("material_name zorunlu")
	}
	if in.Quantity <= 0 {
		return nil, apperr.Validationf("quantity 0'dan büyük olmalı")
	}

	var req models.MaterialRequest

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var site models.Site
		if err := tx.First(&site, "id = ?", in.SiteID).Error; err != nil {
			return apperr.NotFoundf("şantiye bulunamadı")
		}
		var task models.Task
		if err := tx.First(&task, "id = ?", in.TaskID).Error; err != nil {
			return apperr.NotFoundf("görev bulunamadı")
		}
		if task.SiteID != in.SiteID {
			return apperr.Validationf("görev bu şantiyeye ait değil")
		}

		req = models.MaterialRequest{
			SiteID:       in.SiteID,
			TaskID:       in.TaskID,
			EmployeeID:   actor.ID,
			MaterialName: in.MaterialName,
			Quantity:     in.Quantity,
			Notes:        in.Notes,
			Status:       models.MaterialPending,
		}
		if err := tx.Create(&req).Error; err != nil {
			return err
		}

		admins, err := notification.AdminIDs(tx)
		if err != nil {
			return err
		}
		return notification.Dispatch(tx, notification.Event{
			SiteID:     req.SiteID,
			Recipients: admins,
			Type:       notification.TypeMaterialRequestCreated,
			Message:    fmt.Sprintf("Yeni malzeme talebi: %s (%.2f) - %s", req.MaterialName, req.Quantity, actor.Name),
		})
	})
	if err != nil {
		return nil, err
	}

	return &req, nil
}

// SetStatus bekleyen talebi sonuçlandırır. Yalnızca pending
// durumundan approved veya rejected'a geçilebilir; sonuç talep
// sahibine bildirilir.
func (s *Service) SetStatus(actor auth.Actor, requestID uint, status models.MaterialRequestStatus, adminNotes string) (*models.MaterialRequest, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}

	switch status {
	case models.MaterialApproved, models.MaterialRejected:
	default:
		return nil, apperr.Validationf("status 'approved' veya 'rejected' olmalı")
	}

	var req models.MaterialRequest

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, "id = ?", requestID).Error; err != nil {
			return apperr.NotFoundf("malzeme talebi bulunamadı")
		}
		if req.Status != models.MaterialPending {
			return apperr.InvalidTransitionf("talep '%s' durumunda; yalnızca bekleyen talepler sonuçlandırılabilir", req.Status)
		}

		res := tx.Model(&models.MaterialRequest{}).
			Where("id = ? AND status = ?", requestID, models.MaterialPending).
			Updates(map[string]any{"status": status, "admin_notes": adminNotes})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflictf("talep eşzamanlı başka bir istekle değişti")
		}

		if err := tx.First(&req, "id = ?", requestID).Error; err != nil {
			return err
		}

		outcome := "onaylandı"
		if status == models.MaterialRejected {
			outcome = "reddedildi"
		}
		message := fmt.Sprintf("Malzeme talebiniz %s: %s", outcome, req.MaterialName)
		if adminNotes != "" {
			message += " - " + adminNotes
		}
		return notification.Dispatch(tx, notification.Event{
			SiteID:     req.SiteID,
			Recipients: []uint{req.EmployeeID},
			Type:       notification.TypeMaterialRequestStatus,
			Message:    message,
		})
	})
	if err != nil {
		return nil, err
	}

	return &req, nil
}

// MarkReceived onaylı talebi teslim alındı olarak kapatır ve
// yöneticilere bildirim üretir. Yalnızca talep sahibi (veya yönetici)
// teslim alabilir.
func (s *Service) MarkReceived(actor auth.Actor, requestID uint) (*models.MaterialRequest, error) {
	var req models.MaterialRequest

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, "id = ?", requestID).Error; err != nil {
			return apperr.NotFoundf("malzeme talebi bulunamadı")
		}
		if !actor.IsAdmin() && req.EmployeeID != actor.ID {
			return apperr.Forbiddenf("yalnızca talep sahibi teslim alabilir")
		}
		if req.Status != models.MaterialApproved {
			return apperr.InvalidStatef("teslim alınabilmesi için talep 'approved' durumunda olmalı (mevcut: %s)", req.Status)
		}

		res := tx.Model(&models.MaterialRequest{}).
			Where("id = ? AND status = ?", requestID, models.MaterialApproved).
			Update("status", models.MaterialReceived)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflictf("talep eşzamanlı başka bir istekle değişti")
		}

		if err := tx.First(&req, "id = ?", requestID).Error; err != nil {
			return err
		}

		admins, err := notification.AdminIDs(tx)
		if err != nil {
			return err
		}
		return notification.Dispatch(tx, notification.Event{
			SiteID:     req.SiteID,
			Recipients: admins,
			Type:       notification.TypeMaterialReceived,
			Message:    fmt.Sprintf("Malzeme teslim alındı: %s - %s", req.MaterialName, actor.Name),
		})
	})
	if err != nil {
		return nil, err
	}

	return &req, nil
}

// List rol kapsamlı listeleme: personel yalnızca kendi taleplerini,
// yönetici hepsini görür. siteID 0 ise şantiye filtresi uygulanmaz.
func (s *Service) List(actor auth.Actor, siteID uint) ([]models.MaterialRequest, error) {
	dbq := s.db.Model(&models.MaterialRequest{}).Preload("Task")

	if siteID != 0 {
		dbq = dbq.Where("site_id = ?", siteID)
	}
	if !actor.IsAdmin() {
		dbq = dbq.Where("employee_id = ?", actor.ID)
	}

	var rows []models.MaterialRequest
	if err := dbq.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
