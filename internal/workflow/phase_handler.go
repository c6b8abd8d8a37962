package workflow

import (
	"fmt"
	"strings"
	"time"

	"santiye-backend/internal/apperr"
	"santiye-backend/internal/audit"
	"santiye-backend/internal/auth"
	"santiye-backend/internal/database"
	"santiye-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreatePhaseRequest struct {
	Name        string   `json:"name"`
	OrderNum    int      `json:"order_num"`
	Budget      float64  `json:"budget"`
	MilestoneID *uint    `json:"milestone_id"`
	StartDate   *string  `json:"start_date"` // "2025-12-09"
	EndDate     *string  `json:"end_date"`
}

type UpdatePhaseRequest struct {
	Name        *string `json:"name"`
	OrderNum    *int    `json:"order_num"`
	MilestoneID *uint   `json:"milestone_id"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
}

type PhaseResponse struct {
	ID              uint    `json:"id"`
	SiteID          uint    `json:"site_id"`
	MilestoneID     *uint   `json:"milestone_id"`
	Name            string  `json:"name"`
	OrderNum        int     `json:"order_num"`
	Budget          float64 `json:"budget"`
	Status          string  `json:"status"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
	StartDate       *string `json:"start_date"`
	EndDate         *string `json:"end_date"`
	IsDelayed       bool    `json:"is_delayed"` // okuma anında türetilir, saklanmaz
}

func toPhaseResponse(p *models.Phase) PhaseResponse {
	resp := PhaseResponse{
		ID:              p.ID,
		SiteID:          p.SiteID,
		MilestoneID:     p.MilestoneID,
		Name:            p.Name,
		OrderNum:        p.OrderNum,
		Budget:          p.Budget,
		Status:          string(p.Status),
		RejectionReason: p.RejectionReason,
		IsDelayed:       PhaseIsDelayed(p, time.Now()),
	}
	if p.StartDate != nil {
		d := p.StartDate.Format("2006-01-02")
		resp.StartDate = &d
	}
	if p.EndDate != nil {
		d := p.EndDate.Format("2006-01-02")
		resp.EndDate = &d
	}
	return resp
}

func parseDateField(value *string, fieldName string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", *value)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, fieldName+" formatı 'YYYY-MM-DD' olmalı")
	}
	return &d, nil
}

// POST /api/admin/sites/:id/phases
func CreatePhaseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		siteID, err := parseIDParam(c, "id")
		if err != nil {
			return err
		}

		var site models.Site
		if err := database.DB.First(&site, "id = ?", siteID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Şantiye bulunamadı")
		}

		var body CreatePhaseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Etap adı zorunlu")
		}
		if body.Budget < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "budget negatif olamaz")
		}

		if body.MilestoneID != nil {
			var ms models.Milestone
			if err := database.DB.First(&ms, "id = ?", *body.MilestoneID).Error; err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Kilometre taşı bulunamadı")
			}
			if ms.SiteID != site.ID {
				return fiber.NewError(fiber.StatusBadRequest, "Kilometre taşı bu şantiyeye ait değil")
			}
		}

		phase := models.Phase{
			SiteID:      site.ID,
			MilestoneID: body.MilestoneID,
			Name:        body.Name,
			OrderNum:    body.OrderNum,
			Budget:      body.Budget,
			Status:      models.PhaseNotStarted,
		}
		if phase.StartDate, err = parseDateField(body.StartDate, "start_date"); err != nil {
			return err
		}
		if phase.EndDate, err = parseDateField(body.EndDate, "end_date"); err != nil {
			return err
		}

		if err := database.DB.Create(&phase).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Etap oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(toPhaseResponse(&phase))
	}
}

// GET /api/sites/:id/phases
func ListPhasesBySiteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		siteID, err := parseIDParam(c, "id")
		if err != nil {
			return err
		}

		var phases []models.Phase
		if err := database.DB.
			Where("site_id = ?", siteID).
			Order("order_num asc, id asc").
			Find(&phases).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Etaplar listelenemedi")
		}

		resp := make([]PhaseResponse, 0, len(phases))
		for i := range phases {
			resp = append(resp, toPhaseResponse(&phases[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/phases/:id
func GetPhaseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		phaseID, err := parseIDParam(c, "id")
		if err != nil {
			return err
		}

		var phase models.Phase
		if err := database.DB.First(&phase, "id = ?", phaseID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Etap bulunamadı")
		}

		return c.JSON(toPhaseResponse(&phase))
	}
}

// PUT /api/admin/phases/:id
func UpdatePhaseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		phaseID, err := parseIDParam(c, "id")
		if err != nil {
			return err
		}

		var phase models.Phase
		if err := database.DB.First(&phase, "id = ?", phaseID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Etap bulunamadı")
		}
		if phase.Status == models.PhaseCompleted {
			return fiber.NewError(fiber.StatusBadRequest, "Tamamlanmış etap düzenlenemez")
		}

		var body UpdatePhaseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Etap adı boş olamaz")
			}
			phase.Name = name
		}
		if body.OrderNum != nil {
			phase.OrderNum = *body.OrderNum
		}
		if body.MilestoneID != nil {
			if *body.MilestoneID == 0 {
				phase.MilestoneID = nil
			} else {
				var ms models.Milestone
				if err := database.DB.First(&ms, "id = ?", *body.MilestoneID).Error; err != nil {
					return fiber.NewError(fiber.StatusBadRequest, "Kilometre taşı bulunamadı")
				}
				if ms.SiteID != phase.SiteID {
					return fiber.NewError(fiber.StatusBadRequest, "Kilometre taşı bu şantiyeye ait değil")
				}
				phase.MilestoneID = body.MilestoneID
			}
		}
		if body.StartDate != nil {
			if phase.StartDate, err = parseDateField(body.StartDate, "start_date"); err != nil {
				return err
			}
		}
		if body.EndDate != nil {
			if phase.EndDate, err = parseDateField(body.EndDate, "end_date"); err != nil {
				return err
			}
		}

		if err := database.DB.Save(&phase).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Etap güncellenemedi")
		}

		return c.JSON(toPhaseResponse(&phase))
	}
}

// DELETE /api/admin/phases/:id
func DeletePhaseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		phaseID, err := parseIDParam(c, "id")
		if err != nil {
			return err
		}

		if err := database.DB.Delete(&models.Phase{}, "id = ?", phaseID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Etap silinemedi")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ---------------------------------
// Durum geçişi endpoint'leri
// ---------------------------------

// PUT /api/phases/:id/start
func StartPhaseHandler() fiber.Handler {
	return phaseTransitionHandler(func(svc *Service, actor auth.Actor, id uint, _ string) (*models.Phase, error) {
		return svc.StartPhase(actor, id)
	}, "Etap başlatıldı")
}

// PUT /api/phases/:id/complete
func CompletePhaseHandler() fiber.Handler {
	return phaseTransitionHandler(func(svc *Service, actor auth.Actor, id uint, _ string) (*models.Phase, error) {
		return svc.CompletePhase(actor, id)
	}, "Etap onaya gönderildi")
}

// PUT /api/phases/:id/approve
func ApprovePhaseHandler() fiber.Handler {
	return phaseTransitionHandler(func(svc *Service, actor auth.Actor, id uint, _ string) (*models.Phase, error) {
		return svc.ApprovePhase(actor, id)
	}, "Etap onaylandı")
}

// PUT /api/phases/:id/reject
func RejectPhaseHandler() fiber.Handler {
	return phaseTransitionHandler(func(svc *Service, actor auth.Actor, id uint, reason string) (*models.Phase, error) {
		return svc.RejectPhase(actor, id, reason)
	}, "Etap reddedildi")
}

func phaseTransitionHandler(fn func(svc *Service, actor auth.Actor, id uint, reason string) (*models.Phase, error), message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		phaseID, err := parseIDParam(c, "id")
		if err != nil {
			return err
		}

		var body RejectRequest
		_ = c.BodyParser(&body)

		phase, err := fn(NewService(database.DB), actor, phaseID, strings.TrimSpace(body.Reason))
		if err != nil {
			return apperr.ToFiber(err)
		}

		if logErr := audit.WriteLog(database.DB, audit.LogOptions{
			SiteID:      &phase.SiteID,
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "phase",
			EntityID:    phase.ID,
			Action:      models.AuditActionTransition,
			Description: fmt.Sprintf("%s: %s -> %s", message, phase.Name, phase.Status),
			After:       fiber.Map{"status": phase.Status},
		}); logErr != nil {
			fmt.Printf("Audit log yazılamadı: %v\n", logErr)
		}

		return c.JSON(fiber.Map{
			"message": message,
			"phase":   toPhaseResponse(phase),
		})
	}
}
