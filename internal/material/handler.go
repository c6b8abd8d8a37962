package material

import (
	"fmt"
	"strings"

	"santiye-backend/internal/apperr"
	"santiye-backend/internal/audit"
	"santiye-backend/internal/auth"
	"santiye-backend/internal/database"
	"santiye-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateMaterialRequestRequest struct {
	SiteID       uint    `json:"site_id"`
	TaskID       uint    `json:"task_id"`
	MaterialName string  `json:"material_name"`
	Quantity     float64 `json:"quantity"`
	Notes        string  `json:"notes"`
}

type SetStatusRequest struct {
	Status     string `json:"status"` // "approved" | "rejected"
	AdminNotes string `json:"admin_notes"`
}

type MaterialRequestResponse struct {
	ID           uint    `json:"id"`
	SiteID       uint    `json:"site_id"`
	TaskID       uint    `json:"task_id"`
	TaskName     string  `json:"task_name,omitempty"`
	EmployeeID   uint    `json:"employee_id"`
	MaterialName string  `json:"material_name"`
	Quantity     float64 `json:"quantity"`
	Notes        string  `json:"notes"`
	Status       string  `json:"status"`
	AdminNotes   string  `json:"admin_notes"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

func toResponse(r *models.MaterialRequest) MaterialRequestResponse {
	return MaterialRequestResponse{
		ID:           r.ID,
		SiteID:       r.SiteID,
		TaskID:       r.TaskID,
		TaskName:     r.Task.Name,
		EmployeeID:   r.EmployeeID,
		MaterialName: r.MaterialName,
		Quantity:     r.Quantity,
		Notes:        r.Notes,
		Status:       string(r.Status),
		AdminNotes:   r.AdminNotes,
		CreatedAt:    r.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:    r.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// POST /api/materials
func CreateMaterialRequestHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var body CreateMaterialRequestRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		req, err := NewService(database.DB).Create(actor, CreateInput{
			SiteID:       body.SiteID,
			TaskID:       body.TaskID,
			MaterialName: strings.TrimSpace(body.MaterialName),
			Quantity:     body.Quantity,
			Notes:        body.Notes,
		})
		if err != nil {
			return apperr.ToFiber(err)
		}

		return c.Status(fiber.StatusCreated).JSON(toResponse(req))
	}
}

// GET /api/materials?site_id=1
func ListMaterialRequestsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var siteID uint
		if sidStr := c.Query("site_id"); sidStr != "" {
			if _, err := fmt.Sscan(sidStr, &siteID); err != nil || siteID == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "site_id geçersiz")
			}
		}

		rows, err := NewService(database.DB).List(actor, siteID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Talepler listelenemedi")
		}

		resp := make([]MaterialRequestResponse, 0, len(rows))
		for i := range rows {
			resp = append(resp, toResponse(&rows[i]))
		}
		return c.JSON(resp)
	}
}

// PUT /api/materials/:id/status
func SetMaterialRequestStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var id uint
		if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id geçersiz")
		}

		var body SetStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		req, err := NewService(database.DB).SetStatus(actor, id, models.MaterialRequestStatus(body.Status), strings.TrimSpace(body.AdminNotes))
		if err != nil {
			return apperr.ToFiber(err)
		}

		if logErr := audit.WriteLog(database.DB, audit.LogOptions{
			SiteID:      &req.SiteID,
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "material_request",
			EntityID:    req.ID,
			Action:      models.AuditActionTransition,
			Description: fmt.Sprintf("Malzeme talebi sonuçlandı: %s -> %s", req.MaterialName, req.Status),
			After:       fiber.Map{"status": req.Status, "admin_notes": req.AdminNotes},
		}); logErr != nil {
			fmt.Printf("Audit log yazılamadı: %v\n", logErr)
		}

		return c.JSON(fiber.Map{
			"message": "Talep güncellendi",
			"request": toResponse(req),
		})
	}
}

// PUT /api/materials/:id/received
func MarkMaterialReceivedHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var id uint
		if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id geçersiz")
		}

		req, err := NewService(database.DB).MarkReceived(actor, id)
		if err != nil {
			return apperr.ToFiber(err)
		}

		return c.JSON(fiber.Map{
			"message": "Malzeme teslim alındı",
			"request": toResponse(req),
		})
	}
}
