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

type CreateTaskRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	DueDate     *string  `json:"due_date"` // "2025-12-09"
	Amount      *float64 `json:"amount"`
}

type UpdateTaskRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	DueDate     *string  `json:"due_date"`
	Amount      *float64 `json:"amount"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type AssignTaskRequest struct {
	EmployeeID uint `json:"employee_id"`
}

type EmployeeBrief struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type TaskResponse struct {
	ID              uint            `json:"id"`
	PhaseID         uint            `json:"phase_id"`
	SiteID          uint            `json:"site_id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Status          string          `json:"status"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	DueDate         *string         `json:"due_date"`
	CompletedAt     *string         `json:"completed_at"`
	Amount          *float64        `json:"amount"`
	Employees       []EmployeeBrief `json:"employees"`
}

func toTaskResponse(t *models.Task) TaskResponse {
	resp := TaskResponse{
		ID:              t.ID,
		PhaseID:         t.PhaseID,
		SiteID:          t.SiteID,
		Name:            t.Name,
		Description:     t.Description,
		Status:          string(t.Status),
		RejectionReason: t.RejectionReason,
		Amount:          t.Amount,
		Employees:       make([]EmployeeBrief, 0, len(t.Employees)),
	}
	if t.DueDate != nil {
		d := t.DueDate.Format("2006-01-02")
		resp.DueDate = &d
	}
	if t.CompletedAt != nil {
		d := t.CompletedAt.Format("2006-01-02 15:04:05")
		resp.CompletedAt = &d
	}
	for _, e := range t.Employees {
		resp.Employees = append(resp.Employees, EmployeeBrief{ID: e.ID, Name: e.Name})
	}
	return resp
}

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	var id uint
	if _, err := fmt.Sscan(c.Params(name), &id); err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, name+" geçersiz")
	}
	return id, nil
}

// POST /api/admin/phases/:id/tasks
func CreateTaskHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		phaseID, err := parseIDParam(c, "id")
		if err != nil {
			return err
		}

		var phase models.Phase
		if err := database.DB.First(&phase, "id = ?", phaseID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Etap bulunamadı")
		}

		var body CreateTaskRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Görev adı zorunlu")
		}

		task := models.Task{
			PhaseID:     phase.ID,
			SiteID:      phase.SiteID, // okuma kolaylığı için denormalize
			Name:        body.Name,
			Description: body.Description,
			Status:      models.TaskNotStarted,
			Amount:      body.Amount,
		}
		if body.DueDate != nil && *body.DueDate != "" {
			d, err := time.Parse("2006-01-02", *body.DueDate)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Tarih formatı 'YYYY-MM-DD' olmalı")
			}
			task.DueDate = &d
		}

		if err := database.DB.Create(&task).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Görev oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(toTaskResponse(&task))
	}
}

// GET /api/phases/:id/tasks
func ListTasksByPhaseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		phaseID, err := parseIDParam(c, "id")
		if err != nil {
			return err
		}

		var tasks []models.Task
		if err := database.DB.Preload("Employees").
			Where("phase_id = ?", phaseID).
			Order("id asc").
			Find(&tasks).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Görevler listelenemedi")
		}

		resp := make([]TaskResponse, 0, len(tasks))
		for i := range tasks {
			resp = append(resp, toTaskResponse(&tasks[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/tasks/:id
func GetTaskHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		taskID, err := parseIDParam(c, "id")
		if err != nil {
			return err
		}

		var task models.Task
		if err := database.DB.Preload("Employees").First(&task, "id = ?", taskID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Görev bulunamadı")
		}

		return c.JSON(toTaskResponse(&task))
	}
}

// PUT /api/tasks/:id
func UpdateTaskHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		taskID, err := parseIDParam(c, "id")
		if err != nil {
			return err
		}

		var body UpdateTaskRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		in := UpdateTaskInput{
			Name:        body.Name,
			Description: body.Description,
			Amount:      body.Amount,
		}
		if body.DueDate != nil && *body.DueDate != "" {
			d, err := time.Parse("2006-01-02", *body.DueDate)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Tarih formatı 'YYYY-MM-DD' olmalı")
			}
			in.DueDate = &d
		}

		task, err := NewService(database.DB).UpdateTask(actor, taskID, in)
		if err != nil {
			return apperr.ToFiber(err)
		}

		return c.JSON(toTaskResponse(task))
	}
}

// DELETE /api/admin/tasks/:id
func DeleteTaskHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		taskID, err := parseIDParam(c, "id")
		if err != nil {
			return err
		}

		if err := database.DB.Delete(&models.Task{}, "id = ?", taskID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Görev silinemedi")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ---------------------------------
// Durum geçişi endpoint'leri
// ---------------------------------

// PUT /api/tasks/:id/start
func StartTaskHandler() fiber.Handler {
	return taskTransitionHandler(func(svc *Service, actor auth.Actor, id uint, _ string) (*models.Task, error) {
		return svc.StartTask(actor, id)
	}, "Görev başlatıldı")
}

// PUT /api/tasks/:id/complete
func CompleteTaskHandler() fiber.Handler {
	return taskTransitionHandler(func(svc *Service, actor auth.Actor, id uint, _ string) (*models.Task, error) {
		return svc.CompleteTask(actor, id)
	}, "Görev onaya gönderildi")
}

// PUT /api/tasks/:id/approve
func ApproveTaskHandler() fiber.Handler {
	return taskTransitionHandler(func(svc *Service, actor auth.Actor, id uint, _ string) (*models.Task, error) {
		return svc.ApproveTask(actor, id)
	}, "Görev onaylandı")
}

// PUT /api/tasks/:id/reject
func RejectTaskHandler() fiber.Handler {
	return taskTransitionHandler(func(svc *Service, actor auth.Actor, id uint, reason string) (*models.Task, error) {
		return svc.RejectTask(actor, id, reason)
	}, "Görev reddedildi")
}

func taskTransitionHandler(fn func(svc *Service, actor auth.Actor, id uint, reason string) (*models.Task, error), message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		taskID, err := parseIDParam(c, "id")
		if err != nil {
			return err
		}

		// reason yalnızca reject için gerekir, diğer gövdeler boş
		var body RejectRequest
		_ = c.BodyParser(&body)

		task, err := fn(NewService(database.DB), actor, taskID, strings.TrimSpace(body.Reason))
		if err != nil {
			return apperr.ToFiber(err)
		}

		if logErr := audit.WriteLog(database.DB, audit.LogOptions{
			SiteID:      &task.SiteID,
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "task",
			EntityID:    task.ID,
			Action:      models.AuditActionTransition,
			Description: fmt.Sprintf("%s: %s -> %s", message, task.Name, task.Status),
			After:       fiber.Map{"status": task.Status},
		}); logErr != nil {
			fmt.Printf("Audit log yazılamadı: %v\n", logErr)
		}

		return c.JSON(fiber.Map{
			"message": message,
			"task":    toTaskResponse(task),
		})
	}
}

// PUT /api/tasks/:id/assign
func AssignTaskHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		taskID, err := parseIDParam(c, "id")
		if err != nil {
			return err
		}

		var body AssignTaskRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.EmployeeID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "employee_id zorunlu")
		}

		task, assigned, err := NewService(database.DB).AssignTask(actor, taskID, body.EmployeeID)
		if err != nil {
			return apperr.ToFiber(err)
		}

		message := "Personel görevden çıkarıldı"
		if assigned {
			message = "Personel göreve atandı"
		}

		return c.JSON(fiber.Map{
			"message": message,
			"task":    toTaskResponse(task),
		})
	}
}
