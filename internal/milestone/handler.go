package milestone

import (
	"fmt"
	"strings"
	"time"

	"santiye-backend/internal/apperr"
	"santiye-backend/internal/auth"
	"santiye-backend/internal/database"
	"santiye-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateMilestoneRequest struct {
	SiteID       uint    `json:"site_id"`
	Name         string  `json:"name"`
	PlannedStart *string `json:"planned_start"` // "2025-12-09"
	PlannedEnd   *string `json:"planned_end"`
}

type UpdateMilestoneRequest struct {
	Name         *string `json:"name"`
	PlannedStart *string `json:"planned_start"`
	PlannedEnd   *string `json:"planned_end"`
	Status       *string `json:"status"`
}

type MilestoneResponse struct {
	ID           uint    `json:"id"`
	SiteID       uint    `json:"site_id"`
	Name         string  `json:"name"`
	PlannedStart *string `json:"planned_start"`
	PlannedEnd   *string `json:"planned_end"`
	Status       string  `json:"status"`
	Progress     int     `json:"progress"`
	IsDelayed    bool    `json:"is_delayed"` // okuma anında türetilir
}

func toResponse(m *models.Milestone) MilestoneResponse {
	resp := MilestoneResponse{
		ID:        m.ID,
		SiteID:    m.SiteID,
		Name:      m.Name,
		Status:    string(m.Status),
		Progress:  m.Progress,
		IsDelayed: IsDelayed(m, time.Now()),
	}
	if m.PlannedStart != nil {
		d := m.PlannedStart.Format("2006-01-02")
		resp.PlannedStart = &d
	}
	if m.PlannedEnd != nil {
		d := m.PlannedEnd.Format("2006-01-02")
		resp.PlannedEnd = &d
	}
	return resp
}

func parseDate(value *string, fieldName string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", *value)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, fieldName+" formatı 'YYYY-MM-DD' olmalı")
	}
	return &d, nil
}

// POST /api/admin/milestones
func CreateMilestoneHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var body CreateMilestoneRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		in := CreateInput{
			SiteID: body.SiteID,
			Name:   strings.TrimSpace(body.Name),
		}
		if in.PlannedStart, err = parseDate(body.PlannedStart, "planned_start"); err != nil {
			return err
		}
		if in.PlannedEnd, err = parseDate(body.PlannedEnd, "planned_end"); err != nil {
			return err
		}

		m, err := NewService(database.DB).Create(actor, in)
		if err != nil {
			return apperr.ToFiber(err)
		}

		return c.Status(fiber.StatusCreated).JSON(toResponse(m))
	}
}

// GET /api/milestones/:id
func GetMilestoneHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id uint
		if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id geçersiz")
		}

		m, err := NewService(database.DB).Get(id)
		if err != nil {
			return apperr.ToFiber(err)
		}

		return c.JSON(toResponse(m))
	}
}

// GET /api/sites/:id/milestones
func ListMilestonesBySiteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var siteID uint
		if _, err := fmt.Sscan(c.Params("id"), &siteID); err != nil || siteID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "site id geçersiz")
		}

		rows, err := NewService(database.DB).ListBySite(siteID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kilometre taşları listelenemedi")
		}

		resp := make([]MilestoneResponse, 0, len(rows))
		for i := range rows {
			resp = append(resp, toResponse(&rows[i]))
		}
		return c.JSON(resp)
	}
}

// PUT /api/admin/milestones/:id
func UpdateMilestoneHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var id uint
		if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id geçersiz")
		}

		var body UpdateMilestoneRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		in := UpdateInput{Name: body.Name}
		if in.PlannedStart, err = parseDate(body.PlannedStart, "planned_start"); err != nil {
			return err
		}
		if in.PlannedEnd, err = parseDate(body.PlannedEnd, "planned_end"); err != nil {
			return err
		}
		if body.Status != nil {
			st := models.MilestoneStatus(*body.Status)
			in.Status = &st
		}

		m, err := NewService(database.DB).Update(actor, id, in)
		if err != nil {
			return apperr.ToFiber(err)
		}

		return c.JSON(toResponse(m))
	}
}

// DELETE /api/admin/milestones/:id
func DeleteMilestoneHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var id uint
		if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id geçersiz")
		}

		if err := NewService(database.DB).Delete(actor, id); err != nil {
			return apperr.ToFiber(err)
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
