package notification

import (
	"santiye-backend/internal/auth"
	"santiye-backend/internal/database"
	"santiye-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type NotificationResponse struct {
	ID        uint   `json:"id"`
	SiteID    uint   `json:"site_id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

// GET /api/notifications?unread=true
func ListMyNotificationsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.Notification{}).
			Where("employee_id = ?", actor.ID)

		if c.Query("unread") == "true" {
			dbq = dbq.Where("is_read = ?", false)
		}

		var rows []models.Notification
		if err := dbq.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bildirimler listelenemedi")
		}

		resp := make([]NotificationResponse, 0, len(rows))
		for _, n := range rows {
			resp = append(resp, NotificationResponse{
				ID:        n.ID,
				SiteID:    n.SiteID,
				Type:      n.Type,
				Message:   n.Message,
				IsRead:    n.IsRead,
				CreatedAt: n.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}

		return c.JSON(resp)
	}
}

// PUT /api/notifications/:id/read
func MarkReadHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		id := c.Params("id")

		var n models.Notification
		if err := database.DB.First(&n, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Bildirim bulunamadı")
		}
		if n.EmployeeID != actor.ID {
			return fiber.NewError(fiber.StatusForbidden, "Bu bildirim size ait değil")
		}

		if !n.IsRead {
			if err := database.DB.Model(&n).Update("is_read", true).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Bildirim güncellenemedi")
			}
		}

		return c.JSON(fiber.Map{"message": "Bildirim okundu olarak işaretlendi"})
	}
}
