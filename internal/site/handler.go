package site

import (
	"strings"
	"time"

	"santiye-backend/internal/database"
	"santiye-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type SiteResponse struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	Location  string  `json:"location"`
	Status    string  `json:"status"`
	Budget    float64 `json:"budget"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	CreatedAt string  `json:"created_at"`
}

type CreateSiteRequest struct {
	Name      string  `json:"name"`
	Location  string  `json:"location"`
	Budget    float64 `json:"budget"`
	StartDate *string `json:"start_date"` // "2025-12-09"
	EndDate   *string `json:"end_date"`
}

type UpdateSiteRequest struct {
	Name      *string  `json:"name"`
	Location  *string  `json:"location"`
	Status    *string  `json:"status"`
	Budget    *float64 `json:"budget"`
	StartDate *string  `json:"start_date"`
	EndDate   *string  `json:"end_date"`
}

type CreateEmployeeRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type EmployeeResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Phone     string `json:"phone"`
	CreatedAt string `json:"created_at"`
}

func toSiteResponse(s *models.Site) SiteResponse {
	resp := SiteResponse{
		ID:        s.ID,
		Name:      s.Name,
		Location:  s.Location,
		Status:    string(s.Status),
		Budget:    s.Budget,
		CreatedAt: s.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if s.StartDate != nil {
		d := s.StartDate.Format("2006-01-02")
		resp.StartDate = &d
	}
	if s.EndDate != nil {
		d := s.EndDate.Format("2006-01-02")
		resp.EndDate = &d
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

func validSiteStatus(s string) bool {
	switch models.SiteStatus(s) {
	case models.SiteStatusActive, models.SiteStatusCompleted,
		models.SiteStatusDelayed, models.SiteStatusPending:
		return true
	}
	return false
}

// ----------------------------------------
// ŞANTİYE CRUD (yönetici)
// ----------------------------------------

// POST /api/admin/sites
func CreateSiteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSiteRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Şantiye adı boş olamaz")
		}
		if body.Budget < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "budget negatif olamaz")
		}

		s := models.Site{
			Name:     body.Name,
			Location: body.Location,
			Status:   models.SiteStatusPending,
			Budget:   body.Budget,
		}

		var err error
		if s.StartDate, err = parseDate(body.StartDate, "start_date"); err != nil {
			return err
		}
		if s.EndDate, err = parseDate(body.EndDate, "end_date"); err != nil {
			return err
		}

		if err := database.DB.Create(&s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şantiye oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(toSiteResponse(&s))
	}
}

// GET /api/sites
func ListSitesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var sites []models.Site
		if err := database.DB.Order("id asc").Find(&sites).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şantiyeler listelenemedi")
		}

		res := make([]SiteResponse, 0, len(sites))
		for i := range sites {
			res = append(res, toSiteResponse(&sites[i]))
		}
		return c.JSON(res)
	}
}

// GET /api/sites/:id
func GetSiteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var s models.Site
		if err := database.DB.First(&s, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Şantiye bulunamadı")
		}

		return c.JSON(toSiteResponse(&s))
	}
}

// PUT /api/admin/sites/:id
func UpdateSiteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var s models.Site
		if err := database.DB.First(&s, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Şantiye bulunamadı")
		}

		var body UpdateSiteRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Şantiye adı boş olamaz")
			}
			s.Name = name
		}
		if body.Location != nil {
			s.Location = *body.Location
		}
		if body.Status != nil {
			// Şantiye durumu yalnızca buradan, yönetici eliyle değişir
			if !validSiteStatus(*body.Status) {
				return fiber.NewError(fiber.StatusBadRequest, "status geçersiz (active|completed|delayed|pending)")
			}
			s.Status = models.SiteStatus(*body.Status)
		}
		if body.Budget != nil {
			if *body.Budget < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "budget negatif olamaz")
			}
			s.Budget = *body.Budget
		}

		var err error
		if body.StartDate != nil {
			if s.StartDate, err = parseDate(body.StartDate, "start_date"); err != nil {
				return err
			}
		}
		if body.EndDate != nil {
			if s.EndDate, err = parseDate(body.EndDate, "end_date"); err != nil {
				return err
			}
		}

		if err := database.DB.Save(&s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şantiye güncellenemedi")
		}

		return c.JSON(toSiteResponse(&s))
	}
}

// DELETE /api/admin/sites/:id
func DeleteSiteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		if err := database.DB.Delete(&models.Site{}, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şantiye silinemedi")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ----------------------------------------
// PERSONEL HESAPLARI (yönetici)
// ----------------------------------------

// POST /api/admin/employees
func CreateEmployeeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateEmployeeRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		body.Email = strings.ToLower(strings.TrimSpace(body.Email))
		body.Name = strings.TrimSpace(body.Name)

		if body.Name == "" || body.Email == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "İsim, email ve şifre zorunlu")
		}

		var exist models.User
		if err := database.DB.Where("email = ?", body.Email).First(&exist).Error; err == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Bu email zaten kayıtlı")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şifre hashlenemedi")
		}

		user := models.User{
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         models.RoleEmployee,
			Phone:        strings.TrimSpace(body.Phone),
		}

		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Personel oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		})
	}
}

// GET /api/admin/employees
func ListEmployeesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := database.DB.
			Where("role = ?", models.RoleEmployee).
			Order("created_at DESC").
			Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Personel listelenemedi")
		}

		res := make([]EmployeeResponse, 0, len(users))
		for _, u := range users {
			res = append(res, EmployeeResponse{
				ID:        u.ID,
				Name:      u.Name,
				Email:     u.Email,
				Role:      string(u.Role),
				Phone:     u.Phone,
				CreatedAt: u.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return c.JSON(res)
	}
}
