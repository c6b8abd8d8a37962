package main

import (
	"log"
	"strings"

	"santiye-backend/internal/audit"
	"santiye-backend/internal/auth"
	"santiye-backend/internal/config"
	"santiye-backend/internal/dashboard"
	"santiye-backend/internal/database"
	"santiye-backend/internal/ledger"
	"santiye-backend/internal/material"
	"santiye-backend/internal/milestone"
	"santiye-backend/internal/models"
	"santiye-backend/internal/notification"
	"santiye-backend/internal/site"
	"santiye-backend/internal/workflow"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Unexpected error:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Beklenmeyen sunucu hatası",
			})
		},
	})

	// CORS origins'i virgülle ayrılmış string'den temizleyerek uygula
	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Yönetici route'ları
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	// Şantiye yönetimi
	adminRoutes.Post("/sites", site.CreateSiteHandler())
	adminRoutes.Put("/sites/:id", site.UpdateSiteHandler())
	adminRoutes.Delete("/sites/:id", site.DeleteSiteHandler())

	// Personel hesapları
	adminRoutes.Post("/employees", site.CreateEmployeeHandler())
	adminRoutes.Get("/employees", site.ListEmployeesHandler())

	// Etap yönetimi
	adminRoutes.Post("/sites/:id/phases", workflow.CreatePhaseHandler())
	adminRoutes.Put("/phases/:id", workflow.UpdatePhaseHandler())
	adminRoutes.Delete("/phases/:id", workflow.DeletePhaseHandler())

	// Görev yönetimi
	adminRoutes.Post("/phases/:id/tasks", workflow.CreateTaskHandler())
	adminRoutes.Delete("/tasks/:id", workflow.DeleteTaskHandler())

	// Kilometre taşları
	adminRoutes.Post("/milestones", milestone.CreateMilestoneHandler())
	adminRoutes.Put("/milestones/:id", milestone.UpdateMilestoneHandler())
	adminRoutes.Delete("/milestones/:id", milestone.DeleteMilestoneHandler())

	// Audit logs
	adminRoutes.Get("/audit-logs", audit.ListAuditLogsHandler())

	// Ortak (auth gerektiren) route'lar

	// Şantiyeler
	protected.Get("/sites", site.ListSitesHandler())
	protected.Get("/sites/:id", site.GetSiteHandler())

	// Etaplar
	protected.Get("/sites/:id/phases", workflow.ListPhasesBySiteHandler())
	protected.Get("/phases/:id", workflow.GetPhaseHandler())
	protected.Put("/phases/:id/start", workflow.StartPhaseHandler())
	protected.Put("/phases/:id/complete", workflow.CompletePhaseHandler())
	protected.Put("/phases/:id/approve", workflow.ApprovePhaseHandler())
	protected.Put("/phases/:id/reject", workflow.RejectPhaseHandler())
	protected.Get("/phases/:id/usage", ledger.PhaseUsageHandler())
	protected.Put("/phases/:id/budget", ledger.SetPhaseBudgetHandler())

	// Görevler
	protected.Get("/phases/:id/tasks", workflow.ListTasksByPhaseHandler())
	protected.Get("/tasks/:id", workflow.GetTaskHandler())
	protected.Put("/tasks/:id", workflow.UpdateTaskHandler())
	protected.Put("/tasks/:id/start", workflow.StartTaskHandler())
	protected.Put("/tasks/:id/complete", workflow.CompleteTaskHandler())
	protected.Put("/tasks/:id/approve", workflow.ApproveTaskHandler())
	protected.Put("/tasks/:id/reject", workflow.RejectTaskHandler())
	protected.Put("/tasks/:id/assign", workflow.AssignTaskHandler())

	// Malzeme talepleri
	protected.Post("/materials", material.CreateMaterialRequestHandler())
	protected.Get("/materials", material.ListMaterialRequestsHandler())
	protected.Put("/materials/:id/status", material.SetMaterialRequestStatusHandler())
	protected.Put("/materials/:id/received", material.MarkMaterialReceivedHandler())

	// Finans defteri
	protected.Post("/sites/:id/transactions", ledger.CreateTransactionHandler())
	protected.Get("/sites/:id/transactions", ledger.ListTransactionsHandler())

	// Kilometre taşı okumaları
	protected.Get("/sites/:id/milestones", milestone.ListMilestonesBySiteHandler())
	protected.Get("/milestones/:id", milestone.GetMilestoneHandler())

	// Bildirimler
	protected.Get("/notifications", notification.ListMyNotificationsHandler())
	protected.Put("/notifications/:id/read", notification.MarkReadHandler())

	// Dashboard
	protected.Get("/dashboard/site-summary", dashboard.SiteSummaryHandler())

	log.Println("Server çalışıyor port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
