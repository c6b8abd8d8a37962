package ledger

import (
	"fmt"
	"time"

	"santiye-backend/internal/apperr"
	"santiye-backend/internal/audit"
	"santiye-backend/internal/auth"
	"santiye-backend/internal/database"
	"santiye-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateTransactionRequest struct {
	PhaseID       *uint   `json:"phase_id"`
	Type          string  `json:"type"` // "in" | "out"
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"` // "2025-12-09"
	Description   string  `json:"description"`
	PaymentMethod string  `json:"payment_method"` // IN için: cash | transfer | check
	BudgetPolicy  string  `json:"budget_policy"`  // block | warn | allow (boşsa warn)
}

type TransactionResponse struct {
	ID            uint    `json:"id"`
	SiteID        uint    `json:"site_id"`
	PhaseID       *uint   `json:"phase_id"`
	Type          string  `json:"type"`
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"`
	Description   string  `json:"description"`
	PaymentMethod string  `json:"payment_method,omitempty"`
	CreatedBy     uint    `json:"created_by"`
}

type CreateTransactionResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Usage       *Usage              `json:"usage,omitempty"`
	Warning     string              `json:"warning,omitempty"`
}

type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Totals       Totals                `json:"totals"`
}

type SetPhaseBudgetRequest struct {
	Budget *float64 `json:"budget"`
}

func toResponse(t *models.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            t.ID,
		SiteID:        t.SiteID,
		PhaseID:       t.PhaseID,
		Type:          string(t.Type),
		Amount:        t.Amount,
		Date:          t.Date.Format("2006-01-02"),
		Description:   t.Description,
		PaymentMethod: string(t.PaymentMethod),
		CreatedBy:     t.CreatedBy,
	}
}

// POST /api/sites/:id/transactions
func CreateTransactionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var siteID uint
		if _, err := fmt.Sscan(c.Params("id"), &siteID); err != nil || siteID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "site id geçersiz")
		}

		var body CreateTransactionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		if body.Date == "" {
			return fiber.NewError(fiber.StatusBadRequest, "date zorunlu")
		}
		d, err := time.Parse("2006-01-02", body.Date)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Tarih formatı 'YYYY-MM-DD' olmalı")
		}

		svc := NewService(database.DB)
		txn, usage, err := svc.Record(actor, CreateInput{
			SiteID:        siteID,
			PhaseID:       body.PhaseID,
			Type:          models.TransactionType(body.Type),
			Amount:        body.Amount,
			Date:          d,
			Description:   body.Description,
			PaymentMethod: models.PaymentMethod(body.PaymentMethod),
		}, BudgetPolicy(body.BudgetPolicy))
		if err != nil {
			return apperr.ToFiber(err)
		}

		if logErr := audit.WriteLog(database.DB, audit.LogOptions{
			SiteID:      &txn.SiteID,
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "transaction",
			EntityID:    txn.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Defter kaydı eklendi: %s %.2f", txn.Type, txn.Amount),
			After:       toResponse(txn),
		}); logErr != nil {
			// Log hatası kritik değil, sadece log'la
			fmt.Printf("Audit log yazılamadı: %v\n", logErr)
		}

		resp := CreateTransactionResponse{
			Transaction: toResponse(txn),
			Usage:       usage,
		}
		if usage != nil && usage.OverBudget {
			resp.Warning = fmt.Sprintf("Etap bütçesi aşıldı: kalan %.2f", usage.Remaining)
		}

		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// GET /api/sites/:id/transactions?from=2025-01-01&to=2025-12-31
func ListTransactionsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var siteID uint
		if _, err := fmt.Sscan(c.Params("id"), &siteID); err != nil || siteID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "site id geçersiz")
		}

		var from, to *time.Time
		if fromStr := c.Query("from"); fromStr != "" {
			d, err := time.Parse("2006-01-02", fromStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "from geçersiz")
			}
			from = &d
		}
		if toStr := c.Query("to"); toStr != "" {
			d, err := time.Parse("2006-01-02", toStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "to geçersiz")
			}
			to = &d
		}

		svc := NewService(database.DB)

		rows, err := svc.List(siteID, from, to)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kayıtlar listelenemedi")
		}
		totals, err := svc.SiteTotals(siteID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Toplamlar hesaplanamadı")
		}

		resp := ListTransactionsResponse{
			Transactions: make([]TransactionResponse, 0, len(rows)),
			Totals:       *totals,
		}
		for i := range rows {
			resp.Transactions = append(resp.Transactions, toResponse(&rows[i]))
		}

		return c.JSON(resp)
	}
}

// GET /api/phases/:id/usage
func PhaseUsageHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var phaseID uint
		if _, err := fmt.Sscan(c.Params("id"), &phaseID); err != nil || phaseID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "phase id geçersiz")
		}

		usage, err := NewService(database.DB).PhaseUsage(phaseID)
		if err != nil {
			return apperr.ToFiber(err)
		}

		return c.JSON(usage)
	}
}

// PUT /api/phases/:id/budget
func SetPhaseBudgetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var phaseID uint
		if _, err := fmt.Sscan(c.Params("id"), &phaseID); err != nil || phaseID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "phase id geçersiz")
		}

		var body SetPhaseBudgetRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.Budget == nil {
			return fiber.NewError(fiber.StatusBadRequest, "budget zorunlu")
		}

		phase, usage, err := NewService(database.DB).SetPhaseBudget(actor, phaseID, *body.Budget)
		if err != nil {
			return apperr.ToFiber(err)
		}

		if logErr := audit.WriteLog(database.DB, audit.LogOptions{
			SiteID:      &phase.SiteID,
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "phase",
			EntityID:    phase.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Etap bütçesi güncellendi: %.2f", phase.Budget),
			After:       fiber.Map{"budget": phase.Budget},
		}); logErr != nil {
			fmt.Printf("Audit log yazılamadı: %v\n", logErr)
		}

		return c.JSON(fiber.Map{
			"id":     phase.ID,
			"budget": phase.Budget,
			"usage":  usage,
		})
	}
}
