package dashboard

import (
	"fmt"
	"time"

	"santiye-backend/internal/database"
	"santiye-backend/internal/ledger"
	"santiye-backend/internal/milestone"
	"santiye-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type MilestoneSummary struct {
	ID         uint    `json:"id"`
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	Progress   int     `json:"progress"`
	PlannedEnd *string `json:"planned_end"`
	IsDelayed  bool    `json:"is_delayed"`
}

type SiteSummaryResponse struct {
	SiteID          uint               `json:"site_id"`
	SiteName        string             `json:"site_name"`
	SiteStatus      string             `json:"site_status"`
	Budget          float64            `json:"budget"`
	Totals          ledger.Totals      `json:"totals"`
	PhaseCounts     map[string]int64   `json:"phase_counts"`
	OpenMaterialReq int64              `json:"open_material_requests"`
	Milestones      []MilestoneSummary `json:"milestones"`
}

// GET /api/dashboard/site-summary?site_id=1
//
// Şantiyenin özet ekranı: defter toplamları, etapların durum dağılımı,
// bekleyen malzeme talepleri ve kilometre taşı ilerlemeleri tek cevapta.
func SiteSummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var siteID uint
		if _, err := fmt.Sscan(c.Query("site_id"), &siteID); err != nil || siteID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "site_id geçersiz")
		}

		var site models.Site
		if err := database.DB.First(&site, "id = ?", siteID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Şantiye bulunamadı")
		}

		totals, err := ledger.NewService(database.DB).SiteTotals(siteID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Toplamlar hesaplanamadı")
		}

		var phaseRows []struct {
			Status string
			Count  int64
		}
		if err := database.DB.Model(&models.Phase{}).
			Select("status, COUNT(*) as count").
			Where("site_id = ?", siteID).
			Group("status").
			Scan(&phaseRows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Etap dağılımı hesaplanamadı")
		}
		phaseCounts := make(map[string]int64, len(phaseRows))
		for _, r := range phaseRows {
			phaseCounts[r.Status] = r.Count
		}

		var openMaterial int64
		if err := database.DB.Model(&models.MaterialRequest{}).
			Where("site_id = ? AND status = ?", siteID, models.MaterialPending).
			Count(&openMaterial).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Talep sayısı hesaplanamadı")
		}

		milestones, err := milestone.NewService(database.DB).ListBySite(siteID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kilometre taşları listelenemedi")
		}

		now := time.Now()
		msSummaries := make([]MilestoneSummary, 0, len(milestones))
		for i := range milestones {
			m := &milestones[i]
			ms := MilestoneSummary{
				ID:        m.ID,
				Name:      m.Name,
				Status:    string(m.Status),
				Progress:  m.Progress,
				IsDelayed: milestone.IsDelayed(m, now),
			}
			if m.PlannedEnd != nil {
				d := m.PlannedEnd.Format("2006-01-02")
				ms.PlannedEnd = &d
			}
			msSummaries = append(msSummaries, ms)
		}

		return c.JSON(SiteSummaryResponse{
			SiteID:          site.ID,
			SiteName:        site.Name,
			SiteStatus:      string(site.Status),
			Budget:          site.Budget,
			Totals:          *totals,
			PhaseCounts:     phaseCounts,
			OpenMaterialReq: openMaterial,
			Milestones:      msSummaries,
		})
	}
}
