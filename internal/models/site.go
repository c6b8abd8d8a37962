package models

import "time"

type SiteStatus string

const (
	SiteStatusActive    SiteStatus = "active"
	SiteStatusCompleted SiteStatus = "completed"
	SiteStatusDelayed   SiteStatus = "delayed"
	SiteStatusPending   SiteStatus = "pending"
)

// Site: şantiye (proje). Durumu yalnızca yönetici değiştirir,
// çekirdek hiçbir zaman otomatik geçiş yapmaz.
type Site struct {
	ID        uint       `gorm:"primaryKey"`
	Name      string     `gorm:"size:150;not null"`
	Location  string     `gorm:"size:255"`
	Status    SiteStatus `gorm:"size:20;not null;default:pending"`
	Budget    float64    `gorm:"not null;default:0"` // toplam proje bütçesi
	StartDate *time.Time
	EndDate   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time

	Phases []Phase
}
