package models

import "time"

type MaterialRequestStatus string

const (
	MaterialPending  MaterialRequestStatus = "pending"
	MaterialApproved MaterialRequestStatus = "approved"
	MaterialRejected MaterialRequestStatus = "rejected"
	MaterialReceived MaterialRequestStatus = "received"
)

// MaterialRequest: saha personelinin malzeme talebi.
// pending -> approved|rejected (yönetici), approved -> received (personel).
// rejected ve received terminal durumlardır.
type MaterialRequest struct {
	ID           uint `gorm:"primaryKey"`
	SiteID       uint `gorm:"index;not null"`
	Site         Site
	TaskID       uint `gorm:"index;not null"`
	Task         Task
	EmployeeID   uint `gorm:"index;not null"` // talebi açan
	Employee     User
	MaterialName string  `gorm:"size:150;not null"`
	Quantity     float64 `gorm:"not null"`
	Notes        string  `gorm:"size:255"`
	Status       MaterialRequestStatus `gorm:"size:20;not null;default:pending"`
	AdminNotes   string                `gorm:"size:255"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
