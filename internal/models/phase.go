package models

import "time"

type PhaseStatus string

const (
	PhaseNotStarted      PhaseStatus = "not_started"
	PhaseInProgress      PhaseStatus = "in_progress"
	PhaseWaitingApproval PhaseStatus = "waiting_approval"
	PhaseCompleted       PhaseStatus = "completed"
	PhaseDelayed         PhaseStatus = "delayed"
	PhaseRejected        PhaseStatus = "rejected"
)

// Phase: şantiyenin bir etabı. Budget etaba ayrılan tavandır;
// harcamalar defterden toplanarak bu tavana karşı değerlendirilir,
// site.Budget ile kümülatif doğrulama yapılmaz.
type Phase struct {
	ID              uint   `gorm:"primaryKey"`
	SiteID          uint   `gorm:"index;not null"`
	Site            Site
	MilestoneID     *uint  `gorm:"index"` // opsiyonel kilometre taşı bağı
	Name            string `gorm:"size:150;not null"`
	OrderNum        int    `gorm:"not null;default:0"`
	Budget          float64 `gorm:"not null;default:0"`
	Status          PhaseStatus `gorm:"size:20;not null;default:not_started"`
	RejectionReason string      `gorm:"size:255"`
	StartDate       *time.Time
	EndDate         *time.Time // planlanan bitiş; gecikme bundan türetilir
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Tasks []Task
}
