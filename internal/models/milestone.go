package models

import "time"

type MilestoneStatus string

const (
	MilestoneNotStarted MilestoneStatus = "not_started"
	MilestoneInProgress MilestoneStatus = "in_progress"
	MilestoneCompleted  MilestoneStatus = "completed"
	MilestoneDelayed    MilestoneStatus = "delayed"
)

// Milestone: etapları gruplayan kilometre taşı. Progress bağlı
// etaplardaki görev sayımlarından türetilir ve her okumada yeniden
// hesaplanıp önbellek olarak geri yazılır. Status yalnızca yönetici
// tarafından değiştirilir; gecikme bayrağı okuma anında türetilir.
type Milestone struct {
	ID           uint `gorm:"primaryKey"`
	SiteID       uint `gorm:"index;not null"`
	Site         Site
	Name         string `gorm:"size:150;not null"`
	PlannedStart *time.Time
	PlannedEnd   *time.Time
	Status       MilestoneStatus `gorm:"size:20;not null;default:not_started"`
	Progress     int             `gorm:"not null;default:0"` // yüzde, önbellek
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
