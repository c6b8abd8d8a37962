package models

import "time"

type TaskStatus string

const (
	TaskNotStarted      TaskStatus = "not_started"
	TaskInProgress      TaskStatus = "in_progress"
	TaskWaitingApproval TaskStatus = "waiting_approval"
	TaskCompleted       TaskStatus = "completed"
	TaskRejected        TaskStatus = "rejected"
)

type Task struct {
	ID              uint `gorm:"primaryKey"`
	PhaseID         uint `gorm:"index;not null"`
	Phase           Phase
	SiteID          uint `gorm:"index;not null"` // okuma kolaylığı için denormalize
	Name            string     `gorm:"size:150;not null"`
	Description     string     `gorm:"size:255"`
	Status          TaskStatus `gorm:"size:20;not null;default:not_started"`
	RejectionReason string     `gorm:"size:255"`
	DueDate         *time.Time
	CompletedAt     *time.Time
	Amount          *float64 // opsiyonel maliyet tahmini
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Employees []User `gorm:"many2many:task_assignments"`
}
