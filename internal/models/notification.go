package models

import "time"

// Notification: durum geçişleriyle aynı veritabanı transaction'ı
// içinde yazılan bildirim kaydı. Teslimat (push, e-posta vb.) bu
// çekirdeğin dışındadır.
type Notification struct {
	ID         uint `gorm:"primaryKey"`
	SiteID     uint `gorm:"index;not null"`
	EmployeeID uint `gorm:"index;not null"` // alıcı
	Type       string `gorm:"size:50;not null"`
	Message    string `gorm:"size:255;not null"`
	IsRead     bool   `gorm:"not null;default:false"`
	CreatedAt  time.Time
}
