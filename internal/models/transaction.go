package models

import "time"

type TransactionType string

const (
	TransactionIn  TransactionType = "in"  // tahsilat
	TransactionOut TransactionType = "out" // harcama
)

type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodCheck    PaymentMethod = "check"
)

// Transaction: defter kaydı. Oluşturulduktan sonra değiştirilemez;
// düzeltmeler ters yönlü yeni kayıtla yapılır. OUT kayıtlarında
// phase_id zorunludur.
type Transaction struct {
	ID            uint `gorm:"primaryKey"`
	SiteID        uint `gorm:"index;not null"`
	Site          Site
	PhaseID       *uint `gorm:"index"`
	Type          TransactionType `gorm:"size:10;not null"`
	Amount        float64         `gorm:"not null"`
	Date          time.Time       `gorm:"index;not null"`
	Description   string          `gorm:"size:255"`
	PaymentMethod PaymentMethod   `gorm:"size:20"` // yalnızca IN kayıtlarında
	CreatedBy     uint            `gorm:"not null"`
	CreatedAt     time.Time
}
