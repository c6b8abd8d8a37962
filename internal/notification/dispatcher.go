package notification

import (
	"fmt"

	"santiye-backend/internal/models"

	"gorm.io/gorm"
)

const (
	TypeMaterialRequestCreated = "material_request_created"
	TypeMaterialRequestStatus  = "material_request_status"
	TypeMaterialReceived       = "material_received"
)

// Event bir durum geçişiyle birlikte üretilen bildirim olayı.
// Kayıtlar geçişi yapan veritabanı transaction'ı içinde yazılır;
// böylece bildirim, geçiş başarısına bağlı olarak en-az-bir-kez
// garantisiyle kalıcılaşır. Taşıma (push, e-posta) dışarıda kalır.
type Event struct {
	SiteID     uint
	Recipients []uint
	Type       string
	Message    string
}

// Dispatch olayları alıcı başına bir satır olarak açar.
func Dispatch(tx *gorm.DB, events ...Event) error {
	for _, ev := range events {
		for _, rid := range ev.Recipients {
			n := models.Notification{
				SiteID:     ev.SiteID,
				EmployeeID: rid,
				Type:       ev.Type,
				Message:    ev.Message,
			}
			if err := tx.Create(&n).Error; err != nil {
				return fmt.Errorf("bildirim yazılamadı: %w", err)
			}
		}
	}
	return nil
}

// AdminIDs yönetici hesaplarının id listesini döndürür (fan-out için).
func AdminIDs(tx *gorm.DB) ([]uint, error) {
	var ids []uint
	if err := tx.Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
