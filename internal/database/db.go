package database

import (
	"log"

	"santiye-backend/internal/config"
	"santiye-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Open verilen dialector ile bağlanır ve şemayı kurar. Testler aynı
// şemayı sqlite üzerinde kurabilsin diye Init'ten ayrı tutuldu.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Site{},
		&models.Phase{},
		&models.Task{},
		&models.Transaction{},
		&models.MaterialRequest{},
		&models.Milestone{},
		&models.Notification{},
		&models.AuditLog{},
	)
}

func Init(cfg *config.Config) {
	db, err := Open(postgres.Open(cfg.DatabaseDSN))
	if err != nil {
		log.Fatalf("Veritabanına bağlanılamadı: %v", err)
	}
	DB = db
	log.Println("Veritabanı bağlantısı başarılı. Migration tamamlandı.")
}
