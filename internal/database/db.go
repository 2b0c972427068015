package database

import (
	"log"

	"koffieblik-backend/internal/config"
	"koffieblik-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Veritabanına bağlanılamadı: %v", err)
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.Product{},
		&models.StockItem{},
		&models.StockAdjustment{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.LoyaltyPoint{},
		&models.StockTake{},
		&models.BadgeGrant{},
	)
	if err != nil {
		log.Fatalf("AutoMigrate hatası: %v", err)
	}

	if err := ApplyConstraints(DB); err != nil {
		log.Fatalf("Constraint migration hatası: %v", err)
	}

	log.Println("Veritabanı bağlantısı başarılı. Migration tamamlandı.")
}

// ApplyConstraints: AutoMigrate'in ifade edemediği kısıtlar. Uygulama
// seviyesindeki check-then-insert yarışa açık olduğu için tekil-aktif-sayım
// kuralı DB seviyesinde tutulur.
func ApplyConstraints(db *gorm.DB) error {
	// Aynı anda en fazla bir in_progress stok sayımı (partial unique index)
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_stock_takes_single_active
		ON stock_takes (status) WHERE status = 'in_progress'
	`).Error; err != nil {
		return err
	}
	return nil
}
