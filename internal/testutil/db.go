package testutil

import (
	"fmt"
	"testing"

	"koffieblik-backend/internal/database"
	"koffieblik-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB: In-memory SQLite üzerinde tam şema. Tek bağlantıya sabitlenir ki
// :memory: veritabanı bağlantılar arasında kaybolmasın. Handler'lar global
// database.DB kullandığı için o da test veritabanına yönlendirilir.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
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
	))
	require.NoError(t, database.ApplyConstraints(db))

	database.DB = db
	t.Cleanup(func() {
		database.DB = nil
		_ = sqlDB.Close()
	})

	return db
}

// CreateUser: Kullanıcı + sadakat profili.
func CreateUser(t *testing.T, db *gorm.DB, role models.UserRole) models.User {
	t.Helper()

	user := models.User{
		Name:         fmt.Sprintf("Test %s", role),
		Email:        fmt.Sprintf("%s-%d@test.local", role, newSeq()),
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.Create(&user).Error)

	profile := models.UserProfile{
		UserID:      user.ID,
		DisplayName: user.Name,
	}
	require.NoError(t, db.Create(&profile).Error)

	return user
}

func CreateProduct(t *testing.T, db *gorm.DB, name string, price string) models.Product {
	t.Helper()

	p := models.Product{
		Name:        name,
		UnitPrice:   decimal.RequireFromString(price),
		IsAvailable: true,
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func CreateStockItem(t *testing.T, db *gorm.DB, name string, quantity float64, unitType string) models.StockItem {
	t.Helper()

	item := models.StockItem{
		Name:     name,
		Quantity: quantity,
		UnitType: unitType,
	}
	require.NoError(t, db.Create(&item).Error)
	return item
}

var seq int

func newSeq() int {
	seq++
	return seq
}
