package models

import "time"

type LoyaltyPointType string

const (
	LoyaltyPointEarn   LoyaltyPointType = "earn"
	LoyaltyPointRedeem LoyaltyPointType = "redeem"
)

// LoyaltyPoint: Append-only sadakat puanı ledger'ı. Earn kayıtları pozitif,
// redeem kayıtları negatif yazılır; kullanıcının bakiyesi bu satırların
// toplamıdır.
type LoyaltyPoint struct {
	ID          uint  `gorm:"primaryKey"`
	UserID      uint  `gorm:"index;not null"`
	OrderID     *uint `gorm:"index"`
	Points      int   `gorm:"not null"` // işaretli: earn +, redeem -
	Type        LoyaltyPointType `gorm:"size:10;not null"`
	Description string           `gorm:"size:255"`
	// Redeem tekrarları için; unique index ikinci denemeyi yeni kayıt
	// yazmaktan alıkoyar.
	IdempotencyKey *string `gorm:"size:64;uniqueIndex"`
	CreatedAt      time.Time
}
