package models

import "time"

// UserProfile: Sadakat puanı bakiyesi ledger'dan türetilen bir projeksiyondur.
// Tek başına güvenilmez; her okuma LoyaltyPoint toplamıyla doğrulanır,
// güncelleme ise ledger insert'iyle aynı transaction içinde yapılır.
type UserProfile struct {
	ID            uint `gorm:"primaryKey"`
	UserID        uint `gorm:"uniqueIndex;not null"`
	User          User
	DisplayName   string `gorm:"size:100"`
	LoyaltyPoints int    `gorm:"not null;default:0"`
	CreatedAt     time.Time // hesap yaşı rozetleri bu tarihten hesaplanır
	UpdatedAt     time.Time
}
