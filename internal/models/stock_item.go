package models

import "time"

type StockItem struct {
	ID               uint     `gorm:"primaryKey"`
	Name             string   `gorm:"size:100;not null;uniqueIndex"`
	Quantity         float64  `gorm:"not null"`
	UnitType         string   `gorm:"size:20;not null"` // kg, litre, adet vs.
	MaxCapacity      *float64 // opsiyonel üst sınır
	ReservedQuantity float64  `gorm:"not null;default:0"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Available: Rezerve edilmiş miktar düşüldükten sonra kullanılabilir stok.
func (s *StockItem) Available() float64 {
	return s.Quantity - s.ReservedQuantity
}
