package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          uint            `gorm:"primaryKey"`
	Name        string          `gorm:"size:100;not null;uniqueIndex"`
	Description string          `gorm:"size:255"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(10,2);not null"` // güncel fiyat; siparişe snapshot olarak kopyalanır
	IsAvailable bool            `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
