package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodPoints PaymentMethod = "points"
)

type Payment struct {
	ID       uint `gorm:"primaryKey"`
	OrderID  uint `gorm:"index;not null"`
	Order    Order
	Method   PaymentMethod   `gorm:"size:20;not null"`
	Amount   decimal.Decimal `gorm:"type:numeric(10,2);not null"` // puan ödemelerinde sıfır veya kısmi tutar
	Status   string          `gorm:"size:20;not null;default:completed"`
	CreatedAt time.Time
}
