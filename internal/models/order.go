package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusFailed: Satır kalemleri yazılamayan yarım siparişler bu
	// duruma çekilir ve hiçbir listelemede görünmez.
	OrderStatusFailed OrderStatus = "failed"
)

type PaidStatus string

const (
	PaidStatusUnpaid PaidStatus = "unpaid"
	PaidStatusPaid   PaidStatus = "paid"
)

type Order struct {
	ID         uint        `gorm:"primaryKey"`
	UserID     uint        `gorm:"index;not null"`
	Status     OrderStatus `gorm:"size:20;index;not null;default:pending"`
	PaidStatus PaidStatus  `gorm:"size:20;not null;default:unpaid"`
	Total      decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	// Aynı isteğin timeout sonrası tekrarını tanımak için; unique index
	// sayesinde ikinci deneme yeni sipariş yaratamaz.
	IdempotencyKey *string `gorm:"size:64;uniqueIndex"`
	Items          []OrderItem
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type OrderItem struct {
	ID        uint `gorm:"primaryKey"`
	OrderID   uint `gorm:"index;not null"`
	ProductID uint `gorm:"not null"`
	Product   Product
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(10,2);not null"` // sipariş anındaki fiyat snapshot'ı
}
