package models

import "time"

type ReferenceType string

const (
	ReferenceTypeUser      ReferenceType = "user"
	ReferenceTypeOrder     ReferenceType = "order"
	ReferenceTypeStockTake ReferenceType = "stock_take"
)

// StockAdjustment: Append-only stok hareket kaydı. Asla update veya delete
// edilmez; bir stok kaleminin miktar geçmişi bu satırların toplamından
// yeniden kurulabilir.
type StockAdjustment struct {
	ID          uint `gorm:"primaryKey"`
	StockItemID uint `gorm:"index;not null"`
	StockItem   StockItem
	DeltaQty    float64       `gorm:"not null"` // yeni - eski
	Reference   string        `gorm:"size:255;not null"` // neden (ör: "spill", "Order #42")
	RefType     ReferenceType `gorm:"size:20;not null;default:user"`
	ActorID     uint          `gorm:"index;not null"`
	CreatedAt   time.Time
}
