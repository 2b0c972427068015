package models

import "time"

type StockTakeStatus string

const (
	StockTakeInProgress StockTakeStatus = "in_progress"
	StockTakeCompleted  StockTakeStatus = "completed"
)

// StockTake: Manuel stok sayımı süreci. "idle" durumu satır yokluğuyla temsil
// edilir; aynı anda en fazla bir in_progress kayıt olabilir (partial unique
// index ile DB seviyesinde garanti edilir, bkz. database.Init).
type StockTake struct {
	ID          uint            `gorm:"primaryKey"`
	Status      StockTakeStatus `gorm:"size:20;index;not null"`
	StartedBy   uint            `gorm:"not null"`
	CompletedBy *uint
	StartedAt   time.Time `gorm:"not null"`
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
