package stock

import (
	"errors"
	"strings"
	"time"

	"koffieblik-backend/internal/apperr"
	"koffieblik-backend/internal/models"

	"gorm.io/gorm"
)

// Stok sayımı durum makinesi: idle -> in_progress -> completed. "idle" aktif
// satır yokluğudur; completed terminaldir, sayım yeniden açılmaz.
// Tekil-aktif-sayım kuralını uygulama katmanındaki bir check-then-insert
// DEĞİL, stock_takes üzerindeki partial unique index korur
// (database.ApplyConstraints). Buradaki ön kontrol sadece daha iyi hata
// mesajı içindir.

// StartStockTake: Yeni sayım başlatır. Aktif sayım varsa Conflict.
func StartStockTake(db *gorm.DB, actorID uint) (*models.StockTake, error) {
	if actorID == 0 {
		return nil, apperr.Unauthorized("Actor id zorunlu")
	}

	st := models.StockTake{
		Status:    models.StockTakeInProgress,
		StartedBy: actorID,
		StartedAt: time.Now(),
	}
	if err := db.Create(&st).Error; err != nil {
		// Unique index ihlali = yarışta kaybettik veya zaten aktif sayım var
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("Devam eden bir stok sayımı zaten var", false)
		}
		return nil, apperr.IO(err, "Stok sayımı başlatılamadı")
	}
	return &st, nil
}

// CompleteStockTake: Sayımı kapatır. id verilmezse tek aktif sayımı bulur;
// aktif sayım yoksa NotFound.
func CompleteStockTake(db *gorm.DB, stockTakeID *uint, actorID uint) (*models.StockTake, error) {
	if actorID == 0 {
		return nil, apperr.Unauthorized("Actor id zorunlu")
	}

	var st models.StockTake
	if stockTakeID != nil {
		if err := db.First(&st, *stockTakeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFound("Stok sayımı bulunamadı")
			}
			return nil, apperr.IO(err, "Stok sayımı okunamadı")
		}
	} else {
		err := db.Where("status = ?", models.StockTakeInProgress).First(&st).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFound("Aktif stok sayımı yok")
			}
			return nil, apperr.IO(err, "Stok sayımı okunamadı")
		}
	}

	if st.Status == models.StockTakeCompleted {
		return nil, apperr.Conflict("Stok sayımı zaten tamamlanmış", false)
	}

	now := time.Now()
	res := db.Model(&models.StockTake{}).
		Where("id = ? AND status = ?", st.ID, models.StockTakeInProgress).
		Updates(map[string]any{
			"status":       models.StockTakeCompleted,
			"completed_by": actorID,
			"completed_at": now,
		})
	if res.Error != nil {
		return nil, apperr.IO(res.Error, "Stok sayımı tamamlanamadı")
	}
	if res.RowsAffected == 0 {
		// Araya başka bir complete girdi
		return nil, apperr.Conflict("Stok sayımı eşzamanlı olarak kapatıldı", false)
	}

	st.Status = models.StockTakeCompleted
	st.CompletedBy = &actorID
	st.CompletedAt = &now
	return &st, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
