package stock

import (
	"fmt"
	"time"

	"koffieblik-backend/internal/apperr"
	"koffieblik-backend/internal/catalog"
	"koffieblik-backend/internal/models"

	"gorm.io/gorm"
)

// AdjustFields: Tek parametrik güncelleme operasyonu. Eski API'deki üç ayrı
// endpoint (by-id, by-id-or-name, audit'li/audit'siz) bunun üzerinden geçer.
type AdjustFields struct {
	Name             *string
	Quantity         *float64
	UnitType         *string
	MaxCapacity      *float64
	ReservedQuantity *float64
}

const casRetryLimit = 3

// Adjust: Stok kalemini günceller; quantity değişiyorsa aynı transaction
// içinde tam bir StockAdjustment satırı append eder. Miktar güncellemesi
// compare-and-swap ile yapılır (WHERE quantity = eski), böylece eşzamanlı iki
// çağrı birbirinin yazdığını ezemez. CAS kaybeden taraf kısa bekleyip yeniden
// okur; limit aşılırsa retryable Conflict döner.
func Adjust(db *gorm.DB, ref catalog.Ref, fields AdjustFields, reference string, refType models.ReferenceType, actorID uint) (*models.StockItem, error) {
	if actorID == 0 {
		return nil, apperr.Unauthorized("Actor id zorunlu")
	}
	if fields.Name == nil && fields.Quantity == nil && fields.UnitType == nil &&
		fields.MaxCapacity == nil && fields.ReservedQuantity == nil {
		return nil, apperr.Validation("Güncellenecek alan yok")
	}

	for attempt := 0; attempt < casRetryLimit; attempt++ {
		resolved, err := catalog.ResolveStockItems(db, []catalog.Ref{ref})
		if err != nil {
			return nil, err
		}
		item := resolved[ref]

		quantityChanges := fields.Quantity != nil && *fields.Quantity != item.Quantity
		if quantityChanges && reference == "" {
			return nil, apperr.Validation("Miktar güncellenirken reference zorunlu")
		}

		updates := map[string]any{}
		if fields.Name != nil {
			updates["name"] = *fields.Name
		}
		if fields.UnitType != nil {
			updates["unit_type"] = *fields.UnitType
		}
		if fields.MaxCapacity != nil {
			updates["max_capacity"] = *fields.MaxCapacity
		}
		if fields.ReservedQuantity != nil {
			if *fields.ReservedQuantity < 0 {
				return nil, apperr.Validation("Rezerve miktar negatif olamaz")
			}
			updates["reserved_quantity"] = *fields.ReservedQuantity
		}

		newQty := item.Quantity
		if fields.Quantity != nil {
			newQty = *fields.Quantity
			updates["quantity"] = newQty
		}

		reserved := item.ReservedQuantity
		if fields.ReservedQuantity != nil {
			reserved = *fields.ReservedQuantity
		}
		if newQty < 0 || newQty < reserved {
			return nil, apperr.Conflict(
				fmt.Sprintf("Yetersiz stok: %s (mevcut %.2f, rezerve %.2f)", item.Name, item.Quantity, reserved), false)
		}
		maxCap := item.MaxCapacity
		if fields.MaxCapacity != nil {
			maxCap = fields.MaxCapacity
		}
		if maxCap != nil && newQty > *maxCap {
			return nil, apperr.Conflict(
				fmt.Sprintf("Kapasite aşılıyor: %s (max %.2f)", item.Name, *maxCap), false)
		}

		var updated models.StockItem
		txErr := db.Transaction(func(tx *gorm.DB) error {
			// CAS: miktar hala okuduğumuz değerse yaz; değilse başka bir
			// güncelleme araya girmiştir
			res := tx.Model(&models.StockItem{}).
				Where("id = ? AND quantity = ?", item.ID, item.Quantity).
				Updates(updates)
			if res.Error != nil {
				return apperr.IO(res.Error, "Stok güncellenemedi")
			}
			if res.RowsAffected == 0 {
				return apperr.Conflict("Stok eşzamanlı güncellendi, tekrar deneyin", true)
			}

			// Ledger satırı aynı transaction içinde: miktar yazıldı ama audit
			// yazılamadı durumu olamaz (hata ikisini birden geri alır)
			if quantityChanges {
				adj := models.StockAdjustment{
					StockItemID: item.ID,
					DeltaQty:    newQty - item.Quantity,
					Reference:   reference,
					RefType:     refType,
					ActorID:     actorID,
				}
				if err := tx.Create(&adj).Error; err != nil {
					return apperr.IO(err, "Stok hareketi kaydedilemedi")
				}
			}

			return tx.First(&updated, item.ID).Error
		})
		if txErr != nil {
			if apperr.IsKind(txErr, apperr.KindConflict) {
				// CAS kaybedildi; kısa bekle ve yeniden oku
				time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
				continue
			}
			if _, ok := apperr.As(txErr); ok {
				return nil, txErr
			}
			return nil, apperr.IO(txErr, "Stok güncellenemedi")
		}
		return &updated, nil
	}

	return nil, apperr.Conflict("Stok eşzamanlı güncellemeler yüzünden yazılamadı, tekrar deneyin", true)
}

// LedgerSum: Bir kalemin tüm hareket toplamı. Invariant: toplam ==
// mevcut miktar - başlangıç miktarı. Testler ve reconciliation kullanır.
func LedgerSum(db *gorm.DB, stockItemID uint) (float64, error) {
	var sum *float64
	err := db.Model(&models.StockAdjustment{}).
		Where("stock_item_id = ?", stockItemID).
		Select("SUM(delta_qty)").
		Scan(&sum).Error
	if err != nil {
		return 0, apperr.IO(err, "Stok hareketleri okunamadı")
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}
