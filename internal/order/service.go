package order

import (
	"errors"
	"strings"

	"koffieblik-backend/internal/apperr"
	"koffieblik-backend/internal/catalog"
	"koffieblik-backend/internal/loyalty"
	"koffieblik-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Line struct {
	Ref      catalog.Ref
	Quantity int
}

// OnCompleted: Sipariş completed olduğunda commit SONRASI çağrılan hook.
// Bildirim teslimatı dışarıda; motor sadece olayı duyurur.
var OnCompleted func(o models.Order)

// Create: Siparişi tek transaction'da oluşturur: header + satır kalemleri ya
// birlikte yazılır ya hiç yazılmaz. Satırsız "hayalet" sipariş hiçbir okuyucu
// tarafından görülemez. idempotencyKey doluysa aynı anahtarlı tekrar istek
// yeni sipariş yaratmaz, mevcut siparişi döner.
func Create(db *gorm.DB, userID uint, lines []Line, idempotencyKey string) (*models.Order, error) {
	if userID == 0 {
		return nil, apperr.Unauthorized("Actor id zorunlu")
	}
	if len(lines) == 0 {
		return nil, apperr.Validation("Sipariş en az bir ürün içermeli")
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, apperr.Validation("Ürün miktarı pozitif tam sayı olmalı")
		}
		if l.Ref.Value == "" {
			return nil, apperr.Validation("Her satırda ürün id veya adı olmalı")
		}
	}

	// Timeout sonrası tekrar: anahtar zaten kayıtlıysa o siparişi dön
	if idempotencyKey != "" {
		if existing, err := findByIdempotencyKey(db, idempotencyKey); err != nil {
			return nil, err
		} else if existing != nil {
			return existing, nil
		}
	}

	// Tüm referanslar tek batch'te, herhangi bir yazmadan ÖNCE çözülür;
	// eksik varsa hepsi NotFound içinde listelenir
	refs := make([]catalog.Ref, 0, len(lines))
	for _, l := range lines {
		refs = append(refs, l.Ref)
	}
	resolved, err := catalog.ResolveProducts(db, refs)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		p := resolved[l.Ref]
		// Fiyat snapshot'ı: katalog fiyatı sonra değişse de sipariş tutarı sabit
		items = append(items, models.OrderItem{
			ProductID: p.ID,
			Quantity:  l.Quantity,
			UnitPrice: p.UnitPrice,
		})
		total = total.Add(p.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	o := models.Order{
		UserID:     userID,
		Status:     models.OrderStatusPending,
		PaidStatus: models.PaidStatusUnpaid,
		Total:      total,
	}
	if idempotencyKey != "" {
		o.IdempotencyKey = &idempotencyKey
	}

	txErr := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(&o).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = o.ID
		}
		// Satır ekleme başarısız olursa transaction header'ı da geri alır
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		return nil
	})
	if txErr != nil {
		// Yarışan iki retry aynı anahtarı yazmaya çalıştıysa kazananı dön
		if idempotencyKey != "" && isUniqueViolation(txErr) {
			if existing, err := findByIdempotencyKey(db, idempotencyKey); err == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, apperr.IO(txErr, "Sipariş oluşturulamadı")
	}

	o.Items = items
	return &o, nil
}

func findByIdempotencyKey(db *gorm.DB, key string) (*models.Order, error) {
	var o models.Order
	err := db.Preload("Items").Where("idempotency_key = ?", key).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.IO(err, "Sipariş okunamadı")
	}
	return &o, nil
}

// SetStatus: pending -> completed/cancelled geçişleri. completed ve cancelled
// terminaldir; failed dışarıdan set edilemez. completed geçişi sadakat
// puanını aynı transaction'da işler, hook commit sonrası tetiklenir.
func SetStatus(db *gorm.DB, orderID uint, status models.OrderStatus, actorID uint) (*models.Order, error) {
	if actorID == 0 {
		return nil, apperr.Unauthorized("Actor id zorunlu")
	}
	if status != models.OrderStatusCompleted && status != models.OrderStatusCancelled {
		return nil, apperr.Validation("Geçersiz sipariş durumu: %s", status)
	}

	var o models.Order
	if err := db.Preload("Items").First(&o, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Sipariş bulunamadı")
		}
		return nil, apperr.IO(err, "Sipariş okunamadı")
	}
	if o.Status != models.OrderStatusPending {
		return nil, apperr.Conflict("Sipariş durumu değiştirilemez: "+string(o.Status), false)
	}

	txErr := db.Transaction(func(tx *gorm.DB) error {
		// Durum geçişi CAS ile: yarışan iki geçişten sadece biri kazanır
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", o.ID, models.OrderStatusPending).
			Update("status", status)
		if res.Error != nil {
			return apperr.IO(res.Error, "Sipariş güncellenemedi")
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("Sipariş durumu eşzamanlı olarak değişti", false)
		}

		if status == models.OrderStatusCompleted {
			// 100 puan = 1 para birimi, %5 kazanım
			points := int(o.Total.Mul(decimal.NewFromInt(5)).Floor().IntPart())
			if points > 0 {
				if err := loyalty.Earn(tx, o.UserID, o.ID, points); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if txErr != nil {
		if _, ok := apperr.As(txErr); ok {
			return nil, txErr
		}
		return nil, apperr.IO(txErr, "Sipariş güncellenemedi")
	}

	o.Status = status
	if status == models.OrderStatusCompleted && OnCompleted != nil {
		OnCompleted(o)
	}
	return &o, nil
}

// MarkPaid: Siparişi ödendi işaretler ve ödeme kaydını yazar.
func MarkPaid(db *gorm.DB, orderID uint, method models.PaymentMethod) (*models.Order, error) {
	var o models.Order
	if err := db.First(&o, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Sipariş bulunamadı")
		}
		return nil, apperr.IO(err, "Sipariş okunamadı")
	}
	if o.PaidStatus == models.PaidStatusPaid {
		return nil, apperr.Conflict("Sipariş zaten ödendi", false)
	}

	txErr := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND paid_status = ?", o.ID, models.PaidStatusUnpaid).
			Update("paid_status", models.PaidStatusPaid)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("Sipariş eşzamanlı olarak ödendi", false)
		}
		payment := models.Payment{
			OrderID: o.ID,
			Method:  method,
			Amount:  o.Total,
			Status:  "completed",
		}
		return tx.Create(&payment).Error
	})
	if txErr != nil {
		if _, ok := apperr.As(txErr); ok {
			return nil, txErr
		}
		return nil, apperr.IO(txErr, "Ödeme kaydedilemedi")
	}

	o.PaidStatus = models.PaidStatusPaid
	return &o, nil
}

// List: failed siparişler hiçbir listede görünmez (hayalet header koruması).
func List(db *gorm.DB, userID *uint) ([]models.Order, error) {
	q := db.Preload("Items").Preload("Items.Product").
		Where("status <> ?", models.OrderStatusFailed).
		Order("created_at desc, id desc")
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}

	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, apperr.IO(err, "Siparişler listelenemedi")
	}
	return orders, nil
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
