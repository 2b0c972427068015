package loyalty

import (
	"errors"
	"fmt"
	"strings"

	"koffieblik-backend/internal/apperr"
	"koffieblik-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Earn: Pozitif ledger kaydı + cache'lenmiş bakiyenin atomik artırımı.
// Çağıran transaction geçirir (sipariş tamamlama ile aynı tx), böylece puan
// kazanımı sipariş durumu ile birlikte ya yazılır ya yazılmaz.
func Earn(db *gorm.DB, userID, orderID uint, points int) error {
	if points <= 0 {
		return apperr.Validation("Kazanılan puan pozitif olmalı")
	}

	entry := models.LoyaltyPoint{
		UserID:      userID,
		OrderID:     &orderID,
		Points:      points,
		Type:        models.LoyaltyPointEarn,
		Description: fmt.Sprintf("Order #%d için kazanılan puan", orderID),
	}
	if err := db.Create(&entry).Error; err != nil {
		return apperr.IO(err, "Puan kaydı yazılamadı")
	}

	res := db.Model(&models.UserProfile{}).
		Where("user_id = ?", userID).
		Update("loyalty_points", gorm.Expr("loyalty_points + ?", points))
	if res.Error != nil {
		return apperr.IO(res.Error, "Puan bakiyesi güncellenemedi")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Kullanıcı profili bulunamadı")
	}
	return nil
}

// Balance: Bakiye her zaman ledger toplamından hesaplanır; cache'lenmiş
// kolona okurken güvenilmez.
func Balance(db *gorm.DB, userID uint) (int, error) {
	var sum *int
	err := db.Model(&models.LoyaltyPoint{}).
		Where("user_id = ?", userID).
		Select("SUM(points)").
		Scan(&sum).Error
	if err != nil {
		return 0, apperr.IO(err, "Puan geçmişi okunamadı")
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

// Redeem: Tek transaction'da: ledger toplamından bakiye kontrolü, negatif
// kayıt, cache'lenmiş bakiyenin koşullu düşümü ve (sipariş verilmişse)
// tamamlanmış "points" ödeme kaydı. Koşullu düşüm (WHERE loyalty_points >= ?)
// yarışan iki redeem'den ikisinin birden bakiye kontrolünü geçmesini engeller:
// kaybeden satır kilidinde bekler, commit sonrası koşul tutmaz ve tx tüm
// yazdıklarıyla geri alınır.
// Timeout sonrası tekrar deneyen istemciler idemKey geçirir: aynı anahtarla
// gelen ikinci çağrı yeni kayıt yazmaz, güncel bakiyeyi döner.
func Redeem(db *gorm.DB, userID uint, points int, orderID *uint, description, idemKey string) (int, error) {
	if userID == 0 {
		return 0, apperr.Unauthorized("Actor id zorunlu")
	}
	if points <= 0 {
		return 0, apperr.Validation("Kullanılacak puan pozitif olmalı")
	}
	if description == "" {
		description = "Points redeemed"
	}

	if idemKey != "" {
		prior, found, err := findByIdempotencyKey(db, idemKey)
		if err != nil {
			return 0, err
		}
		if found {
			if prior.UserID != userID {
				return 0, apperr.Conflict("Idempotency anahtarı başka bir kullanıcıya ait", false)
			}
			return Balance(db, userID)
		}
	}

	var remaining int
	txErr := db.Transaction(func(tx *gorm.DB) error {
		var profile models.UserProfile
		if err := tx.Where("user_id = ?", userID).First(&profile).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Kullanıcı profili bulunamadı")
			}
			return apperr.IO(err, "Kullanıcı profili okunamadı")
		}

		balance, err := Balance(tx, userID)
		if err != nil {
			return err
		}
		if points > balance {
			return apperr.Conflict(
				fmt.Sprintf("Yetersiz puan bakiyesi: %d istendi, %d mevcut", points, balance), false)
		}

		entry := models.LoyaltyPoint{
			UserID:      userID,
			OrderID:     orderID,
			Points:      -points, // redeem negatif yazılır
			Type:        models.LoyaltyPointRedeem,
			Description: description,
		}
		if idemKey != "" {
			entry.IdempotencyKey = &idemKey
		}
		if err := tx.Create(&entry).Error; err != nil {
			if isUniqueViolation(err) {
				// İki tekrar yarıştı; kazanan yazdı, kaybeden mevcut sonucu döner.
				return errRedeemReplayed
			}
			return apperr.IO(err, "Puan kullanım kaydı yazılamadı")
		}

		res := tx.Model(&models.UserProfile{}).
			Where("user_id = ? AND loyalty_points >= ?", userID, points).
			Update("loyalty_points", gorm.Expr("loyalty_points - ?", points))
		if res.Error != nil {
			return apperr.IO(res.Error, "Puan bakiyesi güncellenemedi")
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("Puan bakiyesi eşzamanlı kullanım yüzünden yetersiz", true)
		}

		// Puanla ödeme: siparişe sıfır tutarlı tamamlanmış "points" ödemesi.
		// Ledger kaydıyla aynı tx'te olduğundan eşleşmeyen yarım durum kalmaz.
		if orderID != nil {
			if err := upsertPointsPayment(tx, *orderID); err != nil {
				return err
			}
		}

		remaining = balance - points
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, errRedeemReplayed) {
			// Kaybeden taraf başarı dönmeden önce kazanan kaydın gerçekten
			// aynı kullanıcıya ait olduğunu doğrular.
			prior, found, err := findByIdempotencyKey(db, idemKey)
			if err != nil {
				return 0, err
			}
			if !found {
				return 0, apperr.Conflict("Puan kullanımı eşzamanlı tekrar ile çakıştı, yeniden deneyin", true)
			}
			if prior.UserID != userID {
				return 0, apperr.Conflict("Idempotency anahtarı başka bir kullanıcıya ait", false)
			}
			return Balance(db, userID)
		}
		if _, ok := apperr.As(txErr); ok {
			return 0, txErr
		}
		return 0, apperr.IO(txErr, "Puan kullanımı kaydedilemedi")
	}
	return remaining, nil
}

var errRedeemReplayed = errors.New("redeem replayed")

func findByIdempotencyKey(db *gorm.DB, key string) (models.LoyaltyPoint, bool, error) {
	var entry models.LoyaltyPoint
	err := db.Where("idempotency_key = ?", key).First(&entry).Error
	switch {
	case err == nil:
		return entry, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.LoyaltyPoint{}, false, nil
	default:
		return models.LoyaltyPoint{}, false, apperr.IO(err, "Puan kayıtları okunamadı")
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}

func upsertPointsPayment(tx *gorm.DB, orderID uint) error {
	var existing models.Payment
	err := tx.Where("order_id = ? AND method = ?", orderID, models.PaymentMethodPoints).
		First(&existing).Error
	switch {
	case err == nil:
		return tx.Model(&existing).Update("status", "completed").Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		payment := models.Payment{
			OrderID: orderID,
			Method:  models.PaymentMethodPoints,
			Amount:  decimal.Zero,
			Status:  "completed",
		}
		if err := tx.Create(&payment).Error; err != nil {
			return apperr.IO(err, "Ödeme kaydı yazılamadı")
		}
		return nil
	default:
		return apperr.IO(err, "Ödeme kaydı okunamadı")
	}
}

// Reconcile: Transaction garantisi olmayan bir store'a karşı çalıştırılan
// kurulumlar için güvenlik ağı: eşleşen "points" ödemesi olmayan sipariş
// bağlı negatif kayıtları bulur ve ters kayıtla geri alır. Normal akışta
// Redeem atomik olduğu için boş döner.
func Reconcile(db *gorm.DB) (int, error) {
	var orphans []models.LoyaltyPoint
	err := db.
		Where("type = ? AND order_id IS NOT NULL", models.LoyaltyPointRedeem).
		Where(`NOT EXISTS (
			SELECT 1 FROM payments
			WHERE payments.order_id = loyalty_points.order_id
			AND payments.method = ?)`, models.PaymentMethodPoints).
		Find(&orphans).Error
	if err != nil {
		return 0, apperr.IO(err, "Puan kayıtları okunamadı")
	}

	reversed := 0
	for _, orphan := range orphans {
		marker := fmt.Sprintf("Reversal of loyalty entry #%d", orphan.ID)

		// Aynı orphan ikinci kez geri alınmasın
		var count int64
		if err := db.Model(&models.LoyaltyPoint{}).
			Where("description = ?", marker).
			Count(&count).Error; err != nil {
			return reversed, apperr.IO(err, "Puan kayıtları okunamadı")
		}
		if count > 0 {
			continue
		}

		txErr := db.Transaction(func(tx *gorm.DB) error {
			reversal := models.LoyaltyPoint{
				UserID:      orphan.UserID,
				OrderID:     orphan.OrderID,
				Points:      -orphan.Points, // orphan negatif, ters kayıt pozitif
				Type:        models.LoyaltyPointEarn,
				Description: marker,
			}
			if err := tx.Create(&reversal).Error; err != nil {
				return err
			}
			return tx.Model(&models.UserProfile{}).
				Where("user_id = ?", orphan.UserID).
				Update("loyalty_points", gorm.Expr("loyalty_points + ?", -orphan.Points)).Error
		})
		if txErr != nil {
			return reversed, apperr.IO(txErr, "Ters kayıt yazılamadı")
		}
		reversed++
	}
	return reversed, nil
}
