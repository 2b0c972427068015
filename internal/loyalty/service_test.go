package loyalty_test

import (
	"testing"
	"time"

	"koffieblik-backend/internal/apperr"
	"koffieblik-backend/internal/loyalty"
	"koffieblik-backend/internal/models"
	"koffieblik-backend/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEarn_UpdatesLedgerAndCachedBalance(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.RoleCustomer)
	o := createOrder(t, db, user.ID)

	require.NoError(t, loyalty.Earn(db, user.ID, o.ID, 150))

	balance, err := loyalty.Balance(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 150, balance)

	var profile models.UserProfile
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&profile).Error)
	assert.Equal(t, 150, profile.LoyaltyPoints)
}

func TestRedeem_ExactBalanceArithmetic(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.RoleCustomer)
	o := createOrder(t, db, user.ID)
	require.NoError(t, loyalty.Earn(db, user.ID, o.ID, 500))

	remaining, err := loyalty.Redeem(db, user.ID, 180, nil, "free coffee", "")
	require.NoError(t, err)
	assert.Equal(t, 320, remaining)

	// Ledger toplamı ve cache aynı sonucu verir
	balance, err := loyalty.Balance(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 320, balance)

	var profile models.UserProfile
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&profile).Error)
	assert.Equal(t, 320, profile.LoyaltyPoints)

	// Redeem kaydı negatif yazılır
	var entry models.LoyaltyPoint
	require.NoError(t, db.Where("user_id = ? AND type = ?", user.ID, models.LoyaltyPointRedeem).First(&entry).Error)
	assert.Equal(t, -180, entry.Points)
}

func TestRedeem_InsufficientBalance(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.RoleCustomer)
	o := createOrder(t, db, user.ID)
	require.NoError(t, loyalty.Earn(db, user.ID, o.ID, 100))

	_, err := loyalty.Redeem(db, user.ID, 101, nil, "", "")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	// Başarısız redeem iz bırakmaz
	balance, err := loyalty.Balance(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, balance)
}

func TestRedeem_BalanceComputedFromLedgerNotCache(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.RoleCustomer)
	o := createOrder(t, db, user.ID)
	require.NoError(t, loyalty.Earn(db, user.ID, o.ID, 50))

	// Cache'i elle şişir: ledger hala 50 diyor
	require.NoError(t, db.Model(&models.UserProfile{}).
		Where("user_id = ?", user.ID).
		Update("loyalty_points", 1000).Error)

	_, err := loyalty.Redeem(db, user.ID, 200, nil, "", "")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestRedeem_WritesPointsPaymentWithOrder(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.RoleCustomer)
	o := createOrder(t, db, user.ID)
	require.NoError(t, loyalty.Earn(db, user.ID, o.ID, 400))

	_, err := loyalty.Redeem(db, user.ID, 300, &o.ID, "redeemed at counter", "")
	require.NoError(t, err)

	var payment models.Payment
	require.NoError(t, db.Where("order_id = ? AND method = ?", o.ID, models.PaymentMethodPoints).First(&payment).Error)
	assert.Equal(t, "completed", payment.Status)
	assert.True(t, payment.Amount.IsZero())
}

func TestRedeem_IdempotencyKeyReplayIsNoOp(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.RoleCustomer)
	o := createOrder(t, db, user.ID)
	require.NoError(t, loyalty.Earn(db, user.ID, o.ID, 500))

	remaining, err := loyalty.Redeem(db, user.ID, 100, nil, "", "retry-key-1")
	require.NoError(t, err)
	assert.Equal(t, 400, remaining)

	// Timeout sonrası tekrar: yeni kayıt yazılmaz, güncel bakiye döner
	remaining, err = loyalty.Redeem(db, user.ID, 100, nil, "", "retry-key-1")
	require.NoError(t, err)
	assert.Equal(t, 400, remaining)

	var count int64
	require.NoError(t, db.Model(&models.LoyaltyPoint{}).
		Where("user_id = ? AND type = ?", user.ID, models.LoyaltyPointRedeem).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// Anahtar başka kullanıcıya aitken tekrar conflict'tir
	other := testutil.CreateUser(t, db, models.RoleCustomer)
	require.NoError(t, loyalty.Earn(db, other.ID, o.ID, 200))
	_, err = loyalty.Redeem(db, other.ID, 50, nil, "", "retry-key-1")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestRedeem_ReplayRaceDoesNotReportFalseSuccess(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.RoleCustomer)
	rival := testutil.CreateUser(t, db, models.RoleCustomer)
	o := createOrder(t, db, user.ID)
	require.NoError(t, loyalty.Earn(db, user.ID, o.ID, 300))

	// Ön kontrol ile insert arasına giren tekrarı taklit et: başka bir
	// kullanıcının kaydı aynı anahtarla tx bağlantısı üzerinden araya sokulur
	fired := false
	require.NoError(t, db.Callback().Create().Before("gorm:create").
		Register("rival_redeem", func(tx *gorm.DB) {
			if fired || tx.Statement.Table != "loyalty_points" {
				return
			}
			fired = true
			_, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
				"INSERT INTO loyalty_points (user_id, points, type, description, idempotency_key, created_at) VALUES (?, ?, ?, ?, ?, ?)",
				rival.ID, -10, "redeem", "", "race-key", time.Now())
			if err != nil {
				tx.AddError(err)
			}
		}))
	t.Cleanup(func() { _ = db.Callback().Create().Remove("rival_redeem") })

	// Kaybeden taraf kazanan kaydın sahibini doğrulayamadan başarı dönemez
	_, err := loyalty.Redeem(db, user.ID, 50, nil, "", "race-key")
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindConflict, ae.Kind)

	// Kaybedenin tx'i iz bırakmaz: bakiye ve ledger dokunulmamış
	balance, err := loyalty.Balance(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 300, balance)

	var count int64
	require.NoError(t, db.Model(&models.LoyaltyPoint{}).
		Where("user_id = ? AND type = ?", user.ID, models.LoyaltyPointRedeem).
		Count(&count).Error)
	assert.Zero(t, count)
}

func TestRedeem_Validation(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.RoleCustomer)

	_, err := loyalty.Redeem(db, user.ID, 0, nil, "", "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = loyalty.Redeem(db, user.ID, -5, nil, "", "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = loyalty.Redeem(db, 0, 10, nil, "", "")
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
}

func TestReconcile_ReversesOrphanRedemption(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.RoleCustomer)
	o := createOrder(t, db, user.ID)
	require.NoError(t, loyalty.Earn(db, user.ID, o.ID, 200))

	// Yarım kalmış redeem'i taklit et: negatif kayıt var, points ödemesi yok
	orphan := models.LoyaltyPoint{
		UserID:  user.ID,
		OrderID: &o.ID,
		Points:  -80,
		Type:    models.LoyaltyPointRedeem,
	}
	require.NoError(t, db.Create(&orphan).Error)
	require.NoError(t, db.Model(&models.UserProfile{}).
		Where("user_id = ?", user.ID).
		Update("loyalty_points", gorm.Expr("loyalty_points - ?", 80)).Error)

	reversed, err := loyalty.Reconcile(db)
	require.NoError(t, err)
	assert.Equal(t, 1, reversed)

	balance, err := loyalty.Balance(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 200, balance)

	// İkinci çalıştırma aynı orphan'ı tekrar geri almaz
	reversed, err = loyalty.Reconcile(db)
	require.NoError(t, err)
	assert.Zero(t, reversed)
}

func createOrder(t *testing.T, db *gorm.DB, userID uint) models.Order {
	t.Helper()
	o := models.Order{
		UserID: userID,
		Status: models.OrderStatusCompleted,
		Total:  decimal.RequireFromString("40.00"),
	}
	require.NoError(t, db.Create(&o).Error)
	return o
}
