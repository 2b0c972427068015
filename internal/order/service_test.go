package order_test

import (
	"errors"
	"testing"

	"koffieblik-backend/internal/apperr"
	"koffieblik-backend/internal/catalog"
	"koffieblik-backend/internal/loyalty"
	"koffieblik-backend/internal/models"
	"koffieblik-backend/internal/order"
	"koffieblik-backend/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreate_SnapshotsPriceAndTotal(t *testing.T) {
	// Senaryo: [{name:"Latte", qty:2}], katalog fiyatı 32.00
	// -> toplam 64.00, bir header + bir kalem (qty=2, snapshot=32.00)
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.RoleCustomer)
	testutil.CreateProduct(t, db, "Latte", "32.00")

	o, err := order.Create(db, user.ID, []order.Line{
		{Ref: catalog.RefByName("Latte"), Quantity: 2},
	}, "")
	require.NoError(t, err)

	assert.True(t, o.Total.Equal(decimal.RequireFromString("64.00")), "total %s", o.Total)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.True(t, o.Items[0].UnitPrice.Equal(decimal.RequireFromString("32.00")))

	var headerCount, itemCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&headerCount).Error)
	require.NoError(t, db.Model(&models.OrderItem{}).Count(&itemCount).Error)
	assert.EqualValues(t, 1, headerCount)
	assert.EqualValues(t, 1, itemCount)
}

func TestCreate_PriceChangeDoesNotAffectExistingOrder(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.RoleCustomer)
	p := testutil.CreateProduct(t, db, "Latte", "32.00")

	o, err := order.Create(db, user.ID, []order.Line{
		{Ref: catalog.RefByID(p.ID), Quantity: 1},
	}, "")
	require.NoError(t, err)

	require.NoError(t, db.Model(&p).Update("unit_price", decimal.RequireFromString("40.00")).Error)

	var item models.OrderItem
	require.NoError(t, db.Where("order_id = ?", o.ID).First(&item).Error)
	assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString("32.00")))
}

func TestCreate_MissingProductsAllListedNoWrites(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.RoleCustomer)
	testutil.CreateProduct(t, db, "Latte", "32.00")

	_, err := order.Create(db, user.ID, []order.Line{
		{Ref: catalog.RefByName("Latte"), Quantity: 1},
		{Ref: catalog.RefByName("Cortado"), Quantity: 1},
		{Ref: catalog.RefByID(404), Quantity: 2},
	}, "")
	require.Error(t, err)

	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, ae.Kind)
	assert.ElementsMatch(t, []string{"name:Cortado", "id:404"}, ae.Missing)

	// Hiçbir yazma gerçekleşmemiş olmalı
	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreate_ValidationErrors(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.RoleCustomer)
	p := testutil.CreateProduct(t, db, "Latte", "32.00")

	_, err := order.Create(db, user.ID, nil, "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = order.Create(db, user.ID, []order.Line{{Ref: catalog.RefByID(p.ID), Quantity: 0}}, "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = order.Create(db, 0, []order.Line{{Ref: catalog.RefByID(p.ID), Quantity: 1}}, "")
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
}

func TestCreate_IdempotencyKeyRecognizesRetry(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.RoleCustomer)
	testutil.CreateProduct(t, db, "Latte", "32.00")

	lines := []order.Line{{Ref: catalog.RefByName("Latte"), Quantity: 1}}

	first, err := order.Create(db, user.ID, lines, "key-abc")
	require.NoError(t, err)

	// Timeout sonrası tekrar: aynı anahtar aynı siparişi döner
	retry, err := order.Create(db, user.ID, lines, "key-abc")
	require.NoError(t, err)
	assert.Equal(t, first.ID, retry.ID)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// Farklı anahtar yeni sipariş
	second, err := order.Create(db, user.ID, lines, "key-def")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreate_ItemInsertFailureLeavesNoRows(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.RoleCustomer)
	testutil.CreateProduct(t, db, "Latte", "32.00")

	// Kalem insert'i header yazıldıktan sonra tx içinde patlatılır:
	// rollback satırsız "hayalet" header bırakmamalı
	require.NoError(t, db.Callback().Create().Before("gorm:create").
		Register("fail_order_items", func(tx *gorm.DB) {
			if tx.Statement.Table == "order_items" {
				tx.AddError(errors.New("disk dolu"))
			}
		}))
	t.Cleanup(func() { _ = db.Callback().Create().Remove("fail_order_items") })

	_, err := order.Create(db, user.ID, []order.Line{{Ref: catalog.RefByName("Latte"), Quantity: 1}}, "")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindIO))

	var headerCount, itemCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&headerCount).Error)
	require.NoError(t, db.Model(&models.OrderItem{}).Count(&itemCount).Error)
	assert.Zero(t, headerCount)
	assert.Zero(t, itemCount)

	// Arıza giderilince aynı istek normal şekilde geçer
	require.NoError(t, db.Callback().Create().Remove("fail_order_items"))
	o, err := order.Create(db, user.ID, []order.Line{{Ref: catalog.RefByName("Latte"), Quantity: 1}}, "")
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
}

func TestList_ExcludesFailedOrders(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.RoleCustomer)
	testutil.CreateProduct(t, db, "Latte", "32.00")

	o, err := order.Create(db, user.ID, []order.Line{{Ref: catalog.RefByName("Latte"), Quantity: 1}}, "")
	require.NoError(t, err)

	// Yarım kalmış sipariş: failed işaretli header listelere sızmaz
	failed := models.Order{UserID: user.ID, Status: models.OrderStatusFailed, Total: decimal.Zero}
	require.NoError(t, db.Create(&failed).Error)

	orders, err := order.List(db, &user.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, o.ID, orders[0].ID)
}

func TestSetStatus_CompletedAwardsPointsAndFiresHook(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.RoleCustomer)
	barista := testutil.CreateUser(t, db, models.RoleBarista)
	testutil.CreateProduct(t, db, "Latte", "32.00")

	o, err := order.Create(db, user.ID, []order.Line{{Ref: catalog.RefByName("Latte"), Quantity: 2}}, "")
	require.NoError(t, err)

	var hooked []uint
	order.OnCompleted = func(completed models.Order) { hooked = append(hooked, completed.ID) }
	t.Cleanup(func() { order.OnCompleted = nil })

	updated, err := order.SetStatus(db, o.ID, models.OrderStatusCompleted, barista.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, updated.Status)
	assert.Equal(t, []uint{o.ID}, hooked)

	// 64.00 * %5 * 100 = 320 puan
	balance, err := loyalty.Balance(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 320, balance)

	var entry models.LoyaltyPoint
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&entry).Error)
	assert.Equal(t, models.LoyaltyPointEarn, entry.Type)
	require.NotNil(t, entry.OrderID)
	assert.Equal(t, o.ID, *entry.OrderID)

	// Cache'lenmiş bakiye ledger toplamıyla uyumlu
	var profile models.UserProfile
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&profile).Error)
	assert.Equal(t, balance, profile.LoyaltyPoints)
}

func TestSetStatus_TerminalAndInvalidTransitions(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.RoleCustomer)
	barista := testutil.CreateUser(t, db, models.RoleBarista)
	testutil.CreateProduct(t, db, "Latte", "32.00")

	o, err := order.Create(db, user.ID, []order.Line{{Ref: catalog.RefByName("Latte"), Quantity: 1}}, "")
	require.NoError(t, err)

	_, err = order.SetStatus(db, o.ID, models.OrderStatusFailed, barista.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = order.SetStatus(db, o.ID, models.OrderStatusCompleted, barista.ID)
	require.NoError(t, err)

	// completed terminal: ikinci geçiş reddedilir
	_, err = order.SetStatus(db, o.ID, models.OrderStatusCancelled, barista.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestSetStatus_CancelledAwardsNoPoints(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.RoleCustomer)
	barista := testutil.CreateUser(t, db, models.RoleBarista)
	testutil.CreateProduct(t, db, "Latte", "32.00")

	o, err := order.Create(db, user.ID, []order.Line{{Ref: catalog.RefByName("Latte"), Quantity: 1}}, "")
	require.NoError(t, err)

	_, err = order.SetStatus(db, o.ID, models.OrderStatusCancelled, barista.ID)
	require.NoError(t, err)

	balance, err := loyalty.Balance(db, user.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestMarkPaid(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, models.RoleCustomer)
	testutil.CreateProduct(t, db, "Latte", "32.00")

	o, err := order.Create(db, user.ID, []order.Line{{Ref: catalog.RefByName("Latte"), Quantity: 1}}, "")
	require.NoError(t, err)

	paid, err := order.MarkPaid(db, o.ID, models.PaymentMethodCard)
	require.NoError(t, err)
	assert.Equal(t, models.PaidStatusPaid, paid.PaidStatus)

	var payment models.Payment
	require.NoError(t, db.Where("order_id = ?", o.ID).First(&payment).Error)
	assert.Equal(t, models.PaymentMethodCard, payment.Method)
	assert.True(t, payment.Amount.Equal(o.Total))

	// İkinci ödeme denemesi Conflict
	_, err = order.MarkPaid(db, o.ID, models.PaymentMethodCard)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}
