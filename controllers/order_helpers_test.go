package controllers

import (
	"testing"
	"time"

	"github.com/hayder-jabbar/softstore/models"
	"github.com/hayder-jabbar/softstore/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextOrderNumberIsSequential(t *testing.T) {
	db := setupTestDB(t)

	first, err := nextOrderNumber(db)
	require.NoError(t, err)
	second, err := nextOrderNumber(db)
	require.NoError(t, err)

	assert.Equal(t, "OS-1", first)
	assert.Equal(t, "OS-2", second)
}

func TestTakeKeysPicksOldestFirst(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "buyer", 0)
	product := createKeyProduct(t, db, "windows", 50000, 3)

	order := models.Order{OrderNumber: "OS-1", UserID: user.ID}
	require.NoError(t, db.Create(&order).Error)
	line := models.OrderLine{OrderID: order.ID, ProductID: product.ID, Quantity: 2, UnitPrice: 50000}
	require.NoError(t, db.Create(&line).Error)

	require.NoError(t, takeKeys(db, &order, &line, product.ID, 2, ""))

	var bindings []models.OrderLineKey
	require.NoError(t, db.Preload("Key").Where("order_line_id = ?", line.ID).
		Order("id ASC").Find(&bindings).Error)
	require.Len(t, bindings, 2)
	assert.Equal(t, "WINDOWS-KEY-0001", bindings[0].Key.Key)
	assert.Equal(t, "WINDOWS-KEY-0002", bindings[1].Key.Key)

	assert.EqualValues(t, 1, unusedKeyCount(t, db, product.ID))
	for _, b := range bindings {
		assert.True(t, b.Key.IsUsed)
		require.NotNil(t, b.Key.UsedOrderID)
		assert.Equal(t, order.ID, *b.Key.UsedOrderID)
		require.NotNil(t, b.Key.UsedByID)
		assert.Equal(t, user.ID, *b.Key.UsedByID)
		assert.NotNil(t, b.Key.UsedAt)
	}
}

func TestTakeKeysFailsOnShortage(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "buyer", 0)
	product := createKeyProduct(t, db, "office", 80000, 1)

	order := models.Order{OrderNumber: "OS-1", UserID: user.ID}
	require.NoError(t, db.Create(&order).Error)
	line := models.OrderLine{OrderID: order.ID, ProductID: product.ID, Quantity: 2, UnitPrice: 80000}
	require.NoError(t, db.Create(&line).Error)

	err := takeKeys(db, &order, &line, product.ID, 2, "")
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))
}

func TestValidateKeyAvailabilityBundle(t *testing.T) {
	db := setupTestDB(t)
	partA := createKeyProduct(t, db, "parta", 10000, 2)
	partB := createKeyProduct(t, db, "partb", 10000, 1)
	bundle := createBundleProduct(t, db, "combo", 15000, partA, partB)

	assert.NoError(t, validateKeyAvailability(db, bundle, 1))
	err := validateKeyAvailability(db, bundle, 2)
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))
}

func TestReleaseOrderKeysIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "buyer", 0)
	product := createKeyProduct(t, db, "steam", 25000, 2)

	order := models.Order{OrderNumber: "OS-1", UserID: user.ID, Status: models.OrderStatusPending}
	require.NoError(t, db.Create(&order).Error)
	line := models.OrderLine{OrderID: order.ID, ProductID: product.ID, Quantity: 2, UnitPrice: 25000}
	require.NoError(t, db.Create(&line).Error)
	require.NoError(t, takeKeys(db, &order, &line, product.ID, 2, ""))
	require.EqualValues(t, 0, unusedKeyCount(t, db, product.ID))

	require.NoError(t, releaseOrderKeys(db, &order))
	assert.EqualValues(t, 2, unusedKeyCount(t, db, product.ID))

	// Second release finds nothing to do.
	require.NoError(t, releaseOrderKeys(db, &order))
	assert.EqualValues(t, 2, unusedKeyCount(t, db, product.ID))

	var bindings int64
	require.NoError(t, db.Model(&models.OrderLineKey{}).
		Where("order_line_id = ?", line.ID).Count(&bindings).Error)
	assert.Zero(t, bindings)
}

func TestReleaseOrderKeysRefusesApprovedOrders(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "buyer", 0)

	order := models.Order{OrderNumber: "OS-1", UserID: user.ID, Status: models.OrderStatusApproved}
	require.NoError(t, db.Create(&order).Error)

	err := releaseOrderKeys(db, &order)
	require.Error(t, err)
}

func TestReleaseOrderKeysRestocksPlainProducts(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "buyer", 0)
	product := createStockProduct(t, db, "mouse", 12000, 10)

	order := models.Order{OrderNumber: "OS-1", UserID: user.ID, Status: models.OrderStatusPending}
	require.NoError(t, db.Create(&order).Error)
	line := models.OrderLine{OrderID: order.ID, ProductID: product.ID, Quantity: 3, UnitPrice: 12000}
	require.NoError(t, db.Create(&line).Error)
	require.NoError(t, allocateLineKeys(db, &order, &line, product))

	var after models.Product
	require.NoError(t, db.First(&after, product.ID).Error)
	assert.Equal(t, 7, after.Qty)

	require.NoError(t, releaseOrderKeys(db, &order))
	require.NoError(t, db.First(&after, product.ID).Error)
	assert.Equal(t, 10, after.Qty)
}

func TestMarkOrderPaidIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "buyer", 0)
	actorID := user.ID

	order := models.Order{OrderNumber: "OS-1", UserID: user.ID, PaymentStatus: models.PaymentStatusPending}
	require.NoError(t, db.Create(&order).Error)

	require.NoError(t, markOrderPaid(db, &order, &actorID, "tx-1"))
	firstPaidAt := *reloadOrder(t, db, order.ID).PaidAt

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, markOrderPaid(db, &order, &actorID, "tx-other"))

	after := reloadOrder(t, db, order.ID)
	assert.Equal(t, models.PaymentStatusPaid, after.PaymentStatus)
	assert.Equal(t, "tx-1", after.TransactionID)
	assert.Equal(t, firstPaidAt.Unix(), after.PaidAt.Unix())
}

func TestMarkOrderPaymentFailedReleasesKeysAndRefundsWallet(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "buyer", 30000)
	product := createKeyProduct(t, db, "game", 50000, 1)

	order := models.Order{
		OrderNumber:   "OS-1",
		UserID:        user.ID,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		TotalPrice:    50000,
	}
	require.NoError(t, db.Create(&order).Error)
	line := models.OrderLine{OrderID: order.ID, ProductID: product.ID, Quantity: 1, UnitPrice: 50000}
	require.NoError(t, db.Create(&line).Error)
	require.NoError(t, takeKeys(db, &order, &line, product.ID, 1, ""))
	require.NoError(t, applyWalletBalance(db, &order, user, &user.ID))
	require.EqualValues(t, 30000, order.PaidAmountFromWallet)
	require.EqualValues(t, 0, reloadUser(t, db, user.ID).WalletBalance)

	require.NoError(t, markOrderPaymentFailed(db, &order, nil))

	assert.EqualValues(t, 1, unusedKeyCount(t, db, product.ID))
	assert.EqualValues(t, 30000, reloadUser(t, db, user.ID).WalletBalance)
	after := reloadOrder(t, db, order.ID)
	assert.Equal(t, models.PaymentStatusFailed, after.PaymentStatus)
	assert.EqualValues(t, 0, after.PaidAmountFromWallet)

	// Repeat delivery of the same failure is a no-op.
	require.NoError(t, markOrderPaymentFailed(db, after, nil))
	assert.EqualValues(t, 30000, reloadUser(t, db, user.ID).WalletBalance)
}

func TestMarkOrderPaymentFailedOnApprovedOrderKeepsKeys(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "buyer", 20000)
	product := createKeyProduct(t, db, "antivirus", 60000, 1)

	order := models.Order{
		OrderNumber:   "OS-1",
		UserID:        user.ID,
		Status:        models.OrderStatusApproved,
		PaymentStatus: models.PaymentStatusPending,
		TotalPrice:    60000,
	}
	require.NoError(t, db.Create(&order).Error)
	line := models.OrderLine{OrderID: order.ID, ProductID: product.ID, Quantity: 1, UnitPrice: 60000}
	require.NoError(t, db.Create(&line).Error)
	require.NoError(t, takeKeys(db, &order, &line, product.ID, 1, ""))
	require.NoError(t, applyWalletBalance(db, &order, user, &user.ID))
	require.EqualValues(t, 0, reloadUser(t, db, user.ID).WalletBalance)

	require.NoError(t, markOrderPaymentFailed(db, &order, nil))

	after := reloadOrder(t, db, order.ID)
	assert.Equal(t, models.PaymentStatusFailed, after.PaymentStatus)
	assert.Equal(t, models.OrderStatusApproved, after.Status)
	assert.NotNil(t, after.PaymentFailedAt)

	// The buyer may already hold the keys, so they stay allocated and the
	// wallet debit stands until staff resolve it through a return.
	assert.EqualValues(t, 0, unusedKeyCount(t, db, product.ID))
	assert.EqualValues(t, 0, reloadUser(t, db, user.ID).WalletBalance)
	assert.EqualValues(t, 20000, after.PaidAmountFromWallet)
}

func TestMarkOrderPaymentFailedRefusesPaidOrders(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "buyer", 0)

	order := models.Order{OrderNumber: "OS-1", UserID: user.ID, PaymentStatus: models.PaymentStatusPaid}
	require.NoError(t, db.Create(&order).Error)

	err := markOrderPaymentFailed(db, &order, nil)
	require.Error(t, err)
}

func TestCancelExpiredOrderReleasesEverything(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "buyer", 10000)
	product := createKeyProduct(t, db, "cdkey", 40000, 1)

	order := models.Order{
		OrderNumber:   "OS-1",
		UserID:        user.ID,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		TotalPrice:    40000,
		PaymentMethod: models.PaymentMethodZainCash,
	}
	require.NoError(t, db.Create(&order).Error)
	line := models.OrderLine{OrderID: order.ID, ProductID: product.ID, Quantity: 1, UnitPrice: 40000}
	require.NoError(t, db.Create(&line).Error)
	require.NoError(t, takeKeys(db, &order, &line, product.ID, 1, ""))
	require.NoError(t, applyWalletBalance(db, &order, user, &user.ID))

	now := time.Now()
	require.NoError(t, CancelExpiredOrder(db, &order, now))

	after := reloadOrder(t, db, order.ID)
	assert.Equal(t, models.OrderStatusCanceled, after.Status)
	assert.Equal(t, models.PaymentStatusPending, after.PaymentStatus)
	assert.NotNil(t, after.CanceledAt)
	assert.Nil(t, after.CanceledByID)
	assert.EqualValues(t, 1, unusedKeyCount(t, db, product.ID))
	assert.EqualValues(t, 10000, reloadUser(t, db, user.ID).WalletBalance)
}
