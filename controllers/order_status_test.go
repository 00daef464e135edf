package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/hayder-jabbar/softstore/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var staffSeq int

// adminContext builds a request context with the acting admin resolved, the
// way the auth middleware would leave it.
func adminContext(t *testing.T, db *gorm.DB, orderID uint, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	staffSeq++
	name := "staff-" + strconv.Itoa(staffSeq)
	admin := models.User{Username: name, Email: name + "@example.com", Password: "x", IsAdmin: true}
	require.NoError(t, db.Create(&admin).Error)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	payload, _ := json.Marshal(body)
	c.Request = httptest.NewRequest(http.MethodPatch, "/", bytes.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: strconv.Itoa(int(orderID))}}
	c.Set("user", admin)
	return c, w
}

func pendingOrderWithKeys(t *testing.T, db *gorm.DB, user *models.User, cashback int64) (*models.Order, *models.Product) {
	t.Helper()
	product := models.Product{
		Name: "keyed-" + t.Name(), Price: 50000, Status: models.ProductStatusActive,
		Available: true, IsKeyProduct: true, CashbackAmount: cashback,
	}
	require.NoError(t, db.Create(&product).Error)
	key := models.ProductKey{ProductID: product.ID, Key: "KEY-0001"}
	require.NoError(t, db.Create(&key).Error)

	order := models.Order{
		OrderNumber:   "OS-1",
		UserID:        user.ID,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPaid,
		TotalPrice:    50000,
	}
	require.NoError(t, db.Create(&order).Error)
	line := models.OrderLine{OrderID: order.ID, ProductID: product.ID, Quantity: 1, UnitPrice: 50000}
	require.NoError(t, db.Create(&line).Error)
	require.NoError(t, takeKeys(db, &order, &line, product.ID, 1, ""))
	return &order, &product
}

func TestApproveOrderCreditsCashback(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "buyer", 0)
	order, _ := pendingOrderWithKeys(t, db, user, 2500)

	c, w := adminContext(t, db, order.ID, gin.H{"notes": "checked"})
	ApproveOrder(c)

	assert.Equal(t, http.StatusOK, w.Code)
	after := reloadOrder(t, db, order.ID)
	assert.Equal(t, models.OrderStatusApproved, after.Status)
	assert.NotNil(t, after.ApprovedAt)
	assert.NotNil(t, after.ApprovedByID)
	assert.Equal(t, "checked", after.ApprovedNotes)
	assert.EqualValues(t, 2500, reloadUser(t, db, user.ID).WalletBalance)
}

func TestApproveOrderTwiceFails(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "buyer", 0)
	order, _ := pendingOrderWithKeys(t, db, user, 0)

	c, w := adminContext(t, db, order.ID, nil)
	ApproveOrder(c)
	require.Equal(t, http.StatusOK, w.Code)

	c2, w2 := adminContext(t, db, order.ID, nil)
	ApproveOrder(c2)
	assert.Equal(t, http.StatusBadRequest, w2.Code)

	// Cashback must not have been credited twice.
	assert.EqualValues(t, 0, reloadUser(t, db, user.ID).WalletBalance)
}

func TestRejectOrderReleasesKeys(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "buyer", 0)
	order, product := pendingOrderWithKeys(t, db, user, 0)
	require.EqualValues(t, 0, unusedKeyCount(t, db, product.ID))

	c, w := adminContext(t, db, order.ID, gin.H{"notes": "out of stock"})
	RejectOrder(c)

	assert.Equal(t, http.StatusOK, w.Code)
	after := reloadOrder(t, db, order.ID)
	assert.Equal(t, models.OrderStatusRejected, after.Status)
	assert.Equal(t, "out of stock", after.RejectedNotes)
	assert.EqualValues(t, 1, unusedKeyCount(t, db, product.ID))
}

func TestRejectApprovedOrderFails(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "buyer", 0)
	order, _ := pendingOrderWithKeys(t, db, user, 0)

	c, w := adminContext(t, db, order.ID, nil)
	ApproveOrder(c)
	require.Equal(t, http.StatusOK, w.Code)

	c2, w2 := adminContext(t, db, order.ID, nil)
	RejectOrder(c2)
	assert.Equal(t, http.StatusBadRequest, w2.Code)
}

func TestReturnOrderReleasesKeysAndRefundsWallet(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "buyer", 0)
	order, product := pendingOrderWithKeys(t, db, user, 0)
	require.NoError(t, db.Model(order).Updates(map[string]interface{}{
		"paid_amount_from_wallet": 20000,
	}).Error)
	order.PaidAmountFromWallet = 20000

	c, w := adminContext(t, db, order.ID, nil)
	ReturnOrder(c)

	assert.Equal(t, http.StatusOK, w.Code)
	after := reloadOrder(t, db, order.ID)
	assert.Equal(t, models.OrderStatusReturned, after.Status)
	assert.NotNil(t, after.ReturnedAt)
	assert.EqualValues(t, 1, unusedKeyCount(t, db, product.ID))
	assert.EqualValues(t, 20000, reloadUser(t, db, user.ID).WalletBalance)

	c2, w2 := adminContext(t, db, order.ID, nil)
	ReturnOrder(c2)
	assert.Equal(t, http.StatusBadRequest, w2.Code)
}

func TestMarkOrderPaidHandler(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "buyer", 0)
	order := models.Order{
		OrderNumber:   "OS-1",
		UserID:        user.ID,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		PaymentMethod: models.PaymentMethodCash,
		TotalPrice:    30000,
	}
	require.NoError(t, db.Create(&order).Error)

	c, w := adminContext(t, db, order.ID, nil)
	MarkOrderPaid(c)
	assert.Equal(t, http.StatusOK, w.Code)

	after := reloadOrder(t, db, order.ID)
	assert.Equal(t, models.PaymentStatusPaid, after.PaymentStatus)
	assert.NotNil(t, after.PaidByID)

	c2, w2 := adminContext(t, db, order.ID, nil)
	MarkOrderPaid(c2)
	assert.Equal(t, http.StatusBadRequest, w2.Code)
}
