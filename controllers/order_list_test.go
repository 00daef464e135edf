package controllers

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/hayder-jabbar/softstore/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buyerContext builds a request context for the given user, the way the auth
// middleware would leave it.
func buyerContext(user *models.User, orderID uint) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: strconv.Itoa(int(orderID))}}
	c.Set("user", *user)
	return c, w
}

func TestKeysHiddenFromBuyerUntilFirstView(t *testing.T) {
	db := setupTestDB(t)
	buyer := createTestUser(t, db, "buyer", 0)
	admin := models.User{Username: "staff", Email: "staff@example.com", Password: "x", IsAdmin: true}
	require.NoError(t, db.Create(&admin).Error)

	order, _ := pendingOrderWithKeys(t, db, buyer, 0)
	require.NoError(t, db.Model(order).Update("status", models.OrderStatusApproved).Error)
	order = reloadOrder(t, db, order.ID)

	// Approved and settled, but not yet opened by the buyer.
	assert.False(t, keysVisibleTo(order, buyer))
	assert.True(t, keysVisibleTo(order, &admin))

	c, w := buyerContext(buyer, order.ID)
	FirstViewOrder(c)
	require.Equal(t, http.StatusOK, w.Code)

	order = reloadOrder(t, db, order.ID)
	assert.True(t, order.IsViewed)
	assert.True(t, keysVisibleTo(order, buyer))

	for _, line := range order.OrderLines {
		for _, binding := range line.OrderLineKeys {
			assert.True(t, binding.Key.IsViewed)
		}
	}
}

func TestFirstViewRefusedBeforeApprovalAndSettlement(t *testing.T) {
	db := setupTestDB(t)
	buyer := createTestUser(t, db, "buyer", 0)

	order, _ := pendingOrderWithKeys(t, db, buyer, 0)
	require.NoError(t, db.Model(order).Update("payment_status", models.PaymentStatusPending).Error)

	c, w := buyerContext(buyer, order.ID)
	FirstViewOrder(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	after := reloadOrder(t, db, order.ID)
	assert.False(t, after.IsViewed)
}

func TestOrderDetailOmitsKeysForUnviewedOrder(t *testing.T) {
	db := setupTestDB(t)
	buyer := createTestUser(t, db, "buyer", 0)

	order, _ := pendingOrderWithKeys(t, db, buyer, 0)
	require.NoError(t, db.Model(order).Update("status", models.OrderStatusApproved).Error)
	order = reloadOrder(t, db, order.ID)
	require.NoError(t, db.Preload("User").First(order, order.ID).Error)

	resp := orderDetailResponse(order, buyer)
	lines := resp["order_lines"].([]gin.H)
	require.Len(t, lines, 1)
	_, hasKeys := lines[0]["keys"]
	assert.False(t, hasKeys)
}
