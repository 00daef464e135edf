package controllers

import (
	"strconv"

	"github.com/hayder-jabbar/softstore/config"
	"github.com/hayder-jabbar/softstore/models"
	"github.com/hayder-jabbar/softstore/utils"
	"github.com/gin-gonic/gin"
)

// keysVisibleTo reports whether the viewer may see the order's keys. Admins
// always may; buyers only once the order is approved, settled and opened
// through the first-view endpoint.
func keysVisibleTo(order *models.Order, viewer *models.User) bool {
	if viewer.IsAdmin {
		return true
	}
	return keysReadyFor(order) && order.IsViewed
}

// keysReadyFor reports whether the order has reached the point where its
// buyer may open the keys.
func keysReadyFor(order *models.Order) bool {
	return order.Status == models.OrderStatusApproved &&
		order.PaymentStatus == models.PaymentStatusPaid
}

// ListOrders returns the viewer's orders, or all orders for admins.
// Supports ?status=, ?payment_status= and pagination.
func ListOrders(c *gin.Context) {
	utils.LogInfo("ListOrders called")

	userVal, _ := c.Get("user")
	user := userVal.(models.User)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := config.DB.Model(&models.Order{})
	if !user.IsAdmin {
		query = query.Where("user_id = ?", user.ID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if paymentStatus := c.Query("payment_status"); paymentStatus != "" {
		query = query.Where("payment_status = ?", paymentStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.LogError("Failed to count orders: %v", err)
		utils.InternalServerError(c, "Failed to fetch orders", err.Error())
		return
	}

	var orders []models.Order
	if err := query.
		Preload("User").
		Preload("OrderLines.Product").
		Preload("OrderLines.OrderLineKeys.Key").
		Order("id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&orders).Error; err != nil {
		utils.LogError("Failed to list orders: %v", err)
		utils.InternalServerError(c, "Failed to fetch orders", err.Error())
		return
	}

	data := make([]gin.H, 0, len(orders))
	for i := range orders {
		data = append(data, orderDetailResponse(&orders[i], &user))
	}
	utils.SuccessWithPagination(c, "Orders retrieved successfully", data, total, page, perPage)
}

// GetOrder returns one order. Buyers can only read their own.
func GetOrder(c *gin.Context) {
	utils.LogInfo("GetOrder called for order %s", c.Param("id"))

	userVal, _ := c.Get("user")
	user := userVal.(models.User)

	var order models.Order
	query := config.DB.
		Preload("User").
		Preload("OrderLines.Product").
		Preload("OrderLines.OrderLineKeys.Key")
	if !user.IsAdmin {
		query = query.Where("user_id = ?", user.ID)
	}
	if err := query.First(&order, "id = ?", c.Param("id")).Error; err != nil {
		utils.NotFound(c, "Order not found")
		return
	}

	utils.Success(c, "Order retrieved successfully", orderDetailResponse(&order, &user))
}

// FirstViewOrder marks the order and its keys as seen by the buyer. Once a
// key is viewed it can never silently go back to the pool through an admin
// mistake, so the flag is recorded eagerly on first read.
func FirstViewOrder(c *gin.Context) {
	utils.LogInfo("FirstViewOrder called for order %s", c.Param("id"))

	userVal, _ := c.Get("user")
	user := userVal.(models.User)

	var order models.Order
	if err := config.DB.Where("user_id = ?", user.ID).
		First(&order, "id = ?", c.Param("id")).Error; err != nil {
		utils.NotFound(c, "Order not found")
		return
	}

	if !keysReadyFor(&order) {
		utils.HandleError(c, utils.DomainError("order keys are not available yet"))
		return
	}

	tx := config.DB.Begin()
	if err := tx.Model(&order).Update("is_viewed", true).Error; err != nil {
		tx.Rollback()
		utils.LogError("Failed to mark order viewed: %v", err)
		utils.InternalServerError(c, "Failed to mark order as viewed", err.Error())
		return
	}
	if err := tx.Model(&models.ProductKey{}).
		Where("used_order_id = ?", order.ID).
		Update("is_viewed", true).Error; err != nil {
		tx.Rollback()
		utils.LogError("Failed to mark keys viewed: %v", err)
		utils.InternalServerError(c, "Failed to mark order as viewed", err.Error())
		return
	}
	if err := tx.Commit().Error; err != nil {
		utils.InternalServerError(c, "Failed to mark order as viewed", err.Error())
		return
	}

	utils.Success(c, "Order marked as viewed", gin.H{"id": order.ID, "is_viewed": true})
}

// BulkDeleteOrdersRequest names the orders to remove.
type BulkDeleteOrdersRequest struct {
	OrderIDs []uint `json:"order_ids" binding:"required"`
}

// BulkDeleteOrders soft-deletes a batch of orders, compensating each one
// first: keys return to their pools, stock is restored and wallet amounts
// refunded. Approved orders are skipped, their keys belong to the buyer.
func BulkDeleteOrders(c *gin.Context) {
	utils.LogInfo("BulkDeleteOrders called")

	actorVal, _ := c.Get("user")
	actor := actorVal.(models.User)

	var req BulkDeleteOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request format", err.Error())
		return
	}

	var deleted, skipped []uint
	tx := config.DB.Begin()
	if tx.Error != nil {
		utils.InternalServerError(c, "Failed to delete orders", tx.Error.Error())
		return
	}

	for _, id := range req.OrderIDs {
		var order models.Order
		if err := lockForUpdate(tx).First(&order, id).Error; err != nil {
			skipped = append(skipped, id)
			continue
		}
		if order.Status == models.OrderStatusApproved {
			skipped = append(skipped, id)
			continue
		}
		if err := refundOrderWallet(tx, &order, &actor.ID); err != nil {
			tx.Rollback()
			utils.LogError("Bulk delete compensation failed for order %d: %v", id, err)
			utils.HandleError(c, err)
			return
		}
		if err := releaseOrderKeys(tx, &order); err != nil {
			tx.Rollback()
			utils.LogError("Bulk delete key release failed for order %d: %v", id, err)
			utils.HandleError(c, err)
			return
		}
		if err := tx.Delete(&order).Error; err != nil {
			tx.Rollback()
			utils.LogError("Bulk delete failed for order %d: %v", id, err)
			utils.InternalServerError(c, "Failed to delete orders", err.Error())
			return
		}
		deleted = append(deleted, id)
	}

	if err := tx.Commit().Error; err != nil {
		utils.InternalServerError(c, "Failed to delete orders", err.Error())
		return
	}

	utils.LogInfo("Bulk delete by admin %d: %d deleted, %d skipped", actor.ID, len(deleted), len(skipped))
	utils.Success(c, "Orders deleted", gin.H{"deleted": deleted, "skipped": skipped})
}

// orderDetailResponse shapes an order for list/detail reads, applying the key
// visibility gate for the given viewer.
func orderDetailResponse(order *models.Order, viewer *models.User) gin.H {
	resp := orderResponse(order)
	resp["is_viewed"] = order.IsViewed
	resp["order_lines"] = orderLinesResponse(order, keysVisibleTo(order, viewer))
	resp["user"] = gin.H{
		"id":       order.User.ID,
		"username": order.User.Username,
		"name":     order.User.FullName(),
	}
	if viewer.IsAdmin {
		resp["approved_at"] = order.ApprovedAt
		resp["rejected_at"] = order.RejectedAt
		resp["returned_at"] = order.ReturnedAt
		resp["canceled_at"] = order.CanceledAt
		resp["paid_at"] = order.PaidAt
		resp["payment_failed_at"] = order.PaymentFailedAt
		resp["approved_notes"] = order.ApprovedNotes
		resp["rejected_notes"] = order.RejectedNotes
		resp["transaction_id"] = order.TransactionID
	}
	return resp
}
