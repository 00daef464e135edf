package controllers

import (
	"fmt"
	"time"

	"github.com/hayder-jabbar/softstore/config"
	"github.com/hayder-jabbar/softstore/models"
	"github.com/hayder-jabbar/softstore/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StatusNotesRequest carries the optional admin note for a transition.
type StatusNotesRequest struct {
	Notes string `json:"notes"`
}

// ApproveOrder moves a pending order to approved, credits the per-product
// cashback and emails the buyer. Only pending orders can be approved.
func ApproveOrder(c *gin.Context) {
	utils.LogInfo("ApproveOrder called for order %s", c.Param("id"))

	actorVal, _ := c.Get("user")
	actor := actorVal.(models.User)

	var req StatusNotesRequest
	_ = c.ShouldBindJSON(&req)

	var order models.Order
	err := withOrderTx(c.Param("id"), func(tx *gorm.DB, o *models.Order) error {
		if o.Status != models.OrderStatusPending {
			return utils.DomainError(fmt.Sprintf("cannot approve an order in status %q", o.Status))
		}

		now := time.Now()
		o.Status = models.OrderStatusApproved
		o.ApprovedAt = &now
		o.ApprovedByID = &actor.ID
		o.ApprovedNotes = req.Notes
		if err := tx.Model(o).Updates(map[string]interface{}{
			"status":         o.Status,
			"approved_at":    o.ApprovedAt,
			"approved_by_id": o.ApprovedByID,
			"approved_notes": o.ApprovedNotes,
		}).Error; err != nil {
			return utils.WrapError(err, "failed to approve order")
		}

		if err := applyOrderCashback(tx, o, &actor.ID); err != nil {
			return err
		}

		notification := models.OrderNotification(o.UserID, o.ID,
			fmt.Sprintf("Your order %s has been approved", o.OrderNumber),
			models.NotificationLevelImportant)
		if err := tx.Create(&notification).Error; err != nil {
			return utils.WrapError(err, "failed to create notification")
		}
		order = *o
		return nil
	})
	if err != nil {
		utils.LogError("Approve failed: %v", err)
		utils.HandleError(c, err)
		return
	}

	utils.LogInfo("Order %s approved by admin %d", order.OrderNumber, actor.ID)
	go func(o models.Order) {
		if err := utils.SendOrderApprovedEmail(&o); err != nil {
			utils.LogError("Failed to send approved email for %s: %v", o.OrderNumber, err)
		}
	}(order)

	utils.Success(c, "Order approved successfully", gin.H{
		"id":          order.ID,
		"status":      order.Status,
		"approved_at": order.ApprovedAt,
	})
}

// RejectOrder moves a pending order to rejected, returns its keys and refunds
// any wallet amount it consumed.
func RejectOrder(c *gin.Context) {
	utils.LogInfo("RejectOrder called for order %s", c.Param("id"))

	actorVal, _ := c.Get("user")
	actor := actorVal.(models.User)

	var req StatusNotesRequest
	_ = c.ShouldBindJSON(&req)

	var order models.Order
	err := withOrderTx(c.Param("id"), func(tx *gorm.DB, o *models.Order) error {
		if o.Status != models.OrderStatusPending {
			return utils.DomainError(fmt.Sprintf("cannot reject an order in status %q", o.Status))
		}

		now := time.Now()
		o.Status = models.OrderStatusRejected
		o.RejectedAt = &now
		o.RejectedByID = &actor.ID
		o.RejectedNotes = req.Notes
		if err := tx.Model(o).Updates(map[string]interface{}{
			"status":         o.Status,
			"rejected_at":    o.RejectedAt,
			"rejected_by_id": o.RejectedByID,
			"rejected_notes": o.RejectedNotes,
		}).Error; err != nil {
			return utils.WrapError(err, "failed to reject order")
		}

		if err := refundOrderWallet(tx, o, &actor.ID); err != nil {
			return err
		}
		if err := releaseOrderKeys(tx, o); err != nil {
			return err
		}

		notification := models.OrderNotification(o.UserID, o.ID,
			fmt.Sprintf("Your order %s has been rejected", o.OrderNumber),
			models.NotificationLevelImportant)
		if err := tx.Create(&notification).Error; err != nil {
			return utils.WrapError(err, "failed to create notification")
		}
		order = *o
		return nil
	})
	if err != nil {
		utils.LogError("Reject failed: %v", err)
		utils.HandleError(c, err)
		return
	}

	utils.LogInfo("Order %s rejected by admin %d", order.OrderNumber, actor.ID)
	go func(o models.Order) {
		if err := utils.SendOrderRejectedEmail(&o); err != nil {
			utils.LogError("Failed to send rejected email for %s: %v", o.OrderNumber, err)
		}
	}(order)

	utils.Success(c, "Order rejected successfully", gin.H{
		"id":          order.ID,
		"status":      order.Status,
		"rejected_at": order.RejectedAt,
	})
}

// ReturnOrder takes back a previously approved order: the keys go back to
// their pools and the buyer is refunded to the wallet.
func ReturnOrder(c *gin.Context) {
	utils.LogInfo("ReturnOrder called for order %s", c.Param("id"))

	actorVal, _ := c.Get("user")
	actor := actorVal.(models.User)

	var order models.Order
	err := withOrderTx(c.Param("id"), func(tx *gorm.DB, o *models.Order) error {
		if o.Status == models.OrderStatusReturned {
			return utils.DomainError("order is already returned")
		}

		now := time.Now()
		o.Status = models.OrderStatusReturned
		o.ReturnedAt = &now
		o.ReturnedByID = &actor.ID
		if err := tx.Model(o).Updates(map[string]interface{}{
			"status":         o.Status,
			"returned_at":    o.ReturnedAt,
			"returned_by_id": o.ReturnedByID,
		}).Error; err != nil {
			return utils.WrapError(err, "failed to return order")
		}

		if err := refundOrderWallet(tx, o, &actor.ID); err != nil {
			return err
		}
		if err := releaseOrderKeys(tx, o); err != nil {
			return err
		}

		notification := models.OrderNotification(o.UserID, o.ID,
			fmt.Sprintf("Your order %s has been returned", o.OrderNumber),
			models.NotificationLevelImportant)
		if err := tx.Create(&notification).Error; err != nil {
			return utils.WrapError(err, "failed to create notification")
		}
		order = *o
		return nil
	})
	if err != nil {
		utils.LogError("Return failed: %v", err)
		utils.HandleError(c, err)
		return
	}

	utils.LogInfo("Order %s returned by admin %d", order.OrderNumber, actor.ID)
	go func(o models.Order) {
		if err := utils.SendOrderReturnedEmail(&o); err != nil {
			utils.LogError("Failed to send returned email for %s: %v", o.OrderNumber, err)
		}
	}(order)

	utils.Success(c, "Order returned successfully", gin.H{
		"id":          order.ID,
		"status":      order.Status,
		"returned_at": order.ReturnedAt,
	})
}

// MarkOrderPaid records an out-of-band settlement, typically for cash orders.
func MarkOrderPaid(c *gin.Context) {
	utils.LogInfo("MarkOrderPaid called for order %s", c.Param("id"))

	actorVal, _ := c.Get("user")
	actor := actorVal.(models.User)

	var order models.Order
	err := withOrderTx(c.Param("id"), func(tx *gorm.DB, o *models.Order) error {
		if o.PaymentStatus == models.PaymentStatusPaid {
			return utils.DomainError("order is already paid")
		}
		if err := markOrderPaid(tx, o, &actor.ID, ""); err != nil {
			return err
		}
		order = *o
		return nil
	})
	if err != nil {
		utils.LogError("Mark paid failed: %v", err)
		utils.HandleError(c, err)
		return
	}

	utils.LogInfo("Order %s marked paid by admin %d", order.OrderNumber, actor.ID)
	utils.Success(c, "Order marked as paid", gin.H{
		"id":             order.ID,
		"payment_status": order.PaymentStatus,
		"paid_at":        order.PaidAt,
	})
}

// withOrderTx loads the order by path id under a row lock and runs fn inside
// one transaction.
func withOrderTx(id string, fn func(tx *gorm.DB, order *models.Order) error) error {
	tx := config.DB.Begin()
	if tx.Error != nil {
		return utils.WrapError(tx.Error, "failed to begin transaction")
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	var order models.Order
	if err := lockForUpdate(tx).
		Preload("User").
		Preload("OrderLines.Product").
		First(&order, "id = ?", id).Error; err != nil {
		tx.Rollback()
		return utils.NotFoundError("Order not found")
	}

	if err := fn(tx, &order); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return utils.WrapError(err, "failed to commit")
	}
	return nil
}
