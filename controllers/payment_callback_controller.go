package controllers

import (
	"net/http"

	"github.com/hayder-jabbar/softstore/config"
	"github.com/hayder-jabbar/softstore/gateways"
	"github.com/hayder-jabbar/softstore/models"
	"github.com/hayder-jabbar/softstore/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Gateway callbacks run with no authenticated actor; the audit fields record
// the transition with a nil actor, meaning the provider itself.

// settleByOrderID applies a settlement verdict to an order found by primary
// key. Repeat confirmations hit the idempotent transitions and change nothing.
func settleByOrderID(orderID uint, paid bool, transactionID string) error {
	return withOrderTxID(orderID, func(tx *gorm.DB, order *models.Order) error {
		if paid {
			return markOrderPaid(tx, order, nil, transactionID)
		}
		return markOrderPaymentFailed(tx, order, nil)
	})
}

// settleByTransactionID is the same for providers that only echo their own
// transaction id back.
func settleByTransactionID(transactionID string, paid bool, extra map[string]interface{}) error {
	tx := config.DB.Begin()
	if tx.Error != nil {
		return utils.WrapError(tx.Error, "failed to begin transaction")
	}

	var order models.Order
	if err := lockForUpdate(tx).
		Where("transaction_id = ?", transactionID).
		First(&order).Error; err != nil {
		tx.Rollback()
		return utils.NotFoundError("Order not found for transaction")
	}

	if len(extra) > 0 {
		if err := tx.Model(&order).Updates(extra).Error; err != nil {
			tx.Rollback()
			return utils.WrapError(err, "failed to record gateway details")
		}
	}

	var err error
	if paid {
		err = markOrderPaid(tx, &order, nil, transactionID)
	} else {
		err = markOrderPaymentFailed(tx, &order, nil)
	}
	if err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// withOrderTxID is withOrderTx for an already-parsed id.
func withOrderTxID(orderID uint, fn func(tx *gorm.DB, order *models.Order) error) error {
	tx := config.DB.Begin()
	if tx.Error != nil {
		return utils.WrapError(tx.Error, "failed to begin transaction")
	}
	var order models.Order
	if err := lockForUpdate(tx).First(&order, orderID).Error; err != nil {
		tx.Rollback()
		return utils.NotFoundError("Order not found")
	}
	if err := fn(tx, &order); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// redirectToClient lands the buyer back on the storefront.
func redirectToClient(c *gin.Context, paid bool) {
	target := config.App.ClientTransactionFailedURL
	if paid {
		target = config.App.ClientTransactionSuccessURL
	}
	c.Redirect(http.StatusFound, target)
}

// ZainCashRedirect receives the buyer back from Zain Cash. The verdict rides
// in an HS256 token signed with the merchant secret; an unverifiable token is
// dropped on the floor.
func ZainCashRedirect(c *gin.Context) {
	utils.LogInfo("ZainCashRedirect called")

	tokenString := c.Query("token")
	orderID, status, err := gateways.DecodeZainCashToken(tokenString)
	if err != nil {
		utils.LogError("Zain Cash redirect with bad token: %v", err)
		utils.BadRequest(c, "Invalid payment token", nil)
		return
	}

	paid := status == "success"
	if err := settleByOrderID(orderID, paid, ""); err != nil {
		utils.LogError("Zain Cash settlement failed for order %d: %v", orderID, err)
		utils.HandleError(c, err)
		return
	}

	utils.LogInfo("Zain Cash settled order %d, paid=%v", orderID, paid)
	redirectToClient(c, paid)
}

// QiCardRedirect receives the buyer back from the card form. The query
// parameters prove nothing; the verdict comes from the provider's status
// endpoint.
func QiCardRedirect(c *gin.Context) {
	utils.LogInfo("QiCardRedirect called")

	transactionID := c.Query("paymentId")
	if transactionID == "" {
		utils.BadRequest(c, "Missing paymentId", nil)
		return
	}

	status, err := gateways.FetchQiCardStatus(transactionID)
	if err != nil {
		utils.LogError("Qi Card status fetch failed for %s: %v", transactionID, err)
		utils.HandleError(c, utils.DomainError("could not confirm payment"))
		return
	}

	paid := status.Status == "SUCCESS"
	extra := map[string]interface{}{}
	if status.Details.MaskedPan != "" {
		extra["masked_card_number"] = status.Details.MaskedPan
	}
	if err := settleByTransactionID(transactionID, paid, extra); err != nil {
		utils.LogError("Qi Card settlement failed for %s: %v", transactionID, err)
		utils.HandleError(c, err)
		return
	}

	utils.LogInfo("Qi Card settled transaction %s, paid=%v", transactionID, paid)
	redirectToClient(c, paid)
}

// QiCardWebhook receives the provider's server-to-server notification. The
// X-Signature header must verify against the provider public key before the
// payload is believed.
func QiCardWebhook(c *gin.Context) {
	utils.LogInfo("QiCardWebhook called")

	var payload gateways.QiCardWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.BadRequest(c, "Invalid webhook payload", err.Error())
		return
	}

	signature := c.GetHeader("X-Signature")
	if !gateways.VerifyQiCardWebhookSignature(&payload, signature) {
		utils.LogError("Qi Card webhook signature verification failed for %s", payload.PaymentID)
		utils.BadRequest(c, "Invalid signature", nil)
		return
	}

	paid := payload.Status == "SUCCESS"
	if err := settleByTransactionID(payload.PaymentID, paid, nil); err != nil {
		utils.LogError("Qi Card webhook settlement failed for %s: %v", payload.PaymentID, err)
		utils.HandleError(c, err)
		return
	}

	utils.LogInfo("Qi Card webhook settled transaction %s, paid=%v", payload.PaymentID, paid)
	utils.Success(c, "Webhook processed", nil)
}

// FastPayRedirect receives the buyer back from FastPay and re-validates the
// bill against the provider before trusting anything.
func FastPayRedirect(c *gin.Context) {
	utils.LogInfo("FastPayRedirect called")

	orderIDParam := c.Query("order_id")
	var order models.Order
	if err := config.DB.First(&order, "id = ?", orderIDParam).Error; err != nil {
		utils.NotFound(c, "Order not found")
		return
	}

	transactionID, err := gateways.ValidateFastPayPayment(order.ID)
	paid := err == nil
	if err != nil {
		utils.LogError("FastPay validation failed for order %d: %v", order.ID, err)
	}

	if err := settleByOrderID(order.ID, paid, transactionID); err != nil {
		utils.LogError("FastPay settlement failed for order %d: %v", order.ID, err)
		utils.HandleError(c, err)
		return
	}

	utils.LogInfo("FastPay settled order %d, paid=%v", order.ID, paid)
	redirectToClient(c, paid)
}

// FIBCallback receives FIB's status callback and confirms against the
// provider's status endpoint. FIB reports "PAID" when settled.
func FIBCallback(c *gin.Context) {
	utils.LogInfo("FIBCallback called")

	var payload struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.BadRequest(c, "Invalid callback payload", err.Error())
		return
	}
	if payload.ID == "" {
		utils.BadRequest(c, "Missing payment id", nil)
		return
	}

	status, err := gateways.FetchFIBStatus(payload.ID)
	if err != nil {
		utils.LogError("FIB status fetch failed for %s: %v", payload.ID, err)
		utils.HandleError(c, utils.DomainError("could not confirm payment"))
		return
	}

	paid := status == "PAID"
	if err := settleByTransactionID(payload.ID, paid, nil); err != nil {
		utils.LogError("FIB settlement failed for %s: %v", payload.ID, err)
		utils.HandleError(c, err)
		return
	}

	utils.LogInfo("FIB settled transaction %s, paid=%v", payload.ID, paid)
	utils.Success(c, "Callback processed", nil)
}
