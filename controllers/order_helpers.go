package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/hayder-jabbar/softstore/models"
	"github.com/hayder-jabbar/softstore/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const orderNumberSequence = "order_number"

// lockForUpdate adds a row lock on dialects that support it. SQLite, used by
// the test suites, serializes writes on its own and rejects FOR UPDATE.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// nextOrderNumber increments the order number sequence under a row lock and
// formats the customer-facing number. Runs inside the caller's transaction so
// a rolled-back order releases its number only together with everything else.
func nextOrderNumber(tx *gorm.DB) (string, error) {
	var seq models.Sequence
	err := lockForUpdate(tx).Where("name = ?", orderNumberSequence).First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		seq = models.Sequence{Name: orderNumberSequence, Value: 0}
		if err := tx.Create(&seq).Error; err != nil {
			return "", utils.WrapError(err, "failed to create order number sequence")
		}
	} else if err != nil {
		return "", utils.WrapError(err, "failed to read order number sequence")
	}

	seq.Value++
	if err := tx.Model(&models.Sequence{}).Where("id = ?", seq.ID).
		Update("value", seq.Value).Error; err != nil {
		return "", utils.WrapError(err, "failed to advance order number sequence")
	}
	return fmt.Sprintf("OS-%d", seq.Value), nil
}

// unitPriceFor resolves the price the user actually pays for the product:
// the wholesale tier override when one exists for the user's tier, the list
// price otherwise.
func unitPriceFor(tx *gorm.DB, product *models.Product, user *models.User) (int64, error) {
	if !user.IsWholesale() {
		return product.Price, nil
	}
	var pricing models.ProductWholesalePricing
	err := tx.Where("product_id = ? AND wholesale_user_type_id = ?", product.ID, *user.WholesaleTypeID).
		First(&pricing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return product.Price, nil
	}
	if err != nil {
		return 0, utils.WrapError(err, "failed to read wholesale pricing")
	}
	return pricing.Price, nil
}

// countAvailableKeys counts unused keys in a product's pool.
func countAvailableKeys(tx *gorm.DB, productID uint) (int64, error) {
	var count int64
	err := tx.Model(&models.ProductKey{}).
		Where("product_id = ? AND is_used = ?", productID, false).
		Count(&count).Error
	return count, err
}

// validateKeyAvailability checks that every key pool the line would draw from
// holds enough unused keys. Bundles draw one key per bundled product per unit
// ordered; plain key products draw from their own pool.
func validateKeyAvailability(tx *gorm.DB, product *models.Product, quantity int) error {
	if len(product.OfferProducts) > 0 {
		for _, offer := range product.OfferProducts {
			count, err := countAvailableKeys(tx, offer.ID)
			if err != nil {
				return utils.WrapError(err, "failed to count keys")
			}
			if count < int64(quantity) {
				return utils.NewValidationError("products",
					fmt.Sprintf("not enough keys for %s (need %d, have %d)", offer.Name, quantity, count))
			}
		}
		return nil
	}
	if product.IsKeyProduct {
		count, err := countAvailableKeys(tx, product.ID)
		if err != nil {
			return utils.WrapError(err, "failed to count keys")
		}
		if count < int64(quantity) {
			return utils.NewValidationError("products",
				fmt.Sprintf("not enough keys for %s (need %d, have %d)", product.Name, quantity, count))
		}
		return nil
	}
	if product.Qty < quantity {
		return utils.NewValidationError("products",
			fmt.Sprintf("not enough stock for %s (need %d, have %d)", product.Name, quantity, product.Qty))
	}
	return nil
}

// takeKeys claims the oldest unused keys from one product's pool and binds
// them to the order line. The pool rows are read under a row lock so two
// concurrent checkouts can never claim the same key.
func takeKeys(tx *gorm.DB, order *models.Order, line *models.OrderLine, productID uint, quantity int, otherInfo string) error {
	var keys []models.ProductKey
	if err := lockForUpdate(tx).
		Where("product_id = ? AND is_used = ?", productID, false).
		Order("id ASC").
		Limit(quantity).
		Find(&keys).Error; err != nil {
		return utils.WrapError(err, "failed to fetch keys")
	}
	if len(keys) < quantity {
		return utils.NewValidationError("products",
			fmt.Sprintf("not enough keys (need %d, have %d)", quantity, len(keys)))
	}

	now := time.Now()
	for i := range keys {
		key := &keys[i]
		key.IsUsed = true
		key.UsedAt = &now
		key.UsedByID = &order.UserID
		key.UsedOrderID = &order.ID
		if err := tx.Save(key).Error; err != nil {
			return utils.WrapError(err, "failed to mark key used")
		}
		lineKey := models.OrderLineKey{
			OrderLineID: line.ID,
			KeyID:       key.ID,
			OtherInfo:   otherInfo,
		}
		if err := tx.Create(&lineKey).Error; err != nil {
			return utils.WrapError(err, "failed to bind key to order line")
		}
	}
	return nil
}

// allocateLineKeys fulfils one order line from the key inventory. Bundles
// take one key per bundled product per unit and tag each binding with the
// bundled product's name; plain key products take from their own pool.
// Non-key products decrement stock instead.
func allocateLineKeys(tx *gorm.DB, order *models.Order, line *models.OrderLine, product *models.Product) error {
	if len(product.OfferProducts) > 0 {
		for _, offer := range product.OfferProducts {
			if err := takeKeys(tx, order, line, offer.ID, line.Quantity, offer.Name); err != nil {
				return err
			}
		}
		return nil
	}
	if product.IsKeyProduct {
		return takeKeys(tx, order, line, product.ID, line.Quantity, "")
	}

	result := tx.Model(&models.Product{}).
		Where("id = ? AND qty >= ?", product.ID, line.Quantity).
		Update("qty", gorm.Expr("qty - ?", line.Quantity))
	if result.Error != nil {
		return utils.WrapError(result.Error, "failed to decrement stock")
	}
	if result.RowsAffected == 0 {
		return utils.NewValidationError("products",
			fmt.Sprintf("not enough stock for %s", product.Name))
	}
	return nil
}

// releaseOrderKeys returns every key the order consumed to its pool and
// removes the line bindings. Safe to call more than once: a key already
// released simply no longer matches. Approved orders keep their keys, the
// buyer has seen them.
func releaseOrderKeys(tx *gorm.DB, order *models.Order) error {
	if order.Status == models.OrderStatusApproved {
		return utils.DomainError("cannot release keys of an approved order")
	}

	if err := tx.Model(&models.ProductKey{}).
		Where("used_order_id = ?", order.ID).
		Updates(map[string]interface{}{
			"is_used":       false,
			"is_viewed":     false,
			"used_at":       nil,
			"used_by_id":    nil,
			"used_order_id": nil,
		}).Error; err != nil {
		return utils.WrapError(err, "failed to release keys")
	}

	if err := tx.Where("order_line_id IN (?)",
		tx.Session(&gorm.Session{NewDB: true}).Model(&models.OrderLine{}).
			Select("id").Where("order_id = ?", order.ID),
	).Delete(&models.OrderLineKey{}).Error; err != nil {
		return utils.WrapError(err, "failed to remove key bindings")
	}

	// Restock plain products.
	var lines []models.OrderLine
	if err := tx.Preload("Product.OfferProducts").Where("order_id = ?", order.ID).Find(&lines).Error; err != nil {
		return utils.WrapError(err, "failed to load order lines")
	}
	for _, line := range lines {
		if line.Product.IsKeyProduct || len(line.Product.OfferProducts) > 0 {
			continue
		}
		if err := tx.Model(&models.Product{}).
			Where("id = ?", line.ProductID).
			Update("qty", gorm.Expr("qty + ?", line.Quantity)).Error; err != nil {
			return utils.WrapError(err, "failed to restock product")
		}
	}
	return nil
}

// markOrderPaid records settlement. Calling it again for an already-paid
// order is a no-op, which is what makes duplicate gateway callbacks safe.
func markOrderPaid(tx *gorm.DB, order *models.Order, actorID *uint, transactionID string) error {
	if order.PaymentStatus == models.PaymentStatusPaid {
		return nil
	}
	now := time.Now()
	order.PaymentStatus = models.PaymentStatusPaid
	order.PaidAt = &now
	order.PaidByID = actorID
	if transactionID != "" {
		order.TransactionID = transactionID
	}
	updates := map[string]interface{}{
		"payment_status": order.PaymentStatus,
		"paid_at":        order.PaidAt,
		"paid_by_id":     order.PaidByID,
		"transaction_id": order.TransactionID,
	}
	if err := tx.Model(order).Updates(updates).Error; err != nil {
		return utils.WrapError(err, "failed to mark order paid")
	}
	return nil
}

// markOrderPaymentFailed records a failed settlement, refunds any wallet
// amount the order had consumed and releases its keys. Idempotent per order;
// a settled order can no longer fail. The transition is gated on the payment
// status alone, the fulfillment status does not block it.
func markOrderPaymentFailed(tx *gorm.DB, order *models.Order, actorID *uint) error {
	if order.PaymentStatus == models.PaymentStatusFailed {
		return nil
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		return utils.DomainError("order is already paid")
	}

	now := time.Now()
	order.PaymentStatus = models.PaymentStatusFailed
	order.PaymentFailedAt = &now
	order.PaymentFailedByID = actorID
	if err := tx.Model(order).Updates(map[string]interface{}{
		"payment_status":       order.PaymentStatus,
		"payment_failed_at":    order.PaymentFailedAt,
		"payment_failed_by_id": order.PaymentFailedByID,
	}).Error; err != nil {
		return utils.WrapError(err, "failed to mark payment failed")
	}

	// An approved order keeps its keys and its wallet debit; the buyer may
	// already have seen the keys, so only the failure itself is recorded and
	// staff resolve the rest through a return.
	if order.Status == models.OrderStatusApproved {
		return nil
	}

	if err := refundOrderWallet(tx, order, actorID); err != nil {
		return err
	}
	return releaseOrderKeys(tx, order)
}

// applyWalletBalance debits the buyer's wallet for as much of the order total
// as the wallet can cover and records the covered amount on the order. The
// spendable amount respects the wholesale tier's negative limit; retail
// wallets never go below zero.
func applyWalletBalance(tx *gorm.DB, order *models.Order, user *models.User, actorID *uint) error {
	spendable := walletSpendable(user)
	if spendable <= 0 {
		return nil
	}
	amount := order.TotalPrice
	if amount > spendable {
		amount = spendable
	}
	if amount <= 0 {
		return nil
	}

	_, err := createTransaction(tx, user, models.TransactionTypeOrder, -amount,
		fmt.Sprintf("Payment for order %s", order.OrderNumber), &order.ID, actorID)
	if err != nil {
		return err
	}

	order.PaidAmountFromWallet = amount
	if err := tx.Model(order).Update("paid_amount_from_wallet", amount).Error; err != nil {
		return utils.WrapError(err, "failed to record wallet amount")
	}
	return nil
}

// refundOrderWallet credits back whatever the order had taken from the
// wallet. A second call finds PaidAmountFromWallet already zeroed and does
// nothing.
func refundOrderWallet(tx *gorm.DB, order *models.Order, actorID *uint) error {
	if order.PaidAmountFromWallet <= 0 {
		return nil
	}
	var user models.User
	if err := tx.First(&user, order.UserID).Error; err != nil {
		return utils.WrapError(err, "failed to load order user")
	}
	_, err := createTransaction(tx, &user, models.TransactionTypeOrder, order.PaidAmountFromWallet,
		fmt.Sprintf("Refund for order %s", order.OrderNumber), &order.ID, actorID)
	if err != nil {
		return err
	}
	order.PaidAmountFromWallet = 0
	if err := tx.Model(order).Update("paid_amount_from_wallet", 0).Error; err != nil {
		return utils.WrapError(err, "failed to clear wallet amount")
	}
	return nil
}

// CancelExpiredOrder cancels one order whose payment window closed: status
// moves to canceled, the wallet amount flows back and the keys return to
// their pools. Payment status stays as it was. Used by the expiry sweeper.
func CancelExpiredOrder(tx *gorm.DB, order *models.Order, now time.Time) error {
	if order.Status != models.OrderStatusPending {
		return utils.DomainError("only pending orders can expire")
	}

	order.Status = models.OrderStatusCanceled
	order.CanceledAt = &now
	if err := tx.Model(order).Updates(map[string]interface{}{
		"status":      order.Status,
		"canceled_at": order.CanceledAt,
	}).Error; err != nil {
		return utils.WrapError(err, "failed to cancel order")
	}

	if err := refundOrderWallet(tx, order, nil); err != nil {
		return err
	}
	if err := releaseOrderKeys(tx, order); err != nil {
		return err
	}

	notification := models.OrderNotification(order.UserID, order.ID,
		fmt.Sprintf("Your order %s was canceled because the payment was not completed", order.OrderNumber),
		models.NotificationLevelNormal)
	return tx.Create(&notification).Error
}

// applyOrderCashback credits the per-product cashback to the buyer when the
// order is approved.
func applyOrderCashback(tx *gorm.DB, order *models.Order, actorID *uint) error {
	var lines []models.OrderLine
	if err := tx.Preload("Product").Where("order_id = ?", order.ID).Find(&lines).Error; err != nil {
		return utils.WrapError(err, "failed to load order lines")
	}
	var cashback int64
	for _, line := range lines {
		cashback += line.Product.CashbackAmount * int64(line.Quantity)
	}
	if cashback <= 0 {
		return nil
	}

	var user models.User
	if err := tx.First(&user, order.UserID).Error; err != nil {
		return utils.WrapError(err, "failed to load order user")
	}
	_, err := createTransaction(tx, &user, models.TransactionTypeDeposit, cashback,
		fmt.Sprintf("Cashback for order %s", order.OrderNumber), &order.ID, actorID)
	return err
}
