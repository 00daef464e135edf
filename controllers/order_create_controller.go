package controllers

import (
	"fmt"

	"github.com/hayder-jabbar/softstore/config"
	"github.com/hayder-jabbar/softstore/gateways"
	"github.com/hayder-jabbar/softstore/models"
	"github.com/hayder-jabbar/softstore/utils"
	"github.com/gin-gonic/gin"
)

// OrderProductRequest is one requested line.
type OrderProductRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity"`
}

// PlaceOrderRequest is the checkout payload.
type PlaceOrderRequest struct {
	Address       string                `json:"address"`
	Notes         string                `json:"notes"`
	PaymentMethod string                `json:"payment_method" binding:"required"`
	UseWallet     bool                  `json:"use_wallet"`
	Products      []OrderProductRequest `json:"products" binding:"required"`
}

// PlaceOrder handles checkout for the authenticated buyer. Everything up to
// and including the gateway handshake runs in one database transaction: a
// checkout either produces a complete order with its keys claimed and wallet
// debited, or leaves no trace at all.
func PlaceOrder(c *gin.Context) {
	utils.LogInfo("PlaceOrder called")

	userVal, _ := c.Get("user")
	user := userVal.(models.User)

	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid order request: %v", err)
		utils.BadRequest(c, "Invalid request format", err.Error())
		return
	}

	order, err := createOrder(&user, &user, &req)
	if err != nil {
		utils.LogError("Order creation failed for user %d: %v", user.ID, err)
		utils.HandleError(c, err)
		return
	}

	utils.LogInfo("Order %s created for user %d", order.OrderNumber, user.ID)
	go func(o models.Order) {
		if err := utils.SendOrderPendingEmail(&o); err != nil {
			utils.LogError("Failed to send order pending email for %s: %v", o.OrderNumber, err)
		}
	}(*order)

	utils.Created(c, "Order created successfully", orderResponse(order))
}

// CreateOrderForUserRequest is the admin checkout payload.
type CreateOrderForUserRequest struct {
	UserID uint `json:"user_id" binding:"required"`
	PlaceOrderRequest
}

// CreateOrderForUser lets an admin place an order on a customer's behalf.
// The customer is the buyer for pricing, wallet and key ownership; the admin
// is the recorded actor.
func CreateOrderForUser(c *gin.Context) {
	utils.LogInfo("CreateOrderForUser called")

	actorVal, _ := c.Get("user")
	actor := actorVal.(models.User)

	var req CreateOrderForUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid admin order request: %v", err)
		utils.BadRequest(c, "Invalid request format", err.Error())
		return
	}

	var buyer models.User
	if err := config.DB.Preload("WholesaleType").First(&buyer, req.UserID).Error; err != nil {
		utils.NotFound(c, "User not found")
		return
	}

	order, err := createOrder(&buyer, &actor, &req.PlaceOrderRequest)
	if err != nil {
		utils.LogError("Admin order creation failed for user %d: %v", buyer.ID, err)
		utils.HandleError(c, err)
		return
	}

	utils.LogInfo("Order %s created by admin %d for user %d", order.OrderNumber, actor.ID, buyer.ID)
	utils.Created(c, "Order created successfully", orderResponse(order))
}

// createOrder runs the checkout protocol: validate, number, persist, claim
// keys, apply wallet, settle or hand off to the gateway. Any failure rolls
// the whole attempt back.
func createOrder(buyer *models.User, actor *models.User, req *PlaceOrderRequest) (*models.Order, error) {
	if !models.ValidPaymentMethods[req.PaymentMethod] {
		return nil, utils.NewValidationError("payment_method",
			fmt.Sprintf("unknown payment method %q", req.PaymentMethod))
	}
	if len(req.Products) == 0 {
		return nil, utils.NewValidationError("products", "order must contain at least one product")
	}
	for _, p := range req.Products {
		if p.Quantity < 1 {
			return nil, utils.NewValidationError("products", "quantity must be at least 1")
		}
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		return nil, utils.WrapError(tx.Error, "failed to begin transaction")
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	// Re-read the buyer under the transaction so the wallet debit works
	// against a current balance.
	var txBuyer models.User
	if err := lockForUpdate(tx).Preload("WholesaleType").First(&txBuyer, buyer.ID).Error; err != nil {
		tx.Rollback()
		return nil, utils.WrapError(err, "failed to load buyer")
	}

	type pricedLine struct {
		product  models.Product
		quantity int
		price    int64
	}
	var lines []pricedLine
	var total int64
	for _, item := range req.Products {
		var product models.Product
		if err := tx.Preload("OfferProducts").First(&product, item.ProductID).Error; err != nil {
			tx.Rollback()
			return nil, utils.NewValidationError("products",
				fmt.Sprintf("product %d not found", item.ProductID))
		}
		if !product.Available || product.Status != models.ProductStatusActive {
			tx.Rollback()
			return nil, utils.NewValidationError("products",
				fmt.Sprintf("%s is not available", product.Name))
		}
		if err := validateKeyAvailability(tx, &product, item.Quantity); err != nil {
			tx.Rollback()
			return nil, err
		}
		price, err := unitPriceFor(tx, &product, &txBuyer)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		lines = append(lines, pricedLine{product: product, quantity: item.Quantity, price: price})
		total += price * int64(item.Quantity)
	}

	orderNumber, err := nextOrderNumber(tx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	order := models.Order{
		OrderNumber:   orderNumber,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		PaymentMethod: req.PaymentMethod,
		Address:       req.Address,
		Notes:         req.Notes,
		TotalPrice:    total,
		UseWallet:     req.UseWallet,
		IsWholesale:   txBuyer.IsWholesale(),
		UserID:        txBuyer.ID,
	}
	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, utils.WrapError(err, "failed to create order")
	}

	for i := range lines {
		line := models.OrderLine{
			Seq:       i + 1,
			OrderID:   order.ID,
			ProductID: lines[i].product.ID,
			Quantity:  lines[i].quantity,
			UnitPrice: lines[i].price,
		}
		if err := tx.Create(&line).Error; err != nil {
			tx.Rollback()
			return nil, utils.WrapError(err, "failed to create order line")
		}
		if err := allocateLineKeys(tx, &order, &line, &lines[i].product); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	actorID := actor.ID
	if req.UseWallet {
		if err := applyWalletBalance(tx, &order, &txBuyer, &actorID); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	remaining := order.TotalPriceMinusWallet()
	switch {
	case remaining == 0:
		// Wallet covered everything, no gateway round trip needed.
		if err := markOrderPaid(tx, &order, &actorID, ""); err != nil {
			tx.Rollback()
			return nil, err
		}
	case order.PaymentMethod == models.PaymentMethodCash:
		// Cash settles out of band; an admin marks it paid later.
	default:
		gw, ok := gateways.ForMethod(order.PaymentMethod)
		if !ok {
			tx.Rollback()
			return nil, utils.NewValidationError("payment_method",
				fmt.Sprintf("no gateway for %q", order.PaymentMethod))
		}
		result, err := gateways.InitiateWithRetry(gw, &order)
		if err != nil {
			tx.Rollback()
			return nil, utils.DomainError("payment provider is unavailable, please try again")
		}
		order.TransactionID = result.TransactionID
		order.TransactionURL = result.TransactionURL
		order.QRCode = result.QRCode
		order.ReadableCode = result.ReadableCode
		order.FIBPaymentValidUntil = result.ValidUntil
		if err := tx.Model(&order).Updates(map[string]interface{}{
			"transaction_id":          order.TransactionID,
			"transaction_url":         order.TransactionURL,
			"qr_code":                 order.QRCode,
			"readable_code":           order.ReadableCode,
			"fib_payment_valid_until": order.FIBPaymentValidUntil,
		}).Error; err != nil {
			tx.Rollback()
			return nil, utils.WrapError(err, "failed to record gateway transaction")
		}
	}

	notification := models.OrderNotification(order.UserID, order.ID,
		fmt.Sprintf("Your order %s has been received", order.OrderNumber),
		models.NotificationLevelNormal)
	if err := tx.Create(&notification).Error; err != nil {
		tx.Rollback()
		return nil, utils.WrapError(err, "failed to create notification")
	}

	if err := tx.Commit().Error; err != nil {
		return nil, utils.WrapError(err, "failed to commit order")
	}

	var created models.Order
	if err := config.DB.
		Preload("User").
		Preload("OrderLines.Product").
		Preload("OrderLines.OrderLineKeys.Key").
		First(&created, order.ID).Error; err != nil {
		return nil, utils.WrapError(err, "failed to reload order")
	}
	return &created, nil
}

// orderResponse shapes a freshly created order for the API. Keys are never
// part of the creation response.
func orderResponse(order *models.Order) gin.H {
	resp := gin.H{
		"id":                      order.ID,
		"order_number":            order.OrderNumber,
		"status":                  order.Status,
		"payment_status":          order.PaymentStatus,
		"payment_method":          order.PaymentMethod,
		"total_price":             order.TotalPrice,
		"paid_amount_from_wallet": order.PaidAmountFromWallet,
		"amount_due":              order.TotalPriceMinusWallet(),
		"is_wholesale":            order.IsWholesale,
		"address":                 order.Address,
		"notes":                   order.Notes,
		"created_at":              order.CreatedAt,
		"order_lines":             orderLinesResponse(order, false),
	}
	if order.TransactionURL != "" {
		resp["transaction_url"] = order.TransactionURL
	}
	if order.QRCode != "" {
		resp["qr_code"] = order.QRCode
		resp["readable_code"] = order.ReadableCode
	}
	if order.FIBPaymentValidUntil != nil {
		resp["fib_payment_valid_until"] = order.FIBPaymentValidUntil
	}
	return resp
}

// orderLinesResponse shapes the lines. Keys are included only when the
// caller passed the visibility gate.
func orderLinesResponse(order *models.Order, includeKeys bool) []gin.H {
	lines := make([]gin.H, 0, len(order.OrderLines))
	for _, line := range order.OrderLines {
		entry := gin.H{
			"seq":        line.Seq,
			"product_id": line.ProductID,
			"product":    line.Product.Name,
			"quantity":   line.Quantity,
			"unit_price": line.UnitPrice,
			"sub_total":  line.SubTotal(),
		}
		if includeKeys {
			keys := make([]gin.H, 0, len(line.OrderLineKeys))
			for _, lk := range line.OrderLineKeys {
				keys = append(keys, gin.H{
					"key":        lk.Key.Key,
					"other_info": lk.OtherInfo,
				})
			}
			entry["keys"] = keys
		}
		lines = append(lines, entry)
	}
	return lines
}
