package gateways

import (
	"net/http"
	"time"

	"github.com/hayder-jabbar/softstore/models"
	"github.com/hayder-jabbar/softstore/utils"
)

// InitiateResult is what a provider hands back when a remote payment is
// created: the provider's transaction id, where to send the buyer, and any
// provider-specific extras.
type InitiateResult struct {
	TransactionID  string
	TransactionURL string
	QRCode         string
	ReadableCode   string
	ValidUntil     *time.Time
}

// Gateway is the capability every payment provider adapter implements.
// Initiate is called once, synchronously, during order creation. Confirmation
// arrives out-of-band through the provider-specific callback handlers, which
// must stay safe to invoke more than once per transaction id.
type Gateway interface {
	Name() string
	Initiate(order *models.Order) (*InitiateResult, error)
}

// Shared client for all provider calls. Initiate sits on the checkout
// critical path, so every request carries a hard timeout.
var httpClient = &http.Client{Timeout: 15 * time.Second}

// ForMethod returns the adapter for a payment method. Cash needs no gateway.
func ForMethod(method string) (Gateway, bool) {
	switch method {
	case models.PaymentMethodZainCash:
		return &ZainCash{}, true
	case models.PaymentMethodCreditCard:
		return &QiCard{}, true
	case models.PaymentMethodFastPay:
		return &FastPay{}, true
	case models.PaymentMethodFIB:
		return &FIB{}, true
	}
	return nil, false
}

const initiateAttempts = 3

// InitiateWithRetry runs Initiate with a short bounded backoff. A provider
// that still fails after the last attempt fails the whole order creation.
func InitiateWithRetry(gw Gateway, order *models.Order) (*InitiateResult, error) {
	var result *InitiateResult
	var err error
	for attempt := 1; attempt <= initiateAttempts; attempt++ {
		result, err = gw.Initiate(order)
		if err == nil {
			return result, nil
		}
		utils.LogError("%s initiate attempt %d/%d failed for order %s: %v",
			gw.Name(), attempt, initiateAttempts, order.OrderNumber, err)
		if attempt < initiateAttempts {
			time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
		}
	}
	return nil, err
}
