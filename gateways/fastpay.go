package gateways

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hayder-jabbar/softstore/config"
	"github.com/hayder-jabbar/softstore/models"
	"github.com/hayder-jabbar/softstore/utils"
)

// FastPay initiates with store credentials in the request body and confirms
// by re-validating the order against the provider's validation endpoint when
// the buyer lands back on the redirect.
type FastPay struct{}

// Name returns the provider name.
func (f *FastPay) Name() string { return "fast_pay" }

// Initiate creates a remote FastPay bill for the order.
func (f *FastPay) Initiate(order *models.Order) (*InitiateResult, error) {
	cfg := config.App
	if cfg.FastPayInitiationURL == "" || cfg.FastPayStoreID == "" || cfg.FastPayStorePassword == "" {
		return nil, utils.NewGatewayError(f.Name(), "missing credentials", nil)
	}

	amount := order.TotalPriceMinusWallet()
	cart, _ := json.Marshal([]map[string]interface{}{
		{
			"name":       "SoftStore Order",
			"qty":        1,
			"unit_price": amount,
			"sub_total":  amount,
		},
	})
	body, _ := json.Marshal(map[string]interface{}{
		"store_id":       cfg.FastPayStoreID,
		"store_password": cfg.FastPayStorePassword,
		"order_id":       order.ID,
		"bill_amount":    amount,
		"currency":       "IQD",
		"cart":           string(cart),
	})

	req, err := http.NewRequest(http.MethodPost, cfg.FastPayInitiationURL, bytes.NewReader(body))
	if err != nil {
		return nil, utils.NewGatewayError(f.Name(), "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, utils.NewGatewayError(f.Name(), "initiation request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, utils.NewGatewayError(f.Name(), fmt.Sprintf("initiation returned status %d", resp.StatusCode), nil)
	}

	var data struct {
		Data struct {
			RedirectURI string `json:"redirect_uri"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, utils.NewGatewayError(f.Name(), "malformed initiation response", err)
	}
	if data.Data.RedirectURI == "" {
		return nil, utils.NewGatewayError(f.Name(), "initiation response missing redirect_uri", nil)
	}

	return &InitiateResult{
		TransactionID:  data.Data.RedirectURI,
		TransactionURL: data.Data.RedirectURI,
	}, nil
}

// ValidateFastPayPayment asks the provider whether the order's bill was
// actually paid, returning the provider transaction id on success. The
// redirect itself proves nothing.
func ValidateFastPayPayment(orderID uint) (transactionID string, err error) {
	cfg := config.App
	body, _ := json.Marshal(map[string]interface{}{
		"store_id":       cfg.FastPayStoreID,
		"store_password": cfg.FastPayStorePassword,
		"order_id":       orderID,
	})

	req, err := http.NewRequest(http.MethodPost, cfg.FastPayValidationURL, bytes.NewReader(body))
	if err != nil {
		return "", utils.NewGatewayError("fast_pay", "failed to build validation request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", utils.NewGatewayError("fast_pay", "validation request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", utils.NewGatewayError("fast_pay", fmt.Sprintf("validation returned status %d", resp.StatusCode), nil)
	}

	var data struct {
		Code int `json:"code"`
		Data struct {
			Status        string `json:"status"`
			TransactionID string `json:"transaction_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", utils.NewGatewayError("fast_pay", "malformed validation response", err)
	}
	if data.Code == 404 {
		return "", utils.NewGatewayError("fast_pay", "bill not found", nil)
	}
	if data.Data.Status != "Success" {
		return "", utils.NewGatewayError("fast_pay", fmt.Sprintf("validation reported status %q", data.Data.Status), nil)
	}
	return data.Data.TransactionID, nil
}
