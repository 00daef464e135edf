package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hayder-jabbar/softstore/config"
	"github.com/hayder-jabbar/softstore/models"
	"github.com/hayder-jabbar/softstore/utils"
	"golang.org/x/oauth2/clientcredentials"
)

// FIB exchanges OAuth client credentials for a bearer token, creates a
// payment that the buyer settles by scanning a QR code in the FIB app, and
// confirms by polling the provider's status endpoint. FIB is the one
// provider with a provider-declared payment expiry.
type FIB struct{}

// Name returns the provider name.
func (f *FIB) Name() string { return "fib" }

func fibTokenSource() *clientcredentials.Config {
	cfg := config.App
	return &clientcredentials.Config{
		ClientID:     cfg.FIBClientID,
		ClientSecret: cfg.FIBClientSecret,
		TokenURL:     cfg.FIBAuthURL,
	}
}

// Initiate creates a remote FIB payment for the order.
func (f *FIB) Initiate(order *models.Order) (*InitiateResult, error) {
	cfg := config.App
	if cfg.FIBCreatePaymentURL == "" || cfg.FIBClientID == "" ||
		cfg.FIBClientSecret == "" || cfg.FIBRedirectURL == "" {
		return nil, utils.NewGatewayError(f.Name(), "missing credentials", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	token, err := fibTokenSource().Token(ctx)
	if err != nil {
		return nil, utils.NewGatewayError(f.Name(), "client credentials exchange failed", err)
	}

	body, _ := json.Marshal(map[string]interface{}{
		"monetaryValue": map[string]interface{}{
			"amount":   order.TotalPriceMinusWallet(),
			"currency": "IQD",
		},
		"statusCallbackUrl": cfg.FIBRedirectURL,
		"description":       fmt.Sprintf("SoftStore Order %s", order.OrderNumber),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.FIBCreatePaymentURL, bytes.NewReader(body))
	if err != nil {
		return nil, utils.NewGatewayError(f.Name(), "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, utils.NewGatewayError(f.Name(), "payment create request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return nil, utils.NewGatewayError(f.Name(), fmt.Sprintf("payment create returned status %d", resp.StatusCode), nil)
	}

	var data struct {
		PaymentID       string `json:"paymentId"`
		PersonalAppLink string `json:"personalAppLink"`
		QRCode          string `json:"qrCode"`
		ReadableCode    string `json:"readableCode"`
		ValidUntil      string `json:"validUntil"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, utils.NewGatewayError(f.Name(), "malformed payment create response", err)
	}

	result := &InitiateResult{
		TransactionID:  data.PaymentID,
		TransactionURL: data.PersonalAppLink,
		QRCode:         data.QRCode,
		ReadableCode:   data.ReadableCode,
	}
	if data.ValidUntil != "" {
		validUntil, err := time.Parse(time.RFC3339, data.ValidUntil)
		if err != nil {
			return nil, utils.NewGatewayError(f.Name(), "malformed validUntil timestamp", err)
		}
		result.ValidUntil = &validUntil
	}
	return result, nil
}

// FetchFIBStatus polls the provider for the payment's settlement state.
func FetchFIBStatus(transactionID string) (status string, err error) {
	cfg := config.App
	url := strings.ReplaceAll(cfg.FIBPaymentStatusURL, "{transaction_id}", transactionID)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	token, err := fibTokenSource().Token(ctx)
	if err != nil {
		return "", utils.NewGatewayError("fib", "client credentials exchange failed", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", utils.NewGatewayError("fib", "failed to build status request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", utils.NewGatewayError("fib", "status request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", utils.NewGatewayError("fib", fmt.Sprintf("status returned %d", resp.StatusCode), nil)
	}

	var data struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", utils.NewGatewayError("fib", "malformed status response", err)
	}
	return data.Status, nil
}
