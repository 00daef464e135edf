package gateways

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/hayder-jabbar/softstore/config"
	"github.com/hayder-jabbar/softstore/models"
	"github.com/hayder-jabbar/softstore/utils"
	"github.com/google/uuid"
)

// QiCard initiates over HTTP Basic auth and confirms either by polling the
// provider's status endpoint on redirect or through a signed webhook.
type QiCard struct{}

// Name returns the provider name.
func (q *QiCard) Name() string { return "qi_card" }

// Initiate creates a remote card payment form for the order.
func (q *QiCard) Initiate(order *models.Order) (*InitiateResult, error) {
	cfg := config.App
	if cfg.QiCardTransactionURL == "" || cfg.QiCardUsername == "" || cfg.QiCardPassword == "" {
		return nil, utils.NewGatewayError(q.Name(), "missing credentials", nil)
	}

	body, _ := json.Marshal(map[string]interface{}{
		"requestId":        uuid.New().String(),
		"amount":           order.TotalPriceMinusWallet(),
		"currency":         "IQD",
		"finishPaymentUrl": cfg.QiCardRedirectURL,
		"notificationUrl":  cfg.QiCardWebhookURL,
		"additionalInfo": map[string]string{
			"website": "SoftStore",
		},
	})

	req, err := http.NewRequest(http.MethodPost, cfg.QiCardTransactionURL, bytes.NewReader(body))
	if err != nil {
		return nil, utils.NewGatewayError(q.Name(), "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Terminal-Id", cfg.QiCardTerminalID)
	req.SetBasicAuth(cfg.QiCardUsername, cfg.QiCardPassword)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, utils.NewGatewayError(q.Name(), "payment create request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, utils.NewGatewayError(q.Name(), fmt.Sprintf("payment create returned status %d", resp.StatusCode), nil)
	}

	var data struct {
		PaymentID string `json:"paymentId"`
		FormURL   string `json:"formUrl"`
		Status    string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, utils.NewGatewayError(q.Name(), "malformed payment create response", err)
	}
	if data.Status != "CREATED" {
		return nil, utils.NewGatewayError(q.Name(), fmt.Sprintf("payment create reported status %q", data.Status), nil)
	}

	return &InitiateResult{
		TransactionID:  data.PaymentID,
		TransactionURL: data.FormURL,
	}, nil
}

// QiCardStatus is the provider's view of one payment, fetched on redirect.
type QiCardStatus struct {
	Status  string `json:"status"`
	Details struct {
		MaskedPan string `json:"maskedPan"`
	} `json:"details"`
}

// FetchQiCardStatus polls the provider for the authoritative payment state.
// The redirect query parameters are never trusted on their own.
func FetchQiCardStatus(transactionID string) (*QiCardStatus, error) {
	cfg := config.App
	url := strings.ReplaceAll(cfg.QiCardTransactionStatusURL, "{transaction_id}", transactionID)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, utils.NewGatewayError("qi_card", "failed to build status request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Terminal-Id", cfg.QiCardTerminalID)
	req.SetBasicAuth(cfg.QiCardUsername, cfg.QiCardPassword)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, utils.NewGatewayError("qi_card", "status request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, utils.NewGatewayError("qi_card", fmt.Sprintf("status returned %d", resp.StatusCode), nil)
	}

	var status QiCardStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, utils.NewGatewayError("qi_card", "malformed status response", err)
	}
	return &status, nil
}

// QiCardWebhookPayload is the webhook body for a settled payment.
type QiCardWebhookPayload struct {
	PaymentID    string      `json:"paymentId"`
	Amount       json.Number `json:"amount"`
	Currency     string      `json:"currency"`
	CreationDate string      `json:"creationDate"`
	Status       string      `json:"status"`
}

// canonicalString joins the signed fields with '|', using '-' as the
// placeholder for missing values, matching the provider's signing scheme.
func (p *QiCardWebhookPayload) canonicalString() []byte {
	fields := []string{
		orDash(p.PaymentID),
		"-",
		orDash(p.Currency),
		orDash(p.CreationDate),
		orDash(p.Status),
	}
	if p.Amount.String() != "" {
		fields[1] = fmt.Sprintf("%s.000", p.Amount.String())
	}
	return []byte(strings.Join(fields, "|"))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// VerifyQiCardWebhookSignature verifies the X-Signature header (base64 RSA
// PKCS#1 v1.5 over SHA-256 of the canonical string) against the provider
// public key stored on disk. Payloads that do not verify are rejected with
// no state change.
func VerifyQiCardWebhookSignature(payload *QiCardWebhookPayload, signatureB64 string) bool {
	return VerifyQiCardSignatureWithKey(payload, signatureB64, config.App.QiCardPublicKeyPath)
}

// VerifyQiCardSignatureWithKey is the key-path-parameterized verification
// used by the webhook handler and the tests.
func VerifyQiCardSignatureWithKey(payload *QiCardWebhookPayload, signatureB64, publicKeyPath string) bool {
	if signatureB64 == "" {
		return false
	}
	signature, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return false
	}

	keyBytes, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return false
	}
	block, _ := pem.Decode(keyBytes)
	if block == nil {
		return false
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return false
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return false
	}

	digest := sha256.Sum256(payload.canonicalString())
	return rsa.VerifyPKCS1v15(rsaPub, crypto.SHA256, digest[:], signature) == nil
}
