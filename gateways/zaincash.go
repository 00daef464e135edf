package gateways

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/hayder-jabbar/softstore/config"
	"github.com/hayder-jabbar/softstore/models"
	"github.com/hayder-jabbar/softstore/utils"
	"github.com/golang-jwt/jwt"
)

// ZainCash initiates a payment by posting an HS256-signed token to the
// provider and confirms through a token carried back on the redirect URL.
type ZainCash struct{}

// Name returns the provider name.
func (z *ZainCash) Name() string { return "zain_cash" }

// Initiate creates a remote Zain Cash transaction for the order's amount
// still owed after the wallet was applied.
func (z *ZainCash) Initiate(order *models.Order) (*InitiateResult, error) {
	cfg := config.App
	if cfg.ZainCashTransactionURL == "" || cfg.ZainCashMSISDN == "" ||
		cfg.ZainCashMerchantID == "" || cfg.ZainCashMerchantSecret == "" {
		return nil, utils.NewGatewayError(z.Name(), "missing credentials", nil)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"amount":      strconv.FormatInt(order.TotalPriceMinusWallet(), 10),
		"serviceType": "SoftStore",
		"msisdn":      cfg.ZainCashMSISDN,
		"orderId":     order.ID,
		"redirectUrl": cfg.ZainCashRedirectURL,
		"iat":         now.Unix(),
		"exp":         now.Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(cfg.ZainCashMerchantSecret))
	if err != nil {
		return nil, utils.NewGatewayError(z.Name(), "failed to sign payment token", err)
	}

	body, _ := json.Marshal(map[string]string{
		"token":      token,
		"merchantId": cfg.ZainCashMerchantID,
		"lang":       "en",
	})

	resp, err := httpClient.Post(cfg.ZainCashTransactionURL+"/init", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, utils.NewGatewayError(z.Name(), "init request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, utils.NewGatewayError(z.Name(), fmt.Sprintf("init returned status %d", resp.StatusCode), nil)
	}

	var data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, utils.NewGatewayError(z.Name(), "malformed init response", err)
	}
	if data.Status != "" && data.Status != "pending" {
		return nil, utils.NewGatewayError(z.Name(), fmt.Sprintf("init reported status %q", data.Status), nil)
	}
	if data.ID == "" {
		return nil, utils.NewGatewayError(z.Name(), "init response missing transaction id", nil)
	}

	return &InitiateResult{
		TransactionID:  data.ID,
		TransactionURL: fmt.Sprintf("%s/pay?id=%s", cfg.ZainCashTransactionURL, data.ID),
	}, nil
}

// DecodeZainCashToken verifies the HS256 token the provider appends to the
// redirect and extracts the order id and reported status. An unverifiable
// token yields a SignatureError and must not be trusted.
func DecodeZainCashToken(tokenString string) (orderID uint, status string, err error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(config.App.ZainCashMerchantSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, "", &utils.SignatureError{Provider: "zain_cash"}
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", &utils.SignatureError{Provider: "zain_cash"}
	}

	id, ok := claims["orderid"].(float64)
	if !ok {
		return 0, "", utils.NewGatewayError("zain_cash", "token missing orderid", nil)
	}
	status, _ = claims["status"].(string)
	return uint(id), status, nil
}
