package gateways

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hayder-jabbar/softstore/config"
	"github.com/hayder-jabbar/softstore/models"
	"github.com/hayder-jabbar/softstore/utils"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zainTestSecret = "zain-test-secret"

func zainTestConfig(serverURL string) {
	config.App = &config.Config{
		ZainCashTransactionURL: serverURL,
		ZainCashMSISDN:         "9647800000000",
		ZainCashMerchantID:     "merchant-1",
		ZainCashMerchantSecret: zainTestSecret,
		ZainCashRedirectURL:    "https://store.example/v1/orders/zain-cash-redirect",
	}
}

func TestZainCashInitiate(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/init", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]string{"id": "zc-123", "status": "pending"})
	}))
	defer server.Close()
	zainTestConfig(server.URL)

	order := &models.Order{ID: 7, OrderNumber: "OS-7", TotalPrice: 50000}
	result, err := (&ZainCash{}).Initiate(order)
	require.NoError(t, err)

	assert.Equal(t, "zc-123", result.TransactionID)
	assert.Equal(t, server.URL+"/pay?id=zc-123", result.TransactionURL)
	assert.Equal(t, "merchant-1", gotBody["merchantId"])

	// The posted token must verify with the merchant secret and carry the
	// amount still owed.
	token, err := jwt.Parse(gotBody["token"], func(t *jwt.Token) (interface{}, error) {
		return []byte(zainTestSecret), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "50000", claims["amount"])
	assert.EqualValues(t, 7, claims["orderId"])
}

func TestZainCashInitiateRejectsFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "failed"})
	}))
	defer server.Close()
	zainTestConfig(server.URL)

	_, err := (&ZainCash{}).Initiate(&models.Order{ID: 1, TotalPrice: 1000})
	require.Error(t, err)
	assert.True(t, utils.IsGatewayError(err))
}

func TestDecodeZainCashToken(t *testing.T) {
	zainTestConfig("http://unused")

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"orderid": 42,
		"status":  "success",
	}).SignedString([]byte(zainTestSecret))
	require.NoError(t, err)

	orderID, status, err := DecodeZainCashToken(signed)
	require.NoError(t, err)
	assert.EqualValues(t, 42, orderID)
	assert.Equal(t, "success", status)
}

func TestDecodeZainCashTokenRejectsWrongSecret(t *testing.T) {
	zainTestConfig("http://unused")

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"orderid": 42,
		"status":  "success",
	}).SignedString([]byte("attacker-secret"))
	require.NoError(t, err)

	_, _, err = DecodeZainCashToken(forged)
	require.Error(t, err)
	_, ok := err.(*utils.SignatureError)
	assert.True(t, ok)
}
