package gateways

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hayder-jabbar/softstore/config"
	"github.com/hayder-jabbar/softstore/models"
	"github.com/hayder-jabbar/softstore/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFastPayInitiate(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"redirect_uri": "https://fastpay.example/bill/77"},
		})
	}))
	defer server.Close()

	config.App = &config.Config{
		FastPayInitiationURL: server.URL,
		FastPayStoreID:       "store-1",
		FastPayStorePassword: "store-pass",
	}

	order := &models.Order{ID: 77, TotalPrice: 90000, PaidAmountFromWallet: 15000}
	result, err := (&FastPay{}).Initiate(order)
	require.NoError(t, err)

	assert.Equal(t, "https://fastpay.example/bill/77", result.TransactionURL)
	assert.Equal(t, "store-1", gotBody["store_id"])
	assert.EqualValues(t, 75000, gotBody["bill_amount"])
	assert.Equal(t, "IQD", gotBody["currency"])
}

func TestValidateFastPayPayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 200,
			"data": map[string]string{"status": "Success", "transaction_id": "fp-tx-9"},
		})
	}))
	defer server.Close()

	config.App = &config.Config{
		FastPayValidationURL: server.URL,
		FastPayStoreID:       "store-1",
		FastPayStorePassword: "store-pass",
	}

	transactionID, err := ValidateFastPayPayment(77)
	require.NoError(t, err)
	assert.Equal(t, "fp-tx-9", transactionID)
}

func TestValidateFastPayPaymentBillNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"code": 404})
	}))
	defer server.Close()

	config.App = &config.Config{FastPayValidationURL: server.URL}

	_, err := ValidateFastPayPayment(77)
	require.Error(t, err)
	assert.True(t, utils.IsGatewayError(err))
}

func TestValidateFastPayPaymentUnpaidBill(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 200,
			"data": map[string]string{"status": "Pending"},
		})
	}))
	defer server.Close()

	config.App = &config.Config{FastPayValidationURL: server.URL}

	_, err := ValidateFastPayPayment(77)
	require.Error(t, err)
}
