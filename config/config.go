package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application. Gateway credentials are
// static deployment configuration, never persisted.
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	Port       string
	Env        string

	// Client redirect targets after a gateway round trip.
	ClientTransactionSuccessURL string
	ClientTransactionFailedURL  string

	// Zain Cash
	ZainCashTransactionURL string
	ZainCashMSISDN         string
	ZainCashMerchantID     string
	ZainCashMerchantSecret string
	ZainCashRedirectURL    string

	// Qi Card
	QiCardTransactionURL       string
	QiCardTransactionStatusURL string
	QiCardUsername             string
	QiCardPassword             string
	QiCardTerminalID           string
	QiCardRedirectURL          string
	QiCardWebhookURL           string
	QiCardPublicKeyPath        string

	// FastPay
	FastPayInitiationURL string
	FastPayValidationURL string
	FastPayStoreID       string
	FastPayStorePassword string

	// FIB
	FIBAuthURL          string
	FIBCreatePaymentURL string
	FIBPaymentStatusURL string
	FIBClientID         string
	FIBClientSecret     string
	FIBRedirectURL      string

	// SMTP
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// App is the loaded configuration, set by LoadConfig.
var App *Config

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Missing .env is fine in deployments where the environment is injected.
	_ = godotenv.Load()

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %v", err)
	}

	config := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		Port:       getEnv("PORT", "8080"),
		Env:        os.Getenv("ENV"),

		ClientTransactionSuccessURL: os.Getenv("CLIENT_TRANSACTION_SUCCESS_URL"),
		ClientTransactionFailedURL:  os.Getenv("CLIENT_TRANSACTION_FAILED_URL"),

		ZainCashTransactionURL: os.Getenv("ZAIN_CASH_TRANSACTION_URL"),
		ZainCashMSISDN:         os.Getenv("ZAIN_CASH_MSISDN"),
		ZainCashMerchantID:     os.Getenv("ZAIN_CASH_MERCHANT_ID"),
		ZainCashMerchantSecret: os.Getenv("ZAIN_CASH_MERCHANT_SECRET"),
		ZainCashRedirectURL:    os.Getenv("ZAIN_CASH_REDIRECT_URL"),

		QiCardTransactionURL:       os.Getenv("QICARD_PAY_TRANSACTION_URL"),
		QiCardTransactionStatusURL: os.Getenv("QICARD_TRANSACTION_STATUS_URL"),
		QiCardUsername:             os.Getenv("QICARD_USERNAME"),
		QiCardPassword:             os.Getenv("QICARD_PASSWORD"),
		QiCardTerminalID:           os.Getenv("QICARD_TERMINAL_ID"),
		QiCardRedirectURL:          os.Getenv("QICARD_REDIRECT_URL"),
		QiCardWebhookURL:           os.Getenv("QICARD_WEBHOOK_URL"),
		QiCardPublicKeyPath:        os.Getenv("QICARD_PUBLIC_KEY_PATH"),

		FastPayInitiationURL: os.Getenv("FASTPAY_PAYMENT_INITIATION_URL"),
		FastPayValidationURL: os.Getenv("FASTPAY_PAYMENT_VALIDATION_URL"),
		FastPayStoreID:       os.Getenv("FASTPAY_STORE_ID"),
		FastPayStorePassword: os.Getenv("FASTPAY_STORE_PASSWORD"),

		FIBAuthURL:          os.Getenv("FIB_AUTH_URL"),
		FIBCreatePaymentURL: os.Getenv("FIB_CREATE_PAYMENT_URL"),
		FIBPaymentStatusURL: os.Getenv("FIB_PAYMENT_STATUS_URL"),
		FIBClientID:         os.Getenv("FIB_CLIENT_ID"),
		FIBClientSecret:     os.Getenv("FIB_CLIENT_SECRET"),
		FIBRedirectURL:      os.Getenv("FIB_REDIRECT_URL"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     smtpPort,
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),
	}

	App = config
	return config, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
