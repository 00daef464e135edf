package controllers

import (
	"fmt"
	"strings"
	"testing"

	"github.com/hayder-jabbar/softstore/config"
	"github.com/hayder-jabbar/softstore/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a fresh in-memory database with the full schema and
// points the package-level connection at it.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.MigrateModels(db))

	config.DB = db
	if config.App == nil {
		config.App = &config.Config{JWTSecret: "test-secret"}
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string, balance int64) *models.User {
	t.Helper()
	user := models.User{
		Username:      username,
		Email:         username + "@example.com",
		Password:      "x",
		WalletBalance: balance,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createWholesaleUser(t *testing.T, db *gorm.DB, username string, balance, negativeLimit int64) *models.User {
	t.Helper()
	tier := models.WholesaleUserType{Title: "Tier " + username, NegativeLimit: negativeLimit}
	require.NoError(t, db.Create(&tier).Error)
	user := models.User{
		Username:        username,
		Email:           username + "@example.com",
		Password:        "x",
		WalletBalance:   balance,
		WholesaleTypeID: &tier.ID,
	}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Preload("WholesaleType").First(&user, user.ID).Error)
	return &user
}

func createKeyProduct(t *testing.T, db *gorm.DB, name string, price int64, keyCount int) *models.Product {
	t.Helper()
	product := models.Product{
		Name:         name,
		Price:        price,
		Status:       models.ProductStatusActive,
		Available:    true,
		IsKeyProduct: true,
	}
	require.NoError(t, db.Create(&product).Error)
	for i := 0; i < keyCount; i++ {
		key := models.ProductKey{
			ProductID: product.ID,
			Key:       fmt.Sprintf("%s-KEY-%04d", strings.ToUpper(name), i+1),
		}
		require.NoError(t, db.Create(&key).Error)
	}
	return &product
}

func createStockProduct(t *testing.T, db *gorm.DB, name string, price int64, qty int) *models.Product {
	t.Helper()
	product := models.Product{
		Name:      name,
		Price:     price,
		Status:    models.ProductStatusActive,
		Available: true,
		Qty:       qty,
	}
	require.NoError(t, db.Create(&product).Error)
	return &product
}

// createBundleProduct builds a bundle drawing keys from the given offer
// products.
func createBundleProduct(t *testing.T, db *gorm.DB, name string, price int64, offers ...*models.Product) *models.Product {
	t.Helper()
	product := models.Product{
		Name:      name,
		Price:     price,
		Status:    models.ProductStatusActive,
		Available: true,
	}
	require.NoError(t, db.Create(&product).Error)
	require.NoError(t, db.Model(&product).Association("OfferProducts").Append(offers))
	require.NoError(t, db.Preload("OfferProducts").First(&product, product.ID).Error)
	return &product
}

func placeTestOrder(t *testing.T, user *models.User, req *PlaceOrderRequest) *models.Order {
	t.Helper()
	order, err := createOrder(user, user, req)
	require.NoError(t, err)
	return order
}

func unusedKeyCount(t *testing.T, db *gorm.DB, productID uint) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.ProductKey{}).
		Where("product_id = ? AND is_used = ?", productID, false).
		Count(&count).Error)
	return count
}

func reloadUser(t *testing.T, db *gorm.DB, id uint) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, db.Preload("WholesaleType").First(&user, id).Error)
	return &user
}

func reloadOrder(t *testing.T, db *gorm.DB, id uint) *models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, db.Preload("OrderLines.OrderLineKeys.Key").First(&order, id).Error)
	return &order
}
