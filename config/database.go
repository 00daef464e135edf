package config

import (
	"fmt"

	"github.com/hayder-jabbar/softstore/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB initializes the database connection and migrates the schema.
func InitDB() {
	config, err := LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		config.DBHost, config.DBPort, config.DBUser, config.DBPassword, config.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to database: %v", err))
	}

	DB = db

	if err := MigrateModels(DB); err != nil {
		panic(fmt.Sprintf("Failed to migrate database: %v", err))
	}
}

// MigrateModels runs the schema migration for every model. Split out so the
// test suites can migrate an in-memory database with the same schema.
func MigrateModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.WholesaleUserType{},
		&models.Sequence{},
		&models.Product{},
		&models.ProductWholesalePricing{},
		&models.ProductKey{},
		&models.Order{},
		&models.OrderLine{},
		&models.OrderLineKey{},
		&models.Transaction{},
		&models.Notification{},
		&models.SupportTicket{},
	)
}
