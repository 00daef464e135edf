package main

import (
	"context"
	"log"

	"github.com/hayder-jabbar/softstore/config"
	"github.com/hayder-jabbar/softstore/controllers"
	"github.com/hayder-jabbar/softstore/routes"
	"github.com/hayder-jabbar/softstore/utils"
	"github.com/hayder-jabbar/softstore/workers"
)

func main() {
	// Initialize logger
	if err := utils.InitLogger(); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	// Load environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("Error loading config: %v", err)
		log.Fatal("Error loading config:", err)
	}

	// Initialize database
	config.InitDB()

	// Create sample admin
	if err := controllers.CreateSampleAdmin(config.DB); err != nil {
		utils.LogError("Failed to create sample admin: %v", err)
		log.Fatal("Failed to create sample admin:", err)
	}

	// Start the payment expiry sweeper
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go workers.NewOrderExpirySweeper(config.DB).Run(ctx)

	// Set up router
	router := routes.SetupRouter()

	utils.LogInfo("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		utils.LogError("Error starting server: %v", err)
		log.Fatal("Error starting server:", err)
	}
}
