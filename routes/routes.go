package routes

import (
	"github.com/hayder-jabbar/softstore/controllers"
	"github.com/hayder-jabbar/softstore/middleware"
	"github.com/hayder-jabbar/softstore/utils"
	"github.com/gin-gonic/gin"
)

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter() *gin.Engine {
	router := gin.Default()

	router.Use(utils.LoggerMiddleware())
	router.Use(utils.CORSMiddleware())
	router.Use(utils.RecoveryMiddleware())
	router.Use(utils.RequestIDMiddleware())
	router.Use(utils.SecurityHeadersMiddleware())

	api := router.Group("/v1")
	{
		api.POST("/login", controllers.Login)
		api.POST("/support-tickets", controllers.CreateSupportTicket)

		// Gateway round trips carry their own proof, no session involved.
		callbacks := api.Group("/orders")
		{
			callbacks.GET("/zain-cash-redirect", controllers.ZainCashRedirect)
			callbacks.GET("/qi-card-redirect", controllers.QiCardRedirect)
			callbacks.POST("/qi-card-webhook", controllers.QiCardWebhook)
			callbacks.GET("/fast-pay-redirect", controllers.FastPayRedirect)
			callbacks.POST("/fib-callback", controllers.FIBCallback)
		}

		initUserRoutes(api)
		initAdminRoutes(api)
	}

	return router
}

// initUserRoutes wires the authenticated customer surface.
func initUserRoutes(api *gin.RouterGroup) {
	user := api.Group("")
	user.Use(middleware.AuthMiddleware())
	{
		user.POST("/orders", controllers.PlaceOrder)
		user.GET("/orders", controllers.ListOrders)
		user.GET("/orders/:id", controllers.GetOrder)
		user.POST("/orders/:id/first-view", controllers.FirstViewOrder)
		user.GET("/orders/:id/invoice", controllers.DownloadInvoice)

		user.GET("/wallet", controllers.GetWalletBalance)
		user.GET("/wallet/transactions", controllers.ListWalletTransactions)

		user.GET("/notifications", controllers.ListNotifications)
		user.PATCH("/notifications/:id/hide", controllers.HideNotification)
	}
}

// initAdminRoutes wires the staff surface.
func initAdminRoutes(api *gin.RouterGroup) {
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		admin.POST("/orders", controllers.CreateOrderForUser)
		admin.DELETE("/orders", controllers.BulkDeleteOrders)
		admin.PATCH("/orders/:id/approve", controllers.ApproveOrder)
		admin.PATCH("/orders/:id/reject", controllers.RejectOrder)
		admin.PATCH("/orders/:id/return", controllers.ReturnOrder)
		admin.PATCH("/orders/:id/mark-paid", controllers.MarkOrderPaid)

		admin.POST("/wallet/deposit", controllers.WalletDeposit)
		admin.GET("/wallet/transactions/export", controllers.ExportWalletTransactions)

		admin.GET("/support-tickets", controllers.ListSupportTickets)
	}
}
