package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant_portal/internal/models"
	"restaurant_portal/internal/services"
	"restaurant_portal/pkg/logger"
)

// SetupRoutes registers the portal API on router.
func SetupRoutes(router *gin.Engine, api *APIHandler, chatHandler *ChatHandler, auth services.AuthService, log *logger.Logger) {
	router.Use(RequestID(), CORS())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/api/auth/login", api.Login)

	authed := router.Group("/api", RequireSession(auth, api.chatService, log))
	{
		authed.POST("/auth/logout", api.Logout)
		authed.GET("/auth/me", api.Me)

		restaurants := authed.Group("/restaurants", AdvisoryRole(log, models.RoleRestaurantOwner, models.RoleAdmin))
		restaurants.GET("", api.ListRestaurants)
		restaurants.GET("/:id", api.GetRestaurant)
		restaurants.GET("/:id/analytics", api.GetAnalytics)
		restaurants.GET("/:id/dashboard", api.GetDashboard)
		restaurants.PATCH("/:id/operating-status", api.UpdateOperatingStatus)
		restaurants.GET("/:id/orders", api.ListOrders)

		orders := authed.Group("/orders", AdvisoryRole(log, models.RoleRestaurantOwner, models.RoleAdmin))
		orders.GET("/:id", api.GetOrder)
		orders.GET("/:id/invoice", api.GetInvoice)
		orders.POST("/:id/advance", api.AdvanceOrder)
		orders.POST("/:id/cancel", api.CancelOrder)

		chatRoutes := authed.Group("/chat")
		chatRoutes.POST("/start", chatHandler.StartChat)
		chatRoutes.GET("", chatHandler.GetChat)
		chatRoutes.POST("/messages", chatHandler.SendMessage)
		chatRoutes.POST("/typing", chatHandler.Typing)
		chatRoutes.POST("/upload", chatHandler.Upload)
		chatRoutes.DELETE("", chatHandler.EndChat)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
	})
}
