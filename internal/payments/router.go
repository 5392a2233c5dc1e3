package payments

import (
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupPaymentRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	payments := rg.Group("/payments")
	{
		payments.POST("/confirm", controller.ConfirmPayment) // POST /api/v1/payments/confirm
		payments.POST("/webhook", controller.HandleWebhook)  // POST /api/v1/payments/webhook
	}

	rg.POST("/tickets/:id/checkout", controller.CreateCheckout) // POST /api/v1/tickets/:id/checkout

	// ADMIN
	admin := rg.Group("/admin/tickets")
	admin.Use(middleware.JWTAuth(cfg), middleware.RequireAdmin())
	{
		admin.POST("/:id/release", controller.ReleaseTicket) // POST /api/v1/admin/tickets/:id/release
		admin.POST("/:id/cancel", controller.CancelTicket)   // POST /api/v1/admin/tickets/:id/cancel
	}
}
