package credits

import (
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupCreditRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	auth := middleware.JWTAuth(cfg)

	organizer := rg.Group("")
	organizer.Use(auth, middleware.RequireRoles(middleware.RoleOrganizer, middleware.RoleAdmin))
	{
		organizer.POST("/events/:id/publish", controller.PublishEvent)      // POST /api/v1/events/:id/publish
		organizer.GET("/credits/balance", controller.GetBalance)            // GET /api/v1/credits/balance
		organizer.GET("/credits/transactions", controller.ListTransactions) // GET /api/v1/credits/transactions
	}

	admin := rg.Group("/admin/credits")
	admin.Use(auth, middleware.RequireAdmin())
	{
		admin.POST("/grant", controller.GrantCredits) // POST /api/v1/admin/credits/grant
	}
}
