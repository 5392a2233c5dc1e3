package tickets

import (
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupTicketRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	tickets := rg.Group("/tickets")
	{
		tickets.POST("", controller.CreateTicket) // POST /api/v1/tickets
	}

	// READ: buyer session or event staff
	reading := rg.Group("/tickets")
	reading.Use(middleware.OptionalAuth(cfg))
	{
		reading.GET("/:id", controller.GetTicket) // GET /api/v1/tickets/:id
	}

	// DOOR SCANNING
	scanning := rg.Group("/tickets")
	scanning.Use(middleware.JWTAuth(cfg), middleware.RequireRoles(middleware.RoleStaff, middleware.RoleOrganizer, middleware.RoleAdmin))
	{
		scanning.POST("/validate", controller.ValidateTicket) // POST /api/v1/tickets/validate
	}
}
