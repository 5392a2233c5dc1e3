package events

import (
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupEventRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	// Public routes - anyone can browse an event and its inventory
	public := rg.Group("/events")
	{
		public.GET("/:id", controller.GetEvent)               // GET /api/v1/events/:id
		public.GET("/:id/inventory", controller.GetInventory) // GET /api/v1/events/:id/inventory
	}

	// Organizer routes
	organizer := rg.Group("/events")
	organizer.Use(middleware.JWTAuth(cfg), middleware.RequireRoles(middleware.RoleOrganizer, middleware.RoleAdmin))
	{
		organizer.POST("", controller.CreateEvent) // POST /api/v1/events
	}
}
