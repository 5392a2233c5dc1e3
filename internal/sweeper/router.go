package sweeper

import (
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupSweeperRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	admin := rg.Group("/admin")
	admin.Use(middleware.JWTAuth(cfg), middleware.RequireAdmin())
	{
		admin.POST("/sweep", controller.Sweep) // POST /api/v1/admin/sweep
	}
}
