package seats

import (
	"github.com/gin-gonic/gin"
)

func SetupSeatRoutes(rg *gin.RouterGroup, controller *Controller) {
	seats := rg.Group("/events/:id/seats")
	{
		seats.GET("", controller.GetAvailability)       // GET /api/v1/events/:id/seats
		seats.POST("/reserve", controller.ReserveSeats) // POST /api/v1/events/:id/seats/reserve
		seats.POST("/verify", controller.VerifyHold)    // POST /api/v1/events/:id/seats/verify
		seats.POST("/release", controller.ReleaseSeats) // POST /api/v1/events/:id/seats/release
	}
}
