package sweeper

import (
	"net/http"

	"ticketing/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// Sweep godoc
// @Summary Run the expiry sweep now
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.StandardApiResponse{data=Result}
// @Router /admin/sweep [post]
func (c *Controller) Sweep(ctx *gin.Context) {
	result, err := c.service.Sweep(ctx.Request.Context())
	if err != nil {
		response.RespondError(ctx, "Sweep failed", err)
		return
	}

	message := "Sweep completed"
	if result.Skipped {
		message = "Another sweep is in progress"
	}
	response.RespondJSON(ctx, "success", http.StatusOK, message, result, nil)
}
