package events

import (
	"net/http"

	"ticketing/internal/shared/middleware"
	"ticketing/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CreateEvent godoc
// @Summary Create an event with its seating chart
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateEventRequest true "Event"
// @Success 201 {object} response.StandardApiResponse{data=Event}
// @Failure 400 {object} response.StandardApiResponse
// @Router /events [post]
func (c *Controller) CreateEvent(ctx *gin.Context) {
	var req CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	organizerID, ok := middleware.UserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	event, err := c.service.CreateEvent(ctx.Request.Context(), organizerID, CreateEventInput{
		Name:       req.Name,
		Venue:      req.Venue,
		StartsAt:   req.StartsAt,
		CreditCost: req.CreditCost,
		Currency:   req.Currency,
		Sections:   req.Sections,
	})
	if err != nil {
		response.RespondError(ctx, "Failed to create event", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Event created successfully", event, nil)
}

// GetEvent godoc
// @Summary Get an event
// @Tags events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.StandardApiResponse{data=Event}
// @Failure 404 {object} response.StandardApiResponse
// @Router /events/{id} [get]
func (c *Controller) GetEvent(ctx *gin.Context) {
	id, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	event, err := c.service.GetEvent(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, "Failed to get event", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Event retrieved successfully", event, nil)
}

// GetInventory godoc
// @Summary Seat counts per status
// @Tags events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.StandardApiResponse{data=Inventory}
// @Router /events/{id}/inventory [get]
func (c *Controller) GetInventory(ctx *gin.Context) {
	id, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	inv, err := c.service.GetInventory(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, "Failed to get inventory", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Inventory retrieved successfully", inv, nil)
}

func eventIDParam(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid event ID", nil, "event id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
