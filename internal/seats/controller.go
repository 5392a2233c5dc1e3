package seats

import (
	"net/http"
	"time"

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

// GetAvailability godoc
// @Summary Seat map for an event
// @Tags seats
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.StandardApiResponse{data=Availability}
// @Router /events/{id}/seats [get]
func (c *Controller) GetAvailability(ctx *gin.Context) {
	eventID, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	availability, err := c.service.GetAvailability(ctx.Request.Context(), eventID)
	if err != nil {
		response.RespondError(ctx, "Failed to get seat availability", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat availability retrieved successfully", availability, nil)
}

// ReserveSeats godoc
// @Summary Hold seats for a checkout session
// @Tags seats
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param request body ReserveSeatsRequest true "Seats to hold"
// @Success 200 {object} response.StandardApiResponse{data=ReserveResponse}
// @Failure 409 {object} response.StandardApiResponse{errors=response.ErrorDetail}
// @Router /events/{id}/seats/reserve [post]
func (c *Controller) ReserveSeats(ctx *gin.Context) {
	eventID, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	var req ReserveSeatsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	sessionID := middleware.SessionID(ctx, req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	reservation, err := c.service.ReserveSeats(ctx.Request.Context(), ReserveInput{
		EventID:      eventID,
		SeatIDs:      req.SeatIDs,
		SessionID:    sessionID,
		HoldDuration: time.Duration(req.HoldDurationSecs) * time.Second,
	})
	if err != nil {
		response.RespondError(ctx, "Failed to reserve seats", err)
		return
	}

	ctx.Header(middleware.HeaderSessionID, reservation.SessionID)
	response.RespondJSON(ctx, "success", http.StatusOK, "Seats reserved successfully", ReserveResponse{
		Success:        true,
		ReservedSeats:  reservation.SeatIDs(),
		TotalPrice:     reservation.TotalPrice,
		ExpiresAt:      reservation.ExpiresAt,
		SessionID:      reservation.SessionID,
		HoldTTLSeconds: int64(time.Until(reservation.ExpiresAt).Round(time.Second) / time.Second),
	}, nil)
}

// VerifyHold godoc
// @Summary Check that seats are still free or held by the session
// @Tags seats
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param request body SeatSetRequest true "Seats to verify"
// @Success 200 {object} response.StandardApiResponse{data=HoldVerification}
// @Router /events/{id}/seats/verify [post]
func (c *Controller) VerifyHold(ctx *gin.Context) {
	eventID, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	var req SeatSetRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	result, err := c.service.VerifyHold(ctx.Request.Context(), eventID, req.SeatIDs, middleware.SessionID(ctx, req.SessionID))
	if err != nil {
		response.RespondError(ctx, "Failed to verify seat hold", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat hold verified", result, nil)
}

// ReleaseSeats godoc
// @Summary Give back seats held by the session
// @Tags seats
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param request body SeatSetRequest true "Seats to release"
// @Success 200 {object} response.StandardApiResponse{data=ReleaseResponse}
// @Router /events/{id}/seats/release [post]
func (c *Controller) ReleaseSeats(ctx *gin.Context) {
	eventID, ok := eventIDParam(ctx)
	if !ok {
		return
	}

	var req SeatSetRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	n, err := c.service.ReleaseSeats(ctx.Request.Context(), eventID, req.SeatIDs, middleware.SessionID(ctx, req.SessionID))
	if err != nil {
		response.RespondError(ctx, "Failed to release seats", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seats released", ReleaseResponse{Released: n}, nil)
}

func eventIDParam(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid event ID", nil, "event id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
