package tickets

import (
	"crypto/subtle"
	"net/http"
	"time"

	"ticketing/internal/shared/apperrors"
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

// CreateTicket godoc
// @Summary Create a pending ticket from a seat hold
// @Tags tickets
// @Accept json
// @Produce json
// @Param request body CreateTicketRequest true "Ticket"
// @Success 201 {object} response.StandardApiResponse{data=CreateTicketResponse}
// @Failure 409 {object} response.StandardApiResponse{errors=response.ErrorDetail}
// @Failure 410 {object} response.StandardApiResponse{errors=response.ErrorDetail}
// @Router /tickets [post]
func (c *Controller) CreateTicket(ctx *gin.Context) {
	var req CreateTicketRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	ticket, err := c.service.CreateTicket(ctx.Request.Context(), CreateTicketInput{
		EventID:       uuid.MustParse(req.EventID),
		SeatIDs:       req.SeatIDs,
		SessionID:     middleware.SessionID(ctx, req.SessionID),
		BuyerInfo:     BuyerInfo{Name: req.BuyerInfo.Name, Email: req.BuyerInfo.Email, Phone: req.BuyerInfo.Phone},
		ExpectedPrice: req.ExpectedPrice,
	})
	if err != nil {
		response.RespondError(ctx, "Failed to create ticket", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Ticket created successfully", CreateTicketResponse{
		TicketID: ticket.ID,
		Status:   ticket.Status,
		Seats:    ticket.SeatIDs(),
		Price:    ticket.Price,
		Currency: ticket.Currency,
	}, nil)
}

// GetTicket godoc
// @Summary Get a ticket
// @Tags tickets
// @Produce json
// @Param id path string true "Ticket ID"
// @Param X-Session-ID header string false "Session that created the ticket"
// @Param session_id query string false "Session that created the ticket"
// @Security BearerAuth
// @Success 200 {object} response.StandardApiResponse{data=TicketResponse}
// @Failure 404 {object} response.StandardApiResponse{errors=response.ErrorDetail}
// @Router /tickets/{id} [get]
func (c *Controller) GetTicket(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid ticket ID", nil, "ticket id must be a UUID")
		return
	}

	ticket, err := c.service.GetTicket(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, "Failed to get ticket", err)
		return
	}
	// strangers get the same answer as for a missing ticket
	if !canView(ctx, ticket) {
		response.RespondError(ctx, "Failed to get ticket", apperrors.ErrTicketNotFound)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Ticket retrieved successfully", ticket.ToResponse(), nil)
}

// canView admits the session that created the ticket and event staff.
func canView(ctx *gin.Context, ticket *Ticket) bool {
	switch middleware.UserRole(ctx) {
	case middleware.RoleStaff, middleware.RoleOrganizer, middleware.RoleAdmin:
		return true
	}
	session := middleware.SessionID(ctx, ctx.Query("session_id"))
	return session != "" && subtle.ConstantTimeCompare([]byte(session), []byte(ticket.SessionID)) == 1
}

// ValidateTicket godoc
// @Summary Admit a paid ticket at the door
// @Tags tickets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ValidateTicketRequest true "Ticket id or QR code"
// @Success 200 {object} response.StandardApiResponse{data=AdmissionResponse}
// @Failure 409 {object} response.StandardApiResponse{errors=response.ErrorDetail}
// @Router /tickets/validate [post]
func (c *Controller) ValidateTicket(ctx *gin.Context) {
	var req ValidateTicketRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	ticket, err := c.service.ValidateAndUse(ctx.Request.Context(), req.Ref())
	if err != nil {
		response.RespondError(ctx, "Ticket rejected", err)
		return
	}

	usedAt := time.Now().UTC()
	if ticket.UsedAt != nil {
		usedAt = *ticket.UsedAt
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Ticket admitted", AdmissionResponse{
		TicketID:  ticket.ID,
		EventID:   ticket.EventID,
		BuyerInfo: ticket.BuyerInfo.Data(),
		Seats:     ticket.SeatIDs(),
		UsedAt:    usedAt,
	}, nil)
}
