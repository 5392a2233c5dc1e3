package payments

import (
	"context"
	"io"
	"net/http"

	"ticketing/internal/shared/utils/response"
	"ticketing/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const HeaderSignature = "X-Signature"

// webhook bodies above this size are rejected before hashing
const maxWebhookBody = 64 << 10

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// ConfirmPayment godoc
// @Summary Confirm a payment for a pending ticket
// @Description Looks the payment up at the provider and settles the ticket. Safe to repeat.
// @Tags payments
// @Accept json
// @Produce json
// @Param request body ConfirmPaymentRequest true "Confirmation"
// @Success 200 {object} response.StandardApiResponse{data=tickets.TicketResponse}
// @Success 202 {object} response.StandardApiResponse{errors=response.ErrorDetail}
// @Failure 402 {object} response.StandardApiResponse{errors=response.ErrorDetail}
// @Failure 409 {object} response.StandardApiResponse{errors=response.ErrorDetail}
// @Failure 502 {object} response.StandardApiResponse{errors=response.ErrorDetail}
// @Router /payments/confirm [post]
func (c *Controller) ConfirmPayment(ctx *gin.Context) {
	var req ConfirmPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	ticket, err := c.service.ConfirmPayment(ctx.Request.Context(), uuid.MustParse(req.TicketID), req.PaymentID)
	if err != nil {
		response.RespondError(ctx, "Payment could not be confirmed", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Payment confirmed", ticket.ToResponse(), nil)
}

// HandleWebhook godoc
// @Summary Payment provider notification
// @Description Any 2xx acknowledges the delivery; errors make the provider retry.
// @Tags payments
// @Accept json
// @Produce json
// @Param X-Signature header string false "HMAC-SHA256 of the body"
// @Success 200 {object} response.StandardApiResponse{data=WebhookResult}
// @Failure 401 {object} response.StandardApiResponse{errors=response.ErrorDetail}
// @Router /payments/webhook [post]
func (c *Controller) HandleWebhook(ctx *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBody+1))
	if err != nil || len(body) > maxWebhookBody {
		response.RespondJSON(ctx, "error", http.StatusRequestEntityTooLarge, "Webhook body too large", nil, nil)
		return
	}

	result, err := c.service.HandleWebhook(ctx.Request.Context(), body, ctx.GetHeader(HeaderSignature))
	if err != nil {
		logger.GetDefault().LogWebhookRejected(ctx.Request.Context(), err.Error(), ctx.ClientIP())
		response.RespondError(ctx, "Webhook not processed", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Webhook processed", result, nil)
}

// CreateCheckout godoc
// @Summary Start a hosted checkout for a pending ticket
// @Tags payments
// @Produce json
// @Param id path string true "Ticket ID"
// @Success 200 {object} response.StandardApiResponse{data=CheckoutResponse}
// @Failure 409 {object} response.StandardApiResponse{errors=response.ErrorDetail}
// @Router /tickets/{id}/checkout [post]
func (c *Controller) CreateCheckout(ctx *gin.Context) {
	id, ok := ticketIDParam(ctx)
	if !ok {
		return
	}

	session, err := c.service.CreateCheckout(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, "Failed to create checkout", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Checkout created", CheckoutResponse{
		TicketID:     id.String(),
		PreferenceID: session.ID,
		CheckoutURL:  session.CheckoutURL,
	}, nil)
}

// ReleaseTicket godoc
// @Summary Fail a pending ticket and release its seats
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ticket ID"
// @Param request body CloseTicketRequest false "Reason"
// @Success 200 {object} response.StandardApiResponse{data=CloseTicketResponse}
// @Router /admin/tickets/{id}/release [post]
func (c *Controller) ReleaseTicket(ctx *gin.Context) {
	c.closeTicket(ctx, c.service.ReleaseOnFailure, "released by operator")
}

// CancelTicket godoc
// @Summary Cancel a pending ticket and release its seats
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ticket ID"
// @Param request body CloseTicketRequest false "Reason"
// @Success 200 {object} response.StandardApiResponse{data=CloseTicketResponse}
// @Router /admin/tickets/{id}/cancel [post]
func (c *Controller) CancelTicket(ctx *gin.Context) {
	c.closeTicket(ctx, c.service.Cancel, "cancelled by operator")
}

type closeFunc func(ctx context.Context, ticketID uuid.UUID, reason string) (*Closure, error)

func (c *Controller) closeTicket(ctx *gin.Context, fn closeFunc, defaultReason string) {
	id, ok := ticketIDParam(ctx)
	if !ok {
		return
	}

	var req CloseTicketRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
			return
		}
	}
	if req.Reason == "" {
		req.Reason = defaultReason
	}

	closure, err := fn(ctx.Request.Context(), id, req.Reason)
	if err != nil {
		response.RespondError(ctx, "Failed to close ticket", err)
		return
	}

	message := "Ticket closed"
	if !closure.Changed {
		message = "Ticket was not pending; nothing changed"
	}
	response.RespondJSON(ctx, "success", http.StatusOK, message, closure.ToResponse(), nil)
}

func ticketIDParam(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid ticket ID", nil, "ticket id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
