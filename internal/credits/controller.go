package credits

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

// PublishEvent godoc
// @Summary Publish an event, paying with credits
// @Description Deducts credits and publishes in one transaction. Publishing twice charges once.
// @Tags credits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param request body PublishEventRequest false "Credit override"
// @Success 200 {object} response.StandardApiResponse{data=PublishResult}
// @Failure 402 {object} response.StandardApiResponse{errors=response.ErrorDetail}
// @Failure 403 {object} response.StandardApiResponse{errors=response.ErrorDetail}
// @Router /events/{id}/publish [post]
func (c *Controller) PublishEvent(ctx *gin.Context) {
	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid event ID", nil, "event id must be a UUID")
		return
	}
	userID, ok := middleware.UserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req PublishEventRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
			return
		}
	}

	result, err := c.service.DeductCreditsAndPublish(ctx.Request.Context(), eventID, userID, req.Credits)
	if err != nil {
		response.RespondError(ctx, "Failed to publish event", err)
		return
	}

	message := "Event published successfully"
	if result.AlreadyPublished {
		message = "Event was already published"
	}
	response.RespondJSON(ctx, "success", http.StatusOK, message, result, nil)
}

// GetBalance godoc
// @Summary Current credit balance
// @Tags credits
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.StandardApiResponse{data=BalanceResponse}
// @Router /credits/balance [get]
func (c *Controller) GetBalance(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	balance, err := c.service.GetBalance(ctx.Request.Context(), userID)
	if err != nil {
		response.RespondError(ctx, "Failed to get balance", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Balance retrieved successfully", BalanceResponse{UserID: userID, Balance: balance}, nil)
}

// ListTransactions godoc
// @Summary Credit transaction history
// @Tags credits
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.StandardApiResponse{data=TransactionListResponse}
// @Router /credits/transactions [get]
func (c *Controller) ListTransactions(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var q ListTransactionsQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = 20
	}

	txs, total, err := c.service.ListTransactions(ctx.Request.Context(), userID, q.Page, q.Limit)
	if err != nil {
		response.RespondError(ctx, "Failed to list transactions", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Transactions retrieved successfully", TransactionListResponse{
		Transactions: txs,
		Total:        total,
		Page:         q.Page,
		Limit:        q.Limit,
	}, nil)
}

// GrantCredits godoc
// @Summary Grant credits to a user
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body GrantCreditsRequest true "Grant"
// @Success 201 {object} response.StandardApiResponse{data=Transaction}
// @Router /admin/credits/grant [post]
func (c *Controller) GrantCredits(ctx *gin.Context) {
	var req GrantCreditsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	tx, err := c.service.AddCredits(ctx.Request.Context(), GrantInput{
		UserID:         uuid.MustParse(req.UserID),
		Amount:         req.Amount,
		Type:           TransactionType(req.Type),
		IdempotencyKey: req.IdempotencyKey,
		Note:           req.Note,
	})
	if err != nil {
		response.RespondError(ctx, "Failed to grant credits", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Credits granted", tx, nil)
}
