package credits

type PublishEventRequest struct {
	// Credits raises the charge above the event's configured cost
	Credits int64 `json:"credits" binding:"omitempty,min=1,max=100000"`
}

type GrantCreditsRequest struct {
	UserID         string `json:"user_id" binding:"required,uuid"`
	Amount         int64  `json:"amount" binding:"required,min=1,max=1000000"`
	Type           string `json:"type" binding:"omitempty,oneof=PURCHASE REFUND ADJUSTMENT"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,min=4,max=150"`
	Note           string `json:"note" binding:"omitempty,max=255"`
}

type ListTransactionsQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}
