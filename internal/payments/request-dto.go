package payments

type ConfirmPaymentRequest struct {
	TicketID  string `json:"ticket_id" binding:"required,uuid"`
	PaymentID string `json:"payment_id" binding:"required,min=1,max=100"`
}

type CloseTicketRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=255"`
}
