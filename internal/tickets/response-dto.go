package tickets

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateTicketResponse carries no QR code; it is only readable once paid.
type CreateTicketResponse struct {
	TicketID uuid.UUID       `json:"ticket_id"`
	Status   Status          `json:"status"`
	Seats    []string        `json:"seats"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

type TicketResponse struct {
	ID                    uuid.UUID       `json:"id"`
	EventID               uuid.UUID       `json:"event_id"`
	Seats                 []string        `json:"seats"`
	Status                Status          `json:"status"`
	QRCode                string          `json:"qr_code,omitempty"`
	PaymentID             *string         `json:"payment_id,omitempty"`
	BuyerInfo             BuyerInfo       `json:"buyer_info"`
	Price                 decimal.Decimal `json:"price"`
	Currency              string          `json:"currency"`
	NeedsSeatReassignment bool            `json:"needs_seat_reassignment,omitempty"`
	FailureReason         string          `json:"failure_reason,omitempty"`
	PaidAt                *time.Time      `json:"paid_at,omitempty"`
	UsedAt                *time.Time      `json:"used_at,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
}

type AdmissionResponse struct {
	TicketID  uuid.UUID `json:"ticket_id"`
	EventID   uuid.UUID `json:"event_id"`
	BuyerInfo BuyerInfo `json:"buyer_info"`
	Seats     []string  `json:"seats"`
	UsedAt    time.Time `json:"used_at"`
}

// ToResponse hides the QR code until the ticket is paid or used
func (t *Ticket) ToResponse() TicketResponse {
	resp := TicketResponse{
		ID:                    t.ID,
		EventID:               t.EventID,
		Seats:                 t.SeatIDs(),
		Status:                t.Status,
		PaymentID:             t.PaymentID,
		BuyerInfo:             t.BuyerInfo.Data(),
		Price:                 t.Price,
		Currency:              t.Currency,
		NeedsSeatReassignment: t.NeedsSeatReassignment,
		FailureReason:         t.FailureReason,
		PaidAt:                t.PaidAt,
		UsedAt:                t.UsedAt,
		CreatedAt:             t.CreatedAt,
	}
	if t.Status == StatusPaid || t.Status == StatusUsed {
		resp.QRCode = t.QRCode
	}
	return resp
}
