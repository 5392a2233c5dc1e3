package tickets

import "github.com/shopspring/decimal"

type CreateTicketRequest struct {
	EventID   string         `json:"event_id" binding:"required,uuid"`
	SeatIDs   []string       `json:"seat_ids" binding:"required,min=1,dive,seatid"`
	SessionID string         `json:"session_id" binding:"omitempty,sessionid"`
	BuyerInfo BuyerInfoInput `json:"buyer_info" binding:"required"`

	// ExpectedPrice is the total the buyer was shown; a mismatch is rejected
	ExpectedPrice decimal.Decimal `json:"expected_price"`
}

type BuyerInfoInput struct {
	Name  string `json:"name" binding:"required,max=200"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone" binding:"omitempty,max=30"`
}

type ValidateTicketRequest struct {
	TicketID string `json:"ticket_id" binding:"required_without=QRCode"`
	QRCode   string `json:"qr_code" binding:"required_without=TicketID"`
}

func (r ValidateTicketRequest) Ref() string {
	if r.QRCode != "" {
		return r.QRCode
	}
	return r.TicketID
}
