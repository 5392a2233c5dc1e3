package payments

import "ticketing/internal/tickets"

type CheckoutResponse struct {
	TicketID     string `json:"ticket_id"`
	PreferenceID string `json:"preference_id"`
	CheckoutURL  string `json:"checkout_url"`
}

type CloseTicketResponse struct {
	Ticket        tickets.TicketResponse `json:"ticket"`
	Changed       bool                   `json:"changed"`
	ReleasedSeats int64                  `json:"released_seats"`
}

func (c *Closure) ToResponse() CloseTicketResponse {
	return CloseTicketResponse{
		Ticket:        c.Ticket.ToResponse(),
		Changed:       c.Changed,
		ReleasedSeats: c.ReleasedSeats,
	}
}
