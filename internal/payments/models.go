package payments

import "ticketing/internal/tickets"

const (
	OutcomePaid          = "paid"
	OutcomeFailed        = "failed"
	OutcomePending       = "pending"
	OutcomeIgnored       = "ignored"
	OutcomeInconsistency = "inconsistency"
	OutcomeError         = "error"
)

// WebhookResult describes what a delivery did. Every result returned without
// an error is acknowledged to the provider.
type WebhookResult struct {
	PaymentID      string `json:"payment_id,omitempty"`
	TicketID       string `json:"ticket_id,omitempty"`
	ProviderStatus string `json:"provider_status,omitempty"`
	TicketStatus   string `json:"ticket_status,omitempty"`
	Outcome        string `json:"outcome"`
}

// Closure is the result of failing or cancelling a ticket
type Closure struct {
	Ticket        *tickets.Ticket `json:"ticket"`
	Changed       bool            `json:"changed"`
	ReleasedSeats int64           `json:"released_seats"`
}
