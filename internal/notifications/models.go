package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTicketCreated          EventType = "ticket.created"
	EventTicketPaid             EventType = "ticket.paid"
	EventTicketFailed           EventType = "ticket.failed"
	EventTicketCancelled        EventType = "ticket.cancelled"
	EventTicketUsed             EventType = "ticket.used"
	EventInventoryInconsistency EventType = "inventory.inconsistency"
	EventEventPublished         EventType = "event.published"
)

// TicketEvent is the message downstream consumers (email, reporting, the
// operator console) receive after a state change has been committed.
type TicketEvent struct {
	ID         uuid.UUID         `json:"id"`
	Type       EventType         `json:"type"`
	TicketID   string            `json:"ticket_id,omitempty"`
	EventID    string            `json:"event_id"`
	Status     string            `json:"status,omitempty"`
	Seats      []string          `json:"seats,omitempty"`
	PaymentID  string            `json:"payment_id,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func NewTicketEvent(t EventType, eventID, ticketID string) *TicketEvent {
	return &TicketEvent{
		ID:         uuid.New(),
		Type:       t,
		EventID:    eventID,
		TicketID:   ticketID,
		OccurredAt: time.Now().UTC(),
	}
}

func (e *TicketEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// GetPartitionKey keeps every message of one ticket on one partition so
// consumers observe its transitions in order.
func (e *TicketEvent) GetPartitionKey() string {
	if e.TicketID != "" {
		return e.TicketID
	}
	return e.EventID
}
