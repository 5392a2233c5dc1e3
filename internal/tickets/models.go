package tickets

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type BuyerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Ticket is a purchase intent bound to an ordered set of seats
type Ticket struct {
	ID                    uuid.UUID                     `gorm:"type:uuid;primaryKey" json:"id"`
	EventID               uuid.UUID                     `gorm:"type:uuid;not null;index" json:"event_id"`
	SessionID             string                        `gorm:"type:varchar(128);not null;index" json:"-"`
	Seats                 datatypes.JSONSlice[string]   `gorm:"type:jsonb;not null" json:"seats"`
	Status                Status                        `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_ticket_status_created,priority:1" json:"status"`
	QRCode                string                        `gorm:"type:varchar(64);not null;uniqueIndex" json:"qr_code"`
	PaymentID             *string                       `gorm:"type:varchar(100);index" json:"payment_id,omitempty"`
	LatePaymentID         *string                       `gorm:"type:varchar(100)" json:"late_payment_id,omitempty"`
	BuyerInfo             datatypes.JSONType[BuyerInfo] `gorm:"type:jsonb" json:"buyer_info"`
	Price                 decimal.Decimal               `gorm:"type:decimal(12,2);not null" json:"price"`
	Currency              string                        `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	NeedsSeatReassignment bool                          `gorm:"not null;default:false;index" json:"needs_seat_reassignment"`
	FailureReason         string                        `gorm:"type:varchar(255)" json:"failure_reason,omitempty"`
	PaidAt                *time.Time                    `json:"paid_at,omitempty"`
	UsedAt                *time.Time                    `json:"used_at,omitempty"`
	ClosedAt              *time.Time                    `json:"closed_at,omitempty"`
	CreatedAt             time.Time                     `gorm:"index:idx_ticket_status_created,priority:2" json:"created_at"`
	UpdatedAt             time.Time                     `json:"updated_at"`
}

func (Ticket) TableName() string {
	return "tickets"
}

// SeatIDs returns the bound seat labels as a plain slice
func (t *Ticket) SeatIDs() []string {
	return append([]string(nil), t.Seats...)
}

// Patch lists the columns written together with a status transition.
// Nil fields are left untouched.
type Patch struct {
	PaymentID             *string
	LatePaymentID         *string
	FailureReason         *string
	NeedsSeatReassignment *bool
	PaidAt                *time.Time
	UsedAt                *time.Time
	ClosedAt              *time.Time
}

// Columns returns the patch as a column map for conditional updates
func (p Patch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.PaymentID != nil {
		cols["payment_id"] = *p.PaymentID
	}
	if p.LatePaymentID != nil {
		cols["late_payment_id"] = *p.LatePaymentID
	}
	if p.FailureReason != nil {
		cols["failure_reason"] = *p.FailureReason
	}
	if p.NeedsSeatReassignment != nil {
		cols["needs_seat_reassignment"] = *p.NeedsSeatReassignment
	}
	if p.PaidAt != nil {
		cols["paid_at"] = *p.PaidAt
	}
	if p.UsedAt != nil {
		cols["used_at"] = *p.UsedAt
	}
	if p.ClosedAt != nil {
		cols["closed_at"] = *p.ClosedAt
	}
	return cols
}

// ApplyTo copies the patch onto an in-memory ticket
func (p Patch) ApplyTo(t *Ticket) {
	if p.PaymentID != nil {
		v := *p.PaymentID
		t.PaymentID = &v
	}
	if p.LatePaymentID != nil {
		v := *p.LatePaymentID
		t.LatePaymentID = &v
	}
	if p.FailureReason != nil {
		t.FailureReason = *p.FailureReason
	}
	if p.NeedsSeatReassignment != nil {
		t.NeedsSeatReassignment = *p.NeedsSeatReassignment
	}
	if p.PaidAt != nil {
		v := *p.PaidAt
		t.PaidAt = &v
	}
	if p.UsedAt != nil {
		v := *p.UsedAt
		t.UsedAt = &v
	}
	if p.ClosedAt != nil {
		v := *p.ClosedAt
		t.ClosedAt = &v
	}
}

type CreateTicketInput struct {
	EventID   uuid.UUID
	SeatIDs   []string
	SessionID string
	BuyerInfo BuyerInfo
	// ExpectedPrice, when set, must equal the sum of the seat prices. The
	// ticket is always charged at the stored seat prices.
	ExpectedPrice decimal.Decimal
}
