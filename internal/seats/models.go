package seats

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SeatStatus string

const (
	StatusAvailable SeatStatus = "AVAILABLE"
	StatusReserved  SeatStatus = "RESERVED"
	StatusOccupied  SeatStatus = "OCCUPIED"
)

func (s SeatStatus) IsValid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusOccupied:
		return true
	}
	return false
}

func (s SeatStatus) String() string {
	return string(s)
}

// Seat is one cell of an event's seating chart. HoldSessionID and
// HoldExpiresAt together form the temporary reservation; they are only set
// while the seat is RESERVED. TicketID is set tentatively while RESERVED and
// durably once OCCUPIED.
type Seat struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	EventID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_event_seat" json:"event_id"`
	SeatID        string          `gorm:"type:varchar(16);not null;uniqueIndex:idx_event_seat" json:"seat_id"`
	Section       string          `gorm:"type:varchar(100);not null" json:"section"`
	Row           string          `gorm:"type:varchar(8);not null" json:"row"`
	Number        int             `gorm:"not null" json:"number"`
	Type          string          `gorm:"type:varchar(30);not null;default:'STANDARD'" json:"type"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Status        SeatStatus      `gorm:"type:varchar(20);not null;default:'AVAILABLE';index:idx_seat_status_expiry,priority:1" json:"status"`
	HoldSessionID *string         `gorm:"type:varchar(128);index" json:"-"`
	HoldExpiresAt *time.Time      `gorm:"index:idx_seat_status_expiry,priority:2" json:"hold_expires_at,omitempty"`
	TicketID      *uuid.UUID      `gorm:"type:uuid;index" json:"ticket_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Seat) TableName() string {
	return "seats"
}

// HeldBy reports whether the seat carries a hold by sessionID that is still live at now
func (s *Seat) HeldBy(sessionID string, now time.Time) bool {
	return s.Status == StatusReserved &&
		s.HoldSessionID != nil && *s.HoldSessionID == sessionID &&
		s.HoldExpiresAt != nil && s.HoldExpiresAt.After(now)
}

// HoldExpired reports whether the seat is still marked RESERVED by sessionID
// although the hold lapsed and the sweep has not released it yet.
func (s *Seat) HoldExpired(sessionID string, now time.Time) bool {
	return s.Status == StatusReserved &&
		s.HoldSessionID != nil && *s.HoldSessionID == sessionID &&
		s.HoldExpiresAt != nil && !s.HoldExpiresAt.After(now)
}

// Reservation is a successful all-or-nothing hold
type Reservation struct {
	EventID    uuid.UUID       `json:"event_id"`
	SessionID  string          `json:"session_id"`
	Seats      []Seat          `json:"seats"`
	TotalPrice decimal.Decimal `json:"total_price"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

// SeatIDs returns the labels of the reserved seats
func (r *Reservation) SeatIDs() []string {
	ids := make([]string, len(r.Seats))
	for i, s := range r.Seats {
		ids[i] = s.SeatID
	}
	return ids
}

type ReserveInput struct {
	EventID      uuid.UUID
	SeatIDs      []string
	SessionID    string
	HoldDuration time.Duration
}

// NormalizeSeatIDs trims, upper-cases and de-duplicates seat labels while
// keeping the caller's order.
func NormalizeSeatIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = normalizeLabel(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
