package seats

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type HoldVerification struct {
	AllAvailableOrHeld bool       `json:"all_available_or_held"`
	UnavailableSeats   []string   `json:"unavailable_seats"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
}

type SeatView struct {
	SeatID  string          `json:"seat_id"`
	Section string          `json:"section"`
	Row     string          `json:"row"`
	Number  int             `json:"number"`
	Type    string          `json:"type"`
	Price   decimal.Decimal `json:"price"`
	Status  SeatStatus      `json:"status"`
}

type Availability struct {
	EventID   uuid.UUID  `json:"event_id"`
	Available int        `json:"available"`
	Reserved  int        `json:"reserved"`
	Occupied  int        `json:"occupied"`
	Seats     []SeatView `json:"seats"`
}

type ReserveResponse struct {
	Success        bool            `json:"success"`
	ReservedSeats  []string        `json:"reserved_seats"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	ExpiresAt      time.Time       `json:"expires_at"`
	SessionID      string          `json:"session_id"`
	HoldTTLSeconds int64           `json:"hold_ttl_seconds"`
}

type ReleaseResponse struct {
	Released int64 `json:"released"`
}
