package events

import (
	"time"

	"ticketing/internal/seats"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Event is the organizer-owned collaborator the seats and tickets hang off.
// Publishing costs credits; see the credits package.
type Event struct {
	ID          uuid.UUID                                `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizerID uuid.UUID                                `gorm:"type:uuid;not null;index" json:"organizer_id"`
	Name        string                                   `gorm:"type:varchar(255);not null" json:"name"`
	Venue       string                                   `gorm:"type:varchar(255);not null" json:"venue"`
	StartsAt    time.Time                                `gorm:"not null;index" json:"starts_at"`
	Published   bool                                     `gorm:"not null;default:false" json:"published"`
	PublishedAt *time.Time                               `json:"published_at,omitempty"`
	CreditCost  int64                                    `gorm:"not null;default:1" json:"credit_cost"`
	Currency    string                                   `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	Sections    datatypes.JSONSlice[seats.SectionLayout] `gorm:"type:jsonb" json:"sections"`
	CreatedAt   time.Time                                `json:"created_at"`
	UpdatedAt   time.Time                                `json:"updated_at"`
}

func (Event) TableName() string {
	return "events"
}

type CreateEventInput struct {
	Name       string
	Venue      string
	StartsAt   time.Time
	CreditCost int64
	Currency   string
	Sections   []seats.SectionLayout
}

// Inventory is the seat count of an event per status, derived from the seat rows
type Inventory struct {
	EventID   uuid.UUID `json:"event_id"`
	Total     int64     `json:"total"`
	Available int64     `json:"available"`
	Reserved  int64     `json:"reserved"`
	Occupied  int64     `json:"occupied"`
}
