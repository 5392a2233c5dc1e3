package events

import (
	"time"

	"ticketing/internal/seats"
)

type CreateEventRequest struct {
	Name       string                `json:"name" binding:"required,min=3,max=255"`
	Venue      string                `json:"venue" binding:"required,min=3,max=255"`
	StartsAt   time.Time             `json:"starts_at" binding:"required"`
	CreditCost int64                 `json:"credit_cost" binding:"omitempty,min=1,max=1000"`
	Currency   string                `json:"currency" binding:"omitempty,len=3,alpha"`
	Sections   []seats.SectionLayout `json:"sections" binding:"required,min=1,max=50,dive"`
}
