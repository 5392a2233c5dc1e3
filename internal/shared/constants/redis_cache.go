package constants

import (
	"fmt"
	"time"
)

// Redis keys follow ticketing:{module}:{purpose}:{identifier}

const (
	CACHE_PREFIX = "ticketing"
)

// Seat maps are display data only. Decisions always read the seat rows.
const (
	TTL_SEAT_AVAILABILITY = 5 * time.Second
	TTL_EVENT_DETAIL      = 1 * time.Minute
)

const (
	CACHE_KEY_SEAT_AVAILABILITY = CACHE_PREFIX + ":seats:availability:event:" // + event-id
	CACHE_KEY_EVENT_DETAIL      = CACHE_PREFIX + ":events:detail:uuid:"       // + event-id
	CACHE_PATTERN_SEATS         = CACHE_PREFIX + ":seats:*"

	LOCK_KEY_EXPIRY_SWEEP = CACHE_PREFIX + ":locks:expiry-sweep"
	RATE_LIMIT_PREFIX     = CACHE_PREFIX + ":ratelimit"
)

func SeatAvailabilityKey(eventID string) string {
	return CACHE_KEY_SEAT_AVAILABILITY + eventID
}

func EventDetailKey(eventID string) string {
	return fmt.Sprintf("%s%s", CACHE_KEY_EVENT_DETAIL, eventID)
}
