// Package apperrors defines the error taxonomy shared by the reservation,
// ticket, payment and credit flows, and its mapping onto HTTP statuses.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrSeatUnavailable        = errors.New("seat unavailable")
	ErrHoldExpired            = errors.New("seat hold expired")
	ErrSoldOut                = errors.New("event sold out")
	ErrTicketNotFound         = errors.New("ticket not found")
	ErrInvalidTicket          = errors.New("invalid ticket")
	ErrAlreadyUsed            = errors.New("ticket already used")
	ErrNotPayable             = errors.New("ticket is not in a payable state")
	ErrInsufficientCredits    = errors.New("insufficient credits")
	ErrInventoryInconsistency = errors.New("inventory inconsistency")
	ErrProviderCommunication  = errors.New("payment provider communication error")
	ErrPaymentPending         = errors.New("payment not yet final")
	ErrPaymentDeclined        = errors.New("payment declined")
	ErrEventNotFound          = errors.New("event not found")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidSignature       = errors.New("invalid webhook signature")
)

// SeatUnavailableError names the seats that blocked a reservation or binding.
type SeatUnavailableError struct {
	Seats []string
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable: %s", strings.Join(e.Seats, ", "))
}

func (e *SeatUnavailableError) Unwrap() error { return ErrSeatUnavailable }

// HoldExpiredError is returned when the caller's own hold lapsed before checkout.
type HoldExpiredError struct {
	Seats []string
}

func (e *HoldExpiredError) Error() string {
	return fmt.Sprintf("hold expired for seats: %s", strings.Join(e.Seats, ", "))
}

func (e *HoldExpiredError) Unwrap() error { return ErrHoldExpired }

// InsufficientCreditsError carries the amounts shown to the organizer.
type InsufficientCreditsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

func (e *InsufficientCreditsError) Unwrap() error { return ErrInsufficientCredits }

// InventoryInconsistencyError means money was taken but the seats could not be
// occupied. The ticket keeps its payment record and is flagged for an operator.
type InventoryInconsistencyError struct {
	TicketID     string
	PaymentID    string
	MissingSeats []string
	Reason       string
}

func (e *InventoryInconsistencyError) Error() string {
	return fmt.Sprintf("inventory inconsistency on ticket %s (payment %s): %s", e.TicketID, e.PaymentID, e.Reason)
}

func (e *InventoryInconsistencyError) Unwrap() error { return ErrInventoryInconsistency }

// HTTPStatus maps an error from the core onto a response status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrTicketNotFound), errors.Is(err, ErrInvalidTicket), errors.Is(err, ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSeatUnavailable), errors.Is(err, ErrAlreadyUsed), errors.Is(err, ErrNotPayable), errors.Is(err, ErrSoldOut),
		errors.Is(err, ErrInventoryInconsistency):
		return http.StatusConflict
	case errors.Is(err, ErrHoldExpired):
		return http.StatusGone
	case errors.Is(err, ErrInsufficientCredits), errors.Is(err, ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrPaymentPending):
		return http.StatusAccepted
	case errors.Is(err, ErrProviderCommunication):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Code returns a stable machine readable code for the error.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrSoldOut):
		return "SOLD_OUT"
	case errors.Is(err, ErrSeatUnavailable):
		return "SEAT_UNAVAILABLE"
	case errors.Is(err, ErrHoldExpired):
		return "HOLD_EXPIRED"
	case errors.Is(err, ErrTicketNotFound):
		return "TICKET_NOT_FOUND"
	case errors.Is(err, ErrInvalidTicket):
		return "INVALID_TICKET"
	case errors.Is(err, ErrAlreadyUsed):
		return "ALREADY_USED"
	case errors.Is(err, ErrNotPayable):
		return "NOT_PAYABLE"
	case errors.Is(err, ErrInsufficientCredits):
		return "INSUFFICIENT_CREDITS"
	case errors.Is(err, ErrInventoryInconsistency):
		return "INVENTORY_INCONSISTENCY"
	case errors.Is(err, ErrProviderCommunication):
		return "PROVIDER_COMMUNICATION_ERROR"
	case errors.Is(err, ErrPaymentPending):
		return "PAYMENT_PENDING"
	case errors.Is(err, ErrPaymentDeclined):
		return "PAYMENT_DECLINED"
	case errors.Is(err, ErrEventNotFound):
		return "EVENT_NOT_FOUND"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrInvalidSignature):
		return "INVALID_SIGNATURE"
	default:
		return "INTERNAL_ERROR"
	}
}

// Invalid wraps ErrInvalidInput with a message for the caller.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
