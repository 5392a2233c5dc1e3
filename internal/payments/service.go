package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ticketing/internal/notifications"
	"ticketing/internal/seats"
	"ticketing/internal/shared/apperrors"
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/metrics"
	"ticketing/internal/shared/txn"
	"ticketing/internal/tickets"
	"ticketing/pkg/logger"

	"github.com/google/uuid"
)

// Service reconciles payment outcomes with ticket and seat state. Webhooks,
// client confirmations and the expiry sweep all go through the same guarded
// transitions, so whichever arrives first wins and the rest are no-ops.
type Service interface {
	ConfirmPayment(ctx context.Context, ticketID uuid.UUID, paymentID string) (*tickets.Ticket, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error)

	MarkPaid(ctx context.Context, ticketID uuid.UUID, paymentID string) (*tickets.Ticket, error)
	ReleaseOnFailure(ctx context.Context, ticketID uuid.UUID, reason string) (*Closure, error)
	Cancel(ctx context.Context, ticketID uuid.UUID, reason string) (*Closure, error)

	CreateCheckout(ctx context.Context, ticketID uuid.UUID) (*CheckoutSession, error)
}

// AvailabilityInvalidator drops cached seat maps after seats change hands
type AvailabilityInvalidator interface {
	InvalidateAvailability(ctx context.Context, eventID uuid.UUID)
}

type service struct {
	ticketRepo   tickets.Repository
	seatRepo     seats.Repository
	txm          txn.Manager
	gateway      Gateway
	publisher    notifications.Publisher
	availability AvailabilityInvalidator
	cfg          config.PaymentConfig
	log          *logger.Logger
	now          func() time.Time
}

type Option func(*service)

func WithGateway(g Gateway) Option {
	return func(s *service) { s.gateway = g }
}

func WithPublisher(p notifications.Publisher) Option {
	return func(s *service) { s.publisher = p }
}

func WithAvailability(a AvailabilityInvalidator) Option {
	return func(s *service) { s.availability = a }
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(ticketRepo tickets.Repository, seatRepo seats.Repository, txm txn.Manager, cfg config.PaymentConfig, opts ...Option) Service {
	s := &service{
		ticketRepo: ticketRepo,
		seatRepo:   seatRepo,
		txm:        txm,
		cfg:        cfg,
		log:        logger.GetDefault(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

//  CONFIRMATION

func (s *service) ConfirmPayment(ctx context.Context, ticketID uuid.UUID, paymentID string) (*tickets.Ticket, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, apperrors.Invalid("payment id is required")
	}

	if s.gateway == nil {
		return s.settledByWebhook(ctx, ticketID)
	}

	payment, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		metrics.PaymentEvents.WithLabelValues("confirm", "provider_error").Inc()
		return nil, err
	}
	if payment.ExternalReference != "" && payment.ExternalReference != ticketID.String() {
		return nil, apperrors.Invalid("payment %s does not belong to ticket %s", paymentID, ticketID)
	}

	switch classifyStatus(payment.Status) {
	case outcomePaid:
		ticket, err := s.MarkPaid(ctx, ticketID, paymentID)
		s.countPaymentEvent("confirm", err)
		return ticket, err
	case outcomeFailed:
		closure, err := s.ReleaseOnFailure(ctx, ticketID, "payment "+strings.ToLower(payment.Status))
		if err != nil {
			return nil, err
		}
		metrics.PaymentEvents.WithLabelValues("confirm", "declined").Inc()
		return closure.Ticket, fmt.Errorf("%w: provider status %s", apperrors.ErrPaymentDeclined, payment.Status)
	default:
		metrics.PaymentEvents.WithLabelValues("confirm", "pending").Inc()
		return nil, fmt.Errorf("%w: provider status %s", apperrors.ErrPaymentPending, payment.Status)
	}
}

// settledByWebhook answers a confirmation when there is no provider API to
// verify the payment against. Only a signed webhook can settle the ticket, so
// the client is told where it stands and nothing changes.
func (s *service) settledByWebhook(ctx context.Context, ticketID uuid.UUID) (*tickets.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	switch {
	case ticket.Status == tickets.StatusPaid || ticket.Status == tickets.StatusUsed:
		return ticket, nil
	case ticket.Status.IsClosed():
		return nil, fmt.Errorf("%w: ticket is %s", apperrors.ErrNotPayable, ticket.Status)
	}
	metrics.PaymentEvents.WithLabelValues("confirm", "pending").Inc()
	return nil, fmt.Errorf("%w: waiting for provider notification", apperrors.ErrPaymentPending)
}

func (s *service) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if s.cfg.WebhookSecret != "" && !VerifySignature(s.cfg.WebhookSecret, body, signature) {
		metrics.PaymentEvents.WithLabelValues("webhook", "rejected").Inc()
		return nil, apperrors.ErrInvalidSignature
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperrors.Invalid("malformed webhook payload")
	}

	result := &WebhookResult{PaymentID: payload.paymentID(), Outcome: OutcomeIgnored}
	defer func() {
		metrics.PaymentEvents.WithLabelValues("webhook", result.Outcome).Inc()
	}()

	if !payload.isPaymentEvent() {
		return result, nil
	}

	// payload status is only believed when the body carries a valid signature
	status, reference := payload.Status, payload.ExternalReference
	if s.cfg.WebhookSecret == "" || status == "" || reference == "" {
		if result.PaymentID == "" || s.gateway == nil {
			s.log.WarnContext(ctx, "webhook without status cannot be resolved", "payment_id", result.PaymentID)
			return result, nil
		}
		payment, err := s.gateway.GetPayment(ctx, result.PaymentID)
		if err != nil {
			result.Outcome = OutcomeError
			return nil, err
		}
		status, reference = payment.Status, payment.ExternalReference
	}
	if result.PaymentID == "" {
		result.PaymentID = payload.ID
	}
	result.ProviderStatus = status

	ticketID, err := uuid.Parse(reference)
	if err != nil {
		s.log.WarnContext(ctx, "webhook for unknown reference", "external_reference", reference, "payment_id", result.PaymentID)
		return result, nil
	}
	result.TicketID = ticketID.String()

	switch classifyStatus(status) {
	case outcomePaid:
		ticket, err := s.MarkPaid(ctx, ticketID, result.PaymentID)
		switch {
		case err == nil:
			result.Outcome = OutcomePaid
		case errors.Is(err, apperrors.ErrInventoryInconsistency):
			// recorded and alerted; redelivery cannot fix it
			result.Outcome = OutcomeInconsistency
		case errors.Is(err, apperrors.ErrTicketNotFound):
			return result, nil
		default:
			result.Outcome = OutcomeError
			return nil, err
		}
		result.TicketStatus = string(ticket.Status)
	case outcomeFailed:
		closure, err := s.ReleaseOnFailure(ctx, ticketID, "payment "+strings.ToLower(status))
		if errors.Is(err, apperrors.ErrTicketNotFound) {
			return result, nil
		}
		if err != nil {
			result.Outcome = OutcomeError
			return nil, err
		}
		result.Outcome = OutcomeFailed
		result.TicketStatus = string(closure.Ticket.Status)
	default:
		result.Outcome = OutcomePending
	}
	return result, nil
}

//  TRANSITIONS

func (s *service) MarkPaid(ctx context.Context, ticketID uuid.UUID, paymentID string) (*tickets.Ticket, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, apperrors.Invalid("payment id is required")
	}

	var (
		result        *tickets.Ticket
		transitioned  bool
		inconsistency *apperrors.InventoryInconsistencyError
		detectedNow   bool
	)
	now := s.now().UTC()

	err := s.txm.WithTx(ctx, func(ctx context.Context) error {
		ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
		if err != nil {
			return err
		}

		if ticket.Status == tickets.StatusPending {
			ok, err := s.ticketRepo.Transition(ctx, ticket.ID, tickets.StatusPending, tickets.StatusPaid,
				tickets.Patch{PaymentID: &paymentID, PaidAt: &now})
			if err != nil {
				return fmt.Errorf("mark ticket paid: %w", err)
			}
			if ok {
				transitioned = true
				tickets.Patch{PaymentID: &paymentID, PaidAt: &now}.ApplyTo(ticket)
				ticket.Status = tickets.StatusPaid

				ids := ticket.SeatIDs()
				n, err := s.seatRepo.Occupy(ctx, ticket.EventID, ids, ticket.ID)
				if err != nil {
					return fmt.Errorf("occupy seats: %w", err)
				}
				if n != int64(len(ids)) {
					// money was taken: keep PAID and flag the ticket for an operator
					missing, err := s.missingSeats(ctx, ticket)
					if err != nil {
						return err
					}
					flag := true
					if err := s.ticketRepo.Annotate(ctx, ticket.ID, tickets.Patch{NeedsSeatReassignment: &flag}); err != nil {
						return fmt.Errorf("flag ticket: %w", err)
					}
					ticket.NeedsSeatReassignment = true
					detectedNow = true
					inconsistency = &apperrors.InventoryInconsistencyError{
						TicketID:     ticket.ID.String(),
						PaymentID:    paymentID,
						MissingSeats: missing,
						Reason:       "seats were released before the payment was confirmed",
					}
				}
				result = ticket
				return nil
			}

			// another caller settled it first
			if ticket, err = s.ticketRepo.GetByID(ctx, ticketID); err != nil {
				return err
			}
		}

		result = ticket
		inconsistency, detectedNow, err = s.settled(ctx, ticket, paymentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if transitioned {
		metrics.TicketTransitions.WithLabelValues(string(tickets.StatusPending), string(tickets.StatusPaid)).Inc()
		s.log.LogTicketTransition(ctx, result.ID.String(), string(tickets.StatusPending), string(tickets.StatusPaid), "payment "+paymentID)
		s.invalidate(ctx, result.EventID)

		event := notifications.NewTicketEvent(notifications.EventTicketPaid, result.EventID.String(), result.ID.String())
		event.Status = string(result.Status)
		event.Seats = result.SeatIDs()
		event.PaymentID = paymentID
		notifications.Emit(ctx, s.publisher, event)
	}

	if inconsistency != nil {
		s.reportInconsistency(ctx, result, inconsistency, detectedNow)
		return result, inconsistency
	}
	return result, nil
}

// settled handles a payment for a ticket that already left PENDING. A ticket
// that was failed or cancelled cannot be resurrected: its seats may have been
// sold again, so the payment is recorded and escalated for a refund.
func (s *service) settled(ctx context.Context, ticket *tickets.Ticket, paymentID string) (*apperrors.InventoryInconsistencyError, bool, error) {
	switch {
	case ticket.Status == tickets.StatusPaid || ticket.Status == tickets.StatusUsed:
		if ticket.PaymentID != nil && *ticket.PaymentID != paymentID {
			s.log.WarnContext(ctx, "second payment for a settled ticket",
				"ticket_id", ticket.ID.String(), "payment_id", paymentID, "settled_with", *ticket.PaymentID)
		}
		if ticket.NeedsSeatReassignment {
			return &apperrors.InventoryInconsistencyError{
				TicketID:     ticket.ID.String(),
				PaymentID:    paymentID,
				MissingSeats: ticket.SeatIDs(),
				Reason:       "ticket is awaiting seat reassignment",
			}, false, nil
		}
		return nil, false, nil

	case ticket.Status.IsClosed():
		fresh := ticket.LatePaymentID == nil || *ticket.LatePaymentID != paymentID
		if fresh {
			if err := s.ticketRepo.Annotate(ctx, ticket.ID, tickets.Patch{LatePaymentID: &paymentID}); err != nil {
				return nil, false, fmt.Errorf("record late payment: %w", err)
			}
			ticket.LatePaymentID = &paymentID
		}
		return &apperrors.InventoryInconsistencyError{
			TicketID:     ticket.ID.String(),
			PaymentID:    paymentID,
			MissingSeats: ticket.SeatIDs(),
			Reason:       fmt.Sprintf("payment received for %s ticket", strings.ToLower(string(ticket.Status))),
		}, fresh, nil
	}
	return nil, false, fmt.Errorf("unexpected ticket status %s", ticket.Status)
}

func (s *service) missingSeats(ctx context.Context, ticket *tickets.Ticket) ([]string, error) {
	current, err := s.seatRepo.GetSeats(ctx, ticket.EventID, ticket.SeatIDs())
	if err != nil {
		return nil, fmt.Errorf("reload seats: %w", err)
	}
	ok := make(map[string]bool, len(current))
	for _, seat := range current {
		if seat.Status == seats.StatusOccupied && seat.TicketID != nil && *seat.TicketID == ticket.ID {
			ok[seat.SeatID] = true
		}
	}
	var missing []string
	for _, id := range ticket.SeatIDs() {
		if !ok[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (s *service) reportInconsistency(ctx context.Context, ticket *tickets.Ticket, inc *apperrors.InventoryInconsistencyError, fresh bool) {
	if !fresh {
		s.log.WarnContext(ctx, "payment for ticket already flagged", "ticket_id", inc.TicketID, "payment_id", inc.PaymentID)
		return
	}
	metrics.InventoryInconsistencies.Inc()
	s.log.LogInventoryInconsistency(ctx, inc.TicketID, inc.PaymentID, inc.MissingSeats, inc.Reason)

	event := notifications.NewTicketEvent(notifications.EventInventoryInconsistency, ticket.EventID.String(), ticket.ID.String())
	event.Status = string(ticket.Status)
	event.Seats = inc.MissingSeats
	event.PaymentID = inc.PaymentID
	event.Reason = inc.Reason
	notifications.Emit(ctx, s.publisher, event)
}

func (s *service) ReleaseOnFailure(ctx context.Context, ticketID uuid.UUID, reason string) (*Closure, error) {
	return s.close(ctx, ticketID, tickets.StatusFailed, reason)
}

func (s *service) Cancel(ctx context.Context, ticketID uuid.UUID, reason string) (*Closure, error) {
	return s.close(ctx, ticketID, tickets.StatusCancelled, reason)
}

// close ends a PENDING ticket and gives its seats back in one atomic unit.
// Tickets that already left PENDING are returned untouched.
func (s *service) close(ctx context.Context, ticketID uuid.UUID, to tickets.Status, reason string) (*Closure, error) {
	if reason = strings.TrimSpace(reason); reason == "" {
		reason = strings.ToLower(string(to))
	}
	now := s.now().UTC()
	result := &Closure{}

	err := s.txm.WithTx(ctx, func(ctx context.Context) error {
		*result = Closure{}
		ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
		if err != nil {
			return err
		}
		result.Ticket = ticket
		if ticket.Status != tickets.StatusPending {
			return nil
		}

		ok, err := s.ticketRepo.Transition(ctx, ticket.ID, tickets.StatusPending, to,
			tickets.Patch{FailureReason: &reason, ClosedAt: &now})
		if err != nil {
			return fmt.Errorf("close ticket: %w", err)
		}
		if !ok {
			result.Ticket, err = s.ticketRepo.GetByID(ctx, ticketID)
			return err
		}

		n, err := s.seatRepo.ReleaseForTicket(ctx, ticket.EventID, ticket.SeatIDs(), ticket.ID)
		if err != nil {
			return fmt.Errorf("release seats: %w", err)
		}

		ticket.Status = to
		ticket.FailureReason = reason
		ticket.ClosedAt = &now
		result.Changed = true
		result.ReleasedSeats = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		t := result.Ticket
		metrics.TicketTransitions.WithLabelValues(string(tickets.StatusPending), string(to)).Inc()
		s.log.LogTicketTransition(ctx, t.ID.String(), string(tickets.StatusPending), string(to), reason)
		if result.ReleasedSeats > 0 {
			s.invalidate(ctx, t.EventID)
		}

		kind := notifications.EventTicketFailed
		if to == tickets.StatusCancelled {
			kind = notifications.EventTicketCancelled
		}
		event := notifications.NewTicketEvent(kind, t.EventID.String(), t.ID.String())
		event.Status = string(to)
		event.Seats = t.SeatIDs()
		event.Reason = reason
		notifications.Emit(ctx, s.publisher, event)
	}
	return result, nil
}

//  CHECKOUT

func (s *service) CreateCheckout(ctx context.Context, ticketID uuid.UUID) (*CheckoutSession, error) {
	if s.gateway == nil {
		return nil, fmt.Errorf("%w: payment gateway is not configured", apperrors.ErrProviderCommunication)
	}

	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != tickets.StatusPending {
		return nil, fmt.Errorf("%w: ticket is %s", apperrors.ErrNotPayable, ticket.Status)
	}

	buyer := ticket.BuyerInfo.Data()
	ref := ticket.ID.String()
	req := CheckoutRequest{
		Items: []CheckoutItem{{
			ID:        ref,
			Title:     "Seats " + strings.Join(ticket.SeatIDs(), ", "),
			Quantity:  1,
			UnitPrice: ticket.Price,
			Currency:  ticket.Currency,
		}},
		ExternalReference: ref,
		Payer:             map[string]string{"name": buyer.Name, "email": buyer.Email},
		BackURLs: map[string]string{
			"success": withTicket(s.cfg.CheckoutSuccessURL, ref),
			"failure": withTicket(s.cfg.CheckoutFailureURL, ref),
		},
		NotificationURL: s.cfg.NotificationURL,
	}

	session, err := s.gateway.CreateCheckout(ctx, req)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func withTicket(base, ticketID string) string {
	if base == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "ticket_id=" + ticketID
}

func (s *service) invalidate(ctx context.Context, eventID uuid.UUID) {
	if s.availability != nil {
		s.availability.InvalidateAvailability(ctx, eventID)
	}
}

func (s *service) countPaymentEvent(source string, err error) {
	outcome := OutcomePaid
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrInventoryInconsistency):
		outcome = OutcomeInconsistency
	default:
		outcome = OutcomeError
	}
	metrics.PaymentEvents.WithLabelValues(source, outcome).Inc()
}
