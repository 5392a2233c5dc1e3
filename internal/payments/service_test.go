package payments_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ticketing/internal/events"
	"ticketing/internal/notifications"
	"ticketing/internal/payments"
	"ticketing/internal/seats"
	"ticketing/internal/shared/apperrors"
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/memstore"
	"ticketing/internal/tickets"
	"ticketing/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu        sync.Mutex
	payments  map[string]payments.ProviderPayment
	err       error
	checkouts []payments.CheckoutRequest
}

func (g *fakeGateway) set(id, status, reference string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments[id] = payments.ProviderPayment{ID: id, Status: status, ExternalReference: reference}
}

func (g *fakeGateway) GetPayment(_ context.Context, id string) (*payments.ProviderPayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	p, ok := g.payments[id]
	if !ok {
		return nil, fmt.Errorf("%w: payment %s not found", apperrors.ErrProviderCommunication, id)
	}
	return &p, nil
}

func (g *fakeGateway) CreateCheckout(_ context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkouts = append(g.checkouts, req)
	return &payments.CheckoutSession{ID: "pref-1", CheckoutURL: "https://pay.example/pref-1"}, nil
}

const webhookSecret = "whsec-test"

type fixture struct {
	store    *memstore.Store
	clock    *memstore.Clock
	gateway  *fakeGateway
	recorder *memstore.Recorder
	seats    seats.Service
	tickets  tickets.Service
	payments payments.Service
	eventID  uuid.UUID
}

func newFixture(t *testing.T, withGateway bool) *fixture {
	t.Helper()
	logger.SetDefault(logger.NewNop())

	store := memstore.New()
	clock := memstore.NewClock(time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC))
	store.Now = clock.Now

	eventID := uuid.New()
	_, err := store.SeedEvent(events.Event{ID: eventID, OrganizerID: uuid.New(), Name: "Jazz Trio", Venue: "Blue Room",
		StartsAt: clock.Now().Add(24 * time.Hour)},
		[]seats.SectionLayout{{Name: "Tables", Rows: 1, Columns: 6, Price: decimal.NewFromInt(30)}})
	require.NoError(t, err)

	f := &fixture{
		store:    store,
		clock:    clock,
		gateway:  &fakeGateway{payments: map[string]payments.ProviderPayment{}},
		recorder: &memstore.Recorder{},
		eventID:  eventID,
	}
	f.seats = seats.NewService(store.Seats(), store, config.ReservationConfig{HoldTTL: 15 * time.Minute},
		seats.WithClock(clock.Now))
	f.tickets = tickets.NewService(store.Tickets(), store.Seats(), store, tickets.WithClock(clock.Now))

	opts := []payments.Option{
		payments.WithPublisher(f.recorder),
		payments.WithAvailability(f.seats),
		payments.WithClock(clock.Now),
	}
	if withGateway {
		opts = append(opts, payments.WithGateway(f.gateway))
	}
	f.payments = payments.NewService(store.Tickets(), store.Seats(), store, config.PaymentConfig{
		WebhookSecret:      webhookSecret,
		CheckoutSuccessURL: "https://shop.example/ok",
		NotificationURL:    "https://api.example/api/v1/payments/webhook",
	}, opts...)
	return f
}

// pending reserves ids for a fresh session and turns the hold into a PENDING ticket
func (f *fixture) pending(t *testing.T, ids ...string) *tickets.Ticket {
	t.Helper()
	ctx := context.Background()
	session := "session-" + uuid.NewString()

	_, err := f.seats.ReserveSeats(ctx, seats.ReserveInput{EventID: f.eventID, SeatIDs: ids, SessionID: session})
	require.NoError(t, err)
	ticket, err := f.tickets.CreateTicket(ctx, tickets.CreateTicketInput{EventID: f.eventID, SeatIDs: ids, SessionID: session})
	require.NoError(t, err)
	return ticket
}

func (f *fixture) gatewayOrNil(enabled bool) payments.Gateway {
	if !enabled {
		return nil
	}
	return f.gateway
}

func (f *fixture) seatStatus(id string) seats.SeatStatus {
	seat, _ := f.store.Seat(f.eventID, id)
	return seat.Status
}

func (f *fixture) webhook(t *testing.T, body string) (*payments.WebhookResult, error) {
	t.Helper()
	return f.payments.HandleWebhook(context.Background(), []byte(body), payments.Sign(webhookSecret, []byte(body)))
}

func countType(types []notifications.EventType, want notifications.EventType) int {
	n := 0
	for _, t := range types {
		if t == want {
			n++
		}
	}
	return n
}

func TestMarkPaidOccupiesSeats(t *testing.T) {
	f := newFixture(t, false)
	ticket := f.pending(t, "A1", "A2")

	paid, err := f.payments.MarkPaid(context.Background(), ticket.ID, "pay-1")
	require.NoError(t, err)

	assert.Equal(t, tickets.StatusPaid, paid.Status)
	require.NotNil(t, paid.PaymentID)
	assert.Equal(t, "pay-1", *paid.PaymentID)
	assert.NotNil(t, paid.PaidAt)

	for _, id := range []string{"A1", "A2"} {
		seat, _ := f.store.Seat(f.eventID, id)
		assert.Equal(t, seats.StatusOccupied, seat.Status)
		assert.Nil(t, seat.HoldExpiresAt)
		assert.Equal(t, ticket.ID, *seat.TicketID)
	}
	assert.Equal(t, 1, countType(f.recorder.Types(), notifications.EventTicketPaid))
}

// Reserve, create, pay by webhook, then receive the same webhook again.
func TestPurchaseFlowWithDuplicateWebhook(t *testing.T) {
	f := newFixture(t, true)
	ticket := f.pending(t, "A3", "A4")
	f.gateway.set("pay-77", "approved", ticket.ID.String())

	body := `{"type":"payment","action":"payment.updated","data":{"id":"pay-77"}}`
	first, err := f.webhook(t, body)
	require.NoError(t, err)
	assert.Equal(t, payments.OutcomePaid, first.Outcome)
	assert.Equal(t, ticket.ID.String(), first.TicketID)
	assert.Equal(t, string(tickets.StatusPaid), first.TicketStatus)

	second, err := f.webhook(t, body)
	require.NoError(t, err)
	assert.Equal(t, payments.OutcomePaid, second.Outcome)

	stored, _ := f.store.Ticket(ticket.ID)
	assert.Equal(t, tickets.StatusPaid, stored.Status)
	assert.Equal(t, seats.StatusOccupied, f.seatStatus("A3"))
	assert.Equal(t, 1, countType(f.recorder.Types(), notifications.EventTicketPaid))
}

func TestConfirmPaymentDeclinedReleasesSeats(t *testing.T) {
	f := newFixture(t, true)
	ticket := f.pending(t, "A1")
	f.gateway.set("pay-9", "rejected", ticket.ID.String())

	got, err := f.payments.ConfirmPayment(context.Background(), ticket.ID, "pay-9")
	assert.ErrorIs(t, err, apperrors.ErrPaymentDeclined)
	require.NotNil(t, got)
	assert.Equal(t, tickets.StatusFailed, got.Status)
	assert.Equal(t, seats.StatusAvailable, f.seatStatus("A1"))

	// the seat can be bought again
	again := f.pending(t, "A1")
	assert.Equal(t, tickets.StatusPending, again.Status)
}

func TestConfirmPaymentPending(t *testing.T) {
	f := newFixture(t, true)
	ticket := f.pending(t, "A1")
	f.gateway.set("pay-3", "in_process", ticket.ID.String())

	_, err := f.payments.ConfirmPayment(context.Background(), ticket.ID, "pay-3")
	assert.ErrorIs(t, err, apperrors.ErrPaymentPending)

	stored, _ := f.store.Ticket(ticket.ID)
	assert.Equal(t, tickets.StatusPending, stored.Status)
	assert.Equal(t, seats.StatusReserved, f.seatStatus("A1"))
}

func TestConfirmPaymentRejectsForeignPayment(t *testing.T) {
	f := newFixture(t, true)
	ticket := f.pending(t, "A1")
	f.gateway.set("pay-5", "approved", uuid.NewString())

	_, err := f.payments.ConfirmPayment(context.Background(), ticket.ID, "pay-5")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestConfirmPaymentProviderDown(t *testing.T) {
	f := newFixture(t, true)
	ticket := f.pending(t, "A1")
	f.gateway.err = fmt.Errorf("%w: timeout", apperrors.ErrProviderCommunication)

	_, err := f.payments.ConfirmPayment(context.Background(), ticket.ID, "pay-1")
	assert.ErrorIs(t, err, apperrors.ErrProviderCommunication)

	stored, _ := f.store.Ticket(ticket.ID)
	assert.Equal(t, tickets.StatusPending, stored.Status)
}

// Without a provider API a client confirmation cannot prove anything was
// paid: the ticket waits for the signed webhook.
func TestConfirmPaymentWithoutGatewayNeverSettles(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	ticket := f.pending(t, "A1")

	_, err := f.payments.ConfirmPayment(ctx, ticket.ID, "i-made-this-up")
	assert.ErrorIs(t, err, apperrors.ErrPaymentPending)

	stored, _ := f.store.Ticket(ticket.ID)
	assert.Equal(t, tickets.StatusPending, stored.Status)
	assert.Nil(t, stored.PaymentID)
	assert.Equal(t, seats.StatusReserved, f.seatStatus("A1"))
	assert.Zero(t, countType(f.recorder.Types(), notifications.EventTicketPaid))

	body := fmt.Sprintf(`{"type":"payment","payment_id":"pay-ok","status":"approved","external_reference":"%s"}`, ticket.ID)
	_, err = f.webhook(t, body)
	require.NoError(t, err)

	got, err := f.payments.ConfirmPayment(ctx, ticket.ID, "pay-ok")
	require.NoError(t, err)
	assert.Equal(t, tickets.StatusPaid, got.Status)

	_, err = f.payments.ConfirmPayment(ctx, uuid.New(), "pay-ok")
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)

	closed := f.pending(t, "A2")
	_, err = f.payments.Cancel(ctx, closed.ID, "")
	require.NoError(t, err)
	_, err = f.payments.ConfirmPayment(ctx, closed.ID, "pay-x")
	assert.ErrorIs(t, err, apperrors.ErrNotPayable)
}

// With no webhook secret the body is unauthenticated, so its status is
// ignored and only the provider's own record counts.
func TestUnsignedWebhookStatusIsNotTrusted(t *testing.T) {
	for _, withGateway := range []bool{false, true} {
		t.Run(fmt.Sprintf("gateway=%v", withGateway), func(t *testing.T) {
			f := newFixture(t, withGateway)
			f.payments = payments.NewService(f.store.Tickets(), f.store.Seats(), f.store, config.PaymentConfig{},
				payments.WithGateway(f.gatewayOrNil(withGateway)), payments.WithClock(f.clock.Now))
			ticket := f.pending(t, "A1")
			f.gateway.set("pay-1", "in_process", ticket.ID.String())

			body := fmt.Sprintf(`{"type":"payment","payment_id":"pay-1","status":"approved","external_reference":"%s"}`, ticket.ID)
			_, err := f.payments.HandleWebhook(context.Background(), []byte(body), "")
			require.NoError(t, err)

			stored, _ := f.store.Ticket(ticket.ID)
			assert.Equal(t, tickets.StatusPending, stored.Status)
			assert.Equal(t, seats.StatusReserved, f.seatStatus("A1"))
		})
	}
}

// A payment that arrives after the ticket was failed is recorded and escalated,
// never turned back into a sale.
func TestLatePaymentForFailedTicket(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	ticket := f.pending(t, "A5", "A6")

	closure, err := f.payments.ReleaseOnFailure(ctx, ticket.ID, "reservation expired")
	require.NoError(t, err)
	require.True(t, closure.Changed)
	assert.Equal(t, int64(2), closure.ReleasedSeats)

	got, err := f.payments.MarkPaid(ctx, ticket.ID, "pay-late")
	var inc *apperrors.InventoryInconsistencyError
	require.ErrorAs(t, err, &inc)
	assert.Equal(t, ticket.ID.String(), inc.TicketID)
	assert.Equal(t, "pay-late", inc.PaymentID)
	assert.Equal(t, []string{"A5", "A6"}, inc.MissingSeats)
	assert.Equal(t, tickets.StatusFailed, got.Status)

	stored, _ := f.store.Ticket(ticket.ID)
	assert.Equal(t, tickets.StatusFailed, stored.Status)
	require.NotNil(t, stored.LatePaymentID)
	assert.Equal(t, "pay-late", *stored.LatePaymentID)
	assert.Equal(t, seats.StatusAvailable, f.seatStatus("A5"))

	event, ok := f.recorder.Last(notifications.EventInventoryInconsistency)
	require.True(t, ok)
	assert.Equal(t, "pay-late", event.PaymentID)

	// redelivery reports again without a second alert
	_, err = f.payments.MarkPaid(ctx, ticket.ID, "pay-late")
	assert.ErrorIs(t, err, apperrors.ErrInventoryInconsistency)
	assert.Equal(t, 1, countType(f.recorder.Types(), notifications.EventInventoryInconsistency))
}

// The seats were released underneath a PENDING ticket before the payment
// landed: the ticket is paid and flagged for seat reassignment.
func TestMarkPaidFlagsMissingSeats(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	ticket := f.pending(t, "A1", "A2")

	f.store.ExpireHolds(f.eventID, f.clock.Now().Add(-time.Minute))
	released, err := f.store.Seats().ReleaseExpired(ctx, f.clock.Now(), 100)
	require.NoError(t, err)
	require.Len(t, released, 2)

	got, err := f.payments.MarkPaid(ctx, ticket.ID, "pay-1")
	var inc *apperrors.InventoryInconsistencyError
	require.ErrorAs(t, err, &inc)
	assert.ElementsMatch(t, []string{"A1", "A2"}, inc.MissingSeats)
	assert.Equal(t, tickets.StatusPaid, got.Status)
	assert.True(t, got.NeedsSeatReassignment)

	stored, _ := f.store.Ticket(ticket.ID)
	assert.Equal(t, tickets.StatusPaid, stored.Status)
	assert.True(t, stored.NeedsSeatReassignment)
	assert.Equal(t, seats.StatusAvailable, f.seatStatus("A1"))
}

func TestCancelOnlyAffectsPendingTickets(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	paid := f.pending(t, "A1")
	_, err := f.payments.MarkPaid(ctx, paid.ID, "pay-1")
	require.NoError(t, err)

	closure, err := f.payments.Cancel(ctx, paid.ID, "operator")
	require.NoError(t, err)
	assert.False(t, closure.Changed)
	assert.Equal(t, tickets.StatusPaid, closure.Ticket.Status)
	assert.Equal(t, seats.StatusOccupied, f.seatStatus("A1"))

	open := f.pending(t, "A2")
	closure, err = f.payments.Cancel(ctx, open.ID, "")
	require.NoError(t, err)
	assert.True(t, closure.Changed)
	assert.Equal(t, tickets.StatusCancelled, closure.Ticket.Status)
	assert.Equal(t, "cancelled", closure.Ticket.FailureReason)
	assert.Equal(t, seats.StatusAvailable, f.seatStatus("A2"))

	_, err = f.payments.Cancel(ctx, uuid.New(), "x")
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}

func TestConcurrentConfirmationsSettleOnce(t *testing.T) {
	f := newFixture(t, false)
	ticket := f.pending(t, "A1", "A2", "A3")

	var wg sync.WaitGroup
	errs := make(chan error, 12)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.payments.MarkPaid(context.Background(), ticket.ID, "pay-1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, countType(f.recorder.Types(), notifications.EventTicketPaid))
	assert.Equal(t, seats.StatusOccupied, f.seatStatus("A3"))
}

func TestConcurrentPayAndExpireNeverLosesBoth(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	ticket := f.pending(t, "A4")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = f.payments.MarkPaid(ctx, ticket.ID, "pay-1")
	}()
	go func() {
		defer wg.Done()
		_, _ = f.payments.ReleaseOnFailure(ctx, ticket.ID, "reservation expired")
	}()
	wg.Wait()

	stored, _ := f.store.Ticket(ticket.ID)
	switch stored.Status {
	case tickets.StatusPaid:
		assert.Equal(t, seats.StatusOccupied, f.seatStatus("A4"))
	case tickets.StatusFailed:
		assert.Equal(t, seats.StatusAvailable, f.seatStatus("A4"))
		require.NotNil(t, stored.LatePaymentID)
	default:
		t.Fatalf("unexpected final status %s", stored.Status)
	}
}

func TestHandleWebhook(t *testing.T) {
	f := newFixture(t, true)
	ticket := f.pending(t, "A1")

	t.Run("bad signature", func(t *testing.T) {
		_, err := f.payments.HandleWebhook(context.Background(), []byte(`{}`), "sha256=00")
		assert.ErrorIs(t, err, apperrors.ErrInvalidSignature)
	})

	t.Run("malformed body", func(t *testing.T) {
		_, err := f.webhook(t, `{not json`)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("other topic", func(t *testing.T) {
		res, err := f.webhook(t, `{"type":"merchant_order","data":{"id":"mo-1"}}`)
		require.NoError(t, err)
		assert.Equal(t, payments.OutcomeIgnored, res.Outcome)
	})

	t.Run("unknown reference", func(t *testing.T) {
		res, err := f.webhook(t, `{"type":"payment","payment_id":"p-x","status":"approved","external_reference":"order-17"}`)
		require.NoError(t, err)
		assert.Equal(t, payments.OutcomeIgnored, res.Outcome)
	})

	t.Run("unknown ticket", func(t *testing.T) {
		body := fmt.Sprintf(`{"type":"payment","payment_id":"p-y","status":"approved","external_reference":"%s"}`, uuid.NewString())
		res, err := f.webhook(t, body)
		require.NoError(t, err)
		assert.Equal(t, payments.OutcomeIgnored, res.Outcome)
	})

	t.Run("pending status", func(t *testing.T) {
		body := fmt.Sprintf(`{"type":"payment","payment_id":"p-1","status":"in_process","external_reference":"%s"}`, ticket.ID)
		res, err := f.webhook(t, body)
		require.NoError(t, err)
		assert.Equal(t, payments.OutcomePending, res.Outcome)
	})

	t.Run("provider unreachable asks for redelivery", func(t *testing.T) {
		f.gateway.mu.Lock()
		f.gateway.err = errors.New("dial tcp: i/o timeout")
		f.gateway.mu.Unlock()
		defer func() {
			f.gateway.mu.Lock()
			f.gateway.err = nil
			f.gateway.mu.Unlock()
		}()

		_, err := f.webhook(t, `{"type":"payment","data":{"id":"p-1"}}`)
		assert.Error(t, err)
	})

	t.Run("failed payment", func(t *testing.T) {
		body := fmt.Sprintf(`{"type":"payment","payment_id":"p-2","status":"rejected","external_reference":"%s"}`, ticket.ID)
		res, err := f.webhook(t, body)
		require.NoError(t, err)
		assert.Equal(t, payments.OutcomeFailed, res.Outcome)
		assert.Equal(t, string(tickets.StatusFailed), res.TicketStatus)
		assert.Equal(t, seats.StatusAvailable, f.seatStatus("A1"))
	})

	t.Run("approval after failure is acknowledged as inconsistency", func(t *testing.T) {
		body := fmt.Sprintf(`{"type":"payment","payment_id":"p-3","status":"approved","external_reference":"%s"}`, ticket.ID)
		res, err := f.webhook(t, body)
		require.NoError(t, err)
		assert.Equal(t, payments.OutcomeInconsistency, res.Outcome)
	})
}

func TestCreateCheckout(t *testing.T) {
	f := newFixture(t, true)
	ticket := f.pending(t, "A1", "A2")

	session, err := f.payments.CreateCheckout(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "pref-1", session.ID)

	require.Len(t, f.gateway.checkouts, 1)
	req := f.gateway.checkouts[0]
	assert.Equal(t, ticket.ID.String(), req.ExternalReference)
	assert.Equal(t, "https://shop.example/ok?ticket_id="+ticket.ID.String(), req.BackURLs["success"])
	assert.Equal(t, "https://api.example/api/v1/payments/webhook", req.NotificationURL)
	require.Len(t, req.Items, 1)
	assert.True(t, req.Items[0].UnitPrice.Equal(decimal.NewFromInt(60)))

	_, err = f.payments.MarkPaid(context.Background(), ticket.ID, "pay-1")
	require.NoError(t, err)
	_, err = f.payments.CreateCheckout(context.Background(), ticket.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotPayable)
}

func TestCreateCheckoutWithoutGateway(t *testing.T) {
	f := newFixture(t, false)
	ticket := f.pending(t, "A1")

	_, err := f.payments.CreateCheckout(context.Background(), ticket.ID)
	assert.ErrorIs(t, err, apperrors.ErrProviderCommunication)
}
