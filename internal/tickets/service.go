package tickets

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"ticketing/internal/notifications"
	"ticketing/internal/seats"
	"ticketing/internal/shared/apperrors"
	"ticketing/internal/shared/metrics"
	"ticketing/internal/shared/txn"
	"ticketing/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Service interface {
	// CreateTicket turns a live hold into a PENDING ticket bound to its seats
	CreateTicket(ctx context.Context, in CreateTicketInput) (*Ticket, error)
	GetTicket(ctx context.Context, id uuid.UUID) (*Ticket, error)
	// ValidateAndUse admits a PAID ticket exactly once. ref is a ticket id or QR code.
	ValidateAndUse(ctx context.Context, ref string) (*Ticket, error)
}

type service struct {
	repo      Repository
	seatRepo  seats.Repository
	txm       txn.Manager
	publisher notifications.Publisher
	currency  string
	log       *logger.Logger
	now       func() time.Time
	newQRCode func() (string, error)
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func WithPublisher(p notifications.Publisher) Option {
	return func(s *service) { s.publisher = p }
}

func WithCurrency(code string) Option {
	return func(s *service) {
		if code != "" {
			s.currency = code
		}
	}
}

func NewService(repo Repository, seatRepo seats.Repository, txm txn.Manager, opts ...Option) Service {
	s := &service{
		repo:      repo,
		seatRepo:  seatRepo,
		txm:       txm,
		currency:  "USD",
		log:       logger.GetDefault(),
		now:       time.Now,
		newQRCode: GenerateQRCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateTicket(ctx context.Context, in CreateTicketInput) (*Ticket, error) {
	ids := seats.NormalizeSeatIDs(in.SeatIDs)
	sessionID := strings.TrimSpace(in.SessionID)
	if len(ids) == 0 {
		return nil, apperrors.Invalid("at least one seat is required")
	}
	if sessionID == "" {
		return nil, apperrors.Invalid("session id is required")
	}
	if in.ExpectedPrice.IsNegative() {
		return nil, apperrors.Invalid("price cannot be negative")
	}

	qr, err := s.newQRCode()
	if err != nil {
		return nil, fmt.Errorf("generate qr code: %w", err)
	}

	now := s.now().UTC()
	ticket := &Ticket{
		ID:        uuid.New(),
		EventID:   in.EventID,
		SessionID: sessionID,
		Seats:     datatypes.JSONSlice[string](ids),
		Status:    StatusPending,
		QRCode:    qr,
		BuyerInfo: datatypes.NewJSONType(in.BuyerInfo),
		Currency:  s.currency,
	}
	var superseded []uuid.UUID

	err = s.txm.WithTx(ctx, func(ctx context.Context) error {
		locked, err := s.seatRepo.LockSeats(ctx, in.EventID, ids)
		if err != nil {
			return fmt.Errorf("lock seats: %w", err)
		}

		// a session restarting checkout replaces its earlier pending ticket
		superseded, err = s.supersede(ctx, locked, sessionID, now)
		if err != nil {
			return err
		}

		ticket.Price = decimal.Zero
		for _, seat := range locked {
			ticket.Price = ticket.Price.Add(seat.Price)
		}

		if err := s.repo.Create(ctx, ticket); err != nil {
			return fmt.Errorf("create ticket: %w", err)
		}

		n, err := s.seatRepo.BindTicket(ctx, in.EventID, ids, sessionID, ticket.ID, now)
		if err != nil {
			return fmt.Errorf("bind seats: %w", err)
		}
		if n != int64(len(ids)) {
			return s.bindFailure(ctx, in.EventID, ids, locked, sessionID, now)
		}
		if !in.ExpectedPrice.IsZero() && !in.ExpectedPrice.Equal(ticket.Price) {
			return apperrors.Invalid("price %s does not match the seat total %s", in.ExpectedPrice, ticket.Price)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, id := range superseded {
		metrics.TicketTransitions.WithLabelValues(string(StatusPending), string(StatusCancelled)).Inc()
		s.log.LogTicketTransition(ctx, id.String(), string(StatusPending), string(StatusCancelled), "superseded")
	}
	s.log.LogTicketTransition(ctx, ticket.ID.String(), "", string(StatusPending), "created")

	event := notifications.NewTicketEvent(notifications.EventTicketCreated, in.EventID.String(), ticket.ID.String())
	event.Status = string(ticket.Status)
	event.Seats = ids
	notifications.Emit(ctx, s.publisher, event)

	return ticket, nil
}

// supersede cancels earlier PENDING tickets of the same session still bound
// to any of the locked seats, and unbinds them so the hold can be rebound.
func (s *service) supersede(ctx context.Context, locked []seats.Seat, sessionID string, now time.Time) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool)
	var cancelled []uuid.UUID
	for _, seat := range locked {
		if seat.TicketID == nil || seat.HoldSessionID == nil || *seat.HoldSessionID != sessionID || seen[*seat.TicketID] {
			continue
		}
		prev := *seat.TicketID
		seen[prev] = true

		reason := "superseded by a new checkout"
		ok, err := s.repo.Transition(ctx, prev, StatusPending, StatusCancelled, Patch{FailureReason: &reason, ClosedAt: &now})
		if err != nil {
			return nil, fmt.Errorf("cancel superseded ticket: %w", err)
		}
		if _, err := s.seatRepo.UnbindTicket(ctx, prev); err != nil {
			return nil, fmt.Errorf("unbind superseded ticket: %w", err)
		}
		if ok {
			cancelled = append(cancelled, prev)
		}
	}
	return cancelled, nil
}

// bindFailure explains why not every seat could be bound: the caller's own
// hold lapsed, the event has nothing left, or some seats belong to others.
func (s *service) bindFailure(ctx context.Context, eventID uuid.UUID, ids []string, locked []seats.Seat, sessionID string, now time.Time) error {
	bySeat := make(map[string]seats.Seat, len(locked))
	for _, seat := range locked {
		bySeat[seat.SeatID] = seat
	}

	var expired, blocked []string
	for _, id := range ids {
		seat, ok := bySeat[id]
		switch {
		case !ok:
			blocked = append(blocked, id)
		case seat.HeldBy(sessionID, now):
		case seat.HoldExpired(sessionID, now):
			expired = append(expired, id)
		default:
			blocked = append(blocked, id)
		}
	}

	if len(blocked) == 0 && len(expired) > 0 {
		return &apperrors.HoldExpiredError{Seats: expired}
	}

	counts, err := s.seatRepo.CountByStatus(ctx, eventID)
	if err != nil {
		return fmt.Errorf("count seats: %w", err)
	}
	if counts[seats.StatusAvailable] == 0 && len(blocked) > 0 {
		return fmt.Errorf("%w: %w", apperrors.ErrSoldOut, &apperrors.SeatUnavailableError{Seats: blocked})
	}

	if len(blocked) == 0 {
		blocked = ids
	}
	return &apperrors.SeatUnavailableError{Seats: append(blocked, expired...)}
}

func (s *service) GetTicket(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ValidateAndUse(ctx context.Context, ref string) (*Ticket, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperrors.ErrInvalidTicket
	}

	ticket, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ok, err := s.repo.Transition(ctx, ticket.ID, StatusPaid, StatusUsed, Patch{UsedAt: &now})
	if err != nil {
		return nil, fmt.Errorf("use ticket: %w", err)
	}
	if !ok {
		current, err := s.repo.GetByID(ctx, ticket.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == StatusUsed {
			return current, apperrors.ErrAlreadyUsed
		}
		return current, fmt.Errorf("%w: ticket is %s", apperrors.ErrNotPayable, current.Status)
	}

	metrics.TicketTransitions.WithLabelValues(string(StatusPaid), string(StatusUsed)).Inc()
	s.log.LogTicketTransition(ctx, ticket.ID.String(), string(StatusPaid), string(StatusUsed), "admitted")

	ticket.Status = StatusUsed
	ticket.UsedAt = &now

	event := notifications.NewTicketEvent(notifications.EventTicketUsed, ticket.EventID.String(), ticket.ID.String())
	event.Status = string(StatusUsed)
	event.Seats = ticket.SeatIDs()
	notifications.Emit(ctx, s.publisher, event)

	return ticket, nil
}

func (s *service) resolve(ctx context.Context, ref string) (*Ticket, error) {
	if id, err := uuid.Parse(ref); err == nil {
		ticket, err := s.repo.GetByID(ctx, id)
		if err == nil || !errors.Is(err, apperrors.ErrTicketNotFound) {
			return ticket, err
		}
	}
	return s.repo.GetByQRCode(ctx, ref)
}

// GenerateQRCode returns a 128-bit random token encoded as hex
func GenerateQRCode() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "TKT-" + strings.ToUpper(hex.EncodeToString(buf)), nil
}
