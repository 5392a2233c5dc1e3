package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ticketing/internal/seats"
	"ticketing/internal/shared/apperrors"
	"ticketing/internal/shared/constants"
	"ticketing/internal/shared/txn"
	"ticketing/pkg/cache"
	"ticketing/pkg/logger"

	"github.com/google/uuid"
)

type Service interface {
	CreateEvent(ctx context.Context, organizerID uuid.UUID, in CreateEventInput) (*Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*Event, error)
	GetInventory(ctx context.Context, id uuid.UUID) (*Inventory, error)
	InvalidateEvent(ctx context.Context, id uuid.UUID)
}

type service struct {
	repo     Repository
	seatRepo seats.Repository
	txm      txn.Manager
	cache    cache.Service
	currency string
	log      *logger.Logger
}

type Option func(*service)

func WithCache(c cache.Service) Option {
	return func(s *service) { s.cache = c }
}

func WithCurrency(currency string) Option {
	return func(s *service) { s.currency = currency }
}

func NewService(repo Repository, seatRepo seats.Repository, txm txn.Manager, opts ...Option) Service {
	s := &service{
		repo:     repo,
		seatRepo: seatRepo,
		txm:      txm,
		currency: "USD",
		log:      logger.GetDefault(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEvent stores the event and its seating chart in one transaction, so
// an event never exists without its seats.
func (s *service) CreateEvent(ctx context.Context, organizerID uuid.UUID, in CreateEventInput) (*Event, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Venue = strings.TrimSpace(in.Venue)
	if in.Name == "" || in.Venue == "" {
		return nil, apperrors.Invalid("event name and venue are required")
	}
	if in.StartsAt.IsZero() {
		return nil, apperrors.Invalid("event start time is required")
	}
	if len(in.Sections) == 0 {
		return nil, apperrors.Invalid("at least one section is required")
	}
	if in.CreditCost <= 0 {
		in.CreditCost = 1
	}
	if in.Currency == "" {
		in.Currency = s.currency
	}

	event := &Event{
		ID:          uuid.New(),
		OrganizerID: organizerID,
		Name:        in.Name,
		Venue:       in.Venue,
		StartsAt:    in.StartsAt.UTC(),
		CreditCost:  in.CreditCost,
		Currency:    strings.ToUpper(in.Currency),
		Sections:    in.Sections,
	}

	chart, err := seats.GenerateSeats(event.ID, in.Sections)
	if err != nil {
		return nil, apperrors.Invalid("%s", err.Error())
	}

	err = s.txm.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, event); err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		if err := s.seatRepo.CreateSeats(ctx, chart); err != nil {
			return fmt.Errorf("create seats: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "event created",
		"event_id", event.ID.String(), "organizer_id", organizerID.String(), "seats", len(chart))
	return event, nil
}

func (s *service) GetEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	if s.cache == nil {
		return s.repo.GetByID(ctx, id)
	}

	var event Event
	err := s.cache.GetOrSet(ctx, constants.EventDetailKey(id.String()), constants.TTL_EVENT_DETAIL, func() (interface{}, error) {
		return s.repo.GetByID(ctx, id)
	}, &event)
	if err != nil {
		if errors.Is(err, apperrors.ErrEventNotFound) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (s *service) GetInventory(ctx context.Context, id uuid.UUID) (*Inventory, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	counts, err := s.seatRepo.CountByStatus(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count seats: %w", err)
	}
	inv := &Inventory{
		EventID:   id,
		Available: counts[seats.StatusAvailable],
		Reserved:  counts[seats.StatusReserved],
		Occupied:  counts[seats.StatusOccupied],
	}
	inv.Total = inv.Available + inv.Reserved + inv.Occupied
	return inv, nil
}

func (s *service) InvalidateEvent(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, constants.EventDetailKey(id.String())); err != nil {
		s.log.WarnContext(ctx, "failed to invalidate event cache", "event_id", id.String(), "error", err)
	}
}
