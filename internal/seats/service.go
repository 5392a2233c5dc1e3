package seats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ticketing/internal/shared/apperrors"
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/constants"
	"ticketing/internal/shared/metrics"
	"ticketing/internal/shared/txn"
	"ticketing/pkg/cache"
	"ticketing/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Service interface {
	// ReserveSeats holds every requested seat for the session or none of them
	ReserveSeats(ctx context.Context, in ReserveInput) (*Reservation, error)
	VerifyHold(ctx context.Context, eventID uuid.UUID, seatIDs []string, sessionID string) (*HoldVerification, error)
	ReleaseSeats(ctx context.Context, eventID uuid.UUID, seatIDs []string, sessionID string) (int64, error)

	GetAvailability(ctx context.Context, eventID uuid.UUID) (*Availability, error)
	InvalidateAvailability(ctx context.Context, eventID uuid.UUID)
}

type service struct {
	repo  Repository
	txm   txn.Manager
	cfg   config.ReservationConfig
	cache cache.Service
	ttl   time.Duration
	log   *logger.Logger
	now   func() time.Time
}

type Option func(*service)

func WithCache(c cache.Service, ttl time.Duration) Option {
	return func(s *service) {
		s.cache = c
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *service) { s.log = l }
}

func NewService(repo Repository, txm txn.Manager, cfg config.ReservationConfig, opts ...Option) Service {
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = 15 * time.Minute
	}
	s := &service{
		repo: repo,
		txm:  txm,
		cfg:  cfg,
		ttl:  constants.TTL_SEAT_AVAILABILITY,
		log:  logger.GetDefault(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

//  HOLDS

func (s *service) ReserveSeats(ctx context.Context, in ReserveInput) (*Reservation, error) {
	ids := NormalizeSeatIDs(in.SeatIDs)
	sessionID := strings.TrimSpace(in.SessionID)
	if len(ids) == 0 {
		return nil, apperrors.Invalid("at least one seat is required")
	}
	if s.cfg.MaxSeatsPerHold > 0 && len(ids) > s.cfg.MaxSeatsPerHold {
		return nil, apperrors.Invalid("at most %d seats can be held at once", s.cfg.MaxSeatsPerHold)
	}
	if sessionID == "" {
		return nil, apperrors.Invalid("session id is required")
	}

	hold := in.HoldDuration
	if hold <= 0 {
		hold = s.cfg.HoldTTL
	}
	if s.cfg.MaxHoldTTL > 0 && hold > s.cfg.MaxHoldTTL {
		hold = s.cfg.MaxHoldTTL
	}
	expiresAt := s.now().UTC().Add(hold)

	var reserved []Seat
	err := s.txm.WithTx(ctx, func(ctx context.Context) error {
		locked, err := s.repo.LockSeats(ctx, in.EventID, ids)
		if err != nil {
			return fmt.Errorf("lock seats: %w", err)
		}
		if blocked := unavailableForHold(ids, locked, sessionID); len(blocked) > 0 {
			return &apperrors.SeatUnavailableError{Seats: blocked}
		}

		n, err := s.repo.Hold(ctx, in.EventID, ids, sessionID, expiresAt)
		if err != nil {
			return fmt.Errorf("hold seats: %w", err)
		}
		if n != int64(len(ids)) {
			current, err := s.repo.GetSeats(ctx, in.EventID, ids)
			if err != nil {
				return fmt.Errorf("reload seats: %w", err)
			}
			blocked := unavailableForHold(ids, current, sessionID)
			if len(blocked) == 0 {
				blocked = ids
			}
			return &apperrors.SeatUnavailableError{Seats: blocked}
		}

		reserved, err = s.repo.GetSeats(ctx, in.EventID, ids)
		return err
	})
	if err != nil {
		var unavailable *apperrors.SeatUnavailableError
		if errors.As(err, &unavailable) {
			metrics.SeatReservations.WithLabelValues("conflict").Inc()
			s.log.LogReservationRejected(ctx, in.EventID.String(), sessionID, unavailable.Seats)
		} else {
			metrics.SeatReservations.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	metrics.SeatReservations.WithLabelValues("reserved").Inc()
	s.log.LogSeatsReserved(ctx, in.EventID.String(), sessionID, ids, expiresAt)
	s.InvalidateAvailability(ctx, in.EventID)

	total := decimal.Zero
	for _, seat := range reserved {
		total = total.Add(seat.Price)
	}

	return &Reservation{
		EventID:    in.EventID,
		SessionID:  sessionID,
		Seats:      reserved,
		TotalPrice: total,
		ExpiresAt:  expiresAt,
	}, nil
}

func (s *service) VerifyHold(ctx context.Context, eventID uuid.UUID, seatIDs []string, sessionID string) (*HoldVerification, error) {
	ids := NormalizeSeatIDs(seatIDs)
	if len(ids) == 0 {
		return nil, apperrors.Invalid("at least one seat is required")
	}

	current, err := s.repo.GetSeats(ctx, eventID, ids)
	if err != nil {
		return nil, fmt.Errorf("get seats: %w", err)
	}

	now := s.now()
	bySeat := indexSeats(current)
	result := &HoldVerification{UnavailableSeats: []string{}}
	for _, id := range ids {
		seat, ok := bySeat[id]
		switch {
		case !ok:
			result.UnavailableSeats = append(result.UnavailableSeats, id)
		case seat.Status == StatusAvailable:
		case seat.HeldBy(sessionID, now):
			if result.ExpiresAt == nil || seat.HoldExpiresAt.Before(*result.ExpiresAt) {
				t := *seat.HoldExpiresAt
				result.ExpiresAt = &t
			}
		default:
			result.UnavailableSeats = append(result.UnavailableSeats, id)
		}
	}
	result.AllAvailableOrHeld = len(result.UnavailableSeats) == 0
	return result, nil
}

func (s *service) ReleaseSeats(ctx context.Context, eventID uuid.UUID, seatIDs []string, sessionID string) (int64, error) {
	ids := NormalizeSeatIDs(seatIDs)
	if len(ids) == 0 || strings.TrimSpace(sessionID) == "" {
		return 0, apperrors.Invalid("seats and session id are required")
	}

	n, err := s.repo.Release(ctx, eventID, ids, strings.TrimSpace(sessionID))
	if err != nil {
		return 0, fmt.Errorf("release seats: %w", err)
	}
	if n > 0 {
		s.InvalidateAvailability(ctx, eventID)
	}
	return n, nil
}

//  AVAILABILITY

func (s *service) GetAvailability(ctx context.Context, eventID uuid.UUID) (*Availability, error) {
	fetch := func() (interface{}, error) {
		list, err := s.repo.ListByEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}
		return buildAvailability(eventID, list), nil
	}

	if s.cache == nil {
		v, err := fetch()
		if err != nil {
			return nil, fmt.Errorf("list seats: %w", err)
		}
		return v.(*Availability), nil
	}

	var out Availability
	if err := s.cache.GetOrSet(ctx, constants.SeatAvailabilityKey(eventID.String()), s.ttl, fetch, &out); err != nil {
		return nil, fmt.Errorf("seat availability: %w", err)
	}
	return &out, nil
}

func (s *service) InvalidateAvailability(ctx context.Context, eventID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, constants.SeatAvailabilityKey(eventID.String())); err != nil {
		s.log.WarnContext(ctx, "failed to invalidate seat availability", "event_id", eventID.String(), "error", err)
	}
}

// unavailableForHold lists, in request order, the seats that are missing or
// cannot be held by sessionID. A lapsed hold of another session still blocks
// until the sweep releases it.
func unavailableForHold(ids []string, current []Seat, sessionID string) []string {
	bySeat := indexSeats(current)
	var blocked []string
	for _, id := range ids {
		seat, ok := bySeat[id]
		if !ok {
			blocked = append(blocked, id)
			continue
		}
		if seat.Status == StatusAvailable {
			continue
		}
		if seat.Status == StatusReserved && seat.HoldSessionID != nil && *seat.HoldSessionID == sessionID {
			continue
		}
		blocked = append(blocked, id)
	}
	return blocked
}

func indexSeats(list []Seat) map[string]*Seat {
	m := make(map[string]*Seat, len(list))
	for i := range list {
		m[list[i].SeatID] = &list[i]
	}
	return m
}

func buildAvailability(eventID uuid.UUID, list []Seat) *Availability {
	out := &Availability{EventID: eventID, Seats: make([]SeatView, 0, len(list))}
	for _, seat := range list {
		out.Seats = append(out.Seats, SeatView{
			SeatID:  seat.SeatID,
			Section: seat.Section,
			Row:     seat.Row,
			Number:  seat.Number,
			Type:    seat.Type,
			Price:   seat.Price,
			Status:  seat.Status,
		})
		switch seat.Status {
		case StatusAvailable:
			out.Available++
		case StatusReserved:
			out.Reserved++
		case StatusOccupied:
			out.Occupied++
		}
	}
	return out
}
