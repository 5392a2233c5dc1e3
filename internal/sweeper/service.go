package sweeper

import (
	"context"
	"fmt"
	"time"

	"ticketing/internal/payments"
	"ticketing/internal/seats"
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/constants"
	"ticketing/internal/shared/metrics"
	"ticketing/internal/shared/txn"
	"ticketing/internal/tickets"
	"ticketing/pkg/logger"

	"github.com/google/uuid"
)

const expiredReason = "reservation expired"

// TicketCloser fails a pending ticket and gives back whatever seats it still holds
type TicketCloser interface {
	ReleaseOnFailure(ctx context.Context, ticketID uuid.UUID, reason string) (*payments.Closure, error)
}

type Service interface {
	Sweep(ctx context.Context) (*Result, error)
}

type Result struct {
	ReleasedSeats int   `json:"released_seats"`
	FailedTickets int   `json:"failed_tickets"`
	Errors        int   `json:"errors"`
	Skipped       bool  `json:"skipped"`
	DurationMS    int64 `json:"duration_ms"`
}

type service struct {
	seatRepo     seats.Repository
	ticketRepo   tickets.Repository
	closer       TicketCloser
	txm          txn.Manager
	cfg          config.SweeperConfig
	locker       Locker
	availability payments.AvailabilityInvalidator
	log          *logger.Logger
	now          func() time.Time
}

type Option func(*service)

func WithLocker(l Locker) Option {
	return func(s *service) { s.locker = l }
}

func WithAvailability(a payments.AvailabilityInvalidator) Option {
	return func(s *service) { s.availability = a }
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(seatRepo seats.Repository, ticketRepo tickets.Repository, closer TicketCloser, txm txn.Manager, cfg config.SweeperConfig, opts ...Option) Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.TicketStaleAfter <= 0 {
		cfg.TicketStaleAfter = 15 * time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 50 * time.Second
	}
	s := &service{
		seatRepo:   seatRepo,
		ticketRepo: ticketRepo,
		closer:     closer,
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

// Sweep releases lapsed holds and fails the tickets that depended on them.
// It is safe to run from several processes at once: every step is a guarded
// update, so a seat or ticket is only ever released once.
func (s *service) Sweep(ctx context.Context) (*Result, error) {
	started := s.now()
	result := &Result{}

	if s.locker != nil {
		token, ok, err := s.locker.Acquire(ctx, constants.LOCK_KEY_EXPIRY_SWEEP, s.cfg.LockTTL)
		switch {
		case err != nil:
			s.log.WarnContext(ctx, "sweep lock unavailable, sweeping without it", "error", err)
		case !ok:
			result.Skipped = true
			s.log.DebugContext(ctx, "another process is sweeping")
			return result, nil
		default:
			defer func() {
				if err := s.locker.Release(context.WithoutCancel(ctx), constants.LOCK_KEY_EXPIRY_SWEEP, token); err != nil {
					s.log.WarnContext(ctx, "failed to release sweep lock", "error", err)
				}
			}()
		}
	}

	now := s.now().UTC()
	var (
		ticketIDs []uuid.UUID
		seen      = make(map[uuid.UUID]bool)
		touched   = make(map[uuid.UUID]bool)
	)
	collect := func(id uuid.UUID) {
		if !seen[id] {
			seen[id] = true
			ticketIDs = append(ticketIDs, id)
		}
	}

	// a failed batch stops releasing but the ticket steps still run
	var releaseErr error
	for {
		var batch []seats.Seat
		err := s.txm.WithTx(ctx, func(ctx context.Context) error {
			var err error
			batch, err = s.seatRepo.ReleaseExpired(ctx, now, s.cfg.BatchSize)
			return err
		})
		if err != nil {
			result.Errors++
			releaseErr = fmt.Errorf("release expired holds: %w", err)
			s.log.ErrorContext(ctx, "failed to release expired holds", "error", err)
			break
		}

		result.ReleasedSeats += len(batch)
		for _, seat := range batch {
			touched[seat.EventID] = true
			if seat.TicketID != nil {
				collect(*seat.TicketID)
			}
		}
		if len(batch) < s.cfg.BatchSize || ctx.Err() != nil {
			break
		}
	}

	stale, err := s.ticketRepo.FindStalePending(ctx, now.Add(-s.cfg.TicketStaleAfter), now, s.cfg.BatchSize)
	if err != nil {
		result.Errors++
		s.log.ErrorContext(ctx, "failed to list stale tickets", "error", err)
	}
	for _, id := range stale {
		collect(id)
	}

	for _, id := range ticketIDs {
		closure, err := s.closer.ReleaseOnFailure(ctx, id, expiredReason)
		if err != nil {
			result.Errors++
			s.log.ErrorContext(ctx, "failed to expire ticket", "ticket_id", id.String(), "error", err)
			continue
		}
		if closure.Changed {
			result.FailedTickets++
		}
	}

	if s.availability != nil {
		for eventID := range touched {
			s.availability.InvalidateAvailability(ctx, eventID)
		}
	}

	s.finish(ctx, result, started)
	return result, releaseErr
}

func (s *service) finish(ctx context.Context, result *Result, started time.Time) {
	elapsed := s.now().Sub(started)
	result.DurationMS = elapsed.Milliseconds()

	metrics.SweepReleasedSeats.Add(float64(result.ReleasedSeats))
	metrics.SweepFailedTickets.Add(float64(result.FailedTickets))
	metrics.SweepErrors.Add(float64(result.Errors))
	metrics.SweepDuration.Observe(elapsed.Seconds())

	if result.ReleasedSeats > 0 || result.FailedTickets > 0 || result.Errors > 0 {
		s.log.LogSweep(ctx, result.ReleasedSeats, result.FailedTickets, result.Errors, elapsed)
	}
}
