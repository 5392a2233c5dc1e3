// Package memstore is an in-memory implementation of the repositories and
// the transaction manager. A transaction holds the store lock for its whole
// duration and restores a snapshot when it fails, which gives tests the same
// all-or-nothing and serialization guarantees as the database.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ticketing/internal/credits"
	"ticketing/internal/events"
	"ticketing/internal/seats"
	"ticketing/internal/tickets"

	"github.com/google/uuid"
)

type seatKey struct {
	eventID uuid.UUID
	seatID  string
}

type state struct {
	seats        map[seatKey]seats.Seat
	tickets      map[uuid.UUID]tickets.Ticket
	events       map[uuid.UUID]events.Event
	balances     map[uuid.UUID]int64
	transactions map[string]credits.Transaction
}

func (s *state) clone() *state {
	c := &state{
		seats:        make(map[seatKey]seats.Seat, len(s.seats)),
		tickets:      make(map[uuid.UUID]tickets.Ticket, len(s.tickets)),
		events:       make(map[uuid.UUID]events.Event, len(s.events)),
		balances:     make(map[uuid.UUID]int64, len(s.balances)),
		transactions: make(map[string]credits.Transaction, len(s.transactions)),
	}
	for k, v := range s.seats {
		c.seats[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	return c
}

// Store values are never mutated in place: every write replaces the map entry,
// so a snapshot can share the pointed-to fields with the live state.
type Store struct {
	mu     sync.Mutex
	data   *state
	faults map[string]error

	// Now stamps CreatedAt and UpdatedAt
	Now func() time.Time
}

type txKey struct{}

func New() *Store {
	return &Store{
		data: &state{
			seats:        make(map[seatKey]seats.Seat),
			tickets:      make(map[uuid.UUID]tickets.Ticket),
			events:       make(map[uuid.UUID]events.Event),
			balances:     make(map[uuid.UUID]int64),
			transactions: make(map[string]credits.Transaction),
		},
		faults: make(map[string]error),
		Now:    time.Now,
	}
}

func (s *Store) Seats() seats.Repository     { return &seatRepo{s} }
func (s *Store) Tickets() tickets.Repository { return &ticketRepo{s} }
func (s *Store) Events() events.Repository   { return &eventRepo{s} }
func (s *Store) Credits() credits.Repository { return &creditRepo{s} }

// WithTx implements txn.Manager
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// FailNext makes the next call of op return err. op is "Repo.Method", e.g. "seats.Occupy".
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// run executes fn under the store lock unless ctx already holds it
func (s *Store) run(ctx context.Context, op string, fn func(d *state) error) error {
	if !s.inTx(ctx) {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	if err, ok := s.faults[op]; ok {
		delete(s.faults, op)
		return err
	}
	return fn(s.data)
}

func (s *Store) now() time.Time {
	return s.Now().UTC()
}

//  INSPECTION HELPERS

// Seat returns the stored seat or false
func (s *Store) Seat(eventID uuid.UUID, seatID string) (seats.Seat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.data.seats[seatKey{eventID, seatID}]
	return seat, ok
}

// Ticket returns the stored ticket or false
func (s *Store) Ticket(id uuid.UUID) (tickets.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.data.tickets[id]
	return t, ok
}

// SeedEvent stores an event and its generated seating chart
func (s *Store) SeedEvent(event events.Event, layouts []seats.SectionLayout) ([]seats.Seat, error) {
	chart, err := seats.GenerateSeats(event.ID, layouts)
	if err != nil {
		return nil, err
	}
	event.Sections = layouts
	ctx := context.Background()
	err = s.WithTx(ctx, func(ctx context.Context) error {
		if err := s.Events().Create(ctx, &event); err != nil {
			return err
		}
		return s.Seats().CreateSeats(ctx, chart)
	})
	return chart, err
}

// SetBalance overwrites a user's credit balance
func (s *Store) SetBalance(userID uuid.UUID, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.balances[userID] = balance
}

// ExpireHolds moves every live hold of the event into the past, as if the
// hold TTL had elapsed without a sweep.
func (s *Store) ExpireHolds(eventID uuid.UUID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, seat := range s.data.seats {
		if k.eventID == eventID && seat.Status == seats.StatusReserved {
			past := at
			seat.HoldExpiresAt = &past
			s.data.seats[k] = seat
		}
	}
}

func errDuplicate(kind, key string) error {
	return fmt.Errorf("duplicate key value violates unique constraint: %s %s", kind, key)
}
