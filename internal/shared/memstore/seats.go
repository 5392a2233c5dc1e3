package memstore

import (
	"context"
	"sort"
	"time"

	"ticketing/internal/seats"

	"github.com/google/uuid"
)

type seatRepo struct{ s *Store }

func (r *seatRepo) CreateSeats(ctx context.Context, list []seats.Seat) error {
	return r.s.run(ctx, "seats.CreateSeats", func(d *state) error {
		now := r.s.now()
		for _, seat := range list {
			k := seatKey{seat.EventID, seat.SeatID}
			if _, dup := d.seats[k]; dup {
				return errDuplicate("seat", seat.SeatID)
			}
			if seat.ID == uuid.Nil {
				seat.ID = uuid.New()
			}
			if seat.Status == "" {
				seat.Status = seats.StatusAvailable
			}
			seat.CreatedAt, seat.UpdatedAt = now, now
			d.seats[k] = seat
		}
		return nil
	})
}

func (r *seatRepo) GetSeats(ctx context.Context, eventID uuid.UUID, seatIDs []string) ([]seats.Seat, error) {
	var out []seats.Seat
	err := r.s.run(ctx, "seats.GetSeats", func(d *state) error {
		out = pick(d, eventID, seatIDs)
		return nil
	})
	return out, err
}

func (r *seatRepo) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]seats.Seat, error) {
	var out []seats.Seat
	err := r.s.run(ctx, "seats.ListByEvent", func(d *state) error {
		for k, seat := range d.seats {
			if k.eventID == eventID {
				out = append(out, seat)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			a, b := out[i], out[j]
			if a.Section != b.Section {
				return a.Section < b.Section
			}
			if a.Row != b.Row {
				return a.Row < b.Row
			}
			return a.Number < b.Number
		})
		return nil
	})
	return out, err
}

func (r *seatRepo) CountByStatus(ctx context.Context, eventID uuid.UUID) (map[seats.SeatStatus]int64, error) {
	counts := map[seats.SeatStatus]int64{seats.StatusAvailable: 0, seats.StatusReserved: 0, seats.StatusOccupied: 0}
	err := r.s.run(ctx, "seats.CountByStatus", func(d *state) error {
		for k, seat := range d.seats {
			if k.eventID == eventID {
				counts[seat.Status]++
			}
		}
		return nil
	})
	return counts, err
}

func (r *seatRepo) LockSeats(ctx context.Context, eventID uuid.UUID, seatIDs []string) ([]seats.Seat, error) {
	var out []seats.Seat
	err := r.s.run(ctx, "seats.LockSeats", func(d *state) error {
		out = pick(d, eventID, seatIDs)
		return nil
	})
	return out, err
}

func (r *seatRepo) Hold(ctx context.Context, eventID uuid.UUID, seatIDs []string, sessionID string, expiresAt time.Time) (int64, error) {
	return r.update(ctx, "seats.Hold", eventID, seatIDs, func(seat *seats.Seat) bool {
		if seat.Status != seats.StatusAvailable && !(seat.Status == seats.StatusReserved && heldBy(seat, sessionID)) {
			return false
		}
		session, until := sessionID, expiresAt
		seat.Status = seats.StatusReserved
		seat.HoldSessionID = &session
		seat.HoldExpiresAt = &until
		return true
	})
}

func (r *seatRepo) Release(ctx context.Context, eventID uuid.UUID, seatIDs []string, sessionID string) (int64, error) {
	return r.update(ctx, "seats.Release", eventID, seatIDs, func(seat *seats.Seat) bool {
		if seat.Status != seats.StatusReserved || !heldBy(seat, sessionID) || seat.TicketID != nil {
			return false
		}
		release(seat)
		return true
	})
}

func (r *seatRepo) BindTicket(ctx context.Context, eventID uuid.UUID, seatIDs []string, sessionID string, ticketID uuid.UUID, now time.Time) (int64, error) {
	return r.update(ctx, "seats.BindTicket", eventID, seatIDs, func(seat *seats.Seat) bool {
		if seat.Status != seats.StatusReserved || !heldBy(seat, sessionID) || seat.TicketID != nil ||
			seat.HoldExpiresAt == nil || !seat.HoldExpiresAt.After(now) {
			return false
		}
		id := ticketID
		seat.TicketID = &id
		return true
	})
}

func (r *seatRepo) UnbindTicket(ctx context.Context, ticketID uuid.UUID) (int64, error) {
	var n int64
	err := r.s.run(ctx, "seats.UnbindTicket", func(d *state) error {
		now := r.s.now()
		for k, seat := range d.seats {
			if seat.Status == seats.StatusReserved && boundTo(&seat, ticketID) {
				seat.TicketID = nil
				seat.UpdatedAt = now
				d.seats[k] = seat
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *seatRepo) Occupy(ctx context.Context, eventID uuid.UUID, seatIDs []string, ticketID uuid.UUID) (int64, error) {
	return r.update(ctx, "seats.Occupy", eventID, seatIDs, func(seat *seats.Seat) bool {
		if seat.Status != seats.StatusReserved || !boundTo(seat, ticketID) {
			return false
		}
		seat.Status = seats.StatusOccupied
		seat.HoldSessionID = nil
		seat.HoldExpiresAt = nil
		return true
	})
}

func (r *seatRepo) ReleaseForTicket(ctx context.Context, eventID uuid.UUID, seatIDs []string, ticketID uuid.UUID) (int64, error) {
	return r.update(ctx, "seats.ReleaseForTicket", eventID, seatIDs, func(seat *seats.Seat) bool {
		if seat.Status != seats.StatusReserved || !boundTo(seat, ticketID) {
			return false
		}
		release(seat)
		return true
	})
}

func (r *seatRepo) ReleaseExpired(ctx context.Context, now time.Time, limit int) ([]seats.Seat, error) {
	var released []seats.Seat
	err := r.s.run(ctx, "seats.ReleaseExpired", func(d *state) error {
		var expired []seatKey
		for k, seat := range d.seats {
			if seat.Status == seats.StatusReserved && seat.HoldExpiresAt != nil && seat.HoldExpiresAt.Before(now) {
				expired = append(expired, k)
			}
		}
		sort.Slice(expired, func(i, j int) bool {
			return d.seats[expired[i]].HoldExpiresAt.Before(*d.seats[expired[j]].HoldExpiresAt)
		})
		if limit > 0 && len(expired) > limit {
			expired = expired[:limit]
		}

		stamp := r.s.now()
		for _, k := range expired {
			seat := d.seats[k]
			released = append(released, seat)
			release(&seat)
			seat.UpdatedAt = stamp
			d.seats[k] = seat
		}
		return nil
	})
	return released, err
}

// update applies fn to each addressed seat and counts the ones it changed
func (r *seatRepo) update(ctx context.Context, op string, eventID uuid.UUID, seatIDs []string, fn func(*seats.Seat) bool) (int64, error) {
	var n int64
	err := r.s.run(ctx, op, func(d *state) error {
		now := r.s.now()
		for _, id := range seatIDs {
			k := seatKey{eventID, id}
			seat, ok := d.seats[k]
			if !ok {
				continue
			}
			if fn(&seat) {
				seat.UpdatedAt = now
				d.seats[k] = seat
				n++
			}
		}
		return nil
	})
	return n, err
}

func pick(d *state, eventID uuid.UUID, seatIDs []string) []seats.Seat {
	var out []seats.Seat
	for _, id := range seatIDs {
		if seat, ok := d.seats[seatKey{eventID, id}]; ok {
			out = append(out, seat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatID < out[j].SeatID })
	return out
}

func heldBy(seat *seats.Seat, sessionID string) bool {
	return seat.HoldSessionID != nil && *seat.HoldSessionID == sessionID
}

func boundTo(seat *seats.Seat, ticketID uuid.UUID) bool {
	return seat.TicketID != nil && *seat.TicketID == ticketID
}

func release(seat *seats.Seat) {
	seat.Status = seats.StatusAvailable
	seat.HoldSessionID = nil
	seat.HoldExpiresAt = nil
	seat.TicketID = nil
}
