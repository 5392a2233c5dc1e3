package memstore

import (
	"context"
	"sort"
	"time"

	"ticketing/internal/seats"
	"ticketing/internal/shared/apperrors"
	"ticketing/internal/tickets"

	"github.com/google/uuid"
)

type ticketRepo struct{ s *Store }

func (r *ticketRepo) Create(ctx context.Context, t *tickets.Ticket) error {
	return r.s.run(ctx, "tickets.Create", func(d *state) error {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		if _, dup := d.tickets[t.ID]; dup {
			return errDuplicate("ticket", t.ID.String())
		}
		for _, other := range d.tickets {
			if other.QRCode == t.QRCode {
				return errDuplicate("qr_code", t.QRCode)
			}
		}
		now := r.s.now()
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		t.UpdatedAt = now
		if t.Status == "" {
			t.Status = tickets.StatusPending
		}
		d.tickets[t.ID] = *t
		return nil
	})
}

func (r *ticketRepo) GetByID(ctx context.Context, id uuid.UUID) (*tickets.Ticket, error) {
	var out *tickets.Ticket
	err := r.s.run(ctx, "tickets.GetByID", func(d *state) error {
		t, ok := d.tickets[id]
		if !ok {
			return apperrors.ErrTicketNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (r *ticketRepo) GetByQRCode(ctx context.Context, qrCode string) (*tickets.Ticket, error) {
	var out *tickets.Ticket
	err := r.s.run(ctx, "tickets.GetByQRCode", func(d *state) error {
		for _, t := range d.tickets {
			if t.QRCode == qrCode {
				t := t
				out = &t
				return nil
			}
		}
		return apperrors.ErrTicketNotFound
	})
	return out, err
}

func (r *ticketRepo) Transition(ctx context.Context, id uuid.UUID, from, to tickets.Status, patch tickets.Patch) (bool, error) {
	var changed bool
	err := r.s.run(ctx, "tickets.Transition", func(d *state) error {
		t, ok := d.tickets[id]
		if !ok || t.Status != from {
			return nil
		}
		patch.ApplyTo(&t)
		t.Status = to
		t.UpdatedAt = r.s.now()
		d.tickets[id] = t
		changed = true
		return nil
	})
	return changed, err
}

func (r *ticketRepo) Annotate(ctx context.Context, id uuid.UUID, patch tickets.Patch) error {
	return r.s.run(ctx, "tickets.Annotate", func(d *state) error {
		t, ok := d.tickets[id]
		if !ok {
			return nil
		}
		patch.ApplyTo(&t)
		t.UpdatedAt = r.s.now()
		d.tickets[id] = t
		return nil
	})
}

func (r *ticketRepo) FindStalePending(ctx context.Context, cutoff, now time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.s.run(ctx, "tickets.FindStalePending", func(d *state) error {
		live := make(map[uuid.UUID]bool)
		for _, seat := range d.seats {
			if seat.Status == seats.StatusReserved && seat.TicketID != nil &&
				seat.HoldExpiresAt != nil && seat.HoldExpiresAt.After(now) {
				live[*seat.TicketID] = true
			}
		}

		var stale []tickets.Ticket
		for _, t := range d.tickets {
			if t.Status == tickets.StatusPending && t.CreatedAt.Before(cutoff) && !live[t.ID] {
				stale = append(stale, t)
			}
		}
		sort.Slice(stale, func(i, j int) bool { return stale[i].CreatedAt.Before(stale[j].CreatedAt) })
		for i, t := range stale {
			if limit > 0 && i == limit {
				break
			}
			ids = append(ids, t.ID)
		}
		return nil
	})
	return ids, err
}
