package memstore

import (
	"context"
	"time"

	"ticketing/internal/events"
	"ticketing/internal/shared/apperrors"

	"github.com/google/uuid"
)

type eventRepo struct{ s *Store }

func (r *eventRepo) Create(ctx context.Context, e *events.Event) error {
	return r.s.run(ctx, "events.Create", func(d *state) error {
		if _, dup := d.events[e.ID]; dup {
			return errDuplicate("event", e.ID.String())
		}
		now := r.s.now()
		e.CreatedAt, e.UpdatedAt = now, now
		d.events[e.ID] = *e
		return nil
	})
}

func (r *eventRepo) GetByID(ctx context.Context, id uuid.UUID) (*events.Event, error) {
	return r.get(ctx, "events.GetByID", id)
}

func (r *eventRepo) LockByID(ctx context.Context, id uuid.UUID) (*events.Event, error) {
	return r.get(ctx, "events.LockByID", id)
}

func (r *eventRepo) get(ctx context.Context, op string, id uuid.UUID) (*events.Event, error) {
	var out *events.Event
	err := r.s.run(ctx, op, func(d *state) error {
		e, ok := d.events[id]
		if !ok {
			return apperrors.ErrEventNotFound
		}
		out = &e
		return nil
	})
	return out, err
}

func (r *eventRepo) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	var changed bool
	err := r.s.run(ctx, "events.MarkPublished", func(d *state) error {
		e, ok := d.events[id]
		if !ok || e.Published {
			return nil
		}
		published := at
		e.Published = true
		e.PublishedAt = &published
		e.UpdatedAt = r.s.now()
		d.events[id] = e
		changed = true
		return nil
	})
	return changed, err
}
