package memstore

import (
	"context"
	"sync"
	"time"

	"ticketing/internal/notifications"
)

// Clock is a manually advanced time source
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{t: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Recorder is a notifications.Publisher that keeps everything it is given
type Recorder struct {
	mu     sync.Mutex
	events []notifications.TicketEvent
}

func (r *Recorder) Publish(_ context.Context, event *notifications.TicketEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Types returns the recorded event types in publish order
func (r *Recorder) Types() []notifications.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notifications.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// Last returns the most recent event of type t
func (r *Recorder) Last(t notifications.EventType) (notifications.TicketEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == t {
			return r.events[i], true
		}
	}
	return notifications.TicketEvent{}, false
}
