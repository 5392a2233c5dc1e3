package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ticketing/internal/events"
	"ticketing/internal/seats"
	"ticketing/internal/shared/apperrors"
	"ticketing/internal/shared/constants"
	"ticketing/internal/shared/memstore"
	"ticketing/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapCache keeps JSON values in memory and counts fetcher calls
type mapCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	fetches int
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string][]byte)} }

func (c *mapCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	raw, ok := c.data[key]
	c.mu.Unlock()
	if !ok {
		return errors.New("miss")
	}
	return json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *mapCache) DeletePattern(context.Context, string) error { return nil }

func (c *mapCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, fetcher func() (interface{}, error), dest interface{}) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	}
	c.mu.Lock()
	c.fetches++
	c.mu.Unlock()
	value, err := fetcher()
	if err != nil {
		return fmt.Errorf("fetcher error: %w", err)
	}
	if err := c.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.Get(ctx, key, dest)
}

func (c *mapCache) Ping(context.Context) error { return nil }

func (c *mapCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

var opening = time.Date(2026, 9, 12, 19, 30, 0, 0, time.UTC)

func newService(t *testing.T, opts ...events.Option) (events.Service, *memstore.Store) {
	t.Helper()
	logger.SetDefault(logger.NewNop())
	store := memstore.New()
	return events.NewService(store.Events(), store.Seats(), store, opts...), store
}

func validInput() events.CreateEventInput {
	return events.CreateEventInput{
		Name:     "  Opening Night ",
		Venue:    "Grand Theatre",
		StartsAt: opening,
		Sections: []seats.SectionLayout{
			{Name: "Stalls", Rows: 3, Columns: 10, Price: decimal.NewFromInt(60)},
			{Name: "Balcony", Prefix: "B", Rows: 2, Columns: 6, Price: decimal.RequireFromString("35.50")},
		},
	}
}

func TestCreateEventGeneratesSeatingChart(t *testing.T) {
	svc, store := newService(t, events.WithCurrency("eur"))
	organizer := uuid.New()

	event, err := svc.CreateEvent(context.Background(), organizer, validInput())
	require.NoError(t, err)

	assert.Equal(t, "Opening Night", event.Name)
	assert.Equal(t, organizer, event.OrganizerID)
	assert.Equal(t, int64(1), event.CreditCost)
	assert.Equal(t, "EUR", event.Currency)
	assert.False(t, event.Published)
	assert.Len(t, event.Sections, 2)

	stall, ok := store.Seat(event.ID, "A10")
	require.True(t, ok)
	assert.Equal(t, "Stalls", stall.Section)
	assert.Equal(t, seats.StatusAvailable, stall.Status)

	balcony, ok := store.Seat(event.ID, "BB6")
	require.True(t, ok)
	assert.True(t, balcony.Price.Equal(decimal.RequireFromString("35.5")))

	inv, err := svc.GetInventory(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), inv.Total)
	assert.Equal(t, int64(42), inv.Available)
}

func TestCreateEventValidation(t *testing.T) {
	svc, _ := newService(t)

	cases := map[string]func(in *events.CreateEventInput){
		"missing name":  func(in *events.CreateEventInput) { in.Name = " " },
		"missing venue": func(in *events.CreateEventInput) { in.Venue = "" },
		"no start":      func(in *events.CreateEventInput) { in.StartsAt = time.Time{} },
		"no sections":   func(in *events.CreateEventInput) { in.Sections = nil },
		"empty section": func(in *events.CreateEventInput) { in.Sections[0].Rows = 0 },
		"overlapping":   func(in *events.CreateEventInput) { in.Sections[1].Prefix = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			_, err := svc.CreateEvent(context.Background(), uuid.New(), in)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestCreateEventRollsBackWithoutSeats(t *testing.T) {
	svc, store := newService(t)
	store.FailNext("seats.CreateSeats", errors.New("disk full"))

	_, err := svc.CreateEvent(context.Background(), uuid.New(), validInput())
	require.Error(t, err)

	// nothing was left behind by the failed transaction
	event, err := svc.CreateEvent(context.Background(), uuid.New(), validInput())
	require.NoError(t, err)
	inv, err := svc.GetInventory(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), inv.Total)
}

func TestGetEventUsesCache(t *testing.T) {
	cache := newMapCache()
	svc, _ := newService(t, events.WithCache(cache))
	ctx := context.Background()

	created, err := svc.CreateEvent(ctx, uuid.New(), validInput())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := svc.GetEvent(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "Grand Theatre", got.Venue)
	}
	assert.Equal(t, 1, cache.fetches)

	key := constants.EventDetailKey(created.ID.String())
	assert.True(t, cache.has(key))
	svc.InvalidateEvent(ctx, created.ID)
	assert.False(t, cache.has(key))
}

func TestGetEventNotFound(t *testing.T) {
	svc, _ := newService(t, events.WithCache(newMapCache()))

	_, err := svc.GetEvent(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)

	_, err = svc.GetInventory(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
}

func TestInventoryTracksSeatStates(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	event, err := svc.CreateEvent(ctx, uuid.New(), validInput())
	require.NoError(t, err)

	_, err = store.Seats().Hold(ctx, event.ID, []string{"A1", "A2", "A3"}, "session", opening.Add(-time.Hour))
	require.NoError(t, err)

	inv, err := svc.GetInventory(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), inv.Reserved)
	assert.Equal(t, int64(39), inv.Available)
	assert.Equal(t, int64(42), inv.Total)
}
