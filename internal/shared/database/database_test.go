package database_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ticketing/internal/credits"
	"ticketing/internal/events"
	"ticketing/internal/payments"
	"ticketing/internal/seats"
	"ticketing/internal/shared/apperrors"
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/database"
	"ticketing/internal/shared/txn"
	"ticketing/internal/tickets"
	"ticketing/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

var testDB *gorm.DB

// The tests below need Docker. They run only with INTEGRATION_TESTS=true.
func TestMain(m *testing.M) {
	if os.Getenv("INTEGRATION_TESTS") != "true" {
		os.Exit(m.Run())
	}

	logger.SetDefault(logger.NewNop())
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "ticketing",
				"POSTGRES_PASSWORD": "ticketing",
				"POSTGRES_DB":       "ticketing_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		fmt.Printf("postgres container: %v\n", err)
		os.Exit(1)
	}

	code := func() int {
		defer func() {
			if err := container.Terminate(context.Background()); err != nil {
				fmt.Printf("terminate container: %v\n", err)
			}
		}()

		host, err := container.Host(ctx)
		if err != nil {
			fmt.Printf("container host: %v\n", err)
			return 1
		}
		port, err := container.MappedPort(ctx, "5432/tcp")
		if err != nil {
			fmt.Printf("container port: %v\n", err)
			return 1
		}

		dsn := fmt.Sprintf("host=%s port=%s user=ticketing password=ticketing dbname=ticketing_test sslmode=disable", host, port.Port())
		testDB, err = database.Open(dsn, nil)
		if err != nil {
			fmt.Printf("open database: %v\n", err)
			return 1
		}
		if err := database.Migrate(testDB); err != nil {
			fmt.Printf("migrate: %v\n", err)
			return 1
		}
		return m.Run()
	}()
	os.Exit(code)
}

func requireDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testDB == nil {
		t.Skip("set INTEGRATION_TESTS=true to run against PostgreSQL")
	}
	return testDB
}

type stack struct {
	txm      txn.Manager
	seatRepo seats.Repository
	seats    seats.Service
	tickets  tickets.Service
	payments payments.Service
	event    *events.Event
}

func newStack(t *testing.T, db *gorm.DB) *stack {
	t.Helper()
	txm := txn.NewManager(db)
	seatRepo := seats.NewRepository(db)
	ticketRepo := tickets.NewRepository(db)

	eventSvc := events.NewService(events.NewRepository(db), seatRepo, txm)
	event, err := eventSvc.CreateEvent(context.Background(), uuid.New(), events.CreateEventInput{
		Name:     "Integration Gala",
		Venue:    "Test Hall",
		StartsAt: time.Now().Add(72 * time.Hour),
		Sections: []seats.SectionLayout{{Name: "Main", Rows: 2, Columns: 5, Price: decimal.NewFromInt(30)}},
	})
	require.NoError(t, err)

	return &stack{
		txm:      txm,
		seatRepo: seatRepo,
		seats:    seats.NewService(seatRepo, txm, config.ReservationConfig{HoldTTL: 15 * time.Minute, MaxSeatsPerHold: 10}),
		tickets:  tickets.NewService(ticketRepo, seatRepo, txm),
		payments: payments.NewService(ticketRepo, seatRepo, txm, config.PaymentConfig{}),
		event:    event,
	}
}

func TestMigrateIsRepeatable(t *testing.T) {
	db := requireDB(t)
	require.NoError(t, database.Migrate(db))
}

func TestConcurrentHoldsHaveOneWinner(t *testing.T) {
	s := newStack(t, requireDB(t))

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
		losers  atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.seats.ReserveSeats(context.Background(), seats.ReserveInput{
				EventID:   s.event.ID,
				SeatIDs:   []string{"A3", "A4"},
				SessionID: fmt.Sprintf("session-%d", i),
			})
			switch {
			case err == nil:
				winners.Add(1)
			case errors.Is(err, apperrors.ErrSeatUnavailable):
				losers.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.Equal(t, int32(19), losers.Load())
}

func TestReserveCheckoutAndPay(t *testing.T) {
	s := newStack(t, requireDB(t))
	ctx := context.Background()

	_, err := s.seats.ReserveSeats(ctx, seats.ReserveInput{EventID: s.event.ID, SeatIDs: []string{"B1", "B2"}, SessionID: "buyer"})
	require.NoError(t, err)
	ticket, err := s.tickets.CreateTicket(ctx, tickets.CreateTicketInput{EventID: s.event.ID, SeatIDs: []string{"B1", "B2"}, SessionID: "buyer"})
	require.NoError(t, err)
	assert.True(t, ticket.Price.Equal(decimal.NewFromInt(60)))

	paid, err := s.payments.MarkPaid(ctx, ticket.ID, "pay-integration")
	require.NoError(t, err)
	assert.Equal(t, tickets.StatusPaid, paid.Status)

	list, err := s.seatRepo.GetSeats(ctx, s.event.ID, []string{"B1", "B2"})
	require.NoError(t, err)
	for _, seat := range list {
		assert.Equal(t, seats.StatusOccupied, seat.Status)
		assert.Nil(t, seat.HoldExpiresAt)
	}

	// redelivery changes nothing
	again, err := s.payments.MarkPaid(ctx, ticket.ID, "pay-integration")
	require.NoError(t, err)
	assert.Equal(t, tickets.StatusPaid, again.Status)
}

func TestReleaseExpiredReturnsBoundTickets(t *testing.T) {
	s := newStack(t, requireDB(t))
	ctx := context.Background()

	_, err := s.seats.ReserveSeats(ctx, seats.ReserveInput{EventID: s.event.ID, SeatIDs: []string{"A5"}, SessionID: "lapsed"})
	require.NoError(t, err)
	ticket, err := s.tickets.CreateTicket(ctx, tickets.CreateTicketInput{EventID: s.event.ID, SeatIDs: []string{"A5"}, SessionID: "lapsed"})
	require.NoError(t, err)

	var released []seats.Seat
	err = s.txm.WithTx(ctx, func(ctx context.Context) error {
		var err error
		released, err = s.seatRepo.ReleaseExpired(ctx, time.Now().Add(time.Hour), 1000)
		return err
	})
	require.NoError(t, err)

	var found bool
	for _, seat := range released {
		if seat.EventID == s.event.ID && seat.SeatID == "A5" {
			found = true
			require.NotNil(t, seat.TicketID)
			assert.Equal(t, ticket.ID, *seat.TicketID)
		}
	}
	assert.True(t, found, "A5 should be released")
}

func TestLedgerCannotGoNegative(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	repo := credits.NewRepository(db)
	user := uuid.New()

	require.NoError(t, repo.Credit(ctx, user, 5))

	ok, err := repo.Deduct(ctx, user, 10)
	require.NoError(t, err)
	assert.False(t, ok)

	err = db.Exec("UPDATE credit_ledgers SET balance = -1 WHERE user_id = ?", user).Error
	assert.Error(t, err, "check constraint must reject a negative balance")

	balance, err := repo.Balance(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)
}

func TestConcurrentGrantsWithOneKeyCreditOnce(t *testing.T) {
	db := requireDB(t)
	svc := credits.NewService(credits.NewRepository(db), events.NewRepository(db), txn.NewManager(db))
	user := uuid.New()
	grant := credits.GrantInput{UserID: user, Amount: 9, IdempotencyKey: "grant-" + user.String()}

	var (
		wg     sync.WaitGroup
		failed atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AddCredits(context.Background(), grant); err != nil {
				t.Log(err)
				failed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, failed.Load())
	balance, err := credits.NewRepository(db).Balance(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, int64(9), balance)
}
