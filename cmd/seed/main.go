package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"ticketing/internal/credits"
	"ticketing/internal/events"
	"ticketing/internal/seats"
	"ticketing/internal/shared/config"
	"ticketing/internal/shared/constants"
	"ticketing/internal/shared/database"
	"ticketing/internal/shared/txn"
	"ticketing/pkg/cache"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// fixed so tokens minted for local testing keep working across reseeds
var demoOrganizerID = uuid.MustParse("6f1c2a9e-3b7d-4c41-9a55-0d2e8f4b7a10")

type Seeder struct {
	db      *database.DB
	events  events.Service
	credits credits.Service
}

func main() {
	fmt.Println("🌱 Starting Ticketing Database Seeder...")
	_ = godotenv.Load()

	cfg := config.Load()
	cfg.Database.AutoMigrate = true

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	pg := db.GetPostgreSQL()
	txm := txn.NewManager(pg)
	seatRepo := seats.NewRepository(pg)
	eventRepo := events.NewRepository(pg)
	eventService := events.NewService(eventRepo, seatRepo, txm, events.WithCurrency(cfg.Payment.Currency))

	seeder := &Seeder{
		db:      db,
		events:  eventService,
		credits: credits.NewService(credits.NewRepository(pg), eventRepo, txm, credits.WithEventCache(eventService)),
	}

	if len(os.Args) < 2 || os.Args[1] != "--keep" {
		fmt.Println("\n🧹 Cleaning database...")
		if err := seeder.CleanDatabase(); err != nil {
			log.Fatalf("Failed to clean database: %v", err)
		}
		fmt.Println("✅ Database cleaned successfully")
	}

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(context.Background()); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all ticketing tables
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"credit_transactions",
		"credit_ledgers",
		"tickets",
		"seats",
		"events",
	}

	return s.db.PostgreSQL.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			fmt.Printf("  Truncating table: %s\n", table)
			if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
				return fmt.Errorf("failed to truncate table %s: %w", table, err)
			}
		}
		return nil
	})
}

type demoEvent struct {
	input   events.CreateEventInput
	publish bool
}

func (s *Seeder) SeedAll(ctx context.Context) error {
	grant, err := s.credits.AddCredits(ctx, credits.GrantInput{
		UserID:         demoOrganizerID,
		Amount:         10,
		Type:           credits.TransactionAdjustment,
		IdempotencyKey: "seed:organizer-starter",
		Note:           "seed data",
	})
	if err != nil {
		return fmt.Errorf("failed to grant credits: %w", err)
	}
	fmt.Printf("  💳 Granted %d credits to organizer %s\n", grant.Amount, demoOrganizerID)

	now := time.Now().UTC().Truncate(time.Hour)
	demo := []demoEvent{
		{
			publish: true,
			input: events.CreateEventInput{
				Name:       "Symphony Under the Stars",
				Venue:      "Riverside Amphitheatre",
				StartsAt:   now.Add(14 * 24 * time.Hour),
				CreditCost: 2,
				Sections: []seats.SectionLayout{
					{Name: "Orchestra", Rows: 10, Columns: 20, Price: decimal.NewFromInt(85)},
					{Name: "Mezzanine", Prefix: "M", Rows: 6, Columns: 16, Price: decimal.NewFromInt(55)},
					{Name: "Boxes", Prefix: "BX", Rows: 2, Columns: 6, Type: "VIP", Price: decimal.NewFromInt(150)},
				},
			},
		},
		{
			publish: true,
			input: events.CreateEventInput{
				Name:     "Indie Night",
				Venue:    "The Warehouse",
				StartsAt: now.Add(7 * 24 * time.Hour),
				Sections: []seats.SectionLayout{
					{Name: "Floor", Rows: 4, Columns: 25, Price: decimal.NewFromInt(30)},
				},
			},
		},
		{
			input: events.CreateEventInput{
				Name:     "Comedy Showcase (draft)",
				Venue:    "Basement Club",
				StartsAt: now.Add(30 * 24 * time.Hour),
				Sections: []seats.SectionLayout{
					{Name: "Tables", Rows: 5, Columns: 8, Price: decimal.RequireFromString("22.50")},
				},
			},
		},
	}

	for _, d := range demo {
		event, err := s.events.CreateEvent(ctx, demoOrganizerID, d.input)
		if err != nil {
			return fmt.Errorf("failed to create %q: %w", d.input.Name, err)
		}
		fmt.Printf("  🎫 Created %s (%s)\n", event.Name, event.ID)

		if !d.publish {
			continue
		}
		res, err := s.credits.DeductCreditsAndPublish(ctx, event.ID, demoOrganizerID, 0)
		if err != nil {
			return fmt.Errorf("failed to publish %q: %w", event.Name, err)
		}
		fmt.Printf("     published for %d credits, %d left\n", res.CreditsDeducted, res.Balance)
	}

	if rdb := s.db.GetRedis(); rdb != nil {
		if err := cache.NewService(rdb).DeletePattern(ctx, constants.CACHE_PATTERN_SEATS); err != nil {
			fmt.Printf("  ⚠️  Could not flush seat cache: %v\n", err)
		}
	}
	return nil
}
