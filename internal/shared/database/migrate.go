package database

import (
	"fmt"

	"ticketing/internal/credits"
	"ticketing/internal/events"
	"ticketing/internal/seats"
	"ticketing/internal/tickets"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&events.Event{},
		&seats.Seat{},
		&tickets.Ticket{},
		&credits.Ledger{},
		&credits.Transaction{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return MigrateConstraints(db)
}
