package database

import (
	"fmt"

	"gorm.io/gorm"
)

type checkConstraint struct {
	table string
	name  string
	check string
}

// Invariants the repository updates maintain, restated as table checks
var checkConstraints = []checkConstraint{
	{"seats", "chk_seats_status", "status IN ('AVAILABLE', 'RESERVED', 'OCCUPIED')"},
	{"seats", "chk_seats_hold", "status <> 'RESERVED' OR (hold_session_id IS NOT NULL AND hold_expires_at IS NOT NULL)"},
	{"seats", "chk_seats_occupied_ticket", "status <> 'OCCUPIED' OR ticket_id IS NOT NULL"},
	{"tickets", "chk_tickets_status", "status IN ('PENDING', 'PAID', 'FAILED', 'CANCELLED', 'USED')"},
	{"credit_ledgers", "chk_credit_ledgers_balance", "balance >= 0"},
	{"events", "chk_events_credit_cost", "credit_cost > 0"},
}

// PostgreSQL has no ADD CONSTRAINT IF NOT EXISTS, so existence is checked in pg_constraint
const addCheckSQL = `
DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
		ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s);
	END IF;
END $$;`

var indexes = []string{
	// expiry sweep scans only live holds
	`CREATE INDEX IF NOT EXISTS idx_seats_hold_expiry ON seats (hold_expires_at) WHERE status = 'RESERVED'`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_pending_created ON tickets (created_at) WHERE status = 'PENDING'`,
	`CREATE INDEX IF NOT EXISTS idx_credit_transactions_user_created ON credit_transactions (user_id, created_at DESC)`,
}

// MigrateConstraints adds the check constraints and partial indexes AutoMigrate cannot express
func MigrateConstraints(db *gorm.DB) error {
	for _, c := range checkConstraints {
		if err := db.Exec(fmt.Sprintf(addCheckSQL, c.name, c.table, c.name, c.check)).Error; err != nil {
			return fmt.Errorf("add constraint %s: %w", c.name, err)
		}
	}
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
