package credits

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TransactionType string

const (
	TransactionPurchase   TransactionType = "PURCHASE"
	TransactionPublish    TransactionType = "PUBLISH"
	TransactionRefund     TransactionType = "REFUND"
	TransactionAdjustment TransactionType = "ADJUSTMENT"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionPurchase, TransactionPublish, TransactionRefund, TransactionAdjustment:
		return true
	}
	return false
}

// Ledger holds an organizer's spendable credits. The balance always equals
// the sum of the user's transaction amounts and never goes negative.
type Ledger struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Ledger) TableName() string {
	return "credit_ledgers"
}

type Transaction struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Type           TransactionType `gorm:"type:varchar(20);not null" json:"type"`
	Amount         int64           `gorm:"not null" json:"amount"`
	EventID        *uuid.UUID      `gorm:"type:uuid;index" json:"event_id,omitempty"`
	IdempotencyKey string          `gorm:"type:varchar(150);not null;uniqueIndex" json:"idempotency_key"`
	Metadata       datatypes.JSON  `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
}

func (Transaction) TableName() string {
	return "credit_transactions"
}

// PublishKey is the idempotency key of the deduction made when eventID is published
func PublishKey(eventID uuid.UUID) string {
	return "publish:" + eventID.String()
}

type PublishResult struct {
	EventID          uuid.UUID `json:"event_id"`
	Published        bool      `json:"published"`
	AlreadyPublished bool      `json:"already_published"`
	CreditsDeducted  int64     `json:"credits_deducted"`
	Balance          int64     `json:"balance"`
}
