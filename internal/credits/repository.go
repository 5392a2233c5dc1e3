package credits

import (
	"context"
	"errors"

	"ticketing/internal/shared/txn"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	// Balance returns 0 for users without a ledger row
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
	// Deduct subtracts amount only while the balance covers it and reports whether it did
	Deduct(ctx context.Context, userID uuid.UUID, amount int64) (bool, error)
	Credit(ctx context.Context, userID uuid.UUID, amount int64) error

	// InsertTransaction reports false when the idempotency key is already taken
	InsertTransaction(ctx context.Context, tx *Transaction) (bool, error)
	FindByKey(ctx context.Context, key string) (*Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) conn(ctx context.Context) *gorm.DB {
	return txn.DB(ctx, r.db)
}

func (r *repository) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var ledger Ledger
	err := r.conn(ctx).First(&ledger, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return ledger.Balance, err
}

func (r *repository) Deduct(ctx context.Context, userID uuid.UUID, amount int64) (bool, error) {
	result := r.conn(ctx).Model(&Ledger{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) Credit(ctx context.Context, userID uuid.UUID, amount int64) error {
	ledger := Ledger{UserID: userID, Balance: amount}
	return r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"balance": gorm.Expr("credit_ledgers.balance + ?", amount), "updated_at": gorm.Expr("NOW()")}),
	}).Create(&ledger).Error
}

func (r *repository) InsertTransaction(ctx context.Context, tx *Transaction) (bool, error) {
	result := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "idempotency_key"}},
		DoNothing: true,
	}).Create(tx)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) FindByKey(ctx context.Context, key string) (*Transaction, error) {
	var tx Transaction
	err := r.conn(ctx).First(&tx, "idempotency_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, int64, error) {
	var (
		txs   []Transaction
		total int64
	)
	q := r.conn(ctx).Model(&Transaction{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&txs).Error
	return txs, total, err
}
