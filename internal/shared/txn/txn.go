// Package txn carries a GORM transaction through context so repositories of
// different domains can join one atomic unit.
package txn

import (
	"context"

	"gorm.io/gorm"
)

type ctxKey struct{}

// Manager runs fn inside a single atomic unit. Nested calls join the outer one.
type Manager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type gormManager struct {
	db *gorm.DB
}

// NewManager returns a Manager backed by database transactions
func NewManager(db *gorm.DB) Manager {
	return &gormManager{db: db}
}

func (m *gormManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, ctxKey{}, tx))
	})
}

// DB returns the transaction bound to ctx, or db when there is none.
func DB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(ctxKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// InTx reports whether ctx carries an open transaction
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(ctxKey{}).(*gorm.DB)
	return ok
}
