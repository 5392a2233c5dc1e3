package events

import (
	"context"
	"errors"
	"time"

	"ticketing/internal/shared/apperrors"
	"ticketing/internal/shared/txn"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	// LockByID row-locks the event for the rest of the transaction
	LockByID(ctx context.Context, id uuid.UUID) (*Event, error)
	// MarkPublished flips published false -> true and reports whether it did
	MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
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

func (r *repository) Create(ctx context.Context, event *Event) error {
	return r.conn(ctx).Create(event).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	return r.first(r.conn(ctx), id)
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	return r.first(r.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *repository) first(db *gorm.DB, id uuid.UUID) (*Event, error) {
	var event Event
	err := db.First(&event, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.conn(ctx).Model(&Event{}).
		Where("id = ? AND published = ?", id, false).
		Updates(map[string]interface{}{"published": true, "published_at": at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
