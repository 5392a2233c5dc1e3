package tickets

import (
	"context"
	"errors"
	"time"

	"ticketing/internal/shared/apperrors"
	"ticketing/internal/shared/txn"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, ticket *Ticket) error
	GetByID(ctx context.Context, id uuid.UUID) (*Ticket, error)
	GetByQRCode(ctx context.Context, qrCode string) (*Ticket, error)

	// Transition moves the ticket from -> to and applies patch only while the
	// stored status still equals from. It reports whether a row changed.
	Transition(ctx context.Context, id uuid.UUID, from, to Status, patch Patch) (bool, error)
	// Annotate writes patch without touching the status
	Annotate(ctx context.Context, id uuid.UUID, patch Patch) error

	// FindStalePending returns PENDING tickets created before cutoff that no
	// longer have a live hold on any seat.
	FindStalePending(ctx context.Context, cutoff, now time.Time, limit int) ([]uuid.UUID, error)
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

func (r *repository) Create(ctx context.Context, ticket *Ticket) error {
	return r.conn(ctx).Create(ticket).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	var ticket Ticket
	err := r.conn(ctx).First(&ticket, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) GetByQRCode(ctx context.Context, qrCode string) (*Ticket, error) {
	var ticket Ticket
	err := r.conn(ctx).First(&ticket, "qr_code = ?", qrCode).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to Status, patch Patch) (bool, error) {
	cols := patch.Columns()
	cols["status"] = to

	result := r.conn(ctx).Model(&Ticket{}).
		Where("id = ? AND status = ?", id, from).
		Updates(cols)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) Annotate(ctx context.Context, id uuid.UUID, patch Patch) error {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil
	}
	return r.conn(ctx).Model(&Ticket{}).Where("id = ?", id).Updates(cols).Error
}

func (r *repository) FindStalePending(ctx context.Context, cutoff, now time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.conn(ctx).Model(&Ticket{}).
		Where("status = ? AND created_at < ?", StatusPending, cutoff).
		Where("NOT EXISTS (SELECT 1 FROM seats s WHERE s.ticket_id = tickets.id AND s.status = ? AND s.hold_expires_at > ?)", "RESERVED", now).
		Order("created_at").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
