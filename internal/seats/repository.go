package seats

import (
	"context"
	"time"

	"ticketing/internal/shared/txn"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the seat store. Every mutation is a conditional bulk update
// returning the number of rows that matched its guard; callers compare that
// count with the number of seats they asked for.
type Repository interface {
	CreateSeats(ctx context.Context, seats []Seat) error
	GetSeats(ctx context.Context, eventID uuid.UUID, seatIDs []string) ([]Seat, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Seat, error)
	CountByStatus(ctx context.Context, eventID uuid.UUID) (map[SeatStatus]int64, error)

	// LockSeats row-locks the seats in label order. Only meaningful inside a transaction.
	LockSeats(ctx context.Context, eventID uuid.UUID, seatIDs []string) ([]Seat, error)

	// AVAILABLE, or RESERVED by sessionID -> RESERVED by sessionID until expiresAt
	Hold(ctx context.Context, eventID uuid.UUID, seatIDs []string, sessionID string, expiresAt time.Time) (int64, error)
	// RESERVED by sessionID with no ticket -> AVAILABLE
	Release(ctx context.Context, eventID uuid.UUID, seatIDs []string, sessionID string) (int64, error)
	// live hold by sessionID with no ticket -> bound to ticketID, still RESERVED
	BindTicket(ctx context.Context, eventID uuid.UUID, seatIDs []string, sessionID string, ticketID uuid.UUID, now time.Time) (int64, error)
	// RESERVED and bound to ticketID -> RESERVED and unbound, hold kept
	UnbindTicket(ctx context.Context, ticketID uuid.UUID) (int64, error)
	// RESERVED and bound to ticketID -> OCCUPIED, hold cleared
	Occupy(ctx context.Context, eventID uuid.UUID, seatIDs []string, ticketID uuid.UUID) (int64, error)
	// RESERVED and bound to ticketID -> AVAILABLE
	ReleaseForTicket(ctx context.Context, eventID uuid.UUID, seatIDs []string, ticketID uuid.UUID) (int64, error)
	// RESERVED with a hold that lapsed before now -> AVAILABLE, at most limit rows.
	// Returns the released seats as they were before the update.
	ReleaseExpired(ctx context.Context, now time.Time, limit int) ([]Seat, error)
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

func (r *repository) CreateSeats(ctx context.Context, seats []Seat) error {
	if len(seats) == 0 {
		return nil
	}
	return r.conn(ctx).CreateInBatches(&seats, 500).Error
}

func (r *repository) GetSeats(ctx context.Context, eventID uuid.UUID, seatIDs []string) ([]Seat, error) {
	var seats []Seat
	err := r.conn(ctx).
		Where("event_id = ? AND seat_id IN ?", eventID, seatIDs).
		Order("seat_id").
		Find(&seats).Error
	return seats, err
}

func (r *repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Seat, error) {
	var seats []Seat
	err := r.conn(ctx).
		Where("event_id = ?", eventID).
		Order("section, row, number").
		Find(&seats).Error
	return seats, err
}

func (r *repository) CountByStatus(ctx context.Context, eventID uuid.UUID) (map[SeatStatus]int64, error) {
	var rows []struct {
		Status SeatStatus
		Count  int64
	}
	err := r.conn(ctx).Model(&Seat{}).
		Select("status, COUNT(*) AS count").
		Where("event_id = ?", eventID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := map[SeatStatus]int64{StatusAvailable: 0, StatusReserved: 0, StatusOccupied: 0}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *repository) LockSeats(ctx context.Context, eventID uuid.UUID, seatIDs []string) ([]Seat, error) {
	var seats []Seat
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("event_id = ? AND seat_id IN ?", eventID, seatIDs).
		Order("seat_id").
		Find(&seats).Error
	return seats, err
}

func (r *repository) Hold(ctx context.Context, eventID uuid.UUID, seatIDs []string, sessionID string, expiresAt time.Time) (int64, error) {
	result := r.conn(ctx).Model(&Seat{}).
		Where("event_id = ? AND seat_id IN ?", eventID, seatIDs).
		Where("status = ? OR (status = ? AND hold_session_id = ?)", StatusAvailable, StatusReserved, sessionID).
		Updates(map[string]interface{}{
			"status":          StatusReserved,
			"hold_session_id": sessionID,
			"hold_expires_at": expiresAt,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) Release(ctx context.Context, eventID uuid.UUID, seatIDs []string, sessionID string) (int64, error) {
	result := r.conn(ctx).Model(&Seat{}).
		Where("event_id = ? AND seat_id IN ?", eventID, seatIDs).
		Where("status = ? AND hold_session_id = ? AND ticket_id IS NULL", StatusReserved, sessionID).
		Updates(releasedColumns())
	return result.RowsAffected, result.Error
}

func (r *repository) BindTicket(ctx context.Context, eventID uuid.UUID, seatIDs []string, sessionID string, ticketID uuid.UUID, now time.Time) (int64, error) {
	result := r.conn(ctx).Model(&Seat{}).
		Where("event_id = ? AND seat_id IN ?", eventID, seatIDs).
		Where("status = ? AND hold_session_id = ? AND hold_expires_at > ? AND ticket_id IS NULL", StatusReserved, sessionID, now).
		Update("ticket_id", ticketID)
	return result.RowsAffected, result.Error
}

func (r *repository) UnbindTicket(ctx context.Context, ticketID uuid.UUID) (int64, error) {
	result := r.conn(ctx).Model(&Seat{}).
		Where("ticket_id = ? AND status = ?", ticketID, StatusReserved).
		Update("ticket_id", nil)
	return result.RowsAffected, result.Error
}

func (r *repository) Occupy(ctx context.Context, eventID uuid.UUID, seatIDs []string, ticketID uuid.UUID) (int64, error) {
	result := r.conn(ctx).Model(&Seat{}).
		Where("event_id = ? AND seat_id IN ?", eventID, seatIDs).
		Where("status = ? AND ticket_id = ?", StatusReserved, ticketID).
		Updates(map[string]interface{}{
			"status":          StatusOccupied,
			"hold_session_id": nil,
			"hold_expires_at": nil,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) ReleaseForTicket(ctx context.Context, eventID uuid.UUID, seatIDs []string, ticketID uuid.UUID) (int64, error) {
	result := r.conn(ctx).Model(&Seat{}).
		Where("event_id = ? AND seat_id IN ?", eventID, seatIDs).
		Where("status = ? AND ticket_id = ?", StatusReserved, ticketID).
		Updates(releasedColumns())
	return result.RowsAffected, result.Error
}

func (r *repository) ReleaseExpired(ctx context.Context, now time.Time, limit int) ([]Seat, error) {
	var expired []Seat
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? AND hold_expires_at < ?", StatusReserved, now).
		Order("hold_expires_at").
		Limit(limit).
		Find(&expired).Error
	if err != nil || len(expired) == 0 {
		return nil, err
	}

	ids := make([]uuid.UUID, len(expired))
	for i, s := range expired {
		ids[i] = s.ID
	}

	// the guard is repeated so a hold renewed since the select is left alone
	result := r.conn(ctx).Model(&Seat{}).
		Where("id IN ?", ids).
		Where("status = ? AND hold_expires_at < ?", StatusReserved, now).
		Updates(releasedColumns())
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected != int64(len(expired)) {
		// someone renewed a hold between select and update; report only what changed
		var still []Seat
		if err := r.conn(ctx).Where("id IN ? AND status = ?", ids, StatusAvailable).Find(&still).Error; err != nil {
			return nil, err
		}
		released := make(map[uuid.UUID]bool, len(still))
		for _, s := range still {
			released[s.ID] = true
		}
		kept := expired[:0]
		for _, s := range expired {
			if released[s.ID] {
				kept = append(kept, s)
			}
		}
		expired = kept
	}
	return expired, nil
}

func releasedColumns() map[string]interface{} {
	return map[string]interface{}{
		"status":          StatusAvailable,
		"hold_session_id": nil,
		"hold_expires_at": nil,
		"ticket_id":       nil,
	}
}
