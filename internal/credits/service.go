package credits

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ticketing/internal/events"
	"ticketing/internal/notifications"
	"ticketing/internal/shared/apperrors"
	"ticketing/internal/shared/metrics"
	"ticketing/internal/shared/txn"
	"ticketing/pkg/logger"

	"github.com/google/uuid"
)

type Service interface {
	// DeductCreditsAndPublish charges the organizer and publishes the event
	// atomically. required <= 0 charges the event's configured cost.
	DeductCreditsAndPublish(ctx context.Context, eventID, userID uuid.UUID, required int64) (*PublishResult, error)
	AddCredits(ctx context.Context, in GrantInput) (*Transaction, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, page, limit int) ([]Transaction, int64, error)
}

type GrantInput struct {
	UserID         uuid.UUID
	Amount         int64
	Type           TransactionType
	IdempotencyKey string
	Note           string
}

type service struct {
	repo      Repository
	eventRepo events.Repository
	txm       txn.Manager
	events    events.Service
	publisher notifications.Publisher
	log       *logger.Logger
	now       func() time.Time
}

type Option func(*service)

func WithPublisher(p notifications.Publisher) Option {
	return func(s *service) { s.publisher = p }
}

// WithEventCache lets a publish drop the cached event detail
func WithEventCache(es events.Service) Option {
	return func(s *service) { s.events = es }
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(repo Repository, eventRepo events.Repository, txm txn.Manager, opts ...Option) Service {
	s := &service{
		repo:      repo,
		eventRepo: eventRepo,
		txm:       txm,
		log:       logger.GetDefault(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) DeductCreditsAndPublish(ctx context.Context, eventID, userID uuid.UUID, required int64) (*PublishResult, error) {
	result := &PublishResult{EventID: eventID}
	now := s.now().UTC()

	err := s.txm.WithTx(ctx, func(ctx context.Context) error {
		*result = PublishResult{EventID: eventID}

		event, err := s.eventRepo.LockByID(ctx, eventID)
		if err != nil {
			return err
		}
		if event.OrganizerID != userID {
			return fmt.Errorf("%w: only the organizer can publish this event", apperrors.ErrForbidden)
		}
		if event.Published {
			result.Published = true
			result.AlreadyPublished = true
			result.Balance, err = s.repo.Balance(ctx, userID)
			return err
		}

		// a caller may pay more than the event's cost, never less
		cost := max(required, event.CreditCost)

		ok, err := s.repo.Deduct(ctx, userID, cost)
		if err != nil {
			return fmt.Errorf("deduct credits: %w", err)
		}
		if !ok {
			available, err := s.repo.Balance(ctx, userID)
			if err != nil {
				return err
			}
			return &apperrors.InsufficientCreditsError{Required: cost, Available: available}
		}

		meta, _ := json.Marshal(map[string]string{"event_name": event.Name})
		inserted, err := s.repo.InsertTransaction(ctx, &Transaction{
			ID:             uuid.New(),
			UserID:         userID,
			Type:           TransactionPublish,
			Amount:         -cost,
			EventID:        &eventID,
			IdempotencyKey: PublishKey(eventID),
			Metadata:       meta,
			CreatedAt:      now,
		})
		if err != nil {
			return fmt.Errorf("record publish transaction: %w", err)
		}
		if !inserted {
			return fmt.Errorf("publish of event %s already recorded", eventID)
		}

		published, err := s.eventRepo.MarkPublished(ctx, eventID, now)
		if err != nil {
			return fmt.Errorf("publish event: %w", err)
		}
		if !published {
			// the row lock makes this unreachable unless the lock was bypassed
			return fmt.Errorf("event %s was published concurrently", eventID)
		}

		result.Published = true
		result.CreditsDeducted = cost
		result.Balance, err = s.repo.Balance(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if result.CreditsDeducted > 0 {
		metrics.CreditsDeducted.Add(float64(result.CreditsDeducted))
		s.log.LogEventPublished(ctx, eventID.String(), userID.String(), result.CreditsDeducted)
		if s.events != nil {
			s.events.InvalidateEvent(ctx, eventID)
		}

		event := notifications.NewTicketEvent(notifications.EventEventPublished, eventID.String(), "")
		event.Attributes = map[string]string{
			"organizer_id":     userID.String(),
			"credits_deducted": fmt.Sprintf("%d", result.CreditsDeducted),
		}
		notifications.Emit(ctx, s.publisher, event)
	}
	return result, nil
}

// AddCredits grants credits once per idempotency key. Replaying a key
// returns the original transaction without touching the balance.
func (s *service) AddCredits(ctx context.Context, in GrantInput) (*Transaction, error) {
	if in.Amount <= 0 {
		return nil, apperrors.Invalid("amount must be positive")
	}
	if in.Type == "" {
		in.Type = TransactionPurchase
	}
	if !in.Type.IsValid() || in.Type == TransactionPublish {
		return nil, apperrors.Invalid("invalid grant type %q", in.Type)
	}
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	if in.IdempotencyKey == "" {
		return nil, apperrors.Invalid("idempotency key is required")
	}

	var out *Transaction
	err := s.txm.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByKey(ctx, in.IdempotencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			out, err = replayGrant(existing, in)
			return err
		}

		var meta []byte
		if in.Note != "" {
			meta, _ = json.Marshal(map[string]string{"note": in.Note})
		}
		tx := &Transaction{
			ID:             uuid.New(),
			UserID:         in.UserID,
			Type:           in.Type,
			Amount:         in.Amount,
			IdempotencyKey: in.IdempotencyKey,
			Metadata:       meta,
			CreatedAt:      s.now().UTC(),
		}
		inserted, err := s.repo.InsertTransaction(ctx, tx)
		if err != nil {
			return fmt.Errorf("record grant: %w", err)
		}
		if !inserted {
			// a concurrent grant with the same key committed first
			existing, err := s.repo.FindByKey(ctx, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing == nil {
				return fmt.Errorf("grant %q conflicted but is not visible", in.IdempotencyKey)
			}
			out, err = replayGrant(existing, in)
			return err
		}
		if err := s.repo.Credit(ctx, in.UserID, in.Amount); err != nil {
			return fmt.Errorf("credit ledger: %w", err)
		}
		out = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "credits granted",
		"user_id", in.UserID.String(), "amount", in.Amount, "type", string(in.Type), "key", in.IdempotencyKey)
	return out, nil
}

func replayGrant(existing *Transaction, in GrantInput) (*Transaction, error) {
	if existing.UserID != in.UserID {
		return nil, apperrors.Invalid("idempotency key %q belongs to another user", in.IdempotencyKey)
	}
	return existing, nil
}

func (s *service) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.Balance(ctx, userID)
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID, page, limit int) ([]Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.ListTransactions(ctx, userID, limit, (page-1)*limit)
}
