package memstore

import (
	"context"
	"sort"

	"ticketing/internal/credits"

	"github.com/google/uuid"
)

type creditRepo struct{ s *Store }

func (r *creditRepo) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := r.s.run(ctx, "credits.Balance", func(d *state) error {
		balance = d.balances[userID]
		return nil
	})
	return balance, err
}

func (r *creditRepo) Deduct(ctx context.Context, userID uuid.UUID, amount int64) (bool, error) {
	var ok bool
	err := r.s.run(ctx, "credits.Deduct", func(d *state) error {
		balance, exists := d.balances[userID]
		if !exists || balance < amount {
			return nil
		}
		d.balances[userID] = balance - amount
		ok = true
		return nil
	})
	return ok, err
}

func (r *creditRepo) Credit(ctx context.Context, userID uuid.UUID, amount int64) error {
	return r.s.run(ctx, "credits.Credit", func(d *state) error {
		d.balances[userID] += amount
		return nil
	})
}

func (r *creditRepo) InsertTransaction(ctx context.Context, tx *credits.Transaction) (bool, error) {
	inserted := false
	err := r.s.run(ctx, "credits.InsertTransaction", func(d *state) error {
		if _, dup := d.transactions[tx.IdempotencyKey]; dup {
			return nil
		}
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = r.s.now()
		}
		d.transactions[tx.IdempotencyKey] = *tx
		inserted = true
		return nil
	})
	return inserted, err
}

func (r *creditRepo) FindByKey(ctx context.Context, key string) (*credits.Transaction, error) {
	var out *credits.Transaction
	err := r.s.run(ctx, "credits.FindByKey", func(d *state) error {
		if tx, ok := d.transactions[key]; ok {
			out = &tx
		}
		return nil
	})
	return out, err
}

func (r *creditRepo) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]credits.Transaction, int64, error) {
	var (
		out   []credits.Transaction
		total int64
	)
	err := r.s.run(ctx, "credits.ListTransactions", func(d *state) error {
		var all []credits.Transaction
		for _, tx := range d.transactions {
			if tx.UserID == userID {
				all = append(all, tx)
			}
		}
		sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
		total = int64(len(all))
		if offset < len(all) {
			all = all[offset:]
			if limit > 0 && len(all) > limit {
				all = all[:limit]
			}
			out = all
		}
		return nil
	})
	return out, total, err
}
