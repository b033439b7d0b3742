package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"genealogy-compensation-go/internal/models"
	"genealogy-compensation-go/internal/store"
)

// Compile-time check: *txStore must satisfy store.Tx.
var _ store.Tx = (*txStore)(nil)

// txStore exposes the engine-facing operations over one open transaction.
// now is fixed for the whole transaction.
type txStore struct {
	tx  *sql.Tx
	now time.Time
}

func newTxStore(tx *sql.Tx, now time.Time) *txStore {
	return &txStore{tx: tx, now: now}
}

func (t *txStore) ClaimEvent(ctx context.Context, kind store.EventKind, eventId string) error {
	if eventId == "" {
		return fmt.Errorf("%s event id is required", kind)
	}

	result, err := t.tx.ExecContext(ctx, queryClaimEvent, string(kind), eventId, t.now)
	if err != nil {
		return fmt.Errorf("failed to claim %s event: %w", kind, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", store.ErrDuplicateProcessing, kind, eventId)
	}
	return nil
}

// LockCounters touches each counter row in the given order. SQLite already
// holds the database write lock for an immediate transaction; the ordered
// touch is what a row-locking backend relies on to avoid deadlocks.
func (t *txStore) LockCounters(ctx context.Context, accountIds []string) error {
	for _, accountId := range accountIds {
		result, err := t.tx.ExecContext(ctx, queryLockAccountCounters, accountId)
		if err != nil {
			return fmt.Errorf("failed to lock counters of %s: %w", accountId, err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("%w: ancestor %s", store.ErrAccountNotFound, accountId)
		}
	}
	return nil
}

func (t *txStore) AddPending(ctx context.Context, accountId string, side models.Position) (int64, int64, error) {
	var query string
	switch side {
	case models.PositionLeft:
		query = queryAddLeftPending
	case models.PositionRight:
		query = queryAddRightPending
	default:
		return 0, 0, fmt.Errorf("%w: %q", store.ErrInvalidPosition, side)
	}

	var left, right int64
	err := t.tx.QueryRowContext(ctx, query, t.now, accountId).Scan(&left, &right)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, fmt.Errorf("%w: ancestor %s", store.ErrAccountNotFound, accountId)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to add pending unit: %w", err)
	}
	return left, right, nil
}

func (t *txStore) SettlePair(ctx context.Context, accountId string) error {
	result, err := t.tx.ExecContext(ctx, querySettlePair, t.now, accountId)
	if err != nil {
		return fmt.Errorf("failed to settle pair: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("pair settlement for %s failed - %w", accountId, store.ErrConcurrentModification)
	}
	return nil
}

func (t *txStore) InsertPurchase(ctx context.Context, purchase models.Purchase) error {
	_, err := t.tx.ExecContext(ctx, queryInsertPurchase,
		purchase.Id, purchase.BuyerAccountId, purchase.TotalAmount.String(), purchase.PaidAt, t.now)
	if err != nil {
		return fmt.Errorf("failed to insert purchase: %w", err)
	}
	return nil
}
