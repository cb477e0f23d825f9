package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockAlertEvaluator compares derived balances against configured item
// thresholds and maintains the alert lifecycle. Raising is deduplicated: an
// item with an open (NEW or VIEWED) alert never gets a second one; a breach
// after RESOLVED creates a fresh alert instead of reopening the old one.
// Resolution is an explicit user action — stock rising back above the
// threshold never auto-resolves anything.
type StockAlertEvaluator struct {
	store Store
	mu    sync.Mutex // serializes raise checks so concurrent sweeps cannot double-fire
}

// NewStockAlertEvaluator constructs the evaluator on the given store.
func NewStockAlertEvaluator(store Store) *StockAlertEvaluator {
	return &StockAlertEvaluator{store: store}
}

// Evaluate re-checks one account against its item's threshold and raises an
// alert if the balance is below it and no open alert exists for the item.
func (e *StockAlertEvaluator) Evaluate(ctx context.Context, accountID string) error {
	acc, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("resolve account %s: %w", accountID, err)
	}
	item, err := e.store.GetItem(ctx, acc.ItemID)
	if err != nil {
		return fmt.Errorf("resolve item %s: %w", acc.ItemID, err)
	}

	if acc.Balance.GreaterThanOrEqual(item.MinStock) {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	open, err := e.store.OpenAlertForItem(ctx, item.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("check open alert for item %s: %w", item.ID, err)
	}
	if open != nil {
		return nil // already firing
	}

	alert := &Alert{
		ID:        uuid.NewString(),
		ItemID:    item.ID,
		AccountID: acc.ID,
		Level:     acc.Balance,
		Threshold: item.MinStock,
		Status:    AlertNew,
		RaisedAt:  time.Now().UTC(),
	}
	if err := e.store.InsertAlert(ctx, alert); err != nil {
		return fmt.Errorf("insert alert for item %s: %w", item.ID, err)
	}
	return nil
}

// MarkViewed transitions an alert NEW → VIEWED. Re-viewing a VIEWED alert is
// a no-op success; viewing a RESOLVED alert fails with ErrInvalidTransition.
func (e *StockAlertEvaluator) MarkViewed(ctx context.Context, alertID, by string) (*Alert, error) {
	alert, err := e.store.GetAlert(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("alert %s: %w", alertID, err)
	}

	switch alert.Status {
	case AlertViewed:
		return alert, nil
	case AlertResolved:
		return nil, fmt.Errorf("alert %s is resolved: %w", alertID, ErrInvalidTransition)
	}

	now := time.Now().UTC()
	alert.Status = AlertViewed
	alert.ViewedBy = &by
	alert.ViewedAt = &now
	if err := e.store.UpdateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("update alert %s: %w", alertID, err)
	}
	return alert, nil
}

// MarkResolved transitions an alert to RESOLVED from NEW or VIEWED. Resolving
// an already-resolved alert fails with ErrInvalidTransition.
func (e *StockAlertEvaluator) MarkResolved(ctx context.Context, alertID, by string) (*Alert, error) {
	alert, err := e.store.GetAlert(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("alert %s: %w", alertID, err)
	}
	if alert.Status == AlertResolved {
		return nil, fmt.Errorf("alert %s is already resolved: %w", alertID, ErrInvalidTransition)
	}

	now := time.Now().UTC()
	alert.Status = AlertResolved
	alert.ResolvedBy = &by
	alert.ResolvedAt = &now
	if err := e.store.UpdateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("update alert %s: %w", alertID, err)
	}
	return alert, nil
}

// UpdateThreshold sets an item's minimum-stock threshold. It applies to
// subsequent evaluations only; existing alerts are never recomputed.
func (e *StockAlertEvaluator) UpdateThreshold(ctx context.Context, itemID string, min decimal.Decimal) error {
	if min.IsNegative() {
		return fmt.Errorf("threshold must be >= 0, got %s: %w", min, ErrInvalidQuantity)
	}
	if _, err := e.store.GetItem(ctx, itemID); err != nil {
		return fmt.Errorf("item %s: %w", itemID, err)
	}
	if err := e.store.UpdateItemThreshold(ctx, itemID, min); err != nil {
		return fmt.Errorf("update threshold for item %s: %w", itemID, err)
	}
	return nil
}

// List returns alerts, optionally filtered by status.
func (e *StockAlertEvaluator) List(ctx context.Context, status *AlertStatus) ([]Alert, error) {
	return e.store.ListAlerts(ctx, status)
}

// Sweep re-evaluates every stock account once. It only reads balances and
// writes alert rows, so it is safe to run concurrently with live movement
// recording.
func (e *StockAlertEvaluator) Sweep(ctx context.Context) error {
	accounts, err := e.store.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("list accounts for sweep: %w", err)
	}
	for _, acc := range accounts {
		if err := e.Evaluate(ctx, acc.ID); err != nil {
			return fmt.Errorf("sweep account %s: %w", acc.ID, err)
		}
	}
	return nil
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled.
func (e *StockAlertEvaluator) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := e.Sweep(ctx); err != nil {
					log.Printf("alert sweep: %v", err)
				}
			}
		}
	}()
}
