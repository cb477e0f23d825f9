package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// lineEditor builds and mutates order lines under the editability rules the
// per-kind transition tables define. The owning service checks
// machine.canEditLines before calling any mutator here.
type lineEditor struct {
	store Store
	inv   *Inventory
}

// buildLine resolves the item, validates kind and quantity against the item's
// ledger, and computes the subtotal. priced orders (sale, purchase) require a
// non-negative unit price; production lines carry none.
func (le lineEditor) buildLine(ctx context.Context, input OrderLineInput, wantKind ItemKind, priced bool) (*OrderLine, error) {
	item, err := le.store.GetItem(ctx, input.ItemID)
	if err != nil {
		return nil, fmt.Errorf("resolve item %s: %w", input.ItemID, err)
	}
	if item.Kind != wantKind {
		return nil, fmt.Errorf("item %s is %s, want %s: %w", item.Code, item.Kind, wantKind, ErrValidation)
	}
	if err := le.inv.LedgerFor(item.Kind).checkQuantity(input.Quantity); err != nil {
		return nil, err
	}
	if priced && input.UnitPrice.IsNegative() {
		return nil, fmt.Errorf("unit price must be >= 0, got %s: %w", input.UnitPrice, ErrValidation)
	}

	line := &OrderLine{
		ID:        uuid.NewString(),
		ItemID:    item.ID,
		ItemCode:  item.Code,
		ItemName:  item.Name,
		Quantity:  input.Quantity,
		UnitPrice: input.UnitPrice,
	}
	if priced {
		line.Subtotal = input.Quantity.Mul(input.UnitPrice)
	}
	return line, nil
}

// updateLine replaces quantity and price of an existing line in place.
func (le lineEditor) updateLine(ctx context.Context, lines []OrderLine, lineID string,
	input OrderLineInput, wantKind ItemKind, priced bool) error {

	for i := range lines {
		if lines[i].ID != lineID {
			continue
		}
		item, err := le.store.GetItem(ctx, lines[i].ItemID)
		if err != nil {
			return fmt.Errorf("resolve item %s: %w", lines[i].ItemID, err)
		}
		if err := le.inv.LedgerFor(item.Kind).checkQuantity(input.Quantity); err != nil {
			return err
		}
		if priced && input.UnitPrice.IsNegative() {
			return fmt.Errorf("unit price must be >= 0, got %s: %w", input.UnitPrice, ErrValidation)
		}
		lines[i].Quantity = input.Quantity
		if priced {
			lines[i].UnitPrice = input.UnitPrice
			lines[i].Subtotal = input.Quantity.Mul(input.UnitPrice)
		}
		return nil
	}
	return fmt.Errorf("line %s: %w", lineID, ErrNotFound)
}

// removeLine drops a line by ID and returns the shortened slice.
func (le lineEditor) removeLine(lines []OrderLine, lineID string) ([]OrderLine, error) {
	for i := range lines {
		if lines[i].ID == lineID {
			return append(lines[:i], lines[i+1:]...), nil
		}
	}
	return nil, fmt.Errorf("line %s: %w", lineID, ErrNotFound)
}
