package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BOMResolver resolves product-to-material requirements and manages BOM
// lines. It is a pure lookup component: resolving never mutates state.
type BOMResolver struct {
	store Store
}

// NewBOMResolver constructs a BOMResolver on the given store.
func NewBOMResolver(store Store) *BOMResolver {
	return &BOMResolver{store: store}
}

// RequirementsFor multiplies each BOM line's per-unit quantity by
// qtyOfProduct and returns material ID → required quantity. An empty BOM
// means the product's consumption is not tracked and yields an empty map,
// unless requireComplete is set, in which case it fails with ErrBOMIncomplete.
func (r *BOMResolver) RequirementsFor(ctx context.Context, productID string,
	qtyOfProduct decimal.Decimal, requireComplete bool) (map[string]decimal.Decimal, error) {

	if !qtyOfProduct.IsPositive() {
		return nil, fmt.Errorf("product quantity must be > 0, got %s: %w", qtyOfProduct, ErrInvalidQuantity)
	}
	if _, err := r.store.GetItem(ctx, productID); err != nil {
		return nil, fmt.Errorf("resolve product %s: %w", productID, err)
	}

	lines, err := r.store.BOMForProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load BOM for product %s: %w", productID, err)
	}
	if len(lines) == 0 && requireComplete {
		return nil, fmt.Errorf("product %s has no BOM lines: %w", productID, ErrBOMIncomplete)
	}

	required := make(map[string]decimal.Decimal, len(lines))
	for _, l := range lines {
		required[l.MaterialID] = l.QtyPerUnit.Mul(qtyOfProduct)
	}
	return required, nil
}

// Lines returns the BOM of a product.
func (r *BOMResolver) Lines(ctx context.Context, productID string) ([]BOMLine, error) {
	if _, err := r.store.GetItem(ctx, productID); err != nil {
		return nil, fmt.Errorf("resolve product %s: %w", productID, err)
	}
	return r.store.BOMForProduct(ctx, productID)
}

// AddLine creates a BOM line. The (product, material) pair must be unique and
// the per-unit quantity positive. The product must be a finished good and the
// material a raw material.
func (r *BOMResolver) AddLine(ctx context.Context, productID, materialID string, qtyPerUnit decimal.Decimal) (*BOMLine, error) {
	if err := r.validateLine(ctx, productID, materialID, qtyPerUnit); err != nil {
		return nil, err
	}

	if existing, err := r.store.GetBOMLine(ctx, productID, materialID); err == nil && existing != nil {
		return nil, fmt.Errorf("BOM line (%s, %s) already exists: %w", productID, materialID, ErrConflict)
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check BOM line uniqueness: %w", err)
	}

	line := BOMLine{
		ProductID:  productID,
		MaterialID: materialID,
		QtyPerUnit: qtyPerUnit,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := r.store.InsertBOMLine(ctx, line); err != nil {
		return nil, fmt.Errorf("insert BOM line: %w", err)
	}
	return &line, nil
}

// UpdateLine changes the per-unit quantity of an existing line. Quantity must
// stay positive; use RemoveLine to delete a line.
func (r *BOMResolver) UpdateLine(ctx context.Context, productID, materialID string, qtyPerUnit decimal.Decimal) (*BOMLine, error) {
	if !qtyPerUnit.IsPositive() {
		return nil, fmt.Errorf("per-unit quantity must be > 0, got %s: %w", qtyPerUnit, ErrInvalidQuantity)
	}
	if _, err := r.store.GetBOMLine(ctx, productID, materialID); err != nil {
		return nil, fmt.Errorf("BOM line (%s, %s): %w", productID, materialID, err)
	}

	line := BOMLine{
		ProductID:  productID,
		MaterialID: materialID,
		QtyPerUnit: qtyPerUnit,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := r.store.UpdateBOMLine(ctx, line); err != nil {
		return nil, fmt.Errorf("update BOM line: %w", err)
	}
	return &line, nil
}

// RemoveLine deletes a BOM line.
func (r *BOMResolver) RemoveLine(ctx context.Context, productID, materialID string) error {
	if _, err := r.store.GetBOMLine(ctx, productID, materialID); err != nil {
		return fmt.Errorf("BOM line (%s, %s): %w", productID, materialID, err)
	}
	if err := r.store.DeleteBOMLine(ctx, productID, materialID); err != nil {
		return fmt.Errorf("delete BOM line: %w", err)
	}
	return nil
}

func (r *BOMResolver) validateLine(ctx context.Context, productID, materialID string, qtyPerUnit decimal.Decimal) error {
	if !qtyPerUnit.IsPositive() {
		return fmt.Errorf("per-unit quantity must be > 0, got %s: %w", qtyPerUnit, ErrInvalidQuantity)
	}

	product, err := r.store.GetItem(ctx, productID)
	if err != nil {
		return fmt.Errorf("resolve product %s: %w", productID, err)
	}
	if product.Kind != ItemFinishedGood {
		return fmt.Errorf("item %s is not a finished good: %w", productID, ErrConflict)
	}

	material, err := r.store.GetItem(ctx, materialID)
	if err != nil {
		return fmt.Errorf("resolve material %s: %w", materialID, err)
	}
	if material.Kind != ItemMaterial {
		return fmt.Errorf("item %s is not a material: %w", materialID, ErrConflict)
	}
	return nil
}
