package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PurchaseOrderService drives the purchase order lifecycle:
//
//	PENDING → SENT → PARTIALLY_RECEIVED → FULLY_RECEIVED
//	{PENDING, SENT, PARTIALLY_RECEIVED} → CANCELLED
//
// Every receipt books one material IN movement per received line. Receiving
// more than a line's ordered quantity — across all receipts — fails with
// ErrOverReceipt and books nothing.
type PurchaseOrderService struct {
	store    Store
	registry Registry
	inv      *Inventory
	editor   lineEditor
	locks    *keyedLocks
}

// NewPurchaseOrderService constructs a PurchaseOrderService.
func NewPurchaseOrderService(store Store, registry Registry, inv *Inventory) *PurchaseOrderService {
	return &PurchaseOrderService{
		store:    store,
		registry: registry,
		inv:      inv,
		editor:   lineEditor{store: store, inv: inv},
		locks:    newKeyedLocks(),
	}
}

// Create opens a PENDING purchase order for a supplier with at least one
// material line.
func (s *PurchaseOrderService) Create(ctx context.Context, supplierID string, lines []OrderLineInput, notes string) (*PurchaseOrder, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("purchase order needs at least one line: %w", ErrValidation)
	}
	supplier, err := s.registry.Supplier(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("resolve supplier %s: %w", supplierID, err)
	}

	built := make([]OrderLine, 0, len(lines))
	for i, input := range lines {
		line, err := s.editor.buildLine(ctx, input, ItemMaterial, true)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		built = append(built, *line)
	}

	now := time.Now().UTC()
	order := &PurchaseOrder{
		ID:           uuid.NewString(),
		SupplierID:   supplier.ID,
		SupplierName: supplier.Name,
		Status:       PurchasePending,
		Lines:        built,
		Total:        orderTotal(built),
		Notes:        notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Apply(ctx, Commit{Purchase: order}); err != nil {
		return nil, fmt.Errorf("create purchase order: %w", err)
	}
	return order, nil
}

// Get returns one purchase order.
func (s *PurchaseOrderService) Get(ctx context.Context, id string) (*PurchaseOrder, error) {
	return s.store.GetPurchaseOrder(ctx, id)
}

// List returns purchase orders, optionally filtered by status.
func (s *PurchaseOrderService) List(ctx context.Context, status *PurchaseStatus) ([]PurchaseOrder, error) {
	return s.store.ListPurchaseOrders(ctx, status)
}

// Transition handles the stock-free transitions: SENT and CANCELLED. The
// received states are reached through Receive, which owns the stock side
// effects.
func (s *PurchaseOrderService) Transition(ctx context.Context, orderID string, to PurchaseStatus) (*PurchaseOrder, error) {
	if to == PurchasePartiallyReceived || to == PurchaseFullyReceived {
		return nil, fmt.Errorf("receiving requires received quantities, use the receive operation: %w", ErrValidation)
	}

	lock := s.locks.lockFor(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := s.store.GetPurchaseOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("purchase order %s: %w", orderID, err)
	}
	if !purchaseMachine.canTransition(order.Status, to) {
		return nil, fmt.Errorf("purchase order %s: %s → %s: %w", orderID, order.Status, to, ErrInvalidTransition)
	}

	order.Status = to
	order.UpdatedAt = time.Now().UTC()
	if err := s.store.Apply(ctx, Commit{Purchase: order}); err != nil {
		return nil, fmt.Errorf("transition purchase order %s to %s: %w", orderID, to, err)
	}
	return order, nil
}

// Receive books a shipment against a SENT or PARTIALLY_RECEIVED order: one IN
// movement per received line into the given location, atomically with the
// resulting status. The order lands in FULLY_RECEIVED when every line is
// complete, PARTIALLY_RECEIVED otherwise.
func (s *PurchaseOrderService) Receive(ctx context.Context, orderID, locationID string, received []ReceivedLine) (*PurchaseOrder, error) {
	if len(received) == 0 {
		return nil, fmt.Errorf("at least one received line is required: %w", ErrValidation)
	}
	if locationID == "" {
		return nil, fmt.Errorf("receiving requires a stock location: %w", ErrValidation)
	}

	lock := s.locks.lockFor(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := s.store.GetPurchaseOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("purchase order %s: %w", orderID, err)
	}
	if order.Status != PurchaseSent && order.Status != PurchasePartiallyReceived {
		return nil, fmt.Errorf("purchase order %s: cannot receive in %s: %w", orderID, order.Status, ErrInvalidTransition)
	}

	lineByID := make(map[string]*OrderLine, len(order.Lines))
	for i := range order.Lines {
		lineByID[order.Lines[i].ID] = &order.Lines[i]
	}

	batch := s.inv.NewBatch()
	ref := order.ID

	for _, rl := range received {
		line, ok := lineByID[rl.LineID]
		if !ok {
			return nil, fmt.Errorf("purchase order %s has no line %s: %w", orderID, rl.LineID, ErrNotFound)
		}
		if err := s.inv.Materials().checkQuantity(rl.QtyReceived); err != nil {
			return nil, fmt.Errorf("line %s: %w", rl.LineID, err)
		}

		after := line.ReceivedQty.Add(rl.QtyReceived)
		if after.GreaterThan(line.Quantity) {
			return nil, fmt.Errorf(
				"line %s: receiving %s would total %s of %s ordered: %w",
				rl.LineID, rl.QtyReceived, after, line.Quantity, ErrOverReceipt)
		}

		acc, err := s.store.FindAccount(ctx, line.ItemID, locationID)
		if err != nil {
			return nil, fmt.Errorf("stock account for item %s: %w", line.ItemCode, err)
		}
		batch.In(s.inv.Materials(), acc.ID, rl.QtyReceived,
			fmt.Sprintf("purchase receipt %s: %s", order.ID, line.ItemCode), &ref)
		line.ReceivedQty = after
	}

	next := PurchaseFullyReceived
	for _, line := range order.Lines {
		if line.ReceivedQty.LessThan(line.Quantity) {
			next = PurchasePartiallyReceived
			break
		}
	}
	if !purchaseMachine.canTransition(order.Status, next) {
		return nil, fmt.Errorf("purchase order %s: %s → %s: %w", orderID, order.Status, next, ErrInvalidTransition)
	}

	order.Status = next
	order.UpdatedAt = time.Now().UTC()
	batch.AttachPurchase(order)

	if _, err := batch.Commit(ctx); err != nil {
		return nil, fmt.Errorf("receive purchase order %s: %w", orderID, err)
	}
	return order, nil
}

// AddLine appends a line while the order is PENDING.
func (s *PurchaseOrderService) AddLine(ctx context.Context, orderID string, input OrderLineInput) (*PurchaseOrder, error) {
	return s.editLines(ctx, orderID, func(order *PurchaseOrder) error {
		line, err := s.editor.buildLine(ctx, input, ItemMaterial, true)
		if err != nil {
			return err
		}
		order.Lines = append(order.Lines, *line)
		return nil
	})
}

// UpdateLine changes quantity and price of a line while the order is PENDING.
func (s *PurchaseOrderService) UpdateLine(ctx context.Context, orderID, lineID string, input OrderLineInput) (*PurchaseOrder, error) {
	return s.editLines(ctx, orderID, func(order *PurchaseOrder) error {
		return s.editor.updateLine(ctx, order.Lines, lineID, input, ItemMaterial, true)
	})
}

// RemoveLine drops a line while the order is PENDING. The last line cannot be
// removed.
func (s *PurchaseOrderService) RemoveLine(ctx context.Context, orderID, lineID string) (*PurchaseOrder, error) {
	return s.editLines(ctx, orderID, func(order *PurchaseOrder) error {
		if len(order.Lines) == 1 {
			return fmt.Errorf("purchase order needs at least one line: %w", ErrValidation)
		}
		lines, err := s.editor.removeLine(order.Lines, lineID)
		if err != nil {
			return err
		}
		order.Lines = lines
		return nil
	})
}

func (s *PurchaseOrderService) editLines(ctx context.Context, orderID string, mutate func(*PurchaseOrder) error) (*PurchaseOrder, error) {
	lock := s.locks.lockFor(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := s.store.GetPurchaseOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("purchase order %s: %w", orderID, err)
	}
	if !purchaseMachine.canEditLines(order.Status) {
		return nil, fmt.Errorf("purchase order %s: lines are frozen in %s: %w", orderID, order.Status, ErrInvalidTransition)
	}
	if err := mutate(order); err != nil {
		return nil, err
	}

	order.Total = orderTotal(order.Lines)
	order.UpdatedAt = time.Now().UTC()
	if err := s.store.Apply(ctx, Commit{Purchase: order}); err != nil {
		return nil, fmt.Errorf("update purchase order %s: %w", orderID, err)
	}
	return order, nil
}
