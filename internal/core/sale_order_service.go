package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleOrderService drives the sale order lifecycle:
//
//	PENDING → CONFIRMED → IN_PRODUCTION → DELIVERED
//	{PENDING, CONFIRMED, IN_PRODUCTION} → CANCELLED
//
// Delivery issues one finished-goods OUT movement per line; confirming
// recomputes the total from the current lines. Lines are editable only while
// the order is PENDING or CONFIRMED.
type SaleOrderService struct {
	store    Store
	registry Registry
	inv      *Inventory
	editor   lineEditor
	locks    *keyedLocks
}

// NewSaleOrderService constructs a SaleOrderService.
func NewSaleOrderService(store Store, registry Registry, inv *Inventory) *SaleOrderService {
	return &SaleOrderService{
		store:    store,
		registry: registry,
		inv:      inv,
		editor:   lineEditor{store: store, inv: inv},
		locks:    newKeyedLocks(),
	}
}

// SaleTransitionOptions carries transition-specific input. LocationID names
// the stock location goods ship from and is required for DELIVERED.
type SaleTransitionOptions struct {
	LocationID string
}

// Create opens a PENDING sale order for a client with at least one
// finished-goods line.
func (s *SaleOrderService) Create(ctx context.Context, clientID string, lines []OrderLineInput, notes string) (*SaleOrder, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("sale order needs at least one line: %w", ErrValidation)
	}
	client, err := s.registry.Client(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("resolve client %s: %w", clientID, err)
	}

	built := make([]OrderLine, 0, len(lines))
	for i, input := range lines {
		line, err := s.editor.buildLine(ctx, input, ItemFinishedGood, true)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		built = append(built, *line)
	}

	now := time.Now().UTC()
	order := &SaleOrder{
		ID:         uuid.NewString(),
		ClientID:   client.ID,
		ClientName: client.Name,
		Status:     SalePending,
		Lines:      built,
		Total:      orderTotal(built),
		Notes:      notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Apply(ctx, Commit{Sale: order}); err != nil {
		return nil, fmt.Errorf("create sale order: %w", err)
	}
	return order, nil
}

// Get returns one sale order.
func (s *SaleOrderService) Get(ctx context.Context, id string) (*SaleOrder, error) {
	return s.store.GetSaleOrder(ctx, id)
}

// List returns sale orders, optionally filtered by status.
func (s *SaleOrderService) List(ctx context.Context, status *SaleStatus) ([]SaleOrder, error) {
	return s.store.ListSaleOrders(ctx, status)
}

// Transition moves the order to a new status, applying the stock side effect
// the target state requires. Unlisted transitions fail with
// ErrInvalidTransition and leave order and ledgers untouched.
func (s *SaleOrderService) Transition(ctx context.Context, orderID string, to SaleStatus, opts SaleTransitionOptions) (*SaleOrder, error) {
	lock := s.locks.lockFor(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := s.store.GetSaleOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("sale order %s: %w", orderID, err)
	}
	if !saleMachine.canTransition(order.Status, to) {
		return nil, fmt.Errorf("sale order %s: %s → %s: %w", orderID, order.Status, to, ErrInvalidTransition)
	}

	batch := s.inv.NewBatch()

	switch to {
	case SaleConfirmed:
		order.Total = orderTotal(order.Lines)
	case SaleDelivered:
		if opts.LocationID == "" {
			return nil, fmt.Errorf("delivery requires a stock location: %w", ErrValidation)
		}
		ref := order.ID
		for _, line := range order.Lines {
			acc, err := s.store.FindAccount(ctx, line.ItemID, opts.LocationID)
			if err != nil {
				return nil, fmt.Errorf("stock account for item %s: %w", line.ItemCode, err)
			}
			batch.Out(s.inv.Finished(), acc.ID, line.Quantity,
				fmt.Sprintf("sale delivery %s: %s", order.ID, line.ItemCode), &ref)
		}
	}

	order.Status = to
	order.UpdatedAt = time.Now().UTC()
	batch.AttachSale(order)

	if _, err := batch.Commit(ctx); err != nil {
		return nil, fmt.Errorf("transition sale order %s to %s: %w", orderID, to, err)
	}
	return order, nil
}

// AddLine appends a line while the order is editable.
func (s *SaleOrderService) AddLine(ctx context.Context, orderID string, input OrderLineInput) (*SaleOrder, error) {
	return s.editLines(ctx, orderID, func(order *SaleOrder) error {
		line, err := s.editor.buildLine(ctx, input, ItemFinishedGood, true)
		if err != nil {
			return err
		}
		order.Lines = append(order.Lines, *line)
		return nil
	})
}

// UpdateLine changes quantity and price of a line while the order is editable.
func (s *SaleOrderService) UpdateLine(ctx context.Context, orderID, lineID string, input OrderLineInput) (*SaleOrder, error) {
	return s.editLines(ctx, orderID, func(order *SaleOrder) error {
		return s.editor.updateLine(ctx, order.Lines, lineID, input, ItemFinishedGood, true)
	})
}

// RemoveLine drops a line while the order is editable. The last line cannot
// be removed.
func (s *SaleOrderService) RemoveLine(ctx context.Context, orderID, lineID string) (*SaleOrder, error) {
	return s.editLines(ctx, orderID, func(order *SaleOrder) error {
		if len(order.Lines) == 1 {
			return fmt.Errorf("sale order needs at least one line: %w", ErrValidation)
		}
		lines, err := s.editor.removeLine(order.Lines, lineID)
		if err != nil {
			return err
		}
		order.Lines = lines
		return nil
	})
}

func (s *SaleOrderService) editLines(ctx context.Context, orderID string, mutate func(*SaleOrder) error) (*SaleOrder, error) {
	lock := s.locks.lockFor(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := s.store.GetSaleOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("sale order %s: %w", orderID, err)
	}
	if !saleMachine.canEditLines(order.Status) {
		return nil, fmt.Errorf("sale order %s: lines are frozen in %s: %w", orderID, order.Status, ErrInvalidTransition)
	}
	if err := mutate(order); err != nil {
		return nil, err
	}

	order.Total = orderTotal(order.Lines)
	order.UpdatedAt = time.Now().UTC()
	if err := s.store.Apply(ctx, Commit{Sale: order}); err != nil {
		return nil, fmt.Errorf("update sale order %s: %w", orderID, err)
	}
	return order, nil
}

// RecordPayment appends a payment against a delivered order. This is a plain
// record, not bookkeeping.
func (s *SaleOrderService) RecordPayment(ctx context.Context, orderID string, amount decimal.Decimal, method, reference string) (*SaleOrder, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("payment amount must be > 0, got %s: %w", amount, ErrInvalidQuantity)
	}

	lock := s.locks.lockFor(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := s.store.GetSaleOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("sale order %s: %w", orderID, err)
	}
	if order.Status != SaleDelivered {
		return nil, fmt.Errorf("sale order %s: payments require DELIVERED, status is %s: %w",
			orderID, order.Status, ErrInvalidTransition)
	}

	order.Payments = append(order.Payments, Payment{
		ID:        uuid.NewString(),
		OrderID:   order.ID,
		Amount:    amount,
		Method:    method,
		Reference: reference,
		PaidAt:    time.Now().UTC(),
	})
	order.UpdatedAt = time.Now().UTC()

	if err := s.store.Apply(ctx, Commit{Sale: order}); err != nil {
		return nil, fmt.Errorf("record payment on sale order %s: %w", orderID, err)
	}
	return order, nil
}
