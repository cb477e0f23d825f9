package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductionOrderService drives the production order lifecycle:
//
//	PENDING → IN_PROGRESS → COMPLETED
//	{PENDING, IN_PROGRESS} → CANCELLED
//
// Completion is the only stock-affecting step: every produced line consumes
// its bill-of-materials requirements (material OUT movements) and books the
// produced quantity (finished-goods IN movement) in one commit. Insufficient
// material stock fails the whole completion and books nothing. An empty BOM
// means no tracked consumption, not an error.
type ProductionOrderService struct {
	store    Store
	registry Registry
	inv      *Inventory
	bom      *BOMResolver
	editor   lineEditor
	locks    *keyedLocks
}

// NewProductionOrderService constructs a ProductionOrderService.
func NewProductionOrderService(store Store, registry Registry, inv *Inventory, bom *BOMResolver) *ProductionOrderService {
	return &ProductionOrderService{
		store:    store,
		registry: registry,
		inv:      inv,
		bom:      bom,
		editor:   lineEditor{store: store, inv: inv},
		locks:    newKeyedLocks(),
	}
}

// Create opens a PENDING production order at a stock location with at least
// one finished-good line.
func (s *ProductionOrderService) Create(ctx context.Context, locationID string, lines []OrderLineInput, notes string) (*ProductionOrder, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("production order needs at least one line: %w", ErrValidation)
	}
	if _, err := s.store.GetLocation(ctx, locationID); err != nil {
		return nil, fmt.Errorf("location %s: %w", locationID, err)
	}

	built := make([]OrderLine, 0, len(lines))
	for i, input := range lines {
		line, err := s.editor.buildLine(ctx, input, ItemFinishedGood, false)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		built = append(built, *line)
	}

	now := time.Now().UTC()
	order := &ProductionOrder{
		ID:         uuid.NewString(),
		LocationID: locationID,
		Status:     ProductionPending,
		Lines:      built,
		Notes:      notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Apply(ctx, Commit{Production: order}); err != nil {
		return nil, fmt.Errorf("create production order: %w", err)
	}
	return order, nil
}

// Get returns one production order.
func (s *ProductionOrderService) Get(ctx context.Context, id string) (*ProductionOrder, error) {
	return s.store.GetProductionOrder(ctx, id)
}

// List returns production orders, optionally filtered by status.
func (s *ProductionOrderService) List(ctx context.Context, status *ProductionStatus) ([]ProductionOrder, error) {
	return s.store.ListProductionOrders(ctx, status)
}

// Transition moves the order to the target status. Moving to COMPLETED books
// the material consumption and finished-goods output; moving to a terminal
// status cancels any still-open tasks alongside.
func (s *ProductionOrderService) Transition(ctx context.Context, orderID string, to ProductionStatus) (*ProductionOrder, error) {
	lock := s.locks.lockFor(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := s.store.GetProductionOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("production order %s: %w", orderID, err)
	}
	if !productionMachine.canTransition(order.Status, to) {
		return nil, fmt.Errorf("production order %s: %s → %s: %w", orderID, order.Status, to, ErrInvalidTransition)
	}

	now := time.Now().UTC()
	order.Status = to
	order.UpdatedAt = now
	if productionMachine.isTerminal(to) {
		cancelOpenTasks(order, now)
	}

	if to != ProductionCompleted {
		if err := s.store.Apply(ctx, Commit{Production: order}); err != nil {
			return nil, fmt.Errorf("transition production order %s to %s: %w", orderID, to, err)
		}
		return order, nil
	}

	batch, err := s.stageCompletion(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("complete production order %s: %w", orderID, err)
	}
	batch.AttachProduction(order)
	if _, err := batch.Commit(ctx); err != nil {
		return nil, fmt.Errorf("complete production order %s: %w", orderID, err)
	}
	return order, nil
}

// stageCompletion resolves every line's BOM, aggregates material demand across
// lines, and stages the material OUTs and finished-goods INs. An empty BOM
// contributes nothing to the demand.
func (s *ProductionOrderService) stageCompletion(ctx context.Context, order *ProductionOrder) (*MovementBatch, error) {
	demand := make(map[string]decimal.Decimal)
	for _, line := range order.Lines {
		required, err := s.bom.RequirementsFor(ctx, line.ItemID, line.Quantity, false)
		if err != nil {
			return nil, fmt.Errorf("line %s (%s): %w", line.ID, line.ItemCode, err)
		}
		for materialID, qty := range required {
			demand[materialID] = demand[materialID].Add(qty)
		}
	}

	batch := s.inv.NewBatch()
	ref := order.ID

	for materialID, qty := range demand {
		acc, err := s.store.FindAccount(ctx, materialID, order.LocationID)
		if err != nil {
			return nil, fmt.Errorf("material account for item %s: %w", materialID, err)
		}
		batch.Out(s.inv.Materials(), acc.ID, qty,
			fmt.Sprintf("production consumption %s", order.ID), &ref)
	}
	for _, line := range order.Lines {
		acc, err := s.store.FindAccount(ctx, line.ItemID, order.LocationID)
		if err != nil {
			return nil, fmt.Errorf("finished-goods account for item %s: %w", line.ItemCode, err)
		}
		batch.In(s.inv.Finished(), acc.ID, line.Quantity,
			fmt.Sprintf("production output %s: %s", order.ID, line.ItemCode), &ref)
	}
	return batch, nil
}

// cancelOpenTasks cancels every task that has not already finished.
func cancelOpenTasks(order *ProductionOrder, now time.Time) {
	for i := range order.Tasks {
		switch order.Tasks[i].Status {
		case TaskPending, TaskInProgress:
			order.Tasks[i].Status = TaskCancelled
			order.Tasks[i].UpdatedAt = now
		}
	}
}

// ── Lines ────────────────────────────────────────────────────────────────────

// AddLine appends a line while the order is PENDING.
func (s *ProductionOrderService) AddLine(ctx context.Context, orderID string, input OrderLineInput) (*ProductionOrder, error) {
	return s.editLines(ctx, orderID, func(order *ProductionOrder) error {
		line, err := s.editor.buildLine(ctx, input, ItemFinishedGood, false)
		if err != nil {
			return err
		}
		order.Lines = append(order.Lines, *line)
		return nil
	})
}

// UpdateLine changes the quantity of a line while the order is PENDING.
func (s *ProductionOrderService) UpdateLine(ctx context.Context, orderID, lineID string, input OrderLineInput) (*ProductionOrder, error) {
	return s.editLines(ctx, orderID, func(order *ProductionOrder) error {
		return s.editor.updateLine(ctx, order.Lines, lineID, input, ItemFinishedGood, false)
	})
}

// RemoveLine drops a line while the order is PENDING. The last line cannot be
// removed.
func (s *ProductionOrderService) RemoveLine(ctx context.Context, orderID, lineID string) (*ProductionOrder, error) {
	return s.editLines(ctx, orderID, func(order *ProductionOrder) error {
		if len(order.Lines) == 1 {
			return fmt.Errorf("production order needs at least one line: %w", ErrValidation)
		}
		lines, err := s.editor.removeLine(order.Lines, lineID)
		if err != nil {
			return err
		}
		order.Lines = lines
		return nil
	})
}

func (s *ProductionOrderService) editLines(ctx context.Context, orderID string, mutate func(*ProductionOrder) error) (*ProductionOrder, error) {
	lock := s.locks.lockFor(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := s.store.GetProductionOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("production order %s: %w", orderID, err)
	}
	if !productionMachine.canEditLines(order.Status) {
		return nil, fmt.Errorf("production order %s: lines are frozen in %s: %w", orderID, order.Status, ErrInvalidTransition)
	}
	if err := mutate(order); err != nil {
		return nil, err
	}

	order.UpdatedAt = time.Now().UTC()
	if err := s.store.Apply(ctx, Commit{Production: order}); err != nil {
		return nil, fmt.Errorf("update production order %s: %w", orderID, err)
	}
	return order, nil
}

// ── Tasks ────────────────────────────────────────────────────────────────────

// TaskInput holds the caller-supplied fields for creating or editing a task.
type TaskInput struct {
	Name          string  `json:"name"`
	EmployeeID    *string `json:"employee_id,omitempty"`
	EstimatedMins int     `json:"estimated_mins"`
	Notes         string  `json:"notes"`
}

// TaskUpdate carries a partial task edit. Nil fields are left unchanged.
type TaskUpdate struct {
	Name       *string     `json:"name,omitempty"`
	EmployeeID *string     `json:"employee_id,omitempty"`
	ActualMins *int        `json:"actual_mins,omitempty"`
	Status     *TaskStatus `json:"status,omitempty"`
	Notes      *string     `json:"notes,omitempty"`
}

// AddTask attaches a work unit to a non-terminal order.
func (s *ProductionOrderService) AddTask(ctx context.Context, orderID string, input TaskInput) (*ProductionOrder, error) {
	lock := s.locks.lockFor(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := s.store.GetProductionOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("production order %s: %w", orderID, err)
	}
	if productionMachine.isTerminal(order.Status) {
		return nil, fmt.Errorf("production order %s is %s: %w", orderID, order.Status, ErrInvalidTransition)
	}
	if input.Name == "" {
		return nil, fmt.Errorf("task name is required: %w", ErrValidation)
	}
	if input.EstimatedMins < 0 {
		return nil, fmt.Errorf("estimated minutes cannot be negative: %w", ErrValidation)
	}
	if input.EmployeeID != nil {
		if _, err := s.registry.Employee(ctx, *input.EmployeeID); err != nil {
			return nil, fmt.Errorf("resolve employee %s: %w", *input.EmployeeID, err)
		}
	}

	now := time.Now().UTC()
	order.Tasks = append(order.Tasks, Task{
		ID:            uuid.NewString(),
		OrderID:       order.ID,
		Name:          input.Name,
		EmployeeID:    input.EmployeeID,
		EstimatedMins: input.EstimatedMins,
		Status:        TaskPending,
		Notes:         input.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	order.UpdatedAt = now

	if err := s.store.Apply(ctx, Commit{Production: order}); err != nil {
		return nil, fmt.Errorf("add task to production order %s: %w", orderID, err)
	}
	return order, nil
}

// UpdateTask edits a task. Finished and cancelled tasks cannot be reopened.
func (s *ProductionOrderService) UpdateTask(ctx context.Context, orderID, taskID string, update TaskUpdate) (*ProductionOrder, error) {
	lock := s.locks.lockFor(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := s.store.GetProductionOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("production order %s: %w", orderID, err)
	}
	if productionMachine.isTerminal(order.Status) {
		return nil, fmt.Errorf("production order %s is %s: %w", orderID, order.Status, ErrInvalidTransition)
	}

	var task *Task
	for i := range order.Tasks {
		if order.Tasks[i].ID == taskID {
			task = &order.Tasks[i]
			break
		}
	}
	if task == nil {
		return nil, fmt.Errorf("production order %s has no task %s: %w", orderID, taskID, ErrNotFound)
	}
	if task.Status == TaskDone || task.Status == TaskCancelled {
		return nil, fmt.Errorf("task %s is %s: %w", taskID, task.Status, ErrInvalidTransition)
	}

	if update.Name != nil {
		if *update.Name == "" {
			return nil, fmt.Errorf("task name is required: %w", ErrValidation)
		}
		task.Name = *update.Name
	}
	if update.EmployeeID != nil {
		if _, err := s.registry.Employee(ctx, *update.EmployeeID); err != nil {
			return nil, fmt.Errorf("resolve employee %s: %w", *update.EmployeeID, err)
		}
		task.EmployeeID = update.EmployeeID
	}
	if update.ActualMins != nil {
		if *update.ActualMins < 0 {
			return nil, fmt.Errorf("actual minutes cannot be negative: %w", ErrValidation)
		}
		task.ActualMins = *update.ActualMins
	}
	if update.Status != nil {
		switch *update.Status {
		case TaskPending, TaskInProgress, TaskDone, TaskCancelled:
			task.Status = *update.Status
		default:
			return nil, fmt.Errorf("unknown task status %q: %w", *update.Status, ErrValidation)
		}
	}
	if update.Notes != nil {
		task.Notes = *update.Notes
	}

	now := time.Now().UTC()
	task.UpdatedAt = now
	order.UpdatedAt = now

	if err := s.store.Apply(ctx, Commit{Production: order}); err != nil {
		return nil, fmt.Errorf("update task %s: %w", taskID, err)
	}
	return order, nil
}
