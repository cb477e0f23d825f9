package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── Sale orders ──────────────────────────────────────────────────────────────

// SaleStatus progresses through the state machine:
//
//	PENDING → CONFIRMED → IN_PRODUCTION → DELIVERED
//	{PENDING, CONFIRMED, IN_PRODUCTION} → CANCELLED
type SaleStatus string

const (
	SalePending      SaleStatus = "PENDING"
	SaleConfirmed    SaleStatus = "CONFIRMED"
	SaleInProduction SaleStatus = "IN_PRODUCTION"
	SaleDelivered    SaleStatus = "DELIVERED"
	SaleCancelled    SaleStatus = "CANCELLED"
)

// SaleOrder is a client order for finished goods. Confirming recomputes Total
// from the current lines; delivery issues one finished-goods OUT movement per
// line.
type SaleOrder struct {
	ID         string          `json:"id"`
	ClientID   string          `json:"client_id"`
	ClientName string          `json:"client_name"`
	Status     SaleStatus      `json:"status"`
	Lines      []OrderLine     `json:"lines"`
	Total      decimal.Decimal `json:"total"`
	Payments   []Payment       `json:"payments,omitempty"`
	Notes      string          `json:"notes"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Payment is an append-only record of money received against a delivered sale
// order. No general-ledger bookkeeping happens here.
type Payment struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
	PaidAt    time.Time       `json:"paid_at"`
}

// ── Purchase orders ──────────────────────────────────────────────────────────

// PurchaseStatus progresses through the state machine:
//
//	PENDING → SENT → PARTIALLY_RECEIVED → FULLY_RECEIVED
//	{PENDING, SENT, PARTIALLY_RECEIVED} → CANCELLED
//
// Receiving everything in one shipment is allowed (SENT → FULLY_RECEIVED), as
// is a further partial receipt (PARTIALLY_RECEIVED → PARTIALLY_RECEIVED).
type PurchaseStatus string

const (
	PurchasePending           PurchaseStatus = "PENDING"
	PurchaseSent              PurchaseStatus = "SENT"
	PurchasePartiallyReceived PurchaseStatus = "PARTIALLY_RECEIVED"
	PurchaseFullyReceived     PurchaseStatus = "FULLY_RECEIVED"
	PurchaseCancelled         PurchaseStatus = "CANCELLED"
)

// PurchaseOrder is a supplier order for raw materials. Each receipt issues one
// material IN movement per received line.
type PurchaseOrder struct {
	ID           string          `json:"id"`
	SupplierID   string          `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	Status       PurchaseStatus  `json:"status"`
	Lines        []OrderLine     `json:"lines"`
	Total        decimal.Decimal `json:"total"`
	Notes        string          `json:"notes"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ReceivedLine names one purchase order line being received and the quantity
// arriving on this shipment.
type ReceivedLine struct {
	LineID      string          `json:"line_id"`
	QtyReceived decimal.Decimal `json:"qty_received"`
}

// ── Production orders ────────────────────────────────────────────────────────

// ProductionStatus progresses through the state machine:
//
//	PENDING → IN_PROGRESS → COMPLETED
//	{PENDING, IN_PROGRESS} → CANCELLED
type ProductionStatus string

const (
	ProductionPending    ProductionStatus = "PENDING"
	ProductionInProgress ProductionStatus = "IN_PROGRESS"
	ProductionCompleted  ProductionStatus = "COMPLETED"
	ProductionCancelled  ProductionStatus = "CANCELLED"
)

// ProductionOrder manufactures finished goods at a single stock location.
// Completion consumes BOM materials (OUT movements on the material ledger) and
// books the produced quantities (IN movements on the finished-goods ledger) in
// one all-or-nothing commit. Tasks are child work units that cannot outlive
// the order.
type ProductionOrder struct {
	ID         string           `json:"id"`
	LocationID string           `json:"location_id"`
	Status     ProductionStatus `json:"status"`
	Lines      []OrderLine      `json:"lines"`
	Tasks      []Task           `json:"tasks,omitempty"`
	Notes      string           `json:"notes"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// TaskStatus is the lifecycle of a production task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskDone       TaskStatus = "DONE"
	TaskCancelled  TaskStatus = "CANCELLED"
)

// Task is a work unit inside a production order, optionally assigned to an
// employee. Open tasks are cancelled when the parent order reaches a terminal
// state.
type Task struct {
	ID            string     `json:"id"`
	OrderID       string     `json:"order_id"`
	Name          string     `json:"name"`
	EmployeeID    *string    `json:"employee_id,omitempty"`
	EstimatedMins int        `json:"estimated_mins"`
	ActualMins    int        `json:"actual_mins"`
	Status        TaskStatus `json:"status"`
	Notes         string     `json:"notes"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ── Shared line shape ────────────────────────────────────────────────────────

// OrderLine is the line-item shape shared by all three order kinds. UnitPrice
// is zero on production lines; ReceivedQty is only meaningful on purchase
// lines.
type OrderLine struct {
	ID          string          `json:"id"`
	ItemID      string          `json:"item_id"`
	ItemCode    string          `json:"item_code"`
	ItemName    string          `json:"item_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ReceivedQty decimal.Decimal `json:"received_qty,omitempty"`
}

// OrderLineInput holds the caller-supplied fields for creating or editing a
// line.
type OrderLineInput struct {
	ItemID    string          `json:"item_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// orderTotal sums line subtotals.
func orderTotal(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal)
	}
	return total
}
