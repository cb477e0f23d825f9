package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemKind distinguishes the two stock item variants. Materials live on the
// raw-material ledger (fractional quantities), finished goods on the
// finished-goods ledger (whole units).
type ItemKind string

const (
	ItemMaterial     ItemKind = "MATERIAL"
	ItemFinishedGood ItemKind = "FINISHED_GOOD"
)

// Item is a stockable article: a raw material (yarn, dye, greige fabric) or a
// finished good (garment, bolt). MinStock is the alert threshold — mutable
// configuration, never part of ledger history.
type Item struct {
	ID        string          `json:"id"`
	Kind      ItemKind        `json:"kind"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"` // kg, m, unit, ...
	MinStock  decimal.Decimal `json:"min_stock"`
	CreatedAt time.Time       `json:"created_at"`
}

// StockLocation is a named warehouse or shelf.
type StockLocation struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// LedgerName identifies one of the two movement ledgers.
type LedgerName string

const (
	LedgerMaterials LedgerName = "materials"
	LedgerFinished  LedgerName = "finished"
)

// StockAccount is the unique (item, location) pairing that owns a balance.
// Balance is a materialized cache of the movement history; the ledger stays
// the source of truth and Reconcile recomputes the cache from it.
type StockAccount struct {
	ID         string          `json:"id"`
	ItemID     string          `json:"item_id"`
	LocationID string          `json:"location_id"`
	Ledger     LedgerName      `json:"ledger"`
	Balance    decimal.Decimal `json:"balance"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Direction of a stock movement.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Movement is one immutable ledger entry. Once written it is never edited or
// deleted; corrections are new compensating movements.
type Movement struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Ledger    LedgerName      `json:"ledger"`
	Direction Direction       `json:"direction"`
	Quantity  decimal.Decimal `json:"quantity"` // always positive
	Reason    string          `json:"reason"`
	OrderRef  *string         `json:"order_ref,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Signed returns the quantity with its direction applied (IN positive, OUT
// negative).
func (m Movement) Signed() decimal.Decimal {
	if m.Direction == DirectionOut {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// BOMLine states how much of one material a single unit of a product
// consumes. (ProductID, MaterialID) is unique.
type BOMLine struct {
	ProductID  string          `json:"product_id"`
	MaterialID string          `json:"material_id"`
	QtyPerUnit decimal.Decimal `json:"qty_per_unit"` // > 0
	UpdatedAt  time.Time       `json:"updated_at"`
}

// AlertStatus is the explicit alert lifecycle state. Transitions are
// monotonic: NEW → VIEWED → RESOLVED, no regression, no reopening.
type AlertStatus string

const (
	AlertNew      AlertStatus = "NEW"
	AlertViewed   AlertStatus = "VIEWED"
	AlertResolved AlertStatus = "RESOLVED"
)

// Open reports whether the status still counts against alert deduplication.
func (s AlertStatus) Open() bool { return s == AlertNew || s == AlertViewed }

// Alert records a threshold breach for an item. Level and Threshold are
// snapshots taken when the breach was detected.
type Alert struct {
	ID         string          `json:"id"`
	ItemID     string          `json:"item_id"`
	AccountID  string          `json:"account_id"`
	Level      decimal.Decimal `json:"level"`
	Threshold  decimal.Decimal `json:"threshold"`
	Status     AlertStatus     `json:"status"`
	RaisedAt   time.Time       `json:"raised_at"`
	ViewedBy   *string         `json:"viewed_by,omitempty"`
	ViewedAt   *time.Time      `json:"viewed_at,omitempty"`
	ResolvedBy *string         `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
}

// PartyRef is the read-only view of an external counterparty (client,
// supplier, employee) the core needs for validating references and filling
// response summaries.
type PartyRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
