package app

import (
	"github.com/shopspring/decimal"

	"textile-backoffice/internal/core"
)

type CreateItemRequest struct {
	Kind     core.ItemKind   `json:"kind"`
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Unit     string          `json:"unit"`
	MinStock decimal.Decimal `json:"min_stock"`
}

type CreateLocationRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type OpenAccountRequest struct {
	ItemID     string `json:"item_id"`
	LocationID string `json:"location_id"`
}

// AdjustmentRequest books a manual movement outside any order flow, e.g. a
// physical count correction or scrap write-off.
type AdjustmentRequest struct {
	Direction core.Direction  `json:"direction"`
	Quantity  decimal.Decimal `json:"quantity"`
	Reason    string          `json:"reason"`
}

type BOMLineRequest struct {
	MaterialID string          `json:"material_id"`
	QtyPerUnit decimal.Decimal `json:"qty_per_unit"`
}

type CreateSaleRequest struct {
	ClientID string                `json:"client_id"`
	Lines    []core.OrderLineInput `json:"lines"`
	Notes    string                `json:"notes"`
}

// SaleTransitionRequest carries the target status plus the stock location a
// delivery ships from. LocationID is required only for DELIVERED.
type SaleTransitionRequest struct {
	Target     core.SaleStatus `json:"target"`
	LocationID string          `json:"location_id,omitempty"`
}

type PaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
}

type CreatePurchaseRequest struct {
	SupplierID string                `json:"supplier_id"`
	Lines      []core.OrderLineInput `json:"lines"`
	Notes      string                `json:"notes"`
}

// PurchaseTransitionRequest carries the target status; receipts additionally
// carry the receiving location and the per-line quantities arriving.
type PurchaseTransitionRequest struct {
	Target     core.PurchaseStatus `json:"target"`
	LocationID string              `json:"location_id,omitempty"`
	Received   []core.ReceivedLine `json:"received,omitempty"`
}

type CreateProductionRequest struct {
	LocationID string                `json:"location_id"`
	Lines      []core.OrderLineInput `json:"lines"`
	Notes      string                `json:"notes"`
}
