// Package app is the application facade the adapters talk to. It bundles the
// core services behind one interface so transports never reach into core
// wiring directly.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	"textile-backoffice/internal/core"
)

// ApplicationService is the full operation surface exposed to adapters.
type ApplicationService interface {
	// ── Catalog ──
	CreateItem(ctx context.Context, req CreateItemRequest) (*core.Item, error)
	GetItem(ctx context.Context, id string) (*core.Item, error)
	ListItems(ctx context.Context, kind *core.ItemKind) ([]core.Item, error)
	UpdateItemThreshold(ctx context.Context, itemID string, min decimal.Decimal) error
	CreateLocation(ctx context.Context, req CreateLocationRequest) (*core.StockLocation, error)
	ListLocations(ctx context.Context) ([]core.StockLocation, error)
	OpenAccount(ctx context.Context, req OpenAccountRequest) (*core.StockAccount, error)
	StockOverview(ctx context.Context) ([]core.StockOverviewRow, error)

	// ── Stock ledger ──
	AccountBalance(ctx context.Context, accountID string) (*BalanceResult, error)
	AccountMovements(ctx context.Context, accountID string, page core.Page) ([]core.Movement, error)
	RecordAdjustment(ctx context.Context, accountID string, req AdjustmentRequest) (*core.Movement, error)
	ReconcileAccount(ctx context.Context, accountID string) (*BalanceResult, error)

	// ── Bill of materials ──
	BOMLines(ctx context.Context, productID string) ([]core.BOMLine, error)
	AddBOMLine(ctx context.Context, productID string, req BOMLineRequest) (*core.BOMLine, error)
	UpdateBOMLine(ctx context.Context, productID, materialID string, qtyPerUnit decimal.Decimal) (*core.BOMLine, error)
	RemoveBOMLine(ctx context.Context, productID, materialID string) error

	// ── Sale orders ──
	CreateSale(ctx context.Context, req CreateSaleRequest) (*core.SaleOrder, error)
	GetSale(ctx context.Context, id string) (*core.SaleOrder, error)
	ListSales(ctx context.Context, status *core.SaleStatus) ([]core.SaleOrder, error)
	TransitionSale(ctx context.Context, id string, req SaleTransitionRequest) (*core.SaleOrder, error)
	AddSaleLine(ctx context.Context, id string, line core.OrderLineInput) (*core.SaleOrder, error)
	UpdateSaleLine(ctx context.Context, id, lineID string, line core.OrderLineInput) (*core.SaleOrder, error)
	RemoveSaleLine(ctx context.Context, id, lineID string) (*core.SaleOrder, error)
	RecordPayment(ctx context.Context, id string, req PaymentRequest) (*core.SaleOrder, error)

	// ── Purchase orders ──
	CreatePurchase(ctx context.Context, req CreatePurchaseRequest) (*core.PurchaseOrder, error)
	GetPurchase(ctx context.Context, id string) (*core.PurchaseOrder, error)
	ListPurchases(ctx context.Context, status *core.PurchaseStatus) ([]core.PurchaseOrder, error)
	TransitionPurchase(ctx context.Context, id string, req PurchaseTransitionRequest) (*core.PurchaseOrder, error)
	AddPurchaseLine(ctx context.Context, id string, line core.OrderLineInput) (*core.PurchaseOrder, error)
	UpdatePurchaseLine(ctx context.Context, id, lineID string, line core.OrderLineInput) (*core.PurchaseOrder, error)
	RemovePurchaseLine(ctx context.Context, id, lineID string) (*core.PurchaseOrder, error)

	// ── Production orders ──
	CreateProduction(ctx context.Context, req CreateProductionRequest) (*core.ProductionOrder, error)
	GetProduction(ctx context.Context, id string) (*core.ProductionOrder, error)
	ListProduction(ctx context.Context, status *core.ProductionStatus) ([]core.ProductionOrder, error)
	TransitionProduction(ctx context.Context, id string, target core.ProductionStatus) (*core.ProductionOrder, error)
	AddProductionLine(ctx context.Context, id string, line core.OrderLineInput) (*core.ProductionOrder, error)
	UpdateProductionLine(ctx context.Context, id, lineID string, line core.OrderLineInput) (*core.ProductionOrder, error)
	RemoveProductionLine(ctx context.Context, id, lineID string) (*core.ProductionOrder, error)
	AddTask(ctx context.Context, orderID string, req core.TaskInput) (*core.ProductionOrder, error)
	UpdateTask(ctx context.Context, orderID, taskID string, req core.TaskUpdate) (*core.ProductionOrder, error)

	// ── Alerts ──
	ListAlerts(ctx context.Context, status *core.AlertStatus) ([]core.Alert, error)
	MarkAlertViewed(ctx context.Context, alertID, by string) (*core.Alert, error)
	MarkAlertResolved(ctx context.Context, alertID, by string) (*core.Alert, error)
}
