package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is the persistence contract the core consumes. Two implementations
// exist: internal/store/postgres (pgx) and internal/store/memory (tests and
// demo mode). Reads return ErrNotFound when the row is missing; uniqueness
// violations surface as ErrConflict.
//
// All stock-affecting writes funnel through Apply so that movements, balance
// updates, and the triggering order land atomically in both implementations.
type Store interface {
	// Items and locations.
	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, id string) (*Item, error)
	ListItems(ctx context.Context, kind *ItemKind) ([]Item, error)
	UpdateItemThreshold(ctx context.Context, itemID string, min decimal.Decimal) error
	CreateLocation(ctx context.Context, loc *StockLocation) error
	GetLocation(ctx context.Context, id string) (*StockLocation, error)
	ListLocations(ctx context.Context) ([]StockLocation, error)

	// Stock accounts and movement history.
	CreateAccount(ctx context.Context, acc *StockAccount) error
	GetAccount(ctx context.Context, id string) (*StockAccount, error)
	FindAccount(ctx context.Context, itemID, locationID string) (*StockAccount, error)
	ListAccounts(ctx context.Context) ([]StockAccount, error)
	Movements(ctx context.Context, accountID string, limit, offset int) ([]Movement, error)
	SumMovements(ctx context.Context, accountID string) (decimal.Decimal, error)

	// Bill of materials.
	BOMForProduct(ctx context.Context, productID string) ([]BOMLine, error)
	GetBOMLine(ctx context.Context, productID, materialID string) (*BOMLine, error)
	InsertBOMLine(ctx context.Context, line BOMLine) error
	UpdateBOMLine(ctx context.Context, line BOMLine) error
	DeleteBOMLine(ctx context.Context, productID, materialID string) error

	// Orders.
	GetSaleOrder(ctx context.Context, id string) (*SaleOrder, error)
	ListSaleOrders(ctx context.Context, status *SaleStatus) ([]SaleOrder, error)
	GetPurchaseOrder(ctx context.Context, id string) (*PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, status *PurchaseStatus) ([]PurchaseOrder, error)
	GetProductionOrder(ctx context.Context, id string) (*ProductionOrder, error)
	ListProductionOrders(ctx context.Context, status *ProductionStatus) ([]ProductionOrder, error)

	// Alerts.
	GetAlert(ctx context.Context, id string) (*Alert, error)
	OpenAlertForItem(ctx context.Context, itemID string) (*Alert, error)
	InsertAlert(ctx context.Context, alert *Alert) error
	UpdateAlert(ctx context.Context, alert *Alert) error
	ListAlerts(ctx context.Context, status *AlertStatus) ([]Alert, error)

	// Apply writes the commit atomically: either every movement, balance
	// update, and order upsert lands, or none do.
	Apply(ctx context.Context, commit Commit) error
}

// BalanceUpdate carries the post-commit cached balance for one account.
type BalanceUpdate struct {
	AccountID string
	Balance   decimal.Decimal
}

// Commit is the unit of work handed to Store.Apply. Order pointers, when set,
// upsert the full aggregate (header plus lines, payments, tasks).
type Commit struct {
	Movements  []Movement
	Balances   []BalanceUpdate
	Sale       *SaleOrder
	Purchase   *PurchaseOrder
	Production *ProductionOrder
}

// Empty reports whether the commit carries no writes.
func (c Commit) Empty() bool {
	return len(c.Movements) == 0 && len(c.Balances) == 0 &&
		c.Sale == nil && c.Purchase == nil && c.Production == nil
}

// Registry is the read-only counterparty lookup the core needs to validate
// order references. Master-data CRUD for these records lives outside the
// core. Lookups return ErrNotFound for unknown IDs.
type Registry interface {
	Client(ctx context.Context, id string) (*PartyRef, error)
	Supplier(ctx context.Context, id string) (*PartyRef, error)
	Employee(ctx context.Context, id string) (*PartyRef, error)
}
