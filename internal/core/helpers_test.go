package core_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"textile-backoffice/internal/core"
	"textile-backoffice/internal/store/memory"
)

// env wires the full service graph against the in-memory store.
type env struct {
	store      *memory.Store
	registry   *memory.Registry
	alerts     *core.StockAlertEvaluator
	inv        *core.Inventory
	catalog    *core.CatalogService
	bom        *core.BOMResolver
	sales      *core.SaleOrderService
	purchases  *core.PurchaseOrderService
	production *core.ProductionOrderService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.NewStore()
	registry := memory.NewRegistry()
	alerts := core.NewStockAlertEvaluator(store)
	inv := core.NewInventory(store, alerts)
	bom := core.NewBOMResolver(store)
	return &env{
		store:      store,
		registry:   registry,
		alerts:     alerts,
		inv:        inv,
		catalog:    core.NewCatalogService(store),
		bom:        bom,
		sales:      core.NewSaleOrderService(store, registry, inv),
		purchases:  core.NewPurchaseOrderService(store, registry, inv),
		production: core.NewProductionOrderService(store, registry, inv, bom),
	}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (e *env) item(t *testing.T, kind core.ItemKind, code, minStock string) *core.Item {
	t.Helper()
	item, err := e.catalog.CreateItem(context.Background(), kind, code, code+" name", "kg", dec(minStock))
	if err != nil {
		t.Fatalf("create item %s: %v", code, err)
	}
	return item
}

func (e *env) location(t *testing.T, code string) *core.StockLocation {
	t.Helper()
	loc, err := e.catalog.CreateLocation(context.Background(), code, code+" warehouse")
	if err != nil {
		t.Fatalf("create location %s: %v", code, err)
	}
	return loc
}

func (e *env) account(t *testing.T, item *core.Item, loc *core.StockLocation) *core.StockAccount {
	t.Helper()
	acc, err := e.catalog.OpenAccount(context.Background(), item.ID, loc.ID)
	if err != nil {
		t.Fatalf("open account for %s: %v", item.Code, err)
	}
	return acc
}

// seed books an opening IN movement on the account's ledger.
func (e *env) seed(t *testing.T, acc *core.StockAccount, qty string) {
	t.Helper()
	ledger := e.inv.LedgerNamed(acc.Ledger)
	if _, err := ledger.RecordMovement(context.Background(), acc.ID, core.DirectionIn, dec(qty), "opening stock", nil); err != nil {
		t.Fatalf("seed account %s with %s: %v", acc.ID, qty, err)
	}
}

func (e *env) balance(t *testing.T, acc *core.StockAccount) decimal.Decimal {
	t.Helper()
	b, err := e.inv.LedgerNamed(acc.Ledger).CurrentBalance(context.Background(), acc.ID)
	if err != nil {
		t.Fatalf("balance of %s: %v", acc.ID, err)
	}
	return b
}

func (e *env) movements(t *testing.T, acc *core.StockAccount) []core.Movement {
	t.Helper()
	movs, err := e.inv.LedgerNamed(acc.Ledger).History(context.Background(), acc.ID, core.Page{Limit: 100})
	if err != nil {
		t.Fatalf("history of %s: %v", acc.ID, err)
	}
	return movs
}
