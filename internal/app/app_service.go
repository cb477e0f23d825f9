package app

import (
	"context"

	"github.com/shopspring/decimal"

	"textile-backoffice/internal/core"
)

type appService struct {
	store      core.Store
	inv        *core.Inventory
	catalog    *core.CatalogService
	bom        *core.BOMResolver
	alerts     *core.StockAlertEvaluator
	sales      *core.SaleOrderService
	purchases  *core.PurchaseOrderService
	production *core.ProductionOrderService
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	store core.Store,
	inv *core.Inventory,
	catalog *core.CatalogService,
	bom *core.BOMResolver,
	alerts *core.StockAlertEvaluator,
	sales *core.SaleOrderService,
	purchases *core.PurchaseOrderService,
	production *core.ProductionOrderService,
) ApplicationService {
	return &appService{
		store:      store,
		inv:        inv,
		catalog:    catalog,
		bom:        bom,
		alerts:     alerts,
		sales:      sales,
		purchases:  purchases,
		production: production,
	}
}

// ── Catalog ──────────────────────────────────────────────────────────────────

func (s *appService) CreateItem(ctx context.Context, req CreateItemRequest) (*core.Item, error) {
	return s.catalog.CreateItem(ctx, req.Kind, req.Code, req.Name, req.Unit, req.MinStock)
}

func (s *appService) GetItem(ctx context.Context, id string) (*core.Item, error) {
	return s.catalog.GetItem(ctx, id)
}

func (s *appService) ListItems(ctx context.Context, kind *core.ItemKind) ([]core.Item, error) {
	return s.catalog.ListItems(ctx, kind)
}

func (s *appService) UpdateItemThreshold(ctx context.Context, itemID string, min decimal.Decimal) error {
	return s.alerts.UpdateThreshold(ctx, itemID, min)
}

func (s *appService) CreateLocation(ctx context.Context, req CreateLocationRequest) (*core.StockLocation, error) {
	return s.catalog.CreateLocation(ctx, req.Code, req.Name)
}

func (s *appService) ListLocations(ctx context.Context) ([]core.StockLocation, error) {
	return s.catalog.ListLocations(ctx)
}

func (s *appService) OpenAccount(ctx context.Context, req OpenAccountRequest) (*core.StockAccount, error) {
	return s.catalog.OpenAccount(ctx, req.ItemID, req.LocationID)
}

func (s *appService) StockOverview(ctx context.Context) ([]core.StockOverviewRow, error) {
	return s.catalog.StockOverview(ctx)
}

// ── Stock ledger ─────────────────────────────────────────────────────────────

// BalanceResult pairs an account with its balance reading.
type BalanceResult struct {
	Account *core.StockAccount `json:"account"`
	Balance decimal.Decimal    `json:"balance"`
}

func (s *appService) ledgerFor(ctx context.Context, accountID string) (*core.Ledger, *core.StockAccount, error) {
	acc, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	return s.inv.LedgerNamed(acc.Ledger), acc, nil
}

func (s *appService) AccountBalance(ctx context.Context, accountID string) (*BalanceResult, error) {
	ledger, acc, err := s.ledgerFor(ctx, accountID)
	if err != nil {
		return nil, err
	}
	balance, err := ledger.CurrentBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &BalanceResult{Account: acc, Balance: balance}, nil
}

func (s *appService) AccountMovements(ctx context.Context, accountID string, page core.Page) ([]core.Movement, error) {
	ledger, _, err := s.ledgerFor(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return ledger.History(ctx, accountID, page)
}

func (s *appService) RecordAdjustment(ctx context.Context, accountID string, req AdjustmentRequest) (*core.Movement, error) {
	ledger, _, err := s.ledgerFor(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return ledger.RecordMovement(ctx, accountID, req.Direction, req.Quantity, req.Reason, nil)
}

func (s *appService) ReconcileAccount(ctx context.Context, accountID string) (*BalanceResult, error) {
	ledger, acc, err := s.ledgerFor(ctx, accountID)
	if err != nil {
		return nil, err
	}
	sum, err := ledger.Reconcile(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &BalanceResult{Account: acc, Balance: sum}, nil
}

// ── Bill of materials ────────────────────────────────────────────────────────

func (s *appService) BOMLines(ctx context.Context, productID string) ([]core.BOMLine, error) {
	return s.bom.Lines(ctx, productID)
}

func (s *appService) AddBOMLine(ctx context.Context, productID string, req BOMLineRequest) (*core.BOMLine, error) {
	return s.bom.AddLine(ctx, productID, req.MaterialID, req.QtyPerUnit)
}

func (s *appService) UpdateBOMLine(ctx context.Context, productID, materialID string, qtyPerUnit decimal.Decimal) (*core.BOMLine, error) {
	return s.bom.UpdateLine(ctx, productID, materialID, qtyPerUnit)
}

func (s *appService) RemoveBOMLine(ctx context.Context, productID, materialID string) error {
	return s.bom.RemoveLine(ctx, productID, materialID)
}

// ── Sale orders ──────────────────────────────────────────────────────────────

func (s *appService) CreateSale(ctx context.Context, req CreateSaleRequest) (*core.SaleOrder, error) {
	return s.sales.Create(ctx, req.ClientID, req.Lines, req.Notes)
}

func (s *appService) GetSale(ctx context.Context, id string) (*core.SaleOrder, error) {
	return s.sales.Get(ctx, id)
}

func (s *appService) ListSales(ctx context.Context, status *core.SaleStatus) ([]core.SaleOrder, error) {
	return s.sales.List(ctx, status)
}

func (s *appService) TransitionSale(ctx context.Context, id string, req SaleTransitionRequest) (*core.SaleOrder, error) {
	return s.sales.Transition(ctx, id, req.Target, core.SaleTransitionOptions{LocationID: req.LocationID})
}

func (s *appService) AddSaleLine(ctx context.Context, id string, line core.OrderLineInput) (*core.SaleOrder, error) {
	return s.sales.AddLine(ctx, id, line)
}

func (s *appService) UpdateSaleLine(ctx context.Context, id, lineID string, line core.OrderLineInput) (*core.SaleOrder, error) {
	return s.sales.UpdateLine(ctx, id, lineID, line)
}

func (s *appService) RemoveSaleLine(ctx context.Context, id, lineID string) (*core.SaleOrder, error) {
	return s.sales.RemoveLine(ctx, id, lineID)
}

func (s *appService) RecordPayment(ctx context.Context, id string, req PaymentRequest) (*core.SaleOrder, error) {
	return s.sales.RecordPayment(ctx, id, req.Amount, req.Method, req.Reference)
}

// ── Purchase orders ──────────────────────────────────────────────────────────

func (s *appService) CreatePurchase(ctx context.Context, req CreatePurchaseRequest) (*core.PurchaseOrder, error) {
	return s.purchases.Create(ctx, req.SupplierID, req.Lines, req.Notes)
}

func (s *appService) GetPurchase(ctx context.Context, id string) (*core.PurchaseOrder, error) {
	return s.purchases.Get(ctx, id)
}

func (s *appService) ListPurchases(ctx context.Context, status *core.PurchaseStatus) ([]core.PurchaseOrder, error) {
	return s.purchases.List(ctx, status)
}

// TransitionPurchase routes received-state targets through Receive so the
// stock side effects ride along; plain status changes go through Transition.
func (s *appService) TransitionPurchase(ctx context.Context, id string, req PurchaseTransitionRequest) (*core.PurchaseOrder, error) {
	switch req.Target {
	case core.PurchasePartiallyReceived, core.PurchaseFullyReceived:
		return s.purchases.Receive(ctx, id, req.LocationID, req.Received)
	default:
		return s.purchases.Transition(ctx, id, req.Target)
	}
}

func (s *appService) AddPurchaseLine(ctx context.Context, id string, line core.OrderLineInput) (*core.PurchaseOrder, error) {
	return s.purchases.AddLine(ctx, id, line)
}

func (s *appService) UpdatePurchaseLine(ctx context.Context, id, lineID string, line core.OrderLineInput) (*core.PurchaseOrder, error) {
	return s.purchases.UpdateLine(ctx, id, lineID, line)
}

func (s *appService) RemovePurchaseLine(ctx context.Context, id, lineID string) (*core.PurchaseOrder, error) {
	return s.purchases.RemoveLine(ctx, id, lineID)
}

// ── Production orders ────────────────────────────────────────────────────────

func (s *appService) CreateProduction(ctx context.Context, req CreateProductionRequest) (*core.ProductionOrder, error) {
	return s.production.Create(ctx, req.LocationID, req.Lines, req.Notes)
}

func (s *appService) GetProduction(ctx context.Context, id string) (*core.ProductionOrder, error) {
	return s.production.Get(ctx, id)
}

func (s *appService) ListProduction(ctx context.Context, status *core.ProductionStatus) ([]core.ProductionOrder, error) {
	return s.production.List(ctx, status)
}

func (s *appService) TransitionProduction(ctx context.Context, id string, target core.ProductionStatus) (*core.ProductionOrder, error) {
	return s.production.Transition(ctx, id, target)
}

func (s *appService) AddProductionLine(ctx context.Context, id string, line core.OrderLineInput) (*core.ProductionOrder, error) {
	return s.production.AddLine(ctx, id, line)
}

func (s *appService) UpdateProductionLine(ctx context.Context, id, lineID string, line core.OrderLineInput) (*core.ProductionOrder, error) {
	return s.production.UpdateLine(ctx, id, lineID, line)
}

func (s *appService) RemoveProductionLine(ctx context.Context, id, lineID string) (*core.ProductionOrder, error) {
	return s.production.RemoveLine(ctx, id, lineID)
}

func (s *appService) AddTask(ctx context.Context, orderID string, req core.TaskInput) (*core.ProductionOrder, error) {
	return s.production.AddTask(ctx, orderID, req)
}

func (s *appService) UpdateTask(ctx context.Context, orderID, taskID string, req core.TaskUpdate) (*core.ProductionOrder, error) {
	return s.production.UpdateTask(ctx, orderID, taskID, req)
}

// ── Alerts ───────────────────────────────────────────────────────────────────

func (s *appService) ListAlerts(ctx context.Context, status *core.AlertStatus) ([]core.Alert, error) {
	return s.alerts.List(ctx, status)
}

func (s *appService) MarkAlertViewed(ctx context.Context, alertID, by string) (*core.Alert, error) {
	return s.alerts.MarkViewed(ctx, alertID, by)
}

func (s *appService) MarkAlertResolved(ctx context.Context, alertID, by string) (*core.Alert, error) {
	return s.alerts.MarkResolved(ctx, alertID, by)
}
