// Package memory implements the persistence contracts in plain maps. It backs
// the unit tests and the demo server mode; the production server uses the
// postgres implementation.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"textile-backoffice/internal/core"
)

var _ core.Store = (*Store)(nil)

// Store keeps everything in memory under one mutex. Apply holds the write
// lock for the whole commit, which gives the same all-or-nothing visibility
// the postgres implementation gets from a transaction.
type Store struct {
	mu sync.RWMutex

	items     map[string]core.Item
	locations map[string]core.StockLocation
	accounts  map[string]core.StockAccount
	movements []core.Movement // append-only, insertion order
	bom       map[string]map[string]core.BOMLine
	sales     map[string]core.SaleOrder
	purchases map[string]core.PurchaseOrder
	prods     map[string]core.ProductionOrder
	alerts    map[string]core.Alert
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		items:     make(map[string]core.Item),
		locations: make(map[string]core.StockLocation),
		accounts:  make(map[string]core.StockAccount),
		bom:       make(map[string]map[string]core.BOMLine),
		sales:     make(map[string]core.SaleOrder),
		purchases: make(map[string]core.PurchaseOrder),
		prods:     make(map[string]core.ProductionOrder),
		alerts:    make(map[string]core.Alert),
	}
}

// ── Items and locations ──────────────────────────────────────────────────────

func (s *Store) CreateItem(_ context.Context, item *core.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if existing.Code == item.Code {
			return fmt.Errorf("item code %s already exists: %w", item.Code, core.ErrConflict)
		}
	}
	s.items[item.ID] = *item
	return nil
}

func (s *Store) GetItem(_ context.Context, id string) (*core.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, core.ErrNotFound)
	}
	return &item, nil
}

func (s *Store) ListItems(_ context.Context, kind *core.ItemKind) ([]core.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Item, 0, len(s.items))
	for _, item := range s.items {
		if kind != nil && item.Kind != *kind {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) UpdateItemThreshold(_ context.Context, itemID string, min decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return fmt.Errorf("item %s: %w", itemID, core.ErrNotFound)
	}
	item.MinStock = min
	s.items[itemID] = item
	return nil
}

func (s *Store) CreateLocation(_ context.Context, loc *core.StockLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.locations {
		if existing.Code == loc.Code {
			return fmt.Errorf("location code %s already exists: %w", loc.Code, core.ErrConflict)
		}
	}
	s.locations[loc.ID] = *loc
	return nil
}

func (s *Store) GetLocation(_ context.Context, id string) (*core.StockLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.locations[id]
	if !ok {
		return nil, fmt.Errorf("location %s: %w", id, core.ErrNotFound)
	}
	return &loc, nil
}

func (s *Store) ListLocations(_ context.Context) ([]core.StockLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.StockLocation, 0, len(s.locations))
	for _, loc := range s.locations {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// ── Stock accounts and movements ─────────────────────────────────────────────

func (s *Store) CreateAccount(_ context.Context, acc *core.StockAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.ItemID == acc.ItemID && existing.LocationID == acc.LocationID {
			return fmt.Errorf("account for item %s at location %s already exists: %w",
				acc.ItemID, acc.LocationID, core.ErrConflict)
		}
	}
	s.accounts[acc.ID] = *acc
	return nil
}

func (s *Store) GetAccount(_ context.Context, id string) (*core.StockAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	return &acc, nil
}

func (s *Store) FindAccount(_ context.Context, itemID, locationID string) (*core.StockAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.accounts {
		if acc.ItemID == itemID && acc.LocationID == locationID {
			found := acc
			return &found, nil
		}
	}
	return nil, fmt.Errorf("account for item %s at location %s: %w", itemID, locationID, core.ErrNotFound)
}

func (s *Store) ListAccounts(_ context.Context) ([]core.StockAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.StockAccount, 0, len(s.accounts))
	for _, acc := range s.accounts {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Movements(_ context.Context, accountID string, limit, offset int) ([]core.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]core.Movement, 0)
	// Newest first: walk the append-only log backwards.
	for i := len(s.movements) - 1; i >= 0; i-- {
		if s.movements[i].AccountID == accountID {
			matched = append(matched, s.movements[i])
		}
	}
	if offset >= len(matched) {
		return []core.Movement{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *Store) SumMovements(_ context.Context, accountID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := decimal.Zero
	for _, m := range s.movements {
		if m.AccountID == accountID {
			sum = sum.Add(m.Signed())
		}
	}
	return sum, nil
}

// ── Bill of materials ────────────────────────────────────────────────────────

func (s *Store) BOMForProduct(_ context.Context, productID string) ([]core.BOMLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.BOMLine, 0, len(s.bom[productID]))
	for _, line := range s.bom[productID] {
		out = append(out, line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MaterialID < out[j].MaterialID })
	return out, nil
}

func (s *Store) GetBOMLine(_ context.Context, productID, materialID string) (*core.BOMLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	line, ok := s.bom[productID][materialID]
	if !ok {
		return nil, fmt.Errorf("bom line %s/%s: %w", productID, materialID, core.ErrNotFound)
	}
	return &line, nil
}

func (s *Store) InsertBOMLine(_ context.Context, line core.BOMLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bom[line.ProductID][line.MaterialID]; ok {
		return fmt.Errorf("bom line %s/%s already exists: %w", line.ProductID, line.MaterialID, core.ErrConflict)
	}
	if s.bom[line.ProductID] == nil {
		s.bom[line.ProductID] = make(map[string]core.BOMLine)
	}
	s.bom[line.ProductID][line.MaterialID] = line
	return nil
}

func (s *Store) UpdateBOMLine(_ context.Context, line core.BOMLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bom[line.ProductID][line.MaterialID]; !ok {
		return fmt.Errorf("bom line %s/%s: %w", line.ProductID, line.MaterialID, core.ErrNotFound)
	}
	s.bom[line.ProductID][line.MaterialID] = line
	return nil
}

func (s *Store) DeleteBOMLine(_ context.Context, productID, materialID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bom[productID][materialID]; !ok {
		return fmt.Errorf("bom line %s/%s: %w", productID, materialID, core.ErrNotFound)
	}
	delete(s.bom[productID], materialID)
	return nil
}

// ── Orders ───────────────────────────────────────────────────────────────────

func (s *Store) GetSaleOrder(_ context.Context, id string) (*core.SaleOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.sales[id]
	if !ok {
		return nil, fmt.Errorf("sale order %s: %w", id, core.ErrNotFound)
	}
	return copySale(order), nil
}

func (s *Store) ListSaleOrders(_ context.Context, status *core.SaleStatus) ([]core.SaleOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.SaleOrder, 0, len(s.sales))
	for _, order := range s.sales {
		if status != nil && order.Status != *status {
			continue
		}
		out = append(out, *copySale(order))
	}
	sortOrders(out, func(o core.SaleOrder) (string, int64) { return o.ID, o.CreatedAt.UnixNano() })
	return out, nil
}

func (s *Store) GetPurchaseOrder(_ context.Context, id string) (*core.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.purchases[id]
	if !ok {
		return nil, fmt.Errorf("purchase order %s: %w", id, core.ErrNotFound)
	}
	return copyPurchase(order), nil
}

func (s *Store) ListPurchaseOrders(_ context.Context, status *core.PurchaseStatus) ([]core.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.PurchaseOrder, 0, len(s.purchases))
	for _, order := range s.purchases {
		if status != nil && order.Status != *status {
			continue
		}
		out = append(out, *copyPurchase(order))
	}
	sortOrders(out, func(o core.PurchaseOrder) (string, int64) { return o.ID, o.CreatedAt.UnixNano() })
	return out, nil
}

func (s *Store) GetProductionOrder(_ context.Context, id string) (*core.ProductionOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.prods[id]
	if !ok {
		return nil, fmt.Errorf("production order %s: %w", id, core.ErrNotFound)
	}
	return copyProduction(order), nil
}

func (s *Store) ListProductionOrders(_ context.Context, status *core.ProductionStatus) ([]core.ProductionOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.ProductionOrder, 0, len(s.prods))
	for _, order := range s.prods {
		if status != nil && order.Status != *status {
			continue
		}
		out = append(out, *copyProduction(order))
	}
	sortOrders(out, func(o core.ProductionOrder) (string, int64) { return o.ID, o.CreatedAt.UnixNano() })
	return out, nil
}

// ── Alerts ───────────────────────────────────────────────────────────────────

func (s *Store) GetAlert(_ context.Context, id string) (*core.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alert, ok := s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, core.ErrNotFound)
	}
	return &alert, nil
}

func (s *Store) OpenAlertForItem(_ context.Context, itemID string) (*core.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, alert := range s.alerts {
		if alert.ItemID == itemID && alert.Status.Open() {
			found := alert
			return &found, nil
		}
	}
	return nil, fmt.Errorf("open alert for item %s: %w", itemID, core.ErrNotFound)
}

func (s *Store) InsertAlert(_ context.Context, alert *core.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.alerts {
		if existing.ItemID == alert.ItemID && existing.Status.Open() {
			return fmt.Errorf("open alert for item %s already exists: %w", alert.ItemID, core.ErrConflict)
		}
	}
	s.alerts[alert.ID] = *alert
	return nil
}

func (s *Store) UpdateAlert(_ context.Context, alert *core.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[alert.ID]; !ok {
		return fmt.Errorf("alert %s: %w", alert.ID, core.ErrNotFound)
	}
	s.alerts[alert.ID] = *alert
	return nil
}

func (s *Store) ListAlerts(_ context.Context, status *core.AlertStatus) ([]core.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Alert, 0, len(s.alerts))
	for _, alert := range s.alerts {
		if status != nil && alert.Status != *status {
			continue
		}
		out = append(out, alert)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RaisedAt.Equal(out[j].RaisedAt) {
			return out[i].RaisedAt.After(out[j].RaisedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ── Apply ────────────────────────────────────────────────────────────────────

// Apply lands the whole commit under one write lock. The caller has already
// validated balances against the staged movements, so no check is repeated
// here; the lock only guarantees that readers never observe a half-applied
// commit.
func (s *Store) Apply(_ context.Context, commit core.Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, upd := range commit.Balances {
		if _, ok := s.accounts[upd.AccountID]; !ok {
			return fmt.Errorf("account %s: %w", upd.AccountID, core.ErrNotFound)
		}
	}

	s.movements = append(s.movements, commit.Movements...)
	for _, upd := range commit.Balances {
		acc := s.accounts[upd.AccountID]
		acc.Balance = upd.Balance
		if len(commit.Movements) > 0 {
			acc.UpdatedAt = commit.Movements[len(commit.Movements)-1].CreatedAt
		}
		s.accounts[upd.AccountID] = acc
	}
	if commit.Sale != nil {
		s.sales[commit.Sale.ID] = *copySale(*commit.Sale)
	}
	if commit.Purchase != nil {
		s.purchases[commit.Purchase.ID] = *copyPurchase(*commit.Purchase)
	}
	if commit.Production != nil {
		s.prods[commit.Production.ID] = *copyProduction(*commit.Production)
	}
	return nil
}

// ── Copy helpers ─────────────────────────────────────────────────────────────

// Orders carry slices, so the map value alone is not enough to isolate
// callers from each other.

func copySale(o core.SaleOrder) *core.SaleOrder {
	out := o
	out.Lines = append([]core.OrderLine(nil), o.Lines...)
	out.Payments = append([]core.Payment(nil), o.Payments...)
	return &out
}

func copyPurchase(o core.PurchaseOrder) *core.PurchaseOrder {
	out := o
	out.Lines = append([]core.OrderLine(nil), o.Lines...)
	return &out
}

func copyProduction(o core.ProductionOrder) *core.ProductionOrder {
	out := o
	out.Lines = append([]core.OrderLine(nil), o.Lines...)
	out.Tasks = append([]core.Task(nil), o.Tasks...)
	return &out
}

func sortOrders[T any](orders []T, key func(T) (string, int64)) {
	sort.Slice(orders, func(i, j int) bool {
		idI, tsI := key(orders[i])
		idJ, tsJ := key(orders[j])
		if tsI != tsJ {
			return tsI > tsJ
		}
		return idI < idJ
	})
}
