package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogService manages the stock catalog: items, locations, and the stock
// accounts that pair them. It owns no movement logic — balances only change
// through the ledgers.
type CatalogService struct {
	store Store
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(store Store) *CatalogService {
	return &CatalogService{store: store}
}

// CreateItem registers a material or finished good. Item codes are unique;
// the threshold must be non-negative.
func (s *CatalogService) CreateItem(ctx context.Context, kind ItemKind, code, name, unit string, minStock decimal.Decimal) (*Item, error) {
	if kind != ItemMaterial && kind != ItemFinishedGood {
		return nil, fmt.Errorf("unknown item kind %q: %w", kind, ErrValidation)
	}
	if code == "" || name == "" {
		return nil, fmt.Errorf("item code and name are required: %w", ErrValidation)
	}
	if minStock.IsNegative() {
		return nil, fmt.Errorf("threshold must be >= 0, got %s: %w", minStock, ErrInvalidQuantity)
	}

	item := &Item{
		ID:        uuid.NewString(),
		Kind:      kind,
		Code:      code,
		Name:      name,
		Unit:      unit,
		MinStock:  minStock,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create item %s: %w", code, err)
	}
	return item, nil
}

// GetItem returns one item.
func (s *CatalogService) GetItem(ctx context.Context, id string) (*Item, error) {
	return s.store.GetItem(ctx, id)
}

// ListItems returns items, optionally filtered by kind.
func (s *CatalogService) ListItems(ctx context.Context, kind *ItemKind) ([]Item, error) {
	return s.store.ListItems(ctx, kind)
}

// CreateLocation registers a warehouse or shelf. Codes are unique.
func (s *CatalogService) CreateLocation(ctx context.Context, code, name string) (*StockLocation, error) {
	if code == "" || name == "" {
		return nil, fmt.Errorf("location code and name are required: %w", ErrValidation)
	}
	loc := &StockLocation{
		ID:        uuid.NewString(),
		Code:      code,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateLocation(ctx, loc); err != nil {
		return nil, fmt.Errorf("create location %s: %w", code, err)
	}
	return loc, nil
}

// ListLocations returns all locations.
func (s *CatalogService) ListLocations(ctx context.Context) ([]StockLocation, error) {
	return s.store.ListLocations(ctx)
}

// OpenAccount creates the stock account for an (item, location) pair with a
// zero starting balance. The pair is unique; a duplicate fails with
// ErrConflict. The ledger is derived from the item kind.
func (s *CatalogService) OpenAccount(ctx context.Context, itemID, locationID string) (*StockAccount, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("resolve item %s: %w", itemID, err)
	}
	if _, err := s.store.GetLocation(ctx, locationID); err != nil {
		return nil, fmt.Errorf("resolve location %s: %w", locationID, err)
	}

	ledger := LedgerMaterials
	if item.Kind == ItemFinishedGood {
		ledger = LedgerFinished
	}

	acc := &StockAccount{
		ID:         uuid.NewString(),
		ItemID:     itemID,
		LocationID: locationID,
		Ledger:     ledger,
		Balance:    decimal.Zero,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("open account for item %s at %s: %w", itemID, locationID, err)
	}
	return acc, nil
}

// FindAccount returns the account for an (item, location) pair.
func (s *CatalogService) FindAccount(ctx context.Context, itemID, locationID string) (*StockAccount, error) {
	return s.store.FindAccount(ctx, itemID, locationID)
}

// StockOverviewRow is the read view of an account joined with its item and
// location, for the stock overview listing.
type StockOverviewRow struct {
	AccountID    string          `json:"account_id"`
	ItemCode     string          `json:"item_code"`
	ItemName     string          `json:"item_name"`
	Kind         ItemKind        `json:"kind"`
	Unit         string          `json:"unit"`
	LocationCode string          `json:"location_code"`
	Balance      decimal.Decimal `json:"balance"`
	MinStock     decimal.Decimal `json:"min_stock"`
	BelowMin     bool            `json:"below_min"`
}

// StockOverview lists every account with its derived balance and threshold
// flag, sorted by item code then location code.
func (s *CatalogService) StockOverview(ctx context.Context) ([]StockOverviewRow, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	rows := make([]StockOverviewRow, 0, len(accounts))
	for _, acc := range accounts {
		item, err := s.store.GetItem(ctx, acc.ItemID)
		if err != nil {
			return nil, fmt.Errorf("resolve item %s: %w", acc.ItemID, err)
		}
		loc, err := s.store.GetLocation(ctx, acc.LocationID)
		if err != nil {
			return nil, fmt.Errorf("resolve location %s: %w", acc.LocationID, err)
		}
		rows = append(rows, StockOverviewRow{
			AccountID:    acc.ID,
			ItemCode:     item.Code,
			ItemName:     item.Name,
			Kind:         item.Kind,
			Unit:         item.Unit,
			LocationCode: loc.Code,
			Balance:      acc.Balance,
			MinStock:     item.MinStock,
			BelowMin:     acc.Balance.LessThan(item.MinStock),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ItemCode != rows[j].ItemCode {
			return rows[i].ItemCode < rows[j].ItemCode
		}
		return rows[i].LocationCode < rows[j].LocationCode
	})
	return rows, nil
}
