package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"textile-backoffice/internal/core"
	"textile-backoffice/internal/store/postgres"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	schema, err := os.ReadFile("../../../migrations/001_schema.sql")
	if err != nil {
		t.Fatalf("Failed to read schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE stock_alerts, production_tasks, payments, order_lines,
			production_orders, purchase_orders, sale_orders, bom_lines,
			stock_movements, stock_accounts, stock_locations, items,
			clients, suppliers, employees CASCADE;

		INSERT INTO clients (id, name) VALUES ('c1', 'Tejidos Norte');
		INSERT INTO suppliers (id, name) VALUES ('s1', 'Hilados del Sur');
		INSERT INTO employees (id, name) VALUES ('e1', 'Marta');
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestStore_MovementsAndBalances(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	store := postgres.NewStore(pool)
	alerts := core.NewStockAlertEvaluator(store)
	inv := core.NewInventory(store, alerts)
	catalog := core.NewCatalogService(store)

	yarn, err := catalog.CreateItem(ctx, core.ItemMaterial, "YARN-01", "Cotton yarn", "kg", dec("0"))
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	loc, err := catalog.CreateLocation(ctx, "WH1", "Main warehouse")
	if err != nil {
		t.Fatalf("create location: %v", err)
	}
	acc, err := catalog.OpenAccount(ctx, yarn.ID, loc.ID)
	if err != nil {
		t.Fatalf("open account: %v", err)
	}

	if _, err := inv.Materials().RecordMovement(ctx, acc.ID, core.DirectionIn, dec("10.500"), "opening stock", nil); err != nil {
		t.Fatalf("record IN: %v", err)
	}
	if _, err := inv.Materials().RecordMovement(ctx, acc.ID, core.DirectionOut, dec("2.500"), "cutting", nil); err != nil {
		t.Fatalf("record OUT: %v", err)
	}

	balance, err := inv.Materials().CurrentBalance(ctx, acc.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(dec("8")) {
		t.Errorf("balance = %s, want 8", balance)
	}

	// Cached balance agrees with the movement sum.
	recomputed, err := inv.Materials().Reconcile(ctx, acc.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !recomputed.Equal(balance) {
		t.Errorf("reconciled sum = %s, cached balance = %s", recomputed, balance)
	}

	movs, err := inv.Materials().History(ctx, acc.ID, core.Page{Limit: 10})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(movs) != 2 {
		t.Fatalf("history rows = %d, want 2", len(movs))
	}
	if movs[0].Direction != core.DirectionOut {
		t.Errorf("newest movement = %s, want OUT", movs[0].Direction)
	}

	// Overdraw is rejected and leaves the rows untouched.
	if _, err := inv.Materials().RecordMovement(ctx, acc.ID, core.DirectionOut, dec("100"), "overdraw", nil); !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("overdraw err = %v, want ErrInsufficientStock", err)
	}
	var count int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM stock_movements WHERE account_id = $1", acc.ID).Scan(&count); err != nil {
		t.Fatalf("count movements: %v", err)
	}
	if count != 2 {
		t.Errorf("movement rows after overdraw = %d, want 2", count)
	}
}

func TestStore_ConflictOnDuplicateCode(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	catalog := core.NewCatalogService(postgres.NewStore(pool))

	if _, err := catalog.CreateItem(ctx, core.ItemMaterial, "YARN-01", "Cotton yarn", "kg", dec("0")); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := catalog.CreateItem(ctx, core.ItemMaterial, "YARN-01", "Duplicate", "kg", dec("0"))
	if !errors.Is(err, core.ErrConflict) {
		t.Errorf("duplicate code err = %v, want ErrConflict", err)
	}
}

func TestStore_PurchaseReceiveRoundTrip(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	store := postgres.NewStore(pool)
	registry := postgres.NewRegistry(pool)
	alerts := core.NewStockAlertEvaluator(store)
	inv := core.NewInventory(store, alerts)
	catalog := core.NewCatalogService(store)
	purchases := core.NewPurchaseOrderService(store, registry, inv)

	yarn, err := catalog.CreateItem(ctx, core.ItemMaterial, "YARN-01", "Cotton yarn", "kg", dec("0"))
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	loc, err := catalog.CreateLocation(ctx, "WH1", "Main warehouse")
	if err != nil {
		t.Fatalf("create location: %v", err)
	}
	acc, err := catalog.OpenAccount(ctx, yarn.ID, loc.ID)
	if err != nil {
		t.Fatalf("open account: %v", err)
	}

	order, err := purchases.Create(ctx, "s1", []core.OrderLineInput{
		{ItemID: yarn.ID, Quantity: dec("100"), UnitPrice: dec("3.50")},
	}, "")
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := purchases.Transition(ctx, order.ID, core.PurchaseSent); err != nil {
		t.Fatalf("send: %v", err)
	}
	order, err = purchases.Receive(ctx, order.ID, loc.ID, []core.ReceivedLine{
		{LineID: order.Lines[0].ID, QtyReceived: dec("40")},
	})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if order.Status != core.PurchasePartiallyReceived {
		t.Errorf("status = %s, want PARTIALLY_RECEIVED", order.Status)
	}

	// Reload through the store: lines, received quantity, and balance persisted.
	reread, err := store.GetPurchaseOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if !reread.Lines[0].ReceivedQty.Equal(dec("40")) {
		t.Errorf("received qty = %s, want 40", reread.Lines[0].ReceivedQty)
	}
	balance, err := inv.Materials().CurrentBalance(ctx, acc.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(dec("40")) {
		t.Errorf("balance = %s, want 40", balance)
	}
}
