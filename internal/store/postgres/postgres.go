// Package postgres implements the persistence contracts on pgx. All writes
// that belong together go through one transaction; Apply additionally locks
// the touched stock accounts in a stable order.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"textile-backoffice/internal/core"
)

var _ core.Store = (*Store)(nil)

// Store is the pgx-backed implementation of core.Store.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps a connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// isUniqueViolation reports whether err is a postgres unique-constraint error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ── Items and locations ──────────────────────────────────────────────────────

func (s *Store) CreateItem(ctx context.Context, item *core.Item) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO items (id, kind, code, name, unit, min_stock, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, item.ID, item.Kind, item.Code, item.Name, item.Unit, item.MinStock, item.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("item code %s already exists: %w", item.Code, core.ErrConflict)
		}
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

func (s *Store) GetItem(ctx context.Context, id string) (*core.Item, error) {
	var item core.Item
	err := s.pool.QueryRow(ctx, `
		SELECT id, kind, code, name, unit, min_stock, created_at
		FROM items WHERE id = $1
	`, id).Scan(&item.ID, &item.Kind, &item.Code, &item.Name, &item.Unit, &item.MinStock, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("item %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch item: %w", err)
	}
	return &item, nil
}

func (s *Store) ListItems(ctx context.Context, kind *core.ItemKind) ([]core.Item, error) {
	query := `
		SELECT id, kind, code, name, unit, min_stock, created_at
		FROM items`
	args := []any{}
	if kind != nil {
		query += ` WHERE kind = $1`
		args = append(args, *kind)
	}
	query += ` ORDER BY code`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []core.Item
	for rows.Next() {
		var item core.Item
		if err := rows.Scan(&item.ID, &item.Kind, &item.Code, &item.Name, &item.Unit, &item.MinStock, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) UpdateItemThreshold(ctx context.Context, itemID string, min decimal.Decimal) error {
	tag, err := s.pool.Exec(ctx, `UPDATE items SET min_stock = $2 WHERE id = $1`, itemID, min)
	if err != nil {
		return fmt.Errorf("failed to update item threshold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", itemID, core.ErrNotFound)
	}
	return nil
}

func (s *Store) CreateLocation(ctx context.Context, loc *core.StockLocation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO stock_locations (id, code, name, created_at)
		VALUES ($1, $2, $3, $4)
	`, loc.ID, loc.Code, loc.Name, loc.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("location code %s already exists: %w", loc.Code, core.ErrConflict)
		}
		return fmt.Errorf("failed to insert location: %w", err)
	}
	return nil
}

func (s *Store) GetLocation(ctx context.Context, id string) (*core.StockLocation, error) {
	var loc core.StockLocation
	err := s.pool.QueryRow(ctx, `
		SELECT id, code, name, created_at FROM stock_locations WHERE id = $1
	`, id).Scan(&loc.ID, &loc.Code, &loc.Name, &loc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("location %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch location: %w", err)
	}
	return &loc, nil
}

func (s *Store) ListLocations(ctx context.Context) ([]core.StockLocation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, code, name, created_at FROM stock_locations ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer rows.Close()

	var locs []core.StockLocation
	for rows.Next() {
		var loc core.StockLocation
		if err := rows.Scan(&loc.ID, &loc.Code, &loc.Name, &loc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locs = append(locs, loc)
	}
	return locs, rows.Err()
}

// ── Stock accounts and movements ─────────────────────────────────────────────

func (s *Store) CreateAccount(ctx context.Context, acc *core.StockAccount) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO stock_accounts (id, item_id, location_id, ledger, balance, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, acc.ID, acc.ItemID, acc.LocationID, acc.Ledger, acc.Balance, acc.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("account for item %s at location %s already exists: %w",
				acc.ItemID, acc.LocationID, core.ErrConflict)
		}
		return fmt.Errorf("failed to insert stock account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*core.StockAccount, error) {
	var acc core.StockAccount
	err := s.pool.QueryRow(ctx, `
		SELECT id, item_id, location_id, ledger, balance, updated_at
		FROM stock_accounts WHERE id = $1
	`, id).Scan(&acc.ID, &acc.ItemID, &acc.LocationID, &acc.Ledger, &acc.Balance, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch stock account: %w", err)
	}
	return &acc, nil
}

func (s *Store) FindAccount(ctx context.Context, itemID, locationID string) (*core.StockAccount, error) {
	var acc core.StockAccount
	err := s.pool.QueryRow(ctx, `
		SELECT id, item_id, location_id, ledger, balance, updated_at
		FROM stock_accounts WHERE item_id = $1 AND location_id = $2
	`, itemID, locationID).Scan(&acc.ID, &acc.ItemID, &acc.LocationID, &acc.Ledger, &acc.Balance, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account for item %s at location %s: %w", itemID, locationID, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch stock account: %w", err)
	}
	return &acc, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]core.StockAccount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, item_id, location_id, ledger, balance, updated_at
		FROM stock_accounts ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.StockAccount
	for rows.Next() {
		var acc core.StockAccount
		if err := rows.Scan(&acc.ID, &acc.ItemID, &acc.LocationID, &acc.Ledger, &acc.Balance, &acc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func (s *Store) Movements(ctx context.Context, accountID string, limit, offset int) ([]core.Movement, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, ledger, direction, quantity, reason, order_ref, created_at
		FROM stock_movements
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	defer rows.Close()

	var movements []core.Movement
	for rows.Next() {
		var m core.Movement
		if err := rows.Scan(&m.ID, &m.AccountID, &m.Ledger, &m.Direction, &m.Quantity, &m.Reason, &m.OrderRef, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (s *Store) SumMovements(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN direction = 'OUT' THEN -quantity ELSE quantity END), 0)
		FROM stock_movements WHERE account_id = $1
	`, accountID).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum movements: %w", err)
	}
	return sum, nil
}

// ── Bill of materials ────────────────────────────────────────────────────────

func (s *Store) BOMForProduct(ctx context.Context, productID string) ([]core.BOMLine, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT product_id, material_id, qty_per_unit, updated_at
		FROM bom_lines WHERE product_id = $1 ORDER BY material_id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bom lines: %w", err)
	}
	defer rows.Close()

	var lines []core.BOMLine
	for rows.Next() {
		var line core.BOMLine
		if err := rows.Scan(&line.ProductID, &line.MaterialID, &line.QtyPerUnit, &line.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bom line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (s *Store) GetBOMLine(ctx context.Context, productID, materialID string) (*core.BOMLine, error) {
	var line core.BOMLine
	err := s.pool.QueryRow(ctx, `
		SELECT product_id, material_id, qty_per_unit, updated_at
		FROM bom_lines WHERE product_id = $1 AND material_id = $2
	`, productID, materialID).Scan(&line.ProductID, &line.MaterialID, &line.QtyPerUnit, &line.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("bom line %s/%s: %w", productID, materialID, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch bom line: %w", err)
	}
	return &line, nil
}

func (s *Store) InsertBOMLine(ctx context.Context, line core.BOMLine) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO bom_lines (product_id, material_id, qty_per_unit, updated_at)
		VALUES ($1, $2, $3, $4)
	`, line.ProductID, line.MaterialID, line.QtyPerUnit, line.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("bom line %s/%s already exists: %w", line.ProductID, line.MaterialID, core.ErrConflict)
		}
		return fmt.Errorf("failed to insert bom line: %w", err)
	}
	return nil
}

func (s *Store) UpdateBOMLine(ctx context.Context, line core.BOMLine) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bom_lines SET qty_per_unit = $3, updated_at = $4
		WHERE product_id = $1 AND material_id = $2
	`, line.ProductID, line.MaterialID, line.QtyPerUnit, line.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update bom line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bom line %s/%s: %w", line.ProductID, line.MaterialID, core.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteBOMLine(ctx context.Context, productID, materialID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM bom_lines WHERE product_id = $1 AND material_id = $2
	`, productID, materialID)
	if err != nil {
		return fmt.Errorf("failed to delete bom line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bom line %s/%s: %w", productID, materialID, core.ErrNotFound)
	}
	return nil
}

// ── Alerts ───────────────────────────────────────────────────────────────────

const alertColumns = `id, item_id, account_id, level, threshold, status, raised_at,
	viewed_by, viewed_at, resolved_by, resolved_at`

func scanAlert(row pgx.Row) (*core.Alert, error) {
	var a core.Alert
	err := row.Scan(&a.ID, &a.ItemID, &a.AccountID, &a.Level, &a.Threshold, &a.Status,
		&a.RaisedAt, &a.ViewedBy, &a.ViewedAt, &a.ResolvedBy, &a.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) GetAlert(ctx context.Context, id string) (*core.Alert, error) {
	alert, err := scanAlert(s.pool.QueryRow(ctx,
		`SELECT `+alertColumns+` FROM stock_alerts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("alert %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch alert: %w", err)
	}
	return alert, nil
}

func (s *Store) OpenAlertForItem(ctx context.Context, itemID string) (*core.Alert, error) {
	alert, err := scanAlert(s.pool.QueryRow(ctx,
		`SELECT `+alertColumns+` FROM stock_alerts
		 WHERE item_id = $1 AND status IN ('NEW', 'VIEWED')`, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("open alert for item %s: %w", itemID, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch open alert: %w", err)
	}
	return alert, nil
}

func (s *Store) InsertAlert(ctx context.Context, alert *core.Alert) error {
	// The partial unique index on open alerts per item makes deduplication
	// hold even across concurrent evaluators.
	_, err := s.pool.Exec(ctx, `
		INSERT INTO stock_alerts (`+alertColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, alert.ID, alert.ItemID, alert.AccountID, alert.Level, alert.Threshold, alert.Status,
		alert.RaisedAt, alert.ViewedBy, alert.ViewedAt, alert.ResolvedBy, alert.ResolvedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("open alert for item %s already exists: %w", alert.ItemID, core.ErrConflict)
		}
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

func (s *Store) UpdateAlert(ctx context.Context, alert *core.Alert) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE stock_alerts
		SET status = $2, viewed_by = $3, viewed_at = $4, resolved_by = $5, resolved_at = $6
		WHERE id = $1
	`, alert.ID, alert.Status, alert.ViewedBy, alert.ViewedAt, alert.ResolvedBy, alert.ResolvedAt)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alert %s: %w", alert.ID, core.ErrNotFound)
	}
	return nil
}

func (s *Store) ListAlerts(ctx context.Context, status *core.AlertStatus) ([]core.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM stock_alerts`
	args := []any{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY raised_at DESC, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []core.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, *alert)
	}
	return alerts, rows.Err()
}
