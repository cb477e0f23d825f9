package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"textile-backoffice/internal/core"
)

// Order kinds as stored in order_lines.order_kind.
const (
	kindSale       = "SALE"
	kindPurchase   = "PURCHASE"
	kindProduction = "PRODUCTION"
)

// ── Sale orders ──────────────────────────────────────────────────────────────

func (s *Store) GetSaleOrder(ctx context.Context, id string) (*core.SaleOrder, error) {
	var o core.SaleOrder
	err := s.pool.QueryRow(ctx, `
		SELECT id, client_id, client_name, status, total, notes, created_at, updated_at
		FROM sale_orders WHERE id = $1
	`, id).Scan(&o.ID, &o.ClientID, &o.ClientName, &o.Status, &o.Total, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("sale order %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch sale order: %w", err)
	}

	if o.Lines, err = s.orderLines(ctx, kindSale, id); err != nil {
		return nil, err
	}
	if o.Payments, err = s.payments(ctx, id); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) ListSaleOrders(ctx context.Context, status *core.SaleStatus) ([]core.SaleOrder, error) {
	query := `
		SELECT id, client_id, client_name, status, total, notes, created_at, updated_at
		FROM sale_orders`
	args := []any{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sale orders: %w", err)
	}
	defer rows.Close()

	var orders []core.SaleOrder
	for rows.Next() {
		var o core.SaleOrder
		if err := rows.Scan(&o.ID, &o.ClientID, &o.ClientName, &o.Status, &o.Total, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sale order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		if orders[i].Lines, err = s.orderLines(ctx, kindSale, orders[i].ID); err != nil {
			return nil, err
		}
		if orders[i].Payments, err = s.payments(ctx, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// ── Purchase orders ──────────────────────────────────────────────────────────

func (s *Store) GetPurchaseOrder(ctx context.Context, id string) (*core.PurchaseOrder, error) {
	var o core.PurchaseOrder
	err := s.pool.QueryRow(ctx, `
		SELECT id, supplier_id, supplier_name, status, total, notes, created_at, updated_at
		FROM purchase_orders WHERE id = $1
	`, id).Scan(&o.ID, &o.SupplierID, &o.SupplierName, &o.Status, &o.Total, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("purchase order %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch purchase order: %w", err)
	}

	if o.Lines, err = s.orderLines(ctx, kindPurchase, id); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) ListPurchaseOrders(ctx context.Context, status *core.PurchaseStatus) ([]core.PurchaseOrder, error) {
	query := `
		SELECT id, supplier_id, supplier_name, status, total, notes, created_at, updated_at
		FROM purchase_orders`
	args := []any{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchase orders: %w", err)
	}
	defer rows.Close()

	var orders []core.PurchaseOrder
	for rows.Next() {
		var o core.PurchaseOrder
		if err := rows.Scan(&o.ID, &o.SupplierID, &o.SupplierName, &o.Status, &o.Total, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan purchase order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		if orders[i].Lines, err = s.orderLines(ctx, kindPurchase, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// ── Production orders ────────────────────────────────────────────────────────

func (s *Store) GetProductionOrder(ctx context.Context, id string) (*core.ProductionOrder, error) {
	var o core.ProductionOrder
	err := s.pool.QueryRow(ctx, `
		SELECT id, location_id, status, notes, created_at, updated_at
		FROM production_orders WHERE id = $1
	`, id).Scan(&o.ID, &o.LocationID, &o.Status, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("production order %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch production order: %w", err)
	}

	if o.Lines, err = s.orderLines(ctx, kindProduction, id); err != nil {
		return nil, err
	}
	if o.Tasks, err = s.tasks(ctx, id); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) ListProductionOrders(ctx context.Context, status *core.ProductionStatus) ([]core.ProductionOrder, error) {
	query := `
		SELECT id, location_id, status, notes, created_at, updated_at
		FROM production_orders`
	args := []any{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list production orders: %w", err)
	}
	defer rows.Close()

	var orders []core.ProductionOrder
	for rows.Next() {
		var o core.ProductionOrder
		if err := rows.Scan(&o.ID, &o.LocationID, &o.Status, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan production order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		if orders[i].Lines, err = s.orderLines(ctx, kindProduction, orders[i].ID); err != nil {
			return nil, err
		}
		if orders[i].Tasks, err = s.tasks(ctx, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// ── Child rows ───────────────────────────────────────────────────────────────

func (s *Store) orderLines(ctx context.Context, kind, orderID string) ([]core.OrderLine, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, item_id, item_code, item_name, quantity, unit_price, subtotal, received_qty
		FROM order_lines
		WHERE order_kind = $1 AND order_id = $2
		ORDER BY position
	`, kind, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order lines: %w", err)
	}
	defer rows.Close()

	var lines []core.OrderLine
	for rows.Next() {
		var l core.OrderLine
		if err := rows.Scan(&l.ID, &l.ItemID, &l.ItemCode, &l.ItemName, &l.Quantity, &l.UnitPrice, &l.Subtotal, &l.ReceivedQty); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *Store) payments(ctx context.Context, orderID string) ([]core.Payment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, amount, method, reference, paid_at
		FROM payments WHERE order_id = $1 ORDER BY paid_at, id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []core.Payment
	for rows.Next() {
		var p core.Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.Reference, &p.PaidAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *Store) tasks(ctx context.Context, orderID string) ([]core.Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, name, employee_id, estimated_mins, actual_mins, status, notes, created_at, updated_at
		FROM production_tasks WHERE order_id = $1 ORDER BY created_at, id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []core.Task
	for rows.Next() {
		var t core.Task
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Name, &t.EmployeeID, &t.EstimatedMins, &t.ActualMins, &t.Status, &t.Notes, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ── Apply ────────────────────────────────────────────────────────────────────

// Apply writes the commit in one transaction. Touched stock accounts are
// locked FOR UPDATE in ascending ID order so concurrent commits touching
// overlapping accounts serialize instead of deadlocking.
func (s *Store) Apply(ctx context.Context, commit core.Commit) error {
	if commit.Empty() {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if len(commit.Balances) > 0 {
		ids := make([]string, 0, len(commit.Balances))
		for _, upd := range commit.Balances {
			ids = append(ids, upd.AccountID)
		}
		sort.Strings(ids)

		rows, err := tx.Query(ctx, `
			SELECT id FROM stock_accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE
		`, ids)
		if err != nil {
			return fmt.Errorf("failed to lock stock accounts: %w", err)
		}
		locked := 0
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan locked account: %w", err)
			}
			locked++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to lock stock accounts: %w", err)
		}
		if locked != len(ids) {
			return fmt.Errorf("stock account disappeared during commit: %w", core.ErrNotFound)
		}
	}

	for _, m := range commit.Movements {
		_, err := tx.Exec(ctx, `
			INSERT INTO stock_movements (id, account_id, ledger, direction, quantity, reason, order_ref, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, m.ID, m.AccountID, m.Ledger, m.Direction, m.Quantity, m.Reason, m.OrderRef, m.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert movement: %w", err)
		}
	}

	for _, upd := range commit.Balances {
		_, err := tx.Exec(ctx, `
			UPDATE stock_accounts SET balance = $2, updated_at = NOW() WHERE id = $1
		`, upd.AccountID, upd.Balance)
		if err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}
	}

	if commit.Sale != nil {
		if err := upsertSale(ctx, tx, commit.Sale); err != nil {
			return err
		}
	}
	if commit.Purchase != nil {
		if err := upsertPurchase(ctx, tx, commit.Purchase); err != nil {
			return err
		}
	}
	if commit.Production != nil {
		if err := upsertProduction(ctx, tx, commit.Production); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func upsertSale(ctx context.Context, tx pgx.Tx, o *core.SaleOrder) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO sale_orders (id, client_id, client_name, status, total, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, total = EXCLUDED.total,
		    notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
	`, o.ID, o.ClientID, o.ClientName, o.Status, o.Total, o.Notes, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert sale order: %w", err)
	}
	if err := replaceLines(ctx, tx, kindSale, o.ID, o.Lines); err != nil {
		return err
	}
	return replacePayments(ctx, tx, o.ID, o.Payments)
}

func upsertPurchase(ctx context.Context, tx pgx.Tx, o *core.PurchaseOrder) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO purchase_orders (id, supplier_id, supplier_name, status, total, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, total = EXCLUDED.total,
		    notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
	`, o.ID, o.SupplierID, o.SupplierName, o.Status, o.Total, o.Notes, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert purchase order: %w", err)
	}
	return replaceLines(ctx, tx, kindPurchase, o.ID, o.Lines)
}

func upsertProduction(ctx context.Context, tx pgx.Tx, o *core.ProductionOrder) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO production_orders (id, location_id, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
	`, o.ID, o.LocationID, o.Status, o.Notes, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert production order: %w", err)
	}
	if err := replaceLines(ctx, tx, kindProduction, o.ID, o.Lines); err != nil {
		return err
	}
	return replaceTasks(ctx, tx, o.ID, o.Tasks)
}

// replaceLines rewrites the child rows wholesale. Orders carry a handful of
// lines, so the delete-and-reinsert keeps the upsert simple.
func replaceLines(ctx context.Context, tx pgx.Tx, kind, orderID string, lines []core.OrderLine) error {
	if _, err := tx.Exec(ctx, `
		DELETE FROM order_lines WHERE order_kind = $1 AND order_id = $2
	`, kind, orderID); err != nil {
		return fmt.Errorf("failed to clear order lines: %w", err)
	}
	for i, l := range lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO order_lines (id, order_kind, order_id, position, item_id, item_code, item_name, quantity, unit_price, subtotal, received_qty)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, l.ID, kind, orderID, i, l.ItemID, l.ItemCode, l.ItemName, l.Quantity, l.UnitPrice, l.Subtotal, l.ReceivedQty)
		if err != nil {
			return fmt.Errorf("failed to insert order line: %w", err)
		}
	}
	return nil
}

func replacePayments(ctx context.Context, tx pgx.Tx, orderID string, payments []core.Payment) error {
	if _, err := tx.Exec(ctx, `DELETE FROM payments WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("failed to clear payments: %w", err)
	}
	for _, p := range payments {
		_, err := tx.Exec(ctx, `
			INSERT INTO payments (id, order_id, amount, method, reference, paid_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, p.ID, p.OrderID, p.Amount, p.Method, p.Reference, p.PaidAt)
		if err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}
	}
	return nil
}

func replaceTasks(ctx context.Context, tx pgx.Tx, orderID string, tasks []core.Task) error {
	if _, err := tx.Exec(ctx, `DELETE FROM production_tasks WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("failed to clear tasks: %w", err)
	}
	for _, t := range tasks {
		_, err := tx.Exec(ctx, `
			INSERT INTO production_tasks (id, order_id, name, employee_id, estimated_mins, actual_mins, status, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, t.ID, t.OrderID, t.Name, t.EmployeeID, t.EstimatedMins, t.ActualMins, t.Status, t.Notes, t.CreatedAt, t.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert task: %w", err)
		}
	}
	return nil
}
