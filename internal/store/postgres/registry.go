package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"textile-backoffice/internal/core"
)

var _ core.Registry = (*Registry)(nil)

// Registry resolves counterparty references against the master-data tables.
type Registry struct {
	pool *pgxpool.Pool
}

// NewRegistry wraps a connection pool.
func NewRegistry(pool *pgxpool.Pool) *Registry {
	return &Registry{pool: pool}
}

func (r *Registry) Client(ctx context.Context, id string) (*core.PartyRef, error) {
	return r.lookup(ctx, "clients", "client", id)
}

func (r *Registry) Supplier(ctx context.Context, id string) (*core.PartyRef, error) {
	return r.lookup(ctx, "suppliers", "supplier", id)
}

func (r *Registry) Employee(ctx context.Context, id string) (*core.PartyRef, error) {
	return r.lookup(ctx, "employees", "employee", id)
}

func (r *Registry) lookup(ctx context.Context, table, kind, id string) (*core.PartyRef, error) {
	var ref core.PartyRef
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM `+table+` WHERE id = $1`, id).
		Scan(&ref.ID, &ref.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", kind, err)
	}
	return &ref, nil
}
