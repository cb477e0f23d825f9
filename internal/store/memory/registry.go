package memory

import (
	"context"
	"fmt"
	"sync"

	"textile-backoffice/internal/core"
)

var _ core.Registry = (*Registry)(nil)

// Registry is an in-memory counterparty directory. The demo server seeds it
// at startup; tests seed it per case.
type Registry struct {
	mu        sync.RWMutex
	clients   map[string]core.PartyRef
	suppliers map[string]core.PartyRef
	employees map[string]core.PartyRef
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		clients:   make(map[string]core.PartyRef),
		suppliers: make(map[string]core.PartyRef),
		employees: make(map[string]core.PartyRef),
	}
}

// AddClient registers a client.
func (r *Registry) AddClient(ref core.PartyRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[ref.ID] = ref
}

// AddSupplier registers a supplier.
func (r *Registry) AddSupplier(ref core.PartyRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suppliers[ref.ID] = ref
}

// AddEmployee registers an employee.
func (r *Registry) AddEmployee(ref core.PartyRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.employees[ref.ID] = ref
}

func (r *Registry) Client(_ context.Context, id string) (*core.PartyRef, error) {
	return r.lookup(r.clients, "client", id)
}

func (r *Registry) Supplier(_ context.Context, id string) (*core.PartyRef, error) {
	return r.lookup(r.suppliers, "supplier", id)
}

func (r *Registry) Employee(_ context.Context, id string) (*core.PartyRef, error) {
	return r.lookup(r.employees, "employee", id)
}

func (r *Registry) lookup(m map[string]core.PartyRef, kind, id string) (*core.PartyRef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return &ref, nil
}
