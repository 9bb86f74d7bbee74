// Package memory is an in-process implementation of the repositories and the
// transaction manager. Transactions are serialized by one mutex and roll back
// by restoring a snapshot. It backs the unit tests and STORAGE=memory.
package memory

import (
	"context"
	"sync"

	"magasin/internal/core/id"
	"magasin/internal/core/tenant"
	"magasin/internal/core/tx"
	"magasin/internal/domain"
	"magasin/internal/domain/catalogs/customer"
	"magasin/internal/domain/catalogs/product"
	"magasin/internal/domain/documents/sale"
	"magasin/internal/domain/registers/stock"
)

type tenantData struct {
	products  map[id.ID]*product.Product
	customers map[id.ID]*customer.Customer
	movements []*stock.Movement
	sales     map[id.ID]*sale.Sale
	salesSeq  []id.ID
	sequences map[string]int64
}

func newTenantData() *tenantData {
	return &tenantData{
		products:  make(map[id.ID]*product.Product),
		customers: make(map[id.ID]*customer.Customer),
		sales:     make(map[id.ID]*sale.Sale),
		sequences: make(map[string]int64),
	}
}

func (t *tenantData) clone() *tenantData {
	c := newTenantData()
	for k, v := range t.products {
		p := *v
		c.products[k] = &p
	}
	for k, v := range t.customers {
		cu := *v
		c.customers[k] = &cu
	}
	c.movements = append([]*stock.Movement(nil), t.movements...)
	for k, v := range t.sales {
		c.sales[k] = copySale(v)
	}
	c.salesSeq = append([]id.ID(nil), t.salesSeq...)
	for k, v := range t.sequences {
		c.sequences[k] = v
	}
	return c
}

// Store holds every tenant's data and implements tx.Manager.
type Store struct {
	mu      sync.Mutex
	tenants map[string]*tenantData
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{tenants: make(map[string]*tenantData)}
}

type txKey struct{}

var _ tx.Manager = (*Store)(nil)

// RunInTransaction runs fn holding the store lock. Nested calls join.
// After-commit hooks run once the lock is released.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	hooks, err := s.run(ctx, fn)
	if err != nil {
		return err
	}
	hooks.Run(ctx)
	return nil
}

func (s *Store) run(ctx context.Context, fn func(ctx context.Context) error) (*tx.Hooks, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]*tenantData, len(s.tenants))
	for k, v := range s.tenants {
		snapshot[k] = v.clone()
	}
	committed := false
	defer func() {
		if !committed {
			s.tenants = snapshot
		}
	}()

	txCtx, hooks := tx.WithHooks(context.WithValue(ctx, txKey{}, s))
	if err := fn(txCtx); err != nil {
		return nil, err
	}
	committed = true
	return hooks, nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// with resolves the tenant of ctx and calls fn with its data under the lock.
func (s *Store) with(ctx context.Context, fn func(t *tenantData) error) error {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	if !s.inTx(ctx) {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	t, ok := s.tenants[tenantID]
	if !ok {
		t = newTenantData()
		s.tenants[tenantID] = t
	}
	return fn(t)
}

func copySale(src *sale.Sale) *sale.Sale {
	c := *src
	c.Lines = append([]sale.Line(nil), src.Lines...)
	return &c
}

func page[T any](items []T, f domain.ListFilter) domain.ListResult[T] {
	f = f.Normalized()
	total := len(items)
	start := min(f.Offset, total)
	end := min(start+f.Limit, total)
	out := make([]T, end-start)
	copy(out, items[start:end])
	return domain.ListResult[T]{Items: out, TotalCount: int64(total), Limit: f.Limit, Offset: f.Offset}
}
