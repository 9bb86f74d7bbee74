package memory

import (
	"context"
	"slices"
	"strings"

	"magasin/internal/core/apperror"
	"magasin/internal/core/id"
	"magasin/internal/core/tenant"
	"magasin/internal/domain"
	"magasin/internal/domain/catalogs/customer"
	"magasin/internal/domain/catalogs/product"
)

// ProductRepo implements product.Repository.
type ProductRepo struct{ store *Store }

func NewProductRepo(store *Store) *ProductRepo { return &ProductRepo{store: store} }

var _ product.Repository = (*ProductRepo)(nil)

func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	return r.store.with(ctx, func(t *tenantData) error {
		for _, existing := range t.products {
			if strings.EqualFold(existing.Code, p.Code) {
				return apperror.NewDuplicate("product", "code", p.Code)
			}
		}
		p.TenantID = tenantID
		cp := *p
		t.products[p.ID] = &cp
		return nil
	})
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	var out *product.Product
	err := r.store.with(ctx, func(t *tenantData) error {
		p, ok := t.products[productID]
		if !ok {
			return apperror.NewNotFound("product", productID)
		}
		cp := *p
		out = &cp
		return nil
	})
	return out, err
}

// GetForUpdate is GetByID; the store lock already serializes transactions.
func (r *ProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.GetByID(ctx, productID)
}

func (r *ProductRepo) List(ctx context.Context, filter product.ListFilter) (domain.ListResult[*product.Product], error) {
	var items []*product.Product
	err := r.store.with(ctx, func(t *tenantData) error {
		search := strings.ToLower(strings.TrimSpace(filter.Search))
		for _, p := range t.products {
			if search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
				!strings.Contains(strings.ToLower(p.Code), search) {
				continue
			}
			if filter.Active != nil && p.Active != *filter.Active {
				continue
			}
			if filter.LowStock && !p.IsLowStock(p.StockQuantity) {
				continue
			}
			cp := *p
			items = append(items, &cp)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*product.Product]{}, err
	}
	slices.SortFunc(items, func(a, b *product.Product) int { return strings.Compare(a.Code, b.Code) })
	return page(items, filter.ListFilter), nil
}

// CustomerRepo implements customer.Repository.
type CustomerRepo struct{ store *Store }

func NewCustomerRepo(store *Store) *CustomerRepo { return &CustomerRepo{store: store} }

var _ customer.Repository = (*CustomerRepo)(nil)

func (r *CustomerRepo) Create(ctx context.Context, c *customer.Customer) error {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	return r.store.with(ctx, func(t *tenantData) error {
		c.TenantID = tenantID
		cp := *c
		t.customers[c.ID] = &cp
		return nil
	})
}

func (r *CustomerRepo) GetByID(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	var out *customer.Customer
	err := r.store.with(ctx, func(t *tenantData) error {
		c, ok := t.customers[customerID]
		if !ok {
			return apperror.NewNotFound("customer", customerID)
		}
		cp := *c
		out = &cp
		return nil
	})
	return out, err
}

func (r *CustomerRepo) List(ctx context.Context, filter customer.ListFilter) (domain.ListResult[*customer.Customer], error) {
	var items []*customer.Customer
	err := r.store.with(ctx, func(t *tenantData) error {
		search := strings.ToLower(strings.TrimSpace(filter.Search))
		for _, c := range t.customers {
			if search != "" && !strings.Contains(strings.ToLower(c.Name), search) &&
				!strings.Contains(c.Phone, search) {
				continue
			}
			if filter.WithBalance && !c.Balance.IsPositive() {
				continue
			}
			cp := *c
			items = append(items, &cp)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*customer.Customer]{}, err
	}
	slices.SortFunc(items, func(a, b *customer.Customer) int { return strings.Compare(a.Name, b.Name) })
	return page(items, filter.ListFilter), nil
}

func notFoundProduct(productID id.ID) error {
	return apperror.NewNotFound("product", productID)
}
