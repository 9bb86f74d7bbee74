package memory

import (
	"context"
	"strings"
	"time"

	"magasin/internal/core/id"
	"magasin/internal/core/tenant"
	"magasin/internal/core/types"
	"magasin/internal/domain"
	"magasin/internal/domain/registers/credit"
	"magasin/internal/domain/registers/stock"
)

// StockRepo implements stock.Repository over the product table.
type StockRepo struct{ store *Store }

func NewStockRepo(store *Store) *StockRepo { return &StockRepo{store: store} }

var _ stock.Repository = (*StockRepo)(nil)

func (r *StockRepo) Increment(ctx context.Context, productID id.ID, qty types.Quantity, cost *types.Money) (types.Quantity, error) {
	var after types.Quantity
	err := r.store.with(ctx, func(t *tenantData) error {
		p, ok := t.products[productID]
		if !ok {
			return notFoundProduct(productID)
		}
		p.StockQuantity += qty
		if cost != nil {
			c := *cost
			p.PurchasePrice = &c
		}
		p.UpdatedAt = time.Now().UTC()
		after = p.StockQuantity
		return nil
	})
	return after, err
}

func (r *StockRepo) DecrementIfAvailable(ctx context.Context, productID id.ID, qty types.Quantity) (types.Quantity, bool, error) {
	var after types.Quantity
	var applied bool
	err := r.store.with(ctx, func(t *tenantData) error {
		p, ok := t.products[productID]
		if !ok {
			return notFoundProduct(productID)
		}
		if p.StockQuantity < qty {
			after = p.StockQuantity
			return nil
		}
		p.StockQuantity -= qty
		p.UpdatedAt = time.Now().UTC()
		after, applied = p.StockQuantity, true
		return nil
	})
	return after, applied, err
}

func (r *StockRepo) SetQuantity(ctx context.Context, productID id.ID, qty types.Quantity) error {
	return r.store.with(ctx, func(t *tenantData) error {
		p, ok := t.products[productID]
		if !ok {
			return notFoundProduct(productID)
		}
		p.StockQuantity = qty
		p.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r *StockRepo) CreateMovement(ctx context.Context, m *stock.Movement) error {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	return r.store.with(ctx, func(t *tenantData) error {
		m.TenantID = tenantID
		cp := *m
		t.movements = append(t.movements, &cp)
		return nil
	})
}

func (r *StockRepo) ListMovements(ctx context.Context, filter stock.MovementFilter) (domain.ListResult[*stock.Movement], error) {
	var items []*stock.Movement
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	err := r.store.with(ctx, func(t *tenantData) error {
		for i := len(t.movements) - 1; i >= 0; i-- {
			m := t.movements[i]
			switch {
			case m.ProductID != filter.ProductID:
				continue
			case filter.Type != nil && m.Type != *filter.Type:
				continue
			case filter.FromDate != nil && m.CreatedAt.Before(*filter.FromDate):
				continue
			case filter.ToDate != nil && m.CreatedAt.After(*filter.ToDate):
				continue
			case search != "" && !strings.Contains(strings.ToLower(m.ReferenceDocument), search) &&
				!strings.Contains(strings.ToLower(m.Reason), search):
				continue
			}
			cp := *m
			items = append(items, &cp)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*stock.Movement]{}, err
	}
	return page(items, filter.ListFilter), nil
}

// CreditRepo implements credit.Repository over the customer table.
type CreditRepo struct{ store *Store }

func NewCreditRepo(store *Store) *CreditRepo { return &CreditRepo{store: store} }

var _ credit.Repository = (*CreditRepo)(nil)

type balanceGuard func(balance, limit, amount types.Money) bool

func (r *CreditRepo) AddWithinLimit(ctx context.Context, customerID id.ID, amount types.Money) (types.Money, bool, error) {
	return r.change(ctx, customerID, amount, func(balance, limit, amount types.Money) bool {
		return !limit.IsPositive() || balance.Add(amount).LessThanOrEqual(limit)
	})
}

func (r *CreditRepo) Add(ctx context.Context, customerID id.ID, amount types.Money) (types.Money, bool, error) {
	return r.change(ctx, customerID, amount, nil)
}

func (r *CreditRepo) SubtractIfCovered(ctx context.Context, customerID id.ID, amount types.Money) (types.Money, bool, error) {
	return r.change(ctx, customerID, amount.Neg(), func(balance, _, amount types.Money) bool {
		return balance.GreaterThanOrEqual(amount.Neg())
	})
}

func (r *CreditRepo) Subtract(ctx context.Context, customerID id.ID, amount types.Money) (types.Money, bool, error) {
	return r.change(ctx, customerID, amount.Neg(), nil)
}

// change adds delta to the balance when guard accepts it. A missing customer
// is reported as not applied, like a zero-row UPDATE.
func (r *CreditRepo) change(ctx context.Context, customerID id.ID, delta types.Money, guard balanceGuard) (types.Money, bool, error) {
	var balance types.Money
	var applied bool
	err := r.store.with(ctx, func(t *tenantData) error {
		c, ok := t.customers[customerID]
		if !ok {
			return nil
		}
		if guard != nil && !guard(c.Balance, c.CreditLimit, delta) {
			balance = c.Balance
			return nil
		}
		c.Balance = types.RoundMoney(c.Balance.Add(delta))
		c.UpdatedAt = time.Now().UTC()
		balance, applied = c.Balance, true
		return nil
	})
	return balance, applied, err
}
