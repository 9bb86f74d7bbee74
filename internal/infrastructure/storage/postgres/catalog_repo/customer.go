package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"magasin/internal/core/id"
	"magasin/internal/domain"
	"magasin/internal/domain/catalogs/customer"
	"magasin/internal/infrastructure/storage/postgres"
)

var customerColumns = []string{
	"id", "tenant_id", "name", "phone", "email",
	"balance", "credit_limit", "created_at", "updated_at",
}

// CustomerRepo implements customer.Repository.
type CustomerRepo struct {
	baseRepo[customer.Customer]
}

var _ customer.Repository = (*CustomerRepo)(nil)

// NewCustomerRepo creates a customer repository.
func NewCustomerRepo(txm *postgres.TxManager) *CustomerRepo {
	return &CustomerRepo{baseRepo[customer.Customer]{
		txm:        txm,
		tableName:  "customers",
		entityName: "customer",
		selectCols: customerColumns,
	}}
}

func (r *CustomerRepo) Create(ctx context.Context, c *customer.Customer) error {
	return r.insert(ctx, map[string]any{
		"id":           c.ID,
		"name":         c.Name,
		"phone":        c.Phone,
		"email":        c.Email,
		"balance":      c.Balance,
		"credit_limit": c.CreditLimit,
		"created_at":   c.CreatedAt,
		"updated_at":   c.UpdatedAt,
	})
}

func (r *CustomerRepo) GetByID(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	return r.get(ctx, customerID, false)
}

func (r *CustomerRepo) List(ctx context.Context, filter customer.ListFilter) (domain.ListResult[*customer.Customer], error) {
	q, err := postgres.TenantSelect(ctx, r.tableName, customerColumns...)
	if err != nil {
		return domain.ListResult[*customer.Customer]{}, err
	}

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"phone": pattern},
			squirrel.ILike{"email": pattern},
		})
	}
	if filter.WithBalance {
		q = q.Where(squirrel.Gt{"balance": 0})
	}

	orderBy, err := postgres.ParseOrderBy(filter.OrderBy,
		[]string{"name", "balance", "created_at", "updated_at"}, "name ASC")
	if err != nil {
		return domain.ListResult[*customer.Customer]{}, err
	}
	return postgres.SelectPage[*customer.Customer](ctx, r.querier(ctx), q, filter.ListFilter, orderBy)
}
