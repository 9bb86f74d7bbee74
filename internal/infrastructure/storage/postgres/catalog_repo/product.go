package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"magasin/internal/core/apperror"
	"magasin/internal/core/id"
	"magasin/internal/domain"
	"magasin/internal/domain/catalogs/product"
	"magasin/internal/infrastructure/storage/postgres"
)

var productColumns = []string{
	"id", "tenant_id", "code", "name",
	"stock_quantity", "purchase_price", "sale_price", "tax_rate", "min_stock_threshold",
	"active", "created_at", "updated_at",
}

// ProductRepo implements product.Repository.
type ProductRepo struct {
	baseRepo[product.Product]
}

var _ product.Repository = (*ProductRepo)(nil)

// NewProductRepo creates a product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{baseRepo[product.Product]{
		txm:        txm,
		tableName:  "products",
		entityName: "product",
		selectCols: productColumns,
	}}
}

func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	err := r.insert(ctx, map[string]any{
		"id":                  p.ID,
		"code":                p.Code,
		"name":                p.Name,
		"stock_quantity":      p.StockQuantity,
		"purchase_price":      p.PurchasePrice,
		"sale_price":          p.SalePrice,
		"tax_rate":            p.TaxRate,
		"min_stock_threshold": p.MinStockThreshold,
		"active":              p.Active,
		"created_at":          p.CreatedAt,
		"updated_at":          p.UpdatedAt,
	})
	if postgres.IsUniqueViolation(err) {
		return apperror.NewDuplicate("product", "code", p.Code)
	}
	return err
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.get(ctx, productID, false)
}

func (r *ProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.get(ctx, productID, true)
}

func (r *ProductRepo) List(ctx context.Context, filter product.ListFilter) (domain.ListResult[*product.Product], error) {
	q, err := postgres.TenantSelect(ctx, r.tableName, productColumns...)
	if err != nil {
		return domain.ListResult[*product.Product]{}, err
	}

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"code": pattern},
		})
	}
	if filter.Active != nil {
		q = q.Where(squirrel.Eq{"active": *filter.Active})
	}
	if filter.LowStock {
		q = q.Where("min_stock_threshold > 0 AND stock_quantity <= min_stock_threshold")
	}

	orderBy, err := postgres.ParseOrderBy(filter.OrderBy,
		[]string{"code", "name", "stock_quantity", "sale_price", "created_at", "updated_at"}, "code ASC")
	if err != nil {
		return domain.ListResult[*product.Product]{}, err
	}
	return postgres.SelectPage[*product.Product](ctx, r.querier(ctx), q, filter.ListFilter, orderBy)
}
