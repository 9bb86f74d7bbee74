// Package register_repo provides PostgreSQL implementations of the stock and
// credit registers. Counters change through single guarded UPDATE statements.
package register_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"magasin/internal/core/apperror"
	"magasin/internal/core/id"
	"magasin/internal/core/tenant"
	"magasin/internal/core/types"
	"magasin/internal/domain"
	"magasin/internal/domain/registers/stock"
	"magasin/internal/infrastructure/storage/postgres"
)

const (
	productsTable       = "products"
	stockMovementsTable = "stock_movements"
)

var movementColumns = []string{
	"id", "tenant_id", "product_id", "movement_type", "quantity", "unit_price",
	"reference_document", "reason", "is_reversal", "created_by", "created_at",
}

// StockRepo implements stock.Repository.
type StockRepo struct {
	txm *postgres.TxManager
}

var _ stock.Repository = (*StockRepo)(nil)

// NewStockRepo creates a stock register repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{txm: txm}
}

func (r *StockRepo) Increment(ctx context.Context, productID id.ID, qty types.Quantity, cost *types.Money) (types.Quantity, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return 0, err
	}

	q := postgres.Builder().Update(productsTable).
		Set("stock_quantity", squirrel.Expr("stock_quantity + ?", qty)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": productID}).
		Suffix("RETURNING stock_quantity")
	if cost != nil {
		q = q.Set("purchase_price", *cost)
	}

	var after types.Quantity
	applied, err := r.returning(ctx, q, &after)
	if err != nil {
		return 0, fmt.Errorf("increment stock: %w", err)
	}
	if !applied {
		return 0, apperror.NewNotFound("product", productID.String())
	}
	return after, nil
}

func (r *StockRepo) DecrementIfAvailable(ctx context.Context, productID id.ID, qty types.Quantity) (types.Quantity, bool, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return 0, false, err
	}

	q := postgres.Builder().Update(productsTable).
		Set("stock_quantity", squirrel.Expr("stock_quantity - ?", qty)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": productID}).
		Where(squirrel.GtOrEq{"stock_quantity": qty}).
		Suffix("RETURNING stock_quantity")

	var after types.Quantity
	applied, err := r.returning(ctx, q, &after)
	if err != nil {
		return 0, false, fmt.Errorf("decrement stock: %w", err)
	}
	if applied {
		return after, true, nil
	}

	// Guard failed or product missing: report what is on hand.
	err = r.txm.GetQuerier(ctx).QueryRow(ctx,
		`SELECT stock_quantity FROM products WHERE tenant_id = $1 AND id = $2`,
		tenantID, productID,
	).Scan(&after)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, apperror.NewNotFound("product", productID.String())
	}
	if err != nil {
		return 0, false, fmt.Errorf("read stock: %w", err)
	}
	return after, false, nil
}

func (r *StockRepo) SetQuantity(ctx context.Context, productID id.ID, qty types.Quantity) error {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return err
	}

	sql, args, err := postgres.Builder().Update(productsTable).
		Set("stock_quantity", qty).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": productID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID.String())
	}
	return nil
}

func (r *StockRepo) CreateMovement(ctx context.Context, m *stock.Movement) error {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	m.TenantID = tenantID

	sql, args, err := postgres.Builder().Insert(stockMovementsTable).
		Columns(movementColumns...).
		Values(m.ID, tenantID, m.ProductID, m.Type, m.Quantity, m.UnitPrice,
			m.ReferenceDocument, m.Reason, m.IsReversal, m.CreatedBy, m.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

func (r *StockRepo) ListMovements(ctx context.Context, filter stock.MovementFilter) (domain.ListResult[*stock.Movement], error) {
	q, err := postgres.TenantSelect(ctx, stockMovementsTable, movementColumns...)
	if err != nil {
		return domain.ListResult[*stock.Movement]{}, err
	}
	q = q.Where(squirrel.Eq{"product_id": filter.ProductID})

	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"movement_type": *filter.Type})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"reference_document": pattern},
			squirrel.ILike{"reason": pattern},
		})
	}

	return postgres.SelectPage[*stock.Movement](ctx, r.txm.GetQuerier(ctx), q, filter.ListFilter, "created_at DESC, id DESC")
}

// returning runs an UPDATE ... RETURNING and scans one column.
// applied is false when no row matched.
func (r *StockRepo) returning(ctx context.Context, q squirrel.UpdateBuilder, dest any) (bool, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}
	err = r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(dest)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
