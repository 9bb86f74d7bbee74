// Package catalog_repo provides PostgreSQL implementations of the catalog repositories.
// Every statement carries the tenant predicate taken from the request context.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"magasin/internal/core/apperror"
	"magasin/internal/core/id"
	"magasin/internal/core/tenant"
	"magasin/internal/infrastructure/storage/postgres"
)

// baseRepo holds the tenant-scoped single-row operations shared by catalogs.
type baseRepo[T any] struct {
	txm        *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string
}

func (r *baseRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

// insert writes values, forcing tenant_id from ctx.
func (r *baseRepo[T]) insert(ctx context.Context, values map[string]any) error {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	values["tenant_id"] = tenantID

	sql, args, err := postgres.Builder().Insert(r.tableName).SetMap(values).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}
	return nil
}

func (r *baseRepo[T]) get(ctx context.Context, entityID id.ID, forUpdate bool) (*T, error) {
	q, err := postgres.TenantSelect(ctx, r.tableName, r.selectCols...)
	if err != nil {
		return nil, err
	}
	q = q.Where(squirrel.Eq{"id": entityID}).Limit(1)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	entity := new(T)
	if err := pgxscan.Get(ctx, r.querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(r.entityName, entityID.String())
		}
		return nil, fmt.Errorf("get %s: %w", r.entityName, err)
	}
	return entity, nil
}
