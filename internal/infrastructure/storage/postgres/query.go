package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"magasin/internal/core/apperror"
	"magasin/internal/core/tenant"
	"magasin/internal/domain"
)

// Builder returns a squirrel builder with PostgreSQL placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// TenantSelect starts a SELECT on table restricted to the tenant in ctx.
// It fails before any SQL is built when ctx carries no tenant.
func TenantSelect(ctx context.Context, table string, cols ...string) (squirrel.SelectBuilder, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}
	return Builder().Select(cols...).From(table).Where(squirrel.Eq{"tenant_id": tenantID}), nil
}

// ParseOrderBy turns "field" or "-field" into an ORDER BY clause over allowed columns.
func ParseOrderBy(orderBy string, allowed []string, fallback string) (string, error) {
	if orderBy == "" {
		return fallback, nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}
	field = strings.TrimSpace(field)

	for _, col := range allowed {
		if col == field {
			return field + " " + direction, nil
		}
	}
	return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
}

// SelectPage counts the rows matched by q, then selects one ordered page into T.
func SelectPage[T any](ctx context.Context, querier Querier, q squirrel.SelectBuilder, filter domain.ListFilter, orderBy string) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{Limit: filter.Limit, Offset: filter.Offset}

	countSQL, countArgs, err := Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	q = q.OrderBy(orderBy)
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list: %w", err)
	}
	if result.Items == nil {
		result.Items = []T{}
	}
	return result, nil
}

// IsUniqueViolation reports a 23505 error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
