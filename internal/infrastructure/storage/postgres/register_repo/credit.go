package register_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"magasin/internal/core/id"
	"magasin/internal/core/tenant"
	"magasin/internal/core/types"
	"magasin/internal/domain/registers/credit"
	"magasin/internal/infrastructure/storage/postgres"
)

// CreditRepo implements credit.Repository with guarded UPDATE ... RETURNING
// statements on customers.balance.
type CreditRepo struct {
	txm *postgres.TxManager
}

var _ credit.Repository = (*CreditRepo)(nil)

// NewCreditRepo creates a credit register repository.
func NewCreditRepo(txm *postgres.TxManager) *CreditRepo {
	return &CreditRepo{txm: txm}
}

const (
	addWithinLimitSQL = `
		UPDATE customers SET balance = balance + $3, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		  AND (credit_limit <= 0 OR balance + $3 <= credit_limit)
		RETURNING balance`

	addSQL = `
		UPDATE customers SET balance = balance + $3, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING balance`

	subtractIfCoveredSQL = `
		UPDATE customers SET balance = balance - $3, updated_at = now()
		WHERE tenant_id = $1 AND id = $2 AND balance >= $3
		RETURNING balance`

	subtractSQL = `
		UPDATE customers SET balance = balance - $3, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING balance`

	balanceSQL = `SELECT balance FROM customers WHERE tenant_id = $1 AND id = $2`
)

func (r *CreditRepo) AddWithinLimit(ctx context.Context, customerID id.ID, amount types.Money) (types.Money, bool, error) {
	return r.exec(ctx, addWithinLimitSQL, customerID, amount)
}

func (r *CreditRepo) Add(ctx context.Context, customerID id.ID, amount types.Money) (types.Money, bool, error) {
	return r.exec(ctx, addSQL, customerID, amount)
}

func (r *CreditRepo) SubtractIfCovered(ctx context.Context, customerID id.ID, amount types.Money) (types.Money, bool, error) {
	return r.exec(ctx, subtractIfCoveredSQL, customerID, amount)
}

func (r *CreditRepo) Subtract(ctx context.Context, customerID id.ID, amount types.Money) (types.Money, bool, error) {
	return r.exec(ctx, subtractSQL, customerID, amount)
}

// exec runs one guarded statement. When no row is returned the current
// balance is read back so callers can report it.
func (r *CreditRepo) exec(ctx context.Context, sql string, customerID id.ID, amount types.Money) (types.Money, bool, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return types.Zero(), false, err
	}
	querier := r.txm.GetQuerier(ctx)

	var balance types.Money
	err = querier.QueryRow(ctx, sql, tenantID, customerID, types.RoundMoney(amount)).Scan(&balance)
	if err == nil {
		return balance, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return types.Zero(), false, fmt.Errorf("update balance: %w", err)
	}

	err = querier.QueryRow(ctx, balanceSQL, tenantID, customerID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Zero(), false, nil
	}
	if err != nil {
		return types.Zero(), false, fmt.Errorf("read balance: %w", err)
	}
	return balance, false, nil
}
