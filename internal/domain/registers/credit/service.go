package credit

import (
	"context"

	"magasin/internal/core/apperror"
	"magasin/internal/core/id"
	"magasin/internal/core/tx"
	"magasin/internal/core/types"
	"magasin/internal/domain/catalogs/customer"
	"magasin/pkg/logger"
)

// Service applies charges and repayments to customer balances.
type Service struct {
	repo      Repository
	customers customer.Repository
	txManager tx.Manager
}

// NewService creates a credit account service.
func NewService(repo Repository, customers customer.Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, customers: customers, txManager: txManager}
}

// Charge extends credit: the balance grows by amount unless that would pass a
// positive limit. The check and the write are one statement.
func (s *Service) Charge(ctx context.Context, customerID id.ID, amount types.Money) (types.Money, error) {
	if err := requirePositive(amount); err != nil {
		return types.Zero(), err
	}

	var balance types.Money
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var applied bool
		var err error
		balance, applied, err = s.repo.AddWithinLimit(ctx, customerID, amount)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}

		c, err := s.customers.GetByID(ctx, customerID)
		if err != nil {
			return err
		}
		return apperror.NewCreditLimitExceeded(customerID.String(), c.Balance, c.Balance.Add(amount), c.CreditLimit)
	})
	if err != nil {
		return types.Zero(), err
	}

	logger.Info(ctx, "customer charged", "customer_id", customerID, "amount", amount.String(), "balance", balance.String())
	return balance, nil
}

// Credit reverses a charge. No limit applies and the balance may go negative.
func (s *Service) Credit(ctx context.Context, customerID id.ID, amount types.Money) (types.Money, error) {
	return s.apply(ctx, "customer credited", customerID, amount, s.repo.Subtract)
}

// Reinstate puts back debt that a cancelled repayment had removed. No limit applies.
func (s *Service) Reinstate(ctx context.Context, customerID id.ID, amount types.Money) (types.Money, error) {
	return s.apply(ctx, "customer debt reinstated", customerID, amount, s.repo.Add)
}

// SettleDebt removes amount from the balance only when the balance covers it.
// applied is false, with no error, when it does not.
func (s *Service) SettleDebt(ctx context.Context, customerID id.ID, amount types.Money) (balance types.Money, applied bool, err error) {
	if err := requirePositive(amount); err != nil {
		return types.Zero(), false, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		b, ok, err := s.repo.SubtractIfCovered(ctx, customerID, amount)
		if err != nil {
			return err
		}
		if !ok {
			c, err := s.customers.GetByID(ctx, customerID)
			if err != nil {
				return err
			}
			b = c.Balance
		}
		balance, applied = b, ok
		return nil
	})
	if err != nil {
		return types.Zero(), false, err
	}
	return balance, applied, nil
}

// Repay records a customer repayment; it may not exceed the balance.
func (s *Service) Repay(ctx context.Context, customerID id.ID, amount types.Money) (types.Money, error) {
	balance, applied, err := s.SettleDebt(ctx, customerID, amount)
	if err != nil {
		return types.Zero(), err
	}
	if !applied {
		return types.Zero(), apperror.NewExceedsBalance(customerID.String(), amount, balance)
	}
	logger.Info(ctx, "customer repaid", "customer_id", customerID, "amount", amount.String(), "balance", balance.String())
	return balance, nil
}

type mutation func(ctx context.Context, customerID id.ID, amount types.Money) (types.Money, bool, error)

func (s *Service) apply(ctx context.Context, msg string, customerID id.ID, amount types.Money, fn mutation) (types.Money, error) {
	if err := requirePositive(amount); err != nil {
		return types.Zero(), err
	}

	var balance types.Money
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var applied bool
		var err error
		balance, applied, err = fn(ctx, customerID, amount)
		if err != nil {
			return err
		}
		if !applied {
			return apperror.NewNotFound("customer", customerID)
		}
		return nil
	})
	if err != nil {
		return types.Zero(), err
	}

	logger.Info(ctx, msg, "customer_id", customerID, "amount", amount.String(), "balance", balance.String())
	return balance, nil
}

func requirePositive(amount types.Money) error {
	if !amount.IsPositive() {
		return apperror.NewValidation("amount must be greater than zero").WithDetail("amount", amount.String())
	}
	return nil
}
