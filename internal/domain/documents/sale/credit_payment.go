package sale

import (
	"context"
	"fmt"
	"strings"

	"magasin/internal/core/apperror"
	appctx "magasin/internal/core/context"
	"magasin/internal/core/id"
	"magasin/internal/core/tenant"
	"magasin/internal/core/types"
	"magasin/internal/domain/audit"
	"magasin/pkg/logger"
)

// PayCustomerCredit records a repayment of customer debt. The balance is
// debited with one guarded statement and a credit_payment row is booked.
// Paid by check, the row stays unrecognized until the check clears.
func (s *Service) PayCustomerCredit(ctx context.Context, req PayCreditRequest) (*CreditPaymentResult, error) {
	if _, err := tenant.Require(ctx); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	amount := types.RoundMoney(req.Amount)
	result := &CreditPaymentResult{Change: types.Zero()}
	if req.Method == PaymentCash && req.Tendered != nil {
		result.Change = req.Tendered.Sub(amount)
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.customers.GetByID(ctx, req.CustomerID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(c.Balance) {
			return apperror.NewExceedsBalance(c.ID.String(), amount, c.Balance)
		}

		now := s.now()
		payment := &Sale{
			ID:               id.New(),
			DocumentType:     TypeCreditPayment,
			State:            Valid(InitialPayment(req.Method)),
			PaymentMethod:    req.Method,
			PaymentReference: strings.TrimSpace(req.Reference),
			CheckDueDate:     req.DueDate,
			AmountTotal:      amount,
			AmountTax:        types.Zero(),
			DiscountPct:      types.Zero(),
			AmountPaid:       amount,
			CustomerID:       &c.ID,
			CreatedBy:        appctx.GetUserID(ctx),
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if req.Method == PaymentCheck {
			payment.AmountUntaxed = types.Zero()
		} else {
			payment.AmountUntaxed = amount
			payment.RecognizedAt = &now
		}

		if result.NewBalance, err = s.credit.Repay(ctx, c.ID, amount); err != nil {
			return err
		}
		if payment.Number, err = s.numbers.GetNextNumber(ctx, NumberingConfig(TypeCreditPayment), now); err != nil {
			return err
		}
		payment.Lines = []Line{{
			ID:          id.New(),
			SaleID:      payment.ID,
			LineNo:      1,
			Designation: fmt.Sprintf("Credit repayment by %s - %s", req.Method, c.Name),
			Quantity:    types.NewQuantity(1),
			UnitPrice:   amount,
			TaxRate:     types.Zero(),
			DiscountPct: types.Zero(),
			LineTotal:   amount,
		}}
		if err := s.repo.Create(ctx, payment); err != nil {
			return err
		}
		result.Sale = payment

		audit.RecordAfterCommit(ctx, s.audit, audit.Event{
			EntityType: "customer",
			EntityID:   c.ID,
			Action:     audit.ActionCreditPayment,
			Changes: map[string]any{
				"amount":      amount.StringFixed(types.MoneyPlaces),
				"method":      req.Method,
				"number":      payment.Number,
				"new_balance": result.NewBalance.StringFixed(types.MoneyPlaces),
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "customer credit paid",
		"customer_id", req.CustomerID,
		"amount", amount.String(),
		"method", req.Method,
		"number", result.Sale.Number,
		"new_balance", result.NewBalance.String(),
	)
	return result, nil
}
