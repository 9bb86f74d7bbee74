package sale

import (
	"context"
	"fmt"
	"time"

	"magasin/internal/core/apperror"
	appctx "magasin/internal/core/context"
	"magasin/internal/core/id"
	"magasin/internal/core/types"
	"magasin/internal/domain/audit"
	"magasin/internal/domain/ledger"
	"magasin/pkg/logger"
)

// UpdateCheckStatus moves the check of a valid check sale to newStatus and
// applies the revenue and credit effects of the (old, new) pair:
//
//	not paid, not unpaid -> paid   book a check_payment row, recognized now
//	not unpaid -> unpaid           charge the customer, unrecognize the sale
//	paid -> pending|deposited      unrecognize the sale, keep the check_payment row
//	unpaid -> paid                 settle the debt if covered, recognize the sale itself
func (s *Service) UpdateCheckStatus(ctx context.Context, saleID id.ID, newStatus CheckStatus) (*Sale, error) {
	if !newStatus.IsValid() {
		return nil, apperror.NewInvalidStatus(string(newStatus), CheckStatuses)
	}

	var sale *Sale
	var old CheckStatus
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		sale, err = s.repo.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		var ok bool
		old, ok = sale.State.CheckStatus()
		if !sale.State.IsValid() || !ok || sale.DocumentType == TypeCheckPayment {
			return apperror.NewNotFound("check sale", saleID)
		}

		now := s.now()
		switch {
		case old == CheckStatusUnpaid && newStatus == CheckStatusPaid:
			if err := s.settleBouncedCheck(ctx, sale, now); err != nil {
				return err
			}
		case old != CheckStatusPaid && newStatus == CheckStatusPaid:
			if err := s.bookCheckPayment(ctx, sale, now); err != nil {
				return err
			}
		case old != CheckStatusUnpaid && newStatus == CheckStatusUnpaid:
			if err := s.bounceCheck(ctx, sale); err != nil {
				return err
			}
		case old == CheckStatusPaid && newStatus != CheckStatusPaid:
			sale.unrecognize()
		}

		if sale.State, err = sale.State.WithCheckStatus(newStatus); err != nil {
			return apperror.NewInternal(err)
		}
		sale.UpdatedAt = now
		if err := s.repo.Update(ctx, sale); err != nil {
			return err
		}

		audit.RecordAfterCommit(ctx, s.audit, audit.Event{
			EntityType: "sale",
			EntityID:   sale.ID,
			Action:     audit.ActionCheckStatus,
			Changes:    map[string]any{"check_status": map[string]any{"old": old, "new": newStatus}},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "check status updated",
		"sale_id", sale.ID,
		"number", sale.Number,
		"old_status", old,
		"new_status", newStatus,
	)
	return sale, nil
}

// bookCheckPayment records the cleared check as a separate recognized row
// dated now. The original sale stays unrecognized.
func (s *Service) bookCheckPayment(ctx context.Context, original *Sale, now time.Time) error {
	amounts := original.LineAmounts()
	untaxed := types.RoundMoney(amounts.Untaxed)
	tax := types.RoundMoney(amounts.Tax)
	rate := ledger.EffectiveTaxRate(amounts.Untaxed, amounts.Tax).Round(types.PricePlaces)

	payment := &Sale{
		ID:               id.New(),
		DocumentType:     TypeCheckPayment,
		State:            Valid(PaymentCheckPaid),
		PaymentMethod:    PaymentCheck,
		PaymentReference: original.PaymentReference,
		CheckDueDate:     original.CheckDueDate,
		AmountUntaxed:    untaxed,
		AmountTax:        tax,
		AmountTotal:      untaxed.Add(tax),
		DiscountPct:      types.Zero(),
		AmountPaid:       untaxed.Add(tax),
		CustomerID:       original.CustomerID,
		SourceSaleID:     &original.ID,
		RecognizedAt:     &now,
		CreatedBy:        appctx.GetUserID(ctx),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var err error
	if payment.Number, err = s.numbers.GetNextNumber(ctx, NumberingConfig(TypeCheckPayment), now); err != nil {
		return err
	}
	payment.Lines = []Line{{
		ID:          id.New(),
		SaleID:      payment.ID,
		LineNo:      1,
		Designation: fmt.Sprintf("Check %s cleared for %s", original.PaymentReference, original.Number),
		Quantity:    types.NewQuantity(1),
		UnitPrice:   untaxed,
		TaxRate:     rate,
		DiscountPct: types.Zero(),
		LineTotal:   payment.AmountTotal,
	}}
	if err := s.repo.Create(ctx, payment); err != nil {
		return err
	}

	logger.Info(ctx, "check payment booked",
		"sale_id", original.ID,
		"payment_id", payment.ID,
		"number", payment.Number,
		"amount_total", payment.AmountTotal.String(),
	)
	return nil
}

// bounceCheck turns a returned check into customer debt.
func (s *Service) bounceCheck(ctx context.Context, sale *Sale) error {
	if sale.CustomerID == nil {
		return apperror.NewBadRequest("a returned check needs a customer to carry the debt").
			WithDetail("sale_id", sale.ID)
	}
	if _, err := s.customers.GetByID(ctx, *sale.CustomerID); err != nil {
		return err
	}
	if _, err := s.credit.Charge(ctx, *sale.CustomerID, sale.AmountTotal); err != nil {
		return err
	}
	sale.unrecognize()
	return nil
}

// settleBouncedCheck books a late-cleared check on the original sale.
// The debt is removed only when the balance still covers it.
func (s *Service) settleBouncedCheck(ctx context.Context, sale *Sale, now time.Time) error {
	if sale.CustomerID != nil && sale.AmountTotal.IsPositive() {
		balance, applied, err := s.credit.SettleDebt(ctx, *sale.CustomerID, sale.AmountTotal)
		if err != nil {
			return err
		}
		if !applied {
			logger.Warn(ctx, "bounced check debt not settled, balance too low",
				"sale_id", sale.ID,
				"customer_id", *sale.CustomerID,
				"amount", sale.AmountTotal.String(),
				"balance", balance.String(),
			)
		}
	}
	sale.recognize(sale.LineAmounts(), now)
	return nil
}
