package sale

import (
	"context"
	"strings"

	"magasin/internal/core/apperror"
	"magasin/internal/core/id"
	"magasin/internal/domain/audit"
	"magasin/pkg/logger"
)

// CancelSale cancels a document and undoes what it did to stock and credit.
// Cancelled is terminal.
func (s *Service) CancelSale(ctx context.Context, saleID id.ID, reason string) (*Sale, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.NewMissingReason("sale cancellation")
	}

	var sale *Sale
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		sale, err = s.repo.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.State.IsCancelled() {
			return apperror.NewAlreadyCancelled(sale.Number)
		}

		if sale.State.IsValid() {
			if err := s.reverseEffects(ctx, sale); err != nil {
				return err
			}
		}

		now := s.now()
		sale.State = sale.State.Cancel()
		sale.CancelReason = reason
		sale.CancelledAt = &now
		sale.UpdatedAt = now
		if err := s.repo.Update(ctx, sale); err != nil {
			return err
		}

		audit.RecordAfterCommit(ctx, s.audit, audit.Event{
			EntityType: "sale",
			EntityID:   sale.ID,
			Action:     audit.ActionCancel,
			Changes:    map[string]any{"reason": reason, "number": sale.Number},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale cancelled", "sale_id", sale.ID, "number", sale.Number, "reason", reason)
	return sale, nil
}

func (s *Service) reverseEffects(ctx context.Context, sale *Sale) error {
	if sale.DocumentType == TypeCreditPayment && sale.CustomerID != nil {
		if _, err := s.credit.Reinstate(ctx, *sale.CustomerID, sale.AmountTotal); err != nil {
			return err
		}
		return nil
	}

	if !sale.DocumentType.MovesStock() {
		return nil
	}

	for _, l := range sale.Lines {
		if l.ProductID == nil {
			continue
		}
		_, err := s.stock.ReverseOut(ctx, *l.ProductID, l.Quantity, sale.Number, "Cancellation of sale "+sale.Number)
		if err != nil {
			return err
		}
	}

	if sale.PaymentMethod == PaymentCredit && sale.CustomerID != nil {
		if owed := sale.Outstanding(); owed.IsPositive() {
			if _, err := s.credit.Credit(ctx, *sale.CustomerID, owed); err != nil {
				return err
			}
		}
	}
	return nil
}
