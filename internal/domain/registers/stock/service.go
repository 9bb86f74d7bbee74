package stock

import (
	"context"
	"strings"
	"time"

	"magasin/internal/core/apperror"
	appctx "magasin/internal/core/context"
	"magasin/internal/core/id"
	"magasin/internal/core/tx"
	"magasin/internal/core/types"
	"magasin/internal/domain"
	"magasin/internal/domain/catalogs/product"
	"magasin/internal/domain/ledger"
	"magasin/pkg/logger"
)

// Service applies and reverses stock movements.
//
// Each operation runs in its own transaction, or joins the caller's when the
// settlement engine invokes it while settling a sale.
type Service struct {
	repo      Repository
	products  product.Repository
	txManager tx.Manager
	alerts    AlertPublisher
}

// NewService creates a stock ledger service. alerts may be nil.
func NewService(repo Repository, products product.Repository, txManager tx.Manager, alerts AlertPublisher) *Service {
	return &Service{repo: repo, products: products, txManager: txManager, alerts: alerts}
}

// StockIn receives qty units and blends their cost into the weighted average.
// The movement records the entry price, not the resulting average.
func (s *Service) StockIn(ctx context.Context, req StockInRequest) (*Movement, error) {
	if !req.Quantity.IsPositive() {
		return nil, apperror.NewValidation("quantity must be greater than zero").WithDetail("field", "quantity")
	}
	if req.UnitPrice != nil && req.UnitPrice.IsNegative() {
		return nil, apperror.NewValidation("unit price must not be negative").WithDetail("field", "unitPrice")
	}
	if req.UnitPrice != nil && !types.HasAtMostPlaces(*req.UnitPrice, types.CostPlaces) {
		return nil, apperror.NewValidation("unit price has too many decimal places").WithDetail("field", "unitPrice")
	}

	var mv *Movement
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.products.GetForUpdate(ctx, req.ProductID)
		if err != nil {
			return err
		}

		entry := ledger.EntryPrice(req.UnitPrice, p.PurchasePrice)
		cost := types.RoundCost(ledger.WeightedAverageCost(p.StockQuantity, p.PurchasePrice, req.Quantity, entry))

		if _, err := s.repo.Increment(ctx, p.ID, req.Quantity, &cost); err != nil {
			return err
		}

		mv = newMovement(ctx, p.ID, MovementIn, req.Quantity, req.Reference, req.Reason)
		mv.UnitPrice = &entry
		return s.repo.CreateMovement(ctx, mv)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock received",
		"product_id", req.ProductID,
		"quantity", req.Quantity.String(),
		"unit_price", mv.UnitPrice.String(),
	)
	return mv, nil
}

// StockOut removes qty units. Fails when fewer are on hand.
func (s *Service) StockOut(ctx context.Context, req StockOutRequest) (*Movement, error) {
	if !req.Quantity.IsPositive() {
		return nil, apperror.NewValidation("quantity must be greater than zero").WithDetail("field", "quantity")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, apperror.NewMissingReason("stock out")
	}

	var mv *Movement
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.decrement(ctx, req.ProductID, req.Quantity)
		if err != nil {
			return err
		}
		mv = newMovement(ctx, p.ID, MovementOut, req.Quantity, req.Reference, req.Reason)
		return s.repo.CreateMovement(ctx, mv)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock issued",
		"product_id", req.ProductID,
		"quantity", req.Quantity.String(),
		"reference", req.Reference,
	)
	return mv, nil
}

// Adjust sets the on-hand quantity and records the signed difference.
func (s *Service) Adjust(ctx context.Context, req AdjustRequest) (*Movement, error) {
	if req.NewQuantity.IsNegative() {
		return nil, apperror.NewValidation("quantity must not be negative").WithDetail("field", "newQuantity")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, apperror.NewMissingReason("stock adjustment")
	}

	var mv *Movement
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.products.GetForUpdate(ctx, req.ProductID)
		if err != nil {
			return err
		}

		delta := req.NewQuantity - p.StockQuantity
		if err := s.repo.SetQuantity(ctx, p.ID, req.NewQuantity); err != nil {
			return err
		}

		mv = newMovement(ctx, p.ID, MovementAdjustment, delta, "", req.Reason)
		if err := s.repo.CreateMovement(ctx, mv); err != nil {
			return err
		}
		if delta < 0 {
			s.checkThreshold(ctx, p, req.NewQuantity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock adjusted",
		"product_id", req.ProductID,
		"delta", mv.Quantity.String(),
		"new_quantity", req.NewQuantity.String(),
	)
	return mv, nil
}

// ReverseOut puts back quantity that an out movement removed.
// Cost is left untouched; the movement is an in flagged as reversal.
func (s *Service) ReverseOut(ctx context.Context, productID id.ID, qty types.Quantity, reference, reason string) (*Movement, error) {
	if !qty.IsPositive() {
		return nil, apperror.NewValidation("quantity must be greater than zero").WithDetail("field", "quantity")
	}

	var mv *Movement
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.Increment(ctx, productID, qty, nil); err != nil {
			return err
		}
		mv = newMovement(ctx, productID, MovementIn, qty, reference, reason)
		mv.IsReversal = true
		return s.repo.CreateMovement(ctx, mv)
	})
	if err != nil {
		return nil, err
	}
	return mv, nil
}

// ReverseIn takes back quantity that an in movement added, without touching cost.
func (s *Service) ReverseIn(ctx context.Context, productID id.ID, qty types.Quantity, reference, reason string) (*Movement, error) {
	if !qty.IsPositive() {
		return nil, apperror.NewValidation("quantity must be greater than zero").WithDetail("field", "quantity")
	}

	var mv *Movement
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.decrement(ctx, productID, qty); err != nil {
			return err
		}
		mv = newMovement(ctx, productID, MovementOut, qty, reference, reason)
		mv.IsReversal = true
		return s.repo.CreateMovement(ctx, mv)
	})
	if err != nil {
		return nil, err
	}
	return mv, nil
}

// ListMovements returns the movement history of a product, newest first.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) (domain.ListResult[*Movement], error) {
	if _, err := s.products.GetByID(ctx, filter.ProductID); err != nil {
		return domain.ListResult[*Movement]{}, err
	}
	filter.ListFilter = filter.ListFilter.Normalized()
	return s.repo.ListMovements(ctx, filter)
}

// decrement applies the guarded subtraction and schedules a low-stock alert.
func (s *Service) decrement(ctx context.Context, productID id.ID, qty types.Quantity) (*product.Product, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	after, applied, err := s.repo.DecrementIfAvailable(ctx, productID, qty)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, apperror.NewInsufficientStock(productID.String(), p.Name, qty.Decimal(), after.Decimal())
	}

	s.checkThreshold(ctx, p, after)
	return p, nil
}

func (s *Service) checkThreshold(ctx context.Context, p *product.Product, qty types.Quantity) {
	if s.alerts == nil || !p.IsLowStock(qty) {
		return
	}
	alert := LowStockAlert{
		TenantID:    appctx.GetTenantID(ctx),
		ProductID:   p.ID,
		ProductCode: p.Code,
		ProductName: p.Name,
		Quantity:    qty,
		Threshold:   p.MinStockThreshold,
		At:          time.Now().UTC(),
	}
	tx.AfterCommit(ctx, func(ctx context.Context) {
		if err := s.alerts.PublishLowStock(ctx, alert); err != nil {
			logger.Warn(ctx, "low stock alert not delivered", "product_id", alert.ProductID, "error", err)
		}
	})
}

func newMovement(ctx context.Context, productID id.ID, typ MovementType, qty types.Quantity, reference, reason string) *Movement {
	return &Movement{
		ID:                id.New(),
		ProductID:         productID,
		Type:              typ,
		Quantity:          qty,
		ReferenceDocument: reference,
		Reason:            strings.TrimSpace(reason),
		CreatedBy:         appctx.GetUserID(ctx),
		CreatedAt:         time.Now().UTC(),
	}
}
