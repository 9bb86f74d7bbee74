package sale

import (
	"context"
	"fmt"
	"strings"
	"time"

	"magasin/internal/core/apperror"
	appctx "magasin/internal/core/context"
	"magasin/internal/core/id"
	"magasin/internal/core/numerator"
	"magasin/internal/core/tenant"
	"magasin/internal/core/tx"
	"magasin/internal/core/types"
	"magasin/internal/domain"
	"magasin/internal/domain/audit"
	"magasin/internal/domain/catalogs/customer"
	"magasin/internal/domain/catalogs/product"
	"magasin/internal/domain/ledger"
	"magasin/internal/domain/registers/stock"
	"magasin/pkg/logger"
)

// StockLedger is the part of the stock service the engine drives.
type StockLedger interface {
	StockOut(ctx context.Context, req stock.StockOutRequest) (*stock.Movement, error)
	ReverseOut(ctx context.Context, productID id.ID, qty types.Quantity, reference, reason string) (*stock.Movement, error)
}

// CreditAccount is the part of the credit service the engine drives.
type CreditAccount interface {
	Charge(ctx context.Context, customerID id.ID, amount types.Money) (types.Money, error)
	Credit(ctx context.Context, customerID id.ID, amount types.Money) (types.Money, error)
	Reinstate(ctx context.Context, customerID id.ID, amount types.Money) (types.Money, error)
	SettleDebt(ctx context.Context, customerID id.ID, amount types.Money) (types.Money, bool, error)
	Repay(ctx context.Context, customerID id.ID, amount types.Money) (types.Money, error)
}

// Service is the settlement engine. Every operation is one transaction;
// stock and credit services join it.
type Service struct {
	repo      Repository
	products  product.Repository
	customers customer.Repository
	stock     StockLedger
	credit    CreditAccount
	numbers   numerator.Generator
	txManager tx.Manager
	audit     audit.Recorder
	now       func() time.Time
}

// Deps groups the collaborators of the engine.
type Deps struct {
	Repo      Repository
	Products  product.Repository
	Customers customer.Repository
	Stock     StockLedger
	Credit    CreditAccount
	Numbers   numerator.Generator
	TxManager tx.Manager
	// Audit is optional.
	Audit audit.Recorder
}

// NewService creates the settlement engine.
func NewService(d Deps) *Service {
	return &Service{
		repo:      d.Repo,
		products:  d.Products,
		customers: d.Customers,
		stock:     d.Stock,
		credit:    d.Credit,
		numbers:   d.Numbers,
		txManager: d.TxManager,
		audit:     d.Audit,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateSale validates, prices and settles a new document.
//
// Lines, products, stock and credit are checked before the first write. The
// number, the rows, the stock decrements and the customer charge are then
// applied in one transaction.
func (s *Service) CreateSale(ctx context.Context, req CreateRequest) (*Sale, error) {
	if _, err := tenant.Require(ctx); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var sale *Sale
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		now := s.now()
		lines, err := s.buildLines(ctx, req)
		if err != nil {
			return err
		}

		sale = &Sale{
			ID:               id.New(),
			DocumentType:     req.DocumentType,
			State:            Valid(InitialPayment(req.PaymentMethod)),
			PaymentMethod:    req.PaymentMethod,
			PaymentReference: strings.TrimSpace(req.PaymentReference),
			CheckDueDate:     req.CheckDueDate,
			DiscountPct:      req.DiscountPct,
			AmountPaid:       types.Zero(),
			CustomerID:       req.CustomerID,
			Notes:            strings.TrimSpace(req.Notes),
			CreatedBy:        appctx.GetUserID(ctx),
			CreatedAt:        now,
			UpdatedAt:        now,
			Lines:            lines,
		}
		for i := range sale.Lines {
			sale.Lines[i].SaleID = sale.ID
		}
		amounts := sale.LineAmounts()
		sale.AmountTotal = types.RoundMoney(amounts.Untaxed).Add(types.RoundMoney(amounts.Tax))
		if req.PaymentMethod.Defers() {
			sale.unrecognize()
		} else {
			sale.AmountUntaxed = types.RoundMoney(amounts.Untaxed)
			sale.AmountTax = types.RoundMoney(amounts.Tax)
			if req.DocumentType.BearsRevenue() {
				sale.RecognizedAt = &now
			}
		}

		if err := s.checkPayment(ctx, req, sale); err != nil {
			return err
		}

		// Mutations start here.
		if sale.Number, err = s.numbers.GetNextNumber(ctx, NumberingConfig(sale.DocumentType), now); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, sale); err != nil {
			return err
		}

		if sale.DocumentType.MovesStock() {
			for _, l := range sale.Lines {
				if l.ProductID == nil {
					continue
				}
				_, err := s.stock.StockOut(ctx, stock.StockOutRequest{
					ProductID: *l.ProductID,
					Quantity:  l.Quantity,
					Reason:    "Sale " + sale.Number,
					Reference: sale.Number,
				})
				if err != nil {
					return err
				}
			}
		}

		if sale.PaymentMethod == PaymentCredit {
			if owed := sale.Outstanding(); owed.IsPositive() {
				if _, err := s.credit.Charge(ctx, *sale.CustomerID, owed); err != nil {
					return err
				}
			}
		}

		audit.RecordAfterCommit(ctx, s.audit, audit.Event{
			EntityType: "sale",
			EntityID:   sale.ID,
			Action:     audit.ActionCreate,
			Changes: map[string]any{
				"number":         sale.Number,
				"document_type":  sale.DocumentType,
				"payment_method": sale.PaymentMethod,
				"amount_total":   sale.AmountTotal.StringFixed(types.MoneyPlaces),
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale created",
		"sale_id", sale.ID,
		"number", sale.Number,
		"document_type", sale.DocumentType,
		"payment_method", sale.PaymentMethod,
		"amount_total", sale.AmountTotal.String(),
	)
	return sale, nil
}

// GetSale returns a sale with its lines.
func (s *Service) GetSale(ctx context.Context, saleID id.ID) (*Sale, error) {
	return s.repo.GetByID(ctx, saleID)
}

// ListSales returns a page of sales, newest first.
func (s *Service) ListSales(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	if filter.DocumentType != nil && !filter.DocumentType.IsValid() {
		return domain.ListResult[*Sale]{}, apperror.NewValidation("unknown document type").
			WithDetail("documentType", *filter.DocumentType)
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return domain.ListResult[*Sale]{}, apperror.NewInvalidStatus(string(*filter.Status),
			[]string{string(StatusDraft), string(StatusValid), string(StatusCancelled)})
	}
	filter.ListFilter = filter.ListFilter.Normalized()
	return s.repo.List(ctx, filter)
}

// buildLines resolves products, fills defaults, validates and prices every line,
// and checks aggregated stock per product for documents that move stock.
func (s *Service) buildLines(ctx context.Context, req CreateRequest) ([]Line, error) {
	lines := make([]Line, 0, len(req.Lines))
	products := make(map[id.ID]*product.Product)
	demand := make(map[id.ID]types.Quantity)
	var order []id.ID

	for i, lr := range req.Lines {
		line := Line{
			ID:          id.New(),
			LineNo:      i + 1,
			ProductID:   lr.ProductID,
			Designation: strings.TrimSpace(lr.Designation),
			Quantity:    lr.Quantity,
			DiscountPct: lr.DiscountPct,
			TaxRate:     types.Zero(),
		}
		if lr.UnitPrice != nil {
			line.UnitPrice = *lr.UnitPrice
		}
		if lr.TaxRate != nil {
			line.TaxRate = *lr.TaxRate
		}

		if lr.ProductID != nil {
			p, ok := products[*lr.ProductID]
			if !ok {
				var err error
				if p, err = s.products.GetByID(ctx, *lr.ProductID); err != nil {
					return nil, err
				}
				if !p.Active {
					return nil, apperror.NewInvalidLine(i, fmt.Sprintf("product %s is inactive", p.Name)).
						WithDetail("product_id", p.ID)
				}
				products[p.ID] = p
				order = append(order, p.ID)
			}
			if line.Designation == "" {
				line.Designation = p.Name
			}
			if lr.UnitPrice == nil {
				line.UnitPrice = p.SalePrice
			}
			if lr.TaxRate == nil {
				line.TaxRate = p.TaxRate
			}
			demand[p.ID] += lr.Quantity
		}

		input := line.input()
		if err := ledger.ValidateLine(i, input); err != nil {
			return nil, err
		}
		line.LineTotal = types.RoundMoney(input.Amounts().Total)
		lines = append(lines, line)
	}

	if req.DocumentType.MovesStock() {
		for _, pid := range order {
			p := products[pid]
			if p.StockQuantity < demand[pid] {
				return nil, apperror.NewInsufficientStock(pid.String(), p.Name,
					demand[pid].Decimal(), p.StockQuantity.Decimal())
			}
		}
	}
	return lines, nil
}

// checkPayment verifies the customer and the credit limit before any write.
func (s *Service) checkPayment(ctx context.Context, req CreateRequest, sale *Sale) error {
	if req.CustomerID == nil {
		return nil
	}
	c, err := s.customers.GetByID(ctx, *req.CustomerID)
	if err != nil {
		return err
	}
	if req.PaymentMethod != PaymentCredit {
		return nil
	}

	if req.AmountPaid != nil {
		if req.AmountPaid.GreaterThan(sale.AmountTotal) {
			return apperror.NewValidation("amount paid exceeds the sale total").
				WithDetail("amountPaid", req.AmountPaid.StringFixed(types.MoneyPlaces)).
				WithDetail("amountTotal", sale.AmountTotal.StringFixed(types.MoneyPlaces))
		}
		sale.AmountPaid = types.RoundMoney(*req.AmountPaid)
	}

	projected := c.Balance.Add(sale.Outstanding())
	if c.CreditLimit.IsPositive() && projected.GreaterThan(c.CreditLimit) {
		return apperror.NewCreditLimitExceeded(c.ID.String(), c.Balance, projected, c.CreditLimit)
	}
	return nil
}
