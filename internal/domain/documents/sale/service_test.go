package sale_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magasin/internal/core/apperror"
	"magasin/internal/core/id"
	"magasin/internal/core/numerator"
	"magasin/internal/core/tenant"
	"magasin/internal/core/types"
	"magasin/internal/domain/audit"
	"magasin/internal/domain/catalogs/customer"
	"magasin/internal/domain/catalogs/product"
	"magasin/internal/domain/documents/sale"
	"magasin/internal/domain/registers/credit"
	"magasin/internal/domain/registers/stock"
	"magasin/internal/infrastructure/storage/memory"
)

type fixture struct {
	ctx       context.Context
	products  *memory.ProductRepo
	customers *memory.CustomerRepo
	sales     *memory.SaleRepo
	auditLog  *memory.AuditLog
	svc       *sale.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	products := memory.NewProductRepo(store)
	customers := memory.NewCustomerRepo(store)
	sales := memory.NewSaleRepo(store)
	auditLog := memory.NewAuditLog()

	svc := sale.NewService(sale.Deps{
		Repo:      sales,
		Products:  products,
		Customers: customers,
		Stock:     stock.NewService(memory.NewStockRepo(store), products, store, nil),
		Credit:    credit.NewService(memory.NewCreditRepo(store), customers, store),
		Numbers:   memory.NewNumerator(store),
		TxManager: store,
		Audit:     auditLog,
	})
	return &fixture{
		ctx:       tenant.WithTenant(context.Background(), "shop-1", "cashier-1"),
		products:  products,
		customers: customers,
		sales:     sales,
		auditLog:  auditLog,
		svc:       svc,
	}
}

func (f *fixture) product(t *testing.T, name string, qty int64, price, taxRate string) *product.Product {
	t.Helper()
	now := time.Now().UTC()
	p := &product.Product{
		ID:            id.New(),
		Code:          name,
		Name:          name,
		StockQuantity: types.NewQuantity(qty),
		SalePrice:     types.MustMoney(price),
		TaxRate:       types.MustMoney(taxRate),
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, f.products.Create(f.ctx, p))
	return p
}

func (f *fixture) customer(t *testing.T, balance, limit string) *customer.Customer {
	t.Helper()
	now := time.Now().UTC()
	c := &customer.Customer{
		ID:          id.New(),
		Name:        "Karim",
		Balance:     types.MustMoney(balance),
		CreditLimit: types.MustMoney(limit),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, f.customers.Create(f.ctx, c))
	return c
}

func (f *fixture) stockOf(t *testing.T, productID id.ID) types.Quantity {
	t.Helper()
	p, err := f.products.GetByID(f.ctx, productID)
	require.NoError(t, err)
	return p.StockQuantity
}

func (f *fixture) balanceOf(t *testing.T, customerID id.ID) types.Money {
	t.Helper()
	c, err := f.customers.GetByID(f.ctx, customerID)
	require.NoError(t, err)
	return c.Balance
}

func (f *fixture) checkPayments(t *testing.T) []*sale.Sale {
	t.Helper()
	typ := sale.TypeCheckPayment
	res, err := f.svc.ListSales(f.ctx, sale.ListFilter{DocumentType: &typ})
	require.NoError(t, err)
	return res.Items
}

func line(p *product.Product, qty int64) sale.LineRequest {
	return sale.LineRequest{ProductID: &p.ID, Quantity: types.NewQuantity(qty)}
}

func moneyEq(t *testing.T, want string, got types.Money, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, got.Equal(types.MustMoney(want)), append([]any{"want %s got %s", want, got.String()}, msgAndArgs...)...)
}

func checkRequest(c *customer.Customer, lines ...sale.LineRequest) sale.CreateRequest {
	due := time.Now().Add(30 * 24 * time.Hour)
	return sale.CreateRequest{
		DocumentType:     sale.TypeTicket,
		PaymentMethod:    sale.PaymentCheck,
		CustomerID:       &c.ID,
		PaymentReference: "CHQ-4411",
		CheckDueDate:     &due,
		Lines:            lines,
	}
}

func TestCreateSale_CashTicket(t *testing.T) {
	f := setup(t)
	p := f.product(t, "Coffee", 10, "10", "20")

	s, err := f.svc.CreateSale(f.ctx, sale.CreateRequest{
		DocumentType:  sale.TypeTicket,
		PaymentMethod: sale.PaymentCash,
		Lines: []sale.LineRequest{{
			ProductID:   &p.ID,
			Quantity:    types.NewQuantity(3),
			DiscountPct: types.MustMoney("10"),
		}},
	})
	require.NoError(t, err)

	assert.Regexp(t, `^TIC-\d{4}-000001$`, s.Number)
	assert.Equal(t, sale.StatusValid, s.State.Status())
	moneyEq(t, "27", s.AmountUntaxed)
	moneyEq(t, "5.4", s.AmountTax)
	moneyEq(t, "32.4", s.AmountTotal)
	moneyEq(t, "32.4", s.Lines[0].LineTotal)
	assert.Equal(t, "Coffee", s.Lines[0].Designation)
	assert.True(t, s.IsRecognized())
	assert.Equal(t, "cashier-1", s.CreatedBy)
	assert.Equal(t, types.NewQuantity(7), f.stockOf(t, p.ID))

	events := f.auditLog.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionCreate, events[0].Action)
}

func TestCreateSale_GlobalDiscountRecomputesTax(t *testing.T) {
	f := setup(t)
	p := f.product(t, "Tea", 10, "50", "20")

	s, err := f.svc.CreateSale(f.ctx, sale.CreateRequest{
		DocumentType:  sale.TypeInvoice,
		PaymentMethod: sale.PaymentCard,
		DiscountPct:   types.MustMoney("10"),
		Lines:         []sale.LineRequest{line(p, 2)},
	})
	require.NoError(t, err)

	assert.Regexp(t, `^FAC-`, s.Number)
	moneyEq(t, "90", s.AmountUntaxed)
	moneyEq(t, "18", s.AmountTax)
	moneyEq(t, "108", s.AmountTotal)
}

func TestCreateSale_StockConservation(t *testing.T) {
	f := setup(t)
	a := f.product(t, "A", 10, "4", "0")
	b := f.product(t, "B", 5, "6", "0")

	s, err := f.svc.CreateSale(f.ctx, sale.CreateRequest{
		DocumentType:  sale.TypeDeliveryNote,
		PaymentMethod: sale.PaymentCash,
		Lines:         []sale.LineRequest{line(a, 3), line(b, 2), line(a, 1)},
	})
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(6), f.stockOf(t, a.ID))
	assert.Equal(t, types.NewQuantity(3), f.stockOf(t, b.ID))

	cancelled, err := f.svc.CancelSale(f.ctx, s.ID, "customer changed their mind")
	require.NoError(t, err)
	assert.True(t, cancelled.State.IsCancelled())
	assert.Equal(t, types.NewQuantity(10), f.stockOf(t, a.ID))
	assert.Equal(t, types.NewQuantity(5), f.stockOf(t, b.ID))
}

func TestCreateSale_InsufficientStockLeavesNothing(t *testing.T) {
	f := setup(t)
	a := f.product(t, "A", 10, "4", "0")
	b := f.product(t, "Rare", 1, "6", "0")

	_, err := f.svc.CreateSale(f.ctx, sale.CreateRequest{
		DocumentType: sale.TypeTicket,
		Lines:        []sale.LineRequest{line(a, 2), line(b, 2)},
	})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Contains(t, appErr.Message, "Rare")
	assert.Equal(t, types.NewQuantity(10), f.stockOf(t, a.ID))

	// Two lines on one product are checked together.
	_, err = f.svc.CreateSale(f.ctx, sale.CreateRequest{
		DocumentType: sale.TypeTicket,
		Lines:        []sale.LineRequest{line(a, 6), line(a, 5)},
	})
	assert.True(t, apperror.Is(err, apperror.CodeInsufficientStock))
	assert.Equal(t, types.NewQuantity(10), f.stockOf(t, a.ID))
}

func TestCreateSale_QuoteAndExpenseSkipStock(t *testing.T) {
	f := setup(t)
	p := f.product(t, "A", 1, "4", "0")

	q, err := f.svc.CreateSale(f.ctx, sale.CreateRequest{
		DocumentType: sale.TypeQuote,
		Lines:        []sale.LineRequest{line(p, 50)},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^DEV-`, q.Number)
	assert.False(t, q.IsRecognized())
	assert.Equal(t, types.NewQuantity(1), f.stockOf(t, p.ID))

	price := types.MustMoney("35.50")
	e, err := f.svc.CreateSale(f.ctx, sale.CreateRequest{
		DocumentType:  sale.TypeExpense,
		PaymentMethod: sale.PaymentCash,
		Lines: []sale.LineRequest{{
			Designation: "Electricity",
			Quantity:    types.NewQuantity(1),
			UnitPrice:   &price,
		}},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^DEP-`, e.Number)
	moneyEq(t, "35.5", e.AmountTotal)
	assert.False(t, e.IsRecognized())
}

func TestCreateSale_Validation(t *testing.T) {
	f := setup(t)
	p := f.product(t, "A", 10, "4", "0")
	c := f.customer(t, "0", "0")
	zero := types.MustMoney("0")
	negative := types.MustMoney("-1")

	tests := []struct {
		name     string
		req      sale.CreateRequest
		wantCode string
	}{
		{
			name:     "no lines",
			req:      sale.CreateRequest{DocumentType: sale.TypeTicket},
			wantCode: apperror.CodeValidation,
		},
		{
			name:     "synthetic type",
			req:      sale.CreateRequest{DocumentType: sale.TypeCheckPayment, Lines: []sale.LineRequest{line(p, 1)}},
			wantCode: apperror.CodeValidation,
		},
		{
			name:     "zero quantity",
			req:      sale.CreateRequest{DocumentType: sale.TypeTicket, Lines: []sale.LineRequest{line(p, 0)}},
			wantCode: apperror.CodeInvalidLine,
		},
		{
			name: "negative price",
			req: sale.CreateRequest{DocumentType: sale.TypeTicket, Lines: []sale.LineRequest{
				{ProductID: &p.ID, Quantity: types.NewQuantity(1), UnitPrice: &negative},
			}},
			wantCode: apperror.CodeInvalidLine,
		},
		{
			name: "missing product",
			req: sale.CreateRequest{DocumentType: sale.TypeTicket, Lines: []sale.LineRequest{
				{Designation: "x", Quantity: types.NewQuantity(1), UnitPrice: &zero},
			}},
			wantCode: apperror.CodeInvalidLine,
		},
		{
			name:     "unknown product",
			req:      sale.CreateRequest{DocumentType: sale.TypeTicket, Lines: []sale.LineRequest{{ProductID: ptr(id.New()), Quantity: types.NewQuantity(1)}}},
			wantCode: apperror.CodeNotFound,
		},
		{
			name:     "credit without customer",
			req:      sale.CreateRequest{DocumentType: sale.TypeTicket, PaymentMethod: sale.PaymentCredit, Lines: []sale.LineRequest{line(p, 1)}},
			wantCode: apperror.CodeValidation,
		},
		{
			name: "check without reference",
			req: sale.CreateRequest{DocumentType: sale.TypeTicket, PaymentMethod: sale.PaymentCheck, CustomerID: &c.ID,
				Lines: []sale.LineRequest{line(p, 1)}},
			wantCode: apperror.CodeValidation,
		},
		{
			name: "amount paid above total",
			req: sale.CreateRequest{DocumentType: sale.TypeTicket, PaymentMethod: sale.PaymentCredit, CustomerID: &c.ID,
				AmountPaid: ptr(types.MustMoney("5")), Lines: []sale.LineRequest{line(p, 1)}},
			wantCode: apperror.CodeValidation,
		},
		{
			name:     "discount above 100",
			req:      sale.CreateRequest{DocumentType: sale.TypeTicket, DiscountPct: types.MustMoney("101"), Lines: []sale.LineRequest{line(p, 1)}},
			wantCode: apperror.CodeValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateSale(f.ctx, tt.req)
			assert.True(t, apperror.Is(err, tt.wantCode), "got %v", err)
		})
	}
	assert.Equal(t, types.NewQuantity(10), f.stockOf(t, p.ID))
}

func TestCreateSale_RequiresTenant(t *testing.T) {
	f := setup(t)
	_, err := f.svc.CreateSale(context.Background(), sale.CreateRequest{})
	assert.True(t, apperror.Is(err, apperror.CodeUnauthorized))
}

func TestCreateSale_CreditLimit(t *testing.T) {
	f := setup(t)
	p := f.product(t, "A", 100, "1", "0")
	c := f.customer(t, "80", "100")

	_, err := f.svc.CreateSale(f.ctx, sale.CreateRequest{
		DocumentType:  sale.TypeTicket,
		PaymentMethod: sale.PaymentCredit,
		CustomerID:    &c.ID,
		Lines:         []sale.LineRequest{line(p, 25)},
	})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, apperror.CodeCreditLimitExceeded, appErr.Code)
	assert.Contains(t, appErr.Message, "80.00")
	assert.Contains(t, appErr.Message, "105.00")
	assert.Contains(t, appErr.Message, "20.00")
	moneyEq(t, "80", f.balanceOf(t, c.ID))
	assert.Equal(t, types.NewQuantity(100), f.stockOf(t, p.ID))

	s, err := f.svc.CreateSale(f.ctx, sale.CreateRequest{
		DocumentType:  sale.TypeTicket,
		PaymentMethod: sale.PaymentCredit,
		CustomerID:    &c.ID,
		Lines:         []sale.LineRequest{line(p, 20)},
	})
	require.NoError(t, err)
	moneyEq(t, "100", f.balanceOf(t, c.ID))
	assert.Equal(t, types.NewQuantity(80), f.stockOf(t, p.ID))
	assert.Regexp(t, `-000001$`, s.Number, "failed sale did not consume a number")
	assert.True(t, s.AmountUntaxed.IsZero())
	moneyEq(t, "20", s.AmountTotal)
	assert.False(t, s.IsRecognized())
	assert.Equal(t, sale.PaymentCreditPending, s.State.Payment())
}

func TestCancelSale_ReversesCredit(t *testing.T) {
	f := setup(t)
	p := f.product(t, "A", 10, "50", "0")
	c := f.customer(t, "0", "0")

	s, err := f.svc.CreateSale(f.ctx, sale.CreateRequest{
		DocumentType:  sale.TypeInvoice,
		PaymentMethod: sale.PaymentCredit,
		CustomerID:    &c.ID,
		AmountPaid:    ptr(types.MustMoney("50")),
		Lines:         []sale.LineRequest{line(p, 3)},
	})
	require.NoError(t, err)
	moneyEq(t, "150", s.AmountTotal)
	moneyEq(t, "100", f.balanceOf(t, c.ID))
	assert.Equal(t, types.NewQuantity(7), f.stockOf(t, p.ID))

	_, err = f.svc.CancelSale(f.ctx, s.ID, "wrong customer")
	require.NoError(t, err)
	moneyEq(t, "0", f.balanceOf(t, c.ID))
	assert.Equal(t, types.NewQuantity(10), f.stockOf(t, p.ID))

	_, err = f.svc.CancelSale(f.ctx, s.ID, "again")
	assert.True(t, apperror.Is(err, apperror.CodeAlreadyCancelled))
	moneyEq(t, "0", f.balanceOf(t, c.ID))
	assert.Equal(t, types.NewQuantity(10), f.stockOf(t, p.ID))
}

func TestCancelSale_RequiresReason(t *testing.T) {
	f := setup(t)
	_, err := f.svc.CancelSale(f.ctx, id.New(), " ")
	assert.True(t, apperror.Is(err, apperror.CodeMissingReason))

	_, err = f.svc.CancelSale(f.ctx, id.New(), "gone")
	assert.True(t, apperror.IsNotFound(err))
}

func TestCheck_DeferralAndRecognition(t *testing.T) {
	f := setup(t)
	p := f.product(t, "Printer", 5, "100", "18")
	c := f.customer(t, "0", "0")

	s, err := f.svc.CreateSale(f.ctx, checkRequest(c, line(p, 1)))
	require.NoError(t, err)
	assert.True(t, s.AmountUntaxed.IsZero())
	assert.True(t, s.AmountTax.IsZero())
	moneyEq(t, "118", s.AmountTotal)
	status, ok := s.State.CheckStatus()
	require.True(t, ok)
	assert.Equal(t, sale.CheckStatusPending, status)
	assert.Equal(t, types.NewQuantity(4), f.stockOf(t, p.ID))

	_, err = f.svc.UpdateCheckStatus(f.ctx, s.ID, sale.CheckStatusDeposited)
	require.NoError(t, err)
	assert.Empty(t, f.checkPayments(t))

	_, err = f.svc.UpdateCheckStatus(f.ctx, s.ID, sale.CheckStatusPaid)
	require.NoError(t, err)

	payments := f.checkPayments(t)
	require.Len(t, payments, 1)
	pay, err := f.svc.GetSale(f.ctx, payments[0].ID)
	require.NoError(t, err)
	assert.Regexp(t, `^PAY-CHEQUE-\d{4}-000001$`, pay.Number)
	moneyEq(t, "118", pay.AmountTotal)
	moneyEq(t, "100", pay.AmountUntaxed)
	moneyEq(t, "18", pay.AmountTax)
	assert.Equal(t, s.ID, *pay.SourceSaleID)
	assert.Equal(t, c.ID, *pay.CustomerID)
	assert.True(t, pay.IsRecognized())
	require.Len(t, pay.Lines, 1)
	moneyEq(t, "118", pay.Lines[0].LineTotal)

	original, err := f.svc.GetSale(f.ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, original.AmountUntaxed.IsZero())
	assert.False(t, original.IsRecognized())

	_, err = f.svc.UpdateCheckStatus(f.ctx, s.ID, sale.CheckStatusPaid)
	require.NoError(t, err)
	assert.Len(t, f.checkPayments(t), 1, "paid again books nothing")
}

func TestCheck_PaidBackToDepositedKeepsPaymentRow(t *testing.T) {
	f := setup(t)
	p := f.product(t, "A", 5, "100", "0")
	c := f.customer(t, "0", "0")

	s, err := f.svc.CreateSale(f.ctx, checkRequest(c, line(p, 1)))
	require.NoError(t, err)
	_, err = f.svc.UpdateCheckStatus(f.ctx, s.ID, sale.CheckStatusPaid)
	require.NoError(t, err)

	updated, err := f.svc.UpdateCheckStatus(f.ctx, s.ID, sale.CheckStatusDeposited)
	require.NoError(t, err)
	assert.True(t, updated.AmountUntaxed.IsZero())
	assert.False(t, updated.IsRecognized())
	assert.Len(t, f.checkPayments(t), 1)
}

func TestCheck_SubCentPriceRecognizesSaleTotal(t *testing.T) {
	f := setup(t)
	p := f.product(t, "Screw", 500, "0.125", "0")
	c := f.customer(t, "0", "0")

	s, err := f.svc.CreateSale(f.ctx, checkRequest(c, line(p, 100)))
	require.NoError(t, err)
	moneyEq(t, "12.50", s.AmountTotal)
	assert.True(t, s.Lines[0].UnitPrice.Equal(types.MustMoney("0.125")))

	_, err = f.svc.UpdateCheckStatus(f.ctx, s.ID, sale.CheckStatusPaid)
	require.NoError(t, err)
	payments := f.checkPayments(t)
	require.Len(t, payments, 1)
	moneyEq(t, "12.50", payments[0].AmountTotal)
}

func TestCreateSale_RejectsPriceBeyondStoredPrecision(t *testing.T) {
	f := setup(t)
	p := f.product(t, "Screw", 500, "1", "0")
	price := types.MustMoney("0.1234567")

	_, err := f.svc.CreateSale(f.ctx, sale.CreateRequest{
		DocumentType:  sale.TypeTicket,
		PaymentMethod: sale.PaymentCash,
		Lines:         []sale.LineRequest{{ProductID: &p.ID, Quantity: types.NewQuantity(10), UnitPrice: &price}},
	})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidLine), "got %v", err)
	assert.Equal(t, types.NewQuantity(500), f.stockOf(t, p.ID))

	_, err = f.svc.CreateSale(f.ctx, sale.CreateRequest{
		DocumentType:  sale.TypeTicket,
		PaymentMethod: sale.PaymentCash,
		DiscountPct:   types.MustMoney("2.0000001"),
		Lines:         []sale.LineRequest{line(p, 1)},
	})
	assert.True(t, apperror.Is(err, apperror.CodeValidation), "got %v", err)
}

func TestCheck_UnpaidThenPaid(t *testing.T) {
	f := setup(t)
	p := f.product(t, "A", 5, "200", "0")
	c := f.customer(t, "0", "500")

	s, err := f.svc.CreateSale(f.ctx, checkRequest(c, line(p, 1)))
	require.NoError(t, err)

	_, err = f.svc.UpdateCheckStatus(f.ctx, s.ID, sale.CheckStatusUnpaid)
	require.NoError(t, err)
	moneyEq(t, "200", f.balanceOf(t, c.ID))

	updated, err := f.svc.UpdateCheckStatus(f.ctx, s.ID, sale.CheckStatusPaid)
	require.NoError(t, err)
	moneyEq(t, "0", f.balanceOf(t, c.ID))
	moneyEq(t, "200", updated.AmountUntaxed)
	assert.True(t, updated.AmountTax.IsZero())
	assert.True(t, updated.IsRecognized())
	assert.Empty(t, f.checkPayments(t), "late clearing is booked on the original")
}

func TestCheck_UnpaidThenPaidWithoutCoverKeepsDebt(t *testing.T) {
	f := setup(t)
	p := f.product(t, "A", 5, "200", "0")
	c := f.customer(t, "0", "0")

	s, err := f.svc.CreateSale(f.ctx, checkRequest(c, line(p, 1)))
	require.NoError(t, err)
	_, err = f.svc.UpdateCheckStatus(f.ctx, s.ID, sale.CheckStatusUnpaid)
	require.NoError(t, err)

	_, err = f.svc.PayCustomerCredit(f.ctx, sale.PayCreditRequest{
		CustomerID: c.ID,
		Amount:     types.MustMoney("150"),
		Method:     sale.PaymentTransfer,
	})
	require.NoError(t, err)
	moneyEq(t, "50", f.balanceOf(t, c.ID))

	updated, err := f.svc.UpdateCheckStatus(f.ctx, s.ID, sale.CheckStatusPaid)
	require.NoError(t, err)
	moneyEq(t, "50", f.balanceOf(t, c.ID))
	assert.True(t, updated.IsRecognized())
}

func TestCheck_UnpaidRespectsCreditLimit(t *testing.T) {
	f := setup(t)
	p := f.product(t, "A", 5, "200", "0")
	c := f.customer(t, "400", "500")

	s, err := f.svc.CreateSale(f.ctx, checkRequest(c, line(p, 1)))
	require.NoError(t, err)

	_, err = f.svc.UpdateCheckStatus(f.ctx, s.ID, sale.CheckStatusUnpaid)
	assert.True(t, apperror.Is(err, apperror.CodeCreditLimitExceeded), "got %v", err)
	moneyEq(t, "400", f.balanceOf(t, c.ID))

	got, err := f.svc.GetSale(f.ctx, s.ID)
	require.NoError(t, err)
	status, _ := got.State.CheckStatus()
	assert.Equal(t, sale.CheckStatusPending, status)
}

func TestUpdateCheckStatus_Errors(t *testing.T) {
	f := setup(t)
	p := f.product(t, "A", 5, "10", "0")

	cash, err := f.svc.CreateSale(f.ctx, sale.CreateRequest{
		DocumentType:  sale.TypeTicket,
		PaymentMethod: sale.PaymentCash,
		Lines:         []sale.LineRequest{line(p, 1)},
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateCheckStatus(f.ctx, cash.ID, "bounced")
	assert.True(t, apperror.Is(err, apperror.CodeInvalidStatus))

	_, err = f.svc.UpdateCheckStatus(f.ctx, cash.ID, sale.CheckStatusPaid)
	assert.True(t, apperror.IsNotFound(err))

	other := tenant.WithTenant(context.Background(), "shop-2", "u")
	_, err = f.svc.GetSale(other, cash.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestCancelCheckSale_KeepsCheckStatus(t *testing.T) {
	f := setup(t)
	p := f.product(t, "A", 5, "10", "0")
	c := f.customer(t, "0", "0")

	s, err := f.svc.CreateSale(f.ctx, checkRequest(c, line(p, 2)))
	require.NoError(t, err)

	cancelled, err := f.svc.CancelSale(f.ctx, s.ID, "check refused at till")
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(5), f.stockOf(t, p.ID))
	status, ok := cancelled.State.CheckStatus()
	require.True(t, ok)
	assert.Equal(t, sale.CheckStatusPending, status)

	_, err = f.svc.UpdateCheckStatus(f.ctx, s.ID, sale.CheckStatusPaid)
	assert.True(t, apperror.IsNotFound(err), "cancelled sales take no check transitions")
}

func TestPayCustomerCredit(t *testing.T) {
	f := setup(t)
	c := f.customer(t, "100", "0")

	res, err := f.svc.PayCustomerCredit(f.ctx, sale.PayCreditRequest{
		CustomerID: c.ID,
		Amount:     types.MustMoney("30"),
		Method:     sale.PaymentCash,
		Tendered:   ptr(types.MustMoney("50")),
	})
	require.NoError(t, err)
	moneyEq(t, "70", res.NewBalance)
	moneyEq(t, "20", res.Change)
	assert.Regexp(t, `^PAY-CREDIT-\d{4}-000001$`, res.Sale.Number)
	assert.Equal(t, sale.TypeCreditPayment, res.Sale.DocumentType)
	moneyEq(t, "30", res.Sale.AmountUntaxed)
	moneyEq(t, "30", res.Sale.AmountTotal)
	assert.True(t, res.Sale.IsRecognized())
	require.Len(t, res.Sale.Lines, 1)

	_, err = f.svc.PayCustomerCredit(f.ctx, sale.PayCreditRequest{
		CustomerID: c.ID,
		Amount:     types.MustMoney("71"),
		Method:     sale.PaymentCard,
	})
	assert.True(t, apperror.Is(err, apperror.CodeExceedsBalance))
	moneyEq(t, "70", f.balanceOf(t, c.ID))

	_, err = f.svc.CancelSale(f.ctx, res.Sale.ID, "entered twice")
	require.NoError(t, err)
	moneyEq(t, "100", f.balanceOf(t, c.ID))
}

func TestPayCustomerCredit_ByCheckIsDeferred(t *testing.T) {
	f := setup(t)
	c := f.customer(t, "100", "0")
	due := time.Now().Add(48 * time.Hour)

	res, err := f.svc.PayCustomerCredit(f.ctx, sale.PayCreditRequest{
		CustomerID: c.ID,
		Amount:     types.MustMoney("60"),
		Method:     sale.PaymentCheck,
		Reference:  "CHQ-9",
		DueDate:    &due,
	})
	require.NoError(t, err)
	moneyEq(t, "40", res.NewBalance)
	assert.True(t, res.Sale.AmountUntaxed.IsZero())
	moneyEq(t, "60", res.Sale.AmountTotal)
	assert.False(t, res.Sale.IsRecognized())
	status, ok := res.Sale.State.CheckStatus()
	require.True(t, ok)
	assert.Equal(t, sale.CheckStatusPending, status)
}

func TestPayCustomerCredit_Validation(t *testing.T) {
	f := setup(t)
	c := f.customer(t, "100", "0")

	tests := []struct {
		name string
		req  sale.PayCreditRequest
	}{
		{name: "zero amount", req: sale.PayCreditRequest{CustomerID: c.ID, Amount: types.Zero(), Method: sale.PaymentCash}},
		{name: "short tender", req: sale.PayCreditRequest{CustomerID: c.ID, Amount: types.MustMoney("10"), Method: sale.PaymentCash, Tendered: ptr(types.MustMoney("5"))}},
		{name: "check without date", req: sale.PayCreditRequest{CustomerID: c.ID, Amount: types.MustMoney("10"), Method: sale.PaymentCheck, Reference: "1"}},
		{name: "credit method", req: sale.PayCreditRequest{CustomerID: c.ID, Amount: types.MustMoney("10"), Method: sale.PaymentCredit}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.PayCustomerCredit(f.ctx, tt.req)
			assert.True(t, apperror.Is(err, apperror.CodeValidation), "got %v", err)
		})
	}
	moneyEq(t, "100", f.balanceOf(t, c.ID))
}

func TestListSales_Filters(t *testing.T) {
	f := setup(t)
	p := f.product(t, "A", 50, "10", "0")
	c := f.customer(t, "0", "0")

	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateSale(f.ctx, sale.CreateRequest{DocumentType: sale.TypeTicket, PaymentMethod: sale.PaymentCash, Lines: []sale.LineRequest{line(p, 1)}})
		require.NoError(t, err)
	}
	_, err := f.svc.CreateSale(f.ctx, checkRequest(c, line(p, 1)))
	require.NoError(t, err)

	recognized := true
	res, err := f.svc.ListSales(f.ctx, sale.ListFilter{Recognized: &recognized})
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.TotalCount)

	res, err = f.svc.ListSales(f.ctx, sale.ListFilter{CustomerID: &c.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.TotalCount)

	typ := sale.TypeTicket
	res, err = f.svc.ListSales(f.ctx, sale.ListFilter{DocumentType: &typ})
	require.NoError(t, err)
	assert.EqualValues(t, 4, res.TotalCount)
	assert.Regexp(t, `-000004$`, res.Items[0].Number, "newest first")
	assert.Empty(t, res.Items[0].Lines)

	bad := sale.Status("archived")
	_, err = f.svc.ListSales(f.ctx, sale.ListFilter{Status: &bad})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidStatus))
}

func ptr[T any](v T) *T { return &v }

func TestCreateSale_NumberingFailureLeavesNothing(t *testing.T) {
	store := memory.NewStore()
	products := memory.NewProductRepo(store)
	customers := memory.NewCustomerRepo(store)
	sales := memory.NewSaleRepo(store)

	var calls int
	numbers := &numerator.MockGenerator{
		GetNextNumberFunc: func(_ context.Context, cfg numerator.Config, at time.Time) (string, error) {
			calls++
			if calls == 1 {
				return "", errors.New("sequence unavailable")
			}
			return cfg.Format(at, 42), nil
		},
	}
	svc := sale.NewService(sale.Deps{
		Repo:      sales,
		Products:  products,
		Customers: customers,
		Stock:     stock.NewService(memory.NewStockRepo(store), products, store, nil),
		Credit:    credit.NewService(memory.NewCreditRepo(store), customers, store),
		Numbers:   numbers,
		TxManager: store,
	})
	f := &fixture{
		ctx:       tenant.WithTenant(context.Background(), "shop-1", "cashier-1"),
		products:  products,
		customers: customers,
		sales:     sales,
		svc:       svc,
	}
	p := f.product(t, "Tea", 5, "4", "0")
	req := sale.CreateRequest{
		DocumentType:  sale.TypeTicket,
		PaymentMethod: sale.PaymentCash,
		Lines:         []sale.LineRequest{line(p, 2)},
	}

	_, err := svc.CreateSale(f.ctx, req)
	require.Error(t, err)
	assert.Equal(t, types.NewQuantity(5), f.stockOf(t, p.ID))

	res, err := svc.ListSales(f.ctx, sale.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	s, err := svc.CreateSale(f.ctx, req)
	require.NoError(t, err)
	assert.Regexp(t, `^TIC-\d{4}-000042$`, s.Number)
	assert.Equal(t, types.NewQuantity(3), f.stockOf(t, p.ID))
}

func TestCreateSale_ConcurrentLastUnit(t *testing.T) {
	f := setup(t)
	p := f.product(t, "Last", 1, "10", "0")

	const workers = 16
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateSale(f.ctx, sale.CreateRequest{
				DocumentType:  sale.TypeTicket,
				PaymentMethod: sale.PaymentCash,
				Lines:         []sale.LineRequest{line(p, 1)},
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperror.Is(err, apperror.CodeInsufficientStock), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.True(t, f.stockOf(t, p.ID).IsZero())

	res, err := f.svc.ListSales(f.ctx, sale.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
}

func TestCreateSale_ConcurrentCreditRespectsLimit(t *testing.T) {
	f := setup(t)
	p := f.product(t, "Rice", 100, "30", "0")
	c := f.customer(t, "0", "100")

	const workers = 12
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateSale(f.ctx, sale.CreateRequest{
				DocumentType:  sale.TypeTicket,
				PaymentMethod: sale.PaymentCredit,
				CustomerID:    &c.ID,
				Lines:         []sale.LineRequest{line(p, 1)},
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperror.Is(err, apperror.CodeCreditLimitExceeded), "got %v", err)
	}
	assert.Equal(t, 3, succeeded)
	moneyEq(t, "90", f.balanceOf(t, c.ID))
	assert.Equal(t, types.NewQuantity(97), f.stockOf(t, p.ID))
}
