// Package sale is the settlement engine: it creates sales documents and drives
// their payment instruments through clearing, bouncing and cancellation while
// keeping stock, customer credit and recognized revenue consistent.
package sale

import (
	"strings"
	"time"

	"magasin/internal/core/apperror"
	"magasin/internal/core/id"
	"magasin/internal/core/types"
	"magasin/internal/domain"
	"magasin/internal/domain/ledger"
)

// DocumentType discriminates customer-facing documents from synthetic settlement rows.
type DocumentType string

const (
	TypeTicket        DocumentType = "ticket"
	TypeInvoice       DocumentType = "invoice"
	TypeQuote         DocumentType = "quote"
	TypeDeliveryNote  DocumentType = "delivery_note"
	TypeExpense       DocumentType = "expense"
	TypeCheckPayment  DocumentType = "check_payment"
	TypeCreditPayment DocumentType = "credit_payment"
)

func (t DocumentType) IsValid() bool {
	switch t {
	case TypeTicket, TypeInvoice, TypeQuote, TypeDeliveryNote, TypeExpense,
		TypeCheckPayment, TypeCreditPayment:
		return true
	}
	return false
}

// IsSynthetic reports a settlement row created by the engine, never by a caller.
func (t DocumentType) IsSynthetic() bool {
	return t == TypeCheckPayment || t == TypeCreditPayment
}

// MovesStock reports whether the document's product lines leave the shelf.
func (t DocumentType) MovesStock() bool {
	switch t {
	case TypeQuote, TypeExpense, TypeCheckPayment, TypeCreditPayment:
		return false
	}
	return true
}

// RequiresProduct reports whether every line must reference a product.
func (t DocumentType) RequiresProduct() bool {
	return t != TypeExpense && !t.IsSynthetic()
}

// BearsRevenue reports whether the type can ever be recognized as revenue.
func (t DocumentType) BearsRevenue() bool {
	return t != TypeQuote && t != TypeExpense
}

// PaymentMethod is how the customer pays. Empty means none recorded.
type PaymentMethod string

const (
	PaymentNone     PaymentMethod = ""
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentCheck    PaymentMethod = "check"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentCredit   PaymentMethod = "credit"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentNone, PaymentCash, PaymentCard, PaymentCheck, PaymentTransfer, PaymentCredit:
		return true
	}
	return false
}

// Defers reports an instrument whose revenue is recognized later.
func (m PaymentMethod) Defers() bool {
	return m == PaymentCheck || m == PaymentCredit
}

// Sale is one document row with its lines.
type Sale struct {
	ID           id.ID
	TenantID     string
	Number       string
	DocumentType DocumentType
	State        State

	PaymentMethod    PaymentMethod
	PaymentReference string
	CheckDueDate     *time.Time

	// Recognized revenue components. Zero while the instrument is deferred.
	AmountUntaxed types.Money
	AmountTax     types.Money
	// AmountTotal is always the nominal document value.
	AmountTotal types.Money
	DiscountPct types.Money
	AmountPaid  types.Money

	CustomerID   *id.ID
	SourceSaleID *id.ID
	RecognizedAt *time.Time

	Notes        string
	CancelReason string
	CancelledAt  *time.Time

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time

	Lines []Line
}

// IsRecognized reports whether the sale currently counts as revenue.
func (s *Sale) IsRecognized() bool { return s.RecognizedAt != nil }

// Outstanding is what a credit sale left on the customer's account.
func (s *Sale) Outstanding() types.Money {
	return s.AmountTotal.Sub(s.AmountPaid)
}

func (s *Sale) recognize(amounts ledger.DocumentAmounts, at time.Time) {
	s.AmountUntaxed = types.RoundMoney(amounts.Untaxed)
	s.AmountTax = types.RoundMoney(amounts.Tax)
	s.RecognizedAt = &at
}

func (s *Sale) unrecognize() {
	s.AmountUntaxed = types.Zero()
	s.AmountTax = types.Zero()
	s.RecognizedAt = nil
}

// LineAmounts recomputes the unrounded amounts of the sale from its lines,
// reapplying the document discount.
func (s *Sale) LineAmounts() ledger.DocumentAmounts {
	amounts := make([]ledger.LineAmounts, 0, len(s.Lines))
	for _, l := range s.Lines {
		amounts = append(amounts, l.input().Amounts())
	}
	return ledger.Totals(amounts, s.DiscountPct)
}

// Line is one row of a document.
type Line struct {
	ID          id.ID
	SaleID      id.ID
	LineNo      int
	ProductID   *id.ID
	Designation string
	Quantity    types.Quantity
	UnitPrice   types.Money
	TaxRate     types.Money
	DiscountPct types.Money
	// LineTotal includes tax, after the line discount.
	LineTotal types.Money
}

func (l Line) input() ledger.LineInput {
	return ledger.LineInput{
		Quantity:    l.Quantity,
		UnitPrice:   l.UnitPrice,
		TaxRate:     l.TaxRate,
		DiscountPct: l.DiscountPct,
	}
}

// LineRequest is one requested line. UnitPrice and TaxRate default to the
// product's sale price and tax rate when nil.
type LineRequest struct {
	ProductID   *id.ID         `json:"productId,omitempty"`
	Designation string         `json:"designation,omitempty"`
	Quantity    types.Quantity `json:"quantity"`
	UnitPrice   *types.Money   `json:"unitPrice,omitempty"`
	TaxRate     *types.Money   `json:"taxRate,omitempty"`
	DiscountPct types.Money    `json:"discountPct"`
}

// CreateRequest is the input of CreateSale.
type CreateRequest struct {
	DocumentType     DocumentType  `json:"documentType"`
	PaymentMethod    PaymentMethod `json:"paymentMethod"`
	CustomerID       *id.ID        `json:"customerId,omitempty"`
	DiscountPct      types.Money   `json:"discountPct"`
	AmountPaid       *types.Money  `json:"amountPaid,omitempty"`
	PaymentReference string        `json:"paymentReference,omitempty"`
	CheckDueDate     *time.Time    `json:"checkDueDate,omitempty"`
	Notes            string        `json:"notes,omitempty"`
	Lines            []LineRequest `json:"lines"`
}

// Validate checks the request shape. Existence, stock and limits are checked by the service.
func (r *CreateRequest) Validate() error {
	if !r.DocumentType.IsValid() {
		return apperror.NewValidation("unknown document type").WithDetail("documentType", r.DocumentType)
	}
	if r.DocumentType.IsSynthetic() {
		return apperror.NewValidation("settlement documents are created by the system").
			WithDetail("documentType", r.DocumentType)
	}
	if !r.PaymentMethod.IsValid() {
		return apperror.NewValidation("unknown payment method").WithDetail("paymentMethod", r.PaymentMethod)
	}
	if len(r.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").WithDetail("field", "lines")
	}
	if err := ledger.ValidateDiscount(r.DiscountPct); err != nil {
		return err
	}

	for i, l := range r.Lines {
		if r.DocumentType.RequiresProduct() && l.ProductID == nil {
			return apperror.NewInvalidLine(i, "product is required")
		}
		if l.ProductID == nil {
			if strings.TrimSpace(l.Designation) == "" {
				return apperror.NewInvalidLine(i, "designation is required")
			}
			if l.UnitPrice == nil {
				return apperror.NewInvalidLine(i, "unit price is required")
			}
		}
	}

	switch r.PaymentMethod {
	case PaymentCredit:
		if r.CustomerID == nil {
			return apperror.NewValidation("credit sales require a customer").WithDetail("field", "customerId")
		}
		if r.AmountPaid != nil && r.AmountPaid.IsNegative() {
			return apperror.NewValidation("amount paid must not be negative").WithDetail("field", "amountPaid")
		}
	case PaymentCheck:
		if r.CustomerID == nil {
			return apperror.NewValidation("check payments require a customer").WithDetail("field", "customerId")
		}
		if strings.TrimSpace(r.PaymentReference) == "" {
			return apperror.NewValidation("check number is required").WithDetail("field", "paymentReference")
		}
		if r.CheckDueDate == nil {
			return apperror.NewValidation("check due date is required").WithDetail("field", "checkDueDate")
		}
	}
	return nil
}

// ListFilter narrows ListSales.
type ListFilter struct {
	domain.ListFilter
	DocumentType *DocumentType
	Status       *Status
	CustomerID   *id.ID
	Recognized   *bool
	FromDate     *time.Time
	ToDate       *time.Time
}

// PayCreditRequest is the input of PayCustomerCredit.
type PayCreditRequest struct {
	CustomerID id.ID         `json:"-"`
	Amount     types.Money   `json:"amount"`
	Method     PaymentMethod `json:"method"`
	// Tendered is the cash handed over; change is returned when larger than Amount.
	Tendered  *types.Money `json:"tendered,omitempty"`
	Reference string       `json:"reference,omitempty"`
	DueDate   *time.Time   `json:"dueDate,omitempty"`
}

// Validate checks the repayment shape.
func (r *PayCreditRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return apperror.NewValidation("amount must be greater than zero").WithDetail("field", "amount")
	}
	switch r.Method {
	case PaymentCash:
		if r.Tendered != nil && r.Tendered.LessThan(r.Amount) {
			return apperror.NewValidation("tendered cash is less than the amount").
				WithDetail("tendered", r.Tendered.StringFixed(types.MoneyPlaces)).
				WithDetail("amount", r.Amount.StringFixed(types.MoneyPlaces))
		}
	case PaymentCheck:
		if strings.TrimSpace(r.Reference) == "" {
			return apperror.NewValidation("check number is required").WithDetail("field", "reference")
		}
		if r.DueDate == nil {
			return apperror.NewValidation("check due date is required").WithDetail("field", "dueDate")
		}
	case PaymentCard, PaymentTransfer:
	default:
		return apperror.NewValidation("unsupported repayment method").WithDetail("method", r.Method)
	}
	return nil
}

// CreditPaymentResult is the outcome of PayCustomerCredit.
type CreditPaymentResult struct {
	NewBalance types.Money
	Sale       *Sale
	Change     types.Money
}
