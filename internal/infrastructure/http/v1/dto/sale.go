package dto

import (
	"time"

	"magasin/internal/core/id"
	"magasin/internal/core/types"
	"magasin/internal/domain/documents/sale"
)

// SaleLineResponse is one line of a sale.
type SaleLineResponse struct {
	ID          id.ID          `json:"id"`
	LineNo      int            `json:"lineNo"`
	ProductID   *id.ID         `json:"productId,omitempty"`
	Designation string         `json:"designation"`
	Quantity    types.Quantity `json:"quantity"`
	UnitPrice   string         `json:"unitPrice"`
	TaxRate     string         `json:"taxRate"`
	DiscountPct string         `json:"discountPct"`
	LineTotal   string         `json:"lineTotal"`
}

// SaleResponse represents a sale in API responses.
type SaleResponse struct {
	ID               id.ID              `json:"id"`
	Number           string             `json:"number"`
	DocumentType     sale.DocumentType  `json:"documentType"`
	Status           sale.Status        `json:"status"`
	CheckStatus      *sale.CheckStatus  `json:"checkStatus,omitempty"`
	PaymentMethod    sale.PaymentMethod `json:"paymentMethod,omitempty"`
	PaymentReference string             `json:"paymentReference,omitempty"`
	CheckDueDate     *time.Time         `json:"checkDueDate,omitempty"`
	AmountUntaxed    string             `json:"amountUntaxed"`
	AmountTax        string             `json:"amountTax"`
	AmountTotal      string             `json:"amountTotal"`
	DiscountPct      string             `json:"discountPct"`
	AmountPaid       string             `json:"amountPaid"`
	CustomerID       *id.ID             `json:"customerId,omitempty"`
	SourceSaleID     *id.ID             `json:"sourceSaleId,omitempty"`
	Recognized       bool               `json:"recognized"`
	RecognizedAt     *time.Time         `json:"recognizedAt,omitempty"`
	Notes            string             `json:"notes,omitempty"`
	CancelReason     string             `json:"cancelReason,omitempty"`
	CancelledAt      *time.Time         `json:"cancelledAt,omitempty"`
	CreatedBy        string             `json:"createdBy"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
	Lines            []SaleLineResponse `json:"lines,omitempty"`
}

// FromSale converts a sale to its response DTO.
func FromSale(s *sale.Sale) SaleResponse {
	status, checkStatus := s.State.Columns()
	resp := SaleResponse{
		ID:               s.ID,
		Number:           s.Number,
		DocumentType:     s.DocumentType,
		Status:           status,
		CheckStatus:      checkStatus,
		PaymentMethod:    s.PaymentMethod,
		PaymentReference: s.PaymentReference,
		CheckDueDate:     s.CheckDueDate,
		AmountUntaxed:    Amount(s.AmountUntaxed),
		AmountTax:        Amount(s.AmountTax),
		AmountTotal:      Amount(s.AmountTotal),
		DiscountPct:      Amount(s.DiscountPct),
		AmountPaid:       Amount(s.AmountPaid),
		CustomerID:       s.CustomerID,
		SourceSaleID:     s.SourceSaleID,
		Recognized:       s.IsRecognized(),
		RecognizedAt:     s.RecognizedAt,
		Notes:            s.Notes,
		CancelReason:     s.CancelReason,
		CancelledAt:      s.CancelledAt,
		CreatedBy:        s.CreatedBy,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
	for _, l := range s.Lines {
		resp.Lines = append(resp.Lines, SaleLineResponse{
			ID:          l.ID,
			LineNo:      l.LineNo,
			ProductID:   l.ProductID,
			Designation: l.Designation,
			Quantity:    l.Quantity,
			UnitPrice:   Amount(l.UnitPrice),
			TaxRate:     Amount(l.TaxRate),
			DiscountPct: Amount(l.DiscountPct),
			LineTotal:   Amount(l.LineTotal),
		})
	}
	return resp
}

// CancelSaleRequest is the body of POST /sales/:id/cancel.
type CancelSaleRequest struct {
	Reason string `json:"reason"`
}

// CheckStatusRequest is the body of PATCH /sales/:id/check-status.
type CheckStatusRequest struct {
	CheckStatus sale.CheckStatus `json:"checkStatus" binding:"required"`
}

// SaleListQuery holds the query parameters of GET /sales.
type SaleListQuery struct {
	Search       string     `form:"search"`
	DocumentType string     `form:"documentType"`
	Status       string     `form:"status"`
	CustomerID   string     `form:"customerId"`
	Recognized   *bool      `form:"recognized"`
	From         *time.Time `form:"from" time_format:"2006-01-02"`
	To           *time.Time `form:"to" time_format:"2006-01-02"`
	OrderBy      string     `form:"orderBy"`
	Limit        int        `form:"limit"`
	Offset       int        `form:"offset"`
}

// Filter converts the query to a domain filter.
func (q SaleListQuery) Filter() (sale.ListFilter, error) {
	f := sale.ListFilter{Recognized: q.Recognized, FromDate: q.From}
	f.Search = q.Search
	f.OrderBy = q.OrderBy
	f.Limit = q.Limit
	f.Offset = q.Offset
	if q.To != nil {
		// Inclusive upper day.
		end := q.To.Add(24*time.Hour - time.Nanosecond)
		f.ToDate = &end
	}
	if q.DocumentType != "" {
		t := sale.DocumentType(q.DocumentType)
		f.DocumentType = &t
	}
	if q.Status != "" {
		st := sale.Status(q.Status)
		f.Status = &st
	}
	if q.CustomerID != "" {
		cid, err := id.Parse(q.CustomerID)
		if err != nil {
			return f, err
		}
		f.CustomerID = &cid
	}
	return f, nil
}

// CreditPaymentResponse is the outcome of POST /customers/:id/payments.
type CreditPaymentResponse struct {
	NewBalance string       `json:"newBalance"`
	Change     string       `json:"change"`
	Payment    SaleResponse `json:"payment"`
}

// FromCreditPayment converts a repayment result.
func FromCreditPayment(r *sale.CreditPaymentResult) CreditPaymentResponse {
	return CreditPaymentResponse{
		NewBalance: Amount(r.NewBalance),
		Change:     Amount(r.Change),
		Payment:    FromSale(r.Sale),
	}
}
