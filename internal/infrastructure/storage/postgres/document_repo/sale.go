// Package document_repo provides the PostgreSQL implementation of the sale repository.
package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"magasin/internal/core/apperror"
	"magasin/internal/core/id"
	"magasin/internal/core/tenant"
	"magasin/internal/core/types"
	"magasin/internal/domain"
	"magasin/internal/domain/documents/sale"
	"magasin/internal/infrastructure/storage/postgres"
)

const (
	salesTable     = "sales"
	saleLinesTable = "sale_lines"
)

var saleColumns = []string{
	"id", "tenant_id", "number", "document_type", "status", "check_status",
	"payment_method", "payment_reference", "check_due_date",
	"amount_untaxed", "amount_tax", "amount_total", "discount_pct", "amount_paid",
	"customer_id", "source_sale_id", "recognized_at",
	"notes", "cancel_reason", "cancelled_at",
	"created_by", "created_at", "updated_at",
}

var lineColumns = []string{
	"id", "tenant_id", "sale_id", "line_no", "product_id", "designation",
	"quantity", "unit_price", "tax_rate", "discount_pct", "line_total",
}

// saleRow is the column image of a sale.
type saleRow struct {
	ID               id.ID               `db:"id"`
	TenantID         string              `db:"tenant_id"`
	Number           string              `db:"number"`
	DocumentType     sale.DocumentType   `db:"document_type"`
	Status           sale.Status         `db:"status"`
	CheckStatus      *sale.CheckStatus   `db:"check_status"`
	PaymentMethod    *sale.PaymentMethod `db:"payment_method"`
	PaymentReference string              `db:"payment_reference"`
	CheckDueDate     *time.Time          `db:"check_due_date"`
	AmountUntaxed    types.Money         `db:"amount_untaxed"`
	AmountTax        types.Money         `db:"amount_tax"`
	AmountTotal      types.Money         `db:"amount_total"`
	DiscountPct      types.Money         `db:"discount_pct"`
	AmountPaid       types.Money         `db:"amount_paid"`
	CustomerID       *id.ID              `db:"customer_id"`
	SourceSaleID     *id.ID              `db:"source_sale_id"`
	RecognizedAt     *time.Time          `db:"recognized_at"`
	Notes            string              `db:"notes"`
	CancelReason     string              `db:"cancel_reason"`
	CancelledAt      *time.Time          `db:"cancelled_at"`
	CreatedBy        string              `db:"created_by"`
	CreatedAt        time.Time           `db:"created_at"`
	UpdatedAt        time.Time           `db:"updated_at"`
}

func (r saleRow) toDomain() (*sale.Sale, error) {
	var method sale.PaymentMethod
	if r.PaymentMethod != nil {
		method = *r.PaymentMethod
	}
	state, err := sale.StateFromColumns(r.Status, method, r.CheckStatus)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("sale %s: %w", r.ID, err))
	}
	return &sale.Sale{
		ID:               r.ID,
		TenantID:         r.TenantID,
		Number:           r.Number,
		DocumentType:     r.DocumentType,
		State:            state,
		PaymentMethod:    method,
		PaymentReference: r.PaymentReference,
		CheckDueDate:     r.CheckDueDate,
		AmountUntaxed:    r.AmountUntaxed,
		AmountTax:        r.AmountTax,
		AmountTotal:      r.AmountTotal,
		DiscountPct:      r.DiscountPct,
		AmountPaid:       r.AmountPaid,
		CustomerID:       r.CustomerID,
		SourceSaleID:     r.SourceSaleID,
		RecognizedAt:     r.RecognizedAt,
		Notes:            r.Notes,
		CancelReason:     r.CancelReason,
		CancelledAt:      r.CancelledAt,
		CreatedBy:        r.CreatedBy,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}, nil
}

type lineRow struct {
	ID          id.ID          `db:"id"`
	TenantID    string         `db:"tenant_id"`
	SaleID      id.ID          `db:"sale_id"`
	LineNo      int            `db:"line_no"`
	ProductID   *id.ID         `db:"product_id"`
	Designation string         `db:"designation"`
	Quantity    types.Quantity `db:"quantity"`
	UnitPrice   types.Money    `db:"unit_price"`
	TaxRate     types.Money    `db:"tax_rate"`
	DiscountPct types.Money    `db:"discount_pct"`
	LineTotal   types.Money    `db:"line_total"`
}

func (r lineRow) toDomain() sale.Line {
	return sale.Line{
		ID:          r.ID,
		SaleID:      r.SaleID,
		LineNo:      r.LineNo,
		ProductID:   r.ProductID,
		Designation: r.Designation,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		TaxRate:     r.TaxRate,
		DiscountPct: r.DiscountPct,
		LineTotal:   r.LineTotal,
	}
}

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	txm *postgres.TxManager
}

var _ sale.Repository = (*SaleRepo)(nil)

// NewSaleRepo creates a sale repository.
func NewSaleRepo(txm *postgres.TxManager) *SaleRepo {
	return &SaleRepo{txm: txm}
}

// Create inserts the header and its lines in one transaction.
func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	s.TenantID = tenantID

	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		status, checkStatus := s.State.Columns()
		var method *sale.PaymentMethod
		if s.PaymentMethod != sale.PaymentNone {
			method = &s.PaymentMethod
		}

		sql, args, err := postgres.Builder().Insert(salesTable).
			Columns(saleColumns...).
			Values(
				s.ID, tenantID, s.Number, s.DocumentType, status, checkStatus,
				method, s.PaymentReference, s.CheckDueDate,
				s.AmountUntaxed, s.AmountTax, s.AmountTotal, s.DiscountPct, s.AmountPaid,
				s.CustomerID, s.SourceSaleID, s.RecognizedAt,
				s.Notes, s.CancelReason, s.CancelledAt,
				s.CreatedBy, s.CreatedAt, s.UpdatedAt,
			).ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}

		querier := r.txm.GetQuerier(ctx)
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			if postgres.IsUniqueViolation(err) {
				return apperror.NewDuplicate("sale", "number", s.Number)
			}
			return fmt.Errorf("insert sale: %w", err)
		}

		if len(s.Lines) == 0 {
			return nil
		}
		q := postgres.Builder().Insert(saleLinesTable).Columns(lineColumns...)
		for i := range s.Lines {
			l := &s.Lines[i]
			l.SaleID = s.ID
			q = q.Values(l.ID, tenantID, s.ID, l.LineNo, l.ProductID, l.Designation,
				l.Quantity, l.UnitPrice, l.TaxRate, l.DiscountPct, l.LineTotal)
		}
		sql, args, err = q.ToSql()
		if err != nil {
			return fmt.Errorf("build lines insert: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert sale lines: %w", err)
		}
		return nil
	})
}

func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.get(ctx, saleID, false)
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.get(ctx, saleID, true)
}

func (r *SaleRepo) get(ctx context.Context, saleID id.ID, forUpdate bool) (*sale.Sale, error) {
	q, err := postgres.TenantSelect(ctx, salesTable, saleColumns...)
	if err != nil {
		return nil, err
	}
	q = q.Where(squirrel.Eq{"id": saleID}).Limit(1)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	var row saleRow
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", saleID.String())
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	s, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	lq, err := postgres.TenantSelect(ctx, saleLinesTable, lineColumns...)
	if err != nil {
		return nil, err
	}
	sql, args, err = lq.Where(squirrel.Eq{"sale_id": saleID}).OrderBy("line_no").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}
	var lines []lineRow
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get sale lines: %w", err)
	}
	s.Lines = make([]sale.Line, 0, len(lines))
	for _, l := range lines {
		s.Lines = append(s.Lines, l.toDomain())
	}
	return s, nil
}

// Update writes the fields that transitions may change.
func (r *SaleRepo) Update(ctx context.Context, s *sale.Sale) error {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	status, checkStatus := s.State.Columns()

	sql, args, err := postgres.Builder().Update(salesTable).
		Set("status", status).
		Set("check_status", checkStatus).
		Set("amount_untaxed", s.AmountUntaxed).
		Set("amount_tax", s.AmountTax).
		Set("recognized_at", s.RecognizedAt).
		Set("cancel_reason", s.CancelReason).
		Set("cancelled_at", s.CancelledAt).
		Set("updated_at", s.UpdatedAt).
		Where(squirrel.Eq{"tenant_id": tenantID, "id": s.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("sale", s.ID.String())
	}
	return nil
}

// List returns headers only.
func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	q, err := postgres.TenantSelect(ctx, salesTable, saleColumns...)
	if err != nil {
		return domain.ListResult[*sale.Sale]{}, err
	}

	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"number": "%" + filter.Search + "%"})
	}
	if filter.DocumentType != nil {
		q = q.Where(squirrel.Eq{"document_type": *filter.DocumentType})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.Recognized != nil {
		if *filter.Recognized {
			q = q.Where(squirrel.NotEq{"recognized_at": nil})
		} else {
			q = q.Where(squirrel.Eq{"recognized_at": nil})
		}
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}

	orderBy, err := postgres.ParseOrderBy(filter.OrderBy,
		[]string{"number", "created_at", "amount_total"}, "created_at DESC, number DESC")
	if err != nil {
		return domain.ListResult[*sale.Sale]{}, err
	}

	rows, err := postgres.SelectPage[saleRow](ctx, r.txm.GetQuerier(ctx), q, filter.ListFilter, orderBy)
	if err != nil {
		return domain.ListResult[*sale.Sale]{}, err
	}

	result := domain.ListResult[*sale.Sale]{
		Items:      make([]*sale.Sale, 0, len(rows.Items)),
		TotalCount: rows.TotalCount,
		Limit:      rows.Limit,
		Offset:     rows.Offset,
	}
	for _, row := range rows.Items {
		s, err := row.toDomain()
		if err != nil {
			return domain.ListResult[*sale.Sale]{}, err
		}
		result.Items = append(result.Items, s)
	}
	return result, nil
}
