package memory

import (
	"context"
	"strings"

	"magasin/internal/core/apperror"
	"magasin/internal/core/id"
	"magasin/internal/core/tenant"
	"magasin/internal/domain"
	"magasin/internal/domain/documents/sale"
)

// SaleRepo implements sale.Repository.
type SaleRepo struct{ store *Store }

func NewSaleRepo(store *Store) *SaleRepo { return &SaleRepo{store: store} }

var _ sale.Repository = (*SaleRepo)(nil)

func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return err
	}
	return r.store.with(ctx, func(t *tenantData) error {
		for _, existing := range t.sales {
			if existing.Number == s.Number {
				return apperror.NewDuplicate("sale", "number", s.Number)
			}
		}
		s.TenantID = tenantID
		for i := range s.Lines {
			s.Lines[i].SaleID = s.ID
		}
		t.sales[s.ID] = copySale(s)
		t.salesSeq = append(t.salesSeq, s.ID)
		return nil
	})
}

func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	var out *sale.Sale
	err := r.store.with(ctx, func(t *tenantData) error {
		s, ok := t.sales[saleID]
		if !ok {
			return apperror.NewNotFound("sale", saleID)
		}
		out = copySale(s)
		return nil
	})
	return out, err
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.GetByID(ctx, saleID)
}

func (r *SaleRepo) Update(ctx context.Context, s *sale.Sale) error {
	return r.store.with(ctx, func(t *tenantData) error {
		stored, ok := t.sales[s.ID]
		if !ok {
			return apperror.NewNotFound("sale", s.ID)
		}
		stored.State = s.State
		stored.AmountUntaxed = s.AmountUntaxed
		stored.AmountTax = s.AmountTax
		stored.RecognizedAt = s.RecognizedAt
		stored.CancelReason = s.CancelReason
		stored.CancelledAt = s.CancelledAt
		stored.UpdatedAt = s.UpdatedAt
		return nil
	})
}

// List returns matches newest first, without lines.
func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	var items []*sale.Sale
	err := r.store.with(ctx, func(t *tenantData) error {
		search := strings.ToLower(strings.TrimSpace(filter.Search))
		for i := len(t.salesSeq) - 1; i >= 0; i-- {
			s := t.sales[t.salesSeq[i]]
			if !matchSale(s, filter, search) {
				continue
			}
			cp := *s
			cp.Lines = nil
			items = append(items, &cp)
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*sale.Sale]{}, err
	}
	return page(items, filter.ListFilter), nil
}

func matchSale(s *sale.Sale, f sale.ListFilter, search string) bool {
	switch {
	case search != "" && !strings.Contains(strings.ToLower(s.Number), search):
		return false
	case f.DocumentType != nil && s.DocumentType != *f.DocumentType:
		return false
	case f.Status != nil && s.State.Status() != *f.Status:
		return false
	case f.CustomerID != nil && (s.CustomerID == nil || *s.CustomerID != *f.CustomerID):
		return false
	case f.Recognized != nil && s.IsRecognized() != *f.Recognized:
		return false
	case f.FromDate != nil && s.CreatedAt.Before(*f.FromDate):
		return false
	case f.ToDate != nil && s.CreatedAt.After(*f.ToDate):
		return false
	}
	return true
}
