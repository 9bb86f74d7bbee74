package product

import (
	"context"
	"time"

	"magasin/internal/core/id"
	"magasin/internal/core/tx"
	"magasin/internal/domain"
	"magasin/pkg/logger"
)

// Service manages the product catalog.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a product service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// Create registers a product. Opening stock is taken as given, without a movement.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	p.ID = id.New()
	p.CreatedAt = now
	p.UpdatedAt = now

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "product created", "product_id", p.ID, "code", p.Code)
	return nil
}

// Get returns a product of the current tenant.
func (s *Service) Get(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// List returns products matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Product], error) {
	filter.ListFilter = filter.ListFilter.Normalized()
	return s.repo.List(ctx, filter)
}
