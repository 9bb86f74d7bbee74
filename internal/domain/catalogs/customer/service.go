package customer

import (
	"context"
	"time"

	"magasin/internal/core/id"
	"magasin/internal/core/tx"
	"magasin/internal/domain"
	"magasin/pkg/logger"
)

// Service manages customers.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

func (s *Service) Create(ctx context.Context, c *Customer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	c.ID = id.New()
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, c)
	}); err != nil {
		return err
	}

	logger.Info(ctx, "customer created", "customer_id", c.ID)
	return nil
}

func (s *Service) Get(ctx context.Context, customerID id.ID) (*Customer, error) {
	return s.repo.GetByID(ctx, customerID)
}

func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Customer], error) {
	filter.ListFilter = filter.ListFilter.Normalized()
	return s.repo.List(ctx, filter)
}
