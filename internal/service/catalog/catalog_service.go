package catalog

import (
	"context"

	"github.com/rapidlab/labbooking/internal/domain"
	"github.com/rapidlab/labbooking/internal/repository"
)

type CatalogUseCase interface {
	ListLabs(ctx context.Context) ([]domain.Lab, error)
	GetLabByName(ctx context.Context, name string) (*domain.Lab, error)
	ListTests(ctx context.Context) ([]domain.DiagnosticTest, error)
	GetTestByID(ctx context.Context, id int64) (*domain.DiagnosticTest, error)
}

type Cache interface {
	GetLabs(ctx context.Context) ([]domain.Lab, error)
	SetLabs(ctx context.Context, labs []domain.Lab) error
	GetTests(ctx context.Context) ([]domain.DiagnosticTest, error)
	SetTests(ctx context.Context, tests []domain.DiagnosticTest) error
}

type CatalogService struct {
	repo  repository.CatalogRepository
	cache Cache
}

func NewCatalogService(repo repository.CatalogRepository, cache Cache) *CatalogService {
	return &CatalogService{repo: repo, cache: cache}
}

func (s *CatalogService) ListLabs(ctx context.Context) ([]domain.Lab, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetLabs(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	labs, err := s.repo.ListLabs(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetLabs(ctx, labs)
	}
	return labs, nil
}

func (s *CatalogService) GetLabByName(ctx context.Context, name string) (*domain.Lab, error) {
	return s.repo.GetLabByName(ctx, name)
}

func (s *CatalogService) ListTests(ctx context.Context) ([]domain.DiagnosticTest, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetTests(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	tests, err := s.repo.ListTests(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetTests(ctx, tests)
	}
	return tests, nil
}

func (s *CatalogService) GetTestByID(ctx context.Context, id int64) (*domain.DiagnosticTest, error) {
	return s.repo.GetTestByID(ctx, id)
}

var _ CatalogUseCase = (*CatalogService)(nil)
