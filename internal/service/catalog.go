package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/CODEDESTROYER009/The-Green-Shop/internal/models"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/repo"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/search"
	"github.com/CODEDESTROYER009/The-Green-Shop/pkg/logging"
)

// Searcher is the full-text index. *search.Client implements it.
type Searcher interface {
	Search(ctx context.Context, query string, from, size int) (search.Results, error)
	IndexProducts(ctx context.Context, products []models.Product) (int, error)
}

type CatalogService struct {
	Repo *repo.GormRepo
	// Search is optional. Without it queries run against the database.
	Search Searcher
}

func (s *CatalogService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return p, nil
}

func (s *CatalogService) List(ctx context.Context, f repo.ProductFilter, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.ListProducts(ctx, f, offset, limit)
}

// SearchProducts prefers the index and falls back to a database match when the
// index is absent or failing.
func (s *CatalogService) SearchProducts(ctx context.Context, query string, offset, limit int) (int64, []models.Product, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return 0, nil, fmt.Errorf("query required: %w", ErrValidation)
	}

	if s.Search != nil {
		res, err := s.Search.Search(ctx, q, offset, limit)
		if err == nil {
			return res.Total, res.Items, nil
		}
		logging.FromContext(ctx).Warn("search_index_unavailable", "error", err)
	}
	return s.Repo.ListProducts(ctx, repo.ProductFilter{Query: q}, offset, limit)
}

// Reindex pushes the whole catalog into the search index.
func (s *CatalogService) Reindex(ctx context.Context) (int, error) {
	if s.Search == nil {
		return 0, fmt.Errorf("search index not configured: %w", ErrConflict)
	}
	products, err := s.Repo.AllProducts(ctx)
	if err != nil {
		return 0, err
	}
	return s.Search.IndexProducts(ctx, products)
}
