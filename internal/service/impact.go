package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/CODEDESTROYER009/The-Green-Shop/internal/models"
)

// ImpactReader is satisfied by *repo.GormRepo and *cache.ImpactCache.
type ImpactReader interface {
	GetStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
	Provision(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
}

type ImpactService struct {
	Store ImpactReader
}

func (s *ImpactService) Dashboard(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	st, err := s.Store.GetStats(ctx, userID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return st, nil
}

// Provision creates the user's zeroed stats row if it is missing.
func (s *ImpactService) Provision(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	if userID == uuid.Nil {
		return nil, ErrValidation
	}
	return s.Store.Provision(ctx, userID)
}
