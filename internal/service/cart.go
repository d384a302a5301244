package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/CODEDESTROYER009/The-Green-Shop/internal/checkout"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/models"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/repo"
)

// MaxLineQuantity caps a single cart line, including repeated adds.
const MaxLineQuantity = repo.MaxLineQuantity

type CartService struct {
	Repo *repo.GormRepo
}

type CartSummary struct {
	Items []models.CartItem `json:"items"`
	checkout.Totals
}

// Add puts qty units of the product into the user's cart, copying the
// current price and impact figures from the catalog.
func (s *CartService) Add(ctx context.Context, userID, productID uuid.UUID, qty int) (*models.CartItem, error) {
	if productID == uuid.Nil {
		return nil, fmt.Errorf("product_id required: %w", ErrValidation)
	}
	if qty < 1 || qty > MaxLineQuantity {
		return nil, fmt.Errorf("quantity must be between 1 and %d: %w", MaxLineQuantity, ErrValidation)
	}

	product, err := s.Repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", productID, mapRepoErr(err))
	}

	item := &models.CartItem{
		UserID:              userID,
		ProductID:           product.ID,
		Quantity:            qty,
		UnitPrice:           product.Price,
		GreenPointsPerUnit:  product.GreenPoints,
		CO2SavedPerUnit:     product.CO2Saved,
		PlasticSavedPerUnit: product.PlasticSaved,
		WaterSavedPerUnit:   product.WaterSaved,
	}
	if err := s.Repo.AddToCart(ctx, item); err != nil {
		return nil, mapRepoErr(err)
	}
	return item, nil
}

func (s *CartService) List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	return s.Repo.ListByUser(ctx, userID)
}

// Summary prices the cart the same way checkout will.
func (s *CartService) Summary(ctx context.Context, userID uuid.UUID, donation decimal.Decimal) (*CartSummary, error) {
	if !checkout.ValidDonation(donation) {
		return nil, fmt.Errorf("donation must be a non-negative multiple of %d: %w", checkout.DonationStep, ErrValidation)
	}

	items, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.CartItem{}
	}
	return &CartSummary{
		Items:  items,
		Totals: checkout.ComputeTotals(checkout.LinesFromCart(items), donation),
	}, nil
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, qty int) (*models.CartItem, error) {
	if qty < 1 || qty > MaxLineQuantity {
		return nil, fmt.Errorf("quantity must be between 1 and %d: %w", MaxLineQuantity, ErrValidation)
	}
	item, err := s.Repo.UpdateQuantity(ctx, userID, lineID, qty)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return item, nil
}

func (s *CartService) RemoveLine(ctx context.Context, userID, lineID uuid.UUID) error {
	return mapRepoErr(s.Repo.RemoveLine(ctx, userID, lineID))
}

func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.Repo.ClearByUser(ctx, userID, nil)
}
