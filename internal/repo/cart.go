package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CODEDESTROYER009/The-Green-Shop/internal/models"
)

// MaxLineQuantity caps the quantity of a single cart line.
const MaxLineQuantity = 999

// AddToCart inserts the line or, when the product is already in the cart,
// bumps its quantity and refreshes the catalog snapshot. A bump past
// MaxLineQuantity leaves the line untouched and returns ErrQuantityLimit.
func (r *GormRepo) AddToCart(ctx context.Context, item *models.CartItem) error {
	if item.Quantity > MaxLineQuantity {
		return ErrQuantityLimit
	}
	return translate(r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CartItem{}).
			Where("user_id = ? AND product_id = ?", item.UserID, item.ProductID).
			Where("quantity + ? <= ?", item.Quantity, MaxLineQuantity).
			Updates(map[string]any{
				"quantity":               gorm.Expr("quantity + ?", item.Quantity),
				"unit_price":             item.UnitPrice,
				"green_points_per_unit":  item.GreenPointsPerUnit,
				"co2_saved_per_unit":     item.CO2SavedPerUnit,
				"plastic_saved_per_unit": item.PlasticSavedPerUnit,
				"water_saved_per_unit":   item.WaterSavedPerUnit,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return tx.Where("user_id = ? AND product_id = ?", item.UserID, item.ProductID).First(item).Error
		}

		var existing int64
		if err := tx.Model(&models.CartItem{}).
			Where("user_id = ? AND product_id = ?", item.UserID, item.ProductID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrQuantityLimit
		}
		return tx.Create(item).Error
	}))
}

func (r *GormRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, qty int) (*models.CartItem, error) {
	res := r.DB.WithContext(ctx).Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", lineID, userID).
		Update("quantity", qty)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	var item models.CartItem
	if err := r.DB.WithContext(ctx).Where("id = ?", lineID).First(&item).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *GormRepo) RemoveLine(ctx context.Context, userID, lineID uuid.UUID) error {
	res := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", lineID, userID).Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearByUser deletes the user's lines for productIDs, or every line when
// productIDs is nil. Deleting nothing is not an error.
func (r *GormRepo) ClearByUser(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) (int64, error) {
	q := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if productIDs != nil {
		if len(productIDs) == 0 {
			return 0, nil
		}
		q = q.Where("product_id IN ?", productIDs)
	}
	res := q.Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}
