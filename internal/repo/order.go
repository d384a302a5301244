package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/CODEDESTROYER009/The-Green-Shop/internal/models"
)

// InsertOrder writes the order header and its checkout journal in one
// transaction. A duplicate order number or token yields ErrConstraint.
func (r *GormRepo) InsertOrder(ctx context.Context, order *models.Order, saga *models.CheckoutSaga) error {
	return translate(r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return err
		}
		return tx.Create(saga).Error
	}))
}

// InsertOrderLines is idempotent on (order_id, product_id) and reports how
// many lines were new.
func (r *GormRepo) InsertOrderLines(ctx context.Context, orderID uuid.UUID, lines []models.OrderItem) (int64, error) {
	if len(lines) == 0 {
		return 0, nil
	}
	for i := range lines {
		lines[i].OrderID = orderID
	}
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(&lines)
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GormRepo) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *GormRepo) FindOrderByToken(ctx context.Context, userID uuid.UUID, token string) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).
		Where("user_id = ? AND idempotency_token = ?", userID, token).
		First(&order).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, userID uuid.UUID, offset, limit int) (int64, []models.Order, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var orders []models.Order
	if err := r.DB.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}
