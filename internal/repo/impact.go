package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/CODEDESTROYER009/The-Green-Shop/internal/models"
)

func (r *GormRepo) GetStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	var st models.UserStats
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&st).Error; err != nil {
		return nil, translate(err)
	}
	return &st, nil
}

// AtomicIncrement adds d to the user's stats with server-side arithmetic.
// The order id is recorded in the same transaction, so applying the same
// order twice leaves the row untouched and returns it as is.
func (r *GormRepo) AtomicIncrement(ctx context.Context, userID uuid.UUID, d models.StatsDelta) (*models.UserStats, error) {
	var out models.UserStats
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app := models.StatsApplication{
			OrderID:   d.OrderID,
			UserID:    userID,
			Token:     d.Token,
			AppliedAt: time.Now().UTC(),
		}
		ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&app)
		if ins.Error != nil {
			return ins.Error
		}

		if ins.RowsAffected > 0 {
			res := tx.Model(&models.UserStats{}).
				Where("user_id = ?", userID).
				Updates(map[string]any{
					"total_orders":    gorm.Expr("total_orders + ?", d.Orders),
					"green_points":    gorm.Expr("green_points + ?", d.GreenPoints),
					"co2_saved":       gorm.Expr("co2_saved + ?", d.CO2Saved),
					"plastic_reduced": gorm.Expr("plastic_reduced + ?", d.PlasticReduced),
					"water_saved":     gorm.Expr("water_saved + ?", d.WaterSaved),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}
		}

		return tx.Where("user_id = ?", userID).First(&out).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

// Provision creates an empty stats row for the user if none exists.
func (r *GormRepo) Provision(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	st := models.UserStats{UserID: userID}
	if err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&st).Error; err != nil {
		return nil, translate(err)
	}
	return r.GetStats(ctx, userID)
}
