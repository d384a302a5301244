package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/CODEDESTROYER009/The-Green-Shop/internal/models"
)

// Advance moves the journal from one state to another. The update only
// applies while the journal is still in from; ErrStale means another worker
// moved it first.
func (r *GormRepo) Advance(ctx context.Context, orderID uuid.UUID, from, to models.SagaState, attempts int, lastErr string) error {
	db := r.DB.WithContext(ctx)
	res := db.Model(&models.CheckoutSaga{}).
		Where("order_id = ? AND state = ?", orderID, from).
		Updates(map[string]any{
			"state":      to,
			"attempts":   attempts,
			"last_error": lastErr,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := db.Model(&models.CheckoutSaga{}).Where("order_id = ?", orderID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStale
}

func (r *GormRepo) GetSaga(ctx context.Context, orderID uuid.UUID) (*models.CheckoutSaga, error) {
	var s models.CheckoutSaga
	if err := r.DB.WithContext(ctx).Where("order_id = ?", orderID).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// ListUnfinished returns journals that are neither finalized nor failed and
// were last touched before olderThan, oldest first.
func (r *GormRepo) ListUnfinished(ctx context.Context, olderThan time.Time, limit int) ([]models.CheckoutSaga, error) {
	var out []models.CheckoutSaga
	if err := r.DB.WithContext(ctx).
		Where("state NOT IN ?", []models.SagaState{models.SagaFinalized, models.SagaFailed}).
		Where("updated_at < ?", olderThan.UTC()).
		Order("updated_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
