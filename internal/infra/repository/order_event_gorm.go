package repository

import (
	"context"

	"gorm.io/gorm"

	"shop/internal/domain/model"
)

type OrderEventGormRepository struct {
	db *gorm.DB
}

// DI
func NewOrderEventGormRepository(db *gorm.DB) *OrderEventGormRepository {
	return &OrderEventGormRepository{db: db}
}

func (r *OrderEventGormRepository) Append(ctx context.Context, event model.OrderEvent) error {
	return r.db.WithContext(ctx).Create(&event).Error
}

func (r *OrderEventGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderEvent, error) {
	var events []model.OrderEvent
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&events).Error; err != nil {
		return []model.OrderEvent{}, err
	}
	return events, nil
}
