package repository

import (
	"context"

	"gorm.io/gorm"

	"shop/internal/domain/model"
)

type ReturnGormRepository struct {
	db *gorm.DB
}

// DI
func NewReturnGormRepository(db *gorm.DB) *ReturnGormRepository {
	return &ReturnGormRepository{db: db}
}

func (r *ReturnGormRepository) Create(ctx context.Context, rr model.ReturnRequest) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&rr).Error; err != nil {
		return 0, err
	}
	return rr.ID, nil
}

func (r *ReturnGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.ReturnRequest, error) {
	var rows []model.ReturnRequest
	if err := r.db.WithContext(ctx).
		Joins("JOIN order_items ON order_items.id = return_requests.order_item_id").
		Where("order_items.order_id = ?", orderID).
		Order("return_requests.id desc").
		Find(&rows).Error; err != nil {
		return []model.ReturnRequest{}, err
	}
	return rows, nil
}
