package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
)

type ShippingMethodGormRepository struct {
	db *gorm.DB
}

// DI
func NewShippingMethodGormRepository(db *gorm.DB) *ShippingMethodGormRepository {
	return &ShippingMethodGormRepository{db: db}
}

func (r *ShippingMethodGormRepository) FindActiveByID(ctx context.Context, methodID int64) (model.ShippingMethod, error) {
	var m model.ShippingMethod
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", methodID, true).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ShippingMethod{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ShippingMethod{}, err
	}
	return m, nil
}

func (r *ShippingMethodGormRepository) ListActive(ctx context.Context) ([]model.ShippingMethod, error) {
	var methods []model.ShippingMethod
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name asc").
		Find(&methods).Error; err != nil {
		return []model.ShippingMethod{}, err
	}
	return methods, nil
}
