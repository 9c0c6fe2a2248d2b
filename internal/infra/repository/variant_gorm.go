package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
)

type VariantGormRepository struct {
	db *gorm.DB
}

// DI
func NewVariantGormRepository(db *gorm.DB) *VariantGormRepository {
	return &VariantGormRepository{db: db}
}

func (r *VariantGormRepository) FindByID(ctx context.Context, variantID int64) (model.ProductVariant, error) {
	var v model.ProductVariant
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("id = ?", variantID).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ProductVariant{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ProductVariant{}, err
	}
	return v, nil
}

func (r *VariantGormRepository) FindByIDs(ctx context.Context, variantIDs []int64) ([]model.ProductVariant, error) {
	var vs []model.ProductVariant
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Where("id IN ?", variantIDs).
		Order("id asc").
		Find(&vs).Error; err != nil {
		return []model.ProductVariant{}, err
	}
	return vs, nil
}

func (r *VariantGormRepository) FindPrimaryImage(ctx context.Context, productID int64) (model.ProductImage, error) {
	var img model.ProductImage
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND is_primary = ?", productID, true).
		First(&img).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ProductImage{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ProductImage{}, err
	}
	return img, nil
}

func (r *VariantGormRepository) FindFirstImage(ctx context.Context, productID int64) (model.ProductImage, error) {
	var img model.ProductImage
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("sort asc, id asc").
		First(&img).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ProductImage{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ProductImage{}, err
	}
	return img, nil
}
