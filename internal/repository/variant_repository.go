package repository

import (
	"context"

	"shop/internal/domain/model"
)

type VariantRepository interface {
	// Product込みで取得
	FindByID(ctx context.Context, variantID int64) (model.ProductVariant, error)
	FindByIDs(ctx context.Context, variantIDs []int64) ([]model.ProductVariant, error)

	// 画像解決チェーン用
	FindPrimaryImage(ctx context.Context, productID int64) (model.ProductImage, error)
	FindFirstImage(ctx context.Context, productID int64) (model.ProductImage, error)
}
