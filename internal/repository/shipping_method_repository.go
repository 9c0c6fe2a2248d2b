package repository

import (
	"context"

	"shop/internal/domain/model"
)

type ShippingMethodRepository interface {
	// is_active=trueのものだけ返す
	FindActiveByID(ctx context.Context, methodID int64) (model.ShippingMethod, error)
	ListActive(ctx context.Context) ([]model.ShippingMethod, error)
}
