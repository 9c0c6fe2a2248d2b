package repository

import (
	"context"

	"shop/internal/domain/model"
)

// 追記専用。更新・削除は提供しない。
type OrderEventRepository interface {
	Append(ctx context.Context, event model.OrderEvent) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderEvent, error)
}
