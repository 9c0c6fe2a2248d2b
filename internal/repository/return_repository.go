package repository

import (
	"context"

	"shop/internal/domain/model"
)

type ReturnRepository interface {
	Create(ctx context.Context, rr model.ReturnRequest) (int64, error)
	ListByOrderID(ctx context.Context, orderID int64) ([]model.ReturnRequest, error)
}
