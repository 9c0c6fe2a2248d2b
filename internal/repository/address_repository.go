package repository

import (
	"context"

	"shop/internal/domain/model"
)

type AddressRepository interface {
	Create(ctx context.Context, address model.Address) (int64, error)
	FindByID(ctx context.Context, addressID int64) (model.Address, error)
}
