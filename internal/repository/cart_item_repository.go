package repository

import (
	"context"

	"shop/internal/domain/model"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)

	// 行ロック付き一覧（マージで両カートの明細セットをロックする）
	ListByCartIDForUpdate(ctx context.Context, cartID int64) ([]model.CartItem, error)

	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)
	FindByCartAndVariant(ctx context.Context, cartID int64, variantID int64) (model.CartItem, error)

	// (cart, variant)一意。既存があれば数量をセットし直す。
	Upsert(ctx context.Context, item model.CartItem) error

	UpdateQty(ctx context.Context, cartItemID int64, qty int64) error
	DeleteByID(ctx context.Context, cartItemID int64) error
	DeleteByCartID(ctx context.Context, cartID int64) error
}
