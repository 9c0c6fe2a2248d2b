package repository

import (
	"context"

	"shop/internal/domain/model"
)

type InventoryRepository interface {
	FindByVariantIDs(ctx context.Context, variantIDs []int64) ([]model.Inventory, error)

	// 行ロック付き取得。デッドロック回避のためvariant_id昇順でロックする。
	LockByVariantIDs(ctx context.Context, variantIDs []int64) ([]model.Inventory, error)

	// 在庫が足りるときだけ減算。足りなければfalse（変更なし）。
	DecreaseStockIfAvailable(ctx context.Context, variantID int64, qty int64) (bool, error)
}
