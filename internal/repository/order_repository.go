package repository

import (
	"context"

	"shop/internal/domain/model"
)

type OrderRepository interface {
	Create(ctx context.Context, order model.Order) (int64, error)
	FindByID(ctx context.Context, orderID int64) (model.Order, error)

	// 行ロック付き取得（状態遷移・返金用）
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)

	ListByEmail(ctx context.Context, email string) ([]model.Order, error)
	FindByIDAndEmail(ctx context.Context, orderID int64, email string) (model.Order, error)

	// ステータス・タイムスタンプ・決済リンク・返金累計だけを書き戻す
	Save(ctx context.Context, order model.Order) error
}
