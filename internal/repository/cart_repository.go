package repository

import (
	"context"
	"time"

	"shop/internal/domain/model"
)

type CartRepository interface {
	FindByID(ctx context.Context, cartID int64) (model.Cart, error)
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindBySessionID(ctx context.Context, sessionID string) (model.Cart, error)
	Create(ctx context.Context, cart model.Cart) (int64, error)

	// 行ロック付きで取得（マージ用）
	FindByIDForUpdate(ctx context.Context, cartID int64) (model.Cart, error)

	// ゲストカートをログインユーザーに付け替える
	AssignUser(ctx context.Context, cartID int64, userID int64) error

	// 適用クーポンを設定（nilで解除）
	SetCoupon(ctx context.Context, cartID int64, couponID *int64) error

	// 業務フィールドが変わらなくてもupdated_atを進める（バージョンスタンプ）
	Touch(ctx context.Context, cartID int64, now time.Time) error

	// マージ後の元カート削除用
	Delete(ctx context.Context, cartID int64) error

	// 放置された空カートの一括削除。削除件数を返す。
	DeleteStaleEmpty(ctx context.Context, untouchedSince time.Time) (int64, error)
}
