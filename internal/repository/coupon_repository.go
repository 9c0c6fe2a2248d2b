package repository

import (
	"context"

	"shop/internal/domain/model"
)

type CouponRepository interface {
	FindByID(ctx context.Context, couponID int64) (model.Coupon, error)

	// codeは大文字化して照合する
	FindByCode(ctx context.Context, code string) (model.Coupon, error)

	// 引き換え。行ロック下で used_count < max_uses を再確認してから
	// 加算し、CouponRedemptionを1行追加する。上限到達ならfalse（no-op）。
	// 最後の1枠に同時に来ても成功は必ず1つ。
	Redeem(ctx context.Context, couponID int64, email string, orderID int64) (bool, error)
}
