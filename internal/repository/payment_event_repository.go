package repository

import (
	"context"

	"shop/internal/domain/model"
)

// 追記専用のwebhook・監査記録。
type PaymentEventRepository interface {
	// (provider, event_id)の一意制約に当たったらErrDuplicate。
	// これが外部イベントの冪等判定になる。
	Insert(ctx context.Context, event model.PaymentEvent) (int64, error)

	// 解決できたPaymentを後から紐付ける
	AttachPayment(ctx context.Context, eventID int64, paymentID int64) error
}
