package repository

import (
	"context"

	"shop/internal/domain/model"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment model.Payment) (int64, error)
	FindByID(ctx context.Context, paymentID int64) (model.Payment, error)
	FindByProviderOrderID(ctx context.Context, provider string, providerOrderID string) (model.Payment, error)

	// 行ロック付き（webhook照合用）。event_idではなくprovider_order_idで引く。
	FindByProviderOrderIDForUpdate(ctx context.Context, provider string, providerOrderID string) (model.Payment, error)

	// 注文に紐づくcaptured済み決済を行ロック付きで取得。
	// providerPaymentIDが空なら最新の1件。
	FindCapturedForUpdate(ctx context.Context, orderID int64, providerPaymentID string) (model.Payment, error)

	Save(ctx context.Context, payment model.Payment) error
}
