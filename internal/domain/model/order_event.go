package model

import "time"

const (
	OrderEventCreated       = "created"
	OrderEventTransition    = "transition"
	OrderEventCouponMissing = "coupon_missing"
	OrderEventPaymentFailed = "payment_failed"
	OrderEventRefund        = "refund"
	OrderEventRMARequested  = "rma_requested"
)

// 注文の監査ログ。追記専用で、変更・削除はしない。
type OrderEvent struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID int64  `gorm:"not null;index" json:"order_id"`
	Type    string `gorm:"type:varchar(32);not null" json:"type"`
	Message string `gorm:"type:text" json:"message"`

	//操作者（staff / webhook / system など）
	Actor string `gorm:"type:varchar(80)" json:"actor"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
}
