package model

import "time"

type PaymentStatus string

const (
	PaymentStatusCreated         PaymentStatus = "created"
	PaymentStatusAuthorized      PaymentStatus = "authorized"
	PaymentStatusCaptured        PaymentStatus = "captured"
	PaymentStatusFailed          PaymentStatus = "failed"
	PaymentStatusRefunded        PaymentStatus = "refunded"
	PaymentStatusPartialRefunded PaymentStatus = "partial_refunded"
)

// 決済。プロバイダの注文（intent）ごとに1行で、注文から1:Nでぶら下がる。
// 金額は丸め誤差を避けるためpaise（最小単位の整数）で持つ。
// (provider, provider_order_id) と、あるときは (provider, provider_payment_id) が一意。
type Payment struct {
	ID      int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID int64 `gorm:"not null;index" json:"order_id"`

	Provider string `gorm:"type:varchar(30);not null;default:'razorpay';uniqueIndex:uq_provider_order;index" json:"provider"`

	ProviderOrderID   string  `gorm:"type:varchar(120);not null;uniqueIndex:uq_provider_order;index" json:"provider_order_id"`
	ProviderPaymentID *string `gorm:"type:varchar(120);index" json:"provider_payment_id,omitempty"`

	Status PaymentStatus `gorm:"type:varchar(30);not null;default:'created';index" json:"status"`

	//paise
	AmountPaise int64  `gorm:"not null" json:"amount_paise"`
	Currency    string `gorm:"type:varchar(10);not null;default:'INR'" json:"currency"`

	//返金の累計（amount_paiseが上限）
	RefundID          string `gorm:"type:varchar(120)" json:"refund_id"`
	RefundAmountPaise int64  `gorm:"not null;default:0" json:"refund_amount_paise"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// FullyRefunded は全額返金済みか。
func (p Payment) FullyRefunded() bool {
	return p.RefundAmountPaise >= p.AmountPaise
}

// Webhookと監査の生イベント。(provider, event_id)が外部コールバックの冪等キー。
type PaymentEvent struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//解決できなかったイベントも捨てない（payment_id=nullで残す）
	PaymentID *int64 `gorm:"index" json:"payment_id,omitempty"`

	Provider  string `gorm:"type:varchar(30);not null;uniqueIndex:uq_provider_event" json:"provider"`
	EventID   string `gorm:"type:varchar(128);not null;uniqueIndex:uq_provider_event" json:"event_id"`
	EventType string `gorm:"type:varchar(60);not null;index" json:"event_type"`

	Signature string `gorm:"type:varchar(256)" json:"signature"`

	//生ペイロード（JSON文字列で保存する）
	PayloadJSON string `gorm:"type:text" json:"payload_json"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
}
