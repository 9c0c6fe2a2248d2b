package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusPicking   OrderStatus = "picking"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusReturned  OrderStatus = "returned"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// ErrInvalidTransition は遷移表にない状態変更。
var ErrInvalidTransition = errors.New("invalid transition")

// 許可される状態遷移。cancelled / refunded は終端。
var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated:   {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusPicking, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusPicking:   {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered},
	OrderStatusDelivered: {OrderStatusReturned, OrderStatusRefunded},
	OrderStatusReturned:  {OrderStatusRefunded},
	OrderStatusCancelled: {},
	OrderStatusRefunded:  {},
}

// 注文。作成後のヘッダーは不変で、変わるのは
// ステータス・タイムスタンプ・決済リンク・返金累計だけ。削除はしない。
type Order struct {
	ID    int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Email string `gorm:"type:varchar(254);not null;index" json:"email"`

	ShippingAddressID int64   `gorm:"not null" json:"shipping_address_id"`
	ShippingAddress   Address `gorm:"foreignKey:ShippingAddressID" json:"shipping_address"`

	Status OrderStatus `gorm:"type:varchar(20);not null;default:'created';index" json:"status"`

	//マイルストーン（最初の到達時だけ刻む）
	PaymentConfirmedAt *time.Time `json:"payment_confirmed_at,omitempty"`
	ShippedAt          *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt        *time.Time `json:"delivered_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`

	//金額スナップショット（照合用に永続化）
	Subtotal      decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"subtotal"`
	DiscountTotal decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"discount_total"`
	TaxTotal      decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"tax_total"`
	ShippingTotal decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"shipping_total"`
	Total         decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"total"`
	Currency      string          `gorm:"type:varchar(3);not null;default:'INR'" json:"currency"`

	//配送方法・クーポンのスナップショット（クーポンは生参照でなくコード文字列）
	ShippingMethodID *int64 `json:"shipping_method_id,omitempty"`
	CouponCode       string `gorm:"type:varchar(40)" json:"coupon_code"`

	//決済・出荷メタ
	PaymentProvider  string          `gorm:"type:varchar(20)" json:"payment_provider"`
	PaymentReference string          `gorm:"type:varchar(80);index" json:"payment_reference"`
	TrackingNumber   string          `gorm:"type:varchar(80);index" json:"tracking_number"`
	RefundTotal      decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"refund_total"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// CanTransition は target への遷移が許可されているか。
func (o Order) CanTransition(target OrderStatus) bool {
	for _, t := range allowedTransitions[o.Status] {
		if t == target {
			return true
		}
	}
	return false
}

// Transition は状態を進め、マイルストーンを最初の1回だけ刻む。
// 遷移表にない場合は ErrInvalidTransition で、何も変更しない。
func (o *Order) Transition(target OrderStatus, now time.Time) error {
	if !o.CanTransition(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, target)
	}
	o.Status = target
	switch target {
	case OrderStatusPaid:
		if o.PaymentConfirmedAt == nil {
			o.PaymentConfirmedAt = &now
		}
	case OrderStatusShipped:
		if o.ShippedAt == nil {
			o.ShippedAt = &now
		}
	case OrderStatusDelivered:
		if o.DeliveredAt == nil {
			o.DeliveredAt = &now
		}
	case OrderStatusCancelled:
		if o.CancelledAt == nil {
			o.CancelledAt = &now
		}
	}
	o.UpdatedAt = now
	return nil
}
