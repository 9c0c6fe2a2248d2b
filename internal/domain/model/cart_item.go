package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// カートの明細。(cart, variant)は一意で、再追加は数量更新になる。
// 追加時点の価格と属性を必ずスナップショットする。
type CartItem struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID    int64 `gorm:"not null;uniqueIndex:uq_cart_variant" json:"cart_id"`
	VariantID int64 `gorm:"not null;uniqueIndex:uq_cart_variant;index" json:"variant_id"`

	//数量（1..上限）
	Qty int64 `gorm:"not null" json:"qty"`

	//追加時点の単価
	PriceAtAdd decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price_at_add"`

	//追加時点の属性（JSON文字列で保存する）
	AttrsJSON string `gorm:"type:text" json:"attrs_json"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
