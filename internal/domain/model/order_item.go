package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文明細。注文作成時点のスナップショットで、以後カタログを編集しても変わらない。
type OrderItem struct {
	ID      int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID int64 `gorm:"not null;index" json:"order_id"`

	VariantID int64  `gorm:"not null;index" json:"variant_id"`
	SKU       string `gorm:"type:varchar(64);not null" json:"sku"`
	Name      string `gorm:"type:varchar(180);not null" json:"name"`

	//追加時点の属性（JSON文字列）
	AttrsJSON string `gorm:"type:text" json:"attrs_json"`

	Price     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Qty       int64           `gorm:"not null" json:"qty"`
	LineTotal decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"line_total"`

	//表示用の画像スナップショット
	ImageURL string `gorm:"type:varchar(500)" json:"image_url"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
