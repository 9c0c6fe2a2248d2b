package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 商品。閲覧・検索APIは対象外で、スナップショットと画像解決のために持つ。
type Product struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"type:varchar(180);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	//商品レベルの画像URL（バリアント側に無いときのフォールバック）
	ImageURL string `gorm:"type:varchar(500)" json:"image_url"`

	IsActive  bool           `gorm:"not null;default:false" json:"is_active"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// 商品バリアント（SKU単位）。
type ProductVariant struct {
	ID        int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64   `gorm:"not null;index" json:"product_id"`
	Product   Product `gorm:"foreignKey:ProductID" json:"-"`
	SKU       string  `gorm:"type:varchar(64);not null;uniqueIndex" json:"sku"`

	//定価
	PriceMRP decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price_mrp"`

	//販売価格（無ければ定価を使う）
	PriceSale *decimal.Decimal `gorm:"type:numeric(10,2)" json:"price_sale,omitempty"`

	//配送料の重量加算用（kg）
	WeightKG decimal.Decimal `gorm:"type:numeric(10,3);not null;default:0" json:"weight_kg"`

	//バリアント属性（JSON文字列で保存する）
	AttrsJSON string `gorm:"type:text" json:"attrs_json"`

	//バリアントレベルの画像URL
	ImageURL string `gorm:"type:varchar(500)" json:"image_url"`

	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// UnitPrice は販売価格があればそれ、無ければ定価。
func (v ProductVariant) UnitPrice() decimal.Decimal {
	if v.PriceSale != nil && !v.PriceSale.IsZero() {
		return *v.PriceSale
	}
	return v.PriceMRP
}

// 商品画像。is_primaryは商品ごとに1枚だけ。
type ProductImage struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64  `gorm:"not null;index" json:"product_id"`
	URL       string `gorm:"type:varchar(500);not null" json:"url"`
	AltText   string `gorm:"type:varchar(180)" json:"alt_text"`
	IsPrimary bool   `gorm:"not null;default:false" json:"is_primary"`
	Sort      int64  `gorm:"not null;default:0" json:"sort"`
}
