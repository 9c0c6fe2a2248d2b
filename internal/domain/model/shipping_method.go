package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 配送方法。codeは大文字で保存する。
type ShippingMethod struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(120);not null" json:"name"`
	Code string `gorm:"type:varchar(60);not null;uniqueIndex" json:"code"`

	BaseRate decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"base_rate"`

	//重量加算（kgあたり、任意）
	PerKG decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"per_kg"`

	//この金額以上で送料無料（nilなら無し）
	FreeOver *decimal.Decimal `gorm:"type:numeric(10,2)" json:"free_over,omitempty"`

	IsActive  bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
