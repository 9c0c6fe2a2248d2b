package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CouponType string

const (
	CouponTypePercentage CouponType = "percentage"
	CouponTypeFixed      CouponType = "fixed"
)

// クーポン。codeは大文字で保存し、比較は大文字小文字を無視する。
// max_usesがあるときused_countは絶対にそれを超えない（加算はガード付きUPDATEのみ）。
type Coupon struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Code string `gorm:"type:varchar(40);not null;uniqueIndex" json:"code"`

	DiscountType CouponType      `gorm:"type:varchar(20);not null" json:"discount_type"`
	Value        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"value"`

	//有効期間（どちらも任意）
	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`

	//注文小計の下限・上限（任意）
	MinSubtotal *decimal.Decimal `gorm:"type:numeric(10,2)" json:"min_subtotal,omitempty"`
	MaxSubtotal *decimal.Decimal `gorm:"type:numeric(10,2)" json:"max_subtotal,omitempty"`

	//使用回数上限（nilなら無制限）
	MaxUses   *int64 `json:"max_uses,omitempty"`
	UsedCount int64  `gorm:"not null;default:0" json:"used_count"`

	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// NormalizeCouponCode は保存・照合用にコードを整える。
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CanApply は適用可否を純粋にチェックする（DB書き込みなし）。
// 失敗理由は 無効→未開始→期限切れ→使用上限→下限→上限 の順で最初の1つを返す。
// 使用上限を金額条件より先に見るのは意図した順序（複数該当時に返る文言だけが変わる）。
func (c Coupon) CanApply(subtotal decimal.Decimal, now time.Time) (bool, string) {
	if !c.IsActive {
		return false, "Coupon is not active."
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return false, "Coupon is not active yet."
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return false, "Coupon has expired."
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return false, "Coupon usage limit reached."
	}
	if c.MinSubtotal != nil && subtotal.LessThan(*c.MinSubtotal) {
		return false, "Order does not meet minimum subtotal."
	}
	if c.MaxSubtotal != nil && subtotal.GreaterThan(*c.MaxSubtotal) {
		return false, "Order subtotal is too high for this coupon."
	}
	return true, ""
}

// Discount は割引額を返す（subtotalでキャップ、負にはしない）。
func (c Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	var amt decimal.Decimal
	if c.DiscountType == CouponTypePercentage {
		pct := c.Value
		if pct.IsNegative() {
			pct = decimal.Zero
		}
		amt = subtotal.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
	} else {
		amt = c.Value
	}
	if amt.IsNegative() {
		return decimal.Zero
	}
	if amt.GreaterThan(subtotal) {
		return subtotal
	}
	return amt
}

// クーポン利用の追記専用記録。成功した引き換えごとに1行、変更・削除はしない。
type CouponRedemption struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CouponID int64     `gorm:"not null;index" json:"coupon_id"`
	Email    string    `gorm:"type:varchar(254);not null;index" json:"email"`
	OrderID  int64     `gorm:"not null;index" json:"order_id"`
	UsedAt   time.Time `gorm:"not null;autoCreateTime" json:"used_at"`
}
