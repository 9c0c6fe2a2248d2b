package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestNormalizeCouponCode(t *testing.T) {
	assert.Equal(t, "WELCOME10", NormalizeCouponCode("  welcome10 "))
	assert.Equal(t, "FEST-2026", NormalizeCouponCode("fest-2026"))
	assert.Equal(t, "", NormalizeCouponCode("   "))
}

// 失敗理由は 無効→未開始→期限切れ→使用上限→下限→上限 の順で最初の1つ。
func TestCouponCanApply_ReasonOrder(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)
	maxUses := int64(1)
	min := d("500")
	max := d("2000")

	cases := []struct {
		name   string
		coupon Coupon
		sub    string
		reason string
	}{
		{
			name:   "inactive wins over everything",
			coupon: Coupon{IsActive: false, StartsAt: &future, MaxUses: &maxUses, UsedCount: 1},
			sub:    "1000",
			reason: "Coupon is not active.",
		},
		{
			name:   "not started yet",
			coupon: Coupon{IsActive: true, StartsAt: &future},
			sub:    "1000",
			reason: "Coupon is not active yet.",
		},
		{
			name:   "expired",
			coupon: Coupon{IsActive: true, EndsAt: &past},
			sub:    "1000",
			reason: "Coupon has expired.",
		},
		{
			name:   "usage cap reached",
			coupon: Coupon{IsActive: true, MaxUses: &maxUses, UsedCount: 1, MinSubtotal: &min},
			sub:    "100",
			reason: "Coupon usage limit reached.",
		},
		{
			name:   "below minimum subtotal",
			coupon: Coupon{IsActive: true, MinSubtotal: &min},
			sub:    "499.99",
			reason: "Order does not meet minimum subtotal.",
		},
		{
			name:   "above maximum subtotal",
			coupon: Coupon{IsActive: true, MaxSubtotal: &max},
			sub:    "2000.01",
			reason: "Order subtotal is too high for this coupon.",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ok, reason := c.coupon.CanApply(d(c.sub), now)
			assert.False(t, ok)
			assert.Equal(t, c.reason, reason)
		})
	}
}

func TestCouponCanApply_BoundariesInclusive(t *testing.T) {
	now := time.Now()
	min := d("500")
	max := d("2000")
	c := Coupon{IsActive: true, MinSubtotal: &min, MaxSubtotal: &max}

	ok, _ := c.CanApply(d("500"), now)
	assert.True(t, ok, "min boundary is inclusive")
	ok, _ = c.CanApply(d("2000"), now)
	assert.True(t, ok, "max boundary is inclusive")
}

func TestCouponDiscount_Percentage(t *testing.T) {
	c := Coupon{DiscountType: CouponTypePercentage, Value: d("10")}
	assert.Equal(t, "100.00", c.Discount(d("1000")).StringFixed(2))

	//端数は2桁に四捨五入
	assert.Equal(t, "99.91", c.Discount(d("999.05")).StringFixed(2))
}

func TestCouponDiscount_Clamps(t *testing.T) {
	//固定額は小計でキャップ
	c := Coupon{DiscountType: CouponTypeFixed, Value: d("500")}
	assert.Equal(t, "300.00", c.Discount(d("300")).StringFixed(2))

	//負の値は0に
	c = Coupon{DiscountType: CouponTypeFixed, Value: d("-50")}
	assert.True(t, c.Discount(d("300")).IsZero())
	c = Coupon{DiscountType: CouponTypePercentage, Value: d("-10")}
	assert.True(t, c.Discount(d("300")).IsZero())
}
