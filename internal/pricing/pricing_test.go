package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop/internal/domain/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func gstEngine() *Engine {
	return NewEngine(Config{
		TaxRatePercent:        dec("18"),
		ShippingFallbackRate:  dec("49.00"),
		FreeShippingThreshold: dec("999.00"),
	})
}

func TestPrice_NoCouponNoMethod(t *testing.T) {
	e := gstEngine()
	out := e.Price([]Line{{UnitPrice: dec("250.00"), Qty: 2}}, nil, nil)

	assert.Equal(t, "500.00", out.Subtotal.StringFixed(2))
	assert.Equal(t, "0.00", out.DiscountTotal.StringFixed(2))
	assert.Equal(t, "90.00", out.TaxTotal.StringFixed(2))
	assert.Equal(t, "49.00", out.ShippingTotal.StringFixed(2))
	assert.Equal(t, "639.00", out.GrandTotal.StringFixed(2))
}

// 小計1000・10%クーポン・GST18%・送料無料しきい値999。
// しきい値は割引前の小計で判定するので送料は無料になる。
func TestPrice_PercentCouponWithFreeShipping(t *testing.T) {
	e := gstEngine()
	coupon := &model.Coupon{Code: "FEST10", DiscountType: model.CouponTypePercentage, Value: dec("10"), IsActive: true}

	out := e.Price([]Line{{UnitPrice: dec("500.00"), Qty: 2}}, coupon, nil)

	assert.Equal(t, "1000.00", out.Subtotal.StringFixed(2))
	assert.Equal(t, "100.00", out.DiscountTotal.StringFixed(2))
	assert.Equal(t, "162.00", out.TaxTotal.StringFixed(2))
	assert.Equal(t, "0.00", out.ShippingTotal.StringFixed(2))
	assert.Equal(t, "1062.00", out.GrandTotal.StringFixed(2))
}

// 固定額クーポンは小計でキャップ。負の値は割引0。
func TestPrice_DiscountClamps(t *testing.T) {
	e := gstEngine()

	big := &model.Coupon{Code: "HUGE", DiscountType: model.CouponTypeFixed, Value: dec("5000"), IsActive: true}
	out := e.Price([]Line{{UnitPrice: dec("300.00"), Qty: 1}}, big, nil)
	assert.Equal(t, "300.00", out.DiscountTotal.StringFixed(2))
	assert.Equal(t, "0.00", out.TaxTotal.StringFixed(2))
	assert.Equal(t, "0.00", out.ShippingTotal.StringFixed(2), "nothing taxable, nothing to ship")
	assert.Equal(t, "0.00", out.GrandTotal.StringFixed(2))

	negative := &model.Coupon{Code: "NEG", DiscountType: model.CouponTypeFixed, Value: dec("-10"), IsActive: true}
	out = e.Price([]Line{{UnitPrice: dec("300.00"), Qty: 1}}, negative, nil)
	assert.Equal(t, "0.00", out.DiscountTotal.StringFixed(2))
}

func TestPrice_ZeroTaxRate(t *testing.T) {
	e := NewEngine(Config{ShippingFallbackRate: dec("49.00"), FreeShippingThreshold: dec("999.00")})
	out := e.Price([]Line{{UnitPrice: dec("100.00"), Qty: 1}}, nil, nil)
	assert.Equal(t, "0.00", out.TaxTotal.StringFixed(2))
	assert.Equal(t, "149.00", out.GrandTotal.StringFixed(2))
}

// 配送方法がある場合: base＋重量加算で、free_overは課税対象額で判定。
func TestPrice_ShippingMethodWeightAndFreeOver(t *testing.T) {
	e := gstEngine()
	freeOver := dec("2000.00")
	method := &model.ShippingMethod{
		Name:     "Surface",
		BaseRate: dec("80.00"),
		PerKG:    dec("20.00"),
		FreeOver: &freeOver,
		IsActive: true,
	}

	//80 + 20*1.5 = 110
	out := e.Price([]Line{{UnitPrice: dec("500.00"), Qty: 1, WeightKG: dec("1.5")}}, nil, method)
	assert.Equal(t, "110.00", out.ShippingTotal.StringFixed(2))

	//課税対象2000以上で無料
	out = e.Price([]Line{{UnitPrice: dec("1000.00"), Qty: 2, WeightKG: dec("1.5")}}, nil, method)
	assert.Equal(t, "0.00", out.ShippingTotal.StringFixed(2))

	//割引後がfree_overを割れば有料に戻る
	coupon := &model.Coupon{Code: "CUT", DiscountType: model.CouponTypeFixed, Value: dec("100"), IsActive: true}
	out = e.Price([]Line{{UnitPrice: dec("1000.00"), Qty: 2, WeightKG: dec("1.5")}}, coupon, method)
	assert.Equal(t, "140.00", out.ShippingTotal.StringFixed(2))
}

// 端数は四捨五入（round half up）で2桁に落とす。
func TestPrice_RoundingHalfUp(t *testing.T) {
	e := gstEngine()
	//小計33.30 → 税 5.994 → 5.99
	out := e.Price([]Line{{UnitPrice: dec("11.10"), Qty: 3}}, nil, nil)
	assert.Equal(t, "5.99", out.TaxTotal.StringFixed(2))

	//小計20.25 → 税 3.645 → 3.65（half up）
	out = e.Price([]Line{{UnitPrice: dec("20.25"), Qty: 1}}, nil, nil)
	assert.Equal(t, "3.65", out.TaxTotal.StringFixed(2))
}

// 総計の恒等式: grand = taxable + tax + shipping。
func TestPrice_GrandTotalIdentity(t *testing.T) {
	e := gstEngine()
	coupon := &model.Coupon{Code: "FEST10", DiscountType: model.CouponTypePercentage, Value: dec("10"), IsActive: true}

	cases := [][]Line{
		{{UnitPrice: dec("1.00"), Qty: 1}},
		{{UnitPrice: dec("333.33"), Qty: 3, WeightKG: dec("0.2")}},
		{{UnitPrice: dec("999.00"), Qty: 1}, {UnitPrice: dec("0.01"), Qty: 5}},
	}
	for _, lines := range cases {
		out := e.Price(lines, coupon, nil)
		taxable := out.Subtotal.Sub(out.DiscountTotal)
		want := taxable.Add(out.TaxTotal).Add(out.ShippingTotal).Round(2)
		assert.True(t, out.GrandTotal.Equal(want), "grand=%s want=%s", out.GrandTotal, want)
	}
}

// PriceAtは適用不可クーポンを割引0として扱い、理由を返す。
func TestPriceAt_InapplicableCouponReported(t *testing.T) {
	e := gstEngine()
	ends := time.Now().Add(-time.Hour)
	expired := &model.Coupon{Code: "OLD", DiscountType: model.CouponTypeFixed, Value: dec("50"), EndsAt: &ends, IsActive: true}

	out, reason := e.PriceAt([]Line{{UnitPrice: dec("500.00"), Qty: 1}}, expired, nil, time.Now())
	assert.Equal(t, "Coupon has expired.", reason)
	assert.Equal(t, "0.00", out.DiscountTotal.StringFixed(2))

	require.NotEmpty(t, reason)
	valid := &model.Coupon{Code: "OK", DiscountType: model.CouponTypeFixed, Value: dec("50"), IsActive: true}
	out, reason = e.PriceAt([]Line{{UnitPrice: dec("500.00"), Qty: 1}}, valid, nil, time.Now())
	assert.Empty(t, reason)
	assert.Equal(t, "50.00", out.DiscountTotal.StringFixed(2))
}
