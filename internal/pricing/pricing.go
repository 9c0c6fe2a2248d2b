package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"shop/internal/domain/model"
)

// Config は価格計算の設定。グローバル設定は持たず、生成時に渡す。
type Config struct {
	//税率（% 例: 18 → 18%）
	TaxRatePercent decimal.Decimal

	//配送方法未指定時のフォールバック送料
	ShippingFallbackRate decimal.Decimal

	//この金額以上でフォールバック送料が無料
	FreeShippingThreshold decimal.Decimal
}

// Line は価格計算に渡す明細（単価×数量＋重量）。
type Line struct {
	UnitPrice decimal.Decimal
	Qty       int64
	WeightKG  decimal.Decimal
}

// Totals は計算結果。すべて2桁・四捨五入（round half up）済み。
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	ShippingTotal decimal.Decimal `json:"shipping_total"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
}

// Engine はカートの合計金額を計算する。副作用なし。
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

var hundred = decimal.NewFromInt(100)

func round2(x decimal.Decimal) decimal.Decimal {
	return x.Round(2)
}

// Price は小計→割引→税→送料→総計の順に計算する。
//   - 割引は[0, subtotal]にクランプ
//   - taxable = max(subtotal - discount, 0)
//   - taxableが0なら送料も0
//   - 配送方法があればbase_rate＋重量加算、taxableがfree_over以上で0
//   - 無ければフォールバック送料（割引前の小計がしきい値以上で無料）
func (e *Engine) Price(lines []Line, coupon *model.Coupon, method *model.ShippingMethod) Totals {
	subtotal := decimal.Zero
	weight := decimal.Zero
	for _, l := range lines {
		qty := decimal.NewFromInt(l.Qty)
		subtotal = subtotal.Add(l.UnitPrice.Mul(qty))
		weight = weight.Add(l.WeightKG.Mul(qty))
	}

	discount := decimal.Zero
	if coupon != nil {
		discount = coupon.Discount(subtotal)
	}

	taxable := subtotal.Sub(discount)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}

	tax := decimal.Zero
	if !e.cfg.TaxRatePercent.IsZero() {
		tax = round2(taxable.Mul(e.cfg.TaxRatePercent).Div(hundred))
	}

	shipping := decimal.Zero
	switch {
	case taxable.IsZero():
		//送るものが無い
	case method != nil:
		rate := method.BaseRate
		if !method.PerKG.IsZero() {
			rate = rate.Add(method.PerKG.Mul(weight))
		}
		if method.FreeOver != nil && !method.FreeOver.IsZero() && taxable.GreaterThanOrEqual(*method.FreeOver) {
			rate = decimal.Zero
		}
		shipping = round2(rate)
	case subtotal.GreaterThanOrEqual(e.cfg.FreeShippingThreshold):
		//しきい値以上は無料
	default:
		shipping = round2(e.cfg.ShippingFallbackRate)
	}

	grand := taxable.Add(tax).Add(shipping)
	if grand.IsNegative() {
		grand = decimal.Zero
	}

	return Totals{
		Subtotal:      round2(subtotal),
		DiscountTotal: round2(discount),
		TaxTotal:      round2(tax),
		ShippingTotal: round2(shipping),
		GrandTotal:    round2(grand),
	}
}

// PriceAt はクーポンの適用可否チェック付きで計算する。
// 適用できないクーポンは割引0として扱い、理由を返す。
func (e *Engine) PriceAt(lines []Line, coupon *model.Coupon, method *model.ShippingMethod, now time.Time) (Totals, string) {
	if coupon == nil {
		return e.Price(lines, nil, method), ""
	}
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(l.Qty)))
	}
	if ok, reason := coupon.CanApply(round2(subtotal), now); !ok {
		return e.Price(lines, nil, method), reason
	}
	return e.Price(lines, coupon, method), ""
}
