package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"shop/internal/domain/model"
	"shop/internal/infra/stream"
	"shop/internal/pricing"
	repo "shop/internal/repository"
)

// CheckoutUsecase はカートを不変の注文に変換する。
// 在庫ロック・注文作成・カートクリアを1トランザクションで行い、途中で
// 失敗したら何も残さない。
type CheckoutUsecase struct {
	txm           repo.TransactionManager
	cartRepo      repo.CartRepository
	cartItemRepo  repo.CartItemRepository
	couponRepo    repo.CouponRepository
	inventoryRepo repo.InventoryRepository
	variantRepo   repo.VariantRepository
	shippingRepo  repo.ShippingMethodRepository
	engine        *pricing.Engine
	producer      *stream.Producer

	currency string
}

func NewCheckoutUsecase(
	txm repo.TransactionManager,
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	couponRepo repo.CouponRepository,
	inventoryRepo repo.InventoryRepository,
	variantRepo repo.VariantRepository,
	shippingRepo repo.ShippingMethodRepository,
	engine *pricing.Engine,
	producer *stream.Producer,
	currency string,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		txm:           txm,
		cartRepo:      cartRepo,
		cartItemRepo:  cartItemRepo,
		couponRepo:    couponRepo,
		inventoryRepo: inventoryRepo,
		variantRepo:   variantRepo,
		shippingRepo:  shippingRepo,
		engine:        engine,
		producer:      producer,
		currency:      currency,
	}
}

type CheckoutAddressInput struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type CheckoutInput struct {
	Email            string               `json:"email"`
	Address          CheckoutAddressInput `json:"shipping_address"`
	ShippingMethodID *int64               `json:"shipping_method_id,omitempty"`
	CouponCode       string               `json:"coupon_code,omitempty"`
}

type OrderItemResponse struct {
	ID        int64  `json:"id"`
	VariantID int64  `json:"variant_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Qty       int64  `json:"qty"`
	Price     string `json:"price"`
	LineTotal string `json:"line_total"`
	ImageURL  string `json:"image_url,omitempty"`
}

type OrderResponse struct {
	ID         int64               `json:"id"`
	Email      string              `json:"email"`
	Status     model.OrderStatus   `json:"status"`
	Totals     pricing.Totals      `json:"totals"`
	Currency   string              `json:"currency"`
	CouponCode string              `json:"coupon_code,omitempty"`
	Items      []OrderItemResponse `json:"items"`
	CreatedAt  time.Time           `json:"created_at"`
}

// Checkout はチェックアウト本体。成功で201相当の注文スナップショットを返す。
//   - カート空・無効クーポン・無効配送方法 → 400
//   - 在庫の競合 → 409（注文も在庫減算も一切残らない）
func (u *CheckoutUsecase) Checkout(ctx context.Context, owner CartOwner, in CheckoutInput) (OrderResponse, error) {
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return OrderResponse{}, NewHTTPError(http.StatusBadRequest, "invalid email")
	}
	if in.Address.FullName == "" || in.Address.Line1 == "" || in.Address.City == "" || in.Address.PostalCode == "" {
		return OrderResponse{}, NewHTTPError(http.StatusBadRequest, "incomplete shipping address")
	}

	cart, err := u.findCart(ctx, owner)
	if err != nil {
		return OrderResponse{}, err
	}

	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return OrderResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(items) == 0 {
		return OrderResponse{}, NewHTTPError(http.StatusBadRequest, "Cart is empty.")
	}

	variantIDs := make([]int64, 0, len(items))
	for _, it := range items {
		variantIDs = append(variantIDs, it.VariantID)
	}
	sort.Slice(variantIDs, func(i, j int) bool { return variantIDs[i] < variantIDs[j] })

	variants, err := u.loadVariants(ctx, variantIDs)
	if err != nil {
		return OrderResponse{}, err
	}

	//クーポン解決（リクエストのコード優先、無ければカートに付いているもの）
	now := time.Now()
	coupon, err := u.resolveCoupon(ctx, cart, in.CouponCode)
	if err != nil {
		return OrderResponse{}, err
	}
	if coupon != nil {
		subtotal := cartLinesSubtotal(items)
		if ok, reason := coupon.CanApply(subtotal, now); !ok {
			return OrderResponse{}, NewHTTPError(http.StatusBadRequest, reason)
		}
	}

	var method *model.ShippingMethod
	if in.ShippingMethodID != nil {
		m, err := u.shippingRepo.FindActiveByID(ctx, *in.ShippingMethodID)
		if err == repo.ErrNotFound {
			return OrderResponse{}, NewHTTPError(http.StatusBadRequest, "invalid shipping method")
		}
		if err != nil {
			return OrderResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		method = &m
	}

	//ロック前の軽量チェック。早くエラーを返すためだけで、正はTx内の再チェック。
	preStock, err := u.inventoryRepo.FindByVariantIDs(ctx, variantIDs)
	if err != nil {
		return OrderResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if err := checkStock(items, variants, preStock, http.StatusBadRequest); err != nil {
		return OrderResponse{}, err
	}

	var (
		orderID int64
		resp    OrderResponse
		created model.OrderEvent
	)
	err = u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		//在庫行をvariant_id昇順でロックして再チェック（これが正）
		locked, err := r.Inventory().LockByVariantIDs(ctx, variantIDs)
		if err != nil {
			return err
		}
		if err := checkStock(items, variants, locked, http.StatusConflict); err != nil {
			return err
		}

		addrID, err := r.Addresses().Create(ctx, buildAddress(in.Address))
		if err != nil {
			return err
		}

		//ロック下で再計算した金額をスナップショットする（古い合計を使わない）
		lines := make([]pricing.Line, 0, len(items))
		for _, it := range items {
			lines = append(lines, pricing.Line{
				UnitPrice: it.PriceAtAdd,
				Qty:       it.Qty,
				WeightKG:  variants[it.VariantID].WeightKG,
			})
		}
		totals := u.engine.Price(lines, coupon, method)

		order := model.Order{
			Email:             in.Email,
			ShippingAddressID: addrID,
			Status:            model.OrderStatusCreated,
			Subtotal:          totals.Subtotal,
			DiscountTotal:     totals.DiscountTotal,
			TaxTotal:          totals.TaxTotal,
			ShippingTotal:     totals.ShippingTotal,
			Total:             totals.GrandTotal,
			Currency:          u.currency,
			ShippingMethodID:  in.ShippingMethodID,
			CreatedAt:         now,
		}
		if coupon != nil {
			order.CouponCode = coupon.Code
		}
		orderID, err = r.Orders().Create(ctx, order)
		if err != nil {
			return err
		}

		//明細スナップショット（あとでカタログを編集しても注文は変わらない）
		orderItems := make([]model.OrderItem, 0, len(items))
		for _, it := range items {
			v := variants[it.VariantID]
			orderItems = append(orderItems, model.OrderItem{
				OrderID:   orderID,
				VariantID: it.VariantID,
				SKU:       v.SKU,
				Name:      v.Product.Name,
				AttrsJSON: it.AttrsJSON,
				Price:     it.PriceAtAdd,
				Qty:       it.Qty,
				LineTotal: it.PriceAtAdd.Mul(decimal.NewFromInt(it.Qty)).Round(2),
				ImageURL:  resolveImageURL(ctx, r.Variants(), v),
			})
		}
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return err
		}

		//取り寄せ不可の明細だけ在庫を減らす。
		//ロック済みでも、guarded UPDATEが失敗したら競合として全体を巻き戻す。
		lockedByVariant := make(map[int64]model.Inventory, len(locked))
		for _, inv := range locked {
			lockedByVariant[inv.VariantID] = inv
		}
		for _, it := range items {
			inv, ok := lockedByVariant[it.VariantID]
			if !ok || inv.AllowsBackorder() {
				continue
			}
			decremented, err := r.Inventory().DecreaseStockIfAvailable(ctx, it.VariantID, it.Qty)
			if err != nil {
				return err
			}
			if !decremented {
				return NewHTTPError(http.StatusConflict,
					fmt.Sprintf("Race detected on SKU %s. Please retry.", variants[it.VariantID].SKU))
			}
		}

		//カートを空にしてクーポンを外す。カート自体は残して使い回す。
		if err := r.CartItems().DeleteByCartID(ctx, cart.ID); err != nil {
			return err
		}
		if err := r.Carts().SetCoupon(ctx, cart.ID, nil); err != nil {
			return err
		}

		created = model.OrderEvent{
			OrderID:   orderID,
			Type:      model.OrderEventCreated,
			Message:   fmt.Sprintf("Order created. Total %s %s", u.currency, totals.GrandTotal.StringFixed(2)),
			Actor:     "system",
			CreatedAt: now,
		}
		if err := r.OrderEvents().Append(ctx, created); err != nil {
			return err
		}

		resp = OrderResponse{
			ID:         orderID,
			Email:      in.Email,
			Status:     model.OrderStatusCreated,
			Totals:     totals,
			Currency:   u.currency,
			CouponCode: order.CouponCode,
			Items:      buildItemResponses(orderItems),
			CreatedAt:  now,
		}
		return nil
	})
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return OrderResponse{}, he
		}
		slog.Error("checkout failed", "cart_id", cart.ID, "error", err)
		return OrderResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//コミット後にだけ外へ流す
	u.producer.PublishOrderEvent(created)

	return resp, nil
}

func (u *CheckoutUsecase) findCart(ctx context.Context, owner CartOwner) (model.Cart, error) {
	var (
		cart model.Cart
		err  error
	)
	switch {
	case owner.UserID != nil && *owner.UserID > 0:
		cart, err = u.cartRepo.FindByUserID(ctx, *owner.UserID)
	case owner.SessionID != "":
		cart, err = u.cartRepo.FindBySessionID(ctx, owner.SessionID)
	default:
		return model.Cart{}, NewHTTPError(http.StatusBadRequest, "no cart owner")
	}
	if err == repo.ErrNotFound {
		return model.Cart{}, NewHTTPError(http.StatusBadRequest, "Cart is empty.")
	}
	if err != nil {
		return model.Cart{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return cart, nil
}

func (u *CheckoutUsecase) loadVariants(ctx context.Context, variantIDs []int64) (map[int64]model.ProductVariant, error) {
	vs, err := u.variantRepo.FindByIDs(ctx, variantIDs)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	byID := make(map[int64]model.ProductVariant, len(vs))
	for _, v := range vs {
		byID[v.ID] = v
	}
	for _, id := range variantIDs {
		if _, ok := byID[id]; !ok {
			return nil, NewHTTPError(http.StatusNotFound, "variant not found")
		}
	}
	return byID, nil
}

func (u *CheckoutUsecase) resolveCoupon(ctx context.Context, cart model.Cart, code string) (*model.Coupon, error) {
	if code != "" {
		c, err := u.couponRepo.FindByCode(ctx, model.NormalizeCouponCode(code))
		if err == repo.ErrNotFound {
			return nil, NewHTTPError(http.StatusBadRequest, "invalid coupon")
		}
		if err != nil {
			return nil, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return &c, nil
	}
	if cart.CouponID == nil {
		return nil, nil
	}
	c, err := u.couponRepo.FindByID(ctx, *cart.CouponID)
	if err == repo.ErrNotFound {
		//カートに付いたまま消されたクーポンは無視する
		return nil, nil
	}
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return &c, nil
}

// checkStock は全明細の在庫を確かめ、最初に足りないSKUでエラーを返す。
// ロック前チェックは400、ロック後の正チェックは409で使う。
func checkStock(items []model.CartItem, variants map[int64]model.ProductVariant, stocks []model.Inventory, status int) error {
	byVariant := make(map[int64]model.Inventory, len(stocks))
	for _, inv := range stocks {
		byVariant[inv.VariantID] = inv
	}
	for _, it := range items {
		inv, ok := byVariant[it.VariantID]
		if !ok {
			return NewHTTPError(status,
				fmt.Sprintf("Insufficient stock for SKU %s. Available: 0.", variants[it.VariantID].SKU))
		}
		if inv.AllowsBackorder() {
			continue
		}
		if it.Qty > inv.QtyAvailable {
			return NewHTTPError(status,
				fmt.Sprintf("Insufficient stock for SKU %s. Available: %d.", variants[it.VariantID].SKU, inv.QtyAvailable))
		}
	}
	return nil
}

func cartLinesSubtotal(items []model.CartItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.PriceAtAdd.Mul(decimal.NewFromInt(it.Qty)))
	}
	return subtotal.Round(2)
}

func buildAddress(in CheckoutAddressInput) model.Address {
	country := in.Country
	if country == "" {
		country = "IN"
	}
	return model.Address{
		FullName:   in.FullName,
		Phone:      in.Phone,
		Line1:      in.Line1,
		Line2:      in.Line2,
		City:       in.City,
		State:      in.State,
		PostalCode: in.PostalCode,
		Country:    country,
	}
}

func buildItemResponses(items []model.OrderItem) []OrderItemResponse {
	out := make([]OrderItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, OrderItemResponse{
			ID:        it.ID,
			VariantID: it.VariantID,
			SKU:       it.SKU,
			Name:      it.Name,
			Qty:       it.Qty,
			Price:     it.Price.StringFixed(2),
			LineTotal: it.LineTotal.StringFixed(2),
			ImageURL:  it.ImageURL,
		})
	}
	return out
}
