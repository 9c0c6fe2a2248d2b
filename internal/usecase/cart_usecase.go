package usecase

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"shop/internal/domain/model"
	"shop/internal/pricing"
	repo "shop/internal/repository"
)

// CartOwner はカートの持ち主。会員（UserID）か匿名セッションのどちらか。
type CartOwner struct {
	UserID    *int64
	SessionID string
}

// CartUsecase はカートの業務ロジック。
// マージだけはトランザクション必須なのでTransactionManagerを持つ。
type CartUsecase struct {
	txm           repo.TransactionManager
	cartRepo      repo.CartRepository
	cartItemRepo  repo.CartItemRepository
	couponRepo    repo.CouponRepository
	inventoryRepo repo.InventoryRepository
	variantRepo   repo.VariantRepository
	engine        *pricing.Engine

	maxQty        int64
	mergeStrategy model.CartMergeStrategy
}

func NewCartUsecase(
	txm repo.TransactionManager,
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	couponRepo repo.CouponRepository,
	inventoryRepo repo.InventoryRepository,
	variantRepo repo.VariantRepository,
	engine *pricing.Engine,
	maxQty int64,
	mergeStrategy model.CartMergeStrategy,
) *CartUsecase {
	return &CartUsecase{
		txm:           txm,
		cartRepo:      cartRepo,
		cartItemRepo:  cartItemRepo,
		couponRepo:    couponRepo,
		inventoryRepo: inventoryRepo,
		variantRepo:   variantRepo,
		engine:        engine,
		maxQty:        maxQty,
		mergeStrategy: mergeStrategy,
	}
}

type CartItemResponse struct {
	ID        int64           `json:"id"`
	VariantID int64           `json:"variant_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Qty       int64           `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	AttrsJSON string          `json:"attrs,omitempty"`

	//取り寄せ（notifyポリシーで在庫超過のとき）
	Backordered bool       `json:"backordered,omitempty"`
	RestockETA  *time.Time `json:"restock_eta,omitempty"`
}

type CartResponse struct {
	ID           int64              `json:"id"`
	Items        []CartItemResponse `json:"items"`
	Totals       pricing.Totals     `json:"totals"`
	CouponCode   string             `json:"coupon_code,omitempty"`
	CouponReason string             `json:"coupon_reason,omitempty"`

	//バージョンスタンプ。クライアントはこれで古さを検知する
	UpdatedAt time.Time `json:"updated_at"`
}

type AddCartItemInput struct {
	VariantID int64
	Qty       int64
}

type UpdateCartItemInput struct {
	Qty int64
}

// GetCart はカート取得（無ければ作って空を返す）。
func (u *CartUsecase) GetCart(ctx context.Context, owner CartOwner) (CartResponse, error) {
	cart, err := u.getOrCreateCart(ctx, owner)
	if err != nil {
		return CartResponse{}, err
	}
	return u.buildCartResponse(ctx, cart)
}

// AddItem はカートに追加する。(cart, variant)は一意で、再追加は数量加算になる。
// 数量は1..上限で、blockポリシーのときは在庫にキャップする（キャップ後1未満なら拒否）。
func (u *CartUsecase) AddItem(ctx context.Context, owner CartOwner, in AddCartItemInput) (CartResponse, error) {
	if in.VariantID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid variant_id")
	}
	if in.Qty < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid qty")
	}

	cart, err := u.getOrCreateCart(ctx, owner)
	if err != nil {
		return CartResponse{}, err
	}

	v, err := u.variantRepo.FindByID(ctx, in.VariantID)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, "variant not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !v.IsActive || !v.Product.IsActive {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "variant is not available")
	}

	//既存数量に加算
	var requested = in.Qty
	if existing, err := u.cartItemRepo.FindByCartAndVariant(ctx, cart.ID, in.VariantID); err == nil {
		requested += existing.Qty
	} else if err != repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	qty, err := u.capQty(ctx, in.VariantID, requested)
	if err != nil {
		return CartResponse{}, err
	}

	item := model.CartItem{
		CartID:     cart.ID,
		VariantID:  in.VariantID,
		Qty:        qty,
		PriceAtAdd: v.UnitPrice(),
		AttrsJSON:  v.AttrsJSON,
	}
	if err := u.cartItemRepo.Upsert(ctx, item); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if err := u.cartRepo.Touch(ctx, cart.ID, time.Now()); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, cart)
}

// UpdateItem は数量変更（所有チェック付き）。
func (u *CartUsecase) UpdateItem(ctx context.Context, owner CartOwner, cartItemID int64, in UpdateCartItemInput) (CartResponse, error) {
	if in.Qty < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid qty")
	}

	cart, item, err := u.findOwnedItem(ctx, owner, cartItemID)
	if err != nil {
		return CartResponse{}, err
	}

	qty, err := u.capQty(ctx, item.VariantID, in.Qty)
	if err != nil {
		return CartResponse{}, err
	}

	if err := u.cartItemRepo.UpdateQty(ctx, cartItemID, qty); err != nil {
		if err == repo.ErrNotFound {
			return CartResponse{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if err := u.cartRepo.Touch(ctx, cart.ID, time.Now()); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, cart)
}

// DeleteItem は明細削除（所有チェック付き）。
func (u *CartUsecase) DeleteItem(ctx context.Context, owner CartOwner, cartItemID int64) (CartResponse, error) {
	cart, _, err := u.findOwnedItem(ctx, owner, cartItemID)
	if err != nil {
		return CartResponse{}, err
	}

	if err := u.cartItemRepo.DeleteByID(ctx, cartItemID); err != nil {
		if err == repo.ErrNotFound {
			return CartResponse{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if err := u.cartRepo.Touch(ctx, cart.ID, time.Now()); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, cart)
}

// ApplyCoupon はカートにクーポンを適用する。適用不可のときは理由を400で返す。
func (u *CartUsecase) ApplyCoupon(ctx context.Context, owner CartOwner, code string) (CartResponse, error) {
	code = model.NormalizeCouponCode(code)
	if code == "" {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid code")
	}

	cart, err := u.getOrCreateCart(ctx, owner)
	if err != nil {
		return CartResponse{}, err
	}

	coupon, err := u.couponRepo.FindByCode(ctx, code)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, "coupon not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	subtotal, err := u.cartSubtotal(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, err
	}
	if ok, reason := coupon.CanApply(subtotal, time.Now()); !ok {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, reason)
	}

	if err := u.cartRepo.SetCoupon(ctx, cart.ID, &coupon.ID); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	cart.CouponID = &coupon.ID

	return u.buildCartResponse(ctx, cart)
}

// RemoveCoupon は適用中クーポンを外す。
func (u *CartUsecase) RemoveCoupon(ctx context.Context, owner CartOwner) (CartResponse, error) {
	cart, err := u.getOrCreateCart(ctx, owner)
	if err != nil {
		return CartResponse{}, err
	}

	if err := u.cartRepo.SetCoupon(ctx, cart.ID, nil); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	cart.CouponID = nil

	return u.buildCartResponse(ctx, cart)
}

// Merge はログイン時にゲストカートを会員カートへ統合する。
// 両カートの明細セットをロックした1トランザクションで行い、
// 終わったら元カートを消す。クーポンは移行先に無いときだけ引き継ぐ。
func (u *CartUsecase) Merge(ctx context.Context, sessionID string, userID int64) (CartResponse, error) {
	if sessionID == "" || userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid merge request")
	}

	var destID int64
	err := u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		src, err := r.Carts().FindBySessionID(ctx, sessionID)
		if err == repo.ErrNotFound {
			//ゲストカートが無ければ何もしない
			dest, err := u.ensureUserCart(ctx, r, userID)
			if err != nil {
				return err
			}
			destID = dest.ID
			return nil
		}
		if err != nil {
			return err
		}

		dest, err := r.Carts().FindByUserID(ctx, userID)
		if err == repo.ErrNotFound {
			//会員カートが無ければゲストカートを付け替えるだけ
			if err := r.Carts().AssignUser(ctx, src.ID, userID); err != nil {
				return err
			}
			destID = src.ID
			return nil
		}
		if err != nil {
			return err
		}

		//デッドロック回避のためID昇順でロックする
		first, second := src.ID, dest.ID
		if first > second {
			first, second = second, first
		}
		if _, err := r.Carts().FindByIDForUpdate(ctx, first); err != nil {
			return err
		}
		if _, err := r.Carts().FindByIDForUpdate(ctx, second); err != nil {
			return err
		}

		srcItems, err := r.CartItems().ListByCartIDForUpdate(ctx, src.ID)
		if err != nil {
			return err
		}
		destItems, err := r.CartItems().ListByCartIDForUpdate(ctx, dest.ID)
		if err != nil {
			return err
		}

		byVariant := make(map[int64]model.CartItem, len(destItems))
		for _, it := range destItems {
			byVariant[it.VariantID] = it
		}

		for _, it := range srcItems {
			existing, ok := byVariant[it.VariantID]
			if !ok {
				it.ID = 0
				it.CartID = dest.ID
				if err := r.CartItems().Upsert(ctx, it); err != nil {
					return err
				}
				continue
			}

			qty := existing.Qty
			switch u.mergeStrategy {
			case model.CartMergeMax:
				if it.Qty > qty {
					qty = it.Qty
				}
			default: //sum
				qty += it.Qty
			}
			if qty > u.maxQty {
				qty = u.maxQty
			}
			if err := r.CartItems().UpdateQty(ctx, existing.ID, qty); err != nil {
				return err
			}
		}

		if dest.CouponID == nil && src.CouponID != nil {
			if err := r.Carts().SetCoupon(ctx, dest.ID, src.CouponID); err != nil {
				return err
			}
		}

		if err := r.CartItems().DeleteByCartID(ctx, src.ID); err != nil {
			return err
		}
		if err := r.Carts().Delete(ctx, src.ID); err != nil {
			return err
		}
		if err := r.Carts().Touch(ctx, dest.ID, time.Now()); err != nil {
			return err
		}

		destID = dest.ID
		return nil
	})
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return CartResponse{}, he
		}
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	cart, err := u.cartRepo.FindByID(ctx, destID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return u.buildCartResponse(ctx, cart)
}

// PurgeStale は明細ゼロのまま放置されたカートを一括削除し、削除件数を返す。
func (u *CartUsecase) PurgeStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		olderThan = 30 * 24 * time.Hour
	}
	n, err := u.cartRepo.DeleteStaleEmpty(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return n, nil
}

func (u *CartUsecase) getOrCreateCart(ctx context.Context, owner CartOwner) (model.Cart, error) {
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

	if err == nil {
		return cart, nil
	}
	if err != repo.ErrNotFound {
		return model.Cart{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	cart = model.Cart{UserID: owner.UserID, SessionID: owner.SessionID}
	id, err := u.cartRepo.Create(ctx, cart)
	if err != nil {
		return model.Cart{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	cart.ID = id
	return cart, nil
}

func (u *CartUsecase) ensureUserCart(ctx context.Context, r repo.TxRepos, userID int64) (model.Cart, error) {
	cart, err := r.Carts().FindByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if err != repo.ErrNotFound {
		return model.Cart{}, err
	}
	cart = model.Cart{UserID: &userID}
	id, err := r.Carts().Create(ctx, cart)
	if err != nil {
		return model.Cart{}, err
	}
	cart.ID = id
	return cart, nil
}

// capQty は数量をポリシーに従って整える。
//   - block: 在庫数にキャップ。キャップ後1未満なら拒否
//   - allow / notify: そのまま受け付ける
//
// どのポリシーでも上限（maxQty）は超えない。
func (u *CartUsecase) capQty(ctx context.Context, variantID int64, requested int64) (int64, error) {
	qty := requested
	if qty > u.maxQty {
		qty = u.maxQty
	}

	invs, err := u.inventoryRepo.FindByVariantIDs(ctx, []int64{variantID})
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//在庫行が無いバリアントは受注不可として扱う
	if len(invs) == 0 {
		return 0, NewHTTPError(http.StatusBadRequest, "Out of stock.")
	}

	inv := invs[0]
	if inv.AllowsBackorder() {
		return qty, nil
	}
	if inv.QtyAvailable < 1 {
		return 0, NewHTTPError(http.StatusBadRequest, "Out of stock.")
	}
	if qty > inv.QtyAvailable {
		qty = inv.QtyAvailable
	}
	return qty, nil
}

// findOwnedItem は明細を持ち主チェック付きで引く。他人のカートの明細は404。
func (u *CartUsecase) findOwnedItem(ctx context.Context, owner CartOwner, cartItemID int64) (model.Cart, model.CartItem, error) {
	if cartItemID <= 0 {
		return model.Cart{}, model.CartItem{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cart, err := u.getOrCreateCart(ctx, owner)
	if err != nil {
		return model.Cart{}, model.CartItem{}, err
	}
	item, err := u.cartItemRepo.FindByID(ctx, cartItemID)
	if err == repo.ErrNotFound {
		return model.Cart{}, model.CartItem{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Cart{}, model.CartItem{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if item.CartID != cart.ID {
		return model.Cart{}, model.CartItem{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return cart, item, nil
}

func (u *CartUsecase) cartSubtotal(ctx context.Context, cartID int64) (decimal.Decimal, error) {
	items, err := u.cartItemRepo.ListByCartID(ctx, cartID)
	if err != nil {
		return decimal.Decimal{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.PriceAtAdd.Mul(decimal.NewFromInt(it.Qty)))
	}
	return subtotal.Round(2), nil
}

// buildCartResponse は明細・在庫・クーポンをまとめてプレビュー価格付きで返す。
// 配送方法はチェックアウト時に選ぶので、ここではフォールバック送料で計算する。
func (u *CartUsecase) buildCartResponse(ctx context.Context, cart model.Cart) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	variantIDs := make([]int64, 0, len(items))
	for _, it := range items {
		variantIDs = append(variantIDs, it.VariantID)
	}

	variants := map[int64]model.ProductVariant{}
	stocks := map[int64]model.Inventory{}
	if len(variantIDs) > 0 {
		vs, err := u.variantRepo.FindByIDs(ctx, variantIDs)
		if err != nil {
			return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		for _, v := range vs {
			variants[v.ID] = v
		}
		invs, err := u.inventoryRepo.FindByVariantIDs(ctx, variantIDs)
		if err != nil {
			return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		for _, inv := range invs {
			stocks[inv.VariantID] = inv
		}
	}

	respItems := make([]CartItemResponse, 0, len(items))
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		v, ok := variants[it.VariantID]
		if !ok {
			continue
		}

		ri := CartItemResponse{
			ID:        it.ID,
			VariantID: it.VariantID,
			SKU:       v.SKU,
			Name:      v.Product.Name,
			Qty:       it.Qty,
			Price:     it.PriceAtAdd,
			AttrsJSON: it.AttrsJSON,
		}
		if inv, ok := stocks[it.VariantID]; ok &&
			inv.BackorderPolicy == model.BackorderNotify && it.Qty > inv.QtyAvailable {
			ri.Backordered = true
			ri.RestockETA = inv.ExpectedRestockDate
		}
		respItems = append(respItems, ri)

		lines = append(lines, pricing.Line{
			UnitPrice: it.PriceAtAdd,
			Qty:       it.Qty,
			WeightKG:  v.WeightKG,
		})
	}

	resp := CartResponse{
		ID:        cart.ID,
		Items:     respItems,
		UpdatedAt: cart.UpdatedAt,
	}

	var coupon *model.Coupon
	if cart.CouponID != nil {
		c, err := u.couponRepo.FindByID(ctx, *cart.CouponID)
		if err == nil {
			coupon = &c
			resp.CouponCode = c.Code
		} else if err != repo.ErrNotFound {
			return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	totals, reason := u.engine.PriceAt(lines, coupon, nil, time.Now())
	resp.Totals = totals
	resp.CouponReason = reason

	return resp, nil
}
