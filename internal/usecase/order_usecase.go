package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"time"

	"github.com/redis/go-redis/v9"

	"shop/internal/domain/model"
	"shop/internal/infra/redisx"
	"shop/internal/infra/stream"
	repo "shop/internal/repository"
)

// OrderUsecase は注文の照会と状態遷移。
// 遷移はすべて行ロック下で行い、確定後にだけキャッシュ更新と配信をする。
type OrderUsecase struct {
	txm            repo.TransactionManager
	orderRepo      repo.OrderRepository
	orderItemRepo  repo.OrderItemRepository
	orderEventRepo repo.OrderEventRepository
	producer       *stream.Producer
	rdb            *redis.Client
}

func NewOrderUsecase(
	txm repo.TransactionManager,
	orderRepo repo.OrderRepository,
	orderItemRepo repo.OrderItemRepository,
	orderEventRepo repo.OrderEventRepository,
	producer *stream.Producer,
	rdb *redis.Client,
) *OrderUsecase {
	return &OrderUsecase{
		txm:            txm,
		orderRepo:      orderRepo,
		orderItemRepo:  orderItemRepo,
		orderEventRepo: orderEventRepo,
		producer:       producer,
		rdb:            rdb,
	}
}

type OrderSummaryResponse struct {
	ID        int64             `json:"id"`
	Status    model.OrderStatus `json:"status"`
	Total     string            `json:"total"`
	Currency  string            `json:"currency"`
	CreatedAt time.Time         `json:"created_at"`
}

type OrderEventResponse struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Actor     string    `json:"actor,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderDetailResponse struct {
	ID              int64                `json:"id"`
	Email           string               `json:"email"`
	Status          model.OrderStatus    `json:"status"`
	Subtotal        string               `json:"subtotal"`
	DiscountTotal   string               `json:"discount_total"`
	TaxTotal        string               `json:"tax_total"`
	ShippingTotal   string               `json:"shipping_total"`
	Total           string               `json:"total"`
	Currency        string               `json:"currency"`
	CouponCode      string               `json:"coupon_code,omitempty"`
	TrackingNumber  string               `json:"tracking_number,omitempty"`
	RefundTotal     string               `json:"refund_total"`
	ShippingAddress model.Address        `json:"shipping_address"`
	Items           []OrderItemResponse  `json:"items"`
	Events          []OrderEventResponse `json:"events"`
	CreatedAt       time.Time            `json:"created_at"`

	PaymentConfirmedAt *time.Time `json:"payment_confirmed_at,omitempty"`
	ShippedAt          *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt        *time.Time `json:"delivered_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
}

type TransitionInput struct {
	Target         model.OrderStatus `json:"target"`
	Note           string            `json:"note,omitempty"`
	TrackingNumber string            `json:"tracking_number,omitempty"`
	Actor          string            `json:"-"`
}

// ListByEmail はメールアドレスで注文の一覧を返す（ゲスト注文の照会手段）。
func (u *OrderUsecase) ListByEmail(ctx context.Context, email string) ([]OrderSummaryResponse, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid email")
	}
	orders, err := u.orderRepo.ListByEmail(ctx, email)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	out := make([]OrderSummaryResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, OrderSummaryResponse{
			ID:        o.ID,
			Status:    o.Status,
			Total:     o.Total.StringFixed(2),
			Currency:  o.Currency,
			CreatedAt: o.CreatedAt,
		})
	}
	return out, nil
}

// Detail は注文詳細（ID＋メールアドレスの組で引く）。
func (u *OrderUsecase) Detail(ctx context.Context, orderID int64, email string) (OrderDetailResponse, error) {
	if orderID <= 0 {
		return OrderDetailResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := u.orderRepo.FindByIDAndEmail(ctx, orderID, email)
	if err == repo.ErrNotFound {
		return OrderDetailResponse{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return OrderDetailResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return u.buildDetail(ctx, o)
}

// AdminDetail はスタッフ用の注文詳細（メールアドレス照合なし）。
func (u *OrderUsecase) AdminDetail(ctx context.Context, orderID int64) (OrderDetailResponse, error) {
	o, err := u.orderRepo.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return OrderDetailResponse{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return OrderDetailResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return u.buildDetail(ctx, o)
}

type OrderStatusResponse struct {
	ID     int64             `json:"id"`
	Status model.OrderStatus `json:"status"`
}

// Status は軽量なステータス照会。キャッシュを先に見て、外したらDBから引いて埋め直す。
// 出荷作業の進捗ポーリング用で、詳細はDetail / AdminDetailを使う。
func (u *OrderUsecase) Status(ctx context.Context, orderID int64) (OrderStatusResponse, error) {
	if orderID <= 0 {
		return OrderStatusResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if u.rdb != nil {
		if cached, err := redisx.GetOrderStatus(ctx, u.rdb, orderID); err == nil && cached != "" {
			return OrderStatusResponse{ID: orderID, Status: model.OrderStatus(cached)}, nil
		}
	}

	o, err := u.orderRepo.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return OrderStatusResponse{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return OrderStatusResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if u.rdb != nil {
		if err := redisx.CacheOrderStatus(ctx, u.rdb, o.ID, string(o.Status)); err != nil {
			slog.Warn("order status cache write failed", "order_id", o.ID, "error", err)
		}
	}
	return OrderStatusResponse{ID: o.ID, Status: o.Status}, nil
}

// Transition はスタッフによる状態遷移。遷移表にない変更は400で、何も変わらない。
// 初めてpaidに入ったときだけクーポンを引き換える。
func (u *OrderUsecase) Transition(ctx context.Context, orderID int64, in TransitionInput) (OrderDetailResponse, error) {
	if orderID <= 0 {
		return OrderDetailResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Target == "" {
		return OrderDetailResponse{}, NewHTTPError(http.StatusBadRequest, "target is required")
	}

	now := time.Now()
	var published []model.OrderEvent
	err := u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return err
		}

		prev := o.Status
		if err := o.Transition(in.Target, now); err != nil {
			if errors.Is(err, model.ErrInvalidTransition) {
				return NewHTTPError(http.StatusBadRequest,
					fmt.Sprintf("cannot transition from %s to %s", prev, in.Target))
			}
			return err
		}
		if in.Target == model.OrderStatusShipped && in.TrackingNumber != "" {
			o.TrackingNumber = in.TrackingNumber
		}
		if err := r.Orders().Save(ctx, o); err != nil {
			return err
		}

		msg := fmt.Sprintf("%s -> %s", prev, in.Target)
		if in.Note != "" {
			msg += " :: " + in.Note
		}
		ev := model.OrderEvent{
			OrderID:   orderID,
			Type:      model.OrderEventTransition,
			Message:   msg,
			Actor:     in.Actor,
			CreatedAt: now,
		}
		if err := r.OrderEvents().Append(ctx, ev); err != nil {
			return err
		}
		published = append(published, ev)

		if in.Target == model.OrderStatusPaid && prev != model.OrderStatusPaid {
			extra, err := redeemCouponOnPaid(ctx, r, o, now)
			if err != nil {
				return err
			}
			published = append(published, extra...)
		}
		return nil
	})
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return OrderDetailResponse{}, he
		}
		slog.Error("order transition failed", "order_id", orderID, "target", in.Target, "error", err)
		return OrderDetailResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.afterCommit(ctx, orderID, in.Target, published)

	return u.AdminDetail(ctx, orderID)
}

// afterCommit はコミット後の付帯処理（ステータスキャッシュ・イベント配信）。
// どちらも失敗しても注文の状態には影響しない。
func (u *OrderUsecase) afterCommit(ctx context.Context, orderID int64, status model.OrderStatus, events []model.OrderEvent) {
	if u.rdb != nil {
		if err := redisx.CacheOrderStatus(ctx, u.rdb, orderID, string(status)); err != nil {
			slog.Warn("order status cache write failed", "order_id", orderID, "error", err)
		}
	}
	for _, ev := range events {
		u.producer.PublishOrderEvent(ev)
	}
}

func (u *OrderUsecase) buildDetail(ctx context.Context, o model.Order) (OrderDetailResponse, error) {
	items, err := u.orderItemRepo.ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderDetailResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	events, err := u.orderEventRepo.ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderDetailResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	evs := make([]OrderEventResponse, 0, len(events))
	for _, ev := range events {
		evs = append(evs, OrderEventResponse{
			Type:      ev.Type,
			Message:   ev.Message,
			Actor:     ev.Actor,
			CreatedAt: ev.CreatedAt,
		})
	}

	return OrderDetailResponse{
		ID:                 o.ID,
		Email:              o.Email,
		Status:             o.Status,
		Subtotal:           o.Subtotal.StringFixed(2),
		DiscountTotal:      o.DiscountTotal.StringFixed(2),
		TaxTotal:           o.TaxTotal.StringFixed(2),
		ShippingTotal:      o.ShippingTotal.StringFixed(2),
		Total:              o.Total.StringFixed(2),
		Currency:           o.Currency,
		CouponCode:         o.CouponCode,
		TrackingNumber:     o.TrackingNumber,
		RefundTotal:        o.RefundTotal.StringFixed(2),
		ShippingAddress:    o.ShippingAddress,
		Items:              buildItemResponses(items),
		Events:             evs,
		CreatedAt:          o.CreatedAt,
		PaymentConfirmedAt: o.PaymentConfirmedAt,
		ShippedAt:          o.ShippedAt,
		DeliveredAt:        o.DeliveredAt,
		CancelledAt:        o.CancelledAt,
	}, nil
}

// redeemCouponOnPaid は注文が初めてpaidに入ったときのクーポン引き換え。
// スタッフ遷移とwebhookのどちらの経路でも、注文1件につき最大1回しか呼ばれない
// （paidへの遷移はcreatedからしか許されず、行ロックで直列化されるため）。
// クーポンが見つからない・上限到達は非致命で、イベントに残すだけ。
func redeemCouponOnPaid(ctx context.Context, r repo.TxRepos, o model.Order, now time.Time) ([]model.OrderEvent, error) {
	if o.CouponCode == "" {
		return nil, nil
	}

	var events []model.OrderEvent
	appendEvent := func(msg string) error {
		ev := model.OrderEvent{
			OrderID:   o.ID,
			Type:      model.OrderEventCouponMissing,
			Message:   msg,
			Actor:     "system",
			CreatedAt: now,
		}
		if err := r.OrderEvents().Append(ctx, ev); err != nil {
			return err
		}
		events = append(events, ev)
		return nil
	}

	c, err := r.Coupons().FindByCode(ctx, o.CouponCode)
	if err == repo.ErrNotFound {
		slog.Warn("coupon on paid order no longer exists", "order_id", o.ID, "code", o.CouponCode)
		if err := appendEvent(fmt.Sprintf("Coupon %s not found at redemption time.", o.CouponCode)); err != nil {
			return nil, err
		}
		return events, nil
	}
	if err != nil {
		return nil, err
	}

	redeemed, err := r.Coupons().Redeem(ctx, c.ID, o.Email, o.ID)
	if err != nil {
		return nil, err
	}
	if !redeemed {
		slog.Warn("coupon usage cap reached at redemption time", "order_id", o.ID, "code", o.CouponCode)
		if err := appendEvent(fmt.Sprintf("Coupon %s usage limit reached at redemption time.", o.CouponCode)); err != nil {
			return nil, err
		}
	}
	return events, nil
}
