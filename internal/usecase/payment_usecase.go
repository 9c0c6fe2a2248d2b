package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shop/internal/domain/model"
	"shop/internal/infra/stream"
	repo "shop/internal/repository"
)

// モック決済プロバイダの名前。本物のゲートウェイ接続は外側の関心事で、
// ここではプロバイダと同じID形式・同じ整合性だけを再現する。
const mockProvider = "razorpay"

// PaymentUsecase は決済インテント作成とスタッフ返金。
type PaymentUsecase struct {
	txm       repo.TransactionManager
	orderRepo repo.OrderRepository
	producer  *stream.Producer
	currency  string
}

func NewPaymentUsecase(
	txm repo.TransactionManager,
	orderRepo repo.OrderRepository,
	producer *stream.Producer,
	currency string,
) *PaymentUsecase {
	return &PaymentUsecase{
		txm:       txm,
		orderRepo: orderRepo,
		producer:  producer,
		currency:  currency,
	}
}

type PaymentIntentResponse struct {
	PaymentID       int64  `json:"payment_id"`
	Provider        string `json:"provider"`
	ProviderOrderID string `json:"provider_order_id"`
	AmountPaise     int64  `json:"amount_paise"`
	Currency        string `json:"currency"`
}

type RefundInput struct {
	OrderID           int64  `json:"order_id"`
	AmountPaise       *int64 `json:"amount_paise,omitempty"`
	ProviderPaymentID string `json:"provider_payment_id,omitempty"`
	Actor             string `json:"-"`
}

type RefundResponse struct {
	RefundID          string              `json:"refund_id"`
	AmountPaise       int64               `json:"amount_paise"`
	RefundTotalPaise  int64               `json:"refund_total_paise"`
	PaymentStatus     model.PaymentStatus `json:"payment_status"`
	OrderStatus       model.OrderStatus   `json:"order_status"`
	FullyRefunded     bool                `json:"fully_refunded"`
	ProviderPaymentID string              `json:"provider_payment_id,omitempty"`
}

// CreateIntent は注文に対するプロバイダ決済（intent）を作る。
// 未払い（created）の注文だけが対象。呼ぶたびに新しいprovider_order_idを発行する。
// 金額は丸め誤差を避けるためpaise（整数）に変換して保存する。
func (u *PaymentUsecase) CreateIntent(ctx context.Context, orderID int64) (PaymentIntentResponse, error) {
	if orderID <= 0 {
		return PaymentIntentResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var resp PaymentIntentResponse
	err := u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return err
		}
		if o.Status != model.OrderStatusCreated {
			return NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("order is already %s", o.Status))
		}

		providerOrderID := "order_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		amount := o.Total.Mul(decimal.NewFromInt(100)).IntPart()

		p := model.Payment{
			OrderID:         orderID,
			Provider:        mockProvider,
			ProviderOrderID: providerOrderID,
			Status:          model.PaymentStatusCreated,
			AmountPaise:     amount,
			Currency:        u.currency,
		}
		paymentID, err := r.Payments().Create(ctx, p)
		if err != nil {
			return err
		}

		//intentも監査記録に残す（event_idはprovider_order_idで一意）
		eventRowID, err := r.PaymentEvents().Insert(ctx, model.PaymentEvent{
			Provider:  mockProvider,
			EventID:   providerOrderID,
			EventType: "intent.created",
			PayloadJSON: fmt.Sprintf(`{"order_id":%d,"provider_order_id":%q,"amount_paise":%d,"currency":%q}`,
				orderID, providerOrderID, amount, u.currency),
		})
		if err != nil {
			return err
		}
		if err := r.PaymentEvents().AttachPayment(ctx, eventRowID, paymentID); err != nil {
			return err
		}

		o.PaymentProvider = mockProvider
		o.PaymentReference = providerOrderID
		o.UpdatedAt = time.Now()
		if err := r.Orders().Save(ctx, o); err != nil {
			return err
		}

		resp = PaymentIntentResponse{
			PaymentID:       paymentID,
			Provider:        mockProvider,
			ProviderOrderID: providerOrderID,
			AmountPaise:     amount,
			Currency:        u.currency,
		}
		return nil
	})
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return PaymentIntentResponse{}, he
		}
		slog.Error("payment intent creation failed", "order_id", orderID, "error", err)
		return PaymentIntentResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return resp, nil
}

// Refund はスタッフによる返金。captured済み決済の残額までしか返金できない。
// 全額返金になったときだけ注文をrefundedへ進める。
func (u *PaymentUsecase) Refund(ctx context.Context, in RefundInput) (RefundResponse, error) {
	if in.OrderID <= 0 {
		return RefundResponse{}, NewHTTPError(http.StatusBadRequest, "invalid order_id")
	}
	if in.AmountPaise != nil && *in.AmountPaise <= 0 {
		return RefundResponse{}, NewHTTPError(http.StatusBadRequest, "amount must be positive")
	}

	now := time.Now()
	var (
		resp      RefundResponse
		published []model.OrderEvent
	)
	err := u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, in.OrderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return err
		}

		p, err := r.Payments().FindCapturedForUpdate(ctx, in.OrderID, in.ProviderPaymentID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "no captured payment for this order")
		}
		if err != nil {
			return err
		}

		remaining := p.AmountPaise - p.RefundAmountPaise
		if remaining <= 0 {
			return NewHTTPError(http.StatusBadRequest, "payment is already fully refunded")
		}
		amount := remaining
		if in.AmountPaise != nil {
			amount = *in.AmountPaise
		}
		if amount > remaining {
			return NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("refund exceeds remaining amount (%d paise)", remaining))
		}

		refundID := "rfnd_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")

		//返金も監査記録に残す（event_idは返金IDで一意）
		eventRowID, err := r.PaymentEvents().Insert(ctx, model.PaymentEvent{
			Provider:  p.Provider,
			EventID:   refundID,
			EventType: "refund.created",
			PayloadJSON: fmt.Sprintf(`{"order_id":%d,"refund_id":%q,"amount_paise":%d}`,
				in.OrderID, refundID, amount),
		})
		if err != nil {
			return err
		}
		if err := r.PaymentEvents().AttachPayment(ctx, eventRowID, p.ID); err != nil {
			return err
		}

		p.RefundID = refundID
		p.RefundAmountPaise += amount
		if p.FullyRefunded() {
			p.Status = model.PaymentStatusRefunded
		} else {
			p.Status = model.PaymentStatusPartialRefunded
		}
		if err := r.Payments().Save(ctx, p); err != nil {
			return err
		}

		o.RefundTotal = o.RefundTotal.Add(paiseToDecimal(amount)).Round(2)
		prev := o.Status
		if p.FullyRefunded() && o.CanTransition(model.OrderStatusRefunded) {
			if err := o.Transition(model.OrderStatusRefunded, now); err != nil {
				return err
			}
		} else {
			o.UpdatedAt = now
		}
		if err := r.Orders().Save(ctx, o); err != nil {
			return err
		}

		msg := fmt.Sprintf("Refunded %d paise (%s)", amount, refundID)
		if o.Status != prev {
			msg += fmt.Sprintf(" :: %s -> %s", prev, o.Status)
		}
		ev := model.OrderEvent{
			OrderID:   in.OrderID,
			Type:      model.OrderEventRefund,
			Message:   msg,
			Actor:     in.Actor,
			CreatedAt: now,
		}
		if err := r.OrderEvents().Append(ctx, ev); err != nil {
			return err
		}
		published = append(published, ev)

		resp = RefundResponse{
			RefundID:         refundID,
			AmountPaise:      amount,
			RefundTotalPaise: p.RefundAmountPaise,
			PaymentStatus:    p.Status,
			OrderStatus:      o.Status,
			FullyRefunded:    p.FullyRefunded(),
		}
		if p.ProviderPaymentID != nil {
			resp.ProviderPaymentID = *p.ProviderPaymentID
		}
		return nil
	})
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return RefundResponse{}, he
		}
		slog.Error("refund failed", "order_id", in.OrderID, "error", err)
		return RefundResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	for _, ev := range published {
		u.producer.PublishOrderEvent(ev)
	}
	return resp, nil
}

func paiseToDecimal(paise int64) decimal.Decimal {
	return decimal.NewFromInt(paise).Div(decimal.NewFromInt(100))
}
