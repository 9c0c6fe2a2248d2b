package usecase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"shop/internal/domain/model"
	"shop/internal/infra/redisx"
	"shop/internal/infra/stream"
	repo "shop/internal/repository"
)

// WebhookUsecase は決済プロバイダからのコールバックを冪等に取り込む。
// (provider, event_id)のユニーク制約が冪等判定の正で、Redisは先回りの軽量判定。
type WebhookUsecase struct {
	txm      repo.TransactionManager
	producer *stream.Producer
	rdb      *redis.Client

	//空なら署名検証をしない（開発用）
	secret string
}

func NewWebhookUsecase(
	txm repo.TransactionManager,
	producer *stream.Producer,
	rdb *redis.Client,
	secret string,
) *WebhookUsecase {
	return &WebhookUsecase{
		txm:      txm,
		producer: producer,
		rdb:      rdb,
		secret:   secret,
	}
}

// WebhookEnvelope はプロバイダのイベント封筒。
type WebhookEnvelope struct {
	Provider string `json:"provider"`
	EventID  string `json:"event_id"`
	Type     string `json:"type"`
	Payment  struct {
		ProviderOrderID   string `json:"provider_order_id"`
		ProviderPaymentID string `json:"provider_payment_id"`
		AmountPaise       int64  `json:"amount_paise"`
		Currency          string `json:"currency"`
	} `json:"payment"`
}

const (
	WebhookEventCaptured = "payment.captured"
	WebhookEventFailed   = "payment.failed"
)

type WebhookResult struct {
	EventID string `json:"event_id"`

	//二重配送（受理はするが状態は変えない）
	Duplicate bool `json:"duplicate,omitempty"`

	//provider_order_idに対応する決済が見つからなかった（イベントは記録済み）
	PaymentNotFound bool `json:"-"`

	OrderID     int64             `json:"order_id,omitempty"`
	OrderStatus model.OrderStatus `json:"order_status,omitempty"`
}

// Handle はwebhook 1件を処理する。
//   - 署名不一致は記録せずに400で弾く（正しい再送を冪等判定で塞がないため）
//   - 同じevent_idの再配送は200のno-op
//   - 決済が見つからないイベントも捨てずに記録してから404を返す
func (u *WebhookUsecase) Handle(ctx context.Context, rawBody []byte, signature string) (WebhookResult, error) {
	if u.secret != "" && !u.verifySignature(rawBody, signature) {
		return WebhookResult{}, NewHTTPError(http.StatusBadRequest, "invalid signature")
	}

	var env WebhookEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return WebhookResult{}, NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if env.Provider == "" || env.EventID == "" {
		return WebhookResult{}, NewHTTPError(http.StatusBadRequest, "provider and event_id are required")
	}

	//処理済みならDBに行く前に返す
	if u.rdb != nil {
		if seen, err := redisx.SeenWebhook(ctx, u.rdb, env.Provider, env.EventID); err == nil && seen {
			return WebhookResult{EventID: env.EventID, Duplicate: true}, nil
		}
	}

	now := time.Now()
	result := WebhookResult{EventID: env.EventID}
	var published []model.OrderEvent

	err := u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		eventRowID, err := r.PaymentEvents().Insert(ctx, model.PaymentEvent{
			Provider:    env.Provider,
			EventID:     env.EventID,
			EventType:   env.Type,
			Signature:   signature,
			PayloadJSON: string(rawBody),
			CreatedAt:   now,
		})
		if err == repo.ErrDuplicate {
			result.Duplicate = true
			return nil
		}
		if err != nil {
			return err
		}

		switch env.Type {
		case WebhookEventCaptured:
			return u.applyCaptured(ctx, r, env, eventRowID, now, &result, &published)
		case WebhookEventFailed:
			return u.applyFailed(ctx, r, env, eventRowID, now, &result, &published)
		default:
			//未知のイベントは記録だけして受理する
			return nil
		}
	})
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return WebhookResult{}, he
		}
		slog.Error("webhook processing failed", "provider", env.Provider, "event_id", env.EventID, "error", err)
		return WebhookResult{}, NewHTTPError(http.StatusInternalServerError, "processing error")
	}

	u.afterCommit(ctx, env, result, published)

	if result.PaymentNotFound {
		return result, NewHTTPError(http.StatusNotFound, "payment not found")
	}
	return result, nil
}

// applyCaptured はcapturedイベントを反映する。
// 決済はevent_idではなくprovider_order_idで引き、行ロック下で照合する。
func (u *WebhookUsecase) applyCaptured(
	ctx context.Context,
	r repo.TxRepos,
	env WebhookEnvelope,
	eventRowID int64,
	now time.Time,
	result *WebhookResult,
	published *[]model.OrderEvent,
) error {
	p, err := r.Payments().FindByProviderOrderIDForUpdate(ctx, env.Provider, env.Payment.ProviderOrderID)
	if err == repo.ErrNotFound {
		//ロールバックしない。イベント行はコミットして調査に残す
		result.PaymentNotFound = true
		return nil
	}
	if err != nil {
		return err
	}

	if err := r.PaymentEvents().AttachPayment(ctx, eventRowID, p.ID); err != nil {
		return err
	}

	//同じprovider_payment_idで既にcaptured済みなら何もしない
	if p.Status == model.PaymentStatusCaptured &&
		p.ProviderPaymentID != nil && *p.ProviderPaymentID == env.Payment.ProviderPaymentID {
		result.Duplicate = true
		result.OrderID = p.OrderID
		return nil
	}

	p.Status = model.PaymentStatusCaptured
	if env.Payment.ProviderPaymentID != "" {
		pid := env.Payment.ProviderPaymentID
		p.ProviderPaymentID = &pid
	}
	if env.Payment.AmountPaise > 0 {
		p.AmountPaise = env.Payment.AmountPaise
	}
	if env.Payment.Currency != "" {
		p.Currency = env.Payment.Currency
	}
	if err := r.Payments().Save(ctx, p); err != nil {
		return err
	}

	o, err := r.Orders().FindByIDForUpdate(ctx, p.OrderID)
	if err != nil {
		return err
	}
	result.OrderID = o.ID
	result.OrderStatus = o.Status

	prev := o.Status
	if prev == model.OrderStatusPaid || !o.CanTransition(model.OrderStatusPaid) {
		return nil
	}
	if err := o.Transition(model.OrderStatusPaid, now); err != nil {
		return err
	}
	if err := r.Orders().Save(ctx, o); err != nil {
		return err
	}
	result.OrderStatus = o.Status

	ev := model.OrderEvent{
		OrderID:   o.ID,
		Type:      model.OrderEventTransition,
		Message:   fmt.Sprintf("%s -> %s :: payment captured (%s)", prev, o.Status, env.Payment.ProviderPaymentID),
		Actor:     "webhook",
		CreatedAt: now,
	}
	if err := r.OrderEvents().Append(ctx, ev); err != nil {
		return err
	}
	*published = append(*published, ev)

	extra, err := redeemCouponOnPaid(ctx, r, o, now)
	if err != nil {
		return err
	}
	*published = append(*published, extra...)
	return nil
}

// applyFailed は失敗イベント。決済をfailedにし、注文には監査ログだけ残す。
func (u *WebhookUsecase) applyFailed(
	ctx context.Context,
	r repo.TxRepos,
	env WebhookEnvelope,
	eventRowID int64,
	now time.Time,
	result *WebhookResult,
	published *[]model.OrderEvent,
) error {
	p, err := r.Payments().FindByProviderOrderIDForUpdate(ctx, env.Provider, env.Payment.ProviderOrderID)
	if err == repo.ErrNotFound {
		result.PaymentNotFound = true
		return nil
	}
	if err != nil {
		return err
	}

	if err := r.PaymentEvents().AttachPayment(ctx, eventRowID, p.ID); err != nil {
		return err
	}

	//captured後のfailedは順序の乱れた再送として無視する
	if p.Status == model.PaymentStatusCaptured ||
		p.Status == model.PaymentStatusRefunded || p.Status == model.PaymentStatusPartialRefunded {
		result.Duplicate = true
		result.OrderID = p.OrderID
		return nil
	}

	p.Status = model.PaymentStatusFailed
	if env.Payment.ProviderPaymentID != "" {
		pid := env.Payment.ProviderPaymentID
		p.ProviderPaymentID = &pid
	}
	if err := r.Payments().Save(ctx, p); err != nil {
		return err
	}

	result.OrderID = p.OrderID
	ev := model.OrderEvent{
		OrderID:   p.OrderID,
		Type:      model.OrderEventPaymentFailed,
		Message:   fmt.Sprintf("Payment failed (%s)", env.Payment.ProviderOrderID),
		Actor:     "webhook",
		CreatedAt: now,
	}
	if err := r.OrderEvents().Append(ctx, ev); err != nil {
		return err
	}
	*published = append(*published, ev)
	return nil
}

func (u *WebhookUsecase) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(u.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// afterCommit はコミット後の付帯処理。失敗しても取り込んだ状態は変わらない。
func (u *WebhookUsecase) afterCommit(ctx context.Context, env WebhookEnvelope, result WebhookResult, events []model.OrderEvent) {
	if u.rdb != nil {
		if err := redisx.MarkWebhook(ctx, u.rdb, env.Provider, env.EventID); err != nil {
			slog.Warn("webhook dedup mark failed", "event_id", env.EventID, "error", err)
		}
		if result.OrderID > 0 && result.OrderStatus != "" {
			if err := redisx.CacheOrderStatus(ctx, u.rdb, result.OrderID, string(result.OrderStatus)); err != nil {
				slog.Warn("order status cache write failed", "order_id", result.OrderID, "error", err)
			}
		}
	}
	for _, ev := range events {
		u.producer.PublishOrderEvent(ev)
	}
}
