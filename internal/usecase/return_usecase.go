package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"shop/internal/domain/model"
	"shop/internal/infra/stream"
	repo "shop/internal/repository"
)

// ReturnUsecase は返品申請（RMA）。注文明細単位で受け付ける。
// 承認から返金までのワークフローはスタッフ運用で、ここでは申請と照会だけ。
type ReturnUsecase struct {
	txm        repo.TransactionManager
	orderRepo  repo.OrderRepository
	returnRepo repo.ReturnRepository
	producer   *stream.Producer
}

func NewReturnUsecase(
	txm repo.TransactionManager,
	orderRepo repo.OrderRepository,
	returnRepo repo.ReturnRepository,
	producer *stream.Producer,
) *ReturnUsecase {
	return &ReturnUsecase{
		txm:        txm,
		orderRepo:  orderRepo,
		returnRepo: returnRepo,
		producer:   producer,
	}
}

type ReturnRequestInput struct {
	OrderItemID int64  `json:"order_item_id"`
	Qty         int64  `json:"qty"`
	Reason      string `json:"reason"`
}

type ReturnRequestResponse struct {
	ID          int64              `json:"id"`
	OrderItemID int64              `json:"order_item_id"`
	Qty         int64              `json:"qty"`
	Reason      string             `json:"reason,omitempty"`
	Status      model.ReturnStatus `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Request は返品申請を作る。paidまたはdeliveredの注文の明細だけが対象。
func (u *ReturnUsecase) Request(ctx context.Context, orderID int64, email string, in ReturnRequestInput) (ReturnRequestResponse, error) {
	if orderID <= 0 || in.OrderItemID <= 0 {
		return ReturnRequestResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Qty < 1 {
		return ReturnRequestResponse{}, NewHTTPError(http.StatusBadRequest, "invalid qty")
	}

	now := time.Now()
	var (
		resp      ReturnRequestResponse
		published model.OrderEvent
	)
	err := u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDAndEmail(ctx, orderID, email)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return err
		}
		if o.Status != model.OrderStatusPaid && o.Status != model.OrderStatusDelivered {
			return NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("order is %s, returns are accepted for paid or delivered orders", o.Status))
		}

		item, err := r.OrderItems().FindByID(ctx, in.OrderItemID)
		if err == repo.ErrNotFound || (err == nil && item.OrderID != orderID) {
			return NewHTTPError(http.StatusNotFound, "order item not found")
		}
		if err != nil {
			return err
		}
		if in.Qty > item.Qty {
			return NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("qty exceeds ordered quantity (%d)", item.Qty))
		}

		rr := model.ReturnRequest{
			OrderItemID: in.OrderItemID,
			Qty:         in.Qty,
			Reason:      in.Reason,
			Status:      model.ReturnStatusRequested,
			CreatedAt:   now,
		}
		id, err := r.Returns().Create(ctx, rr)
		if err != nil {
			return err
		}

		published = model.OrderEvent{
			OrderID:   orderID,
			Type:      model.OrderEventRMARequested,
			Message:   fmt.Sprintf("Return requested for SKU %s x%d", item.SKU, in.Qty),
			Actor:     "customer",
			CreatedAt: now,
		}
		if err := r.OrderEvents().Append(ctx, published); err != nil {
			return err
		}

		resp = ReturnRequestResponse{
			ID:          id,
			OrderItemID: in.OrderItemID,
			Qty:         in.Qty,
			Reason:      in.Reason,
			Status:      model.ReturnStatusRequested,
			CreatedAt:   now,
		}
		return nil
	})
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return ReturnRequestResponse{}, he
		}
		slog.Error("return request failed", "order_id", orderID, "error", err)
		return ReturnRequestResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.producer.PublishOrderEvent(published)
	return resp, nil
}

// List は注文に紐づく返品申請の一覧。
func (u *ReturnUsecase) List(ctx context.Context, orderID int64, email string) ([]ReturnRequestResponse, error) {
	if _, err := u.orderRepo.FindByIDAndEmail(ctx, orderID, email); err != nil {
		if err == repo.ErrNotFound {
			return nil, NewHTTPError(http.StatusNotFound, "order not found")
		}
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	rows, err := u.returnRepo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := make([]ReturnRequestResponse, 0, len(rows))
	for _, rr := range rows {
		out = append(out, ReturnRequestResponse{
			ID:          rr.ID,
			OrderItemID: rr.OrderItemID,
			Qty:         rr.Qty,
			Reason:      rr.Reason,
			Status:      rr.Status,
			CreatedAt:   rr.CreatedAt,
		})
	}
	return out, nil
}
