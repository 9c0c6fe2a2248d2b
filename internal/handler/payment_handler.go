package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"shop/internal/usecase"
)

// Webhookの署名ヘッダ
const webhookSignatureHeader = "X-Webhook-Signature"

// 決済API。webhookは公開、intent作成は公開、返金はスタッフ専用。
type PaymentHandler struct {
	paymentUC *usecase.PaymentUsecase
	webhookUC *usecase.WebhookUsecase
}

// DI
func NewPaymentHandler(paymentUC *usecase.PaymentUsecase, webhookUC *usecase.WebhookUsecase) *PaymentHandler {
	return &PaymentHandler{paymentUC: paymentUC, webhookUC: webhookUC}
}

func (h *PaymentHandler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/payments/intent", h.createIntent)
	g.POST("/payments/webhook", h.webhook)
}

func (h *PaymentHandler) RegisterStaffRoutes(g *echo.Group) {
	g.POST("/payments/refund", h.refund)
}

type createIntentRequest struct {
	OrderID int64 `json:"order_id"`
}

func (h *PaymentHandler) createIntent(c echo.Context) error {
	var req createIntentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.paymentUC.CreateIntent(c.Request().Context(), req.OrderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// 署名検証に生のボディが要るのでBindは使わない。
func (h *PaymentHandler) webhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	signature := c.Request().Header.Get(webhookSignatureHeader)

	out, err := h.webhookUC.Handle(c.Request().Context(), body, signature)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) refund(c echo.Context) error {
	var req usecase.RefundInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	req.Actor = "staff"

	out, err := h.paymentUC.Refund(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
