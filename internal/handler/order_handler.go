package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"shop/internal/usecase"
)

// /orders の公開API。ゲスト注文なので照会はメールアドレスで行う。
type OrderHandler struct {
	orderUC  *usecase.OrderUsecase
	returnUC *usecase.ReturnUsecase
}

// DI
func NewOrderHandler(orderUC *usecase.OrderUsecase, returnUC *usecase.ReturnUsecase) *OrderHandler {
	return &OrderHandler{orderUC: orderUC, returnUC: returnUC}
}

func (h *OrderHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/orders", h.list)
	g.GET("/orders/:id", h.detail)
	g.POST("/orders/:id/returns", h.requestReturn)
	g.GET("/orders/:id/returns", h.listReturns)
}

func (h *OrderHandler) list(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "email is required"})
	}

	out, err := h.orderUC.ListByEmail(c.Request().Context(), email)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	email := c.QueryParam("email")
	if email == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "email is required"})
	}

	out, err := h.orderUC.Detail(c.Request().Context(), id, email)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type returnRequestBody struct {
	Email       string `json:"email"`
	OrderItemID int64  `json:"order_item_id"`
	Qty         int64  `json:"qty"`
	Reason      string `json:"reason"`
}

func (h *OrderHandler) requestReturn(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	var req returnRequestBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "email is required"})
	}

	out, err := h.returnUC.Request(c.Request().Context(), id, req.Email, usecase.ReturnRequestInput{
		OrderItemID: req.OrderItemID,
		Qty:         req.Qty,
		Reason:      req.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) listReturns(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	email := c.QueryParam("email")
	if email == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "email is required"})
	}

	out, err := h.returnUC.List(c.Request().Context(), id, email)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
