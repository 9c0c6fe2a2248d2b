package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"shop/internal/domain/model"
	appmw "shop/internal/middleware"
	"shop/internal/usecase"
)

// スタッフ専用の注文操作。JWT＋ロールガードの内側に載せる。
type AdminOrderHandler struct {
	orderUC *usecase.OrderUsecase
	cartUC  *usecase.CartUsecase
}

// DI
func NewAdminOrderHandler(orderUC *usecase.OrderUsecase, cartUC *usecase.CartUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{orderUC: orderUC, cartUC: cartUC}
}

func (h *AdminOrderHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/orders/:id/transition", h.transition)
	g.GET("/admin/orders/:id", h.detail)
	g.GET("/admin/orders/:id/status", h.status)
	g.DELETE("/admin/carts/stale", h.purgeStaleCarts)
}

type transitionRequest struct {
	Target         string `json:"target"`
	Note           string `json:"note"`
	TrackingNumber string `json:"tracking_number"`
}

func (h *AdminOrderHandler) transition(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	actor := "staff"
	if role, ok := c.Get(appmw.CtxUserRoleKey).(string); ok && role != "" {
		actor = role
	}

	out, err := h.orderUC.Transition(c.Request().Context(), id, usecase.TransitionInput{
		Target:         model.OrderStatus(req.Target),
		Note:           req.Note,
		TrackingNumber: req.TrackingNumber,
		Actor:          actor,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) detail(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.orderUC.AdminDetail(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ステータスだけの軽い照会。ピッキング画面のポーリング向け。
func (h *AdminOrderHandler) status(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.orderUC.Status(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type purgeStaleResponse struct {
	Deleted int64 `json:"deleted"`
}

// 明細ゼロで30日以上触られていないカートの掃除。
func (h *AdminOrderHandler) purgeStaleCarts(c echo.Context) error {
	n, err := h.cartUC.PurgeStale(c.Request().Context(), 30*24*time.Hour)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, purgeStaleResponse{Deleted: n})
}
