package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	appmw "shop/internal/middleware"
	"shop/internal/usecase"
)

// /cart の公開API。ゲストはセッションcookie、会員はJWTで持ち主を決める。
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

func (h *CartHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/cart", h.get)
	g.POST("/cart/items", h.addItem)
	g.PATCH("/cart/items/:id", h.updateItem)
	g.DELETE("/cart/items/:id", h.deleteItem)
	g.POST("/cart/coupon", h.applyCoupon)
	g.DELETE("/cart/coupon", h.removeCoupon)
	g.POST("/cart/merge", h.merge)
}

func (h *CartHandler) get(c echo.Context) error {
	out, err := h.uc.GetCart(c.Request().Context(), ownerFromContext(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type addItemRequest struct {
	VariantID int64 `json:"variant_id"`
	Qty       int64 `json:"qty"`
}

func (h *CartHandler) addItem(c echo.Context) error {
	var req addItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.AddItem(c.Request().Context(), ownerFromContext(c), usecase.AddCartItemInput{
		VariantID: req.VariantID,
		Qty:       req.Qty,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type updateItemRequest struct {
	Qty int64 `json:"qty"`
}

func (h *CartHandler) updateItem(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	var req updateItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.UpdateItem(c.Request().Context(), ownerFromContext(c), id, usecase.UpdateCartItemInput{Qty: req.Qty})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.DeleteItem(c.Request().Context(), ownerFromContext(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

func (h *CartHandler) applyCoupon(c echo.Context) error {
	var req applyCouponRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.ApplyCoupon(c.Request().Context(), ownerFromContext(c), req.Code)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) removeCoupon(c echo.Context) error {
	out, err := h.uc.RemoveCoupon(c.Request().Context(), ownerFromContext(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ログイン直後にゲストカートを会員カートへ統合する。要JWT。
func (h *CartHandler) merge(c echo.Context) error {
	userID, ok := c.Get(appmw.CtxUserIDKey).(int64)
	if !ok || userID <= 0 {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	sid, _ := c.Get(appmw.CtxCartSessionKey).(string)

	out, err := h.uc.Merge(c.Request().Context(), sid, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
