package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	repo "shop/internal/repository"
	"shop/internal/usecase"
)

// POST /checkout と配送方法の公開API。
type CheckoutHandler struct {
	uc           *usecase.CheckoutUsecase
	shippingRepo repo.ShippingMethodRepository
}

// DI
func NewCheckoutHandler(uc *usecase.CheckoutUsecase, shippingRepo repo.ShippingMethodRepository) *CheckoutHandler {
	return &CheckoutHandler{uc: uc, shippingRepo: shippingRepo}
}

func (h *CheckoutHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/checkout", h.checkout)
	g.GET("/shipping-methods", h.listShippingMethods)
}

func (h *CheckoutHandler) checkout(c echo.Context) error {
	var req usecase.CheckoutInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.Checkout(c.Request().Context(), ownerFromContext(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *CheckoutHandler) listShippingMethods(c echo.Context) error {
	methods, err := h.shippingRepo.ListActive(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
	return c.JSON(http.StatusOK, methods)
}
