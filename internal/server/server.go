package server

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"shop/internal/config"
	"shop/internal/handler"
	appmw "shop/internal/middleware"
)

// Handlers はルーティングに必要なハンドラ一式。
type Handlers struct {
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Order    *handler.OrderHandler
	Admin    *handler.AdminOrderHandler
	Payment  *handler.PaymentHandler
}

// New はルート構成済みのechoを返す。
func New(cfg config.Config, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	//公開ルート。カート系はゲストセッション＋任意ログイン。
	public := e.Group("",
		appmw.CartSession(),
		appmw.OptionalAuth(cfg.JWTSecret),
	)
	h.Cart.RegisterRoutes(public)
	h.Checkout.RegisterRoutes(public)
	h.Order.RegisterRoutes(public)
	h.Payment.RegisterPublicRoutes(public)

	//スタッフ専用ルート
	staff := e.Group("",
		appmw.AuthJWT(cfg.JWTSecret),
		appmw.StaffRoleGuard(),
	)
	h.Admin.RegisterRoutes(staff)
	h.Payment.RegisterStaffRoutes(staff)

	return e
}

// Start はサーバーを起動する。
func Start(e *echo.Echo, port string) error {
	return e.Start(":" + port)
}
