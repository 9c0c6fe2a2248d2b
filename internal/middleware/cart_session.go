package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	CtxCartSessionKey = "cart_session" // string

	cartSessionCookie = "cart_session"
	cartSessionTTL    = 30 * 24 * time.Hour
)

// CartSession はゲストカート用のセッションIDを保証する。
// cookieが無ければ発行し、contextに載せる。
func CartSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid := ""
			if ck, err := c.Cookie(cartSessionCookie); err == nil && ck.Value != "" {
				sid = ck.Value
			}
			if sid == "" {
				sid = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     cartSessionCookie,
					Value:    sid,
					Path:     "/",
					Expires:  time.Now().Add(cartSessionTTL),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			c.Set(CtxCartSessionKey, sid)
			return next(c)
		}
	}
}
