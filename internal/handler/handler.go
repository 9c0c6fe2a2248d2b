package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	appmw "shop/internal/middleware"
	"shop/internal/usecase"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, usecase.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// ownerFromContext はカートの持ち主を決める。ログイン中ならユーザー、
// そうでなければセッションcookie。
func ownerFromContext(c echo.Context) usecase.CartOwner {
	if v, ok := c.Get(appmw.CtxUserIDKey).(int64); ok && v > 0 {
		return usecase.CartOwner{UserID: &v}
	}
	if sid, ok := c.Get(appmw.CtxCartSessionKey).(string); ok {
		return usecase.CartOwner{SessionID: sid}
	}
	return usecase.CartOwner{}
}
