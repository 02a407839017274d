package controllerImp

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"umbra/pkg/auth/controller"
	"umbra/pkg/middleware"
)

type authCtrl struct{}

func NewAuthController() controller.AuthController { return &authCtrl{} }

// WhoAmI reports the opaque user id the request resolved to.
func (h *authCtrl) WhoAmI(c echo.Context) error {
	uid := middleware.UserID(c)
	return c.JSON(http.StatusOK, map[string]any{"uid": uid, "anonymous": uid == ""})
}

// Forget drops the identity cookie.
func (h *authCtrl) Forget(c echo.Context) error {
	c.SetCookie(&http.Cookie{Name: middleware.UserCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	return c.NoContent(http.StatusNoContent)
}
