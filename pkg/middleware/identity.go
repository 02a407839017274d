package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	UserHeader = "X-User-Id"
	UserCookie = "UMBRA_UID"
	userKey    = "uid"
)

// Identity resolves the caller's opaque user id from the X-User-Id header, the
// UMBRA_UID cookie or a ?uid= query (which also sets the cookie). Anonymous
// requests carry an empty id.
func Identity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid := strings.TrimSpace(c.Request().Header.Get(UserHeader))
			if uid == "" {
				if ck, err := c.Cookie(UserCookie); err == nil {
					uid = ck.Value
				}
			}
			if uid == "" {
				if q := strings.TrimSpace(c.QueryParam("uid")); q != "" {
					c.SetCookie(&http.Cookie{Name: UserCookie, Value: q, Path: "/", HttpOnly: true})
					uid = q
				}
			}
			c.Set(userKey, uid)
			return next(c)
		}
	}
}

// RequireUser rejects requests that Identity left anonymous.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if UserID(c) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "user id required"})
			}
			return next(c)
		}
	}
}

func UserID(c echo.Context) string {
	uid, _ := c.Get(userKey).(string)
	return uid
}
