package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const ctxUserID = "user_id"

type TokenVerifier interface {
	Verify(token string) (string, error)
}

// BearerAuth rejects requests without a valid bearer token and stores the
// token's user id on the context.
func BearerAuth(v TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, tok, found := strings.Cut(h, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
				return fail(c, http.StatusUnauthorized, "Authorization header missing")
			}
			userID, err := v.Verify(strings.TrimSpace(tok))
			if err != nil {
				return fail(c, http.StatusUnauthorized, "Invalid or expired token")
			}
			c.Set(ctxUserID, userID)
			return next(c)
		}
	}
}

// UserID returns the authenticated user, or "" outside BearerAuth.
func UserID(c echo.Context) string {
	s, _ := c.Get(ctxUserID).(string)
	return s
}

func fail(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]any{"success": false, "error": msg})
}
