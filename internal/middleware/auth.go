package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
)

const (
	ContextUID   = "uid"
	ContextAdmin = "admin"
	DevUIDHeader = "X-Dev-UID"
)

// TokenVerifier is the part of the Firebase auth client the middleware uses.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
	devAuth  bool
}

// NewAuthMiddleware verifies Firebase ID tokens. With devAuth set, a request
// carrying X-Dev-UID is trusted as that user (development only).
func NewAuthMiddleware(verifier TokenVerifier, devAuth bool) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, devAuth: devAuth}
}

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m.devAuth {
			if uid := strings.TrimSpace(c.Request().Header.Get(DevUIDHeader)); uid != "" {
				c.Set(ContextUID, uid)
				c.Set(ContextAdmin, false)
				return next(c)
			}
		}
		if m.verifier == nil {
			return c.JSON(http.StatusUnauthorized, errorBody("unauthorized", "authentication is not configured"))
		}
		authz := c.Request().Header.Get("Authorization")
		if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, errorBody("unauthorized", "missing bearer token"))
		}
		tokenStr := strings.TrimPrefix(authz, "Bearer ")
		token, err := m.verifier.VerifyIDToken(c.Request().Context(), tokenStr)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorBody("invalid_token", "invalid or expired token"))
		}
		c.Set(ContextUID, token.UID)
		admin, _ := token.Claims["admin"].(bool)
		c.Set(ContextAdmin, admin)
		return next(c)
	}
}

func errorBody(code, message string) map[string]map[string]string {
	return map[string]map[string]string{"error": {"code": code, "message": message}}
}
