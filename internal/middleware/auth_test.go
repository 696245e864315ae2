package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/shinyyama/quickfix-backend/internal/reqctx"
	"github.com/stretchr/testify/assert"
)

type stubVerifier map[string]*auth.Token

func (s stubVerifier) VerifyIDToken(_ context.Context, token string) (*auth.Token, error) {
	if tok, ok := s[token]; ok {
		return tok, nil
	}
	return nil, errors.New("bad token")
}

func whoami(c echo.Context) error {
	uid, _ := c.Get(ContextUID).(string)
	admin, _ := c.Get(ContextAdmin).(bool)
	return c.JSON(http.StatusOK, map[string]interface{}{"uid": uid, "admin": admin})
}

func TestRequireAuth(t *testing.T) {
	verifier := stubVerifier{
		"good":  {UID: "u1"},
		"admin": {UID: "a1", Claims: map[string]interface{}{"admin": true}},
	}
	tests := []struct {
		name    string
		devAuth bool
		headers map[string]string
		code    int
		body    string
	}{
		{"no header", false, nil, http.StatusUnauthorized, "unauthorized"},
		{"bad token", false, map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized, "invalid_token"},
		{"good token", false, map[string]string{"Authorization": "Bearer good"}, http.StatusOK, `"uid":"u1"`},
		{"admin claim", false, map[string]string{"Authorization": "Bearer admin"}, http.StatusOK, `"admin":true`},
		{"dev header ignored", false, map[string]string{DevUIDHeader: "dev"}, http.StatusUnauthorized, "unauthorized"},
		{"dev header", true, map[string]string{DevUIDHeader: "dev"}, http.StatusOK, `"uid":"dev"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/me", whoami, NewAuthMiddleware(verifier, tt.devAuth).RequireAuth)
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestCorrelationID(t *testing.T) {
	e := echo.New()
	e.Use(echomw.RequestID(), CorrelationID)
	e.GET("/rid", func(c echo.Context) error {
		return c.String(http.StatusOK, reqctx.RID(c.Request().Context()))
	})
	req := httptest.NewRequest(http.MethodGet, "/rid", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Body.String())
}
