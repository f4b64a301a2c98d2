package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitedex/sitedex/internal/config"
	"github.com/sitedex/sitedex/pkg/apperror"
)

const testSecret = "test-secret"

func newTestMiddleware() *Middleware {
	cfg := &config.Config{}
	cfg.Auth.TokenSecret = testSecret
	return NewMiddleware(cfg, slog.Default())
}

func signToken(t *testing.T, email string, admin bool, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: email,
		Admin: admin,
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func doRequest(mw echo.MiddlewareFunc, authHeader string) (*Caller, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var caller *Caller
	err := mw(func(c echo.Context) error {
		caller = GetCaller(c)
		return nil
	})(c)
	return caller, err
}

func TestRequireAuth(t *testing.T) {
	m := newTestMiddleware()

	t.Run("valid token", func(t *testing.T) {
		caller, err := doRequest(m.RequireAuth(), "Bearer "+signToken(t, "Anna@Example.com", false, testSecret))
		require.NoError(t, err)
		require.NotNil(t, caller)
		assert.Equal(t, "anna@example.com", caller.Email, "email is lowercased")
		assert.False(t, caller.IsAdmin)
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := doRequest(m.RequireAuth(), "")
		assert.Equal(t, apperror.ErrUnauthorized, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := doRequest(m.RequireAuth(), "Bearer "+signToken(t, "a@x.com", false, "other"))
		appErr, ok := err.(*apperror.Error)
		require.True(t, ok)
		assert.Equal(t, "invalid_token", appErr.Code)
	})

	t.Run("not bearer", func(t *testing.T) {
		_, err := doRequest(m.RequireAuth(), "Basic abc")
		appErr, ok := err.(*apperror.Error)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
	})
}

func TestRequireAdmin(t *testing.T) {
	m := newTestMiddleware()

	t.Run("admin passes", func(t *testing.T) {
		caller, err := doRequest(m.RequireAdmin(), "Bearer "+signToken(t, "ops@x.com", true, testSecret))
		require.NoError(t, err)
		assert.True(t, caller.IsAdmin)
	})

	t.Run("non-admin rejected", func(t *testing.T) {
		_, err := doRequest(m.RequireAdmin(), "Bearer "+signToken(t, "user@x.com", false, testSecret))
		appErr, ok := err.(*apperror.Error)
		require.True(t, ok)
		assert.Equal(t, http.StatusForbidden, appErr.HTTPStatus)
	})
}
