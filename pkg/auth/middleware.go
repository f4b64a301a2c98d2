// Package auth resolves the ambient caller identity for the query API.
//
// An external identity provider issues the bearer tokens; this package only
// verifies the signature and extracts {email, admin}. The identity feeds the
// access-filtering step of the unified index: message-type rows are visible
// only when the caller's email intersects the row's involved emails.
package auth

import (
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/sitedex/sitedex/internal/config"
	"github.com/sitedex/sitedex/pkg/apperror"
	"github.com/sitedex/sitedex/pkg/logger"
)

// Module provides the auth middleware
var Module = fx.Module("auth",
	fx.Provide(NewMiddleware),
)

// Caller is the authenticated caller identity
type Caller struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	IsAdmin bool   `json:"isAdmin"`
}

type contextKey string

const callerContextKey contextKey = "auth_caller"

// GetCaller retrieves the authenticated caller from the Echo context
func GetCaller(c echo.Context) *Caller {
	if caller, ok := c.Get(string(callerContextKey)).(*Caller); ok {
		return caller
	}
	return nil
}

// Middleware authenticates requests via bearer JWT
type Middleware struct {
	cfg *config.Config
	log *slog.Logger
}

// NewMiddleware creates the auth middleware
func NewMiddleware(cfg *config.Config, log *slog.Logger) *Middleware {
	return &Middleware{
		cfg: cfg,
		log: log.With(logger.Scope("auth")),
	}
}

// RequireAuth verifies the bearer token and stores the caller identity.
func (m *Middleware) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, err := m.authenticate(c)
			if err != nil {
				return err
			}
			c.Set(string(callerContextKey), caller)
			return next(c)
		}
	}
}

// RequireAdmin verifies the bearer token and rejects non-admin callers.
// Used by the bulk-operation and refresh-control endpoints.
func (m *Middleware) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, err := m.authenticate(c)
			if err != nil {
				return err
			}
			if !caller.IsAdmin {
				return apperror.ErrForbidden.WithMessage("admin access required")
			}
			c.Set(string(callerContextKey), caller)
			return next(c)
		}
	}
}

func (m *Middleware) authenticate(c echo.Context) (*Caller, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return nil, apperror.ErrUnauthorized
	}

	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, apperror.ErrUnauthorized.WithMessage("bearer token required")
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(m.cfg.Auth.TokenSecret), nil
	})
	if err != nil || !token.Valid {
		m.log.Debug("token rejected", logger.Error(err))
		return nil, apperror.ErrInvalidToken
	}

	if claims.Email == "" {
		return nil, apperror.ErrInvalidToken.WithMessage("token missing email claim")
	}

	return &Caller{
		Email:   strings.ToLower(claims.Email),
		Name:    claims.Name,
		IsAdmin: claims.Admin,
	}, nil
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Admin bool   `json:"admin,omitempty"`
}
