package unified

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/sitedex/sitedex/pkg/auth"
)

// Module provides the unified index domain
var Module = fx.Module("unified",
	fx.Provide(
		NewRepository,
		NewRefresher,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)

// RegisterRoutes registers the refresh-control routes
func RegisterRoutes(e *echo.Echo, handler *Handler, authMiddleware *auth.Middleware) {
	api := e.Group("/api/index", authMiddleware.RequireAdmin())
	api.GET("/status", handler.Status)
	api.POST("/refresh", handler.Refresh)
}
