package involvement

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/sitedex/sitedex/pkg/auth"
)

// Module provides the involvement domain
var Module = fx.Module("involvement",
	fx.Provide(
		NewRepository,
		NewService,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)

// RegisterRoutes registers the involvement routes
func RegisterRoutes(e *echo.Echo, handler *Handler, authMiddleware *auth.Middleware) {
	e.POST("/api/involvement/rebuild", handler.Rebuild, authMiddleware.RequireAdmin())
}
