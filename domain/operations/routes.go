package operations

import (
	"github.com/labstack/echo/v4"

	"github.com/sitedex/sitedex/pkg/auth"
)

// RegisterRoutes registers the operations routes
func RegisterRoutes(e *echo.Echo, handler *Handler, authMiddleware *auth.Middleware) {
	api := e.Group("/api/operations")
	api.Use(authMiddleware.RequireAdmin())

	api.GET("", handler.ListRuns)
	api.GET("/:id", handler.GetRun)
}
