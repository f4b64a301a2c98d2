package people

import (
	"github.com/labstack/echo/v4"

	"github.com/sitedex/sitedex/pkg/auth"
)

// RegisterRoutes registers the people routes
func RegisterRoutes(e *echo.Echo, handler *Handler, authMiddleware *auth.Middleware) {
	api := e.Group("/api/people")
	api.GET("/autocomplete", handler.Autocomplete, authMiddleware.RequireAuth())
	api.GET("/:id", handler.GetPerson, authMiddleware.RequireAuth())

	// Administrative re-derivation, never request-path.
	api.POST("/relink", handler.RerunLinking, authMiddleware.RequireAdmin())
}
