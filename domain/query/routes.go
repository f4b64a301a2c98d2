package query

import (
	"github.com/labstack/echo/v4"

	"github.com/sitedex/sitedex/pkg/auth"
)

// RegisterRoutes registers the query routes
func RegisterRoutes(e *echo.Echo, handler *Handler, authMiddleware *auth.Middleware) {
	api := e.Group("/api", authMiddleware.RequireAuth())

	api.GET("/items", handler.Query)
	api.GET("/items/count", handler.Count)

	api.GET("/autocomplete/projects", handler.AutocompleteProjects)
	api.GET("/autocomplete/tags", handler.AutocompleteTags)
}
