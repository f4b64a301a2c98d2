package hierarchy

import (
	"github.com/labstack/echo/v4"

	"github.com/sitedex/sitedex/pkg/auth"
)

// RegisterRoutes registers the hierarchy routes
func RegisterRoutes(e *echo.Echo, handler *Handler, authMiddleware *auth.Middleware) {
	api := e.Group("/api")
	api.Use(authMiddleware.RequireAuth())

	api.PATCH("/locations/:id", handler.RenameLocation)

	api.GET("/associations", handler.ListAssociations)
	api.POST("/associations", handler.CreateAssociation)
	api.DELETE("/associations/:id", handler.DeleteAssociation)

	api.GET("/autocomplete/locations", handler.AutocompleteLocations)
	api.GET("/autocomplete/cost-groups", handler.AutocompleteCostGroups)
}
