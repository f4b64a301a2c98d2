package ingest

import (
	"github.com/labstack/echo/v4"

	"github.com/sitedex/sitedex/pkg/auth"
)

// RegisterRoutes registers the ingest routes. Everything here is adapter or
// operator facing, so the whole group requires the admin role.
func RegisterRoutes(e *echo.Echo, handler *Handler, authMiddleware *auth.Middleware) {
	api := e.Group("/api/ingest", authMiddleware.RequireAdmin())

	api.POST("/events", handler.Enqueue)
	api.GET("/stats", handler.Stats)
	api.POST("/dead-letter/requeue", handler.RequeueDeadLetter)
	api.GET("/checkpoints/:source", handler.GetCheckpoint)
	api.PUT("/checkpoints/:source", handler.PutCheckpoint)
}
