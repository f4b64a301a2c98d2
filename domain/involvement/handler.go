package involvement

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes the bulk rebuild trigger
type Handler struct {
	service *Service
}

// NewHandler creates a new involvement handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Rebuild starts a full involvement rebuild and returns the run record.
func (h *Handler) Rebuild(c echo.Context) error {
	run, err := h.service.RefreshAll(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, run)
}
