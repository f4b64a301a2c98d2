package unified

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes refresh control for administrative use
type Handler struct {
	refresher *Refresher
}

// NewHandler creates a new unified handler
func NewHandler(refresher *Refresher) *Handler {
	return &Handler{refresher: refresher}
}

// Status returns the per-segment refresh state.
func (h *Handler) Status(c echo.Context) error {
	statuses, err := h.refresher.Status(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statuses)
}

// Refresh rebuilds the index. mode=stale rebuilds only due segments;
// anything else rebuilds all. blocking=true waits on a running refresh
// instead of skipping.
func (h *Handler) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	blocking := c.QueryParam("blocking") == "true"

	var err error
	if c.QueryParam("mode") == "stale" {
		err = h.refresher.RefreshStale(ctx)
	} else {
		err = h.refresher.RefreshAll(ctx, blocking)
	}
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
