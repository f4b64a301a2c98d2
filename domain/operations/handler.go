package operations

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sitedex/sitedex/pkg/apperror"
	"github.com/sitedex/sitedex/pkg/mathutil"
)

// Handler exposes operation run progress over HTTP
type Handler struct {
	repo *Repository
}

// NewHandler creates a new operations handler
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// GetRun returns one run by id.
func (h *Handler) GetRun(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.NewBadRequest("invalid run id")
	}

	run, err := h.repo.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, run)
}

// ListRuns returns recent runs, newest first.
func (h *Handler) ListRuns(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	limit = mathutil.ClampLimit(limit, 20, 100)
	runs, err := h.repo.List(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, runs)
}
